// Package notify is the user-notification capability: every vault and
// location operation reports its outcome through a Notifier.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess    Kind = "success"
	KindFailure    Kind = "failure"
	KindValidation Kind = "validation"
)

// Notification is a one-shot user-visible message about an operation.
type Notification struct {
	Kind    Kind   `json:"kind"`
	Op      string `json:"op"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Notifier delivers notifications. Implementations must not block for long;
// they are called from inside operations.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification)

// Notify implements Notifier.
func (f Func) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, Notification) {})

// Log writes notifications to a structured logger.
type Log struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l Log) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Kind != KindSuccess {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("kind", string(n.Kind)),
		slog.String("op", n.Op),
	}
	if n.Path != "" {
		attrs = append(attrs, slog.String("path", n.Path))
	}
	if n.Err != nil {
		attrs = append(attrs, slog.String("error", n.Err.Error()))
	}
	l.Logger.LogAttrs(ctx, level, n.Message, attrs...)
}

// Multi fans a notification out to several notifiers in order.
func Multi(ns ...Notifier) Notifier {
	return Func(func(ctx context.Context, n Notification) {
		for _, x := range ns {
			if x != nil {
				x.Notify(ctx, n)
			}
		}
	})
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.all = append(r.all, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}, false
	}
	return r.all[len(r.all)-1], true
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.all = nil
	r.mu.Unlock()
}
