package storage

import (
	"context"
	"time"

	"github.com/safevault/safevault/internal/metrics"
	"github.com/safevault/safevault/internal/models"
)

// Instrumented decorates a Provider with per-operation Prometheus metrics.
type Instrumented struct {
	next    Provider
	backend string
}

// WithMetrics wraps p; backend labels the recorded series ("fs", "s3").
func WithMetrics(p Provider, backend string) *Instrumented {
	return &Instrumented{next: p, backend: backend}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	metrics.RecordStorageOperation(i.backend, op, time.Since(start), err == nil)
}

// Mkdir implements Provider.
func (i *Instrumented) Mkdir(ctx context.Context, path string, recursive bool) (err error) {
	defer func(start time.Time) { i.observe("mkdir", start, err) }(time.Now())
	return i.next.Mkdir(ctx, path, recursive)
}

// WriteFile implements Provider.
func (i *Instrumented) WriteFile(ctx context.Context, path string, data []byte) (err error) {
	defer func(start time.Time) { i.observe("write_file", start, err) }(time.Now())
	return i.next.WriteFile(ctx, path, data)
}

// ReadFile implements Provider.
func (i *Instrumented) ReadFile(ctx context.Context, path string) (data []byte, err error) {
	defer func(start time.Time) { i.observe("read_file", start, err) }(time.Now())
	return i.next.ReadFile(ctx, path)
}

// Readdir implements Provider.
func (i *Instrumented) Readdir(ctx context.Context, path string) (entries []models.DirEntry, err error) {
	defer func(start time.Time) { i.observe("readdir", start, err) }(time.Now())
	return i.next.Readdir(ctx, path)
}

// DeleteFile implements Provider.
func (i *Instrumented) DeleteFile(ctx context.Context, path string) (err error) {
	defer func(start time.Time) { i.observe("delete_file", start, err) }(time.Now())
	return i.next.DeleteFile(ctx, path)
}
