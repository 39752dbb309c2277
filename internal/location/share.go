package location

import (
	"context"
	"log/slog"
)

// Share request texts.
const (
	ShareTitle       = "My Current Location"
	ShareText        = "Here is my current location:"
	ShareDialogTitle = "Share Location"
)

// ShareRequest is what a Sharer is asked to publish.
type ShareRequest struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	URL         string `json:"url"`
	DialogTitle string `json:"dialog_title"`
}

// Sharer delivers a share request to the user's chosen target.
type Sharer interface {
	Share(ctx context.Context, req ShareRequest) error
}

// SharerFunc adapts a function to Sharer.
type SharerFunc func(ctx context.Context, req ShareRequest) error

// Share implements Sharer.
func (f SharerFunc) Share(ctx context.Context, req ShareRequest) error { return f(ctx, req) }

// LogSharer writes share requests to the log.
type LogSharer struct {
	Logger *slog.Logger
}

// Share implements Sharer.
func (l LogSharer) Share(ctx context.Context, req ShareRequest) error {
	l.Logger.InfoContext(ctx, "location: shared",
		slog.String("title", req.Title),
		slog.String("url", req.URL))
	return nil
}
