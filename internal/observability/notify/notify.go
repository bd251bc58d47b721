// Package notify provides Notifier implementations shared by the web app and the CLI.
package notify

import (
	"context"
	"log/slog"

	"github.com/target/kb-assistant-web/internal/ports"
)

var (
	_ ports.Notifier = Log{}
	_ ports.Notifier = Fanout(nil)
)

// Log writes notices to a structured logger.
type Log struct {
	Logger *slog.Logger
}

// Notify implements ports.Notifier.
func (l Log) Notify(ctx context.Context, n ports.Notice) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if n.Kind == ports.NoticeError {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "notice", slog.String("kind", string(n.Kind)), slog.String("message", n.Message))
}

// Fanout delivers each notice to every non-nil notifier in order.
type Fanout []ports.Notifier

// Notify implements ports.Notifier.
func (f Fanout) Notify(ctx context.Context, n ports.Notice) {
	for _, target := range f {
		if target != nil {
			target.Notify(ctx, n)
		}
	}
}
