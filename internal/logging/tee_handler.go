package logging

import (
	"context"
	"log/slog"
)

// teeHandler mirrors records from the terminal handler into the log file
// handler. Each side applies its own level.
type teeHandler struct {
	terminal slog.Handler
	file     slog.Handler
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.terminal.Enabled(ctx, level) || t.file.Enabled(ctx, level)
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var termErr error
	if t.terminal.Enabled(ctx, record.Level) {
		termErr = t.terminal.Handle(ctx, record.Clone())
	}
	if t.file.Enabled(ctx, record.Level) {
		if err := t.file.Handle(ctx, record); err != nil {
			return err
		}
	}
	return termErr
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{terminal: t.terminal.WithAttrs(attrs), file: t.file.WithAttrs(attrs)}
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{terminal: t.terminal.WithGroup(name), file: t.file.WithGroup(name)}
}
