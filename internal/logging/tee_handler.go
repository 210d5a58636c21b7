package logging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"
)

// teeHandler hands every record to each branch that accepts its level. It
// pairs the console output with the JSON file copy.
type teeHandler []slog.Handler

// TeeHandler combines handlers, skipping nil ones. A single branch is
// returned unwrapped.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	branches := lo.Filter(handlers, func(h slog.Handler, _ int) bool { return h != nil })
	switch len(branches) {
	case 0:
		return NoopHandler{}
	case 1:
		return branches[0]
	default:
		return teeHandler(branches)
	}
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return lo.ContainsBy(t, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, record.Level) {
			// Handlers may retain the record, so each branch gets its own copy.
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler(lo.Map(t, func(h slog.Handler, _ int) slog.Handler { return h.WithAttrs(attrs) }))
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler(lo.Map(t, func(h slog.Handler, _ int) slog.Handler { return h.WithGroup(name) }))
}
