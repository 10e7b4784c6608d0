package logging

import (
	"context"
	"errors"
	"log/slog"
)

// tee sends each record to every member; members keep their own levels.
type tee []slog.Handler

// TeeHandler combines the non-nil handlers. It collapses to NoopHandler or to
// the single remaining handler when there is nothing to fan out.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	var members tee
	for _, h := range handlers {
		if h != nil {
			members = append(members, h)
		}
	}
	if len(members) == 0 {
		return NoopHandler{}
	}
	if len(members) == 1 {
		return members[0]
	}
	return members
}

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle gives each member its own clone so attribute slices are never
// shared. Errors from all members are joined.
func (t tee) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t tee) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t tee) each(fn func(slog.Handler) slog.Handler) tee {
	next := make(tee, len(t))
	for i, h := range t {
		next[i] = fn(h)
	}
	return next
}
