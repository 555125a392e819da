package logging

import (
	"log/slog"
)

// Attr aliases slog.Attr so call sites only import this package.
type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

// Error records err under the "error" key. A nil error yields an empty Attr,
// which handlers skip.
func Error(err error) Attr {
	if err == nil {
		return Attr{}
	}
	return slog.Any("error", err)
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component name. The console handler
// renders it as a "component: " prefix. A nil logger yields a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const (
	defaultErrorHint = "check remote.read_url and the cache directory"
	defaultImpact    = "the catalog shown may be out of date"
)

// WarnWithContext logs a warning that always carries event_type, error_hint,
// and impact. Caller-supplied values win over the defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	present := make(map[string]bool, len(attrs))
	args := make([]any, 0, len(attrs)+3)
	for _, a := range attrs {
		present[a.Key] = true
		args = append(args, a)
	}
	if !present[FieldEventType] {
		args = append(args, String(FieldEventType, eventType))
	}
	if !present[FieldErrorHint] {
		args = append(args, String(FieldErrorHint, defaultErrorHint))
	}
	if !present[FieldImpact] {
		args = append(args, String(FieldImpact, defaultImpact))
	}
	logger.Warn(msg, args...)
}

func attrsToArgs(attrs []slog.Attr) []any {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return args
}
