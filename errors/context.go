package errors

import (
	"log/slog"
	"maps"
)

// ErrorContext describes where a failure happened.
// It travels alongside an operation for logging and diagnostics only and is
// never persisted.
type ErrorContext struct {
	// Component names the subsystem reporting the failure, e.g. "Storage".
	Component string

	// Action names the operation that failed, e.g. "get".
	Action string

	// Metadata holds additional diagnostic fields.
	Metadata map[string]any
}

// With returns a copy of the context with the metadata field key set to value.
// The receiver is not modified.
//
// Example:
//
//	ec := errors.ErrorContext{Component: "ProjectsStore", Action: "load"}
//	ec = ec.With("attempt", 2)
func (c ErrorContext) With(key string, value any) ErrorContext {
	md := make(map[string]any, len(c.Metadata)+1)
	maps.Copy(md, c.Metadata)
	md[key] = value
	c.Metadata = md
	return c
}

// IsZero reports whether the context carries no information.
func (c ErrorContext) IsZero() bool {
	return c.Component == "" && c.Action == "" && len(c.Metadata) == 0
}

// LogValue implements slog.LogValuer so the context renders as a group.
func (c ErrorContext) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 2+len(c.Metadata))
	if c.Component != "" {
		attrs = append(attrs, slog.String("component", c.Component))
	}
	if c.Action != "" {
		attrs = append(attrs, slog.String("action", c.Action))
	}
	for k, v := range c.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}
	return slog.GroupValue(attrs...)
}
