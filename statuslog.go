package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// statusMsg carries a log record into the viewer's status line
type statusMsg struct {
	Text  string
	Level slog.Level
}

// statusLogHandler is a slog.Handler that forwards records at or above its
// level to a bubbletea program as statusMsg. Writing to stderr while the
// alt screen is active would corrupt the display. Records arriving before
// setProgram are dropped.
type statusLogHandler struct {
	level   slog.Level
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
	prefix  string // Dotted group path for attribute keys
}

func newStatusLogHandler(level slog.Level) *statusLogHandler {
	return &statusLogHandler{
		level:   level,
		program: &atomic.Pointer[tea.Program]{},
	}
}

// setProgram enables delivery. Derived handlers share the pointer.
func (h *statusLogHandler) setProgram(program *tea.Program) {
	h.program.Store(program)
}

func (h *statusLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *statusLogHandler) Handle(_ context.Context, record slog.Record) error {
	program := h.program.Load()
	if program == nil {
		return nil
	}

	var parts []string
	for _, attr := range h.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s%s=%s", h.prefix, attr.Key, attr.Value))
		return true
	})

	text := record.Message
	if len(parts) > 0 {
		text += " (" + strings.Join(parts, ", ") + ")"
	}
	program.Send(statusMsg{Text: text, Level: record.Level})
	return nil
}

func (h *statusLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, attr := range attrs {
		attr.Key = h.prefix + attr.Key
		derived.attrs = append(derived.attrs, attr)
	}
	return &derived
}

func (h *statusLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.prefix = h.prefix + name + "."
	return &derived
}

// fanoutHandler sends every record to each of its handlers
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(f))
	for i, h := range f {
		derived[i] = h.WithAttrs(attrs)
	}
	return derived
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(f))
	for i, h := range f {
		derived[i] = h.WithGroup(name)
	}
	return derived
}
