package main

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced while loading a schedule. RowError, ParseError and
// CompileError unwrap to one of these so callers can use errors.Is.
var (
	ErrMalformedRecord  = errors.New("malformed record")
	ErrEmptySchedule    = errors.New("schedule has no valid steps")
	ErrInvertedInterval = errors.New("step ends before it starts")
	ErrUnknownElement   = errors.New("element not present in scene")
	ErrSceneQuery       = errors.New("scene query failed")
	ErrScheduleFetch    = errors.New("schedule fetch failed")
	ErrReadyTimeout     = errors.New("timed out waiting for scene to load")
	ErrAlreadyInstalled = errors.New("script already installed")
)

// RowError describes a problem with one data row of the schedule file.
type RowError struct {
	Row    int    // 1-based line number in the source text
	Field  string // Column name, empty when the row as a whole is bad
	Reason string
	Err    error // One of the Err* kinds above
}

func (e *RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ParseError aggregates every malformed row found in a schedule.
type ParseError struct {
	Rows []*RowError
}

func (e *ParseError) Error() string {
	return joinRowErrors(fmt.Sprintf("%d malformed row(s)", len(e.Rows)), e.Rows)
}

func (e *ParseError) Unwrap() []error {
	errs := make([]error, len(e.Rows))
	for i, r := range e.Rows {
		errs[i] = r
	}
	return errs
}

// CompileError aggregates every row rejected by the timeline compiler.
type CompileError struct {
	Rows []*RowError
}

func (e *CompileError) Error() string {
	return joinRowErrors(fmt.Sprintf("%d step(s) rejected", len(e.Rows)), e.Rows)
}

func (e *CompileError) Unwrap() []error {
	errs := make([]error, len(e.Rows))
	for i, r := range e.Rows {
		errs[i] = r
	}
	return errs
}

// joinRowErrors renders a summary followed by one line per row
func joinRowErrors(summary string, rows []*RowError) string {
	var b strings.Builder
	b.WriteString(summary)
	for _, r := range rows {
		b.WriteString("\n  ")
		b.WriteString(r.Error())
	}
	return b.String()
}
