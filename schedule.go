package main

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

// Column order of a schedule data row
const (
	colStartTime = iota
	colEndTime
	colElementIDs
	colGroupID
	colTitle
	colRevisedStartTime
	colDescription
	numColumns
)

var columnNames = [numColumns]string{
	"start time",
	"end time",
	"element ids",
	"group id",
	"title",
	"revised start time",
	"description",
}

// StepRecord is one row of the schedule
type StepRecord struct {
	Row              int // Source line, 1-based (the header is line 1)
	StartTime        time.Time
	EndTime          time.Time
	ElementIDs       []string
	GroupID          string
	Title            string
	Description      string
	RevisedStartTime time.Time // Only used to pick the status color
}

// IsDelayed reports whether the revised start is strictly later than the
// planned start.
func (r StepRecord) IsDelayed() bool {
	return r.RevisedStartTime.After(r.StartTime)
}

// Contains reports whether t falls within the step, inclusive of both ends.
func (r StepRecord) Contains(t time.Time) bool {
	return !t.Before(r.StartTime) && !t.After(r.EndTime)
}

// Schedule is the parsed, immutable list of steps in file order. File order
// matters: it is the order timelines are compiled in and the order active
// steps are reported in.
type Schedule struct {
	steps []StepRecord
}

// NewSchedule copies steps into a new Schedule
func NewSchedule(steps []StepRecord) *Schedule {
	copied := make([]StepRecord, len(steps))
	for i, step := range steps {
		step.ElementIDs = slices.Clone(step.ElementIDs)
		copied[i] = step
	}
	return &Schedule{steps: copied}
}

// Len returns the number of steps
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.steps)
}

// Step returns the i-th step in file order
func (s *Schedule) Step(i int) StepRecord {
	return s.steps[i]
}

// Steps returns the steps in file order. Callers must not modify the
// element id slices.
func (s *Schedule) Steps() []StepRecord {
	if s == nil {
		return nil
	}
	return slices.Clone(s.steps)
}

// GlobalStart returns the start of the first step in file order, which
// anchors every compiled timeline.
func (s *Schedule) GlobalStart() (time.Time, bool) {
	if s.Len() == 0 {
		return time.Time{}, false
	}
	return s.steps[0].StartTime, true
}

// Span returns the earliest start and latest end across all steps
func (s *Schedule) Span() (earliest, latest time.Time) {
	for i, step := range s.steps {
		if i == 0 || step.StartTime.Before(earliest) {
			earliest = step.StartTime
		}
		if i == 0 || step.EndTime.After(latest) {
			latest = step.EndTime
		}
	}
	return earliest, latest
}

// maxLineLength bounds a single schedule line. Longer lines are reported
// as malformed rows.
const maxLineLength = 1024 * 1024

// ParseOptions controls how schedule text is split and interpreted
type ParseOptions struct {
	Separator string         // Field separator, e.g. ";"
	Location  *time.Location // Zone for timestamps without an offset; nil means local
}

// ParseSchedule reads line-oriented schedule text. The first line is a
// header and is always skipped; blank lines are ignored. Rows that fail to
// parse are reported individually and left out of the returned schedule.
// The error return is reserved for failures reading r.
func ParseSchedule(r io.Reader, opts ParseOptions) (*Schedule, []*RowError, error) {
	if opts.Separator == "" {
		return nil, nil, fmt.Errorf("field separator must not be empty")
	}

	reader := bufio.NewReader(r)

	var steps []StepRecord
	var rowErrors []*RowError
	lineNumber := 0

	for {
		line, tooLong, err := readLine(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read schedule: %w", err)
		}
		lineNumber++
		// Header
		if lineNumber == 1 {
			continue
		}

		if tooLong {
			rowErrors = append(rowErrors, &RowError{
				Row:    lineNumber,
				Reason: fmt.Sprintf("line exceeds %d bytes", maxLineLength),
				Err:    ErrMalformedRecord,
			})
			continue
		}

		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		step, rowErr := parseRow(lineNumber, line, opts)
		if rowErr != nil {
			rowErrors = append(rowErrors, rowErr)
			continue
		}
		steps = append(steps, step)
	}

	return &Schedule{steps: steps}, rowErrors, nil
}

// readLine returns the next line without its terminator. A line longer
// than maxLineLength is consumed and reported as tooLong with no content.
func readLine(reader *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		fragment, isPrefix, readErr := reader.ReadLine()
		if readErr != nil {
			if len(buf) > 0 || tooLong {
				return string(buf), tooLong, nil
			}
			return "", false, readErr
		}
		if !tooLong {
			if len(buf)+len(fragment) > maxLineLength {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, fragment...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

// parseRow converts one data line into a StepRecord
func parseRow(lineNumber int, line string, opts ParseOptions) (StepRecord, *RowError) {
	malformed := func(column int, format string, args ...any) *RowError {
		rowErr := &RowError{
			Row:    lineNumber,
			Reason: fmt.Sprintf(format, args...),
			Err:    ErrMalformedRecord,
		}
		if column >= 0 {
			rowErr.Field = columnNames[column]
		}
		return rowErr
	}

	fields := strings.Split(line, opts.Separator)
	if len(fields) != numColumns {
		return StepRecord{}, malformed(-1, "expected %d fields, found %d", numColumns, len(fields))
	}

	// Parse the three timestamp columns
	var times [numColumns]time.Time
	for _, column := range []int{colStartTime, colEndTime, colRevisedStartTime} {
		t, err := parseTimestamp(fields[column], opts.Location)
		if err != nil {
			return StepRecord{}, malformed(column, "%v", err)
		}
		times[column] = t
	}

	var elementIDs []string
	for _, id := range strings.Split(fields[colElementIDs], ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			return StepRecord{}, malformed(colElementIDs, "empty element id")
		}
		elementIDs = append(elementIDs, id)
	}

	groupID := strings.TrimSpace(fields[colGroupID])
	if groupID == "" {
		return StepRecord{}, malformed(colGroupID, "empty group id")
	}

	return StepRecord{
		Row:              lineNumber,
		StartTime:        times[colStartTime],
		EndTime:          times[colEndTime],
		ElementIDs:       elementIDs,
		GroupID:          groupID,
		Title:            fields[colTitle],
		Description:      fields[colDescription],
		RevisedStartTime: times[colRevisedStartTime],
	}, nil
}
