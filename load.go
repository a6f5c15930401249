package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Session is a fully compiled schedule ready to be installed
type Session struct {
	Schedule *Schedule
	Index    *StepIndex
	Script   *Script
	Excluded ExcludedSet
	Dropped  []*RowError // Malformed rows skipped in lenient mode
}

// fetchSchedule reads the schedule text from a file path or an http(s) URL
func fetchSchedule(ctx context.Context, source string) (string, error) {
	if !isURL(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrScheduleFetch, err)
		}
		return string(data), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrScheduleFetch, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrScheduleFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned %s", ErrScheduleFetch, source, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrScheduleFetch, err)
	}
	return string(data), nil
}

// Prepare fetches the schedule text and the scene population concurrently,
// then parses and compiles. Nothing is installed anywhere.
func Prepare(ctx context.Context, cfg Config, elements ElementSource, logger *slog.Logger) (*Session, error) {
	opts, err := cfg.ParseOptions()
	if err != nil {
		return nil, err
	}
	colors, err := cfg.StatusColors()
	if err != nil {
		return nil, err
	}

	var text string
	var population []string
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		text, err = fetchSchedule(groupCtx, cfg.Schedule)
		return err
	})
	group.Go(func() error {
		var err error
		population, err = elements.ElementIDs(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	schedule, rowErrors, err := ParseSchedule(strings.NewReader(text), opts)
	if err != nil {
		return nil, err
	}
	if len(rowErrors) > 0 {
		if cfg.Strict {
			return nil, &ParseError{Rows: rowErrors}
		}
		for _, rowErr := range rowErrors {
			logger.Warn("skipping malformed schedule row",
				"row", rowErr.Row,
				"field", rowErr.Field,
				"reason", rowErr.Reason,
			)
		}
	}

	script, excluded, err := Compile(schedule, population, colors)
	if err != nil {
		return nil, err
	}

	logger.Info("compiled schedule",
		"source", cfg.Schedule,
		"steps", schedule.Len(),
		"models", len(script.Models),
		"excluded", len(excluded),
	)

	return &Session{
		Schedule: schedule,
		Index:    NewStepIndex(schedule),
		Script:   script,
		Excluded: excluded,
		Dropped:  rowErrors,
	}, nil
}

// Load prepares a session and installs it into engine. Any parse or
// compile failure returns before the engine is touched.
func Load(ctx context.Context, cfg Config, elements ElementSource, engine Engine, logger *slog.Logger) (*Session, error) {
	session, err := Prepare(ctx, cfg, elements, logger)
	if err != nil {
		return nil, err
	}
	if err := engine.Install(session.Script, session.Excluded); err != nil {
		return nil, fmt.Errorf("failed to install script: %w", err)
	}
	return session, nil
}

// AwaitReady waits for signal to close, giving up after timeout. It
// returns ErrReadyTimeout on timeout and the context error if ctx ends
// first.
func AwaitReady(ctx context.Context, signal ReadySignal, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-signal.Ready():
		return nil
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w after %s", ErrReadyTimeout, timeout)
	}
}
