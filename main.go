package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds command-line settings that are not config keys
type options struct {
	configPath string
	exportPath string
	logOutput  string
	logLevel   string
	lenient    bool
}

func run() error {
	var opts options
	var schedulePath, scenePath, separator, location string
	var watch bool

	flagSet := pflag.NewFlagSet("schedscrub", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "config file (YAML, JSON or JSONC; default $"+configEnvVar+")")
	flagSet.StringVar(&schedulePath, "schedule", "", "schedule file path or http(s) URL")
	flagSet.StringVar(&scenePath, "scene", "", "scene description file")
	flagSet.StringVar(&separator, "separator", "", "schedule field separator")
	flagSet.StringVar(&location, "location", "", "time zone for timestamps without an offset")
	flagSet.StringVar(&opts.exportPath, "export", "", "write the compiled script to this file (.json or .cbor) and exit")
	flagSet.StringVar(&opts.logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
	flagSet.BoolVar(&opts.lenient, "lenient", false, "skip malformed schedule rows instead of failing")
	flagSet.BoolVar(&watch, "watch", false, "reload the schedule when its file changes")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	args := flagSet.Args()
	if len(args) > 1 {
		return fmt.Errorf("unexpected argument: %s", args[1])
	}

	cfg, err := LoadConfig(resolveConfigPath(opts.configPath))
	if err != nil {
		return err
	}

	// Flags override the config file
	if len(args) == 1 {
		cfg.Schedule = args[0]
	}
	if flagSet.Changed("schedule") {
		cfg.Schedule = schedulePath
	}
	if flagSet.Changed("scene") {
		cfg.Scene = scenePath
	}
	if flagSet.Changed("separator") {
		cfg.Separator = separator
	}
	if flagSet.Changed("location") {
		cfg.Location = location
	}
	if flagSet.Changed("lenient") {
		cfg.Strict = !opts.lenient
	}
	if flagSet.Changed("watch") {
		cfg.Watch = watch
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}

	// Handlers that outlive the TUI switch. Stderr is only written before
	// the alt screen takes over.
	var fileHandlers fanoutHandler
	if opts.logOutput != "" {
		logFile, err := os.OpenFile(opts.logOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log output: %w", err)
		}
		defer logFile.Close()
		fileHandlers = append(fileHandlers, slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level}))
	}
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(append(fanoutHandler{stderrHandler}, fileHandlers...))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	clips, err := cfg.ClipTable()
	if err != nil {
		return err
	}

	logger.Info("loading scene", "path", cfg.Scene)
	scene := OpenScene(cfg.Scene)
	engine := NewPlayback(scene)

	// A slow scene is not fatal; the population query below still waits
	// for it under ctx.
	if err := AwaitReady(ctx, scene, cfg.ReadyTimeout); err != nil {
		if !errors.Is(err, ErrReadyTimeout) {
			return err
		}
		logger.Warn("scene not ready, continuing", "timeout", cfg.ReadyTimeout)
	}

	session, err := Load(ctx, cfg, scene, engine, logger)
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}

	if opts.exportPath != "" {
		return exportToFile(opts.exportPath, session)
	}

	// Warnings go to the status line once the TUI is running
	statusHandler := newStatusLogHandler(slog.LevelWarn)
	tuiLogger := slog.New(append(fanoutHandler{statusHandler}, fileHandlers...))

	m := newModel(cfg, session, engine, clips)
	m.reload = func() (*Session, error) {
		return Prepare(ctx, cfg, scene, tuiLogger)
	}

	var watchPath string
	if cfg.Watch {
		if isURL(cfg.Schedule) {
			logger.Warn("--watch ignored for URL schedules", "schedule", cfg.Schedule)
		} else {
			watchPath = cfg.Schedule
		}
	}

	return runUI(m, statusHandler, watchPath, tuiLogger)
}

// exportToFile writes the compiled session and prints its digest
func exportToFile(path string, session *Session) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	digest, err := ExportSession(file, session, exportFormat(path))
	if err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	fmt.Println(digest)
	return nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `schedscrub: scrub through a construction schedule over a 3D scene.

Reads a separator-delimited schedule, compiles it into per-element
visibility and color timelines, and plays them back against the scene
description in a terminal viewer. Press h in the viewer for key help.

Usage:
  schedscrub [flags] [schedule]

Examples:
  # View the default steps.csv against scene.yaml
  schedscrub

  # View a remote schedule, skipping malformed rows
  schedscrub --lenient https://example.com/steps.csv

  # Compile only and write the script as CBOR
  schedscrub --export script.cbor steps.csv

Flags:
`)
	flagSet.PrintDefaults()
}
