// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// parlor is the loader for the Parlor chat client. It probes the host
// terminal, loads the deployment configuration and the rest of the
// startup state, then replaces itself with the parlor-app UI tree.
// When startup cannot produce a usable client it prints a plain-text
// explanation that depends on nothing the loader failed to load.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/parlor-chat/parlor/app"
	"github.com/parlor-chat/parlor/lib/compat"
	"github.com/parlor-chat/parlor/lib/platform"
	"github.com/parlor-chat/parlor/lib/prefstore"
	"github.com/parlor-chat/parlor/lib/version"
	"github.com/parlor-chat/parlor/startup"
)

func main() {
	os.Exit(run())
}

// cliOptions is the parsed command line.
type cliOptions struct {
	configSource   string
	stateDir       string
	mobileGuideURL string
	logLevel       slog.Level
	deepLink       string
	showVersion    bool
	showHelp       bool
}

func run() int {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "parlor: %v\n", err)
		return 2
	}
	if opts.showHelp {
		printUsage()
		return 0
	}
	if opts.showVersion {
		fmt.Printf("parlor %s\n", version.Info())
		return 0
	}

	handler := newLogHandler(opts.logLevel)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// The capability probe runs before anything else. Its verdict
	// steers the compatibility gate during startup and picks the
	// fallback document when startup itself breaks.
	verdict := compat.Probe(compat.Detect(compat.RealEnv()), logger)

	plat, err := platform.Detect(platform.Options{
		Version:  version.Short(),
		StateDir: opts.stateDir,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("platform detection failed", "error", err)
		_ = startup.PresentFatal(os.Stderr, verdict.Passed)
		return 1
	}

	store, err := openPreferences(plat, logger)
	if err != nil {
		logger.Error("preference store unavailable", "error", err)
		_ = startup.PresentFatal(os.Stderr, verdict.Passed)
		return 1
	}
	defer func() { _ = store.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Declining the incompatible-host prompt cancels the startup
	// context. The flag distinguishes that deliberate exit from a
	// signal when both surface as context.Canceled.
	var declined atomic.Bool

	boot := startup.Bootstrap{
		Verdict:   verdict,
		DeepLink:  opts.deepLink,
		UserAgent: plat.UserAgent,
		GuideURL:  opts.mobileGuideURL,
		Store:     store,
		Load: func(ctx context.Context) (startup.Module, error) {
			module, err := app.Load(ctx, app.Options{
				Platform:   plat,
				Store:      store,
				Verdict:    verdict,
				ConfigPath: opts.configSource,
				LogHandler: handler,
				TermOutput: termenv.NewOutput(os.Stdout),
				Quit: func() {
					declined.Store(true)
					cancel()
				},
			})
			if err != nil {
				return nil, err
			}
			return module, nil
		},
		OpenURL: plat.OpenURL,
		Logger:  logger,
	}

	outcome, err := boot.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			if declined.Load() {
				logger.Info("exiting at the user's request")
				return 0
			}
			logger.Info("startup interrupted")
			return 130
		}
		// The loader itself is broken. Nothing richer than static
		// text can be trusted at this point.
		_ = startup.PresentFatal(os.Stderr, verdict.Passed)
		return 1
	}
	if outcome == startup.OutcomeFailed {
		// The failure was already shown through the client's own
		// error surface.
		return 1
	}
	return 0
}

// parseArgs parses flags and the optional deep-link argument.
func parseArgs(args []string) (*cliOptions, error) {
	opts := &cliOptions{}
	var logLevel string

	flagSet := pflag.NewFlagSet("parlor", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configSource, "config", "",
		"deployment config path or URL (default: the platform search list)")
	flagSet.StringVar(&opts.stateDir, "state-dir", "",
		"state directory (default: $XDG_STATE_HOME/parlor)")
	flagSet.StringVar(&opts.mobileGuideURL, "mobile-guide-url", "",
		"setup guide opened instead of starting on phone-like hosts")
	flagSet.StringVar(&logLevel, "log-level", "info",
		"minimum log level: debug, info, warn or error")
	flagSet.BoolVar(&opts.showVersion, "version", false,
		"print version information and exit")
	flagSet.BoolVarP(&opts.showHelp, "help", "h", false, "show this help")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	level, err := parseLogLevel(logLevel)
	if err != nil {
		return nil, err
	}
	opts.logLevel = level

	positional := flagSet.Args()
	switch len(positional) {
	case 0:
	case 1:
		opts.deepLink = positional[0]
	default:
		return nil, fmt.Errorf("at most one deep link argument, got %d", len(positional))
	}
	return opts, nil
}

func parseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
}

// newLogHandler picks the log format for stderr: human-readable text
// on a terminal, JSON when redirected.
func newLogHandler(level slog.Level) slog.Handler {
	handlerOpts := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	return slog.NewJSONHandler(os.Stderr, handlerOpts)
}

// openPreferences opens the durable preference store, falling back to
// an in-memory store when the state directory cannot be used. The
// fallback keeps startup alive; preferences then do not survive the
// process.
func openPreferences(plat *platform.Platform, logger *slog.Logger) (*prefstore.Store, error) {
	if err := os.MkdirAll(plat.StateDir, 0o700); err != nil {
		logger.Warn("state directory unusable, preferences will not persist",
			"dir", plat.StateDir, "error", err)
		return prefstore.OpenMemory(logger)
	}
	path := filepath.Join(plat.StateDir, "prefs.db")
	store, err := prefstore.Open(path, logger)
	if err != nil {
		logger.Warn("preference store unusable, preferences will not persist",
			"path", path, "error", err)
		return prefstore.OpenMemory(logger)
	}
	return store, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Parlor — a Matrix chat client for the terminal.

Usage:
  parlor [flags] [deep-link]

The optional deep-link argument restores a location inside the client,
for example:

  parlor 'parlor://chat#/room/!abc:example.org'

Flags:
      --config string             deployment config path or URL
      --state-dir string          state directory (default: $XDG_STATE_HOME/parlor)
      --mobile-guide-url string   setup guide opened on phone-like hosts
      --log-level string          minimum log level: debug, info, warn or error
      --version                   print version information and exit
  -h, --help                      show this help
`)
}
