// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package app is the deferred bootstrap module: the production
// implementation of startup.Module.
//
// Load wires the log capture into the process default logger and
// returns a Module whose loader methods start the real work: reading
// the deployment config, verifying the encryption engine, locating the
// companion parlor-app binary, and loading theme and language packs.
// The startup sequence decides when each loader runs and how its
// failure is treated; this package only does the loading.
package app

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/muesli/termenv"

	"github.com/parlor-chat/parlor/lib/clock"
	"github.com/parlor-chat/parlor/lib/compat"
	"github.com/parlor-chat/parlor/lib/config"
	"github.com/parlor-chat/parlor/lib/cryptoengine"
	"github.com/parlor-chat/parlor/lib/future"
	"github.com/parlor-chat/parlor/lib/i18n"
	"github.com/parlor-chat/parlor/lib/logstore"
	"github.com/parlor-chat/parlor/lib/platform"
	"github.com/parlor-chat/parlor/lib/prefstore"
	"github.com/parlor-chat/parlor/lib/theme"
)

// Loader failure messages. The keys are canonical English phrases with
// entries in every language pack.
const (
	msgEngineFailed     = "Failed to load the encryption engine."
	msgComponentsFailed = "Failed to load the interface components."
	msgThemeFailed      = "Failed to load the theme."
	msgLanguageFailed   = "Failed to load the language pack."
	msgMissingCaps      = "Your terminal is missing capabilities this client needs:"
	msgContinuePrompt   = "Press y to continue anyway, or any other key to quit."
)

// Options configures Load. Platform and Store are required; everything
// else defaults to the real process environment.
type Options struct {
	// Platform describes the host and owns the directory layout.
	Platform *platform.Platform

	// Store persists user preferences.
	Store *prefstore.Store

	// Verdict is the host capability probe result; the
	// incompatible-host prompt lists its gaps.
	Verdict compat.Verdict

	// ConfigPath pins the deployment configuration to one explicit
	// source instead of the platform's search list.
	ConfigPath string

	// LogHandler receives log records after the capture ring. Nil
	// takes the handler of the current default logger.
	LogHandler slog.Handler

	// Input answers the incompatible-host prompt. Nil means os.Stdin.
	Input io.Reader

	// Output receives the module's error and prompt surfaces. Nil
	// means os.Stderr.
	Output io.Writer

	// TermOutput answers terminal background queries for automatic
	// theme selection. Nil selects the dark theme.
	TermOutput *termenv.Output

	// Clock stamps captured log records. Nil means the real clock.
	Clock clock.Clock

	// Quit asks the process to shut down; the incompatible-host prompt
	// invokes it when the user declines. Nil means a decline only
	// logs.
	Quit func()
}

// Module implements startup.Module over the real host.
type Module struct {
	// ctx bounds the loader tasks. It is the process lifetime context;
	// tasks started by the loaders have no narrower owner.
	ctx context.Context

	platform   *platform.Platform
	store      *prefstore.Store
	verdict    compat.Verdict
	capture    *logstore.Capture
	logger     *slog.Logger
	configPath string

	input      *bufio.Reader
	output     io.Writer
	termOutput *termenv.Output
	clk        clock.Clock
	quit       func()

	// execProcess and environ are replaced by tests; the defaults
	// replace the process image.
	execProcess func(binary string, argv []string, env []string) error
	environ     func() []string

	captureReady *future.Future[future.Void]
	gateOnce     sync.Once

	mu         sync.Mutex
	cfg        *config.App
	sources    []string
	theme      *theme.Theme
	translator *i18n.Translator
	engine     *cryptoengine.Engine
	appBinary  string
	components *componentIndex
	logStore   *logstore.Store
}

// Load builds the bootstrap module and installs the log capture as the
// process default logger. Everything before this call is only seen by
// the surrounding handler; everything after lands in the capture ring
// and, once SetupLogStorage ran, on disk.
func Load(ctx context.Context, opts Options) (*Module, error) {
	if opts.Platform == nil {
		return nil, errors.New("app: Options.Platform is required")
	}
	if opts.Store == nil {
		return nil, errors.New("app: Options.Store is required")
	}

	handler := opts.LogHandler
	if handler == nil {
		handler = slog.Default().Handler()
	}
	capture := logstore.NewCapture(handler, opts.Clock, 0)
	slog.SetDefault(slog.New(capture))

	input := opts.Input
	if input == nil {
		input = os.Stdin
	}
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	m := &Module{
		ctx:          ctx,
		platform:     opts.Platform,
		store:        opts.Store,
		verdict:      opts.Verdict,
		capture:      capture,
		logger:       slog.With("component", "app"),
		configPath:   opts.ConfigPath,
		input:        bufio.NewReader(input),
		output:       output,
		termOutput:   opts.TermOutput,
		clk:          opts.Clock,
		quit:         opts.Quit,
		execProcess:  platform.Exec,
		environ:      os.Environ,
		captureReady: future.Resolved("log-capture", future.Void{}),
	}
	m.logger.Info("bootstrap module loaded",
		"session", capture.SessionID(),
		"host", opts.Platform.Name,
	)
	return m, nil
}

// LogCaptureReady reports the capture installation Load performed.
func (m *Module) LogCaptureReady() *future.Future[future.Void] {
	return m.captureReady
}

// PreparePlatform creates the writable directory layout and freezes
// the configuration source list.
func (m *Module) PreparePlatform() error {
	if err := m.platform.Prepare(); err != nil {
		return err
	}
	sources := m.platform.ConfigSources(m.configPath)
	m.mu.Lock()
	m.sources = sources
	m.mu.Unlock()
	m.logger.Debug("platform prepared",
		"state_dir", m.platform.StateDir,
		"config_sources", len(sources),
	)
	return nil
}

// LoadConfig starts reading the deployment configuration from the
// frozen source list.
func (m *Module) LoadConfig() *future.Future[*config.App] {
	return future.Go("config", func() (*config.App, error) {
		m.mu.Lock()
		sources := m.sources
		m.mu.Unlock()

		cfg, err := config.Load(m.ctx, nil, sources, m.logger)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.cfg = cfg
		m.mu.Unlock()
		return cfg, nil
	})
}

// LoadCryptoEngine starts verifying the encryption engine asset
// against its shipped digest manifest. A deployment digest pin is
// enforced later, at the handoff, because the engine load overlaps the
// config load.
func (m *Module) LoadCryptoEngine() *future.Future[future.Void] {
	return future.Do("crypto-engine", func() error {
		path, err := m.platform.EnginePath(cryptoengine.AssetName)
		if err != nil {
			return i18n.NewUserError(m.Translate(msgEngineFailed, nil), err)
		}
		engine, err := cryptoengine.Load(path, "")
		if err != nil {
			return i18n.NewUserError(m.Translate(msgEngineFailed, nil), err)
		}
		m.mu.Lock()
		m.engine = engine
		m.mu.Unlock()
		m.logger.Info("encryption engine verified",
			"path", engine.Path,
			"size", engine.Size,
		)
		return nil
	})
}

// LoadTheme starts loading the color theme: the stored preference
// first, then the deployment default, then automatic selection.
func (m *Module) LoadTheme() *future.Future[future.Void] {
	return future.Do("theme", func() error {
		name := ""
		if stored, found, err := m.store.Theme(m.ctx); err != nil {
			m.logger.Warn("could not read theme preference", "error", err)
		} else if found {
			name = stored
		}
		if name == "" {
			m.mu.Lock()
			if m.cfg != nil {
				name = m.cfg.DefaultTheme
			}
			m.mu.Unlock()
		}

		loaded, err := theme.Load(name, m.termOutput)
		if err != nil {
			return i18n.NewUserError(m.Translate(msgThemeFailed, nil), err)
		}
		m.mu.Lock()
		m.theme = loaded
		m.mu.Unlock()
		m.logger.Info("theme loaded", "theme", loaded.Name)
		return nil
	})
}

// LoadLanguage starts loading the language pack: the stored preference
// first, then the deployment default, then the host locale.
func (m *Module) LoadLanguage() *future.Future[future.Void] {
	return future.Do("language", func() error {
		var preferences []string
		if stored, found, err := m.store.Language(m.ctx); err != nil {
			m.logger.Warn("could not read language preference", "error", err)
		} else if found {
			preferences = append(preferences, stored)
		}
		m.mu.Lock()
		if m.cfg != nil && m.cfg.DefaultLanguage != "" {
			preferences = append(preferences, m.cfg.DefaultLanguage)
		}
		m.mu.Unlock()
		if locale := m.platform.Locale(); locale != "" {
			preferences = append(preferences, locale)
		}

		translator, err := i18n.Load(preferences...)
		if err != nil {
			return i18n.NewUserError(m.Translate(msgLanguageFailed, nil), err)
		}
		m.mu.Lock()
		m.translator = translator
		m.mu.Unlock()
		m.logger.Info("language pack loaded", "language", translator.Tag().String())
		return nil
	})
}

// SetupLogStorage starts opening the durable log store under the
// platform log directory and attaches it to the capture. The sequence
// only ever settles this task; a failure costs persistence, not the
// session.
func (m *Module) SetupLogStorage() *future.Future[future.Void] {
	return future.Do("log-storage", func() error {
		m.mu.Lock()
		recipient := ""
		if m.cfg != nil {
			recipient = m.cfg.ReportRecipient
		}
		m.mu.Unlock()

		store, err := logstore.Open(m.platform.LogDir, logstore.Options{
			Recipient: recipient,
			Clock:     m.clk,
			Logger:    m.logger,
		})
		if err != nil {
			return err
		}
		m.capture.AttachStore(store)
		m.mu.Lock()
		m.logStore = store
		m.mu.Unlock()
		return nil
	})
}

// Brand returns the product name for user-facing text: the deployment
// override when one loaded, the built-in name otherwise.
func (m *Module) Brand() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg != nil && m.cfg.Brand != "" {
		return m.cfg.Brand
	}
	return "Parlor"
}

// Translate renders key in the loaded language. Until a pack loads,
// keys pass through as their canonical English phrasing.
func (m *Module) Translate(key string, subs map[string]string) string {
	m.mu.Lock()
	translator := m.translator
	m.mu.Unlock()
	return translator.T(key, subs)
}
