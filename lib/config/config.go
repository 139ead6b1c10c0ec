// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the client's deployment configuration.
//
// Deployments describe themselves in a JSON document (comments and
// trailing commas tolerated) served next to the client or installed on
// disk. Sources are tried in order; the first one that exists wins.
// Parse failures are split into two kinds the startup sequence treats
// differently: SyntaxError carries the raw parser message for display,
// every other failure is a LoadError behind a generic message.
package config

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// App is the deployment configuration. Unknown keys are preserved by
// the deployment for the app tree's benefit and skipped here.
type App struct {
	// Brand is the product name shown in user-facing text.
	Brand string `json:"brand"`

	// DefaultHomeserverURL is the homeserver offered on the login
	// screen. At least one of it and DefaultServerName is required.
	DefaultHomeserverURL string `json:"default_homeserver_url"`

	// DefaultServerName is the server name resolved via well-known
	// discovery when DefaultHomeserverURL is not set.
	DefaultServerName string `json:"default_server_name"`

	// DefaultTheme names the theme used before the user picks one.
	// Empty means automatic dark/light selection.
	DefaultTheme string `json:"default_theme"`

	// DefaultLanguage overrides the host locale for the first run.
	DefaultLanguage string `json:"default_language"`

	// MobileGuideURL overrides the built-in mobile setup guide link.
	MobileGuideURL string `json:"mobile_guide_url"`

	// ReportRecipient is an age public key. When set, rotated log
	// archives are encrypted to it so they can travel with bug
	// reports.
	ReportRecipient string `json:"report_recipient"`

	// EngineDigest pins the expected BLAKE3 digest of the encryption
	// engine asset, overriding the digest file shipped beside it.
	EngineDigest string `json:"engine_digest"`

	// Features toggles experimental behavior by name.
	Features map[string]bool `json:"features"`

	// Source records where the configuration came from. Load sets it;
	// it is not part of the document.
	Source string `json:"-"`
}

// Default returns the configuration used as the base for every source.
func Default() *App {
	return &App{
		Brand:        "Parlor",
		DefaultTheme: "auto",
		Features:     map[string]bool{},
	}
}

// ErrNoSource reports that no configured source existed.
var ErrNoSource = errors.New("no configuration source available")

// SyntaxError reports a source that exists but is not valid JSON. The
// Detail string is the parser's own message and is shown to the user
// verbatim.
type SyntaxError struct {
	Source string
	Offset int64
	Detail string
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("config: %s: invalid JSON at byte %d: %s", e.Source, e.Offset, e.Detail)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// LoadError reports any configuration failure other than bad JSON
// syntax: unreachable or unreadable sources, structurally wrong
// documents, failed validation, or no source at all.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load tries each source in order and parses the first that exists.
// Sources are file paths or http(s) URLs. A missing file or a 404 means
// "try the next source"; anything else stops the walk. client is used
// for URL sources (nil means http.DefaultClient).
func Load(ctx context.Context, client *http.Client, sources []string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}

	for _, source := range sources {
		data, found, err := fetch(ctx, client, source)
		if err != nil {
			return nil, &LoadError{Source: source, Err: err}
		}
		if !found {
			logger.Debug("configuration source absent", "source", source)
			continue
		}

		app, err := parse(source, data)
		if err != nil {
			return nil, err
		}
		app.Source = source
		logger.Info("configuration loaded", "source", source, "brand", app.Brand)
		return app, nil
	}

	return nil, &LoadError{Err: ErrNoSource}
}

// parse decodes one source's bytes over the defaults and validates the
// result.
func parse(source string, data []byte) (*App, error) {
	app := Default()

	// Comment stripping preserves byte offsets, so syntax errors still
	// point at the author's document.
	stripped := jsonc.ToJSON(data)
	if err := json.Unmarshal(stripped, app); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &SyntaxError{
				Source: source,
				Offset: syntaxErr.Offset,
				Detail: syntaxErr.Error(),
				Err:    err,
			}
		}
		return nil, &LoadError{Source: source, Err: err}
	}

	if err := app.Validate(); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return app, nil
}

// Validate checks the fields the startup sequence depends on.
func (a *App) Validate() error {
	var errs []error

	if a.Brand == "" {
		errs = append(errs, errors.New("brand must not be empty"))
	}
	if a.DefaultHomeserverURL == "" && a.DefaultServerName == "" {
		errs = append(errs, errors.New("one of default_homeserver_url or default_server_name is required"))
	}
	if a.DefaultHomeserverURL != "" {
		u, err := url.Parse(a.DefaultHomeserverURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("default_homeserver_url %q is not an http(s) URL", a.DefaultHomeserverURL))
		}
	}
	if a.MobileGuideURL != "" {
		if _, err := url.Parse(a.MobileGuideURL); err != nil {
			errs = append(errs, fmt.Errorf("mobile_guide_url: %w", err))
		}
	}
	if a.ReportRecipient != "" && !strings.HasPrefix(a.ReportRecipient, "age1") {
		errs = append(errs, fmt.Errorf("report_recipient %q is not an age public key", a.ReportRecipient))
	}
	if a.EngineDigest != "" {
		raw, err := hex.DecodeString(a.EngineDigest)
		if err != nil || len(raw) != 32 {
			errs = append(errs, fmt.Errorf("engine_digest %q is not a 64-character hex digest", a.EngineDigest))
		}
	}

	return errors.Join(errs...)
}

// fetch reads one source. found is false when the source does not
// exist (missing file, HTTP 404/410), which callers treat as "try the
// next one".
func fetch(ctx context.Context, client *http.Client, source string) (data []byte, found bool, err error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, false, err
		}
		response, err := client.Do(request)
		if err != nil {
			return nil, false, err
		}
		defer response.Body.Close()

		switch {
		case response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusGone:
			return nil, false, nil
		case response.StatusCode != http.StatusOK:
			return nil, false, fmt.Errorf("unexpected status %s", response.Status)
		}

		body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
		if err != nil {
			return nil, false, err
		}
		return body, true, nil
	}

	data, err = os.ReadFile(source)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
