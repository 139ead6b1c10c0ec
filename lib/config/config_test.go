// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig drops a config document into a temp dir and returns its
// path.
func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadFromFileWithComments(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		// Deployment for the example.org house server.
		"default_homeserver_url": "https://matrix.example.org",
		"default_theme": "light",
		"features": {
			"voice_messages": true,
		},
	}`)

	app, err := Load(context.Background(), nil, []string{path}, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if app.DefaultHomeserverURL != "https://matrix.example.org" {
		t.Errorf("DefaultHomeserverURL = %q", app.DefaultHomeserverURL)
	}
	if app.DefaultTheme != "light" {
		t.Errorf("DefaultTheme = %q", app.DefaultTheme)
	}
	if app.Brand != "Parlor" {
		t.Errorf("Brand = %q, want default Parlor", app.Brand)
	}
	if !app.Features["voice_messages"] {
		t.Error("features not decoded")
	}
}

func TestLoadFirstExistingSourceWins(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.json")
	first := writeConfig(t, "first.json", `{"default_server_name": "first.example.org"}`)
	second := writeConfig(t, "second.json", `{"default_server_name": "second.example.org"}`)

	app, err := Load(context.Background(), nil, []string{missing, first, second}, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if app.DefaultServerName != "first.example.org" {
		t.Errorf("DefaultServerName = %q, want first.example.org", app.DefaultServerName)
	}
	if app.Source != first {
		t.Errorf("Source = %q, want %q", app.Source, first)
	}
}

func TestLoadFromHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/config.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"default_homeserver_url": "https://matrix.example.org", "brand": "Example Chat"}`))
	}))
	defer server.Close()

	app, err := Load(context.Background(), server.Client(), []string{server.URL + "/config.json"}, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if app.Brand != "Example Chat" {
		t.Errorf("Brand = %q", app.Brand)
	}
}

func TestLoadHTTPNotFoundFallsThrough(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	fallback := writeConfig(t, "config.json", `{"default_server_name": "example.org"}`)

	app, err := Load(context.Background(), server.Client(),
		[]string{server.URL + "/config.example.org.json", fallback}, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if app.DefaultServerName != "example.org" {
		t.Errorf("DefaultServerName = %q", app.DefaultServerName)
	}
}

func TestLoadHTTPServerErrorStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := Load(context.Background(), server.Client(), []string{server.URL + "/config.json"}, nil)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error = %v, want LoadError", err)
	}
	if loadErr.Source == "" {
		t.Error("LoadError should name the source")
	}
}

func TestLoadNoSource(t *testing.T) {
	_, err := Load(context.Background(), nil, []string{filepath.Join(t.TempDir(), "absent.json")}, nil)
	if !errors.Is(err, ErrNoSource) {
		t.Fatalf("error = %v, want ErrNoSource", err)
	}
}

func TestSyntaxErrorCarriesParserMessage(t *testing.T) {
	path := writeConfig(t, "config.json", `{"default_server_name": example.org}`)

	_, err := Load(context.Background(), nil, []string{path}, nil)
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("error = %v, want SyntaxError", err)
	}
	if syntaxErr.Detail == "" {
		t.Error("Detail should carry the parser message")
	}
	if syntaxErr.Offset <= 0 {
		t.Errorf("Offset = %d, want position in the document", syntaxErr.Offset)
	}
	if !strings.Contains(err.Error(), path) {
		t.Error("error should name the source")
	}
}

func TestWrongTypeIsLoadErrorNotSyntaxError(t *testing.T) {
	path := writeConfig(t, "config.json", `{"brand": 42, "default_server_name": "example.org"}`)

	_, err := Load(context.Background(), nil, []string{path}, nil)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error = %v, want LoadError", err)
	}
	var syntaxErr *SyntaxError
	if errors.As(err, &syntaxErr) {
		t.Fatal("type mismatch must not classify as SyntaxError")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *App {
		app := Default()
		app.DefaultHomeserverURL = "https://matrix.example.org"
		return app
	}

	tests := []struct {
		name     string
		mutate   func(*App)
		wantPart string
	}{
		{"missing server", func(a *App) { a.DefaultHomeserverURL = "" }, "default_homeserver_url or default_server_name"},
		{"bad homeserver scheme", func(a *App) { a.DefaultHomeserverURL = "ftp://example.org" }, "not an http(s) URL"},
		{"empty brand", func(a *App) { a.Brand = "" }, "brand"},
		{"bad recipient", func(a *App) { a.ReportRecipient = "ssh-ed25519 AAAA" }, "age public key"},
		{"short digest", func(a *App) { a.EngineDigest = "abcd" }, "hex digest"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			app := valid()
			test.mutate(app)
			err := app.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), test.wantPart) {
				t.Errorf("Validate() = %v, want mention of %q", err, test.wantPart)
			}
		})
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
