// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package platform resolves what kind of host the client is running on
// and where its files live: XDG directory layout, deployment config
// sources, the user-agent string fed to the phone-detection check, and
// discovery of the sibling binaries and assets that ship with the
// client.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Options configures platform detection. The zero value detects the
// real host.
type Options struct {
	// Brand and Version feed the user-agent string. Defaults: "Parlor"
	// and "dev".
	Brand   string
	Version string

	// StateDir overrides the XDG state directory (the --state-dir
	// flag). Logs go under it either way.
	StateDir string

	// Getenv overrides environment access for tests. Defaults to
	// os.Getenv.
	Getenv func(string) string

	// Logger receives discovery messages. If nil, slog.Default().
	Logger *slog.Logger
}

// Platform is the resolved host description. Fields are fixed at
// Detect time; methods that touch the filesystem are safe to call
// repeatedly.
type Platform struct {
	// Name identifies the host OS, with the container variant appended
	// when one is detected ("linux", "linux/termux", "linux/ish").
	Name string

	// UserAgent identifies the host to the phone-likeness check and to
	// the handed-off UI process. Shaped like a browser UA string:
	// brand/version followed by a parenthesized host description.
	UserAgent string

	// StateDir, CacheDir and LogDir are the per-user directories this
	// client writes to. LogDir is always under StateDir.
	StateDir string
	CacheDir string
	LogDir   string

	configDir string
	execDir   string
	getenv    func(string) string
	logger    *slog.Logger

	// runCommand executes external opener commands. Swapped in tests.
	runCommand func(ctx context.Context, name string, args ...string) error
}

// Detect resolves the host platform. It fails only when no usable
// directory layout can be derived (no HOME and no explicit state
// directory).
func Detect(opts Options) (*Platform, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	brand := opts.Brand
	if brand == "" {
		brand = "Parlor"
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	home := getenv("HOME")
	if home == "" && opts.StateDir == "" {
		return nil, fmt.Errorf("platform: HOME is not set and no state directory was given")
	}

	p := &Platform{
		getenv:     getenv,
		logger:     logger,
		runCommand: runCommand,
	}

	sysname, release, machine := hostTriple()
	p.Name = runtime.GOOS
	hints := make([]string, 0, 2)
	if termux := getenv("TERMUX_VERSION"); termux != "" {
		p.Name += "/termux"
		hints = append(hints, "Termux/"+termux)
	} else if getenv("ANDROID_ROOT") != "" {
		p.Name += "/android"
		hints = append(hints, "Android")
	}
	if strings.Contains(strings.ToLower(release), "ish") {
		p.Name += "/ish"
	}
	if term := getenv("TERM"); term != "" {
		hints = append(hints, "term="+term)
	}

	description := fmt.Sprintf("%s %s; %s", sysname, release, machine)
	if len(hints) > 0 {
		description += "; " + strings.Join(hints, "; ")
	}
	p.UserAgent = fmt.Sprintf("%s/%s (%s)", brand, version, description)

	p.StateDir = opts.StateDir
	if p.StateDir == "" {
		p.StateDir = filepath.Join(xdgDir(getenv, "XDG_STATE_HOME", home, ".local", "state"), "parlor")
	}
	p.LogDir = filepath.Join(p.StateDir, "logs")
	p.CacheDir = filepath.Join(xdgDir(getenv, "XDG_CACHE_HOME", home, ".cache"), "parlor")
	p.configDir = filepath.Join(xdgDir(getenv, "XDG_CONFIG_HOME", home, ".config"), "parlor")

	if executable, err := os.Executable(); err == nil {
		p.execDir = filepath.Dir(executable)
	}

	logger.Debug("platform detected",
		"name", p.Name,
		"user_agent", p.UserAgent,
		"state_dir", p.StateDir,
	)
	return p, nil
}

// xdgDir resolves one XDG base directory: the environment variable if
// set, otherwise the conventional path under home.
func xdgDir(getenv func(string) string, envVar, home string, fallback ...string) string {
	if dir := getenv(envVar); dir != "" {
		return dir
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// ConfigSources returns the ordered deployment config sources. An
// explicit path or URL pins the config: nothing else is consulted, so
// a typo fails loudly instead of silently falling back.
func (p *Platform) ConfigSources(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	return []string{
		filepath.Join(p.configDir, "config.json"),
		"/etc/parlor/config.json",
	}
}

// Locale returns the host's language preference as a BCP-47 tag,
// derived from the POSIX locale variables in their precedence order.
// Empty when the host declares none, or declares the C locale.
func (p *Platform) Locale() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if value := p.getenv(name); value != "" {
			return localeToTag(value)
		}
	}
	return ""
}

// localeToTag converts a POSIX locale name like "de_DE.UTF-8" to a
// BCP-47 tag like "de-DE".
func localeToTag(locale string) string {
	locale, _, _ = strings.Cut(locale, ".")
	locale, _, _ = strings.Cut(locale, "@")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(locale, "_", "-")
}

// Prepare creates the writable directory layout. Idempotent.
func (p *Platform) Prepare() error {
	if err := os.MkdirAll(p.StateDir, 0o700); err != nil {
		return fmt.Errorf("platform: creating state directory %s: %w", p.StateDir, err)
	}
	if err := os.MkdirAll(p.LogDir, 0o700); err != nil {
		return fmt.Errorf("platform: creating log directory %s: %w", p.LogDir, err)
	}
	if err := os.MkdirAll(p.CacheDir, 0o755); err != nil {
		return fmt.Errorf("platform: creating cache directory %s: %w", p.CacheDir, err)
	}
	return nil
}

// OpenURL opens rawURL with the host's opener: $BROWSER when set, the
// Termux opener inside Termux, "open" on macOS, xdg-open elsewhere.
func (p *Platform) OpenURL(ctx context.Context, rawURL string) error {
	name, args := p.openerCommand()
	p.logger.Info("opening URL on host", "url", rawURL, "opener", name)
	if err := p.runCommand(ctx, name, append(args, rawURL)...); err != nil {
		return fmt.Errorf("platform: opening %s with %s: %w", rawURL, name, err)
	}
	return nil
}

// openerCommand picks the URL opener for this host.
func (p *Platform) openerCommand() (name string, args []string) {
	if browser := p.getenv("BROWSER"); browser != "" {
		return browser, nil
	}
	if p.getenv("TERMUX_VERSION") != "" {
		return "termux-open-url", nil
	}
	if runtime.GOOS == "darwin" {
		return "open", nil
	}
	return "xdg-open", nil
}

// runCommand is the real opener execution. Output is only interesting
// when the opener fails.
func runCommand(ctx context.Context, name string, args ...string) error {
	command := exec.CommandContext(ctx, name, args...)
	output, err := command.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(output))
		if trimmed != "" {
			return fmt.Errorf("%w: %s", err, trimmed)
		}
		return err
	}
	return nil
}

// FindBinary locates a binary that ships with the client: first next
// to the parlor binary (the co-deployment layout), then on PATH. The
// result is validated as a regular executable file.
func (p *Platform) FindBinary(name string) (string, error) {
	if p.execDir != "" {
		candidate := filepath.Join(p.execDir, name)
		if info, err := os.Stat(candidate); err == nil {
			if err := validateBinary(candidate, info); err != nil {
				return "", err
			}
			p.logger.Debug("found sibling binary", "name", name, "path", candidate)
			return candidate, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("platform: %s not found (checked next to the parlor binary and PATH)", name)
	}
	p.logger.Debug("found binary on PATH", "name", name, "path", path)
	return path, nil
}

func validateBinary(path string, info os.FileInfo) error {
	if !info.Mode().IsRegular() {
		return fmt.Errorf("platform: %s is not a regular file (mode %s)", path, info.Mode())
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("platform: %s is not executable (mode %s)", path, info.Mode())
	}
	return nil
}

// EnginePath locates the end-to-end encryption engine asset:
// $PARLOR_E2EE_ENGINE when set, then next to the parlor binary, then
// the system asset directories.
func (p *Platform) EnginePath(assetName string) (string, error) {
	if override := p.getenv("PARLOR_E2EE_ENGINE"); override != "" {
		return override, nil
	}

	candidates := make([]string, 0, 3)
	if p.execDir != "" {
		candidates = append(candidates, filepath.Join(p.execDir, assetName))
	}
	candidates = append(candidates,
		filepath.Join("/usr/lib/parlor", assetName),
		filepath.Join("/usr/local/lib/parlor", assetName),
	)

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("platform: engine asset %s not found (checked %s)",
		assetName, strings.Join(candidates, ", "))
}
