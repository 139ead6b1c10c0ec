// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package compat

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
)

// Verdict is the outcome of a capability probe. It is computed once at
// process start and never mutated afterward.
type Verdict struct {
	// Passed is true only when every required capability is present.
	Passed bool

	// Missing lists the required capabilities that are absent, in
	// evaluation order. Empty when Passed. When the probe itself was
	// misconfigured, Missing holds only the gaps found before the bad
	// entry.
	Missing []string
}

// requiredFeatures is evaluated in order. The first five come from the
// built-in table; the rest are registered by Probe itself.
var requiredFeatures = []string{
	"tty-stdin",
	"tty-stdout",
	"terminfo",
	"utf8-locale",
	"color-256",
	"color-truecolor",
	"hyperlinks-osc8",
	"clipboard-osc52",
}

// Probe registers the capability tests the built-in table does not
// cover, evaluates every required capability, and returns the Verdict.
//
// A required name with no registered test means the probe itself is
// broken, not the host: evaluation stops at that name, the verdict
// fails, and the diagnostic is an Error rather than the per-capability
// Warn. A nil detector fails the same way.
func Probe(detector *Detector, logger *slog.Logger) Verdict {
	if logger == nil {
		logger = slog.Default()
	}
	if detector == nil {
		logger.Error("capability detection unavailable, treating host as unsupported")
		return Verdict{}
	}

	detector.Register("color-truecolor", func(env Env) bool {
		return colorProfile(env) == termenv.TrueColor
	})
	detector.Register("hyperlinks-osc8", supportsHyperlinks)
	detector.Register("clipboard-osc52", supportsOSC52)

	verdict := Verdict{Passed: true}
	for _, name := range requiredFeatures {
		supported, known := detector.Result(name)
		if !known {
			logger.Error("capability probe misconfigured: no test registered", "feature", name)
			verdict.Passed = false
			return verdict
		}
		if !supported {
			logger.Warn("host capability missing", "feature", name)
			verdict.Missing = append(verdict.Missing, name)
			verdict.Passed = false
		}
	}

	logger.Info("host capability check complete", "passed", verdict.Passed, "missing", verdict.Missing)
	return verdict
}

// supportsHyperlinks guesses OSC 8 hyperlink support from terminal
// identity variables. There is no query sequence for this, so the list
// mirrors what the major emulators advertise.
func supportsHyperlinks(env Env) bool {
	switch env.Getenv("TERM_PROGRAM") {
	case "iTerm.app", "WezTerm", "ghostty", "Hyper", "vscode":
		return true
	}
	term := env.Getenv("TERM")
	for _, known := range []string{"xterm-kitty", "xterm-ghostty", "wezterm", "foot", "foot-extra", "contour"} {
		if term == known {
			return true
		}
	}
	if version, err := strconv.Atoi(env.Getenv("VTE_VERSION")); err == nil {
		return version >= 5000
	}
	return false
}

// supportsOSC52 guesses OSC 52 clipboard support. Multiplexers forward
// it, so a tmux session counts regardless of the outer terminal.
func supportsOSC52(env Env) bool {
	if env.Getenv("TMUX") != "" {
		return true
	}
	switch env.Getenv("TERM_PROGRAM") {
	case "iTerm.app", "WezTerm", "ghostty":
		return true
	}
	term := env.Getenv("TERM")
	for _, prefix := range []string{"xterm-kitty", "xterm-ghostty", "wezterm", "foot", "alacritty"} {
		if strings.HasPrefix(term, prefix) {
			return true
		}
	}
	return false
}
