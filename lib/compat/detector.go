// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package compat decides whether the host terminal can run the client.
//
// Detect builds a table of named capability tests over a snapshot of
// the host environment; Probe evaluates the capabilities the client
// requires and returns an immutable Verdict. The verdict feeds the
// compatibility gate during startup and the fallback error page when
// startup itself fails.
package compat

import (
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// Test reports whether one capability is present in the given host
// environment. Tests must be pure reads: they run at most once per
// Detector and their results are cached.
type Test func(env Env) bool

// Detector is a registry of named capability tests. Additional tests
// can be registered before evaluation; results are memoized after the
// first lookup of each name.
type Detector struct {
	env     Env
	order   []string
	tests   map[string]Test
	results map[string]bool
}

// New returns a Detector with an empty table bound to env. Detect is
// the production constructor; New exists for tests that assemble their
// own table.
func New(env Env) *Detector {
	return &Detector{
		env:     env,
		tests:   make(map[string]Test),
		results: make(map[string]bool),
	}
}

// Detect builds the built-in capability table over env.
func Detect(env Env) *Detector {
	d := New(env)
	d.Register("tty-stdin", func(env Env) bool { return env.stdinTTY })
	d.Register("tty-stdout", func(env Env) bool { return env.stdoutTTY })
	d.Register("terminfo", hasUsableTerm)
	d.Register("utf8-locale", hasUTF8Locale)
	d.Register("color-256", func(env Env) bool {
		p := colorProfile(env)
		return p == termenv.TrueColor || p == termenv.ANSI256
	})
	return d
}

// Register adds a named test, replacing any previous test with the same
// name. Registration order is preserved for new names.
func (d *Detector) Register(name string, test Test) {
	if _, exists := d.tests[name]; !exists {
		d.order = append(d.order, name)
	}
	d.tests[name] = test
	delete(d.results, name)
}

// Result evaluates the named test (once; later calls are served from
// cache). known is false when no test with that name was ever
// registered, which the prober treats as a wiring error rather than a
// missing capability.
func (d *Detector) Result(name string) (supported, known bool) {
	if cached, ok := d.results[name]; ok {
		return cached, true
	}
	test, ok := d.tests[name]
	if !ok {
		return false, false
	}
	value := test(d.env)
	d.results[name] = value
	return value, true
}

// Names returns the registered test names in registration order.
func (d *Detector) Names() []string {
	names := make([]string, len(d.order))
	copy(names, d.order)
	return names
}

func hasUsableTerm(env Env) bool {
	t := env.Getenv("TERM")
	return t != "" && t != "dumb"
}

func hasUTF8Locale(env Env) bool {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		value := strings.ToUpper(env.Getenv(key))
		if value == "" {
			continue
		}
		return strings.Contains(value, "UTF-8") || strings.Contains(value, "UTF8")
	}
	return false
}

// colorProfile computes the terminal's color support from the
// environment snapshot alone. The tty question is answered by its own
// tests, so the termenv output is forced to assume one.
func colorProfile(env Env) termenv.Profile {
	output := termenv.NewOutput(io.Discard, termenv.WithEnvironment(env), termenv.WithTTY(true))
	return output.ColorProfile()
}
