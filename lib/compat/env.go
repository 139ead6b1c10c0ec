// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package compat

import (
	"fmt"
	"os"
	"sort"

	"golang.org/x/term"
)

// Env is the host state feature tests read: environment variables and
// the terminal-ness of the standard streams. Tests receive an Env
// instead of touching the process state so the whole table can run
// against a synthetic host.
//
// Env implements termenv.Environ, so color detection can run against
// the same snapshot.
type Env struct {
	vars      map[string]string
	stdinTTY  bool
	stdoutTTY bool
}

// RealEnv snapshots the current process environment.
func RealEnv() Env {
	vars := make(map[string]string)
	for _, entry := range os.Environ() {
		for i := 0; i < len(entry); i++ {
			if entry[i] == '=' {
				vars[entry[:i]] = entry[i+1:]
				break
			}
		}
	}
	return Env{
		vars:      vars,
		stdinTTY:  term.IsTerminal(int(os.Stdin.Fd())),
		stdoutTTY: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// FakeEnv builds a synthetic host environment for tests.
func FakeEnv(vars map[string]string, stdinTTY, stdoutTTY bool) Env {
	if vars == nil {
		vars = map[string]string{}
	}
	return Env{vars: vars, stdinTTY: stdinTTY, stdoutTTY: stdoutTTY}
}

// Getenv returns the named variable, or "" when unset.
func (e Env) Getenv(key string) string { return e.vars[key] }

// Environ returns the environment as KEY=value pairs, sorted for
// determinism.
func (e Env) Environ() []string {
	entries := make([]string, 0, len(e.vars))
	for key, value := range e.vars {
		entries = append(entries, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(entries)
	return entries
}
