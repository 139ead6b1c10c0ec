// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package startup

import (
	"github.com/parlor-chat/parlor/lib/config"
	"github.com/parlor-chat/parlor/lib/fragment"
	"github.com/parlor-chat/parlor/lib/future"
)

// Module is the deferred bootstrap module: the loaders and user
// surfaces the sequence drives. The production implementation lives in
// the app package; tests substitute their own.
//
// Each loader method is called at most once per Run and returns the
// future of a task it just started. The sequence holds the returned
// futures and decides per stage whether to settle or join them.
type Module interface {
	// Brand returns the product name for user-facing messages. Before
	// the deployment config resolves this is the built-in default.
	Brand() string

	// Translate renders a message key in the currently loaded
	// language. Until a language pack loads it returns English.
	Translate(key string, subs map[string]string) string

	// LogCaptureReady resolves once the in-memory log capture is
	// installed in front of the process logger.
	LogCaptureReady() *future.Future[future.Void]

	// PreparePlatform creates the writable directory layout and
	// freezes the config source list. It runs synchronously: the
	// config load that follows depends on it.
	PreparePlatform() error

	// LoadConfig starts the deployment config load.
	LoadConfig() *future.Future[*config.App]

	// LoadCryptoEngine starts verification of the end-to-end
	// encryption engine asset.
	LoadCryptoEngine() *future.Future[future.Void]

	// LoadComponents starts discovery of the external UI binary and
	// its component manifest.
	LoadComponents() *future.Future[future.Void]

	// LoadTheme starts the theme load.
	LoadTheme() *future.Future[future.Void]

	// LoadLanguage starts the language pack load.
	LoadLanguage() *future.Future[future.Void]

	// SetupLogStorage starts log persistence. Best effort by
	// contract: the sequence only ever settles it.
	SetupLogStorage() *future.Future[future.Void]

	// LoadApp hands the terminal to the external UI tree, forwarding
	// the deep-link fragment. On success it does not return.
	LoadApp(frag fragment.Fragment) error

	// ShowError renders a titled error surface. Lines are shown in
	// order under the title.
	ShowError(title string, lines []string) error

	// ShowIncompatibleHost warns the user about the host's missing
	// capabilities and arranges for onAccept to run exactly once if
	// they choose to continue. It must not block.
	ShowIncompatibleHost(onAccept func())
}

// Outcome is how a bootstrap sequence ended.
type Outcome int

const (
	// OutcomeFailed means an error surface was shown (or the failure
	// was returned to the caller for the fatal fallback).
	OutcomeFailed Outcome = iota

	// OutcomeRedirected means the host looked like a phone and the
	// user was sent to the mobile setup guide instead.
	OutcomeRedirected

	// OutcomeHandoff means control passed to the external UI tree.
	OutcomeHandoff
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeRedirected:
		return "redirected"
	case OutcomeHandoff:
		return "handoff"
	default:
		return "failed"
	}
}
