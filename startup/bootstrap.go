// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package startup sequences the client bootstrap: capability gate,
// deployment config, theme, language, encryption engine, and the
// handoff to the external UI tree.
//
// The sequence has two nested failure domains. Loading the deferred
// module can fail before any user surface exists; that error returns
// to the caller, which falls back to the static fatal page. Everything
// after the module loads is caught once, classified, localized, and
// shown through the module's own error surface.
package startup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/parlor-chat/parlor/lib/compat"
	"github.com/parlor-chat/parlor/lib/config"
	"github.com/parlor-chat/parlor/lib/fragment"
	"github.com/parlor-chat/parlor/lib/future"
	"github.com/parlor-chat/parlor/lib/i18n"
	"github.com/parlor-chat/parlor/lib/prefstore"
)

// Message keys for the sequence's own error surfaces. These are the
// canonical English phrases; the language packs translate them.
const (
	msgMisconfigured   = "%(brand)s is misconfigured"
	msgUnableToStart   = "Unable to start %(brand)s"
	msgInvalidJSON     = "The configuration file contains invalid JSON."
	msgConfigLoad      = "The configuration could not be loaded. Check the deployment and try again."
	msgUnexpectedError = "Unexpected error preparing the chat client. See the logs for details."
)

// defaultGuideURL is where phone-like hosts are pointed for the native
// app. Deployments override it via config or flag.
const defaultGuideURL = "https://parlor.chat/mobile"

// defaultMobilePattern recognizes phone-like hosts from the platform
// user-agent string: Android terminals (Termux), iOS shells (iSH), and
// anything else that self-identifies as a phone OS.
var defaultMobilePattern = regexp.MustCompile(`(?i)\b(android|termux|iphone|ipad|ios|ish)\b`)

// Bootstrap is the explicit bootstrap context: everything the sequence
// reads lives here rather than in process globals.
type Bootstrap struct {
	// Verdict is the host capability probe result, computed before
	// anything else ran.
	Verdict compat.Verdict

	// DeepLink is the raw deep-link argument, possibly empty.
	DeepLink string

	// UserAgent identifies the host for the phone-likeness check.
	UserAgent string

	// MobilePattern overrides the phone recognition pattern. Nil uses
	// the default.
	MobilePattern *regexp.Regexp

	// GuideURL overrides where phone-like hosts are sent. Empty uses
	// the default.
	GuideURL string

	// Store persists the acknowledgment flag and the redirect opt-out.
	Store *prefstore.Store

	// Load imports the deferred bootstrap module. Its failure is the
	// outer failure domain: the caller presents the static fatal page.
	Load func(ctx context.Context) (Module, error)

	// OpenURL sends the user to an external URL (the mobile guide).
	OpenURL func(ctx context.Context, url string) error

	// Logger receives sequence diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Run executes the bootstrap sequence:
//
//  1. load the deferred module (failure returns to the caller)
//  2. settle the log capture
//  3. parse the deep-link fragment; redirect phone-like hosts
//  4. start the engine load, prepare the platform, start the config load
//  5. settle config; start theme, language, components, log storage
//  6. settle components, theme and language so later surfaces are
//     themed and localized even when those loads failed
//  7. gate on the capability verdict or a stored acknowledgment
//  8. join config strictly
//  9. join engine, components, theme and language strictly; settle log
//     storage
//  10. hand off to the UI tree
//
// Errors in stages 2-10 are caught once, classified, and shown through
// the module's error surface; only a failure of that surface itself
// (or of the module load) reaches the caller.
func (b *Bootstrap) Run(ctx context.Context) (Outcome, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	module, err := b.Load(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("startup: loading bootstrap module: %w", err)
	}

	outcome, err := b.run(ctx, module, logger)
	if err == nil {
		logger.Info("bootstrap finished", "outcome", outcome)
		return outcome, nil
	}
	if ctx.Err() != nil {
		// Interrupted, not broken: nothing to show.
		return OutcomeFailed, fmt.Errorf("startup: %w", err)
	}

	logger.Error("bootstrap failed", "error", err)
	title, lines := describeFailure(module, err)
	if showErr := module.ShowError(title, lines); showErr != nil {
		logger.Error("error surface failed", "error", showErr)
		return OutcomeFailed, fmt.Errorf("startup: presenting failure: %w", showErr)
	}
	return OutcomeFailed, nil
}

// run is stages 2-10. All returned errors are phase-2 failures for Run
// to classify.
func (b *Bootstrap) run(ctx context.Context, module Module, logger *slog.Logger) (Outcome, error) {
	if err := module.LogCaptureReady().Settle(ctx, logger); err != nil {
		return OutcomeFailed, err
	}

	frag, err := fragment.Parse(b.DeepLink)
	if err != nil {
		return OutcomeFailed, err
	}
	if b.shouldRedirect(ctx, frag, logger) {
		guideURL := b.GuideURL
		if guideURL == "" {
			guideURL = defaultGuideURL
		}
		if err := b.OpenURL(ctx, guideURL); err != nil {
			return OutcomeFailed, err
		}
		logger.Info("phone-like host redirected to setup guide", "url", guideURL)
		return OutcomeRedirected, nil
	}

	// Engine verification is pure I/O and can overlap platform
	// preparation; the config load cannot, it reads the prepared
	// source list.
	engine := module.LoadCryptoEngine()
	if err := module.PreparePlatform(); err != nil {
		return OutcomeFailed, err
	}
	configLoad := module.LoadConfig()

	if err := configLoad.Settle(ctx, logger); err != nil {
		return OutcomeFailed, err
	}
	theme := module.LoadTheme()
	language := module.LoadLanguage()
	components := module.LoadComponents()
	logStorage := module.SetupLogStorage()

	// Settle the surfaces' inputs before any surface can render:
	// whatever error shows next is themed and localized, possibly
	// with defaults when these loads failed.
	if err := future.SettleAll(ctx, logger, components, theme, language); err != nil {
		return OutcomeFailed, err
	}

	if err := b.gateOnCapabilities(ctx, module, logger); err != nil {
		return OutcomeFailed, err
	}

	if _, err := configLoad.Join(ctx); err != nil {
		return OutcomeFailed, err
	}
	for _, task := range []*future.Future[future.Void]{engine, components, theme, language} {
		if err := task.Wait(ctx); err != nil {
			return OutcomeFailed, err
		}
	}
	if err := logStorage.Settle(ctx, logger); err != nil {
		return OutcomeFailed, err
	}

	logger.Info("bootstrap complete, handing off", "location", frag.Location)
	if err := module.LoadApp(frag); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeHandoff, nil
}

// shouldRedirect decides stage 3: a phone-like host with no deep-link
// secret, no deep-link location, and no stored opt-out is sent to the
// mobile guide before anything loads.
func (b *Bootstrap) shouldRedirect(ctx context.Context, frag fragment.Fragment, logger *slog.Logger) bool {
	if _, hasSecret := frag.Params["client_secret"]; hasSecret {
		return false
	}
	if frag.Location != "" {
		return false
	}
	pattern := b.MobilePattern
	if pattern == nil {
		pattern = defaultMobilePattern
	}
	if !pattern.MatchString(b.UserAgent) {
		return false
	}
	optOut, err := b.Store.MobileGuideOptOut(ctx)
	if err != nil {
		logger.Warn("could not read mobile guide opt-out", "error", err)
	}
	return !optOut
}

// gateOnCapabilities is stage 7. A host that failed the probe proceeds
// only with the stored acknowledgment or an explicit confirmation,
// which is then persisted. The app handoff is unreachable without
// passing through here.
func (b *Bootstrap) gateOnCapabilities(ctx context.Context, module Module, logger *slog.Logger) error {
	accepted := b.Verdict.Passed
	if !accepted {
		stored, err := b.Store.AcceptsUnsupportedHost(ctx)
		if err != nil {
			logger.Warn("could not read host acknowledgment", "error", err)
		}
		accepted = stored
	}
	if accepted {
		return nil
	}

	logger.Warn("host failed capability check, asking the user",
		"missing", b.Verdict.Missing,
	)
	confirmed := make(chan struct{})
	var once sync.Once
	module.ShowIncompatibleHost(func() {
		once.Do(func() { close(confirmed) })
	})

	select {
	case <-confirmed:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := b.Store.SetAcceptsUnsupportedHost(ctx, true); err != nil {
		// The session proceeds on the in-memory confirmation; only
		// the next session will ask again.
		logger.Warn("could not persist host acknowledgment", "error", err)
	}
	logger.Info("user accepted unsupported host")
	return nil
}

// describeFailure classifies a phase-2 error into a localized title
// and message lines for the module's error surface.
func describeFailure(module Module, err error) (title string, lines []string) {
	brand := map[string]string{"brand": module.Brand()}

	var syntaxErr *config.SyntaxError
	var loadErr *config.LoadError
	var userErr *i18n.UserError
	switch {
	case errors.As(err, &syntaxErr):
		// Two parts: the generic statement, then the parser's own
		// message so the operator can find the byte.
		return module.Translate(msgMisconfigured, brand), []string{
			module.Translate(msgInvalidJSON, nil),
			syntaxErr.Detail,
		}
	case errors.As(err, &loadErr), errors.Is(err, config.ErrNoSource):
		return module.Translate(msgMisconfigured, brand), []string{
			module.Translate(msgConfigLoad, nil),
		}
	case errors.As(err, &userErr):
		return module.Translate(msgUnableToStart, brand), []string{
			userErr.Message,
		}
	default:
		return module.Translate(msgUnableToStart, brand), []string{
			module.Translate(msgUnexpectedError, nil),
		}
	}
}
