// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package i18n

import (
	"errors"
	"testing"

	"golang.org/x/text/language"
)

func TestLoadDefaultsToEnglish(t *testing.T) {
	translator, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := translator.Tag(); got != language.English {
		t.Fatalf("Tag() = %v, want en", got)
	}
}

func TestLoadMatchesRegionalVariant(t *testing.T) {
	translator, err := Load("de-AT")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := translator.Tag(); got != language.MustParse("de") {
		t.Fatalf("Tag() = %v, want de", got)
	}
	got := translator.T("Failed to load the theme.", nil)
	if got != "Das Farbschema konnte nicht geladen werden." {
		t.Fatalf("T() = %q, want the German string", got)
	}
}

func TestLoadSkipsUnavailableAndUnparseable(t *testing.T) {
	translator, err := Load("not a tag!", "fr", "de")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := translator.Tag(); got != language.MustParse("de") {
		t.Fatalf("Tag() = %v, want de", got)
	}
}

func TestTranslateSubstitutesPlaceholders(t *testing.T) {
	translator, err := Load("de")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := translator.T("Unable to start %(brand)s", map[string]string{"brand": "Parlor"})
	if got != "Parlor kann nicht gestartet werden" {
		t.Fatalf("T() = %q", got)
	}
}

func TestTranslateUnknownKeyPassesThrough(t *testing.T) {
	translator, err := Load("de")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := translator.T("An unlisted %(thing)s", map[string]string{"thing": "phrase"})
	if got != "An unlisted phrase" {
		t.Fatalf("T() = %q", got)
	}
}

func TestNilTranslatorIsUsable(t *testing.T) {
	var translator *Translator
	if got := translator.Tag(); got != language.English {
		t.Fatalf("Tag() = %v, want en", got)
	}
	got := translator.T("%(brand)s is misconfigured", map[string]string{"brand": "Parlor"})
	if got != "Parlor is misconfigured" {
		t.Fatalf("T() = %q", got)
	}
}

func TestUnfilledPlaceholderSurvives(t *testing.T) {
	var translator *Translator
	got := translator.T("Unable to start %(brand)s", map[string]string{"other": "x"})
	if got != "Unable to start %(brand)s" {
		t.Fatalf("T() = %q", got)
	}
}

func TestSuggestion(t *testing.T) {
	if got := Suggestion("dee"); got != "de" {
		t.Fatalf("Suggestion(dee) = %q, want de", got)
	}
	if got := Suggestion("klingon"); got != "" {
		t.Fatalf("Suggestion(klingon) = %q, want empty", got)
	}
}

func TestUserErrorChain(t *testing.T) {
	cause := errors.New("digest mismatch")
	err := NewUserError("Failed to load the encryption engine.", cause)

	var userErr *UserError
	wrapped := errors.Join(errors.New("outer"), err)
	if !errors.As(wrapped, &userErr) {
		t.Fatal("UserError not found in chain")
	}
	if userErr.Message != "Failed to load the encryption engine." {
		t.Fatalf("Message = %q", userErr.Message)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("cause not in chain")
	}
}
