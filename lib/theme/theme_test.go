// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package theme

import (
	"strings"
	"testing"
)

func TestLoadDark(t *testing.T) {
	theme, err := Load("dark", nil)
	if err != nil {
		t.Fatalf("Load(dark) error = %v", err)
	}
	if theme.Name != "dark" {
		t.Errorf("Name = %q, want dark", theme.Name)
	}
	if theme.NormalText == "" || theme.Error == "" || theme.BorderColor == "" {
		t.Error("palette fields not populated")
	}
}

func TestLoadLight(t *testing.T) {
	theme, err := Load("light", nil)
	if err != nil {
		t.Fatalf("Load(light) error = %v", err)
	}
	if theme.Name != "light" {
		t.Errorf("Name = %q, want light", theme.Name)
	}
}

func TestLoadAutoDefaultsToDark(t *testing.T) {
	// Without a terminal to query, auto resolves to the dark palette.
	theme, err := Load("auto", nil)
	if err != nil {
		t.Fatalf("Load(auto) error = %v", err)
	}
	if theme.Name != "dark" {
		t.Errorf("Name = %q, want dark", theme.Name)
	}

	theme, err = Load("", nil)
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if theme.Name != "dark" {
		t.Errorf("Name = %q, want dark", theme.Name)
	}
}

func TestLoadUnknownSuggestsNearestName(t *testing.T) {
	_, err := Load("drak", nil)
	if err == nil {
		t.Fatal("expected error for unknown theme")
	}
	if !strings.Contains(err.Error(), `"dark"`) {
		t.Errorf("error = %v, want a suggestion naming dark", err)
	}
}

func TestLoadUnknownWithoutPlausibleMatch(t *testing.T) {
	_, err := Load("solarized-octarine", nil)
	if err == nil {
		t.Fatal("expected error for unknown theme")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %v, want no suggestion", err)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 2 || names[0] != "dark" || names[1] != "light" {
		t.Fatalf("Names() = %v, want [dark light]", names)
	}
}

func TestErrorStylesRender(t *testing.T) {
	theme, err := Load("dark", nil)
	if err != nil {
		t.Fatalf("Load(dark) error = %v", err)
	}
	if got := theme.ErrorBoxStyle().Render("body"); got == "" {
		t.Error("ErrorBoxStyle rendered nothing")
	}
	if got := theme.ErrorTitleStyle().Render("title"); !strings.Contains(got, "title") {
		t.Errorf("ErrorTitleStyle output %q does not contain the text", got)
	}
}
