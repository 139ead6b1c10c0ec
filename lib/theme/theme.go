// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package theme loads the client's color themes.
//
// Theme definitions are YAML documents embedded in the binary. The
// shell loads one during startup for its own surfaces and forwards the
// chosen name to the app tree in the handoff; the app applies the same
// palette to the full interface.
package theme

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"
)

//go:embed themes/*.yaml
var themeFS embed.FS

// Theme is a resolved color palette. All colors are lipgloss ANSI
// 256-color codes for broad terminal compatibility; truecolor hosts
// upgrade them transparently through the renderer profile.
type Theme struct {
	Name string

	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Message accents.
	SelfMessage lipgloss.Color
	PeerMessage lipgloss.Color
	Notice      lipgloss.Color
	Highlight   lipgloss.Color

	// Status colors.
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	AccentColor      lipgloss.Color
}

// ErrorTitleStyle renders the heading of an error surface.
func (t *Theme) ErrorTitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Error)
}

// ErrorBoxStyle renders the bordered body of an error surface.
func (t *Theme) ErrorBoxStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderColor).
		Foreground(t.NormalText).
		Padding(0, 1)
}

// definition is the YAML shape of an embedded theme.
type definition struct {
	Name   string            `yaml:"name"`
	Colors map[string]string `yaml:"colors"`
}

// colorKeys lists the palette entries every definition must provide.
var colorKeys = []string{
	"normal_text", "faint_text",
	"self_message", "peer_message", "notice", "highlight",
	"success", "warning", "error",
	"header", "border", "accent",
}

// Names returns the embedded theme names, sorted.
func Names() []string {
	entries, err := themeFS.ReadDir("themes")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Load returns the named embedded theme. An empty name or "auto" picks
// dark or light from the terminal's reported background color (dark
// when the terminal does not answer).
func Load(name string, output *termenv.Output) (*Theme, error) {
	if name == "" || name == "auto" {
		name = "dark"
		if output != nil && !output.HasDarkBackground() {
			name = "light"
		}
	}

	data, err := themeFS.ReadFile("themes/" + name + ".yaml")
	if err != nil {
		if suggestion := suggest(name); suggestion != "" {
			return nil, fmt.Errorf("theme: unknown theme %q (did you mean %q?)", name, suggestion)
		}
		return nil, fmt.Errorf("theme: unknown theme %q", name)
	}

	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("theme: parsing %q: %w", name, err)
	}
	if err := def.validate(); err != nil {
		return nil, fmt.Errorf("theme: invalid definition %q: %w", name, err)
	}

	color := func(key string) lipgloss.Color { return lipgloss.Color(def.Colors[key]) }
	return &Theme{
		Name:             def.Name,
		NormalText:       color("normal_text"),
		FaintText:        color("faint_text"),
		SelfMessage:      color("self_message"),
		PeerMessage:      color("peer_message"),
		Notice:           color("notice"),
		Highlight:        color("highlight"),
		Success:          color("success"),
		Warning:          color("warning"),
		Error:            color("error"),
		HeaderForeground: color("header"),
		BorderColor:      color("border"),
		AccentColor:      color("accent"),
	}, nil
}

func (d *definition) validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("missing name"))
	}
	for _, key := range colorKeys {
		if d.Colors[key] == "" {
			errs = append(errs, fmt.Errorf("missing color %q", key))
		}
	}
	return errors.Join(errs...)
}

// suggest returns the embedded theme name closest to the unknown one,
// or "" when nothing is plausibly close.
func suggest(unknown string) string {
	best, bestDistance := "", 3
	for _, name := range Names() {
		if distance := levenshtein.ComputeDistance(strings.ToLower(unknown), name); distance < bestDistance {
			best, bestDistance = name, distance
		}
	}
	return best
}
