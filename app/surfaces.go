// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/parlor-chat/parlor/lib/theme"
)

// ShowError renders a titled error box on the module's output. The
// loaded theme styles it; before a theme loads, the embedded dark
// palette stands in so the box never renders unstyled by accident.
func (m *Module) ShowError(title string, lines []string) error {
	m.mu.Lock()
	th := m.theme
	m.mu.Unlock()
	if th == nil {
		if fallback, err := theme.Load("dark", nil); err == nil {
			th = fallback
		}
	}

	// Message lines can quote bytes from hostile documents; strip
	// terminal control sequences before styling.
	title = ansi.Strip(title)
	body := make([]string, len(lines))
	for i, line := range lines {
		body[i] = ansi.Strip(line)
	}

	heading := title
	box := strings.Join(body, "\n")
	if th != nil {
		heading = th.ErrorTitleStyle().Render(title)
		box = th.ErrorBoxStyle().Render(box)
	}

	if _, err := fmt.Fprintf(m.output, "\n%s\n%s\n", heading, box); err != nil {
		return fmt.Errorf("app: writing error surface: %w", err)
	}
	return nil
}

// ShowIncompatibleHost renders the capability warning and prompt, then
// waits for the answer on a separate goroutine. 'y' (or 'Y') invokes
// onAccept, exactly once. Any other answer asks the process to quit
// and leaves the startup sequence suspended until its context ends.
func (m *Module) ShowIncompatibleHost(onAccept func()) {
	m.mu.Lock()
	th := m.theme
	m.mu.Unlock()

	warning := m.Translate(msgMissingCaps, nil)
	prompt := m.Translate(msgContinuePrompt, nil)
	if th != nil {
		warning = lipgloss.NewStyle().Bold(true).Foreground(th.Warning).Render(warning)
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(warning)
	sb.WriteString("\n")
	for _, name := range m.verdict.Missing {
		sb.WriteString("  - ")
		sb.WriteString(name)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(prompt)
	sb.WriteString(" ")
	if _, err := fmt.Fprint(m.output, sb.String()); err != nil {
		m.logger.Warn("could not render host warning", "error", err)
	}

	go m.awaitGateAnswer(onAccept)
}

// awaitGateAnswer reads one rune from the module input and dispatches
// the user's choice.
func (m *Module) awaitGateAnswer(onAccept func()) {
	answer, _, err := m.input.ReadRune()
	if err != nil {
		m.logger.Warn("could not read the host warning answer", "error", err)
		return
	}
	if answer == 'y' || answer == 'Y' {
		m.gateOnce.Do(onAccept)
		return
	}
	m.logger.Info("user declined to run on an unsupported host")
	if m.quit != nil {
		m.quit()
	}
}
