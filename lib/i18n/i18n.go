// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package i18n loads the client's embedded language packs.
//
// Translation keys are the canonical English phrases, so a missing or
// not-yet-loaded table degrades to readable English rather than to
// placeholder identifiers. Language packs are JSON tables embedded in
// the binary; matching against the caller's preference list uses BCP-47
// semantics, so "de-AT" finds the "de" pack.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// available holds the embedded locale tags, English first so the
// matcher falls back to it.
var available []language.Tag

func init() {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		panic("i18n: embedded locales missing: " + err.Error())
	}
	var rest []string
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".json")
		if name == "en" {
			continue
		}
		rest = append(rest, name)
	}
	sort.Strings(rest)
	available = []language.Tag{language.English}
	for _, name := range rest {
		available = append(available, language.MustParse(name))
	}
}

// Available returns the embedded locale tags, English first.
func Available() []language.Tag {
	tags := make([]language.Tag, len(available))
	copy(tags, available)
	return tags
}

// Translator maps canonical English phrases to one locale's strings.
// A nil Translator is usable and translates everything to itself.
type Translator struct {
	tag   language.Tag
	table map[string]string
}

// Load picks the best embedded language pack for the given preference
// list (most preferred first; unparseable entries are skipped) and
// loads its table. With no usable preference the English pack is
// returned.
func Load(preferences ...string) (*Translator, error) {
	var wanted []language.Tag
	for _, preference := range preferences {
		if preference == "" {
			continue
		}
		if tag, err := language.Parse(preference); err == nil {
			wanted = append(wanted, tag)
		}
	}

	matcher := language.NewMatcher(available)
	_, index, _ := matcher.Match(wanted...)
	tag := available[index]

	data, err := localeFS.ReadFile("locales/" + tag.String() + ".json")
	if err != nil {
		return nil, fmt.Errorf("i18n: reading %v pack: %w", tag, err)
	}
	table := make(map[string]string)
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("i18n: parsing %v pack: %w", tag, err)
	}
	return &Translator{tag: tag, table: table}, nil
}

// Tag returns the locale this Translator serves. The nil Translator
// reports English.
func (t *Translator) Tag() language.Tag {
	if t == nil {
		return language.English
	}
	return t.tag
}

var placeholderPattern = regexp.MustCompile(`%\(([^)]+)\)s`)

// T translates key and substitutes %(name)s placeholders from subs.
// Untranslated keys pass through unchanged, placeholders included, so
// callers always get a displayable string.
func (t *Translator) T(key string, subs map[string]string) string {
	text := key
	if t != nil {
		if translated, ok := t.table[key]; ok && translated != "" {
			text = translated
		}
	}
	if len(subs) == 0 {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-2]
		if value, ok := subs[name]; ok {
			return value
		}
		return match
	})
}

// Suggestion returns the embedded locale closest to the unknown name,
// or "" when nothing is plausibly close.
func Suggestion(unknown string) string {
	best, bestDistance := "", 3
	for _, tag := range available {
		name := tag.String()
		if distance := levenshtein.ComputeDistance(strings.ToLower(unknown), name); distance < bestDistance {
			best, bestDistance = name, distance
		}
	}
	return best
}

// UserError pairs a message fit for direct display with the mechanical
// cause. Startup's error surface shows Message; logs carry the whole
// chain.
type UserError struct {
	Message string
	Err     error
}

// NewUserError wraps cause with a display message.
func NewUserError(message string, cause error) *UserError {
	return &UserError{Message: message, Err: cause}
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UserError) Unwrap() error { return e.Err }
