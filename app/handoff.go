// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parlor-chat/parlor/lib/fragment"
	"github.com/parlor-chat/parlor/lib/future"
	"github.com/parlor-chat/parlor/lib/i18n"
)

const (
	// appBinaryName is the companion binary that owns the terminal
	// after a successful bootstrap.
	appBinaryName = "parlor-app"

	// componentManifestName describes the app tree's pluggable
	// components. It ships next to the binary.
	componentManifestName = "parlor-app.components.json"

	// componentSchemaVersion is the manifest schema this shell
	// understands.
	componentSchemaVersion = 1
)

// componentIndex is the parsed component manifest: which
// implementation the app tree provides for each replaceable component.
type componentIndex struct {
	SchemaVersion int               `json:"schema_version"`
	Components    map[string]string `json:"components"`
}

// LoadComponents starts locating the companion binary and parsing its
// component manifest.
func (m *Module) LoadComponents() *future.Future[future.Void] {
	return future.Do("components", func() error {
		binary, err := m.platform.FindBinary(appBinaryName)
		if err != nil {
			return i18n.NewUserError(m.Translate(msgComponentsFailed, nil), err)
		}
		index, err := readComponentIndex(filepath.Join(filepath.Dir(binary), componentManifestName))
		if err != nil {
			return i18n.NewUserError(m.Translate(msgComponentsFailed, nil), err)
		}
		m.mu.Lock()
		m.appBinary = binary
		m.components = index
		m.mu.Unlock()
		m.logger.Info("interface components located",
			"binary", binary,
			"components", len(index.Components),
		)
		return nil
	})
}

// readComponentIndex parses and validates one component manifest.
func readComponentIndex(path string) (*componentIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("app: reading component manifest: %w", err)
	}
	var index componentIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("app: parsing %s: %w", filepath.Base(path), err)
	}
	if index.SchemaVersion != componentSchemaVersion {
		return nil, fmt.Errorf("app: component manifest schema %d not supported (want %d)",
			index.SchemaVersion, componentSchemaVersion)
	}
	if len(index.Components) == 0 {
		return nil, errors.New("app: component manifest lists no components")
	}
	return &index, nil
}

// LoadApp hands the terminal to the companion binary: it builds the
// argument list from the deep-link fragment and the environment from
// the loaded state, then replaces the process image. On success it
// does not return.
func (m *Module) LoadApp(frag fragment.Fragment) error {
	m.mu.Lock()
	binary := m.appBinary
	cfg := m.cfg
	engine := m.engine
	themeName := ""
	if m.theme != nil {
		themeName = m.theme.Name
	}
	language := m.translator.Tag().String()
	m.mu.Unlock()

	if binary == "" {
		return errors.New("app: interface components were never located")
	}
	if engine == nil {
		return errors.New("app: encryption engine was never verified")
	}
	// The engine was verified against its shipped manifest when it
	// loaded; the deployment pin is enforced here, after the config
	// strictly joined.
	if cfg != nil && cfg.EngineDigest != "" && !strings.EqualFold(cfg.EngineDigest, engine.Digest) {
		return i18n.NewUserError(m.Translate(msgEngineFailed, nil),
			fmt.Errorf("app: engine digest %s does not match deployment pin %s", engine.Digest, cfg.EngineDigest))
	}

	argv := []string{binary}
	if frag.Location != "" {
		argv = append(argv, "--location", frag.Location)
	}
	params := make([]string, 0, len(frag.Params))
	for key := range frag.Params {
		params = append(params, key)
	}
	sort.Strings(params)
	for _, key := range params {
		argv = append(argv, "--param", key+"="+frag.Params[key])
	}

	configSource := ""
	if cfg != nil {
		configSource = cfg.Source
	}
	env := mergeEnv(m.environ(), []string{
		"PARLOR_CONFIG=" + configSource,
		"PARLOR_THEME=" + themeName,
		"PARLOR_LANGUAGE=" + language,
		"PARLOR_E2EE_ENGINE=" + engine.Path,
		"PARLOR_LOG_SESSION=" + m.capture.SessionID(),
		"PARLOR_USER_AGENT=" + m.platform.UserAgent,
	})

	m.logger.Info("handing terminal to the app tree",
		"binary", binary,
		"location", frag.Location,
		"params", len(frag.Params),
	)
	if err := m.execProcess(binary, argv, env); err != nil {
		return fmt.Errorf("app: exec %s: %w", binary, err)
	}
	// Reached only under tests, where exec is injected.
	return nil
}

// mergeEnv replaces the handoff variables in base. getenv returns the
// first match for a duplicated name, so stale PARLOR_ entries cannot
// simply be appended over.
func mergeEnv(base []string, overrides []string) []string {
	merged := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		name, _, _ := strings.Cut(entry, "=")
		if strings.HasPrefix(name, "PARLOR_") {
			continue
		}
		merged = append(merged, entry)
	}
	return append(merged, overrides...)
}
