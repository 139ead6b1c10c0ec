// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package prefstore

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenMemory(nil)
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestGetAbsentKey(t *testing.T) {
	store := newTestStore(t)

	value, found, err := store.Get(context.Background(), KeyTheme)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Errorf("found = true for a key that was never written, value %q", value)
	}
}

func TestSetGetRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, KeyTheme, "light"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, found, err := store.Get(ctx, KeyTheme)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || value != "light" {
		t.Errorf("Get = %q, %v; want %q, true", value, found, "light")
	}
}

func TestSetOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, KeyLanguage, "en"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, KeyLanguage, "de"); err != nil {
		t.Fatalf("Set (second): %v", err)
	}
	value, _, err := store.Get(ctx, KeyLanguage)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value != "de" {
		t.Errorf("value = %q after overwrite, want %q", value, "de")
	}
}

func TestBoolDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	accepted, err := store.GetBool(ctx, KeyAcceptsUnsupportedHost)
	if err != nil {
		t.Fatalf("GetBool: %v", err)
	}
	if accepted {
		t.Error("GetBool = true for an unset flag")
	}

	// A corrupt value reads as false rather than failing the caller.
	if err := store.Set(ctx, KeyMobileGuideOptOut, "definitely"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	optOut, err := store.GetBool(ctx, KeyMobileGuideOptOut)
	if err != nil {
		t.Fatalf("GetBool: %v", err)
	}
	if optOut {
		t.Error("GetBool = true for an unparseable value")
	}
}

func TestBoolRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetBool(ctx, KeyAcceptsUnsupportedHost, true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	accepted, err := store.GetBool(ctx, KeyAcceptsUnsupportedHost)
	if err != nil {
		t.Fatalf("GetBool: %v", err)
	}
	if !accepted {
		t.Error("GetBool = false after SetBool(true)")
	}
}

func TestTypedAccessors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetAcceptsUnsupportedHost(ctx, true); err != nil {
		t.Fatalf("SetAcceptsUnsupportedHost: %v", err)
	}
	accepted, err := store.AcceptsUnsupportedHost(ctx)
	if err != nil {
		t.Fatalf("AcceptsUnsupportedHost: %v", err)
	}
	if !accepted {
		t.Error("acknowledgment not recorded")
	}

	if err := store.SetTheme(ctx, "light"); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	theme, found, err := store.Theme(ctx)
	if err != nil {
		t.Fatalf("Theme: %v", err)
	}
	if !found || theme != "light" {
		t.Errorf("Theme = %q, %v; want %q, true", theme, found, "light")
	}

	optOut, err := store.MobileGuideOptOut(ctx)
	if err != nil {
		t.Fatalf("MobileGuideOptOut: %v", err)
	}
	if optOut {
		t.Error("MobileGuideOptOut = true before any opt-out")
	}
}

func TestPreferencesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	ctx := context.Background()

	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.SetBool(ctx, KeyAcceptsUnsupportedHost, true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	defer reopened.Close()

	accepted, err := reopened.GetBool(ctx, KeyAcceptsUnsupportedHost)
	if err != nil {
		t.Fatalf("GetBool: %v", err)
	}
	if !accepted {
		t.Error("acknowledgment did not survive a reopen")
	}
}
