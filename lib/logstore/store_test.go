// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filippo.io/age"

	"github.com/parlor-chat/parlor/lib/clock"
)

func testRecord(i int) Record {
	return Record{
		Time:    time.Date(2026, 3, 14, 9, 0, i, 0, time.UTC),
		Level:   "INFO",
		Message: fmt.Sprintf("record %d", i),
		Session: "test-session",
		Attrs:   map[string]string{"index": fmt.Sprintf("%d", i)},
	}
}

func TestAppendAndReadCurrent(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	for i := 0; i < 3; i++ {
		if err := store.Append(testRecord(i)); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	records, err := ReadCurrent(dir)
	if err != nil {
		t.Fatalf("ReadCurrent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("read %d records, want 3", len(records))
	}
	for i, record := range records {
		want := testRecord(i)
		if record.Message != want.Message {
			t.Errorf("records[%d].Message = %q, want %q", i, record.Message, want.Message)
		}
		if record.Attrs["index"] != want.Attrs["index"] {
			t.Errorf("records[%d].Attrs = %v", i, record.Attrs)
		}
		if !record.Time.Equal(want.Time) {
			t.Errorf("records[%d].Time = %v, want %v", i, record.Time, want.Time)
		}
	}
}

func TestRotationArchivesOldRecords(t *testing.T) {
	dir := t.TempDir()
	fake := clock.Fake(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	store, err := Open(dir, Options{MaxFileBytes: 96, Clock: fake})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	for i := 0; i < 6; i++ {
		if err := store.Append(testRecord(i)); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	archives := store.Archives()
	if len(archives) == 0 {
		t.Fatal("no archives after exceeding the byte cap")
	}
	name := archives[0]
	if !strings.HasPrefix(name, "archive-20260314T090000Z") {
		t.Errorf("archive name = %q, want the fake clock's stamp", name)
	}
	if !strings.HasSuffix(name, ".log.cbor.zst") {
		t.Errorf("archive name = %q, want a .log.cbor.zst suffix", name)
	}

	archived, err := ReadArchive(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if len(archived) == 0 {
		t.Fatal("archive is empty")
	}
	if archived[0].Message != "record 0" {
		t.Errorf("first archived record = %q, want %q", archived[0].Message, "record 0")
	}

	// Everything is accounted for: archives + current == appended.
	current, err := ReadCurrent(dir)
	if err != nil {
		t.Fatalf("ReadCurrent: %v", err)
	}
	total := len(current)
	for _, archive := range store.Archives() {
		records, err := ReadArchive(filepath.Join(dir, archive))
		if err != nil {
			t.Fatalf("ReadArchive(%s): %v", archive, err)
		}
		total += len(records)
	}
	if total != 6 {
		t.Errorf("archives + current hold %d records, want 6", total)
	}
}

func TestPruneKeepsNewestArchives(t *testing.T) {
	dir := t.TempDir()
	fake := clock.Fake(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	store, err := Open(dir, Options{MaxFileBytes: 96, MaxArchives: 2, Clock: fake})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	for i := 0; i < 24; i++ {
		if err := store.Append(testRecord(i)); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
		fake.Advance(time.Second)
	}

	archives := store.Archives()
	if len(archives) != 2 {
		t.Fatalf("kept %d archives, want 2", len(archives))
	}
	// Counters in the names are monotonic, so the kept pair must be
	// the last two rotations.
	if !strings.Contains(archives[1], fmt.Sprintf("-%04d.", archiveCount(t, store))) {
		t.Errorf("newest archive %q does not carry the last rotation counter", archives[1])
	}
}

// archiveCount reads the store's rotation counter.
func archiveCount(t *testing.T, store *Store) int {
	t.Helper()
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.rotations
}

func TestEncryptedArchiveRoundTrip(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("generating identity: %v", err)
	}

	dir := t.TempDir()
	store, err := Open(dir, Options{
		MaxFileBytes: 96,
		Recipient:    identity.Recipient().String(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	for i := 0; i < 6; i++ {
		if err := store.Append(testRecord(i)); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	archives := store.Archives()
	if len(archives) == 0 {
		t.Fatal("no archives")
	}
	path := filepath.Join(dir, archives[0])
	if !strings.HasSuffix(path, ".age") {
		t.Fatalf("archive %q is not encrypted", path)
	}

	if _, err := ReadArchive(path); err == nil {
		t.Error("ReadArchive succeeded without the identity")
	}
	records, err := ReadArchive(path, identity)
	if err != nil {
		t.Fatalf("ReadArchive with identity: %v", err)
	}
	if len(records) == 0 || records[0].Message != "record 0" {
		t.Errorf("decrypted records = %+v", records)
	}
}

func TestOpenRejectsBadRecipient(t *testing.T) {
	_, err := Open(t.TempDir(), Options{Recipient: "not-an-age-key"})
	if err == nil {
		t.Error("Open accepted a malformed recipient key")
	}
}

func TestAppendAfterClose(t *testing.T) {
	store, err := Open(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.Append(testRecord(0)); err == nil {
		t.Error("Append succeeded on a closed store")
	}
}
