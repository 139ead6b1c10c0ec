// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"filippo.io/age"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/parlor-chat/parlor/lib/clock"
)

// currentName is the live record file inside the store directory.
// Rotation renames its contents into timestamped archives beside it.
const currentName = "current.log.cbor"

// archivePrefix starts every rotated archive file name. The rest of
// the name is a sortable UTC timestamp plus a rotation counter, so
// lexical order is rotation order.
const archivePrefix = "archive-"

const (
	defaultMaxFileBytes = 1 << 20
	defaultMaxArchives  = 8
)

// encMode writes Core Deterministic Encoding (RFC 8949 §4.2): the same
// record always produces identical bytes, which keeps archives
// diffable across rotations.
var encMode cbor.EncMode

// decMode accepts standard CBOR; unknown fields are ignored so newer
// clients can read older archives.
var decMode cbor.DecMode

func init() {
	var err error
	encOptions := cbor.CoreDetEncOptions()
	// Text timestamps keep archives greppable and keep sub-second
	// precision; the default integer encoding truncates to seconds.
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("logstore: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("logstore: CBOR decoder initialization failed: " + err.Error())
	}
}

// zstdLevel is the compression level for rotated archives: the default
// level, good ratios on text-like records without excessive CPU.
var zstdLevel = zstd.WithEncoderLevel(zstd.SpeedDefault)

// Options configures a Store. The zero value is usable.
type Options struct {
	// MaxFileBytes is the rotation threshold for the current file.
	// Default 1 MiB.
	MaxFileBytes int64

	// MaxArchives bounds how many rotated archives are kept; the
	// oldest are pruned. Default 8.
	MaxArchives int

	// Recipient is an age X25519 public key ("age1..."). When set,
	// rotated archives are encrypted to it and carry an extra ".age"
	// suffix.
	Recipient string

	// Clock stamps archive names. Defaults to the real clock.
	Clock clock.Clock

	// Logger receives open/close messages only. Append and rotation
	// never log: the store usually sits behind the process logger, and
	// a store that logs its own failures would feed itself.
	Logger *slog.Logger
}

// Store persists log records under one directory. Safe for concurrent
// use.
type Store struct {
	dir       string
	opts      Options
	recipient age.Recipient
	logger    *slog.Logger

	mu        sync.Mutex
	current   *os.File
	written   int64
	rotations int
	closed    bool
}

// Open creates or reuses the store directory and opens the current
// record file for appending.
func Open(dir string, opts Options) (*Store, error) {
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = defaultMaxFileBytes
	}
	if opts.MaxArchives <= 0 {
		opts.MaxArchives = defaultMaxArchives
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var recipient age.Recipient
	if opts.Recipient != "" {
		parsed, err := age.ParseX25519Recipient(opts.Recipient)
		if err != nil {
			return nil, fmt.Errorf("logstore: parsing recipient key: %w", err)
		}
		recipient = parsed
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("logstore: creating store directory: %w", err)
	}
	path := filepath.Join(dir, currentName)
	current, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("logstore: opening %s: %w", path, err)
	}
	info, err := current.Stat()
	if err != nil {
		current.Close()
		return nil, fmt.Errorf("logstore: stating %s: %w", path, err)
	}

	logger.Info("log store opened",
		"dir", dir,
		"max_archives", opts.MaxArchives,
		"encrypted", recipient != nil,
	)
	return &Store{
		dir:       dir,
		opts:      opts,
		recipient: recipient,
		logger:    logger,
		current:   current,
		written:   info.Size(),
	}, nil
}

// Append persists one record, rotating first when the current file is
// full. Callers on the logging path ignore the returned error; it
// exists for direct users and tests.
func (s *Store) Append(record Record) error {
	raw, err := encMode.Marshal(record)
	if err != nil {
		return fmt.Errorf("logstore: encoding record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("logstore: store is closed")
	}

	if s.written > 0 && s.written+int64(len(raw)) > s.opts.MaxFileBytes {
		if err := s.rotateLocked(); err != nil {
			// Keep appending to the oversized current file rather than
			// dropping records.
			s.written += int64(len(raw))
			if _, writeErr := s.current.Write(raw); writeErr != nil {
				return fmt.Errorf("logstore: writing record: %w", writeErr)
			}
			return err
		}
	}

	n, err := s.current.Write(raw)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("logstore: writing record: %w", err)
	}
	return nil
}

// Close flushes and closes the current file. Further Appends fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.current.Close(); err != nil {
		return fmt.Errorf("logstore: closing current file: %w", err)
	}
	s.logger.Info("log store closed", "dir", s.dir)
	return nil
}

// rotateLocked archives the current file and starts a fresh one.
func (s *Store) rotateLocked() error {
	if err := s.current.Close(); err != nil {
		return fmt.Errorf("logstore: closing for rotation: %w", err)
	}

	currentPath := filepath.Join(s.dir, currentName)
	if err := s.archiveLocked(currentPath); err != nil {
		// Reopen so appends can continue into the old file.
		reopened, reopenErr := os.OpenFile(currentPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if reopenErr != nil {
			return fmt.Errorf("logstore: rotation failed and current file is gone: %w", reopenErr)
		}
		s.current = reopened
		return err
	}

	fresh, err := os.OpenFile(currentPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("logstore: reopening after rotation: %w", err)
	}
	s.current = fresh
	s.written = 0

	s.pruneLocked()
	return nil
}

// archiveLocked compresses (and when configured, encrypts) the closed
// current file into a new archive.
func (s *Store) archiveLocked(currentPath string) error {
	source, err := os.Open(currentPath)
	if err != nil {
		return fmt.Errorf("logstore: reopening for archive: %w", err)
	}
	defer source.Close()

	s.rotations++
	stamp := s.opts.Clock.Now().UTC().Format("20060102T150405Z")
	name := fmt.Sprintf("%s%s-%04d%s", archivePrefix, stamp, s.rotations, s.archiveSuffix())
	archivePath := filepath.Join(s.dir, name)

	archive, err := os.OpenFile(archivePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("logstore: creating archive %s: %w", name, err)
	}

	// Writer chain: records -> zstd -> (age ->) file. Compression goes
	// inside the encryption; ciphertext does not compress.
	var sink io.Writer = archive
	var sealer io.WriteCloser
	if s.recipient != nil {
		sealer, err = age.Encrypt(archive, s.recipient)
		if err != nil {
			archive.Close()
			os.Remove(archivePath)
			return fmt.Errorf("logstore: creating age encryptor: %w", err)
		}
		sink = sealer
	}
	compressor, err := zstd.NewWriter(sink, zstdLevel)
	if err != nil {
		archive.Close()
		os.Remove(archivePath)
		return fmt.Errorf("logstore: creating zstd writer: %w", err)
	}

	if _, err := io.Copy(compressor, source); err != nil {
		compressor.Close()
		archive.Close()
		os.Remove(archivePath)
		return fmt.Errorf("logstore: compressing archive: %w", err)
	}
	if err := compressor.Close(); err != nil {
		archive.Close()
		os.Remove(archivePath)
		return fmt.Errorf("logstore: finishing compression: %w", err)
	}
	if sealer != nil {
		if err := sealer.Close(); err != nil {
			archive.Close()
			os.Remove(archivePath)
			return fmt.Errorf("logstore: finishing encryption: %w", err)
		}
	}
	if err := archive.Close(); err != nil {
		return fmt.Errorf("logstore: closing archive: %w", err)
	}
	return nil
}

func (s *Store) archiveSuffix() string {
	if s.recipient != nil {
		return ".log.cbor.zst.age"
	}
	return ".log.cbor.zst"
}

// pruneLocked removes the oldest archives beyond MaxArchives. Failure
// to prune is not worth failing a rotation over.
func (s *Store) pruneLocked() {
	archives := s.listArchives()
	for len(archives) > s.opts.MaxArchives {
		os.Remove(filepath.Join(s.dir, archives[0]))
		archives = archives[1:]
	}
}

// listArchives returns archive file names in rotation order.
func (s *Store) listArchives() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, archivePrefix) &&
			(strings.HasSuffix(name, ".zst") || strings.HasSuffix(name, ".zst.age")) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Archives returns the rotated archive names, oldest first.
func (s *Store) Archives() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listArchives()
}

// ReadArchive decodes the records of one archive. Encrypted archives
// need the matching identity.
func ReadArchive(path string, identities ...age.Identity) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("logstore: opening archive: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".age") {
		decrypted, err := age.Decrypt(file, identities...)
		if err != nil {
			return nil, fmt.Errorf("logstore: decrypting archive: %w", err)
		}
		reader = decrypted
	}

	decompressor, err := zstd.NewReader(reader)
	if err != nil {
		return nil, fmt.Errorf("logstore: opening zstd reader: %w", err)
	}
	defer decompressor.Close()

	return decodeRecords(decompressor)
}

// ReadCurrent decodes the records of the live file in dir.
func ReadCurrent(dir string) ([]Record, error) {
	file, err := os.Open(filepath.Join(dir, currentName))
	if err != nil {
		return nil, fmt.Errorf("logstore: opening current file: %w", err)
	}
	defer file.Close()
	return decodeRecords(file)
}

func decodeRecords(r io.Reader) ([]Record, error) {
	decoder := decMode.NewDecoder(r)
	var records []Record
	for {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return nil, fmt.Errorf("logstore: decoding record: %w", err)
		}
		records = append(records, record)
	}
}
