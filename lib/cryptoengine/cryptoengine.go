// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package cryptoengine verifies and describes the end-to-end
// encryption engine asset that ships beside the client.
//
// The engine is an opaque binary blob loaded by the UI process, not by
// this one. The loader's whole job is to find it and prove it is the
// blob the deployment expects: a BLAKE3 digest pinned in the
// deployment config, or failing that the digest manifest installed
// next to the asset.
package cryptoengine

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// AssetName is the conventional file name of the engine asset.
const AssetName = "parlor-e2ee.engine"

// digestSuffix names the manifest installed beside the asset. The
// manifest holds the hex digest, optionally followed by a file name in
// the style of the coreutils checksum tools.
const digestSuffix = ".digest"

// Engine describes a verified engine asset, ready to hand to the UI
// process.
type Engine struct {
	// Path is the location of the verified asset.
	Path string

	// Size is the asset length in bytes.
	Size int64

	// Digest is the lowercase hex BLAKE3 digest of the asset.
	Digest string
}

// VerifyError reports an asset whose digest does not match the pinned
// value. Have and Want are lowercase hex.
type VerifyError struct {
	Path string
	Have string
	Want string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("cryptoengine: %s: digest mismatch: have %s, want %s", e.Path, e.Have, e.Want)
}

// Load streams the asset at path through BLAKE3 and compares the
// result against wantHex. When wantHex is empty the digest manifest
// beside the asset (path + ".digest") supplies the expected value.
//
// The comparison is constant-time. That buys nothing against an
// attacker who can already replace the asset, but it keeps the check
// honest if the digest ever doubles as a capability.
func Load(path, wantHex string) (*Engine, error) {
	if wantHex == "" {
		var err error
		wantHex, err = readManifest(path + digestSuffix)
		if err != nil {
			return nil, err
		}
	}
	want, err := hex.DecodeString(strings.ToLower(wantHex))
	if err != nil || len(want) != 32 {
		return nil, fmt.Errorf("cryptoengine: pinned digest %q is not 64 hex characters", wantHex)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cryptoengine: opening engine asset: %w", err)
	}
	defer file.Close()

	hasher := blake3.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return nil, fmt.Errorf("cryptoengine: reading %s: %w", path, err)
	}
	have := hasher.Sum(nil)

	if subtle.ConstantTimeCompare(have, want) != 1 {
		return nil, &VerifyError{
			Path: path,
			Have: hex.EncodeToString(have),
			Want: hex.EncodeToString(want),
		}
	}

	return &Engine{
		Path:   path,
		Size:   size,
		Digest: hex.EncodeToString(have),
	}, nil
}

// readManifest extracts the hex digest from a manifest file. The first
// whitespace-separated token is the digest; anything after it (a file
// name, usually) is ignored.
func readManifest(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cryptoengine: reading digest manifest: %w", err)
	}
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return "", fmt.Errorf("cryptoengine: digest manifest %s is empty", path)
	}
	return fields[0], nil
}
