// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(darwin || linux)

package platform

import "runtime"

func hostTriple() (sysname, release, machine string) {
	return runtime.GOOS, "unknown", runtime.GOARCH
}
