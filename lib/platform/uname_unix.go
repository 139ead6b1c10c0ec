// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package platform

import (
	"bytes"
	"runtime"

	"golang.org/x/sys/unix"
)

// hostTriple returns the kernel name, release and machine architecture
// from uname. Falls back to build-time values if the syscall fails.
func hostTriple() (sysname, release, machine string) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return runtime.GOOS, "unknown", runtime.GOARCH
	}
	return utsField(uts.Sysname[:]), utsField(uts.Release[:]), utsField(uts.Machine[:])
}

// utsField converts a NUL-padded utsname field to a string.
func utsField(field []byte) string {
	if end := bytes.IndexByte(field, 0); end >= 0 {
		field = field[:end]
	}
	return string(field)
}
