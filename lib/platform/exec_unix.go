// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package platform

import "golang.org/x/sys/unix"

// Exec replaces the current process image with binary. On success it
// does not return. File descriptors opened by the Go runtime carry
// CLOEXEC and do not leak into the new image.
func Exec(binary string, argv []string, env []string) error {
	return unix.Exec(binary, argv, env)
}
