// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(darwin || linux)

package platform

import (
	"fmt"
	"runtime"
)

// Exec is unavailable on hosts without an exec family call.
func Exec(binary string, argv []string, env []string) error {
	return fmt.Errorf("platform: exec not supported on %s", runtime.GOOS)
}
