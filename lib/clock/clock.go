// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for testability.
//
// Production code accepts a Clock parameter instead of calling time.Now
// directly. Real() provides standard library behavior; Fake() provides
// a deterministic clock whose time moves only when Advance is called.
package clock

import "time"

// Clock abstracts the wall-clock reads the client performs, which is
// all the loader and the log store need from time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
