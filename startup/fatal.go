// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

package startup

import (
	_ "embed"
	"io"
)

//go:embed static/incompatible-host.txt
var incompatibleHostDoc string

//go:embed static/unable-to-load.txt
var unableToLoadDoc string

// terminalReset returns the terminal to a readable state before the
// document: leave the alternate screen, show the cursor, clear any
// colors. Each sequence is a no-op when nothing had set it.
const terminalReset = "\x1b[?1049l\x1b[?25h\x1b[0m"

// PresentFatal writes the last-resort failure document to w. It is the
// path of final failure, reachable when the bootstrap module itself
// could not load or its error surface broke, so it depends on nothing
// loaded at runtime: no theme, no translation, no configuration. The
// documents are compiled into the binary.
//
// hostSupported selects the document: a host that failed the
// capability probe gets the one explaining that, every other failure
// gets the general one.
func PresentFatal(w io.Writer, hostSupported bool) error {
	doc := incompatibleHostDoc
	if hostSupported {
		doc = unableToLoadDoc
	}
	if _, err := io.WriteString(w, terminalReset+doc); err != nil {
		return err
	}
	return nil
}
