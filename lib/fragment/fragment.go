// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package fragment parses the routing fragment of a deep link.
//
// Deep links hand the client a location and a set of parameters after
// a '#', matrix.to style: everything between '#' and the first '?' is
// the in-app location, the rest is a query string. The parser is a
// pure function over the link text; interpreting the location is the
// app tree's business.
package fragment

import (
	"fmt"
	"net/url"
	"strings"
)

// Fragment is the parsed routing information of a deep link. The zero
// value means the link carried no fragment.
type Fragment struct {
	// Location is the in-app routing path, percent-decoded. Empty when
	// the fragment carried only parameters (or nothing).
	Location string

	// Params holds the fragment's query parameters, first value per
	// key. Never nil after a successful parse of a non-empty fragment.
	Params map[string]string
}

// Parse extracts the Fragment from a deep-link argument. The argument
// may be a full URL or just the fragment itself; only the portion after
// the first '#' is considered. An argument without '#' parses to the
// zero Fragment with no error.
func Parse(raw string) (Fragment, error) {
	_, after, found := strings.Cut(raw, "#")
	if !found || after == "" {
		return Fragment{}, nil
	}

	locationPart, queryPart, _ := strings.Cut(after, "?")

	location, err := url.PathUnescape(locationPart)
	if err != nil {
		return Fragment{}, fmt.Errorf("fragment: bad location escape: %w", err)
	}

	params := make(map[string]string)
	if queryPart != "" {
		values, err := url.ParseQuery(queryPart)
		if err != nil {
			return Fragment{}, fmt.Errorf("fragment: bad parameter encoding: %w", err)
		}
		for key, list := range values {
			if len(list) > 0 {
				params[key] = list[0]
			}
		}
	}

	return Fragment{Location: location, Params: params}, nil
}
