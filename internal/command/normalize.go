// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"regexp"
	"strings"
)

// DefaultMaxCommandLength is the hard cap on raw input, in octets.
const DefaultMaxCommandLength = 1000

// ansiPattern matches ANSI/VT escape sequences: CSI sequences and the
// two-byte ESC forms.
var ansiPattern = regexp.MustCompile(`\x1b(\[[0-9;?]*[ -/]*[@-~]|[@-Z\\-_])`)

// Normalize scrubs raw client input into the canonical form the parser
// operates on. In order: enforce the length cap, strip one optional
// leading '/', strip ANSI escape sequences, drop control bytes (keeping
// tab, newline, and space), collapse whitespace runs, and trim.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x). The
// only failure is the length cap. Input that scrubs away entirely returns
// the empty string without error; the parser reports that as an empty
// command.
func Normalize(raw string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxCommandLength
	}
	if len(raw) > maxLen {
		return "", ErrCommandTooLong(len(raw), maxLen)
	}

	s := strings.TrimPrefix(raw, "/")
	s = ansiPattern.ReplaceAllString(s, "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == 0 {
			continue
		}
		if r < 0x20 && r != '\t' && r != '\n' {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " "), nil
}
