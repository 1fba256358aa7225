// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"regexp"
	"strings"
)

// Per-variant length bounds for free-text fields.
const (
	MaxSayLength     = 500
	MaxSystemLength  = 2000
	MaxEmoteLength   = 200
	MaxPoseLength    = 100
	MaxWhisperLength = 2000

	MaxPlayerNameLength = 50
	MaxMuteMinutes      = 10080 // one week
)

// blockedChars are characters rejected outright in any free-text field.
// They cover shell, SQL, and template injection primitives.
const blockedChars = `<>&"';|` + "`" + `$()`

// injectionPatterns are case-insensitive patterns rejected in free text.
// The name is what surfaces to the player; the regex never does.
var injectionPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"shell", regexp.MustCompile(`(?i)(\brm\s+-rf\b|\bsudo\b|\bchmod\b|&&|\|\|)`)},
	{"sql", regexp.MustCompile(`(?i)\b(and|or)\s*=\s*['"]?\w+`)},
	{"code", regexp.MustCompile(`(?i)(__import__\(|eval\(|exec\(|system\(|os\.)`)},
	{"format", regexp.MustCompile(`%[a-zA-Z]`)},
}

// playerNamePattern validates player name arguments.
var playerNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// directions is the closed set of movement directions.
var directions = map[string]struct{}{
	"north": {}, "south": {}, "east": {}, "west": {}, "up": {}, "down": {},
}

// ScreenFreeText applies the injection screen to a free-text field: blocked
// characters first, then pattern classes, then the per-variant length
// bound. field names the argument in errors ("message", "pose", ...).
func ScreenFreeText(field, text string, maxLen int) error {
	var bad []rune
	seen := map[rune]struct{}{}
	for _, r := range text {
		if strings.ContainsRune(blockedChars, r) {
			if _, dup := seen[r]; !dup {
				seen[r] = struct{}{}
				bad = append(bad, r)
			}
		}
	}
	if len(bad) > 0 {
		return ErrInjectionChars(field, bad)
	}

	for _, p := range injectionPatterns {
		if p.re.MatchString(text) {
			return ErrInjectionPattern(field, p.name)
		}
	}

	if text == "" {
		return ErrBadArguments(field, "cannot be empty")
	}
	if len(text) > maxLen {
		return ErrBadArguments(field, "too long")
	}
	return nil
}

// ValidatePlayerName validates a player-name argument.
func ValidatePlayerName(name string) error {
	if name == "" {
		return ErrBadArguments("player name", "cannot be empty")
	}
	if len(name) > MaxPlayerNameLength {
		return ErrBadArguments("player name", "too long")
	}
	if !playerNamePattern.MatchString(name) {
		return ErrBadArguments("player name", "must start with a letter and contain only letters, digits, underscores, or hyphens")
	}
	return nil
}

// ValidateDirection validates a movement direction.
func ValidateDirection(dir string) error {
	if _, ok := directions[dir]; !ok {
		return ErrBadArguments("direction", "must be north, south, east, west, up, or down")
	}
	return nil
}

// ValidateMuteMinutes validates a mute duration in minutes.
func ValidateMuteMinutes(minutes int) error {
	if minutes < 1 || minutes > MaxMuteMinutes {
		return ErrBadArguments("duration", "must be between 1 and 10080 minutes")
	}
	return nil
}
