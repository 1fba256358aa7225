// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"strings"

	"github.com/samber/oops"
)

// Error codes for the command pipeline. Every user-facing failure carries
// one of these so PlayerMessage can map it to presentable text without
// leaking internals.
const (
	CodeEmptyCommand       = "EMPTY_COMMAND"
	CodeCommandTooLong     = "COMMAND_TOO_LONG"
	CodeUnknownCommand     = "UNKNOWN_COMMAND"
	CodeBadArguments       = "BAD_ARGUMENTS"
	CodeInjectionBlocked   = "INJECTION_BLOCKED"
	CodeAliasCycle         = "ALIAS_CYCLE"
	CodeAliasDepthExceeded = "ALIAS_DEPTH_EXCEEDED"
	CodeAliasLimitReached  = "ALIAS_LIMIT_REACHED"
	CodeReservedName       = "RESERVED_NAME"
	CodeNotInCombat        = "NOT_IN_COMBAT"
	CodeTargetNotFound     = "TARGET_NOT_FOUND"
	CodeCannotRestInCombat = "CANNOT_REST_IN_COMBAT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeTimeout            = "TIMEOUT"
)

// ErrEmptyCommand creates an error for input that normalizes to nothing.
func ErrEmptyCommand() error {
	return oops.Code(CodeEmptyCommand).Errorf("empty command")
}

// ErrCommandTooLong creates an error for raw input exceeding the cap.
func ErrCommandTooLong(length, maxLen int) error {
	return oops.Code(CodeCommandTooLong).
		With("length", length).
		With("max", maxLen).
		Errorf("command exceeds maximum length of %d", maxLen)
}

// ErrUnknownCommand creates an error for an unrecognized head word.
func ErrUnknownCommand(head string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", head).
		Errorf("unknown command: %s", head)
}

// ErrBadArguments creates an error for a field failing variant validation.
func ErrBadArguments(field, reason string) error {
	return oops.Code(CodeBadArguments).
		With("field", field).
		With("reason", reason).
		Errorf("invalid %s: %s", field, reason)
}

// ErrInjectionChars creates an error for free text containing blocked
// characters.
func ErrInjectionChars(field string, chars []rune) error {
	return oops.Code(CodeInjectionBlocked).
		With("field", field).
		With("chars", string(chars)).
		Errorf("text contains forbidden characters: %s", string(chars))
}

// ErrInjectionPattern creates an error for free text matching a blocked
// pattern. The pattern name identifies the class, never the regex itself.
func ErrInjectionPattern(field, pattern string) error {
	return oops.Code(CodeInjectionBlocked).
		With("field", field).
		With("pattern", pattern).
		Errorf("text matches a forbidden %s pattern", pattern)
}

// ErrAliasCycle creates an error naming the cycle path, e.g. "a -> b -> a".
func ErrAliasCycle(path []string) error {
	return oops.Code(CodeAliasCycle).
		With("path", strings.Join(path, " -> ")).
		Errorf("circular alias: %s", strings.Join(path, " -> "))
}

// ErrAliasDepthExceeded creates an error for an alias chain deeper than the
// expansion cap.
func ErrAliasDepthExceeded(depth, maxDepth int) error {
	return oops.Code(CodeAliasDepthExceeded).
		With("depth", depth).
		With("max", maxDepth).
		Errorf("alias expansion exceeds depth limit of %d", maxDepth)
}

// ErrAliasLimitReached creates an error for a bundle at capacity.
func ErrAliasLimitReached(maxAliases int) error {
	return oops.Code(CodeAliasLimitReached).
		With("max", maxAliases).
		Errorf("alias limit of %d reached", maxAliases)
}

// ErrReservedName creates an error for an alias name or body head that
// shadows alias management commands.
func ErrReservedName(name string) error {
	return oops.Code(CodeReservedName).
		With("name", name).
		Errorf("%q is reserved", name)
}

// ErrTargetNotFound creates an error for a player or object name that does
// not resolve.
func ErrTargetNotFound(target string) error {
	return oops.Code(CodeTargetNotFound).
		With("target", target).
		Errorf("target not found: %s", target)
}

// ErrNotInCombat creates an error for combat commands issued out of combat.
func ErrNotInCombat() error {
	return oops.Code(CodeNotInCombat).Errorf("not in combat")
}

// ErrRateLimited creates an error for flooded sessions.
func ErrRateLimited(cooldownMs int64) error {
	return oops.Code(CodeRateLimited).
		With("cooldown_ms", cooldownMs).
		Errorf("too many commands")
}

// ErrTimeout creates an error for a handler exceeding the command deadline.
func ErrTimeout(commandName string) error {
	return oops.Code(CodeTimeout).
		With("command", commandName).
		Errorf("command %s timed out", commandName)
}

// PlayerMessage extracts a player-facing message from an error. Unknown or
// non-oops errors collapse to a generic message so internals never leak.
func PlayerMessage(err error) string {
	const generic = "An error occurred."

	if err == nil {
		return generic
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return generic
	}

	ctx := oopsErr.Context()
	switch oopsErr.Code() {
	case CodeEmptyCommand:
		return "What? Type 'help' for a list of commands."
	case CodeCommandTooLong:
		return "That command is too long."
	case CodeUnknownCommand:
		if cmd, ok := ctx["command"].(string); ok && cmd != "" {
			return "Unknown command: " + cmd + ". Try 'help'."
		}
		return "Unknown command. Try 'help'."
	case CodeBadArguments:
		field, _ := ctx["field"].(string)
		reason, _ := ctx["reason"].(string)
		if field != "" && reason != "" {
			return "Invalid " + field + ": " + reason
		}
		return "Invalid arguments."
	case CodeInjectionBlocked:
		if chars, ok := ctx["chars"].(string); ok && chars != "" {
			return "Your message contains forbidden characters: " + chars
		}
		return "Your message contains forbidden content."
	case CodeAliasCycle:
		if path, ok := ctx["path"].(string); ok && path != "" {
			return "Circular alias detected: " + path
		}
		return "Circular alias detected."
	case CodeAliasDepthExceeded:
		return "Alias expansion too deep."
	case CodeAliasLimitReached:
		return "You have reached the maximum number of aliases."
	case CodeReservedName:
		if name, ok := ctx["name"].(string); ok && name != "" {
			return "'" + name + "' is a reserved word."
		}
		return "That name is reserved."
	case CodeNotInCombat:
		return "You are not in combat."
	case CodeTargetNotFound:
		if target, ok := ctx["target"].(string); ok && target != "" {
			return "You don't see '" + target + "' here."
		}
		return "Target not found."
	case CodeCannotRestInCombat:
		return "You cannot rest while in combat!"
	case CodeRateLimited:
		return "Too many commands. Please slow down."
	case CodeTimeout:
		return "That took too long. Try again."
	default:
		return generic
	}
}
