// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"strconv"
	"strings"
)

// Verb identifies a command variant. The set is closed: the parser maps
// head words onto it and the dispatcher's handler table is keyed by it.
type Verb string

// The closed command set.
const (
	VerbLook         Verb = "look"
	VerbGo           Verb = "go"
	VerbSay          Verb = "say"
	VerbLocal        Verb = "local"
	VerbGlobal       Verb = "global"
	VerbWhisper      Verb = "whisper"
	VerbReply        Verb = "reply"
	VerbEmote        Verb = "emote"
	VerbPose         Verb = "pose"
	VerbAlias        Verb = "alias"
	VerbAliases      Verb = "aliases"
	VerbUnalias      Verb = "unalias"
	VerbHelp         Verb = "help"
	VerbMute         Verb = "mute"
	VerbUnmute       Verb = "unmute"
	VerbMuteGlobal   Verb = "mute_global"
	VerbUnmuteGlobal Verb = "unmute_global"
	VerbAddAdmin     Verb = "add_admin"
	VerbTeleport     Verb = "teleport"
	VerbGoto         Verb = "goto"
	VerbWho          Verb = "who"
	VerbStatus       Verb = "status"
	VerbInventory    Verb = "inventory"
	VerbQuit         Verb = "quit"
	VerbRest         Verb = "rest"
	VerbAttack       Verb = "attack"
	VerbFlee         Verb = "flee"
	VerbCast         Verb = "cast"
	VerbStand        Verb = "stand"
	VerbSit          Verb = "sit"
	VerbPredefEmote  Verb = "predef_emote"
)

// shortAliases resolve single-letter channel shorthands before lookup.
var shortAliases = map[string]string{
	"l": "local",
	"w": "whisper",
	"g": "global",
}

// PredefinedEmotes is the builtin emote table: head word to the
// self/room message pair.
var PredefinedEmotes = map[string][2]string{
	"twitch":  {"You twitch nervously.", "%s twitches nervously."},
	"shudder": {"You shudder, remembering things best forgotten.", "%s shudders violently."},
	"mutter":  {"You mutter syllables no human throat should shape.", "%s mutters in an unknown tongue."},
	"cackle":  {"You cackle with unsettling glee.", "%s cackles with unsettling glee."},
	"gibber":  {"You gibber incoherently.", "%s gibbers incoherently."},
}

// Args is the per-variant argument record attached to a Command.
type Args interface{ isArgs() }

// LookArgs — LOOK, optionally at a target.
type LookArgs struct{ Target string }

// GoArgs — GO in a validated direction.
type GoArgs struct{ Direction string }

// ChatArgs — SAY, LOCAL, and GLOBAL channel messages.
type ChatArgs struct{ Message string }

// WhisperArgs — WHISPER to a named player.
type WhisperArgs struct {
	Target  string
	Message string
}

// ReplyArgs — REPLY to the last whisperer.
type ReplyArgs struct{ Message string }

// EmoteArgs — EMOTE free-form action text.
type EmoteArgs struct{ Action string }

// PoseArgs — POSE text shown by look.
type PoseArgs struct{ Pose string }

// AliasArgs — ALIAS definition. Empty Body shows the alias instead.
type AliasArgs struct {
	Name string
	Body string
}

// UnaliasArgs — UNALIAS removal.
type UnaliasArgs struct{ Name string }

// HelpArgs — HELP, optionally on a topic.
type HelpArgs struct{ Topic string }

// MuteArgs — MUTE/UNMUTE and their GLOBAL channel forms.
type MuteArgs struct {
	Target  string
	Minutes int // 0 means indefinite
	Global  bool
}

// PlayerTargetArgs — ADD_ADMIN, TELEPORT, ATTACK: a single player target.
type PlayerTargetArgs struct{ Target string }

// GotoArgs — GOTO a room by id.
type GotoArgs struct{ RoomID string }

// WhoArgs — WHO with an optional glob name filter.
type WhoArgs struct{ Pattern string }

// CastArgs — CAST a spell, optionally at a target.
type CastArgs struct {
	Spell  string
	Target string
}

// PredefEmoteArgs — a builtin emote from PredefinedEmotes.
type PredefEmoteArgs struct{ Name string }

// NoArgs — variants taking no arguments.
type NoArgs struct{}

func (LookArgs) isArgs()         {}
func (GoArgs) isArgs()           {}
func (ChatArgs) isArgs()         {}
func (WhisperArgs) isArgs()      {}
func (ReplyArgs) isArgs()        {}
func (EmoteArgs) isArgs()        {}
func (PoseArgs) isArgs()         {}
func (AliasArgs) isArgs()        {}
func (UnaliasArgs) isArgs()      {}
func (HelpArgs) isArgs()         {}
func (MuteArgs) isArgs()         {}
func (PlayerTargetArgs) isArgs() {}
func (GotoArgs) isArgs()         {}
func (WhoArgs) isArgs()          {}
func (CastArgs) isArgs()         {}
func (PredefEmoteArgs) isArgs()  {}
func (NoArgs) isArgs()           {}

// Command is a validated command value: the variant tag, its typed
// arguments, and the head word it was invoked as.
type Command struct {
	Verb      Verb
	Args      Args
	InvokedAs string
}

// Parse turns normalized text into a Command or a categorized error. The
// head word is lowercased, short channel aliases are resolved, and the
// per-variant constructor validates the arguments. Player aliases are
// expanded before Parse is called; a head that is neither a command nor a
// predefined emote is unknown.
func Parse(text string) (Command, error) {
	if strings.TrimSpace(text) == "" {
		return Command{}, ErrEmptyCommand()
	}

	head, args := splitFirstWord(text)
	invokedAs := head
	head = strings.ToLower(head)
	if full, ok := shortAliases[head]; ok {
		head = full
	}

	if _, ok := PredefinedEmotes[head]; ok {
		if args != "" {
			return Command{}, ErrBadArguments(head, "takes no arguments")
		}
		return Command{Verb: VerbPredefEmote, Args: PredefEmoteArgs{Name: head}, InvokedAs: invokedAs}, nil
	}

	cmd := Command{InvokedAs: invokedAs}
	var err error

	switch head {
	case "look", "examine":
		cmd.Verb = VerbLook
		cmd.Args = LookArgs{Target: args}

	case "go", "move":
		cmd.Verb = VerbGo
		cmd.Args, err = parseGo(args)
	case "north", "south", "east", "west", "up", "down":
		cmd.Verb = VerbGo
		cmd.Args, err = parseGo(head)

	case "say":
		cmd.Verb = VerbSay
		cmd.Args, err = parseChat("message", args, MaxSayLength)
	case "local":
		cmd.Verb = VerbLocal
		cmd.Args, err = parseChat("message", args, MaxSayLength)
	case "global":
		cmd.Verb = VerbGlobal
		cmd.Args, err = parseChat("message", args, MaxSystemLength)
	case "whisper":
		cmd.Verb = VerbWhisper
		cmd.Args, err = parseWhisper(args)
	case "reply":
		cmd.Verb = VerbReply
		if err = ScreenFreeText("message", args, MaxWhisperLength); err == nil {
			cmd.Args = ReplyArgs{Message: args}
		}

	case "emote", "me":
		cmd.Verb = VerbEmote
		if err = ScreenFreeText("action", args, MaxEmoteLength); err == nil {
			cmd.Args = EmoteArgs{Action: args}
		}
	case "pose":
		cmd.Verb = VerbPose
		if err = ScreenFreeText("pose", args, MaxPoseLength); err == nil {
			cmd.Args = PoseArgs{Pose: args}
		}

	case "alias":
		cmd.Verb = VerbAlias
		cmd.Args, err = parseAlias(args)
	case "aliases":
		cmd.Verb = VerbAliases
		cmd.Args = NoArgs{}
	case "unalias":
		cmd.Verb = VerbUnalias
		if args == "" {
			err = ErrBadArguments("alias name", "usage: unalias <name>")
		} else {
			cmd.Args = UnaliasArgs{Name: args}
		}

	case "help":
		cmd.Verb = VerbHelp
		cmd.Args = HelpArgs{Topic: strings.ToLower(args)}

	case "mute":
		cmd.Verb = VerbMute
		cmd.Args, err = parseMute(args, false)
	case "unmute":
		cmd.Verb = VerbUnmute
		cmd.Args, err = parseUnmute(args, false)
	case "mute_global", "muteglobal":
		cmd.Verb = VerbMuteGlobal
		cmd.Args, err = parseMute(args, true)
	case "unmute_global", "unmuteglobal":
		cmd.Verb = VerbUnmuteGlobal
		cmd.Args, err = parseUnmute(args, true)

	case "addadmin", "add_admin":
		cmd.Verb = VerbAddAdmin
		cmd.Args, err = parsePlayerTarget(args, "addadmin <player>")
	case "teleport":
		cmd.Verb = VerbTeleport
		cmd.Args, err = parsePlayerTarget(args, "teleport <player>")
	case "goto":
		cmd.Verb = VerbGoto
		if args == "" {
			err = ErrBadArguments("room", "usage: goto <room id>")
		} else {
			cmd.Args = GotoArgs{RoomID: strings.ToLower(args)}
		}

	case "who":
		cmd.Verb = VerbWho
		cmd.Args = WhoArgs{Pattern: args}
	case "status", "score":
		cmd.Verb = VerbStatus
		cmd.Args = NoArgs{}
	case "inventory", "inv", "i":
		cmd.Verb = VerbInventory
		cmd.Args = NoArgs{}

	case "quit", "logout":
		cmd.Verb = VerbQuit
		cmd.Args = NoArgs{}
	case "rest":
		cmd.Verb = VerbRest
		cmd.Args = NoArgs{}

	case "attack", "kill":
		cmd.Verb = VerbAttack
		cmd.Args, err = parsePlayerTarget(args, "attack <target>")
	case "flee":
		cmd.Verb = VerbFlee
		cmd.Args = NoArgs{}
	case "cast":
		cmd.Verb = VerbCast
		cmd.Args, err = parseCast(args)

	case "stand":
		cmd.Verb = VerbStand
		cmd.Args = NoArgs{}
	case "sit":
		cmd.Verb = VerbSit
		cmd.Args = NoArgs{}

	default:
		return Command{}, ErrUnknownCommand(head)
	}

	if err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// knownHeads is every head word the parser recognizes, including synonyms.
var knownHeads = map[string]struct{}{
	"look": {}, "examine": {},
	"go": {}, "move": {},
	"north": {}, "south": {}, "east": {}, "west": {}, "up": {}, "down": {},
	"say": {}, "local": {}, "global": {}, "whisper": {}, "reply": {},
	"emote": {}, "me": {}, "pose": {},
	"alias": {}, "aliases": {}, "unalias": {},
	"help": {},
	"mute": {}, "unmute": {},
	"mute_global": {}, "muteglobal": {}, "unmute_global": {}, "unmuteglobal": {},
	"addadmin": {}, "add_admin": {}, "teleport": {}, "goto": {},
	"who": {}, "status": {}, "score": {},
	"inventory": {}, "inv": {}, "i": {},
	"quit": {}, "logout": {}, "rest": {},
	"attack": {}, "kill": {}, "flee": {}, "cast": {},
	"stand": {}, "sit": {},
}

// IsKnownHead reports whether head resolves to a command variant or
// predefined emote. Used by the alias store to keep alias names from
// shadowing the closed set, and by the dispatcher to decide whether a
// head word is eligible for alias resolution.
func IsKnownHead(head string) bool {
	head = strings.ToLower(head)
	if full, ok := shortAliases[head]; ok {
		head = full
	}
	if _, ok := PredefinedEmotes[head]; ok {
		return true
	}
	_, ok := knownHeads[head]
	return ok
}

func parseGo(args string) (Args, error) {
	dir := strings.ToLower(strings.TrimSpace(args))
	if dir == "" {
		return nil, ErrBadArguments("direction", "usage: go <direction>")
	}
	if err := ValidateDirection(dir); err != nil {
		return nil, err
	}
	return GoArgs{Direction: dir}, nil
}

func parseChat(field, message string, maxLen int) (Args, error) {
	if err := ScreenFreeText(field, message, maxLen); err != nil {
		return nil, err
	}
	return ChatArgs{Message: message}, nil
}

func parseWhisper(args string) (Args, error) {
	target, message := splitFirstWord(args)
	if target == "" || message == "" {
		return nil, ErrBadArguments("whisper", "usage: whisper <player> <message>")
	}
	if err := ValidatePlayerName(target); err != nil {
		return nil, err
	}
	if err := ScreenFreeText("message", message, MaxWhisperLength); err != nil {
		return nil, err
	}
	return WhisperArgs{Target: target, Message: message}, nil
}

func parseAlias(args string) (Args, error) {
	name, body := splitFirstWord(args)
	if name == "" {
		return nil, ErrBadArguments("alias", "usage: alias <name> <command>")
	}
	// Body validation happens in the alias store; the empty-body form
	// shows the alias instead of defining one.
	return AliasArgs{Name: name, Body: body}, nil
}

func parseMute(args string, global bool) (Args, error) {
	target, rest := splitFirstWord(args)
	if target == "" {
		usage := "mute <player> [minutes]"
		if global {
			usage = "mute_global <player> [minutes]"
		}
		return nil, ErrBadArguments("mute", "usage: "+usage)
	}
	if err := ValidatePlayerName(target); err != nil {
		return nil, err
	}
	minutes := 0
	if rest != "" {
		n, convErr := strconv.Atoi(rest)
		if convErr != nil {
			return nil, ErrBadArguments("duration", "must be a whole number of minutes")
		}
		if err := ValidateMuteMinutes(n); err != nil {
			return nil, err
		}
		minutes = n
	}
	return MuteArgs{Target: target, Minutes: minutes, Global: global}, nil
}

func parseUnmute(args string, global bool) (Args, error) {
	target := strings.TrimSpace(args)
	if target == "" {
		return nil, ErrBadArguments("unmute", "usage: unmute <player>")
	}
	if err := ValidatePlayerName(target); err != nil {
		return nil, err
	}
	return MuteArgs{Target: target, Global: global}, nil
}

func parsePlayerTarget(args, usage string) (Args, error) {
	target := strings.TrimSpace(args)
	if target == "" {
		return nil, ErrBadArguments("target", "usage: "+usage)
	}
	if err := ValidatePlayerName(target); err != nil {
		return nil, err
	}
	return PlayerTargetArgs{Target: target}, nil
}

func parseCast(args string) (Args, error) {
	spell, target := splitFirstWord(args)
	if spell == "" {
		return nil, ErrBadArguments("spell", "usage: cast <spell> [target]")
	}
	if target != "" {
		if err := ValidatePlayerName(target); err != nil {
			return nil, err
		}
	}
	return CastArgs{Spell: strings.ToLower(spell), Target: target}, nil
}
