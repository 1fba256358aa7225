// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

// Package handlers implements the command variant handlers and wires
// them into the dispatcher's registry. Handlers speak through the
// services: room and channel traffic goes out as events, player-visible
// confirmations come back as results, and user-input failures surface
// as coded errors the dispatcher maps to presentable text.
package handlers

import (
	"github.com/mythosmud/mythosmud/internal/command"
)

// Register installs every command variant into the registry. Movement,
// combat entry, spellcasting, and standing up interrupt a running rest
// countdown; chat and inspection commands leave it alone.
func Register(reg *command.Registry) error {
	entries := []command.Entry{
		{Verb: command.VerbLook, Handler: handleLook,
			Help: "describe the room, or a player or creature in it", Usage: "look [target]"},
		{Verb: command.VerbGo, Handler: handleGo, CancelsRest: true,
			Help: "move through an exit", Usage: "go <north|south|east|west|up|down>"},

		{Verb: command.VerbSay, Handler: handleSay,
			Help: "speak to the room", Usage: "say <message>"},
		{Verb: command.VerbLocal, Handler: handleLocal,
			Help: "speak on the local channel", Usage: "local <message>"},
		{Verb: command.VerbGlobal, Handler: handleGlobal,
			Help: "speak to every dreamer online", Usage: "global <message>"},
		{Verb: command.VerbWhisper, Handler: handleWhisper,
			Help: "send a private message", Usage: "whisper <player> <message>"},
		{Verb: command.VerbReply, Handler: handleReply,
			Help: "reply to your last whisperer", Usage: "reply <message>"},
		{Verb: command.VerbEmote, Handler: handleEmote,
			Help: "perform a free-form action", Usage: "emote <action>"},
		{Verb: command.VerbPose, Handler: handlePose,
			Help: "strike a pose shown by look", Usage: "pose <text>"},
		{Verb: command.VerbPredefEmote, Handler: handlePredefEmote,
			Help: "perform a builtin emote", Usage: "twitch | shudder | mutter | cackle | gibber"},

		{Verb: command.VerbAlias, Handler: handleAlias,
			Help: "define or show a command alias", Usage: "alias <name> [command]"},
		{Verb: command.VerbAliases, Handler: handleAliases,
			Help: "list your aliases", Usage: "aliases"},
		{Verb: command.VerbUnalias, Handler: handleUnalias,
			Help: "remove an alias", Usage: "unalias <name>"},

		{Verb: command.VerbMute, Handler: handleMute,
			Help: "mute a player on your channels", Usage: "mute <player> [minutes]"},
		{Verb: command.VerbUnmute, Handler: handleUnmute,
			Help: "lift one of your mutes", Usage: "unmute <player>"},
		{Verb: command.VerbMuteGlobal, Handler: handleMuteGlobal, AdminOnly: true,
			Help: "bar a player from the global channel", Usage: "mute_global <player> [minutes]"},
		{Verb: command.VerbUnmuteGlobal, Handler: handleUnmuteGlobal, AdminOnly: true,
			Help: "lift a global-channel mute", Usage: "unmute_global <player>"},
		{Verb: command.VerbAddAdmin, Handler: handleAddAdmin, AdminOnly: true,
			Help: "grant administrator rights", Usage: "addadmin <player>"},
		{Verb: command.VerbTeleport, Handler: handleTeleport, AdminOnly: true,
			Help: "summon a player to your location", Usage: "teleport <player>"},
		{Verb: command.VerbGoto, Handler: handleGoto, AdminOnly: true, CancelsRest: true,
			Help: "move directly to a room", Usage: "goto <room id>"},

		{Verb: command.VerbWho, Handler: handleWho,
			Help: "list online players", Usage: "who [pattern]"},
		{Verb: command.VerbStatus, Handler: handleStatus,
			Help: "show your vitals and location", Usage: "status"},
		{Verb: command.VerbInventory, Handler: handleInventory,
			Help: "list what you carry", Usage: "inventory"},

		{Verb: command.VerbQuit, Handler: handleQuit,
			Help: "leave the dream", Usage: "quit"},
		{Verb: command.VerbRest, Handler: handleRest,
			Help: "rest and depart gracefully", Usage: "rest"},

		{Verb: command.VerbAttack, Handler: handleAttack, CancelsRest: true,
			Help: "attack a target in the room", Usage: "attack <target>"},
		{Verb: command.VerbFlee, Handler: handleFlee,
			Help: "flee from combat", Usage: "flee"},
		{Verb: command.VerbCast, Handler: handleCast, CancelsRest: true,
			Help: "cast a spell", Usage: "cast <spell> [target]"},

		{Verb: command.VerbStand, Handler: handleStand, CancelsRest: true,
			Help: "stand up", Usage: "stand"},
		{Verb: command.VerbSit, Handler: handleSit,
			Help: "sit down", Usage: "sit"},
	}

	for _, e := range entries {
		if err := reg.Register(e); err != nil {
			return err
		}
	}

	return reg.Register(command.Entry{
		Verb:    command.VerbHelp,
		Handler: newHelpHandler(reg),
		Help:    "show this list, or help on a command",
		Usage:   "help [command]",
	})
}
