// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/core"
)

// findOnlineByName resolves a display name to an online session.
func findOnlineByName(svc *command.Services, name string) *core.SessionRecord {
	for _, rec := range svc.Sessions.ListSessions() {
		if strings.EqualFold(rec.DisplayName, name) && svc.Sessions.IsOnline(rec.PlayerID) {
			return rec
		}
	}
	return nil
}

// sendRoomFiltered delivers a room-channel line to every subscriber of
// the speaker's room except the speaker, skipping listeners who muted
// the speaker. Delivery is per-player so the mute check can apply to
// each listener individually.
func sendRoomFiltered(ctx context.Context, svc *command.Services, sess *command.Session, text string) {
	for _, id := range svc.Sessions.RoomSubscribers(sess.RoomID) {
		if id == sess.PlayerID {
			continue
		}
		listener := svc.Sessions.GetSession(id)
		if listener == nil {
			continue
		}
		if svc.Mutes != nil && svc.Mutes.IsMuted(listener.DisplayName, sess.PlayerName) {
			continue
		}
		svc.Events.SendPersonal(ctx, id, core.EventCommandResponse, map[string]any{
			"message": text,
		})
	}
}

// handleSay broadcasts a message to the speaker's room.
func handleSay(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.ChatArgs)
	sendRoomFiltered(ctx, svc, sess, fmt.Sprintf("%s says, '%s'", sess.PlayerName, args.Message))
	return &command.Result{Text: fmt.Sprintf("You say, '%s'", args.Message)}, nil
}

// handleLocal broadcasts on the local channel. Local shares the room
// scope but carries a channel tag so clients can style it apart.
func handleLocal(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.ChatArgs)
	sendRoomFiltered(ctx, svc, sess, fmt.Sprintf("[Local] %s: %s", sess.PlayerName, args.Message))
	return &command.Result{Text: fmt.Sprintf("[Local] You: %s", args.Message)}, nil
}

// handleGlobal broadcasts to every online player. Globally muted
// speakers are rejected; personal mutes still filter per listener.
func handleGlobal(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.ChatArgs)

	if svc.Mutes != nil && svc.Mutes.IsGlobalMuted(sess.PlayerName) {
		return &command.Result{Text: "You are muted on the global channel."}, nil
	}

	for _, id := range svc.Sessions.OnlinePlayers() {
		if id == sess.PlayerID {
			continue
		}
		listener := svc.Sessions.GetSession(id)
		if listener == nil {
			continue
		}
		if svc.Mutes != nil && svc.Mutes.IsMuted(listener.DisplayName, sess.PlayerName) {
			continue
		}
		svc.Events.SendPersonal(ctx, id, core.EventCommandResponse, map[string]any{
			"message": fmt.Sprintf("[Global] %s: %s", sess.PlayerName, args.Message),
		})
	}
	return &command.Result{Text: fmt.Sprintf("[Global] You: %s", args.Message)}, nil
}

// handleWhisper sends a private message to a named online player and
// records the whisperer for reply. Whispers to a listener who muted the
// sender are dropped silently; the sender still sees the usual echo.
func handleWhisper(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.WhisperArgs)
	return whisperTo(ctx, sess, svc, args.Target, args.Message)
}

// handleReply whispers to whoever last whispered to the player.
func handleReply(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.ReplyArgs)
	if svc.Replies == nil {
		return &command.Result{Text: "You have no one to reply to."}, nil
	}
	target, ok := svc.Replies.LastWhisperer(sess.PlayerID)
	if !ok {
		return &command.Result{Text: "You have no one to reply to."}, nil
	}
	return whisperTo(ctx, sess, svc, target, args.Message)
}

func whisperTo(ctx context.Context, sess *command.Session, svc *command.Services, target, message string) (*command.Result, error) {
	if strings.EqualFold(target, sess.PlayerName) {
		return nil, command.ErrBadArguments("target", "you cannot whisper to yourself")
	}

	rec := findOnlineByName(svc, target)
	if rec == nil {
		return nil, command.ErrTargetNotFound(target)
	}

	muted := svc.Mutes != nil && svc.Mutes.IsMuted(rec.DisplayName, sess.PlayerName)
	if !muted {
		svc.Events.SendPersonal(ctx, rec.PlayerID, core.EventCommandResponse, map[string]any{
			"message": fmt.Sprintf("%s whispers to you, '%s'", sess.PlayerName, message),
		})
		if svc.Replies != nil {
			svc.Replies.SetLastWhisperer(rec.PlayerID, sess.PlayerName)
		}
	}
	return &command.Result{Text: fmt.Sprintf("You whisper to %s, '%s'", rec.DisplayName, message)}, nil
}

// handleEmote shows a free-form action to the room.
func handleEmote(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.EmoteArgs)
	line := sess.PlayerName + " " + args.Action
	svc.Events.BroadcastRoom(ctx, sess.RoomID, core.EventCommandResponse, map[string]any{
		"message": line,
	}, &sess.PlayerID)
	return &command.Result{Text: line}, nil
}

// handlePose stores a persistent pose on the player record. The pose
// shows up in look output until movement clears it.
func handlePose(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.PoseArgs)
	p, err := svc.Players.Get(ctx, sess.PlayerID)
	if err != nil {
		return nil, err
	}
	p.Pose = args.Pose
	if err := svc.Players.Save(ctx, p); err != nil {
		return nil, err
	}
	return &command.Result{Text: "You are now posing: " + args.Pose}, nil
}

// handlePredefEmote plays one of the builtin emotes: the self line goes
// back as the result, the room line goes to everyone else.
func handlePredefEmote(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.PredefEmoteArgs)
	pair, ok := command.PredefinedEmotes[args.Name]
	if !ok {
		return nil, command.ErrUnknownCommand(args.Name)
	}
	svc.Events.BroadcastRoom(ctx, sess.RoomID, core.EventCommandResponse, map[string]any{
		"message": fmt.Sprintf(pair[1], sess.PlayerName),
	}, &sess.PlayerID)
	return &command.Result{Text: pair[0]}, nil
}
