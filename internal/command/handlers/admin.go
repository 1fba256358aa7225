// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

// handleMute mutes a player on the muter's personal channels. Any player
// may maintain their own mute set; the dispatcher audits the command.
func handleMute(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.MuteArgs)

	if strings.EqualFold(args.Target, sess.PlayerName) {
		return nil, command.ErrBadArguments("target", "you cannot mute yourself")
	}
	target, err := resolvePlayerName(ctx, svc, args.Target)
	if err != nil {
		return nil, err
	}

	svc.Mutes.MutePlayer(sess.PlayerName, target, args.Minutes)
	if args.Minutes > 0 {
		return &command.Result{Text: fmt.Sprintf("You have muted %s for %d minutes.", target, args.Minutes)}, nil
	}
	return &command.Result{Text: "You have muted " + target + "."}, nil
}

// handleUnmute lifts a personal mute.
func handleUnmute(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.MuteArgs)

	if !svc.Mutes.UnmutePlayer(sess.PlayerName, args.Target) {
		return &command.Result{Text: "You have not muted " + args.Target + "."}, nil
	}
	return &command.Result{Text: "You have unmuted " + args.Target + "."}, nil
}

// handleMuteGlobal bars a player from the global channel. Admin only.
func handleMuteGlobal(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.MuteArgs)

	target, err := resolvePlayerName(ctx, svc, args.Target)
	if err != nil {
		return nil, err
	}

	svc.Mutes.MuteGlobal(target, args.Minutes)
	if args.Minutes > 0 {
		return &command.Result{Text: fmt.Sprintf("%s is muted on the global channel for %d minutes.", target, args.Minutes)}, nil
	}
	return &command.Result{Text: target + " is muted on the global channel."}, nil
}

// handleUnmuteGlobal lifts a global-channel mute. Admin only.
func handleUnmuteGlobal(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.MuteArgs)

	if !svc.Mutes.UnmuteGlobal(args.Target) {
		return &command.Result{Text: args.Target + " is not muted on the global channel."}, nil
	}
	return &command.Result{Text: args.Target + " may speak on the global channel again."}, nil
}

// handleAddAdmin grants a player administrator rights. Admin only.
func handleAddAdmin(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.PlayerTargetArgs)

	p, err := svc.Players.GetByName(ctx, args.Target)
	if err != nil {
		if world.IsNotFound(err) {
			return nil, command.ErrTargetNotFound(args.Target)
		}
		return nil, err
	}
	if p.Admin {
		return &command.Result{Text: p.Name + " is already an administrator."}, nil
	}
	p.Admin = true
	if err := svc.Players.Save(ctx, p); err != nil {
		return nil, err
	}
	return &command.Result{Text: p.Name + " is now an administrator."}, nil
}

// handleTeleport summons an online player to the admin's room. Admin only.
func handleTeleport(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.PlayerTargetArgs)

	rec := findOnlineByName(svc, args.Target)
	if rec == nil {
		return nil, command.ErrTargetNotFound(args.Target)
	}
	if rec.PlayerID == sess.PlayerID {
		return nil, command.ErrBadArguments("target", "you are already here")
	}

	if err := relocate(ctx, svc, rec.PlayerID, rec.DisplayName, sess.RoomID,
		rec.DisplayName+" vanishes in a swirl of mist.",
		rec.DisplayName+" materializes out of the mist.",
	); err != nil {
		return nil, err
	}
	svc.Events.SendPersonal(ctx, rec.PlayerID, core.EventCommandResponse, map[string]any{
		"message": "The world dissolves and reforms around you.",
	})
	return &command.Result{Text: "You teleport " + rec.DisplayName + " to your location."}, nil
}

// handleGoto moves the admin directly to a room by id. Admin only.
func handleGoto(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.GotoArgs)

	target, err := svc.Rooms.Canonical(args.RoomID)
	if err != nil {
		return nil, command.ErrBadArguments("room", "no such room")
	}

	if err := relocate(ctx, svc, sess.PlayerID, sess.PlayerName, target,
		sess.PlayerName+" vanishes in a swirl of mist.",
		sess.PlayerName+" materializes out of the mist.",
	); err != nil {
		return nil, err
	}
	sess.RoomID = target
	return &command.Result{Text: renderRoom(ctx, svc, sess, target)}, nil
}

// resolvePlayerName maps a name argument to the stored player's exact
// name, so mute entries key on canonical spelling.
func resolvePlayerName(ctx context.Context, svc *command.Services, name string) (string, error) {
	if rec := findOnlineByName(svc, name); rec != nil {
		return rec.DisplayName, nil
	}
	p, err := svc.Players.GetByName(ctx, name)
	if err != nil {
		if world.IsNotFound(err) {
			return "", command.ErrTargetNotFound(name)
		}
		return "", err
	}
	return p.Name, nil
}
