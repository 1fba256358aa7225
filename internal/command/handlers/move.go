// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/core"
)

// handleGo moves the player through a room exit. Movement clears the
// pose and ends any rest countdown (the dispatcher cancelled it before
// the handler ran).
func handleGo(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.GoArgs)

	target, ok := svc.Rooms.Exit(sess.RoomID, args.Direction)
	if !ok {
		return &command.Result{Text: "You can't go that way."}, nil
	}

	if err := relocate(ctx, svc, sess.PlayerID, sess.PlayerName, target,
		sess.PlayerName+" leaves "+args.Direction+".",
		sess.PlayerName+" arrives.",
	); err != nil {
		return nil, err
	}

	// Later segments of a command chain act from the new room.
	sess.RoomID = target
	return &command.Result{Text: renderRoom(ctx, svc, sess, target)}, nil
}

// relocate moves a player's session and record to a new room, announcing
// the departure to the old room and the arrival to the new one. The pose
// is cleared: poses do not travel.
func relocate(ctx context.Context, svc *command.Services, playerID uuid.UUID, playerName, target, departLine, arriveLine string) error {
	from := ""
	if rec := svc.Sessions.GetSession(playerID); rec != nil {
		from = rec.RoomID
	}

	if from != "" && departLine != "" {
		svc.Events.BroadcastRoom(ctx, from, core.EventCommandResponse, map[string]any{
			"message": departLine,
		}, &playerID)
	}

	if err := svc.Sessions.SetRoom(playerID, target); err != nil {
		return err
	}

	p, err := svc.Players.Get(ctx, playerID)
	if err != nil {
		return err
	}
	p.RoomID = target
	p.Pose = ""
	if err := svc.Players.Save(ctx, p); err != nil {
		return err
	}

	if arriveLine != "" {
		svc.Events.BroadcastRoom(ctx, target, core.EventCommandResponse, map[string]any{
			"message": arriveLine,
		}, &playerID)
	}
	return nil
}
