// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"

	"github.com/samber/oops"

	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

// handleQuit marks the disconnect intentional and directs the connection
// layer to close the player's transports after the farewell.
func handleQuit(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	svc.Sessions.MarkIntentional(sess.PlayerID)
	return &command.Result{Text: "The mists close around you. Farewell.", Logout: true}, nil
}

// handleRest starts the rest countdown. In rooms flagged as rest
// locations the registry completes the rest immediately instead.
func handleRest(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	err := svc.Sessions.BeginRest(ctx, sess.PlayerID, 0)
	if err != nil {
		if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() == core.CodeDuplicateRest {
			return &command.Result{Text: "You are already resting."}, nil
		}
		return nil, err
	}
	return &command.Result{Text: "You settle down to rest..."}, nil
}

// handleStand puts the player on their feet.
func handleStand(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	return setPosture(ctx, sess, svc, core.PositionStanding, world.PositionStanding, "You stand up.")
}

// handleSit sits the player down.
func handleSit(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	return setPosture(ctx, sess, svc, core.PositionSitting, world.PositionSitting, "You sit down.")
}

// setPosture updates the posture on both the session and the persistent
// record; the record is what status reports.
func setPosture(ctx context.Context, sess *command.Session, svc *command.Services, sessionPos core.Position, recordPos world.Position, text string) (*command.Result, error) {
	svc.Sessions.SetPosition(sess.PlayerID, sessionPos)

	p, err := svc.Players.Get(ctx, sess.PlayerID)
	if err != nil {
		return nil, err
	}
	p.Position = recordPos
	if err := svc.Players.Save(ctx, p); err != nil {
		return nil, err
	}
	return &command.Result{Text: text}, nil
}
