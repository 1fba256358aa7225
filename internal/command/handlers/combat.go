// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"

	"github.com/mythosmud/mythosmud/internal/command"
)

// handleAttack engages a named target in the room. The combat engine
// announces the encounter to the room; the handler adds nothing.
func handleAttack(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.PlayerTargetArgs)
	if svc.Combat == nil {
		return &command.Result{Text: "Violence solves nothing here."}, nil
	}
	if err := svc.Combat.Engage(ctx, sess.PlayerID, args.Target); err != nil {
		return nil, err
	}
	return &command.Result{}, nil
}

// handleFlee disengages from the player's current encounter.
func handleFlee(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	if svc.Combat == nil {
		return nil, command.ErrNotInCombat()
	}
	if err := svc.Combat.Disengage(ctx, sess.PlayerID); err != nil {
		return nil, err
	}
	return &command.Result{Text: "You flee from combat!"}, nil
}

// handleCast starts a spell casting. The casting engine times the ritual
// and announces progress; the handler confirms the start.
func handleCast(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.CastArgs)
	if svc.Casting == nil {
		return &command.Result{Text: "The words of power escape you."}, nil
	}
	if err := svc.Casting.BeginCast(ctx, sess.PlayerID, args.Spell, args.Target); err != nil {
		return nil, err
	}
	return &command.Result{Text: "You begin casting " + args.Spell + "."}, nil
}
