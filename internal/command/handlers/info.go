// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mythosmud/mythosmud/internal/command"
)

// handleWho lists online players, optionally filtered by a glob pattern
// over display names.
func handleWho(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.WhoArgs)

	var matcher glob.Glob
	if args.Pattern != "" {
		g, err := glob.Compile(strings.ToLower(args.Pattern))
		if err != nil {
			return nil, command.ErrBadArguments("pattern", "not a valid name pattern")
		}
		matcher = g
	}

	var names []string
	for _, id := range svc.Sessions.OnlinePlayers() {
		rec := svc.Sessions.GetSession(id)
		if rec == nil {
			continue
		}
		if matcher != nil && !matcher.Match(strings.ToLower(rec.DisplayName)) {
			continue
		}
		names = append(names, rec.DisplayName)
	}
	sort.Strings(names)

	if len(names) == 0 {
		if args.Pattern != "" {
			return &command.Result{Text: "No one matching '" + args.Pattern + "' is online."}, nil
		}
		return &command.Result{Text: "No one is online."}, nil
	}

	noun := "dreamers"
	if len(names) == 1 {
		noun = "dreamer"
	}
	return &command.Result{
		Text: fmt.Sprintf("%d %s online:\n  %s", len(names), noun, strings.Join(names, "\n  ")),
	}, nil
}

// handleStatus reports the player's vitals, posture, and location.
func handleStatus(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	p, err := svc.Players.Get(ctx, sess.PlayerID)
	if err != nil {
		return nil, err
	}

	roomName := sess.RoomID
	if room, ok := svc.Rooms.Get(sess.RoomID); ok {
		roomName = room.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", p.Name)
	fmt.Fprintf(&b, "  HP: %d/%d  MP: %d/%d\n", p.HP, p.MaxHP, p.MP, p.MaxMP)
	fmt.Fprintf(&b, "  Lucidity: %d  DP: %d\n", p.Lucidity, p.DP)
	fmt.Fprintf(&b, "  Position: %s\n", p.Position)
	fmt.Fprintf(&b, "  Location: %s", roomName)
	if len(p.StatusEffects) > 0 {
		names := make([]string, 0, len(p.StatusEffects))
		for _, e := range p.StatusEffects {
			names = append(names, e.Name)
		}
		fmt.Fprintf(&b, "\n  Effects: %s", strings.Join(names, ", "))
	}
	return &command.Result{Text: b.String()}, nil
}

// handleInventory lists what the player carries.
func handleInventory(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	p, err := svc.Players.Get(ctx, sess.PlayerID)
	if err != nil {
		return nil, err
	}
	if len(p.Inventory) == 0 {
		return &command.Result{Text: "You are carrying nothing."}, nil
	}
	return &command.Result{Text: "You are carrying:\n  " + strings.Join(p.Inventory, "\n  ")}, nil
}
