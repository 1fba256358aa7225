// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"
	"sort"
	"strings"

	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/world"
)

// handleLook describes the room, or a named player or NPC in it.
func handleLook(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.LookArgs)
	if args.Target != "" {
		return lookAt(ctx, sess, svc, args.Target)
	}
	return &command.Result{Text: renderRoom(ctx, svc, sess, sess.RoomID)}, nil
}

// renderRoom builds the look description: name, description, exits,
// occupants with poses, NPCs, and corpse containers.
func renderRoom(ctx context.Context, svc *command.Services, sess *command.Session, roomID string) string {
	room, ok := svc.Rooms.Get(roomID)
	if !ok {
		return "A featureless void. Something has gone wrong with the world."
	}

	var b strings.Builder
	b.WriteString(room.Name)
	b.WriteString("\n")
	b.WriteString(room.Description)

	exits := make([]string, 0, len(room.Exits))
	for dir := range room.Exits {
		exits = append(exits, dir)
	}
	sort.Strings(exits)
	b.WriteString("\nExits: ")
	if len(exits) == 0 {
		b.WriteString("none")
	} else {
		b.WriteString(strings.Join(exits, ", "))
	}

	for _, line := range occupantLines(ctx, svc, sess, room.ID) {
		b.WriteString("\n")
		b.WriteString(line)
	}
	if svc.NPCs != nil {
		names := svc.NPCs.InRoom(room.ID)
		sort.Strings(names)
		for _, name := range names {
			b.WriteString("\n")
			b.WriteString(name)
			b.WriteString(" is here.")
		}
	}
	if svc.Corpses != nil {
		for _, label := range svc.Corpses.Labels(room.ID) {
			b.WriteString("\n")
			b.WriteString(strings.ToUpper(label[:1]) + label[1:])
			b.WriteString(" lies here.")
		}
	}
	return b.String()
}

// occupantLines lists other players in the room, with their poses.
func occupantLines(ctx context.Context, svc *command.Services, sess *command.Session, roomID string) []string {
	var lines []string
	for _, id := range svc.Sessions.RoomSubscribers(roomID) {
		if id == sess.PlayerID {
			continue
		}
		rec := svc.Sessions.GetSession(id)
		if rec == nil {
			continue
		}
		line := rec.DisplayName + " is here."
		if p, err := svc.Players.Get(ctx, id); err == nil && p.Pose != "" {
			line = rec.DisplayName + " is here, " + p.Pose
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}

// lookAt describes a named player or NPC in the same room.
func lookAt(ctx context.Context, sess *command.Session, svc *command.Services, target string) (*command.Result, error) {
	for _, id := range svc.Sessions.RoomSubscribers(sess.RoomID) {
		rec := svc.Sessions.GetSession(id)
		if rec == nil || !strings.EqualFold(rec.DisplayName, target) {
			continue
		}

		var b strings.Builder
		b.WriteString("You see " + rec.DisplayName + ".")
		if p, err := svc.Players.Get(ctx, id); err == nil {
			if p.Pose != "" {
				b.WriteString("\n" + rec.DisplayName + " is " + p.Pose)
			}
			switch {
			case p.Dead:
				b.WriteString("\nThey are dead.")
			case p.MortallyWounded:
				b.WriteString("\nThey are mortally wounded.")
			case p.Position == world.PositionSitting:
				b.WriteString("\nThey are sitting.")
			}
		}
		return &command.Result{Text: b.String()}, nil
	}

	if svc.NPCs != nil {
		for _, name := range svc.NPCs.InRoom(sess.RoomID) {
			if strings.EqualFold(name, target) {
				return &command.Result{Text: "You see " + name + ". Its presence unsettles you."}, nil
			}
		}
	}
	return nil, command.ErrTargetNotFound(target)
}
