// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"
	"sort"
	"strings"

	"github.com/mythosmud/mythosmud/internal/command"
)

// newHelpHandler builds the help handler over the registry it was
// registered into. Admin-only commands are hidden from non-admins, both
// in the listing and per topic.
func newHelpHandler(reg *command.Registry) command.Handler {
	return func(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
		args := cmd.Args.(command.HelpArgs)

		if args.Topic != "" {
			return helpTopic(reg, sess, args.Topic)
		}

		var lines []string
		for _, e := range reg.All() {
			if e.AdminOnly && !sess.IsAdmin {
				continue
			}
			lines = append(lines, "  "+padVerb(string(e.Verb))+e.Help)
		}
		sort.Strings(lines)
		return &command.Result{Text: "Available commands:\n" + strings.Join(lines, "\n")}, nil
	}
}

func helpTopic(reg *command.Registry, sess *command.Session, topic string) (*command.Result, error) {
	if pair, ok := command.PredefinedEmotes[topic]; ok {
		return &command.Result{Text: topic + " — a builtin emote: " + pair[0]}, nil
	}

	entry, ok := reg.Get(command.Verb(topic))
	if !ok || (entry.AdminOnly && !sess.IsAdmin) {
		return &command.Result{Text: "No help available for '" + topic + "'."}, nil
	}

	text := string(entry.Verb)
	if entry.Usage != "" {
		text = "Usage: " + entry.Usage
	}
	if entry.Help != "" {
		text += "\n" + entry.Help
	}
	return &command.Result{Text: text}, nil
}

func padVerb(verb string) string {
	const width = 16
	if len(verb) >= width {
		return verb + " "
	}
	return verb + strings.Repeat(" ", width-len(verb))
}
