// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"
	"sort"
	"strings"

	"github.com/mythosmud/mythosmud/internal/command"
)

// handleAlias defines an alias, or shows one when invoked without a body.
func handleAlias(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.AliasArgs)

	if args.Body == "" {
		a, ok := svc.Aliases.Get(ctx, sess.PlayerName, args.Name)
		if !ok {
			return &command.Result{Text: "No alias named '" + args.Name + "'."}, nil
		}
		return &command.Result{Text: "alias " + a.Name + " = " + a.Body}, nil
	}

	a, err := svc.Aliases.Add(ctx, sess.PlayerName, args.Name, args.Body)
	if err != nil {
		return nil, err
	}
	return &command.Result{Text: "Alias '" + a.Name + "' set to: " + a.Body}, nil
}

// handleAliases lists the player's aliases.
func handleAliases(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	bundle := svc.Aliases.List(ctx, sess.PlayerName)
	if len(bundle.Aliases) == 0 {
		return &command.Result{Text: "You have no aliases."}, nil
	}

	lines := make([]string, 0, len(bundle.Aliases))
	for _, a := range bundle.Aliases {
		lines = append(lines, "  "+a.Name+" = "+a.Body)
	}
	sort.Strings(lines)
	return &command.Result{Text: "Your aliases:\n" + strings.Join(lines, "\n")}, nil
}

// handleUnalias removes an alias by name.
func handleUnalias(ctx context.Context, cmd command.Command, sess *command.Session, svc *command.Services) (*command.Result, error) {
	args := cmd.Args.(command.UnaliasArgs)

	removed, err := svc.Aliases.Remove(ctx, sess.PlayerName, args.Name)
	if err != nil {
		return nil, err
	}
	if !removed {
		return &command.Result{Text: "No alias named '" + args.Name + "'."}, nil
	}
	return &command.Result{Text: "Alias '" + args.Name + "' removed."}, nil
}
