package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the MythosMUD CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mythosmud",
		Short: "MythosMUD - a Lovecraftian dreamlands MUD server",
		Long: `MythosMUD is a real-time multiplayer text game server: a websocket
transport, a command pipeline with per-player aliases, and a single
tick-driven game loop over a shared dreamlands world.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewGenSchemaCmd())

	return cmd
}
