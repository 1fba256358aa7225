// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mythosmud/mythosmud/internal/store"
)

// NewGenSchemaCmd creates the gen-schema subcommand. It emits the alias
// bundle JSON schema reflected from the Go types, for comparison against
// the embedded validation schema.
func NewGenSchemaCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "gen-schema",
		Short: "Generate the alias bundle JSON schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := store.GenerateBundleSchema()
			if err != nil {
				return err
			}

			if outPath == "" {
				cmd.Print(string(schema))
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
				return err
			}
			if err := os.WriteFile(outPath, schema, 0o600); err != nil {
				return err
			}
			cmd.Printf("Generated %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")
	return cmd
}
