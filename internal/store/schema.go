// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package store

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
)

// GenerateBundleSchema reflects the alias bundle file shape into a JSON
// schema document. The gen-schema subcommand uses it to keep the embedded
// validation schema honest against the Go types.
func GenerateBundleSchema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}
	schema := reflector.Reflect(&bundleFile{})
	schema.Title = "MythosMUD Alias Bundle"
	schema.Description = "One player's command aliases as persisted on disk."

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Wrapf(err, "marshal bundle schema")
	}
	return append(out, '\n'), nil
}
