// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package game

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/script"
	"github.com/mythosmud/mythosmud/internal/world"
)

// DefaultNPCRespawnTicks is how long a dead NPC stays down before the
// respawn queue revives it.
const DefaultNPCRespawnTicks = 300

// Archetype is an NPC definition loaded from YAML. OnMaintenance is an
// optional Lua snippet run during the maintenance stage.
type Archetype struct {
	Name          string `yaml:"name"`
	RoomID        string `yaml:"room_id"`
	RespawnTicks  uint64 `yaml:"respawn_ticks"`
	OnMaintenance string `yaml:"on_maintenance"`
}

type npcFile struct {
	NPCs []Archetype `yaml:"npcs"`
}

// LoadArchetypes reads an NPC definition YAML file.
func LoadArchetypes(path string) ([]Archetype, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Code("NPC_LOAD_FAILED").With("path", path).Wrapf(err, "read npc file")
	}
	var f npcFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.Code("NPC_LOAD_FAILED").With("path", path).Wrapf(err, "parse npc yaml")
	}
	return f.NPCs, nil
}

// npc is one live instance of an archetype.
type npc struct {
	archetype Archetype
	roomID    string
	alive     bool
	diedTick  uint64
}

// NPCService owns NPC instances: the respawn queue and the scripted
// maintenance pass, both run every MaintenanceCadence ticks.
type NPCService struct {
	events *core.Broadcaster
	rooms  *world.Registry
	engine *script.Engine

	mu   sync.Mutex
	npcs []*npc
}

// NewNPCService creates the NPC stage and spawns one instance per
// archetype.
func NewNPCService(events *core.Broadcaster, rooms *world.Registry, engine *script.Engine, archetypes []Archetype) *NPCService {
	s := &NPCService{events: events, rooms: rooms, engine: engine}
	for _, a := range archetypes {
		if a.RespawnTicks == 0 {
			a.RespawnTicks = DefaultNPCRespawnTicks
		}
		s.npcs = append(s.npcs, &npc{archetype: a, roomID: a.RoomID, alive: true})
	}
	return s
}

// Kill marks the named NPC dead in the given room, queuing its respawn.
func (s *NPCService) Kill(name, roomID string, tick uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.npcs {
		if n.alive && n.archetype.Name == name && n.roomID == roomID {
			n.alive = false
			n.diedTick = tick
			return true
		}
	}
	return false
}

// InRoom lists the names of live NPCs in a room.
func (s *NPCService) InRoom(roomID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, n := range s.npcs {
		if n.alive && n.roomID == roomID {
			names = append(names, n.archetype.Name)
		}
	}
	return names
}

// Tick is the NPC maintenance stage: every MaintenanceCadence ticks,
// drain the respawn queue and run each live NPC's maintenance snippet.
func (s *NPCService) Tick(ctx context.Context, tick uint64) error {
	if tick%MaintenanceCadence != 0 {
		return nil
	}

	s.mu.Lock()
	snapshot := make([]*npc, len(s.npcs))
	copy(snapshot, s.npcs)
	s.mu.Unlock()

	for _, n := range snapshot {
		s.mu.Lock()
		if !n.alive {
			if tick >= n.diedTick+n.archetype.RespawnTicks {
				n.alive = true
				n.roomID = n.archetype.RoomID
				s.mu.Unlock()
				s.events.BroadcastRoom(ctx, n.roomID, core.EventCommandResponse, map[string]any{
					"message": n.archetype.Name + " coalesces out of the mist.",
				}, nil)
				continue
			}
			s.mu.Unlock()
			continue
		}
		snippet := n.archetype.OnMaintenance
		roomID := n.roomID
		name := n.archetype.Name
		s.mu.Unlock()

		if snippet == "" {
			continue
		}
		s.maintain(ctx, n, name, roomID, snippet, tick)
	}
	return nil
}

// maintain runs one NPC's snippet and applies its actions. Script
// failures cost this NPC one maintenance run, nothing more.
func (s *NPCService) maintain(ctx context.Context, n *npc, name, roomID, snippet string, tick uint64) {
	actions, err := s.engine.Run(ctx, snippet, script.Env{
		NPCName: name,
		RoomID:  roomID,
		Tick:    tick,
	})
	if err != nil {
		slog.Warn("npc maintenance script failed",
			"npc", name,
			"room_id", roomID,
			"tick", tick,
			"error", err,
		)
		return
	}

	for _, emote := range actions.Emotes {
		s.events.BroadcastRoom(ctx, roomID, core.EventCommandResponse, map[string]any{
			"message": emote,
		}, nil)
	}

	if actions.Wander != "" {
		if target, ok := s.rooms.Exit(roomID, actions.Wander); ok {
			s.mu.Lock()
			n.roomID = target
			s.mu.Unlock()
			s.events.BroadcastRoom(ctx, roomID, core.EventCommandResponse, map[string]any{
				"message": name + " shuffles " + actions.Wander + ".",
			}, nil)
			s.events.BroadcastRoom(ctx, target, core.EventCommandResponse, map[string]any{
				"message": name + " shuffles in.",
			}, nil)
		}
	}
}
