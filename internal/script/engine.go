// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

// Package script runs NPC behavior snippets in a sandboxed Lua
// interpreter.
package script

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
)

// CodeScript marks Lua execution failures.
const CodeScript = "SCRIPT_FAILED"

// DefaultBudget bounds one snippet run. Scripts are ambience, not logic;
// anything slower than this is broken.
const DefaultBudget = 50 * time.Millisecond

// MaxEmotesPerRun caps how many emotes one snippet may queue.
const MaxEmotesPerRun = 3

// Env is the read-only world view exposed to a snippet as globals.
type Env struct {
	NPCName string
	RoomID  string
	Tick    uint64
}

// Actions is what a snippet asked the world to do. The NPC maintenance
// stage applies them; the script itself never touches game state.
type Actions struct {
	Emotes []string
	Wander string // direction, empty for none
}

// Engine executes on_maintenance snippets. A fresh Lua state is created
// per run so scripts cannot leak state into each other.
type Engine struct {
	budget time.Duration
}

// NewEngine creates an engine. budget <= 0 takes DefaultBudget.
func NewEngine(budget time.Duration) *Engine {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Engine{budget: budget}
}

// sandboxLibs is the subset of stdlib a snippet may use. No io, no os,
// no loading of further code.
var sandboxLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
	{lua.TabLibName, lua.OpenTable},
}

// Run executes one snippet under the instruction budget and returns the
// actions it queued.
func (e *Engine) Run(ctx context.Context, snippet string, env Env) (Actions, error) {
	var actions Actions
	if strings.TrimSpace(snippet) == "" {
		return actions, nil
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	for _, lib := range sandboxLibs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return actions, oops.Code(CodeScript).With("lib", lib.name).Wrapf(err, "open lua lib")
		}
	}
	// The sandbox keeps base but not its escape hatches.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("npc_name", lua.LString(env.NPCName))
	L.SetGlobal("room_id", lua.LString(env.RoomID))
	L.SetGlobal("tick", lua.LNumber(env.Tick))

	L.SetGlobal("emote", L.NewFunction(func(l *lua.LState) int {
		text := l.CheckString(1)
		if text != "" && len(actions.Emotes) < MaxEmotesPerRun {
			actions.Emotes = append(actions.Emotes, text)
		}
		return 0
	}))
	L.SetGlobal("wander", L.NewFunction(func(l *lua.LState) int {
		actions.Wander = strings.ToLower(l.CheckString(1))
		return 0
	}))

	runCtx, cancel := context.WithTimeout(ctx, e.budget)
	defer cancel()
	L.SetContext(runCtx)

	if err := L.DoString(snippet); err != nil {
		return Actions{}, oops.Code(CodeScript).With("npc", env.NPCName).Wrapf(err, "run maintenance snippet")
	}
	return actions, nil
}
