// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

//go:build integration

package integration

import (
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/mythosmud/mythosmud/internal/core"
)

var _ = Describe("Game loop flow", func() {
	var h *harness

	AfterEach(func() {
		h.stop()
	})

	It("broadcasts game_tick with advancing tick numbers", func() {
		h = newHarness(harnessConfig{players: []string{"Alice"}, runLoop: true})
		alice := h.connect("Alice")
		defer alice.close()

		first := alice.expectFrame(func(f core.Frame) bool {
			return f.EventType == core.EventGameTick
		})
		second := alice.expectFrame(func(f core.Frame) bool {
			if f.EventType != core.EventGameTick {
				return false
			}
			n, _ := f.Data["tick_number"].(float64)
			prev, _ := first.Data["tick_number"].(float64)
			return n > prev
		})
		Expect(second.Sequence).To(BeNumerically(">", first.Sequence))
	})

	It("counts down a rest and disconnects the dreamer", func() {
		h = newHarness(harnessConfig{players: []string{"Alice"}, restCountdown: 2})
		alice := h.connect("Alice")
		defer alice.close()

		alice.send("rest")
		alice.expectMessage("You settle down to rest...")
		alice.expectFrame(func(f core.Frame) bool {
			return f.EventType == core.EventIntentionalDisconnect
		})
		alice.expectClosed()

		Eventually(func() []string {
			return h.sessions.OnlinePlayers()
		}).Should(BeEmpty())
	})

	It("cancels a rest when the dreamer moves", func() {
		h = newHarness(harnessConfig{players: []string{"Alice"}, restCountdown: 600})
		alice := h.connect("Alice")
		defer alice.close()

		alice.send("rest")
		alice.expectMessage("You settle down to rest...")
		Eventually(func() bool {
			return h.sessions.RestActive(h.playerID("Alice"))
		}).Should(BeTrue())

		alice.send("north")
		alice.expectMessage("Foggy Quay")
		Eventually(func() bool {
			return h.sessions.RestActive(h.playerID("Alice"))
		}).Should(BeFalse())
	})
})
