// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

//go:build integration

package integration

import (
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Session flow", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness(harnessConfig{players: []string{"Alice", "Bob"}})
	})

	AfterEach(func() {
		h.stop()
	})

	It("greets an authenticated player with the MOTD", func() {
		alice := h.connect("Alice")
		defer alice.close()

		Expect(h.sessions.OnlinePlayers()).To(HaveLen(1))
	})

	It("rejects a bad token with close code 4401", func() {
		conn := h.dial()
		defer conn.Close() //nolint:errcheck

		Expect(conn.WriteJSON(map[string]string{
			"type":  "auth",
			"token": "not-a-real-token",
		})).To(Succeed())

		_, _, err := conn.ReadMessage()
		Expect(websocket.IsCloseError(err, 4401)).To(BeTrue(), "got %v", err)
	})

	It("delivers room chat to co-located players only", func() {
		alice := h.connect("Alice")
		defer alice.close()
		bob := h.connect("Bob")
		defer bob.close()

		alice.send("say the fog is thick tonight")
		alice.expectMessage("You say, 'the fog is thick tonight'")
		bob.expectMessage("Alice says, 'the fog is thick tonight'")
	})

	It("announces movement and renders the destination room", func() {
		alice := h.connect("Alice")
		defer alice.close()
		bob := h.connect("Bob")
		defer bob.close()

		alice.send("north")
		alice.expectMessage("Foggy Quay")
		bob.expectMessage("Alice leaves north.")

		alice.send("south")
		alice.expectMessage("Dream Square")
		bob.expectMessage("Alice arrives.")
	})

	It("logs a player out on quit", func() {
		alice := h.connect("Alice")
		defer alice.close()

		alice.send("quit")
		alice.expectMessage("Farewell")
		alice.expectClosed()

		Eventually(func() []string {
			return h.sessions.OnlinePlayers()
		}).Should(BeEmpty())
	})
})
