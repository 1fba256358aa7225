// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

//go:build integration

package integration

import (
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
)

var _ = Describe("Alias flow", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness(harnessConfig{players: []string{"Alice", "Bob"}})
	})

	AfterEach(func() {
		h.stop()
	})

	It("expands a defined alias through the dispatcher", func() {
		alice := h.connect("Alice")
		defer alice.close()
		bob := h.connect("Bob")
		defer bob.close()

		alice.send("alias greet say Greetings from the quay")
		alice.expectMessage("Alias 'greet' set to: say Greetings from the quay")

		alice.send("greet")
		bob.expectMessage("Alice says, 'Greetings from the quay'")
	})

	It("runs every segment of a chained alias in order", func() {
		alice := h.connect("Alice")
		defer alice.close()
		bob := h.connect("Bob")
		defer bob.close()

		alice.send("alias sweep emote stretches slowly; say all done")
		alice.expectMessage("Alias 'sweep' set to:")

		alice.send("sweep")
		bob.expectMessage("Alice stretches slowly")
		bob.expectMessage("Alice says, 'all done'")
	})

	It("appends trailing arguments to the expansion", func() {
		alice := h.connect("Alice")
		defer alice.close()
		bob := h.connect("Bob")
		defer bob.close()

		alice.send("alias shout say HEAR ME:")
		alice.expectMessage("Alias 'shout' set to:")

		alice.send("shout the stars are right")
		bob.expectMessage("Alice says, 'HEAR ME: the stars are right'")
	})

	It("stops honoring a removed alias", func() {
		alice := h.connect("Alice")
		defer alice.close()

		alice.send("alias greet say hello")
		alice.expectMessage("Alias 'greet' set to:")

		alice.send("unalias greet")
		alice.expectMessage("Alias 'greet' removed.")

		alice.send("greet")
		alice.expectMessage("Unknown command")
	})
})
