// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

//go:build integration

package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/store"
)

var _ = Describe("Postgres audit sink", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
	)

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		container, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("mythosmud_test"),
			postgres.WithUsername("mythosmud"),
			postgres.WithPassword("mythosmud"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if container != nil {
			Expect(container.Terminate(ctx)).To(Succeed())
		}
	})

	It("applies the embedded migrations", func() {
		m, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close() //nolint:errcheck

		Expect(m.Up()).To(Succeed())

		version, dirty, err := m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(dirty).To(BeFalse())
		Expect(version).To(BeNumerically(">=", 1))
	})

	It("round-trips an audit record", func() {
		sink, err := store.NewPGAuditSink(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
		defer sink.Close()

		rec := command.AuditRecord{
			Timestamp:     time.Now().UTC(),
			PlayerID:      uuid.New(),
			PlayerName:    "Keeper",
			Command:       "mute_global Whateley 60",
			Success:       true,
			ResultSummary: "Whateley is muted on the global channel for 60 minutes.",
			SessionID:     ulid.Make(),
			Metadata:      map[string]any{"source": "integration"},
		}
		Expect(sink.Append(ctx, rec)).To(Succeed())

		pool, err := pgxpool.New(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		var (
			playerName string
			cmdText    string
			success    bool
		)
		err = pool.QueryRow(ctx,
			`SELECT player_name, command, success FROM audit_log WHERE player_id = $1`,
			rec.PlayerID.String(),
		).Scan(&playerName, &cmdText, &success)
		Expect(err).NotTo(HaveOccurred())
		Expect(playerName).To(Equal("Keeper"))
		Expect(cmdText).To(Equal("mute_global Whateley 60"))
		Expect(success).To(BeTrue())
	})
})
