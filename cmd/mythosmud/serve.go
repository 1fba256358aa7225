// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/mythosmud/mythosmud/internal/auth"
	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/command/handlers"
	"github.com/mythosmud/mythosmud/internal/config"
	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/game"
	"github.com/mythosmud/mythosmud/internal/logging"
	"github.com/mythosmud/mythosmud/internal/messaging"
	"github.com/mythosmud/mythosmud/internal/observability"
	"github.com/mythosmud/mythosmud/internal/script"
	"github.com/mythosmud/mythosmud/internal/store"
	"github.com/mythosmud/mythosmud/internal/world"
	"github.com/mythosmud/mythosmud/internal/ws"
	"github.com/mythosmud/mythosmud/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MythosMUD server",
		Long: `Start the game server: the websocket listener, the command pipeline,
the tick loop, and the observability endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}

	// Flag names mirror the config keys so the same spelling works in
	// the YAML file and on the command line.
	cmd.Flags().String("server.listen_addr", "", "websocket listen address")
	cmd.Flags().String("server.metrics_addr", "", "metrics/health HTTP address")
	cmd.Flags().String("logging.format", "", "log format (json or text)")
	cmd.Flags().String("logging.level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("game.tick_interval", "", "game loop tick interval")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	closeLog, err := logging.Init("mythosmud", version, cfg.Logging.Format, cfg.Logging.Level, cfg.Paths.ServerLog)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting mythosmud",
		"version", version,
		"listen_addr", cfg.Server.ListenAddr,
		"metrics_addr", cfg.Server.MetricsAddr,
	)

	// Persistence. The bolt open retries briefly so a restart does not
	// lose the race against the previous process releasing the file lock.
	var players *store.BoltPlayerStore
	backoff := retry.WithMaxDuration(10*time.Second, retry.NewExponential(250*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var openErr error
		players, openErr = store.OpenBoltPlayerStore(cfg.Paths.PlayerDB)
		if openErr != nil {
			slog.Warn("player store open failed, retrying", "path", cfg.Paths.PlayerDB, "error", openErr)
			return retry.RetryableError(openErr)
		}
		return nil
	})
	if err != nil {
		return oops.Code("STORE_OPEN_FAILED").With("path", cfg.Paths.PlayerDB).Wrap(err)
	}
	defer func() { _ = players.Close() }()

	bundles, err := store.NewFileBundleRepository(cfg.Paths.AliasesDir)
	if err != nil {
		return err
	}

	jsonlSink, err := store.NewJSONLAuditSink(cfg.Paths.AuditLog)
	if err != nil {
		return err
	}
	defer func() { _ = jsonlSink.Close() }()

	sinks := []command.AuditSink{jsonlSink}
	if cfg.Database.URL != "" {
		pgSink, err := store.NewPGAuditSink(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pgSink.Close()
		sinks = append(sinks, pgSink)
		slog.Info("postgres audit sink attached")
	}

	// World.
	rooms := world.NewRegistry()
	if err := rooms.LoadDir(cfg.Paths.ZonesDir); err != nil {
		return err
	}

	// Connection manager and event bus.
	sessions := core.NewSessionRegistry(core.SessionConfig{
		DisconnectGrace: cfg.DisconnectGrace(),
		RestCountdown:   cfg.Session.RestCountdown,
	}, rooms)
	events := core.NewBroadcaster(sessions, func(id string) string {
		canonical, err := rooms.Canonical(id)
		if err != nil {
			return id
		}
		return canonical
	})
	sessions.BindEvents(events)
	defer events.Close()

	// Game services and the tick loop.
	effects := game.NewEffectsService(sessions, events, players)
	combat := game.NewCombatEngine(game.CombatConfig{}, sessions, events, players)
	sessions.BindCombat(combat)
	casting := game.NewCastingEngine(sessions, events, players, 0)
	corpses := game.NewCorpseRegistry(events, 0)
	vitals := game.NewVitalsService(sessions, events, players, rooms, corpses, cfg.Game.RespawnDelay)

	var archetypes []game.Archetype
	if cfg.Paths.NPCs != "" {
		archetypes, err = game.LoadArchetypes(cfg.Paths.NPCs)
		if err != nil {
			return err
		}
		slog.Info("npc archetypes loaded", "count", len(archetypes))
	}
	npcs := game.NewNPCService(events, rooms, script.NewEngine(script.DefaultBudget), archetypes)

	scheduler := game.NewLoop(game.SchedulerConfig{Interval: cfg.Game.TickInterval}, game.LoopDeps{
		Sessions: sessions,
		Events:   events,
		Effects:  effects,
		Combat:   combat,
		Casting:  casting,
		Vitals:   vitals,
		NPCs:     npcs,
		Corpses:  corpses,
	})

	// Observability first so the command pipeline can hang its
	// collectors on the shared registry.
	var ready atomic.Bool
	obs := observability.NewServer(cfg.Server.MetricsAddr, ready.Load)

	// Command pipeline.
	registry := command.NewRegistry()
	if err := handlers.Register(registry); err != nil {
		return err
	}
	classifier, err := command.NewClassifier()
	if err != nil {
		return err
	}
	audit := command.NewAuditLog(classifier, sinks...)
	limiter := command.NewRateLimiter(command.RateLimiterConfig{}, obs.Registry())
	defer limiter.Close()

	services := &command.Services{
		Sessions: sessions,
		Events:   events,
		Rooms:    rooms,
		Players:  players,
		Aliases:  command.NewAliasStore(bundles),
		Mutes:    command.NewMuteRegistry(),
		Combat:   combat,
		Casting:  casting,
		Replies:  command.NewReplyLog(),
		NPCs:     npcs,
		Corpses:  corpses,
	}
	dispatcher, err := command.NewDispatcher(registry, services, audit, limiter, command.DispatcherConfig{
		MaxCommandLength: cfg.Game.MaxCommandLength,
		CommandTimeout:   cfg.Game.CommandTimeout,
	})
	if err != nil {
		return err
	}

	// Optional NATS forwarding.
	var forwarder *messaging.Forwarder
	if cfg.NATS.URL != "" {
		conn, err := messaging.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer conn.Close()
		forwarder = messaging.NewForwarder(conn, events)
		forwarder.Start()
		defer forwarder.Stop()
	}

	// Websocket transport.
	creds, err := auth.LoadCredentials(cfg.Paths.Credentials, auth.NewArgon2idHasher())
	if err != nil {
		return err
	}
	slog.Info("credentials loaded", "count", creds.Count())

	wsServer := ws.NewServer(ws.ServerConfig{
		MOTD:      cfg.Server.MOTD,
		StartRoom: cfg.Server.StartRoom,
	}, creds, sessions, dispatcher, players, rooms)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer.Handler())
	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	httpErrs := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrs <- err
		}
		close(httpErrs)
	}()

	obsErrs, err := obs.Start()
	if err != nil {
		return err
	}

	scheduler.Start(ctx)
	ready.Store(true)
	slog.Info("mythosmud ready", "start_room", cfg.Server.StartRoom)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-httpErrs:
		if err != nil {
			errutil.LogError(slog.Default(), "websocket listener failed", err)
		}
	case err := <-obsErrs:
		if err != nil {
			errutil.LogError(slog.Default(), "observability server failed", err)
		}
	}

	return shutdown(httpServer, obs, scheduler, sessions, &ready)
}

// shutdown stops the server in reverse start order: stop admitting work,
// drain the loop, then close the transports. Safe to call once the
// components exist; every step is idempotent.
func shutdown(httpServer *http.Server, obs *observability.Server, scheduler *game.Scheduler, sessions *core.SessionRegistry, ready *atomic.Bool) error {
	ready.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var firstErr error
	if err := httpServer.Shutdown(ctx); err != nil {
		firstErr = err
		errutil.LogError(slog.Default(), "websocket listener shutdown failed", err)
	}
	if err := scheduler.Stop(ctx); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		errutil.LogError(slog.Default(), "tick loop stop failed", err)
	}
	sessions.CloseAll("server shutting down")
	if err := obs.Stop(ctx); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		errutil.LogError(slog.Default(), "observability server stop failed", err)
	}

	slog.Info("mythosmud stopped")
	return firstErr
}
