// Package main provides the game server binary: the protocol listener, the
// shared world and tick driver, and the diagnostics services.
package main

import (
	"context"
	"flag"
	"log"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cory-johannsen/cubeserver/internal/config"
	"github.com/cory-johannsen/cubeserver/internal/frontend/tcp"
	"github.com/cory-johannsen/cubeserver/internal/game/session"
	"github.com/cory-johannsen/cubeserver/internal/game/world"
	"github.com/cory-johannsen/cubeserver/internal/gameserver"
	"github.com/cory-johannsen/cubeserver/internal/observability"
	"github.com/cory-johannsen/cubeserver/internal/ops"
	"github.com/cory-johannsen/cubeserver/internal/scripting"
	"github.com/cory-johannsen/cubeserver/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty uses defaults and CUBE_* environment overrides")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("version", gameserver.VersionName),
		zap.Int("protocol", gameserver.ProtocolVersion),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)
	probe := observability.NewProbe()

	registry := session.NewRegistry(logger, metrics, session.WithParkedKinds(gameserver.ParkedKinds...))
	ticker := session.NewTicker(cfg.Gameplay.TickInterval)

	gen, closeGen, err := newGenerator(cfg.World, logger)
	if err != nil {
		logger.Fatal("creating world generator", zap.Error(err))
	}
	defer closeGen()

	store := world.NewStore(gen, registry, logger, world.WithGeneratedCounter(metrics.ChunksGenerated))
	if r := cfg.World.PregenRadius; r > 0 {
		pregenStart := time.Now()
		if err := store.Pregenerate(ctx, int32(r), runtime.GOMAXPROCS(0)); err != nil {
			logger.Fatal("generating spawn area", zap.Error(err))
		}
		logger.Info("spawn area ready", zap.Duration("elapsed", time.Since(pregenStart)))
	}

	replay, err := gameserver.LoadReplayFrames(cfg.Replay.RegistryFrames)
	if err != nil {
		logger.Fatal("loading replay frames", zap.Error(err))
	}
	if len(replay) == 0 {
		logger.Warn("no registry frames configured; clients will reject the configuration phase")
	}

	srv := gameserver.NewServer(cfg, registry, store, ticker, metrics, probe, replay, logger)
	acceptor := tcp.NewAcceptor(cfg.Server, srv, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("ticker", &server.FuncService{StartFn: ticker.Run})
	var health *ops.HealthService
	if cfg.Ops.Enabled {
		health = ops.NewHealthService(cfg.Ops.GRPCAddr(), logger)
		lifecycle.Add("ops-http", ops.NewHTTPService(cfg.Ops.HTTPAddr(), ops.NewRouter(reg, srv, logger), logger))
		lifecycle.Add("ops-grpc", health)
	}
	lifecycle.Add("protocol", &server.FuncService{
		StartFn: acceptor.Start,
		StopFn: func() {
			if health != nil {
				health.Drain()
			}
			acceptor.Stop()
		},
	})

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Int("replay_frames", len(replay)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// newGenerator builds the configured terrain generator. The returned close
// function releases any resources the generator holds.
func newGenerator(cfg config.WorldConfig, logger *zap.Logger) (world.Generator, func(), error) {
	if cfg.Generator == "lua" {
		g, err := scripting.NewLuaGenerator(cfg.Script, scripting.DefaultInstructionLimit, logger)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	}
	return world.NewFlatGenerator(), func() {}, nil
}
