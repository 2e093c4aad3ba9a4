package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gamelobby/internal/config"
	"gamelobby/internal/database/db_client"
	"gamelobby/internal/http/http_server"
	"gamelobby/internal/janitor"
	"gamelobby/internal/matchlog"
	"gamelobby/internal/redis/redis_client"
	"gamelobby/internal/services/lobby"
	"gamelobby/internal/ws"

	"go.uber.org/zap"
)

//go:generate go tool swag init --generalInfo main.go --parseInternal --output api_specs --outputTypes json

//	@title			Game Lobby API
//	@version		1.0
//	@description	Read-only REST view of the game lobby. Realtime traffic uses the websocket at /ws/game/{room}/.
//	@BasePath		/

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.AppEnv == "prod" {
		if Log, err = zap.NewProduction(); err != nil {
			panic(err)
		}
		zap.ReplaceGlobals(Log)
	}
	defer Log.Sync()
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg.Redacted()))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Group bus: in‑process hub, optionally fanned out through Redis
	hub := ws.NewHub()
	var bus lobby.Bus = hub
	if cfg.BusBackend == config.BusRedis {
		redisClient, err := redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		redisBus := ws.NewRedisBus(redisClient, hub, 0)
		go redisBus.Run(ctx)
		bus = redisBus
		Log.Info("Redis bus enabled", zap.String("host", cfg.RedisHost))
	}

	// 4. Optional match log ➜ Postgres
	var recorder lobby.Recorder
	if cfg.MatchLogEnabled {
		dsn := db_client.DSN(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb, cfg.PostgresSSLMode)
		pgDb, err := db_client.Open(ctx, dsn)
		if err != nil {
			Log.Fatal("pg-open", zap.Error(err))
		}
		defer pgDb.Close()
		if err := matchlog.Migrate(ctx, pgDb); err != nil {
			Log.Fatal("pg-migrate", zap.Error(err))
		}

		writer := matchlog.New(pgDb, cfg.MatchLogFlushInterval, 0)
		flushed := make(chan struct{})
		go func() {
			writer.Run(ctx)
			close(flushed)
		}()
		defer func() { <-flushed }() // before pgDb.Close
		recorder = writer
	}

	// 5. Lobby service
	svc := lobby.NewService(bus, lobby.Options{
		MaxPlayers:   cfg.MaxPlayersPerRoom,
		ChallengeTTL: cfg.ChallengeTTL,
		RoomIdleTTL:  cfg.RoomIdleTTL,
		Recorder:     recorder,
	})

	// 6. Background: challenge / idle room janitor
	go janitor.Run(ctx, svc, cfg.JanitorInterval)

	// 7. HTTP + WS server
	wsSrv := ws.NewWsServer(svc, hub, ws.Options{
		SendBuffer: cfg.WsSendBuffer,
		ReadLimit:  cfg.WsReadLimit,
	})
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, svc)
	go func() {
		<-ctx.Done()
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
	Log.Info("Server stopped")
}
