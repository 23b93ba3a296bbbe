package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/miratalk/relay/internal/auth"
	"github.com/miratalk/relay/internal/config"
	"github.com/miratalk/relay/internal/handler"
	"github.com/miratalk/relay/internal/hub"
	"github.com/miratalk/relay/internal/log"
	"github.com/miratalk/relay/internal/registry"
	"github.com/miratalk/relay/internal/service"
	"github.com/miratalk/relay/internal/store"
	"github.com/miratalk/relay/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	l := log.L()
	l.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting relay")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Document store
	var st store.Store
	if cfg.Mongo.URI == "" {
		l.Warn().Msg("no mongo uri configured, using in-memory store")
		st = store.NewMemoryStore()
	} else {
		ms, err := store.NewMongoStore(ctx, cfg.Mongo)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect to document store")
		}
		st = ms
		l.Info().Str("database", cfg.Mongo.Database).Msg("connected to document store")
	}
	defer st.Close(context.Background())

	// Instance registry
	reg, err := registry.NewRedisRegistry(cfg.Redis, cfg.Server.AdvertiseAddress)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to redis registry")
	}
	defer reg.Close()
	l.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")

	// Archive producer (optional)
	var producer stream.EventProducer = stream.NoopProducer{}
	if cfg.Kafka.Brokers != "" {
		p, err := stream.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to create archive producer")
		}
		producer = p
		l.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("connected to kafka")
	}

	// Connection registry
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	// Relay service
	relaySvc := service.NewRelayService(wsHub, st, reg, producer)
	if err := relaySvc.Start(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to start relay service")
	}
	defer relaySvc.Stop()

	// Identity verifier + websocket handler
	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	wsHandler := handler.NewWSHandler(wsHub, relaySvc, verifier, cfg.WebSocket)

	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("relay listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down relay")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Warn().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("relay stopped")
}
