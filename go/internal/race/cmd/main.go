package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typeduel/go/clients/ledger_client"
	"github.com/mcdev12/typeduel/go/internal/models"
	"github.com/mcdev12/typeduel/go/internal/race/feed"
	"github.com/mcdev12/typeduel/go/internal/race/gateway"
	"github.com/mcdev12/typeduel/go/internal/race/lobby"
	"github.com/mcdev12/typeduel/go/internal/race/room"
)

func main() {
	configPath := flag.String("config", getEnv("RACE_CONFIG", ""), "path to the race client YAML config")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	self := models.ParticipantID(config.ParticipantID)

	log.Info().
		Str("participant", self.Short()).
		Str("ledger_url", config.LedgerURL).
		Str("feed", config.Feed.Transport).
		Str("addr", config.ListenAddr).
		Msg("starting race client")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := ledger_client.NewLedgerClient(config.LedgerURL, self)
	if err := client.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("ledger is not reachable yet")
	}

	clock := clockwork.NewRealClock()

	var watchers room.WatcherFactory
	if config.Feed.Transport == transportNATS {
		nc, err := feed.Connect(config.Feed.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Str("nats_url", config.Feed.NATSURL).Msg("failed to connect to NATS")
		}
		defer nc.Drain()
		watchers = feed.Factory(nc, clock, config.roomConfig().PhasePollInterval)
	}

	rooms := room.NewManager(client, self, clock, config.roomConfig(), watchers)

	lob := lobby.New(client, self, clock, config.lobbyConfig())
	lob.Start(ctx)

	gw := gateway.NewService(gateway.DefaultConfig(), rooms, lob, client)

	server := &http.Server{
		Addr:         config.ListenAddr,
		Handler:      gw.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down race client")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	gw.Stop()
	rooms.CloseAll()
	lob.Stop()
	cancel()

	log.Info().Msg("race client stopped")
}
