package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typeduel/go/internal/ledger"
)

type Services struct {
	Ledger *ledger.Service

	publisher *ledger.JetStreamPublisher
}

// setupServices wires repository → app → service. pool is nil for the
// in-memory store.
func setupServices(ctx context.Context, config *Config, pool *pgxpool.Pool) (*Services, error) {
	var repo ledger.Repository
	if pool != nil {
		repo = ledger.NewPostgresRepository(pool)
	} else {
		repo = ledger.NewMemoryRepository()
	}

	services := &Services{}
	var publisher ledger.Publisher = ledger.NopPublisher{}
	if config.NATSURL != "" {
		jsConfig := ledger.DefaultJetStreamConfig()
		jsConfig.URL = config.NATSURL
		js, err := ledger.NewJetStreamPublisher(ctx, jsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create snapshot publisher: %w", err)
		}
		services.publisher = js
		publisher = js
		log.Info().Str("nats_url", config.NATSURL).Msg("publishing session snapshots")
	}

	ledgerApp := ledger.NewApp(repo, clockwork.NewRealClock(), publisher, config.Ledger)
	services.Ledger = ledger.NewService(ledgerApp)
	return services, nil
}

func (s *Services) Close() {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close snapshot publisher")
	}
}
