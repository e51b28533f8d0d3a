package scheduler

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/twapstream/indexer/internal/chain"
	"github.com/twapstream/indexer/internal/database"
)

const unknownTokenBatch = 200

// TokenMetadataScheduler periodically retries the ERC20 name and
// symbol lookups that failed when a pair was first indexed. It runs
// outside the event path and never touches pricing state.
type TokenMetadataScheduler struct {
	db        *pgxpool.Pool
	chain     chain.Reader
	scheduler gocron.Scheduler
	logger    zerolog.Logger
}

func NewTokenMetadataScheduler(db *pgxpool.Pool, reader chain.Reader, logger zerolog.Logger) (*TokenMetadataScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &TokenMetadataScheduler{
		db:        db,
		chain:     reader,
		scheduler: s,
		logger:    logger.With().Str("component", "token_metadata_scheduler").Logger(),
	}, nil
}

func (s *TokenMetadataScheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(30*time.Minute),
		gocron.NewTask(s.refreshUnknownTokens, ctx),
		gocron.WithName("refresh-token-metadata"),
	)
	if err != nil {
		return err
	}

	s.logger.Info().Msg("Token metadata scheduler started (runs every 30 minutes)")
	s.scheduler.Start()

	// Run immediately on startup
	go s.refreshUnknownTokens(ctx)

	return nil
}

func (s *TokenMetadataScheduler) Stop() {
	s.logger.Info().Msg("Stopping token metadata scheduler")
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down scheduler")
	}
}

func (s *TokenMetadataScheduler) refreshUnknownTokens(ctx context.Context) {
	start := time.Now()

	tokens, err := database.GetUnknownTokens(ctx, s.db, unknownTokenBatch)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query unknown tokens")
		return
	}
	if len(tokens) == 0 {
		return
	}

	updated := 0
	for _, id := range tokens {
		metadata, err := s.chain.TokenMetadata(ctx, common.HexToAddress(id))
		if err != nil {
			s.logger.Debug().Err(err).Str("token", id).Msg("Token metadata still unreadable")
			continue
		}
		if metadata.Symbol == "unknown" && metadata.Name == "unknown" {
			continue
		}

		if err := database.UpdateTokenMetadata(ctx, s.db, id, metadata.Symbol, metadata.Name); err != nil {
			s.logger.Error().Err(err).Str("token", id).Msg("Failed to update token metadata")
			continue
		}
		updated++
	}

	s.logger.Info().
		Int("updated", updated).
		Int("total", len(tokens)).
		Dur("duration", time.Since(start)).
		Msg("Token metadata refresh completed")
}
