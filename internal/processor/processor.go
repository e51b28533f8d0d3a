package processor

import (
	"context"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/twapstream/indexer/internal/config"
	"github.com/twapstream/indexer/internal/modules/core"
)

const maxConsecutiveErrors = 10

// logSource is the chain query surface the processor needs. Satisfied
// by *ethclient.Client.
type logSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// blockSink is notified as the processor advances, for downstream
// consumers that stamp payloads with the current block.
type blockSink interface {
	SetCurrentBlock(blockNumber uint64)
}

// Processor drives the module registry from the chain's log stream.
// Logs are dispatched strictly ordered by block, transaction index and
// log index on a single goroutine; a failing event is logged by the
// registry and the stream continues.
type Processor struct {
	config   *config.Config
	client   logSource
	registry *core.ModuleRegistry
	sink     blockSink
	logger   zerolog.Logger
}

func NewProcessor(cfg *config.Config, client logSource, registry *core.ModuleRegistry, logger zerolog.Logger) *Processor {
	return &Processor{
		config:   cfg,
		client:   client,
		registry: registry,
		logger:   logger.With().Str("component", "processor").Logger(),
	}
}

// SetBlockSink wires an optional progress consumer.
func (p *Processor) SetBlockSink(sink blockSink) {
	p.sink = sink
}

// Run processes logs until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	next, err := p.registry.StartBlock(ctx)
	if err != nil {
		return err
	}
	if p.config.Chain.StartBlock > next {
		next = p.config.Chain.StartBlock
	}

	p.logger.Info().Uint64("block", next).Msg("Starting log processing")

	consecutiveErrors := 0
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Processor stopped")
			return nil
		default:
		}

		latest, err := p.client.BlockNumber(ctx)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveErrors {
				p.logger.Error().Err(err).Msg("Too many consecutive errors, stopping")
				return err
			}
			p.logger.Error().Err(err).Msg("Failed to get latest block number")
			p.sleep(ctx, 5*time.Second)
			continue
		}

		if next > latest {
			p.sleep(ctx, p.config.Chain.BlockTime)
			continue
		}

		to := next + p.config.Processor.BatchSize - 1
		if to > latest {
			to = latest
		}

		start := time.Now()
		if err := p.processRange(ctx, next, to); err != nil {
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveErrors {
				p.logger.Error().Err(err).Msg("Too many consecutive errors, stopping")
				return err
			}
			p.logger.Error().
				Err(err).
				Uint64("from", next).
				Uint64("to", to).
				Msg("Failed to process block range")
			p.sleep(ctx, 5*time.Second)
			continue
		}
		consecutiveErrors = 0

		p.logger.Info().
			Uint64("from", next).
			Uint64("to", to).
			Uint64("lag", latest-to).
			Dur("duration", time.Since(start)).
			Msg("Processed block range")

		next = to + 1
	}
}

// processRange fetches every log in [from, to], dispatches them in
// chain order and advances the module cursors.
func (p *Processor) processRange(ctx context.Context, from, to uint64) error {
	logs, err := p.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
	})
	if err != nil {
		return err
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		if logs[i].TxIndex != logs[j].TxIndex {
			return logs[i].TxIndex < logs[j].TxIndex
		}
		return logs[i].Index < logs[j].Index
	})

	for i := range logs {
		if logs[i].Removed {
			continue
		}
		if err := p.registry.ProcessEvent(ctx, &logs[i]); err != nil {
			return err
		}
	}

	if err := p.registry.CommitBlock(ctx, to); err != nil {
		return err
	}

	if p.sink != nil {
		p.sink.SetCurrentBlock(to)
	}

	return nil
}

func (p *Processor) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
