package store

import (
	"context"
	"errors"

	"github.com/twapstream/indexer/internal/entity"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary of the event handlers. Every Save
// is an upsert keyed on the entity id, so reprocessing an event with
// the same deterministic id does not duplicate records.
type Store interface {
	LoadBundle(ctx context.Context) (*entity.Bundle, error)
	SaveBundle(ctx context.Context, b *entity.Bundle) error

	LoadFactory(ctx context.Context, id string) (*entity.Factory, error)
	SaveFactory(ctx context.Context, f *entity.Factory) error

	LoadToken(ctx context.Context, id string) (*entity.Token, error)
	SaveToken(ctx context.Context, t *entity.Token) error

	LoadPair(ctx context.Context, id string) (*entity.Pair, error)
	SavePair(ctx context.Context, p *entity.Pair) error

	LoadTransaction(ctx context.Context, id string) (*entity.Transaction, error)
	SaveTransaction(ctx context.Context, tx *entity.Transaction) error

	LoadMint(ctx context.Context, id string) (*entity.Mint, error)
	SaveMint(ctx context.Context, m *entity.Mint) error
	DeleteMint(ctx context.Context, id string) error

	LoadBurn(ctx context.Context, id string) (*entity.Burn, error)
	SaveBurn(ctx context.Context, b *entity.Burn) error

	LoadSwap(ctx context.Context, id string) (*entity.Swap, error)
	SaveSwap(ctx context.Context, s *entity.Swap) error

	LoadLiquidityPosition(ctx context.Context, id string) (*entity.LiquidityPosition, error)
	SaveLiquidityPosition(ctx context.Context, p *entity.LiquidityPosition) error
	SaveLiquidityPositionSnapshot(ctx context.Context, s *entity.LiquidityPositionSnapshot) error

	LoadUser(ctx context.Context, id string) (*entity.User, error)
	SaveUser(ctx context.Context, u *entity.User) error

	LoadDayData(ctx context.Context, id string) (*entity.DayData, error)
	SaveDayData(ctx context.Context, d *entity.DayData) error

	LoadPairDayData(ctx context.Context, id string) (*entity.PairDayData, error)
	SavePairDayData(ctx context.Context, d *entity.PairDayData) error

	LoadPairHourData(ctx context.Context, id string) (*entity.PairHourData, error)
	SavePairHourData(ctx context.Context, d *entity.PairHourData) error

	LoadTokenDayData(ctx context.Context, id string) (*entity.TokenDayData, error)
	SaveTokenDayData(ctx context.Context, d *entity.TokenDayData) error

	// Atomic runs fn against a store whose writes commit together or
	// not at all. One handler invocation runs inside exactly one
	// Atomic unit.
	Atomic(ctx context.Context, fn func(Store) error) error
}

// IsNotFound reports whether err means the entity is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
