package twap

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/twapstream/indexer/internal/entity"
	"github.com/twapstream/indexer/internal/store"
)

// loadOrCreatePosition returns a holder's position in a pool, bumping
// the pool's provider count on first sight.
func loadOrCreatePosition(ctx context.Context, s store.Store, pair *entity.Pair, user string) (*entity.LiquidityPosition, error) {
	position, err := s.LoadLiquidityPosition(ctx, entity.PositionID(pair.ID, user))
	if err == nil {
		return position, nil
	}
	if !store.IsNotFound(err) {
		return nil, err
	}

	pair.LiquidityProviderCount++
	if err := s.SavePair(ctx, pair); err != nil {
		return nil, err
	}

	position = entity.NewLiquidityPosition(pair.ID, user)
	if err := s.SaveLiquidityPosition(ctx, position); err != nil {
		return nil, err
	}
	return position, nil
}

// refreshPosition re-reads a holder's liquidity token balance from the
// pool contract and records a snapshot at the current prices.
func (m *Module) refreshPosition(ctx context.Context, s store.Store, pair *entity.Pair, user string, timestamp, block uint64) error {
	position, err := loadOrCreatePosition(ctx, s, pair, user)
	if err != nil {
		return err
	}

	balance, err := m.chain.BalanceOf(ctx, common.HexToAddress(pair.ID), common.HexToAddress(user))
	if err != nil {
		return err
	}
	position.LiquidityTokenBalance = entity.ConvertTokenToDecimal(balance, entity.LiquidityTokenDecimals)

	if err := s.SaveLiquidityPosition(ctx, position); err != nil {
		return err
	}

	return snapshotPosition(ctx, s, position, timestamp, block)
}

// snapshotPosition appends an immutable record of a position with the
// reserves and USD prices in force at this block.
func snapshotPosition(ctx context.Context, s store.Store, position *entity.LiquidityPosition, timestamp, block uint64) error {
	bundle, err := loadOrCreateBundle(ctx, s)
	if err != nil {
		return err
	}
	pair, err := s.LoadPair(ctx, position.Pair)
	if err != nil {
		return err
	}
	token0, err := s.LoadToken(ctx, pair.Token0)
	if err != nil {
		return err
	}
	token1, err := s.LoadToken(ctx, pair.Token1)
	if err != nil {
		return err
	}

	snapshot := &entity.LiquidityPositionSnapshot{
		ID:                        fmt.Sprintf("%s-%d", position.ID, timestamp),
		LiquidityPosition:         position.ID,
		Timestamp:                 timestamp,
		Block:                     block,
		User:                      position.User,
		Pair:                      pair.ID,
		Token0PriceUSD:            token0.DerivedETH.Mul(bundle.EthPrice),
		Token1PriceUSD:            token1.DerivedETH.Mul(bundle.EthPrice),
		Reserve0:                  pair.Reserve0,
		Reserve1:                  pair.Reserve1,
		ReserveUSD:                pair.ReserveUSD,
		LiquidityTokenTotalSupply: pair.TotalSupply,
		LiquidityTokenBalance:     position.LiquidityTokenBalance,
	}

	return s.SaveLiquidityPositionSnapshot(ctx, snapshot)
}
