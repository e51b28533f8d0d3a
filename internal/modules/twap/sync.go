package twap

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/twapstream/indexer/internal/entity"
	"github.com/twapstream/indexer/internal/store"
)

// syncState is the refreshed entity set a sync leaves behind, handed to
// the rollup updaters so they see post-sync figures.
type syncState struct {
	pair    *entity.Pair
	token0  *entity.Token
	token1  *entity.Token
	bundle  *entity.Bundle
	factory *entity.Factory
}

// syncPair refreshes a pool's reserves, prices and the global liquidity
// aggregates from the reader contract. The pool's previous contribution
// is reversed before the fresh one is applied, so the aggregates stay
// consistent across price moves.
//
// Token liquidity totals are reversed at the ETH price each token was
// last synced at, which is why tokens remember LastEthPrice.
func (m *Module) syncPair(ctx context.Context, s store.Store, pairID string) (*syncState, error) {
	pair, err := s.LoadPair(ctx, pairID)
	if err != nil {
		return nil, err
	}
	factory, err := m.loadOrCreateFactory(ctx, s)
	if err != nil {
		return nil, err
	}
	token0, err := s.LoadToken(ctx, pair.Token0)
	if err != nil {
		return nil, err
	}
	token1, err := s.LoadToken(ctx, pair.Token1)
	if err != nil {
		return nil, err
	}
	bundle, err := loadOrCreateBundle(ctx, s)
	if err != nil {
		return nil, err
	}

	factory.TotalLiquidityETH = factory.TotalLiquidityETH.Sub(pair.TrackedReserveETH)

	token0.TotalLiquidity = token0.TotalLiquidity.Sub(pair.Reserve0)
	token0.TotalLiquidityUSD = token0.TotalLiquidityUSD.Sub(
		pair.Reserve0.Mul(token0.DerivedETH).Mul(token0.LastEthPrice))
	token1.TotalLiquidity = token1.TotalLiquidity.Sub(pair.Reserve1)
	token1.TotalLiquidityUSD = token1.TotalLiquidityUSD.Sub(
		pair.Reserve1.Mul(token1.DerivedETH).Mul(token1.LastEthPrice))

	params, err := m.chain.PairParameters(ctx, common.HexToAddress(m.config.Reader), common.HexToAddress(pair.ID))
	if err != nil {
		return nil, err
	}

	pair.Reserve0 = entity.ConvertTokenToDecimal(params.Reserve0, token0.Decimals)
	pair.Reserve1 = entity.ConvertTokenToDecimal(params.Reserve1, token1.Decimals)

	pair.Token0Price = entity.ConvertTokenToDecimal(params.Price, token1.Decimals)
	pair.Token1Price = entity.Reciprocal(pair.Token0Price)

	ethPrice, err := m.ethPriceUSD(ctx)
	if err != nil {
		return nil, err
	}
	bundle.EthPrice = ethPrice
	if err := s.SaveBundle(ctx, bundle); err != nil {
		return nil, err
	}

	token0.DerivedETH, err = m.findEthPerToken(ctx, s, token0)
	if err != nil {
		return nil, err
	}
	token1.DerivedETH, err = m.findEthPerToken(ctx, s, token1)
	if err != nil {
		return nil, err
	}

	trackedLiquidity := m.trackedLiquidityUSD(pair.Reserve0, pair.Reserve1, token0, token1, bundle)
	pair.TrackedReserveETH = entity.SafeDiv(trackedLiquidity, bundle.EthPrice)
	pair.ReserveETH = pair.Reserve0.Mul(token0.DerivedETH).Add(pair.Reserve1.Mul(token1.DerivedETH))
	pair.ReserveUSD = pair.ReserveETH.Mul(bundle.EthPrice)

	factory.TotalLiquidityETH = factory.TotalLiquidityETH.Add(pair.TrackedReserveETH)
	factory.TotalLiquidityUSD = factory.TotalLiquidityETH.Mul(bundle.EthPrice)

	token0.TotalLiquidity = token0.TotalLiquidity.Add(pair.Reserve0)
	token0.TotalLiquidityUSD = token0.TotalLiquidityUSD.Add(
		pair.Reserve0.Mul(token0.DerivedETH).Mul(bundle.EthPrice))
	token0.LastEthPrice = bundle.EthPrice
	token1.TotalLiquidity = token1.TotalLiquidity.Add(pair.Reserve1)
	token1.TotalLiquidityUSD = token1.TotalLiquidityUSD.Add(
		pair.Reserve1.Mul(token1.DerivedETH).Mul(bundle.EthPrice))
	token1.LastEthPrice = bundle.EthPrice

	if err := s.SavePair(ctx, pair); err != nil {
		return nil, err
	}
	if err := s.SaveFactory(ctx, factory); err != nil {
		return nil, err
	}
	if err := s.SaveToken(ctx, token0); err != nil {
		return nil, err
	}
	if err := s.SaveToken(ctx, token1); err != nil {
		return nil, err
	}

	return &syncState{pair: pair, token0: token0, token1: token1, bundle: bundle, factory: factory}, nil
}
