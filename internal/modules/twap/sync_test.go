package twap

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/twapstream/indexer/internal/chain"
	"github.com/twapstream/indexer/internal/entity"
)

func TestEthPriceFromReferencePool(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)

	price, err := m.ethPriceUSD(context.Background())
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(2000)), "got %s", price)
}

func TestFindEthPerTokenBaseAsset(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	weth, err := st.LoadToken(ctx, testWeth)
	require.NoError(t, err)

	derived, err := m.findEthPerToken(ctx, st, weth)
	require.NoError(t, err)
	require.True(t, derived.Equal(decimal.NewFromInt(1)))
}

func TestFindEthPerTokenViaNativePool(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	usdc, err := st.LoadToken(ctx, testUsdc)
	require.NoError(t, err)

	derived, err := m.findEthPerToken(ctx, st, usdc)
	require.NoError(t, err)
	require.True(t, derived.Equal(decimal.RequireFromString("0.0005")), "got %s", derived)
}

func TestFindEthPerTokenNoPool(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	orphan, err := st.LoadToken(ctx, testUsdc)
	require.NoError(t, err)
	orphan.ID = "0x00000000000000000000000000000000000000e9"

	derived, err := m.findEthPerToken(ctx, st, orphan)
	require.NoError(t, err)
	require.True(t, derived.IsZero())
}

func TestFindEthPerTokenViaExternalV2(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	daiID := "0x00000000000000000000000000000000000000e2"
	dai := entity.NewToken(daiID, "DAI", "Dai Stablecoin", 18, decimal.Zero)
	require.NoError(t, st.SaveToken(ctx, dai))

	// 4,000,000 DAI against 2000 WETH in an external pool.
	pool := common.HexToAddress("0x00000000000000000000000000000000000000c2")
	reader.pairs[pairKey(common.HexToAddress(testUniV2Factory), common.HexToAddress(testWeth), common.HexToAddress(daiID))] = pool
	reader.v2Reserves[pool] = &chain.V2Reserves{
		Token0:   common.HexToAddress(daiID),
		Token1:   common.HexToAddress(testWeth),
		Reserve0: decimal.New(4_000_000, 18).BigInt(),
		Reserve1: decimal.New(2000, 18).BigInt(),
	}

	derived, err := m.findEthPerToken(ctx, st, dai)
	require.NoError(t, err)
	require.True(t, derived.Equal(decimal.RequireFromString("0.0005")), "got %s", derived)
}

func TestFindEthPerTokenViaExternalV2Flipped(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	usdtID := "0x00000000000000000000000000000000000000e3"
	usdt := entity.NewToken(usdtID, "USDT", "Tether USD", 6, decimal.Zero)
	require.NoError(t, st.SaveToken(ctx, usdt))

	// The token sits on the token1 side: 5 WETH against 10,000 USDT.
	pool := common.HexToAddress("0x00000000000000000000000000000000000000c3")
	reader.pairs[pairKey(common.HexToAddress(testUniV2Factory), common.HexToAddress(testWeth), common.HexToAddress(usdtID))] = pool
	reader.v2Reserves[pool] = &chain.V2Reserves{
		Token0:   common.HexToAddress(testWeth),
		Token1:   common.HexToAddress(usdtID),
		Reserve0: decimal.New(5, 18).BigInt(),
		Reserve1: decimal.New(10_000, 6).BigInt(),
	}

	derived, err := m.findEthPerToken(ctx, st, usdt)
	require.NoError(t, err)
	require.True(t, derived.Equal(decimal.RequireFromString("0.0005")), "got %s", derived)
}

func TestFindEthPerTokenViaExternalV3(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	arbID := "0x00000000000000000000000000000000000000e4"
	arb := entity.NewToken(arbID, "ARB", "Arbitrum", 18, decimal.Zero)
	require.NoError(t, st.SaveToken(ctx, arb))

	// sqrtPriceX96 = 2^97 prices the token0 side at 2^194/2^196 = 0.25.
	pool := common.HexToAddress("0x00000000000000000000000000000000000000c4")
	reader.v3Pools[pairKey(common.HexToAddress(testUniV3Factory), common.HexToAddress(testWeth), common.HexToAddress(arbID))] = pool
	reader.v3States[pool] = &chain.V3PoolState{
		Token0:       common.HexToAddress(arbID),
		Token1:       common.HexToAddress(testWeth),
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 97),
		Liquidity:    big.NewInt(1),
	}

	derived, err := m.findEthPerToken(ctx, st, arb)
	require.NoError(t, err)
	require.True(t, derived.Equal(decimal.RequireFromString("0.25")), "got %s", derived)
}

func TestFindEthPerTokenViaExternalV3Flipped(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	yamID := "0x00000000000000000000000000000000000000e5"
	yam := entity.NewToken(yamID, "YAMV2", "YAM", 24, decimal.Zero)
	require.NoError(t, st.SaveToken(ctx, yam))

	// The token sits on the token1 side, so the quote inverts:
	// 2^196 / (2^196 * 10^(18+18-24)) scaled back by 1e18.
	pool := common.HexToAddress("0x00000000000000000000000000000000000000c5")
	reader.v3Pools[pairKey(common.HexToAddress(testUniV3Factory), common.HexToAddress(testWeth), common.HexToAddress(yamID))] = pool
	reader.v3States[pool] = &chain.V3PoolState{
		Token0:       common.HexToAddress(testWeth),
		Token1:       common.HexToAddress(yamID),
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 98),
		Liquidity:    big.NewInt(1),
	}

	derived, err := m.findEthPerToken(ctx, st, yam)
	require.NoError(t, err)
	require.True(t, derived.Equal(decimal.New(1, -30)), "got %s", derived)
}

func TestFindEthPerTokenExternalV3ZeroLiquidity(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	arbID := "0x00000000000000000000000000000000000000e4"
	arb := entity.NewToken(arbID, "ARB", "Arbitrum", 18, decimal.Zero)
	require.NoError(t, st.SaveToken(ctx, arb))

	pool := common.HexToAddress("0x00000000000000000000000000000000000000c4")
	reader.v3Pools[pairKey(common.HexToAddress(testUniV3Factory), common.HexToAddress(testWeth), common.HexToAddress(arbID))] = pool
	reader.v3States[pool] = &chain.V3PoolState{
		Token0:       common.HexToAddress(arbID),
		Token1:       common.HexToAddress(testWeth),
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 97),
		Liquidity:    big.NewInt(0),
	}

	// A drained pool is no price source.
	derived, err := m.findEthPerToken(ctx, st, arb)
	require.NoError(t, err)
	require.True(t, derived.IsZero())
}

func TestSyncPairRefreshesMarket(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	state, err := m.syncPair(ctx, st, testRefPair)
	require.NoError(t, err)

	pair := state.pair
	require.True(t, pair.Reserve0.Equal(decimal.NewFromInt(2_000_000)))
	require.True(t, pair.Reserve1.Equal(decimal.NewFromInt(1000)))
	require.True(t, pair.Token0Price.Equal(decimal.RequireFromString("0.0005")), "got %s", pair.Token0Price)
	require.True(t, pair.Token1Price.Equal(decimal.NewFromInt(2000)), "got %s", pair.Token1Price)

	// The two quoted prices stay reciprocal.
	product := pair.Token0Price.Mul(pair.Token1Price)
	require.True(t, product.Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.New(1, -20)), "got %s", product)

	require.True(t, state.bundle.EthPrice.Equal(decimal.NewFromInt(2000)))
	require.True(t, state.token0.DerivedETH.Equal(decimal.RequireFromString("0.0005")))
	require.True(t, state.token1.DerivedETH.Equal(decimal.NewFromInt(1)))

	// Both sides are whitelisted: $2M of USDC plus $2M of WETH.
	require.True(t, pair.ReserveUSD.Equal(decimal.NewFromInt(4_000_000)), "got %s", pair.ReserveUSD)
	require.True(t, pair.ReserveETH.Equal(decimal.NewFromInt(2000)))
	require.True(t, pair.TrackedReserveETH.Equal(decimal.NewFromInt(2000)))

	require.True(t, state.factory.TotalLiquidityETH.Equal(decimal.NewFromInt(2000)))
	require.True(t, state.factory.TotalLiquidityUSD.Equal(decimal.NewFromInt(4_000_000)))

	require.True(t, state.token0.TotalLiquidity.Equal(decimal.NewFromInt(2_000_000)))
	require.True(t, state.token0.TotalLiquidityUSD.Equal(decimal.NewFromInt(2_000_000)))
	require.True(t, state.token0.LastEthPrice.Equal(decimal.NewFromInt(2000)))
}

func TestSyncPairReversalKeepsAggregatesStable(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	first, err := m.syncPair(ctx, st, testRefPair)
	require.NoError(t, err)
	second, err := m.syncPair(ctx, st, testRefPair)
	require.NoError(t, err)

	// Re-syncing with unchanged reserves reverses and reapplies the
	// pool's contribution, landing on identical aggregates.
	require.True(t, first.factory.TotalLiquidityETH.Equal(second.factory.TotalLiquidityETH))
	require.True(t, first.factory.TotalLiquidityUSD.Equal(second.factory.TotalLiquidityUSD))
	require.True(t, first.token0.TotalLiquidity.Equal(second.token0.TotalLiquidity))
	require.True(t, first.token0.TotalLiquidityUSD.Equal(second.token0.TotalLiquidityUSD))
	require.True(t, first.token1.TotalLiquidity.Equal(second.token1.TotalLiquidity))
	require.True(t, first.token1.TotalLiquidityUSD.Equal(second.token1.TotalLiquidityUSD))
	require.True(t, first.pair.TrackedReserveETH.Equal(second.pair.TrackedReserveETH))
}
