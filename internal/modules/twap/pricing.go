package twap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/twapstream/indexer/internal/entity"
	"github.com/twapstream/indexer/internal/store"
)

// wethDecimals is the scale of the reference pair price reads.
const wethDecimals = 18

var q196 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 196), 0)

// pairToken0Price reads the reader contract's token0-in-token1 price
// for a pool, scaled by the quote token's decimals.
func (m *Module) pairToken0Price(ctx context.Context, pair common.Address, quoteDecimals int) (decimal.Decimal, error) {
	params, err := m.chain.PairParameters(ctx, common.HexToAddress(m.config.Reader), pair)
	if err != nil {
		return decimal.Zero, err
	}
	return entity.ConvertTokenToDecimal(params.Price, quoteDecimals), nil
}

func (m *Module) pairToken1Price(ctx context.Context, pair common.Address, quoteDecimals int) (decimal.Decimal, error) {
	price, err := m.pairToken0Price(ctx, pair, quoteDecimals)
	if err != nil {
		return decimal.Zero, err
	}
	return entity.Reciprocal(price), nil
}

// ethPriceUSD derives the current ETH price in USD from the configured
// USDC/WETH reference pool. Token ordering in the pool follows the
// lexicographic order of the two addresses, which decides which side of
// the quoted price is the dollar one.
func (m *Module) ethPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	refPair := common.HexToAddress(m.config.WethUsdcPair)

	if m.config.Usdc < m.config.Weth {
		return m.pairToken1Price(ctx, refPair, wethDecimals)
	}
	return m.pairToken0Price(ctx, refPair, wethDecimals)
}

// findEthPerToken derives a token's price in ETH. It walks a chain of
// sources: the token being WETH itself, a native pool against WETH, an
// external constant-product pool, and finally an external concentrated
// liquidity pool. Tokens with no pool anywhere price at zero.
func (m *Module) findEthPerToken(ctx context.Context, s store.Store, token *entity.Token) (decimal.Decimal, error) {
	if token.ID == m.config.Weth {
		return entity.OneBD(), nil
	}

	weth := common.HexToAddress(m.config.Weth)
	tokenAddr := common.HexToAddress(token.ID)

	pairAddr, err := m.chain.FactoryPair(ctx, common.HexToAddress(m.config.Factory), weth, tokenAddr)
	if err != nil {
		return decimal.Zero, err
	}
	if pairAddr != (common.Address{}) {
		return m.nativePoolPrice(ctx, s, pairAddr)
	}

	if m.config.UniswapV2Factory != "" {
		price, found, err := m.externalV2Price(ctx, weth, tokenAddr, token.Decimals)
		if err != nil {
			return decimal.Zero, err
		}
		if found {
			return price, nil
		}
	}

	if m.config.UniswapV3Factory != "" {
		price, found, err := m.externalV3Price(ctx, s, weth, tokenAddr, token.ID)
		if err != nil {
			return decimal.Zero, err
		}
		if found {
			return price, nil
		}
	}

	m.logger.Warn().Str("token", token.ID).Msg("No pool found for token pricing")
	return decimal.Zero, nil
}

// nativePoolPrice prices a token from its own factory's pool against
// WETH, using the reader's quoted price.
func (m *Module) nativePoolPrice(ctx context.Context, s store.Store, pairAddr common.Address) (decimal.Decimal, error) {
	pair, err := s.LoadPair(ctx, addressID(pairAddr))
	if err != nil {
		if store.IsNotFound(err) {
			m.logger.Warn().Str("pair", addressID(pairAddr)).Msg("Pricing pool not indexed yet")
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	token0, err := s.LoadToken(ctx, pair.Token0)
	if err != nil {
		if store.IsNotFound(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	token1, err := s.LoadToken(ctx, pair.Token1)
	if err != nil {
		if store.IsNotFound(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	if token0.ID == m.config.Weth {
		return m.pairToken1Price(ctx, pairAddr, token0.Decimals)
	}
	return m.pairToken0Price(ctx, pairAddr, token1.Decimals)
}

// externalV2Price prices a token from an external constant-product pool
// against WETH. The bool result reports whether such a pool exists.
func (m *Module) externalV2Price(ctx context.Context, weth, token common.Address, tokenDecimals int) (decimal.Decimal, bool, error) {
	poolAddr, err := m.chain.FactoryPair(ctx, common.HexToAddress(m.config.UniswapV2Factory), weth, token)
	if err != nil {
		return decimal.Zero, false, err
	}
	if poolAddr == (common.Address{}) {
		return decimal.Zero, false, nil
	}

	reserves, err := m.chain.V2Reserves(ctx, poolAddr)
	if err != nil {
		return decimal.Zero, false, err
	}

	if reserves.Token0 == token {
		tokenReserve := entity.ConvertTokenToDecimal(reserves.Reserve0, tokenDecimals)
		wethReserve := entity.ConvertTokenToDecimal(reserves.Reserve1, wethDecimals)
		return entity.SafeDiv(wethReserve, tokenReserve), true, nil
	}

	tokenReserve := entity.ConvertTokenToDecimal(reserves.Reserve1, tokenDecimals)
	wethReserve := entity.ConvertTokenToDecimal(reserves.Reserve0, wethDecimals)
	return entity.SafeDiv(wethReserve, tokenReserve), true, nil
}

// externalV3Price prices a token from an external concentrated
// liquidity pool against WETH at the configured fee tier.
func (m *Module) externalV3Price(ctx context.Context, s store.Store, weth, token common.Address, tokenID string) (decimal.Decimal, bool, error) {
	poolAddr, err := m.chain.V3Pool(ctx, common.HexToAddress(m.config.UniswapV3Factory), weth, token, big.NewInt(m.config.V3Fee))
	if err != nil {
		return decimal.Zero, false, err
	}
	if poolAddr == (common.Address{}) {
		return decimal.Zero, false, nil
	}

	state, err := m.chain.V3PoolState(ctx, poolAddr)
	if err != nil {
		return decimal.Zero, false, err
	}

	token0, err := s.LoadToken(ctx, addressID(state.Token0))
	if err != nil {
		if store.IsNotFound(err) {
			return decimal.Zero, true, nil
		}
		return decimal.Zero, false, err
	}
	token1, err := s.LoadToken(ctx, addressID(state.Token1))
	if err != nil {
		if store.IsNotFound(err) {
			return decimal.Zero, true, nil
		}
		return decimal.Zero, false, err
	}

	if state.Liquidity.Sign() <= 0 {
		return decimal.Zero, true, nil
	}

	sqrtPrice := decimal.NewFromBigInt(state.SqrtPriceX96, 0)
	priceX196 := sqrtPrice.Mul(sqrtPrice)
	converter := entity.ExponentToDecimal(wethDecimals + token0.Decimals - token1.Decimals)

	var price decimal.Decimal
	if token0.ID == tokenID {
		price = priceX196.Mul(converter).Div(q196)
	} else {
		price = entity.SafeDiv(q196, priceX196.Mul(converter))
	}
	return price.Div(entity.ExponentToDecimal(wethDecimals)), true, nil
}
