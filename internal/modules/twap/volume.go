package twap

import (
	"github.com/shopspring/decimal"

	"github.com/twapstream/indexer/internal/entity"
)

// trackedVolumeUSD values a swap in USD using only whitelisted sides.
// Both sides listed averages the two USD legs, one side listed takes
// that leg, and a swap between two unlisted tokens contributes nothing.
func (m *Module) trackedVolumeUSD(amount0, amount1 decimal.Decimal, token0, token1 *entity.Token, bundle *entity.Bundle) decimal.Decimal {
	price0 := token0.DerivedETH.Mul(bundle.EthPrice)
	price1 := token1.DerivedETH.Mul(bundle.EthPrice)

	listed0 := m.whitelist[token0.ID]
	listed1 := m.whitelist[token1.ID]

	switch {
	case listed0 && listed1:
		return amount0.Mul(price0).Add(amount1.Mul(price1)).Div(decimal.New(2, 0))
	case listed0:
		return amount0.Mul(price0)
	case listed1:
		return amount1.Mul(price1)
	default:
		return decimal.Zero
	}
}

// trackedLiquidityUSD values pool reserves in USD using only
// whitelisted sides. A single listed side is doubled to stand in for
// the unlisted one.
func (m *Module) trackedLiquidityUSD(reserve0, reserve1 decimal.Decimal, token0, token1 *entity.Token, bundle *entity.Bundle) decimal.Decimal {
	price0 := token0.DerivedETH.Mul(bundle.EthPrice)
	price1 := token1.DerivedETH.Mul(bundle.EthPrice)

	listed0 := m.whitelist[token0.ID]
	listed1 := m.whitelist[token1.ID]

	switch {
	case listed0 && listed1:
		return reserve0.Mul(price0).Add(reserve1.Mul(price1))
	case listed0:
		return reserve0.Mul(price0).Mul(decimal.New(2, 0))
	case listed1:
		return reserve1.Mul(price1).Mul(decimal.New(2, 0))
	default:
		return decimal.Zero
	}
}
