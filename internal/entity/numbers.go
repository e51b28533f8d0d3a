package entity

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Liquidity tokens always carry 18 decimals.
const LiquidityTokenDecimals = 18

func init() {
	// Price ratios for tokens with skewed decimal counts (6 vs 18) need
	// more headroom than the library default of 16 digits.
	decimal.DivisionPrecision = 30
}

func ZeroBD() decimal.Decimal { return decimal.Zero }

func OneBD() decimal.Decimal { return decimal.New(1, 0) }

// ExponentToDecimal returns 10^decimals as an exact decimal.
func ExponentToDecimal(decimals int) decimal.Decimal {
	return decimal.New(1, int32(decimals))
}

// ConvertTokenToDecimal scales a raw on-chain integer amount by the
// token's declared decimal count.
func ConvertTokenToDecimal(amount *big.Int, decimals int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	d := decimal.NewFromBigInt(amount, 0)
	if decimals == 0 {
		return d
	}
	return d.Div(ExponentToDecimal(decimals))
}

// SafeDiv divides a by b, returning zero when b is zero. Every price
// ratio in the engine goes through this so downstream arithmetic stays
// well-defined instead of raising.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// Reciprocal returns 1/x, or zero when x is zero.
func Reciprocal(x decimal.Decimal) decimal.Decimal {
	return SafeDiv(OneBD(), x)
}
