package twap

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/twapstream/indexer/internal/entity"
)

func volumeFixture(t *testing.T) (*Module, *entity.Token, *entity.Token, *entity.Token, *entity.Bundle) {
	t.Helper()
	m, _, _ := newTestModule(t)

	bundle := entity.NewBundle()
	bundle.EthPrice = decimal.NewFromInt(2000)

	usdc := entity.NewToken(testUsdc, "USDC", "USD Coin", 6, decimal.Zero)
	usdc.DerivedETH = decimal.RequireFromString("0.0005")

	weth := entity.NewToken(testWeth, "WETH", "Wrapped Ether", 18, decimal.Zero)
	weth.DerivedETH = decimal.NewFromInt(1)

	shib := entity.NewToken("0x00000000000000000000000000000000000000e1", "SHIB", "Shiba", 18, decimal.Zero)
	shib.DerivedETH = decimal.RequireFromString("0.00001")

	return m, usdc, weth, shib, bundle
}

func TestTrackedVolumeBothListed(t *testing.T) {
	m, usdc, weth, _, bundle := volumeFixture(t)

	volume := m.trackedVolumeUSD(decimal.NewFromInt(2000), decimal.NewFromInt(1), usdc, weth, bundle)
	require.True(t, volume.Equal(decimal.NewFromInt(2000)), "got %s", volume)
}

func TestTrackedVolumeOneListed(t *testing.T) {
	m, usdc, _, shib, bundle := volumeFixture(t)

	// $20 of USDC against an unlisted token counts the listed side only.
	volume := m.trackedVolumeUSD(decimal.NewFromInt(20), decimal.NewFromInt(1_000_000), usdc, shib, bundle)
	require.True(t, volume.Equal(decimal.NewFromInt(20)), "got %s", volume)

	volume = m.trackedVolumeUSD(decimal.NewFromInt(1_000_000), decimal.NewFromInt(20), shib, usdc, bundle)
	require.True(t, volume.Equal(decimal.NewFromInt(20)), "got %s", volume)
}

func TestTrackedVolumeNoneListed(t *testing.T) {
	m, _, _, shib, bundle := volumeFixture(t)

	volume := m.trackedVolumeUSD(decimal.NewFromInt(500), decimal.NewFromInt(500), shib, shib, bundle)
	require.True(t, volume.IsZero())
}

func TestTrackedLiquidityBothListed(t *testing.T) {
	m, usdc, weth, _, bundle := volumeFixture(t)

	liquidity := m.trackedLiquidityUSD(decimal.NewFromInt(2_000_000), decimal.NewFromInt(1000), usdc, weth, bundle)
	require.True(t, liquidity.Equal(decimal.NewFromInt(4_000_000)), "got %s", liquidity)
}

func TestTrackedLiquidityOneListedDoubles(t *testing.T) {
	m, usdc, _, shib, bundle := volumeFixture(t)

	// $20 of listed reserve stands in for both sides: $40 total.
	liquidity := m.trackedLiquidityUSD(decimal.NewFromInt(20), decimal.NewFromInt(1_000_000), usdc, shib, bundle)
	require.True(t, liquidity.Equal(decimal.NewFromInt(40)), "got %s", liquidity)
}

func TestTrackedLiquidityNoneListed(t *testing.T) {
	m, _, _, shib, bundle := volumeFixture(t)

	liquidity := m.trackedLiquidityUSD(decimal.NewFromInt(500), decimal.NewFromInt(500), shib, shib, bundle)
	require.True(t, liquidity.IsZero())
}
