package entity

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertTokenToDecimal(t *testing.T) {
	raw, ok := new(big.Int).SetString("2000000000", 10)
	require.True(t, ok)

	usdc := ConvertTokenToDecimal(raw, 6)
	assert.True(t, usdc.Equal(decimal.RequireFromString("2000")))

	weth := ConvertTokenToDecimal(big.NewInt(1500000000000000000), 18)
	assert.True(t, weth.Equal(decimal.RequireFromString("1.5")))

	zeroDecimals := ConvertTokenToDecimal(big.NewInt(42), 0)
	assert.True(t, zeroDecimals.Equal(decimal.NewFromInt(42)))

	assert.True(t, ConvertTokenToDecimal(nil, 18).IsZero())
}

func TestSafeDiv(t *testing.T) {
	assert.True(t, SafeDiv(decimal.NewFromInt(10), decimal.Zero).IsZero())
	assert.True(t, Reciprocal(decimal.Zero).IsZero())

	half := SafeDiv(decimal.NewFromInt(1), decimal.NewFromInt(2))
	assert.True(t, half.Equal(decimal.RequireFromString("0.5")))
}

func TestReciprocalPrecision(t *testing.T) {
	price := decimal.RequireFromString("2000")
	inverse := Reciprocal(price)
	product := price.Mul(inverse)

	diff := product.Sub(OneBD()).Abs()
	assert.True(t, diff.LessThan(decimal.New(1, -20)), "got %s", product)
}

func TestIDList(t *testing.T) {
	var l IDList

	_, ok := l.Last()
	assert.False(t, ok)

	l = l.Append("tx-0")
	l = l.Append("tx-1")
	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "tx-1", last)

	l = l.ReplaceLast("tx-1b")
	last, _ = l.Last()
	assert.Equal(t, "tx-1b", last)

	l = l.RemoveLast()
	assert.Equal(t, 1, l.Len())
	last, _ = l.Last()
	assert.Equal(t, "tx-0", last)
}

func TestTimeBuckets(t *testing.T) {
	// 2021-01-01 00:00:30 UTC
	var ts uint64 = 1609459230

	assert.Equal(t, int64(18628), DayID(ts))
	assert.Equal(t, int64(447072), HourIndex(ts))
	assert.Equal(t, "0xabc-18628", BucketID("0xabc", DayID(ts)))

	day := NewDayData(DayID(ts))
	assert.Equal(t, int64(1609459200), day.Date)
}

func TestEventID(t *testing.T) {
	assert.Equal(t, "0xdead-0", EventID("0xdead", 0))
	assert.Equal(t, "0xdead-3", EventID("0xdead", 3))
}
