package twap

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/twapstream/indexer/internal/modules/core"
	"github.com/twapstream/indexer/internal/entity"
	"github.com/twapstream/indexer/internal/store"
)

func TestTransferInitialLockIgnored(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	ev := transferEvent("0xbb01", 0, testUser, zeroAddress, big.NewInt(1000))
	require.NoError(t, m.handleTransfer(ctx, st, ev))

	_, err := st.LoadTransaction(ctx, hashID(common.HexToHash("0xbb01")))
	require.True(t, store.IsNotFound(err))

	pair, err := st.LoadPair(ctx, testRefPair)
	require.NoError(t, err)
	require.True(t, pair.TotalSupply.IsZero())
}

func TestTransferUnknownPairIgnored(t *testing.T) {
	m, st, _ := newTestModule(t)
	ctx := context.Background()

	ev := transferEvent("0xbb02", 0, zeroAddress, testUser, big.NewInt(1e18))
	require.NoError(t, m.handleTransfer(ctx, st, ev))

	_, err := st.LoadTransaction(ctx, hashID(common.HexToHash("0xbb02")))
	require.True(t, store.IsNotFound(err))
}

func TestTransferMintOpensShell(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	value := new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))
	ev := transferEvent("0xbb03", 0, zeroAddress, testUser, value)
	require.NoError(t, m.handleTransfer(ctx, st, ev))

	txID := hashID(common.HexToHash("0xbb03"))
	tx, err := st.LoadTransaction(ctx, txID)
	require.NoError(t, err)
	require.Equal(t, 1, tx.Mints.Len())

	mint, err := st.LoadMint(ctx, entity.EventID(txID, 0))
	require.NoError(t, err)
	require.False(t, mint.Complete())
	require.Equal(t, testUser, mint.To)
	require.True(t, mint.Liquidity.Equal(decimal.NewFromInt(5)))

	pair, err := st.LoadPair(ctx, testRefPair)
	require.NoError(t, err)
	require.True(t, pair.TotalSupply.Equal(decimal.NewFromInt(5)))

	// Users on both ends of the transfer exist now.
	_, err = st.LoadUser(ctx, testUser)
	require.NoError(t, err)
	_, err = st.LoadUser(ctx, zeroAddress)
	require.NoError(t, err)

	// A second transfer while the shell is open does not open another.
	ev2 := transferEvent("0xbb03", 1, zeroAddress, testUser, value)
	require.NoError(t, m.handleTransfer(ctx, st, ev2))
	tx, err = st.LoadTransaction(ctx, txID)
	require.NoError(t, err)
	require.Equal(t, 1, tx.Mints.Len())
}

func TestMintEventCompletesShell(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	// Establish prices so the completed mint carries a USD value.
	_, err := m.syncPair(ctx, st, testRefPair)
	require.NoError(t, err)

	value := new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))
	require.NoError(t, m.handleTransfer(ctx, st, transferEvent("0xbb04", 0, zeroAddress, testUser, value)))

	amount0, _ := new(big.Int).SetString("2000000000", 10)          // 2000 USDC
	amount1, _ := new(big.Int).SetString("1000000000000000000", 10) // 1 WETH

	ev := &core.ParsedEvent{
		EventName: "Mint",
		Address:   common.HexToAddress(testRefPair),
		Args: map[string]interface{}{
			"sender":  common.HexToAddress(testUser),
			"amount0": amount0,
			"amount1": amount1,
		},
		TransactionHash: common.HexToHash("0xbb04"),
		BlockNumber:     testBlock,
		LogIndex:        1,
		Timestamp:       new(big.Int).SetUint64(testTimestamp),
	}
	require.NoError(t, m.handleMint(ctx, st, ev))

	txID := hashID(common.HexToHash("0xbb04"))
	mint, err := st.LoadMint(ctx, entity.EventID(txID, 0))
	require.NoError(t, err)
	require.True(t, mint.Complete())
	require.Equal(t, testUser, mint.Sender)
	require.True(t, mint.Amount0.Equal(decimal.NewFromInt(2000)))
	require.True(t, mint.Amount1.Equal(decimal.NewFromInt(1)))
	// 2000 USDC at $1 plus 1 WETH at $2000.
	require.True(t, mint.AmountUSD.Equal(decimal.NewFromInt(4000)), "got %s", mint.AmountUSD)

	pair, err := st.LoadPair(ctx, testRefPair)
	require.NoError(t, err)
	require.Equal(t, int64(1), pair.TxCount)

	factory, err := st.LoadFactory(ctx, testFactory)
	require.NoError(t, err)
	require.Equal(t, int64(1), factory.TxCount)

	// The mint recipient has a position and a snapshot.
	_, err = st.LoadLiquidityPosition(ctx, entity.PositionID(testRefPair, testUser))
	require.NoError(t, err)
	require.NotEmpty(t, st.Snapshots())
}

func TestFeeMintFoldedIntoBurn(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	txHash := "0xbb05"
	txID := hashID(common.HexToHash(txHash))

	feeValue, _ := new(big.Int).SetString("300000000000000000", 10)  // 0.3 fee mint
	burnValue, _ := new(big.Int).SetString("7000000000000000000", 10) // 7 withdrawn

	// Protocol fee mint, then the holder's deposit into the pool, then
	// the pool burning the deposited liquidity.
	require.NoError(t, m.handleTransfer(ctx, st, transferEvent(txHash, 0, zeroAddress, testFeeTo, feeValue)))
	require.NoError(t, m.handleTransfer(ctx, st, transferEvent(txHash, 1, testUser, testRefPair, burnValue)))
	require.NoError(t, m.handleTransfer(ctx, st, transferEvent(txHash, 2, testRefPair, zeroAddress, burnValue)))

	tx, err := st.LoadTransaction(ctx, txID)
	require.NoError(t, err)
	require.Equal(t, 0, tx.Mints.Len())
	require.Equal(t, 1, tx.Burns.Len())

	// The fee mint shell is gone, folded into the burn.
	_, err = st.LoadMint(ctx, entity.EventID(txID, 0))
	require.True(t, store.IsNotFound(err))

	burnID, _ := tx.Burns.Last()
	burn, err := st.LoadBurn(ctx, burnID)
	require.NoError(t, err)
	require.True(t, burn.NeedsComplete)
	require.Equal(t, testUser, burn.Sender)
	require.Equal(t, testFeeTo, burn.FeeTo)
	require.True(t, burn.FeeLiquidity.Equal(decimal.RequireFromString("0.3")))
	require.True(t, burn.Liquidity.Equal(decimal.NewFromInt(7)))
}

func TestBurnEventCompletesBurn(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	_, err := m.syncPair(ctx, st, testRefPair)
	require.NoError(t, err)

	txHash := "0xbb06"
	burnValue, _ := new(big.Int).SetString("7000000000000000000", 10)

	require.NoError(t, m.handleTransfer(ctx, st, transferEvent(txHash, 0, testUser, testRefPair, burnValue)))
	require.NoError(t, m.handleTransfer(ctx, st, transferEvent(txHash, 1, testRefPair, zeroAddress, burnValue)))

	amount0, _ := new(big.Int).SetString("2000000000", 10)
	amount1, _ := new(big.Int).SetString("1000000000000000000", 10)

	ev := &core.ParsedEvent{
		EventName: "Burn",
		Address:   common.HexToAddress(testRefPair),
		Args: map[string]interface{}{
			"sender":  common.HexToAddress(testUser),
			"amount0": amount0,
			"amount1": amount1,
			"to":      common.HexToAddress(testUser),
		},
		TransactionHash: common.HexToHash(txHash),
		BlockNumber:     testBlock,
		LogIndex:        2,
		Timestamp:       new(big.Int).SetUint64(testTimestamp),
	}
	require.NoError(t, m.handleBurn(ctx, st, ev))

	tx, err := st.LoadTransaction(ctx, hashID(common.HexToHash(txHash)))
	require.NoError(t, err)
	burnID, _ := tx.Burns.Last()
	burn, err := st.LoadBurn(ctx, burnID)
	require.NoError(t, err)

	require.True(t, burn.Amount0.Equal(decimal.NewFromInt(2000)))
	require.True(t, burn.Amount1.Equal(decimal.NewFromInt(1)))
	require.True(t, burn.AmountUSD.Equal(decimal.NewFromInt(4000)))
	// The completing event never rewrites the parties recorded by the
	// transfer legs.
	require.Equal(t, testUser, burn.Sender)
	require.Equal(t, testRefPair, burn.To)
}

func TestSwapAttributesVolume(t *testing.T) {
	m, st, reader := newTestModule(t)
	seedMarket(t, st, reader)
	ctx := context.Background()

	_, err := m.syncPair(ctx, st, testRefPair)
	require.NoError(t, err)

	amount1In, _ := new(big.Int).SetString("1000000000000000000", 10) // 1 WETH in
	amount0Out, _ := new(big.Int).SetString("2000000000", 10)         // 2000 USDC out

	ev := &core.ParsedEvent{
		EventName: "Swap",
		Address:   common.HexToAddress(testRefPair),
		Args: map[string]interface{}{
			"sender":     common.HexToAddress(testUser),
			"amount0In":  big.NewInt(0),
			"amount1In":  amount1In,
			"amount0Out": amount0Out,
			"amount1Out": big.NewInt(0),
			"to":         common.HexToAddress(testUser),
		},
		TransactionHash: common.HexToHash("0xbb07"),
		BlockNumber:     testBlock,
		LogIndex:        0,
		Timestamp:       new(big.Int).SetUint64(testTimestamp),
	}
	require.NoError(t, m.handleSwap(ctx, st, ev))

	txID := hashID(common.HexToHash("0xbb07"))
	tx, err := st.LoadTransaction(ctx, txID)
	require.NoError(t, err)
	require.Equal(t, 1, tx.Swaps.Len())

	swap, err := st.LoadSwap(ctx, entity.EventID(txID, 0))
	require.NoError(t, err)
	// Both legs are whitelisted and worth $2000, so the tracked value
	// is their average.
	require.True(t, swap.AmountUSD.Equal(decimal.NewFromInt(2000)), "got %s", swap.AmountUSD)
	require.True(t, swap.Amount1In.Equal(decimal.NewFromInt(1)))
	require.True(t, swap.Amount0Out.Equal(decimal.NewFromInt(2000)))

	pair, err := st.LoadPair(ctx, testRefPair)
	require.NoError(t, err)
	require.True(t, pair.VolumeUSD.Equal(decimal.NewFromInt(2000)))
	require.True(t, pair.VolumeToken0.Equal(decimal.NewFromInt(2000)))
	require.True(t, pair.VolumeToken1.Equal(decimal.NewFromInt(1)))

	factory, err := st.LoadFactory(ctx, testFactory)
	require.NoError(t, err)
	require.True(t, factory.TotalVolumeUSD.Equal(decimal.NewFromInt(2000)))
	require.True(t, factory.TotalVolumeETH.Equal(decimal.NewFromInt(1)))

	day, err := st.LoadDayData(ctx, entity.NewDayData(entity.DayID(testTimestamp)).ID)
	require.NoError(t, err)
	require.True(t, day.DailyVolumeUSD.Equal(decimal.NewFromInt(2000)))
	require.True(t, day.DailyVolumeETH.Equal(decimal.NewFromInt(1)))

	pairDay, err := st.LoadPairDayData(ctx, entity.BucketID(testRefPair, entity.DayID(testTimestamp)))
	require.NoError(t, err)
	require.True(t, pairDay.DailyVolumeToken0.Equal(decimal.NewFromInt(2000)))
	require.Equal(t, int64(1), pairDay.DailyTxns)

	pairHour, err := st.LoadPairHourData(ctx, entity.BucketID(testRefPair, entity.HourIndex(testTimestamp)))
	require.NoError(t, err)
	require.True(t, pairHour.HourlyVolumeUSD.Equal(decimal.NewFromInt(2000)))

	usdcDay, err := st.LoadTokenDayData(ctx, entity.BucketID(testUsdc, entity.DayID(testTimestamp)))
	require.NoError(t, err)
	require.True(t, usdcDay.DailyVolumeToken.Equal(decimal.NewFromInt(2000)))
	require.True(t, usdcDay.DailyVolumeUSD.Equal(decimal.NewFromInt(2000)), "got %s", usdcDay.DailyVolumeUSD)
}

func TestSwapUnknownPairIgnored(t *testing.T) {
	m, st, _ := newTestModule(t)
	ctx := context.Background()

	ev := &core.ParsedEvent{
		EventName:       "Swap",
		Address:         common.HexToAddress(testRefPair),
		Args:            map[string]interface{}{},
		TransactionHash: common.HexToHash("0xbb08"),
		Timestamp:       new(big.Int).SetUint64(testTimestamp),
	}
	require.NoError(t, m.handleSwap(ctx, st, ev))

	_, err := st.LoadTransaction(ctx, hashID(common.HexToHash("0xbb08")))
	require.True(t, store.IsNotFound(err))
}
