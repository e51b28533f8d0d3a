package twap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/twapstream/indexer/internal/entity"
	"github.com/twapstream/indexer/internal/modules/core"
	"github.com/twapstream/indexer/internal/store"
)

// initialLockLiquidity is the minimum liquidity a pool burns to the
// zero address on its first mint. Spam contracts replay this transfer
// pattern, so it is filtered before any state is touched.
var initialLockLiquidity = big.NewInt(1000)

func hashID(h common.Hash) string {
	return strings.ToLower(h.Hex())
}

// handlePairCreated registers a new pool and its tokens. A token whose
// on-chain metadata cannot be read is unusable for pricing, so the
// whole pool is skipped.
func (m *Module) handlePairCreated(ctx context.Context, s store.Store, ev *core.ParsedEvent) error {
	token0Addr, ok0 := argAddress(ev.Args, "token0")
	token1Addr, ok1 := argAddress(ev.Args, "token1")
	pairAddr, ok2 := argAddress(ev.Args, "pair")
	if !ok0 || !ok1 || !ok2 {
		return fmt.Errorf("malformed PairCreated event in tx %s", hashID(ev.TransactionHash))
	}

	factory, err := m.loadOrCreateFactory(ctx, s)
	if err != nil {
		return err
	}

	token0, err := m.loadOrCreateToken(ctx, s, token0Addr)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("token", addressID(token0Addr)).
			Str("pair", addressID(pairAddr)).
			Msg("Skipping pair with unreadable token")
		return nil
	}
	token1, err := m.loadOrCreateToken(ctx, s, token1Addr)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("token", addressID(token1Addr)).
			Str("pair", addressID(pairAddr)).
			Msg("Skipping pair with unreadable token")
		return nil
	}

	// The counter only moves once both tokens are readable, so it stays
	// equal to the number of pair records.
	factory.PairCount++
	if err := s.SaveFactory(ctx, factory); err != nil {
		return err
	}

	pair := entity.NewPair(addressID(pairAddr), token0.ID, token1.ID, ev.Timestamp.Uint64(), ev.BlockNumber)
	if err := s.SavePair(ctx, pair); err != nil {
		return err
	}

	m.logger.Info().
		Str("pair", pair.ID).
		Str("token0", token0.Symbol).
		Str("token1", token1.Symbol).
		Uint64("block", ev.BlockNumber).
		Msg("Pair created")

	return nil
}

// handleTransfer tracks liquidity token movement. Transfers from the
// zero address open a mint, transfers into the pool open a burn, and
// transfers from the pool to the zero address finalize one. The pool's
// Mint and Burn events arrive later in the same transaction and fill
// in the amounts.
func (m *Module) handleTransfer(ctx context.Context, s store.Store, ev *core.ParsedEvent) error {
	fromAddr, ok0 := argAddress(ev.Args, "from")
	toAddr, ok1 := argAddress(ev.Args, "to")
	if !ok0 || !ok1 {
		return fmt.Errorf("malformed Transfer event in tx %s", hashID(ev.TransactionHash))
	}
	rawValue := argBigInt(ev.Args, "value")

	fromID := addressID(fromAddr)
	toID := addressID(toAddr)

	if toID == zeroAddress && rawValue.Cmp(initialLockLiquidity) == 0 {
		return nil
	}

	pair, err := s.LoadPair(ctx, addressID(ev.Address))
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}

	factory, err := m.loadOrCreateFactory(ctx, s)
	if err != nil {
		return err
	}
	if err := ensureUser(ctx, s, fromID); err != nil {
		return err
	}
	if err := ensureUser(ctx, s, toID); err != nil {
		return err
	}

	value := entity.ConvertTokenToDecimal(rawValue, entity.LiquidityTokenDecimals)
	timestamp := ev.Timestamp.Uint64()

	tx, err := loadOrCreateTransaction(ctx, s, hashID(ev.TransactionHash), ev.BlockNumber, timestamp)
	if err != nil {
		return err
	}

	if fromID == zeroAddress {
		pair.TotalSupply = pair.TotalSupply.Add(value)
		if err := s.SavePair(ctx, pair); err != nil {
			return err
		}

		needNew := true
		if lastID, ok := tx.Mints.Last(); ok {
			last, err := s.LoadMint(ctx, lastID)
			if err != nil {
				return err
			}
			if !last.Complete() {
				needNew = false
			}
		}

		if needNew {
			mint := &entity.Mint{
				ID:          entity.EventID(tx.ID, tx.Mints.Len()),
				Transaction: tx.ID,
				Pair:        pair.ID,
				To:          toID,
				Liquidity:   value,
				Timestamp:   timestamp,
			}
			if err := s.SaveMint(ctx, mint); err != nil {
				return err
			}
			tx.Mints = tx.Mints.Append(mint.ID)
			if err := s.SaveTransaction(ctx, tx); err != nil {
				return err
			}
			if err := s.SaveFactory(ctx, factory); err != nil {
				return err
			}
		}
	}

	if toID == pair.ID {
		burn := &entity.Burn{
			ID:            entity.EventID(tx.ID, tx.Burns.Len()),
			Transaction:   tx.ID,
			Pair:          pair.ID,
			Liquidity:     value,
			To:            toID,
			Sender:        fromID,
			NeedsComplete: true,
			Timestamp:     timestamp,
		}
		if err := s.SaveBurn(ctx, burn); err != nil {
			return err
		}
		tx.Burns = tx.Burns.Append(burn.ID)
		if err := s.SaveTransaction(ctx, tx); err != nil {
			return err
		}
	}

	if toID == zeroAddress && fromID == pair.ID {
		pair.TotalSupply = pair.TotalSupply.Sub(value)
		if err := s.SavePair(ctx, pair); err != nil {
			return err
		}

		// Reuse the burn opened by the deposit into the pool when there
		// is one, otherwise this is a direct burn.
		var burn *entity.Burn
		if lastID, ok := tx.Burns.Last(); ok {
			last, err := s.LoadBurn(ctx, lastID)
			if err != nil {
				return err
			}
			if last.NeedsComplete {
				burn = last
			}
		}
		if burn == nil {
			burn = &entity.Burn{
				ID:          entity.EventID(tx.ID, tx.Burns.Len()),
				Transaction: tx.ID,
				Pair:        pair.ID,
				Liquidity:   value,
				Timestamp:   timestamp,
			}
		}

		// A mint shell still open at this point is the protocol fee
		// mint that precedes a burn. Fold it into the burn record.
		if lastID, ok := tx.Mints.Last(); ok {
			lastMint, err := s.LoadMint(ctx, lastID)
			if err != nil {
				return err
			}
			if !lastMint.Complete() {
				burn.FeeTo = lastMint.To
				burn.FeeLiquidity = lastMint.Liquidity
				if err := s.DeleteMint(ctx, lastMint.ID); err != nil {
					return err
				}
				tx.Mints = tx.Mints.RemoveLast()
				if err := s.SaveTransaction(ctx, tx); err != nil {
					return err
				}
			}
		}

		if err := s.SaveBurn(ctx, burn); err != nil {
			return err
		}
		if burn.NeedsComplete {
			tx.Burns = tx.Burns.ReplaceLast(burn.ID)
		} else {
			tx.Burns = tx.Burns.Append(burn.ID)
		}
		if err := s.SaveTransaction(ctx, tx); err != nil {
			return err
		}
	}

	if fromID != zeroAddress && fromID != pair.ID {
		if err := m.refreshPosition(ctx, s, pair, fromID, timestamp, ev.BlockNumber); err != nil {
			return err
		}
	}
	if toID != zeroAddress && toID != pair.ID {
		if err := m.refreshPosition(ctx, s, pair, toID, timestamp, ev.BlockNumber); err != nil {
			return err
		}
	}

	return s.SaveTransaction(ctx, tx)
}

// handleMint completes the mint opened by the liquidity token transfer
// earlier in the transaction, then refreshes reserves and rollups.
func (m *Module) handleMint(ctx context.Context, s store.Store, ev *core.ParsedEvent) error {
	pair, err := s.LoadPair(ctx, addressID(ev.Address))
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}

	tx, err := s.LoadTransaction(ctx, hashID(ev.TransactionHash))
	if err != nil {
		if store.IsNotFound(err) {
			m.logger.Warn().Str("tx", hashID(ev.TransactionHash)).Msg("Mint event without transaction record")
			return nil
		}
		return err
	}
	mintID, ok := tx.Mints.Last()
	if !ok {
		m.logger.Warn().Str("tx", tx.ID).Msg("Mint event without open mint record")
		return nil
	}
	mint, err := s.LoadMint(ctx, mintID)
	if err != nil {
		return err
	}

	factory, err := m.loadOrCreateFactory(ctx, s)
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
	bundle, err := loadOrCreateBundle(ctx, s)
	if err != nil {
		return err
	}

	amount0 := entity.ConvertTokenToDecimal(argBigInt(ev.Args, "amount0"), token0.Decimals)
	amount1 := entity.ConvertTokenToDecimal(argBigInt(ev.Args, "amount1"), token1.Decimals)

	token0.TxCount++
	token1.TxCount++

	amountTotalUSD := token1.DerivedETH.Mul(amount1).
		Add(token0.DerivedETH.Mul(amount0)).
		Mul(bundle.EthPrice)

	pair.TxCount++
	factory.TxCount++

	if err := s.SaveToken(ctx, token0); err != nil {
		return err
	}
	if err := s.SaveToken(ctx, token1); err != nil {
		return err
	}
	if err := s.SavePair(ctx, pair); err != nil {
		return err
	}
	if err := s.SaveFactory(ctx, factory); err != nil {
		return err
	}

	sender, _ := argAddress(ev.Args, "sender")
	mint.Sender = addressID(sender)
	mint.Amount0 = amount0
	mint.Amount1 = amount1
	mint.LogIndex = ev.LogIndex
	mint.AmountUSD = amountTotalUSD
	if err := s.SaveMint(ctx, mint); err != nil {
		return err
	}

	position, err := loadOrCreatePosition(ctx, s, pair, mint.To)
	if err != nil {
		return err
	}
	if err := snapshotPosition(ctx, s, position, ev.Timestamp.Uint64(), ev.BlockNumber); err != nil {
		return err
	}

	state, err := m.syncPair(ctx, s, pair.ID)
	if err != nil {
		return err
	}
	_, err = m.updateRollups(ctx, s, state, ev.Timestamp.Uint64())
	return err
}

// handleBurn completes the burn opened by the liquidity token transfers
// earlier in the transaction, then refreshes reserves and rollups.
func (m *Module) handleBurn(ctx context.Context, s store.Store, ev *core.ParsedEvent) error {
	pair, err := s.LoadPair(ctx, addressID(ev.Address))
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}

	tx, err := s.LoadTransaction(ctx, hashID(ev.TransactionHash))
	if err != nil {
		if store.IsNotFound(err) {
			m.logger.Warn().Str("tx", hashID(ev.TransactionHash)).Msg("Burn event without transaction record")
			return nil
		}
		return err
	}
	burnID, ok := tx.Burns.Last()
	if !ok {
		m.logger.Warn().Str("tx", tx.ID).Msg("Burn event without open burn record")
		return nil
	}
	burn, err := s.LoadBurn(ctx, burnID)
	if err != nil {
		return err
	}

	factory, err := m.loadOrCreateFactory(ctx, s)
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
	bundle, err := loadOrCreateBundle(ctx, s)
	if err != nil {
		return err
	}

	amount0 := entity.ConvertTokenToDecimal(argBigInt(ev.Args, "amount0"), token0.Decimals)
	amount1 := entity.ConvertTokenToDecimal(argBigInt(ev.Args, "amount1"), token1.Decimals)

	token0.TxCount++
	token1.TxCount++

	amountTotalUSD := token1.DerivedETH.Mul(amount1).
		Add(token0.DerivedETH.Mul(amount0)).
		Mul(bundle.EthPrice)

	pair.TxCount++
	factory.TxCount++

	if err := s.SaveToken(ctx, token0); err != nil {
		return err
	}
	if err := s.SaveToken(ctx, token1); err != nil {
		return err
	}
	if err := s.SavePair(ctx, pair); err != nil {
		return err
	}
	if err := s.SaveFactory(ctx, factory); err != nil {
		return err
	}

	burn.Amount0 = amount0
	burn.Amount1 = amount1
	burn.LogIndex = ev.LogIndex
	burn.AmountUSD = amountTotalUSD
	if err := s.SaveBurn(ctx, burn); err != nil {
		return err
	}

	if burn.Sender != "" {
		position, err := loadOrCreatePosition(ctx, s, pair, burn.Sender)
		if err != nil {
			return err
		}
		if err := snapshotPosition(ctx, s, position, ev.Timestamp.Uint64(), ev.BlockNumber); err != nil {
			return err
		}
	}

	state, err := m.syncPair(ctx, s, pair.ID)
	if err != nil {
		return err
	}
	_, err = m.updateRollups(ctx, s, state, ev.Timestamp.Uint64())
	return err
}

// handleSwap records a trade, attributes its volume to tokens, pool,
// factory and time buckets, then refreshes reserves and prices.
func (m *Module) handleSwap(ctx context.Context, s store.Store, ev *core.ParsedEvent) error {
	pair, err := s.LoadPair(ctx, addressID(ev.Address))
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
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
	bundle, err := loadOrCreateBundle(ctx, s)
	if err != nil {
		return err
	}
	factory, err := m.loadOrCreateFactory(ctx, s)
	if err != nil {
		return err
	}

	amount0In := entity.ConvertTokenToDecimal(argBigInt(ev.Args, "amount0In"), token0.Decimals)
	amount1In := entity.ConvertTokenToDecimal(argBigInt(ev.Args, "amount1In"), token1.Decimals)
	amount0Out := entity.ConvertTokenToDecimal(argBigInt(ev.Args, "amount0Out"), token0.Decimals)
	amount1Out := entity.ConvertTokenToDecimal(argBigInt(ev.Args, "amount1Out"), token1.Decimals)

	amount0Total := amount0In.Add(amount0Out)
	amount1Total := amount1In.Add(amount1Out)

	// The swap's ETH value, averaged over both legs regardless of
	// whitelisting. This feeds the untracked aggregates only.
	derivedAmountETH := token1.DerivedETH.Mul(amount1Total).
		Add(token0.DerivedETH.Mul(amount0Total)).
		Div(decimal.New(2, 0))
	derivedAmountUSD := derivedAmountETH.Mul(bundle.EthPrice)

	trackedAmountUSD := m.trackedVolumeUSD(amount0Total, amount1Total, token0, token1, bundle)
	trackedAmountETH := entity.SafeDiv(trackedAmountUSD, bundle.EthPrice)

	token0.TradeVolume = token0.TradeVolume.Add(amount0Total)
	token0.TradeVolumeUSD = token0.TradeVolumeUSD.Add(trackedAmountUSD)
	token0.UntrackedVolumeUSD = token0.UntrackedVolumeUSD.Add(derivedAmountUSD)
	token0.TxCount++

	token1.TradeVolume = token1.TradeVolume.Add(amount1Total)
	token1.TradeVolumeUSD = token1.TradeVolumeUSD.Add(trackedAmountUSD)
	token1.UntrackedVolumeUSD = token1.UntrackedVolumeUSD.Add(derivedAmountUSD)
	token1.TxCount++

	pair.VolumeUSD = pair.VolumeUSD.Add(trackedAmountUSD)
	pair.VolumeToken0 = pair.VolumeToken0.Add(amount0Total)
	pair.VolumeToken1 = pair.VolumeToken1.Add(amount1Total)
	pair.UntrackedVolumeUSD = pair.UntrackedVolumeUSD.Add(derivedAmountUSD)
	pair.TxCount++

	factory.TotalVolumeUSD = factory.TotalVolumeUSD.Add(trackedAmountUSD)
	factory.TotalVolumeETH = factory.TotalVolumeETH.Add(trackedAmountETH)
	factory.UntrackedVolumeUSD = factory.UntrackedVolumeUSD.Add(derivedAmountUSD)
	factory.TxCount++

	if err := s.SavePair(ctx, pair); err != nil {
		return err
	}
	if err := s.SaveToken(ctx, token0); err != nil {
		return err
	}
	if err := s.SaveToken(ctx, token1); err != nil {
		return err
	}
	if err := s.SaveFactory(ctx, factory); err != nil {
		return err
	}

	timestamp := ev.Timestamp.Uint64()
	tx, err := loadOrCreateTransaction(ctx, s, hashID(ev.TransactionHash), ev.BlockNumber, timestamp)
	if err != nil {
		return err
	}

	amountUSD := trackedAmountUSD
	if amountUSD.IsZero() {
		amountUSD = derivedAmountUSD
	}

	sender, _ := argAddress(ev.Args, "sender")
	to, _ := argAddress(ev.Args, "to")

	swap := &entity.Swap{
		ID:          entity.EventID(tx.ID, tx.Swaps.Len()),
		Transaction: tx.ID,
		Pair:        pair.ID,
		Sender:      addressID(sender),
		From:        addressID(sender),
		To:          addressID(to),
		Amount0In:   amount0In,
		Amount1In:   amount1In,
		Amount0Out:  amount0Out,
		Amount1Out:  amount1Out,
		AmountUSD:   amountUSD,
		LogIndex:    ev.LogIndex,
		Timestamp:   timestamp,
	}
	if err := s.SaveSwap(ctx, swap); err != nil {
		return err
	}
	tx.Swaps = tx.Swaps.Append(swap.ID)
	if err := s.SaveTransaction(ctx, tx); err != nil {
		return err
	}

	state, err := m.syncPair(ctx, s, pair.ID)
	if err != nil {
		return err
	}
	rollups, err := m.updateRollups(ctx, s, state, timestamp)
	if err != nil {
		return err
	}

	rollups.day.DailyVolumeUSD = rollups.day.DailyVolumeUSD.Add(trackedAmountUSD)
	rollups.day.DailyVolumeETH = rollups.day.DailyVolumeETH.Add(trackedAmountETH)
	rollups.day.DailyVolumeUntracked = rollups.day.DailyVolumeUntracked.Add(derivedAmountUSD)
	rollups.day.TotalVolumeUSD = state.factory.TotalVolumeUSD
	rollups.day.TotalVolumeETH = state.factory.TotalVolumeETH
	if err := s.SaveDayData(ctx, rollups.day); err != nil {
		return err
	}

	rollups.pairDay.DailyVolumeToken0 = rollups.pairDay.DailyVolumeToken0.Add(amount0Total)
	rollups.pairDay.DailyVolumeToken1 = rollups.pairDay.DailyVolumeToken1.Add(amount1Total)
	rollups.pairDay.DailyVolumeUSD = rollups.pairDay.DailyVolumeUSD.Add(trackedAmountUSD)
	if err := s.SavePairDayData(ctx, rollups.pairDay); err != nil {
		return err
	}

	rollups.pairHour.HourlyVolumeToken0 = rollups.pairHour.HourlyVolumeToken0.Add(amount0Total)
	rollups.pairHour.HourlyVolumeToken1 = rollups.pairHour.HourlyVolumeToken1.Add(amount1Total)
	rollups.pairHour.HourlyVolumeUSD = rollups.pairHour.HourlyVolumeUSD.Add(trackedAmountUSD)
	if err := s.SavePairHourData(ctx, rollups.pairHour); err != nil {
		return err
	}

	volume0ETH := amount0Total.Mul(state.token0.DerivedETH)
	rollups.token0Day.DailyVolumeToken = rollups.token0Day.DailyVolumeToken.Add(amount0Total)
	rollups.token0Day.DailyVolumeETH = rollups.token0Day.DailyVolumeETH.Add(volume0ETH)
	rollups.token0Day.DailyVolumeUSD = rollups.token0Day.DailyVolumeUSD.Add(volume0ETH.Mul(state.bundle.EthPrice))
	if err := s.SaveTokenDayData(ctx, rollups.token0Day); err != nil {
		return err
	}

	volume1ETH := amount1Total.Mul(state.token1.DerivedETH)
	rollups.token1Day.DailyVolumeToken = rollups.token1Day.DailyVolumeToken.Add(amount1Total)
	rollups.token1Day.DailyVolumeETH = rollups.token1Day.DailyVolumeETH.Add(volume1ETH)
	rollups.token1Day.DailyVolumeUSD = rollups.token1Day.DailyVolumeUSD.Add(volume1ETH.Mul(state.bundle.EthPrice))
	return s.SaveTokenDayData(ctx, rollups.token1Day)
}
