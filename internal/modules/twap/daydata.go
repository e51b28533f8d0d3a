package twap

import (
	"context"

	"github.com/twapstream/indexer/internal/entity"
	"github.com/twapstream/indexer/internal/store"
)

// rollupState holds the bucket records touched by one event, already
// saved with refreshed liquidity figures. The swap handler adds its
// volume on top and saves them again.
type rollupState struct {
	day       *entity.DayData
	pairDay   *entity.PairDayData
	pairHour  *entity.PairHourData
	token0Day *entity.TokenDayData
	token1Day *entity.TokenDayData
}

// updateRollups refreshes every time bucket a pool event touches:
// the protocol day record, the pool's day and hour records, and the day
// records of both tokens. Liquidity figures are overwritten from the
// post-sync state; transaction counters increment once per event.
func (m *Module) updateRollups(ctx context.Context, s store.Store, state *syncState, timestamp uint64) (*rollupState, error) {
	day, err := m.updateDayData(ctx, s, state.factory, timestamp)
	if err != nil {
		return nil, err
	}
	pairDay, err := updatePairDayData(ctx, s, state.pair, timestamp)
	if err != nil {
		return nil, err
	}
	pairHour, err := updatePairHourData(ctx, s, state.pair, timestamp)
	if err != nil {
		return nil, err
	}
	token0Day, err := updateTokenDayData(ctx, s, state.token0, state.bundle, timestamp)
	if err != nil {
		return nil, err
	}
	token1Day, err := updateTokenDayData(ctx, s, state.token1, state.bundle, timestamp)
	if err != nil {
		return nil, err
	}

	return &rollupState{
		day:       day,
		pairDay:   pairDay,
		pairHour:  pairHour,
		token0Day: token0Day,
		token1Day: token1Day,
	}, nil
}

func (m *Module) updateDayData(ctx context.Context, s store.Store, factory *entity.Factory, timestamp uint64) (*entity.DayData, error) {
	dayID := entity.DayID(timestamp)

	day, err := s.LoadDayData(ctx, entity.NewDayData(dayID).ID)
	if err != nil {
		if !store.IsNotFound(err) {
			return nil, err
		}
		day = entity.NewDayData(dayID)
	}

	day.TotalLiquidityUSD = factory.TotalLiquidityUSD
	day.TotalLiquidityETH = factory.TotalLiquidityETH
	day.TxCount = factory.TxCount

	if err := s.SaveDayData(ctx, day); err != nil {
		return nil, err
	}
	return day, nil
}

func updatePairDayData(ctx context.Context, s store.Store, pair *entity.Pair, timestamp uint64) (*entity.PairDayData, error) {
	dayID := entity.DayID(timestamp)

	record, err := s.LoadPairDayData(ctx, entity.BucketID(pair.ID, dayID))
	if err != nil {
		if !store.IsNotFound(err) {
			return nil, err
		}
		record = entity.NewPairDayData(pair, dayID)
	}

	record.TotalSupply = pair.TotalSupply
	record.Reserve0 = pair.Reserve0
	record.Reserve1 = pair.Reserve1
	record.ReserveUSD = pair.ReserveUSD
	record.DailyTxns++

	if err := s.SavePairDayData(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func updatePairHourData(ctx context.Context, s store.Store, pair *entity.Pair, timestamp uint64) (*entity.PairHourData, error) {
	hourIndex := entity.HourIndex(timestamp)

	record, err := s.LoadPairHourData(ctx, entity.BucketID(pair.ID, hourIndex))
	if err != nil {
		if !store.IsNotFound(err) {
			return nil, err
		}
		record = entity.NewPairHourData(pair, hourIndex)
	}

	record.TotalSupply = pair.TotalSupply
	record.Reserve0 = pair.Reserve0
	record.Reserve1 = pair.Reserve1
	record.ReserveUSD = pair.ReserveUSD
	record.HourlyTxns++

	if err := s.SavePairHourData(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func updateTokenDayData(ctx context.Context, s store.Store, token *entity.Token, bundle *entity.Bundle, timestamp uint64) (*entity.TokenDayData, error) {
	dayID := entity.DayID(timestamp)

	record, err := s.LoadTokenDayData(ctx, entity.BucketID(token.ID, dayID))
	if err != nil {
		if !store.IsNotFound(err) {
			return nil, err
		}
		record = entity.NewTokenDayData(token, bundle.EthPrice, dayID)
	}

	record.PriceUSD = token.DerivedETH.Mul(bundle.EthPrice)
	record.TotalLiquidityToken = token.TotalLiquidity
	record.TotalLiquidityETH = token.TotalLiquidity.Mul(token.DerivedETH)
	record.TotalLiquidityUSD = record.TotalLiquidityETH.Mul(bundle.EthPrice)
	record.DailyTxns++

	if err := s.SaveTokenDayData(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
