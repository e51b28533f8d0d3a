package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	daySeconds  = 86400
	hourSeconds = 3600
)

// DayID returns the unix day index for a block timestamp.
func DayID(timestamp uint64) int64 {
	return int64(timestamp) / daySeconds
}

// HourIndex returns the unix hour index for a block timestamp.
func HourIndex(timestamp uint64) int64 {
	return int64(timestamp) / hourSeconds
}

// BucketID scopes a rollup record to an entity and a time bucket.
func BucketID(id string, bucket int64) string {
	return fmt.Sprintf("%s-%d", id, bucket)
}

// DayData is the protocol-wide daily rollup.
type DayData struct {
	ID                   string
	Date                 int64
	DailyVolumeUSD       decimal.Decimal
	DailyVolumeETH       decimal.Decimal
	DailyVolumeUntracked decimal.Decimal
	TotalVolumeUSD       decimal.Decimal
	TotalVolumeETH       decimal.Decimal
	TotalLiquidityUSD    decimal.Decimal
	TotalLiquidityETH    decimal.Decimal
	TxCount              int64
}

func NewDayData(dayID int64) *DayData {
	return &DayData{
		ID:                   fmt.Sprintf("%d", dayID),
		Date:                 dayID * daySeconds,
		DailyVolumeUSD:       decimal.Zero,
		DailyVolumeETH:       decimal.Zero,
		DailyVolumeUntracked: decimal.Zero,
		TotalVolumeUSD:       decimal.Zero,
		TotalVolumeETH:       decimal.Zero,
		TotalLiquidityUSD:    decimal.Zero,
		TotalLiquidityETH:    decimal.Zero,
	}
}

type PairDayData struct {
	ID                string
	Date              int64
	PairAddress       string
	Token0            string
	Token1            string
	Reserve0          decimal.Decimal
	Reserve1          decimal.Decimal
	TotalSupply       decimal.Decimal
	ReserveUSD        decimal.Decimal
	DailyVolumeToken0 decimal.Decimal
	DailyVolumeToken1 decimal.Decimal
	DailyVolumeUSD    decimal.Decimal
	DailyTxns         int64
}

func NewPairDayData(pair *Pair, dayID int64) *PairDayData {
	return &PairDayData{
		ID:                BucketID(pair.ID, dayID),
		Date:              dayID * daySeconds,
		PairAddress:       pair.ID,
		Token0:            pair.Token0,
		Token1:            pair.Token1,
		Reserve0:          decimal.Zero,
		Reserve1:          decimal.Zero,
		TotalSupply:       decimal.Zero,
		ReserveUSD:        decimal.Zero,
		DailyVolumeToken0: decimal.Zero,
		DailyVolumeToken1: decimal.Zero,
		DailyVolumeUSD:    decimal.Zero,
	}
}

type PairHourData struct {
	ID                 string
	HourStartUnix      int64
	Pair               string
	Reserve0           decimal.Decimal
	Reserve1           decimal.Decimal
	TotalSupply        decimal.Decimal
	ReserveUSD         decimal.Decimal
	HourlyVolumeToken0 decimal.Decimal
	HourlyVolumeToken1 decimal.Decimal
	HourlyVolumeUSD    decimal.Decimal
	HourlyTxns         int64
}

func NewPairHourData(pair *Pair, hourIndex int64) *PairHourData {
	return &PairHourData{
		ID:                 BucketID(pair.ID, hourIndex),
		HourStartUnix:      hourIndex * hourSeconds,
		Pair:               pair.ID,
		Reserve0:           decimal.Zero,
		Reserve1:           decimal.Zero,
		TotalSupply:        decimal.Zero,
		ReserveUSD:         decimal.Zero,
		HourlyVolumeToken0: decimal.Zero,
		HourlyVolumeToken1: decimal.Zero,
		HourlyVolumeUSD:    decimal.Zero,
	}
}

type TokenDayData struct {
	ID                  string
	Date                int64
	Token               string
	PriceUSD            decimal.Decimal
	DailyVolumeToken    decimal.Decimal
	DailyVolumeETH      decimal.Decimal
	DailyVolumeUSD      decimal.Decimal
	TotalLiquidityToken decimal.Decimal
	TotalLiquidityETH   decimal.Decimal
	TotalLiquidityUSD   decimal.Decimal
	DailyTxns           int64
}

func NewTokenDayData(token *Token, ethPrice decimal.Decimal, dayID int64) *TokenDayData {
	return &TokenDayData{
		ID:                  BucketID(token.ID, dayID),
		Date:                dayID * daySeconds,
		Token:               token.ID,
		PriceUSD:            token.DerivedETH.Mul(ethPrice),
		DailyVolumeToken:    decimal.Zero,
		DailyVolumeETH:      decimal.Zero,
		DailyVolumeUSD:      decimal.Zero,
		TotalLiquidityToken: decimal.Zero,
		TotalLiquidityETH:   decimal.Zero,
		TotalLiquidityUSD:   decimal.Zero,
	}
}
