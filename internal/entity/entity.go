package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BundleID is the id of the singleton ETH price record.
const BundleID = "1"

// Bundle holds the current ETH price in USD. It is refreshed on every
// reserve sync and never deleted.
type Bundle struct {
	ID       string
	EthPrice decimal.Decimal
}

func NewBundle() *Bundle {
	return &Bundle{ID: BundleID, EthPrice: decimal.Zero}
}

// Factory carries the protocol-wide counters, keyed by the factory
// contract address.
type Factory struct {
	ID                 string
	PairCount          int64
	TotalVolumeUSD     decimal.Decimal
	TotalVolumeETH     decimal.Decimal
	UntrackedVolumeUSD decimal.Decimal
	TotalLiquidityUSD  decimal.Decimal
	TotalLiquidityETH  decimal.Decimal
	TotalFeesUSD       decimal.Decimal
	TotalFeesETH       decimal.Decimal
	TxCount            int64
}

func NewFactory(address string) *Factory {
	return &Factory{
		ID:                 address,
		TotalVolumeUSD:     decimal.Zero,
		TotalVolumeETH:     decimal.Zero,
		UntrackedVolumeUSD: decimal.Zero,
		TotalLiquidityUSD:  decimal.Zero,
		TotalLiquidityETH:  decimal.Zero,
		TotalFeesUSD:       decimal.Zero,
		TotalFeesETH:       decimal.Zero,
	}
}

// Token is one side of a pair. TotalSupply is kept in raw token units,
// everything else in scaled decimals. LastEthPrice remembers the ETH
// price used for the token's last liquidity contribution so the sync
// engine can reverse it before applying fresh figures.
type Token struct {
	ID                 string
	Symbol             string
	Name               string
	Decimals           int
	TotalSupply        decimal.Decimal
	DerivedETH         decimal.Decimal
	LastEthPrice       decimal.Decimal
	TradeVolume        decimal.Decimal
	TradeVolumeUSD     decimal.Decimal
	UntrackedVolumeUSD decimal.Decimal
	TotalLiquidity     decimal.Decimal
	TotalLiquidityUSD  decimal.Decimal
	TxCount            int64
}

func NewToken(address, symbol, name string, decimals int, totalSupply decimal.Decimal) *Token {
	return &Token{
		ID:                 address,
		Symbol:             symbol,
		Name:               name,
		Decimals:           decimals,
		TotalSupply:        totalSupply,
		DerivedETH:         decimal.Zero,
		LastEthPrice:       decimal.Zero,
		TradeVolume:        decimal.Zero,
		TradeVolumeUSD:     decimal.Zero,
		UntrackedVolumeUSD: decimal.Zero,
		TotalLiquidity:     decimal.Zero,
		TotalLiquidityUSD:  decimal.Zero,
	}
}

// Pair is one pool. Reserves and prices are mutated only by the sync
// engine; TotalSupply only by the liquidity token transfer handler.
type Pair struct {
	ID                     string
	Token0                 string
	Token1                 string
	Reserve0               decimal.Decimal
	Reserve1               decimal.Decimal
	TotalSupply            decimal.Decimal
	Token0Price            decimal.Decimal
	Token1Price            decimal.Decimal
	ReserveETH             decimal.Decimal
	TrackedReserveETH      decimal.Decimal
	ReserveUSD             decimal.Decimal
	VolumeToken0           decimal.Decimal
	VolumeToken1           decimal.Decimal
	VolumeUSD              decimal.Decimal
	UntrackedVolumeUSD     decimal.Decimal
	TxCount                int64
	LiquidityProviderCount int64
	CreatedAtTimestamp     uint64
	CreatedAtBlock         uint64
}

func NewPair(address, token0, token1 string, timestamp, block uint64) *Pair {
	return &Pair{
		ID:                 address,
		Token0:             token0,
		Token1:             token1,
		Reserve0:           decimal.Zero,
		Reserve1:           decimal.Zero,
		TotalSupply:        decimal.Zero,
		Token0Price:        decimal.Zero,
		Token1Price:        decimal.Zero,
		ReserveETH:         decimal.Zero,
		TrackedReserveETH:  decimal.Zero,
		ReserveUSD:         decimal.Zero,
		VolumeToken0:       decimal.Zero,
		VolumeToken1:       decimal.Zero,
		VolumeUSD:          decimal.Zero,
		UntrackedVolumeUSD: decimal.Zero,
		CreatedAtTimestamp: timestamp,
		CreatedAtBlock:     block,
	}
}

// EventID builds the deterministic id of a mint, burn or swap scoped to
// its position within the transaction's list.
func EventID(txHash string, index int) string {
	return fmt.Sprintf("%s-%d", txHash, index)
}

// Mint is a logical liquidity provision. The transfer handler creates
// it as an incomplete shell; the pool's Mint event completes it by
// setting the sender and amounts.
type Mint struct {
	ID          string
	Transaction string
	Pair        string
	To          string
	Liquidity   decimal.Decimal
	Sender      string
	Amount0     decimal.Decimal
	Amount1     decimal.Decimal
	AmountUSD   decimal.Decimal
	LogIndex    uint
	Timestamp   uint64
}

// Complete reports whether the mint has been finished by a Mint event.
func (m *Mint) Complete() bool {
	return m.Sender != ""
}

// Burn is a logical liquidity withdrawal. NeedsComplete marks the
// pre-burn deposit leg awaiting the burn-finalize transfer. FeeTo and
// FeeLiquidity carry a protocol fee mint folded into this burn.
type Burn struct {
	ID            string
	Transaction   string
	Pair          string
	Liquidity     decimal.Decimal
	Sender        string
	To            string
	NeedsComplete bool
	Amount0       decimal.Decimal
	Amount1       decimal.Decimal
	AmountUSD     decimal.Decimal
	FeeTo         string
	FeeLiquidity  decimal.Decimal
	LogIndex      uint
	Timestamp     uint64
}

type Swap struct {
	ID          string
	Transaction string
	Pair        string
	Sender      string
	From        string
	To          string
	Amount0In   decimal.Decimal
	Amount1In   decimal.Decimal
	Amount0Out  decimal.Decimal
	Amount1Out  decimal.Decimal
	AmountUSD   decimal.Decimal
	LogIndex    uint
	Timestamp   uint64
}

// PositionID keys a liquidity position by pool and holder.
func PositionID(pair, user string) string {
	return pair + "-" + user
}

type LiquidityPosition struct {
	ID                    string
	Pair                  string
	User                  string
	LiquidityTokenBalance decimal.Decimal
}

func NewLiquidityPosition(pair, user string) *LiquidityPosition {
	return &LiquidityPosition{
		ID:                    PositionID(pair, user),
		Pair:                  pair,
		User:                  user,
		LiquidityTokenBalance: decimal.Zero,
	}
}

// LiquidityPositionSnapshot is an append-only record of a position at
// a block, with the USD prices in force at that moment.
type LiquidityPositionSnapshot struct {
	ID                        string
	LiquidityPosition         string
	Timestamp                 uint64
	Block                     uint64
	User                      string
	Pair                      string
	Token0PriceUSD            decimal.Decimal
	Token1PriceUSD            decimal.Decimal
	Reserve0                  decimal.Decimal
	Reserve1                  decimal.Decimal
	ReserveUSD                decimal.Decimal
	LiquidityTokenTotalSupply decimal.Decimal
	LiquidityTokenBalance     decimal.Decimal
}

type User struct {
	ID         string
	UsdSwapped decimal.Decimal
}

func NewUser(address string) *User {
	return &User{ID: address, UsdSwapped: decimal.Zero}
}
