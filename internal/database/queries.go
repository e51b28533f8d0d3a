package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PairSummary is the realtime publisher's view of a pair.
type PairSummary struct {
	Address     string          `json:"address"`
	Token0      string          `json:"token0"`
	Token1      string          `json:"token1"`
	Reserve0    decimal.Decimal `json:"reserve0"`
	Reserve1    decimal.Decimal `json:"reserve1"`
	Token0Price decimal.Decimal `json:"token0_price"`
	Token1Price decimal.Decimal `json:"token1_price"`
	ReserveUSD  decimal.Decimal `json:"reserve_usd"`
	VolumeUSD   decimal.Decimal `json:"volume_usd"`
	TxCount     int64           `json:"tx_count"`
}

// GetPairsByAddresses fetches the current figures for a set of pairs.
func GetPairsByAddresses(ctx context.Context, pool *pgxpool.Pool, addrs []string) ([]PairSummary, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, token0, token1, reserve0, reserve1,
		       token0_price, token1_price, reserve_usd, volume_usd, tx_count
		FROM pairs
		WHERE id = ANY($1)`

	rows, err := pool.Query(ctx, query, addrs)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairs: %w", err)
	}
	defer rows.Close()

	var pairs []PairSummary
	for rows.Next() {
		var p PairSummary
		if err := rows.Scan(
			&p.Address, &p.Token0, &p.Token1, &p.Reserve0, &p.Reserve1,
			&p.Token0Price, &p.Token1Price, &p.ReserveUSD, &p.VolumeUSD, &p.TxCount,
		); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}

	return pairs, rows.Err()
}

// GetUnknownTokens lists tokens whose metadata lookup failed at pair
// creation time, for the background refresh job.
func GetUnknownTokens(ctx context.Context, pool *pgxpool.Pool, limit int) ([]string, error) {
	query := `
		SELECT id FROM tokens
		WHERE symbol = 'unknown' OR name = 'unknown'
		ORDER BY id
		LIMIT $1`

	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unknown tokens: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// UpdateTokenMetadata overwrites a token's symbol and name.
func UpdateTokenMetadata(ctx context.Context, pool *pgxpool.Pool, id, symbol, name string) error {
	_, err := pool.Exec(ctx,
		`UPDATE tokens SET symbol = $2, name = $3 WHERE id = $1`,
		id, symbol, name)
	if err != nil {
		return fmt.Errorf("failed to update token metadata: %w", err)
	}
	return nil
}
