package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/twapstream/indexer/internal/database"
	"github.com/twapstream/indexer/internal/entity"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres persists entities in Postgres via pgx. Atomic binds a
// derived store to a single transaction so one handler invocation
// commits as a unit.
type Postgres struct {
	db     *database.Database
	q      querier
	inTx   bool
	logger zerolog.Logger
}

func NewPostgres(db *database.Database, logger zerolog.Logger) *Postgres {
	return &Postgres{
		db:     db,
		q:      db.Pool(),
		logger: logger.With().Str("component", "store").Logger(),
	}
}

func (s *Postgres) Atomic(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.Transaction(ctx, func(tx pgx.Tx) error {
		return fn(&Postgres{db: s.db, q: tx, inTx: true, logger: s.logger})
	})
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Postgres) LoadBundle(ctx context.Context) (*entity.Bundle, error) {
	b := entity.Bundle{ID: entity.BundleID}
	err := s.q.QueryRow(ctx,
		`SELECT eth_price FROM bundles WHERE id = $1`, entity.BundleID,
	).Scan(&b.EthPrice)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *Postgres) SaveBundle(ctx context.Context, b *entity.Bundle) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO bundles (id, eth_price)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET eth_price = EXCLUDED.eth_price`,
		b.ID, b.EthPrice)
	if err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}
	return nil
}

func (s *Postgres) LoadFactory(ctx context.Context, id string) (*entity.Factory, error) {
	f := entity.Factory{ID: id}
	err := s.q.QueryRow(ctx, `
		SELECT pair_count, total_volume_usd, total_volume_eth, untracked_volume_usd,
		       total_liquidity_usd, total_liquidity_eth, total_fees_usd, total_fees_eth, tx_count
		FROM factories WHERE id = $1`, id,
	).Scan(&f.PairCount, &f.TotalVolumeUSD, &f.TotalVolumeETH, &f.UntrackedVolumeUSD,
		&f.TotalLiquidityUSD, &f.TotalLiquidityETH, &f.TotalFeesUSD, &f.TotalFeesETH, &f.TxCount)
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (s *Postgres) SaveFactory(ctx context.Context, f *entity.Factory) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO factories (id, pair_count, total_volume_usd, total_volume_eth, untracked_volume_usd,
			total_liquidity_usd, total_liquidity_eth, total_fees_usd, total_fees_eth, tx_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			pair_count = EXCLUDED.pair_count,
			total_volume_usd = EXCLUDED.total_volume_usd,
			total_volume_eth = EXCLUDED.total_volume_eth,
			untracked_volume_usd = EXCLUDED.untracked_volume_usd,
			total_liquidity_usd = EXCLUDED.total_liquidity_usd,
			total_liquidity_eth = EXCLUDED.total_liquidity_eth,
			total_fees_usd = EXCLUDED.total_fees_usd,
			total_fees_eth = EXCLUDED.total_fees_eth,
			tx_count = EXCLUDED.tx_count`,
		f.ID, f.PairCount, f.TotalVolumeUSD, f.TotalVolumeETH, f.UntrackedVolumeUSD,
		f.TotalLiquidityUSD, f.TotalLiquidityETH, f.TotalFeesUSD, f.TotalFeesETH, f.TxCount)
	if err != nil {
		return fmt.Errorf("save factory: %w", err)
	}
	return nil
}

func (s *Postgres) LoadToken(ctx context.Context, id string) (*entity.Token, error) {
	t := entity.Token{ID: id}
	err := s.q.QueryRow(ctx, `
		SELECT symbol, name, decimals, total_supply, derived_eth, last_eth_price,
		       trade_volume, trade_volume_usd, untracked_volume_usd,
		       total_liquidity, total_liquidity_usd, tx_count
		FROM tokens WHERE id = $1`, id,
	).Scan(&t.Symbol, &t.Name, &t.Decimals, &t.TotalSupply, &t.DerivedETH, &t.LastEthPrice,
		&t.TradeVolume, &t.TradeVolumeUSD, &t.UntrackedVolumeUSD,
		&t.TotalLiquidity, &t.TotalLiquidityUSD, &t.TxCount)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *Postgres) SaveToken(ctx context.Context, t *entity.Token) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO tokens (id, symbol, name, decimals, total_supply, derived_eth, last_eth_price,
			trade_volume, trade_volume_usd, untracked_volume_usd,
			total_liquidity, total_liquidity_usd, tx_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			decimals = EXCLUDED.decimals,
			total_supply = EXCLUDED.total_supply,
			derived_eth = EXCLUDED.derived_eth,
			last_eth_price = EXCLUDED.last_eth_price,
			trade_volume = EXCLUDED.trade_volume,
			trade_volume_usd = EXCLUDED.trade_volume_usd,
			untracked_volume_usd = EXCLUDED.untracked_volume_usd,
			total_liquidity = EXCLUDED.total_liquidity,
			total_liquidity_usd = EXCLUDED.total_liquidity_usd,
			tx_count = EXCLUDED.tx_count`,
		t.ID, t.Symbol, t.Name, t.Decimals, t.TotalSupply, t.DerivedETH, t.LastEthPrice,
		t.TradeVolume, t.TradeVolumeUSD, t.UntrackedVolumeUSD,
		t.TotalLiquidity, t.TotalLiquidityUSD, t.TxCount)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *Postgres) LoadPair(ctx context.Context, id string) (*entity.Pair, error) {
	p := entity.Pair{ID: id}
	err := s.q.QueryRow(ctx, `
		SELECT token0, token1, reserve0, reserve1, total_supply,
		       token0_price, token1_price, reserve_eth, tracked_reserve_eth, reserve_usd,
		       volume_token0, volume_token1, volume_usd, untracked_volume_usd,
		       tx_count, liquidity_provider_count, created_at_timestamp, created_at_block
		FROM pairs WHERE id = $1`, id,
	).Scan(&p.Token0, &p.Token1, &p.Reserve0, &p.Reserve1, &p.TotalSupply,
		&p.Token0Price, &p.Token1Price, &p.ReserveETH, &p.TrackedReserveETH, &p.ReserveUSD,
		&p.VolumeToken0, &p.VolumeToken1, &p.VolumeUSD, &p.UntrackedVolumeUSD,
		&p.TxCount, &p.LiquidityProviderCount, &p.CreatedAtTimestamp, &p.CreatedAtBlock)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Postgres) SavePair(ctx context.Context, p *entity.Pair) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO pairs (id, token0, token1, reserve0, reserve1, total_supply,
			token0_price, token1_price, reserve_eth, tracked_reserve_eth, reserve_usd,
			volume_token0, volume_token1, volume_usd, untracked_volume_usd,
			tx_count, liquidity_provider_count, created_at_timestamp, created_at_block)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			reserve0 = EXCLUDED.reserve0,
			reserve1 = EXCLUDED.reserve1,
			total_supply = EXCLUDED.total_supply,
			token0_price = EXCLUDED.token0_price,
			token1_price = EXCLUDED.token1_price,
			reserve_eth = EXCLUDED.reserve_eth,
			tracked_reserve_eth = EXCLUDED.tracked_reserve_eth,
			reserve_usd = EXCLUDED.reserve_usd,
			volume_token0 = EXCLUDED.volume_token0,
			volume_token1 = EXCLUDED.volume_token1,
			volume_usd = EXCLUDED.volume_usd,
			untracked_volume_usd = EXCLUDED.untracked_volume_usd,
			tx_count = EXCLUDED.tx_count,
			liquidity_provider_count = EXCLUDED.liquidity_provider_count`,
		p.ID, p.Token0, p.Token1, p.Reserve0, p.Reserve1, p.TotalSupply,
		p.Token0Price, p.Token1Price, p.ReserveETH, p.TrackedReserveETH, p.ReserveUSD,
		p.VolumeToken0, p.VolumeToken1, p.VolumeUSD, p.UntrackedVolumeUSD,
		p.TxCount, p.LiquidityProviderCount, p.CreatedAtTimestamp, p.CreatedAtBlock)
	if err != nil {
		return fmt.Errorf("save pair: %w", err)
	}
	return nil
}

func (s *Postgres) LoadTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	tx := entity.Transaction{ID: id}
	var mints, burns, swaps []string
	err := s.q.QueryRow(ctx, `
		SELECT block_number, timestamp, mints, burns, swaps
		FROM transactions WHERE id = $1`, id,
	).Scan(&tx.BlockNumber, &tx.Timestamp, &mints, &burns, &swaps)
	if err != nil {
		return nil, notFound(err)
	}
	tx.Mints = entity.IDList(mints)
	tx.Burns = entity.IDList(burns)
	tx.Swaps = entity.IDList(swaps)
	return &tx, nil
}

func (s *Postgres) SaveTransaction(ctx context.Context, tx *entity.Transaction) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO transactions (id, block_number, timestamp, mints, burns, swaps)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			mints = EXCLUDED.mints,
			burns = EXCLUDED.burns,
			swaps = EXCLUDED.swaps`,
		tx.ID, tx.BlockNumber, tx.Timestamp,
		[]string(tx.Mints), []string(tx.Burns), []string(tx.Swaps))
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	return nil
}

func (s *Postgres) LoadMint(ctx context.Context, id string) (*entity.Mint, error) {
	m := entity.Mint{ID: id}
	err := s.q.QueryRow(ctx, `
		SELECT transaction, pair, to_address, liquidity, sender,
		       amount0, amount1, amount_usd, log_index, timestamp
		FROM mints WHERE id = $1`, id,
	).Scan(&m.Transaction, &m.Pair, &m.To, &m.Liquidity, &m.Sender,
		&m.Amount0, &m.Amount1, &m.AmountUSD, &m.LogIndex, &m.Timestamp)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *Postgres) SaveMint(ctx context.Context, m *entity.Mint) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO mints (id, transaction, pair, to_address, liquidity, sender,
			amount0, amount1, amount_usd, log_index, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			to_address = EXCLUDED.to_address,
			liquidity = EXCLUDED.liquidity,
			sender = EXCLUDED.sender,
			amount0 = EXCLUDED.amount0,
			amount1 = EXCLUDED.amount1,
			amount_usd = EXCLUDED.amount_usd,
			log_index = EXCLUDED.log_index`,
		m.ID, m.Transaction, m.Pair, m.To, m.Liquidity, m.Sender,
		m.Amount0, m.Amount1, m.AmountUSD, m.LogIndex, m.Timestamp)
	if err != nil {
		return fmt.Errorf("save mint: %w", err)
	}
	return nil
}

func (s *Postgres) DeleteMint(ctx context.Context, id string) error {
	_, err := s.q.Exec(ctx, `DELETE FROM mints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete mint: %w", err)
	}
	return nil
}

func (s *Postgres) LoadBurn(ctx context.Context, id string) (*entity.Burn, error) {
	b := entity.Burn{ID: id}
	err := s.q.QueryRow(ctx, `
		SELECT transaction, pair, liquidity, sender, to_address, needs_complete,
		       amount0, amount1, amount_usd, fee_to, fee_liquidity, log_index, timestamp
		FROM burns WHERE id = $1`, id,
	).Scan(&b.Transaction, &b.Pair, &b.Liquidity, &b.Sender, &b.To, &b.NeedsComplete,
		&b.Amount0, &b.Amount1, &b.AmountUSD, &b.FeeTo, &b.FeeLiquidity, &b.LogIndex, &b.Timestamp)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *Postgres) SaveBurn(ctx context.Context, b *entity.Burn) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO burns (id, transaction, pair, liquidity, sender, to_address, needs_complete,
			amount0, amount1, amount_usd, fee_to, fee_liquidity, log_index, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			liquidity = EXCLUDED.liquidity,
			sender = EXCLUDED.sender,
			to_address = EXCLUDED.to_address,
			needs_complete = EXCLUDED.needs_complete,
			amount0 = EXCLUDED.amount0,
			amount1 = EXCLUDED.amount1,
			amount_usd = EXCLUDED.amount_usd,
			fee_to = EXCLUDED.fee_to,
			fee_liquidity = EXCLUDED.fee_liquidity,
			log_index = EXCLUDED.log_index`,
		b.ID, b.Transaction, b.Pair, b.Liquidity, b.Sender, b.To, b.NeedsComplete,
		b.Amount0, b.Amount1, b.AmountUSD, b.FeeTo, b.FeeLiquidity, b.LogIndex, b.Timestamp)
	if err != nil {
		return fmt.Errorf("save burn: %w", err)
	}
	return nil
}

func (s *Postgres) LoadSwap(ctx context.Context, id string) (*entity.Swap, error) {
	sw := entity.Swap{ID: id}
	err := s.q.QueryRow(ctx, `
		SELECT transaction, pair, sender, from_address, to_address,
		       amount0_in, amount1_in, amount0_out, amount1_out, amount_usd, log_index, timestamp
		FROM swaps WHERE id = $1`, id,
	).Scan(&sw.Transaction, &sw.Pair, &sw.Sender, &sw.From, &sw.To,
		&sw.Amount0In, &sw.Amount1In, &sw.Amount0Out, &sw.Amount1Out, &sw.AmountUSD, &sw.LogIndex, &sw.Timestamp)
	if err != nil {
		return nil, notFound(err)
	}
	return &sw, nil
}

func (s *Postgres) SaveSwap(ctx context.Context, sw *entity.Swap) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO swaps (id, transaction, pair, sender, from_address, to_address,
			amount0_in, amount1_in, amount0_out, amount1_out, amount_usd, log_index, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			amount0_in = EXCLUDED.amount0_in,
			amount1_in = EXCLUDED.amount1_in,
			amount0_out = EXCLUDED.amount0_out,
			amount1_out = EXCLUDED.amount1_out,
			amount_usd = EXCLUDED.amount_usd,
			log_index = EXCLUDED.log_index`,
		sw.ID, sw.Transaction, sw.Pair, sw.Sender, sw.From, sw.To,
		sw.Amount0In, sw.Amount1In, sw.Amount0Out, sw.Amount1Out, sw.AmountUSD, sw.LogIndex, sw.Timestamp)
	if err != nil {
		return fmt.Errorf("save swap: %w", err)
	}
	return nil
}

func (s *Postgres) LoadLiquidityPosition(ctx context.Context, id string) (*entity.LiquidityPosition, error) {
	p := entity.LiquidityPosition{ID: id}
	err := s.q.QueryRow(ctx, `
		SELECT pair, user_address, liquidity_token_balance
		FROM liquidity_positions WHERE id = $1`, id,
	).Scan(&p.Pair, &p.User, &p.LiquidityTokenBalance)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Postgres) SaveLiquidityPosition(ctx context.Context, p *entity.LiquidityPosition) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO liquidity_positions (id, pair, user_address, liquidity_token_balance)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			liquidity_token_balance = EXCLUDED.liquidity_token_balance`,
		p.ID, p.Pair, p.User, p.LiquidityTokenBalance)
	if err != nil {
		return fmt.Errorf("save liquidity position: %w", err)
	}
	return nil
}

func (s *Postgres) SaveLiquidityPositionSnapshot(ctx context.Context, snap *entity.LiquidityPositionSnapshot) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO liquidity_position_snapshots (id, liquidity_position, timestamp, block,
			user_address, pair, token0_price_usd, token1_price_usd,
			reserve0, reserve1, reserve_usd, liquidity_token_total_supply, liquidity_token_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`,
		snap.ID, snap.LiquidityPosition, snap.Timestamp, snap.Block,
		snap.User, snap.Pair, snap.Token0PriceUSD, snap.Token1PriceUSD,
		snap.Reserve0, snap.Reserve1, snap.ReserveUSD, snap.LiquidityTokenTotalSupply, snap.LiquidityTokenBalance)
	if err != nil {
		return fmt.Errorf("save liquidity position snapshot: %w", err)
	}
	return nil
}

func (s *Postgres) LoadUser(ctx context.Context, id string) (*entity.User, error) {
	u := entity.User{ID: id}
	err := s.q.QueryRow(ctx,
		`SELECT usd_swapped FROM users WHERE id = $1`, id,
	).Scan(&u.UsdSwapped)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Postgres) SaveUser(ctx context.Context, u *entity.User) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO users (id, usd_swapped)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET usd_swapped = EXCLUDED.usd_swapped`,
		u.ID, u.UsdSwapped)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Postgres) LoadDayData(ctx context.Context, id string) (*entity.DayData, error) {
	d := entity.DayData{ID: id}
	err := s.q.QueryRow(ctx, `
		SELECT date, daily_volume_usd, daily_volume_eth, daily_volume_untracked,
		       total_volume_usd, total_volume_eth, total_liquidity_usd, total_liquidity_eth, tx_count
		FROM day_datas WHERE id = $1`, id,
	).Scan(&d.Date, &d.DailyVolumeUSD, &d.DailyVolumeETH, &d.DailyVolumeUntracked,
		&d.TotalVolumeUSD, &d.TotalVolumeETH, &d.TotalLiquidityUSD, &d.TotalLiquidityETH, &d.TxCount)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Postgres) SaveDayData(ctx context.Context, d *entity.DayData) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO day_datas (id, date, daily_volume_usd, daily_volume_eth, daily_volume_untracked,
			total_volume_usd, total_volume_eth, total_liquidity_usd, total_liquidity_eth, tx_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			daily_volume_usd = EXCLUDED.daily_volume_usd,
			daily_volume_eth = EXCLUDED.daily_volume_eth,
			daily_volume_untracked = EXCLUDED.daily_volume_untracked,
			total_volume_usd = EXCLUDED.total_volume_usd,
			total_volume_eth = EXCLUDED.total_volume_eth,
			total_liquidity_usd = EXCLUDED.total_liquidity_usd,
			total_liquidity_eth = EXCLUDED.total_liquidity_eth,
			tx_count = EXCLUDED.tx_count`,
		d.ID, d.Date, d.DailyVolumeUSD, d.DailyVolumeETH, d.DailyVolumeUntracked,
		d.TotalVolumeUSD, d.TotalVolumeETH, d.TotalLiquidityUSD, d.TotalLiquidityETH, d.TxCount)
	if err != nil {
		return fmt.Errorf("save day data: %w", err)
	}
	return nil
}

func (s *Postgres) LoadPairDayData(ctx context.Context, id string) (*entity.PairDayData, error) {
	d := entity.PairDayData{ID: id}
	err := s.q.QueryRow(ctx, `
		SELECT date, pair_address, token0, token1, reserve0, reserve1, total_supply, reserve_usd,
		       daily_volume_token0, daily_volume_token1, daily_volume_usd, daily_txns
		FROM pair_day_datas WHERE id = $1`, id,
	).Scan(&d.Date, &d.PairAddress, &d.Token0, &d.Token1, &d.Reserve0, &d.Reserve1, &d.TotalSupply, &d.ReserveUSD,
		&d.DailyVolumeToken0, &d.DailyVolumeToken1, &d.DailyVolumeUSD, &d.DailyTxns)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Postgres) SavePairDayData(ctx context.Context, d *entity.PairDayData) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO pair_day_datas (id, date, pair_address, token0, token1, reserve0, reserve1,
			total_supply, reserve_usd, daily_volume_token0, daily_volume_token1, daily_volume_usd, daily_txns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			reserve0 = EXCLUDED.reserve0,
			reserve1 = EXCLUDED.reserve1,
			total_supply = EXCLUDED.total_supply,
			reserve_usd = EXCLUDED.reserve_usd,
			daily_volume_token0 = EXCLUDED.daily_volume_token0,
			daily_volume_token1 = EXCLUDED.daily_volume_token1,
			daily_volume_usd = EXCLUDED.daily_volume_usd,
			daily_txns = EXCLUDED.daily_txns`,
		d.ID, d.Date, d.PairAddress, d.Token0, d.Token1, d.Reserve0, d.Reserve1,
		d.TotalSupply, d.ReserveUSD, d.DailyVolumeToken0, d.DailyVolumeToken1, d.DailyVolumeUSD, d.DailyTxns)
	if err != nil {
		return fmt.Errorf("save pair day data: %w", err)
	}
	return nil
}

func (s *Postgres) LoadPairHourData(ctx context.Context, id string) (*entity.PairHourData, error) {
	d := entity.PairHourData{ID: id}
	err := s.q.QueryRow(ctx, `
		SELECT hour_start_unix, pair, reserve0, reserve1, total_supply, reserve_usd,
		       hourly_volume_token0, hourly_volume_token1, hourly_volume_usd, hourly_txns
		FROM pair_hour_datas WHERE id = $1`, id,
	).Scan(&d.HourStartUnix, &d.Pair, &d.Reserve0, &d.Reserve1, &d.TotalSupply, &d.ReserveUSD,
		&d.HourlyVolumeToken0, &d.HourlyVolumeToken1, &d.HourlyVolumeUSD, &d.HourlyTxns)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Postgres) SavePairHourData(ctx context.Context, d *entity.PairHourData) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO pair_hour_datas (id, hour_start_unix, pair, reserve0, reserve1,
			total_supply, reserve_usd, hourly_volume_token0, hourly_volume_token1, hourly_volume_usd, hourly_txns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			reserve0 = EXCLUDED.reserve0,
			reserve1 = EXCLUDED.reserve1,
			total_supply = EXCLUDED.total_supply,
			reserve_usd = EXCLUDED.reserve_usd,
			hourly_volume_token0 = EXCLUDED.hourly_volume_token0,
			hourly_volume_token1 = EXCLUDED.hourly_volume_token1,
			hourly_volume_usd = EXCLUDED.hourly_volume_usd,
			hourly_txns = EXCLUDED.hourly_txns`,
		d.ID, d.HourStartUnix, d.Pair, d.Reserve0, d.Reserve1,
		d.TotalSupply, d.ReserveUSD, d.HourlyVolumeToken0, d.HourlyVolumeToken1, d.HourlyVolumeUSD, d.HourlyTxns)
	if err != nil {
		return fmt.Errorf("save pair hour data: %w", err)
	}
	return nil
}

func (s *Postgres) LoadTokenDayData(ctx context.Context, id string) (*entity.TokenDayData, error) {
	d := entity.TokenDayData{ID: id}
	err := s.q.QueryRow(ctx, `
		SELECT date, token, price_usd, daily_volume_token, daily_volume_eth, daily_volume_usd,
		       total_liquidity_token, total_liquidity_eth, total_liquidity_usd, daily_txns
		FROM token_day_datas WHERE id = $1`, id,
	).Scan(&d.Date, &d.Token, &d.PriceUSD, &d.DailyVolumeToken, &d.DailyVolumeETH, &d.DailyVolumeUSD,
		&d.TotalLiquidityToken, &d.TotalLiquidityETH, &d.TotalLiquidityUSD, &d.DailyTxns)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Postgres) SaveTokenDayData(ctx context.Context, d *entity.TokenDayData) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO token_day_datas (id, date, token, price_usd, daily_volume_token, daily_volume_eth,
			daily_volume_usd, total_liquidity_token, total_liquidity_eth, total_liquidity_usd, daily_txns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			price_usd = EXCLUDED.price_usd,
			daily_volume_token = EXCLUDED.daily_volume_token,
			daily_volume_eth = EXCLUDED.daily_volume_eth,
			daily_volume_usd = EXCLUDED.daily_volume_usd,
			total_liquidity_token = EXCLUDED.total_liquidity_token,
			total_liquidity_eth = EXCLUDED.total_liquidity_eth,
			total_liquidity_usd = EXCLUDED.total_liquidity_usd,
			daily_txns = EXCLUDED.daily_txns`,
		d.ID, d.Date, d.Token, d.PriceUSD, d.DailyVolumeToken, d.DailyVolumeETH,
		d.DailyVolumeUSD, d.TotalLiquidityToken, d.TotalLiquidityETH, d.TotalLiquidityUSD, d.DailyTxns)
	if err != nil {
		return fmt.Errorf("save token day data: %w", err)
	}
	return nil
}
