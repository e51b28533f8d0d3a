package store

import (
	"context"
	"sync"

	"github.com/twapstream/indexer/internal/entity"
)

// Memory is an in-memory Store used by tests. Entities are copied on
// load and save so a caller mutating a loaded struct does not change
// stored state until it saves.
type Memory struct {
	mu           sync.Mutex
	bundles      map[string]entity.Bundle
	factories    map[string]entity.Factory
	tokens       map[string]entity.Token
	pairs        map[string]entity.Pair
	transactions map[string]entity.Transaction
	mints        map[string]entity.Mint
	burns        map[string]entity.Burn
	swaps        map[string]entity.Swap
	positions    map[string]entity.LiquidityPosition
	snapshots    []entity.LiquidityPositionSnapshot
	users        map[string]entity.User
	dayDatas     map[string]entity.DayData
	pairDayData  map[string]entity.PairDayData
	pairHourData map[string]entity.PairHourData
	tokenDayData map[string]entity.TokenDayData
}

func NewMemory() *Memory {
	return &Memory{
		bundles:      make(map[string]entity.Bundle),
		factories:    make(map[string]entity.Factory),
		tokens:       make(map[string]entity.Token),
		pairs:        make(map[string]entity.Pair),
		transactions: make(map[string]entity.Transaction),
		mints:        make(map[string]entity.Mint),
		burns:        make(map[string]entity.Burn),
		swaps:        make(map[string]entity.Swap),
		positions:    make(map[string]entity.LiquidityPosition),
		users:        make(map[string]entity.User),
		dayDatas:     make(map[string]entity.DayData),
		pairDayData:  make(map[string]entity.PairDayData),
		pairHourData: make(map[string]entity.PairHourData),
		tokenDayData: make(map[string]entity.TokenDayData),
	}
}

func (m *Memory) LoadBundle(ctx context.Context) (*entity.Bundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bundles[entity.BundleID]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *Memory) SaveBundle(ctx context.Context, b *entity.Bundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundles[b.ID] = *b
	return nil
}

func (m *Memory) LoadFactory(ctx context.Context, id string) (*entity.Factory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.factories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (m *Memory) SaveFactory(ctx context.Context, f *entity.Factory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[f.ID] = *f
	return nil
}

func (m *Memory) LoadToken(ctx context.Context, id string) (*entity.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *Memory) SaveToken(ctx context.Context, t *entity.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.ID] = *t
	return nil
}

func (m *Memory) LoadPair(ctx context.Context, id string) (*entity.Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pairs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) SavePair(ctx context.Context, p *entity.Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs[p.ID] = *p
	return nil
}

func (m *Memory) LoadTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := tx
	cp.Mints = append(entity.IDList{}, tx.Mints...)
	cp.Burns = append(entity.IDList{}, tx.Burns...)
	cp.Swaps = append(entity.IDList{}, tx.Swaps...)
	return &cp, nil
}

func (m *Memory) SaveTransaction(ctx context.Context, tx *entity.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tx
	cp.Mints = append(entity.IDList{}, tx.Mints...)
	cp.Burns = append(entity.IDList{}, tx.Burns...)
	cp.Swaps = append(entity.IDList{}, tx.Swaps...)
	m.transactions[tx.ID] = cp
	return nil
}

func (m *Memory) LoadMint(ctx context.Context, id string) (*entity.Mint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mint, ok := m.mints[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &mint, nil
}

func (m *Memory) SaveMint(ctx context.Context, mint *entity.Mint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mints[mint.ID] = *mint
	return nil
}

func (m *Memory) DeleteMint(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.mints, id)
	return nil
}

func (m *Memory) LoadBurn(ctx context.Context, id string) (*entity.Burn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.burns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *Memory) SaveBurn(ctx context.Context, b *entity.Burn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.burns[b.ID] = *b
	return nil
}

func (m *Memory) LoadSwap(ctx context.Context, id string) (*entity.Swap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.swaps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) SaveSwap(ctx context.Context, s *entity.Swap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swaps[s.ID] = *s
	return nil
}

func (m *Memory) LoadLiquidityPosition(ctx context.Context, id string) (*entity.LiquidityPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) SaveLiquidityPosition(ctx context.Context, p *entity.LiquidityPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.ID] = *p
	return nil
}

func (m *Memory) SaveLiquidityPositionSnapshot(ctx context.Context, s *entity.LiquidityPositionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, *s)
	return nil
}

// Snapshots returns all recorded position snapshots in append order.
func (m *Memory) Snapshots() []entity.LiquidityPositionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.LiquidityPositionSnapshot{}, m.snapshots...)
}

func (m *Memory) LoadUser(ctx context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) SaveUser(ctx context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) LoadDayData(ctx context.Context, id string) (*entity.DayData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dayDatas[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *Memory) SaveDayData(ctx context.Context, d *entity.DayData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dayDatas[d.ID] = *d
	return nil
}

func (m *Memory) LoadPairDayData(ctx context.Context, id string) (*entity.PairDayData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.pairDayData[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *Memory) SavePairDayData(ctx context.Context, d *entity.PairDayData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairDayData[d.ID] = *d
	return nil
}

func (m *Memory) LoadPairHourData(ctx context.Context, id string) (*entity.PairHourData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.pairHourData[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *Memory) SavePairHourData(ctx context.Context, d *entity.PairHourData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairHourData[d.ID] = *d
	return nil
}

func (m *Memory) LoadTokenDayData(ctx context.Context, id string) (*entity.TokenDayData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.tokenDayData[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *Memory) SaveTokenDayData(ctx context.Context, d *entity.TokenDayData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenDayData[d.ID] = *d
	return nil
}

// Atomic runs fn against the same store. The in-memory double does not
// roll back partial writes; transactional behavior is covered by the
// Postgres implementation.
func (m *Memory) Atomic(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}
