package twap

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/twapstream/indexer/internal/entity"
	"github.com/twapstream/indexer/internal/store"
)

// loadOrCreateToken returns the token record for an address, creating
// it from static definitions or contract metadata on first sight. A
// token whose decimals or total supply cannot be read is unusable for
// pricing, so creation fails and the caller skips the pair.
func (m *Module) loadOrCreateToken(ctx context.Context, s store.Store, address common.Address) (*entity.Token, error) {
	id := addressID(address)

	token, err := s.LoadToken(ctx, id)
	if err == nil {
		return token, nil
	}
	if !store.IsNotFound(err) {
		return nil, err
	}

	if def := m.staticToken(id); def != nil {
		token = entity.NewToken(id, def.Symbol, def.Name, def.Decimals, decimal.Zero)
		if err := s.SaveToken(ctx, token); err != nil {
			return nil, err
		}
		return token, nil
	}

	metadata, err := m.chain.TokenMetadata(ctx, address)
	if err != nil {
		return nil, err
	}

	token = entity.NewToken(
		id,
		metadata.Symbol,
		metadata.Name,
		metadata.Decimals,
		decimal.NewFromBigInt(metadata.TotalSupply, 0),
	)
	if err := s.SaveToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (m *Module) staticToken(id string) *StaticToken {
	for i := range m.config.StaticTokens {
		if m.config.StaticTokens[i].Address == id {
			return &m.config.StaticTokens[i]
		}
	}
	return nil
}
