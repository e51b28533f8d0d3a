package twap

import (
	"context"

	"github.com/twapstream/indexer/internal/entity"
	"github.com/twapstream/indexer/internal/store"
)

func (m *Module) loadOrCreateFactory(ctx context.Context, s store.Store) (*entity.Factory, error) {
	factory, err := s.LoadFactory(ctx, m.config.Factory)
	if err == nil {
		return factory, nil
	}
	if !store.IsNotFound(err) {
		return nil, err
	}

	factory = entity.NewFactory(m.config.Factory)
	if err := s.SaveFactory(ctx, factory); err != nil {
		return nil, err
	}
	return factory, nil
}

func loadOrCreateBundle(ctx context.Context, s store.Store) (*entity.Bundle, error) {
	bundle, err := s.LoadBundle(ctx)
	if err == nil {
		return bundle, nil
	}
	if !store.IsNotFound(err) {
		return nil, err
	}

	bundle = entity.NewBundle()
	if err := s.SaveBundle(ctx, bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

func ensureUser(ctx context.Context, s store.Store, address string) error {
	_, err := s.LoadUser(ctx, address)
	if err == nil {
		return nil
	}
	if !store.IsNotFound(err) {
		return err
	}
	return s.SaveUser(ctx, entity.NewUser(address))
}

func loadOrCreateTransaction(ctx context.Context, s store.Store, hash string, blockNumber, timestamp uint64) (*entity.Transaction, error) {
	tx, err := s.LoadTransaction(ctx, hash)
	if err == nil {
		return tx, nil
	}
	if !store.IsNotFound(err) {
		return nil, err
	}

	tx = entity.NewTransaction(hash, blockNumber, timestamp)
	if err := s.SaveTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}
