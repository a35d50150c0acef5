// Package memory provides in-memory store adapters for tests and dev.
package memory

import (
	"context"
	"sync"

	"github.com/salonops/console/core"
)

// =============================================================================
// TRANSACTION STORE
// =============================================================================

type TransactionStore struct {
	mu      sync.RWMutex
	records []core.ServiceTransaction
	index   map[string]int
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{index: make(map[string]int)}
}

func (s *TransactionStore) Query(_ context.Context, f core.TransactionFilter) ([]core.ServiceTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []core.ServiceTransaction
	for _, tx := range s.records {
		if f.Match(tx) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (s *TransactionStore) Append(_ context.Context, tx core.ServiceTransaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = core.NewRecordID()
	}
	s.index[tx.ID] = len(s.records)
	s.records = append(s.records, tx)
	return tx.ID, nil
}

func (s *TransactionStore) Update(_ context.Context, id string, tx core.ServiceTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return core.ErrNotFound
	}
	tx.ID = id
	s.records[i] = tx
	return nil
}

// =============================================================================
// PACKAGE STORE
// =============================================================================

type PackageStore struct {
	mu      sync.RWMutex
	records []core.PackageGrant
	index   map[string]int
}

func NewPackageStore() *PackageStore {
	return &PackageStore{index: make(map[string]int)}
}

func (s *PackageStore) Query(_ context.Context, f core.GrantFilter) ([]core.PackageGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []core.PackageGrant
	for _, g := range s.records {
		if g.ID == "" {
			continue // deleted slot
		}
		if f.Match(g) {
			result = append(result, g)
		}
	}
	return result, nil
}

func (s *PackageStore) Append(_ context.Context, g core.PackageGrant) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = core.NewRecordID()
	}
	s.index[g.ID] = len(s.records)
	s.records = append(s.records, g)
	return g.ID, nil
}

func (s *PackageStore) Update(_ context.Context, id string, g core.PackageGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return core.ErrNotFound
	}
	g.ID = id
	s.records[i] = g
	return nil
}

func (s *PackageStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return core.ErrNotFound
	}
	delete(s.index, id)
	s.records[i] = core.PackageGrant{} // keep positions of later records stable
	return nil
}
