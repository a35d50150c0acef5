/*
cache.go - Write-ahead cache for read-your-writes

PURPOSE:
  The remote store's read path can lag its write path by an unbounded
  amount (a query issued right after an append may not show the new
  row). The WriteCache buffers locally originated records so reads
  reflect just-submitted data immediately.

MERGE RULE:
  merged = remote snapshot, with each record shadowed by its cached
  version if one exists, plus cached records whose id is absent from
  the snapshot. De-duplicated by identifier.

EVICTION:
  A cached entry is evicted during merge as soon as the remote snapshot
  carries a field-wise identical copy - the store has caught up and the
  buffer is no longer needed. Until then the cached record shadows the
  stale remote row, which is what keeps a freshly applied payment
  visible. Reset() clears everything and is tied to session boundaries.

OWNERSHIP:
  The cache is an explicit object owned by whoever composes the
  resolver and reconciler. There is no package-level instance.
*/
package core

import (
	"sort"
	"sync"
)

// WriteCache buffers locally originated records keyed by id.
// Safe for concurrent use.
type WriteCache struct {
	mu           sync.Mutex
	transactions map[string]ServiceTransaction
	grants       map[string]PackageGrant
}

func NewWriteCache() *WriteCache {
	return &WriteCache{
		transactions: make(map[string]ServiceTransaction),
		grants:       make(map[string]PackageGrant),
	}
}

// PutTransaction records a locally submitted or locally updated
// transaction. A later Put for the same id replaces the earlier one.
func (c *WriteCache) PutTransaction(tx ServiceTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.ID] = tx
}

// PutGrant records a locally submitted or locally updated grant.
func (c *WriteCache) PutGrant(g PackageGrant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grants[g.ID] = g
}

// DropTransaction removes a buffered transaction.
func (c *WriteCache) DropTransaction(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.transactions, id)
}

// DropGrant removes a buffered grant (e.g. after a rejection deletes the
// remote record).
func (c *WriteCache) DropGrant(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.grants, id)
}

// MergeTransactions merges a remote snapshot with the buffer, evicting
// entries the snapshot has caught up with. Snapshot order is preserved;
// buffered-only records follow, ordered by date then id.
func (c *WriteCache) MergeTransactions(remote []ServiceTransaction) []ServiceTransaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := make([]ServiceTransaction, 0, len(remote)+len(c.transactions))
	seen := make(map[string]bool, len(remote))

	for _, r := range remote {
		seen[r.ID] = true
		if cached, ok := c.transactions[r.ID]; ok {
			if EqualTransaction(cached, r) {
				delete(c.transactions, r.ID) // caught up
				merged = append(merged, r)
			} else {
				merged = append(merged, cached) // remote row is stale
			}
			continue
		}
		merged = append(merged, r)
	}

	var extra []ServiceTransaction
	for id, tx := range c.transactions {
		if !seen[id] {
			extra = append(extra, tx)
		}
	}
	sort.Slice(extra, func(i, j int) bool {
		if !extra[i].Date.Equal(extra[j].Date) {
			return extra[i].Date.Before(extra[j].Date)
		}
		return extra[i].ID < extra[j].ID
	})
	return append(merged, extra...)
}

// MergeGrants is MergeTransactions for package grants.
func (c *WriteCache) MergeGrants(remote []PackageGrant) []PackageGrant {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := make([]PackageGrant, 0, len(remote)+len(c.grants))
	seen := make(map[string]bool, len(remote))

	for _, r := range remote {
		seen[r.ID] = true
		if cached, ok := c.grants[r.ID]; ok {
			if EqualGrant(cached, r) {
				delete(c.grants, r.ID)
				merged = append(merged, r)
			} else {
				merged = append(merged, cached)
			}
			continue
		}
		merged = append(merged, r)
	}

	var extra []PackageGrant
	for id, g := range c.grants {
		if !seen[id] {
			extra = append(extra, g)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].ID < extra[j].ID })
	return append(merged, extra...)
}

// Reset clears the buffer. Called at session boundaries.
func (c *WriteCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions = make(map[string]ServiceTransaction)
	c.grants = make(map[string]PackageGrant)
}

// Size returns the number of buffered records (both kinds).
func (c *WriteCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.transactions) + len(c.grants)
}
