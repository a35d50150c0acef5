/*
store.go - Adapter interfaces to the remote row store

PURPOSE:
  Defines the boundary between the console core and whatever holds the
  records. The production store is a row-oriented spreadsheet reached
  over HTTP; tests use an in-memory implementation; local mode uses
  SQLite. The core never sees rows, only records.

CONTRACT:
  - query: read all records of a kind, optionally filtered
  - append: create, returning the record identifier
  - update: replace addressed by identifier (the wire-level partial
    update is an adapter concern)
  - delete: package grants only, used for rejection

  Every call is attempted ONCE. There are no retries, no transactions,
  and no compare-and-swap: two concurrent updates to the same record
  race and the later write wins silently.

IMPLEMENTATIONS:
  - store/memory:  in-memory, for tests and dev
  - store/sheet:   spreadsheet over HTTP (line-delimited JSON)
  - store/sqlite:  local SQLite

SEE ALSO:
  - cache.go: write-ahead cache merged into reads
  - view.go: merged read path over store + cache
*/
package core

import "context"

// =============================================================================
// FILTERS
// =============================================================================

// TransactionFilter narrows a transaction query. Zero value matches all.
type TransactionFilter struct {
	// ClientName matches by the normalized name rule when non-empty.
	ClientName string
}

// Match reports whether tx passes the filter. Exported so the cache-merge
// path applies the same filter to locally buffered records.
func (f TransactionFilter) Match(tx ServiceTransaction) bool {
	if f.ClientName != "" && !SameClient(f.ClientName, tx.ClientName) {
		return false
	}
	return true
}

// GrantFilter narrows a package-grant query. Zero value matches all.
type GrantFilter struct {
	ClientName string
	Status     PackageStatus
}

func (f GrantFilter) Match(g PackageGrant) bool {
	if f.ClientName != "" && !SameClient(f.ClientName, g.ClientName) {
		return false
	}
	if f.Status != "" && g.Status != f.Status {
		return false
	}
	return true
}

// =============================================================================
// STORES
// =============================================================================

// TransactionStore persists service transactions. Records are never
// deleted; payment reconciliation is the only mutation path.
type TransactionStore interface {
	// Query returns all transactions passing the filter.
	Query(ctx context.Context, f TransactionFilter) ([]ServiceTransaction, error)

	// Append creates a record and returns its identifier. When the record
	// carries a locally generated id the store keeps it.
	Append(ctx context.Context, tx ServiceTransaction) (string, error)

	// Update replaces the record with the given id.
	// Returns ErrNotFound if no such record exists.
	Update(ctx context.Context, id string, tx ServiceTransaction) error
}

// PackageStore persists package grants.
type PackageStore interface {
	Query(ctx context.Context, f GrantFilter) ([]PackageGrant, error)
	Append(ctx context.Context, g PackageGrant) (string, error)
	Update(ctx context.Context, id string, g PackageGrant) error

	// Delete removes a grant. Used only for rejection.
	Delete(ctx context.Context, id string) error
}
