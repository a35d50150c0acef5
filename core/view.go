package core

import "context"

// =============================================================================
// VIEW - Merged read path (remote snapshot + write-ahead cache)
// =============================================================================

// View is the read path every consumer goes through: a remote query
// merged with the write-ahead cache. It owns nothing; the composing
// component owns the stores and the cache and hands them in.
type View struct {
	Transactions TransactionStore
	Packages     PackageStore
	Cache        *WriteCache
}

// QueryTransactions returns the merged transaction view. The filter is
// applied to buffered records as well, so a just-submitted record for
// the queried client is included.
func (v *View) QueryTransactions(ctx context.Context, f TransactionFilter) ([]ServiceTransaction, error) {
	remote, err := v.Transactions.Query(ctx, f)
	if err != nil {
		return nil, Unavailable("query transactions", err)
	}
	merged := v.Cache.MergeTransactions(remote)
	out := merged[:0]
	for _, tx := range merged {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// QueryGrants returns the merged package-grant view.
func (v *View) QueryGrants(ctx context.Context, f GrantFilter) ([]PackageGrant, error) {
	remote, err := v.Packages.Query(ctx, f)
	if err != nil {
		return nil, Unavailable("query grants", err)
	}
	merged := v.Cache.MergeGrants(remote)
	out := merged[:0]
	for _, g := range merged {
		if f.Match(g) {
			out = append(out, g)
		}
	}
	return out, nil
}

// FindTransaction returns the transaction with the given id from the
// merged view, or ErrNotFound.
func (v *View) FindTransaction(ctx context.Context, id string) (*ServiceTransaction, error) {
	txs, err := v.QueryTransactions(ctx, TransactionFilter{})
	if err != nil {
		return nil, err
	}
	for i := range txs {
		if txs[i].ID == id {
			return &txs[i], nil
		}
	}
	return nil, ErrNotFound
}
