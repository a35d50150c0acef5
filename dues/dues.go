/*
Package dues tracks partially-paid transactions to zero.

PURPOSE:
  A service visit can be recorded with payment still owed (method
  PENDING, or a pendingAmount residue after a partial payment). This
  package owns the outstanding-dues pool: applying payments against a
  due, scheduling follow-up calls, and the bulk "reviewed" sweep.

PAYMENT ARITHMETIC:
  currentDue = amount           if method == PENDING
             = pendingAmount    otherwise
  newDue     = max(0, currentDue - paidAmount)

  paid > 0:  method is overwritten with the method used for THIS
             payment when one is given, kept otherwise; pendingAmount =
             newDue (zero = settled, record leaves the pool)
  paid == 0: method and pendingAmount untouched; only the follow-up
             date and remark move

WRITE POLICY:
  The write-ahead cache is updated first, so the caller sees the new
  due immediately. The remote update is then attempted exactly once;
  a failure is logged and swallowed (fire-and-forget, no retry, no
  rollback). Two concurrent updates to the same record race and the
  later write wins silently.

SEE ALSO:
  - core/cache.go: why the cache write makes the update visible
  - entitlement: the other consumer of the merged view
*/
package dues

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/salonops/console/core"
)

// DefaultReviewDays is how far out MarkReviewed schedules the next call
// when the caller does not say.
const DefaultReviewDays = 3

// reviewRemark replaces the record's remark on a bulk review sweep.
// Remarks hold the latest text only; no history is kept.
const reviewRemark = "reviewed"

// =============================================================================
// UPDATE TYPES
// =============================================================================

// Update is one payment-reconciliation action against a transaction.
type Update struct {
	// PaidAmount is the amount received now. Zero means a contact-only
	// update (reschedule the call, rewrite the remark).
	PaidAmount core.Money

	// NextCallDate is the new follow-up date. Zero clears any scheduled
	// follow-up.
	NextCallDate core.Date

	// Remark replaces the previous remark.
	Remark string

	// MethodIfPaid is the method used for this payment. Optional: when
	// empty the record's current method is kept (settling a residue that
	// was opened with the same method). Ignored when PaidAmount is zero.
	MethodIfPaid core.PaymentMethod

	// ProofURL optionally attaches a payment screenshot reference.
	ProofURL string
}

// SortOrder selects how Outstanding orders the pool.
type SortOrder string

const (
	SortByNextCall SortOrder = "next_call" // ascending, unscheduled last
	SortByAmount   SortOrder = "amount"    // due amount descending
)

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler applies payment updates and serves the outstanding pool.
type Reconciler struct {
	view  *core.View
	store core.TransactionStore
	cache *core.WriteCache
	log   *zap.Logger

	// Now is injectable for tests. Defaults to core.Today.
	Now func() core.Date
}

func NewReconciler(view *core.View, store core.TransactionStore, cache *core.WriteCache, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{view: view, store: store, cache: cache, log: log, Now: core.Today}
}

// ApplyUpdate applies one payment update to the transaction with the
// given id and returns the updated record.
//
// Unlike the advisory reads, this does NOT degrade on store failure: a
// write path must not guess the current balance, so an unreachable
// read side fails with ErrDataUnavailable.
func (r *Reconciler) ApplyUpdate(ctx context.Context, id string, u Update) (*core.ServiceTransaction, error) {
	if id == "" {
		return nil, &core.ValidationError{Field: "transaction_id", Reason: "must not be empty"}
	}
	if u.PaidAmount.IsNegative() {
		return nil, &core.ValidationError{Field: "paid_amount", Reason: "must not be negative"}
	}
	if u.PaidAmount.IsPositive() {
		switch u.MethodIfPaid {
		case core.PayCash, core.PayUPI, core.PayCard:
		case "": // keep the record's current method
		default:
			return nil, &core.ValidationError{Field: "payment_method", Reason: "a received payment needs CASH, UPI or CARD"}
		}
	}

	tx, err := r.view.FindTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *tx
	if u.PaidAmount.IsPositive() {
		newDue := tx.DueAmount().Sub(u.PaidAmount).ClampZero()
		if u.MethodIfPaid != "" {
			updated.PaymentMethod = u.MethodIfPaid
		}
		updated.PendingAmount = newDue
	}
	updated.NextCallDate = u.NextCallDate
	updated.Remark = u.Remark
	if u.ProofURL != "" {
		updated.PaymentScreenshotURL = u.ProofURL
	}

	// Cache first: the new due must be visible regardless of whether the
	// remote write lands.
	r.cache.PutTransaction(updated)

	if err := r.store.Update(ctx, id, updated); err != nil {
		r.log.Warn("remote payment update failed, local copy kept",
			zap.String("transaction_id", id), zap.Error(err))
	}

	return &updated, nil
}

// MarkReviewed applies a contact-only update to each id, scheduling the
// next call daysAhead days from today (DefaultReviewDays when <= 0).
//
// Each id is independent: a failure on one does not roll back the
// others. The caller is told only whether any failed, not which.
func (r *Reconciler) MarkReviewed(ctx context.Context, ids []string, daysAhead int) error {
	if len(ids) == 0 {
		return &core.ValidationError{Field: "transaction_ids", Reason: "must not be empty"}
	}
	if daysAhead <= 0 {
		daysAhead = DefaultReviewDays
	}
	nextCall := r.Now().AddDays(daysAhead)

	failed := 0
	for _, id := range ids {
		if _, err := r.ApplyUpdate(ctx, id, Update{NextCallDate: nextCall, Remark: reviewRemark}); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d review updates failed", failed, len(ids))
	}
	return nil
}

// Outstanding returns the dues pool: every transaction with a nonzero
// remaining balance, in the requested order. Degrades to an empty pool
// with a warning when the store is unreachable (advisory display).
func (r *Reconciler) Outstanding(ctx context.Context, order SortOrder) []core.ServiceTransaction {
	txs, err := r.view.QueryTransactions(ctx, core.TransactionFilter{})
	if err != nil {
		r.log.Warn("dues pool degraded: transaction query failed", zap.Error(err))
		return nil
	}

	var pool []core.ServiceTransaction
	for _, tx := range txs {
		if tx.HasOutstandingDue() {
			pool = append(pool, tx)
		}
	}

	switch order {
	case SortByAmount:
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].DueAmount().GreaterThan(pool[j].DueAmount())
		})
	default: // SortByNextCall
		sort.SliceStable(pool, func(i, j int) bool {
			a, b := pool[i].NextCallDate, pool[j].NextCallDate
			if a.IsZero() != b.IsZero() {
				return !a.IsZero() // scheduled calls first
			}
			return a.Before(b)
		})
	}
	return pool
}
