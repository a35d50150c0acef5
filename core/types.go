/*
Package core contains the domain model for the salon operations console.

PURPOSE:
  This package holds the record types and rules everything else is built
  on: package grants, service transactions, their status machines, money
  amounts, and the identity rule used to match records to a client.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A currency amount (decimal-backed, integer rupee units in practice)
  - PackageGrant: A purchased bundle of N services with a start date
  - ServiceTransaction: One service visit and its payment state
  - Client identity: trimmed, case-folded name equality (a compatibility
    shim kept from the spreadsheet era, NOT a guarantee of true identity)

DESIGN PRINCIPLES:
  1. Precision: Money uses decimal.Decimal, never float64
  2. Opaque IDs: identifiers never encode storage position; stores keep
     their own id-to-row mapping internally
  3. Rules live here: dues-pool membership and status transitions are
     methods on the records, so every caller applies the same rule

SEE ALSO:
  - date.go: Calendar dates (day granularity)
  - store.go: Adapter interfaces to the remote row store
  - cache.go: Write-ahead cache for read-your-writes
*/
package core

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value int64) Money               { return Money{Value: decimal.NewFromInt(value)} }
func ZeroMoney() Money                         { return Money{Value: decimal.Zero} }
func MoneyFromFloat(value float64) Money       { return Money{Value: decimal.NewFromFloat(value)} }
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{Value: d} }

// ParseMoney parses a stored string amount. Empty string is zero.
func ParseMoney(s string) (Money, error) {
	if strings.TrimSpace(s) == "" {
		return ZeroMoney(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney(), err
	}
	return Money{Value: d}, nil
}

func (m Money) Add(b Money) Money        { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money        { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) Equal(b Money) bool       { return m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool { return m.Value.GreaterThan(b.Value) }
func (m Money) String() string           { return m.Value.String() }

// ClampZero floors a negative amount at zero. Overpayments never produce
// a negative due.
func (m Money) ClampZero() Money {
	if m.IsNegative() {
		return ZeroMoney()
	}
	return m
}

// =============================================================================
// IDENTITY
// =============================================================================

// NewRecordID returns an opaque identifier for a locally originated record.
// IDs are never derived from storage position.
func NewRecordID() string { return uuid.NewString() }

// NormalizeClient folds a free-text client name for matching.
func NormalizeClient(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameClient reports whether two free-text names refer to the same client
// under the name-matching rule. CAUTION: two distinct clients sharing a
// name are merged by this rule; it is a migration shim, not identity.
func SameClient(a, b string) bool {
	return NormalizeClient(a) == NormalizeClient(b)
}

// =============================================================================
// PACKAGE GRANT
// =============================================================================

type PackageStatus string

const (
	PackagePending  PackageStatus = "PENDING"
	PackageApproved PackageStatus = "APPROVED" // counts toward entitlement
	PackageRejected PackageStatus = "REJECTED" // record is deleted on rejection
)

// PackageGrant is a purchased bundle of TotalServices covered visits.
// Usage is counted from StartDate onward (day granularity).
type PackageGrant struct {
	ID            string
	ClientName    string
	PackageName   string
	TotalCost     Money
	TotalServices int // >= 1
	StartDate     Date
	Status        PackageStatus
}

// CanTransitionPackage reports whether a grant status change is allowed.
// PENDING -> APPROVED or REJECTED. Both outcomes are terminal.
func CanTransitionPackage(from, to PackageStatus) bool {
	return from == PackagePending && (to == PackageApproved || to == PackageRejected)
}

// =============================================================================
// SERVICE TRANSACTION
// =============================================================================

type ServiceType string

const (
	ServiceTypeService ServiceType = "SERVICE"
	ServiceTypeNew     ServiceType = "NEW"
	ServiceTypeDemo    ServiceType = "DEMO"
	ServiceTypeMundan  ServiceType = "MUNDAN"
)

type WorkStatus string

const (
	WorkPending         WorkStatus = "PENDING"
	WorkDone            WorkStatus = "DONE"
	WorkFollowUp        WorkStatus = "FOLLOWUP"
	WorkPendingApproval WorkStatus = "PENDING_APPROVAL" // legacy path, low traffic
	WorkRejected        WorkStatus = "REJECTED"
)

type PaymentMethod string

const (
	PayCash    PaymentMethod = "CASH"
	PayUPI     PaymentMethod = "UPI"
	PayCard    PaymentMethod = "CARD"
	PayPending PaymentMethod = "PENDING"
)

// ServiceTransaction is one recorded service visit. Created on completion,
// mutated only by the payment reconciler, never deleted.
type ServiceTransaction struct {
	ID            string
	Date          Date
	ClientName    string
	ServiceType   ServiceType
	WorkStatus    WorkStatus
	Amount        Money
	PaymentMethod PaymentMethod

	// PendingAmount is the outstanding balance after a partial payment.
	PendingAmount Money
	// NextCallDate is a scheduled follow-up contact. Zero means none.
	NextCallDate Date
	// Remark holds the latest free text only; updates replace it.
	Remark string
	// PaymentScreenshotURL is an optional proof reference.
	PaymentScreenshotURL string
}

// DueAmount is the balance still owed on this transaction.
// A PENDING payment method means nothing has been paid yet, so the full
// amount is due; otherwise whatever partial-payment residue remains.
func (t ServiceTransaction) DueAmount() Money {
	if t.PaymentMethod == PayPending {
		return t.Amount
	}
	return t.PendingAmount
}

// HasOutstandingDue reports membership in the outstanding-dues pool:
// (method == PENDING and amount > 0) or pendingAmount > 0.
func (t ServiceTransaction) HasOutstandingDue() bool {
	if t.PaymentMethod == PayPending && t.Amount.IsPositive() {
		return true
	}
	return t.PendingAmount.IsPositive()
}

// CanTransitionWork reports whether a work-status change is allowed.
//
//	PENDING          -> DONE | FOLLOWUP
//	PENDING_APPROVAL -> DONE | REJECTED
//
// DONE and REJECTED are terminal.
func CanTransitionWork(from, to WorkStatus) bool {
	switch from {
	case WorkPending:
		return to == WorkDone || to == WorkFollowUp
	case WorkPendingApproval:
		return to == WorkDone || to == WorkRejected
	default:
		return false
	}
}

// EqualTransaction reports field-wise equality of two transactions.
// Used by the write-ahead cache to detect that the remote snapshot has
// caught up with a local write.
func EqualTransaction(a, b ServiceTransaction) bool {
	return a.ID == b.ID &&
		a.Date.Equal(b.Date) &&
		SameClient(a.ClientName, b.ClientName) &&
		a.ServiceType == b.ServiceType &&
		a.WorkStatus == b.WorkStatus &&
		a.Amount.Equal(b.Amount) &&
		a.PaymentMethod == b.PaymentMethod &&
		a.PendingAmount.Equal(b.PendingAmount) &&
		a.NextCallDate.Equal(b.NextCallDate) &&
		a.Remark == b.Remark &&
		a.PaymentScreenshotURL == b.PaymentScreenshotURL
}

// EqualGrant reports field-wise equality of two package grants.
func EqualGrant(a, b PackageGrant) bool {
	return a.ID == b.ID &&
		SameClient(a.ClientName, b.ClientName) &&
		a.PackageName == b.PackageName &&
		a.TotalCost.Equal(b.TotalCost) &&
		a.TotalServices == b.TotalServices &&
		a.StartDate.Equal(b.StartDate) &&
		a.Status == b.Status
}
