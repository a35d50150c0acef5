/*
Package entitlement computes package-covered visit counts for clients.

PURPOSE:
  Answers one question two ways: how many covered visits does a client
  have left on their package?
  - Resolve: point lookup for one client, querying the merged view
    (used at billing time to decide whether a visit is covered)
  - UsageFor: the same computation over an already-fetched transaction
    set (used to render every package's progress without one query per
    package)

THE COUNTING RULE (the one invariant that matters):
  A transaction counts toward a package iff
    serviceType == SERVICE
    workStatus  == DONE
    date >= package start date   (day granularity)
    client name matches          (normalized name rule)

  Resolve and UsageFor MUST agree for any consistent snapshot. Both
  delegate to CountsTowardPackage so the rule exists exactly once;
  the equivalence is additionally pinned by tests.

FAILURE POLICY:
  Entitlement is advisory for pricing, not a ledger of record. If the
  backing stores are unreachable, Resolve degrades to "no active
  package" (nil status) with a warning log instead of propagating the
  fault - a missed network call must not block recording a visit.
*/
package entitlement

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/salonops/console/core"
)

// =============================================================================
// STATUS TYPES
// =============================================================================

// Status is the resolved entitlement for one client.
type Status struct {
	Package              core.PackageGrant
	UsedCount            int
	CurrentServiceNumber int // UsedCount + 1: the visit about to happen
	IsExpired            bool
	Remaining            int
}

// Usage is the batch-computed usage for one grant.
type Usage struct {
	Used      int
	Remaining int
	IsExpired bool
}

// =============================================================================
// COUNTING RULE
// =============================================================================

// CountsTowardPackage reports whether tx consumes one covered visit of
// pkg. This is the single source of truth for the counting rule.
func CountsTowardPackage(pkg core.PackageGrant, tx core.ServiceTransaction) bool {
	return tx.ServiceType == core.ServiceTypeService &&
		tx.WorkStatus == core.WorkDone &&
		tx.Date.OnOrAfter(pkg.StartDate) &&
		core.SameClient(tx.ClientName, pkg.ClientName)
}

// UsageFor computes used/remaining/expired for pkg over an
// already-fetched transaction collection.
func UsageFor(pkg core.PackageGrant, txs []core.ServiceTransaction) Usage {
	used := 0
	for _, tx := range txs {
		if CountsTowardPackage(pkg, tx) {
			used++
		}
	}
	remaining := pkg.TotalServices - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{
		Used:      used,
		Remaining: remaining,
		IsExpired: used >= pkg.TotalServices,
	}
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver performs the point lookup over the merged view.
type Resolver struct {
	view *core.View
	log  *zap.Logger
}

func NewResolver(view *core.View, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{view: view, log: log}
}

// Resolve returns the entitlement status for clientName, or nil if the
// client has no approved package.
//
// When multiple approved grants exist for one name, the first
// encountered wins. The tie-break is deliberately unspecified; do not
// rely on any ordering.
func (r *Resolver) Resolve(ctx context.Context, clientName string) (*Status, error) {
	name := strings.TrimSpace(clientName)
	if name == "" {
		return nil, &core.ValidationError{Field: "client_name", Reason: "must not be empty"}
	}

	grants, err := r.view.QueryGrants(ctx, core.GrantFilter{
		ClientName: name,
		Status:     core.PackageApproved,
	})
	if err != nil {
		r.log.Warn("entitlement degraded: grant query failed", zap.String("client", name), zap.Error(err))
		return nil, nil
	}
	if len(grants) == 0 {
		return nil, nil
	}
	pkg := grants[0]

	txs, err := r.view.QueryTransactions(ctx, core.TransactionFilter{ClientName: name})
	if err != nil {
		r.log.Warn("entitlement degraded: transaction query failed", zap.String("client", name), zap.Error(err))
		return nil, nil
	}

	usage := UsageFor(pkg, txs)
	return &Status{
		Package:              pkg,
		UsedCount:            usage.Used,
		CurrentServiceNumber: usage.Used + 1,
		IsExpired:            usage.IsExpired,
		Remaining:            usage.Remaining,
	}, nil
}
