package entitlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonops/console/core"
	"github.com/salonops/console/entitlement"
	"github.com/salonops/console/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	resolver *entitlement.Resolver
	view     *core.View
	txs      *memory.TransactionStore
	pkgs     *memory.PackageStore
	cache    *core.WriteCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	txs := memory.NewTransactionStore()
	pkgs := memory.NewPackageStore()
	cache := core.NewWriteCache()
	view := &core.View{Transactions: txs, Packages: pkgs, Cache: cache}
	return &fixture{
		resolver: entitlement.NewResolver(view, nil),
		view:     view,
		txs:      txs,
		pkgs:     pkgs,
		cache:    cache,
	}
}

func goldPackage(client string, total int, start core.Date) core.PackageGrant {
	return core.PackageGrant{
		ID:            core.NewRecordID(),
		ClientName:    client,
		PackageName:   "Gold",
		TotalCost:     core.NewMoney(6000),
		TotalServices: total,
		StartDate:     start,
		Status:        core.PackageApproved,
	}
}

func visit(client string, date core.Date) core.ServiceTransaction {
	return core.ServiceTransaction{
		ID:            core.NewRecordID(),
		Date:          date,
		ClientName:    client,
		ServiceType:   core.ServiceTypeService,
		WorkStatus:    core.WorkDone,
		Amount:        core.NewMoney(500),
		PaymentMethod: core.PayCash,
	}
}

// =============================================================================
// RESOLVE SCENARIOS
// =============================================================================

func TestResolve_NormalUsage(t *testing.T) {
	// GIVEN: A 12-service package from 2025-01-01 with 3 qualifying visits
	// WHEN: Resolving the client
	// THEN: The 4th covered visit is next, 9 remain, not expired

	f := newFixture(t)
	ctx := context.Background()
	start := core.NewDate(2025, time.January, 1)

	_, err := f.pkgs.Append(ctx, goldPackage("Manish Gupta", 12, start))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := f.txs.Append(ctx, visit("Manish Gupta", start.AddDays(i*7)))
		require.NoError(t, err)
	}

	status, err := f.resolver.Resolve(ctx, "Manish Gupta")
	require.NoError(t, err)
	require.NotNil(t, status)

	assert.Equal(t, 3, status.UsedCount)
	assert.Equal(t, 4, status.CurrentServiceNumber)
	assert.Equal(t, 9, status.Remaining)
	assert.False(t, status.IsExpired)
}

func TestResolve_Expired(t *testing.T) {
	// GIVEN: The same package with all 12 covered visits used
	// WHEN: Resolving
	// THEN: currentServiceNumber = 13, expired, nothing remaining

	f := newFixture(t)
	ctx := context.Background()
	start := core.NewDate(2025, time.January, 1)

	_, err := f.pkgs.Append(ctx, goldPackage("Manish Gupta", 12, start))
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		_, err := f.txs.Append(ctx, visit("Manish Gupta", start.AddDays(i)))
		require.NoError(t, err)
	}

	status, err := f.resolver.Resolve(ctx, "Manish Gupta")
	require.NoError(t, err)
	require.NotNil(t, status)

	assert.Equal(t, 13, status.CurrentServiceNumber)
	assert.True(t, status.IsExpired)
	assert.Equal(t, 0, status.Remaining)
}

func TestResolve_ExpiryBoundary(t *testing.T) {
	// used == total-1 leaves exactly one visit; used == total flips expiry.

	resolveWith := func(visits int) *entitlement.Status {
		f := newFixture(t)
		ctx := context.Background()
		start := core.NewDate(2025, time.February, 1)
		_, err := f.pkgs.Append(ctx, goldPackage("Priya", 3, start))
		require.NoError(t, err)
		for i := 0; i < visits; i++ {
			_, err := f.txs.Append(ctx, visit("Priya", start.AddDays(i)))
			require.NoError(t, err)
		}
		status, err := f.resolver.Resolve(ctx, "Priya")
		require.NoError(t, err)
		require.NotNil(t, status)
		return status
	}

	almost := resolveWith(2)
	assert.Equal(t, 1, almost.Remaining)
	assert.False(t, almost.IsExpired)

	exact := resolveWith(3)
	assert.Equal(t, 0, exact.Remaining)
	assert.True(t, exact.IsExpired)
}

// =============================================================================
// COUNTING RULE
// =============================================================================

func TestResolve_OnlyQualifyingTransactionsCount(t *testing.T) {
	// GIVEN: A mix of transactions, only one of which satisfies the rule
	// THEN: usedCount is exactly 1

	f := newFixture(t)
	ctx := context.Background()
	start := core.NewDate(2025, time.January, 10)

	_, err := f.pkgs.Append(ctx, goldPackage("Manish Gupta", 12, start))
	require.NoError(t, err)

	qualifying := visit("Manish Gupta", start)

	wrongType := visit("Manish Gupta", start.AddDays(1))
	wrongType.ServiceType = core.ServiceTypeDemo

	notDone := visit("Manish Gupta", start.AddDays(2))
	notDone.WorkStatus = core.WorkPending

	beforeStart := visit("Manish Gupta", start.AddDays(-1))

	otherClient := visit("Someone Else", start.AddDays(3))

	for _, tx := range []core.ServiceTransaction{qualifying, wrongType, notDone, beforeStart, otherClient} {
		_, err := f.txs.Append(ctx, tx)
		require.NoError(t, err)
	}

	status, err := f.resolver.Resolve(ctx, "Manish Gupta")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, 1, status.UsedCount)
}

func TestResolve_NameMatchingIsTrimmedAndCaseFolded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := core.NewDate(2025, time.January, 1)

	_, err := f.pkgs.Append(ctx, goldPackage("Manish Gupta", 12, start))
	require.NoError(t, err)
	_, err = f.txs.Append(ctx, visit("  MANISH gupta ", start))
	require.NoError(t, err)

	status, err := f.resolver.Resolve(ctx, " manish GUPTA  ")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, 1, status.UsedCount)
}

// =============================================================================
// NO PACKAGE / DEGRADED
// =============================================================================

func TestResolve_NoApprovedGrantIsNil(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A PENDING grant does not count toward entitlement.
	g := goldPackage("Manish Gupta", 12, core.NewDate(2025, time.January, 1))
	g.Status = core.PackagePending
	_, err := f.pkgs.Append(ctx, g)
	require.NoError(t, err)

	status, err := f.resolver.Resolve(ctx, "Manish Gupta")
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestResolve_EmptyNameRejectedBeforeAnyQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Resolve(context.Background(), "   ")

	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "client_name", verr.Field)
}

type failingTxStore struct{}

func (failingTxStore) Query(context.Context, core.TransactionFilter) ([]core.ServiceTransaction, error) {
	return nil, errors.New("connection refused")
}
func (failingTxStore) Append(context.Context, core.ServiceTransaction) (string, error) {
	return "", errors.New("connection refused")
}
func (failingTxStore) Update(context.Context, string, core.ServiceTransaction) error {
	return errors.New("connection refused")
}

type failingPkgStore struct{}

func (failingPkgStore) Query(context.Context, core.GrantFilter) ([]core.PackageGrant, error) {
	return nil, errors.New("connection refused")
}
func (failingPkgStore) Append(context.Context, core.PackageGrant) (string, error) {
	return "", errors.New("connection refused")
}
func (failingPkgStore) Update(context.Context, string, core.PackageGrant) error {
	return errors.New("connection refused")
}
func (failingPkgStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestResolve_DegradesToNilWhenStoreUnreachable(t *testing.T) {
	// GIVEN: An unreachable backing store
	// WHEN: Resolving
	// THEN: nil status, nil error - treated like "no active package".
	//       Entitlement is advisory; a network fault must not block billing.

	cache := core.NewWriteCache()
	view := &core.View{Transactions: failingTxStore{}, Packages: failingPkgStore{}, Cache: cache}
	resolver := entitlement.NewResolver(view, nil)

	status, err := resolver.Resolve(context.Background(), "Manish Gupta")
	assert.NoError(t, err)
	assert.Nil(t, status)
}

// =============================================================================
// READ-YOUR-WRITES
// =============================================================================

func TestResolve_CountsJustSubmittedTransactionFromCache(t *testing.T) {
	// GIVEN: A qualifying transaction buffered locally but absent from the
	//        remote store (its read path hasn't caught up)
	// WHEN: Resolving immediately
	// THEN: usedCount reflects the submission

	f := newFixture(t)
	ctx := context.Background()
	start := core.NewDate(2025, time.January, 1)

	_, err := f.pkgs.Append(ctx, goldPackage("Manish Gupta", 12, start))
	require.NoError(t, err)

	f.cache.PutTransaction(visit("Manish Gupta", start.AddDays(3)))

	status, err := f.resolver.Resolve(ctx, "Manish Gupta")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, 1, status.UsedCount)
	assert.Equal(t, 2, status.CurrentServiceNumber)
}

// =============================================================================
// EQUIVALENCE: UsageFor must agree with Resolve
// =============================================================================

func TestUsageFor_AgreesWithResolve(t *testing.T) {
	// The batch calculator and the resolver are two code paths computing
	// the same number. For any snapshot they must agree exactly.

	start := core.NewDate(2025, time.January, 1)
	cases := []struct {
		name   string
		total  int
		visits int
	}{
		{"fresh package", 12, 0},
		{"partially used", 12, 3},
		{"one left", 12, 11},
		{"exactly exhausted", 12, 12},
		{"over-consumed", 12, 15},
		{"single service package", 1, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			pkg := goldPackage("Manish Gupta", tc.total, start)
			_, err := f.pkgs.Append(ctx, pkg)
			require.NoError(t, err)
			for i := 0; i < tc.visits; i++ {
				_, err := f.txs.Append(ctx, visit("Manish Gupta", start.AddDays(i)))
				require.NoError(t, err)
			}
			// Noise that must not count on either path.
			noise := visit("Manish Gupta", start.AddDays(50))
			noise.ServiceType = core.ServiceTypeNew
			_, err = f.txs.Append(ctx, noise)
			require.NoError(t, err)

			status, err := f.resolver.Resolve(ctx, "Manish Gupta")
			require.NoError(t, err)
			require.NotNil(t, status)

			snapshot, err := f.view.QueryTransactions(ctx, core.TransactionFilter{})
			require.NoError(t, err)
			usage := entitlement.UsageFor(pkg, snapshot)

			assert.Equal(t, status.UsedCount, usage.Used, "used must agree")
			assert.Equal(t, status.Remaining, usage.Remaining, "remaining must agree")
			assert.Equal(t, status.IsExpired, usage.IsExpired, "expiry must agree")
		})
	}
}

func TestResolve_FirstApprovedGrantWins(t *testing.T) {
	// Multiple approved grants for one name: the first encountered is
	// used. The tie-break is unspecified; this only pins "exactly one
	// grant drives the numbers".

	f := newFixture(t)
	ctx := context.Background()

	a := goldPackage("Manish Gupta", 12, core.NewDate(2025, time.January, 1))
	b := goldPackage("Manish Gupta", 6, core.NewDate(2025, time.March, 1))
	b.PackageName = "Silver"
	_, err := f.pkgs.Append(ctx, a)
	require.NoError(t, err)
	_, err = f.pkgs.Append(ctx, b)
	require.NoError(t, err)

	status, err := f.resolver.Resolve(ctx, "Manish Gupta")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Contains(t, []int{6, 12}, status.Package.TotalServices)
}
