package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonops/console/core"
	"github.com/salonops/console/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func someTransaction() core.ServiceTransaction {
	return core.ServiceTransaction{
		Date:          core.NewDate(2025, time.January, 15),
		ClientName:    "Manish Gupta",
		ServiceType:   core.ServiceTypeService,
		WorkStatus:    core.WorkDone,
		Amount:        core.NewMoney(500),
		PaymentMethod: core.PayPending,
		NextCallDate:  core.NewDate(2025, time.January, 20),
		Remark:        "will pay friday",
	}
}

func TestTransactions_AppendQueryRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id, err := store.Append(ctx, someTransaction())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.Query(ctx, core.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	tx := got[0]
	assert.Equal(t, id, tx.ID)
	assert.Equal(t, "Manish Gupta", tx.ClientName)
	assert.Equal(t, core.ServiceTypeService, tx.ServiceType)
	assert.Equal(t, core.WorkDone, tx.WorkStatus)
	assert.True(t, tx.Amount.Equal(core.NewMoney(500)))
	assert.True(t, tx.PendingAmount.IsZero())
	assert.True(t, tx.Date.Equal(core.NewDate(2025, time.January, 15)))
	assert.True(t, tx.NextCallDate.Equal(core.NewDate(2025, time.January, 20)))
	assert.Equal(t, "will pay friday", tx.Remark)
}

func TestTransactions_QueryOrderedByDate(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	late := someTransaction()
	late.Date = core.NewDate(2025, time.March, 1)
	early := someTransaction()
	early.Date = core.NewDate(2025, time.January, 1)

	_, err := store.Append(ctx, late)
	require.NoError(t, err)
	_, err = store.Append(ctx, early)
	require.NoError(t, err)

	got, err := store.Query(ctx, core.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Before(got[1].Date))
}

func TestTransactions_QueryFilterByClient(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a := someTransaction()
	b := someTransaction()
	b.ClientName = "Priya"
	_, err := store.Append(ctx, a)
	require.NoError(t, err)
	_, err = store.Append(ctx, b)
	require.NoError(t, err)

	got, err := store.Query(ctx, core.TransactionFilter{ClientName: "priya"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Priya", got[0].ClientName)
}

func TestTransactions_Update(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id, err := store.Append(ctx, someTransaction())
	require.NoError(t, err)

	updated := someTransaction()
	updated.PaymentMethod = core.PayCash
	updated.Remark = "settled"
	require.NoError(t, store.Update(ctx, id, updated))

	got, err := store.Query(ctx, core.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.PayCash, got[0].PaymentMethod)
	assert.Equal(t, "settled", got[0].Remark)
}

func TestTransactions_UpdateUnknownID(t *testing.T) {
	store := newStore(t)

	err := store.Update(context.Background(), "no-such-id", someTransaction())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

// =============================================================================
// GRANTS
// =============================================================================

func someGrant() core.PackageGrant {
	return core.PackageGrant{
		ClientName:    "Manish Gupta",
		PackageName:   "Gold",
		TotalCost:     core.NewMoney(6000),
		TotalServices: 12,
		StartDate:     core.NewDate(2025, time.January, 1),
		Status:        core.PackagePending,
	}
}

func TestGrants_Lifecycle(t *testing.T) {
	store := newStore(t)
	grants := store.Grants()
	ctx := context.Background()

	id, err := grants.Append(ctx, someGrant())
	require.NoError(t, err)

	got, err := grants.Query(ctx, core.GrantFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, core.PackagePending, got[0].Status)
	assert.True(t, got[0].TotalCost.Equal(core.NewMoney(6000)))

	approved := someGrant()
	approved.Status = core.PackageApproved
	require.NoError(t, grants.Update(ctx, id, approved))

	got, err = grants.Query(ctx, core.GrantFilter{ClientName: "MANISH gupta", Status: core.PackageApproved})
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, grants.Delete(ctx, id))

	got, err = grants.Query(ctx, core.GrantFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGrants_UpdateAndDeleteUnknownID(t *testing.T) {
	store := newStore(t)
	grants := store.Grants()
	ctx := context.Background()

	assert.ErrorIs(t, grants.Update(ctx, "no-such-id", someGrant()), core.ErrNotFound)
	assert.ErrorIs(t, grants.Delete(ctx, "no-such-id"), core.ErrNotFound)
}
