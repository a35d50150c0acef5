package sheet_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonops/console/core"
	"github.com/salonops/console/store/sheet"
)

// =============================================================================
// FAKE SPREADSHEET SERVICE
// =============================================================================

// fakeSheets speaks the adapter's wire protocol: GET returns one JSON
// object per line with its row position injected, POST appends and
// answers {"row": n}, PUT/DELETE address rows by position.
type fakeSheets struct {
	mu     sync.Mutex
	sheets map[string][]map[string]any
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{sheets: make(map[string][]map[string]any)}
}

func (f *fakeSheets) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		sheetName := parts[0]

		switch {
		case r.Method == http.MethodGet:
			for i, row := range f.sheets[sheetName] {
				row["row"] = i
				line, _ := json.Marshal(row)
				w.Write(line)
				w.Write([]byte("\n"))
			}

		case r.Method == http.MethodPost:
			var row map[string]any
			if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.sheets[sheetName] = append(f.sheets[sheetName], row)
			json.NewEncoder(w).Encode(map[string]int{"row": len(f.sheets[sheetName]) - 1})

		case r.Method == http.MethodPut:
			i, _ := strconv.Atoi(parts[1])
			if i < 0 || i >= len(f.sheets[sheetName]) {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var row map[string]any
			if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.sheets[sheetName][i] = row
			w.WriteHeader(http.StatusNoContent)

		case r.Method == http.MethodDelete:
			i, _ := strconv.Atoi(parts[1])
			if i < 0 || i >= len(f.sheets[sheetName]) {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			f.sheets[sheetName] = append(f.sheets[sheetName][:i], f.sheets[sheetName][i+1:]...)
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newTestClient(t *testing.T) (*sheet.Client, *fakeSheets) {
	t.Helper()
	fake := newFakeSheets()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return sheet.New(srv.URL), fake
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

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestTransactionStore_AppendQueryRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	store := client.Transactions()
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
	assert.Equal(t, core.PayPending, tx.PaymentMethod)
	assert.True(t, tx.Date.Equal(core.NewDate(2025, time.January, 15)))
	assert.True(t, tx.NextCallDate.Equal(core.NewDate(2025, time.January, 20)))
	assert.Equal(t, "will pay friday", tx.Remark)
}

func TestTransactionStore_QueryFilterAppliedServerSnapshot(t *testing.T) {
	client, _ := newTestClient(t)
	store := client.Transactions()
	ctx := context.Background()

	a := someTransaction()
	b := someTransaction()
	b.ClientName = "Priya"
	_, err := store.Append(ctx, a)
	require.NoError(t, err)
	_, err = store.Append(ctx, b)
	require.NoError(t, err)

	got, err := store.Query(ctx, core.TransactionFilter{ClientName: " PRIYA "})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Priya", got[0].ClientName)
}

func TestTransactionStore_UpdateByID(t *testing.T) {
	client, _ := newTestClient(t)
	store := client.Transactions()
	ctx := context.Background()

	id, err := store.Append(ctx, someTransaction())
	require.NoError(t, err)

	updated := someTransaction()
	updated.PaymentMethod = core.PayCash
	updated.PendingAmount = core.ZeroMoney()
	require.NoError(t, store.Update(ctx, id, updated))

	got, err := store.Query(ctx, core.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, core.PayCash, got[0].PaymentMethod)
}

func TestTransactionStore_UpdateWithColdIndexRefreshesOnce(t *testing.T) {
	// GIVEN: A row written through one adapter instance
	// WHEN: A fresh instance, whose id-to-row index is empty, updates it
	// THEN: The adapter re-queries and lands the write

	client, _ := newTestClient(t)
	ctx := context.Background()

	id, err := client.Transactions().Append(ctx, someTransaction())
	require.NoError(t, err)

	cold := client.Transactions()
	updated := someTransaction()
	updated.Remark = "updated via cold index"
	require.NoError(t, cold.Update(ctx, id, updated))

	got, err := cold.Query(ctx, core.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "updated via cold index", got[0].Remark)
}

func TestTransactionStore_UpdateUnknownID(t *testing.T) {
	client, _ := newTestClient(t)

	err := client.Transactions().Update(context.Background(), "no-such-id", someTransaction())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

// =============================================================================
// FAILURE REPORTING
// =============================================================================

func TestTransactionStore_ServerErrorIsDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	store := sheet.New(srv.URL).Transactions()

	_, err := store.Query(context.Background(), core.TransactionFilter{})
	assert.ErrorIs(t, err, core.ErrDataUnavailable)

	_, err = store.Append(context.Background(), someTransaction())
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
}

func TestTransactionStore_UnreachableServerIsDataUnavailable(t *testing.T) {
	// Port 1 refuses connections.
	store := sheet.New("http://127.0.0.1:1").Transactions()

	_, err := store.Query(context.Background(), core.TransactionFilter{})
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
}

func TestTransactionStore_GarbageRowIsDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("{\"id\":\"x\",\"amount\":\"not-a-number\",\"date\":\"2025-01-01\"}\n"))
	}))
	t.Cleanup(srv.Close)
	store := sheet.New(srv.URL).Transactions()

	_, err := store.Query(context.Background(), core.TransactionFilter{})
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
}

// =============================================================================
// PACKAGES
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

func TestPackageStore_LifecycleAgainstRowPositions(t *testing.T) {
	// Append two grants, update the second, delete the first: ids keep
	// resolving even though the delete shifts every later row position.

	client, _ := newTestClient(t)
	store := client.Packages()
	ctx := context.Background()

	first, err := store.Append(ctx, someGrant())
	require.NoError(t, err)
	second, err := store.Append(ctx, someGrant())
	require.NoError(t, err)

	approved := someGrant()
	approved.Status = core.PackageApproved
	require.NoError(t, store.Update(ctx, second, approved))

	require.NoError(t, store.Delete(ctx, first))

	got, err := store.Query(ctx, core.GrantFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, second, got[0].ID)
	assert.Equal(t, core.PackageApproved, got[0].Status)

	// The surviving row moved to position 0; its id must still update.
	renamed := approved
	renamed.PackageName = "Gold Plus"
	require.NoError(t, store.Update(ctx, second, renamed))

	got, err = store.Query(ctx, core.GrantFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Gold Plus", got[0].PackageName)
}

func TestPackageStore_QueryByStatus(t *testing.T) {
	client, _ := newTestClient(t)
	store := client.Packages()
	ctx := context.Background()

	pending := someGrant()
	approved := someGrant()
	approved.Status = core.PackageApproved
	_, err := store.Append(ctx, pending)
	require.NoError(t, err)
	id, err := store.Append(ctx, approved)
	require.NoError(t, err)

	got, err := store.Query(ctx, core.GrantFilter{Status: core.PackageApproved})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
}

func TestPackageStore_DeleteUnknownID(t *testing.T) {
	client, _ := newTestClient(t)

	err := client.Packages().Delete(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
