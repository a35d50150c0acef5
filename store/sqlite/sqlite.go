/*
Package sqlite provides a SQLite-backed implementation of the store
adapters for local mode.

PURPOSE:
  The console normally runs against the remote spreadsheet service
  (store/sheet). For development and tests there is no spreadsheet, so
  this package implements the same core interfaces on SQLite. Use
  ":memory:" for a throwaway database.

TABLES:
  service_transactions:  one row per service visit
  package_grants:        one row per package sale

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers
  don't block, single writer at a time.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool with versioned migrations.

SEE ALSO:
  - core/store.go: interface definitions
  - store/sheet: the production adapter
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/salonops/console/core"
)

// Store implements core.TransactionStore on SQLite; Grants() exposes the
// core.PackageStore face of the same database.
type Store struct {
	db *sql.DB
}

var _ core.TransactionStore = (*Store)(nil)

// New creates a SQLite store. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS service_transactions (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		client_name TEXT NOT NULL,
		service_type TEXT NOT NULL,
		work_status TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		pending_amount TEXT NOT NULL DEFAULT '0',
		next_call_date TEXT NOT NULL DEFAULT '',
		remark TEXT NOT NULL DEFAULT '',
		payment_screenshot_url TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_client
		ON service_transactions(client_name);
	CREATE INDEX IF NOT EXISTS idx_transactions_date
		ON service_transactions(date);

	CREATE TABLE IF NOT EXISTS package_grants (
		id TEXT PRIMARY KEY,
		client_name TEXT NOT NULL,
		package_name TEXT NOT NULL,
		total_cost TEXT NOT NULL,
		total_services INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_grants_client
		ON package_grants(client_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

func (s *Store) Query(ctx context.Context, f core.TransactionFilter) ([]core.ServiceTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, client_name, service_type, work_status, amount,
		       payment_method, pending_amount, next_call_date, remark,
		       payment_screenshot_url
		FROM service_transactions
		ORDER BY date, id`)
	if err != nil {
		return nil, core.Unavailable("sqlite query transactions", err)
	}
	defer rows.Close()

	var result []core.ServiceTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, core.Unavailable("sqlite scan transaction", err)
		}
		if f.Match(tx) {
			result = append(result, tx)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, core.Unavailable("sqlite query transactions", err)
	}
	return result, nil
}

func (s *Store) Append(ctx context.Context, tx core.ServiceTransaction) (string, error) {
	if tx.ID == "" {
		tx.ID = core.NewRecordID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_transactions
			(id, date, client_name, service_type, work_status, amount,
			 payment_method, pending_amount, next_call_date, remark,
			 payment_screenshot_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Date.String(), tx.ClientName, string(tx.ServiceType),
		string(tx.WorkStatus), tx.Amount.String(), string(tx.PaymentMethod),
		tx.PendingAmount.String(), tx.NextCallDate.String(), tx.Remark,
		tx.PaymentScreenshotURL)
	if err != nil {
		return "", core.Unavailable("sqlite append transaction", err)
	}
	return tx.ID, nil
}

func (s *Store) Update(ctx context.Context, id string, tx core.ServiceTransaction) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE service_transactions
		SET date = ?, client_name = ?, service_type = ?, work_status = ?,
		    amount = ?, payment_method = ?, pending_amount = ?,
		    next_call_date = ?, remark = ?, payment_screenshot_url = ?
		WHERE id = ?`,
		tx.Date.String(), tx.ClientName, string(tx.ServiceType),
		string(tx.WorkStatus), tx.Amount.String(), string(tx.PaymentMethod),
		tx.PendingAmount.String(), tx.NextCallDate.String(), tx.Remark,
		tx.PaymentScreenshotURL, id)
	if err != nil {
		return core.Unavailable("sqlite update transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Unavailable("sqlite update transaction", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.ServiceTransaction, error) {
	var (
		tx                                core.ServiceTransaction
		date, svcType, workStatus, method string
		amount, pending, nextCall         string
	)
	err := row.Scan(&tx.ID, &date, &tx.ClientName, &svcType, &workStatus,
		&amount, &method, &pending, &nextCall, &tx.Remark,
		&tx.PaymentScreenshotURL)
	if err != nil {
		return tx, err
	}
	if tx.Date, err = core.ParseDate(date); err != nil {
		return tx, err
	}
	if tx.NextCallDate, err = core.ParseDate(nextCall); err != nil {
		return tx, err
	}
	if tx.Amount, err = core.ParseMoney(amount); err != nil {
		return tx, err
	}
	if tx.PendingAmount, err = core.ParseMoney(pending); err != nil {
		return tx, err
	}
	tx.ServiceType = core.ServiceType(svcType)
	tx.WorkStatus = core.WorkStatus(workStatus)
	tx.PaymentMethod = core.PaymentMethod(method)
	return tx, nil
}

// =============================================================================
// PACKAGE STORE
// =============================================================================

func (s *Store) queryGrants(ctx context.Context, f core.GrantFilter) ([]core.PackageGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_name, package_name, total_cost, total_services,
		       start_date, status
		FROM package_grants
		ORDER BY start_date, id`)
	if err != nil {
		return nil, core.Unavailable("sqlite query grants", err)
	}
	defer rows.Close()

	var result []core.PackageGrant
	for rows.Next() {
		var (
			g                   core.PackageGrant
			cost, start, status string
		)
		if err := rows.Scan(&g.ID, &g.ClientName, &g.PackageName, &cost,
			&g.TotalServices, &start, &status); err != nil {
			return nil, core.Unavailable("sqlite scan grant", err)
		}
		if g.TotalCost, err = core.ParseMoney(cost); err != nil {
			return nil, core.Unavailable("sqlite scan grant", err)
		}
		if g.StartDate, err = core.ParseDate(start); err != nil {
			return nil, core.Unavailable("sqlite scan grant", err)
		}
		g.Status = core.PackageStatus(status)
		if f.Match(g) {
			result = append(result, g)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, core.Unavailable("sqlite query grants", err)
	}
	return result, nil
}

func (s *Store) appendGrant(ctx context.Context, g core.PackageGrant) (string, error) {
	if g.ID == "" {
		g.ID = core.NewRecordID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO package_grants
			(id, client_name, package_name, total_cost, total_services,
			 start_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.ClientName, g.PackageName, g.TotalCost.String(),
		g.TotalServices, g.StartDate.String(), string(g.Status))
	if err != nil {
		return "", core.Unavailable("sqlite append grant", err)
	}
	return g.ID, nil
}

func (s *Store) updateGrant(ctx context.Context, id string, g core.PackageGrant) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE package_grants
		SET client_name = ?, package_name = ?, total_cost = ?,
		    total_services = ?, start_date = ?, status = ?
		WHERE id = ?`,
		g.ClientName, g.PackageName, g.TotalCost.String(), g.TotalServices,
		g.StartDate.String(), string(g.Status), id)
	if err != nil {
		return core.Unavailable("sqlite update grant", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Unavailable("sqlite update grant", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) deleteGrant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM package_grants WHERE id = ?`, id)
	if err != nil {
		return core.Unavailable("sqlite delete grant", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Unavailable("sqlite delete grant", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// =============================================================================
// INTERFACE SPLIT
// =============================================================================
// Store's exported methods satisfy core.TransactionStore directly. The
// grant methods would collide by name, so Grants() returns a view
// satisfying core.PackageStore on the same database.

// Grants returns the package-grant face of the store.
func (s *Store) Grants() *GrantStore { return &GrantStore{s: s} }

type GrantStore struct {
	s *Store
}

var _ core.PackageStore = (*GrantStore)(nil)

func (g *GrantStore) Query(ctx context.Context, f core.GrantFilter) ([]core.PackageGrant, error) {
	return g.s.queryGrants(ctx, f)
}

func (g *GrantStore) Append(ctx context.Context, grant core.PackageGrant) (string, error) {
	return g.s.appendGrant(ctx, grant)
}

func (g *GrantStore) Update(ctx context.Context, id string, grant core.PackageGrant) error {
	return g.s.updateGrant(ctx, id, grant)
}

func (g *GrantStore) Delete(ctx context.Context, id string) error {
	return g.s.deleteGrant(ctx, id)
}
