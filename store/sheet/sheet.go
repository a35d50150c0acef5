/*
Package sheet adapts the row-oriented spreadsheet service to the core
store interfaces.

PURPOSE:
  The production store is a spreadsheet reached over HTTP, one sheet per
  record kind, speaking line-delimited JSON. This package is the only
  place that knows rows exist.

WIRE PROTOCOL (adapter concern, not a core contract):
  GET    {base}/{sheet}            all rows, one JSON object per line
  POST   {base}/{sheet}            append a row; response {"row": n}
  PUT    {base}/{sheet}/{row}      replace a row
  DELETE {base}/{sheet}/{row}      remove a row

IDENTITY VS POSITION:
  Records carry opaque ids; the spreadsheet addresses rows by position.
  Each adapter keeps an internal id-to-row index, refreshed on every
  query and append, so callers never see row numbers and the sheet can
  be reordered or compacted without breaking identifiers. If an update
  misses the index (the sheet changed underneath us), the adapter
  re-queries once before reporting not-found.

FAILURE:
  Any transport error, non-success status, or unparseable payload is
  reported as core.ErrDataUnavailable (wrapped). Calls are attempted
  once; retries are the caller's policy, and the callers here have none.

SEE ALSO:
  - core/store.go: the interfaces implemented here
  - store/sqlite: the local-mode implementation
*/
package sheet

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/salonops/console/core"
)

const (
	transactionsSheet = "transactions"
	packagesSheet     = "packages"
)

// Client talks to one spreadsheet service. Create one and take its
// Transactions() and Packages() adapters.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Transactions() *TransactionStore {
	return &TransactionStore{client: c, rows: make(map[string]int)}
}

func (c *Client) Packages() *PackageStore {
	return &PackageStore{client: c, rows: make(map[string]int)}
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

func (c *Client) get(ctx context.Context, sheet string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+sheet, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", sheet, resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

// decodeLines parses a line-delimited JSON body into rows of T.
func decodeLines(body []byte, each func(line []byte) error) error {
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := each(line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// =============================================================================
// WIRE RECORDS
// =============================================================================

type transactionRow struct {
	Row           int    `json:"row,omitempty"`
	ID            string `json:"id"`
	Date          string `json:"date"`
	ClientName    string `json:"client_name"`
	ServiceType   string `json:"service_type"`
	WorkStatus    string `json:"work_status"`
	Amount        string `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	PendingAmount string `json:"pending_amount,omitempty"`
	NextCallDate  string `json:"next_call_date,omitempty"`
	Remark        string `json:"remark,omitempty"`
	ScreenshotURL string `json:"payment_screenshot_url,omitempty"`
}

func encodeTransaction(tx core.ServiceTransaction) transactionRow {
	return transactionRow{
		ID:            tx.ID,
		Date:          tx.Date.String(),
		ClientName:    tx.ClientName,
		ServiceType:   string(tx.ServiceType),
		WorkStatus:    string(tx.WorkStatus),
		Amount:        tx.Amount.String(),
		PaymentMethod: string(tx.PaymentMethod),
		PendingAmount: tx.PendingAmount.String(),
		NextCallDate:  tx.NextCallDate.String(),
		Remark:        tx.Remark,
		ScreenshotURL: tx.PaymentScreenshotURL,
	}
}

func decodeTransaction(r transactionRow) (core.ServiceTransaction, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.ServiceTransaction{}, fmt.Errorf("bad date %q: %w", r.Date, err)
	}
	nextCall, err := core.ParseDate(r.NextCallDate)
	if err != nil {
		return core.ServiceTransaction{}, fmt.Errorf("bad next_call_date %q: %w", r.NextCallDate, err)
	}
	amount, err := core.ParseMoney(r.Amount)
	if err != nil {
		return core.ServiceTransaction{}, fmt.Errorf("bad amount %q: %w", r.Amount, err)
	}
	pending, err := core.ParseMoney(r.PendingAmount)
	if err != nil {
		return core.ServiceTransaction{}, fmt.Errorf("bad pending_amount %q: %w", r.PendingAmount, err)
	}
	return core.ServiceTransaction{
		ID:                   r.ID,
		Date:                 date,
		ClientName:           r.ClientName,
		ServiceType:          core.ServiceType(r.ServiceType),
		WorkStatus:           core.WorkStatus(r.WorkStatus),
		Amount:               amount,
		PaymentMethod:        core.PaymentMethod(r.PaymentMethod),
		PendingAmount:        pending,
		NextCallDate:         nextCall,
		Remark:               r.Remark,
		PaymentScreenshotURL: r.ScreenshotURL,
	}, nil
}

type grantRow struct {
	Row           int    `json:"row,omitempty"`
	ID            string `json:"id"`
	ClientName    string `json:"client_name"`
	PackageName   string `json:"package_name"`
	TotalCost     string `json:"total_cost"`
	TotalServices int    `json:"total_services"`
	StartDate     string `json:"start_date"`
	Status        string `json:"status"`
}

func encodeGrant(g core.PackageGrant) grantRow {
	return grantRow{
		ID:            g.ID,
		ClientName:    g.ClientName,
		PackageName:   g.PackageName,
		TotalCost:     g.TotalCost.String(),
		TotalServices: g.TotalServices,
		StartDate:     g.StartDate.String(),
		Status:        string(g.Status),
	}
}

func decodeGrant(r grantRow) (core.PackageGrant, error) {
	start, err := core.ParseDate(r.StartDate)
	if err != nil {
		return core.PackageGrant{}, fmt.Errorf("bad start_date %q: %w", r.StartDate, err)
	}
	cost, err := core.ParseMoney(r.TotalCost)
	if err != nil {
		return core.PackageGrant{}, fmt.Errorf("bad total_cost %q: %w", r.TotalCost, err)
	}
	return core.PackageGrant{
		ID:            r.ID,
		ClientName:    r.ClientName,
		PackageName:   r.PackageName,
		TotalCost:     cost,
		TotalServices: r.TotalServices,
		StartDate:     start,
		Status:        core.PackageStatus(r.Status),
	}, nil
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

type TransactionStore struct {
	client *Client

	mu   sync.Mutex
	rows map[string]int // id -> row position, adapter-internal
}

var _ core.TransactionStore = (*TransactionStore)(nil)

func (s *TransactionStore) Query(ctx context.Context, f core.TransactionFilter) ([]core.ServiceTransaction, error) {
	body, err := s.client.get(ctx, transactionsSheet)
	if err != nil {
		return nil, core.Unavailable("sheet query transactions", err)
	}

	var result []core.ServiceTransaction
	index := make(map[string]int)
	err = decodeLines(body, func(line []byte) error {
		var row transactionRow
		if err := json.Unmarshal(line, &row); err != nil {
			return err
		}
		tx, err := decodeTransaction(row)
		if err != nil {
			return err
		}
		index[tx.ID] = row.Row
		if f.Match(tx) {
			result = append(result, tx)
		}
		return nil
	})
	if err != nil {
		return nil, core.Unavailable("sheet parse transactions", err)
	}

	s.mu.Lock()
	s.rows = index
	s.mu.Unlock()
	return result, nil
}

func (s *TransactionStore) Append(ctx context.Context, tx core.ServiceTransaction) (string, error) {
	if tx.ID == "" {
		tx.ID = core.NewRecordID()
	}
	resp, err := s.client.send(ctx, http.MethodPost, transactionsSheet, encodeTransaction(tx))
	if err != nil {
		return "", core.Unavailable("sheet append transaction", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", core.Unavailable("sheet append transaction", fmt.Errorf("status %d", resp.StatusCode))
	}
	var placed struct {
		Row int `json:"row"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&placed); err != nil {
		return "", core.Unavailable("sheet append transaction", err)
	}

	s.mu.Lock()
	s.rows[tx.ID] = placed.Row
	s.mu.Unlock()
	return tx.ID, nil
}

func (s *TransactionStore) Update(ctx context.Context, id string, tx core.ServiceTransaction) error {
	row, ok := s.rowFor(id)
	if !ok {
		// The index may be stale; refresh once before giving up.
		if _, err := s.Query(ctx, core.TransactionFilter{}); err != nil {
			return err
		}
		if row, ok = s.rowFor(id); !ok {
			return core.ErrNotFound
		}
	}
	tx.ID = id
	resp, err := s.client.send(ctx, http.MethodPut, fmt.Sprintf("%s/%d", transactionsSheet, row), encodeTransaction(tx))
	if err != nil {
		return core.Unavailable("sheet update transaction", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return core.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return core.Unavailable("sheet update transaction", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func (s *TransactionStore) rowFor(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	return row, ok
}

// =============================================================================
// PACKAGE STORE
// =============================================================================

type PackageStore struct {
	client *Client

	mu   sync.Mutex
	rows map[string]int
}

var _ core.PackageStore = (*PackageStore)(nil)

func (s *PackageStore) Query(ctx context.Context, f core.GrantFilter) ([]core.PackageGrant, error) {
	body, err := s.client.get(ctx, packagesSheet)
	if err != nil {
		return nil, core.Unavailable("sheet query grants", err)
	}

	var result []core.PackageGrant
	index := make(map[string]int)
	err = decodeLines(body, func(line []byte) error {
		var row grantRow
		if err := json.Unmarshal(line, &row); err != nil {
			return err
		}
		g, err := decodeGrant(row)
		if err != nil {
			return err
		}
		index[g.ID] = row.Row
		if f.Match(g) {
			result = append(result, g)
		}
		return nil
	})
	if err != nil {
		return nil, core.Unavailable("sheet parse grants", err)
	}

	s.mu.Lock()
	s.rows = index
	s.mu.Unlock()
	return result, nil
}

func (s *PackageStore) Append(ctx context.Context, g core.PackageGrant) (string, error) {
	if g.ID == "" {
		g.ID = core.NewRecordID()
	}
	resp, err := s.client.send(ctx, http.MethodPost, packagesSheet, encodeGrant(g))
	if err != nil {
		return "", core.Unavailable("sheet append grant", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", core.Unavailable("sheet append grant", fmt.Errorf("status %d", resp.StatusCode))
	}
	var placed struct {
		Row int `json:"row"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&placed); err != nil {
		return "", core.Unavailable("sheet append grant", err)
	}

	s.mu.Lock()
	s.rows[g.ID] = placed.Row
	s.mu.Unlock()
	return g.ID, nil
}

func (s *PackageStore) Update(ctx context.Context, id string, g core.PackageGrant) error {
	row, ok := s.rowFor(id)
	if !ok {
		if _, err := s.Query(ctx, core.GrantFilter{}); err != nil {
			return err
		}
		if row, ok = s.rowFor(id); !ok {
			return core.ErrNotFound
		}
	}
	g.ID = id
	resp, err := s.client.send(ctx, http.MethodPut, fmt.Sprintf("%s/%d", packagesSheet, row), encodeGrant(g))
	if err != nil {
		return core.Unavailable("sheet update grant", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return core.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return core.Unavailable("sheet update grant", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func (s *PackageStore) Delete(ctx context.Context, id string) error {
	row, ok := s.rowFor(id)
	if !ok {
		if _, err := s.Query(ctx, core.GrantFilter{}); err != nil {
			return err
		}
		if row, ok = s.rowFor(id); !ok {
			return core.ErrNotFound
		}
	}
	resp, err := s.client.send(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", packagesSheet, row), nil)
	if err != nil {
		return core.Unavailable("sheet delete grant", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return core.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return core.Unavailable("sheet delete grant", fmt.Errorf("status %d", resp.StatusCode))
	}

	s.mu.Lock()
	delete(s.rows, id)
	s.mu.Unlock()
	return nil
}

func (s *PackageStore) rowFor(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	return row, ok
}
