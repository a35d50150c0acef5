/*
handlers.go - HTTP API handlers for the salon operations console

PURPOSE:
  Exposes the console core via REST. Handles HTTP request/response,
  JSON serialization, and delegates to the entitlement resolver and the
  payment reconciler.

ENDPOINTS:
  Entitlements:
    GET    /api/entitlements/{client}       Resolve a client's package status

  Packages:
    GET    /api/packages                    List grants with usage
    POST   /api/packages                    Record a package sale (PENDING)
    POST   /api/packages/{id}/approve       PENDING -> APPROVED
    POST   /api/packages/{id}/reject        PENDING -> deleted

  Transactions:
    GET    /api/transactions                List (merged view), ?client= filter
    POST   /api/transactions                Submit a service transaction
    POST   /api/transactions/{id}/status    Work-status transition

  Dues:
    GET    /api/dues                        Outstanding pool, ?sort=next_call|amount
    POST   /api/dues/{id}/payment           Apply a (partial) payment
    POST   /api/dues/review                 Bulk mark-reviewed

  Session:
    POST   /api/session/reset               Clear the write-ahead cache

WRITE PATH:
  Submissions go into the write-ahead cache first and are then appended
  to the store exactly once; an append failure is logged, not surfaced,
  because the record stays readable through the cache. No retries.

ERROR HANDLING:
  - 400: validation errors, invalid input (before any store call)
  - 404: record not found
  - 409: illegal status transition
  - 500: everything else
  Degraded advisory reads are 200 with empty/null payloads.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/salonops/console/core"
	"github.com/salonops/console/dues"
	"github.com/salonops/console/entitlement"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers. It owns the
// write-ahead cache; a session reset goes through here.
type Handler struct {
	Transactions core.TransactionStore
	Packages     core.PackageStore
	Cache        *core.WriteCache
	View         *core.View
	Resolver     *entitlement.Resolver
	Reconciler   *dues.Reconciler
	Log          *zap.Logger
}

// NewHandler wires the core components around the given stores.
func NewHandler(txs core.TransactionStore, pkgs core.PackageStore, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	cache := core.NewWriteCache()
	view := &core.View{Transactions: txs, Packages: pkgs, Cache: cache}
	return &Handler{
		Transactions: txs,
		Packages:     pkgs,
		Cache:        cache,
		View:         view,
		Resolver:     entitlement.NewResolver(view, log),
		Reconciler:   dues.NewReconciler(view, txs, cache, log),
		Log:          log,
	}
}

// =============================================================================
// ENTITLEMENT ENDPOINTS
// =============================================================================

// GetEntitlement resolves one client's package status.
// GET /api/entitlements/{client}
func (h *Handler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	client := chi.URLParam(r, "client")

	status, err := h.Resolver.Resolve(r.Context(), client)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EntitlementResponse{
		ClientName:  strings.TrimSpace(client),
		Entitlement: toEntitlementDTO(status),
	})
}

// =============================================================================
// PACKAGE ENDPOINTS
// =============================================================================

// ListPackages returns all grants with their computed usage.
// GET /api/packages
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	grants, err := h.View.QueryGrants(ctx, core.GrantFilter{})
	if err != nil {
		h.Log.Warn("package list degraded", zap.Error(err))
		writeJSON(w, http.StatusOK, []GrantDTO{})
		return
	}

	// One transaction fetch for the whole list; usage per grant is
	// computed in memory so rendering N packages costs one query.
	txs, err := h.View.QueryTransactions(ctx, core.TransactionFilter{})
	if err != nil {
		h.Log.Warn("package usage degraded", zap.Error(err))
		txs = nil
	}

	dtos := make([]GrantDTO, len(grants))
	for i, g := range grants {
		dto := toGrantDTO(g)
		if g.Status == core.PackageApproved {
			u := entitlement.UsageFor(g, txs)
			dto.Usage = &UsageDTO{Used: u.Used, Remaining: u.Remaining, IsExpired: u.IsExpired}
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGrant records a package sale. Grants start PENDING.
// POST /api/packages
func (h *Handler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	var req CreateGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.ClientName) == "" {
		writeError(w, http.StatusBadRequest, "client_name must not be empty", nil)
		return
	}
	if req.TotalServices < 1 {
		writeError(w, http.StatusBadRequest, "total_services must be at least 1", nil)
		return
	}
	start, err := core.ParseDate(req.StartDate)
	if err != nil || start.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}

	grant := core.PackageGrant{
		ID:            core.NewRecordID(),
		ClientName:    req.ClientName,
		PackageName:   req.PackageName,
		TotalCost:     core.MoneyFromFloat(req.TotalCost),
		TotalServices: req.TotalServices,
		StartDate:     start,
		Status:        core.PackagePending,
	}

	h.Cache.PutGrant(grant)
	if _, err := h.Packages.Append(r.Context(), grant); err != nil {
		h.Log.Warn("remote grant append failed, local copy kept",
			zap.String("grant_id", grant.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, toGrantDTO(grant))
}

// ApproveGrant moves a grant PENDING -> APPROVED. From then on it counts
// toward entitlement.
// POST /api/packages/{id}/approve
func (h *Handler) ApproveGrant(w http.ResponseWriter, r *http.Request) {
	h.transitionGrant(w, r, core.PackageApproved)
}

// RejectGrant removes a PENDING grant. Rejection deletes the record.
// POST /api/packages/{id}/reject
func (h *Handler) RejectGrant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	grant := h.findGrant(w, r, id)
	if grant == nil {
		return
	}
	if !core.CanTransitionPackage(grant.Status, core.PackageRejected) {
		writeError(w, http.StatusConflict, "Grant cannot be rejected from status "+string(grant.Status), nil)
		return
	}

	if err := h.Packages.Delete(ctx, id); err != nil && !core.IsNotFound(err) {
		h.Log.Warn("remote grant delete failed", zap.String("grant_id", id), zap.Error(err))
	}
	h.Cache.DropGrant(id)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) transitionGrant(w http.ResponseWriter, r *http.Request, to core.PackageStatus) {
	id := chi.URLParam(r, "id")

	grant := h.findGrant(w, r, id)
	if grant == nil {
		return
	}
	if !core.CanTransitionPackage(grant.Status, to) {
		writeError(w, http.StatusConflict, "Illegal grant transition "+string(grant.Status)+" -> "+string(to), nil)
		return
	}

	updated := *grant
	updated.Status = to

	h.Cache.PutGrant(updated)
	if err := h.Packages.Update(r.Context(), id, updated); err != nil {
		h.Log.Warn("remote grant update failed, local copy kept",
			zap.String("grant_id", id), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, toGrantDTO(updated))
}

// findGrant fetches a grant from the merged view, writing the error
// response itself and returning nil when the caller should bail.
func (h *Handler) findGrant(w http.ResponseWriter, r *http.Request, id string) *core.PackageGrant {
	grants, err := h.View.QueryGrants(r.Context(), core.GrantFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Store unavailable", err)
		return nil
	}
	for i := range grants {
		if grants[i].ID == id {
			return &grants[i]
		}
	}
	writeError(w, http.StatusNotFound, "Grant not found", nil)
	return nil
}

// =============================================================================
// TRANSACTION ENDPOINTS
// =============================================================================

// ListTransactions returns the merged transaction view.
// GET /api/transactions?client=NAME
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.View.QueryTransactions(r.Context(), core.TransactionFilter{
		ClientName: r.URL.Query().Get("client"),
	})
	if err != nil {
		h.Log.Warn("transaction list degraded", zap.Error(err))
		writeJSON(w, http.StatusOK, []TransactionDTO{})
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// SubmitTransaction records a service visit. The record is readable
// immediately through the write-ahead cache even if the remote append
// has not landed yet.
// POST /api/transactions
func (h *Handler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req SubmitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.ClientName) == "" {
		writeError(w, http.StatusBadRequest, "client_name must not be empty", nil)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil || date.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must not be negative", nil)
		return
	}

	svcType := core.ServiceType(req.ServiceType)
	switch svcType {
	case core.ServiceTypeService, core.ServiceTypeNew, core.ServiceTypeDemo, core.ServiceTypeMundan:
	default:
		writeError(w, http.StatusBadRequest, "Unknown service_type "+req.ServiceType, nil)
		return
	}
	workStatus := core.WorkStatus(req.WorkStatus)
	switch workStatus {
	case core.WorkPending, core.WorkDone, core.WorkFollowUp, core.WorkPendingApproval:
	default:
		writeError(w, http.StatusBadRequest, "Unknown work_status "+req.WorkStatus, nil)
		return
	}
	method := core.PaymentMethod(req.PaymentMethod)
	switch method {
	case core.PayCash, core.PayUPI, core.PayCard, core.PayPending:
	default:
		writeError(w, http.StatusBadRequest, "Unknown payment_method "+req.PaymentMethod, nil)
		return
	}

	tx := core.ServiceTransaction{
		ID:            core.NewRecordID(),
		Date:          date,
		ClientName:    req.ClientName,
		ServiceType:   svcType,
		WorkStatus:    workStatus,
		Amount:        core.MoneyFromFloat(req.Amount),
		PaymentMethod: method,
		PendingAmount: core.ZeroMoney(),
		Remark:        req.Remark,
	}

	h.Cache.PutTransaction(tx)
	if _, err := h.Transactions.Append(r.Context(), tx); err != nil {
		h.Log.Warn("remote transaction append failed, local copy kept",
			zap.String("transaction_id", tx.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// UpdateWorkStatus moves a transaction through its status machine.
// POST /api/transactions/{id}/status
func (h *Handler) UpdateWorkStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req WorkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := h.View.FindTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	to := core.WorkStatus(req.Status)
	if !core.CanTransitionWork(tx.WorkStatus, to) {
		writeError(w, http.StatusConflict, "Illegal status transition "+string(tx.WorkStatus)+" -> "+req.Status, nil)
		return
	}

	updated := *tx
	updated.WorkStatus = to

	h.Cache.PutTransaction(updated)
	if err := h.Transactions.Update(r.Context(), id, updated); err != nil {
		h.Log.Warn("remote status update failed, local copy kept",
			zap.String("transaction_id", id), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, toTransactionDTO(updated))
}

// =============================================================================
// DUES ENDPOINTS
// =============================================================================

// ListDues returns the outstanding-dues pool.
// GET /api/dues?sort=next_call|amount
func (h *Handler) ListDues(w http.ResponseWriter, r *http.Request) {
	order := dues.SortByNextCall
	if r.URL.Query().Get("sort") == "amount" {
		order = dues.SortByAmount
	}
	pool := h.Reconciler.Outstanding(r.Context(), order)
	writeJSON(w, http.StatusOK, toTransactionDTOs(pool))
}

// ApplyPayment applies a (partial) payment to one due.
// POST /api/dues/{id}/payment
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PaymentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	nextCall, err := core.ParseDate(req.NextCallDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid next_call_date (use YYYY-MM-DD)", err)
		return
	}

	updated, err := h.Reconciler.ApplyUpdate(r.Context(), id, dues.Update{
		PaidAmount:   core.MoneyFromFloat(req.PaidAmount),
		NextCallDate: nextCall,
		Remark:       req.Remark,
		MethodIfPaid: core.PaymentMethod(req.PaymentMethod),
		ProofURL:     req.ProofURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*updated))
}

// Review bulk-marks dues as reviewed, scheduling a follow-up call.
// POST /api/dues/review
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Reconciler.MarkReviewed(r.Context(), req.TransactionIDs, req.DaysAhead); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// ResetSession clears the write-ahead cache. Called at session start so
// the buffer does not grow for the life of the process.
// POST /api/session/reset
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	h.Cache.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps core errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error(), nil)
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Transaction not found", nil)
	default:
		writeError(w, http.StatusInternalServerError, "Operation failed", err)
	}
}
