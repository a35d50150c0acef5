/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.
  Dates are "YYYY-MM-DD" strings; empty string means no date. Amounts are
  plain JSON numbers (integer currency units in practice).

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/salonops/console/core"
	"github.com/salonops/console/entitlement"
)

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents a service transaction in API responses.
type TransactionDTO struct {
	ID                   string  `json:"id"`
	Date                 string  `json:"date"`
	ClientName           string  `json:"client_name"`
	ServiceType          string  `json:"service_type"`
	WorkStatus           string  `json:"work_status"`
	Amount               float64 `json:"amount"`
	PaymentMethod        string  `json:"payment_method"`
	PendingAmount        float64 `json:"pending_amount"`
	NextCallDate         string  `json:"next_call_date,omitempty"`
	Remark               string  `json:"remark,omitempty"`
	PaymentScreenshotURL string  `json:"payment_screenshot_url,omitempty"`
	DueAmount            float64 `json:"due_amount"`
	HasDue               bool    `json:"has_due"`
}

func toTransactionDTO(tx core.ServiceTransaction) TransactionDTO {
	amount, _ := tx.Amount.Value.Float64()
	pending, _ := tx.PendingAmount.Value.Float64()
	due, _ := tx.DueAmount().Value.Float64()
	return TransactionDTO{
		ID:                   tx.ID,
		Date:                 tx.Date.String(),
		ClientName:           tx.ClientName,
		ServiceType:          string(tx.ServiceType),
		WorkStatus:           string(tx.WorkStatus),
		Amount:               amount,
		PaymentMethod:        string(tx.PaymentMethod),
		PendingAmount:        pending,
		NextCallDate:         tx.NextCallDate.String(),
		Remark:               tx.Remark,
		PaymentScreenshotURL: tx.PaymentScreenshotURL,
		DueAmount:            due,
		HasDue:               tx.HasOutstandingDue(),
	}
}

func toTransactionDTOs(txs []core.ServiceTransaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

// SubmitTransactionRequest records a completed (or pending) service visit.
type SubmitTransactionRequest struct {
	Date          string  `json:"date"`
	ClientName    string  `json:"client_name"`
	ServiceType   string  `json:"service_type"`
	WorkStatus    string  `json:"work_status"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Remark        string  `json:"remark,omitempty"`
}

// WorkStatusRequest moves a transaction through its status machine.
type WorkStatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// PACKAGE GRANTS
// =============================================================================

// UsageDTO is the batch-computed progress of one grant.
type UsageDTO struct {
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
	IsExpired bool `json:"is_expired"`
}

// GrantDTO represents a package grant plus its computed usage.
type GrantDTO struct {
	ID            string   `json:"id"`
	ClientName    string   `json:"client_name"`
	PackageName   string   `json:"package_name"`
	TotalCost     float64  `json:"total_cost"`
	TotalServices int      `json:"total_services"`
	StartDate     string   `json:"start_date"`
	Status        string   `json:"status"`
	Usage         *UsageDTO `json:"usage,omitempty"`
}

func toGrantDTO(g core.PackageGrant) GrantDTO {
	cost, _ := g.TotalCost.Value.Float64()
	return GrantDTO{
		ID:            g.ID,
		ClientName:    g.ClientName,
		PackageName:   g.PackageName,
		TotalCost:     cost,
		TotalServices: g.TotalServices,
		StartDate:     g.StartDate.String(),
		Status:        string(g.Status),
	}
}

// CreateGrantRequest records a package sale. Grants start PENDING.
type CreateGrantRequest struct {
	ClientName    string  `json:"client_name"`
	PackageName   string  `json:"package_name"`
	TotalCost     float64 `json:"total_cost"`
	TotalServices int     `json:"total_services"`
	StartDate     string  `json:"start_date"`
}

// =============================================================================
// ENTITLEMENT
// =============================================================================

// EntitlementDTO is the resolved package status for one client.
type EntitlementDTO struct {
	Package              GrantDTO `json:"package"`
	UsedCount            int      `json:"used_count"`
	CurrentServiceNumber int      `json:"current_service_number"`
	IsExpired            bool     `json:"is_expired"`
	Remaining            int      `json:"remaining"`
}

// EntitlementResponse wraps the nullable entitlement: a client with no
// approved package resolves to null, which is not an error.
type EntitlementResponse struct {
	ClientName  string          `json:"client_name"`
	Entitlement *EntitlementDTO `json:"entitlement"`
}

func toEntitlementDTO(s *entitlement.Status) *EntitlementDTO {
	if s == nil {
		return nil
	}
	return &EntitlementDTO{
		Package:              toGrantDTO(s.Package),
		UsedCount:            s.UsedCount,
		CurrentServiceNumber: s.CurrentServiceNumber,
		IsExpired:            s.IsExpired,
		Remaining:            s.Remaining,
	}
}

// =============================================================================
// DUES
// =============================================================================

// PaymentUpdateRequest applies a (possibly partial) payment to a due.
type PaymentUpdateRequest struct {
	PaidAmount    float64 `json:"paid_amount"`
	NextCallDate  string  `json:"next_call_date,omitempty"`
	Remark        string  `json:"remark"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	ProofURL      string  `json:"proof_url,omitempty"`
}

// ReviewRequest bulk-marks dues as reviewed.
type ReviewRequest struct {
	TransactionIDs []string `json:"transaction_ids"`
	DaysAhead      int      `json:"days_ahead,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON body for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
