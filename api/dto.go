/*
dto.go - Data Transfer Objects for API requests/responses

PURPOSE:
  Defines the JSON structures for API communication. Separates the API
  contract from internal domain types.

MONEY:
  Responses carry every amount as a string with exactly two decimals
  ("10500.00"). Requests accept either a JSON number or a string; both go
  through decimal.Decimal, never float64.

SEE ALSO:
  - handlers.go: Uses these DTOs
  - certificate/types.go: Domain types these convert from
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/paycert/certificate"
)

// =============================================================================
// PROJECT DTOs
// =============================================================================

type ProjectDTO struct {
	ID               string           `json:"id"`
	NameOfContractor string           `json:"name_of_contractor"`
	ContractNo       string           `json:"contract_no"`
	VoteNo           string           `json:"vote_no"`
	TenderSum        string           `json:"tender_sum"`
	Owner            string           `json:"owner"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Certificates     []CertificateDTO `json:"certificates,omitempty"`
}

type ProjectRequest struct {
	NameOfContractor string          `json:"name_of_contractor"`
	ContractNo       string          `json:"contract_no"`
	VoteNo           string          `json:"vote_no"`
	TenderSum        decimal.Decimal `json:"tender_sum"`
}

func (r ProjectRequest) toInput() certificate.ProjectInput {
	return certificate.ProjectInput{
		NameOfContractor: r.NameOfContractor,
		ContractNo:       r.ContractNo,
		VoteNo:           r.VoteNo,
		TenderSum:        r.TenderSum,
	}
}

// =============================================================================
// CERTIFICATE DTOs
// =============================================================================

type CalculationDTO struct {
	VATValue                    string `json:"vat_value"`
	ValueOfWorkdoneInclVAT      string `json:"value_of_workdone_incl_vat"`
	TotalValueOfWorkdoneExclVAT string `json:"total_value_of_workdone_excl_vat"`
	Retention                   string `json:"retention"`
	TotalAmountPayable          string `json:"total_amount_payable"`
	VATRate                     string `json:"vat_rate"`
	RetentionRate               string `json:"retention_rate"`
}

type CertificateDTO struct {
	ID                     string         `json:"id"`
	ProjectID              string         `json:"project_id"`
	Currency               string         `json:"currency"`
	CurrentClaimExclVAT    string         `json:"current_claim_excl_vat"`
	PreviousPaymentExclVAT string         `json:"previous_payment_excl_vat"`
	Calculation            CalculationDTO `json:"calculation"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// ClaimRequest is the body of certificate create/update and preview.
// previous_payment_excl_vat may be omitted (zero).
type ClaimRequest struct {
	Currency               string          `json:"currency"`
	CurrentClaimExclVAT    decimal.Decimal `json:"current_claim_excl_vat"`
	PreviousPaymentExclVAT decimal.Decimal `json:"previous_payment_excl_vat"`
}

func (r ClaimRequest) toClaim() (certificate.Claim, error) {
	cur, ok := certificate.ParseCurrency(r.Currency)
	if !ok {
		return certificate.Claim{}, &certificate.InvalidClaimError{
			Field:  "currency",
			Value:  r.Currency,
			Reason: "must be one of USD, ZIG, EUR, GBP",
		}
	}
	// An empty currency falls back to the configured default in the service.
	if r.Currency == "" {
		cur = ""
	}
	return certificate.Claim{
		CurrentClaimExclVAT:    r.CurrentClaimExclVAT,
		PreviousPaymentExclVAT: r.PreviousPaymentExclVAT,
		Currency:               cur,
	}, nil
}

// =============================================================================
// SETTINGS / ADMIN DTOs
// =============================================================================

type CurrencyTotalsDTO struct {
	Currency           string `json:"currency"`
	Certificates       int    `json:"certificates"`
	CurrentClaim       string `json:"current_claim_excl_vat"`
	TotalAmountPayable string `json:"total_amount_payable"`
}

type StatisticsDTO struct {
	Projects     int                 `json:"total_projects"`
	Certificates int                 `json:"total_certificates"`
	ByCurrency   []CurrencyTotalsDTO `json:"by_currency"`
}

type AuditEntryDTO struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Actor       string    `json:"user"`
	Action      string    `json:"action"`
	Model       string    `json:"model_name"`
	ObjectID    string    `json:"object_id,omitempty"`
	Description string    `json:"description"`
}

type BackupDTO struct {
	GeneratedAt  time.Time            `json:"generated_at"`
	Settings     certificate.Settings `json:"settings"`
	Projects     []ProjectDTO         `json:"projects"`
	Certificates []CertificateDTO     `json:"certificates"`
	AuditLog     []AuditEntryDTO      `json:"audit_log"`
}

type RecalculateResponse struct {
	Recomputed int `json:"recomputed"`
}

// =============================================================================
// SCENARIO DTOs
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toProjectDTO(p certificate.Project) ProjectDTO {
	return ProjectDTO{
		ID:               string(p.ID),
		NameOfContractor: p.NameOfContractor,
		ContractNo:       p.ContractNo,
		VoteNo:           p.VoteNo,
		TenderSum:        money(p.TenderSum),
		Owner:            p.Owner,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toCalculationDTO(c certificate.CalculationRecord) CalculationDTO {
	return CalculationDTO{
		VATValue:                    money(c.VATValue),
		ValueOfWorkdoneInclVAT:      money(c.ValueOfWorkdoneInclVAT),
		TotalValueOfWorkdoneExclVAT: money(c.TotalValueOfWorkdoneExclVAT),
		Retention:                   money(c.Retention),
		TotalAmountPayable:          money(c.TotalAmountPayable),
		VATRate:                     money(c.Rates.VATRate),
		RetentionRate:               money(c.Rates.RetentionRate),
	}
}

func toCertificateDTO(r certificate.Record) CertificateDTO {
	c := r.Certificate
	return CertificateDTO{
		ID:                     string(c.ID),
		ProjectID:              string(c.ProjectID),
		Currency:               string(c.Currency),
		CurrentClaimExclVAT:    money(c.CurrentClaimExclVAT),
		PreviousPaymentExclVAT: money(c.PreviousPaymentExclVAT),
		Calculation:            toCalculationDTO(r.Calculation),
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}

func toCertificateDTOs(records []certificate.Record) []CertificateDTO {
	out := make([]CertificateDTO, 0, len(records))
	for _, r := range records {
		out = append(out, toCertificateDTO(r))
	}
	return out
}

func toStatisticsDTO(s certificate.Statistics) StatisticsDTO {
	dto := StatisticsDTO{
		Projects:     s.Projects,
		Certificates: s.Certificates,
		ByCurrency:   make([]CurrencyTotalsDTO, 0, len(s.ByCurrency)),
	}
	for _, t := range s.ByCurrency {
		dto.ByCurrency = append(dto.ByCurrency, CurrencyTotalsDTO{
			Currency:           string(t.Currency),
			Certificates:       t.Certificates,
			CurrentClaim:       money(t.CurrentClaim),
			TotalAmountPayable: money(t.TotalAmountPayable),
		})
	}
	return dto
}

func toAuditEntryDTOs(entries []certificate.AuditEntry) []AuditEntryDTO {
	out := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryDTO{
			ID:          e.ID,
			Timestamp:   e.Timestamp,
			Actor:       e.Actor,
			Action:      string(e.Action),
			Model:       e.Model,
			ObjectID:    e.ObjectID,
			Description: e.Description,
		})
	}
	return out
}
