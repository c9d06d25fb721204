/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Every certificate goes through Service.SaveCertificate,
	so demo calculations are produced by the same write path as real ones.

AVAILABLE SCENARIOS:

	mock-data:       Three contracts, two certificates (USD and ZIG)
	multi-currency:  One contract with a certificate in every currency
	rounding:        Claims that exercise half-up rounding at the cent
	rate-change:     Certificates saved at 15% VAT, then VAT moved to 14.5%

HOW SCENARIOS WORK:
 1. Reset database (projects, certificates, calculations, audit log)
 2. Create projects
 3. Save certificates through the service

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mock-data"}

NOTE:

	Scenarios reset the database. Settings survive a reset, except that
	rate-change leaves VAT at 14.5%. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
  - certificate/service.go: SaveCertificate
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/warp/paycert/certificate"
)

const demoActor = "demo"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "mock-data",
		Name:        "Mock Data",
		Description: "Three contracts with a USD and a ZIG certificate",
	},
	{
		ID:          "multi-currency",
		Name:        "Multi-Currency",
		Description: "One contract with certificates in USD, ZIG, EUR and GBP",
	},
	{
		ID:          "rounding",
		Name:        "Rounding Edge Cases",
		Description: "Smallest claim (0.01) and half-cent VAT/retention values",
	},
	{
		ID:          "rate-change",
		Name:        "Rate Change",
		Description: "Certificates saved at 15% VAT, then recomputed at 14.5%",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if !knownScenario(req.ScenarioID) {
		writeError(w, http.StatusBadRequest, "unknown scenario", nil)
		return
	}

	if err := h.Seed(r.Context(), req.ScenarioID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load scenario: %v", err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase deletes all business data and the audit log.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset database", err)
		return
	}
	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Seed resets the store and loads scenario id. Used by the API and by the
// server's -seed flag.
func (h *Handler) Seed(ctx context.Context, id string) error {
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	h.setCurrentScenario("")

	var err error
	switch id {
	case "mock-data":
		err = h.loadMockDataScenario(ctx)
	case "multi-currency":
		err = h.loadMultiCurrencyScenario(ctx)
	case "rounding":
		err = h.loadRoundingScenario(ctx)
	case "rate-change":
		err = h.loadRateChangeScenario(ctx)
	default:
		return fmt.Errorf("unknown scenario %q", id)
	}
	if err != nil {
		return err
	}

	h.setCurrentScenario(id)
	return nil
}

func knownScenario(id string) bool {
	for _, s := range scenarios {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type demoCertificate struct {
	currency certificate.Currency
	claim    string
	previous string
}

func (h *Handler) createDemoProject(ctx context.Context, name, contractNo, voteNo, tenderSum string) (certificate.Project, error) {
	return h.Service.CreateProject(ctx, demoActor, certificate.ProjectInput{
		NameOfContractor: name,
		ContractNo:       contractNo,
		VoteNo:           voteNo,
		TenderSum:        decimal.RequireFromString(tenderSum),
	})
}

func (h *Handler) saveDemoCertificates(ctx context.Context, projectID certificate.ProjectID, certs []demoCertificate) error {
	for _, dc := range certs {
		previous := decimal.Zero
		if dc.previous != "" {
			previous = decimal.RequireFromString(dc.previous)
		}
		_, err := h.Service.SaveCertificate(ctx, demoActor, certificate.Certificate{
			ProjectID: projectID,
			Claim: certificate.Claim{
				CurrentClaimExclVAT:    decimal.RequireFromString(dc.claim),
				PreviousPaymentExclVAT: previous,
				Currency:               dc.currency,
			},
		})
		if err != nil {
			return fmt.Errorf("certificate %s %s: %w", dc.currency, dc.claim, err)
		}
	}
	return nil
}

func (h *Handler) loadMockDataScenario(ctx context.Context) error {
	abc, err := h.createDemoProject(ctx, "ABC Construction Ltd", "CON-2023-001", "V-2023-001", "500000.00")
	if err != nil {
		return err
	}
	xyz, err := h.createDemoProject(ctx, "XYZ Builders Inc", "CON-2023-002", "V-2023-002", "750000.00")
	if err != nil {
		return err
	}
	if _, err := h.createDemoProject(ctx, "Mega Structures Co", "CON-2023-003", "V-2023-003", "1200000.00"); err != nil {
		return err
	}

	if err := h.saveDemoCertificates(ctx, abc.ID, []demoCertificate{
		{certificate.CurrencyUSD, "50000.00", "0.00"},
	}); err != nil {
		return err
	}
	return h.saveDemoCertificates(ctx, xyz.ID, []demoCertificate{
		{certificate.CurrencyZIG, "100000.00", "50000.00"},
	})
}

func (h *Handler) loadMultiCurrencyScenario(ctx context.Context) error {
	p, err := h.createDemoProject(ctx, "Harare Water Works", "CON-2024-010", "V-2024-010", "2500000.00")
	if err != nil {
		return err
	}
	return h.saveDemoCertificates(ctx, p.ID, []demoCertificate{
		{certificate.CurrencyUSD, "125000.00", "0.00"},
		{certificate.CurrencyZIG, "3400000.00", "1200000.00"},
		{certificate.CurrencyEUR, "48250.75", "0.00"},
		{certificate.CurrencyGBP, "9999.99", "5000.00"},
	})
}

func (h *Handler) loadRoundingScenario(ctx context.Context) error {
	p, err := h.createDemoProject(ctx, "Penny Contractors", "CON-2024-020", "V-2024-020", "100.00")
	if err != nil {
		return err
	}
	return h.saveDemoCertificates(ctx, p.ID, []demoCertificate{
		{certificate.CurrencyUSD, "0.01", ""},    // VAT 0.0015 -> 0.00
		{certificate.CurrencyUSD, "0.10", ""},    // VAT 0.015 -> 0.02
		{certificate.CurrencyUSD, "1234.56", ""}, // VAT 185.184 -> 185.18
	})
}

func (h *Handler) loadRateChangeScenario(ctx context.Context) error {
	current := h.Service.Config().Current()
	if !current.Rates().Equal(certificate.DefaultRates()) {
		current.VATRate = certificate.DefaultVATRate
		current.RetentionRate = certificate.DefaultRetentionRate
		if _, err := h.Service.UpdateSettings(ctx, demoActor, current); err != nil {
			return err
		}
	}

	p, err := h.createDemoProject(ctx, "Bridgeway Civils", "CON-2024-030", "V-2024-030", "900000.00")
	if err != nil {
		return err
	}
	if err := h.saveDemoCertificates(ctx, p.ID, []demoCertificate{
		{certificate.CurrencyUSD, "10000.00", ""},
		{certificate.CurrencyUSD, "20000.00", "10000.00"},
	}); err != nil {
		return err
	}

	next := h.Service.Config().Current()
	next.VATRate = decimal.RequireFromString("14.50")
	_, err = h.Service.UpdateSettings(ctx, demoActor, next)
	return err
}
