/*
scenarios_test.go - Tests for demo scenarios

Each scenario is loaded through the HTTP endpoint and its resulting data is
checked against hand-computed totals.
*/
package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/paycert/certificate"
	"github.com/warp/paycert/certificate/store"
)

func (s *testServer) loadScenario(id string) {
	s.t.Helper()
	rec := s.do("POST", "/api/scenarios/load", `{"scenario_id":"`+id+`"}`)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (s *testServer) allCertificates() []CertificateDTO {
	s.t.Helper()
	rec := s.do("GET", "/api/settings/backup", "")
	require.Equal(s.t, http.StatusOK, rec.Code)
	return decode[BackupDTO](s.t, rec).Certificates
}

func TestScenario_MockData(t *testing.T) {
	// GIVEN: an empty database
	s := setupTestServer(t)

	// WHEN: loading the mock data
	s.loadScenario("mock-data")

	// THEN: three projects, and the ZIG certificate ignores its previous payment
	rec := s.do("GET", "/api/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ProjectDTO](t, rec), 3)

	certs := s.allCertificates()
	require.Len(t, certs, 2)
	byCurrency := map[string]CertificateDTO{}
	for _, c := range certs {
		byCurrency[c.Currency] = c
	}
	assert.Equal(t, "52500.00", byCurrency["USD"].Calculation.TotalAmountPayable)
	assert.Equal(t, "50000.00", byCurrency["ZIG"].PreviousPaymentExclVAT)
	assert.Equal(t, "105000.00", byCurrency["ZIG"].Calculation.TotalAmountPayable)

	rec = s.do("GET", "/api/scenarios/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mock-data", decode[ScenarioDTO](t, rec).ID)
}

func TestScenario_MultiCurrency(t *testing.T) {
	s := setupTestServer(t)
	s.loadScenario("multi-currency")

	rec := s.do("GET", "/api/settings/statistics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[StatisticsDTO](t, rec)

	require.Len(t, stats.ByCurrency, 4)
	var order []string
	for _, c := range stats.ByCurrency {
		order = append(order, c.Currency)
	}
	assert.Equal(t, []string{"USD", "ZIG", "EUR", "GBP"}, order)
	// 48250.75: VAT 7237.6125 -> 7237.61, retention 4825.075 -> 4825.08
	assert.Equal(t, "50663.28", stats.ByCurrency[2].TotalAmountPayable)
}

func TestScenario_Rounding(t *testing.T) {
	s := setupTestServer(t)
	s.loadScenario("rounding")

	payable := map[string]string{}
	for _, c := range s.allCertificates() {
		payable[c.CurrentClaimExclVAT] = c.Calculation.TotalAmountPayable
	}
	assert.Equal(t, "0.01", payable["0.01"])
	assert.Equal(t, "0.11", payable["0.10"]) // 0.10 + 0.02 - 0.01
	assert.Equal(t, "1296.28", payable["1234.56"])
}

func TestScenario_RateChange(t *testing.T) {
	s := setupTestServer(t)
	s.loadScenario("rate-change")

	for _, c := range s.allCertificates() {
		assert.Equal(t, "14.50", c.Calculation.VATRate)
	}
	rec := s.do("GET", "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "14.5", decode[certificate.Settings](t, rec).VATRate.String())

	// Loading it again starts from default rates.
	s.loadScenario("rate-change")
	assert.Len(t, s.allCertificates(), 2)
}

func TestScenario_UnknownAndReset(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do("POST", "/api/scenarios/load", `{"scenario_id":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.loadScenario("mock-data")
	rec = s.do("POST", "/api/scenarios/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, s.allCertificates())
	rec = s.do("GET", "/api/scenarios/current", "")
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestScenario_AllScenariosLoadOnMemoryStore(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	cfg, err := certificate.LoadConfig(ctx, mem)
	require.NoError(t, err)
	h := NewHandler(certificate.NewService(mem, cfg, mem), mem)

	for _, sc := range scenarios {
		require.NoError(t, h.Seed(ctx, sc.ID), sc.ID)
		certs, err := mem.ListCertificates(ctx, "")
		require.NoError(t, err)
		assert.NotEmpty(t, certs, sc.ID)
	}
}
