/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Project and certificate CRUD through the router
- Money formatting and request decoding (numbers and strings)
- Error status mapping (400, 403, 404, 409)
- Settings updates that recompute stored calculations
- PDF, CSV and backup downloads
*/
package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/paycert/certificate"
	"github.com/warp/paycert/store/sqlite"
)

type testServer struct {
	t      *testing.T
	router http.Handler
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg, err := certificate.LoadConfig(context.Background(), store)
	require.NoError(t, err)
	h := NewHandler(certificate.NewService(store, cfg, store), store)
	return &testServer{t: t, router: NewRouter(h)}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(UserHeader, "alice")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createProject(contractNo string) ProjectDTO {
	s.t.Helper()
	rec := s.do("POST", "/api/projects", `{"name_of_contractor":"ABC Construction Ltd","contract_no":"`+contractNo+`","vote_no":"V-1","tender_sum":500000}`)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ProjectDTO](s.t, rec)
}

func (s *testServer) createCertificate(projectID, body string) CertificateDTO {
	s.t.Helper()
	rec := s.do("POST", "/api/projects/"+projectID+"/certificates", body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[CertificateDTO](s.t, rec)
}

// =============================================================================
// PROJECTS
// =============================================================================

func TestCreateProject(t *testing.T) {
	s := setupTestServer(t)

	p := s.createProject("CON-2023-001")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "500000.00", p.TenderSum)
	assert.Equal(t, "alice", p.Owner)
}

func TestCreateProject_DuplicateContractNoIsConflict(t *testing.T) {
	s := setupTestServer(t)
	s.createProject("CON-2023-001")

	rec := s.do("POST", "/api/projects", `{"name_of_contractor":"Other","contract_no":"CON-2023-001","vote_no":"V-2","tender_sum":"10"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decode[ErrorResponse](t, rec).Error)
}

func TestCreateProject_ValidationAndBadJSON(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do("POST", "/api/projects", `{"name_of_contractor":"","contract_no":"C","vote_no":"V","tender_sum":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do("POST", "/api/projects", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decode[ErrorResponse](t, rec).Error)
}

func TestGetProject_IncludesCertificates(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")
	s.createCertificate(p.ID, `{"currency":"USD","current_claim_excl_vat":"10000.00"}`)

	rec := s.do("GET", "/api/projects/"+p.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ProjectDTO](t, rec)
	require.Len(t, got.Certificates, 1)
	assert.Equal(t, "10500.00", got.Certificates[0].Calculation.TotalAmountPayable)

	rec = s.do("GET", "/api/projects/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProjects_OwnerFilter(t *testing.T) {
	s := setupTestServer(t)
	s.createProject("CON-1")

	rec := s.do("GET", "/api/projects?owner=alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ProjectDTO](t, rec), 1)

	rec = s.do("GET", "/api/projects?owner=bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]ProjectDTO](t, rec))
}

func TestUpdateAndDeleteProject(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")
	c := s.createCertificate(p.ID, `{"current_claim_excl_vat":100}`)

	rec := s.do("PUT", "/api/projects/"+p.ID, `{"name_of_contractor":"Renamed","contract_no":"CON-1","vote_no":"V-9","tender_sum":"1.50"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Renamed", decode[ProjectDTO](t, rec).NameOfContractor)

	rec = s.do("DELETE", "/api/projects/"+p.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do("GET", "/api/projects/"+p.ID+"/certificates/"+c.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// CERTIFICATES
// =============================================================================

func TestCreateCertificate_StandardClaim(t *testing.T) {
	// GIVEN: a project
	s := setupTestServer(t)
	p := s.createProject("CON-1")

	// WHEN: a 10000.00 claim is posted as a JSON number
	c := s.createCertificate(p.ID, `{"currency":"USD","current_claim_excl_vat":10000}`)

	// THEN: every amount is a two-decimal string
	assert.Equal(t, "10000.00", c.CurrentClaimExclVAT)
	assert.Equal(t, "0.00", c.PreviousPaymentExclVAT)
	assert.Equal(t, CalculationDTO{
		VATValue:                    "1500.00",
		ValueOfWorkdoneInclVAT:      "11500.00",
		TotalValueOfWorkdoneExclVAT: "10000.00",
		Retention:                   "1000.00",
		TotalAmountPayable:          "10500.00",
		VATRate:                     "15.00",
		RetentionRate:               "10.00",
	}, c.Calculation)
}

func TestCreateCertificate_DefaultCurrency(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")

	c := s.createCertificate(p.ID, `{"current_claim_excl_vat":"1.00"}`)
	assert.Equal(t, "USD", c.Currency)
}

func TestCreateCertificate_Rejections(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")

	cases := []string{
		`{"current_claim_excl_vat":0}`,
		`{"current_claim_excl_vat":"-5"}`,
		`{"current_claim_excl_vat":"1.005"}`,
		`{"current_claim_excl_vat":"10","currency":"JPY"}`,
		`{"current_claim_excl_vat":"10","previous_payment_excl_vat":"-1"}`,
	}
	for _, body := range cases {
		rec := s.do("POST", "/api/projects/"+p.ID+"/certificates", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	// Nothing was stored.
	rec := s.do("GET", "/api/projects/"+p.ID+"/certificates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]CertificateDTO](t, rec))
}

func TestCreateCertificate_UnknownProject(t *testing.T) {
	s := setupTestServer(t)
	rec := s.do("POST", "/api/projects/nope/certificates", `{"current_claim_excl_vat":"10"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateCertificate_RecomputesAllFields(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")
	c := s.createCertificate(p.ID, `{"current_claim_excl_vat":"10000.00"}`)

	rec := s.do("PUT", "/api/projects/"+p.ID+"/certificates/"+c.ID, `{"currency":"ZIG","current_claim_excl_vat":"50000.00","previous_payment_excl_vat":"50000.00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[CertificateDTO](t, rec)

	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "ZIG", got.Currency)
	assert.Equal(t, "7500.00", got.Calculation.VATValue)
	assert.Equal(t, "57500.00", got.Calculation.ValueOfWorkdoneInclVAT)
	assert.Equal(t, "50000.00", got.Calculation.TotalValueOfWorkdoneExclVAT)
	assert.Equal(t, "5000.00", got.Calculation.Retention)
	assert.Equal(t, "52500.00", got.Calculation.TotalAmountPayable)
}

func TestCertificate_WrongProjectIsNotFound(t *testing.T) {
	s := setupTestServer(t)
	p1 := s.createProject("CON-1")
	p2 := s.createProject("CON-2")
	c := s.createCertificate(p1.ID, `{"current_claim_excl_vat":"10"}`)

	assert.Equal(t, http.StatusNotFound, s.do("GET", "/api/projects/"+p2.ID+"/certificates/"+c.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do("PUT", "/api/projects/"+p2.ID+"/certificates/"+c.ID, `{"current_claim_excl_vat":"20"}`).Code)
	assert.Equal(t, http.StatusNotFound, s.do("DELETE", "/api/projects/"+p2.ID+"/certificates/"+c.ID, "").Code)

	// Still there, unchanged.
	rec := s.do("GET", "/api/projects/"+p1.ID+"/certificates/"+c.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.00", decode[CertificateDTO](t, rec).CurrentClaimExclVAT)
}

func TestDeleteCertificate(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")
	c := s.createCertificate(p.ID, `{"current_claim_excl_vat":"10"}`)

	assert.Equal(t, http.StatusNoContent, s.do("DELETE", "/api/projects/"+p.ID+"/certificates/"+c.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do("GET", "/api/projects/"+p.ID+"/certificates/"+c.ID, "").Code)
}

func TestCertificatePDF(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")
	c := s.createCertificate(p.ID, `{"current_claim_excl_vat":"10000.00"}`)

	rec := s.do("GET", "/api/projects/"+p.ID+"/certificates/"+c.ID+"/pdf", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "certificate_"+c.ID+".pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

// =============================================================================
// CALCULATIONS
// =============================================================================

func TestPreviewCalculation(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do("POST", "/api/calculations/preview", `{"current_claim_excl_vat":"0.01"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	calc := decode[CalculationDTO](t, rec)
	assert.Equal(t, "0.00", calc.VATValue)
	assert.Equal(t, "0.00", calc.Retention)
	assert.Equal(t, "0.01", calc.TotalAmountPayable)

	rec = s.do("POST", "/api/calculations/preview", `{"current_claim_excl_vat":"0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestUpdateSettings_RateChangeRecomputes(t *testing.T) {
	// GIVEN: a certificate saved at 15% VAT
	s := setupTestServer(t)
	p := s.createProject("CON-1")
	c := s.createCertificate(p.ID, `{"current_claim_excl_vat":"10000.00"}`)

	// WHEN: VAT is changed to 20%
	rec := s.do("PUT", "/api/settings", `{"vat_rate":"20"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	settings := decode[certificate.Settings](t, rec)
	assert.Equal(t, "alice", settings.UpdatedBy)
	assert.Equal(t, "Your Company Name", settings.CompanyName) // untouched fields survive

	// THEN: the stored calculation was recomputed
	rec = s.do("GET", "/api/projects/"+p.ID+"/certificates/"+c.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[CertificateDTO](t, rec)
	assert.Equal(t, "2000.00", got.Calculation.VATValue)
	assert.Equal(t, "11000.00", got.Calculation.TotalAmountPayable)
	assert.Equal(t, "20.00", got.Calculation.VATRate)
}

func TestUpdateSettings_RejectsOutOfRangeRate(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do("PUT", "/api/settings", `{"retention_rate":150}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do("GET", "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[certificate.Settings](t, rec).RetentionRate.Equal(certificate.DefaultRetentionRate))
}

func TestStatistics(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")
	s.createCertificate(p.ID, `{"currency":"USD","current_claim_excl_vat":"10000.00"}`)
	s.createCertificate(p.ID, `{"currency":"ZIG","current_claim_excl_vat":"50000.00"}`)

	rec := s.do("GET", "/api/settings/statistics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[StatisticsDTO](t, rec)
	assert.Equal(t, 1, stats.Projects)
	assert.Equal(t, 2, stats.Certificates)
	require.Len(t, stats.ByCurrency, 2)
	assert.Equal(t, CurrencyTotalsDTO{Currency: "USD", Certificates: 1, CurrentClaim: "10000.00", TotalAmountPayable: "10500.00"}, stats.ByCurrency[0])
	assert.Equal(t, "52500.00", stats.ByCurrency[1].TotalAmountPayable)
}

func TestAuditLog(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")
	s.createCertificate(p.ID, `{"current_claim_excl_vat":"10"}`)

	rec := s.do("GET", "/api/settings/audit-log?model=certificate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]AuditEntryDTO](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Actor)
	assert.Equal(t, "CREATE", entries[0].Action)

	rec = s.do("GET", "/api/settings/audit-log?action=delete", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]AuditEntryDTO](t, rec))

	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/api/settings/audit-log?limit=x", "").Code)
}

func TestExport(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")
	s.createCertificate(p.ID, `{"current_claim_excl_vat":"10000.00"}`)

	rec := s.do("GET", "/api/settings/export?type=certificates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "ABC Construction Ltd")
	assert.Contains(t, lines[1], "10500.00")

	assert.Equal(t, http.StatusOK, s.do("GET", "/api/settings/export?type=projects", "").Code)
	assert.Equal(t, http.StatusOK, s.do("GET", "/api/settings/export?type=audit_logs", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/api/settings/export?type=users", "").Code)

	// The export itself is audited.
	rec = s.do("GET", "/api/settings/audit-log?action=EXPORT", "")
	assert.Len(t, decode[[]AuditEntryDTO](t, rec), 3)
}

func TestExport_DisabledIsForbidden(t *testing.T) {
	s := setupTestServer(t)
	require.Equal(t, http.StatusOK, s.do("PUT", "/api/settings", `{"enable_data_export":false}`).Code)

	rec := s.do("GET", "/api/settings/export?type=projects", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBackup(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")
	s.createCertificate(p.ID, `{"current_claim_excl_vat":"10"}`)

	rec := s.do("GET", "/api/settings/backup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	backup := decode[BackupDTO](t, rec)
	assert.Len(t, backup.Projects, 1)
	require.Len(t, backup.Certificates, 1)
	assert.Equal(t, "11.50", backup.Certificates[0].Calculation.ValueOfWorkdoneInclVAT)
	assert.NotEmpty(t, backup.AuditLog)
}

func TestRecalculate(t *testing.T) {
	s := setupTestServer(t)
	p := s.createProject("CON-1")
	s.createCertificate(p.ID, `{"current_claim_excl_vat":"10"}`)
	s.createCertificate(p.ID, `{"current_claim_excl_vat":"20"}`)

	rec := s.do("POST", "/api/admin/recalculate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[RecalculateResponse](t, rec).Recomputed)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(&certificate.InvalidClaimError{Field: "x"}))
	assert.Equal(t, http.StatusBadRequest, statusFor(&certificate.RateOutOfRangeError{Rate: "vat_rate"}))
	assert.Equal(t, http.StatusNotFound, statusFor(certificate.ErrProjectNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(certificate.ErrDuplicateContractNo))
	assert.Equal(t, http.StatusInternalServerError, statusFor(certificate.ErrCalculationMissing))
}
