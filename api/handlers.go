/*
handlers.go - HTTP API handlers for payment certificates

PURPOSE:
  Exposes projects, certificates and settings via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to certificate.Service.
  No handler computes money itself; every derived amount comes from the
  service's write path or from storage.

ENDPOINTS:
  Projects:
    GET    /api/projects                          List (optional ?owner=)
    POST   /api/projects                          Create
    GET    /api/projects/{id}                     Detail with certificates
    PUT    /api/projects/{id}                     Update
    DELETE /api/projects/{id}                     Delete (cascades)

  Certificates:
    GET    /api/projects/{id}/certificates        List with calculations
    POST   /api/projects/{id}/certificates        Create
    GET    /api/projects/{id}/certificates/{cid}  Detail
    PUT    /api/projects/{id}/certificates/{cid}  Re-save (full recompute)
    DELETE /api/projects/{id}/certificates/{cid}  Delete
    GET    /api/projects/{id}/certificates/{cid}/pdf

  Calculations:
    POST   /api/calculations/preview              Engine only, nothing stored

  Settings:
    GET    /api/settings                          Current settings
    PUT    /api/settings                          Update (recomputes on rate change)
    GET    /api/settings/statistics               Counters and per-currency sums
    GET    /api/settings/audit-log                Filter by ?actor=&action=&model=&limit=
    GET    /api/settings/export?type=             CSV: projects, certificates, audit_logs
    GET    /api/settings/backup                   JSON dump

  Admin:
    POST   /api/admin/recalculate                 Recompute every calculation

IDENTITY:
  The caller is named by the X-User header (authentication happens in
  front of this service). Missing header means "anonymous".

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Export disabled in settings
  - 404: Resource not found
  - 409: Duplicate contract number
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/warp/paycert/certificate"
	"github.com/warp/paycert/render"
)

// UserHeader carries the authenticated user name.
const UserHeader = "X-User"

const defaultAuditLimit = 100

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Backend is the storage the handlers need beyond the service: the audit
// trail for queries and exports, and Reset for demo scenarios.
type Backend interface {
	certificate.TxStore
	certificate.AuditLog
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *certificate.Service
	Store   Backend

	now func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler around the service and its store.
func NewHandler(svc *certificate.Service, store Backend) *Handler {
	return &Handler{
		Service: svc,
		Store:   store,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func actor(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get(UserHeader)); u != "" {
		return u
	}
	return "anonymous"
}

// =============================================================================
// PROJECT ENDPOINTS
// =============================================================================

// ListProjects returns projects newest first.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Service.ListProjects(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		h.fail(w, err)
		return
	}

	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, toProjectDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProject creates a project owned by the caller.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	p, err := h.Service.CreateProject(r.Context(), actor(r), req.toInput())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(p))
}

// GetProject returns one project with its certificates.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := certificate.ProjectID(chi.URLParam(r, "id"))

	p, err := h.Service.GetProject(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	records, err := h.Service.ListCertificates(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}

	dto := toProjectDTO(p)
	dto.Certificates = toCertificateDTOs(records)
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id := certificate.ProjectID(chi.URLParam(r, "id"))

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	p, err := h.Service.UpdateProject(r.Context(), actor(r), id, req.toInput())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(p))
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := certificate.ProjectID(chi.URLParam(r, "id"))

	if err := h.Service.DeleteProject(r.Context(), actor(r), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CERTIFICATE ENDPOINTS
// =============================================================================

func (h *Handler) ListCertificates(w http.ResponseWriter, r *http.Request) {
	id := certificate.ProjectID(chi.URLParam(r, "id"))

	if _, err := h.Service.GetProject(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	records, err := h.Service.ListCertificates(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCertificateDTOs(records))
}

// CreateCertificate stores a claim and its calculation in one transaction.
func (h *Handler) CreateCertificate(w http.ResponseWriter, r *http.Request) {
	h.saveCertificate(w, r, "", http.StatusCreated)
}

// UpdateCertificate re-saves a claim; all five derived fields are recomputed.
func (h *Handler) UpdateCertificate(w http.ResponseWriter, r *http.Request) {
	certID := certificate.CertificateID(chi.URLParam(r, "certID"))
	h.saveCertificate(w, r, certID, http.StatusOK)
}

func (h *Handler) saveCertificate(w http.ResponseWriter, r *http.Request, certID certificate.CertificateID, status int) {
	projectID := certificate.ProjectID(chi.URLParam(r, "id"))

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	claim, err := req.toClaim()
	if err != nil {
		h.fail(w, err)
		return
	}

	rec, err := h.Service.SaveCertificate(r.Context(), actor(r), certificate.Certificate{
		ID:        certID,
		ProjectID: projectID,
		Claim:     claim,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, status, toCertificateDTO(rec))
}

func (h *Handler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	rec, err := h.certificateInProject(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCertificateDTO(rec))
}

func (h *Handler) DeleteCertificate(w http.ResponseWriter, r *http.Request) {
	rec, err := h.certificateInProject(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.Service.DeleteCertificate(r.Context(), actor(r), rec.Certificate.ID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CertificatePDF renders the stored certificate as a PDF download.
func (h *Handler) CertificatePDF(w http.ResponseWriter, r *http.Request) {
	rec, err := h.certificateInProject(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	p, err := h.Service.GetProject(r.Context(), rec.Certificate.ProjectID)
	if err != nil {
		h.fail(w, err)
		return
	}

	doc := render.BuildDocument(p, rec, h.Service.Config().Current(), h.now())
	var buf bytes.Buffer
	if err := render.WritePDF(&buf, doc); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render certificate", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, render.Filename(rec.Certificate.ID)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// certificateInProject loads {certID} and checks it belongs to {id}.
func (h *Handler) certificateInProject(r *http.Request) (certificate.Record, error) {
	projectID := certificate.ProjectID(chi.URLParam(r, "id"))
	certID := certificate.CertificateID(chi.URLParam(r, "certID"))

	rec, err := h.Service.GetCertificate(r.Context(), certID)
	if err != nil {
		return certificate.Record{}, err
	}
	if rec.Certificate.ProjectID != projectID {
		return certificate.Record{}, certificate.ErrCertificateNotFound
	}
	return rec, nil
}

// =============================================================================
// CALCULATION ENDPOINTS
// =============================================================================

// PreviewCalculation runs the engine under the current rates without
// writing anything.
func (h *Handler) PreviewCalculation(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	claim, err := req.toClaim()
	if err != nil {
		h.fail(w, err)
		return
	}

	calc, err := h.Service.Preview(claim)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(calc))
}

// =============================================================================
// SETTINGS ENDPOINTS
// =============================================================================

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Config().Current())
}

// UpdateSettings applies the fields present in the body on top of the
// current settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	next := h.Service.Config().Current()
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	saved, err := h.Service.UpdateSettings(r.Context(), actor(r), next)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Statistics(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatisticsDTO(stats))
}

// GetAuditLog returns audit entries newest first.
func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := certificate.AuditFilter{
		Actor:  q.Get("actor"),
		Action: certificate.AuditAction(strings.ToUpper(q.Get("action"))),
		Model:  q.Get("model"),
		Limit:  defaultAuditLimit,
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		filter.Limit = n
	}

	entries, err := h.Store.QueryAudit(r.Context(), filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditEntryDTOs(entries))
}

// Export streams a CSV file. Refused when exports are disabled in settings.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if !h.Service.Config().Current().EnableDataExport {
		writeError(w, http.StatusForbidden, "data export is disabled", nil)
		return
	}

	ctx := r.Context()
	exportType := r.URL.Query().Get("type")
	var buf bytes.Buffer

	switch exportType {
	case "projects":
		projects, err := h.Service.ListProjects(ctx, "")
		if err != nil {
			h.fail(w, err)
			return
		}
		if err := render.WriteProjectsCSV(&buf, projects); err != nil {
			h.fail(w, err)
			return
		}

	case "certificates":
		projects, err := h.projectIndex(ctx)
		if err != nil {
			h.fail(w, err)
			return
		}
		records, err := h.Service.ListCertificates(ctx, "")
		if err != nil {
			h.fail(w, err)
			return
		}
		if err := render.WriteCertificatesCSV(&buf, records, projects); err != nil {
			h.fail(w, err)
			return
		}

	case "audit_logs":
		entries, err := h.Store.QueryAudit(ctx, certificate.AuditFilter{})
		if err != nil {
			h.fail(w, err)
			return
		}
		if err := render.WriteAuditCSV(&buf, entries); err != nil {
			h.fail(w, err)
			return
		}

	default:
		writeError(w, http.StatusBadRequest, "type must be one of projects, certificates, audit_logs", nil)
		return
	}

	h.Service.Record(ctx, actor(r), certificate.AuditExport, "Export", "", "Exported "+exportType)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_export.csv"`, exportType))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Backup returns every record as one JSON document.
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projects, err := h.Service.ListProjects(ctx, "")
	if err != nil {
		h.fail(w, err)
		return
	}
	records, err := h.Service.ListCertificates(ctx, "")
	if err != nil {
		h.fail(w, err)
		return
	}
	entries, err := h.Store.QueryAudit(ctx, certificate.AuditFilter{})
	if err != nil {
		h.fail(w, err)
		return
	}

	backup := BackupDTO{
		GeneratedAt:  h.now(),
		Settings:     h.Service.Config().Current(),
		Projects:     make([]ProjectDTO, 0, len(projects)),
		Certificates: toCertificateDTOs(records),
		AuditLog:     toAuditEntryDTOs(entries),
	}
	for _, p := range projects {
		backup.Projects = append(backup.Projects, toProjectDTO(p))
	}

	h.Service.Record(ctx, actor(r), certificate.AuditExport, "Backup", "", "Backup created")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="paycert_backup_%s.json"`, backup.GeneratedAt.Format("20060102_150405")))
	writeJSON(w, http.StatusOK, backup)
}

func (h *Handler) projectIndex(ctx context.Context) (map[certificate.ProjectID]certificate.Project, error) {
	projects, err := h.Service.ListProjects(ctx, "")
	if err != nil {
		return nil, err
	}
	index := make(map[certificate.ProjectID]certificate.Project, len(projects))
	for _, p := range projects {
		index[p.ID] = p
	}
	return index, nil
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// Recalculate recomputes every stored calculation under the current rates.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.RecalculateAll(r.Context(), actor(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecalculateResponse{Recomputed: n})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps a service error onto a status code.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest:
		writeError(w, status, "validation failed", err)
	case http.StatusNotFound:
		writeError(w, status, "not found", err)
	case http.StatusConflict:
		writeError(w, status, "conflict", err)
	default:
		log.Printf("api: internal error: %v", err)
		writeError(w, status, "internal error", err)
	}
}

func statusFor(err error) int {
	switch {
	case certificate.IsClientError(err):
		return http.StatusBadRequest
	case certificate.IsNotFound(err):
		return http.StatusNotFound
	case certificate.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
