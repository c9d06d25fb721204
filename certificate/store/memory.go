// Package store provides in-memory certificate.TxStore and AuditLog
// implementations (for testing/dev).
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/paycert/certificate"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory keeps everything in maps. WithTx runs against a copy of the state
// and swaps it in on success, so a failed transaction leaves no trace.
type Memory struct {
	mu    sync.RWMutex
	state *state
	audit []certificate.AuditEntry
}

type state struct {
	projects     map[certificate.ProjectID]certificate.Project
	certificates map[certificate.CertificateID]certificate.Certificate
	calculations map[certificate.CertificateID]certificate.CalculationRecord
	settings     *certificate.Settings
}

func NewMemory() *Memory {
	return &Memory{state: newState()}
}

func newState() *state {
	return &state{
		projects:     make(map[certificate.ProjectID]certificate.Project),
		certificates: make(map[certificate.CertificateID]certificate.Certificate),
		calculations: make(map[certificate.CertificateID]certificate.CalculationRecord),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.certificates {
		c.certificates[k] = v
	}
	for k, v := range s.calculations {
		c.calculations[k] = v
	}
	if s.settings != nil {
		cp := *s.settings
		c.settings = &cp
	}
	return c
}

// WithTx executes fn against a snapshot; the snapshot replaces the live
// state only when fn returns nil.
func (m *Memory) WithTx(ctx context.Context, fn func(certificate.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(snapshot); err != nil {
		return err
	}
	m.state = snapshot
	return nil
}

// Reset drops all business data and the audit log. Settings survive.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	settings := m.state.settings
	m.state = newState()
	m.state.settings = settings
	m.audit = nil
	return nil
}

func (m *Memory) write(fn func(*state) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

// -----------------------------------------------------------------------------
// certificate.Store on Memory: single-statement operations
// -----------------------------------------------------------------------------

func (m *Memory) LoadSettings(ctx context.Context) (certificate.Settings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.LoadSettings(ctx)
}

func (m *Memory) SaveSettings(ctx context.Context, s certificate.Settings) error {
	return m.write(func(st *state) error { return st.SaveSettings(ctx, s) })
}

func (m *Memory) SaveProject(ctx context.Context, p certificate.Project) error {
	return m.write(func(st *state) error { return st.SaveProject(ctx, p) })
}

func (m *Memory) GetProject(ctx context.Context, id certificate.ProjectID) (certificate.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetProject(ctx, id)
}

func (m *Memory) ListProjects(ctx context.Context, owner string) ([]certificate.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListProjects(ctx, owner)
}

func (m *Memory) DeleteProject(ctx context.Context, id certificate.ProjectID) error {
	return m.write(func(st *state) error { return st.DeleteProject(ctx, id) })
}

func (m *Memory) SaveCertificate(ctx context.Context, c certificate.Certificate) error {
	return m.write(func(st *state) error { return st.SaveCertificate(ctx, c) })
}

func (m *Memory) GetCertificate(ctx context.Context, id certificate.CertificateID) (certificate.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetCertificate(ctx, id)
}

func (m *Memory) ListCertificates(ctx context.Context, projectID certificate.ProjectID) ([]certificate.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListCertificates(ctx, projectID)
}

func (m *Memory) DeleteCertificate(ctx context.Context, id certificate.CertificateID) error {
	return m.write(func(st *state) error { return st.DeleteCertificate(ctx, id) })
}

func (m *Memory) UpsertCalculation(ctx context.Context, rec certificate.CalculationRecord) error {
	return m.write(func(st *state) error { return st.UpsertCalculation(ctx, rec) })
}

func (m *Memory) GetCalculation(ctx context.Context, id certificate.CertificateID) (certificate.CalculationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetCalculation(ctx, id)
}

// -----------------------------------------------------------------------------
// certificate.Store on state: the unlocked implementation, used directly
// inside WithTx
// -----------------------------------------------------------------------------

func (s *state) LoadSettings(_ context.Context) (certificate.Settings, bool, error) {
	if s.settings == nil {
		return certificate.Settings{}, false, nil
	}
	return *s.settings, true, nil
}

func (s *state) SaveSettings(_ context.Context, v certificate.Settings) error {
	s.settings = &v
	return nil
}

func (s *state) SaveProject(_ context.Context, p certificate.Project) error {
	for _, other := range s.projects {
		if other.ID != p.ID && other.ContractNo == p.ContractNo {
			return certificate.ErrDuplicateContractNo
		}
	}
	s.projects[p.ID] = p
	return nil
}

func (s *state) GetProject(_ context.Context, id certificate.ProjectID) (certificate.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return certificate.Project{}, certificate.ErrProjectNotFound
	}
	return p, nil
}

func (s *state) ListProjects(_ context.Context, owner string) ([]certificate.Project, error) {
	var out []certificate.Project
	for _, p := range s.projects {
		if owner == "" || p.Owner == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *state) DeleteProject(_ context.Context, id certificate.ProjectID) error {
	if _, ok := s.projects[id]; !ok {
		return certificate.ErrProjectNotFound
	}
	// Cascade to certificates and their calculations.
	for cid, c := range s.certificates {
		if c.ProjectID == id {
			delete(s.certificates, cid)
			delete(s.calculations, cid)
		}
	}
	delete(s.projects, id)
	return nil
}

func (s *state) SaveCertificate(_ context.Context, c certificate.Certificate) error {
	if _, ok := s.projects[c.ProjectID]; !ok {
		return certificate.ErrProjectNotFound
	}
	s.certificates[c.ID] = c
	return nil
}

func (s *state) GetCertificate(_ context.Context, id certificate.CertificateID) (certificate.Certificate, error) {
	c, ok := s.certificates[id]
	if !ok {
		return certificate.Certificate{}, certificate.ErrCertificateNotFound
	}
	return c, nil
}

func (s *state) ListCertificates(_ context.Context, projectID certificate.ProjectID) ([]certificate.Certificate, error) {
	var out []certificate.Certificate
	for _, c := range s.certificates {
		if projectID == "" || c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *state) DeleteCertificate(_ context.Context, id certificate.CertificateID) error {
	if _, ok := s.certificates[id]; !ok {
		return certificate.ErrCertificateNotFound
	}
	delete(s.certificates, id)
	delete(s.calculations, id)
	return nil
}

func (s *state) UpsertCalculation(_ context.Context, rec certificate.CalculationRecord) error {
	if _, ok := s.certificates[rec.CertificateID]; !ok {
		return certificate.ErrCertificateNotFound
	}
	s.calculations[rec.CertificateID] = rec
	return nil
}

func (s *state) GetCalculation(_ context.Context, id certificate.CertificateID) (certificate.CalculationRecord, error) {
	rec, ok := s.calculations[id]
	if !ok {
		return certificate.CalculationRecord{}, certificate.ErrCalculationMissing
	}
	return rec, nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, e certificate.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

// QueryAudit returns matching entries newest first.
func (m *Memory) QueryAudit(_ context.Context, f certificate.AuditFilter) ([]certificate.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []certificate.AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if f.Actor != "" && !strings.Contains(strings.ToLower(e.Actor), strings.ToLower(f.Actor)) {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Model != "" && !strings.Contains(strings.ToLower(e.Model), strings.ToLower(f.Model)) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
