/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

INTERFACES IMPLEMENTED:
  certificate.TxStore:  Projects, certificates, calculations, settings
  certificate.AuditLog: Audit entries

KEY TABLES:
  projects:      Contracts; contract_no is UNIQUE
  certificates:  Claims; project_id -> projects ON DELETE CASCADE
  calculations:  Derived totals; certificate_id is the PRIMARY KEY and
                 references certificates ON DELETE CASCADE (1:1)
  settings:      The single settings record (settings_json)
  audit_log:     Append-only audit trail

MONEY:
  Stored as TEXT with exactly two decimals (decimal.StringFixed(2)) and
  parsed back with decimal.NewFromString. Never REAL.

UPSERT:
  UpsertCalculation is a single INSERT ... ON CONFLICT(certificate_id)
  DO UPDATE statement that sets every derived column, so a calculation row
  is never partially updated.

CONCURRENCY:
  Uses sync.RWMutex plus a single pooled connection. WithTx holds the write
  lock for the whole transaction, so every statement inside it runs on the
  same *sql.Tx.

USAGE:
  store, err := sqlite.New("./data/paycert.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - certificate/store.go: Interface definitions
  - certificate/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/paycert/certificate"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection, and writers
	// are serialised anyway.
	db.SetMaxOpenConns(1)

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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name_of_contractor TEXT NOT NULL,
		contract_no TEXT NOT NULL UNIQUE,
		vote_no TEXT NOT NULL,
		tender_sum TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_owner_created
		ON projects(owner, created_at DESC);

	CREATE TABLE IF NOT EXISTS certificates (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		currency TEXT NOT NULL DEFAULT 'USD',
		current_claim_excl_vat TEXT NOT NULL,
		previous_payment_excl_vat TEXT NOT NULL DEFAULT '0.00',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_certificates_project_created
		ON certificates(project_id, created_at DESC);

	-- One row per certificate, written only by the calculation engine
	CREATE TABLE IF NOT EXISTS calculations (
		certificate_id TEXT PRIMARY KEY REFERENCES certificates(id) ON DELETE CASCADE,
		vat_value TEXT NOT NULL,
		value_of_workdone_incl_vat TEXT NOT NULL,
		total_value_of_workdone_excl_vat TEXT NOT NULL,
		retention TEXT NOT NULL,
		total_amount_payable TEXT NOT NULL,
		vat_rate TEXT NOT NULL,
		retention_rate TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		settings_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		model_name TEXT NOT NULL,
		object_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp
		ON audit_log(timestamp DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (certificate.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store certificate.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every statement on the open transaction. The parent's lock
// is already held by WithTx.
type txStore struct {
	q querier
}

func (ts *txStore) LoadSettings(ctx context.Context) (certificate.Settings, bool, error) {
	return loadSettings(ctx, ts.q)
}
func (ts *txStore) SaveSettings(ctx context.Context, v certificate.Settings) error {
	return saveSettings(ctx, ts.q, v)
}
func (ts *txStore) SaveProject(ctx context.Context, p certificate.Project) error {
	return saveProject(ctx, ts.q, p)
}
func (ts *txStore) GetProject(ctx context.Context, id certificate.ProjectID) (certificate.Project, error) {
	return getProject(ctx, ts.q, id)
}
func (ts *txStore) ListProjects(ctx context.Context, owner string) ([]certificate.Project, error) {
	return listProjects(ctx, ts.q, owner)
}
func (ts *txStore) DeleteProject(ctx context.Context, id certificate.ProjectID) error {
	return deleteProject(ctx, ts.q, id)
}
func (ts *txStore) SaveCertificate(ctx context.Context, c certificate.Certificate) error {
	return saveCertificate(ctx, ts.q, c)
}
func (ts *txStore) GetCertificate(ctx context.Context, id certificate.CertificateID) (certificate.Certificate, error) {
	return getCertificate(ctx, ts.q, id)
}
func (ts *txStore) ListCertificates(ctx context.Context, projectID certificate.ProjectID) ([]certificate.Certificate, error) {
	return listCertificates(ctx, ts.q, projectID)
}
func (ts *txStore) DeleteCertificate(ctx context.Context, id certificate.CertificateID) error {
	return deleteCertificate(ctx, ts.q, id)
}
func (ts *txStore) UpsertCalculation(ctx context.Context, rec certificate.CalculationRecord) error {
	return upsertCalculation(ctx, ts.q, rec)
}
func (ts *txStore) GetCalculation(ctx context.Context, id certificate.CertificateID) (certificate.CalculationRecord, error) {
	return getCalculation(ctx, ts.q, id)
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) LoadSettings(ctx context.Context) (certificate.Settings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadSettings(ctx, s.db)
}

func (s *Store) SaveSettings(ctx context.Context, v certificate.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSettings(ctx, s.db, v)
}

func loadSettings(ctx context.Context, q querier) (certificate.Settings, bool, error) {
	var raw string
	err := q.QueryRowContext(ctx, "SELECT settings_json FROM settings WHERE id = 1").Scan(&raw)
	if err == sql.ErrNoRows {
		return certificate.Settings{}, false, nil
	}
	if err != nil {
		return certificate.Settings{}, false, fmt.Errorf("failed to load settings: %w", err)
	}

	v := certificate.DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return certificate.Settings{}, false, fmt.Errorf("failed to decode settings: %w", err)
	}
	return v, true, nil
}

func saveSettings(ctx context.Context, q querier, v certificate.Settings) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	query := `
		INSERT INTO settings (id, settings_json, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			settings_json = excluded.settings_json,
			updated_at = excluded.updated_at
	`
	_, err = q.ExecContext(ctx, query, string(raw), formatTime(v.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (s *Store) SaveProject(ctx context.Context, p certificate.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveProject(ctx, s.db, p)
}

func (s *Store) GetProject(ctx context.Context, id certificate.ProjectID) (certificate.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProject(ctx, s.db, id)
}

func (s *Store) ListProjects(ctx context.Context, owner string) ([]certificate.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listProjects(ctx, s.db, owner)
}

func (s *Store) DeleteProject(ctx context.Context, id certificate.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteProject(ctx, s.db, id)
}

func saveProject(ctx context.Context, q querier, p certificate.Project) error {
	query := `
		INSERT INTO projects (id, name_of_contractor, contract_no, vote_no, tender_sum, owner, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name_of_contractor = excluded.name_of_contractor,
			contract_no = excluded.contract_no,
			vote_no = excluded.vote_no,
			tender_sum = excluded.tender_sum,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		p.ID, p.NameOfContractor, p.ContractNo, p.VoteNo,
		money(p.TenderSum), p.Owner,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return certificate.ErrDuplicateContractNo
		}
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

const projectColumns = `id, name_of_contractor, contract_no, vote_no, tender_sum, owner, created_at, updated_at`

func getProject(ctx context.Context, q querier, id certificate.ProjectID) (certificate.Project, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	if err != nil {
		return certificate.Project{}, fmt.Errorf("failed to query project: %w", err)
	}
	projects, err := scanProjects(rows)
	if err != nil {
		return certificate.Project{}, err
	}
	if len(projects) == 0 {
		return certificate.Project{}, certificate.ErrProjectNotFound
	}
	return projects[0], nil
}

func listProjects(ctx context.Context, q querier, owner string) ([]certificate.Project, error) {
	query := "SELECT " + projectColumns + " FROM projects"
	var args []any
	if owner != "" {
		query += " WHERE owner = ?"
		args = append(args, owner)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	return scanProjects(rows)
}

func scanProjects(rows *sql.Rows) ([]certificate.Project, error) {
	defer rows.Close()

	var projects []certificate.Project
	for rows.Next() {
		var (
			p                    certificate.Project
			tenderSum            string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.NameOfContractor, &p.ContractNo, &p.VoteNo,
			&tenderSum, &p.Owner, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		var err error
		if p.TenderSum, err = parseMoney(tenderSum); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func deleteProject(ctx context.Context, q querier, id certificate.ProjectID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return expectOneRow(res, certificate.ErrProjectNotFound)
}

// =============================================================================
// CERTIFICATES
// =============================================================================

func (s *Store) SaveCertificate(ctx context.Context, c certificate.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveCertificate(ctx, s.db, c)
}

func (s *Store) GetCertificate(ctx context.Context, id certificate.CertificateID) (certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCertificate(ctx, s.db, id)
}

func (s *Store) ListCertificates(ctx context.Context, projectID certificate.ProjectID) ([]certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCertificates(ctx, s.db, projectID)
}

func (s *Store) DeleteCertificate(ctx context.Context, id certificate.CertificateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteCertificate(ctx, s.db, id)
}

func saveCertificate(ctx context.Context, q querier, c certificate.Certificate) error {
	query := `
		INSERT INTO certificates
		(id, project_id, currency, current_claim_excl_vat, previous_payment_excl_vat, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			currency = excluded.currency,
			current_claim_excl_vat = excluded.current_claim_excl_vat,
			previous_payment_excl_vat = excluded.previous_payment_excl_vat,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		c.ID, c.ProjectID, string(c.Currency),
		money(c.CurrentClaimExclVAT), money(c.PreviousPaymentExclVAT),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return certificate.ErrProjectNotFound
		}
		return fmt.Errorf("failed to save certificate: %w", err)
	}
	return nil
}

const certificateColumns = `id, project_id, currency, current_claim_excl_vat, previous_payment_excl_vat, created_at, updated_at`

func getCertificate(ctx context.Context, q querier, id certificate.CertificateID) (certificate.Certificate, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+certificateColumns+" FROM certificates WHERE id = ?", id)
	if err != nil {
		return certificate.Certificate{}, fmt.Errorf("failed to query certificate: %w", err)
	}
	certs, err := scanCertificates(rows)
	if err != nil {
		return certificate.Certificate{}, err
	}
	if len(certs) == 0 {
		return certificate.Certificate{}, certificate.ErrCertificateNotFound
	}
	return certs[0], nil
}

func listCertificates(ctx context.Context, q querier, projectID certificate.ProjectID) ([]certificate.Certificate, error) {
	query := "SELECT " + certificateColumns + " FROM certificates"
	var args []any
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query certificates: %w", err)
	}
	return scanCertificates(rows)
}

func scanCertificates(rows *sql.Rows) ([]certificate.Certificate, error) {
	defer rows.Close()

	var certs []certificate.Certificate
	for rows.Next() {
		var (
			c                    certificate.Certificate
			currency             string
			claim, previous      string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&c.ID, &c.ProjectID, &currency, &claim, &previous, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		var err error
		if c.CurrentClaimExclVAT, err = parseMoney(claim); err != nil {
			return nil, err
		}
		if c.PreviousPaymentExclVAT, err = parseMoney(previous); err != nil {
			return nil, err
		}
		c.Currency = certificate.Currency(currency)
		c.CreatedAt = parseTime(createdAt)
		c.UpdatedAt = parseTime(updatedAt)
		certs = append(certs, c)
	}
	return certs, rows.Err()
}

func deleteCertificate(ctx context.Context, q querier, id certificate.CertificateID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM certificates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete certificate: %w", err)
	}
	return expectOneRow(res, certificate.ErrCertificateNotFound)
}

// =============================================================================
// CALCULATIONS
// =============================================================================

func (s *Store) UpsertCalculation(ctx context.Context, rec certificate.CalculationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertCalculation(ctx, s.db, rec)
}

func (s *Store) GetCalculation(ctx context.Context, id certificate.CertificateID) (certificate.CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCalculation(ctx, s.db, id)
}

func upsertCalculation(ctx context.Context, q querier, rec certificate.CalculationRecord) error {
	query := `
		INSERT INTO calculations
		(certificate_id, vat_value, value_of_workdone_incl_vat, total_value_of_workdone_excl_vat,
		 retention, total_amount_payable, vat_rate, retention_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(certificate_id) DO UPDATE SET
			vat_value = excluded.vat_value,
			value_of_workdone_incl_vat = excluded.value_of_workdone_incl_vat,
			total_value_of_workdone_excl_vat = excluded.total_value_of_workdone_excl_vat,
			retention = excluded.retention,
			total_amount_payable = excluded.total_amount_payable,
			vat_rate = excluded.vat_rate,
			retention_rate = excluded.retention_rate
	`
	_, err := q.ExecContext(ctx, query,
		rec.CertificateID,
		money(rec.VATValue),
		money(rec.ValueOfWorkdoneInclVAT),
		money(rec.TotalValueOfWorkdoneExclVAT),
		money(rec.Retention),
		money(rec.TotalAmountPayable),
		rec.Rates.VATRate.String(),
		rec.Rates.RetentionRate.String(),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return certificate.ErrCertificateNotFound
		}
		return fmt.Errorf("failed to upsert calculation: %w", err)
	}
	return nil
}

func getCalculation(ctx context.Context, q querier, id certificate.CertificateID) (certificate.CalculationRecord, error) {
	var (
		rec                                 certificate.CalculationRecord
		vat, incl, excl, retention, payable string
		vatRate, retentionRate              string
	)
	err := q.QueryRowContext(ctx, `
		SELECT certificate_id, vat_value, value_of_workdone_incl_vat, total_value_of_workdone_excl_vat,
		       retention, total_amount_payable, vat_rate, retention_rate
		FROM calculations WHERE certificate_id = ?`, id,
	).Scan(&rec.CertificateID, &vat, &incl, &excl, &retention, &payable, &vatRate, &retentionRate)
	if err == sql.ErrNoRows {
		return certificate.CalculationRecord{}, certificate.ErrCalculationMissing
	}
	if err != nil {
		return certificate.CalculationRecord{}, fmt.Errorf("failed to load calculation: %w", err)
	}

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&rec.VATValue, vat},
		{&rec.ValueOfWorkdoneInclVAT, incl},
		{&rec.TotalValueOfWorkdoneExclVAT, excl},
		{&rec.Retention, retention},
		{&rec.TotalAmountPayable, payable},
		{&rec.Rates.VATRate, vatRate},
		{&rec.Rates.RetentionRate, retentionRate},
	}
	for _, f := range fields {
		if *f.dst, err = parseMoney(f.src); err != nil {
			return certificate.CalculationRecord{}, err
		}
	}
	return rec, nil
}

// =============================================================================
// AUDIT LOG (certificate.AuditLog interface)
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e certificate.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor, action, model_name, object_id, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, formatTime(e.Timestamp), e.Actor, string(e.Action), e.Model, e.ObjectID, e.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// QueryAudit returns matching entries newest first.
func (s *Store) QueryAudit(ctx context.Context, f certificate.AuditFilter) ([]certificate.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, timestamp, actor, action, model_name, object_id, description FROM audit_log WHERE 1=1"
	var args []any
	if f.Actor != "" {
		query += " AND LOWER(actor) LIKE ?"
		args = append(args, "%"+strings.ToLower(f.Actor)+"%")
	}
	if f.Action != "" {
		query += " AND action = ?"
		args = append(args, string(f.Action))
	}
	if f.Model != "" {
		query += " AND LOWER(model_name) LIKE ?"
		args = append(args, "%"+strings.ToLower(f.Model)+"%")
	}
	query += " ORDER BY timestamp DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []certificate.AuditEntry
	for rows.Next() {
		var (
			e         certificate.AuditEntry
			timestamp string
			action    string
		)
		if err := rows.Scan(&e.ID, &timestamp, &e.Actor, &action, &e.Model, &e.ObjectID, &e.Description); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp = parseTime(timestamp)
		e.Action = certificate.AuditAction(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset deletes all business data and the audit log. Settings are kept.
// Used by demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"calculations", "certificates", "projects", "audit_log"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// Fixed-width so that ORDER BY on the TEXT column is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal %q: %w", s, err)
	}
	return d, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
