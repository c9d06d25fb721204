/*
store.go - Persistence interfaces for projects, certificates and calculations

KEY INTERFACES:
  Store:         Row-level reads and writes
  TxStore:       Store + WithTx for atomic multi-table writes
  SettingsStore: The single settings record
  AuditLog:      Who did what when

OWNERSHIP:
  Only Service writes calculation rows (UpsertCalculation). Every other
  caller reads them.

CASCADES:
  DeleteProject removes its certificates; DeleteCertificate removes its
  calculation. Implementations enforce this (SQLite via ON DELETE CASCADE).

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - certificate/store/memory.go: In-memory for testing
*/
package certificate

import (
	"context"
	"time"
)

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	SettingsStore

	// SaveProject inserts or updates a project by ID.
	// Returns ErrDuplicateContractNo when the contract number is taken.
	SaveProject(ctx context.Context, p Project) error
	// GetProject returns ErrProjectNotFound when absent.
	GetProject(ctx context.Context, id ProjectID) (Project, error)
	// ListProjects returns projects newest first. Empty owner means all.
	ListProjects(ctx context.Context, owner string) ([]Project, error)
	DeleteProject(ctx context.Context, id ProjectID) error

	// SaveCertificate inserts or updates the claim fields of a certificate.
	SaveCertificate(ctx context.Context, c Certificate) error
	// GetCertificate returns ErrCertificateNotFound when absent.
	GetCertificate(ctx context.Context, id CertificateID) (Certificate, error)
	// ListCertificates returns certificates newest first. Empty projectID means all.
	ListCertificates(ctx context.Context, projectID ProjectID) ([]Certificate, error)
	DeleteCertificate(ctx context.Context, id CertificateID) error

	// UpsertCalculation creates the calculation row for the certificate or
	// overwrites every derived field of the existing one.
	UpsertCalculation(ctx context.Context, rec CalculationRecord) error
	// GetCalculation returns ErrCalculationMissing when absent.
	GetCalculation(ctx context.Context, id CertificateID) (CalculationRecord, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// SettingsStore persists the settings record.
type SettingsStore interface {
	// LoadSettings returns found=false when nothing was saved yet.
	LoadSettings(ctx context.Context) (s Settings, found bool, err error)
	SaveSettings(ctx context.Context, s Settings) error
}

// =============================================================================
// AUDIT LOG
// =============================================================================

type AuditAction string

const (
	AuditCreate      AuditAction = "CREATE"
	AuditUpdate      AuditAction = "UPDATE"
	AuditDelete      AuditAction = "DELETE"
	AuditExport      AuditAction = "EXPORT"
	AuditRecalculate AuditAction = "RECALCULATE"
)

type AuditEntry struct {
	ID          string
	Timestamp   time.Time
	Actor       string
	Action      AuditAction
	Model       string // "Project", "Certificate", "SystemSettings", ...
	ObjectID    string
	Description string
}

type AuditFilter struct {
	Actor  string // substring match
	Action AuditAction
	Model  string // substring match
	Limit  int
}

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	QueryAudit(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}
