/*
service.go - Transactional write path for projects and certificates

PURPOSE:
  The only component that writes calculation rows. Every certificate save
  runs as an explicit two-step transaction:

    1. validate the claim (rejected claims never reach storage)
    2. WithTx {
           load the stored rates and compute the claim under them
           write the certificate (claim fields)
           upsert the calculation (all five fields in one write)
       }

  A failure in step 2 rolls the certificate write back, so a certificate
  never exists at rest without its calculation.

RECOMPUTATION:
  - Every save recomputes from scratch; there is no incremental patching.
  - Rates are read from the stored settings inside the transaction, never
    from the Config, so a save cannot commit a calculation under rates that
    a concurrent settings update has already replaced.
  - UpdateSettings recomputes every calculation in the same transaction
    that stores new rates. RecalculateAll does the same on demand.

AUDIT:
  Audit entries are appended after commit. A failing audit write is logged
  and does not undo the business write.

SEE ALSO:
  - engine.go: Compute
  - store.go: TxStore
*/
package certificate

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service struct {
	store  TxStore
	config *Config
	audit  AuditLog // optional

	// settingsMu orders UpdateSettings calls so the Config is published in
	// commit order.
	settingsMu sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewService(store TxStore, config *Config, audit AuditLog) *Service {
	return &Service{
		store:  store,
		config: config,
		audit:  audit,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Config exposes the process-wide configuration for readers.
func (s *Service) Config() *Config {
	return s.config
}

// =============================================================================
// PROJECTS
// =============================================================================

// ProjectInput holds the editable fields of a project.
type ProjectInput struct {
	NameOfContractor string
	ContractNo       string
	VoteNo           string
	TenderSum        decimal.Decimal
}

func (in ProjectInput) validate() error {
	if strings.TrimSpace(in.NameOfContractor) == "" {
		return &FieldError{Kind: ErrInvalidProject, Field: "name_of_contractor", Message: "is required"}
	}
	if strings.TrimSpace(in.ContractNo) == "" {
		return &FieldError{Kind: ErrInvalidProject, Field: "contract_no", Message: "is required"}
	}
	if strings.TrimSpace(in.VoteNo) == "" {
		return &FieldError{Kind: ErrInvalidProject, Field: "vote_no", Message: "is required"}
	}
	if in.TenderSum.LessThan(decimal.New(1, -moneyPlaces)) {
		return &FieldError{Kind: ErrInvalidProject, Field: "tender_sum", Message: "must be at least 0.01"}
	}
	if !hasMoneyScale(in.TenderSum) || in.TenderSum.GreaterThanOrEqual(MaxAmount) {
		return &FieldError{Kind: ErrInvalidProject, Field: "tender_sum", Message: "must fit 12 digits with 2 decimal places"}
	}
	return nil
}

func (s *Service) CreateProject(ctx context.Context, actor string, in ProjectInput) (Project, error) {
	if err := in.validate(); err != nil {
		return Project{}, err
	}
	now := s.now()
	p := Project{
		ID:               ProjectID(s.newID()),
		NameOfContractor: strings.TrimSpace(in.NameOfContractor),
		ContractNo:       strings.TrimSpace(in.ContractNo),
		VoteNo:           strings.TrimSpace(in.VoteNo),
		TenderSum:        in.TenderSum,
		Owner:            actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.SaveProject(ctx, p); err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	s.record(ctx, actor, AuditCreate, "Project", string(p.ID), "Project created: "+p.ContractNo)
	return p, nil
}

func (s *Service) UpdateProject(ctx context.Context, actor string, id ProjectID, in ProjectInput) (Project, error) {
	if err := in.validate(); err != nil {
		return Project{}, err
	}
	var updated Project
	err := s.store.WithTx(ctx, func(tx Store) error {
		p, err := tx.GetProject(ctx, id)
		if err != nil {
			return err
		}
		p.NameOfContractor = strings.TrimSpace(in.NameOfContractor)
		p.ContractNo = strings.TrimSpace(in.ContractNo)
		p.VoteNo = strings.TrimSpace(in.VoteNo)
		p.TenderSum = in.TenderSum
		p.UpdatedAt = s.now()
		updated = p
		return tx.SaveProject(ctx, p)
	})
	if err != nil {
		return Project{}, fmt.Errorf("update project %s: %w", id, err)
	}
	s.record(ctx, actor, AuditUpdate, "Project", string(id), "Project updated: "+updated.ContractNo)
	return updated, nil
}

func (s *Service) GetProject(ctx context.Context, id ProjectID) (Project, error) {
	return s.store.GetProject(ctx, id)
}

func (s *Service) ListProjects(ctx context.Context, owner string) ([]Project, error) {
	return s.store.ListProjects(ctx, owner)
}

// DeleteProject removes the project with its certificates and calculations.
func (s *Service) DeleteProject(ctx context.Context, actor string, id ProjectID) error {
	var contractNo string
	err := s.store.WithTx(ctx, func(tx Store) error {
		p, err := tx.GetProject(ctx, id)
		if err != nil {
			return err
		}
		contractNo = p.ContractNo
		return tx.DeleteProject(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	s.record(ctx, actor, AuditDelete, "Project", string(id), "Project deleted: "+contractNo)
	return nil
}

// =============================================================================
// CERTIFICATES
// =============================================================================

// SaveCertificate creates the certificate when c.ID is empty, otherwise
// re-saves it. Either way the calculation is recomputed and overwritten.
func (s *Service) SaveCertificate(ctx context.Context, actor string, c Certificate) (Record, error) {
	if c.Currency == "" {
		c.Currency = s.config.Current().DefaultCurrency
	}

	// Step 1: validate before anything is written.
	if err := c.Claim.Validate(); err != nil {
		return Record{}, err
	}

	creating := c.ID == ""
	now := s.now()
	if creating {
		c.ID = CertificateID(s.newID())
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	// Step 2: compute under the stored rates, then claim write +
	// calculation upsert, atomically.
	var rec CalculationRecord
	err := s.store.WithTx(ctx, func(tx Store) error {
		rates, err := s.storedRates(ctx, tx)
		if err != nil {
			return err
		}
		calc, err := ComputeClaim(c.Claim, rates)
		if err != nil {
			return err
		}
		rec = CalculationRecord{CertificateID: c.ID, Calculation: calc, Rates: rates}

		if _, err := tx.GetProject(ctx, c.ProjectID); err != nil {
			return err
		}
		if !creating {
			existing, err := tx.GetCertificate(ctx, c.ID)
			if err != nil {
				return err
			}
			if existing.ProjectID != c.ProjectID {
				return ErrCertificateNotFound
			}
			c.CreatedAt = existing.CreatedAt
		}
		if err := tx.SaveCertificate(ctx, c); err != nil {
			return err
		}
		return tx.UpsertCalculation(ctx, rec)
	})
	if err != nil {
		return Record{}, fmt.Errorf("save certificate: %w", err)
	}

	if creating {
		s.record(ctx, actor, AuditCreate, "Certificate", string(c.ID), "Certificate created for project "+string(c.ProjectID))
	} else {
		s.record(ctx, actor, AuditUpdate, "Certificate", string(c.ID), "Certificate updated for project "+string(c.ProjectID))
	}
	return Record{Certificate: c, Calculation: rec}, nil
}

func (s *Service) GetCertificate(ctx context.Context, id CertificateID) (Record, error) {
	c, err := s.store.GetCertificate(ctx, id)
	if err != nil {
		return Record{}, err
	}
	calc, err := s.store.GetCalculation(ctx, id)
	if err != nil {
		return Record{}, fmt.Errorf("certificate %s: %w", id, err)
	}
	return Record{Certificate: c, Calculation: calc}, nil
}

// ListCertificates returns records for one project, or all when projectID is empty.
func (s *Service) ListCertificates(ctx context.Context, projectID ProjectID) ([]Record, error) {
	certs, err := s.store.ListCertificates(ctx, projectID)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(certs))
	for _, c := range certs {
		calc, err := s.store.GetCalculation(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("certificate %s: %w", c.ID, err)
		}
		records = append(records, Record{Certificate: c, Calculation: calc})
	}
	return records, nil
}

func (s *Service) DeleteCertificate(ctx context.Context, actor string, id CertificateID) error {
	if err := s.store.DeleteCertificate(ctx, id); err != nil {
		return fmt.Errorf("delete certificate %s: %w", id, err)
	}
	s.record(ctx, actor, AuditDelete, "Certificate", string(id), "Certificate deleted")
	return nil
}

// Preview runs the engine under the current rates without persisting.
func (s *Service) Preview(c Claim) (CalculationRecord, error) {
	if c.Currency == "" {
		c.Currency = s.config.Current().DefaultCurrency
	}
	rates := s.config.Rates()
	calc, err := ComputeClaim(c, rates)
	if err != nil {
		return CalculationRecord{}, err
	}
	return CalculationRecord{Calculation: calc, Rates: rates}, nil
}

// =============================================================================
// SETTINGS / RECOMPUTATION
// =============================================================================

// UpdateSettings stores new settings. When a rate changes, every stored
// calculation is recomputed in the same transaction. The new settings are
// published to the Config only after commit.
func (s *Service) UpdateSettings(ctx context.Context, actor string, next Settings) (Settings, error) {
	if err := next.Validate(); err != nil {
		return Settings{}, err
	}
	next.UpdatedBy = actor
	next.UpdatedAt = s.now()

	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	ratesChanged := false
	recomputed := 0
	err := s.store.WithTx(ctx, func(tx Store) error {
		current, err := s.storedRates(ctx, tx)
		if err != nil {
			return err
		}
		ratesChanged = !current.Equal(next.Rates())
		if err := tx.SaveSettings(ctx, next); err != nil {
			return err
		}
		if !ratesChanged {
			return nil
		}
		recomputed, err = recomputeAll(ctx, tx, next.Rates())
		return err
	})
	if err != nil {
		return Settings{}, fmt.Errorf("update settings: %w", err)
	}
	s.config.set(next)

	desc := "System settings updated"
	if ratesChanged {
		desc = fmt.Sprintf("System settings updated; %d calculations recomputed", recomputed)
	}
	s.record(ctx, actor, AuditUpdate, "SystemSettings", "", desc)
	return next, nil
}

// RecalculateAll recomputes every calculation with the stored rates.
func (s *Service) RecalculateAll(ctx context.Context, actor string) (int, error) {
	var n int
	err := s.store.WithTx(ctx, func(tx Store) error {
		rates, err := s.storedRates(ctx, tx)
		if err != nil {
			return err
		}
		n, err = recomputeAll(ctx, tx, rates)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("recalculate: %w", err)
	}
	s.record(ctx, actor, AuditRecalculate, "Calculations", "", fmt.Sprintf("%d calculations recomputed", n))
	return n, nil
}

// storedRates reads the rates committed in tx. Before the first settings
// write it falls back to the Config, which holds the defaults.
func (s *Service) storedRates(ctx context.Context, tx Store) (Rates, error) {
	st, found, err := tx.LoadSettings(ctx)
	if err != nil {
		return Rates{}, fmt.Errorf("load settings: %w", err)
	}
	if !found {
		return s.config.Rates(), nil
	}
	return st.Rates(), nil
}

func recomputeAll(ctx context.Context, tx Store, rates Rates) (int, error) {
	certs, err := tx.ListCertificates(ctx, "")
	if err != nil {
		return 0, err
	}
	for _, c := range certs {
		calc, err := ComputeClaim(c.Claim, rates)
		if err != nil {
			return 0, fmt.Errorf("certificate %s: %w", c.ID, err)
		}
		rec := CalculationRecord{CertificateID: c.ID, Calculation: calc, Rates: rates}
		if err := tx.UpsertCalculation(ctx, rec); err != nil {
			return 0, fmt.Errorf("certificate %s: %w", c.ID, err)
		}
	}
	return len(certs), nil
}

// =============================================================================
// STATISTICS
// =============================================================================

type CurrencyTotals struct {
	Currency           Currency
	Certificates       int
	CurrentClaim       decimal.Decimal
	TotalAmountPayable decimal.Decimal
}

type Statistics struct {
	Projects     int
	Certificates int
	ByCurrency   []CurrencyTotals // ordered as Currencies
}

func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	projects, err := s.store.ListProjects(ctx, "")
	if err != nil {
		return Statistics{}, err
	}
	records, err := s.ListCertificates(ctx, "")
	if err != nil {
		return Statistics{}, err
	}

	totals := make(map[Currency]*CurrencyTotals)
	for _, r := range records {
		t, ok := totals[r.Certificate.Currency]
		if !ok {
			t = &CurrencyTotals{Currency: r.Certificate.Currency}
			totals[r.Certificate.Currency] = t
		}
		t.Certificates++
		t.CurrentClaim = t.CurrentClaim.Add(r.Certificate.CurrentClaimExclVAT)
		t.TotalAmountPayable = t.TotalAmountPayable.Add(r.Calculation.TotalAmountPayable)
	}

	stats := Statistics{Projects: len(projects), Certificates: len(records)}
	for _, t := range totals {
		stats.ByCurrency = append(stats.ByCurrency, *t)
	}
	sort.Slice(stats.ByCurrency, func(i, j int) bool {
		return currencyOrder(stats.ByCurrency[i].Currency) < currencyOrder(stats.ByCurrency[j].Currency)
	})
	return stats, nil
}

func currencyOrder(c Currency) int {
	for i, known := range Currencies {
		if c == known {
			return i
		}
	}
	return len(Currencies)
}

// =============================================================================
// AUDIT
// =============================================================================

// Record appends an audit entry for actions taken outside the service
// (exports, for instance).
func (s *Service) Record(ctx context.Context, actor string, action AuditAction, model, objectID, desc string) {
	s.record(ctx, actor, action, model, objectID, desc)
}

func (s *Service) record(ctx context.Context, actor string, action AuditAction, model, objectID, desc string) {
	if s.audit == nil || !s.config.Current().EnableAuditTrail {
		return
	}
	entry := AuditEntry{
		ID:          s.newID(),
		Timestamp:   s.now(),
		Actor:       actor,
		Action:      action,
		Model:       model,
		ObjectID:    objectID,
		Description: desc,
	}
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		log.Printf("audit: failed to record %s %s %s: %v", action, model, objectID, err)
	}
}
