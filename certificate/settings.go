/*
settings.go - Process-wide configuration

PURPOSE:
  One Settings value per process holds the VAT and retention rates plus the
  company and document texts. It is loaded once at startup (load-or-default)
  and replaced only through Service.UpdateSettings, which persists the new
  value and recomputes calculations before publishing it here.

USAGE:
  cfg, err := certificate.LoadConfig(ctx, store)
  rates := cfg.Rates()
*/
package certificate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Settings struct {
	CompanyName    string `json:"company_name"`
	CompanyAddress string `json:"company_address"`
	CompanyPhone   string `json:"company_phone"`
	CompanyEmail   string `json:"company_email"`

	DefaultCurrency Currency        `json:"default_currency"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	RetentionRate   decimal.Decimal `json:"retention_rate"`

	PDFHeaderText       string `json:"pdf_header_text"`
	PDFFooterText       string `json:"pdf_footer_text"`
	RequireDualApproval bool   `json:"require_dual_approval"`
	ApprovalTitle1      string `json:"approval_title_1"`
	ApprovalTitle2      string `json:"approval_title_2"`

	EnableAuditTrail bool `json:"enable_audit_trail"`
	EnableDataExport bool `json:"enable_data_export"`
	ItemsPerPage     int  `json:"items_per_page"`

	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

const DefaultFooterText = "This certificate is issued without prejudice to the rights and obligations of the parties under the Contract."

func DefaultSettings() Settings {
	return Settings{
		CompanyName:         "Your Company Name",
		CompanyAddress:      "Company Address",
		DefaultCurrency:     CurrencyUSD,
		VATRate:             DefaultVATRate,
		RetentionRate:       DefaultRetentionRate,
		PDFHeaderText:       "PAYMENT CERTIFICATE",
		PDFFooterText:       DefaultFooterText,
		RequireDualApproval: true,
		ApprovalTitle1:      "Project Manager",
		ApprovalTitle2:      "Finance Officer",
		EnableAuditTrail:    true,
		EnableDataExport:    true,
		ItemsPerPage:        12,
	}
}

func (s Settings) Rates() Rates {
	return Rates{VATRate: s.VATRate, RetentionRate: s.RetentionRate}
}

// Validate refuses out-of-range rates and malformed preferences.
func (s Settings) Validate() error {
	if err := s.Rates().Validate(); err != nil {
		return err
	}
	if !s.DefaultCurrency.Valid() {
		return &FieldError{Kind: ErrInvalidSettings, Field: "default_currency", Message: "is not a supported currency"}
	}
	if s.ItemsPerPage < 5 || s.ItemsPerPage > 50 {
		return &FieldError{Kind: ErrInvalidSettings, Field: "items_per_page", Message: "must be between 5 and 50"}
	}
	if strings.TrimSpace(s.PDFHeaderText) == "" {
		return &FieldError{Kind: ErrInvalidSettings, Field: "pdf_header_text", Message: "is required"}
	}
	if s.CompanyEmail != "" && !strings.Contains(s.CompanyEmail, "@") {
		return &FieldError{Kind: ErrInvalidSettings, Field: "company_email", Message: "is not an email address"}
	}
	return nil
}

// =============================================================================
// CONFIG - the process-wide holder
// =============================================================================

type Config struct {
	mu      sync.RWMutex
	current Settings
}

// NewConfig returns a Config holding s without touching storage.
func NewConfig(s Settings) *Config {
	return &Config{current: s}
}

// LoadConfig reads the stored settings, or persists and uses the defaults
// when nothing has been stored yet.
func LoadConfig(ctx context.Context, store SettingsStore) (*Config, error) {
	s, found, err := store.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !found {
		s = DefaultSettings()
		s.UpdatedAt = time.Now().UTC()
		if err := store.SaveSettings(ctx, s); err != nil {
			return nil, fmt.Errorf("save default settings: %w", err)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("stored settings: %w", err)
	}
	return NewConfig(s), nil
}

func (c *Config) Current() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Config) Rates() Rates {
	return c.Current().Rates()
}

func (c *Config) set(s Settings) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
}
