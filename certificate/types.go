/*
Package certificate provides the payment certificate domain: claims, rates,
the calculation engine, and the transactional service that keeps every
certificate's derived totals in lockstep with its claim.

KEY CONCEPTS IN THIS FILE (types.go):
  - Project: a contract with a contractor; owns certificates
  - Claim: what the contractor bills for work done, excluding VAT
  - Rates: the process-wide VAT and retention percentages
  - Calculation: the five derived totals for one claim
  - Record: a certificate together with its stored calculation

DESIGN PRINCIPLES:
  1. Precision: all money is decimal.Decimal, rounded to 2 places when stored
  2. Derived data is never edited: a Calculation only changes by recomputation
  3. previous_payment_excl_vat is carried for display and export only

SEE ALSO:
  - engine.go: Compute and the rounding rules
  - service.go: The save path (claim write + calculation upsert in one tx)
  - settings.go: Process-wide configuration
*/
package certificate

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProjectID string
type CertificateID string

// =============================================================================
// CURRENCY
// =============================================================================

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyZIG Currency = "ZIG"
)

// Currencies lists the supported currencies in display order.
var Currencies = []Currency{CurrencyUSD, CurrencyZIG, CurrencyEUR, CurrencyGBP}

func (c Currency) Valid() bool {
	for _, known := range Currencies {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCurrency accepts a currency code in any case. Empty input yields USD.
func ParseCurrency(s string) (Currency, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return CurrencyUSD, true
	}
	c := Currency(s)
	return c, c.Valid()
}

// =============================================================================
// PROJECT
// =============================================================================

type Project struct {
	ID               ProjectID
	NameOfContractor string
	ContractNo       string // unique across all projects
	VoteNo           string
	TenderSum        decimal.Decimal
	Owner            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p Project) String() string {
	return p.NameOfContractor + " - " + p.ContractNo
}

// =============================================================================
// CLAIM / CERTIFICATE
// =============================================================================

// Claim is the raw input of a certificate.
type Claim struct {
	CurrentClaimExclVAT    decimal.Decimal
	PreviousPaymentExclVAT decimal.Decimal
	Currency               Currency
}

type Certificate struct {
	ID        CertificateID
	ProjectID ProjectID
	Claim
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// RATES / CALCULATION
// =============================================================================

// Rates are percentages, e.g. 15.00 means 15%.
type Rates struct {
	VATRate       decimal.Decimal
	RetentionRate decimal.Decimal
}

var (
	DefaultVATRate       = decimal.RequireFromString("15.00")
	DefaultRetentionRate = decimal.RequireFromString("10.00")
)

func DefaultRates() Rates {
	return Rates{VATRate: DefaultVATRate, RetentionRate: DefaultRetentionRate}
}

func (r Rates) Equal(o Rates) bool {
	return r.VATRate.Equal(o.VATRate) && r.RetentionRate.Equal(o.RetentionRate)
}

// Calculation is the derived result set of one claim. All fields carry
// exactly two decimal places.
type Calculation struct {
	VATValue                    decimal.Decimal
	ValueOfWorkdoneInclVAT      decimal.Decimal
	TotalValueOfWorkdoneExclVAT decimal.Decimal
	Retention                   decimal.Decimal
	TotalAmountPayable          decimal.Decimal
}

func (c Calculation) Equal(o Calculation) bool {
	return c.VATValue.Equal(o.VATValue) &&
		c.ValueOfWorkdoneInclVAT.Equal(o.ValueOfWorkdoneInclVAT) &&
		c.TotalValueOfWorkdoneExclVAT.Equal(o.TotalValueOfWorkdoneExclVAT) &&
		c.Retention.Equal(o.Retention) &&
		c.TotalAmountPayable.Equal(o.TotalAmountPayable)
}

// CalculationRecord is a stored calculation, keyed by its certificate, along
// with the rates it was computed under.
type CalculationRecord struct {
	CertificateID CertificateID
	Calculation
	Rates Rates
}

// Record is what readers of a certificate get: claim plus derived totals.
type Record struct {
	Certificate Certificate
	Calculation CalculationRecord
}
