/*
engine.go - Certificate calculation engine

PURPOSE:
  Derives VAT, retention and payable totals from a claim amount and the
  configured rates. This is a pure function: no state, no I/O. The service
  calls it inside the write path of every certificate save.

FORMULAS (a = claim excl. VAT, v = VAT %, r = retention %):
  vat_value                        = round(a * v / 100, 2)
  total_value_of_workdone_excl_vat = a
  value_of_workdone_incl_vat       = round(a + vat_value, 2)
  retention                        = round(a * r / 100, 2)
  total_amount_payable             = round(a + vat_value - retention, 2)

ROUNDING:
  Each stored field is rounded half-up (away from zero) to 2 places at the
  point it is produced, and later fields build on the rounded values. This
  matches a DECIMAL(12,2) column, so what is computed is exactly what is
  stored and rendered.

VALIDATION:
  - claim must be > 0 with at most 2 fractional digits  -> InvalidClaimError
  - rates must be in [0,100] with at most 2 fractional digits
                                                        -> RateOutOfRangeError

SEE ALSO:
  - service.go: Recompute-on-save, all-field upsert
*/
package certificate

import (
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var (
	hundred = decimal.NewFromInt(100)

	// MaxAmount is the first value that does not fit DECIMAL(12,2).
	MaxAmount = decimal.New(1, 10)
)

// Compute derives the calculation for a claim amount under the given rates.
func Compute(claimAmount, vatRate, retentionRate decimal.Decimal) (Calculation, error) {
	if err := validateClaimAmount(claimAmount); err != nil {
		return Calculation{}, err
	}
	if err := (Rates{VATRate: vatRate, RetentionRate: retentionRate}).Validate(); err != nil {
		return Calculation{}, err
	}

	a := claimAmount.Round(moneyPlaces)
	vat := percentOf(a, vatRate)
	retention := percentOf(a, retentionRate)

	return Calculation{
		VATValue:                    vat,
		ValueOfWorkdoneInclVAT:      a.Add(vat).Round(moneyPlaces),
		TotalValueOfWorkdoneExclVAT: a,
		Retention:                   retention,
		TotalAmountPayable:          a.Add(vat).Sub(retention).Round(moneyPlaces),
	}, nil
}

// ComputeClaim validates the whole claim, then computes it.
// PreviousPaymentExclVAT is validated but takes no part in the formulas.
func ComputeClaim(c Claim, r Rates) (Calculation, error) {
	if err := c.Validate(); err != nil {
		return Calculation{}, err
	}
	return Compute(c.CurrentClaimExclVAT, r.VATRate, r.RetentionRate)
}

// Validate checks every field of the claim.
func (c Claim) Validate() error {
	if err := validateClaimAmount(c.CurrentClaimExclVAT); err != nil {
		return err
	}
	p := c.PreviousPaymentExclVAT
	if p.IsNegative() {
		return &InvalidClaimError{Field: "previous_payment_excl_vat", Value: p.String(), Reason: "must not be negative"}
	}
	if !hasMoneyScale(p) {
		return &InvalidClaimError{Field: "previous_payment_excl_vat", Value: p.String(), Reason: "must have at most 2 decimal places"}
	}
	if p.GreaterThanOrEqual(MaxAmount) {
		return &InvalidClaimError{Field: "previous_payment_excl_vat", Value: p.String(), Reason: "is too large"}
	}
	if !c.Currency.Valid() {
		return &InvalidClaimError{Field: "currency", Value: string(c.Currency), Reason: "is not a supported currency"}
	}
	return nil
}

// Validate refuses rates outside [0,100] or with more than 2 decimal places.
func (r Rates) Validate() error {
	if err := validateRate("vat_rate", r.VATRate); err != nil {
		return err
	}
	return validateRate("retention_rate", r.RetentionRate)
}

func validateRate(name string, v decimal.Decimal) error {
	if !inPercentRange(v) {
		return &RateOutOfRangeError{Rate: name, Value: v}
	}
	if !hasMoneyScale(v) {
		return &RateOutOfRangeError{Rate: name, Value: v, Reason: "must have at most 2 decimal places"}
	}
	return nil
}

// percentOf is a*rate/100 rounded to the cent. Shift keeps the division exact.
func percentOf(a, rate decimal.Decimal) decimal.Decimal {
	return a.Mul(rate).Shift(-2).Round(moneyPlaces)
}

func validateClaimAmount(a decimal.Decimal) error {
	if !a.IsPositive() {
		return &InvalidClaimError{Field: "current_claim_excl_vat", Value: a.String(), Reason: "must be greater than zero"}
	}
	if !hasMoneyScale(a) {
		return &InvalidClaimError{Field: "current_claim_excl_vat", Value: a.String(), Reason: "must have at most 2 decimal places"}
	}
	if a.GreaterThanOrEqual(MaxAmount) {
		return &InvalidClaimError{Field: "current_claim_excl_vat", Value: a.String(), Reason: "is too large"}
	}
	return nil
}

func hasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyPlaces))
}

func inPercentRange(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(hundred)
}
