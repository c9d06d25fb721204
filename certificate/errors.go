/*
errors.go - Centralized error types for the certificate domain

ERROR CATEGORIES:
  1. Validation errors - bad claims, rates, projects or settings (client errors)
  2. Lookup errors - missing projects, certificates, calculations
  3. Conflict errors - business-key uniqueness (contract number)

USAGE:
  Callers branch with errors.Is / errors.As, or the helpers at the bottom:

    if certificate.IsClientError(err) {
        // 400
    }

SEE ALSO:
  - engine.go: Returns InvalidClaimError and RateOutOfRangeError
  - api/handlers.go: Maps errors to HTTP status codes
*/
package certificate

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidClaim is returned when a claim fails validation. Nothing is
	// persisted for a claim that produces this error.
	ErrInvalidClaim = errors.New("invalid claim")

	// ErrRateOutOfRange is returned when a VAT or retention rate is outside
	// [0,100]. Rates are refused, never clamped.
	ErrRateOutOfRange = errors.New("rate out of range")

	ErrInvalidProject  = errors.New("invalid project")
	ErrInvalidSettings = errors.New("invalid settings")

	ErrProjectNotFound     = errors.New("project not found")
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrCalculationMissing means a certificate exists without its derived
	// totals. That state is never valid at rest.
	ErrCalculationMissing = errors.New("calculation missing for certificate")

	// ErrDuplicateContractNo is returned when a contract number is already used
	// by another project.
	ErrDuplicateContractNo = errors.New("a project with this contract number already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidClaimError names the offending claim field.
type InvalidClaimError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidClaimError) Error() string {
	return fmt.Sprintf("invalid claim: %s=%q %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidClaimError) Unwrap() error {
	return ErrInvalidClaim
}

// RateOutOfRangeError names the offending rate.
type RateOutOfRangeError struct {
	Rate   string // "vat_rate" or "retention_rate"
	Value  decimal.Decimal
	Reason string // empty means outside [0,100]
}

func (e *RateOutOfRangeError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is outside [0,100]"
	}
	return fmt.Sprintf("%s %s %s", e.Rate, e.Value.String(), reason)
}

func (e *RateOutOfRangeError) Unwrap() error {
	return ErrRateOutOfRange
}

// FieldError is a generic validation failure for projects and settings.
type FieldError struct {
	Kind    error // ErrInvalidProject or ErrInvalidSettings
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s %s", e.Kind, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidClaim) ||
		errors.Is(err, ErrRateOutOfRange) ||
		errors.Is(err, ErrInvalidProject) ||
		errors.Is(err, ErrInvalidSettings)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrCertificateNotFound)
}

// IsConflict returns true if the error is a business-key collision.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateContractNo)
}
