package certificate_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/paycert/certificate"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2), field)
	assert.True(t, got.Equal(got.Round(2)), "%s must carry at most 2 places, got %s", field, got.String())
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestCompute_StandardClaim(t *testing.T) {
	// GIVEN: a 10000.00 claim at 15% VAT and 10% retention
	// WHEN: computing
	// THEN: VAT 1500.00, incl. 11500.00, retention 1000.00, payable 10500.00

	calc, err := certificate.Compute(dec("10000.00"), dec("15"), dec("10"))
	require.NoError(t, err)

	assertMoney(t, "1500.00", calc.VATValue, "vat_value")
	assertMoney(t, "11500.00", calc.ValueOfWorkdoneInclVAT, "value_of_workdone_incl_vat")
	assertMoney(t, "10000.00", calc.TotalValueOfWorkdoneExclVAT, "total_value_of_workdone_excl_vat")
	assertMoney(t, "1000.00", calc.Retention, "retention")
	assertMoney(t, "10500.00", calc.TotalAmountPayable, "total_amount_payable")
}

func TestComputeClaim_PreviousPaymentIsDisplayOnly(t *testing.T) {
	// GIVEN: a 50000.00 claim with a 50000.00 previous payment
	// WHEN: computing at default rates
	// THEN: the previous payment does not change any derived field

	withPrevious, err := certificate.ComputeClaim(certificate.Claim{
		CurrentClaimExclVAT:    dec("50000.00"),
		PreviousPaymentExclVAT: dec("50000.00"),
		Currency:               certificate.CurrencyZIG,
	}, certificate.DefaultRates())
	require.NoError(t, err)

	without, err := certificate.ComputeClaim(certificate.Claim{
		CurrentClaimExclVAT: dec("50000.00"),
		Currency:            certificate.CurrencyZIG,
	}, certificate.DefaultRates())
	require.NoError(t, err)

	assertMoney(t, "7500.00", withPrevious.VATValue, "vat_value")
	assertMoney(t, "5000.00", withPrevious.Retention, "retention")
	assertMoney(t, "52500.00", withPrevious.TotalAmountPayable, "total_amount_payable")
	assert.True(t, withPrevious.Equal(without))
}

func TestCompute_SmallestClaimRoundsPerField(t *testing.T) {
	// GIVEN: the smallest valid claim, 0.01
	// WHEN: computing at 15% / 10%
	// THEN: VAT (0.0015) and retention (0.001) round to 0.00, and the totals
	//       are built from those rounded values

	calc, err := certificate.Compute(dec("0.01"), dec("15"), dec("10"))
	require.NoError(t, err)

	assertMoney(t, "0.00", calc.VATValue, "vat_value")
	assertMoney(t, "0.00", calc.Retention, "retention")
	assertMoney(t, "0.01", calc.ValueOfWorkdoneInclVAT, "value_of_workdone_incl_vat")
	assertMoney(t, "0.01", calc.TotalValueOfWorkdoneExclVAT, "total_value_of_workdone_excl_vat")
	assertMoney(t, "0.01", calc.TotalAmountPayable, "total_amount_payable")
}

func TestCompute_HalfUpRounding(t *testing.T) {
	// 0.10 * 15% = 0.015 -> 0.02 (half-up, not half-even)
	calc, err := certificate.Compute(dec("0.10"), dec("15"), dec("25"))
	require.NoError(t, err)
	assertMoney(t, "0.02", calc.VATValue, "vat_value")
	// 0.10 * 25% = 0.025 -> 0.03
	assertMoney(t, "0.03", calc.Retention, "retention")
	assertMoney(t, "0.09", calc.TotalAmountPayable, "total_amount_payable")
}

func TestCompute_FractionalRates(t *testing.T) {
	calc, err := certificate.Compute(dec("1234.56"), dec("14.50"), dec("5.25"))
	require.NoError(t, err)

	// 1234.56 * 0.145 = 179.0112 -> 179.01
	assertMoney(t, "179.01", calc.VATValue, "vat_value")
	// 1234.56 * 0.0525 = 64.8144 -> 64.81
	assertMoney(t, "64.81", calc.Retention, "retention")
	assertMoney(t, "1413.57", calc.ValueOfWorkdoneInclVAT, "value_of_workdone_incl_vat")
	assertMoney(t, "1348.76", calc.TotalAmountPayable, "total_amount_payable")
}

func TestCompute_RateBoundaries(t *testing.T) {
	calc, err := certificate.Compute(dec("200.00"), dec("0"), dec("100"))
	require.NoError(t, err)
	assertMoney(t, "0.00", calc.VATValue, "vat_value")
	assertMoney(t, "200.00", calc.Retention, "retention")
	assertMoney(t, "0.00", calc.TotalAmountPayable, "total_amount_payable")
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestCompute_FormulasHoldAcrossInputs(t *testing.T) {
	amounts := []string{"0.01", "0.05", "0.99", "1.00", "3.33", "10.10", "99.99", "1234.56", "50000.00", "9999999999.99"}
	rates := []string{"0", "0.01", "2.5", "10", "12.34", "15", "33.33", "50", "99.99", "100"}

	for _, a := range amounts {
		for _, v := range rates {
			for _, r := range rates {
				amount, vat, ret := dec(a), dec(v), dec(r)
				calc, err := certificate.Compute(amount, vat, ret)
				require.NoError(t, err, "a=%s v=%s r=%s", a, v, r)

				wantVAT := amount.Mul(vat).Shift(-2).Round(2)
				wantRet := amount.Mul(ret).Shift(-2).Round(2)
				wantTotal := amount.Add(wantVAT).Sub(wantRet).Round(2)

				assert.True(t, calc.VATValue.Equal(wantVAT), "vat a=%s v=%s", a, v)
				assert.True(t, calc.Retention.Equal(wantRet), "retention a=%s r=%s", a, r)
				assert.True(t, calc.TotalAmountPayable.Equal(wantTotal), "total a=%s v=%s r=%s", a, v, r)
				assert.True(t, calc.TotalValueOfWorkdoneExclVAT.Equal(amount))
				assert.True(t, calc.ValueOfWorkdoneInclVAT.Equal(amount.Add(wantVAT)))
			}
		}
	}
}

func TestCompute_Idempotent(t *testing.T) {
	first, err := certificate.Compute(dec("777.77"), dec("15"), dec("10"))
	require.NoError(t, err)
	second, err := certificate.Compute(dec("777.77"), dec("15"), dec("10"))
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.VATValue.String(), second.VATValue.String())
	assert.Equal(t, first.TotalAmountPayable.String(), second.TotalAmountPayable.String())
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCompute_RejectsNonPositiveClaim(t *testing.T) {
	for _, a := range []string{"0", "0.00", "-0.01", "-100"} {
		_, err := certificate.Compute(dec(a), dec("15"), dec("10"))

		var claimErr *certificate.InvalidClaimError
		require.ErrorAs(t, err, &claimErr, "claim %s", a)
		assert.Equal(t, "current_claim_excl_vat", claimErr.Field)
		assert.True(t, errors.Is(err, certificate.ErrInvalidClaim))
		assert.True(t, certificate.IsClientError(err))
	}
}

func TestCompute_RejectsSubCentClaim(t *testing.T) {
	_, err := certificate.Compute(dec("10.005"), dec("15"), dec("10"))
	assert.ErrorIs(t, err, certificate.ErrInvalidClaim)
}

func TestCompute_RejectsOversizedClaim(t *testing.T) {
	_, err := certificate.Compute(dec("10000000000.00"), dec("15"), dec("10"))
	assert.ErrorIs(t, err, certificate.ErrInvalidClaim)
}

func TestCompute_RefusesRatesOutsideRange(t *testing.T) {
	cases := []struct {
		vat, retention string
		wantRate       string
	}{
		{"-0.01", "10", "vat_rate"},
		{"100.01", "10", "vat_rate"},
		{"15", "-1", "retention_rate"},
		{"15", "250", "retention_rate"},
	}
	for _, tc := range cases {
		_, err := certificate.Compute(dec("100.00"), dec(tc.vat), dec(tc.retention))

		var rateErr *certificate.RateOutOfRangeError
		require.ErrorAs(t, err, &rateErr, "vat=%s retention=%s", tc.vat, tc.retention)
		assert.Equal(t, tc.wantRate, rateErr.Rate)
		assert.ErrorIs(t, err, certificate.ErrRateOutOfRange)
	}
}

func TestCompute_RefusesRatesBeyondTwoPlaces(t *testing.T) {
	// GIVEN: a VAT rate of 12.345%
	// WHEN: computing a claim
	// THEN: the rate is refused instead of being shown as 12.345 but stored as 12.35

	_, err := certificate.Compute(dec("100.00"), dec("12.345"), dec("10"))

	var rateErr *certificate.RateOutOfRangeError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "vat_rate", rateErr.Rate)
	assert.Contains(t, rateErr.Error(), "at most 2 decimal places")
	assert.True(t, certificate.IsClientError(err))
}

func TestCompute_PercentageIsExactBeforeRounding(t *testing.T) {
	// 9999999999.99 * 33.33% = 3332999999.996667 exactly -> 3333000000.00
	calc, err := certificate.Compute(dec("9999999999.99"), dec("33.33"), dec("0.01"))
	require.NoError(t, err)
	assertMoney(t, "3333000000.00", calc.VATValue, "vat_value")
	// 9999999999.99 * 0.01% = 999999.999999 -> 1000000.00
	assertMoney(t, "1000000.00", calc.Retention, "retention")
}

func TestClaimValidate(t *testing.T) {
	valid := certificate.Claim{CurrentClaimExclVAT: dec("10.00"), Currency: certificate.CurrencyGBP}
	assert.NoError(t, valid.Validate())

	negPrev := valid
	negPrev.PreviousPaymentExclVAT = dec("-1")
	var claimErr *certificate.InvalidClaimError
	require.ErrorAs(t, negPrev.Validate(), &claimErr)
	assert.Equal(t, "previous_payment_excl_vat", claimErr.Field)

	badCurrency := valid
	badCurrency.Currency = "JPY"
	require.ErrorAs(t, badCurrency.Validate(), &claimErr)
	assert.Equal(t, "currency", claimErr.Field)
}

func TestParseCurrency(t *testing.T) {
	c, ok := certificate.ParseCurrency("zig")
	assert.True(t, ok)
	assert.Equal(t, certificate.CurrencyZIG, c)

	c, ok = certificate.ParseCurrency("")
	assert.True(t, ok)
	assert.Equal(t, certificate.CurrencyUSD, c)

	_, ok = certificate.ParseCurrency("BTC")
	assert.False(t, ok)
}
