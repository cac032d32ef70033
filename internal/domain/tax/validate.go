package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// baseAmountTolerance is how far a published base amount may drift from the
// cumulative tax of the lower bands. Statutory tables truncate these figures.
var baseAmountTolerance = decimal.NewFromInt(1)

// Validate checks the structural rules every table must satisfy before it can
// be handed to a calculator.
func (t TaxTable) Validate() error {
	if t.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidTaxTable)
	}
	if t.PersonalRelief.IsNegative() {
		return fmt.Errorf("%w: personal relief must be non-negative", ErrInvalidTaxTable)
	}
	if err := validateIncomeBands(t.IncomeTaxBands); err != nil {
		return err
	}
	if err := validateSocialSecurity(t.SocialSecurity); err != nil {
		return err
	}
	return validateHealthBands(t.HealthBands)
}

func validateIncomeBands(bands []IncomeTaxBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("%w: at least one income tax band is required", ErrInvalidTaxTable)
	}

	one := decimal.NewFromInt(1)
	cumulative := decimal.Zero
	prevMax := decimal.Zero

	for i, b := range bands {
		last := i == len(bands)-1
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return fmt.Errorf("%w: income band %d rate must be within [0, 1]", ErrInvalidTaxTable, i)
		}
		if b.Max == nil && !last {
			return fmt.Errorf("%w: only the last income band may be open-ended", ErrInvalidTaxTable)
		}
		if b.Max != nil && b.Max.LessThan(b.Min) {
			return fmt.Errorf("%w: income band %d max is below min", ErrInvalidTaxTable, i)
		}
		if i == 0 {
			if !b.Min.IsZero() {
				return fmt.Errorf("%w: first income band must start at 0", ErrInvalidTaxTable)
			}
		} else if !b.Min.Equal(prevMax.Add(one)) {
			return fmt.Errorf("%w: income band %d must start at %s", ErrInvalidTaxTable, i, prevMax.Add(one))
		}
		if b.BaseAmount.Sub(cumulative).Abs().GreaterThan(baseAmountTolerance) {
			return fmt.Errorf("%w: income band %d base amount %s does not match cumulative tax %s",
				ErrInvalidTaxTable, i, b.BaseAmount, cumulative.StringFixed(2))
		}
		if b.Max != nil {
			cumulative = cumulative.Add(b.Max.Sub(prevMax).Mul(b.Rate))
			prevMax = *b.Max
		}
	}
	return nil
}

func validateSocialSecurity(ss SocialSecurityConfig) error {
	one := decimal.NewFromInt(1)
	for _, r := range []decimal.Decimal{ss.Tier1Rate, ss.Tier2Rate} {
		if r.IsNegative() || r.GreaterThan(one) {
			return fmt.Errorf("%w: social security rates must be within [0, 1]", ErrInvalidTaxTable)
		}
	}
	if !ss.Tier1Limit.IsPositive() {
		return fmt.Errorf("%w: social security tier 1 limit must be positive", ErrInvalidTaxTable)
	}
	if ss.Tier2Limit.LessThan(ss.Tier1Limit) {
		return fmt.Errorf("%w: social security tier 2 limit must not be below tier 1 limit", ErrInvalidTaxTable)
	}
	return nil
}

func validateHealthBands(bands []HealthBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("%w: at least one health band is required", ErrInvalidTaxTable)
	}

	one := decimal.NewFromInt(1)
	for i, b := range bands {
		last := i == len(bands)-1
		if b.Amount.IsNegative() {
			return fmt.Errorf("%w: health band %d amount must be non-negative", ErrInvalidTaxTable, i)
		}
		if b.Max == nil && !last {
			return fmt.Errorf("%w: only the last health band may be open-ended", ErrInvalidTaxTable)
		}
		if b.Max != nil && b.Max.LessThan(b.Min) {
			return fmt.Errorf("%w: health band %d max is below min", ErrInvalidTaxTable, i)
		}
		if i == 0 {
			if !b.Min.IsZero() {
				return fmt.Errorf("%w: first health band must start at 0", ErrInvalidTaxTable)
			}
			continue
		}
		prev := bands[i-1]
		if !b.Min.Equal(prev.Max.Add(one)) {
			return fmt.Errorf("%w: health band %d must start at %s", ErrInvalidTaxTable, i, prev.Max.Add(one))
		}
		if b.Amount.LessThan(prev.Amount) {
			return fmt.Errorf("%w: health band amounts must not decrease (band %d)", ErrInvalidTaxTable, i)
		}
	}
	return nil
}
