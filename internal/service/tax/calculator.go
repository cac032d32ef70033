package tax

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/shopspring/decimal"
)

type incomeBand struct {
	lower decimal.Decimal // previous band's max; 0 for the first band
	upper *decimal.Decimal
	rate  decimal.Decimal
	base  decimal.Decimal
}

// Calculator computes statutory deductions from one tax table.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	table       tax.TaxTable
	incomeBands []incomeBand
}

// NewCalculator validates the table and prepares the band lookup.
func NewCalculator(table tax.TaxTable) (*Calculator, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	// Bases come from the band widths, not BaseAmount. Published bases are
	// truncated and would let tax drop when crossing a band edge.
	bands := make([]incomeBand, 0, len(table.IncomeTaxBands))
	lower := decimal.Zero
	base := decimal.Zero
	for _, b := range table.IncomeTaxBands {
		band := incomeBand{lower: lower, rate: b.Rate, base: base}
		if b.Max != nil {
			upper := *b.Max
			band.upper = &upper
			base = base.Add(upper.Sub(lower).Mul(b.Rate))
			lower = upper
		}
		bands = append(bands, band)
	}

	return &Calculator{table: table, incomeBands: bands}, nil
}

// MustNewCalculator is NewCalculator for tables already known to be valid.
func MustNewCalculator(table tax.TaxTable) *Calculator {
	c, err := NewCalculator(table)
	if err != nil {
		panic(fmt.Sprintf("tax calculator: %v", err))
	}
	return c
}

// Table returns the table the calculator was built from.
func (c *Calculator) Table() tax.TaxTable {
	return c.table
}

// DefaultRelief is the table's monthly personal relief.
func (c *Calculator) DefaultRelief() decimal.Decimal {
	return c.table.PersonalRelief
}

// IncomeTax applies the progressive bands to monthlyGross, subtracts
// personalRelief and floors the result at zero.
func (c *Calculator) IncomeTax(monthlyGross, personalRelief decimal.Decimal) decimal.Decimal {
	gross := nonNegative(monthlyGross)

	band := c.incomeBands[len(c.incomeBands)-1]
	for _, b := range c.incomeBands {
		if b.upper == nil || gross.LessThanOrEqual(*b.upper) {
			band = b
			break
		}
	}

	within := nonNegative(gross.Sub(band.lower))
	amount := band.base.Add(band.rate.Mul(within)).Sub(personalRelief)
	return round(nonNegative(amount))
}

// SocialSecurity computes the two-tier contribution, capped at the tier 2 limit.
func (c *Calculator) SocialSecurity(monthlyGross decimal.Decimal) decimal.Decimal {
	ss := c.table.SocialSecurity
	gross := nonNegative(monthlyGross)

	tier1 := decimal.Min(gross, ss.Tier1Limit).Mul(ss.Tier1Rate)

	tier2Base := decimal.Min(gross, ss.Tier2Limit).Sub(ss.Tier1Limit)
	tier2 := nonNegative(tier2Base).Mul(ss.Tier2Rate)

	return round(tier1.Add(tier2))
}

// HealthContribution looks up the fixed contribution for the band holding monthlyGross.
// A band covers (previous max, max]; amounts above the top band use the top amount.
func (c *Calculator) HealthContribution(monthlyGross decimal.Decimal) decimal.Decimal {
	gross := nonNegative(monthlyGross)

	bands := c.table.HealthBands
	for _, b := range bands {
		if b.Max == nil || gross.LessThanOrEqual(*b.Max) {
			return round(b.Amount)
		}
	}
	return round(bands[len(bands)-1].Amount)
}

// Statutory returns the full statutory breakdown for one gross amount.
func (c *Calculator) Statutory(monthlyGross, personalRelief decimal.Decimal) tax.StatutoryDeductions {
	incomeTax := c.IncomeTax(monthlyGross, personalRelief)
	socialSecurity := c.SocialSecurity(monthlyGross)
	health := c.HealthContribution(monthlyGross)

	return tax.StatutoryDeductions{
		IncomeTax:          incomeTax,
		SocialSecurity:     socialSecurity,
		HealthContribution: health,
		PersonalRelief:     personalRelief,
		Total:              incomeTax.Add(socialSecurity).Add(health),
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// round rounds half away from zero to 2 decimal places.
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
