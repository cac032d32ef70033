package tax

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomeTaxBand is one progressive income tax band. Max is nil for the open-ended top band.
// BaseAmount is the published cumulative tax of all lower bands. It is
// advisory: Validate checks it against the band widths and the calculator
// uses the derived figure.
type IncomeTaxBand struct {
	Min        decimal.Decimal  `yaml:"min" json:"min"`
	Max        *decimal.Decimal `yaml:"max,omitempty" json:"max,omitempty"`
	Rate       decimal.Decimal  `yaml:"rate" json:"rate"`
	BaseAmount decimal.Decimal  `yaml:"base_amount" json:"base_amount"`
}

// SocialSecurityConfig describes the two-tier contribution.
type SocialSecurityConfig struct {
	Tier1Rate  decimal.Decimal `yaml:"tier1_rate" json:"tier1_rate"`
	Tier1Limit decimal.Decimal `yaml:"tier1_limit" json:"tier1_limit"`
	Tier2Rate  decimal.Decimal `yaml:"tier2_rate" json:"tier2_rate"`
	Tier2Limit decimal.Decimal `yaml:"tier2_limit" json:"tier2_limit"`
}

// HealthBand maps a gross salary range to a fixed contribution.
type HealthBand struct {
	Min    decimal.Decimal  `yaml:"min" json:"min"`
	Max    *decimal.Decimal `yaml:"max,omitempty" json:"max,omitempty"`
	Amount decimal.Decimal  `yaml:"amount" json:"amount"`
}

// TaxTable is a versioned set of statutory rates. Tables are values: a regulatory
// change ships as a new table, never as an edit to calculation code.
type TaxTable struct {
	Version        string               `yaml:"version" json:"version"`
	Jurisdiction   string               `yaml:"jurisdiction" json:"jurisdiction"`
	Currency       string               `yaml:"currency" json:"currency"`
	EffectiveFrom  time.Time            `yaml:"effective_from" json:"effective_from"`
	PersonalRelief decimal.Decimal      `yaml:"personal_relief" json:"personal_relief"`
	IncomeTaxBands []IncomeTaxBand      `yaml:"income_tax_bands" json:"income_tax_bands"`
	SocialSecurity SocialSecurityConfig `yaml:"social_security" json:"social_security"`
	HealthBands    []HealthBand         `yaml:"health_bands" json:"health_bands"`
}

// StatutoryDeductions is the per-period statutory breakdown for one gross amount.
type StatutoryDeductions struct {
	IncomeTax          decimal.Decimal `json:"income_tax"`
	SocialSecurity     decimal.Decimal `json:"social_security"`
	HealthContribution decimal.Decimal `json:"health_contribution"`
	PersonalRelief     decimal.Decimal `json:"personal_relief"`
	Total              decimal.Decimal `json:"total"`
}
