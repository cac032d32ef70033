package tax

import (
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CalculateTaxRequest struct {
	Gross          decimal.Decimal  `json:"gross"`
	PersonalRelief *decimal.Decimal `json:"personal_relief,omitempty"`
}

func (r *CalculateTaxRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Gross.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "gross", Message: "must be non-negative"})
	}
	if r.PersonalRelief != nil && r.PersonalRelief.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "personal_relief", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CalculateTaxResponse struct {
	Gross           decimal.Decimal     `json:"gross"`
	Statutory       StatutoryDeductions `json:"statutory"`
	NetOfStatutory  decimal.Decimal     `json:"net_of_statutory"`
	TaxTableVersion string              `json:"tax_table_version"`
}
