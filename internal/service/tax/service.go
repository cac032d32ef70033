package tax

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/taxtable"
)

type TaxServiceImpl struct {
	tables *taxtable.Provider
}

func NewTaxService(tables *taxtable.Provider) *TaxServiceImpl {
	return &TaxServiceImpl{tables: tables}
}

// Calculate previews the statutory deductions for a gross amount under the
// current table.
func (s *TaxServiceImpl) Calculate(ctx context.Context, req tax.CalculateTaxRequest) (tax.CalculateTaxResponse, error) {
	if err := req.Validate(); err != nil {
		return tax.CalculateTaxResponse{}, err
	}

	calc, err := s.calculator()
	if err != nil {
		return tax.CalculateTaxResponse{}, err
	}

	relief := calc.DefaultRelief()
	if req.PersonalRelief != nil {
		relief = *req.PersonalRelief
	}
	statutory := calc.Statutory(req.Gross, relief)

	return tax.CalculateTaxResponse{
		Gross:           req.Gross.Round(2),
		Statutory:       statutory,
		NetOfStatutory:  req.Gross.Round(2).Sub(statutory.Total),
		TaxTableVersion: calc.Table().Version,
	}, nil
}

func (s *TaxServiceImpl) Table(ctx context.Context) (tax.TaxTable, error) {
	return s.tables.Current()
}

// Reload re-reads the configured table. On failure the previous table stays
// active and the error is returned.
func (s *TaxServiceImpl) Reload(ctx context.Context) (tax.TaxTable, error) {
	if err := s.tables.Reload(ctx); err != nil {
		return tax.TaxTable{}, err
	}
	table, err := s.tables.Current()
	if err != nil {
		return tax.TaxTable{}, err
	}
	slog.InfoContext(ctx, "Tax table reload requested", "version", table.Version)
	return table, nil
}

func (s *TaxServiceImpl) calculator() (*Calculator, error) {
	table, err := s.tables.Current()
	if err != nil {
		return nil, err
	}
	return NewCalculator(table)
}
