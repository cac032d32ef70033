package tax

import "context"

type TaxService interface {
	Calculate(ctx context.Context, req CalculateTaxRequest) (CalculateTaxResponse, error)
	Table(ctx context.Context) (TaxTable, error)
	Reload(ctx context.Context) (TaxTable, error)
}
