package tax

import "errors"

var (
	ErrInvalidTaxTable     = errors.New("invalid tax table")
	ErrTaxTableNotLoaded   = errors.New("tax table not loaded")
	ErrUnsupportedVersion  = errors.New("unsupported tax table version")
	ErrNegativeGrossAmount = errors.New("gross amount must not be negative")
)
