package tax

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/taxtable"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatYAML = `
version: %s
jurisdiction: KE
currency: KES
effective_from: 2025-01-01
personal_relief: 0
income_tax_bands:
  - { min: 0, rate: %s, base_amount: 0 }
social_security:
  tier1_rate: 0.05
  tier1_limit: 8000
  tier2_rate: 0.05
  tier2_limit: 72000
health_bands:
  - { min: 0, max: 9999, amount: 200 }
  - { min: 10000, amount: 500 }
`

func writeTable(t *testing.T, path, version, rate string) {
	t.Helper()
	content := []byte(fmt.Sprintf(flatYAML, version, rate))
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

func TestTaxService_Calculate(t *testing.T) {
	svc := NewTaxService(taxtable.NewStaticProvider(taxtable.Reference()))

	got, err := svc.Calculate(context.Background(), tax.CalculateTaxRequest{Gross: d("40000")})
	require.NoError(t, err)

	assert.Equal(t, "KE-2024", got.TaxTableVersion)
	assert.True(t, d("7543.35").Equal(got.Statutory.Total), "total %s", got.Statutory.Total)
	assert.True(t, d("32456.65").Equal(got.NetOfStatutory), "net %s", got.NetOfStatutory)

	noRelief := d("0")
	got, err = svc.Calculate(context.Background(), tax.CalculateTaxRequest{Gross: d("40000"), PersonalRelief: &noRelief})
	require.NoError(t, err)
	assert.True(t, d("6783.35").Equal(got.Statutory.IncomeTax), "income tax %s", got.Statutory.IncomeTax)
}

func TestTaxService_CalculateRejectsNegativeGross(t *testing.T) {
	svc := NewTaxService(taxtable.NewStaticProvider(taxtable.Reference()))

	_, err := svc.Calculate(context.Background(), tax.CalculateTaxRequest{Gross: d("-1")})

	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestTaxService_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	writeTable(t, path, "TEST-1", "0.10")

	provider, err := taxtable.NewProvider(path)
	require.NoError(t, err)
	svc := NewTaxService(provider)
	ctx := context.Background()

	before, err := svc.Calculate(ctx, tax.CalculateTaxRequest{Gross: d("10000")})
	require.NoError(t, err)
	assert.True(t, d("1000").Equal(before.Statutory.IncomeTax))

	writeTable(t, path, "TEST-2", "0.20")
	table, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TEST-2", table.Version)

	after, err := svc.Calculate(ctx, tax.CalculateTaxRequest{Gross: d("10000")})
	require.NoError(t, err)
	assert.True(t, d("2000").Equal(after.Statutory.IncomeTax))

	require.NoError(t, os.WriteFile(path, []byte("version: [broken"), 0o600))
	_, err = svc.Reload(ctx)
	assert.ErrorIs(t, err, tax.ErrInvalidTaxTable)

	current, err := svc.Table(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TEST-2", current.Version)
}
