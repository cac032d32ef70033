package taxtable

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"gopkg.in/yaml.v3"
)

//go:embed ke_2024.yaml
var referenceTableYAML []byte

// Parse decodes a YAML tax table and validates it.
func Parse(b []byte) (tax.TaxTable, error) {
	var t tax.TaxTable
	if err := yaml.Unmarshal(b, &t); err != nil {
		return tax.TaxTable{}, fmt.Errorf("%w: %v", tax.ErrInvalidTaxTable, err)
	}
	if err := t.Validate(); err != nil {
		return tax.TaxTable{}, err
	}
	return t, nil
}

// LoadFile reads and parses the table at path.
func LoadFile(path string) (tax.TaxTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return tax.TaxTable{}, fmt.Errorf("read tax table %s: %w", path, err)
	}
	return Parse(b)
}

// Reference returns the embedded 2024 Kenyan table (PAYE, NSSF tiers I/II, NHIF).
func Reference() tax.TaxTable {
	t, err := Parse(referenceTableYAML)
	if err != nil {
		panic("embedded reference tax table is invalid: " + err.Error())
	}
	return t
}
