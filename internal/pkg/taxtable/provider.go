package taxtable

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
)

// Provider hands out the current tax table. Readers get an immutable snapshot;
// Reload swaps in a freshly parsed table only when it validates.
type Provider struct {
	path    string
	current atomic.Pointer[tax.TaxTable]
}

// NewProvider loads the table at path, or the embedded reference table when path is empty.
func NewProvider(path string) (*Provider, error) {
	p := &Provider{path: path}
	if err := p.Reload(context.Background()); err != nil {
		return nil, err
	}
	return p, nil
}

// NewStaticProvider serves a fixed table. Reload is a no-op.
func NewStaticProvider(t tax.TaxTable) *Provider {
	p := &Provider{}
	p.current.Store(&t)
	return p
}

// Current returns the active table.
func (p *Provider) Current() (tax.TaxTable, error) {
	t := p.current.Load()
	if t == nil {
		return tax.TaxTable{}, tax.ErrTaxTableNotLoaded
	}
	return *t, nil
}

// Version returns the active table's version, or "" before the first load.
func (p *Provider) Version() string {
	if t := p.current.Load(); t != nil {
		return t.Version
	}
	return ""
}

// Reload re-reads the configured source. A failed reload keeps the previous table.
func (p *Provider) Reload(ctx context.Context) error {
	if p.path == "" {
		if p.current.Load() != nil {
			return nil
		}
		t := Reference()
		p.current.Store(&t)
		slog.InfoContext(ctx, "Tax table loaded", "version", t.Version, "source", "embedded")
		return nil
	}

	t, err := LoadFile(p.path)
	if err != nil {
		slog.ErrorContext(ctx, "Tax table reload failed", "path", p.path, "error", err)
		return err
	}

	prev := p.current.Swap(&t)
	if prev == nil || prev.Version != t.Version {
		slog.InfoContext(ctx, "Tax table loaded", "version", t.Version, "source", p.path)
	}
	return nil
}
