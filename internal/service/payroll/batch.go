package payroll

import (
	"context"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds the workers of one batch when none is configured.
const DefaultBatchConcurrency = 8

// RunBatch computes every input concurrently. Each worker writes only its own
// slot, so records come back in input order. The summary is reduced after all
// workers finish.
func (c *Computer) RunBatch(ctx context.Context, period payroll.Period, inputs []payroll.EmployeeInput, concurrency int) (payroll.BatchResult, error) {
	if len(inputs) == 0 {
		return payroll.BatchResult{}, payroll.ErrEmptyRun
	}
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	records := make([]payroll.PayrollRecord, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = c.CalculatePayroll(in.Employee, in.TimeEntries, period, in.Adjustments, in.AdvanceDeductions)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return payroll.BatchResult{}, err
	}

	return payroll.BatchResult{
		Records: records,
		Summary: Summarize(period.ID, records),
	}, nil
}

// Summarize totals a set of records for one period.
func Summarize(periodID string, records []payroll.PayrollRecord) payroll.PeriodSummary {
	s := payroll.PeriodSummary{
		PeriodID:               periodID,
		EmployeeCount:          len(records),
		TotalGross:             decimal.Zero,
		TotalIncomeTax:         decimal.Zero,
		TotalSocialSecurity:    decimal.Zero,
		TotalHealth:            decimal.Zero,
		TotalStatutory:         decimal.Zero,
		TotalOtherDeductions:   decimal.Zero,
		TotalAdvanceDeductions: decimal.Zero,
		TotalNonTaxable:        decimal.Zero,
		TotalNet:               decimal.Zero,
	}

	for _, r := range records {
		if r.HasExceptions {
			s.ExceptionCount++
		}
		s.TotalGross = s.TotalGross.Add(r.GrossPay)
		s.TotalIncomeTax = s.TotalIncomeTax.Add(r.Statutory.IncomeTax)
		s.TotalSocialSecurity = s.TotalSocialSecurity.Add(r.Statutory.SocialSecurity)
		s.TotalHealth = s.TotalHealth.Add(r.Statutory.HealthContribution)
		s.TotalStatutory = s.TotalStatutory.Add(r.Statutory.Total)
		s.TotalOtherDeductions = s.TotalOtherDeductions.Add(r.OtherDeductions)
		s.TotalAdvanceDeductions = s.TotalAdvanceDeductions.Add(r.AdvanceDeductions)
		s.TotalNonTaxable = s.TotalNonTaxable.Add(r.NonTaxableAdjustments)
		s.TotalNet = s.TotalNet.Add(r.NetPay)
	}

	return s
}
