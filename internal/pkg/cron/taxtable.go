package cron

import (
	"context"
	"time"
)

// TaxTableReloader re-reads the tax table from its configured source.
type TaxTableReloader interface {
	Reload(ctx context.Context) error
}

type TaxTableJobs struct {
	reloader TaxTableReloader
	interval time.Duration
}

func NewTaxTableJobs(reloader TaxTableReloader, interval time.Duration) *TaxTableJobs {
	return &TaxTableJobs{reloader: reloader, interval: interval}
}

// RegisterJobs adds the reload job. The table is already loaded at startup,
// so the first reload waits one interval.
func (j *TaxTableJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(Job{
		Name:     "reload_tax_table",
		Interval: j.interval,
		Fn:       j.ReloadTaxTable,
	})
}

// ReloadTaxTable swaps in the table from disk. A failed reload keeps serving
// the previous table and surfaces the error to the scheduler log.
func (j *TaxTableJobs) ReloadTaxTable(ctx context.Context) error {
	return j.reloader.Reload(ctx)
}
