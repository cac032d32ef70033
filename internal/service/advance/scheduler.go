package advance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/shopspring/decimal"
)

// Scheduler turns disbursed advances into repayment schedules and applies
// them period by period.
type Scheduler struct {
	newID func() string
}

func NewScheduler() *Scheduler {
	return &Scheduler{newID: newUUID}
}

// OnDisburse creates the repayment schedule for a disbursed request. The
// installment is rounded up to the cent so the balance clears within
// RepaymentMonths periods, starting with the period after disbursement.
func (s *Scheduler) OnDisburse(req advance.SalaryAdvanceRequest, now time.Time) (advance.RepaymentSchedule, error) {
	if req.Status != advance.StatusDisbursed {
		return advance.RepaymentSchedule{}, fmt.Errorf("%w: schedule needs a disbursed request, got %s", advance.ErrInvalidTransition, req.Status)
	}
	if !req.RequestedAmount.IsPositive() {
		return advance.RepaymentSchedule{}, advance.ErrInvalidAmount
	}

	months := req.RepaymentMonths
	if months <= 0 {
		months = 1
	}
	monthly := req.RequestedAmount.Div(decimal.NewFromInt(int64(months))).RoundCeil(2)

	return advance.RepaymentSchedule{
		ID:               s.newID(),
		RequestID:        req.ID,
		EmployeeID:       req.EmployeeID,
		OriginalAmount:   req.RequestedAmount,
		MonthlyDeduction: monthly,
		RepaymentMonths:  months,
		FirstPeriodID:    NextPeriodID(now),
		RemainingBalance: req.RequestedAmount,
		TotalDeducted:    decimal.Zero,
		DeductionHistory: []advance.DeductionEntry{},
		Status:           advance.ScheduleStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// NextPeriodID is the payroll period following the month of t.
func NextPeriodID(t time.Time) string {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// Installment returns what periodID takes from the schedule: the recorded
// amount when the period was already applied, otherwise the next installment.
func Installment(schedule advance.RepaymentSchedule, periodID string) decimal.Decimal {
	if e, ok := schedule.EntryFor(periodID); ok {
		return e.Amount
	}
	if !schedule.IsActive() || !schedule.DueIn(periodID) {
		return decimal.Zero
	}
	return decimal.Min(schedule.MonthlyDeduction, schedule.RemainingBalance)
}

// ApplyToPeriod deducts the period's installment. Applying the same period
// twice returns the first result with AlreadyApplied set.
func (s *Scheduler) ApplyToPeriod(schedule advance.RepaymentSchedule, periodID string, now time.Time) (advance.RepaymentSchedule, advance.Application, error) {
	app := advance.Application{ScheduleID: schedule.ID, RequestID: schedule.RequestID, PeriodID: periodID}

	if e, ok := schedule.EntryFor(periodID); ok {
		app.AmountApplied = e.Amount
		app.NewRemainingBalance = schedule.RemainingBalance
		app.Completed = schedule.RemainingBalance.IsZero()
		app.AlreadyApplied = true
		return schedule, app, nil
	}
	if !schedule.IsActive() {
		return schedule, advance.Application{}, advance.ErrScheduleCompleted
	}
	if !schedule.DueIn(periodID) {
		return schedule, advance.Application{}, fmt.Errorf("%w: %s starts in %s", advance.ErrScheduleNotDue, periodID, schedule.FirstPeriodID)
	}

	amount := decimal.Min(schedule.MonthlyDeduction, schedule.RemainingBalance)

	next := schedule
	next.DeductionHistory = make([]advance.DeductionEntry, len(schedule.DeductionHistory), len(schedule.DeductionHistory)+1)
	copy(next.DeductionHistory, schedule.DeductionHistory)
	next.DeductionHistory = append(next.DeductionHistory, advance.DeductionEntry{
		PeriodID:  periodID,
		Amount:    amount,
		Status:    advance.DeductionStatusApplied,
		AppliedAt: now,
	})
	next.RemainingBalance = schedule.RemainingBalance.Sub(amount)
	next.TotalDeducted = schedule.TotalDeducted.Add(amount)
	next.UpdatedAt = now
	if next.RemainingBalance.IsZero() {
		next.Status = advance.ScheduleStatusCompleted
	}

	app.AmountApplied = amount
	app.NewRemainingBalance = next.RemainingBalance
	app.Completed = next.RemainingBalance.IsZero()
	return next, app, nil
}

// CheckBalance verifies the schedule's accounting identities.
func CheckBalance(schedule advance.RepaymentSchedule) error {
	if !schedule.TotalDeducted.Add(schedule.RemainingBalance).Equal(schedule.OriginalAmount) {
		return fmt.Errorf("schedule %s: deducted %s + remaining %s != original %s",
			schedule.ID, schedule.TotalDeducted, schedule.RemainingBalance, schedule.OriginalAmount)
	}
	sum := decimal.Zero
	for _, e := range schedule.DeductionHistory {
		sum = sum.Add(e.Amount)
	}
	if !sum.Equal(schedule.TotalDeducted) {
		return fmt.Errorf("schedule %s: history sums to %s, total deducted is %s", schedule.ID, sum, schedule.TotalDeducted)
	}
	return nil
}
