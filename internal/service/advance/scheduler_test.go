package advance

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func disbursedRequest(amount string, months int) advance.SalaryAdvanceRequest {
	return advance.SalaryAdvanceRequest{
		ID:              "req-1",
		EmployeeID:      "emp-1",
		RequestedAmount: dec(amount),
		RepaymentMonths: months,
		Status:          advance.StatusDisbursed,
	}
}

func newTestScheduler() *Scheduler {
	return &Scheduler{newID: sequentialIDs("sched")}
}

func TestScheduler_OnDisburse(t *testing.T) {
	s := newTestScheduler()

	cases := []struct {
		amount  string
		months  int
		monthly string
		wantMon int
	}{
		{"10000", 1, "10000", 1},
		{"10000", 0, "10000", 1},
		{"9000", 3, "3000", 3},
		{"10000", 3, "3333.34", 3},
		{"100", 7, "14.29", 7},
	}

	for _, tc := range cases {
		schedule, err := s.OnDisburse(disbursedRequest(tc.amount, tc.months), baseTime)
		require.NoError(t, err)

		assert.Truef(t, dec(tc.monthly).Equal(schedule.MonthlyDeduction), "%s/%d: monthly %s", tc.amount, tc.months, schedule.MonthlyDeduction)
		assert.Equal(t, tc.wantMon, schedule.RepaymentMonths)
		assert.True(t, dec(tc.amount).Equal(schedule.RemainingBalance))
		assert.True(t, schedule.TotalDeducted.IsZero())
		assert.Equal(t, advance.ScheduleStatusActive, schedule.Status)
		assert.Equal(t, "req-1", schedule.RequestID)
		assert.Equal(t, "2024-07", schedule.FirstPeriodID)
	}
}

func TestNextPeriodID(t *testing.T) {
	cases := map[string]time.Time{
		"2024-07": baseTime,
		"2025-01": time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC),
		"2024-02": time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC),
	}
	for want, at := range cases {
		assert.Equal(t, want, NextPeriodID(at), at.String())
	}
}

func TestScheduler_NotDueBeforeFirstPeriod(t *testing.T) {
	s := newTestScheduler()
	schedule, err := s.OnDisburse(disbursedRequest("10000", 1), baseTime)
	require.NoError(t, err)

	for _, p := range []string{"2020-01", "2024-05", "2024-06"} {
		assert.True(t, Installment(schedule, p).IsZero(), p)

		unchanged, _, err := s.ApplyToPeriod(schedule, p, baseTime)
		assert.ErrorIs(t, err, advance.ErrScheduleNotDue, p)
		assert.True(t, dec("10000").Equal(unchanged.RemainingBalance))
	}

	assert.True(t, dec("10000").Equal(Installment(schedule, "2024-07")))
}

func TestScheduler_OnDisburse_RequiresDisbursedRequest(t *testing.T) {
	s := newTestScheduler()
	req := disbursedRequest("10000", 1)
	req.Status = advance.StatusOpsFinalApproved

	_, err := s.OnDisburse(req, baseTime)
	assert.ErrorIs(t, err, advance.ErrInvalidTransition)
}

func TestScheduler_ApplyToPeriod_ClearsWithinMonths(t *testing.T) {
	s := newTestScheduler()
	schedule, err := s.OnDisburse(disbursedRequest("10000", 3), baseTime)
	require.NoError(t, err)

	periods := []string{"2024-07", "2024-08", "2024-09"}
	want := []string{"3333.34", "3333.34", "3333.32"}

	for i, p := range periods {
		var app advance.Application
		schedule, app, err = s.ApplyToPeriod(schedule, p, baseTime)
		require.NoError(t, err)

		assert.Truef(t, dec(want[i]).Equal(app.AmountApplied), "period %s applied %s", p, app.AmountApplied)
		assert.True(t, app.NewRemainingBalance.Equal(schedule.RemainingBalance))
		require.NoError(t, CheckBalance(schedule), "after %s", p)
	}

	assert.True(t, schedule.RemainingBalance.IsZero())
	assert.Equal(t, advance.ScheduleStatusCompleted, schedule.Status)
	assert.Len(t, schedule.DeductionHistory, 3)

	_, _, err = s.ApplyToPeriod(schedule, "2024-10", baseTime)
	assert.ErrorIs(t, err, advance.ErrScheduleCompleted)
}

func TestScheduler_ApplyToPeriod_Idempotent(t *testing.T) {
	s := newTestScheduler()
	schedule, err := s.OnDisburse(disbursedRequest("9000", 3), baseTime)
	require.NoError(t, err)

	first, app1, err := s.ApplyToPeriod(schedule, "2024-07", baseTime)
	require.NoError(t, err)
	assert.False(t, app1.AlreadyApplied)

	second, app2, err := s.ApplyToPeriod(first, "2024-07", baseTime)
	require.NoError(t, err)
	assert.True(t, app2.AlreadyApplied)
	assert.True(t, app1.AmountApplied.Equal(app2.AmountApplied))
	assert.True(t, dec("6000").Equal(second.RemainingBalance))
	assert.Len(t, second.DeductionHistory, 1)

	// The input schedule is never modified.
	assert.Empty(t, schedule.DeductionHistory)
	assert.True(t, dec("9000").Equal(schedule.RemainingBalance))
}

func TestScheduler_BalanceInvariantHoldsEveryStep(t *testing.T) {
	s := newTestScheduler()
	for _, months := range []int{1, 2, 3, 5, 7, 12} {
		schedule, err := s.OnDisburse(disbursedRequest("7777.77", months), baseTime)
		require.NoError(t, err)
		require.NoError(t, CheckBalance(schedule))

		steps := 0
		for schedule.IsActive() {
			schedule, _, err = s.ApplyToPeriod(schedule, periodID(steps), baseTime)
			require.NoError(t, err)
			require.NoError(t, CheckBalance(schedule))
			steps++
		}
		assert.LessOrEqual(t, steps, months, "months=%d", months)
	}
}

func TestInstallment(t *testing.T) {
	s := newTestScheduler()
	schedule, err := s.OnDisburse(disbursedRequest("5000", 2), baseTime)
	require.NoError(t, err)

	assert.True(t, dec("2500").Equal(Installment(schedule, "2024-07")))

	schedule, _, err = s.ApplyToPeriod(schedule, "2024-07", baseTime)
	require.NoError(t, err)
	assert.True(t, dec("2500").Equal(Installment(schedule, "2024-07")))
	assert.True(t, dec("2500").Equal(Installment(schedule, "2024-08")))

	schedule, _, err = s.ApplyToPeriod(schedule, "2024-08", baseTime)
	require.NoError(t, err)
	assert.True(t, Installment(schedule, "2024-09").IsZero())
}

func periodID(i int) string {
	return baseTime.AddDate(0, i+1, 0).Format("2006-01")
}
