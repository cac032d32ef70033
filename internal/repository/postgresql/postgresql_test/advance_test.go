package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/taxtable"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	advancesvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/advance"
	payrollsvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	disbursedAt = time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)

	employeeActor = advance.Actor{ID: "emp-1", Role: advance.RoleEmployee}
	opsActor      = advance.Actor{ID: "ops-1", Role: advance.RoleOperations}
	hrActor       = advance.Actor{ID: "hr-1", Role: advance.RoleHR}
)

func TestSalaryAdvanceRepository_OptimisticUpdate(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	require.NoError(t, setup.SeedEmployee(ctx, "emp-1", "E001", "40000", "ops-1"))

	repo := postgresql.NewSalaryAdvanceRepository(setup.DB)
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	req := advance.SalaryAdvanceRequest{
		ID:                 "adv-1",
		EmployeeID:         "emp-1",
		RequestedAmount:    decimal.NewFromInt(5000),
		Reason:             "rent",
		DisbursementMethod: advance.DisbursementBank,
		RepaymentMonths:    1,
		Status:             advance.StatusPendingOpsInitial,
		OpsReviewerID:      "ops-1",
		Version:            1,
		SubmittedAt:        now,
		UpdatedAt:          now,
		History: []advance.WorkflowStep{{
			ID: "step-1", RequestID: "adv-1", ActorID: "emp-1", ActorRole: advance.RoleEmployee,
			Action: advance.ActionSubmit, ToStatus: advance.StatusPendingOpsInitial, CreatedAt: now,
		}},
	}
	_, err := repo.Create(ctx, req)
	require.NoError(t, err)

	next := req
	next.Status = advance.StatusForwardedToHR
	next.Version = 2
	next.History = append(append([]advance.WorkflowStep{}, req.History...), advance.WorkflowStep{
		ID: "step-2", RequestID: "adv-1", ActorID: "ops-1", ActorRole: advance.RoleOperations,
		Action: advance.ActionApprove, FromStatus: advance.StatusPendingOpsInitial,
		ToStatus: advance.StatusForwardedToHR, CreatedAt: now,
	})

	require.NoError(t, repo.UpdateStatus(ctx, next, advance.StatusPendingOpsInitial))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, next, advance.StatusPendingOpsInitial), advance.ErrConcurrentModification)

	got, err := repo.GetByID(ctx, "adv-1")
	require.NoError(t, err)
	assert.Equal(t, advance.StatusForwardedToHR, got.Status)
	assert.Equal(t, 2, got.Version)
	require.Len(t, got.History, 2)
	assert.Equal(t, advance.ActionApprove, got.History[1].Action)

	sum, err := repo.SumInFlight(ctx, "emp-1", "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(sum))

	sum, err = repo.SumInFlight(ctx, "emp-1", "adv-1")
	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

func TestAdvanceAndPayroll_EndToEnd(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	require.NoError(t, setup.SeedEmployee(ctx, "emp-1", "E001", "40000", "ops-1"))

	advances, payrolls := newServices(t, setup)
	submitted := disburseAdvance(t, advances, 9000, 3)

	// The disbursement month collects nothing.
	june, err := payrolls.RunPayroll(ctx, payroll.RunPayrollRequest{
		PeriodMonth: 6,
		PeriodYear:  2024,
		Employees:   []payroll.EmployeeRunInput{{EmployeeID: "emp-1"}},
	})
	require.NoError(t, err)
	assert.True(t, june.Records[0].AdvanceDeductions.IsZero())

	run := payroll.RunPayrollRequest{
		PeriodMonth: 7,
		PeriodYear:  2024,
		Employees:   []payroll.EmployeeRunInput{{EmployeeID: "emp-1"}},
	}
	out, err := payrolls.RunPayroll(ctx, run)
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.True(t, decimal.NewFromInt(3000).Equal(out.Records[0].AdvanceDeductions))

	// A second run of July supersedes the record and leaves the schedule alone.
	again, err := payrolls.RunPayroll(ctx, run)
	require.NoError(t, err)
	require.NotNil(t, again.Records[0].SupersedesID)
	assert.Equal(t, out.Records[0].ID, *again.Records[0].SupersedesID)

	schedule, err := advances.GetSchedule(ctx, employeeActor, submitted.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(6000).Equal(schedule.RemainingBalance))
	assert.Len(t, schedule.DeductionHistory, 1)

	stub, err := payrolls.GetPayStub(ctx, again.Records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-07", stub.PeriodID)

	got, err := advances.GetAdvance(ctx, employeeActor, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, string(advance.StatusRepaying), got.Status)
}

func TestAdvanceAndPayroll_SingleInstallmentCompletes(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	require.NoError(t, setup.SeedEmployee(ctx, "emp-1", "E001", "40000", "ops-1"))

	advances, payrolls := newServices(t, setup)
	submitted := disburseAdvance(t, advances, 10000, 1)

	out, err := payrolls.RunPayroll(ctx, payroll.RunPayrollRequest{
		PeriodMonth: 7,
		PeriodYear:  2024,
		Employees:   []payroll.EmployeeRunInput{{EmployeeID: "emp-1"}},
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10000).Equal(out.Records[0].AdvanceDeductions))

	// Both system transitions are stored, each with its own step.
	stored, err := postgresql.NewSalaryAdvanceRepository(setup.DB).GetByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, advance.StatusCompleted, stored.Status)
	assert.Equal(t, 7, stored.Version)
	require.Len(t, stored.History, 7)
	assert.Equal(t, advance.ActionApplyDeduction, stored.History[5].Action)
	assert.Equal(t, advance.StatusRepaying, stored.History[5].ToStatus)
	assert.Equal(t, advance.ActionComplete, stored.History[6].Action)
	assert.Equal(t, advance.StatusCompleted, stored.History[6].ToStatus)

	schedule, err := advances.GetSchedule(ctx, employeeActor, submitted.ID)
	require.NoError(t, err)
	assert.True(t, schedule.RemainingBalance.IsZero())
	assert.Equal(t, "2024-07", schedule.FirstPeriodID)
}

func newServices(t *testing.T, setup *TestDatabaseSetup) (*advancesvc.AdvanceServiceImpl, *payrollsvc.PayrollServiceImpl) {
	t.Helper()

	tx := postgresql.NewTxManager(setup.DB)
	employees := postgresql.NewEmployeeRepository(setup.DB)
	advances := advancesvc.NewAdvanceService(
		tx,
		postgresql.NewSalaryAdvanceRepository(setup.DB),
		postgresql.NewRepaymentScheduleRepository(setup.DB),
		employees,
		advancesvc.Config{
			DefaultRepaymentMonths: 1,
			MaxRepaymentMonths:     6,
			Now:                    func() time.Time { return disbursedAt },
		},
	)

	tables, err := taxtable.NewProvider("")
	require.NoError(t, err)
	payrolls := payrollsvc.NewPayrollService(tx, postgresql.NewPayrollRepository(setup.DB), employees, advances, tables, 2)
	return advances, payrolls
}

func disburseAdvance(t *testing.T, advances *advancesvc.AdvanceServiceImpl, amount int64, months int) advance.AdvanceResponse {
	t.Helper()
	ctx := context.Background()

	submitted, err := advances.Submit(ctx, employeeActor, advance.SubmitAdvanceRequest{
		RequestedAmount:    decimal.NewFromInt(amount),
		Reason:             "school fees",
		DisbursementMethod: "bank",
		RepaymentMonths:    months,
	})
	require.NoError(t, err)

	for _, actor := range []advance.Actor{opsActor, hrActor, opsActor} {
		_, err := advances.Decide(ctx, actor, advance.DecisionRequest{RequestID: submitted.ID, Decision: "approve"})
		require.NoError(t, err)
	}
	_, err = advances.Disburse(ctx, opsActor, advance.DisburseRequest{RequestID: submitted.ID})
	require.NoError(t, err)
	return submitted
}
