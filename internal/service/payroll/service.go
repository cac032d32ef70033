package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/taxtable"
	taxsvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/tax"
)

// AdvanceLedger is the salary advance side of a payroll run. Installments is
// read once per employee before computing; SettleInstallments runs in the
// transaction that stores the records.
type AdvanceLedger interface {
	Installments(ctx context.Context, employeeID, periodID string) ([]advance.Installment, error)
	SettleInstallments(ctx context.Context, periodID string, installments []advance.Installment) ([]advance.Application, error)
}

type PayrollServiceImpl struct {
	tx          database.Transactor
	records     payroll.RecordRepository
	employees   payroll.EmployeeReader
	ledger      AdvanceLedger
	tables      *taxtable.Provider
	concurrency int
	configure   func(*Computer)
}

func NewPayrollService(
	tx database.Transactor,
	records payroll.RecordRepository,
	employees payroll.EmployeeReader,
	ledger AdvanceLedger,
	tables *taxtable.Provider,
	concurrency int,
) *PayrollServiceImpl {
	return &PayrollServiceImpl{
		tx:          tx,
		records:     records,
		employees:   employees,
		ledger:      ledger,
		tables:      tables,
		concurrency: concurrency,
	}
}

// RunPayroll computes a period for the requested employees, stores the
// records and settles the advance installments they deducted.
func (s *PayrollServiceImpl) RunPayroll(ctx context.Context, req payroll.RunPayrollRequest) (payroll.RunPayrollResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunPayrollResponse{}, err
	}
	period := req.Period()

	computer, err := s.computer()
	if err != nil {
		return payroll.RunPayrollResponse{}, err
	}

	inputs := make([]payroll.EmployeeInput, 0, len(req.Employees))
	var snapshot []advance.Installment
	for _, e := range req.Employees {
		emp, err := s.employees.GetPayrollEmployee(ctx, e.EmployeeID)
		if err != nil {
			if errors.Is(err, payroll.ErrEmployeeNotFound) {
				return payroll.RunPayrollResponse{}, fmt.Errorf("%w: %s", payroll.ErrEmployeeNotFound, e.EmployeeID)
			}
			return payroll.RunPayrollResponse{}, fmt.Errorf("failed to load employee %s: %w", e.EmployeeID, err)
		}

		installments, err := s.installments(ctx, emp.ID, period.ID)
		if err != nil {
			return payroll.RunPayrollResponse{}, err
		}
		snapshot = append(snapshot, installments...)

		advances := make([]payroll.AdvanceDeduction, 0, len(installments))
		for _, inst := range installments {
			advances = append(advances, payroll.AdvanceDeduction{
				ScheduleID: inst.ScheduleID,
				RequestID:  inst.RequestID,
				Amount:     inst.Amount,
			})
		}

		inputs = append(inputs, payroll.EmployeeInput{
			Employee:          emp,
			TimeEntries:       e.ToTimeEntries(),
			Adjustments:       e.ToAdjustments(),
			AdvanceDeductions: advances,
		})
	}

	result, err := computer.RunBatch(ctx, period, inputs, s.concurrency)
	if err != nil {
		return payroll.RunPayrollResponse{}, err
	}

	stored := make([]payroll.PayrollRecord, 0, len(result.Records))
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, record := range result.Records {
			previous, err := s.records.GetCurrent(ctx, record.EmployeeID, record.Period.ID)
			switch {
			case err == nil:
				record.SupersedesID = &previous.ID
			case !errors.Is(err, payroll.ErrPayrollRecordNotFound):
				return fmt.Errorf("failed to load current payroll record: %w", err)
			}

			created, err := s.records.Create(ctx, record)
			if err != nil {
				return fmt.Errorf("failed to create payroll record: %w", err)
			}
			stored = append(stored, created)
		}

		if s.ledger == nil || len(snapshot) == 0 {
			return nil
		}
		if _, err := s.ledger.SettleInstallments(ctx, period.ID, snapshot); err != nil {
			return fmt.Errorf("failed to settle advance installments: %w", err)
		}
		return nil
	})
	if err != nil {
		return payroll.RunPayrollResponse{}, err
	}

	slog.Info("Payroll run completed",
		"period_id", period.ID,
		"employees", result.Summary.EmployeeCount,
		"exceptions", result.Summary.ExceptionCount,
		"total_net", result.Summary.TotalNet.StringFixed(2),
		"tax_table", computer.calc.Table().Version,
	)

	responses := make([]payroll.PayrollRecordResponse, 0, len(stored))
	for _, r := range stored {
		responses = append(responses, payroll.NewPayrollRecordResponse(r))
	}
	return payroll.RunPayrollResponse{
		PeriodID: period.ID,
		Records:  responses,
		Summary:  result.Summary,
	}, nil
}

func (s *PayrollServiceImpl) GetPayrollRecord(ctx context.Context, id string) (payroll.PayrollRecordResponse, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	return payroll.NewPayrollRecordResponse(record), nil
}

func (s *PayrollServiceImpl) GetPayStub(ctx context.Context, id string) (payroll.PayStub, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return payroll.PayStub{}, err
	}
	return record.Stub, nil
}

// computer binds the current tax table for one run. A reload during the run
// does not affect it.
func (s *PayrollServiceImpl) computer() (*Computer, error) {
	table, err := s.tables.Current()
	if err != nil {
		return nil, err
	}
	calc, err := taxsvc.NewCalculator(table)
	if err != nil {
		return nil, err
	}
	c := NewComputer(calc)
	if s.configure != nil {
		s.configure(c)
	}
	return c, nil
}

func (s *PayrollServiceImpl) installments(ctx context.Context, employeeID, periodID string) ([]advance.Installment, error) {
	if s.ledger == nil {
		return nil, nil
	}
	installments, err := s.ledger.Installments(ctx, employeeID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot advance installments: %w", err)
	}
	return installments, nil
}
