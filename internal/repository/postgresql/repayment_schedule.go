package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type repaymentScheduleRepositoryImpl struct {
	db *database.DB
}

func NewRepaymentScheduleRepository(db *database.DB) advance.ScheduleRepository {
	return &repaymentScheduleRepositoryImpl{db: db}
}

const repaymentScheduleColumns = `
	s.id, s.request_id, s.employee_id, s.original_amount, s.monthly_deduction, s.repayment_months,
	s.first_period_id, s.remaining_balance, s.total_deducted, s.status, s.created_at, s.updated_at
`

// Create implements advance.ScheduleRepository.
func (r *repaymentScheduleRepositoryImpl) Create(ctx context.Context, schedule advance.RepaymentSchedule) (advance.RepaymentSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO repayment_schedules (
			id, request_id, employee_id, original_amount, monthly_deduction, repayment_months,
			first_period_id, remaining_balance, total_deducted, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := q.Exec(ctx, query,
		schedule.ID, schedule.RequestID, schedule.EmployeeID, schedule.OriginalAmount, schedule.MonthlyDeduction,
		schedule.RepaymentMonths, schedule.FirstPeriodID, schedule.RemainingBalance, schedule.TotalDeducted, schedule.Status,
		schedule.CreatedAt, schedule.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "uk_repayment_schedule_request") {
			return advance.RepaymentSchedule{}, advance.ErrScheduleAlreadyExists
		}
		return advance.RepaymentSchedule{}, fmt.Errorf("failed to create repayment schedule: %w", err)
	}

	return schedule, nil
}

// GetByID implements advance.ScheduleRepository.
func (r *repaymentScheduleRepositoryImpl) GetByID(ctx context.Context, id string) (advance.RepaymentSchedule, error) {
	return r.getOne(ctx, `WHERE s.id = $1`, id)
}

// GetByRequestID implements advance.ScheduleRepository.
func (r *repaymentScheduleRepositoryImpl) GetByRequestID(ctx context.Context, requestID string) (advance.RepaymentSchedule, error) {
	return r.getOne(ctx, `WHERE s.request_id = $1`, requestID)
}

// GetActiveByEmployeeID implements advance.ScheduleRepository.
func (r *repaymentScheduleRepositoryImpl) GetActiveByEmployeeID(ctx context.Context, employeeID string) ([]advance.RepaymentSchedule, error) {
	return r.list(ctx, `
		WHERE s.employee_id = $1 AND s.status = $2 AND s.remaining_balance > 0
		ORDER BY s.created_at, s.id
	`, employeeID, advance.ScheduleStatusActive)
}

// GetForPeriod implements advance.ScheduleRepository.
func (r *repaymentScheduleRepositoryImpl) GetForPeriod(ctx context.Context, employeeID, periodID string) ([]advance.RepaymentSchedule, error) {
	return r.list(ctx, `
		WHERE s.employee_id = $1
			AND (
				(s.status = $2 AND s.remaining_balance > 0 AND s.first_period_id <= $3)
				OR EXISTS (
					SELECT 1 FROM repayment_deductions d
					WHERE d.schedule_id = s.id AND d.period_id = $3
				)
			)
		ORDER BY s.created_at, s.id
	`, employeeID, advance.ScheduleStatusActive, periodID)
}

// ApplyDeduction implements advance.ScheduleRepository.
func (r *repaymentScheduleRepositoryImpl) ApplyDeduction(ctx context.Context, schedule advance.RepaymentSchedule, entry advance.DeductionEntry) error {
	q := GetQuerier(ctx, r.db)

	insert := `
		INSERT INTO repayment_deductions (schedule_id, period_id, amount, status, applied_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (schedule_id, period_id) DO NOTHING
	`

	tag, err := q.Exec(ctx, insert, schedule.ID, entry.PeriodID, entry.Amount, entry.Status, entry.AppliedAt)
	if err != nil {
		return fmt.Errorf("failed to record repayment deduction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return advance.ErrDeductionAlreadyApplied
	}

	update := `
		UPDATE repayment_schedules
		SET remaining_balance = $1, total_deducted = $2, status = $3, updated_at = $4
		WHERE id = $5
	`

	tag, err = q.Exec(ctx, update,
		schedule.RemainingBalance, schedule.TotalDeducted, schedule.Status, schedule.UpdatedAt, schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update repayment schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return advance.ErrRepaymentScheduleNotFound
	}

	return nil
}

func (r *repaymentScheduleRepositoryImpl) getOne(ctx context.Context, where string, args ...any) (advance.RepaymentSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + repaymentScheduleColumns + ` FROM repayment_schedules s ` + where

	schedule, err := scanRepaymentSchedule(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return advance.RepaymentSchedule{}, advance.ErrRepaymentScheduleNotFound
		}
		return advance.RepaymentSchedule{}, fmt.Errorf("failed to get repayment schedule: %w", err)
	}

	history, err := r.history(ctx, []string{schedule.ID})
	if err != nil {
		return advance.RepaymentSchedule{}, err
	}
	schedule.DeductionHistory = history[schedule.ID]

	return schedule, nil
}

func (r *repaymentScheduleRepositoryImpl) list(ctx context.Context, where string, args ...any) ([]advance.RepaymentSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + repaymentScheduleColumns + ` FROM repayment_schedules s ` + where

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list repayment schedules: %w", err)
	}
	defer rows.Close()

	var schedules []advance.RepaymentSchedule
	var ids []string
	for rows.Next() {
		schedule, err := scanRepaymentSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
		ids = append(ids, schedule.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return schedules, nil
	}
	history, err := r.history(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		schedules[i].DeductionHistory = history[schedules[i].ID]
	}

	return schedules, nil
}

func (r *repaymentScheduleRepositoryImpl) history(ctx context.Context, scheduleIDs []string) (map[string][]advance.DeductionEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT schedule_id, period_id, amount, status, applied_at
		FROM repayment_deductions
		WHERE schedule_id = ANY($1)
		ORDER BY schedule_id, applied_at, period_id
	`

	rows, err := q.Query(ctx, query, scheduleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list repayment deductions: %w", err)
	}
	defer rows.Close()

	history := make(map[string][]advance.DeductionEntry, len(scheduleIDs))
	for rows.Next() {
		var (
			scheduleID string
			entry      advance.DeductionEntry
		)
		if err := rows.Scan(&scheduleID, &entry.PeriodID, &entry.Amount, &entry.Status, &entry.AppliedAt); err != nil {
			return nil, err
		}
		history[scheduleID] = append(history[scheduleID], entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

func scanRepaymentSchedule(row pgx.Row) (advance.RepaymentSchedule, error) {
	var s advance.RepaymentSchedule
	err := row.Scan(
		&s.ID, &s.RequestID, &s.EmployeeID, &s.OriginalAmount, &s.MonthlyDeduction, &s.RepaymentMonths,
		&s.FirstPeriodID, &s.RemainingBalance, &s.TotalDeducted, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}
