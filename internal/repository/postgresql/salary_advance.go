package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type salaryAdvanceRepositoryImpl struct {
	db *database.DB
}

func NewSalaryAdvanceRepository(db *database.DB) advance.RequestRepository {
	return &salaryAdvanceRepositoryImpl{db: db}
}

const salaryAdvanceColumns = `
	r.id, r.employee_id, r.requested_amount, r.reason, r.disbursement_method, r.repayment_months,
	r.status, r.ops_reviewer_id, r.version, r.submitted_at, r.updated_at, e.full_name
`

// Create implements advance.RequestRepository.
func (r *salaryAdvanceRepositoryImpl) Create(ctx context.Context, request advance.SalaryAdvanceRequest) (advance.SalaryAdvanceRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO salary_advance_requests (
			id, employee_id, requested_amount, reason, disbursement_method, repayment_months,
			status, ops_reviewer_id, version, submitted_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := q.Exec(ctx, query,
		request.ID, request.EmployeeID, request.RequestedAmount, request.Reason, request.DisbursementMethod,
		request.RepaymentMonths, request.Status, request.OpsReviewerID, request.Version,
		request.SubmittedAt, request.UpdatedAt,
	)
	if err != nil {
		return advance.SalaryAdvanceRequest{}, fmt.Errorf("failed to create salary advance request: %w", err)
	}

	for i, step := range request.History {
		if err := insertStep(ctx, q, step, i+1); err != nil {
			return advance.SalaryAdvanceRequest{}, err
		}
	}

	return request, nil
}

// GetByID implements advance.RequestRepository.
func (r *salaryAdvanceRepositoryImpl) GetByID(ctx context.Context, id string) (advance.SalaryAdvanceRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + salaryAdvanceColumns + `
		FROM salary_advance_requests r
		JOIN employees e ON e.id = r.employee_id
		WHERE r.id = $1
	`

	request, err := scanSalaryAdvance(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return advance.SalaryAdvanceRequest{}, advance.ErrAdvanceRequestNotFound
		}
		return advance.SalaryAdvanceRequest{}, fmt.Errorf("failed to get salary advance request: %w", err)
	}

	steps, err := r.steps(ctx, []string{request.ID})
	if err != nil {
		return advance.SalaryAdvanceRequest{}, err
	}
	request.History = steps[request.ID]

	return request, nil
}

// GetByEmployeeID implements advance.RequestRepository.
func (r *salaryAdvanceRepositoryImpl) GetByEmployeeID(ctx context.Context, employeeID string) ([]advance.SalaryAdvanceRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + salaryAdvanceColumns + `
		FROM salary_advance_requests r
		JOIN employees e ON e.id = r.employee_id
		WHERE r.employee_id = $1
		ORDER BY r.submitted_at DESC, r.id DESC
	`

	rows, err := q.Query(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary advance requests: %w", err)
	}
	defer rows.Close()

	var requests []advance.SalaryAdvanceRequest
	var ids []string
	for rows.Next() {
		request, err := scanSalaryAdvance(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
		ids = append(ids, request.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return requests, nil
	}
	steps, err := r.steps(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		requests[i].History = steps[requests[i].ID]
	}

	return requests, nil
}

// UpdateStatus implements advance.RequestRepository.
func (r *salaryAdvanceRepositoryImpl) UpdateStatus(ctx context.Context, request advance.SalaryAdvanceRequest, fromStatus advance.Status) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE salary_advance_requests
		SET status = $1, version = $2, repayment_months = $3, updated_at = $4
		WHERE id = $5 AND status = $6 AND version = $7
	`

	tag, err := q.Exec(ctx, query,
		request.Status, request.Version, request.RepaymentMonths, request.UpdatedAt,
		request.ID, fromStatus, request.Version-1,
	)
	if err != nil {
		return fmt.Errorf("failed to update salary advance status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return advance.ErrConcurrentModification
	}

	step, ok := request.LastStep()
	if !ok {
		return nil
	}
	return insertStep(ctx, q, step, len(request.History))
}

// SumInFlight implements advance.RequestRepository.
func (r *salaryAdvanceRepositoryImpl) SumInFlight(ctx context.Context, employeeID, excludeID string) (decimal.Decimal, error) {
	q := GetQuerier(ctx, r.db)

	var statuses []string
	for _, s := range advance.Statuses {
		if s.IsInFlight() {
			statuses = append(statuses, string(s))
		}
	}

	query := `
		SELECT COALESCE(SUM(requested_amount), 0)
		FROM salary_advance_requests
		WHERE employee_id = $1 AND id <> $2 AND status = ANY($3)
	`

	var sum decimal.Decimal
	if err := q.QueryRow(ctx, query, employeeID, excludeID, statuses).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum in-flight advances: %w", err)
	}

	return sum, nil
}

func (r *salaryAdvanceRepositoryImpl) steps(ctx context.Context, requestIDs []string) (map[string][]advance.WorkflowStep, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, request_id, actor_id, actor_role, action, from_status, to_status, comment, created_at
		FROM salary_advance_steps
		WHERE request_id = ANY($1)
		ORDER BY request_id, seq
	`

	rows, err := q.Query(ctx, query, requestIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary advance steps: %w", err)
	}
	defer rows.Close()

	steps := make(map[string][]advance.WorkflowStep, len(requestIDs))
	for rows.Next() {
		var s advance.WorkflowStep
		if err := rows.Scan(
			&s.ID, &s.RequestID, &s.ActorID, &s.ActorRole, &s.Action,
			&s.FromStatus, &s.ToStatus, &s.Comment, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		steps[s.RequestID] = append(steps[s.RequestID], s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return steps, nil
}

func insertStep(ctx context.Context, q database.Querier, step advance.WorkflowStep, seq int) error {
	query := `
		INSERT INTO salary_advance_steps (
			id, request_id, seq, actor_id, actor_role, action, from_status, to_status, comment, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := q.Exec(ctx, query,
		step.ID, step.RequestID, seq, step.ActorID, step.ActorRole, step.Action,
		step.FromStatus, step.ToStatus, step.Comment, step.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "uk_salary_advance_step_seq") {
			return advance.ErrConcurrentModification
		}
		return fmt.Errorf("failed to insert salary advance step: %w", err)
	}
	return nil
}

func scanSalaryAdvance(row pgx.Row) (advance.SalaryAdvanceRequest, error) {
	var (
		request advance.SalaryAdvanceRequest
		name    string
	)
	err := row.Scan(
		&request.ID, &request.EmployeeID, &request.RequestedAmount, &request.Reason,
		&request.DisbursementMethod, &request.RepaymentMonths, &request.Status, &request.OpsReviewerID,
		&request.Version, &request.SubmittedAt, &request.UpdatedAt, &name,
	)
	if err != nil {
		return advance.SalaryAdvanceRequest{}, err
	}
	request.EmployeeName = &name
	return request, nil
}
