package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	"github.com/stretchr/testify/require"
)

// TestDatabaseSetup holds the connection used by the repository tests.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the schema. The
// test is skipped when the variable is unset.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(dsn, database.PoolConfig{MaxConns: 4, MinConns: 1})
	require.NoError(t, err, "failed to connect to test database")

	ctx := context.Background()
	require.NoError(t, postgresql.Migrate(ctx, db))

	setup := &TestDatabaseSetup{DB: db}
	require.NoError(t, setup.TruncateAllTables(ctx))
	t.Cleanup(setup.Close)

	return setup
}

// TruncateAllTables removes all rows from the payroll engine tables.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"payroll_records",
		"repayment_deductions",
		"repayment_schedules",
		"salary_advance_steps",
		"salary_advance_requests",
		"standing_deductions",
		"employees",
		"branches",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// SeedEmployee inserts a branch with its operations reviewer and a salaried employee.
func (t *TestDatabaseSetup) SeedEmployee(ctx context.Context, id, code, salary, opsReviewerID string) error {
	_, err := t.DB.Exec(ctx, `
		INSERT INTO branches (id, name, ops_reviewer_id)
		VALUES ($1, $1, NULLIF($2, ''))
		ON CONFLICT (id) DO NOTHING
	`, "branch-"+id, opsReviewerID)
	if err != nil {
		return err
	}

	_, err = t.DB.Exec(ctx, `
		INSERT INTO employees (
			id, employee_code, full_name, branch_id, employment_type, monthly_salary,
			tax_id, payment_method, bank_name, bank_account_number
		) VALUES ($1, $2, $3, $4, 'salaried', $5::numeric, 'A000', 'bank', 'Equity', '0100')
	`, id, code, "Employee "+code, "branch-"+id, salary)
	return err
}

// Close closes the database connection.
func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}
