package authz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeEnforce, m)

	m, err = ParseMode(" Shadow ")
	require.NoError(t, err)
	assert.Equal(t, ModeShadow, m)

	_, err = ParseMode("disabled")
	assert.Error(t, err)
}

func TestDefaultPolicy(t *testing.T) {
	a, err := NewAuthorizer("", "", ModeEnforce)
	require.NoError(t, err)

	tests := []struct {
		role   string
		path   string
		method string
		want   bool
	}{
		{"employee", "/api/v1/advances", "POST", true},
		{"employee", "/api/v1/advances", "GET", true},
		{"employee", "/api/v1/advances/0190a1b2/schedule", "GET", true},
		{"employee", "/api/v1/advances/0190a1b2/decision", "POST", false},
		{"employee", "/api/v1/advances/0190a1b2/disburse", "POST", false},
		{"employee", "/api/v1/payroll/runs", "POST", false},
		{"employee", "/api/v1/tax/calculate", "POST", true},
		{"employee", "/api/v1/tax/table/reload", "POST", false},
		{"operations", "/api/v1/advances/0190a1b2/decision", "POST", true},
		{"operations", "/api/v1/advances/0190a1b2/disburse", "POST", true},
		{"operations", "/api/v1/advances", "POST", true},
		{"operations", "/api/v1/payroll/records/r1", "GET", false},
		{"hr", "/api/v1/advances/0190a1b2/decision", "POST", true},
		{"hr", "/api/v1/advances/0190a1b2/disburse", "POST", false},
		{"hr", "/api/v1/payroll/runs", "POST", true},
		{"hr", "/api/v1/payroll/records/r1/stub", "GET", true},
		{"hr", "/api/v1/tax/table/reload", "POST", true},
		{"", "/api/v1/tax/table", "GET", false},
	}

	for _, tt := range tests {
		allowed, enforced, err := a.Authorize(SubjectFromRole(tt.role), tt.path, tt.method)
		require.NoError(t, err)
		assert.True(t, enforced)
		assert.Equal(t, tt.want, allowed, "%s %s %s", tt.role, tt.method, tt.path)
	}
}

func TestNewAuthorizer_FromFiles(t *testing.T) {
	dir := t.TempDir()
	policy := filepath.Join(dir, "policy.csv")
	require.NoError(t, os.WriteFile(policy, []byte("p, role:hr, /api/v1/payroll/runs, POST\n"), 0o644))

	a, err := NewAuthorizer("", policy, ModeShadow)
	require.NoError(t, err)

	allowed, enforced, err := a.Authorize("role:hr", "/api/v1/payroll/runs", "POST")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.False(t, enforced)

	allowed, _, err = a.Authorize("role:employee", "/api/v1/advances", "POST")
	require.NoError(t, err)
	assert.False(t, allowed)

	_, err = NewAuthorizer(filepath.Join(dir, "missing.conf"), policy, ModeEnforce)
	assert.Error(t, err)
}
