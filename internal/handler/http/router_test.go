package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/authz"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	advanceID       = "01907a2e-4b1c-7d3e-9f00-1a2b3c4d5e6f"
	recordID        = "01907a2e-5c2d-7e4f-a011-2b3c4d5e6f70"
	missingRecordID = "01907a2e-6d3e-7f50-b122-3c4d5e6f7081"
)

type stubAdvanceService struct {
	lastActor advance.Actor
	lastID    string
	decision  advance.DecisionRequest
	err       error
}

func (s *stubAdvanceService) Submit(_ context.Context, actor advance.Actor, req advance.SubmitAdvanceRequest) (advance.AdvanceResponse, error) {
	s.lastActor = actor
	if s.err != nil {
		return advance.AdvanceResponse{}, s.err
	}
	return advance.AdvanceResponse{ID: "adv-1", EmployeeID: actor.ID, RequestedAmount: req.RequestedAmount, Status: string(advance.StatusPendingOpsInitial)}, nil
}

func (s *stubAdvanceService) Decide(_ context.Context, actor advance.Actor, req advance.DecisionRequest) (advance.AdvanceResponse, error) {
	s.lastActor = actor
	s.decision = req
	if s.err != nil {
		return advance.AdvanceResponse{}, s.err
	}
	return advance.AdvanceResponse{ID: req.RequestID, Status: string(advance.StatusForwardedToHR)}, nil
}

func (s *stubAdvanceService) Disburse(_ context.Context, actor advance.Actor, req advance.DisburseRequest) (advance.AdvanceResponse, error) {
	s.lastActor = actor
	s.lastID = req.RequestID
	if s.err != nil {
		return advance.AdvanceResponse{}, s.err
	}
	return advance.AdvanceResponse{ID: req.RequestID, Status: string(advance.StatusDisbursed)}, nil
}

func (s *stubAdvanceService) GetAdvance(_ context.Context, actor advance.Actor, id string) (advance.AdvanceResponse, error) {
	s.lastActor = actor
	s.lastID = id
	if s.err != nil {
		return advance.AdvanceResponse{}, s.err
	}
	return advance.AdvanceResponse{ID: id}, nil
}

func (s *stubAdvanceService) ListAdvances(_ context.Context, actor advance.Actor, employeeID string) ([]advance.AdvanceResponse, error) {
	s.lastActor = actor
	s.lastID = employeeID
	return []advance.AdvanceResponse{}, s.err
}

func (s *stubAdvanceService) GetSchedule(_ context.Context, actor advance.Actor, requestID string) (advance.ScheduleResponse, error) {
	s.lastID = requestID
	return advance.ScheduleResponse{RequestID: requestID}, s.err
}

func (s *stubAdvanceService) GetEligibility(_ context.Context, actor advance.Actor, employeeID string) (advance.EligibilityResponse, error) {
	s.lastID = employeeID
	return advance.EligibilityResponse{EmployeeID: employeeID}, s.err
}

type stubPayrollService struct {
	run    payroll.RunPayrollRequest
	lastID string
	err    error
}

func (s *stubPayrollService) RunPayroll(_ context.Context, req payroll.RunPayrollRequest) (payroll.RunPayrollResponse, error) {
	s.run = req
	if s.err != nil {
		return payroll.RunPayrollResponse{}, s.err
	}
	return payroll.RunPayrollResponse{PeriodID: req.Period().ID}, nil
}

func (s *stubPayrollService) GetPayrollRecord(_ context.Context, id string) (payroll.PayrollRecordResponse, error) {
	s.lastID = id
	if s.err != nil {
		return payroll.PayrollRecordResponse{}, s.err
	}
	return payroll.PayrollRecordResponse{ID: id}, nil
}

func (s *stubPayrollService) GetPayStub(_ context.Context, id string) (payroll.PayStub, error) {
	s.lastID = id
	if s.err != nil {
		return payroll.PayStub{}, s.err
	}
	return payroll.PayStub{EmployeeID: "emp-1"}, nil
}

type stubTaxService struct {
	err error
}

func (s *stubTaxService) Calculate(_ context.Context, req tax.CalculateTaxRequest) (tax.CalculateTaxResponse, error) {
	if s.err != nil {
		return tax.CalculateTaxResponse{}, s.err
	}
	return tax.CalculateTaxResponse{Gross: req.Gross, TaxTableVersion: "KE-2024"}, nil
}

func (s *stubTaxService) Table(context.Context) (tax.TaxTable, error) {
	return tax.TaxTable{Version: "KE-2024"}, s.err
}

func (s *stubTaxService) Reload(context.Context) (tax.TaxTable, error) {
	return tax.TaxTable{Version: "KE-2025"}, s.err
}

type routerFixture struct {
	handler  http.Handler
	tokens   *jwt.JWTService
	advances *stubAdvanceService
	payroll  *stubPayrollService
	tax      *stubTaxService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	authorizer, err := authz.NewAuthorizer("", "", authz.ModeEnforce)
	require.NoError(t, err)

	f := &routerFixture{
		tokens:   jwt.NewJWTService("router-test-secret", "10m"),
		advances: &stubAdvanceService{},
		payroll:  &stubPayrollService{},
		tax:      &stubTaxService{},
	}
	f.handler = NewRouter(
		RouterOptions{AllowedOrigins: []string{"http://localhost:3000"}, Env: "test"},
		f.tokens,
		authorizer,
		NewAdvanceHandler(f.advances),
		NewPayrollHandler(f.payroll),
		NewTaxHandler(f.tax),
	)
	return f
}

func (f *routerFixture) do(t *testing.T, role advance.Role, actorID, method, path string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if role != "" {
		token, _, err := f.tokens.GenerateAccessToken(actorID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var resp response.Response
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestRouter_Authentication(t *testing.T) {
	f := newRouterFixture(t)

	rec, resp := f.do(t, "", "", http.MethodGet, "/api/v1/tax/table", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	rec, _ = f.do(t, "", "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RoutePermissions(t *testing.T) {
	f := newRouterFixture(t)

	tests := []struct {
		name   string
		role   advance.Role
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"employee cannot run payroll", advance.RoleEmployee, http.MethodPost, "/api/v1/payroll/runs", map[string]interface{}{}, http.StatusForbidden},
		{"employee cannot decide", advance.RoleEmployee, http.MethodPost, "/api/v1/advances/"+advanceID+"/decision", map[string]string{"decision": "approve"}, http.StatusForbidden},
		{"hr cannot disburse", advance.RoleHR, http.MethodPost, "/api/v1/advances/"+advanceID+"/disburse", nil, http.StatusForbidden},
		{"operations cannot reload tax table", advance.RoleOperations, http.MethodPost, "/api/v1/tax/table/reload", nil, http.StatusForbidden},
		{"employee reads tax table", advance.RoleEmployee, http.MethodGet, "/api/v1/tax/table", nil, http.StatusOK},
		{"hr reloads tax table", advance.RoleHR, http.MethodPost, "/api/v1/tax/table/reload", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := f.do(t, tt.role, "actor-1", tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAdvanceHandler_SubmitUsesTokenEmployee(t *testing.T) {
	f := newRouterFixture(t)

	rec, resp := f.do(t, advance.RoleEmployee, "emp-7", http.MethodPost, "/api/v1/advances", map[string]interface{}{
		"requested_amount":    "5000",
		"reason":              "School fees",
		"disbursement_method": "bank",
		"employee_id":         "someone-else",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, advance.Actor{ID: "emp-7", Role: advance.RoleEmployee}, f.advances.lastActor)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "emp-7", data["employee_id"])
}

func TestAdvanceHandler_DecideAndDisburse(t *testing.T) {
	f := newRouterFixture(t)

	rec, _ := f.do(t, advance.RoleOperations, "ops-1", http.MethodPost, "/api/v1/advances/"+advanceID+"/decision", map[string]string{
		"decision":        "approve",
		"expected_status": "pending_ops_initial",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, advanceID, f.advances.decision.RequestID)
	assert.Equal(t, "approve", f.advances.decision.Decision)
	assert.Equal(t, "pending_ops_initial", f.advances.decision.ExpectedStatus)

	rec, _ = f.do(t, advance.RoleOperations, "ops-1", http.MethodPost, "/api/v1/advances/"+advanceID+"/disburse", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, advanceID, f.advances.lastID)
}

func TestAdvanceHandler_ListDefaultsToActor(t *testing.T) {
	f := newRouterFixture(t)

	rec, _ := f.do(t, advance.RoleEmployee, "emp-2", http.MethodGet, "/api/v1/advances", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "emp-2", f.advances.lastID)

	rec, _ = f.do(t, advance.RoleHR, "hr-1", http.MethodGet, "/api/v1/advances?employee_id=emp-5", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "emp-5", f.advances.lastID)

	rec, _ = f.do(t, advance.RoleEmployee, "emp-2", http.MethodGet, "/api/v1/advances/eligibility/emp-2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "emp-2", f.advances.lastID)
}

func TestAdvanceHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{
			name:     "not yet eligible",
			err:      &advance.TransitionError{From: advance.StatusPendingOpsInitial, Action: advance.ActionDisburse, Role: advance.RoleOperations, Reason: advance.ErrNotYetEligible},
			wantCode: http.StatusConflict,
			wantErr:  "NOT_YET_ELIGIBLE",
		},
		{
			name:     "already decided",
			err:      &advance.TransitionError{From: advance.StatusHRRejected, Action: advance.ActionApprove, Role: advance.RoleHR, Reason: advance.ErrAlreadyDecided},
			wantCode: http.StatusConflict,
			wantErr:  "ALREADY_DECIDED",
		},
		{
			name:     "stale status",
			err:      &advance.TransitionError{From: advance.StatusForwardedToHR, Action: advance.ActionApprove, Role: advance.RoleHR, Reason: advance.ErrStaleStatus},
			wantCode: http.StatusConflict,
			wantErr:  "CONFLICT",
		},
		{
			name:     "concurrent modification",
			err:      fmt.Errorf("update: %w", advance.ErrConcurrentModification),
			wantCode: http.StatusConflict,
			wantErr:  "CONFLICT",
		},
		{
			name:     "self approval",
			err:      &advance.TransitionError{From: advance.StatusPendingOpsInitial, Action: advance.ActionApprove, Role: advance.RoleOperations, Reason: advance.ErrSelfApproval},
			wantCode: http.StatusForbidden,
			wantErr:  "FORBIDDEN",
		},
		{
			name:     "exceeds eligibility",
			err:      advance.ErrExceedsEligibility,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "EXCEEDS_ELIGIBILITY",
		},
		{
			name:     "validation",
			err:      validator.ValidationErrors{{Field: "decision", Message: "decision must be approve or reject"}},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "VALIDATION_ERROR",
		},
		{
			name:     "not found",
			err:      advance.ErrAdvanceRequestNotFound,
			wantCode: http.StatusNotFound,
			wantErr:  "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			f.advances.err = tt.err

			rec, resp := f.do(t, advance.RoleOperations, "ops-1", http.MethodPost, "/api/v1/advances/"+advanceID+"/decision", map[string]string{"decision": "approve"})

			assert.Equal(t, tt.wantCode, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantErr, resp.Error.Code)
		})
	}
}

func TestPayrollHandler(t *testing.T) {
	f := newRouterFixture(t)

	rec, resp := f.do(t, advance.RoleHR, "hr-1", http.MethodPost, "/api/v1/payroll/runs", map[string]interface{}{
		"period_month": 6,
		"period_year":  2024,
		"employees":    []map[string]string{{"employee_id": "emp-1"}},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "2024-06", resp.Data.(map[string]interface{})["period_id"])
	require.Len(t, f.payroll.run.Employees, 1)

	rec, _ = f.do(t, advance.RoleHR, "hr-1", http.MethodGet, "/api/v1/payroll/records/"+recordID+"/stub", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.payroll.err = payroll.ErrPayrollRecordNotFound
	rec, resp = f.do(t, advance.RoleHR, "hr-1", http.MethodGet, "/api/v1/payroll/records/"+missingRecordID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestHandlers_RejectMalformedIDs(t *testing.T) {
	tests := []struct {
		name   string
		role   advance.Role
		method string
		path   string
		body   interface{}
	}{
		{"get advance", advance.RoleEmployee, http.MethodGet, "/api/v1/advances/adv-1", nil},
		{"decide", advance.RoleOperations, http.MethodPost, "/api/v1/advances/not-a-uuid/decision", map[string]string{"decision": "approve"}},
		{"disburse", advance.RoleOperations, http.MethodPost, "/api/v1/advances/42/disburse", nil},
		{"schedule", advance.RoleEmployee, http.MethodGet, "/api/v1/advances/adv-1/schedule", nil},
		{"uuid v4", advance.RoleEmployee, http.MethodGet, "/api/v1/advances/3f1c2a9e-4b1c-4d3e-9f00-1a2b3c4d5e6f", nil},
		{"payroll record", advance.RoleHR, http.MethodGet, "/api/v1/payroll/records/rec-9", nil},
		{"pay stub", advance.RoleHR, http.MethodGet, "/api/v1/payroll/records/rec-9/stub", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)

			rec, resp := f.do(t, tt.role, "actor-1", tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "must be a valid UUID", resp.Error.Details["id"])
			assert.Empty(t, f.advances.lastID)
			assert.Empty(t, f.advances.decision.RequestID)
			assert.Empty(t, f.payroll.lastID)
		})
	}
}

func TestPayrollHandler_BadBody(t *testing.T) {
	f := newRouterFixture(t)

	token, _, err := f.tokens.GenerateAccessToken("hr-1", advance.RoleHR)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/runs", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaxHandler(t *testing.T) {
	f := newRouterFixture(t)

	rec, resp := f.do(t, advance.RoleEmployee, "emp-1", http.MethodPost, "/api/v1/tax/calculate", map[string]string{"gross": "40000"})
	assert.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "40000", data["gross"])
	assert.Equal(t, "KE-2024", data["tax_table_version"])

	f.tax.err = fmt.Errorf("reload: %w", tax.ErrInvalidTaxTable)
	rec, resp = f.do(t, advance.RoleHR, "hr-1", http.MethodPost, "/api/v1/tax/table/reload", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_TAX_TABLE", resp.Error.Code)

	f.tax.err = tax.ErrNegativeGrossAmount
	rec, _ = f.do(t, advance.RoleEmployee, "emp-1", http.MethodPost, "/api/v1/tax/calculate", map[string]string{"gross": "-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
