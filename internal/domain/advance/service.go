package advance

import (
	"context"
)

type AdvanceService interface {
	Submit(ctx context.Context, actor Actor, req SubmitAdvanceRequest) (AdvanceResponse, error)
	Decide(ctx context.Context, actor Actor, req DecisionRequest) (AdvanceResponse, error)
	Disburse(ctx context.Context, actor Actor, req DisburseRequest) (AdvanceResponse, error)
	GetAdvance(ctx context.Context, actor Actor, id string) (AdvanceResponse, error)
	ListAdvances(ctx context.Context, actor Actor, employeeID string) ([]AdvanceResponse, error)
	GetSchedule(ctx context.Context, actor Actor, requestID string) (ScheduleResponse, error)
	GetEligibility(ctx context.Context, actor Actor, employeeID string) (EligibilityResponse, error)
}
