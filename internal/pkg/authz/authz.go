package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
)

//go:embed model.conf
var defaultModel string

//go:embed policy.csv
var defaultPolicy string

type Mode string

const (
	// ModeEnforce rejects requests the policy does not allow.
	ModeEnforce Mode = "enforce"
	// ModeShadow evaluates the policy and reports the verdict without rejecting.
	ModeShadow Mode = "shadow"
)

func ParseMode(raw string) (Mode, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	switch Mode(raw) {
	case "":
		return ModeEnforce, nil
	case ModeEnforce, ModeShadow:
		return Mode(raw), nil
	default:
		return "", errors.New("authz: invalid AUTHZ_MODE (expected enforce|shadow)")
	}
}

type Authorizer struct {
	enforcer *casbin.Enforcer
	mode     Mode
}

// NewAuthorizer builds the route authorizer. Empty paths fall back to the
// embedded model and policy.
func NewAuthorizer(modelPath string, policyPath string, mode Mode) (*Authorizer, error) {
	var (
		m   model.Model
		err error
	)
	if modelPath == "" {
		m, err = model.NewModelFromString(defaultModel)
	} else {
		m, err = model.NewModelFromFile(modelPath)
	}
	if err != nil {
		return nil, fmt.Errorf("authz: load model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if policyPath == "" {
		enforcer.SetAdapter(stringadapter.NewAdapter(defaultPolicy))
	} else {
		enforcer.SetAdapter(fileadapter.NewAdapter(policyPath))
	}
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz: load policy: %w", err)
	}
	return &Authorizer{enforcer: enforcer, mode: mode}, nil
}

func SubjectFromRole(role string) string {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		role = "anonymous"
	}
	return "role:" + role
}

// Authorize checks whether subject may perform action on object. enforced is
// false in shadow mode, where callers should log and continue.
func (a *Authorizer) Authorize(subject string, object string, action string) (allowed bool, enforced bool, err error) {
	ok, err := a.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, a.mode == ModeEnforce, err
	}
	return ok, a.mode == ModeEnforce, nil
}
