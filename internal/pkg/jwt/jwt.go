package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	ErrMissingClaim = errors.New("token is missing a required claim")
	ErrInvalidRole  = errors.New("token carries an unknown role")
)

type Service interface {
	GenerateAccessToken(employeeID string, role advance.Role) (token string, expiresAt int64, err error)
	ActorFromContext(ctx context.Context) (advance.Actor, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
	now                       func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) *JWTService {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                       time.Now,
	}
}

// GenerateAccessToken issues a token for an employee acting in role.
// Operators use it to mint tokens for service accounts and tests.
func (j *JWTService) GenerateAccessToken(employeeID string, role advance.Role) (token string, expiresAt int64, err error) {
	if !role.IsValid() || role == advance.RoleSystem {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = j.now().Add(expDuration).Unix()

	claims := map[string]interface{}{
		"employee_id": employeeID,
		"role":        string(role),
		"type":        "access",
		"exp":         expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// ActorFromContext reads the verified token that jwtauth.Verifier put on ctx.
func (j *JWTService) ActorFromContext(ctx context.Context) (advance.Actor, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return advance.Actor{}, err
	}
	return ActorFromClaims(claims)
}

// ActorFromClaims maps access token claims to a workflow actor.
func ActorFromClaims(claims map[string]interface{}) (advance.Actor, error) {
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return advance.Actor{}, jwt.ErrInvalidJWT()
	}

	employeeID, ok := claims["employee_id"].(string)
	if !ok || employeeID == "" {
		return advance.Actor{}, fmt.Errorf("%w: employee_id", ErrMissingClaim)
	}

	roleClaim, ok := claims["role"].(string)
	if !ok {
		return advance.Actor{}, fmt.Errorf("%w: role", ErrMissingClaim)
	}
	role := advance.Role(roleClaim)
	// system is reserved for payroll-driven transitions
	if !role.IsValid() || role == advance.RoleSystem {
		return advance.Actor{}, fmt.Errorf("%w: %q", ErrInvalidRole, roleClaim)
	}

	return advance.Actor{ID: employeeID, Role: role}, nil
}
