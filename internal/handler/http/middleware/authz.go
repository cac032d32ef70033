package middleware

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/authz"
)

type Authorizer interface {
	Authorize(subject string, object string, action string) (allowed bool, enforced bool, err error)
}

// Authorize checks the actor's role against the route policy.
func Authorize(a Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Unauthorized")
				return
			}

			subject := authz.SubjectFromRole(string(actor.Role))
			allowed, enforced, err := a.Authorize(subject, r.URL.Path, r.Method)
			if err != nil {
				slog.Error("Authorization check failed", "subject", subject, "path", r.URL.Path, "error", err)
				if enforced {
					response.InternalServerError(w, "Authorization check failed")
					return
				}
			}
			if !allowed {
				if enforced {
					response.Forbidden(w, "Insufficient permissions for this route")
					return
				}
				slog.Warn("Authorization shadow deny", "subject", subject, "method", r.Method, "path", r.URL.Path)
			}

			next.ServeHTTP(w, r)
		})
	}
}
