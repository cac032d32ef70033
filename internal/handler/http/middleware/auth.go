package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
)

type actorKey struct{}

// AuthRequired resolves the verified token into a workflow actor. It must run
// after jwtauth.Verifier.
func AuthRequired(tokens jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			actor, err := tokens.ActorFromContext(r.Context())
			if err != nil {
				slog.Debug("Rejected access token", "error", err)
				response.Unauthorized(w, "Invalid or missing access token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		}
		return http.HandlerFunc(hfn)
	}
}

func WithActor(ctx context.Context, actor advance.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor AuthRequired stored on ctx.
func ActorFromContext(ctx context.Context) (advance.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(advance.Actor)
	return actor, ok
}
