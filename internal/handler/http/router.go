package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AllowedOrigins []string
	Env            string
	LogLevel       slog.Level
}

func NewRouter(
	opts RouterOptions,
	JWTService jwt.Service,
	authorizer middleware.Authorizer,
	advanceHandler AdvanceHandler,
	payrollHandler PayrollHandler,
	taxHandler TaxHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       opts.LogLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-engine"),
		slog.String("version", "v1.0.0"),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired(JWTService))
		r.Use(middleware.Authorize(authorizer))

		r.Route("/advances", func(r chi.Router) {
			r.Post("/", advanceHandler.Submit)
			r.Get("/", advanceHandler.List)
			r.Get("/eligibility/{employeeID}", advanceHandler.GetEligibility)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", advanceHandler.Get)
				r.Post("/decision", advanceHandler.Decide)
				r.Post("/disburse", advanceHandler.Disburse)
				r.Get("/schedule", advanceHandler.GetSchedule)
			})
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Post("/runs", payrollHandler.RunPayroll)
			r.Get("/records/{id}", payrollHandler.GetPayrollRecord)
			r.Get("/records/{id}/stub", payrollHandler.GetPayStub)
		})

		r.Route("/tax", func(r chi.Router) {
			r.Post("/calculate", taxHandler.Calculate)
			r.Get("/table", taxHandler.GetTable)
			r.Post("/table/reload", taxHandler.ReloadTable)
		})
	})
	return r
}
