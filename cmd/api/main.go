package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	appHTTP "github.com/cmlabs-hris/payroll-engine-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/authz"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/taxtable"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	advanceService "github.com/cmlabs-hris/payroll-engine-go/internal/service/advance"
	payrollService "github.com/cmlabs-hris/payroll-engine-go/internal/service/payroll"
	taxService "github.com/cmlabs-hris/payroll-engine-go/internal/service/tax"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLife,
	})
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgresql.Migrate(ctx, db); err != nil {
			return err
		}
	}

	tables, err := taxtable.NewProvider(cfg.Payroll.TaxTablePath)
	if err != nil {
		return fmt.Errorf("error loading tax table: %w", err)
	}

	authzMode, err := authz.ParseMode(cfg.Authz.Mode)
	if err != nil {
		return err
	}
	authorizer, err := authz.NewAuthorizer(cfg.Authz.ModelPath, cfg.Authz.PolicyPath, authzMode)
	if err != nil {
		return err
	}

	txManager := postgresql.NewTxManager(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	advanceRepo := postgresql.NewSalaryAdvanceRepository(db)
	scheduleRepo := postgresql.NewRepaymentScheduleRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	advanceSvc := advanceService.NewAdvanceService(txManager, advanceRepo, scheduleRepo, employeeRepo, advanceService.Config{
		DefaultRepaymentMonths: cfg.Payroll.DefaultRepaymentMonths,
		MaxRepaymentMonths:     cfg.Payroll.MaxRepaymentMonths,
	})
	payrollSvc := payrollService.NewPayrollService(txManager, payrollRepo, employeeRepo, advanceSvc, tables, cfg.Payroll.BatchConcurrency)
	taxSvc := taxService.NewTaxService(tables)

	scheduler := cron.NewScheduler()
	cron.NewTaxTableJobs(tables, cfg.Payroll.TaxTableReloadInterval).RegisterJobs(scheduler)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Env:            cfg.App.Env,
			LogLevel:       cfg.SlogLevel(),
		},
		JWTService,
		authorizer,
		appHTTP.NewAdvanceHandler(advanceSvc),
		appHTTP.NewPayrollHandler(payrollSvc),
		appHTTP.NewTaxHandler(taxSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "tax_table", tables.Version())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	slog.Info("Shutting down server")
	return server.Shutdown(shutdownCtx)
}
