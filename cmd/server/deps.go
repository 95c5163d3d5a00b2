package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/glebarez/sqlite"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yourorg/paypal-checkout/internal/circuitbreaker"
	"github.com/yourorg/paypal-checkout/internal/config"
	"github.com/yourorg/paypal-checkout/internal/monitor"
	"github.com/yourorg/paypal-checkout/internal/paypal"
	"github.com/yourorg/paypal-checkout/internal/policy"
	"github.com/yourorg/paypal-checkout/internal/reporting"
	"github.com/yourorg/paypal-checkout/internal/store"
)

// sqlitePrefix selects the embedded sqlite driver instead of postgres.
const sqlitePrefix = "sqlite://"

// dependencies are the components shared by the HTTP handlers.
type dependencies struct {
	gateway  checkoutGateway
	repo     store.Repository
	contract *monitor.ContractMonitor
	journal  *reporting.Journal
	reporter *reporting.RetrospectiveReporter
	logger   *zap.Logger
}

func newDependencies(cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	var repo store.Repository = store.NewInMemoryRepository()
	if cfg.Database.DSN != "" {
		gormRepo, err := openRepository(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repo = gormRepo
	} else {
		logger.Warn("database.dsn not set, checkout orders are kept in memory")
	}

	enforcer, err := policy.NewCapturePolicyEnforcer([]policy.PolicyRule{policy.ReauthorizeRule(cfg.PayPal.ReauthorizeRule)})
	if err != nil {
		return nil, fmt.Errorf("capture policy: %w", err)
	}
	contract, err := monitor.NewOrderRequestMonitor()
	if err != nil {
		return nil, err
	}
	journal := reporting.NewJournal(0)

	gw, err := paypal.NewGateway(paypal.Config{
		APIKey:      cfg.PayPal.APIKey,
		SecretKey:   cfg.PayPal.SecretKey,
		Server:      cfg.PayPal.Server,
		AutoCapture: cfg.PayPal.AutoCapture,
		HTTPTimeout: cfg.PayPal.HTTPTimeout,
	}, repo,
		paypal.WithLogger(logger.Named("paypal")),
		paypal.WithCapturePolicy(enforcer),
		paypal.WithRecorder(journal),
		paypal.WithCircuitBreaker(circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
			FailureThreshold:         cfg.Breaker.FailureThreshold,
			ResetTimeout:             cfg.Breaker.ResetTimeout,
			HalfOpenSuccessThreshold: cfg.Breaker.HalfOpenSuccessThreshold,
		})),
	)
	if err != nil {
		return nil, err
	}

	return &dependencies{
		gateway:  gw,
		repo:     repo,
		contract: contract,
		journal:  journal,
		reporter: reporting.NewRetrospectiveReporter(),
		logger:   logger,
	}, nil
}

// openRepository connects to dsn and migrates the checkout order table.
// A sqlite:// prefix opens an embedded database file, anything else is
// handed to the postgres driver.
func openRepository(dsn string) (*store.GormRepository, error) {
	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(dsn, sqlitePrefix); ok {
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo := store.NewGormRepository(db)
	if err := repo.Migrate(); err != nil {
		return nil, err
	}
	return repo, nil
}

// setupTracing installs a tracer provider exporting spans to w.
func setupTracing(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
