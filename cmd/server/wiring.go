package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"

	jwttoken "nameledger/internal/jwt_token"
	ledgerhandler "nameledger/internal/ledger/handler"
	ledgermetrics "nameledger/internal/ledger/metrics"
	ledgerservice "nameledger/internal/ledger/service"
	"nameledger/internal/ledger/store/cache"
	"nameledger/internal/platform/config"
	"nameledger/internal/platform/health"
	platformmetrics "nameledger/internal/platform/metrics"
	"nameledger/internal/platform/middleware"
	platformpostgres "nameledger/internal/platform/postgres"
	platformredis "nameledger/internal/platform/redis"
	ratelimitmetrics "nameledger/internal/ratelimit/metrics"
	ratelimitmw "nameledger/internal/ratelimit/middleware"
	ratelimitmodels "nameledger/internal/ratelimit/models"
	"nameledger/internal/ratelimit/store/bucket"
	"nameledger/internal/storage"
	pgstore "nameledger/internal/storage/postgres"
	treasuryhandler "nameledger/internal/treasury/handler"
	treasurymetrics "nameledger/internal/treasury/metrics"
	treasurymodels "nameledger/internal/treasury/models"
	"nameledger/internal/treasury/ports"
	treasuryservice "nameledger/internal/treasury/service"
	"nameledger/internal/treasury/settlement"
	"nameledger/pkg/domain"
	"nameledger/pkg/platform/audit"
	auditmemory "nameledger/pkg/platform/audit/store/memory"
	auditpostgres "nameledger/pkg/platform/audit/store/postgres"
	"nameledger/pkg/platform/audit/publisher"
	"nameledger/pkg/platform/circuit"
)

const (
	settlementPartitions = 3
	healthCheckTimeout   = 2 * time.Second
)

type app struct {
	router      http.Handler
	backendName string
	closers     []func(ctx context.Context) error
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildApp wires storage, settlement, cache and services. On error every
// resource opened so far is released.
func buildApp(ctx context.Context, cfg config.Server, log *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checks := map[string]health.Check{}

	backend, auditStore, err := openBackend(ctx, cfg, a, checks)
	if err != nil {
		return nil, err
	}

	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
	)
	a.closers = append(a.closers, func(context.Context) error {
		auditPublisher.Close()
		return nil
	})

	if err := bootstrapPolicy(ctx, cfg.Registry, backend, auditPublisher, log); err != nil {
		return nil, err
	}

	settler, err := openSettler(ctx, cfg.Settlement, a, checks, log)
	if err != nil {
		return nil, err
	}

	ledgerOpts := []ledgerservice.Option{
		ledgerservice.WithLogger(log),
		ledgerservice.WithAuditPublisher(auditPublisher),
		ledgerservice.WithMetrics(ledgermetrics.New(reg)),
	}
	var buckets ratelimitmw.BucketStore = bucket.NewInMemoryBucketStore()
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, func(context.Context) error { return redisClient.Close() })
		checks["cache"] = redisClient.Health
		ledgerOpts = append(ledgerOpts, ledgerservice.WithLeaseCache(
			cache.NewRedisCache(redisClient.Client, cache.WithTTL(cfg.Redis.LeaseTTL)),
		))
		buckets = bucket.NewRedisBucketStore(redisClient.Client)
	}
	ledger := ledgerservice.New(backend, ledgerOpts...)

	treasury, err := treasuryservice.New(backend, settler,
		treasuryservice.WithLogger(log),
		treasuryservice.WithAuditPublisher(auditPublisher),
		treasuryservice.WithAuditReader(auditPublisher),
		treasuryservice.WithMetrics(treasurymetrics.New(reg)),
	)
	if err != nil {
		return nil, err
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.LatencyMiddleware(platformmetrics.New(reg)))

	r.Get("/health", health.Handler(checks, healthCheckTimeout, log))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	limiter := ratelimitmw.New(buckets, map[ratelimitmodels.EndpointClass]ratelimitmodels.Limit{
		ratelimitmodels.ClassRead:  {Requests: cfg.RateLimit.Reads, Window: cfg.RateLimit.Window},
		ratelimitmodels.ClassWrite: {Requests: cfg.RateLimit.Writes, Window: cfg.RateLimit.Window},
	}, log,
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
	)
	r.Group(func(r chi.Router) {
		r.Use(limiter.RateLimit)
		ledgerhandler.New(ledger, log, validator).Register(r)
		treasuryhandler.New(treasury, log, validator).Register(r)
	})

	a.router = r
	return a, nil
}

// openBackend selects Postgres when a database URL is configured and the
// in-memory store otherwise. Audit events live next to the registry state.
func openBackend(ctx context.Context, cfg config.Server, a *app, checks map[string]health.Check) (storage.Backend, audit.Store, error) {
	db, err := platformpostgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if db == nil {
		a.backendName = "memory"
		return storage.NewMemory(storage.WithTxTimeout(cfg.Registry.TxTimeout)), auditmemory.NewInMemoryStore(), nil
	}

	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	if err := pgstore.Migrate(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("migrate registry schema: %w", err)
	}
	a.backendName = "postgres"
	checks["storage"] = db.PingContext
	return pgstore.New(db, pgstore.WithTxTimeout(cfg.Registry.TxTimeout)), auditpostgres.New(db), nil
}

// openSettler publishes withdrawals to Kafka behind a circuit breaker when
// brokers are configured, and journals them in memory otherwise.
func openSettler(ctx context.Context, cfg config.SettlementConfig, a *app, checks map[string]health.Check, log *slog.Logger) (ports.Settler, error) {
	if len(cfg.Brokers) == 0 {
		log.Warn("no kafka brokers configured, withdrawals are journaled in memory only")
		return settlement.NewJournal(log), nil
	}

	client, err := settlement.NewKafkaClient(cfg.Brokers, kgo.ClientID("nameledger"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error {
		client.Close()
		return nil
	})
	if err := settlement.EnsureTopic(ctx, client, cfg.Topic, settlementPartitions, -1, log); err != nil {
		return nil, err
	}

	kafka := settlement.NewKafkaSettler(client, cfg.Topic)
	checks["settlement"] = kafka.Health
	breaker := circuit.New("settlement",
		circuit.WithFailureThreshold(cfg.FailureThreshold),
		circuit.WithCooldown(cfg.Cooldown),
	)
	return settlement.NewGuard(kafka, breaker, log), nil
}

// bootstrapPolicy creates the policy on first start. A stored policy always
// wins over configuration; a mismatch is only logged.
func bootstrapPolicy(ctx context.Context, cfg config.RegistryConfig, backend storage.Backend, emitter audit.Emitter, log *slog.Logger) error {
	initial, err := treasurymodels.NewPolicyState(cfg.Admin(), cfg.Charge(), cfg.RenewRatio, time.Now().UTC())
	if err != nil {
		return err
	}
	policy, created, err := backend.Bootstrap(ctx, initial)
	if err != nil {
		return fmt.Errorf("bootstrap registry policy: %w", err)
	}

	if created {
		audit.Log(ctx, log, emitter, audit.Event{
			Action:  string(audit.EventPolicyBootstrapped),
			Actor:   policy.Admin,
			Subject: audit.SubjectPolicy,
			Amount:  domain.FormatAmount(policy.OneYearCharge),
		})
		return nil
	}
	if policy.Admin != initial.Admin || !policy.OneYearCharge.Eq(initial.OneYearCharge) || policy.RenewRatio != initial.RenewRatio {
		log.Warn("stored registry policy differs from configuration, keeping stored policy",
			"stored_admin", policy.Admin.String(),
			"stored_one_year_charge", domain.FormatAmount(policy.OneYearCharge),
			"stored_renew_ratio", policy.RenewRatio,
		)
	}
	return nil
}
