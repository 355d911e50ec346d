// Package service implements the registry ledger: registering names, renewing
// leases and reporting who holds a name until when.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nameledger/internal/ledger/metrics"
	"nameledger/internal/ledger/models"
	"nameledger/internal/ledger/ports"
	"nameledger/internal/storage"
	"nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/platform/audit"
	"nameledger/pkg/platform/sentinel"
	"nameledger/pkg/requestcontext"
)

const (
	opRegister = "register"
	opRenew    = "renew"
)

// Service owns lease state. It credits the treasury balance for every accepted
// payment inside the same unit of work that writes the lease.
type Service struct {
	uow            storage.UnitOfWork
	cache          ports.LeaseCache
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLeaseCache enables read-through caching for Domain lookups.
func WithLeaseCache(cache ports.LeaseCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func New(uow storage.UnitOfWork, opts ...Option) *Service {
	s := &Service{
		uow:    uow,
		tracer: otel.Tracer("nameledger/internal/ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Register leases an available name to caller for years, crediting payment to
// the treasury. Checks run in this order: duration bounds, exact payment,
// availability. A zero caller is rejected as unauthorized before any of them,
// since it can never hold a name.
func (s *Service) Register(ctx context.Context, caller domain.Address, name string, years int, payment *uint256.Int) (*models.LeaseRecord, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger.Register", trace.WithAttributes(
		attribute.String("lease.name", name),
		attribute.Int("lease.years", years),
	))
	defer span.End()
	defer s.observeMutation(opRegister, start)

	if caller.IsZero() {
		return nil, s.reject(ctx, span, opRegister, caller, name, dErrors.New(dErrors.CodeUnauthorized, "caller is required"))
	}
	if err := models.ValidateYears(models.KindRegistration, years); err != nil {
		return nil, s.reject(ctx, span, opRegister, caller, name, err)
	}

	now := requestcontext.Now(ctx)
	var lease *models.LeaseRecord
	err := s.uow.RunInTx(ctx, func(ctx context.Context, stores storage.Stores) error {
		policy, err := loadPolicy(ctx, stores)
		if err != nil {
			return err
		}
		required, ok := policy.RegistrationCharge(years)
		if !ok || payment == nil || !payment.Eq(required) {
			return models.ErrPaymentMismatch
		}

		existing, err := findLease(ctx, stores, name)
		if err != nil {
			return err
		}
		if !existing.IsAvailable(now) {
			return models.ErrNameOccupied
		}

		if err := policy.Credit(payment, now); err != nil {
			return err
		}
		lease = models.NewLease(name, caller, years, now)
		if err := stores.Leases.Save(ctx, lease); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save lease")
		}
		if err := stores.Policy.Save(ctx, policy); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registry policy")
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, span, opRegister, caller, name, translate(err, "failed to register name"))
	}

	s.writeThrough(ctx, lease)
	if s.metrics != nil {
		s.metrics.IncrementRegistrations()
	}
	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventNameRegistered),
		Actor:   caller,
		Subject: name,
		Years:   years,
		Amount:  payment.Dec(),
	})
	return lease, nil
}

// Renew extends caller's lease on name by years from its current expiry.
// Checks run in this order: holder, duration bounds, exact payment. A zero
// caller is rejected as unauthorized before any of them. The holder may renew
// after expiry as long as nobody re-registered the name.
func (s *Service) Renew(ctx context.Context, caller domain.Address, name string, years int, payment *uint256.Int) (*models.LeaseRecord, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger.Renew", trace.WithAttributes(
		attribute.String("lease.name", name),
		attribute.Int("lease.years", years),
	))
	defer span.End()
	defer s.observeMutation(opRenew, start)

	if caller.IsZero() {
		return nil, s.reject(ctx, span, opRenew, caller, name, dErrors.New(dErrors.CodeUnauthorized, "caller is required"))
	}

	now := requestcontext.Now(ctx)
	var lease *models.LeaseRecord
	err := s.uow.RunInTx(ctx, func(ctx context.Context, stores storage.Stores) error {
		existing, err := findLease(ctx, stores, name)
		if err != nil {
			return err
		}
		if !existing.IsHeldBy(caller) {
			return models.ErrNotNameHolder
		}
		if err := models.ValidateYears(models.KindRenewal, years); err != nil {
			return err
		}

		policy, err := loadPolicy(ctx, stores)
		if err != nil {
			return err
		}
		required, ok := policy.RenewalCharge(years)
		if !ok || payment == nil || !payment.Eq(required) {
			return models.ErrPaymentMismatch
		}

		if err := policy.Credit(payment, now); err != nil {
			return err
		}
		existing.Extend(years, now)
		lease = existing
		if err := stores.Leases.Save(ctx, lease); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save lease")
		}
		if err := stores.Policy.Save(ctx, policy); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registry policy")
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, span, opRenew, caller, name, translate(err, "failed to renew lease"))
	}

	s.writeThrough(ctx, lease)
	if s.metrics != nil {
		s.metrics.IncrementRenewals()
	}
	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventNameRenewed),
		Actor:   caller,
		Subject: name,
		Years:   years,
		Amount:  payment.Dec(),
	})
	return lease, nil
}

// Domain reports the recorded holder and expiry of name. A name that was
// never registered reports the zero address and the zero time. Expired
// records are reported as stored.
func (s *Service) Domain(ctx context.Context, name string) (*models.LeaseRecord, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Domain", trace.WithAttributes(
		attribute.String("lease.name", name),
	))
	defer span.End()

	if lease, ok := s.cached(ctx, name); ok {
		return lease, nil
	}

	var lease *models.LeaseRecord
	err := s.uow.RunReadOnly(ctx, func(ctx context.Context, stores storage.Stores) error {
		var err error
		lease, err = findLease(ctx, stores, name)
		return err
	})
	if err != nil {
		err = translate(err, "failed to load lease")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if lease == nil {
		return models.Unleased(name), nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, lease); err != nil {
			s.logger.WarnContext(ctx, "failed to populate lease cache", "name", name, "error", err)
		}
	}
	return lease, nil
}

func (s *Service) cached(ctx context.Context, name string) (*models.LeaseRecord, bool) {
	if s.cache == nil {
		return nil, false
	}
	lease, err := s.cache.Get(ctx, name)
	switch {
	case err == nil:
		s.recordCacheLookup("hit")
		return lease, true
	case errors.Is(err, sentinel.ErrNotFound):
		s.recordCacheLookup("miss")
	default:
		s.recordCacheLookup("error")
		s.logger.WarnContext(ctx, "lease cache lookup failed", "name", name, "error", err)
	}
	return nil, false
}

// writeThrough refreshes the cache after commit. A failed refresh falls back
// to invalidation so readers never see the pre-commit record for longer than
// one cache round trip.
func (s *Service) writeThrough(ctx context.Context, lease *models.LeaseRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, lease); err != nil {
		s.logger.WarnContext(ctx, "failed to refresh lease cache", "name", lease.Name, "error", err)
		if err := s.cache.Invalidate(ctx, lease.Name); err != nil {
			s.logger.ErrorContext(ctx, "failed to invalidate lease cache", "name", lease.Name, "error", err)
		}
	}
}

// reject records a failed mutation and returns err unchanged.
func (s *Service) reject(ctx context.Context, span trace.Span, operation string, caller domain.Address, name string, err error) error {
	code := dErrors.CodeOf(err)
	span.SetStatus(codes.Error, string(code))
	span.SetAttributes(attribute.String("error.code", string(code)))
	if s.metrics != nil {
		s.metrics.IncrementRejection(operation, string(code))
	}
	if code == dErrors.CodeInternal || code == dErrors.CodeUnavailable || code == dErrors.CodeTimeout {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "ledger operation failed", "operation", operation, "error", err)
		return err
	}
	if code == dErrors.CodeAccessDenied {
		audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
			Action:  string(audit.EventAccessDenied),
			Actor:   caller,
			Subject: name,
			Reason:  string(dErrors.ReasonOf(err)),
		})
	}
	return err
}

func (s *Service) observeMutation(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveMutation(operation, start)
	}
}

func (s *Service) recordCacheLookup(result string) {
	if s.metrics != nil {
		s.metrics.IncrementCacheLookup(result)
	}
}
