// Package service implements the treasury and policy controller: the admin
// sets prices and withdraws the accumulated balance.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ledgermodels "nameledger/internal/ledger/models"
	"nameledger/internal/storage"
	"nameledger/internal/treasury/metrics"
	"nameledger/internal/treasury/models"
	"nameledger/internal/treasury/ports"
	"nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/platform/audit"
	"nameledger/pkg/platform/sentinel"
	"nameledger/pkg/requestcontext"
)

const (
	opSetOneYearCharge = "set_one_year_charge"
	opSetRatio         = "set_ratio"
	opWithdraw         = "withdraw"
	opAuditTrail       = "audit_trail"
)

// Service guards every mutation with the admin check. It shares the unit of
// work with the ledger so a withdrawal can never interleave with a payment.
type Service struct {
	uow            storage.UnitOfWork
	settler        ports.Settler
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	auditReader    ports.AuditReader
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

// WithAuditReader enables AuditTrail.
func WithAuditReader(reader ports.AuditReader) Option {
	return func(s *Service) {
		s.auditReader = reader
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(uow storage.UnitOfWork, settler ports.Settler, opts ...Option) (*Service, error) {
	if uow == nil {
		return nil, errors.New("unit of work is required")
	}
	if settler == nil {
		return nil, errors.New("settler is required")
	}
	s := &Service{
		uow:     uow,
		settler: settler,
		tracer:  otel.Tracer("nameledger/internal/treasury"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// SetOneYearCharge replaces the per-year registration price. Leases already
// granted are unaffected.
func (s *Service) SetOneYearCharge(ctx context.Context, caller domain.Address, amount *uint256.Int) (*models.PolicyState, error) {
	ctx, span := s.tracer.Start(ctx, "treasury.SetOneYearCharge")
	defer span.End()

	if amount == nil {
		return nil, s.fail(ctx, span, opSetOneYearCharge, caller, dErrors.New(dErrors.CodeValidation, "amount is required"))
	}
	policy, err := s.mutate(ctx, caller, func(ctx context.Context, stores storage.Stores, policy *models.PolicyState) error {
		policy.ApplyOneYearCharge(amount, requestcontext.Now(ctx))
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, opSetOneYearCharge, caller, err)
	}

	if s.metrics != nil {
		s.metrics.IncrementPolicyUpdate("one_year_charge")
	}
	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventOneYearChargeUpdated),
		Actor:   caller,
		Subject: audit.SubjectPolicy,
		Amount:  amount.Dec(),
	})
	return policy, nil
}

// SetRatio replaces the renewal multiplier, expressed in tenths.
func (s *Service) SetRatio(ctx context.Context, caller domain.Address, ratio uint64) (*models.PolicyState, error) {
	ctx, span := s.tracer.Start(ctx, "treasury.SetRatio", trace.WithAttributes(
		attribute.String("policy.renew_ratio", strconv.FormatUint(ratio, 10)),
	))
	defer span.End()

	policy, err := s.mutate(ctx, caller, func(ctx context.Context, stores storage.Stores, policy *models.PolicyState) error {
		policy.ApplyRenewRatio(ratio, requestcontext.Now(ctx))
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, opSetRatio, caller, err)
	}

	if s.metrics != nil {
		s.metrics.IncrementPolicyUpdate("renew_ratio")
	}
	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventRenewRatioUpdated),
		Actor:   caller,
		Subject: audit.SubjectPolicy,
		Amount:  strconv.FormatUint(ratio, 10),
	})
	return policy, nil
}

// Withdraw drains the whole balance to the admin. The transfer instruction is
// handed to the settler before the drained balance commits; a settlement
// failure leaves the balance untouched. When the commit fails after the
// settler accepted, a retry reissues the instruction under the same ID. An
// empty treasury withdraws nothing and succeeds.
func (s *Service) Withdraw(ctx context.Context, caller domain.Address) (*models.Withdrawal, error) {
	ctx, span := s.tracer.Start(ctx, "treasury.Withdraw")
	defer span.End()

	withdrawal := &models.Withdrawal{Amount: new(uint256.Int)}
	_, err := s.mutate(ctx, caller, func(ctx context.Context, stores storage.Stores, policy *models.PolicyState) error {
		now := requestcontext.Now(ctx)
		amount, seq := policy.Drain(now)
		withdrawal.Amount = amount
		if amount.IsZero() {
			return nil
		}

		instruction := models.NewTransferInstruction(policy.Admin, seq, amount, now)
		span.SetAttributes(
			attribute.String("settlement.instruction_id", instruction.ID.String()),
			attribute.String("settlement.sequence", strconv.FormatUint(seq, 10)),
		)
		if err := s.settler.Settle(ctx, instruction); err != nil {
			if s.metrics != nil {
				s.metrics.IncrementSettlementFailures()
			}
			if errors.Is(err, sentinel.ErrUnavailable) {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "settlement is unavailable")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "settlement failed")
		}
		withdrawal.Instruction = instruction
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, opWithdraw, caller, err)
	}

	if withdrawal.Instruction == nil {
		s.logger.InfoContext(ctx, "withdrawal skipped: treasury is empty", "actor", caller.String())
		return withdrawal, nil
	}
	if s.metrics != nil {
		s.metrics.IncrementWithdrawals()
	}
	audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:  string(audit.EventFundsWithdrawn),
		Actor:   caller,
		Subject: audit.SubjectPolicy,
		Amount:  withdrawal.Amount.Dec(),
	})
	return withdrawal, nil
}

// Policy returns the current prices, ratio and balance.
func (s *Service) Policy(ctx context.Context) (*models.PolicyState, error) {
	var policy *models.PolicyState
	err := s.uow.RunReadOnly(ctx, func(ctx context.Context, stores storage.Stores) error {
		var err error
		policy, err = loadPolicy(ctx, stores)
		return err
	})
	if err != nil {
		return nil, translate(err, "failed to load registry policy")
	}
	return policy, nil
}

// Quote prices a registration and a renewal of years under the current policy.
func (s *Service) Quote(ctx context.Context, years int) (*models.Quote, error) {
	if err := ledgermodels.ValidateYears(ledgermodels.KindRegistration, years); err != nil {
		return nil, err
	}
	policy, err := s.Policy(ctx)
	if err != nil {
		return nil, err
	}
	registration, ok := policy.RegistrationCharge(years)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "registration charge exceeds the amount range")
	}
	renewal, ok := policy.RenewalCharge(years)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "renewal charge exceeds the amount range")
	}
	return &models.Quote{Years: years, Registration: registration, Renewal: renewal}, nil
}

// AuditTrail lists the audit events recorded for subject, a leased name or
// audit.SubjectPolicy. Only the admin may read it.
func (s *Service) AuditTrail(ctx context.Context, caller domain.Address, subject string) ([]audit.Event, error) {
	ctx, span := s.tracer.Start(ctx, "treasury.AuditTrail")
	defer span.End()

	policy, err := s.Policy(ctx)
	if err != nil {
		return nil, s.fail(ctx, span, opAuditTrail, caller, err)
	}
	if !policy.IsAdmin(caller) {
		return nil, s.fail(ctx, span, opAuditTrail, caller, models.ErrAdminOnly)
	}
	if s.auditReader == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "audit trail is not configured")
	}
	events, err := s.auditReader.List(ctx, subject)
	if err != nil {
		return nil, s.fail(ctx, span, opAuditTrail, caller, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
	}
	return events, nil
}

// mutate loads the policy, enforces the admin check, applies fn and saves.
func (s *Service) mutate(ctx context.Context, caller domain.Address, fn func(ctx context.Context, stores storage.Stores, policy *models.PolicyState) error) (*models.PolicyState, error) {
	var result *models.PolicyState
	err := s.uow.RunInTx(ctx, func(ctx context.Context, stores storage.Stores) error {
		policy, err := loadPolicy(ctx, stores)
		if err != nil {
			return err
		}
		if !policy.IsAdmin(caller) {
			return models.ErrAdminOnly
		}
		if err := fn(ctx, stores, policy); err != nil {
			return err
		}
		if err := stores.Policy.Save(ctx, policy); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registry policy")
		}
		result = policy
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to update registry policy")
	}
	return result, nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, operation string, caller domain.Address, err error) error {
	code := dErrors.CodeOf(err)
	span.SetStatus(codes.Error, string(code))
	span.SetAttributes(attribute.String("error.code", string(code)))
	switch code {
	case dErrors.CodeAccessDenied:
		if s.metrics != nil {
			s.metrics.IncrementAccessDenied(operation)
		}
		audit.Log(ctx, s.logger, s.auditPublisher, audit.Event{
			Action:  string(audit.EventAccessDenied),
			Actor:   caller,
			Subject: audit.SubjectPolicy,
			Reason:  string(dErrors.ReasonOf(err)),
		})
	case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeTimeout:
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "treasury operation failed", "operation", operation, "error", err)
	}
	return err
}

func loadPolicy(ctx context.Context, stores storage.Stores) (*models.PolicyState, error) {
	policy, err := stores.Policy.Load(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "registry policy is not initialised")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry policy")
	}
	return policy, nil
}

func translate(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
