package service

//go:generate mockgen -source=../ports/ports.go -destination=../ports/mocks/mocks.go -package=mocks AuditPublisher,AuditReader,Settler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	ledgerservice "nameledger/internal/ledger/service"
	"nameledger/internal/storage"
	"nameledger/internal/treasury/metrics"
	"nameledger/internal/treasury/models"
	"nameledger/internal/treasury/ports/mocks"
	"nameledger/internal/treasury/settlement"
	"nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/platform/audit"
	auditmemory "nameledger/pkg/platform/audit/store/memory"
	"nameledger/pkg/platform/audit/publisher"
	"nameledger/pkg/platform/sentinel"
	"nameledger/pkg/requestcontext"
)

// =============================================================================
// Treasury Service Test Suite
// =============================================================================
// Settlement is mocked so tests can observe the instruction handed over and
// force it to fail. Storage is the real in-memory unit of work, shared with a
// ledger service that feeds the balance.

var (
	admin = domain.MustParseAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	alice = domain.MustParseAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")

	oneYearCharge = domain.MustParseAmount("50000000000000000")
)

type TreasuryServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	settler    *mocks.MockSettler
	store      *storage.Memory
	auditStore *auditmemory.InMemoryStore
	metrics    *metrics.Metrics
	ledger     *ledgerservice.Service
	service    *Service
	ctx        context.Context
}

func TestTreasuryServiceSuite(t *testing.T) {
	suite.Run(t, new(TreasuryServiceSuite))
}

func (s *TreasuryServiceSuite) SetupTest() {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), now)

	s.ctrl = gomock.NewController(s.T())
	s.settler = mocks.NewMockSettler(s.ctrl)
	s.store = storage.NewMemory()
	initial, err := models.NewPolicyState(admin, oneYearCharge, 12, now)
	s.Require().NoError(err)
	_, _, err = s.store.Bootstrap(context.Background(), initial)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.auditStore = auditmemory.NewInMemoryStore()
	pub := publisher.NewPublisher(s.auditStore)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.ledger = ledgerservice.New(s.store, ledgerservice.WithLogger(logger))
	s.service, err = New(s.store, s.settler,
		WithLogger(logger),
		WithAuditPublisher(pub),
		WithAuditReader(pub),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
}

func (s *TreasuryServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *TreasuryServiceSuite) fund(name string, years int) *uint256.Int {
	payment := new(uint256.Int).Mul(uint256.NewInt(uint64(years)), oneYearCharge)
	_, err := s.ledger.Register(s.ctx, alice, name, years, payment)
	s.Require().NoError(err)
	return payment
}

func (s *TreasuryServiceSuite) policy() *models.PolicyState {
	p, err := s.service.Policy(s.ctx)
	s.Require().NoError(err)
	return p
}

func (s *TreasuryServiceSuite) TestNew() {
	s.Run("nil unit of work returns error", func() {
		_, err := New(nil, s.settler)
		s.ErrorContains(err, "unit of work is required")
	})

	s.Run("nil settler returns error", func() {
		_, err := New(s.store, nil)
		s.ErrorContains(err, "settler is required")
	})
}

// =============================================================================
// Policy setters
// =============================================================================

func (s *TreasuryServiceSuite) TestSetOneYearCharge() {
	s.Run("admin changes the price of later registrations only", func() {
		s.fund("thomas", 1)

		policy, err := s.service.SetOneYearCharge(s.ctx, admin, uint256.NewInt(0))
		s.Require().NoError(err)
		s.True(policy.OneYearCharge.IsZero())

		_, err = s.ledger.Register(s.ctx, alice, "free", 3, uint256.NewInt(0))
		s.Require().NoError(err)
		s.Equal(oneYearCharge, s.policy().Balance)
		s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.PolicyUpdates.WithLabelValues("one_year_charge")))
	})

	s.Run("non-admin is denied and nothing changes", func() {
		_, err := s.service.SetOneYearCharge(s.ctx, alice, uint256.NewInt(1))
		s.ErrorIs(err, models.ErrAdminOnly)
		s.Equal(dErrors.ReasonAdminOnly, dErrors.ReasonOf(err))
		s.True(s.policy().OneYearCharge.IsZero())

		events, err := s.auditStore.ListBySubject(s.ctx, audit.SubjectPolicy)
		s.Require().NoError(err)
		last := events[len(events)-1]
		s.Equal(string(audit.EventAccessDenied), last.Action)
		s.Equal(alice, last.Actor)
		s.Equal(string(dErrors.ReasonAdminOnly), last.Reason)
	})
}

func (s *TreasuryServiceSuite) TestSetRatio() {
	s.Run("admin sets any ratio including zero", func() {
		for _, ratio := range []uint64{0, 10, 25, 1 << 40} {
			policy, err := s.service.SetRatio(s.ctx, admin, ratio)
			s.Require().NoError(err)
			s.Equal(ratio, policy.RenewRatio)
		}
	})

	s.Run("non-admin is denied", func() {
		_, err := s.service.SetRatio(s.ctx, alice, 5)
		s.ErrorIs(err, models.ErrAdminOnly)
		s.Equal(uint64(1<<40), s.policy().RenewRatio)
		s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.AccessDenied.WithLabelValues(opSetRatio)))
	})

	s.Run("zero ratio makes renewals free", func() {
		_, err := s.service.SetRatio(s.ctx, admin, 0)
		s.Require().NoError(err)
		s.fund("thomas", 1)
		_, err = s.ledger.Renew(s.ctx, alice, "thomas", 4, uint256.NewInt(0))
		s.Require().NoError(err)
	})
}

// =============================================================================
// Withdraw
// =============================================================================

func (s *TreasuryServiceSuite) TestSetRatioSpanRecordsFullRatio() {
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	defer otel.SetTracerProvider(previous)

	svc, err := New(s.store, s.settler)
	s.Require().NoError(err)
	_, err = svc.SetRatio(s.ctx, admin, math.MaxUint64)
	s.Require().NoError(err)

	var recorded string
	for _, span := range recorder.Ended() {
		if span.Name() != "treasury.SetRatio" {
			continue
		}
		for _, kv := range span.Attributes() {
			if kv.Key == "policy.renew_ratio" {
				recorded = kv.Value.AsString()
			}
		}
	}
	s.Equal("18446744073709551615", recorded)
}

func (s *TreasuryServiceSuite) TestWithdraw() {
	paid := s.fund("thomas", 2)

	var settled *models.TransferInstruction
	s.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, instruction *models.TransferInstruction) error {
			settled = instruction
			return nil
		})

	withdrawal, err := s.service.Withdraw(s.ctx, admin)
	s.Require().NoError(err)
	s.Equal(paid, withdrawal.Amount)
	s.Require().NotNil(withdrawal.Instruction)
	s.Same(settled, withdrawal.Instruction)
	s.Equal(admin, settled.Recipient)
	s.Equal(paid, settled.Amount)
	s.True(s.policy().Balance.IsZero())
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.Withdrawals))

	events, err := s.auditStore.ListBySubject(s.ctx, audit.SubjectPolicy)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventFundsWithdrawn), events[0].Action)
	s.Equal(paid.Dec(), events[0].Amount)
}

func (s *TreasuryServiceSuite) TestWithdrawEmptyTreasury() {
	// No Settle expectation: an empty treasury must not reach settlement.
	withdrawal, err := s.service.Withdraw(s.ctx, admin)
	s.Require().NoError(err)
	s.True(withdrawal.Amount.IsZero())
	s.Nil(withdrawal.Instruction)
}

func (s *TreasuryServiceSuite) TestWithdrawByNonAdmin() {
	paid := s.fund("thomas", 1)

	_, err := s.service.Withdraw(s.ctx, alice)
	s.ErrorIs(err, models.ErrAdminOnly)
	s.Equal(paid, s.policy().Balance)
}

func (s *TreasuryServiceSuite) TestWithdrawSettlementFailureRollsBack() {
	paid := s.fund("thomas", 1)

	s.Run("unavailable settlement", func() {
		s.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).Return(sentinel.ErrUnavailable)
		_, err := s.service.Withdraw(s.ctx, admin)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Equal(paid, s.policy().Balance)
	})

	s.Run("rejected settlement", func() {
		s.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).Return(errors.New("broker said no"))
		_, err := s.service.Withdraw(s.ctx, admin)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.Equal(paid, s.policy().Balance)
	})

	s.Equal(float64(2), promtestutil.ToFloat64(s.metrics.SettlementFailures))

	s.Run("a later withdrawal still drains everything", func() {
		s.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).Return(nil)
		withdrawal, err := s.service.Withdraw(s.ctx, admin)
		s.Require().NoError(err)
		s.Equal(paid, withdrawal.Amount)
	})
}

// lostCommit runs the real body and then fails the commit the next
// `failures` times, rolling the body's writes back.
type lostCommit struct {
	storage.UnitOfWork
	failures int
}

func (l *lostCommit) RunInTx(ctx context.Context, fn func(ctx context.Context, stores storage.Stores) error) error {
	return l.UnitOfWork.RunInTx(ctx, func(ctx context.Context, stores storage.Stores) error {
		if err := fn(ctx, stores); err != nil {
			return err
		}
		if l.failures > 0 {
			l.failures--
			return errors.New("commit tx: connection reset")
		}
		return nil
	})
}

func (s *TreasuryServiceSuite) TestWithdrawRetryAfterLostCommit() {
	paid := s.fund("thomas", 2)

	journal := settlement.NewJournal(nil)
	uow := &lostCommit{UnitOfWork: s.store, failures: 1}
	service, err := New(uow, journal)
	s.Require().NoError(err)

	_, err = service.Withdraw(s.ctx, admin)
	s.Require().Error(err)
	s.Equal(paid, s.policy().Balance)

	withdrawal, err := service.Withdraw(s.ctx, admin)
	s.Require().NoError(err)
	s.Equal(paid, withdrawal.Amount)
	s.True(s.policy().Balance.IsZero())
	s.Equal(uint64(1), s.policy().WithdrawalSeq)

	sent := journal.Instructions()
	s.Require().Len(sent, 2)
	s.Equal(sent[0].ID, sent[1].ID, "a retried drain must reuse its instruction id")
	s.Equal(sent[0].Amount, sent[1].Amount)
	s.Equal(withdrawal.Instruction.ID, sent[1].ID)

	s.Run("the next committed drain gets a new id", func() {
		s.fund("bob", 1)
		next, err := service.Withdraw(s.ctx, admin)
		s.Require().NoError(err)
		s.NotEqual(sent[0].ID, next.Instruction.ID)
		s.Equal(uint64(2), next.Instruction.Sequence)
	})
}

func (s *TreasuryServiceSuite) TestBalanceAccounting() {
	s.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	first := s.fund("a", 1)
	second := s.fund("b", 3)
	withdrawal, err := s.service.Withdraw(s.ctx, admin)
	s.Require().NoError(err)
	s.Equal(new(uint256.Int).Add(first, second), withdrawal.Amount)

	_, err = s.ledger.Renew(s.ctx, alice, "a", 1, domain.MustParseAmount("60000000000000000"))
	s.Require().NoError(err)
	s.Equal(domain.MustParseAmount("60000000000000000"), s.policy().Balance)

	withdrawal, err = s.service.Withdraw(s.ctx, admin)
	s.Require().NoError(err)
	s.Equal(domain.MustParseAmount("60000000000000000"), withdrawal.Amount)
}

// =============================================================================
// Reads
// =============================================================================

func (s *TreasuryServiceSuite) TestQuote() {
	quote, err := s.service.Quote(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal("100000000000000000", quote.Registration.Dec())
	s.Equal("120000000000000000", quote.Renewal.Dec())

	_, err = s.service.Quote(s.ctx, 0)
	s.Equal(dErrors.ReasonTooShort, dErrors.ReasonOf(err))

	_, err = s.service.SetOneYearCharge(s.ctx, admin, new(uint256.Int).SetAllOne())
	s.Require().NoError(err)
	_, err = s.service.Quote(s.ctx, 2)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *TreasuryServiceSuite) TestUninitialisedPolicy() {
	svc, err := New(storage.NewMemory(), s.settler)
	s.Require().NoError(err)
	_, err = svc.Policy(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	_, err = svc.Withdraw(s.ctx, admin)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *TreasuryServiceSuite) TestAuditTrail() {
	s.fund("thomas", 1)
	_, err := s.service.SetRatio(s.ctx, admin, 15)
	s.Require().NoError(err)

	s.Run("admin reads policy events", func() {
		events, err := s.service.AuditTrail(s.ctx, admin, audit.SubjectPolicy)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventRenewRatioUpdated), events[0].Action)
		s.Equal("15", events[0].Amount)
	})

	s.Run("non-admin is denied", func() {
		_, err := s.service.AuditTrail(s.ctx, alice, "thomas")
		s.ErrorIs(err, models.ErrAdminOnly)
	})

	s.Run("reader failures are internal", func() {
		reader := mocks.NewMockAuditReader(s.ctrl)
		reader.EXPECT().List(gomock.Any(), "thomas").Return(nil, errors.New("db down"))
		svc, err := New(s.store, s.settler, WithAuditReader(reader))
		s.Require().NoError(err)

		_, err = svc.AuditTrail(s.ctx, admin, "thomas")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
