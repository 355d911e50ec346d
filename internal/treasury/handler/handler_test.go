package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"nameledger/internal/platform/middleware"
	"nameledger/internal/treasury/handler/mocks"
	"nameledger/internal/treasury/models"
	"nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/platform/audit"
	"nameledger/pkg/testutil"
)

var (
	admin = domain.MustParseAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	alice = domain.MustParseAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
)

type tokenTable map[string]domain.Address

func (t tokenTable) ValidateToken(token string) (*middleware.CallerClaims, error) {
	caller, ok := t[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &middleware.CallerClaims{Caller: caller, TokenID: token}, nil
}

type TreasuryHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	now     time.Time
}

func TestTreasuryHandlerSuite(t *testing.T) {
	suite.Run(t, new(TreasuryHandlerSuite))
}

func (s *TreasuryHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.now = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger, tokenTable{"admin-token": admin, "alice-token": alice}).Register(s.router)
}

func (s *TreasuryHandlerSuite) policy(charge string, ratio uint64, balance string) *models.PolicyState {
	return &models.PolicyState{
		Admin:         admin,
		OneYearCharge: domain.MustParseAmount(charge),
		RenewRatio:    ratio,
		Balance:       domain.MustParseAmount(balance),
		UpdatedAt:     s.now,
	}
}

func (s *TreasuryHandlerSuite) TestGetPolicy() {
	s.service.EXPECT().Policy(gomock.Any()).Return(s.policy("50000000000000000", 12, "0"), nil)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/policy", nil))
	s.Require().Equal(http.StatusOK, rr.Code)

	resp := testutil.UnmarshalResponse[PolicyResponse](s.T(), rr)
	s.Equal(admin.String(), resp.Admin)
	s.Equal("50000000000000000", resp.OneYearCharge)
	s.Equal(uint64(12), resp.RenewRatio)
	s.Equal("0", resp.Balance)
}

func (s *TreasuryHandlerSuite) TestQuote() {
	s.Run("prices both lease kinds", func() {
		s.service.EXPECT().Quote(gomock.Any(), 2).Return(&models.Quote{
			Years:        2,
			Registration: domain.MustParseAmount("100000000000000000"),
			Renewal:      domain.MustParseAmount("120000000000000000"),
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/policy/quote?years=2", nil))
		s.Require().Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[QuoteResponse](s.T(), rr)
		s.Equal("100000000000000000", resp.Registration)
		s.Equal("120000000000000000", resp.Renewal)
	})

	s.Run("years must be an integer", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/policy/quote?years=two", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *TreasuryHandlerSuite) TestSetOneYearCharge() {
	s.Run("admin updates the charge", func() {
		s.service.EXPECT().
			SetOneYearCharge(gomock.Any(), admin, uint256.NewInt(1000)).
			Return(s.policy("1000", 12, "0"), nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/policy/one-year-charge", SetChargeRequest{Amount: "1000"})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
		s.Require().Equal(http.StatusOK, rr.Code)
		s.Equal("1000", testutil.UnmarshalResponse[PolicyResponse](s.T(), rr).OneYearCharge)
	})

	s.Run("non-admin is denied", func() {
		s.service.EXPECT().
			SetOneYearCharge(gomock.Any(), alice, gomock.Any()).
			Return(nil, models.ErrAdminOnly)

		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/policy/one-year-charge", SetChargeRequest{Amount: "1"})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "alice-token"))
		body := testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "access_denied")
		s.Equal("admin_only", body.Reason)
	})

	s.Run("amount must be base-10", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/policy/one-year-charge", SetChargeRequest{Amount: "0x10"})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("requires a token", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/policy/one-year-charge", SetChargeRequest{Amount: "1"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *TreasuryHandlerSuite) TestSetRatio() {
	s.Run("admin updates the ratio", func() {
		s.service.EXPECT().SetRatio(gomock.Any(), admin, uint64(15)).Return(s.policy("50000000000000000", 15, "0"), nil)

		req := testutil.NewRequestWithBody(http.MethodPut, "/admin/policy/renew-ratio", "application/json", `{"value":15}`)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
		s.Require().Equal(http.StatusOK, rr.Code)
		s.Equal(uint64(15), testutil.UnmarshalResponse[PolicyResponse](s.T(), rr).RenewRatio)
	})

	s.Run("zero is a valid ratio", func() {
		s.service.EXPECT().SetRatio(gomock.Any(), admin, uint64(0)).Return(s.policy("50000000000000000", 0, "0"), nil)

		req := testutil.NewRequestWithBody(http.MethodPut, "/admin/policy/renew-ratio", "application/json", `{"value":0}`)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("missing value", func() {
		req := testutil.NewRequestWithBody(http.MethodPut, "/admin/policy/renew-ratio", "application/json", `{}`)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("negative value", func() {
		req := testutil.NewRequestWithBody(http.MethodPut, "/admin/policy/renew-ratio", "application/json", `{"value":-1}`)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *TreasuryHandlerSuite) TestWithdraw() {
	s.Run("reports the settlement instruction", func() {
		instruction := models.NewTransferInstruction(admin, 2, domain.MustParseAmount("110000000000000000"), s.now)
		s.service.EXPECT().Withdraw(gomock.Any(), admin).Return(&models.Withdrawal{
			Amount:      instruction.Amount,
			Instruction: instruction,
		}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/withdraw", nil)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
		s.Require().Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[WithdrawResponse](s.T(), rr)
		s.Equal("110000000000000000", resp.Amount)
		s.Equal(instruction.ID.String(), resp.InstructionID)
		s.Equal(uint64(2), resp.Sequence)
		s.Equal(admin.String(), resp.Recipient)
	})

	s.Run("empty treasury", func() {
		s.service.EXPECT().Withdraw(gomock.Any(), admin).Return(&models.Withdrawal{Amount: new(uint256.Int)}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/withdraw", nil)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
		s.Require().Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[WithdrawResponse](s.T(), rr)
		s.Equal("0", resp.Amount)
		s.Empty(resp.InstructionID)
	})

	s.Run("settlement unavailable", func() {
		s.service.EXPECT().Withdraw(gomock.Any(), admin).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "settlement is unavailable"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/withdraw", nil)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "unavailable")
	})

	s.Run("internal failures hide details", func() {
		s.service.EXPECT().Withdraw(gomock.Any(), admin).
			Return(nil, dErrors.Wrap(errors.New("disk on fire"), dErrors.CodeInternal, "failed"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/withdraw", nil)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
		body := testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
		s.Empty(body.ErrorDescription)
	})
}

func (s *TreasuryHandlerSuite) TestAuditTrail() {
	event := audit.Event{
		ID:        uuid.New(),
		Category:  audit.CategoryCompliance,
		Timestamp: s.now,
		Actor:     alice,
		Subject:   "thomas",
		Action:    string(audit.EventNameRegistered),
		Years:     2,
		Amount:    "100000000000000000",
	}
	s.service.EXPECT().AuditTrail(gomock.Any(), admin, "thomas").Return([]audit.Event{event}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/admin/audit/thomas", nil)
	rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
	s.Require().Equal(http.StatusOK, rr.Code)

	resp := testutil.UnmarshalResponse[AuditTrailResponse](s.T(), rr)
	s.Equal("thomas", resp.Subject)
	s.Require().Len(resp.Events, 1)
	s.Equal("name_registered", resp.Events[0].Action)
	s.Equal(alice.String(), resp.Events[0].Actor)
	s.Equal(2, resp.Events[0].Years)
}
