package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"nameledger/internal/platform/middleware"
	"nameledger/internal/treasury/models"
	"nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/platform/audit"
	"nameledger/pkg/platform/httputil"
	"nameledger/pkg/requestcontext"
)

// Service defines the interface for treasury operations.
type Service interface {
	SetOneYearCharge(ctx context.Context, caller domain.Address, amount *uint256.Int) (*models.PolicyState, error)
	SetRatio(ctx context.Context, caller domain.Address, ratio uint64) (*models.PolicyState, error)
	Withdraw(ctx context.Context, caller domain.Address) (*models.Withdrawal, error)
	Policy(ctx context.Context) (*models.PolicyState, error)
	Quote(ctx context.Context, years int) (*models.Quote, error)
	AuditTrail(ctx context.Context, caller domain.Address, subject string) ([]audit.Event, error)
}

// Handler handles policy and admin endpoints.
type Handler struct {
	logger    *slog.Logger
	treasury  Service
	validator middleware.CallerValidator
	timeout   time.Duration
}

// New creates a new treasury Handler.
func New(treasury Service, logger *slog.Logger, validator middleware.CallerValidator) *Handler {
	return &Handler{
		logger:    logger,
		treasury:  treasury,
		validator: validator,
		timeout:   30 * time.Second,
	}
}

// Register registers the policy and admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(h.timeout))
		r.Use(middleware.ContentTypeJSON)
		r.Get("/policy", h.handleGetPolicy)
		r.Get("/policy/quote", h.handleQuote)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireCaller(h.validator, h.logger))
			r.Put("/policy/one-year-charge", h.handleSetOneYearCharge)
			r.Put("/policy/renew-ratio", h.handleSetRatio)
			r.Post("/withdraw", h.handleWithdraw)
			r.Get("/audit/{subject}", h.handleAuditTrail)
		})
	})
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.treasury.Policy(r.Context())
	if err != nil {
		h.writeError(w, r, "get_policy", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPolicyResponse(policy))
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	years, err := strconv.Atoi(r.URL.Query().Get("years"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "years query parameter must be an integer"))
		return
	}
	quote, err := h.treasury.Quote(r.Context(), years)
	if err != nil {
		h.writeError(w, r, "quote", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toQuoteResponse(quote))
}

func (h *Handler) handleSetOneYearCharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SetChargeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	policy, err := h.treasury.SetOneYearCharge(ctx, requestcontext.Caller(ctx), amount)
	if err != nil {
		h.writeError(w, r, "set_one_year_charge", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPolicyResponse(policy))
}

func (h *Handler) handleSetRatio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SetRatioRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Value == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "value is required"))
		return
	}

	policy, err := h.treasury.SetRatio(ctx, requestcontext.Caller(ctx), *req.Value)
	if err != nil {
		h.writeError(w, r, "set_ratio", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPolicyResponse(policy))
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	withdrawal, err := h.treasury.Withdraw(ctx, requestcontext.Caller(ctx))
	if err != nil {
		h.writeError(w, r, "withdraw", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toWithdrawResponse(withdrawal))
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := chi.URLParam(r, "subject")
	events, err := h.treasury.AuditTrail(ctx, requestcontext.Caller(ctx), subject)
	if err != nil {
		h.writeError(w, r, "audit_trail", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditTrailResponse(subject, events))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	ctx := r.Context()
	h.logger.InfoContext(ctx, "treasury request failed",
		"operation", operation,
		"code", string(dErrors.CodeOf(err)),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, err)
}
