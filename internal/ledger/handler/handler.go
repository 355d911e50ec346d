package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"nameledger/internal/ledger/models"
	"nameledger/internal/platform/middleware"
	"nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/platform/httputil"
	"nameledger/pkg/requestcontext"
)

// Service defines the interface for ledger operations.
type Service interface {
	Register(ctx context.Context, caller domain.Address, name string, years int, payment *uint256.Int) (*models.LeaseRecord, error)
	Renew(ctx context.Context, caller domain.Address, name string, years int, payment *uint256.Int) (*models.LeaseRecord, error)
	Domain(ctx context.Context, name string) (*models.LeaseRecord, error)
}

// Handler handles lease endpoints.
type Handler struct {
	logger    *slog.Logger
	ledger    Service
	validator middleware.CallerValidator
	timeout   time.Duration
}

// New creates a new ledger Handler.
func New(ledger Service, logger *slog.Logger, validator middleware.CallerValidator) *Handler {
	return &Handler{
		logger:    logger,
		ledger:    ledger,
		validator: validator,
		timeout:   30 * time.Second,
	}
}

// Register registers the lease routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(h.timeout))
		r.Use(middleware.ContentTypeJSON)
		r.Get("/domains/{name}", h.handleDomain)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCaller(h.validator, h.logger))
			r.Post("/domains/{name}/register", h.handleRegister)
			r.Post("/domains/{name}/renew", h.handleRenew)
		})
	})
}

func (h *Handler) handleDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := h.nameParam(w, r)
	if !ok {
		return
	}

	lease, err := h.ledger.Domain(ctx, name)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load lease",
			"name", name,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLeaseResponse(lease, requestcontext.Now(ctx)))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	h.handleLease(w, r, "register", h.ledger.Register)
}

func (h *Handler) handleRenew(w http.ResponseWriter, r *http.Request) {
	h.handleLease(w, r, "renew", h.ledger.Renew)
}

type leaseOp func(ctx context.Context, caller domain.Address, name string, years int, payment *uint256.Int) (*models.LeaseRecord, error)

func (h *Handler) handleLease(w http.ResponseWriter, r *http.Request, operation string, op leaseOp) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	// RequireCaller has already validated the token and set the caller.
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		h.logger.ErrorContext(ctx, "caller missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	name, ok := h.nameParam(w, r)
	if !ok {
		return
	}

	var req LeaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid lease request",
			"operation", operation,
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	payment, err := domain.ParseAmount(req.Payment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	lease, err := op(ctx, caller, name, req.Years, payment)
	if err != nil {
		h.logger.InfoContext(ctx, "lease operation rejected",
			"operation", operation,
			"name", name,
			"caller", caller.String(),
			"code", string(dErrors.CodeOf(err)),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLeaseResponse(lease, requestcontext.Now(ctx)))
}

func (h *Handler) nameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if err := models.ValidateName(name); err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return name, true
}
