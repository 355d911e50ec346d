package testutil

import (
	"net/http"
	"time"

	"nameledger/pkg/domain"
	"nameledger/pkg/requestcontext"
)

// WithCaller simulates the bearer middleware by placing an authenticated
// caller address on the request context.
func WithCaller(req *http.Request, caller domain.Address) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithTime pins the request clock so expiry assertions are deterministic.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
