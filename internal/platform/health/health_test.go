package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nameledger/pkg/testutil"
)

func TestHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := func(context.Context) error { return nil }

	t.Run("all healthy", func(t *testing.T) {
		h := Handler(map[string]Check{"storage": ok, "cache": ok}, time.Second, logger)
		rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[Response](t, rr)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, map[string]string{"storage": "ok", "cache": "ok"}, resp.Checks)
	})

	t.Run("one failing check degrades", func(t *testing.T) {
		h := Handler(map[string]Check{
			"storage":    ok,
			"settlement": func(context.Context) error { return errors.New("broker unreachable") },
		}, time.Second, logger)
		rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		resp := testutil.UnmarshalResponse[Response](t, rr)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "broker unreachable", resp.Checks["settlement"])
		assert.Equal(t, "ok", resp.Checks["storage"])
	})

	t.Run("checks are bounded by the timeout", func(t *testing.T) {
		slow := func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}
		h := Handler(map[string]Check{"storage": slow}, 10*time.Millisecond, logger)
		rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
