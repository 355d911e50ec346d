package httpserver

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		srv := New(":0", http.NotFoundHandler())
		assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
		assert.Equal(t, 45*time.Second, srv.WriteTimeout)
		assert.Nil(t, srv.ErrorLog)
	})

	t.Run("options", func(t *testing.T) {
		srv := New(":0", http.NotFoundHandler(),
			WithWriteTimeout(time.Minute),
			WithErrorLog(slog.Default()),
		)
		assert.Equal(t, time.Minute, srv.WriteTimeout)
		assert.NotNil(t, srv.ErrorLog)
	})

	t.Run("non-positive write timeout keeps default", func(t *testing.T) {
		srv := New(":0", http.NotFoundHandler(), WithWriteTimeout(0))
		assert.Equal(t, 45*time.Second, srv.WriteTimeout)
	})
}
