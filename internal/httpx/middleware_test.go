package httpx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoRequestID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, RequestIDFromCtx(r.Context()))
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	h := RequestIDMiddleware(echoRequestID())

	t.Run("keeps incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/artists", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Body.String())
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})

	t.Run("generates uuid", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artists", nil))
		_, err := uuid.Parse(rec.Body.String())
		require.NoError(t, err)
		assert.Equal(t, rec.Body.String(), rec.Header().Get(RequestIDHeader))
	})
}

func TestMaintenanceMiddleware(t *testing.T) {
	on := true
	h := MaintenanceMiddleware(func() bool { return on })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/songs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	on = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/songs", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	h := LoggingMiddleware(RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/genres", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsUseRoutePattern(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/artists/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	for _, name := range []string{"queen", "blur"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/artists/"+name, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",route="/artists/{name}",status="404"} 2`)
	assert.Contains(t, body, `http_request_duration_seconds_count{method="GET",route="/artists/{name}"} 2`)
	assert.Contains(t, body, "http_inflight_requests 0")
}
