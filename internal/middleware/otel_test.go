package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"soilhub/internal/infrastructure"
	"soilhub/internal/shared/testutil"
)

func newTestProviders(t *testing.T) (*infrastructure.OTelProviders, *tracetest.SpanRecorder) {
	t.Helper()

	logger, _ := testutil.NewTestLogger(t)
	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	providers.Tracer = tp.Tracer("test")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
		_ = providers.Shutdown(ctx)
	})
	return providers, recorder
}

func TestNewOTelMiddleware_RequiresProviders(t *testing.T) {
	_, err := NewOTelMiddleware(nil, nil)
	assert.Error(t, err)
}

func TestOTelMiddleware_Handler(t *testing.T) {
	providers, recorder := newTestProviders(t)
	metrics, err := infrastructure.CreateAnalysisMetrics(providers.Meter)
	require.NoError(t, err)

	mw, err := NewOTelMiddleware(providers, metrics)
	require.NoError(t, err)

	var traceID string
	router := chi.NewRouter()
	router.Use(RequestID)
	router.Use(mw.Handler)
	router.Get("/api/datasets/{id}", func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})
	router.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/20240101_120000", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, w.Header().Get(RequestIDHeader), traceID, "request id stays the log trace id")

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "GET /api/datasets/{id}", spans[0].Name())
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "/api/datasets/{id}", attrs["http.route"])
	assert.Equal(t, "404", attrs["http.response.status_code"])
	assert.NotEqual(t, codes.Error, spans[0].Status().Code, "4xx is not a server fault")
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()
	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "http_requests_total")
	assert.Contains(t, text, `route="/api/datasets/{id}"`)
	assert.Contains(t, text, "http_request_duration_seconds")
}

func TestOTelMiddleware_SetsTraceIDWithoutRequestID(t *testing.T) {
	providers, _ := newTestProviders(t)
	mw, err := NewOTelMiddleware(providers, nil)
	require.NoError(t, err)

	var traceID string
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, traceID, 32)
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)
	n, err := rw.Write([]byte("abc"))
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, http.StatusCreated, rw.statusCode)
	assert.EqualValues(t, 3, rw.bytesWritten)
}

func TestTraceMiddleware(t *testing.T) {
	var hasSpan bool
	router := chi.NewRouter()
	router.With(TraceMiddleware("dataset.preview")).Get("/api/datasets/{id}/preview", func(w http.ResponseWriter, r *http.Request) {
		hasSpan = r.Context() != nil
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/x/preview", nil))
	assert.True(t, hasSpan)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, want: "10.0.0.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "10.0.0.9"}, want: "10.0.0.9"},
		{name: "remote addr", want: "192.0.2.1:1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealIP(r))
		})
	}
}
