package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info")

	var scoped *zerolog.Logger
	handler := middleware.RequestID(RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoped = zerolog.Ctx(r.Context())
		w.WriteHeader(http.StatusBadRequest)
	})))

	req := httptest.NewRequest(http.MethodPost, "/wc-api/fincra_webhook", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, scoped)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "http_request", line["message"])
	require.Equal(t, "/wc-api/fincra_webhook", line["path"])
	require.EqualValues(t, http.StatusBadRequest, line["status"])
	require.NotEmpty(t, line["request_id"])
}

type innerKey struct{}

func TestRequestLoggerEmitsTagsFromInnerHandlers(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info")

	r := chi.NewRouter()
	r.Use(RequestLogger{Logger: logger}.Middleware)
	r.Post("/api/v1/checkout/{orderId}/fincra", func(w http.ResponseWriter, r *http.Request) {
		// tags survive derived contexts created further down the chain
		inner := r.WithContext(context.WithValue(r.Context(), innerKey{}, "x"))
		Tag(inner.Context(), "order_ref", chi.URLParam(r, "orderId"))
		Tag(inner.Context(), "checkout_result", "success")
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/123/fincra", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "/api/v1/checkout/{orderId}/fincra", line["route"])
	require.Equal(t, "123", line["order_ref"])
	require.Equal(t, "success", line["checkout_result"])
}

func TestTagWithoutTagSetIsNoop(t *testing.T) {
	require.NotPanics(t, func() { Tag(context.Background(), "order_ref", "1") })
	require.Empty(t, RoutePatternFromContext(context.Background()))

	ctx := WithRoutePattern(context.Background(), "/health/live")
	require.Equal(t, "/health/live", RoutePatternFromContext(ctx))
}
