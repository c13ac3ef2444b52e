package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fincra-gateway/internal/auth"
	"github.com/noah-isme/fincra-gateway/internal/gateway"
	"github.com/noah-isme/fincra-gateway/internal/health"
	"github.com/noah-isme/fincra-gateway/internal/settings"
)

func testRouter() http.Handler {
	return newRouter(routerDeps{
		Logger:       zerolog.Nop(),
		Health:       health.Handler{},
		Storefront:   &gateway.Handler{},
		Webhook:      &gateway.Webhook{},
		WebhookLimit: 64,
		Settings:     &settings.Handler{},
		Admin:        auth.Middleware{Verifier: auth.NewVerifier("secret", "")},
	})
}

func TestRouterMountsBothWebhookPaths(t *testing.T) {
	router := testRouter()
	for _, path := range []string{"/wc-api/fincra_webhook", "/api/v1/webhooks/fincra"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`)))
		// an unconfigured handler answers 500, which proves the route exists
		require.Equal(t, http.StatusInternalServerError, rec.Code, path)
	}
}

func TestRouterLimitsWebhookBody(t *testing.T) {
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"event":"collection.successful","data":{"reference":"1234567890","id":"trx-000000000000"}}`)
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wc-api/fincra_webhook", body))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouterGuardsAdminSettings(t *testing.T) {
	router := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/gateway/fincra", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.NewVerifier("secret", "").Issue("admin-1", auth.RoleAdmin, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/gateway/fincra", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouterLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouterOrderReceivedIsUncacheable(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/checkout/order-received/1", nil))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
