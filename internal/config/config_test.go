package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fincra-gateway/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost/fincra",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	env := baseEnv()
	env["FINCRA_REQUEST_TIMEOUT"] = ""
	env["STORE_CURRENCY"] = ""
	env["PUBLIC_BASE_URL"] = "https://shop.example/"

	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, cfg.FincraRequestTimeout)
	require.Equal(t, "NGN", cfg.StoreCurrency)
	require.Equal(t, "https://shop.example", cfg.PublicBaseURL)
	require.Equal(t, "https://sandboxapi.fincra.com", cfg.FincraSandboxBaseURL)
	require.Equal(t, "https://api.fincra.com", cfg.FincraProductionBaseURL)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""

	_, err := config.LoadForTests(env)
	require.EqualError(t, err, "DATABASE_URL is required")
}

func TestLoadRejectsInvalidCurrency(t *testing.T) {
	env := baseEnv()
	env["STORE_CURRENCY"] = "naira"

	_, err := config.LoadForTests(env)
	require.Error(t, err)
}

func TestHTTPAddr(t *testing.T) {
	cfg := &config.Config{Port: "9000"}
	require.Equal(t, ":9000", cfg.HTTPAddr())
	cfg.Port = ":7000"
	require.Equal(t, ":7000", cfg.HTTPAddr())
}
