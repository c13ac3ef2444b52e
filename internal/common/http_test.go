package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fincra-gateway/internal/common"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{name: "remote addr", remoteAddr: "10.0.0.8:43110", want: "10.0.0.8"},
		{name: "forwarded chain", forwarded: "203.0.113.7, 10.0.0.1", remoteAddr: "10.0.0.1:80", want: "203.0.113.7"},
		{name: "forwarded with port", forwarded: "203.0.113.7:5050", remoteAddr: "10.0.0.1:80", want: "203.0.113.7"},
		{name: "garbage forwarded skipped", forwarded: "unknown, 198.51.100.4", remoteAddr: "10.0.0.1:80", want: "198.51.100.4"},
		{name: "real ip", forwarded: "nonsense", realIP: "198.51.100.9", remoteAddr: "10.0.0.1:80", want: "198.51.100.9"},
		{name: "ipv6 remote", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "mapped ipv4", forwarded: "::ffff:192.0.2.10", want: "192.0.2.10"},
		{name: "unparseable remote", remoteAddr: "pipe", want: "pipe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/wc-api/fincra_webhook", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			require.Equal(t, tc.want, common.ClientIP(req))
		})
	}
	require.Empty(t, common.ClientIP(nil))
}
