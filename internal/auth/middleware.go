package auth

import (
	"net/http"
	"strings"

	"github.com/noah-isme/fincra-gateway/internal/common"
	"github.com/noah-isme/fincra-gateway/internal/obs"
)

// Middleware guards admin routes with bearer tokens.
type Middleware struct {
	Verifier *Verifier
}

// RequireAdmin rejects requests without a valid admin bearer token and
// stores the token subject on the request context.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Verifier == nil {
			common.JSONError(w, http.StatusInternalServerError, "AUTH_NOT_CONFIGURED", "authentication unavailable", nil)
			return
		}
		token := bearerToken(r)
		if token == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		sub, err := m.Verifier.Subject(token)
		if err != nil {
			if appErr, ok := common.AsAppError(err); ok {
				common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, nil)
				return
			}
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		obs.Tag(r.Context(), "subject", sub)
		next.ServeHTTP(w, r.WithContext(common.WithSubject(r.Context(), sub)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
