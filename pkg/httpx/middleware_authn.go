package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jcoliz/NuxtIdentity-sub000/pkg/jwtx"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/slogx"
)

// AuthnMiddleware verifies the bearer access token and injects the subject
// and claims into the request context. Every failure produces the same 401;
// the specific verification error is only logged.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw, time.Now().UTC())
			if err != nil {
				log.Warn("access token verification failed", "err", err)
				writeBearerError(w)
				return
			}

			ctx = context.WithValue(ctx, CtxKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-style bearer challenge. Deliberately does not say which check
// failed.
func writeBearerError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
}
