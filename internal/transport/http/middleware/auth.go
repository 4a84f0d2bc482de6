package middleware

import (
	"context"
	"net/http"
	"strings"

	"paystream/internal/auth"
	"paystream/internal/platform/address"
	"paystream/internal/requestctx"
	"paystream/internal/transport/http/api"
)

// Auth resolves the Bearer token into a caller address. Requests without a
// valid token pass through anonymous; RequireCaller rejects them where needed.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			caller, err := claims.Caller()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestctx.WithCaller(r.Context(), caller)))
		})
	}
}

func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetCaller(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetCaller(ctx context.Context) (address.Address, bool) {
	return requestctx.GetCaller(ctx)
}
