package middleware

import (
	"net/http"

	"paystream/internal/platform/address"
	"paystream/internal/transport/http/api"
)

// RoleChecker reports whether an address holds a ledger role.
type RoleChecker interface {
	IsOwner(addr address.Address) bool
	IsHR(addr address.Address) bool
}

// RequireManager lets through the owner and HR members only.
func RequireManager(checker RoleChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := GetCaller(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", GetRequestID(r.Context()))
				return
			}
			if !checker.IsOwner(caller) && !checker.IsHR(caller) {
				api.Fail(w, http.StatusForbidden, "forbidden", "owner or hr role required", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
