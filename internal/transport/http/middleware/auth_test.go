package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paystream/internal/auth"
	"paystream/internal/platform/address"
)

var testCaller = address.MustParse("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

func TestAuthMiddlewareSetsCaller(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, "paystream", testCaller, time.Hour, time.Now())
	require.NoError(t, err)

	var seen address.Address
	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := GetCaller(r.Context())
		require.True(t, ok)
		seen = caller
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, testCaller, seen)
}

func TestAuthMiddlewareIgnoresBadTokens(t *testing.T) {
	other, err := auth.GenerateToken("other-secret", "paystream", testCaller, time.Hour, time.Now())
	require.NoError(t, err)
	expired, err := auth.GenerateToken("secret", "paystream", testCaller, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer " + other, "Bearer " + expired} {
		handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := GetCaller(r.Context())
			assert.False(t, ok, header)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func TestRequireCallerRejectsAnonymous(t *testing.T) {
	called := false
	handler := RequireCaller(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/streams", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

type staticRoles struct {
	owner address.Address
	hr    map[address.Address]bool
}

func (s staticRoles) IsOwner(addr address.Address) bool { return addr == s.owner }
func (s staticRoles) IsHR(addr address.Address) bool    { return s.hr[addr] }

func TestRequireManager(t *testing.T) {
	hrMember := address.MustParse("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	roles := staticRoles{owner: testCaller, hr: map[address.Address]bool{hrMember: true}}
	stranger := address.MustParse("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")

	cases := []struct {
		name   string
		caller address.Address
		status int
	}{
		{"owner", testCaller, http.StatusNoContent},
		{"hr", hrMember, http.StatusNoContent},
		{"stranger", stranger, http.StatusForbidden},
		{"anonymous", address.Zero, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequireManager(roles)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
			req = req.WithContext(withCaller(req, tc.caller))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
