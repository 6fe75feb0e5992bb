package middleware

import (
	"context"
	"errors"
	"fishdisease-service/service/metrics"
	"fishdisease-service/service/rate_limiter"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAdminAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewAdminAuth("root", string(hash))

	var seen string
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetAdminFromContext(r.Context())
	}))

	cases := []struct {
		name       string
		user, pass string
		basic      bool
		want       int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "wrong password", user: "root", pass: "nope", basic: true, want: http.StatusUnauthorized},
		{name: "wrong user", user: "admin", pass: "pw", basic: true, want: http.StatusUnauthorized},
		{name: "ok", user: "root", pass: "pw", basic: true, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/config/x", nil)
			if tc.basic {
				req.SetBasicAuth(tc.user, tc.pass)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
	assert.Equal(t, "root", seen)
}

func TestAdminAuth_DisabledWithoutHash(t *testing.T) {
	h := NewAdminAuth("admin", "").Middleware(okHandler)
	req := httptest.NewRequest(http.MethodPost, "/knowledge/import", nil)
	req.SetBasicAuth("admin", "")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, rate_limiter.RateLimitRule, string) (*rate_limiter.RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func TestRateLimit(t *testing.T) {
	rule := rate_limiter.RateLimitRule{Name: "test", Window: time.Hour, MaxRequests: 1}
	h := RateLimit(rate_limiter.NewMemoryRateLimiter(), rule)(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/diagnosis", nil)
	req.RemoteAddr = "192.0.2.10:5000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	req.RemoteAddr = "192.0.2.10:5001"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	req.RemoteAddr = "192.0.2.11:5000"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_FailsOpenAndDisabled(t *testing.T) {
	rule := rate_limiter.RateLimitRule{Name: "test", Window: time.Hour, MaxRequests: 1}
	for _, h := range []http.Handler{
		RateLimit(failingLimiter{}, rule)(okHandler),
		RateLimit(nil, rule)(okHandler),
		RateLimit(rate_limiter.NewMemoryRateLimiter(), rate_limiter.RateLimitRule{Name: "off"})(okHandler),
	} {
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/diagnosis", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/diseases/{code}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/diseases/{code}", "404")
	before := testutil.ToFloat64(counter)

	for _, code := range []string{"P01", "P02"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/diseases/"+code, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}
