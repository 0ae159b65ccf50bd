package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2"), "other clients are unaffected")

	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusOK, do("10.0.0.1"), "window resets after inactivity")
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.allow("a")
	now = now.Add(30 * time.Second)
	rl.allow("b")
	now = now.Add(45 * time.Second)

	rl.sweep()

	assert.NotContains(t, rl.visitors, "a")
	assert.Contains(t, rl.visitors, "b")
}
