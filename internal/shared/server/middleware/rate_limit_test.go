package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimitAuthStricterThanDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	groupFor := func(c *gin.Context) string {
		if c.FullPath() == "/api/v1/auth/sign-in" {
			return "AUTH"
		}
		return "DEFAULT"
	}

	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor:     groupFor,
		Limiter:      limiter,
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 5, Burst: 10},
			"AUTH":    {Rate: 0.1, Burst: 2},
		},
	}))
	r.POST("/api/v1/auth/sign-in", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/api/v1/documents", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/sign-in", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("auth request %d expected 200, got %d", i+1, resp.Code)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/sign-in", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("auth request 3 expected 429, got %d", resp.Code)
	}

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("default request %d expected 200, got %d", i+1, resp.Code)
		}
	}
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		SetIdentity(c, Identity{UserID: "user-1"})
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		Limiter: limiter,
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 1, Burst: 1},
		},
	}))
	r.GET("/api/v1/limited", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, httptest.NewRequest(http.MethodGet, "/api/v1/limited", nil))
	if resp1.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp1.Code)
	}

	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, httptest.NewRequest(http.MethodGet, "/api/v1/limited", nil))
	if resp2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp2.Code)
	}
	if resp2.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After 1, got %q", resp2.Header().Get("Retry-After"))
	}

	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]int `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" {
		t.Fatalf("expected code rate_limited, got %q", payload.Error.Code)
	}
	if payload.Error.Details["retryAfterMs"] != 1000 {
		t.Fatalf("expected retryAfterMs 1000, got %d", payload.Error.Details["retryAfterMs"])
	}

	now = now.Add(time.Second)
	resp3 := httptest.NewRecorder()
	r.ServeHTTP(resp3, httptest.NewRequest(http.MethodGet, "/api/v1/limited", nil))
	if resp3.Code != http.StatusOK {
		t.Fatalf("expected request after refill 200, got %d", resp3.Code)
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 1, Burst: 2}

	for i := 0; i < 50; i++ {
		if ok, _ := limiter.Allow("10.0.0."+strconv.Itoa(i)+"|DEFAULT", rule); !ok {
			t.Fatalf("first request for client %d should pass", i)
		}
	}
	if got := limiter.size(); got != 50 {
		t.Fatalf("expected 50 buckets, got %d", got)
	}

	now = now.Add(5 * time.Minute)
	limiter.Allow("active|DEFAULT", rule)
	if got := limiter.size(); got != 51 {
		t.Fatalf("buckets idle under the TTL must survive, got %d", got)
	}

	now = now.Add(rateLimitIdleTTL)
	limiter.Allow("active|DEFAULT", rule)
	if got := limiter.size(); got != 1 {
		t.Fatalf("expected only the active bucket after sweep, got %d", got)
	}
}

func TestRateLimiterKeepsDrainedBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	slow := RateLimitRule{Rate: 0.001, Burst: 1}

	if ok, _ := limiter.Allow("attacker|AUTH", slow); !ok {
		t.Fatal("first request should pass")
	}
	limiter.Allow("other|DEFAULT", slow)

	now = now.Add(rateLimitIdleTTL + rateLimitSweep)
	limiter.Allow("other|DEFAULT", slow)
	if ok, _ := limiter.Allow("attacker|AUTH", slow); ok {
		t.Fatal("eviction must not reset a bucket that has not refilled")
	}
}
