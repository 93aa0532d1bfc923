package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/milhas-next/internal/config"
	"github.com/milhas-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":" Finance.Lead "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("username")(c)
	if key != "finance.lead|1.2.3.4" {
		t.Fatalf("key want finance.lead|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Finance.Lead") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestKeyByAdminID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/admin/payouts/recompute", nil)
	c.Request.RemoteAddr = "5.6.7.8:1234"
	if key := KeyByAdminID(c); key != "5.6.7.8" {
		t.Fatalf("anonymous key want client ip got %s", key)
	}
	c.Set(adminIDContextKey, uint(9))
	if key := KeyByAdminID(c); key != "admin:9" {
		t.Fatalf("key want admin:9 got %s", key)
	}
}

func TestRateLimitMiddlewareWithoutLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{Window: time.Minute, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("request %d: expected handler response body, got %s", i, w.Body.String())
		}
	}
}

func TestRateLimitMiddlewareBlocksAfterMax(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := newLocalRateLimiter(time.Now)
	rule := NewRateLimitRule("milhas", "payout_recompute", config.RateLimitConfig{WindowSeconds: 60, MaxAttempts: 2})
	r := gin.New()
	r.POST("/recompute", RateLimitMiddleware(limiter, rule, KeyByAdminID), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/recompute", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		r.ServeHTTP(w, req)
		var body struct {
			StatusCode int `json:"status_code"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			codes = append(codes, 0)
			continue
		}
		codes = append(codes, body.StatusCode)
	}
	if codes[0] != 0 || codes[1] != 0 || codes[2] != response.CodeTooManyRequests {
		t.Fatalf("expected two passes then 429, got %v", codes)
	}
}

func TestLocalRateLimiterWindowExpires(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := newLocalRateLimiter(func() time.Time { return now })
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, _, err := limiter.Hit(ctx, "milhas:rate:admin_login:ana|1.2.3.4", time.Minute)
		if err != nil || count != want {
			t.Fatalf("count want %d got %d err %v", want, count, err)
		}
	}
	now = now.Add(30 * time.Second)
	_, retryAfter, _ := limiter.Hit(ctx, "milhas:rate:admin_login:ana|1.2.3.4", time.Minute)
	if retryAfter != 30*time.Second {
		t.Fatalf("retry after want 30s got %s", retryAfter)
	}
	now = now.Add(30 * time.Second)
	count, _, _ := limiter.Hit(ctx, "milhas:rate:admin_login:ana|1.2.3.4", time.Minute)
	if count != 1 {
		t.Fatalf("expected new window after expiry, got count %d", count)
	}
	if other, _, _ := limiter.Hit(ctx, "milhas:rate:admin_login:bia|1.2.3.4", time.Minute); other != 1 {
		t.Fatalf("keys must be counted separately, got %d", other)
	}
}

func TestNewRateLimitRuleDisabledByConfig(t *testing.T) {
	rule := NewRateLimitRule("milhas", "admin_login", config.RateLimitConfig{WindowSeconds: 0, MaxAttempts: 5})
	if rule.enabled() {
		t.Fatalf("zero window must disable the rule")
	}
	if rule.Prefix != "milhas:rate:admin_login" {
		t.Fatalf("unexpected prefix %s", rule.Prefix)
	}
}

func TestKeyByIPAndJSONFieldSkipsOversizedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	payload := `{"username":"ana","pad":"` + strings.Repeat("x", maxKeyBodyBytes) + `"}`
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(payload))
	c.Request.RemoteAddr = "1.2.3.4:5678"

	if key := KeyByIPAndJSONField("username")(c); key != "1.2.3.4" {
		t.Fatalf("oversized body should fall back to ip, got %s", key)
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read restored body failed: %v", err)
	}
	if string(body) != payload {
		t.Fatalf("restored body length want %d got %d", len(payload), len(body))
	}
}
