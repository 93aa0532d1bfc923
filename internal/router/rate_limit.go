package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/milhas-next/internal/config"
	"github.com/milhas-next/internal/http/response"
	"github.com/milhas-next/internal/i18n"
	"github.com/milhas-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// maxKeyBodyBytes 提取限流字段时最多读取的请求体长度
const maxKeyBodyBytes = 16 << 10

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix      string
	Window      time.Duration
	MaxRequests int
	MessageKey  string
}

// NewRateLimitRule 由配置生成规则，key 形如 <prefix>:rate:<name>:<subject>
func NewRateLimitRule(prefix, name string, cfg config.RateLimitConfig) RateLimitRule {
	return RateLimitRule{
		Prefix:      fmt.Sprintf("%s:rate:%s", prefix, name),
		Window:      time.Duration(cfg.WindowSeconds) * time.Second,
		MaxRequests: cfg.MaxAttempts,
		MessageKey:  "error.rate_limited",
	}
}

func (r RateLimitRule) enabled() bool {
	return r.Window >= time.Second && r.MaxRequests > 0
}

// RateLimiter 固定窗口计数器
type RateLimiter interface {
	// Hit 记录一次请求，返回窗口内的累计次数与窗口剩余时间
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// NewRateLimiter Redis 可用时多实例共享计数，否则退回进程内计数
func NewRateLimiter(client *redis.Client) RateLimiter {
	if client == nil {
		return newLocalRateLimiter(time.Now)
	}
	return &redisRateLimiter{client: client}
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

type redisRateLimiter struct {
	client *redis.Client
}

func (l *redisRateLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	values, err := rateLimitScript.Run(ctx, l.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) < 2 {
		return 0, 0, fmt.Errorf("rate limit script returned %d values", len(values))
	}
	return values[0], time.Duration(values[1]) * time.Millisecond, nil
}

type localWindow struct {
	count    int64
	expireAt time.Time
}

type localRateLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]localWindow
}

func newLocalRateLimiter(now func() time.Time) *localRateLimiter {
	return &localRateLimiter{now: now, windows: make(map[string]localWindow)}
}

func (l *localRateLimiter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if len(l.windows) > 1024 {
		for k, w := range l.windows {
			if !now.Before(w.expireAt) {
				delete(l.windows, k)
			}
		}
	}
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expireAt) {
		w = localWindow{expireAt: now.Add(window)}
	}
	w.count++
	l.windows[key] = w
	return w.count, w.expireAt.Sub(now), nil
}

// RateLimitMiddleware 频率限制中间件，limiter 为 nil 或规则未配置时不限流
func RateLimitMiddleware(limiter RateLimiter, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || !rule.enabled() {
			c.Next()
			return
		}

		subject := ""
		if keyFunc != nil {
			subject = strings.TrimSpace(keyFunc(c))
		}
		if subject == "" {
			subject = c.ClientIP()
		}
		key := subject
		if rule.Prefix != "" {
			key = rule.Prefix + ":" + subject
		}

		count, retryAfter, err := limiter.Hit(c.Request.Context(), key, rule.Window)
		if err != nil {
			logger.Ctx(c.Request.Context()).Warnw("rate_limit_unavailable", "rule", rule.Prefix, "error", err)
			response.Error(c, response.CodeInternal, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			c.Abort()
			return
		}
		if count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}

		waitSeconds := int((retryAfter + time.Second - 1) / time.Second)
		if waitSeconds < 1 {
			waitSeconds = int(rule.Window / time.Second)
		}
		msgKey := strings.TrimSpace(rule.MessageKey)
		if msgKey == "" {
			msgKey = "error.rate_limited"
		}
		logger.Ctx(c.Request.Context()).Infow("rate_limited", "rule", rule.Prefix, "subject", subject, "count", count)
		response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds))
		c.Abort()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByAdminID 使用当前管理员 ID 作为限流 key，未登录时退回 IP
func KeyByAdminID(c *gin.Context) string {
	if adminID := c.GetUint(adminIDContextKey); adminID > 0 {
		return fmt.Sprintf("admin:%d", adminID)
	}
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 JSON 字段 + IP 作为限流 key，字段缺失时只用 IP
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(peekJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// peekJSONField 读取请求体中的字符串字段，并把已读部分放回请求体供后续绑定
func peekJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	head, err := io.ReadAll(io.LimitReader(c.Request.Body, maxKeyBodyBytes+1))
	c.Request.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), c.Request.Body), c.Request.Body}
	if err != nil || len(head) == 0 || len(head) > maxKeyBodyBytes {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(head, &payload); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload[field], &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
