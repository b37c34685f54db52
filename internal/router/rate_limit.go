package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/http/response"
	"github.com/dujiao-next/payout-receipts/internal/i18n"
	"github.com/dujiao-next/payout-receipts/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

// 返回 {当前计数, 剩余秒数}
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("TTL", KEYS[1])}
`)

// hitWindow 计数并返回剩余等待秒数，未超限时为 0
func hitWindow(ctx context.Context, client *redis.Client, key string, rule RateLimitRule) (int, error) {
	values, err := fixedWindowScript.Run(ctx, client, []string{key}, rule.WindowSeconds).Int64Slice()
	if err != nil {
		return 0, err
	}
	if len(values) < 2 {
		return 0, fmt.Errorf("unexpected rate limit reply: %v", values)
	}
	if values[0] <= int64(rule.MaxRequests) {
		return 0, nil
	}
	wait := int(values[1])
	if wait < 1 {
		wait = rule.WindowSeconds
	}
	return wait, nil
}

// RateLimitMiddleware Redis 频率限制，client 为空或规则未配置时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	messageKey := strings.TrimSpace(rule.MessageKey)
	if messageKey == "" {
		messageKey = "error.rate_limited"
	}
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = rule.Prefix + ":" + key
		}

		wait, err := hitWindow(c.Request.Context(), client, key, rule)
		if err != nil {
			logger.Warnw("rate_limit_check_failed", "key", key, "error", err)
			response.Error(c, response.CodeInternal, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			c.Abort()
			return
		}
		if wait > 0 {
			c.Header("Retry-After", strconv.Itoa(wait))
			response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), messageKey, wait))
			c.Abort()
			return
		}
		c.Next()
	}
}

// KeyByAdminAndParam 管理员 ID + 路由参数（如任务 ID），未登录时退回 IP
func KeyByAdminAndParam(param string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		adminID := c.GetUint(adminIDContextKey)
		if adminID == 0 {
			return c.ClientIP()
		}
		value := strings.TrimSpace(c.Param(param))
		if value == "" {
			return fmt.Sprintf("admin:%d", adminID)
		}
		return fmt.Sprintf("admin:%d|%s", adminID, value)
	}
}

// KeyByIPAndJSONField 请求体字段（小写）+ IP，读取后回填 body
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(readJSONField(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload[field], &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
