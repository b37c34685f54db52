package shared

import (
	"strconv"
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ContextUint 读取中间件写入的 uint 值，缺失或类型不符时返回 401
func ContextUint(c *gin.Context, key string) (uint, bool) {
	value, ok := c.Get(key)
	if !ok {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	id, ok := value.(uint)
	if !ok || id == 0 {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	return id, true
}

// PathID 解析路径中的正整数 ID，非法时以 invalidKey 返回 400
func PathID(c *gin.Context, name, invalidKey string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, invalidKey, nil)
		return 0, false
	}
	return uint(id), true
}

// QueryUint 解析可选的 uint 查询参数，缺省为 0
func QueryUint(c *gin.Context, key string) (uint, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
