package shared

import (
	"github.com/dujiao-next/payout-receipts/internal/http/response"
	"github.com/dujiao-next/payout-receipts/internal/i18n"
	"github.com/dujiao-next/payout-receipts/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 携带 request_id 与 admin_id 的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	var fields []interface{}
	if id := c.GetString("request_id"); id != "" {
		fields = append(fields, "request_id", id)
	}
	if adminID := c.GetUint("admin_id"); adminID != 0 {
		fields = append(fields, "admin_id", adminID)
	}
	return logger.SW(fields...)
}

// RespondError 按 locale 翻译 key 后返回错误
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondErrorWithMsg(c, code, i18n.T(i18n.ResolveLocale(c), key), err)
}

// RespondErrorWithMsg 直接使用 msg 返回错误，err 非空时记录日志
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"path", c.FullPath(),
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}
