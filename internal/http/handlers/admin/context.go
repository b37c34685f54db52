package admin

import (
	handlershared "github.com/dujiao-next/payout-receipts/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.ContextUint(c, "admin_id")
}

func pathID(c *gin.Context, invalidKey string) (uint, bool) {
	return handlershared.PathID(c, "id", invalidKey)
}

func pageQuery(c *gin.Context) (int, int) {
	return handlershared.PageQuery(c)
}
