package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/authz"
	"github.com/dujiao-next/payout-receipts/internal/config"
	adminhandlers "github.com/dujiao-next/payout-receipts/internal/http/handlers/admin"
	"github.com/dujiao-next/payout-receipts/internal/http/response"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "pr"
	}
	redisClient := c.Cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.rate_limit_login",
	}
	payoutStepRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:payout_step", redisPrefix),
		WindowSeconds: cfg.Security.StepRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.StepRateLimit.MaxAttempts,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)
			// 付款文件下载使用签名令牌
			admin.GET("/payouts/jobs/:id/download", adminHandler.DownloadPayoutFile)

			authorized := admin.Group("")
			authorized.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AuthService), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 付款批处理
				authorized.GET("/payouts/export-types", adminHandler.ListPayoutExportTypes)
				authorized.POST("/payouts/jobs", adminHandler.CreatePayoutJob)
				authorized.GET("/payouts/jobs/:id", adminHandler.GetPayoutJob)
				authorized.POST("/payouts/jobs/:id/step", RateLimitMiddleware(redisClient, payoutStepRule, KeyByAdminAndParam("id")), adminHandler.RunPayoutJobStep)
				authorized.GET("/payouts/settings", adminHandler.GetPayoutSettings)
				authorized.PUT("/payouts/settings", adminHandler.UpdatePayoutSettings)
				authorized.GET("/payouts/template-tags", adminHandler.GetPayoutTemplateTags)

				// 佣金与收款资料
				authorized.GET("/commissions", adminHandler.GetAdminCommissions)
				authorized.GET("/commissions/statuses", adminHandler.GetCommissionStatuses)
				authorized.GET("/commissions/users", adminHandler.GetCommissionUsers)
				authorized.PUT("/users/:id/payout-profile", adminHandler.UpdateUserPayoutProfile)
				authorized.POST("/payments/:id/commission-alerts", adminHandler.TriggerCommissionAlerts)

				// 邮件设置
				authorized.GET("/settings/smtp", adminHandler.GetSMTPSettings)
				authorized.PUT("/settings/smtp", adminHandler.UpdateSMTPSettings)
				authorized.POST("/settings/smtp/test", adminHandler.TestSMTPSettings)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r, c.BatchExportService.Types()))
				})
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// 无需 RBAC 的管理端路由
var publicAdminRoutes = map[string]struct{}{
	"/api/v1/admin/login":                     {},
	"/api/v1/admin/payouts/jobs/:id/download": {},
}

// buildAdminPermissionCatalog 路由权限 + 每个导出类型的 EXPORT 权限
func buildAdminPermissionCatalog(engine *gin.Engine, exportTypes []string) []adminPermissionCatalogItem {
	items := make([]adminPermissionCatalogItem, 0)
	seen := make(map[string]struct{})
	add := func(module, method, object string) {
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			return
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{Module: module, Method: method, Object: object, Permission: permission})
	}

	if engine != nil {
		for _, route := range engine.Routes() {
			method := strings.ToUpper(strings.TrimSpace(route.Method))
			if method == "" || method == "OPTIONS" || method == "HEAD" {
				continue
			}
			if !strings.HasPrefix(route.Path, "/api/v1/admin/") {
				continue
			}
			if _, public := publicAdminRoutes[route.Path]; public {
				continue
			}
			object := authz.NormalizeObject(route.Path)
			add(deriveAdminPermissionModule(object), method, object)
		}
	}
	for _, exportType := range exportTypes {
		add("exports", authz.ExportAction, authz.ExportObject(exportType))
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Method < b.Method
	})
	return items
}

// deriveAdminPermissionModule /admin/<module>/... 取第二段
func deriveAdminPermissionModule(object string) string {
	segments := strings.Split(strings.Trim(strings.TrimSpace(object), "/"), "/")
	switch {
	case len(segments) == 0 || segments[0] == "":
		return "system"
	case segments[0] != "admin" || len(segments) == 1:
		return segments[0]
	}
	return segments[1]
}
