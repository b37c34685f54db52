package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/dujiao-next/payout-receipts/internal/app"
	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiDim     = "\033[2m"
	ansiGreen   = "\033[32m"
	ansiCyan    = "\033[36m"
	ansiMagenta = "\033[95m"

	envAdminUsername = "PR_DEFAULT_ADMIN_USERNAME"
	envAdminPassword = "PR_DEFAULT_ADMIN_PASSWORD"
)

func main() {
	mode := flag.String("mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner(*mode)
	if err := run(*mode); err != nil {
		logger.StdLogger().Fatalf("服务运行失败: %v", err)
	}
}

func run(mode string) error {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	release := cfg.Server.Mode == "release"

	if isWeakSecret(cfg.JWT.SecretKey) {
		if release {
			return errors.New("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
		logger.Warnw("jwt_secret_weak", "mode", cfg.Server.Mode)
	}
	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := models.OpenDB(cfg.Database.ToDBOptions(!release))
	if err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	password := os.Getenv(envAdminPassword)
	if release && password == "" {
		logger.Warnw("default_admin_skipped", "reason", envAdminPassword+" not set")
	} else if _, err := models.InitDefaultAdmin(db, os.Getenv(envAdminUsername), password); err != nil {
		logger.Warnw("default_admin_init_failed", "error", err)
	}

	return app.Run(app.Options{
		Config:  cfg,
		DB:      db,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	})
}

func printStartupBanner(mode string) {
	line := strings.Repeat("═", 62)
	fmt.Println(ansiMagenta + "╔" + line + "╗" + ansiReset)
	fmt.Println(ansiMagenta + "║" + ansiBold + "  Payout Receipts" + ansiReset + ansiMagenta + strings.Repeat(" ", 45) + "║" + ansiReset)
	fmt.Println(ansiMagenta + "╚" + line + "╝" + ansiReset)
	fmt.Println(ansiCyan + "佣金付款文件 / 付款回执 / 合并销售提醒" + ansiReset)
	fmt.Println(ansiGreen + "mode: " + ansiBold + mode + ansiReset + ansiDim + "  (all | api | worker)" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	for _, marker := range []string{"change-me", "change-in-production", "your-secret-key"} {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}
