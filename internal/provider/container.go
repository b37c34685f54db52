package provider

import (
	"strings"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/authz"
	"github.com/dujiao-next/payout-receipts/internal/cache"
	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/queue"
	"github.com/dujiao-next/payout-receipts/internal/repository"
	"github.com/dujiao-next/payout-receipts/internal/service"

	"gorm.io/gorm"
)

const defaultStagingTTL = 24 * time.Hour

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	Cache       *cache.Store
	QueueClient *queue.Client

	// Repositories
	AdminRepo      repository.AdminRepository
	UserRepo       repository.UserRepository
	PaymentRepo    repository.PaymentRepository
	ProductRepo    repository.ProductRepository
	CommissionRepo repository.CommissionRepository
	SettingRepo    repository.SettingRepository
	BatchJobRepo   repository.BatchJobRepository

	// Payout infrastructure
	StagingStore      service.StagingStore
	PendingStore      *service.PendingNotificationStore
	CurrencyFormatter *service.CurrencyFormatter
	PayoutGrouping    *service.PayoutGroupingService
	PayoutMailer      service.PayoutMailer
	ExporterRegistry  *service.BatchExporterRegistry

	// Services
	AuthzService       *authz.Service
	AuthService        *service.AuthService
	EmailService       *service.EmailService
	SettingService     *service.SettingService
	CommissionService  *service.CommissionService
	PayoutReceipts     *service.PayoutReceiptService
	PayoutFileBuilder  *service.PayoutFileBuilder
	PayoutDispatcher   *service.PayoutNotificationDispatcher
	SaleAlertService   *service.SaleAlertService
	BatchExportService *service.BatchExportService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, db *gorm.DB) *Container {
	// 初始化缓存
	store := cache.New(&cfg.Redis)

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		Cache:       store,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	// 3. 付款批处理
	c.initPayout()

	return c
}

// StagingTTL 暂存过期时间
func (c *Container) StagingTTL() time.Duration {
	if c == nil || c.Config == nil || c.Config.Payout.StagingTTLHours <= 0 {
		return defaultStagingTTL
	}
	return time.Duration(c.Config.Payout.StagingTTLHours) * time.Hour
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := c.Cache.Close(); err != nil {
		logger.Warnw("provider_close_cache_failed", "error", err)
	}
}

func (c *Container) initRepositories() {
	db := c.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.BatchJobRepo = repository.NewBatchJobRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.SettingService = service.NewSettingService(c.SettingRepo)
	smtpSetting, err := c.SettingService.GetSMTPSetting(c.Config.Email)
	if err != nil {
		logger.Warnw("provider_load_smtp_setting_failed", "error", err)
	} else {
		c.Config.Email = smtpSetting.Config()
	}

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo, c.Cache)
	c.CommissionService = service.NewCommissionService(c.CommissionRepo, c.UserRepo)
}

func (c *Container) initPayout() {
	payoutCfg := c.Config.Payout
	uploadDir := strings.TrimSpace(c.Config.Upload.Dir)

	switch strings.ToLower(strings.TrimSpace(payoutCfg.StagingDriver)) {
	case constants.StagingDriverRedis:
		if c.Cache.Enabled() {
			c.StagingStore = service.NewRedisStagingStore(c.Cache, c.StagingTTL())
		} else {
			logger.Warnw("provider_staging_redis_unavailable", "fallback", constants.StagingDriverFile)
		}
	}
	if c.StagingStore == nil {
		c.StagingStore = service.NewFileStagingStore(uploadDir)
	}

	resolver := service.NewRepositoryPayoutResolver(c.PaymentRepo, c.UserRepo)
	c.PayoutGrouping = service.NewPayoutGroupingService(resolver, resolver, payoutCfg.CalcBase)
	c.CurrencyFormatter = service.NewCurrencyFormatter(payoutCfg.DefaultCurrency)
	c.PendingStore = service.NewPendingNotificationStore(c.SettingService, payoutCfg.LegacyProgressKey)
	c.PayoutMailer = service.NewQueuedPayoutMailer(c.QueueClient, c.EmailService)

	c.PayoutReceipts = service.NewPayoutReceiptService(
		c.Config,
		c.SettingService,
		c.CommissionRepo,
		c.UserRepo,
		c.ProductRepo,
		c.PayoutGrouping,
		c.CurrencyFormatter,
		c.PayoutMailer,
	)
	c.PayoutFileBuilder = service.NewPayoutFileBuilder(
		c.CommissionRepo,
		c.PayoutGrouping,
		c.StagingStore,
		c.PendingStore,
		c.CurrencyFormatter,
		uploadDir,
		payoutCfg.PageSize,
	)
	c.PayoutDispatcher = service.NewPayoutNotificationDispatcher(c.PendingStore, c.PayoutReceipts, payoutCfg.PageSize)
	c.SaleAlertService = service.NewSaleAlertService(
		c.Config,
		c.SettingService,
		c.CommissionRepo,
		c.PaymentRepo,
		c.UserRepo,
		c.ProductRepo,
		c.PayoutGrouping,
		c.CurrencyFormatter,
		c.PayoutMailer,
		c.QueueClient,
	)

	c.ExporterRegistry = service.NewBatchExporterRegistry(c.PayoutFileBuilder, c.PayoutDispatcher)
	c.BatchExportService = service.NewBatchExportService(
		c.Config,
		c.BatchJobRepo,
		c.AdminRepo,
		c.ExporterRegistry,
		c.AuthzService,
		c.Cache,
	)
}
