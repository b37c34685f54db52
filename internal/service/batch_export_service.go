package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/cache"
	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/models"
	"github.com/dujiao-next/payout-receipts/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// BatchStepResult 单步执行结果
type BatchStepResult struct {
	Step           int    `json:"step"`
	Percentage     int    `json:"percentage"`
	Message        string `json:"message,omitempty"`
	Done           bool   `json:"done"`
	DownloadURL    string `json:"download_url,omitempty"`
	RefreshAfterMs int    `json:"refresh_after_ms,omitempty"`

	Empty    bool   `json:"-"`
	FilePath string `json:"-"`
}

// BatchExporter 分步导出任务
type BatchExporter interface {
	Type() string
	Step(ctx context.Context, job *models.BatchJob, step int) (*BatchStepResult, error)
}

// BatchExporterRegistry 导出类型注册表
type BatchExporterRegistry struct {
	exporters map[string]BatchExporter
}

// NewBatchExporterRegistry 注册导出器，类型重复时后者覆盖前者
func NewBatchExporterRegistry(exporters ...BatchExporter) *BatchExporterRegistry {
	registry := &BatchExporterRegistry{exporters: make(map[string]BatchExporter, len(exporters))}
	for _, exporter := range exporters {
		if exporter == nil {
			continue
		}
		registry.exporters[exporter.Type()] = exporter
	}
	return registry
}

// Get 按类型获取导出器
func (r *BatchExporterRegistry) Get(exportType string) (BatchExporter, bool) {
	if r == nil {
		return nil, false
	}
	exporter, ok := r.exporters[strings.TrimSpace(exportType)]
	return exporter, ok
}

// Types 已注册类型（有序）
func (r *BatchExporterRegistry) Types() []string {
	if r == nil {
		return nil
	}
	types := make([]string, 0, len(r.exporters))
	for key := range r.exporters {
		types = append(types, key)
	}
	sort.Strings(types)
	return types
}

// ExportAuthorizer 导出权限校验
type ExportAuthorizer interface {
	CanExport(adminID uint, exportType string) (bool, error)
}

// DownloadClaims 付款文件下载令牌
type DownloadClaims struct {
	JobID   string `json:"job_id"`
	AdminID uint   `json:"admin_id"`
	jwt.RegisteredClaims
}

// BatchExportService 批量任务编排
type BatchExportService struct {
	cfg        *config.Config
	jobRepo    repository.BatchJobRepository
	adminRepo  repository.AdminRepository
	registry   *BatchExporterRegistry
	authorizer ExportAuthorizer
	cache      *cache.Store

	// Redis 未启用时的进程内步骤锁
	localLocks sync.Map
}

// NewBatchExportService 创建批量任务服务
func NewBatchExportService(
	cfg *config.Config,
	jobRepo repository.BatchJobRepository,
	adminRepo repository.AdminRepository,
	registry *BatchExporterRegistry,
	authorizer ExportAuthorizer,
	store *cache.Store,
) *BatchExportService {
	return &BatchExportService{
		cfg:        cfg,
		jobRepo:    jobRepo,
		adminRepo:  adminRepo,
		registry:   registry,
		authorizer: authorizer,
		cache:      store,
	}
}

// Types 可用导出类型
func (s *BatchExportService) Types() []string {
	return s.registry.Types()
}

// CreateJob 校验参数并创建任务，随后执行第一步
func (s *BatchExportService) CreateJob(ctx context.Context, adminID uint, exportType string, params PayoutBatchParams) (*models.BatchJob, *BatchStepResult, error) {
	exportType = strings.TrimSpace(exportType)
	if _, ok := s.registry.Get(exportType); !ok {
		return nil, nil, ErrExportTypeInvalid
	}
	if err := s.authorize(adminID, exportType); err != nil {
		return nil, nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	job := &models.BatchJob{
		ID:      uuid.NewString(),
		Type:    exportType,
		AdminID: adminID,
		Params:  params.ToJSON(),
		Status:  constants.BatchJobStatusRunning,
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, nil, err
	}
	logger.Infow("batch_job_created", "job_id", job.ID, "export_type", exportType, "admin_id", adminID)

	result, err := s.RunStep(ctx, adminID, job.ID, 1)
	if err != nil {
		return job, nil, err
	}
	refreshed, err := s.jobRepo.GetByID(job.ID)
	if err == nil && refreshed != nil {
		job = refreshed
	}
	return job, result, nil
}

// RunStep 执行任务的指定步骤，同一任务同一时间只允许一个步骤
func (s *BatchExportService) RunStep(ctx context.Context, adminID uint, jobID string, step int) (*BatchStepResult, error) {
	job, err := s.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	exporter, ok := s.registry.Get(job.Type)
	if !ok {
		return nil, ErrExportTypeInvalid
	}
	if err := s.authorize(adminID, job.Type); err != nil {
		return nil, err
	}
	if step < 1 {
		step = 1
	}

	release, err := s.acquireStepLock(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	log := logger.JobLogger(job.ID, job.Type, step)
	result, err := exporter.Step(ctx, job, step)
	if err != nil {
		job.Status = constants.BatchJobStatusFailed
		job.Message = err.Error()
		job.Step = step
		if updateErr := s.jobRepo.Update(job); updateErr != nil {
			log.Warnw("batch_job_update_failed", "error", updateErr)
		}
		log.Errorw("batch_step_failed", "error", err)
		return nil, err
	}

	job.Step = step
	job.Percentage = result.Percentage
	if result.Done {
		job.Status = constants.BatchJobStatusDone
		if result.Empty {
			job.Status = constants.BatchJobStatusEmpty
		}
		job.Message = result.Message
		if result.FilePath != "" {
			job.FilePath = result.FilePath
		}
	}
	if err := s.jobRepo.Update(job); err != nil {
		return nil, err
	}
	if result.Done && result.FilePath != "" && !result.Empty {
		downloadURL, err := s.DownloadURL(job)
		if err != nil {
			return nil, err
		}
		result.DownloadURL = downloadURL
	}
	log.Debugw("batch_step_completed", "percentage", result.Percentage, "done", result.Done)
	return result, nil
}

// GetJob 获取任务
func (s *BatchExportService) GetJob(jobID string) (*models.BatchJob, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, ErrBatchJobNotFound
	}
	job, err := s.jobRepo.GetByID(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrBatchJobNotFound
	}
	return job, nil
}

// DownloadURL 生成带签名令牌的下载地址
func (s *BatchExportService) DownloadURL(job *models.BatchJob) (string, error) {
	token, _, err := s.GenerateDownloadToken(job)
	if err != nil {
		return "", err
	}
	base := strings.TrimRight(strings.TrimSpace(s.cfg.Server.BaseURL), "/")
	return fmt.Sprintf("%s/api/v1/admin/payouts/jobs/%s/download?token=%s", base, url.PathEscape(job.ID), url.QueryEscape(token)), nil
}

// GenerateDownloadToken 签发下载令牌
func (s *BatchExportService) GenerateDownloadToken(job *models.BatchJob) (string, time.Time, error) {
	ttl := time.Duration(s.cfg.Payout.DownloadTokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := DownloadClaims{
		JobID:   job.ID,
		AdminID: job.AdminID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   "payout_download",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ResolveDownload 校验令牌并返回文件路径
func (s *BatchExportService) ResolveDownload(jobID, token string) (*models.BatchJob, string, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(strings.TrimSpace(token), &DownloadClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, "", ErrDownloadTokenInvalid
	}
	claims, ok := parsed.Claims.(*DownloadClaims)
	if !ok || !parsed.Valid || claims.JobID != strings.TrimSpace(jobID) {
		return nil, "", ErrDownloadTokenInvalid
	}
	job, err := s.GetJob(jobID)
	if err != nil {
		return nil, "", err
	}
	if job.AdminID != claims.AdminID {
		return nil, "", ErrDownloadTokenInvalid
	}
	if job.FilePath == "" {
		return nil, "", ErrPayoutFileNotFound
	}
	if _, err := os.Stat(job.FilePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrPayoutFileNotFound
		}
		return nil, "", err
	}
	return job, job.FilePath, nil
}

func (s *BatchExportService) authorize(adminID uint, exportType string) error {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrExportForbidden
	}
	if admin.IsSuper {
		return nil
	}
	if s.authorizer == nil {
		return ErrExportForbidden
	}
	allowed, err := s.authorizer.CanExport(adminID, exportType)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrExportForbidden
	}
	return nil
}

func (s *BatchExportService) acquireStepLock(ctx context.Context, jobID string) (func(), error) {
	if !s.cache.Enabled() {
		if _, loaded := s.localLocks.LoadOrStore(jobID, struct{}{}); loaded {
			return nil, ErrBatchStepBusy
		}
		return func() { s.localLocks.Delete(jobID) }, nil
	}
	ttl := time.Duration(s.cfg.Payout.StepLockSeconds) * time.Second
	if ttl <= 0 {
		ttl = 120 * time.Second
	}
	key := fmt.Sprintf("payout:job:%s:step", jobID)
	token, ok, err := s.cache.AcquireLock(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBatchStepBusy
	}
	return func() {
		if err := s.cache.ReleaseLock(context.Background(), key, token); err != nil {
			logger.Warnw("batch_step_lock_release_failed", "job_id", jobID, "error", err)
		}
	}, nil
}
