package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/models"
	"github.com/dujiao-next/payout-receipts/internal/repository"
)

const (
	payoutFileGeneratedMessage = "Payout receipt file generated successfully."
	payoutFileEmptyMessage     = "No commissions found for specified dates, status, user and/or minimum amount."
	payoutFileNoRangeMessage   = "No file produced: a start and end date are required."
)

// PayoutFileRow 付款文件中的一行
type PayoutFileRow struct {
	Email    string
	Amount   string
	Currency string
	UserID   uint
}

// PayoutFileBuilder 分步生成付款 CSV 文件
type PayoutFileBuilder struct {
	commissionRepo repository.CommissionRepository
	grouping       *PayoutGroupingService
	staging        StagingStore
	pending        *PendingNotificationStore
	formatter      *CurrencyFormatter
	uploadDir      string
	pageSize       int
}

// NewPayoutFileBuilder 创建付款文件生成器
func NewPayoutFileBuilder(
	commissionRepo repository.CommissionRepository,
	grouping *PayoutGroupingService,
	staging StagingStore,
	pending *PendingNotificationStore,
	formatter *CurrencyFormatter,
	uploadDir string,
	pageSize int,
) *PayoutFileBuilder {
	if pageSize <= 0 {
		pageSize = constants.PayoutDefaultPageSize
	}
	if strings.TrimSpace(uploadDir) == "" {
		uploadDir = "./uploads"
	}
	return &PayoutFileBuilder{
		commissionRepo: commissionRepo,
		grouping:       grouping,
		staging:        staging,
		pending:        pending,
		formatter:      formatter,
		uploadDir:      uploadDir,
		pageSize:       pageSize,
	}
}

// Type 导出类型
func (b *PayoutFileBuilder) Type() string {
	return constants.ExportTypePayoutReceipts
}

// FilePath 任务对应的输出文件
func (b *PayoutFileBuilder) FilePath(jobID string) string {
	return filepath.Join(b.uploadDir, fmt.Sprintf("payout-receipts-%s.csv", jobID))
}

// Step 执行一步：首步初始化，之后逐页汇总，空页时生成文件
func (b *PayoutFileBuilder) Step(ctx context.Context, job *models.BatchJob, step int) (*BatchStepResult, error) {
	params := PayoutBatchParamsFromJSON(job.Params)
	log := logger.JobLogger(job.ID, b.Type(), step)

	if step <= 1 {
		if err := b.reset(ctx, job); err != nil {
			return nil, err
		}
		if !params.HasDateRange() {
			log.Infow("payout_file_empty_range")
			return &BatchStepResult{Step: step, Percentage: 100, Done: true, Empty: true, Message: payoutFileNoRangeMessage}, nil
		}
	}

	filter, err := buildPayoutCommissionFilter(params.Start, params.End, params.Status, params.UserID)
	if err != nil {
		return nil, err
	}
	pageFilter := filter
	pageFilter.Page = step
	pageFilter.PageSize = b.pageSize
	records, err := b.commissionRepo.List(pageFilter)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		grouped, err := b.grouping.Group(ctx, records, constants.GroupModeHash)
		if err != nil {
			return nil, err
		}
		if err := b.staging.Merge(ctx, b.Type(), job.ID, grouped); err != nil {
			return nil, err
		}
		total, err := b.commissionRepo.Count(filter)
		if err != nil {
			return nil, err
		}
		log.Debugw("payout_file_page_staged", "records", len(records), "total", total)
		return &BatchStepResult{Step: step, Percentage: BatchPercentage(b.pageSize, step, total)}, nil
	}

	return b.finalize(ctx, job, params, step)
}

func (b *PayoutFileBuilder) reset(ctx context.Context, job *models.BatchJob) error {
	if err := removeIfExists(b.FilePath(job.ID)); err != nil {
		return err
	}
	if job.FilePath != "" {
		if err := removeIfExists(job.FilePath); err != nil {
			return err
		}
	}
	if err := b.pending.Delete(); err != nil {
		return err
	}
	return b.staging.Clear(ctx, b.Type(), job.ID)
}

func (b *PayoutFileBuilder) finalize(ctx context.Context, job *models.BatchJob, params PayoutBatchParams, step int) (*BatchStepResult, error) {
	log := logger.JobLogger(job.ID, b.Type(), step)
	grouped, err := b.staging.Load(ctx, b.Type(), job.ID)
	if err != nil {
		return nil, err
	}
	minimum, err := params.MinimumAmount()
	if err != nil {
		return nil, err
	}

	rows := make([]PayoutFileRow, 0, grouped.Len())
	userIDs := make([]uint, 0, grouped.Len())
	seenUsers := make(map[uint]struct{}, grouped.Len())
	lines := make([]string, 0, grouped.Len())
	payees := make([]PendingPayee, 0, grouped.Len())
	grouped.Each(func(_ string, bucket *PayoutBucket) {
		if minimum != nil && bucket.Amount.LessThan(*minimum) {
			return
		}
		rows = append(rows, PayoutFileRow{
			Email:    bucket.Email,
			Amount:   b.formatter.FormatAmount(bucket.Amount, 2),
			Currency: bucket.Currency,
			UserID:   bucket.UserID,
		})
		payees = append(payees, PendingPayee{UserID: bucket.UserID, Currency: strings.ToUpper(bucket.Currency)})
		lines = append(lines, fmt.Sprintf("%s: %s", bucket.Email, b.formatter.Money(bucket.Amount, bucket.Currency)))
		if _, ok := seenUsers[bucket.UserID]; !ok {
			seenUsers[bucket.UserID] = struct{}{}
			userIDs = append(userIDs, bucket.UserID)
		}
	})

	path := b.FilePath(job.ID)
	if err := WritePayoutFile(path, rows); err != nil {
		return nil, err
	}
	if len(userIDs) > 0 {
		if err := b.pending.Save(PendingNotifications{
			Start:   params.Start,
			End:     params.End,
			Status:  params.Statuses(),
			Minimum: params.Minimum,
			UserIDs: userIDs,
			Payees:  payees,
		}); err != nil {
			return nil, err
		}
	}
	if err := b.staging.Clear(ctx, b.Type(), job.ID); err != nil {
		log.Warnw("payout_staging_clear_failed", "error", err)
	}

	result := &BatchStepResult{Step: step, Percentage: 100, Done: true, FilePath: path}
	if len(rows) == 0 {
		result.Empty = true
		result.Message = payoutFileEmptyMessage
	} else {
		result.Message = payoutFileGeneratedMessage + "\n" + strings.Join(lines, "\n")
	}
	log.Infow("payout_file_generated", "rows", len(rows), "users", len(userIDs))
	return result, nil
}

// WritePayoutFile 写出付款文件：无表头，字段全部加引号，CRLF 换行
func WritePayoutFile(path string, rows []PayoutFileRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	for _, row := range rows {
		line := quoteCSVField(row.Email) + "," + quoteCSVField(row.Amount) + "," + quoteCSVField(formatUint(row.UserID)) + "\r\n"
		if _, err := w.WriteString(line); err != nil {
			_ = file.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func quoteCSVField(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func removeIfExists(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
