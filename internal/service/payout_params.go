package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/models"
	"github.com/dujiao-next/payout-receipts/internal/repository"

	"github.com/shopspring/decimal"
)

var payoutDateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02"}

// PayoutBatchParams 生成付款文件的提交参数
type PayoutBatchParams struct {
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Minimum string   `json:"minimum"`
	Status  []string `json:"status"`
	UserID  uint     `json:"user_id"`
}

// HasDateRange 起止日期是否齐全
func (p PayoutBatchParams) HasDateRange() bool {
	return strings.TrimSpace(p.Start) != "" && strings.TrimSpace(p.End) != ""
}

// Statuses 未指定状态时默认已支付与未支付
func (p PayoutBatchParams) Statuses() []string {
	return normalizePayoutStatuses(p.Status)
}

// MinimumAmount 解析最低金额，为空时返回 nil
func (p PayoutBatchParams) MinimumAmount() (*decimal.Decimal, error) {
	return parsePayoutMinimum(p.Minimum)
}

// Validate 校验日期与最低金额格式
func (p PayoutBatchParams) Validate() error {
	if strings.TrimSpace(p.Start) != "" {
		if _, err := ParsePayoutDate(p.Start); err != nil {
			return err
		}
	}
	if strings.TrimSpace(p.End) != "" {
		if _, err := ParsePayoutDate(p.End); err != nil {
			return err
		}
	}
	if _, err := p.MinimumAmount(); err != nil {
		return err
	}
	return nil
}

// ToJSON 转为任务参数
func (p PayoutBatchParams) ToJSON() models.JSON {
	status := make([]interface{}, 0, len(p.Status))
	for _, item := range p.Status {
		status = append(status, item)
	}
	return models.JSON{
		"start":   p.Start,
		"end":     p.End,
		"minimum": p.Minimum,
		"status":  status,
		"user_id": p.UserID,
	}
}

// PayoutBatchParamsFromJSON 从任务参数还原
func PayoutBatchParamsFromJSON(raw models.JSON) PayoutBatchParams {
	if raw == nil {
		return PayoutBatchParams{}
	}
	userID := readInt(raw, "user_id", 0)
	if userID < 0 {
		userID = 0
	}
	return PayoutBatchParams{
		Start:   readString(raw, "start", ""),
		End:     readString(raw, "end", ""),
		Minimum: readString(raw, "minimum", ""),
		Status:  readStringSlice(raw, "status"),
		UserID:  uint(userID),
	}
}

// ParsePayoutDate 解析日期（支持 2006-01-02 与 01/02/2006）
func ParsePayoutDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range payoutDateLayouts {
		if parsed, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrPayoutDateInvalid, trimmed)
}

// PayoutDateRange 起始日零点至结束日末尾的闭区间
func PayoutDateRange(start, end string) (*time.Time, *time.Time, error) {
	from, err := ParsePayoutDate(start)
	if err != nil {
		return nil, nil, err
	}
	endDay, err := ParsePayoutDate(end)
	if err != nil {
		return nil, nil, err
	}
	to := endDay.Add(24*time.Hour - time.Nanosecond)
	return &from, &to, nil
}

// buildPayoutCommissionFilter 根据日期、状态与用户构建佣金查询条件
func buildPayoutCommissionFilter(start, end string, statuses []string, userID uint) (repository.CommissionListFilter, error) {
	from, to, err := PayoutDateRange(start, end)
	if err != nil {
		return repository.CommissionListFilter{}, err
	}
	return repository.CommissionListFilter{
		UserID:      userID,
		Statuses:    normalizePayoutStatuses(statuses),
		CreatedFrom: from,
		CreatedTo:   to,
	}, nil
}

func normalizePayoutStatuses(statuses []string) []string {
	result := make([]string, 0, len(statuses))
	seen := make(map[string]struct{}, len(statuses))
	for _, status := range statuses {
		trimmed := strings.ToLower(strings.TrimSpace(status))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return []string{constants.CommissionStatusPaid, constants.CommissionStatusUnpaid}
	}
	return result
}

func parsePayoutMinimum(raw string) (*decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: minimum %s", ErrPayoutMinimumInvalid, trimmed)
	}
	if parsed.IsNegative() {
		return nil, fmt.Errorf("%w: minimum %s", ErrPayoutMinimumInvalid, trimmed)
	}
	return &parsed, nil
}

// BatchPercentage 进度百分比，总数为 0 时视为完成
func BatchPercentage(pageSize, step int, total int64) int {
	if total <= 0 {
		return 100
	}
	if step < 0 {
		step = 0
	}
	percentage := decimal.NewFromInt(int64(pageSize) * int64(step)).
		Div(decimal.NewFromInt(total)).
		Mul(decimal.NewFromInt(100)).
		IntPart()
	if percentage > 100 {
		return 100
	}
	if percentage < 0 {
		return 0
	}
	return int(percentage)
}
