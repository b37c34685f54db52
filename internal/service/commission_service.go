package service

import (
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/models"
	"github.com/dujiao-next/payout-receipts/internal/repository"
)

// CommissionStatusOption 佣金状态选项
type CommissionStatusOption struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Default bool   `json:"default"`
}

// CommissionListInput 后台佣金列表查询参数
type CommissionListInput struct {
	Page      int
	PageSize  int
	UserID    uint
	PaymentID uint
	Statuses  []string
	Start     string
	End       string
}

// PayoutProfilePatch 用户收款资料修改
type PayoutProfilePatch struct {
	PayoutEmail               *string `json:"payout_email"`
	DisableSaleAlerts         *bool   `json:"disable_sale_alerts"`
	DisableFreePurchaseAlerts *bool   `json:"disable_free_purchase_alerts"`
}

// CommissionService 佣金查询与收款资料
type CommissionService struct {
	commissionRepo repository.CommissionRepository
	userRepo       repository.UserRepository
}

// NewCommissionService 创建佣金服务
func NewCommissionService(commissionRepo repository.CommissionRepository, userRepo repository.UserRepository) *CommissionService {
	return &CommissionService{commissionRepo: commissionRepo, userRepo: userRepo}
}

// List 后台佣金列表
func (s *CommissionService) List(input CommissionListInput) ([]models.Commission, int64, error) {
	filter := repository.CommissionListFilter{
		Page:      input.Page,
		PageSize:  input.PageSize,
		UserID:    input.UserID,
		PaymentID: input.PaymentID,
	}
	for _, status := range input.Statuses {
		if trimmed := strings.ToLower(strings.TrimSpace(status)); trimmed != "" {
			filter.Statuses = append(filter.Statuses, trimmed)
		}
	}
	if strings.TrimSpace(input.Start) != "" {
		from, err := ParsePayoutDate(input.Start)
		if err != nil {
			return nil, 0, err
		}
		filter.CreatedFrom = &from
	}
	if strings.TrimSpace(input.End) != "" {
		_, to, err := PayoutDateRange(input.End, input.End)
		if err != nil {
			return nil, 0, err
		}
		filter.CreatedTo = to
	}
	return s.commissionRepo.ListAdmin(filter)
}

// Statuses 可选佣金状态，已支付与未支付为默认选中
func (s *CommissionService) Statuses() []CommissionStatusOption {
	return []CommissionStatusOption{
		{Value: constants.CommissionStatusUnpaid, Label: "Unpaid", Default: true},
		{Value: constants.CommissionStatusPaid, Label: "Paid", Default: true},
		{Value: constants.CommissionStatusRevoked, Label: "Revoked"},
	}
}

// ListUsers 拥有佣金记录的用户
func (s *CommissionService) ListUsers(keyword string, page, pageSize int) ([]models.User, int64, error) {
	return s.commissionRepo.ListUsers(repository.CommissionUserListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  keyword,
	})
}

// UpdatePayoutProfile 修改用户收款邮箱与提醒开关
func (s *CommissionService) UpdatePayoutProfile(userID uint, patch PayoutProfilePatch) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if patch.PayoutEmail != nil {
		email := strings.TrimSpace(*patch.PayoutEmail)
		if email != "" && !isValidEmail(email) {
			return nil, ErrPayoutEmailInvalid
		}
		user.PayoutEmail = email
	}
	if patch.DisableSaleAlerts != nil {
		user.DisableSaleAlerts = *patch.DisableSaleAlerts
	}
	if patch.DisableFreePurchaseAlerts != nil {
		user.DisableFreePurchaseAlerts = *patch.DisableFreePurchaseAlerts
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}
