package service

import (
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/models"
)

// PendingNotifications 付款文件生成后待发送回执的参数快照
type PendingNotifications struct {
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Status  []string `json:"status"`
	Minimum string   `json:"minimum"`
	UserIDs []uint   `json:"user_ids"`
	// Payees 通过最低金额过滤的用户与币种
	Payees []PendingPayee `json:"payees,omitempty"`
}

// PendingPayee 付款文件中保留的用户与币种
type PendingPayee struct {
	UserID   uint   `json:"user_id"`
	Currency string `json:"currency"`
}

// PendingNotificationStore 待通知列表存取（settings 表）
type PendingNotificationStore struct {
	settings          *SettingService
	legacyProgressKey bool
}

// NewPendingNotificationStore 创建待通知列表存取
func NewPendingNotificationStore(settings *SettingService, legacyProgressKey bool) *PendingNotificationStore {
	return &PendingNotificationStore{settings: settings, legacyProgressKey: legacyProgressKey}
}

// Save 覆盖写入待通知列表
func (s *PendingNotificationStore) Save(pending PendingNotifications) error {
	userIDs := make([]interface{}, 0, len(pending.UserIDs))
	for _, id := range pending.UserIDs {
		userIDs = append(userIDs, id)
	}
	status := make([]interface{}, 0, len(pending.Status))
	for _, item := range pending.Status {
		status = append(status, item)
	}
	value := map[string]interface{}{
		"start":    pending.Start,
		"end":      pending.End,
		"status":   status,
		"minimum":  pending.Minimum,
		"user_ids": userIDs,
	}
	if len(pending.Payees) > 0 {
		payees := make([]interface{}, 0, len(pending.Payees))
		for _, payee := range pending.Payees {
			payees = append(payees, map[string]interface{}{
				"user_id":  payee.UserID,
				"currency": payee.Currency,
			})
		}
		value["payees"] = payees
	}
	_, err := s.settings.Update(constants.SettingKeyPayoutUserIDsToNotify, value)
	return err
}

// Load 读取待通知列表，不存在时返回 nil
func (s *PendingNotificationStore) Load() (*PendingNotifications, error) {
	return s.loadKey(constants.SettingKeyPayoutUserIDsToNotify)
}

// LoadForProgress 读取进度计算使用的列表；开启旧键兼容时读取历史键
func (s *PendingNotificationStore) LoadForProgress() (*PendingNotifications, error) {
	if s.legacyProgressKey {
		return s.loadKey(constants.SettingKeyLegacyPaymentUserIDsToNotify)
	}
	return s.Load()
}

// Delete 删除待通知列表
func (s *PendingNotificationStore) Delete() error {
	return s.settings.Delete(constants.SettingKeyPayoutUserIDsToNotify)
}

func (s *PendingNotificationStore) loadKey(key string) (*PendingNotifications, error) {
	value, err := s.settings.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	return pendingNotificationsFromJSON(value), nil
}

func pendingNotificationsFromJSON(raw models.JSON) *PendingNotifications {
	return &PendingNotifications{
		Start:   readString(raw, "start", ""),
		End:     readString(raw, "end", ""),
		Status:  readStringSlice(raw, "status"),
		Minimum: readString(raw, "minimum", ""),
		UserIDs: readUintSlice(raw, "user_ids"),
		Payees:  readPendingPayees(raw),
	}
}

// readPendingPayees 旧版本写入的列表没有 payees 字段，返回 nil 表示不限定名单
func readPendingPayees(raw models.JSON) []PendingPayee {
	items, ok := raw["payees"].([]interface{})
	if !ok {
		return nil
	}
	payees := make([]PendingPayee, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		userID := readInt(entry, "user_id", 0)
		currency := strings.ToUpper(readString(entry, "currency", ""))
		if userID <= 0 || currency == "" {
			continue
		}
		payees = append(payees, PendingPayee{UserID: uint(userID), Currency: currency})
	}
	if len(payees) == 0 {
		return nil
	}
	return payees
}
