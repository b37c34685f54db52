package service

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/constants"
)

// KeyParts 分组键的组成部分，缺失部分为零值
type KeyParts struct {
	DownloadID uint   `json:"download_id,omitempty"`
	PriceID    string `json:"price_id,omitempty"`
	UserID     uint   `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Currency   string `json:"currency,omitempty"`
}

// EncodeGroupKey 按分组模式生成分组键
func EncodeGroupKey(parts KeyParts, mode string) string {
	sep := constants.GroupKeySeparator
	switch mode {
	case constants.GroupModeDownloadID:
		return strings.Join([]string{formatUint(parts.DownloadID), parts.PriceID, parts.Currency}, sep)
	case constants.GroupModeUserID:
		return formatUint(parts.UserID) + sep + parts.Currency
	case constants.GroupModeEmail:
		return parts.Email + sep + parts.Currency
	default:
		sum := md5.Sum([]byte(parts.Email + parts.Currency))
		return hex.EncodeToString(sum[:])
	}
}

// DecodeGroupKey 解析分组键；哈希模式不可逆，返回 ok=false
func DecodeGroupKey(key string, mode string) (KeyParts, bool) {
	sep := constants.GroupKeySeparator
	var parts KeyParts
	switch mode {
	case constants.GroupModeDownloadID:
		segments := strings.SplitN(key, sep, 3)
		parts.DownloadID = parseUint(segmentAt(segments, 0))
		parts.PriceID = segmentAt(segments, 1)
		parts.Currency = segmentAt(segments, 2)
		return parts, true
	case constants.GroupModeUserID:
		segments := strings.SplitN(key, sep, 2)
		parts.UserID = parseUint(segmentAt(segments, 0))
		parts.Currency = segmentAt(segments, 1)
		return parts, true
	case constants.GroupModeEmail:
		// 邮箱本身可能含分隔符，按最后一个分隔符切分
		idx := strings.LastIndex(key, sep)
		if idx < 0 {
			parts.Email = key
			return parts, true
		}
		parts.Email = key[:idx]
		parts.Currency = key[idx+len(sep):]
		return parts, true
	default:
		return parts, false
	}
}

// PriceIDString 价格选项转为键片段，无价格选项时为空
func PriceIDString(priceID *uint) string {
	if priceID == nil {
		return ""
	}
	return formatUint(*priceID)
}

func segmentAt(segments []string, idx int) string {
	if idx < len(segments) {
		return segments[idx]
	}
	return ""
}

func formatUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func parseUint(raw string) uint {
	parsed, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return uint(parsed)
}
