package service

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/models"
)

const defaultSMTPPort = 587

// SMTPSetting 后台可编辑的 SMTP 配置，覆盖 config.yml 中的 email 段
type SMTPSetting struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
	UseTLS   bool   `json:"use_tls"`
	UseSSL   bool   `json:"use_ssl"`
}

// SMTPSettingPatch 部分更新；Password 为空串时保留原值
type SMTPSettingPatch struct {
	Enabled  *bool   `json:"enabled"`
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	From     *string `json:"from"`
	FromName *string `json:"from_name"`
	UseTLS   *bool   `json:"use_tls"`
	UseSSL   *bool   `json:"use_ssl"`
}

func smtpSettingFromConfig(cfg config.EmailConfig) SMTPSetting {
	return SMTPSetting{
		Enabled:  cfg.Enabled,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		FromName: cfg.FromName,
		UseTLS:   cfg.UseTLS,
		UseSSL:   cfg.UseSSL,
	}.Normalize()
}

// Normalize 去除空白并补默认端口
func (s SMTPSetting) Normalize() SMTPSetting {
	s.Host = strings.TrimSpace(s.Host)
	s.Username = strings.TrimSpace(s.Username)
	s.Password = strings.TrimSpace(s.Password)
	s.From = strings.TrimSpace(s.From)
	s.FromName = strings.TrimSpace(s.FromName)
	if s.Port <= 0 || s.Port > 65535 {
		s.Port = defaultSMTPPort
	}
	return s
}

// Validate 停用状态只校验加密方式互斥
func (s SMTPSetting) Validate() error {
	if s.UseTLS && s.UseSSL {
		return fmt.Errorf("%w: TLS 与 SSL 不能同时开启", ErrSMTPConfigInvalid)
	}
	if !s.Enabled {
		return nil
	}
	if s.Host == "" {
		return fmt.Errorf("%w: SMTP 主机不能为空", ErrSMTPConfigInvalid)
	}
	if _, err := mail.ParseAddress(s.From); err != nil {
		return fmt.Errorf("%w: 发件人邮箱格式无效", ErrSMTPConfigInvalid)
	}
	return nil
}

// Config 转为 EmailService 使用的运行时配置
func (s SMTPSetting) Config() config.EmailConfig {
	n := s.Normalize()
	return config.EmailConfig{
		Enabled:  n.Enabled,
		Host:     n.Host,
		Port:     n.Port,
		Username: n.Username,
		Password: n.Password,
		From:     n.From,
		FromName: n.FromName,
		UseTLS:   n.UseTLS,
		UseSSL:   n.UseSSL,
	}
}

// ToMap settings 表存储结构
func (s SMTPSetting) ToMap() map[string]interface{} {
	n := s.Normalize()
	return map[string]interface{}{
		"enabled":   n.Enabled,
		"host":      n.Host,
		"port":      n.Port,
		"username":  n.Username,
		"password":  n.Password,
		"from":      n.From,
		"from_name": n.FromName,
		"use_tls":   n.UseTLS,
		"use_ssl":   n.UseSSL,
	}
}

// Masked 返回给后台的脱敏结构
func (s SMTPSetting) Masked() models.JSON {
	masked := models.JSON(s.ToMap())
	masked["password"] = ""
	masked["has_password"] = strings.TrimSpace(s.Password) != ""
	return masked
}

func (p SMTPSettingPatch) applyTo(current SMTPSetting) SMTPSetting {
	next := current
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setBool(&next.Enabled, p.Enabled)
	setString(&next.Host, p.Host)
	if p.Port != nil {
		next.Port = *p.Port
	}
	setString(&next.Username, p.Username)
	if p.Password != nil && strings.TrimSpace(*p.Password) != "" {
		next.Password = *p.Password
	}
	setString(&next.From, p.From)
	setString(&next.FromName, p.FromName)
	setBool(&next.UseTLS, p.UseTLS)
	setBool(&next.UseSSL, p.UseSSL)
	return next.Normalize()
}

// GetSMTPSetting settings 表优先，未保存过时使用静态配置
func (s *SettingService) GetSMTPSetting(defaultCfg config.EmailConfig) (SMTPSetting, error) {
	fallback := smtpSettingFromConfig(defaultCfg)
	raw, err := s.GetByKey(constants.SettingKeySMTPConfig)
	if err != nil {
		return fallback, err
	}
	if raw == nil {
		return fallback, nil
	}
	return SMTPSetting{
		Enabled:  readBool(raw, "enabled", fallback.Enabled),
		Host:     readString(raw, "host", fallback.Host),
		Port:     readInt(raw, "port", fallback.Port),
		Username: readString(raw, "username", fallback.Username),
		Password: readString(raw, "password", fallback.Password),
		From:     readString(raw, "from", fallback.From),
		FromName: readString(raw, "from_name", fallback.FromName),
		UseTLS:   readBool(raw, "use_tls", fallback.UseTLS),
		UseSSL:   readBool(raw, "use_ssl", fallback.UseSSL),
	}.Normalize(), nil
}

// PatchSMTPSetting 合并补丁、校验并保存
func (s *SettingService) PatchSMTPSetting(defaultCfg config.EmailConfig, patch SMTPSettingPatch) (SMTPSetting, error) {
	current, err := s.GetSMTPSetting(defaultCfg)
	if err != nil {
		return SMTPSetting{}, err
	}
	next := patch.applyTo(current)
	if err := next.Validate(); err != nil {
		return SMTPSetting{}, err
	}
	if _, err := s.Update(constants.SettingKeySMTPConfig, next.ToMap()); err != nil {
		return SMTPSetting{}, err
	}
	return next, nil
}

// PreviewSMTPSetting 叠加补丁但不保存（测试发送用）
func PreviewSMTPSetting(current SMTPSetting, patch SMTPSettingPatch) SMTPSetting {
	return patch.applyTo(current)
}
