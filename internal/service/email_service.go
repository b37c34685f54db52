package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"sort"
	"strings"
	"sync"

	"github.com/dujiao-next/payout-receipts/internal/config"
)

// EmailService SMTP 邮件发送
type EmailService struct {
	mu  sync.RWMutex
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// SetConfig 替换运行时 SMTP 配置（后台保存设置后调用）
func (s *EmailService) SetConfig(cfg *config.EmailConfig) {
	if cfg == nil {
		return
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *EmailService) currentConfig() *config.EmailConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Send 发送 HTML 邮件，headers 追加到标准头之后
func (s *EmailService) Send(to, subject, body string, headers map[string]string) error {
	return s.send(to, subject, formatHTMLBody(body), "text/html", headers)
}

// SendHTMLEmail 发送 HTML 邮件
func (s *EmailService) SendHTMLEmail(toEmail, subject, body string) error {
	return s.Send(toEmail, subject, body, nil)
}

// Deliver 供回执、汇总与销售提醒使用
func (s *EmailService) Deliver(_ context.Context, toEmail, subject, body string) error {
	return s.SendHTMLEmail(toEmail, subject, body)
}

// SendCustomEmail SMTP 测试邮件
func (s *EmailService) SendCustomEmail(toEmail, subject, body string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "SMTP 配置测试邮件"
	}
	body = strings.TrimSpace(body)
	if body == "" {
		body = "这是一封来自付款回执服务的 SMTP 测试邮件，说明当前配置可正常发送。"
	}
	return s.send(toEmail, subject, body, "text/plain", nil)
}

func (s *EmailService) send(toEmail, subject, body, contentType string, headers map[string]string) error {
	cfg := s.currentConfig()
	if cfg == nil || !cfg.Enabled {
		return ErrEmailServiceDisabled
	}
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return ErrEmailServiceNotConfigured
	}
	if _, err := mail.ParseAddress(toEmail); err != nil {
		return ErrInvalidEmail
	}

	msg := buildEmailMessage(buildFromAddress(cfg.From, cfg.FromName), toEmail, subject, body, contentType, headers)
	client, err := openSMTPClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()
	return normalizeEmailSendError(transmit(client, cfg, toEmail, msg))
}

// openSMTPClient 按配置建立 SSL / STARTTLS / 明文连接
func openSMTPClient(cfg *config.EmailConfig) (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	tlsConfig := &tls.Config{ServerName: cfg.Host}
	if cfg.UseSSL {
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return nil, err
		}
		client, err := smtp.NewClient(conn, cfg.Host)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return client, nil
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return nil, err
	}
	if cfg.UseTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, err
		}
	}
	return client, nil
}

func transmit(client *smtp.Client, cfg *config.EmailConfig, to string, msg []byte) error {
	if cfg.Username != "" || cfg.Password != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
				return err
			}
		}
	}
	if err := client.Mail(cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// formatHTMLBody 纯文本换行转为 <br />，已有 HTML 标签保留
func formatHTMLBody(body string) string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	return strings.ReplaceAll(normalized, "\n", "<br />\n")
}

func buildFromAddress(from, name string) string {
	if strings.TrimSpace(name) == "" {
		return from
	}
	return (&mail.Address{Name: mime.QEncoding.Encode("UTF-8", name), Address: from}).String()
}

func buildEmailMessage(from, to, subject, body, contentType string, headers map[string]string) []byte {
	var buf bytes.Buffer
	writeHeader := func(key, value string) {
		buf.WriteString(key + ": " + value + "\r\n")
	}
	writeHeader("From", from)
	writeHeader("To", to)
	writeHeader("Subject", mime.QEncoding.Encode("UTF-8", subject))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", contentType+"; charset=UTF-8")

	extra := make([]string, 0, len(headers))
	for key := range headers {
		canonical := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(key))
		switch canonical {
		case "", "From", "To", "Subject", "Mime-Version", "Content-Type":
			continue
		}
		extra = append(extra, key)
	}
	sort.Strings(extra)
	for _, key := range extra {
		value := strings.NewReplacer("\r", "", "\n", "").Replace(headers[key])
		writeHeader(textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(key)), value)
	}

	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

func normalizeEmailSendError(err error) error {
	if err == nil {
		return nil
	}
	if isEmailRecipientRejected(err) {
		return fmt.Errorf("%w: %v", ErrEmailRecipientRejected, err)
	}
	return err
}

var recipientRejectKeywords = []string{
	"no such recipient",
	"no such user",
	"recipient not found",
	"recipient address rejected",
	"invalid recipient",
	"user unknown",
	"unknown user",
	"unknown mailbox",
	"mailbox unavailable",
}

// isEmailRecipientRejected 收件人被拒：关键字命中，或 550/551/553 且提示与收件人相关
func isEmailRecipientRejected(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	if message == "" {
		return false
	}
	for _, keyword := range recipientRejectKeywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}

	permanent := strings.Contains(message, "550")
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		permanent = protoErr.Code == 550 || protoErr.Code == 551 || protoErr.Code == 553
	}
	if !permanent {
		return false
	}
	for _, hint := range []string{"recipient", "user", "mailbox", "address", "rcpt"} {
		if strings.Contains(message, hint) {
			return true
		}
	}
	return false
}
