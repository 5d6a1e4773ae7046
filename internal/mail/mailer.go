package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// パスワード再設定メールの送信を約束
type Mailer interface {
	SendResetPassword(ctx context.Context, to string, resetToken string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	UseTLS   bool
}

// ホストかユーザーが無ければ開発モード（ログ出力のみ）
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.User != ""
}

// 設定に応じてSMTP送信かログ出力を選ぶ
func New(cfg SMTPConfig, frontendURL string, logger *zap.Logger) Mailer {
	if !cfg.Enabled() {
		return NewLogMailer(logger, frontendURL)
	}
	return NewSMTPMailer(cfg, frontendURL)
}

// ----- SMTP -----

type SMTPMailer struct {
	cfg         SMTPConfig
	frontendURL string
	dialer      *gomail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig, frontendURL string) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	// UseTLSは465での暗黙TLSだけを切り替える。
	// gomailはサーバーがSTARTTLSを提示すれば常に使う（無効化はできない）。
	d.SSL = cfg.UseTLS && cfg.Port == 465
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}

	return &SMTPMailer{cfg: cfg, frontendURL: frontendURL, dialer: d}
}

func (m *SMTPMailer) SendResetPassword(ctx context.Context, to string, resetToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.User
	}

	link := ResetPasswordURL(m.frontendURL, to, resetToken)

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password reset request")
	msg.SetBody("text/plain", resetPasswordText(link))
	msg.AddAlternative("text/html", resetPasswordHTML(link))

	// ctxで待つのをやめても送信中の接続は切れない
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send reset password mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ----- 開発用 -----

type LogMailer struct {
	logger      *zap.Logger
	frontendURL string
}

func NewLogMailer(logger *zap.Logger, frontendURL string) *LogMailer {
	return &LogMailer{logger: logger, frontendURL: frontendURL}
}

func (m *LogMailer) SendResetPassword(_ context.Context, to string, resetToken string) error {
	m.logger.Info("reset password mail (smtp disabled)",
		zap.String("to", to),
		zap.String("link", ResetPasswordURL(m.frontendURL, to, resetToken)),
	)
	return nil
}

// {frontend}/reset-password?token=...&email=...
func ResetPasswordURL(frontendURL string, email string, resetToken string) string {
	base := strings.TrimRight(frontendURL, "/")
	if base == "" {
		base = "http://localhost:3000"
	}

	q := url.Values{}
	q.Set("token", resetToken)
	q.Set("email", email)
	return base + "/reset-password?" + q.Encode()
}

func resetPasswordText(link string) string {
	return "Password reset request\n\n" +
		"Open the link below to reset your password:\n" +
		link + "\n\n" +
		"This link expires shortly. If you did not request a reset, ignore this email.\n"
}

func resetPasswordHTML(link string) string {
	return `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Password reset request</h2>
    <p>Click the button below to reset your password.</p>
    <p><a href="` + html.EscapeString(link) + `" style="display: inline-block; padding: 12px 24px; background-color: #007bff; color: #ffffff; text-decoration: none; border-radius: 4px;">Reset password</a></p>
    <p style="margin-top: 30px; font-size: 12px; color: #666;">If you did not request a reset, ignore this email.</p>
  </div>
</body>
</html>`
}
