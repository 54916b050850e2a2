// Package email delivers transactional mail over SMTP. Callers are expected
// to invoke the send methods from a goroutine; delivery failures are
// returned, never retried here.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/tastebook/tastebook/internal/logging"
)

type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, frontendURL string) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    smtpUser,
		frontendURL:  frontendURL,
	}
}

// SendVerificationEmail mails an email verification link.
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)

	body, err := render(verificationTemplate, link)
	if err != nil {
		logger.Error("failed to render verification email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Confirm your Tastebook account", body); err != nil {
		logger.Error("failed to send verification email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("verification email sent", "email", toEmail)
	return nil
}

// SendPasswordResetEmail mails a password reset link.
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)

	body, err := render(passwordResetTemplate, link)
	if err != nil {
		logger.Error("failed to render password reset email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Reset your Tastebook password", body); err != nil {
		logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

func render(tmpl *template.Template, link string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Link string }{Link: link}); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

var verificationTemplate = template.Must(template.New("verification").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Georgia, serif; line-height: 1.6; color: #2d2a26; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #C2410C; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #fdf6ef; padding: 30px; border-radius: 0 0 5px 5px; }
        .button { display: inline-block; background-color: #C2410C; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Welcome to Tastebook</h1>
    </div>
    <div class="content">
        <h2>Confirm your email address</h2>
        <p>Thanks for joining Tastebook. Confirm your email address to start publishing recipes.</p>

        <a href="{{.Link}}" class="button" style="color: white !important;">Confirm Email</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #C2410C;">{{.Link}}</p>

        <p style="margin-top: 30px;">If you didn't create a Tastebook account, you can safely ignore this email.</p>
    </div>
    <div class="footer">
        <p>This link will expire in 24 hours.</p>
        <p>&copy; 2026 Tastebook. All rights reserved.</p>
    </div>
</body>
</html>
`))

var passwordResetTemplate = template.Must(template.New("passwordReset").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Georgia, serif; line-height: 1.6; color: #2d2a26; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #C2410C; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #fdf6ef; padding: 30px; border-radius: 0 0 5px 5px; }
        .button { display: inline-block; background-color: #C2410C; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Password Reset</h1>
    </div>
    <div class="content">
        <h2>Reset your password</h2>
        <p>Someone asked to reset the password for your Tastebook account. If that was you, click the button below to choose a new one.</p>

        <a href="{{.Link}}" class="button" style="color: white !important;">Reset Password</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #C2410C;">{{.Link}}</p>

        <p style="margin-top: 30px;">If you didn't request a reset, you can safely ignore this email. Your password will not change, but all active sessions are signed out once a reset completes.</p>
    </div>
    <div class="footer">
        <p>This link will expire in 30 minutes.</p>
        <p>&copy; 2026 Tastebook. All rights reserved.</p>
    </div>
</body>
</html>
`))
