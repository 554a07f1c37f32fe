package email

import (
	"fmt"
	"html"

	"shortly/internal/config"
)

// Templates provides email template generation.
type Templates struct {
	cfg *config.Config
}

// NewTemplates creates a new templates instance.
func NewTemplates(cfg *config.Config) *Templates {
	return &Templates{cfg: cfg}
}

// baseHTML wraps content in a consistent HTML email template.
func (t *Templates) baseHTML(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #2563eb; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
        .code { font-size: 32px; font-weight: 700; letter-spacing: 8px; text-align: center; background: white; border: 1px solid #e5e7eb; border-radius: 6px; padding: 15px; margin: 15px 0; }
        .footer { background: #f3f4f6; padding: 15px; text-align: center; font-size: 12px; color: #6b7280; border-radius: 0 0 8px 8px; border: 1px solid #e5e7eb; border-top: none; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Shortly</h1>
    </div>
    <div class="content">
        %s
    </div>
    <div class="footer">
        <p>This email was sent by Shortly</p>
        <p><a href="%s">%s</a></p>
    </div>
</body>
</html>`, html.EscapeString(title), content, t.cfg.FrontendURL, t.cfg.FrontendURL)
}

// VerificationCode generates the email carrying an account verification code.
func (t *Templates) VerificationCode(username, code string) (subject, htmlBody, textBody string) {
	subject = "Your Shortly verification code"

	content := fmt.Sprintf(`
        <p>Hi %s,</p>
        <p>Enter this code to verify your email address. It expires in 10 minutes.</p>
        <div class="code">%s</div>
        <p>If you did not create a Shortly account, you can ignore this email.</p>`,
		html.EscapeString(username), html.EscapeString(code))

	htmlBody = t.baseHTML(subject, content)
	textBody = fmt.Sprintf("Hi %s,\n\nYour Shortly verification code is: %s\n\nIt expires in 10 minutes. If you did not create a Shortly account, ignore this email.\n", username, code)
	return subject, htmlBody, textBody
}

// PasswordResetCode generates the email carrying a password-reset code.
func (t *Templates) PasswordResetCode(username, code string) (subject, htmlBody, textBody string) {
	subject = "Reset your Shortly password"

	content := fmt.Sprintf(`
        <p>Hi %s,</p>
        <p>Use this code to reset your password. It expires in 10 minutes.</p>
        <div class="code">%s</div>
        <p>If you did not request a password reset, you can ignore this email.</p>`,
		html.EscapeString(username), html.EscapeString(code))

	htmlBody = t.baseHTML(subject, content)
	textBody = fmt.Sprintf("Hi %s,\n\nYour Shortly password reset code is: %s\n\nIt expires in 10 minutes. If you did not request a reset, ignore this email.\n", username, code)
	return subject, htmlBody, textBody
}
