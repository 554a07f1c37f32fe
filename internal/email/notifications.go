package email

import (
	"log"

	"shortly/internal/config"
)

// Notifier sends account emails (verification and password-reset codes).
type Notifier struct {
	service   *Service
	templates *Templates
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg *config.Config) *Notifier {
	return &Notifier{
		service:   NewService(cfg),
		templates: NewTemplates(cfg),
	}
}

// SendVerificationCode mails an email-verification code to the address.
func (n *Notifier) SendVerificationCode(to, username, code string) {
	if !n.service.IsEnabled() {
		log.Printf("Email disabled, verification code for %s not sent", to)
		return
	}

	subject, htmlBody, textBody := n.templates.VerificationCode(username, code)
	go func() {
		if err := n.service.SendEmail([]string{to}, subject, htmlBody, textBody); err != nil {
			log.Printf("Failed to send verification code to %s: %v", to, err)
		}
	}()
}

// SendPasswordResetCode mails a password-reset code to the address.
func (n *Notifier) SendPasswordResetCode(to, username, code string) {
	if !n.service.IsEnabled() {
		log.Printf("Email disabled, password reset code for %s not sent", to)
		return
	}

	subject, htmlBody, textBody := n.templates.PasswordResetCode(username, code)
	go func() {
		if err := n.service.SendEmail([]string{to}, subject, htmlBody, textBody); err != nil {
			log.Printf("Failed to send password reset code to %s: %v", to, err)
		}
	}()
}
