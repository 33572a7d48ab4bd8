package service

import (
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

// MailService sends one-time-code emails over SMTP with mandatory STARTTLS.
type MailService struct {
	dialer *mail.Dialer
	from   string
}

func NewMailService(host string, port int, username, password, from string) *MailService {
	d := mail.NewDialer(host, port, username, password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	return &MailService{dialer: d, from: from}
}

func (m *MailService) send(to, subject, body string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

// SendRecoveryCode emails the 5-digit password-recovery code.
func (m *MailService) SendRecoveryCode(to, name, code string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour password recovery code is: %s\n\nIt expires in 20 minutes. If you did not request it, ignore this email.\n",
		name, code)
	return m.send(to, "Password recovery code", body)
}

// SendVerificationCode emails the 6-character signup confirmation code.
func (m *MailService) SendVerificationCode(to, name, code string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour email verification code is: %s\n\nIt expires in 2 hours.\n",
		name, code)
	return m.send(to, "Verify your email", body)
}
