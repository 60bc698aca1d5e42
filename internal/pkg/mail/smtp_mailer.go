package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/MitchCasey/ReviewPing/internal/pkg/env"
)

// SendMail sends an email via SMTP.
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// SendReconnectNotice tells an account owner their provider connection died
// and review requests are paused until they reconnect.
func SendReconnectNotice(to, businessName, providerName string) error {
	subject := fmt.Sprintf("Action needed: reconnect %s for %s", providerName, businessName)
	body := fmt.Sprintf(
		"<p>Hi,</p>"+
			"<p>We could no longer refresh the %s connection for <strong>%s</strong>, "+
			"so automatic review requests are paused.</p>"+
			"<p>Please sign in and reconnect %s to resume sending.</p>",
		providerName, businessName, providerName,
	)
	return SendMail(to, subject, body)
}
