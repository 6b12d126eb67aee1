package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/ecellhq/launchpad/internal/pkg/env"
)

// SendMail sends a notification email via SMTP
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

// SendSubmissionReviewed notifies a participant that their submission was reviewed
func SendSubmissionReviewed(to, taskTitle, status string, points int, feedback string) error {
	subject := fmt.Sprintf("Your submission for %q was %s", taskTitle, status)
	body := fmt.Sprintf("<p>Your submission for <b>%s</b> was <b>%s</b>.</p>", taskTitle, status)
	if points > 0 {
		body += fmt.Sprintf("<p>You earned <b>%d</b> points.</p>", points)
	}
	if feedback != "" {
		body += fmt.Sprintf("<p>Reviewer feedback: %s</p>", feedback)
	}
	return SendMail(to, subject, body)
}

// SendPaymentReceipt notifies a buyer that their payment settled
func SendPaymentReceipt(to, itemName, transactionID string, amount float64) error {
	subject := "Payment confirmed"
	body := fmt.Sprintf(
		"<p>Your payment of <b>INR %.2f</b> for <b>%s</b> was successful.</p><p>Reference: %s</p>",
		amount, itemName, transactionID,
	)
	return SendMail(to, subject, body)
}
