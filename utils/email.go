// utils/email.go
package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/workmate-hq/workmate_backend/models"
)

// EmailService sends transactional email over SMTP
type EmailService struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// NewEmailService creates a new email service from environment variables
func NewEmailService() *EmailService {
	port := 587
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USER")
	}

	svc := &EmailService{
		Host: os.Getenv("SMTP_HOST"),
		Port: port,
		User: os.Getenv("SMTP_USER"),
		Pass: os.Getenv("SMTP_PASS"),
		From: from,
	}

	if svc.Host == "" || svc.User == "" {
		log.Println("Warning: SMTP credentials not fully configured, email sending will fail")
	}

	return svc
}

// SendOTPEmail emails a verification code. The caller has already
// persisted the code, so a dispatch failure leaves it verifiable.
func (s *EmailService) SendOTPEmail(to, code string, expiresAt time.Time) error {
	subject := "Your Workmate verification code"
	body := fmt.Sprintf(`
		<h2>Verify your email</h2>
		<p>Your Workmate verification code is:</p>
		<h1 style="letter-spacing: 4px;">%s</h1>
		<p>The code expires at %s (valid for %d minutes).</p>
		<p>If you did not request this code, you can ignore this email.</p>
	`, code, expiresAt.UTC().Format("15:04 MST"), int(OTPValidity.Minutes()))

	return s.send(to, subject, body)
}

// SendWelcomeEmail greets a freshly verified account
func (s *EmailService) SendWelcomeEmail(to, name string) error {
	subject := "Welcome to Workmate"
	body := fmt.Sprintf(`
		<h2>Welcome, %s!</h2>
		<p>Your Workmate account is ready. Create an organization or ask a
		teammate to invite you to one to get started.</p>
	`, name)

	return s.send(to, subject, body)
}

func (s *EmailService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Pass)

	if err := d.DialAndSend(m); err != nil {
		return &models.EmailDispatchError{Err: err}
	}

	return nil
}
