package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Mailer is the outbound email boundary. Implementations must treat delivery
// as best-effort; callers never roll back on a send failure.
type Mailer interface {
	Send(toEmail, subject, htmlBody string) error
}

const mailjetSendURL = "https://api.mailjet.com/v3.1/send"

type mailjetRecipient struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type mailjetMessage struct {
	From     mailjetRecipient   `json:"From"`
	To       []mailjetRecipient `json:"To"`
	Subject  string             `json:"Subject"`
	HTMLPart string             `json:"HTMLPart"`
}

type mailjetSendRequest struct {
	Messages []mailjetMessage `json:"Messages"`
}

// MailjetMailer sends transactional email through the Mailjet v3.1 API.
type MailjetMailer struct {
	APIKey    string
	SecretKey string
	FromEmail string
	FromName  string
	Client    *http.Client
}

func (m *MailjetMailer) Send(toEmail, subject, htmlBody string) error {
	payload := mailjetSendRequest{
		Messages: []mailjetMessage{
			{
				From:     mailjetRecipient{Email: m.FromEmail, Name: m.FromName},
				To:       []mailjetRecipient{{Email: toEmail}},
				Subject:  subject,
				HTMLPart: htmlBody,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Mailjet payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, mailjetSendURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build Mailjet request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(m.APIKey, m.SecretKey)

	client := m.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Mailjet request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Mailjet returned status %d", resp.StatusCode)
	}

	return nil
}

// LogMailer writes email intents to the log instead of sending them. Used in
// development and tests when no provider keys are configured.
type LogMailer struct{}

func (LogMailer) Send(toEmail, subject, _ string) error {
	log.Printf("Email (not sent, no provider configured) to=%s subject=%q", toEmail, subject)
	return nil
}

// NewMailerFromEnv returns a Mailjet mailer when API keys are present and a
// log-only mailer otherwise.
func NewMailerFromEnv() Mailer {
	apiKey := os.Getenv("MAILJET_API_KEY")
	secretKey := os.Getenv("MAILJET_SECRET_KEY")

	if apiKey == "" || secretKey == "" {
		log.Println("Mailjet keys not configured, using log-only mailer")
		return LogMailer{}
	}

	fromEmail := os.Getenv("MAIL_FROM_EMAIL")
	if fromEmail == "" {
		fromEmail = "noreply@omnitak.com"
	}

	fromName := os.Getenv("MAIL_FROM_NAME")
	if fromName == "" {
		fromName = "StackFlow"
	}

	return &MailjetMailer{
		APIKey:    apiKey,
		SecretKey: secretKey,
		FromEmail: fromEmail,
		FromName:  fromName,
	}
}
