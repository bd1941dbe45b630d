package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"secureauth/config"
	"secureauth/pkg/logger"
)

const brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

// BrevoClient sends transactional email through the Brevo API
type BrevoClient struct {
	apiKey      string
	senderEmail string
	senderName  string
	baseURL     string
	httpClient  *http.Client
	logger      *logger.Logger
}

// NewBrevoClient creates a Brevo transactional email client
func NewBrevoClient(cfg *config.Config, logger *logger.Logger) *BrevoClient {
	return &BrevoClient{
		apiKey:      cfg.Brevo.APIKey,
		senderEmail: cfg.Brevo.SenderEmail,
		senderName:  cfg.Brevo.SenderName,
		baseURL:     brevoAPIURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

// Configured reports whether an API key is present
func (c *BrevoClient) Configured() bool {
	return c.apiKey != ""
}

type brevoSendRequest struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// SendEmail delivers a single HTML email
func (c *BrevoClient) SendEmail(to, subject, html string) error {
	if !c.Configured() {
		return fmt.Errorf("brevo client is not configured")
	}

	reqBody := brevoSendRequest{
		Sender:      map[string]string{"email": c.senderEmail, "name": c.senderName},
		To:          []map[string]string{{"email": to}},
		Subject:     subject,
		HTMLContent: html,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create Brevo request: %w", err)
	}

	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Brevo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("brevo API returned status %d", resp.StatusCode)
	}

	c.logger.Infow("Email sent", "to", to, "subject", subject)
	return nil
}

// EmailOTPSender delivers login/registration verification codes by email
type EmailOTPSender struct {
	client *BrevoClient
}

// NewEmailOTPSender creates a Sender for verification codes
func NewEmailOTPSender(client *BrevoClient) *EmailOTPSender {
	return &EmailOTPSender{client: client}
}

// Send delivers the verification code
func (s *EmailOTPSender) Send(to, code string) error {
	return s.client.SendEmail(to, "Your SecureAuth verification code", verificationEmailHTML(code))
}

// RecoveryEmailSender delivers password recovery codes by email
type RecoveryEmailSender struct {
	client *BrevoClient
}

// NewRecoveryEmailSender creates a Sender for recovery codes
func NewRecoveryEmailSender(client *BrevoClient) *RecoveryEmailSender {
	return &RecoveryEmailSender{client: client}
}

// Send delivers the recovery code
func (s *RecoveryEmailSender) Send(to, code string) error {
	return s.client.SendEmail(to, "SecureAuth password recovery code", recoveryEmailHTML(code))
}

func verificationEmailHTML(code string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>SecureAuth verification</h2>
    <p>Your verification code is:</p>
    <div style="background: #f3f4f6; padding: 20px; text-align: center; font-size: 32px; font-weight: bold; letter-spacing: 8px; border-radius: 8px;">%s</div>
    <p>This code is valid for a limited time. If you did not request it, you can ignore this message.</p>
  </div>
</body>
</html>`, code)
}

func recoveryEmailHTML(code string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Password recovery</h2>
    <p>You requested to reset your password. Use this code to continue:</p>
    <div style="background: #f3f4f6; padding: 20px; text-align: center; font-size: 32px; font-weight: bold; letter-spacing: 8px; border-radius: 8px;">%s</div>
    <p style="color: #e53e3e;">This code expires shortly. If you did not request a reset, ignore this message.</p>
  </div>
</body>
</html>`, code)
}
