package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"secureauth/config"
	"secureauth/pkg/logger"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioSender delivers OTP codes as SMS messages through the Twilio REST API
type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewTwilioSender creates a Twilio-backed SMS sender
func NewTwilioSender(cfg *config.Config, logger *logger.Logger) *TwilioSender {
	return &TwilioSender{
		accountSID: cfg.Twilio.AccountSID,
		authToken:  cfg.Twilio.AuthToken,
		fromNumber: cfg.Twilio.FromNumber,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Configured reports whether Twilio credentials are present
func (s *TwilioSender) Configured() bool {
	return s.accountSID != "" && s.authToken != "" && s.fromNumber != ""
}

// Send delivers the code as an SMS message
func (s *TwilioSender) Send(to, code string) error {
	if !s.Configured() {
		return fmt.Errorf("twilio sender is not configured")
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.fromNumber)
	form.Set("Body", fmt.Sprintf("Your verification code is: %s", code))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create Twilio request: %w", err)
	}

	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("twilio API returned status %d: %s", resp.StatusCode, string(body))
	}

	s.logger.Infow("SMS sent", "to", to)
	return nil
}
