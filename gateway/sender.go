package gateway

import (
	"secureauth/pkg/logger"
)

// Sender delivers a one-time code to a subject via an external provider.
// Implementations report failure through the error return; nothing panics
// past this boundary.
type Sender interface {
	Send(to, code string) error
}

// ConsoleSender writes codes to the log instead of a provider. Used when
// provider credentials are not configured, so local development works
// without Twilio or Brevo accounts.
type ConsoleSender struct {
	channel string
	logger  *logger.Logger
}

// NewConsoleSender creates a console-backed sender for the named channel
func NewConsoleSender(channel string, logger *logger.Logger) *ConsoleSender {
	return &ConsoleSender{
		channel: channel,
		logger:  logger,
	}
}

// Send logs the code
func (s *ConsoleSender) Send(to, code string) error {
	s.logger.Infow("OTP delivery (console)", "channel", s.channel, "to", to, "code", code)
	return nil
}
