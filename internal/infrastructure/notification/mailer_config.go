package notification

import (
	"errors"
	"time"
)

// MailerConfig contains configuration for the hosted email delivery API
type MailerConfig struct {
	// APIBaseURL is the base URL of the email delivery service
	APIBaseURL string
	// APIKey is the bearer token for the delivery API
	APIKey string
	// FromAddress is the sender address on outbound mail
	FromAddress string
	// FromName is the display name on outbound mail
	FromName string
	// Timeout bounds each delivery request
	Timeout time.Duration
}

// Errors for configuration validation
var (
	ErrMailerMissingBaseURL = errors.New("mailer: missing API base URL")
	ErrMailerMissingAPIKey  = errors.New("mailer: missing API key")
	ErrMailerMissingFrom    = errors.New("mailer: missing from address")
)

// Validate validates the configuration
func (c *MailerConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrMailerMissingBaseURL
	}
	if c.APIKey == "" {
		return ErrMailerMissingAPIKey
	}
	if c.FromAddress == "" {
		return ErrMailerMissingFrom
	}
	return nil
}
