package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/streamvault/backend/internal/domain/checkout"
)

const sendMessagePath = "/v1/messages"

// MailerAdapter delivers notifications through a hosted email API
type MailerAdapter struct {
	config     *MailerConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ checkout.Notifier = (*MailerAdapter)(nil)

// NewMailerAdapter creates a new mailer adapter
func NewMailerAdapter(config *MailerConfig, logger *zap.Logger) (*MailerAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &MailerAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

type sendMessageRequest struct {
	From     string `json:"from"`
	FromName string `json:"from_name,omitempty"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Text     string `json:"text"`
}

type sendMessageResponse struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

// Send delivers a single message
func (a *MailerAdapter) Send(ctx context.Context, msg checkout.Message) error {
	body, err := json.Marshal(sendMessageRequest{
		From:     a.config.FromAddress,
		FromName: a.config.FromName,
		To:       msg.Recipient,
		Subject:  msg.Subject,
		Text:     msg.BodyText,
	})
	if err != nil {
		return fmt.Errorf("mailer: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIBaseURL+sendMessagePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailer: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed sendMessageResponse
		_ = json.Unmarshal(respBody, &parsed)
		a.logger.Warn("Mail delivery rejected",
			zap.String("recipient", msg.Recipient),
			zap.Int("status", resp.StatusCode),
			zap.String("message", parsed.Message))
		return fmt.Errorf("mailer: delivery failed with status %d", resp.StatusCode)
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.ID != "" {
		a.logger.Debug("Mail delivered",
			zap.String("recipient", msg.Recipient),
			zap.String("message_id", parsed.ID))
	}

	return nil
}

// LogNotifier logs notifications instead of sending them. Used in
// development when no mailer is configured.
type LogNotifier struct {
	logger *zap.Logger
}

var _ checkout.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message and reports success
func (n *LogNotifier) Send(ctx context.Context, msg checkout.Message) error {
	n.logger.Info("Notification (mailer disabled)",
		zap.String("recipient", msg.Recipient),
		zap.String("subject", msg.Subject))
	return nil
}
