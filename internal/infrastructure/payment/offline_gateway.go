package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamvault/backend/internal/domain/checkout"
	"github.com/streamvault/backend/internal/domain/shared"
)

// OfflineGateway is a development stand-in used when Stripe is disabled.
// Charges are recorded locally and never settle on their own; events are
// accepted as plain JSON so payment outcomes can be driven by hand
// (e.g. curl against the webhook endpoint).
//
// It must never run in production: VerifyEvent performs no signature check.
type OfflineGateway struct {
	logger *zap.Logger
}

var _ checkout.PaymentGateway = (*OfflineGateway)(nil)

// NewOfflineGateway creates a new OfflineGateway
func NewOfflineGateway(logger *zap.Logger) *OfflineGateway {
	return &OfflineGateway{logger: logger}
}

// CreateCharge fabricates a local charge reference for the order
func (g *OfflineGateway) CreateCharge(ctx context.Context, req checkout.ChargeRequest) (*checkout.ChargeResult, error) {
	chargeID := "offline_" + uuid.NewString()

	g.logger.Info("Offline charge created",
		zap.String("order_code", req.OrderCode),
		zap.String("charge_id", chargeID),
		zap.Int64("amount_minor", req.AmountMinor))

	return &checkout.ChargeResult{
		ChargeID:     chargeID,
		ClientSecret: chargeID + "_secret",
		Status:       checkout.ChargeStatusPending,
	}, nil
}

type offlineEvent struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	ChargeID  string `json:"charge_id"`
	Succeeded bool   `json:"succeeded"`
	Reason    string `json:"reason"`
}

// VerifyEvent decodes a hand-written JSON event. The signature header must
// be present but its value is not checked.
func (g *OfflineGateway) VerifyEvent(payload []byte, signature string) (*checkout.PaymentEvent, error) {
	if signature == "" {
		return nil, shared.ErrUnauthenticatedEvent
	}

	var ev offlineEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnauthenticatedEvent, err)
	}
	if ev.EventID == "" || ev.ChargeID == "" {
		return nil, fmt.Errorf("%w: event_id and charge_id are required", shared.ErrUnauthenticatedEvent)
	}

	eventType := ev.EventType
	if eventType == "" {
		if ev.Succeeded {
			eventType = "payment_intent.succeeded"
		} else {
			eventType = "payment_intent.payment_failed"
		}
	}

	return &checkout.PaymentEvent{
		EventID:   ev.EventID,
		EventType: eventType,
		Outcome: &checkout.PaymentOutcome{
			ChargeID:      ev.ChargeID,
			Succeeded:     ev.Succeeded,
			FailureReason: ev.Reason,
		},
	}, nil
}
