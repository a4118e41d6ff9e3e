package checkout

import (
	"context"

	"github.com/google/uuid"
)

// ChargeStatus is the gateway-side state of a charge at creation time
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "pending"
	ChargeStatusSucceeded ChargeStatus = "succeeded"
	ChargeStatusFailed    ChargeStatus = "failed"
)

// ChargeRequest describes a charge to create at the payment gateway.
// AmountMinor is always the server-computed total; client-submitted amounts
// never reach the gateway.
type ChargeRequest struct {
	OrderID       uuid.UUID
	OrderCode     string
	AmountMinor   int64
	Currency      string
	CustomerEmail string
	Description   string
	Metadata      map[string]string
}

// ChargeResult is the synchronous outcome of charge creation. The final
// payment outcome arrives later via webhook; ClientSecret lets the
// storefront confirm the charge with the gateway directly.
type ChargeResult struct {
	ChargeID     string
	ClientSecret string
	Status       ChargeStatus
}

// PaymentOutcome is the asynchronous result of a charge, extracted from a
// verified gateway event
type PaymentOutcome struct {
	ChargeID      string
	Succeeded     bool
	FailureReason string
}

// PaymentEvent is a signature-verified gateway notification. Outcome is nil
// for event types the pipeline does not act on; such events are acknowledged
// without side effects.
type PaymentEvent struct {
	EventID   string
	EventType string
	Outcome   *PaymentOutcome
}

// PaymentGateway abstracts the external payment provider
type PaymentGateway interface {
	// CreateCharge creates a charge for the given amount and returns the
	// gateway's charge reference
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

	// VerifyEvent authenticates a raw webhook payload against its signature
	// and decodes it into a PaymentEvent. Returns
	// shared.ErrUnauthenticatedEvent when verification fails.
	VerifyEvent(payload []byte, signature string) (*PaymentEvent, error)
}
