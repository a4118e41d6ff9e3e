package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/streamvault/backend/internal/domain/checkout"
	"github.com/streamvault/backend/internal/domain/shared"
)

// StripeAdapter implements the checkout payment gateway on Stripe
// PaymentIntents. The API client is held on the adapter rather than set
// through stripe's package-level key.
type StripeAdapter struct {
	config *StripeConfig
	api    *client.API
	logger *zap.Logger
}

var _ checkout.PaymentGateway = (*StripeAdapter)(nil)

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &StripeAdapter{
		config: config,
		api:    client.New(config.SecretKey, nil),
		logger: logger,
	}, nil
}

// CreateCharge creates a PaymentIntent for the order total
func (a *StripeAdapter) CreateCharge(ctx context.Context, req checkout.ChargeRequest) (*checkout.ChargeResult, error) {
	a.logger.Debug("Creating Stripe payment intent",
		zap.String("order_code", req.OrderCode),
		zap.Int64("amount_minor", req.AmountMinor))

	currency := req.Currency
	if currency == "" {
		currency = a.config.DefaultCurrency
	}

	params := &stripe.PaymentIntentParams{
		Params:       stripe.Params{Context: ctx},
		Amount:       stripe.Int64(req.AmountMinor),
		Currency:     stripe.String(currency),
		ReceiptEmail: stripe.String(req.CustomerEmail),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}

	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}

	// Add metadata
	params.Metadata = map[string]string{
		"order_id":   req.OrderID.String(),
		"order_code": req.OrderCode,
	}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}

	intent, err := a.api.PaymentIntents.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe payment intent",
			zap.String("order_code", req.OrderCode),
			zap.Error(err))
		return nil, mapStripeError(err)
	}

	a.logger.Info("Created Stripe payment intent",
		zap.String("order_code", req.OrderCode),
		zap.String("payment_intent_id", intent.ID),
		zap.String("status", string(intent.Status)))

	return &checkout.ChargeResult{
		ChargeID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       mapIntentStatus(intent.Status),
	}, nil
}

// VerifyEvent authenticates a webhook payload and decodes the payment outcome
func (a *StripeAdapter) VerifyEvent(payload []byte, signature string) (*checkout.PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, a.config.WebhookSecret)
	if err != nil {
		a.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", shared.ErrUnauthenticatedEvent, err)
	}

	result := &checkout.PaymentEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
	}

	switch event.Type {
	case "payment_intent.succeeded":
		intent, err := decodeIntent(event)
		if err != nil {
			return nil, err
		}
		result.Outcome = &checkout.PaymentOutcome{
			ChargeID:  intent.ID,
			Succeeded: true,
		}

	case "payment_intent.payment_failed":
		intent, err := decodeIntent(event)
		if err != nil {
			return nil, err
		}
		reason := "payment failed"
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			reason = intent.LastPaymentError.Msg
		}
		result.Outcome = &checkout.PaymentOutcome{
			ChargeID:      intent.ID,
			Succeeded:     false,
			FailureReason: reason,
		}

	default:
		a.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
	}

	return result, nil
}

func decodeIntent(event stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}
	return &intent, nil
}

// mapIntentStatus maps Stripe intent statuses to charge statuses
func mapIntentStatus(status stripe.PaymentIntentStatus) checkout.ChargeStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return checkout.ChargeStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return checkout.ChargeStatusFailed
	default:
		return checkout.ChargeStatusPending
	}
}

// mapStripeError translates Stripe API errors into domain errors. Server-side
// and transport failures surface as gateway unavailability so the checkout
// endpoint can answer with an appropriate status.
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %v", shared.ErrGatewayUnavailable, err)
		}
		return fmt.Errorf("stripe: charge creation failed: %w", err)
	}
	return fmt.Errorf("%w: %v", shared.ErrGatewayUnavailable, err)
}
