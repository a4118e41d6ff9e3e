package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/streamvault/backend/internal/domain/checkout"
	"github.com/streamvault/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// WebhookService processes asynchronous payment events from the gateway.
// Every event is signature-verified before anything else happens. Processing
// is idempotent at two levels: the event-ID store short-circuits replays,
// and the order repository's conditional transitions are the authoritative
// guard when the store is cold or unavailable.
type WebhookService struct {
	gateway          checkout.PaymentGateway
	orderRepo        checkout.OrderRepository
	fulfillment      *FulfillmentService
	idempotencyStore shared.IdempotencyStore
	idempotencyCfg   shared.IdempotencyConfig
	logger           *zap.Logger
}

// WebhookServiceConfig contains configuration for WebhookService
type WebhookServiceConfig struct {
	Gateway          checkout.PaymentGateway
	OrderRepo        checkout.OrderRepository
	Fulfillment      *FulfillmentService
	IdempotencyStore shared.IdempotencyStore
	IdempotencyCfg   shared.IdempotencyConfig
	Logger           *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	return &WebhookService{
		gateway:          cfg.Gateway,
		orderRepo:        cfg.OrderRepo,
		fulfillment:      cfg.Fulfillment,
		idempotencyStore: cfg.IdempotencyStore,
		idempotencyCfg:   cfg.IdempotencyCfg,
		logger:           cfg.Logger,
	}
}

// ProcessWebhook verifies and applies a gateway event. It returns
// shared.ErrUnauthenticatedEvent when the signature does not verify; every
// authenticated event is acknowledged, including replays and events for
// orders this system does not know.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.gateway.VerifyEvent(payload, signature)
	if err != nil {
		s.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Processing payment event",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType))

	result := &WebhookResult{
		EventID:   event.EventID,
		EventType: event.EventType,
		Processed: true,
	}

	if event.Outcome == nil {
		result.Message = "Event type not handled"
		return result, nil
	}

	if s.idempotencyCfg.Enabled && s.idempotencyStore != nil {
		seen, err := s.idempotencyStore.IsProcessed(ctx, event.EventID)
		if err != nil {
			// Store outage is not fatal; the conditional order update below
			// still guarantees exactly-once state transitions.
			s.logger.Warn("Idempotency store unavailable, relying on order state",
				zap.String("event_id", event.EventID),
				zap.Error(err))
		} else if seen {
			s.logger.Info("Duplicate payment event, skipping",
				zap.String("event_id", event.EventID))
			result.Message = "Event already processed"
			return result, nil
		}
	}

	if err := s.applyOutcome(ctx, event, result); err != nil {
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	// Record the event only once its outcome has been applied. A failed
	// attempt leaves the ID unrecorded so the gateway's redelivery is
	// processed instead of short-circuited.
	if s.idempotencyCfg.Enabled && s.idempotencyStore != nil {
		if _, err := s.idempotencyStore.MarkProcessed(ctx, event.EventID, s.idempotencyCfg.TTL); err != nil {
			s.logger.Warn("Failed to record processed event",
				zap.String("event_id", event.EventID),
				zap.Error(err))
		}
	}

	return result, nil
}

func (s *WebhookService) applyOutcome(ctx context.Context, event *checkout.PaymentEvent, result *WebhookResult) error {
	outcome := event.Outcome

	order, err := s.orderRepo.FindByExternalChargeID(ctx, outcome.ChargeID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Acknowledge receipt so the gateway stops retrying. The charge
			// may belong to another environment sharing the account.
			s.logger.Warn("No order found for charge, acknowledging",
				zap.String("event_id", event.EventID),
				zap.String("charge_id", outcome.ChargeID))
			result.Message = "No order for charge"
			return nil
		}
		return fmt.Errorf("failed to find order for charge: %w", err)
	}

	if !outcome.Succeeded {
		updated, err := s.orderRepo.MarkPaymentFailed(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		if !updated {
			s.logger.Info("Payment failure event for non-pending order, skipping",
				zap.String("order_code", order.OrderCode))
			result.Message = "Order already settled"
			return nil
		}
		s.logger.Info("Payment failed",
			zap.String("order_code", order.OrderCode),
			zap.String("reason", outcome.FailureReason))
		return nil
	}

	updated, err := s.orderRepo.MarkPaymentCompleted(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to mark payment completed: %w", err)
	}

	switch {
	case updated:
		order.PaymentStatus = checkout.PaymentStatusCompleted
	case order.IsPaid() && order.Credentials == nil:
		// Replay of a success event for an order whose earlier fulfillment
		// did not finish. Re-running fulfillment is safe; the conditional
		// credential attach keeps issuance at most once.
		s.logger.Info("Retrying fulfillment for paid order",
			zap.String("order_code", order.OrderCode))
	default:
		s.logger.Info("Payment success event for settled order, skipping",
			zap.String("order_code", order.OrderCode))
		result.Message = "Order already settled"
		return nil
	}

	report, err := s.fulfillment.Fulfill(ctx, order)
	if err != nil {
		// Payment completion stands; only issuance is retried on the next
		// delivery of this event.
		s.logger.Error("Fulfillment failed for paid order",
			zap.String("order_code", order.OrderCode),
			zap.Error(err))
		return fmt.Errorf("fulfillment failed: %w", err)
	}

	if !report.AllSent() {
		s.logger.Warn("Some fulfillment notifications failed",
			zap.String("order_code", order.OrderCode),
			zap.Any("deliveries", report.Deliveries))
	}

	s.logger.Info("Payment completed",
		zap.String("order_code", order.OrderCode),
		zap.String("charge_id", outcome.ChargeID))
	return nil
}
