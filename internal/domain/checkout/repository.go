package checkout

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID finds an order by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByOrderCode finds an order by its public order code
	FindByOrderCode(ctx context.Context, orderCode string) (*Order, error)

	// FindByExternalChargeID finds the order that owns a gateway charge reference
	FindByExternalChargeID(ctx context.Context, chargeID string) (*Order, error)

	// Save creates or updates an order
	Save(ctx context.Context, order *Order) error

	// MarkPaymentCompleted transitions the order from pending to completed
	// payment atomically. Returns (false, nil) when the order had already
	// left the pending state, so callers can treat repeat webhook deliveries
	// as no-ops.
	MarkPaymentCompleted(ctx context.Context, id uuid.UUID) (bool, error)

	// MarkPaymentFailed transitions the order from pending to failed payment
	// atomically. Returns (false, nil) when the order had already left the
	// pending state.
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) (bool, error)

	// AttachCredentials persists issued credentials and marks the order
	// fulfilled, only if no credentials have been stored yet. Returns
	// (false, nil) when credentials already exist.
	AttachCredentials(ctx context.Context, id uuid.UUID, creds Credentials) (bool, error)

	// GenerateOrderCode generates a unique public order code
	GenerateOrderCode(ctx context.Context) (string, error)
}
