package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which payment events have been applied so
// gateway redeliveries can be acknowledged without re-running fulfillment
type IdempotencyStore interface {
	// MarkProcessed records an event ID with a TTL
	// Returns true if the event was newly recorded, false if it was already known
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether an event ID has already been recorded
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for payment event deduplication
type IdempotencyConfig struct {
	// TTL is how long an event ID stays recorded. Stripe retries webhook
	// deliveries for up to three days; after the TTL the conditional order
	// update is the only replay guard.
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether event-ID deduplication is enabled
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
