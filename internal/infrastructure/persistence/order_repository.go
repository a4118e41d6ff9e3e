package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streamvault/backend/internal/domain/checkout"
	"github.com/streamvault/backend/internal/domain/shared"
)

// GormOrderRepository implements checkout.OrderRepository using GORM
type GormOrderRepository struct {
	db              *gorm.DB
	orderCodePrefix string
}

var _ checkout.OrderRepository = (*GormOrderRepository)(nil)

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB, orderCodePrefix string) *GormOrderRepository {
	if orderCodePrefix == "" {
		orderCodePrefix = "SV"
	}
	return &GormOrderRepository{db: db, orderCodePrefix: orderCodePrefix}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*checkout.Order, error) {
	var order checkout.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByOrderCode finds an order by its public order code
func (r *GormOrderRepository) FindByOrderCode(ctx context.Context, orderCode string) (*checkout.Order, error) {
	var order checkout.Order
	if err := r.db.WithContext(ctx).
		Where("order_code = ?", orderCode).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByExternalChargeID finds the order that owns a gateway charge reference
func (r *GormOrderRepository) FindByExternalChargeID(ctx context.Context, chargeID string) (*checkout.Order, error) {
	if chargeID == "" {
		return nil, shared.NewDomainError("INVALID_CHARGE_ID", "Charge ID cannot be empty")
	}
	var order checkout.Order
	if err := r.db.WithContext(ctx).
		Where("external_charge_id = ?", chargeID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Save creates or updates an order
func (r *GormOrderRepository) Save(ctx context.Context, order *checkout.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// MarkPaymentCompleted transitions the order to completed payment only if it
// is still pending. The WHERE clause makes the transition atomic; a repeat
// webhook delivery or a concurrent instance finds zero rows affected.
func (r *GormOrderRepository) MarkPaymentCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&checkout.Order{}).
		Where("id = ? AND payment_status = ?", id, checkout.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": checkout.PaymentStatusCompleted,
			"paid_at":        now,
			"updated_at":     now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkPaymentFailed transitions the order to failed payment only if it is
// still pending
func (r *GormOrderRepository) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&checkout.Order{}).
		Where("id = ? AND payment_status = ?", id, checkout.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": checkout.PaymentStatusFailed,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AttachCredentials stores issued credentials and marks the order fulfilled,
// only if no credentials exist yet. Guarantees at-most-once issuance even
// under concurrent fulfillment attempts.
func (r *GormOrderRepository) AttachCredentials(ctx context.Context, id uuid.UUID, creds checkout.Credentials) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&checkout.Order{}).
		Where("id = ? AND credentials IS NULL", id).
		Updates(map[string]any{
			"credentials":        &creds,
			"fulfillment_status": checkout.FulfillmentStatusCompleted,
			"fulfilled_at":       now,
			"updated_at":         now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GenerateOrderCode generates a unique public order code
// Format: SV-YYYY-NNNNN (e.g., SV-2026-00001)
func (r *GormOrderRepository) GenerateOrderCode(ctx context.Context) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("%s-%d-", r.orderCodePrefix, year)

	// Get the highest order code for this year
	var lastOrder checkout.Order
	err := r.db.WithContext(ctx).
		Model(&checkout.Order{}).
		Where("order_code LIKE ?", prefix+"%").
		Order("order_code DESC").
		First(&lastOrder).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil && lastOrder.OrderCode != "" {
		parts := strings.Split(lastOrder.OrderCode, "-")
		if len(parts) == 3 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}
