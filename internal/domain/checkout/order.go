package checkout

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streamvault/backend/internal/domain/shared"
	"github.com/streamvault/backend/internal/domain/shared/valueobject"
)

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// FulfillmentStatus represents the credential-delivery state of an order
type FulfillmentStatus string

const (
	FulfillmentStatusPending   FulfillmentStatus = "pending"
	FulfillmentStatusCompleted FulfillmentStatus = "completed"
)

// PaymentMethod identifies how an order was (or will be) paid
type PaymentMethod string

const (
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodFreeTrial PaymentMethod = "free_trial"
)

// LineItems is a JSONB-embedded list of resolved order lines
type LineItems []ResolvedLineItem

// Value implements driver.Valuer for JSONB storage
func (l LineItems) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB retrieval
func (l *LineItems) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into LineItems", value)
	}
}

// Order is the durable record of a single checkout attempt, from validated
// cart through payment to credential issuance. Orders are never deleted by
// the pipeline; they form the audit trail.
type Order struct {
	shared.BaseEntity
	OrderCode         string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerEmail     string            `gorm:"type:varchar(255);not null;index"`
	CustomerName      string            `gorm:"type:varchar(200);not null"`
	LineItems         LineItems         `gorm:"type:jsonb;not null"`
	TotalAmount       int64             `gorm:"not null"` // minor currency units
	Currency          string            `gorm:"type:varchar(3);not null;default:'USD'"`
	PaymentMethod     PaymentMethod     `gorm:"type:varchar(20);not null"`
	PaymentStatus     PaymentStatus     `gorm:"type:varchar(20);not null;default:'pending';index"`
	FulfillmentStatus FulfillmentStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	ExternalChargeID  string            `gorm:"type:varchar(255);index"` // gateway charge/session reference
	Credentials       *Credentials      `gorm:"type:jsonb"`
	PaidAt            *time.Time
	FulfilledAt       *time.Time
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a pending order from a resolved cart
func NewOrder(orderCode string, req CartRequest, cart *ResolvedCart, method PaymentMethod) (*Order, error) {
	if orderCode == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_CODE", "Order code cannot be empty")
	}
	if req.CustomerEmail == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_EMAIL", "Customer email cannot be empty")
	}
	if cart == nil || len(cart.LineItems) == 0 {
		return nil, shared.ErrEmptyCart
	}

	return &Order{
		BaseEntity:        shared.NewBaseEntity(),
		OrderCode:         orderCode,
		CustomerEmail:     req.CustomerEmail,
		CustomerName:      req.CustomerName,
		LineItems:         cart.LineItems,
		TotalAmount:       cart.TotalAmountMinor,
		Currency:          string(cart.Currency),
		PaymentMethod:     method,
		PaymentStatus:     PaymentStatusPending,
		FulfillmentStatus: FulfillmentStatusPending,
	}, nil
}

// AttachCharge records the gateway charge reference created for this order.
// An order gets at most one charge; a second attachment is an invalid state.
func (o *Order) AttachCharge(externalChargeID string) error {
	if o.PaymentStatus != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot attach charge to order in %s payment status", o.PaymentStatus))
	}
	if o.ExternalChargeID != "" {
		return shared.NewDomainError("INVALID_STATE", "Order already has a charge attached")
	}
	if externalChargeID == "" {
		return shared.NewDomainError("INVALID_CHARGE_ID", "Charge ID cannot be empty")
	}

	o.ExternalChargeID = externalChargeID
	o.UpdatedAt = time.Now()
	return nil
}

// CompletePayment transitions the order to completed payment state
func (o *Order) CompletePayment() error {
	if o.PaymentStatus != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot complete payment for order in %s payment status", o.PaymentStatus))
	}

	now := time.Now()
	o.PaymentStatus = PaymentStatusCompleted
	o.PaidAt = &now
	o.UpdatedAt = now
	return nil
}

// FailPayment transitions the order to failed payment state
func (o *Order) FailPayment() error {
	if o.PaymentStatus != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot fail payment for order in %s payment status", o.PaymentStatus))
	}

	o.PaymentStatus = PaymentStatusFailed
	o.UpdatedAt = time.Now()
	return nil
}

// AttachCredentials records the generated access credentials and marks the
// order fulfilled. Credentials are generated at most once per order; a
// second attachment is a programming error surfaced as INVALID_STATE.
func (o *Order) AttachCredentials(creds Credentials) error {
	if o.PaymentStatus != PaymentStatusCompleted {
		return shared.NewDomainError("INVALID_STATE", "Cannot fulfill an order before payment completes")
	}
	if o.Credentials != nil {
		return shared.NewDomainError("INVALID_STATE", "Order credentials have already been issued")
	}

	now := time.Now()
	o.Credentials = &creds
	o.FulfillmentStatus = FulfillmentStatusCompleted
	o.FulfilledAt = &now
	o.UpdatedAt = now
	return nil
}

// IsPaid returns true if payment has completed
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusCompleted
}

// IsFulfilled returns true if credentials have been issued
func (o *Order) IsFulfilled() bool {
	return o.FulfillmentStatus == FulfillmentStatusCompleted
}

// HasCharge returns true if a gateway charge has been created for this order
func (o *Order) HasCharge() bool {
	return o.ExternalChargeID != ""
}

// TotalMoney returns the order total as a Money value
func (o *Order) TotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoneyFromMinorUnits(o.TotalAmount, valueobject.Currency(o.Currency))
	return m
}
