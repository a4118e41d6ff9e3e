package checkout

import (
	"time"

	"github.com/streamvault/backend/internal/domain/checkout"
)

// ==================== Checkout DTOs ====================

// CheckoutItemInput is one cart line as submitted by the storefront.
// Any price fields the client sends are ignored upstream of binding.
type CheckoutItemInput struct {
	ProductCode string `json:"product_code" binding:"required,min=1,max=50"`
	Quantity    int64  `json:"quantity"`
}

// CheckoutRequest represents a checkout submission
type CheckoutRequest struct {
	Items         []CheckoutItemInput `json:"items" binding:"required,min=1,dive"`
	CustomerEmail string              `json:"customer_email" binding:"required,email,max=255"`
	CustomerName  string              `json:"customer_name" binding:"required,min=1,max=200"`
}

// FreeTrialRequest represents a free trial signup
type FreeTrialRequest struct {
	ProductCode   string `json:"product_code" binding:"required,min=1,max=50"`
	CustomerEmail string `json:"customer_email" binding:"required,email,max=255"`
	CustomerName  string `json:"customer_name" binding:"required,min=1,max=200"`
}

// LineItemResponse is a server-priced order line
type LineItemResponse struct {
	ProductCode    string `json:"product_code"`
	Name           string `json:"name"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	Quantity       int64  `json:"quantity"`
	LineTotalMinor int64  `json:"line_total_minor"`
}

// CheckoutResponse is returned after a successful checkout submission. The
// payment itself completes asynchronously; ClientSecret lets the storefront
// confirm the charge with the gateway.
type CheckoutResponse struct {
	OrderCode     string             `json:"order_code"`
	TotalAmount   int64              `json:"total_amount"`
	Currency      string             `json:"currency"`
	PaymentStatus string             `json:"payment_status"`
	LineItems     []LineItemResponse `json:"line_items"`
	ClientSecret  string             `json:"client_secret,omitempty"`
}

// CredentialsResponse exposes issued credentials. Password is only included
// in the fulfillment notification path, never in order lookups.
type CredentialsResponse struct {
	Username   string     `json:"username"`
	Password   string     `json:"password,omitempty"`
	ServiceURL string     `json:"service_url"`
	Trial      bool       `json:"trial,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// FreeTrialResponse is returned after a trial signup. Trials fulfill
// synchronously, so credentials are included directly.
type FreeTrialResponse struct {
	OrderCode   string               `json:"order_code"`
	Credentials *CredentialsResponse `json:"credentials,omitempty"`
	Deliveries  []checkout.Delivery  `json:"deliveries,omitempty"`
}

// OrderResponse is the public view of an order
type OrderResponse struct {
	OrderCode         string               `json:"order_code"`
	CustomerEmail     string               `json:"customer_email"`
	CustomerName      string               `json:"customer_name"`
	LineItems         []LineItemResponse   `json:"line_items"`
	TotalAmount       int64                `json:"total_amount"`
	Currency          string               `json:"currency"`
	PaymentMethod     string               `json:"payment_method"`
	PaymentStatus     string               `json:"payment_status"`
	FulfillmentStatus string               `json:"fulfillment_status"`
	Credentials       *CredentialsResponse `json:"credentials,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	PaidAt            *time.Time           `json:"paid_at,omitempty"`
}

// WebhookResult contains the result of processing a gateway webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ToCartRequest converts the bound request into the domain cart
func (r CheckoutRequest) ToCartRequest() checkout.CartRequest {
	items := make([]checkout.CartItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, checkout.CartItem{
			ProductCode: item.ProductCode,
			Quantity:    item.Quantity,
		})
	}
	return checkout.CartRequest{
		Items:         items,
		CustomerEmail: r.CustomerEmail,
		CustomerName:  r.CustomerName,
	}
}

func toLineItemResponses(items checkout.LineItems) []LineItemResponse {
	out := make([]LineItemResponse, 0, len(items))
	for _, li := range items {
		out = append(out, LineItemResponse{
			ProductCode:    li.ProductCode,
			Name:           li.Name,
			UnitPriceMinor: li.UnitPriceMinor,
			Quantity:       li.Quantity,
			LineTotalMinor: li.LineTotalMinor,
		})
	}
	return out
}

// toCredentialsResponse maps issued credentials to their public view.
// The password is withheld unless includeSecret is set.
func toCredentialsResponse(creds *checkout.Credentials, includeSecret bool) *CredentialsResponse {
	if creds == nil {
		return nil
	}
	resp := &CredentialsResponse{
		Username:   creds.Username,
		ServiceURL: creds.ServiceURL,
		Trial:      creds.Trial,
		ExpiresAt:  creds.ExpiresAt,
	}
	if includeSecret {
		resp.Password = creds.Password
	}
	return resp
}

// ToOrderResponse converts an order to its public view. Credentials are
// always redacted here; the password leaves the system only through the
// fulfillment notification.
func ToOrderResponse(order *checkout.Order) OrderResponse {
	return OrderResponse{
		OrderCode:         order.OrderCode,
		CustomerEmail:     order.CustomerEmail,
		CustomerName:      order.CustomerName,
		LineItems:         toLineItemResponses(order.LineItems),
		TotalAmount:       order.TotalAmount,
		Currency:          order.Currency,
		PaymentMethod:     string(order.PaymentMethod),
		PaymentStatus:     string(order.PaymentStatus),
		FulfillmentStatus: string(order.FulfillmentStatus),
		Credentials:       toCredentialsResponse(order.Credentials, false),
		CreatedAt:         order.CreatedAt,
		PaidAt:            order.PaidAt,
	}
}
