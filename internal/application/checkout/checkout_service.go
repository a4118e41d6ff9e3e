package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/streamvault/backend/internal/domain/catalog"
	"github.com/streamvault/backend/internal/domain/checkout"
	"github.com/streamvault/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CheckoutService drives the purchase pipeline: cart validation against the
// catalog, order creation, and charge creation at the payment gateway.
type CheckoutService struct {
	productRepo catalog.ProductRepository
	orderRepo   checkout.OrderRepository
	gateway     checkout.PaymentGateway
	fulfillment *FulfillmentService
	logger      *zap.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(
	productRepo catalog.ProductRepository,
	orderRepo checkout.OrderRepository,
	gateway checkout.PaymentGateway,
	fulfillment *FulfillmentService,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		gateway:     gateway,
		fulfillment: fulfillment,
		logger:      logger,
	}
}

// Checkout validates the submitted cart, creates a pending order and a
// gateway charge for the server-computed total. The order is persisted
// before the gateway call so a gateway outage never loses the attempt.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	cartReq := req.ToCartRequest()

	codes := make([]string, 0, len(cartReq.Items))
	for _, item := range cartReq.Items {
		codes = append(codes, item.ProductCode)
	}

	products, err := s.productRepo.FindPurchasableByCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog entries: %w", err)
	}

	cart, err := checkout.ResolveCart(cartReq, products)
	if err != nil {
		return nil, err
	}

	orderCode, err := s.orderRepo.GenerateOrderCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order code: %w", err)
	}

	order, err := checkout.NewOrder(orderCode, cartReq, cart, checkout.PaymentMethodCard)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	charge, err := s.gateway.CreateCharge(ctx, checkout.ChargeRequest{
		OrderID:       order.ID,
		OrderCode:     order.OrderCode,
		AmountMinor:   order.TotalAmount,
		Currency:      order.Currency,
		CustomerEmail: order.CustomerEmail,
		Description:   fmt.Sprintf("StreamVault order %s", order.OrderCode),
		Metadata: map[string]string{
			"order_id":   order.ID.String(),
			"order_code": order.OrderCode,
		},
	})
	if err != nil {
		// The order stays pending with no charge attached. The storefront
		// can retry checkout; this order records the failed attempt.
		s.logger.Error("Charge creation failed",
			zap.String("order_code", order.OrderCode),
			zap.Int64("amount_minor", order.TotalAmount),
			zap.Error(err))
		return nil, err
	}

	if err := order.AttachCharge(charge.ChargeID); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order charge reference: %w", err)
	}

	s.logger.Info("Checkout accepted",
		zap.String("order_code", order.OrderCode),
		zap.String("charge_id", charge.ChargeID),
		zap.Int64("total_amount", order.TotalAmount))

	return &CheckoutResponse{
		OrderCode:     order.OrderCode,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		PaymentStatus: string(order.PaymentStatus),
		LineItems:     toLineItemResponses(order.LineItems),
		ClientSecret:  charge.ClientSecret,
	}, nil
}

// StartFreeTrial creates and immediately fulfills a zero-amount trial order.
// No gateway charge is involved; the order completes synchronously and the
// trial credentials are issued in the same request.
func (s *CheckoutService) StartFreeTrial(ctx context.Context, req FreeTrialRequest) (*FreeTrialResponse, error) {
	product, err := s.productRepo.FindByCode(ctx, req.ProductCode)
	if err != nil {
		return nil, err
	}
	if !product.IsPurchasable() || !product.IsFreeTrial() {
		return nil, checkout.NewUnresolvableProductError([]string{req.ProductCode})
	}

	orderCode, err := s.orderRepo.GenerateOrderCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order code: %w", err)
	}

	cartReq := checkout.CartRequest{
		Items:         []checkout.CartItem{{ProductCode: product.Code, Quantity: 1}},
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerName:  strings.TrimSpace(req.CustomerName),
	}
	cart := &checkout.ResolvedCart{
		LineItems: []checkout.ResolvedLineItem{{
			ProductCode:    product.Code,
			Name:           product.Name,
			UnitPriceMinor: 0,
			Quantity:       1,
			LineTotalMinor: 0,
		}},
		TotalAmountMinor: 0,
		Currency:         product.EffectivePrice().Currency(),
	}

	order, err := checkout.NewOrder(orderCode, cartReq, cart, checkout.PaymentMethodFreeTrial)
	if err != nil {
		return nil, err
	}
	if err := order.CompletePayment(); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save trial order: %w", err)
	}

	report, err := s.fulfillment.Fulfill(ctx, order)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Free trial started",
		zap.String("order_code", order.OrderCode),
		zap.String("product_code", product.Code))

	return &FreeTrialResponse{
		OrderCode:   order.OrderCode,
		Credentials: toCredentialsResponse(order.Credentials, true),
		Deliveries:  report.Deliveries,
	}, nil
}

// GetOrderByCode returns the public view of an order. Credential passwords
// are redacted; they are delivered only once, by notification.
func (s *CheckoutService) GetOrderByCode(ctx context.Context, orderCode string) (*OrderResponse, error) {
	if strings.TrimSpace(orderCode) == "" {
		return nil, shared.ErrNotFound
	}

	order, err := s.orderRepo.FindByOrderCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}

	resp := ToOrderResponse(order)
	return &resp, nil
}
