package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/streamvault/backend/internal/domain/catalog"
	"github.com/streamvault/backend/internal/domain/checkout"
	"github.com/streamvault/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// FulfillmentConfig carries the defaults applied when a product does not
// specify its own service URL or trial window. OperatorEmail, when set,
// receives an internal copy of every fulfilled order.
type FulfillmentConfig struct {
	ServiceURL    string
	TrialDuration time.Duration
	OperatorEmail string
}

// FulfillmentService issues access credentials for paid orders and
// dispatches the customer notifications. Issuance happens at most once per
// order regardless of how many times Fulfill runs; the repository's
// conditional attach is the gate.
type FulfillmentService struct {
	orderRepo   checkout.OrderRepository
	productRepo catalog.ProductRepository
	issuer      checkout.CredentialIssuer
	notifier    checkout.Notifier
	config      FulfillmentConfig
	logger      *zap.Logger
}

// NewFulfillmentService creates a new FulfillmentService
func NewFulfillmentService(
	orderRepo checkout.OrderRepository,
	productRepo catalog.ProductRepository,
	issuer checkout.CredentialIssuer,
	notifier checkout.Notifier,
	config FulfillmentConfig,
	logger *zap.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		issuer:      issuer,
		notifier:    notifier,
		config:      config,
		logger:      logger,
	}
}

// Fulfill issues credentials for a paid order and notifies the customer.
// The returned report records every delivery attempt; delivery failures are
// logged, never returned, and never undo the order or its credentials.
func (s *FulfillmentService) Fulfill(ctx context.Context, order *checkout.Order) (checkout.DeliveryReport, error) {
	var report checkout.DeliveryReport

	if !order.IsPaid() {
		return report, shared.NewDomainError("INVALID_STATE", "Cannot fulfill an order before payment completes")
	}

	grant, grantFound := s.accessGrantFor(ctx, order)

	issuedNow := false
	if grantFound && order.Credentials == nil {
		creds, err := s.issuer.Issue(checkout.IssueRequest{
			OrderCode:     order.OrderCode,
			ServiceURL:    grant.serviceURL,
			Trial:         order.PaymentMethod == checkout.PaymentMethodFreeTrial,
			TrialDuration: grant.trialDuration,
		})
		if err != nil {
			return report, fmt.Errorf("failed to issue credentials: %w", err)
		}

		attached, err := s.orderRepo.AttachCredentials(ctx, order.ID, creds)
		if err != nil {
			return report, fmt.Errorf("failed to attach credentials: %w", err)
		}
		if attached {
			now := time.Now()
			order.Credentials = &creds
			order.FulfillmentStatus = checkout.FulfillmentStatusCompleted
			order.FulfilledAt = &now
			issuedNow = true
		} else {
			// Another fulfillment attempt won the race. The generated
			// credentials are discarded; the stored ones stand.
			s.logger.Info("Credentials already issued for order, skipping",
				zap.String("order_code", order.OrderCode))
		}
	}

	if !issuedNow && order.Credentials == nil {
		// Nothing to issue and nothing issued before: notify the purchase
		// only. Device-only orders land here.
		s.sendOrderConfirmation(ctx, order, &report)
		s.sendOperatorAlert(ctx, order, &report)
		return report, nil
	}

	if issuedNow {
		s.sendOrderConfirmation(ctx, order, &report)
		s.sendCredentials(ctx, order, &report)
		s.sendOperatorAlert(ctx, order, &report)
	}

	return report, nil
}

// accessGrant is the credential parameters derived from the order's products
type accessGrant struct {
	serviceURL    string
	trialDuration time.Duration
}

// accessGrantFor inspects the order's line items and returns the credential
// parameters of the first credential-granting product found. Catalog lookup
// failures degrade to the configured defaults rather than blocking
// fulfillment of a paid order.
func (s *FulfillmentService) accessGrantFor(ctx context.Context, order *checkout.Order) (accessGrant, bool) {
	for _, item := range order.LineItems {
		product, err := s.productRepo.FindByCode(ctx, item.ProductCode)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				s.logger.Warn("Catalog lookup failed during fulfillment, using defaults",
					zap.String("order_code", order.OrderCode),
					zap.String("product_code", item.ProductCode),
					zap.Error(err))
				return accessGrant{
					serviceURL:    s.config.ServiceURL,
					trialDuration: s.config.TrialDuration,
				}, true
			}
			continue
		}
		if !product.RequiresCredentials {
			continue
		}

		grant := accessGrant{
			serviceURL:    product.ServiceURL,
			trialDuration: s.config.TrialDuration,
		}
		if grant.serviceURL == "" {
			grant.serviceURL = s.config.ServiceURL
		}
		if product.TrialHours > 0 {
			grant.trialDuration = time.Duration(product.TrialHours) * time.Hour
		}
		return grant, true
	}
	return accessGrant{}, false
}

func (s *FulfillmentService) sendOrderConfirmation(ctx context.Context, order *checkout.Order, report *checkout.DeliveryReport) {
	msg := checkout.Message{
		Recipient: order.CustomerEmail,
		Subject:   fmt.Sprintf("Order %s confirmed", order.OrderCode),
		BodyText:  buildConfirmationBody(order),
	}
	err := s.notifier.Send(ctx, msg)
	if err != nil {
		s.logger.Warn("Order confirmation delivery failed",
			zap.String("order_code", order.OrderCode),
			zap.String("recipient", order.CustomerEmail),
			zap.Error(err))
	}
	report.Add("order_confirmation", order.CustomerEmail, err)
}

func (s *FulfillmentService) sendCredentials(ctx context.Context, order *checkout.Order, report *checkout.DeliveryReport) {
	msg := checkout.Message{
		Recipient: order.CustomerEmail,
		Subject:   fmt.Sprintf("Your access details for order %s", order.OrderCode),
		BodyText:  buildCredentialsBody(order),
	}
	err := s.notifier.Send(ctx, msg)
	if err != nil {
		s.logger.Warn("Credentials delivery failed",
			zap.String("order_code", order.OrderCode),
			zap.String("recipient", order.CustomerEmail),
			zap.Error(err))
	}
	report.Add("credentials_delivery", order.CustomerEmail, err)
}

func (s *FulfillmentService) sendOperatorAlert(ctx context.Context, order *checkout.Order, report *checkout.DeliveryReport) {
	if s.config.OperatorEmail == "" {
		return
	}
	msg := checkout.Message{
		Recipient: s.config.OperatorEmail,
		Subject:   fmt.Sprintf("New order %s (%s)", order.OrderCode, order.PaymentMethod),
		BodyText:  buildOperatorBody(order),
	}
	err := s.notifier.Send(ctx, msg)
	if err != nil {
		s.logger.Warn("Operator notification delivery failed",
			zap.String("order_code", order.OrderCode),
			zap.Error(err))
	}
	report.Add("operator_notification", s.config.OperatorEmail, err)
}

func buildConfirmationBody(order *checkout.Order) string {
	body := fmt.Sprintf("Hi %s,\n\nThank you for your order %s.\n\n", order.CustomerName, order.OrderCode)
	for _, item := range order.LineItems {
		body += fmt.Sprintf("  %d x %s\n", item.Quantity, item.Name)
	}
	body += fmt.Sprintf("\nTotal: %.2f %s\n", float64(order.TotalAmount)/100, order.Currency)
	return body
}

func buildOperatorBody(order *checkout.Order) string {
	body := fmt.Sprintf("Order %s from %s <%s>\n\n", order.OrderCode, order.CustomerName, order.CustomerEmail)
	for _, item := range order.LineItems {
		body += fmt.Sprintf("  %d x %s (%s)\n", item.Quantity, item.Name, item.ProductCode)
	}
	body += fmt.Sprintf("\nTotal: %.2f %s, payment: %s\n", float64(order.TotalAmount)/100, order.Currency, order.PaymentMethod)
	if order.Credentials != nil {
		body += fmt.Sprintf("Credentials issued: %s\n", order.Credentials.Username)
	}
	return body
}

func buildCredentialsBody(order *checkout.Order) string {
	creds := order.Credentials
	body := fmt.Sprintf("Hi %s,\n\nYour access for order %s is ready.\n\n", order.CustomerName, order.OrderCode)
	body += fmt.Sprintf("  Username: %s\n  Password: %s\n  Service:  %s\n", creds.Username, creds.Password, creds.ServiceURL)
	if creds.ExpiresAt != nil {
		body += fmt.Sprintf("\nAccess expires at %s.\n", creds.ExpiresAt.UTC().Format(time.RFC1123))
	}
	return body
}
