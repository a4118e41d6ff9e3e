package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/streamvault/backend/internal/domain/catalog"
	"github.com/streamvault/backend/internal/domain/checkout"
	"github.com/streamvault/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFulfillmentFixture() (*FulfillmentService, *MockOrderRepository, *MockProductRepository, *MockCredentialIssuer, *MockNotifier) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	issuer := new(MockCredentialIssuer)
	notifier := new(MockNotifier)

	service := NewFulfillmentService(orderRepo, productRepo, issuer, notifier, FulfillmentConfig{
		ServiceURL:    "https://play.streamvault.example",
		TrialDuration: 36 * time.Hour,
	}, zap.NewNop())
	return service, orderRepo, productRepo, issuer, notifier
}

func newPaidOrder(t *testing.T) *checkout.Order {
	t.Helper()
	order := newPendingOrder(t)
	require.NoError(t, order.CompletePayment())
	return order
}

func testCredentials() checkout.Credentials {
	return checkout.Credentials{
		Username:   "sv_k7mq2xrn",
		Password:   "XbT9mRq4wnPz2h",
		ServiceURL: "https://play.streamvault.example",
		IssuedAt:   time.Now(),
	}
}

func TestFulfillmentService_Fulfill(t *testing.T) {
	ctx := context.Background()

	subscription := func(t *testing.T) *catalog.Product {
		p, err := catalog.NewProduct("iptv-12m", "IPTV 12 Months", catalog.ProductKindSubscription, decimal.RequireFromString("49.99"))
		require.NoError(t, err)
		p.RequiresCredentials = true
		p.ServiceURL = "https://plans.streamvault.example"
		return p
	}

	t.Run("issues credentials and sends both notifications", func(t *testing.T) {
		service, orderRepo, productRepo, issuer, notifier := newFulfillmentFixture()

		order := newPaidOrder(t)
		creds := testCredentials()

		productRepo.On("FindByCode", ctx, "iptv-12m").Return(subscription(t), nil)
		issuer.On("Issue", mock.MatchedBy(func(req checkout.IssueRequest) bool {
			return req.OrderCode == order.OrderCode &&
				req.ServiceURL == "https://plans.streamvault.example" &&
				!req.Trial
		})).Return(creds, nil)
		orderRepo.On("AttachCredentials", ctx, order.ID, creds).Return(true, nil)
		notifier.On("Send", ctx, mock.Anything).Return(nil)

		report, err := service.Fulfill(ctx, order)
		require.NoError(t, err)

		assert.True(t, report.AllSent())
		require.Len(t, report.Deliveries, 2)
		assert.Equal(t, "order_confirmation", report.Deliveries[0].Name)
		assert.Equal(t, "credentials_delivery", report.Deliveries[1].Name)
		assert.True(t, order.IsFulfilled())
		require.NotNil(t, order.Credentials)
		assert.Equal(t, creds.Username, order.Credentials.Username)
	})

	t.Run("credentials are issued at most once", func(t *testing.T) {
		service, orderRepo, productRepo, issuer, notifier := newFulfillmentFixture()

		order := newPaidOrder(t)
		productRepo.On("FindByCode", ctx, "iptv-12m").Return(subscription(t), nil)
		issuer.On("Issue", mock.Anything).Return(testCredentials(), nil)
		orderRepo.On("AttachCredentials", ctx, order.ID, mock.Anything).Return(false, nil)

		report, err := service.Fulfill(ctx, order)
		require.NoError(t, err)

		// The conditional attach lost: stored credentials stand and nothing
		// is resent.
		assert.Empty(t, report.Deliveries)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("unpaid order cannot be fulfilled", func(t *testing.T) {
		service, _, _, issuer, _ := newFulfillmentFixture()

		order := newPendingOrder(t)
		_, err := service.Fulfill(ctx, order)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
		issuer.AssertNotCalled(t, "Issue", mock.Anything)
	})

	t.Run("device-only order gets a confirmation without credentials", func(t *testing.T) {
		service, _, productRepo, issuer, notifier := newFulfillmentFixture()

		device, err := catalog.NewProduct("iptv-12m", "Streaming Box", catalog.ProductKindDevice, decimal.RequireFromString("129.00"))
		require.NoError(t, err)

		order := newPaidOrder(t)
		productRepo.On("FindByCode", ctx, "iptv-12m").Return(device, nil)
		notifier.On("Send", ctx, mock.Anything).Return(nil).Once()

		report, err := service.Fulfill(ctx, order)
		require.NoError(t, err)

		require.Len(t, report.Deliveries, 1)
		assert.Equal(t, "order_confirmation", report.Deliveries[0].Name)
		assert.Nil(t, order.Credentials)
		issuer.AssertNotCalled(t, "Issue", mock.Anything)
	})

	t.Run("delivery failures are recorded, never returned", func(t *testing.T) {
		service, orderRepo, productRepo, issuer, notifier := newFulfillmentFixture()

		order := newPaidOrder(t)
		creds := testCredentials()

		productRepo.On("FindByCode", ctx, "iptv-12m").Return(subscription(t), nil)
		issuer.On("Issue", mock.Anything).Return(creds, nil)
		orderRepo.On("AttachCredentials", ctx, order.ID, creds).Return(true, nil)
		notifier.On("Send", ctx, mock.Anything).Return(errors.New("smtp relay down"))

		report, err := service.Fulfill(ctx, order)
		require.NoError(t, err)

		// Both deliveries were attempted; neither failure undid the order.
		require.Len(t, report.Deliveries, 2)
		assert.False(t, report.AllSent())
		assert.Equal(t, checkout.DeliveryStatusFailed, report.Deliveries[0].Status)
		assert.Equal(t, checkout.DeliveryStatusFailed, report.Deliveries[1].Status)
		assert.True(t, order.IsFulfilled())
	})

	t.Run("catalog lookup failure falls back to configured defaults", func(t *testing.T) {
		service, orderRepo, productRepo, issuer, notifier := newFulfillmentFixture()

		order := newPaidOrder(t)
		creds := testCredentials()

		productRepo.On("FindByCode", ctx, "iptv-12m").Return(nil, errors.New("connection refused"))
		issuer.On("Issue", mock.MatchedBy(func(req checkout.IssueRequest) bool {
			return req.ServiceURL == "https://play.streamvault.example"
		})).Return(creds, nil)
		orderRepo.On("AttachCredentials", ctx, order.ID, creds).Return(true, nil)
		notifier.On("Send", ctx, mock.Anything).Return(nil)

		_, err := service.Fulfill(ctx, order)
		require.NoError(t, err)
		issuer.AssertExpectations(t)
	})

	t.Run("attach failure surfaces the error", func(t *testing.T) {
		service, orderRepo, productRepo, issuer, notifier := newFulfillmentFixture()

		order := newPaidOrder(t)
		productRepo.On("FindByCode", ctx, "iptv-12m").Return(subscription(t), nil)
		issuer.On("Issue", mock.Anything).Return(testCredentials(), nil)
		orderRepo.On("AttachCredentials", ctx, order.ID, mock.Anything).
			Return(false, errors.New("database down"))

		_, err := service.Fulfill(ctx, order)
		require.Error(t, err)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("configured operator receives a copy of every order", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		productRepo := new(MockProductRepository)
		issuer := new(MockCredentialIssuer)
		notifier := new(MockNotifier)

		service := NewFulfillmentService(orderRepo, productRepo, issuer, notifier, FulfillmentConfig{
			ServiceURL:    "https://play.streamvault.example",
			TrialDuration: 36 * time.Hour,
			OperatorEmail: "ops@streamvault.example",
		}, zap.NewNop())

		order := newPaidOrder(t)
		productRepo.On("FindByCode", ctx, "iptv-12m").Return(subscription(t), nil)
		issuer.On("Issue", mock.Anything).Return(testCredentials(), nil)
		orderRepo.On("AttachCredentials", ctx, order.ID, mock.Anything).Return(true, nil)
		notifier.On("Send", ctx, mock.Anything).Return(nil).Times(3)

		report, err := service.Fulfill(ctx, order)
		require.NoError(t, err)

		require.Len(t, report.Deliveries, 3)
		assert.Equal(t, "operator_notification", report.Deliveries[2].Name)
		assert.Equal(t, "ops@streamvault.example", report.Deliveries[2].Recipient)
		notifier.AssertExpectations(t)
	})
}
