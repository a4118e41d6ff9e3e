package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	checkoutapp "github.com/streamvault/backend/internal/application/checkout"
)

// Maximum webhook payload size (64KB - gateway events are small)
const maxWebhookPayloadSize = 65536

// PaymentWebhookHandler receives asynchronous payment events from the
// gateway. The endpoint is unauthenticated at the HTTP layer; every payload
// is verified against its signature before processing.
type PaymentWebhookHandler struct {
	BaseHandler
	webhookService *checkoutapp.WebhookService
}

// NewPaymentWebhookHandler creates a new PaymentWebhookHandler
func NewPaymentWebhookHandler(webhookService *checkoutapp.WebhookService) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		webhookService: webhookService,
	}
}

// PaymentWebhookResponse represents the webhook acknowledgement
type PaymentWebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandlePaymentWebhook processes a signed gateway event. Signature failures
// get 401. Replays, unknown charges and already-settled orders are
// acknowledged with 200 so the gateway stops retrying them; infrastructure
// failures return 500 to request redelivery.
func (h *PaymentWebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	// The raw body is required for signature verification
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, PaymentWebhookResponse{
			Received: false,
			Message:  "Failed to read request body",
		})
		return
	}

	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, PaymentWebhookResponse{
			Received: false,
			Message:  "Payload too large",
		})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusUnauthorized, PaymentWebhookResponse{
			Received: false,
			Message:  "Missing Stripe-Signature header",
		})
		return
	}

	result, err := h.webhookService.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if result == nil {
			// Verification failed before any processing happened
			c.JSON(http.StatusUnauthorized, PaymentWebhookResponse{
				Received: false,
				Message:  "Webhook signature verification failed",
			})
			return
		}

		// The event authenticated but a dependency failed mid-processing.
		// A non-2xx status asks the gateway to redeliver; the conditional
		// order updates make the retry safe. Internal details are not
		// exposed to the caller.
		c.JSON(http.StatusInternalServerError, PaymentWebhookResponse{
			Received:  true,
			EventID:   result.EventID,
			EventType: result.EventType,
			Message:   "Webhook processing failed, redelivery expected",
		})
		return
	}

	c.JSON(http.StatusOK, PaymentWebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Message:   result.Message,
	})
}
