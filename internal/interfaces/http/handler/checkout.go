package handler

import (
	"github.com/gin-gonic/gin"
	checkoutapp "github.com/streamvault/backend/internal/application/checkout"
)

// CheckoutHandler handles checkout and free trial endpoints
type CheckoutHandler struct {
	BaseHandler
	checkoutService *checkoutapp.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService *checkoutapp.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// RegisterRoutes registers the versioned order lookup route. The checkout
// and free trial endpoints are mounted at the root by the server.
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/orders/:code", h.GetOrder)
}

// Checkout validates the submitted cart against the catalog and creates a
// pending order plus a gateway charge. Client-submitted prices are never
// read; the response carries the server-computed total.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req checkoutapp.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid checkout request: "+err.Error())
		return
	}

	resp, err := h.checkoutService.Checkout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// StartFreeTrial creates a completed zero-amount order for a trial product
// and returns the issued credentials directly.
func (h *CheckoutHandler) StartFreeTrial(c *gin.Context) {
	var req checkoutapp.FreeTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid free trial request: "+err.Error())
		return
	}

	resp, err := h.checkoutService.StartFreeTrial(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetOrder returns the public view of an order by its order code.
// Credential passwords are never included.
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	orderCode := c.Param("code")

	resp, err := h.checkoutService.GetOrderByCode(c.Request.Context(), orderCode)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
