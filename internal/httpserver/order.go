package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"craftkart/internal/domain"
	"craftkart/internal/payment"
	"craftkart/internal/pricing"
	checkoutsvc "craftkart/internal/service/checkout"
)

type checkoutResponse struct {
	Order *domain.Order `json:"order"`
	// Payment is set for online methods; the client completes payment against
	// the gateway order and confirms via POST /orders/:id/payment.
	Payment *payment.GatewayOrder `json:"payment,omitempty"`
}

func (h *handlers) checkout(c *gin.Context) {
	var req checkoutsvc.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	order, err := h.deps.CheckoutSvc.Checkout(c.Request.Context(), customerFrom(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := checkoutResponse{Order: order}
	if strings.ToLower(strings.TrimSpace(req.PaymentMethod)) != pricing.PaymentCOD {
		gw, err := h.deps.Gateway.CreateOrder(c.Request.Context(), order.TotalCents, order.Currency, order.OrderNumber)
		if err != nil {
			// The order stands; payment can be retried against it.
			h.logger.Printf("httpserver: gateway order for %s failed: %v", order.OrderNumber, err)
		} else {
			resp.Payment = gw
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.deps.OrderSvc.List(c.Request.Context(), customerFrom(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *handlers) getOrder(c *gin.Context) {
	order, err := h.deps.OrderSvc.Get(c.Request.Context(), customerFrom(c).ID, c.Param("orderID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type payRequest struct {
	GatewayOrderID string `json:"gatewayOrderId" binding:"required"`
	PaymentID      string `json:"paymentId" binding:"required"`
	Signature      string `json:"signature" binding:"required"`
}

func (h *handlers) payOrder(c *gin.Context) {
	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	cust := customerFrom(c)
	if _, err := h.deps.OrderSvc.Get(c.Request.Context(), cust.ID, c.Param("orderID")); err != nil {
		respondError(c, err)
		return
	}
	if !h.deps.Gateway.VerifySignature(req.GatewayOrderID, req.PaymentID, req.Signature) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment signature verification failed"})
		return
	}

	order, err := h.deps.OrderSvc.ProcessPayment(c.Request.Context(), c.Param("orderID"), req.PaymentID, cust.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) deliverOrder(c *gin.Context) {
	cust := customerFrom(c)
	if _, err := h.deps.OrderSvc.Get(c.Request.Context(), cust.ID, c.Param("orderID")); err != nil {
		respondError(c, err)
		return
	}
	order, err := h.deps.OrderSvc.Deliver(c.Request.Context(), c.Param("orderID"), cust.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) cancelOrder(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	cust := customerFrom(c)
	if _, err := h.deps.OrderSvc.Get(c.Request.Context(), cust.ID, c.Param("orderID")); err != nil {
		respondError(c, err)
		return
	}
	order, err := h.deps.OrderSvc.Cancel(c.Request.Context(), c.Param("orderID"), req.Reason, cust.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
