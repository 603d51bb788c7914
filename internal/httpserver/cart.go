package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cartsvc "craftkart/internal/service/cart"
)

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.deps.CartSvc.GetOrCreate(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req cartsvc.AddItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cart, err := h.deps.CartSvc.AddItem(c.Request.Context(), identityFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cart, err := h.deps.CartSvc.UpdateQuantity(c.Request.Context(), identityFrom(c), c.Param("itemID"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	cart, err := h.deps.CartSvc.RemoveItem(c.Request.Context(), identityFrom(c), c.Param("itemID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) clearCart(c *gin.Context) {
	cart, err := h.deps.CartSvc.Clear(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) applyDiscount(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cart, err := h.deps.CartSvc.ApplyDiscount(c.Request.Context(), identityFrom(c), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) removeDiscount(c *gin.Context) {
	cart, err := h.deps.CartSvc.RemoveDiscount(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) validateCart(c *gin.Context) {
	res, err := h.deps.CartSvc.Validate(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) cartTotals(c *gin.Context) {
	cart, breakdown, err := h.deps.CartSvc.Totals(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cartId": cart.ID, "breakdown": breakdown})
}
