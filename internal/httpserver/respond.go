package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"craftkart/internal/domain"
	customersvc "craftkart/internal/service/customer"
)

// respondError translates domain errors into HTTP status codes with a JSON
// body. Typed errors carry extra structured fields so clients can act on them.
func respondError(c *gin.Context, err error) {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     stockErr.Error(),
			"productId": stockErr.ProductID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
		return
	}

	var transErr *domain.InvalidTransitionError
	if errors.As(err, &transErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   transErr.Error(),
			"orderId": transErr.OrderID,
			"from":    transErr.From,
			"to":      transErr.To,
		})
		return
	}

	var valErr *domain.ValidationFailedError
	if errors.As(err, &valErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  valErr.Error(),
			"issues": valErr.Issues,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrBadInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, domain.ErrOwnershipMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrCartEmpty),
		errors.Is(err, domain.ErrCartNotModifiable),
		errors.Is(err, domain.ErrProductUnavailable),
		errors.Is(err, domain.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, customersvc.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
