package httpserver

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"craftkart/internal/domain"
	"craftkart/internal/payment"
	cartsvc "craftkart/internal/service/cart"
	checkoutsvc "craftkart/internal/service/checkout"
	customersvc "craftkart/internal/service/customer"
	ordersvc "craftkart/internal/service/order"
	"craftkart/internal/service/session"
)

// Deps holds the services the router exposes.
type Deps struct {
	CartSvc     *cartsvc.Service
	CheckoutSvc *checkoutsvc.Service
	OrderSvc    *ordersvc.Service
	CustomerSvc *customersvc.Service
	Sessions    *session.Manager
	Gateway     payment.Gateway
}

// buildRouter wires all storefront routes.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.Default())
	router.Use(requestIDMiddleware())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	router.POST("/signup", h.signup)
	router.POST("/login", h.login)
	router.POST("/logout", h.logout)
	router.POST("/session", h.startSession)

	identified := router.Group("/", identityMiddleware(deps.CustomerSvc))
	{
		identified.GET("/cart", h.getCart)
		identified.POST("/cart/items", h.addCartItem)
		identified.PATCH("/cart/items/:itemID", h.updateCartItem)
		identified.DELETE("/cart/items/:itemID", h.removeCartItem)
		identified.DELETE("/cart/items", h.clearCart)
		identified.POST("/cart/discount", h.applyDiscount)
		identified.DELETE("/cart/discount", h.removeDiscount)
		identified.POST("/cart/validate", h.validateCart)
		identified.GET("/cart/totals", h.cartTotals)
	}

	authed := router.Group("/", identityMiddleware(deps.CustomerSvc), requireCustomer())
	{
		authed.GET("/me", h.me)
		authed.POST("/me/addresses", h.addAddress)
		authed.POST("/checkout", h.checkout)
		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/:orderID", h.getOrder)
		authed.POST("/orders/:orderID/payment", h.payOrder)
		authed.POST("/orders/:orderID/deliver", h.deliverOrder)
		authed.POST("/orders/:orderID/cancel", h.cancelOrder)
	}

	return router
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}

const (
	ctxKeyCustomer = "customer"
	ctxKeyIdentity = "identity"

	headerSessionID   = "X-Session-Id"
	headerFingerprint = "X-Device-Fingerprint"
	headerRequestID   = "X-Request-Id"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// identityMiddleware resolves the caller: a bearer token maps to a customer,
// otherwise the session and fingerprint headers form a guest identity. An
// invalid bearer token is rejected rather than downgraded to guest.
func identityMiddleware(customers *customersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			cust, err := customers.LookupByToken(c.Request.Context(), token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
			c.Set(ctxKeyCustomer, cust)
			c.Set(ctxKeyIdentity, cartsvc.Identity{CustomerID: cust.ID})
			c.Next()
			return
		}

		id := cartsvc.Identity{
			SessionID:         c.GetHeader(headerSessionID),
			DeviceFingerprint: c.GetHeader(headerFingerprint),
		}
		if id.SessionID == "" && id.DeviceFingerprint == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication or guest session required"})
			return
		}
		c.Set(ctxKeyIdentity, id)
		c.Next()
	}
}

func requireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ctxKeyCustomer); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	auth := c.GetHeader("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

func identityFrom(c *gin.Context) cartsvc.Identity {
	if v, ok := c.Get(ctxKeyIdentity); ok {
		return v.(cartsvc.Identity)
	}
	return cartsvc.Identity{}
}

func customerFrom(c *gin.Context) *domain.Customer {
	if v, ok := c.Get(ctxKeyCustomer); ok {
		return v.(*domain.Customer)
	}
	return nil
}
