package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"craftkart/internal/domain"
	customersvc "craftkart/internal/service/customer"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	// Optional guest identity; when present, login merges the guest's carts.
	SessionID         string `json:"sessionId"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

type loginResponse struct {
	Customer  *domain.Customer `json:"customer"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

func (h *handlers) signup(c *gin.Context) {
	var req customersvc.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cust, err := h.deps.CustomerSvc.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cust)
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	// Header identity works too, so browser clients don't have to repeat it.
	if req.SessionID == "" {
		req.SessionID = c.GetHeader(headerSessionID)
	}
	if req.DeviceFingerprint == "" {
		req.DeviceFingerprint = c.GetHeader(headerFingerprint)
	}

	res, err := h.deps.CustomerSvc.Login(c.Request.Context(), req.Email, req.Password, req.SessionID, req.DeviceFingerprint)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Customer: res.Customer, Token: res.Token, ExpiresAt: res.Expires})
}

func (h *handlers) logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		badRequest(c, "bearer token required")
		return
	}
	if err := h.deps.CustomerSvc.Logout(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) startSession(c *gin.Context) {
	var req struct {
		DeviceFingerprint string `json:"deviceFingerprint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, err.Error())
		return
	}
	if req.DeviceFingerprint == "" {
		req.DeviceFingerprint = c.GetHeader(headerFingerprint)
	}
	s := h.deps.Sessions.Start(req.DeviceFingerprint)
	c.JSON(http.StatusCreated, s)
}

func (h *handlers) me(c *gin.Context) {
	c.JSON(http.StatusOK, customerFrom(c))
}

func (h *handlers) addAddress(c *gin.Context) {
	var req domain.Address
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	addr, err := h.deps.CustomerSvc.AddAddress(c.Request.Context(), customerFrom(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, addr)
}
