// Package payment abstracts the online payment gateway. Production would talk
// to a hosted provider; the local gateway mints ids itself and signs payloads
// with HMAC so the verify path is exercised end to end.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// GatewayOrder is the provider-side order a client pays against.
type GatewayOrder struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	AmountCents    int64  `json:"amountCents"`
	Currency       string `json:"currency"`
}

// Gateway creates provider orders and verifies payment callbacks.
type Gateway interface {
	CreateOrder(ctx context.Context, amountCents int64, currency, receipt string) (*GatewayOrder, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

// LocalGateway is an offline Gateway for development and tests.
type LocalGateway struct {
	secret []byte
}

func NewLocalGateway(secret string) *LocalGateway {
	return &LocalGateway{secret: []byte(secret)}
}

func (g *LocalGateway) CreateOrder(_ context.Context, amountCents int64, currency, receipt string) (*GatewayOrder, error) {
	_ = receipt
	return &GatewayOrder{
		GatewayOrderID: "pay_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		AmountCents:    amountCents,
		Currency:       currency,
	}, nil
}

// VerifySignature checks an HMAC-SHA256 over "<gatewayOrderId>|<paymentId>".
func (g *LocalGateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}

// Sign produces the signature VerifySignature expects; tests and the local
// payment simulator use it.
func (g *LocalGateway) Sign(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
