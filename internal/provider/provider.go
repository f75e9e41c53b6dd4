// Package provider integrates the external payment provider. The sandbox
// implementation issues fake intents so the whole flow is exercisable
// without provider credentials.
package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Intent is a payment authorization held at the provider, correlated to a
// local payment row by Ref.
type Intent struct {
	Ref      string
	Amount   float64
	Currency string
	Status   string
}

// Client is the outbound provider surface.
type Client interface {
	CreateIntent(ctx context.Context, amount float64, currency, description string) (*Intent, error)
	RetrieveIntent(ctx context.Context, ref string) (*Intent, error)
	CheckoutURL(ref string) string
}

// Sandbox simulates the provider. Intents are held in memory only; the
// checkout URL points at a local echo page.
type Sandbox struct {
	baseURL string
}

// NewSandbox builds the sandbox client.
func NewSandbox(baseURL string) *Sandbox {
	return &Sandbox{baseURL: baseURL}
}

func (s *Sandbox) CreateIntent(_ context.Context, amount float64, currency, _ string) (*Intent, error) {
	return &Intent{
		Ref:      "sbx_" + uuid.NewString(),
		Amount:   amount,
		Currency: currency,
		Status:   "requires_payment",
	}, nil
}

func (s *Sandbox) RetrieveIntent(_ context.Context, ref string) (*Intent, error) {
	return &Intent{Ref: ref, Status: "requires_payment"}, nil
}

func (s *Sandbox) CheckoutURL(ref string) string {
	return fmt.Sprintf("%s/sandbox/checkout/%s", s.baseURL, ref)
}

// Signature computes the hex HMAC-SHA256 of body under secret. Used by the
// sandbox tooling to sign synthetic webhooks.
func Signature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the HMAC of body.
// Comparison is constant-time.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := Signature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
