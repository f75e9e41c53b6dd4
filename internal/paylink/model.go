package paylink

import "time"

// Status is the link lifecycle state. Expiry is lazy: an active link past
// its deadline is flipped to expired on first touch.
type Status string

const (
	StatusActive  Status = "active"
	StatusUsed    Status = "used"
	StatusExpired Status = "expired"
)

// Link is a single-use payment link minted when a quote is sent. The token
// is the only credential; no login is required to pay.
type Link struct {
	ID          int64      `json:"-"`
	Token       string     `json:"token"`
	QuoteID     int64      `json:"-"`
	QuoteNumber string     `json:"quote_number"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Status      Status     `json:"status"`
	PaymentID   *int64     `json:"-"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Expired reports whether the link's deadline has passed.
func (l *Link) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// RedeemResult is returned to the paying customer. CheckoutURL is set in
// live mode; OrderNumber identifies the order the redemption created.
type RedeemResult struct {
	OrderNumber string `json:"order_number"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}
