package quotes

import (
	"math"
	"time"
)

// Status is the quote lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusConverted Status = "converted"
)

// Quote is a priced offer for a shipment. The customer identity is a
// denormalized snapshot taken at creation; AccountID is filled in lazily when
// the email matches a registered account. Once sent, everything but the
// status is immutable.
type Quote struct {
	ID              int64      `json:"-"`
	Number          string     `json:"number"`
	Status          Status     `json:"status"`
	CustomerName    string     `json:"customer_name"`
	CustomerEmail   string     `json:"customer_email"`
	CustomerPhone   string     `json:"customer_phone,omitempty"`
	CustomerCompany string     `json:"customer_company,omitempty"`
	AccountID       *int64     `json:"-"`
	Currency        string     `json:"currency"`
	Subtotal        float64    `json:"subtotal"`
	Shipping        float64    `json:"shipping"`
	Insurance       float64    `json:"insurance"`
	CustomsDuty     float64    `json:"customs_duty"`
	Discount        float64    `json:"discount"`
	Tax             float64    `json:"tax"`
	Total           float64    `json:"total"`
	DepositPercent  float64    `json:"deposit_percent"`
	ValidUntil      time.Time  `json:"valid_until"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	OrderID         *int64     `json:"-"`
	OrderNumber     *string    `json:"order_number,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Items           []Item     `json:"items,omitempty"`
}

// Item is one cargo line owned by a quote. Dimensions and weight are only
// used for rate calculation and may be zero.
type Item struct {
	ID        int64   `json:"-"`
	QuoteID   int64   `json:"-"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
	WeightKg  float64 `json:"weight_kg,omitempty"`
	LengthCm  float64 `json:"length_cm,omitempty"`
	WidthCm   float64 `json:"width_cm,omitempty"`
	HeightCm  float64 `json:"height_cm,omitempty"`
}

// DepositAmount is the up-front obligation minted into the payment link.
func (q *Quote) DepositAmount() float64 {
	return round2(q.Total * q.DepositPercent / 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
