package orders

import "time"

// Status is the order lifecycle state. Transitions are operator-driven and
// unordered; the progression list below only drives the percent-complete
// shown to customers.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusSourcing  Status = "sourcing"
	StatusPacking   Status = "packing"
	StatusInTransit Status = "in_transit"
	StatusCustoms   Status = "customs"
	StatusDelivered Status = "delivered"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Progression is the nominal forward path of an order.
var Progression = []Status{
	StatusPending, StatusConfirmed, StatusSourcing, StatusPacking,
	StatusInTransit, StatusCustoms, StatusDelivered, StatusClosed,
}

// ProgressPercent maps a status onto the nominal progression. Cancelled
// orders report zero.
func ProgressPercent(s Status) int {
	for i, step := range Progression {
		if step == s {
			return i * 100 / (len(Progression) - 1)
		}
	}
	return 0
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	for _, step := range Progression {
		if step == s {
			return true
		}
	}
	return false
}

// Order is a booked shipment. Financial totals are a frozen snapshot taken
// at creation and are never recomputed from items; only the payment
// reconciler moves DepositAmount and BalanceDue afterward.
type Order struct {
	ID              int64         `json:"-"`
	Number          string        `json:"number"`
	Status          Status        `json:"status"`
	QuoteID         *int64        `json:"-"`
	QuoteNumber     *string       `json:"quote_number,omitempty"`
	CustomerName    string        `json:"customer_name"`
	CustomerEmail   string        `json:"customer_email"`
	CustomerPhone   string        `json:"customer_phone,omitempty"`
	CustomerCompany string        `json:"customer_company,omitempty"`
	AccountID       *int64        `json:"-"`
	Currency        string        `json:"currency"`
	Subtotal        float64       `json:"subtotal"`
	Shipping        float64       `json:"shipping"`
	Insurance       float64       `json:"insurance"`
	CustomsDuty     float64       `json:"customs_duty"`
	Discount        float64       `json:"discount"`
	Tax             float64       `json:"tax"`
	Total           float64       `json:"total"`
	DepositAmount   float64       `json:"deposit_amount"`
	BalanceDue      float64       `json:"balance_due"`
	TrackingID      *string       `json:"tracking_id,omitempty"`
	VesselName      *string       `json:"vessel_name,omitempty"`
	Destination     *string       `json:"destination,omitempty"`
	EstimatedETA    *time.Time    `json:"estimated_eta,omitempty"`
	Notes           *string       `json:"notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Items           []Item        `json:"items,omitempty"`
	History         []StatusEvent `json:"history,omitempty"`
}

// Item is one cargo line snapshotted into the order.
type Item struct {
	ID        int64   `json:"-"`
	OrderID   int64   `json:"-"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
	WeightKg  float64 `json:"weight_kg,omitempty"`
}

// StatusEvent is one append-only audit trail entry. Rows are keyed
// (order_id, seq) so replay order is deterministic regardless of clock skew.
type StatusEvent struct {
	ID        int64     `json:"-"`
	OrderID   int64     `json:"-"`
	Seq       int       `json:"seq"`
	Status    Status    `json:"status"`
	Note      *string   `json:"note,omitempty"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}
