package orders

import "time"

// CustomerInput mirrors the quote-side identity snapshot for direct creation.
type CustomerInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// ItemInput describes one cargo line of a directly created order.
type ItemInput struct {
	Name      string  `json:"name" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	WeightKg  float64 `json:"weight_kg,omitempty" validate:"gte=0"`
}

// CreateOrderRequest creates an order without a source quote.
type CreateOrderRequest struct {
	Customer    CustomerInput `json:"customer" validate:"required"`
	Currency    string        `json:"currency" validate:"required,len=3"`
	Items       []ItemInput   `json:"items" validate:"required,min=1,dive"`
	Shipping    float64       `json:"shipping" validate:"gte=0"`
	Insurance   float64       `json:"insurance" validate:"gte=0"`
	CustomsDuty float64       `json:"customs_duty" validate:"gte=0"`
	Tax         float64       `json:"tax" validate:"gte=0"`
	Discount    float64       `json:"discount" validate:"gte=0"`
	Notes       *string       `json:"notes,omitempty"`
}

// UpdateStatusRequest appends one audit trail entry.
type UpdateStatusRequest struct {
	Status Status  `json:"status" validate:"required"`
	Note   *string `json:"note,omitempty"`
}

// UpdateShipmentRequest sets the optional shipment fields.
type UpdateShipmentRequest struct {
	TrackingID   *string    `json:"tracking_id,omitempty"`
	VesselName   *string    `json:"vessel_name,omitempty"`
	Destination  *string    `json:"destination,omitempty"`
	EstimatedETA *time.Time `json:"estimated_eta,omitempty"`
}

// ListOrdersRequest filters and paginates listings.
type ListOrdersRequest struct {
	Status *Status
	Search string
	Limit  int
	Offset int
}
