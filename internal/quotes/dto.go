package quotes

import "time"

// CustomerInput is the identity snapshot captured with a submission.
type CustomerInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// ItemInput describes one cargo line.
type ItemInput struct {
	Name      string  `json:"name" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	WeightKg  float64 `json:"weight_kg,omitempty" validate:"gte=0"`
	LengthCm  float64 `json:"length_cm,omitempty" validate:"gte=0"`
	WidthCm   float64 `json:"width_cm,omitempty" validate:"gte=0"`
	HeightCm  float64 `json:"height_cm,omitempty" validate:"gte=0"`
}

// CreateQuoteRequest creates a draft.
type CreateQuoteRequest struct {
	Customer       CustomerInput `json:"customer" validate:"required"`
	Currency       string        `json:"currency" validate:"required,len=3"`
	Items          []ItemInput   `json:"items" validate:"required,min=1,dive"`
	Shipping       float64       `json:"shipping" validate:"gte=0"`
	Insurance      float64       `json:"insurance" validate:"gte=0"`
	CustomsDuty    float64       `json:"customs_duty" validate:"gte=0"`
	Tax            float64       `json:"tax" validate:"gte=0"`
	Discount       float64       `json:"discount" validate:"gte=0"`
	DepositPercent float64       `json:"deposit_percent" validate:"gte=0,lte=100"`
	ValidUntil     time.Time     `json:"valid_until" validate:"required"`
	Notes          *string       `json:"notes,omitempty"`
}

// UpdateQuoteRequest replaces the entire line-item set of a draft. Partial
// patches are not supported.
type UpdateQuoteRequest struct {
	Items          []ItemInput `json:"items" validate:"required,min=1,dive"`
	Shipping       float64     `json:"shipping" validate:"gte=0"`
	Insurance      float64     `json:"insurance" validate:"gte=0"`
	CustomsDuty    float64     `json:"customs_duty" validate:"gte=0"`
	Tax            float64     `json:"tax" validate:"gte=0"`
	Discount       float64     `json:"discount" validate:"gte=0"`
	DepositPercent float64     `json:"deposit_percent" validate:"gte=0,lte=100"`
	ValidUntil     time.Time   `json:"valid_until" validate:"required"`
	Notes          *string     `json:"notes,omitempty"`
}

// ListQuotesRequest filters and paginates listings.
type ListQuotesRequest struct {
	Status *Status
	Search string
	Limit  int
	Offset int
}
