package payments

import "time"

// Status is the payment lifecycle state. Transitions only move forward:
// processing to completed or failed, completed to refunded.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

// Type records what the payment settles.
type Type string

const (
	TypeDeposit Type = "deposit"
	TypeBalance Type = "balance"
	TypeFull    Type = "full"
)

// Payment is one settlement row against an order. ProviderRef correlates the
// row with webhook events from the external provider.
type Payment struct {
	ID          int64      `json:"-"`
	Number      string     `json:"number"`
	OrderID     int64      `json:"-"`
	OrderNumber string     `json:"order_number"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Method      string     `json:"method"`
	Status      Status     `json:"status"`
	Type        Type       `json:"type"`
	ProviderRef *string    `json:"provider_ref,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Event is a provider webhook payload after signature checking. Delivery is
// at-least-once and possibly out of order.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ProviderRef string    `json:"provider_ref"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Provider event types.
const (
	EventSucceeded = "payment.succeeded"
	EventFailed    = "payment.failed"
	EventRefunded  = "payment.refunded"
)

// RecordPaymentRequest is the operator path input.
type RecordPaymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Method string  `json:"method" validate:"required"`
	Type   Type    `json:"type" validate:"required,oneof=deposit balance full"`
}
