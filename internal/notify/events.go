// Package notify dispatches fire-and-forget domain notifications. A dispatch
// never fails the calling transition: failures are logged and dropped.
package notify

// Event types published after successful state transitions.
const (
	EventQuoteSent          = "quote.sent"
	EventOrderConfirmed     = "order.confirmed"
	EventPaymentReceived    = "payment.received"
	EventOrderStatusChanged = "order.status_changed"
)
