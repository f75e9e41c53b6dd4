package documents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/freightdesk/freightdesk/internal/orders"
	"github.com/freightdesk/freightdesk/internal/payments"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/sequence"
)

// OrderSource resolves the order a document is issued against.
type OrderSource interface {
	GetByNumber(ctx context.Context, number string) (*orders.Order, error)
}

// PaymentSource lists an order's settlement ledger.
type PaymentSource interface {
	ListByOrder(ctx context.Context, orderID int64) ([]payments.Payment, error)
}

// Document is an issued billing PDF.
type Document struct {
	Number      string
	Kind        Kind
	OrderNumber string
	IssuedAt    time.Time
	PDF         []byte
}

// Service issues billing documents. Each issue allocates its own number
// from the matching sequence family, so invoices, receipts and purchase
// orders number independently.
type Service struct {
	orders   OrderSource
	payments PaymentSource
	seq      sequence.Allocator
	renderer Renderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds the document issuer.
func NewService(orderSrc OrderSource, paymentSrc PaymentSource, seq sequence.Allocator, renderer Renderer, logger *slog.Logger) *Service {
	return &Service{
		orders:   orderSrc,
		payments: paymentSrc,
		seq:      seq,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
}

var kindPrefix = map[Kind]string{
	KindInvoice:       sequence.PrefixInvoice,
	KindReceipt:       sequence.PrefixReceipt,
	KindPurchaseOrder: sequence.PrefixPurchaseOrder,
}

// Issue snapshots the order, allocates a document number and renders the
// PDF. A receipt for an order with no completed payments is refused.
func (s *Service) Issue(ctx context.Context, orderNumber string, kind Kind) (*Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown document kind %q", httpx.ErrValidation, kind)
	}
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	ledger, err := s.payments.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if kind == KindReceipt && !hasCompleted(ledger) {
		return nil, fmt.Errorf("%w: order %s has no completed payments to receipt", httpx.ErrConflict, orderNumber)
	}

	number, err := s.seq.Next(ctx, kindPrefix[kind])
	if err != nil {
		return nil, fmt.Errorf("allocate document number: %w", err)
	}

	snap := buildSnapshot(number, kind, order, ledger, s.now())
	html, err := renderHTML(snap)
	if err != nil {
		return nil, err
	}
	pdf, err := s.renderer.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("%w: render document: %s", httpx.ErrExternal, err)
	}

	s.logger.Info("document issued",
		slog.String("number", number), slog.String("kind", string(kind)), slog.String("order", order.Number))
	return &Document{
		Number:      number,
		Kind:        kind,
		OrderNumber: order.Number,
		IssuedAt:    snap.IssuedAt,
		PDF:         pdf,
	}, nil
}

func hasCompleted(ledger []payments.Payment) bool {
	for _, p := range ledger {
		if p.Status == payments.StatusCompleted {
			return true
		}
	}
	return false
}
