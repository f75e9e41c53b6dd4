package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/freightdesk/freightdesk/internal/notify"
	"github.com/freightdesk/freightdesk/internal/orders"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/sequence"
)

// Repository is the storage port for payments.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, p Payment) (int64, error)
	Get(ctx context.Context, id int64) (*Payment, error)
	GetByProviderRef(ctx context.Context, ref string) (*Payment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Payment, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status, at time.Time) error
	Sums(ctx context.Context, orderID int64) (completed, refunded float64, err error)
}

// LinkStore lets the reconciler consume the payment link tied to a payment
// when the provider confirms success. Implemented by the link gateway.
type LinkStore interface {
	MarkUsedByPayment(ctx context.Context, paymentID int64) error
}

// Notifier publishes fire-and-forget events.
type Notifier interface {
	Dispatch(ctx context.Context, event string, payload any)
}

// Service reconciles payments against orders. Every transition that reaches
// completed or refunded recomputes the owning order's balance in the same
// transaction, so the recorded balance can never diverge from the ledger.
type Service struct {
	repo     Repository
	orders   orders.Repository
	seq      sequence.Allocator
	links    LinkStore
	notifier Notifier
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds the reconciler. links and notifier may be nil.
func NewService(repo Repository, orderRepo orders.Repository, seq sequence.Allocator, links LinkStore, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		orders:   orderRepo,
		seq:      seq,
		links:    links,
		notifier: notifier,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// SetLinks wires the link gateway after construction. The gateway and the
// reconciler reference each other, so one side binds late.
func (s *Service) SetLinks(links LinkStore) {
	s.links = links
}

// Record applies an operator-submitted payment: a completed row plus the
// order recomputation, one atomic unit. A pending order advances to
// confirmed with an audit entry.
func (s *Service) Record(ctx context.Context, orderNumber string, req RecordPaymentRequest, actor string) (*Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	number, err := s.seq.Next(ctx, sequence.PrefixPayment)
	if err != nil {
		return nil, fmt.Errorf("allocate payment number: %w", err)
	}

	paidAt := s.now()
	payment := Payment{
		Number:   number,
		OrderID:  order.ID,
		Amount:   req.Amount,
		Currency: order.Currency,
		Method:   req.Method,
		Status:   StatusCompleted,
		Type:     req.Type,
		PaidAt:   &paidAt,
	}

	var paymentID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		id, err := s.repo.Create(ctx, payment)
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		paymentID = id
		return s.settle(ctx, order, actor)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, notify.EventPaymentReceived, map[string]any{
		"payment_number": number,
		"order_number":   order.Number,
		"email":          order.CustomerEmail,
		"amount":         req.Amount,
		"currency":       order.Currency,
		"actor":          actor,
	})
	return s.repo.Get(ctx, paymentID)
}

// CreatePending inserts a processing payment carrying the provider
// correlation id, created when a live intent is issued. The webhook path
// later completes or fails it.
func (s *Service) CreatePending(ctx context.Context, orderID int64, amount float64, currency string, pType Type, providerRef string) (*Payment, error) {
	number, err := s.seq.Next(ctx, sequence.PrefixPayment)
	if err != nil {
		return nil, fmt.Errorf("allocate payment number: %w", err)
	}
	payment := Payment{
		Number:      number,
		OrderID:     orderID,
		Amount:      amount,
		Currency:    currency,
		Method:      "provider",
		Status:      StatusProcessing,
		Type:        pType,
		ProviderRef: &providerRef,
	}
	id, err := s.repo.Create(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("create pending payment: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// ApplyProviderEvent applies one webhook event. Unverified events are
// rejected. Events for unknown payments are logged and acknowledged, since
// the sender retries on failure and may reference data this system never
// held. Replaying an event is a no-op the second time.
func (s *Service) ApplyProviderEvent(ctx context.Context, evt Event, verified bool) error {
	if !verified {
		return fmt.Errorf("%w: webhook signature not verified", httpx.ErrExternal)
	}

	payment, err := s.repo.GetByProviderRef(ctx, evt.ProviderRef)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			s.logger.Info("webhook for unknown payment discarded",
				slog.String("event", evt.Type), slog.String("provider_ref", evt.ProviderRef))
			return nil
		}
		return err
	}

	switch evt.Type {
	case EventSucceeded:
		return s.applySucceeded(ctx, payment)
	case EventFailed:
		return s.applyFailed(ctx, payment)
	case EventRefunded:
		return s.applyRefunded(ctx, payment)
	default:
		s.logger.Info("unhandled webhook event type", slog.String("event", evt.Type))
		return nil
	}
}

func (s *Service) applySucceeded(ctx context.Context, payment *Payment) error {
	if payment.Status != StatusProcessing {
		// duplicate or out-of-order delivery; the first application won
		s.logger.Info("duplicate succeeded event ignored",
			slog.String("payment", payment.Number), slog.String("status", string(payment.Status)))
		return nil
	}
	order, err := s.orders.Get(ctx, payment.OrderID)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, payment.ID, StatusProcessing, StatusCompleted, s.now()); err != nil {
			return fmt.Errorf("complete payment: %w", err)
		}
		if s.links != nil {
			if err := s.links.MarkUsedByPayment(ctx, payment.ID); err != nil {
				return fmt.Errorf("consume payment link: %w", err)
			}
		}
		return s.settle(ctx, order, "provider")
	})
	if errors.Is(err, httpx.ErrConflict) {
		// a concurrent delivery of the same event completed the payment first
		s.logger.Info("concurrent succeeded event ignored", slog.String("payment", payment.Number))
		return nil
	}
	if err != nil {
		return err
	}

	s.dispatch(ctx, notify.EventPaymentReceived, map[string]any{
		"payment_number": payment.Number,
		"order_number":   order.Number,
		"email":          order.CustomerEmail,
		"amount":         payment.Amount,
		"currency":       payment.Currency,
		"actor":          "provider",
	})
	return nil
}

func (s *Service) applyFailed(ctx context.Context, payment *Payment) error {
	if payment.Status != StatusProcessing {
		return nil
	}
	// a failed payment never contributed to the balance, nothing to recompute
	err := s.repo.UpdateStatus(ctx, payment.ID, StatusProcessing, StatusFailed, s.now())
	if errors.Is(err, httpx.ErrConflict) {
		return nil
	}
	return err
}

func (s *Service) applyRefunded(ctx context.Context, payment *Payment) error {
	if payment.Status != StatusCompleted {
		return nil
	}
	order, err := s.orders.Get(ctx, payment.OrderID)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, payment.ID, StatusCompleted, StatusRefunded, s.now()); err != nil {
			return fmt.Errorf("refund payment: %w", err)
		}
		return s.settle(ctx, order, "provider")
	})
	if errors.Is(err, httpx.ErrConflict) {
		return nil
	}
	return err
}

// ListByOrder returns an order's payments, oldest first.
func (s *Service) ListByOrder(ctx context.Context, orderNumber string) ([]Payment, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].OrderNumber = order.Number
	}
	return list, nil
}

// settle recomputes the order's deposit and balance from the payment ledger
// and advances a pending order to confirmed. Must run inside the caller's
// transaction alongside the payment write.
func (s *Service) settle(ctx context.Context, order *orders.Order, actor string) error {
	completed, _, err := s.repo.Sums(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("sum payments: %w", err)
	}
	balance := math.Max(0, order.Total-completed)
	if err := s.orders.UpdateFinancials(ctx, order.ID, completed, balance); err != nil {
		return fmt.Errorf("update order balance: %w", err)
	}
	if order.Status == orders.StatusPending {
		note := "first payment received"
		if err := s.orders.AppendStatus(ctx, order.ID, orders.StatusConfirmed, &note, actor); err != nil {
			return fmt.Errorf("confirm order: %w", err)
		}
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, event string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(ctx, event, payload)
}
