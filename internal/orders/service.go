package orders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/freightdesk/freightdesk/internal/notify"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/quotes"
	"github.com/freightdesk/freightdesk/internal/sequence"
)

// Repository is the storage port for orders and their audit trail.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, o Order) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	Get(ctx context.Context, id int64) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
	AppendStatus(ctx context.Context, orderID int64, status Status, note *string, actor string) error
	UpdateShipment(ctx context.Context, id int64, req UpdateShipmentRequest) error
	UpdateFinancials(ctx context.Context, id int64, deposit, balance float64) error
}

// Notifier publishes fire-and-forget events.
type Notifier interface {
	Dispatch(ctx context.Context, event string, payload any)
}

// Service owns the order ledger.
type Service struct {
	repo     Repository
	seq      sequence.Allocator
	notifier Notifier
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds the order ledger service.
func NewService(repo Repository, seq sequence.Allocator, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		seq:      seq,
		notifier: notifier,
		logger:   logger,
		validate: validator.New(),
	}
}

// CreateDirect creates an order without a source quote. The balance due
// defaults to the full total until a payment is recorded.
func (s *Service) CreateDirect(ctx context.Context, req CreateOrderRequest, actor string) (*Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}

	var subtotal float64
	for _, in := range req.Items {
		subtotal += float64(in.Quantity) * in.UnitPrice
	}
	total := subtotal + req.Shipping + req.Insurance + req.CustomsDuty + req.Tax - req.Discount
	if total < 0 {
		return nil, fmt.Errorf("%w: discount %0.2f exceeds the order value", httpx.ErrIntegrity, req.Discount)
	}

	number, err := s.seq.Next(ctx, sequence.PrefixOrder)
	if err != nil {
		return nil, fmt.Errorf("allocate order number: %w", err)
	}

	order := Order{
		Number:          number,
		Status:          StatusPending,
		CustomerName:    req.Customer.Name,
		CustomerEmail:   req.Customer.Email,
		CustomerPhone:   req.Customer.Phone,
		CustomerCompany: req.Customer.Company,
		Currency:        req.Currency,
		Subtotal:        subtotal,
		Shipping:        req.Shipping,
		Insurance:       req.Insurance,
		CustomsDuty:     req.CustomsDuty,
		Discount:        req.Discount,
		Tax:             req.Tax,
		Total:           total,
		DepositAmount:   0,
		BalanceDue:      total,
		Notes:           req.Notes,
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		id, err := s.repo.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		orderID = id
		for _, in := range req.Items {
			item := Item{
				OrderID:   id,
				Name:      in.Name,
				Quantity:  in.Quantity,
				UnitPrice: in.UnitPrice,
				LineTotal: float64(in.Quantity) * in.UnitPrice,
				WeightKg:  in.WeightKg,
			}
			if _, err := s.repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return s.repo.AppendStatus(ctx, id, StatusPending, nil, actor)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, orderID)
}

// CreateFromQuote snapshots a quote into a new confirmed order. Items are
// copied, totals frozen byte-for-byte, and the seeded audit entry references
// the source quote number. Implements the quote ledger's conversion port and
// runs inside its transaction.
func (s *Service) CreateFromQuote(ctx context.Context, q *quotes.Quote, actor string) (quotes.ConvertedOrder, error) {
	number, err := s.seq.Next(ctx, sequence.PrefixOrder)
	if err != nil {
		return quotes.ConvertedOrder{}, fmt.Errorf("allocate order number: %w", err)
	}

	deposit := q.DepositAmount()
	order := Order{
		Number:          number,
		Status:          StatusConfirmed,
		QuoteID:         &q.ID,
		CustomerName:    q.CustomerName,
		CustomerEmail:   q.CustomerEmail,
		CustomerPhone:   q.CustomerPhone,
		CustomerCompany: q.CustomerCompany,
		AccountID:       q.AccountID,
		Currency:        q.Currency,
		Subtotal:        q.Subtotal,
		Shipping:        q.Shipping,
		Insurance:       q.Insurance,
		CustomsDuty:     q.CustomsDuty,
		Discount:        q.Discount,
		Tax:             q.Tax,
		Total:           q.Total,
		DepositAmount:   deposit,
		BalanceDue:      q.Total - deposit,
		Notes:           q.Notes,
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		id, err := s.repo.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		orderID = id
		for _, it := range q.Items {
			item := Item{
				OrderID:   id,
				Name:      it.Name,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				LineTotal: it.LineTotal,
				WeightKg:  it.WeightKg,
			}
			if _, err := s.repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		note := fmt.Sprintf("converted from quote %s", q.Number)
		return s.repo.AppendStatus(ctx, id, StatusConfirmed, &note, actor)
	})
	if err != nil {
		return quotes.ConvertedOrder{}, err
	}
	return quotes.ConvertedOrder{ID: orderID, Number: number}, nil
}

// UpdateStatus appends an audit trail entry and moves the order. The engine
// records whatever transition is requested, forward or backward.
func (s *Service) UpdateStatus(ctx context.Context, number string, req UpdateStatusRequest, actor string) (*Order, error) {
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", httpx.ErrValidation, req.Status)
	}
	existing, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		return s.repo.AppendStatus(ctx, existing.ID, req.Status, req.Note, actor)
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Dispatch(ctx, notify.EventOrderStatusChanged, map[string]any{
			"order_number": existing.Number,
			"email":        existing.CustomerEmail,
			"status":       string(req.Status),
			"progress_pct": ProgressPercent(req.Status),
			"actor":        actor,
		})
	}
	return s.repo.Get(ctx, existing.ID)
}

// UpdateShipment sets carrier tracking, vessel, destination and ETA.
func (s *Service) UpdateShipment(ctx context.Context, number string, req UpdateShipmentRequest) (*Order, error) {
	existing, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateShipment(ctx, existing.ID, req); err != nil {
		return nil, fmt.Errorf("update shipment: %w", err)
	}
	return s.repo.Get(ctx, existing.ID)
}

// Get fetches an order by its public number.
func (s *Service) Get(ctx context.Context, number string) (*Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns orders filtered by status and free-text search, paginated.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	return s.repo.List(ctx, req)
}

var _ quotes.OrderCreator = (*Service)(nil)
