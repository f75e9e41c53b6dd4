package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/freightdesk/freightdesk/internal/notify"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/sequence"
)

// Repository is the storage port for quotes.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, q Quote) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	DeleteItems(ctx context.Context, quoteID int64) error
	UpdateDraft(ctx context.Context, id int64, q Quote) error
	UpdateStatus(ctx context.Context, id int64, status Status, sentAt *time.Time) error
	MarkConverted(ctx context.Context, id, orderID int64) error
	Get(ctx context.Context, id int64) (*Quote, error)
	GetByNumber(ctx context.Context, number string) (*Quote, error)
	List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Quote, error)
	FindAccountID(ctx context.Context, email string) (*int64, error)
}

// ConvertedOrder is the slice of an order the quote ledger needs back after
// conversion.
type ConvertedOrder struct {
	ID     int64
	Number string
}

// OrderCreator snapshots a quote into a new order. Implemented by the order
// ledger; called inside the conversion transaction.
type OrderCreator interface {
	CreateFromQuote(ctx context.Context, q *Quote, actor string) (ConvertedOrder, error)
}

// LinkMinter mints a single-use payment link for a quote's deposit.
type LinkMinter interface {
	Mint(ctx context.Context, quoteID int64, amount float64, currency string, expiresAt time.Time) (string, error)
}

// Notifier publishes fire-and-forget events.
type Notifier interface {
	Dispatch(ctx context.Context, event string, payload any)
}

// Service owns the quote lifecycle.
type Service struct {
	repo     Repository
	seq      sequence.Allocator
	links    LinkMinter
	orders   OrderCreator
	notifier Notifier
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds the quote ledger service. links, orders and notifier may
// be nil in partial wirings (worker, tests).
func NewService(repo Repository, seq sequence.Allocator, links LinkMinter, orders OrderCreator, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		seq:      seq,
		links:    links,
		orders:   orders,
		notifier: notifier,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Create validates a submission and persists a draft quote with a freshly
// allocated number. Validation failures leave no trace in the store.
func (s *Service) Create(ctx context.Context, req CreateQuoteRequest) (*Quote, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	subtotal, total, err := computeTotals(req.Items, req.Shipping, req.Insurance, req.CustomsDuty, req.Tax, req.Discount)
	if err != nil {
		return nil, err
	}

	number, err := s.seq.Next(ctx, sequence.PrefixQuote)
	if err != nil {
		return nil, fmt.Errorf("allocate quote number: %w", err)
	}

	accountID, err := s.repo.FindAccountID(ctx, req.Customer.Email)
	if err != nil {
		return nil, fmt.Errorf("resolve customer account: %w", err)
	}

	quote := Quote{
		Number:          number,
		Status:          StatusDraft,
		CustomerName:    req.Customer.Name,
		CustomerEmail:   req.Customer.Email,
		CustomerPhone:   req.Customer.Phone,
		CustomerCompany: req.Customer.Company,
		AccountID:       accountID,
		Currency:        req.Currency,
		Subtotal:        subtotal,
		Shipping:        req.Shipping,
		Insurance:       req.Insurance,
		CustomsDuty:     req.CustomsDuty,
		Discount:        req.Discount,
		Tax:             req.Tax,
		Total:           total,
		DepositPercent:  req.DepositPercent,
		ValidUntil:      req.ValidUntil,
		Notes:           req.Notes,
	}

	var quoteID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		id, err := s.repo.Create(ctx, quote)
		if err != nil {
			return fmt.Errorf("create quote: %w", err)
		}
		quoteID = id
		return s.insertItems(ctx, id, req.Items)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, quoteID)
}

// Update replaces the full line-item set of a draft and recomputes totals the
// same way Create does.
func (s *Service) Update(ctx context.Context, number string, req UpdateQuoteRequest) (*Quote, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	existing, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusDraft {
		return nil, fmt.Errorf("%w: quote %s is %s, only draft quotes can be edited", httpx.ErrConflict, number, existing.Status)
	}

	subtotal, total, err := computeTotals(req.Items, req.Shipping, req.Insurance, req.CustomsDuty, req.Tax, req.Discount)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Subtotal = subtotal
	updated.Shipping = req.Shipping
	updated.Insurance = req.Insurance
	updated.CustomsDuty = req.CustomsDuty
	updated.Discount = req.Discount
	updated.Tax = req.Tax
	updated.Total = total
	updated.DepositPercent = req.DepositPercent
	updated.ValidUntil = req.ValidUntil
	updated.Notes = req.Notes

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateDraft(ctx, existing.ID, updated); err != nil {
			return fmt.Errorf("update quote: %w", err)
		}
		if err := s.repo.DeleteItems(ctx, existing.ID); err != nil {
			return fmt.Errorf("delete quote items: %w", err)
		}
		return s.insertItems(ctx, existing.ID, req.Items)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, existing.ID)
}

// Send transitions a draft to sent and mints the deposit payment link, which
// expires with the quote's validity deadline. Returns the link token.
func (s *Service) Send(ctx context.Context, number, actor string) (*Quote, string, error) {
	existing, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, "", err
	}
	if existing.Status != StatusDraft {
		return nil, "", fmt.Errorf("%w: quote %s is %s, only draft quotes can be sent", httpx.ErrConflict, number, existing.Status)
	}

	sentAt := s.now()
	var token string
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, existing.ID, StatusSent, &sentAt); err != nil {
			return fmt.Errorf("mark quote sent: %w", err)
		}
		if s.links != nil {
			token, err = s.links.Mint(ctx, existing.ID, existing.DepositAmount(), existing.Currency, existing.ValidUntil)
			if err != nil {
				return fmt.Errorf("mint payment link: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.dispatch(ctx, notify.EventQuoteSent, map[string]any{
		"quote_number": existing.Number,
		"email":        existing.CustomerEmail,
		"total":        existing.Total,
		"deposit":      existing.DepositAmount(),
		"currency":     existing.Currency,
		"actor":        actor,
	})
	q, err := s.repo.Get(ctx, existing.ID)
	return q, token, err
}

// Accept records the customer's acceptance of a sent quote.
func (s *Service) Accept(ctx context.Context, number, actor string) (*Quote, error) {
	existing, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusSent {
		return nil, fmt.Errorf("%w: quote %s is %s, only sent quotes can be accepted", httpx.ErrConflict, number, existing.Status)
	}
	if err := s.repo.UpdateStatus(ctx, existing.ID, StatusAccepted, nil); err != nil {
		return nil, fmt.Errorf("accept quote: %w", err)
	}
	return s.repo.Get(ctx, existing.ID)
}

// Convert snapshots a sent or accepted quote into a new order. The order
// creation and the quote status flip commit as one unit; an ineligible state
// fails without side effects.
func (s *Service) Convert(ctx context.Context, number, actor string) (ConvertedOrder, error) {
	existing, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return ConvertedOrder{}, err
	}
	return s.convert(ctx, existing, actor)
}

// ConvertByID is the conversion entry point for the payment-link gateway,
// which holds storage ids rather than numbers.
func (s *Service) ConvertByID(ctx context.Context, id int64, actor string) (ConvertedOrder, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return ConvertedOrder{}, err
	}
	return s.convert(ctx, existing, actor)
}

func (s *Service) convert(ctx context.Context, q *Quote, actor string) (ConvertedOrder, error) {
	if q.Status != StatusSent && q.Status != StatusAccepted {
		return ConvertedOrder{}, fmt.Errorf("%w: quote %s is %s, only sent or accepted quotes convert", httpx.ErrConflict, q.Number, q.Status)
	}
	if s.orders == nil {
		return ConvertedOrder{}, errors.New("quotes: order creator not configured")
	}

	var ord ConvertedOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		created, err := s.orders.CreateFromQuote(ctx, q, actor)
		if err != nil {
			return fmt.Errorf("create order from quote: %w", err)
		}
		ord = created
		return s.repo.MarkConverted(ctx, q.ID, created.ID)
	})
	if err != nil {
		return ConvertedOrder{}, err
	}

	s.dispatch(ctx, notify.EventOrderConfirmed, map[string]any{
		"order_number": ord.Number,
		"quote_number": q.Number,
		"email":        q.CustomerEmail,
		"total":        q.Total,
		"currency":     q.Currency,
		"actor":        actor,
	})
	return ord, nil
}

// Reject is a terminal operator transition.
func (s *Service) Reject(ctx context.Context, number, actor string) (*Quote, error) {
	existing, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	switch existing.Status {
	case StatusDraft, StatusSent, StatusAccepted:
	default:
		return nil, fmt.Errorf("%w: quote %s is %s and cannot be rejected", httpx.ErrConflict, number, existing.Status)
	}
	if err := s.repo.UpdateStatus(ctx, existing.ID, StatusRejected, nil); err != nil {
		return nil, fmt.Errorf("reject quote: %w", err)
	}
	return s.repo.Get(ctx, existing.ID)
}

// Expire marks a sent or accepted quote expired.
func (s *Service) Expire(ctx context.Context, number string) (*Quote, error) {
	existing, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusSent && existing.Status != StatusAccepted {
		return nil, fmt.Errorf("%w: quote %s is %s and cannot expire", httpx.ErrConflict, number, existing.Status)
	}
	if err := s.repo.UpdateStatus(ctx, existing.ID, StatusExpired, nil); err != nil {
		return nil, fmt.Errorf("expire quote: %w", err)
	}
	return s.repo.Get(ctx, existing.ID)
}

// Reopen returns an expired quote to draft so an operator can reprice it.
func (s *Service) Reopen(ctx context.Context, number, actor string) (*Quote, error) {
	existing, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusExpired {
		return nil, fmt.Errorf("%w: quote %s is %s, only expired quotes can be reopened", httpx.ErrConflict, number, existing.Status)
	}
	if err := s.repo.UpdateStatus(ctx, existing.ID, StatusDraft, nil); err != nil {
		return nil, fmt.Errorf("reopen quote: %w", err)
	}
	return s.repo.Get(ctx, existing.ID)
}

// ExpireOverdue expires every sent or accepted quote past its validity
// deadline. Run from the worker's scheduled sweep; returns the number of
// quotes expired.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.repo.ListOverdue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list overdue quotes: %w", err)
	}
	expired := 0
	for _, q := range overdue {
		if err := s.repo.UpdateStatus(ctx, q.ID, StatusExpired, nil); err != nil {
			s.logger.Error("expire overdue quote", slog.String("quote", q.Number), slog.Any("error", err))
			continue
		}
		expired++
	}
	return expired, nil
}

// Get fetches a quote by its public number.
func (s *Service) Get(ctx context.Context, number string) (*Quote, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns quotes filtered by status and free-text search, paginated.
func (s *Service) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) insertItems(ctx context.Context, quoteID int64, items []ItemInput) error {
	for _, in := range items {
		item := Item{
			QuoteID:   quoteID,
			Name:      in.Name,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			LineTotal: float64(in.Quantity) * in.UnitPrice,
			WeightKg:  in.WeightKg,
			LengthCm:  in.LengthCm,
			WidthCm:   in.WidthCm,
			HeightCm:  in.HeightCm,
		}
		if _, err := s.repo.InsertItem(ctx, item); err != nil {
			return fmt.Errorf("insert quote item: %w", err)
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

// computeTotals derives subtotal and total from the line set and the cost
// breakdown. The total is always recomputed, never taken from input.
func computeTotals(items []ItemInput, shipping, insurance, customsDuty, tax, discount float64) (subtotal, total float64, err error) {
	for _, in := range items {
		subtotal += float64(in.Quantity) * in.UnitPrice
	}
	total = subtotal + shipping + insurance + customsDuty + tax - discount
	if total < 0 {
		return 0, 0, fmt.Errorf("%w: discount %0.2f exceeds the quote value", httpx.ErrIntegrity, discount)
	}
	return subtotal, total, nil
}
