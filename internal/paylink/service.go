package paylink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/freightdesk/internal/payments"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/provider"
	"github.com/freightdesk/freightdesk/internal/quotes"
)

// Repository is the storage port for payment links.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, l Link) (int64, error)
	GetByToken(ctx context.Context, token string) (*Link, error)
	MarkUsed(ctx context.Context, id int64) error
	MarkUsedByPayment(ctx context.Context, paymentID int64) error
	SetPayment(ctx context.Context, id, paymentID int64) error
	Expire(ctx context.Context, id int64) error
}

// QuoteConverter turns the link's quote into an order at redemption time.
type QuoteConverter interface {
	ConvertByID(ctx context.Context, id int64, actor string) (quotes.ConvertedOrder, error)
}

// PendingCreator opens a processing payment correlated with a provider
// intent. Satisfied by the payment reconciler.
type PendingCreator interface {
	CreatePending(ctx context.Context, orderID int64, amount float64, currency string, pType payments.Type, providerRef string) (*payments.Payment, error)
}

// Mode selects how redemption settles.
type Mode string

const (
	// ModeSandbox settles inline without touching the provider.
	ModeSandbox Mode = "sandbox"
	// ModeLive opens a provider intent and defers settlement to webhooks.
	ModeLive Mode = "live"
)

// Service is the payment-link gateway: minting on quote send, lookup and
// single-use redemption on the public pay surface.
type Service struct {
	repo     Repository
	quotes   QuoteConverter
	payments PendingCreator
	provider provider.Client
	mode     Mode
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds the gateway. quotes, payments and prov may be nil in
// tests that only exercise the link state machine.
func NewService(repo Repository, quoteConv QuoteConverter, pending PendingCreator, prov provider.Client, mode Mode, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		quotes:   quoteConv,
		payments: pending,
		provider: prov,
		mode:     mode,
		logger:   logger,
		now:      time.Now,
	}
}

// SetQuotes wires the quote converter after construction. The quote service
// and the gateway reference each other, so one side binds late.
func (s *Service) SetQuotes(quoteConv QuoteConverter) {
	s.quotes = quoteConv
}

// Mint creates an active link for a quote's deposit and returns its token.
// Runs inside the quote-send transaction.
func (s *Service) Mint(ctx context.Context, quoteID int64, amount float64, currency string, expiresAt time.Time) (string, error) {
	token := uuid.NewString()
	_, err := s.repo.Create(ctx, Link{
		Token:     token,
		QuoteID:   quoteID,
		Amount:    amount,
		Currency:  currency,
		Status:    StatusActive,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("create payment link: %w", err)
	}
	return token, nil
}

var _ quotes.LinkMinter = (*Service)(nil)

// Lookup resolves a token for display. Used and expired links resolve with
// their terminal state so the pay page can explain what happened; only an
// unknown token is a 404.
func (s *Service) Lookup(ctx context.Context, token string) (*Link, error) {
	link, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link.Status == StatusActive && link.Expired(s.now()) {
		if err := s.repo.Expire(ctx, link.ID); err != nil {
			return nil, fmt.Errorf("expire payment link: %w", err)
		}
		link.Status = StatusExpired
	}
	return link, nil
}

// Redeem consumes an active link: the quote converts to an order and the
// deposit settles. Sandbox mode settles inline and burns the link; live
// mode opens a provider intent and leaves the link active until the
// success webhook consumes it.
func (s *Service) Redeem(ctx context.Context, token string) (*RedeemResult, error) {
	link, err := s.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	switch link.Status {
	case StatusUsed:
		return nil, fmt.Errorf("%w: payment link already used", httpx.ErrConflict)
	case StatusExpired:
		return nil, fmt.Errorf("%w: payment link expired", httpx.ErrConflict)
	}

	if s.mode == ModeLive {
		return s.redeemLive(ctx, link)
	}
	return s.redeemSandbox(ctx, link)
}

func (s *Service) redeemSandbox(ctx context.Context, link *Link) (*RedeemResult, error) {
	var result RedeemResult
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.MarkUsed(ctx, link.ID); err != nil {
			return err
		}
		ord, err := s.quotes.ConvertByID(ctx, link.QuoteID, "customer")
		if err != nil {
			return err
		}
		result.OrderNumber = ord.Number
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment link redeemed",
		slog.String("token", link.Token), slog.String("order", result.OrderNumber))
	return &result, nil
}

func (s *Service) redeemLive(ctx context.Context, link *Link) (*RedeemResult, error) {
	intent, err := s.provider.CreateIntent(ctx, link.Amount, link.Currency, "deposit for quote "+link.QuoteNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: create provider intent: %s", httpx.ErrExternal, err)
	}

	var result RedeemResult
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		ord, err := s.quotes.ConvertByID(ctx, link.QuoteID, "customer")
		if err != nil {
			return err
		}
		result.OrderNumber = ord.Number

		payment, err := s.payments.CreatePending(ctx, ord.ID, link.Amount, link.Currency, payments.TypeDeposit, intent.Ref)
		if err != nil {
			return err
		}
		return s.repo.SetPayment(ctx, link.ID, payment.ID)
	})
	if err != nil {
		return nil, err
	}
	result.CheckoutURL = s.provider.CheckoutURL(intent.Ref)
	return &result, nil
}

// MarkUsedByPayment burns the link tied to a payment once the provider
// confirms it. Missing link is fine: operator-recorded payments have none.
func (s *Service) MarkUsedByPayment(ctx context.Context, paymentID int64) error {
	return s.repo.MarkUsedByPayment(ctx, paymentID)
}

var _ payments.LinkStore = (*Service)(nil)
