package paylink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk/internal/payments"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/provider"
	"github.com/freightdesk/freightdesk/internal/quotes"
)

type memRepo struct {
	nextID int64
	links  map[int64]*Link
}

func newMemRepo() *memRepo {
	return &memRepo{links: make(map[int64]*Link)}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memRepo) Create(_ context.Context, l Link) (int64, error) {
	m.nextID++
	l.ID = m.nextID
	l.CreatedAt = time.Now()
	m.links[l.ID] = &l
	return l.ID, nil
}

func (m *memRepo) GetByToken(_ context.Context, token string) (*Link, error) {
	for _, l := range m.links {
		if l.Token == token {
			out := *l
			return &out, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *memRepo) MarkUsed(_ context.Context, id int64) error {
	l, ok := m.links[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if l.Status != StatusActive {
		return httpx.ErrConflict
	}
	now := time.Now()
	l.Status = StatusUsed
	l.UsedAt = &now
	return nil
}

func (m *memRepo) MarkUsedByPayment(_ context.Context, paymentID int64) error {
	for _, l := range m.links {
		if l.PaymentID != nil && *l.PaymentID == paymentID && l.Status == StatusActive {
			now := time.Now()
			l.Status = StatusUsed
			l.UsedAt = &now
		}
	}
	return nil
}

func (m *memRepo) SetPayment(_ context.Context, id, paymentID int64) error {
	l, ok := m.links[id]
	if !ok {
		return httpx.ErrNotFound
	}
	l.PaymentID = &paymentID
	return nil
}

func (m *memRepo) Expire(_ context.Context, id int64) error {
	l, ok := m.links[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if l.Status == StatusActive {
		l.Status = StatusExpired
	}
	return nil
}

type stubConverter struct {
	converted []int64
}

func (s *stubConverter) ConvertByID(_ context.Context, id int64, _ string) (quotes.ConvertedOrder, error) {
	s.converted = append(s.converted, id)
	return quotes.ConvertedOrder{ID: 9, Number: "ORD-2026-0009"}, nil
}

type stubPending struct {
	created []string
}

func (s *stubPending) CreatePending(_ context.Context, orderID int64, amount float64, currency string, pType payments.Type, providerRef string) (*payments.Payment, error) {
	s.created = append(s.created, providerRef)
	return &payments.Payment{ID: 31, OrderID: orderID, Amount: amount, Currency: currency, Type: pType, Status: payments.StatusProcessing, ProviderRef: &providerRef}, nil
}

func sandboxService(repo Repository, conv QuoteConverter) *Service {
	return NewService(repo, conv, nil, nil, ModeSandbox, slog.Default())
}

func mintActive(t *testing.T, svc *Service) string {
	t.Helper()
	token, err := svc.Mint(context.Background(), 42, 480, "CNY", time.Now().Add(72*time.Hour))
	require.NoError(t, err)
	return token
}

func TestMintAndLookup(t *testing.T) {
	repo := newMemRepo()
	svc := sandboxService(repo, nil)

	token := mintActive(t, svc)
	require.NotEmpty(t, token)

	link, err := svc.Lookup(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, link.Status)
	assert.Equal(t, 480.0, link.Amount)
	assert.Equal(t, "CNY", link.Currency)
}

func TestLookupUnknownTokenIsNotFound(t *testing.T) {
	svc := sandboxService(newMemRepo(), nil)
	_, err := svc.Lookup(context.Background(), "nope")
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestLookupFlipsOverdueLinkToExpired(t *testing.T) {
	repo := newMemRepo()
	svc := sandboxService(repo, nil)

	token, err := svc.Mint(context.Background(), 42, 480, "CNY", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	link, err := svc.Lookup(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, link.Status)
	// the flip persisted, not just the view
	assert.Equal(t, StatusExpired, repo.links[1].Status)
}

func TestRedeemSandboxConvertsAndBurnsLink(t *testing.T) {
	repo := newMemRepo()
	conv := &stubConverter{}
	svc := sandboxService(repo, conv)

	token := mintActive(t, svc)
	result, err := svc.Redeem(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0009", result.OrderNumber)
	assert.Empty(t, result.CheckoutURL)
	assert.Equal(t, []int64{42}, conv.converted)

	link, err := svc.Lookup(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, StatusUsed, link.Status)
}

func TestRedeemUsedLinkConflicts(t *testing.T) {
	repo := newMemRepo()
	conv := &stubConverter{}
	svc := sandboxService(repo, conv)

	token := mintActive(t, svc)
	_, err := svc.Redeem(context.Background(), token)
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), token)
	require.ErrorIs(t, err, httpx.ErrConflict)
	assert.Len(t, conv.converted, 1)
}

func TestRedeemExpiredLinkConflicts(t *testing.T) {
	repo := newMemRepo()
	svc := sandboxService(repo, &stubConverter{})

	token, err := svc.Mint(context.Background(), 42, 480, "CNY", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), token)
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestRedeemLiveOpensIntentAndKeepsLinkActive(t *testing.T) {
	repo := newMemRepo()
	conv := &stubConverter{}
	pending := &stubPending{}
	svc := NewService(repo, conv, pending, provider.NewSandbox("http://pay.local"), ModeLive, slog.Default())

	token := mintActive(t, svc)
	result, err := svc.Redeem(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0009", result.OrderNumber)
	assert.NotEmpty(t, result.CheckoutURL)
	require.Len(t, pending.created, 1)

	// the link burns only when the success webhook lands
	link, err := svc.Lookup(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, link.Status)
	require.NotNil(t, link.PaymentID)

	require.NoError(t, svc.MarkUsedByPayment(context.Background(), *link.PaymentID))
	link, err = svc.Lookup(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, StatusUsed, link.Status)
}
