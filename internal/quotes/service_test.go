package quotes

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/sequence"
)

type memRepo struct {
	nextID  int64
	quotes  map[int64]*Quote
	items   map[int64][]Item
	byEmail map[string]int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		quotes:  make(map[int64]*Quote),
		items:   make(map[int64][]Item),
		byEmail: make(map[string]int64),
	}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memRepo) Create(_ context.Context, q Quote) (int64, error) {
	m.nextID++
	q.ID = m.nextID
	q.CreatedAt = time.Now()
	m.quotes[q.ID] = &q
	return q.ID, nil
}

func (m *memRepo) InsertItem(_ context.Context, item Item) (int64, error) {
	m.items[item.QuoteID] = append(m.items[item.QuoteID], item)
	return int64(len(m.items[item.QuoteID])), nil
}

func (m *memRepo) DeleteItems(_ context.Context, quoteID int64) error {
	delete(m.items, quoteID)
	return nil
}

func (m *memRepo) UpdateDraft(_ context.Context, id int64, q Quote) error {
	existing, ok := m.quotes[id]
	if !ok {
		return httpx.ErrNotFound
	}
	q.ID = id
	q.Number = existing.Number
	q.Status = existing.Status
	m.quotes[id] = &q
	return nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id int64, status Status, sentAt *time.Time) error {
	q, ok := m.quotes[id]
	if !ok {
		return httpx.ErrNotFound
	}
	q.Status = status
	if sentAt != nil {
		q.SentAt = sentAt
	}
	return nil
}

func (m *memRepo) MarkConverted(_ context.Context, id, orderID int64) error {
	q, ok := m.quotes[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if q.OrderID != nil {
		return httpx.ErrIntegrity
	}
	q.Status = StatusConverted
	q.OrderID = &orderID
	return nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*Quote, error) {
	q, ok := m.quotes[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	out := *q
	out.Items = m.items[id]
	return &out, nil
}

func (m *memRepo) GetByNumber(ctx context.Context, number string) (*Quote, error) {
	for id, q := range m.quotes {
		if q.Number == number {
			return m.Get(ctx, id)
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *memRepo) List(_ context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	var out []Quote
	for _, q := range m.quotes {
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (m *memRepo) ListOverdue(_ context.Context, asOf time.Time) ([]Quote, error) {
	var out []Quote
	for _, q := range m.quotes {
		if (q.Status == StatusSent || q.Status == StatusAccepted) && q.ValidUntil.Before(asOf) {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memRepo) FindAccountID(_ context.Context, email string) (*int64, error) {
	if id, ok := m.byEmail[email]; ok {
		return &id, nil
	}
	return nil, nil
}

type stubMinter struct {
	minted int
	token  string
}

func (s *stubMinter) Mint(_ context.Context, _ int64, _ float64, _ string, _ time.Time) (string, error) {
	s.minted++
	return s.token, nil
}

type stubOrders struct {
	created []string
	fail    bool
}

func (s *stubOrders) CreateFromQuote(_ context.Context, q *Quote, _ string) (ConvertedOrder, error) {
	if s.fail {
		return ConvertedOrder{}, errors.New("boom")
	}
	s.created = append(s.created, q.Number)
	return ConvertedOrder{ID: int64(len(s.created)), Number: "ORD-2026-0001"}, nil
}

func newTestService(repo Repository, links LinkMinter, orders OrderCreator) *Service {
	return NewService(repo, sequence.NewMemory(2026), links, orders, nil, slog.Default())
}

func validCreateRequest() CreateQuoteRequest {
	return CreateQuoteRequest{
		Customer: CustomerInput{Name: "Lena Osei", Email: "lena@example.com"},
		Currency: "CNY",
		Items: []ItemInput{
			{Name: "LED panels", Quantity: 100, UnitPrice: 10},
			{Name: "Mounting kits", Quantity: 3, UnitPrice: 100},
		},
		Shipping:       250,
		Insurance:      50,
		Tax:            30,
		Discount:       30,
		DepositPercent: 30,
		ValidUntil:     time.Now().Add(14 * 24 * time.Hour),
	}
}

func TestCreateComputesTotals(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil, nil)

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "QT-2026-0001", q.Number)
	assert.Equal(t, StatusDraft, q.Status)
	assert.Equal(t, 1300.0, q.Subtotal)
	assert.Equal(t, 1600.0, q.Total)
	assert.Equal(t, 480.0, q.DepositAmount())
	assert.Len(t, q.Items, 2)
}

func TestCreateRejectsNegativeTotal(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil, nil)

	req := validCreateRequest()
	req.Discount = 99999

	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrIntegrity)
	assert.Empty(t, repo.quotes)
}

func TestCreateRejectsMissingItems(t *testing.T) {
	svc := newTestService(newMemRepo(), nil, nil)

	req := validCreateRequest()
	req.Items = nil

	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateReplacesItemsOnDraftOnly(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubMinter{token: "tok"}, nil)

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), q.Number, UpdateQuoteRequest{
		Items:          []ItemInput{{Name: "LED panels", Quantity: 50, UnitPrice: 10}},
		Shipping:       100,
		DepositPercent: 30,
		ValidUntil:     q.ValidUntil,
	})
	require.NoError(t, err)
	assert.Equal(t, 500.0, updated.Subtotal)
	assert.Equal(t, 600.0, updated.Total)
	assert.Len(t, updated.Items, 1)

	_, _, err = svc.Send(context.Background(), q.Number, "ops")
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), q.Number, UpdateQuoteRequest{
		Items:          []ItemInput{{Name: "x", Quantity: 1, UnitPrice: 1}},
		DepositPercent: 30,
		ValidUntil:     q.ValidUntil,
	})
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestSendMintsLinkOnce(t *testing.T) {
	repo := newMemRepo()
	minter := &stubMinter{token: "tok-123"}
	svc := newTestService(repo, minter, nil)

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	sent, token, err := svc.Send(context.Background(), q.Number, "ops")
	require.NoError(t, err)
	assert.Equal(t, StatusSent, sent.Status)
	assert.NotNil(t, sent.SentAt)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, 1, minter.minted)

	_, _, err = svc.Send(context.Background(), q.Number, "ops")
	require.ErrorIs(t, err, httpx.ErrConflict)
	assert.Equal(t, 1, minter.minted)
}

func TestConvertFlipsQuoteAndCreatesOrder(t *testing.T) {
	repo := newMemRepo()
	creator := &stubOrders{}
	svc := newTestService(repo, &stubMinter{token: "tok"}, creator)

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	_, _, err = svc.Send(context.Background(), q.Number, "ops")
	require.NoError(t, err)

	ord, err := svc.Convert(context.Background(), q.Number, "ops")
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0001", ord.Number)

	after, err := svc.Get(context.Background(), q.Number)
	require.NoError(t, err)
	assert.Equal(t, StatusConverted, after.Status)

	// a converted quote never converts again
	_, err = svc.Convert(context.Background(), q.Number, "ops")
	require.ErrorIs(t, err, httpx.ErrConflict)
	assert.Len(t, creator.created, 1)
}

func TestConvertRequiresSentOrAccepted(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil, &stubOrders{})

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Convert(context.Background(), q.Number, "ops")
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestAcceptThenConvert(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubMinter{token: "tok"}, &stubOrders{})

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	_, _, err = svc.Send(context.Background(), q.Number, "ops")
	require.NoError(t, err)

	accepted, err := svc.Accept(context.Background(), q.Number, "customer")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.Status)

	_, err = svc.Convert(context.Background(), q.Number, "ops")
	require.NoError(t, err)
}

func TestReopenOnlyFromExpired(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubMinter{token: "tok"}, nil)

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Reopen(context.Background(), q.Number, "ops")
	require.ErrorIs(t, err, httpx.ErrConflict)

	_, _, err = svc.Send(context.Background(), q.Number, "ops")
	require.NoError(t, err)
	_, err = svc.Expire(context.Background(), q.Number)
	require.NoError(t, err)

	reopened, err := svc.Reopen(context.Background(), q.Number, "ops")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, reopened.Status)
}

func TestExpireOverdueSweep(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubMinter{token: "tok"}, nil)

	fresh := validCreateRequest()
	q1, err := svc.Create(context.Background(), fresh)
	require.NoError(t, err)
	_, _, err = svc.Send(context.Background(), q1.Number, "ops")
	require.NoError(t, err)

	stale := validCreateRequest()
	q2, err := svc.Create(context.Background(), stale)
	require.NoError(t, err)
	_, _, err = svc.Send(context.Background(), q2.Number, "ops")
	require.NoError(t, err)
	repo.quotes[2].ValidUntil = time.Now().Add(-time.Hour)

	// An accepted quote past its deadline is swept too.
	q3, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	_, _, err = svc.Send(context.Background(), q3.Number, "ops")
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), q3.Number, "customer")
	require.NoError(t, err)
	repo.quotes[3].ValidUntil = time.Now().Add(-time.Hour)

	n, err := svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	after, err := svc.Get(context.Background(), q2.Number)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, after.Status)

	accepted, err := svc.Get(context.Background(), q3.Number)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, accepted.Status)

	untouched, err := svc.Get(context.Background(), q1.Number)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, untouched.Status)
}
