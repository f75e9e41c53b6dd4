package orders

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/quotes"
	"github.com/freightdesk/freightdesk/internal/sequence"
)

type memRepo struct {
	nextID  int64
	orders  map[int64]*Order
	items   map[int64][]Item
	history map[int64][]StatusEvent
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:  make(map[int64]*Order),
		items:   make(map[int64][]Item),
		history: make(map[int64][]StatusEvent),
	}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memRepo) Create(_ context.Context, o Order) (int64, error) {
	m.nextID++
	o.ID = m.nextID
	o.CreatedAt = time.Now()
	m.orders[o.ID] = &o
	return o.ID, nil
}

func (m *memRepo) InsertItem(_ context.Context, item Item) (int64, error) {
	m.items[item.OrderID] = append(m.items[item.OrderID], item)
	return int64(len(m.items[item.OrderID])), nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	out := *o
	out.Items = m.items[id]
	out.History = m.history[id]
	return &out, nil
}

func (m *memRepo) GetByNumber(ctx context.Context, number string) (*Order, error) {
	for id, o := range m.orders {
		if o.Number == number {
			return m.Get(ctx, id)
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *memRepo) List(_ context.Context, req ListOrdersRequest) ([]Order, int, error) {
	var out []Order
	for _, o := range m.orders {
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *memRepo) AppendStatus(_ context.Context, orderID int64, status Status, note *string, actor string) error {
	o, ok := m.orders[orderID]
	if !ok {
		return httpx.ErrNotFound
	}
	m.history[orderID] = append(m.history[orderID], StatusEvent{
		Seq:       len(m.history[orderID]) + 1,
		Status:    status,
		Note:      note,
		Actor:     actor,
		CreatedAt: time.Now(),
	})
	o.Status = status
	return nil
}

func (m *memRepo) UpdateShipment(_ context.Context, id int64, req UpdateShipmentRequest) error {
	o, ok := m.orders[id]
	if !ok {
		return httpx.ErrNotFound
	}
	o.TrackingID = req.TrackingID
	o.VesselName = req.VesselName
	o.Destination = req.Destination
	o.EstimatedETA = req.EstimatedETA
	return nil
}

func (m *memRepo) UpdateFinancials(_ context.Context, id int64, deposit, balance float64) error {
	o, ok := m.orders[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if balance < 0 {
		return httpx.ErrIntegrity
	}
	o.DepositAmount = deposit
	o.BalanceDue = balance
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, sequence.NewMemory(2026), nil, slog.Default())
}

func TestCreateDirectStartsPendingWithFullBalance(t *testing.T) {
	svc := newTestService(newMemRepo())

	order, err := svc.CreateDirect(context.Background(), CreateOrderRequest{
		Customer: CustomerInput{Name: "Tomas Rivera", Email: "tomas@example.com"},
		Currency: "CNY",
		Items:    []ItemInput{{Name: "Solar inverters", Quantity: 10, UnitPrice: 450}},
		Shipping: 500,
	}, "ops")
	require.NoError(t, err)

	assert.Equal(t, "ORD-2026-0001", order.Number)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, 5000.0, order.Total)
	assert.Equal(t, 0.0, order.DepositAmount)
	assert.Equal(t, 5000.0, order.BalanceDue)
	require.Len(t, order.History, 1)
	assert.Equal(t, StatusPending, order.History[0].Status)
	assert.Equal(t, "ops", order.History[0].Actor)
}

func TestCreateFromQuoteFreezesFinancials(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	notes := "fragile cargo"
	accountID := int64(77)
	q := &quotes.Quote{
		ID:             42,
		Number:         "QT-2026-0007",
		Status:         quotes.StatusSent,
		CustomerName:   "Lena Osei",
		CustomerEmail:  "lena@example.com",
		AccountID:      &accountID,
		Currency:       "CNY",
		Subtotal:       1300,
		Shipping:       250,
		Insurance:      50,
		Tax:            30,
		Discount:       30,
		Total:          1600,
		DepositPercent: 30,
		Notes:          &notes,
		Items: []quotes.Item{
			{Name: "LED panels", Quantity: 100, UnitPrice: 10, LineTotal: 1000, WeightKg: 120},
			{Name: "Mounting kits", Quantity: 3, UnitPrice: 100, LineTotal: 300},
		},
	}

	created, err := svc.CreateFromQuote(context.Background(), q, "ops")
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0001", created.Number)

	order, err := svc.Get(context.Background(), created.Number)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, order.Status)
	assert.Equal(t, q.Total, order.Total)
	assert.Equal(t, q.Subtotal, order.Subtotal)
	assert.Equal(t, 480.0, order.DepositAmount)
	assert.Equal(t, 1120.0, order.BalanceDue)
	assert.Equal(t, &accountID, order.AccountID)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 1000.0, order.Items[0].LineTotal)

	require.Len(t, order.History, 1)
	require.NotNil(t, order.History[0].Note)
	assert.Contains(t, *order.History[0].Note, "QT-2026-0007")
}

func TestUpdateStatusAppendsHistoryInOrder(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	order, err := svc.CreateDirect(context.Background(), CreateOrderRequest{
		Customer: CustomerInput{Name: "Tomas Rivera", Email: "tomas@example.com"},
		Currency: "CNY",
		Items:    []ItemInput{{Name: "Solar inverters", Quantity: 1, UnitPrice: 100}},
	}, "ops")
	require.NoError(t, err)

	for _, status := range []Status{StatusConfirmed, StatusSourcing, StatusPacking} {
		_, err = svc.UpdateStatus(context.Background(), order.Number, UpdateStatusRequest{Status: status}, "ops")
		require.NoError(t, err)
	}
	// backwards transitions are recorded too, not rejected
	after, err := svc.UpdateStatus(context.Background(), order.Number, UpdateStatusRequest{Status: StatusSourcing}, "ops")
	require.NoError(t, err)

	assert.Equal(t, StatusSourcing, after.Status)
	require.Len(t, after.History, 5)
	for i, ev := range after.History {
		assert.Equal(t, i+1, ev.Seq)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(newMemRepo())
	_, err := svc.UpdateStatus(context.Background(), "ORD-2026-0001", UpdateStatusRequest{Status: "teleported"}, "ops")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, ProgressPercent(StatusPending))
	assert.Equal(t, 100, ProgressPercent(StatusClosed))
	assert.Equal(t, 0, ProgressPercent(StatusCancelled))

	prev := -1
	for _, s := range Progression {
		pct := ProgressPercent(s)
		assert.Greater(t, pct, prev)
		prev = pct
	}
}

func TestUpdateShipment(t *testing.T) {
	svc := newTestService(newMemRepo())

	order, err := svc.CreateDirect(context.Background(), CreateOrderRequest{
		Customer: CustomerInput{Name: "Tomas Rivera", Email: "tomas@example.com"},
		Currency: "CNY",
		Items:    []ItemInput{{Name: "Solar inverters", Quantity: 1, UnitPrice: 100}},
	}, "ops")
	require.NoError(t, err)

	tracking := "MSKU1234567"
	vessel := "Ever Given"
	eta := time.Now().Add(21 * 24 * time.Hour)
	after, err := svc.UpdateShipment(context.Background(), order.Number, UpdateShipmentRequest{
		TrackingID:   &tracking,
		VesselName:   &vessel,
		EstimatedETA: &eta,
	})
	require.NoError(t, err)
	assert.Equal(t, &tracking, after.TrackingID)
	assert.Equal(t, &vessel, after.VesselName)
}
