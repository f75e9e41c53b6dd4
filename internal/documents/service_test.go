package documents

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk/internal/orders"
	"github.com/freightdesk/freightdesk/internal/payments"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/sequence"
)

type stubOrders struct {
	order *orders.Order
}

func (s *stubOrders) GetByNumber(_ context.Context, number string) (*orders.Order, error) {
	if s.order == nil || s.order.Number != number {
		return nil, httpx.ErrNotFound
	}
	return s.order, nil
}

type stubPayments struct {
	list []payments.Payment
}

func (s *stubPayments) ListByOrder(_ context.Context, _ int64) ([]payments.Payment, error) {
	return s.list, nil
}

type captureRenderer struct {
	html string
}

func (r *captureRenderer) RenderHTML(_ context.Context, html string) ([]byte, error) {
	r.html = html
	return []byte("%PDF-1.7 stub"), nil
}

func testOrder() *orders.Order {
	return &orders.Order{
		ID:            5,
		Number:        "ORD-2026-0005",
		Status:        orders.StatusInTransit,
		CustomerName:  "Lena Osei",
		CustomerEmail: "lena@example.com",
		Currency:      "CNY",
		Subtotal:      1300,
		Shipping:      250,
		Insurance:     50,
		Tax:           30,
		Discount:      30,
		Total:         1600,
		DepositAmount: 480,
		BalanceDue:    1120,
		Items: []orders.Item{
			{Name: "LED panels", Quantity: 100, UnitPrice: 10, LineTotal: 1000},
		},
	}
}

func TestIssueInvoice(t *testing.T) {
	renderer := &captureRenderer{}
	svc := NewService(&stubOrders{order: testOrder()}, &stubPayments{}, sequence.NewMemory(2026), renderer, slog.Default())

	doc, err := svc.Issue(context.Background(), "ORD-2026-0005", KindInvoice)
	require.NoError(t, err)

	assert.Equal(t, "INV-2026-0001", doc.Number)
	assert.Equal(t, "ORD-2026-0005", doc.OrderNumber)
	assert.NotEmpty(t, doc.PDF)

	assert.Contains(t, renderer.html, "Invoice INV-2026-0001")
	assert.Contains(t, renderer.html, "LED panels")
	assert.Contains(t, renderer.html, "CNY 1600.00")
	assert.Contains(t, renderer.html, "CNY 1120.00")
	// invoices never print the payment ledger
	assert.False(t, strings.Contains(renderer.html, "Payments"))
}

func TestIssueReceiptRequiresCompletedPayment(t *testing.T) {
	svc := NewService(&stubOrders{order: testOrder()}, &stubPayments{}, sequence.NewMemory(2026), &captureRenderer{}, slog.Default())

	_, err := svc.Issue(context.Background(), "ORD-2026-0005", KindReceipt)
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestIssueReceiptListsPayments(t *testing.T) {
	paidAt := time.Now()
	ledger := &stubPayments{list: []payments.Payment{
		{Number: "PAY-2026-0003", Amount: 480, Currency: "CNY", Method: "wire", Status: payments.StatusCompleted, PaidAt: &paidAt},
	}}
	renderer := &captureRenderer{}
	svc := NewService(&stubOrders{order: testOrder()}, ledger, sequence.NewMemory(2026), renderer, slog.Default())

	doc, err := svc.Issue(context.Background(), "ORD-2026-0005", KindReceipt)
	require.NoError(t, err)

	assert.Equal(t, "RCP-2026-0001", doc.Number)
	assert.Contains(t, renderer.html, "PAY-2026-0003")
	assert.Contains(t, renderer.html, "CNY 480.00")
}

func TestIssueNumbersDocumentFamiliesIndependently(t *testing.T) {
	paidAt := time.Now()
	ledger := &stubPayments{list: []payments.Payment{
		{Number: "PAY-2026-0001", Amount: 1600, Currency: "CNY", Status: payments.StatusCompleted, PaidAt: &paidAt},
	}}
	svc := NewService(&stubOrders{order: testOrder()}, ledger, sequence.NewMemory(2026), &captureRenderer{}, slog.Default())

	inv, err := svc.Issue(context.Background(), "ORD-2026-0005", KindInvoice)
	require.NoError(t, err)
	rcp, err := svc.Issue(context.Background(), "ORD-2026-0005", KindReceipt)
	require.NoError(t, err)
	po, err := svc.Issue(context.Background(), "ORD-2026-0005", KindPurchaseOrder)
	require.NoError(t, err)

	assert.Equal(t, "INV-2026-0001", inv.Number)
	assert.Equal(t, "RCP-2026-0001", rcp.Number)
	assert.Equal(t, "PO-2026-0001", po.Number)
}

func TestIssueRejectsUnknownKind(t *testing.T) {
	svc := NewService(&stubOrders{order: testOrder()}, &stubPayments{}, sequence.NewMemory(2026), &captureRenderer{}, slog.Default())
	_, err := svc.Issue(context.Background(), "ORD-2026-0005", Kind("poster"))
	require.ErrorIs(t, err, httpx.ErrValidation)
}
