package documents

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/freightdesk/freightdesk/internal/orders"
	"github.com/freightdesk/freightdesk/internal/payments"
)

// Kind selects the billing document to issue.
type Kind string

const (
	KindInvoice       Kind = "invoice"
	KindReceipt       Kind = "receipt"
	KindPurchaseOrder Kind = "purchase_order"
)

// Valid reports whether the kind is issuable.
func (k Kind) Valid() bool {
	switch k {
	case KindInvoice, KindReceipt, KindPurchaseOrder:
		return true
	}
	return false
}

// Snapshot is the immutable view of an order rendered into a document.
// Built once at issue time so later edits never change an issued PDF.
type Snapshot struct {
	Number      string
	Kind        Kind
	Title       string
	IssuedAt    time.Time
	Order       *orders.Order
	Payments    []payments.Payment
	PaidTotal   float64
	ProgressPct int
}

// ShowPayments reports whether the payment ledger is printed.
func (s *Snapshot) ShowPayments() bool { return s.Kind == KindReceipt }

// buildSnapshot freezes the order and its ledger for rendering.
func buildSnapshot(number string, kind Kind, order *orders.Order, list []payments.Payment, now time.Time) *Snapshot {
	var paid float64
	for _, p := range list {
		if p.Status == payments.StatusCompleted {
			paid += p.Amount
		}
	}
	titles := map[Kind]string{
		KindInvoice:       "Invoice",
		KindReceipt:       "Payment Receipt",
		KindPurchaseOrder: "Purchase Order",
	}
	return &Snapshot{
		Number:      number,
		Kind:        kind,
		Title:       titles[kind],
		IssuedAt:    now,
		Order:       order,
		Payments:    list,
		PaidTotal:   paid,
		ProgressPct: orders.ProgressPercent(order.Status),
	}
}

var billingTmpl = template.Must(template.New("billing").Funcs(template.FuncMap{
	"money": func(currency string, v float64) string {
		return fmt.Sprintf("%s %.2f", currency, v)
	},
	"date": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
	body { font-family: Helvetica, Arial, sans-serif; color: #1a1a1a; margin: 40px; }
	h1 { font-size: 22px; margin-bottom: 0; }
	.meta { color: #666; font-size: 12px; margin-bottom: 24px; }
	table { width: 100%; border-collapse: collapse; font-size: 13px; }
	th { text-align: left; border-bottom: 2px solid #1a1a1a; padding: 6px 4px; }
	td { border-bottom: 1px solid #ddd; padding: 6px 4px; }
	.num { text-align: right; }
	.totals { margin-top: 16px; width: 40%; margin-left: auto; }
	.totals td { border: none; padding: 3px 4px; }
	.grand { font-weight: bold; border-top: 2px solid #1a1a1a; }
</style>
</head>
<body>
	<h1>{{.Title}} {{.Number}}</h1>
	<p class="meta">
		Order {{.Order.Number}} &middot; issued {{date .IssuedAt}}<br>
		{{.Order.CustomerName}}{{with .Order.CustomerCompany}} &middot; {{.}}{{end}} &middot; {{.Order.CustomerEmail}}
		{{with .Order.Destination}}<br>Destination: {{.}}{{end}}
	</p>

	<table>
		<tr><th>Item</th><th class="num">Qty</th><th class="num">Unit</th><th class="num">Line total</th></tr>
		{{range .Order.Items}}
		<tr>
			<td>{{.Name}}</td>
			<td class="num">{{.Quantity}}</td>
			<td class="num">{{money $.Order.Currency .UnitPrice}}</td>
			<td class="num">{{money $.Order.Currency .LineTotal}}</td>
		</tr>
		{{end}}
	</table>

	<table class="totals">
		<tr><td>Subtotal</td><td class="num">{{money .Order.Currency .Order.Subtotal}}</td></tr>
		<tr><td>Shipping</td><td class="num">{{money .Order.Currency .Order.Shipping}}</td></tr>
		<tr><td>Insurance</td><td class="num">{{money .Order.Currency .Order.Insurance}}</td></tr>
		<tr><td>Customs duty</td><td class="num">{{money .Order.Currency .Order.CustomsDuty}}</td></tr>
		<tr><td>Tax</td><td class="num">{{money .Order.Currency .Order.Tax}}</td></tr>
		<tr><td>Discount</td><td class="num">-{{money .Order.Currency .Order.Discount}}</td></tr>
		<tr class="grand"><td>Total</td><td class="num">{{money .Order.Currency .Order.Total}}</td></tr>
		<tr><td>Paid to date</td><td class="num">{{money .Order.Currency .PaidTotal}}</td></tr>
		<tr><td>Balance due</td><td class="num">{{money .Order.Currency .Order.BalanceDue}}</td></tr>
	</table>

	{{if .ShowPayments}}
	<h1>Payments</h1>
	<table>
		<tr><th>Number</th><th>Method</th><th>Status</th><th class="num">Amount</th></tr>
		{{range .Payments}}
		<tr>
			<td>{{.Number}}</td>
			<td>{{.Method}}</td>
			<td>{{.Status}}</td>
			<td class="num">{{money .Currency .Amount}}</td>
		</tr>
		{{end}}
	</table>
	{{end}}
</body>
</html>`))

// renderHTML produces the document HTML for a snapshot.
func renderHTML(s *Snapshot) (string, error) {
	var buf bytes.Buffer
	if err := billingTmpl.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("render billing template: %w", err)
	}
	return buf.String(), nil
}
