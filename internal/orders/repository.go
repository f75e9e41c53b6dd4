package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freightdesk/freightdesk/internal/platform/db"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed order repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

const orderColumns = `
	o.id, o.number, o.status, o.quote_id,
	(SELECT q.number FROM quotes q WHERE q.id = o.quote_id) AS quote_number,
	o.customer_name, o.customer_email, o.customer_phone, o.customer_company, o.account_id,
	o.currency, o.subtotal, o.shipping, o.insurance, o.customs_duty, o.discount, o.tax, o.total,
	o.deposit_amount, o.balance_due,
	o.tracking_id, o.vessel_name, o.destination, o.estimated_eta,
	o.notes, o.created_at, o.updated_at`

func (r *repository) Create(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := db.From(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO orders (
			number, status, quote_id,
			customer_name, customer_email, customer_phone, customer_company, account_id,
			currency, subtotal, shipping, insurance, customs_duty, discount, tax, total,
			deposit_amount, balance_due, notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,NOW(),NOW())
		RETURNING id
	`, o.Number, o.Status, o.QuoteID,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.CustomerCompany, o.AccountID,
		o.Currency, o.Subtotal, o.Shipping, o.Insurance, o.CustomsDuty, o.Discount, o.Tax, o.Total,
		o.DepositAmount, o.BalanceDue, o.Notes).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := db.From(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO order_items (order_id, name, quantity, unit_price, line_total, weight_kg)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, item.OrderID, item.Name, item.Quantity, item.UnitPrice, item.LineTotal, item.WeightKg).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	return r.fetch(ctx, `WHERE o.id = $1`, id)
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return r.fetch(ctx, `WHERE o.number = $1`, number)
}

func (r *repository) fetch(ctx context.Context, where string, arg any) (*Order, error) {
	querier := db.From(ctx, r.pool)
	row := querier.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o `+where, arg)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order", httpx.ErrNotFound)
		}
		return nil, err
	}

	itemRows, err := querier.Query(ctx, `
		SELECT id, order_id, name, quantity, unit_price, line_total, weight_kg
		FROM order_items WHERE order_id = $1 ORDER BY id
	`, order.ID)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it Item
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.Name, &it.Quantity, &it.UnitPrice, &it.LineTotal, &it.WeightKg); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	// history replay is ordered by seq, not wall clock
	histRows, err := querier.Query(ctx, `
		SELECT id, order_id, seq, status, note, actor, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY seq
	`, order.ID)
	if err != nil {
		return nil, err
	}
	defer histRows.Close()
	for histRows.Next() {
		var ev StatusEvent
		if err := histRows.Scan(&ev.ID, &ev.OrderID, &ev.Seq, &ev.Status, &ev.Note, &ev.Actor, &ev.CreatedAt); err != nil {
			return nil, err
		}
		order.History = append(order.History, ev)
	}
	return order, histRows.Err()
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	where := `WHERE 1=1`
	args := []any{}
	if req.Status != nil {
		args = append(args, *req.Status)
		where += fmt.Sprintf(" AND o.status = $%d", len(args))
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		where += fmt.Sprintf(" AND (o.number ILIKE $%d OR o.customer_name ILIKE $%d OR o.customer_email ILIKE $%d)",
			len(args), len(args), len(args))
	}

	querier := db.From(ctx, r.pool)
	var total int
	if err := querier.QueryRow(ctx, `SELECT COUNT(*) FROM orders o `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, req.Limit, req.Offset)
	rows, err := querier.Query(ctx,
		`SELECT `+orderColumns+` FROM orders o `+where+
			fmt.Sprintf(" ORDER BY o.created_at DESC, o.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *order)
	}
	return out, total, rows.Err()
}

// AppendStatus inserts the next audit trail row and moves the order status,
// as one statement pair under the caller's transaction. The seq is derived
// inside the insert so concurrent appends cannot collide silently: the
// (order_id, seq) uniqueness constraint rejects the loser.
func (r *repository) AppendStatus(ctx context.Context, orderID int64, status Status, note *string, actor string) error {
	querier := db.From(ctx, r.pool)
	_, err := querier.Exec(ctx, `
		INSERT INTO order_status_history (order_id, seq, status, note, actor, created_at)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, NOW()
		FROM order_status_history WHERE order_id = $1
	`, orderID, status, note, actor)
	if err != nil {
		return err
	}
	_, err = querier.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, orderID, status)
	return err
}

func (r *repository) UpdateShipment(ctx context.Context, id int64, req UpdateShipmentRequest) error {
	_, err := db.From(ctx, r.pool).Exec(ctx, `
		UPDATE orders SET
			tracking_id = COALESCE($2, tracking_id),
			vessel_name = COALESCE($3, vessel_name),
			destination = COALESCE($4, destination),
			estimated_eta = COALESCE($5, estimated_eta),
			updated_at = NOW()
		WHERE id = $1
	`, id, req.TrackingID, req.VesselName, req.Destination, req.EstimatedETA)
	return err
}

func (r *repository) UpdateFinancials(ctx context.Context, id int64, deposit, balance float64) error {
	if balance < 0 {
		return fmt.Errorf("%w: balance due cannot go negative", httpx.ErrIntegrity)
	}
	_, err := db.From(ctx, r.pool).Exec(ctx, `
		UPDATE orders SET deposit_amount = $2, balance_due = $3, updated_at = NOW() WHERE id = $1
	`, id, deposit, balance)
	return err
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.Number, &o.Status, &o.QuoteID, &o.QuoteNumber,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.CustomerCompany, &o.AccountID,
		&o.Currency, &o.Subtotal, &o.Shipping, &o.Insurance, &o.CustomsDuty, &o.Discount, &o.Tax, &o.Total,
		&o.DepositAmount, &o.BalanceDue,
		&o.TrackingID, &o.VesselName, &o.Destination, &o.EstimatedETA,
		&o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
