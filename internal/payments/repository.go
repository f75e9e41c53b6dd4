package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freightdesk/freightdesk/internal/platform/db"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed payment repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

const paymentColumns = `
	p.id, p.number, p.order_id,
	(SELECT o.number FROM orders o WHERE o.id = p.order_id) AS order_number,
	p.amount, p.currency, p.method, p.status, p.type, p.provider_ref,
	p.paid_at, p.failed_at, p.refunded_at, p.created_at, p.updated_at`

func (r *repository) Create(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := db.From(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO payments (
			number, order_id, amount, currency, method, status, type,
			provider_ref, paid_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
		RETURNING id
	`, p.Number, p.OrderID, p.Amount, p.Currency, p.Method, p.Status, p.Type,
		p.ProviderRef, p.PaidAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Payment, error) {
	return r.fetch(ctx, `WHERE p.id = $1`, id)
}

func (r *repository) GetByProviderRef(ctx context.Context, ref string) (*Payment, error) {
	return r.fetch(ctx, `WHERE p.provider_ref = $1`, ref)
}

func (r *repository) fetch(ctx context.Context, where string, arg any) (*Payment, error) {
	row := db.From(ctx, r.pool).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments p `+where, arg)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: payment", httpx.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := db.From(ctx, r.pool).Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p
		WHERE p.order_id = $1
		ORDER BY p.created_at, p.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// UpdateStatus moves a payment from one status to another. The source status
// is part of the WHERE clause, so two concurrent deliveries of the same
// provider event cannot both apply: the loser sees zero rows and gets a
// conflict.
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to Status, at time.Time) error {
	var column string
	switch to {
	case StatusCompleted:
		column = "paid_at"
	case StatusFailed:
		column = "failed_at"
	case StatusRefunded:
		column = "refunded_at"
	default:
		return fmt.Errorf("%w: cannot transition payment to %s", httpx.ErrIntegrity, to)
	}
	tag, err := db.From(ctx, r.pool).Exec(ctx, `
		UPDATE payments SET status = $1, `+column+` = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, to, at, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment is not %s", httpx.ErrConflict, from)
	}
	return nil
}

func (r *repository) Sums(ctx context.Context, orderID int64) (completed, refunded float64, err error) {
	err = db.From(ctx, r.pool).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'refunded'), 0)
		FROM payments
		WHERE order_id = $1
	`, orderID).Scan(&completed, &refunded)
	return completed, refunded, err
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.Number, &p.OrderID, &p.OrderNumber,
		&p.Amount, &p.Currency, &p.Method, &p.Status, &p.Type, &p.ProviderRef,
		&p.PaidAt, &p.FailedAt, &p.RefundedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
