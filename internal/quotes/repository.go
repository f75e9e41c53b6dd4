package quotes

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

// NewRepository builds the pgx-backed quote repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

const quoteColumns = `
	q.id, q.number, q.status,
	q.customer_name, q.customer_email, q.customer_phone, q.customer_company, q.account_id,
	q.currency, q.subtotal, q.shipping, q.insurance, q.customs_duty, q.discount, q.tax, q.total,
	q.deposit_percent, q.valid_until, q.sent_at, q.order_id,
	(SELECT o.number FROM orders o WHERE o.id = q.order_id) AS order_number,
	q.notes, q.created_at, q.updated_at`

func (r *repository) Create(ctx context.Context, q Quote) (int64, error) {
	var id int64
	err := db.From(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO quotes (
			number, status,
			customer_name, customer_email, customer_phone, customer_company, account_id,
			currency, subtotal, shipping, insurance, customs_duty, discount, tax, total,
			deposit_percent, valid_until, notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,NOW(),NOW())
		RETURNING id
	`, q.Number, q.Status,
		q.CustomerName, q.CustomerEmail, q.CustomerPhone, q.CustomerCompany, q.AccountID,
		q.Currency, q.Subtotal, q.Shipping, q.Insurance, q.CustomsDuty, q.Discount, q.Tax, q.Total,
		q.DepositPercent, q.ValidUntil, q.Notes).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := db.From(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO quote_items (quote_id, name, quantity, unit_price, line_total, weight_kg, length_cm, width_cm, height_cm)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, item.QuoteID, item.Name, item.Quantity, item.UnitPrice, item.LineTotal,
		item.WeightKg, item.LengthCm, item.WidthCm, item.HeightCm).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) DeleteItems(ctx context.Context, quoteID int64) error {
	_, err := db.From(ctx, r.pool).Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, quoteID)
	return err
}

func (r *repository) UpdateDraft(ctx context.Context, id int64, q Quote) error {
	_, err := db.From(ctx, r.pool).Exec(ctx, `
		UPDATE quotes SET
			subtotal = $2, shipping = $3, insurance = $4, customs_duty = $5,
			discount = $6, tax = $7, total = $8, deposit_percent = $9,
			valid_until = $10, notes = $11, updated_at = NOW()
		WHERE id = $1
	`, id, q.Subtotal, q.Shipping, q.Insurance, q.CustomsDuty,
		q.Discount, q.Tax, q.Total, q.DepositPercent, q.ValidUntil, q.Notes)
	return err
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status, sentAt *time.Time) error {
	_, err := db.From(ctx, r.pool).Exec(ctx, `
		UPDATE quotes SET status = $2, sent_at = COALESCE($3, sent_at), updated_at = NOW()
		WHERE id = $1
	`, id, status, sentAt)
	return err
}

func (r *repository) MarkConverted(ctx context.Context, id, orderID int64) error {
	tag, err := db.From(ctx, r.pool).Exec(ctx, `
		UPDATE quotes SET status = $2, order_id = $3, updated_at = NOW()
		WHERE id = $1 AND order_id IS NULL
	`, id, StatusConverted, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quote already converted", httpx.ErrIntegrity)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quote, error) {
	return r.fetch(ctx, `WHERE q.id = $1`, id)
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Quote, error) {
	return r.fetch(ctx, `WHERE q.number = $1`, number)
}

func (r *repository) fetch(ctx context.Context, where string, arg any) (*Quote, error) {
	q := db.From(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes q `+where, arg)
	quote, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: quote", httpx.ErrNotFound)
		}
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, quote_id, name, quantity, unit_price, line_total, weight_kg, length_cm, width_cm, height_cm
		FROM quote_items WHERE quote_id = $1 ORDER BY id
	`, quote.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.Name, &it.Quantity, &it.UnitPrice, &it.LineTotal,
			&it.WeightKg, &it.LengthCm, &it.WidthCm, &it.HeightCm); err != nil {
			return nil, err
		}
		quote.Items = append(quote.Items, it)
	}
	return quote, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	where := `WHERE 1=1`
	args := []any{}
	if req.Status != nil {
		args = append(args, *req.Status)
		where += fmt.Sprintf(" AND q.status = $%d", len(args))
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		where += fmt.Sprintf(" AND (q.number ILIKE $%d OR q.customer_name ILIKE $%d OR q.customer_email ILIKE $%d)",
			len(args), len(args), len(args))
	}

	querier := db.From(ctx, r.pool)
	var total int
	if err := querier.QueryRow(ctx, `SELECT COUNT(*) FROM quotes q `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, req.Limit, req.Offset)
	rows, err := querier.Query(ctx,
		`SELECT `+quoteColumns+` FROM quotes q `+where+
			fmt.Sprintf(" ORDER BY q.created_at DESC, q.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *quote)
	}
	return out, total, rows.Err()
}

func (r *repository) ListOverdue(ctx context.Context, asOf time.Time) ([]Quote, error) {
	rows, err := db.From(ctx, r.pool).Query(ctx,
		`SELECT `+quoteColumns+` FROM quotes q WHERE q.status IN ($1, $2) AND q.valid_until < $3`,
		StatusSent, StatusAccepted, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *quote)
	}
	return out, rows.Err()
}

func (r *repository) FindAccountID(ctx context.Context, email string) (*int64, error) {
	var id int64
	err := db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT id FROM customer_accounts WHERE lower(email) = lower($1)`, email).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.Number, &q.Status,
		&q.CustomerName, &q.CustomerEmail, &q.CustomerPhone, &q.CustomerCompany, &q.AccountID,
		&q.Currency, &q.Subtotal, &q.Shipping, &q.Insurance, &q.CustomsDuty, &q.Discount, &q.Tax, &q.Total,
		&q.DepositPercent, &q.ValidUntil, &q.SentAt, &q.OrderID, &q.OrderNumber,
		&q.Notes, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
