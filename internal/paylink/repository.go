package paylink

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

// NewRepository builds the pgx-backed link repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

func (r *repository) Create(ctx context.Context, l Link) (int64, error) {
	var id int64
	err := db.From(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO payment_links (token, quote_id, amount, currency, status, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
		RETURNING id
	`, l.Token, l.QuoteID, l.Amount, l.Currency, l.Status, l.ExpiresAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) GetByToken(ctx context.Context, token string) (*Link, error) {
	var l Link
	err := db.From(ctx, r.pool).QueryRow(ctx, `
		SELECT l.id, l.token, l.quote_id,
			(SELECT q.number FROM quotes q WHERE q.id = l.quote_id) AS quote_number,
			l.amount, l.currency, l.status, l.payment_id, l.expires_at, l.used_at, l.created_at
		FROM payment_links l
		WHERE l.token = $1
	`, token).Scan(
		&l.ID, &l.Token, &l.QuoteID, &l.QuoteNumber,
		&l.Amount, &l.Currency, &l.Status, &l.PaymentID, &l.ExpiresAt, &l.UsedAt, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: payment link", httpx.ErrNotFound)
		}
		return nil, err
	}
	return &l, nil
}

func (r *repository) MarkUsed(ctx context.Context, id int64) error {
	tag, err := db.From(ctx, r.pool).Exec(ctx, `
		UPDATE payment_links SET status = 'used', used_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment link already used", httpx.ErrConflict)
	}
	return nil
}

func (r *repository) MarkUsedByPayment(ctx context.Context, paymentID int64) error {
	_, err := db.From(ctx, r.pool).Exec(ctx, `
		UPDATE payment_links SET status = 'used', used_at = NOW(), updated_at = NOW()
		WHERE payment_id = $1 AND status = 'active'
	`, paymentID)
	return err
}

func (r *repository) SetPayment(ctx context.Context, id, paymentID int64) error {
	_, err := db.From(ctx, r.pool).Exec(ctx, `
		UPDATE payment_links SET payment_id = $1, updated_at = NOW() WHERE id = $2
	`, paymentID, id)
	return err
}

func (r *repository) Expire(ctx context.Context, id int64) error {
	_, err := db.From(ctx, r.pool).Exec(ctx, `
		UPDATE payment_links SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id)
	return err
}
