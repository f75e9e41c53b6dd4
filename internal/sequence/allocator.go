// Package sequence issues collision-free human-readable document numbers.
// Every document family draws from its own (prefix, year) counter.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freightdesk/freightdesk/internal/platform/db"
)

// Document family prefixes.
const (
	PrefixQuote         = "QT"
	PrefixOrder         = "ORD"
	PrefixPayment       = "PAY"
	PrefixInvoice       = "INV"
	PrefixReceipt       = "RCP"
	PrefixPurchaseOrder = "PO"
)

// Allocator hands out the next unused number for a document family.
type Allocator interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// PG allocates numbers from the document_sequences table. The upsert
// increments the counter atomically inside the store, so two concurrent
// callers on the same prefix can never read the same value.
type PG struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPG builds a store-backed allocator.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool, now: time.Now}
}

const maxRetries = 3

// Next returns "{prefix}-{year}-{seq}" with the suffix zero-padded to at
// least four digits. Serialization conflicts from concurrent transactions
// are retried rather than surfaced.
func (a *PG) Next(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", errors.New("sequence: prefix required")
	}
	year := a.now().Year()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		var seq int64
		err := db.From(ctx, a.pool).QueryRow(ctx, `
			INSERT INTO document_sequences (prefix, year, seq)
			VALUES ($1, $2, 1)
			ON CONFLICT (prefix, year)
			DO UPDATE SET seq = document_sequences.seq + 1
			RETURNING seq
		`, prefix, year).Scan(&seq)
		if err == nil {
			return Format(prefix, year, seq), nil
		}
		if !retryable(err) {
			return "", fmt.Errorf("sequence: allocate %s-%d: %w", prefix, year, err)
		}
		lastErr = err
	}
	return "", fmt.Errorf("sequence: allocate %s-%d: retries exhausted: %w", prefix, year, lastErr)
}

// Format renders a document number. %04d pads short suffixes without
// truncating ones past 9999.
func Format(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}

// retryable reports whether err is a store serialization conflict
// (serialization_failure or deadlock_detected).
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
