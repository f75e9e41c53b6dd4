package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPadding(t *testing.T) {
	assert.Equal(t, "ORD-2026-0001", Format(PrefixOrder, 2026, 1))
	assert.Equal(t, "QT-2026-0042", Format(PrefixQuote, 2026, 42))
	assert.Equal(t, "PAY-2026-9999", Format(PrefixPayment, 2026, 9999))
	// past four digits the suffix keeps growing, never re-padded
	assert.Equal(t, "PAY-2026-10000", Format(PrefixPayment, 2026, 10000))
}

func TestMemoryFamiliesAreIndependent(t *testing.T) {
	alloc := NewMemory(2026)
	ctx := context.Background()

	first, err := alloc.Next(ctx, PrefixOrder)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0001", first)

	_, err = alloc.Next(ctx, PrefixPayment)
	require.NoError(t, err)

	second, err := alloc.Next(ctx, PrefixOrder)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0002", second, "unrelated PAY allocation must not advance ORD")
}

func TestMemoryConcurrentCallersGetDistinctNumbers(t *testing.T) {
	alloc := NewMemory(2026)
	ctx := context.Background()

	const n = 200
	results := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := alloc.Next(ctx, PrefixQuote)
			assert.NoError(t, err)
			results <- num
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, n)
	for num := range results {
		assert.Falsef(t, seen[num], "duplicate number %s", num)
		seen[num] = true
	}
	require.Len(t, seen, n)
	// no gaps within the (prefix, year) pair
	for i := 1; i <= n; i++ {
		assert.Contains(t, seen, fmt.Sprintf("QT-2026-%04d", i))
	}
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, retryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, retryable(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, retryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, retryable(errors.New("plain failure")))
}
