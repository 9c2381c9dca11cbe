// AngelaMos | 2026
// ledger.go

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/metrics"
)

const (
	SourcePayment = "payment"
	SourceLink    = "payment_link"
	SourceAdmin   = "admin"
)

// Ledger reads and moves a user's coin balance. Every mutation is a single
// statement so concurrent requests cannot overdraw an account.
type Ledger struct {
	db core.DBTX
}

func New(db core.DBTX) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a ledger bound to tx so a credit commits together with the
// write that caused it.
func (l *Ledger) WithTx(tx core.DBTX) *Ledger {
	return &Ledger{db: tx}
}

func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	var coins int
	err := l.db.GetContext(ctx, &coins, `SELECT coins FROM users WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read balance: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return coins, nil
}

// Debit takes one coin and returns the new balance. It fails with
// core.ErrInsufficientCoins when the balance is already zero and with
// core.ErrNotFound when the user does not exist.
func (l *Ledger) Debit(ctx context.Context, userID string) (int, error) {
	query := `
		UPDATE users
		SET coins = coins - 1, last_active = NOW()
		WHERE id = $1 AND coins > 0
		RETURNING coins`

	var coins int
	err := l.db.GetContext(ctx, &coins, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		if _, balErr := l.Balance(ctx, userID); balErr != nil {
			return 0, fmt.Errorf("debit coin: %w", balErr)
		}
		return 0, fmt.Errorf("debit coin: %w", core.ErrInsufficientCoins)
	}
	if err != nil {
		return 0, fmt.Errorf("debit coin: %w", err)
	}

	metrics.CoinsDebited.Inc()
	return coins, nil
}

func (l *Ledger) Credit(
	ctx context.Context,
	userID string,
	amount int,
	source string,
) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit %d coins: %w", amount, core.ErrInvalidInput)
	}

	query := `
		UPDATE users
		SET coins = coins + $2
		WHERE id = $1
		RETURNING coins`

	var coins int
	err := l.db.GetContext(ctx, &coins, query, userID, amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("credit coins: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("credit coins: %w", err)
	}

	metrics.CoinsCredited.WithLabelValues(source).Add(float64(amount))
	return coins, nil
}
