// AngelaMos | 2026
// repository.go

package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/ledger"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByOrderID(ctx context.Context, userID, orderID string) (*Payment, error)
	// Complete moves the caller's pending payment to completed and credits
	// its coins in the same transaction. It returns core.ErrConflict when
	// the payment was already completed.
	Complete(ctx context.Context, userID, orderID, paymentID string) (*Payment, int, error)
}

type repository struct {
	db     *sqlx.DB
	ledger *ledger.Ledger
}

func NewRepository(db *sqlx.DB, l *ledger.Ledger) Repository {
	return &repository{db: db, ledger: l}
}

const paymentColumns = `id, user_id, amount, coins, payment_id, razorpay_order_id,
		       status, created_at`

func (r *repository) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (user_id, amount, coins, razorpay_order_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.UserID,
		p.Amount,
		p.Coins,
		p.OrderID,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

func (r *repository) GetByOrderID(
	ctx context.Context,
	userID, orderID string,
) (*Payment, error) {
	return getByOrderID(ctx, r.db, userID, orderID)
}

func getByOrderID(
	ctx context.Context,
	db core.DBTX,
	userID, orderID string,
) (*Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE razorpay_order_id = $1 AND user_id = $2`

	var p Payment
	err := db.GetContext(ctx, &p, query, orderID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get payment %s: %w", orderID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", orderID, err)
	}

	return &p, nil
}

func (r *repository) Complete(
	ctx context.Context,
	userID, orderID, paymentID string,
) (*Payment, int, error) {
	query := `
		UPDATE payments
		SET status = 'completed', payment_id = $3
		WHERE razorpay_order_id = $1 AND user_id = $2 AND status = 'pending'
		RETURNING ` + paymentColumns

	var (
		p       Payment
		balance int
	)
	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &p, query, orderID, userID, paymentID)
		if errors.Is(err, sql.ErrNoRows) {
			existing, lookupErr := getByOrderID(ctx, tx, userID, orderID)
			if lookupErr != nil {
				return lookupErr
			}
			return fmt.Errorf("payment %s is %s: %w", orderID, existing.Status, core.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("mark payment completed: %w", err)
		}

		balance, err = r.ledger.WithTx(tx).Credit(ctx, userID, p.Coins, ledger.SourcePayment)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("complete payment: %w", err)
	}

	return &p, balance, nil
}
