// AngelaMos | 2026
// payment_integration_test.go

//go:build integration

package payment_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/ledger"
	"github.com/saathi-labs/companion-api/internal/payment"
	"github.com/saathi-labs/companion-api/internal/testutil"
	"github.com/saathi-labs/companion-api/internal/user"
)

func TestCompleteCreditsOnce(t *testing.T) {
	ctx := context.Background()
	db := testutil.PostgresDB(t)

	u := &user.User{
		ID:            uuid.New().String(),
		Username:      "buyer",
		PasswordHash:  "hash",
		Coins:         0,
		TermsAccepted: true,
	}
	require.NoError(t, user.NewRepository(db).Create(ctx, u))

	repo := payment.NewRepository(db, ledger.New(db))
	p := &payment.Payment{
		UserID:  u.ID,
		Amount:  decimal.NewFromInt(50),
		Coins:   50,
		OrderID: "order_it_1",
		Status:  payment.StatusPending,
	}
	require.NoError(t, repo.Create(ctx, p))

	stored, err := repo.GetByOrderID(ctx, u.ID, "order_it_1")
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(50)))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		credited  int
		conflicts int
	)
	for range 5 {
		wg.Go(func() {
			_, _, err := repo.Complete(ctx, u.ID, "order_it_1", "pay_it_1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				credited++
			case assert.ErrorIs(t, err, core.ErrConflict):
				conflicts++
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, credited)
	assert.Equal(t, 4, conflicts)

	balance, err := ledger.New(db).Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, balance)

	done, err := repo.GetByOrderID(ctx, u.ID, "order_it_1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, done.Status)
	require.NotNil(t, done.PaymentID)
	assert.Equal(t, "pay_it_1", *done.PaymentID)

	_, _, err = repo.Complete(ctx, uuid.New().String(), "order_it_1", "pay_it_1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
