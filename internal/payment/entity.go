// AngelaMos | 2026
// entity.go

package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Payment struct {
	ID        int64           `db:"id"`
	UserID    string          `db:"user_id"`
	Amount    decimal.Decimal `db:"amount"`
	Coins     int             `db:"coins"`
	PaymentID *string         `db:"payment_id"`
	OrderID   string          `db:"razorpay_order_id"`
	Status    Status          `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
}
