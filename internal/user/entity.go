// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

const DefaultCoins = 5

type User struct {
	ID              string     `db:"id"`
	Username        string     `db:"username"`
	PasswordHash    string     `db:"password_hash"`
	Coins           int        `db:"coins"`
	TermsAccepted   bool       `db:"terms_accepted"`
	TermsAcceptedAt *time.Time `db:"terms_accepted_at"`
	LastLoginAt     *time.Time `db:"last_login_at"`
	CreatedAt       time.Time  `db:"created_at"`
	LastActive      *time.Time `db:"last_active"`
}

// Detail is the admin view of a user with usage and payment aggregates.
type Detail struct {
	User
	TotalMessages int `db:"total_messages"`
	PaymentCount  int `db:"payment_count"`
}

func (d *Detail) HasPaid() bool {
	return d.PaymentCount > 0
}
