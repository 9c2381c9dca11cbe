// AngelaMos | 2026
// analytics.go

package admin

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/user"
)

type Analytics struct {
	TotalUsers              int     `json:"totalUsers"`
	TotalPaidUsers          int     `json:"totalPaidUsers"`
	TotalFreeUsers          int     `json:"totalFreeUsers"`
	RegisteredButNoMessages int     `json:"registeredButNoMessages"`
	PartialFreeMessages     int     `json:"partialFreeMessages"`
	CompletedFreeNoPayment  int     `json:"completedFreeNoPayment"`
	AverageMessages         float64 `json:"averageMessagesPerUser"`
	AverageRating           float64 `json:"averageRating"`
	ConversionRate          float64 `json:"conversionRate"`
	DailySignups            int     `json:"dailySignups"`
	WeeklySignups           int     `json:"weeklySignups"`
	MonthlySignups          int     `json:"monthlySignups"`
}

type AnalyticsRepository interface {
	Analytics(ctx context.Context) (*Analytics, error)
}

type analyticsRepository struct {
	db core.DBTX
}

func NewAnalyticsRepository(db core.DBTX) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

const userMessagesCTE = `
	WITH sent AS (
		SELECT c.user_id, COUNT(*) AS n
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.sender = 'user'
		GROUP BY c.user_id
	), paid AS (
		SELECT DISTINCT user_id FROM payments WHERE status = 'completed'
	)`

// Analytics runs the dashboard aggregates concurrently. Each query reads
// its own snapshot, so totals may disagree by a row under write load.
func (r *analyticsRepository) Analytics(ctx context.Context) (*Analytics, error) {
	var a Analytics

	queries := []struct {
		dest  any
		query string
		args  []any
	}{
		{&a.TotalUsers, `SELECT COUNT(*) FROM users`, nil},
		{&a.TotalPaidUsers,
			`SELECT COUNT(DISTINCT user_id) FROM payments WHERE status = 'completed'`, nil},
		{&a.RegisteredButNoMessages, userMessagesCTE + `
			SELECT COUNT(*) FROM users u
			WHERE NOT EXISTS (SELECT 1 FROM sent WHERE sent.user_id = u.id)`, nil},
		{&a.PartialFreeMessages, userMessagesCTE + `
			SELECT COUNT(*) FROM sent
			WHERE n < $1 AND user_id NOT IN (SELECT user_id FROM paid)`,
			[]any{user.DefaultCoins}},
		{&a.CompletedFreeNoPayment, userMessagesCTE + `
			SELECT COUNT(*) FROM sent
			WHERE n >= $1 AND user_id NOT IN (SELECT user_id FROM paid)`,
			[]any{user.DefaultCoins}},
		{&a.AverageMessages,
			`SELECT COALESCE(AVG(message_count), 0)::float8 FROM conversations`, nil},
		{&a.AverageRating,
			`SELECT COALESCE(AVG(rating), 0)::float8 FROM ratings`, nil},
		{&a.DailySignups,
			`SELECT COUNT(*) FROM users WHERE created_at >= date_trunc('day', NOW())`, nil},
		{&a.WeeklySignups,
			`SELECT COUNT(*) FROM users
			 WHERE created_at >= date_trunc('day', NOW()) - INTERVAL '7 days'`, nil},
		{&a.MonthlySignups,
			`SELECT COUNT(*) FROM users
			 WHERE created_at >= date_trunc('day', NOW()) - INTERVAL '30 days'`, nil},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, q := range queries {
		g.Go(func() error {
			return r.db.GetContext(gctx, q.dest, q.query, q.args...)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("admin analytics: %w", err)
	}

	a.TotalFreeUsers = a.TotalUsers - a.TotalPaidUsers
	if a.TotalUsers > 0 {
		a.ConversionRate = float64(a.TotalPaidUsers) / float64(a.TotalUsers) * 100
	}

	return &a, nil
}
