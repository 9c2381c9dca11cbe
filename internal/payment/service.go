// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saathi-labs/companion-api/internal/config"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/ledger"
	"github.com/saathi-labs/companion-api/internal/metrics"
	"github.com/saathi-labs/companion-api/internal/razorpay"
)

var (
	ErrInvalidPlan         = fmt.Errorf("invalid payment plan: %w", core.ErrInvalidInput)
	ErrSignatureInvalid    = errors.New("payment signature mismatch")
	ErrAlreadyProcessed    = fmt.Errorf("payment already processed: %w", core.ErrConflict)
	ErrOrderFailed         = errors.New("order creation failed")
	ErrLinkPaymentDisabled = fmt.Errorf("link completion disabled: %w", core.ErrForbidden)
)

// Gateway is the slice of the payment provider the service needs.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

type Crediter interface {
	Credit(ctx context.Context, userID string, amount int, source string) (int, error)
}

type Service struct {
	repo    Repository
	gateway Gateway
	credits Crediter
	cfg     config.PaymentConfig
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(
	repo Repository,
	gateway Gateway,
	credits Crediter,
	cfg config.PaymentConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		gateway: gateway,
		credits: credits,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

type CreateResult struct {
	OrderID  string
	Amount   int64
	Currency string
	KeyID    string
	Coins    int
}

// Create opens a gateway order for an allow-listed plan and records it as
// pending.
func (s *Service) Create(
	ctx context.Context,
	userID, planID string,
	coins int,
	amount decimal.Decimal,
) (_ *CreateResult, err error) {
	defer func() {
		metrics.PaymentsTotal.WithLabelValues("create", outcome(err)).Inc()
	}()

	plan, ok := MatchPlan(planID, coins, amount)
	if !ok {
		return nil, ErrInvalidPlan
	}

	receipt := "user_" + userID + "_coins_" + strconv.Itoa(plan.Coins) +
		"_" + strconv.FormatInt(s.now().UnixMilli(), 10)

	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		AmountPaise: plan.AmountPaise(),
		Receipt:     receipt,
		Notes: map[string]string{
			"purpose": "Companion coins purchase",
			"plan":    plan.ID,
			"coins":   strconv.Itoa(plan.Coins),
		},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "razorpay order failed",
			"user_id", userID,
			"plan", plan.ID,
			"error", err,
		)
		return nil, errors.Join(core.ErrUpstream, ErrOrderFailed, err)
	}

	p := &Payment{
		UserID:  userID,
		Amount:  plan.Price,
		Coins:   plan.Coins,
		OrderID: order.ID,
		Status:  StatusPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	s.logger.InfoContext(ctx, "payment order created",
		"user_id", userID,
		"order_id", order.ID,
		"plan", plan.ID,
	)

	return &CreateResult{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    s.gateway.KeyID(),
		Coins:    plan.Coins,
	}, nil
}

type CreditResult struct {
	CoinsAdded int
	NewBalance int
	OrderID    string
	PaymentID  string
}

// Verify checks the checkout signature and credits the order's coins once.
func (s *Service) Verify(
	ctx context.Context,
	userID, orderID, paymentID, signature string,
) (_ *CreditResult, err error) {
	defer func() {
		metrics.PaymentsTotal.WithLabelValues("verify", outcome(err)).Inc()
	}()

	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		s.logger.WarnContext(ctx, "payment signature rejected",
			"user_id", userID,
			"order_id", orderID,
		)
		return nil, ErrSignatureInvalid
	}

	existing, err := s.repo.GetByOrderID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if existing.Status == StatusCompleted {
		return nil, ErrAlreadyProcessed
	}

	p, balance, err := s.repo.Complete(ctx, userID, orderID, paymentID)
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment verified",
		"user_id", userID,
		"order_id", orderID,
		"coins", p.Coins,
		"balance", balance,
	)

	return &CreditResult{
		CoinsAdded: p.Coins,
		NewBalance: balance,
		OrderID:    orderID,
		PaymentID:  paymentID,
	}, nil
}

// CompleteLink credits a fixed pack for purchases made through an external
// payment link. Nothing proves such a payment happened, so it stays off
// unless configured.
func (s *Service) CompleteLink(ctx context.Context, userID string) (_ *CreditResult, err error) {
	defer func() {
		metrics.PaymentsTotal.WithLabelValues("link", outcome(err)).Inc()
	}()

	if !s.cfg.AllowLinkCompletion {
		return nil, ErrLinkPaymentDisabled
	}

	coins := s.cfg.LinkCompletionCoins
	if coins <= 0 {
		coins = 10
	}

	balance, err := s.credits.Credit(ctx, userID, coins, ledger.SourceLink)
	if err != nil {
		return nil, fmt.Errorf("complete link payment: %w", err)
	}

	s.logger.InfoContext(ctx, "link payment credited",
		"user_id", userID,
		"coins", coins,
	)

	return &CreditResult{CoinsAdded: coins, NewBalance: balance}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, core.ErrConflict):
		return "replay"
	case errors.Is(err, core.ErrUpstream):
		return "upstream_error"
	default:
		return "error"
	}
}
