// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/middleware"
)

type CreateRequest struct {
	PlanID string          `json:"planId" validate:"required"`
	Coins  int             `json:"coins"  validate:"required,gt=0"`
	Amount decimal.Decimal `json:"amount"`
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id"   validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature"  validate:"required"`
}

type CreateResponse struct {
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"keyId"`
	PaymentID string `json:"paymentId"`
	Coins     int    `json:"coins"`
}

type CreditResponse struct {
	Message    string `json:"message"`
	CoinsAdded int    `json:"coinsAdded"`
	NewBalance int    `json:"newBalance"`
	OrderID    string `json:"orderId,omitempty"`
	PaymentID  string `json:"paymentId,omitempty"`
}

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/payments", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/create", h.Create)
		r.Post("/verify", h.Verify)
		r.Post("/complete", h.Complete)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "Invalid payment plan")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, "Invalid payment plan")
		return
	}

	res, err := h.service.Create(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.PlanID,
		req.Coins,
		req.Amount,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, CreateResponse{
		OrderID:   res.OrderID,
		Amount:    res.Amount,
		Currency:  res.Currency,
		KeyID:     res.KeyID,
		PaymentID: res.OrderID,
		Coins:     res.Coins,
	})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "Missing payment verification data")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, "Missing payment verification data")
		return
	}

	res, err := h.service.Verify(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.OrderID,
		req.PaymentID,
		req.Signature,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, CreditResponse{
		Message: fmt.Sprintf(
			"Payment verified successfully! %d coins added to your account.",
			res.CoinsAdded,
		),
		CoinsAdded: res.CoinsAdded,
		NewBalance: res.NewBalance,
		OrderID:    res.OrderID,
		PaymentID:  res.PaymentID,
	})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.CompleteLink(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, CreditResponse{
		Message: fmt.Sprintf(
			"Payment completed! %d coins added to your account.",
			res.CoinsAdded,
		),
		CoinsAdded: res.CoinsAdded,
		NewBalance: res.NewBalance,
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidPlan):
		core.BadRequest(w, "Invalid payment plan")
	case errors.Is(err, ErrSignatureInvalid):
		core.JSONError(w, core.NewAppError(
			err,
			"Payment verification failed",
			http.StatusBadRequest,
			"PAYMENT_VERIFICATION_FAILED",
		))
	case errors.Is(err, ErrAlreadyProcessed):
		core.JSONError(w, core.ConflictError("Payment already processed"))
	case errors.Is(err, ErrOrderFailed):
		core.JSONError(w, core.UpstreamError(err, "Failed to create payment", "PAYMENT_CREATE_FAILED"))
	case errors.Is(err, ErrLinkPaymentDisabled):
		core.JSONError(w, core.ForbiddenError("Direct payment completion is not available"))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "payment record")
	default:
		core.InternalServerError(w, err)
	}
}
