// AngelaMos | 2026
// handler.go

package rating

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/middleware"
)

const invalidRatingMessage = "Valid character ID and rating (1-5) are required"

type CreateRequest struct {
	CharacterID    int64  `json:"characterId"    validate:"required,gt=0"`
	ConversationID *int64 `json:"conversationId" validate:"omitempty,gt=0"`
	Rating         int    `json:"rating"         validate:"required,min=1,max=5"`
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
	r.With(authenticator).Post("/ratings", h.Create)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, invalidRatingMessage)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, invalidRatingMessage)
		return
	}

	_, err := h.service.Rate(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.CharacterID,
		req.ConversationID,
		req.Rating,
	)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, invalidRatingMessage)
			return
		}
		core.JSONError(w, core.NewAppError(
			err,
			"Failed to save rating",
			http.StatusInternalServerError,
			"INTERNAL_ERROR",
		))
		return
	}

	core.OK(w, nil)
}
