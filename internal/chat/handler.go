// AngelaMos | 2026
// handler.go

package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/saathi-labs/companion-api/internal/character"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/language"
	"github.com/saathi-labs/companion-api/internal/middleware"
)

const (
	insufficientCoinsMessage = "Insufficient coins. Please purchase more coins to continue chatting."
	completionFailedMessage  = "I'm having trouble responding right now. Please try again!"
)

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

// RegisterRoutes mounts the chat endpoints. limiter throttles paid
// messages per user and may be nil.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	limiter func(http.Handler) http.Handler,
) {
	r.Route("/chat", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/start", h.Start)
		r.Post("/end", h.End)

		if limiter != nil {
			r.With(limiter).Post("/message", h.Message)
		} else {
			r.Post("/message", h.Message)
		}
	})
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	res, err := h.service.Start(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.CharacterKey,
		language.Parse(req.Language),
	)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.OK(w, StartResponse{
		Conversation: ToConversationResponse(res.Conversation),
		Character:    character.ToResponse(res.Character),
		Messages:     []MessageResponse{},
	})
}

func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, "Content and conversation ID are required")
		return
	}

	res, err := h.service.Message(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.ConversationID,
		req.Content,
		language.Parse(req.Language),
	)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.OK(w, ExchangeResponse{
		UserMessage:  ToMessageResponse(res.UserMessage),
		AIMessage:    ToMessageResponse(res.AIMessage),
		UserCoins:    res.UserCoins,
		MessageCount: res.MessageCount,
	})
}

func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	var req EndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	err := h.service.End(r.Context(), middleware.GetUserID(r.Context()), req.ConversationID)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.OK(w, map[string]any{
		"conversationId": req.ConversationID,
		"ended":          true,
	})
}

// WriteError maps conversation errors to responses. Voice endpoints reuse it
// with their own coin hint by handling ErrInsufficientCoins first.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrConversationNotFound):
		core.NotFound(w, "conversation")
	case errors.Is(err, ErrCharacterNotFound):
		core.NotFound(w, "character")
	case errors.Is(err, core.ErrInsufficientCoins):
		core.JSONError(w, core.InsufficientCoinsError(insufficientCoinsMessage, "needsCoins"))
	case errors.Is(err, core.ErrUpstream):
		core.JSONError(w, core.UpstreamError(err, completionFailedMessage, "COMPLETION_FAILED"))
	default:
		core.InternalServerError(w, err)
	}
}
