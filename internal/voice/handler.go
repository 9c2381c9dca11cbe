// AngelaMos | 2026
// handler.go

package voice

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/saathi-labs/companion-api/internal/chat"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/middleware"
)

type TranscribeRequest struct {
	AudioData string `json:"audioData" validate:"required"`
}

type MessageRequest struct {
	ConversationID int64  `json:"conversationId" validate:"required,gt=0"`
	AudioData      string `json:"audioData"      validate:"required"`
}

type TranscribeResponse struct {
	Transcription string `json:"transcription"`
}

type MessageResponse struct {
	UserMessage   chat.MessageResponse `json:"userMessage"`
	AIMessage     chat.MessageResponse `json:"aiMessage"`
	VoiceResponse string               `json:"voiceResponse"`
	UserAudioData string               `json:"userAudioData"`
	Language      string               `json:"language"`
	UserCoins     int                  `json:"userCoins"`
	MessageCount  int                  `json:"messageCount"`
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
	limiter func(http.Handler) http.Handler,
) {
	r.Route("/voice", func(r chi.Router) {
		r.Use(authenticator)
		if limiter != nil {
			r.Use(limiter)
		}

		r.Post("/transcribe", h.Transcribe)
		r.Post("/message", h.Message)
	})
}

func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req TranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, "Audio data is required")
		return
	}

	text, err := h.service.Transcribe(r.Context(), req.AudioData)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, TranscribeResponse{Transcription: text})
}

func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, "Audio data and conversation ID are required")
		return
	}

	res, err := h.service.Message(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.ConversationID,
		req.AudioData,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, MessageResponse{
		UserMessage:   chat.ToMessageResponse(res.UserMessage),
		AIMessage:     chat.ToMessageResponse(res.AIMessage),
		VoiceResponse: base64.StdEncoding.EncodeToString(res.VoiceResponse),
		UserAudioData: res.UserAudio,
		Language:      res.Language.String(),
		UserCoins:     res.UserCoins,
		MessageCount:  res.MessageCount,
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInsufficientCoins):
		core.JSONError(w, core.InsufficientCoinsError("Insufficient coins", "needsPayment"))
	case errors.Is(err, ErrAudioMissing):
		core.BadRequest(w, "Audio data is required")
	case errors.Is(err, ErrAudioMalformed):
		core.BadRequest(w, "Audio data must be base64 encoded")
	case errors.Is(err, ErrAudioTooShort):
		core.BadRequest(w, "Recording is too short. Please hold the button a little longer.")
	case errors.Is(err, ErrNoSpeech):
		core.BadRequest(w, "Could not understand the audio. Please try speaking more clearly.")
	case errors.Is(err, ErrTranscribeFailed):
		core.JSONError(w, core.UpstreamError(err, "Failed to transcribe voice message", "TRANSCRIPTION_FAILED"))
	case errors.Is(err, ErrSynthesisFailed):
		core.JSONError(w, core.UpstreamError(err, "Failed to generate voice reply", "VOICE_SYNTHESIS_FAILED"))
	default:
		chat.WriteError(w, err)
	}
}
