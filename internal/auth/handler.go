// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/middleware"
)

const AuthTokenHeader = "X-Auth-Token"

type Handler struct {
	service   *Service
	cookies   *CookieWriter
	validator *validator.Validate
}

func NewHandler(service *Service, cookies *CookieWriter) *Handler {
	return &Handler{
		service:   service,
		cookies:   cookies,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the account endpoints. session must attach the
// server session without rejecting anonymous callers.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	session func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(session)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	res, err := h.service.Register(r.Context(), req, middleware.GetSessionID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, ErrTermsRequired):
			core.BadRequest(w, "Terms and conditions must be accepted")
		case errors.Is(err, ErrUsernameExists):
			core.JSONError(w, core.DuplicateError("username"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	h.writeAuth(w, http.StatusCreated, res)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	res, err := h.service.Login(r.Context(), req, middleware.GetSessionID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			core.JSONError(
				w,
				core.UnauthorizedError("Invalid username or password"),
			)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	h.writeAuth(w, http.StatusOK, res)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.GetSessionID(r.Context())); err != nil {
		core.InternalServerError(w, err)
		return
	}

	h.cookies.Clear(w)
	core.OK(w, map[string]bool{"loggedOut": true})
}

func (h *Handler) writeAuth(w http.ResponseWriter, status int, res *AuthResult) {
	h.cookies.Set(w, res.Cookie)
	w.Header().Set(AuthTokenHeader, res.AuthToken)
	core.JSON(w, status, core.Response{Success: true, Data: res.AuthResponse})
}
