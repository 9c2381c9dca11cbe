// AngelaMos | 2026
// handler.go

package character

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/saathi-labs/companion-api/internal/core"
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

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/characters", h.List)
	r.Get("/characters/{key}", h.GetByKey)
}

// RegisterAdminRoutes mounts catalogue writes on an already-guarded admin
// router.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/characters", h.Create)
	r.Put("/characters/{id}", h.Update)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	characters, err := h.service.List(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToResponseList(characters))
}

func (h *Handler) GetByKey(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetByKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "character")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToResponse(c))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	c, err := h.service.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			core.JSONError(w, core.DuplicateError("character key"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToResponse(c))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		core.BadRequest(w, "invalid character id")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	c, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "character")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToResponse(c))
}
