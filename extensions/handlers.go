package extensions

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/exthub-go/response"
	"github.com/user/exthub-go/validation"
)

// Handlers wraps the extension Service with HTTP handlers.
type Handlers struct {
	service *Service
	ew      *response.ErrorWriter
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service, ew *response.ErrorWriter) *Handlers {
	return &Handlers{service: service, ew: ew}
}

// RegisterRoutes mounts the extension routes. Lookups are public; creation
// and deletion are gated by the publisher's shared secret.
func (h *Handlers) RegisterRoutes(r chi.Router, requireSecret func(next http.Handler) http.Handler) {
	r.With(requireSecret).Post("/", h.HandleCreate())
	r.Get("/", h.HandleList())
	r.Get("/latest", h.HandleLatest())
	r.Get("/build/{buildNumber}", h.HandleGetByBuildNumber())
	r.Get("/{id}", h.HandleGetByID())
	r.With(requireSecret).Delete("/{id}", h.HandleDelete())
}

// HandleCreate godoc
// @Summary Publish a new extension build (publisher only)
// @Tags extensions
// @Accept json
// @Produce json
// @Param body body CreateExtensionRequest true "Build record plus publisher secret"
// @Success 201 {object} response.Envelope{data=Extension}
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /extensions [post]
func (h *Handlers) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateExtensionRequest
		if err := validation.DecodeAndValidate(r, &req); err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		defer r.Body.Close()

		ext, err := h.service.Create(r.Context(), req)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.Created(w, "Extension created successfully", ext)
	}
}

// HandleList godoc
// @Summary List extension builds (public)
// @Tags extensions
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Success 200 {object} response.PaginatedEnvelope{data=[]Extension}
// @Router /extensions [get]
func (h *Handlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := validation.ParsePagination(r)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		list, total, err := h.service.List(r.Context(), p.Page, p.Limit)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.Paginated(w, "Extensions retrieved successfully", list, response.NewPagination(total, p.Page, p.Limit))
	}
}

// HandleLatest godoc
// @Summary Get the most recent extension build (public)
// @Tags extensions
// @Produce json
// @Success 200 {object} response.Envelope{data=Extension}
// @Failure 404 {object} response.Envelope
// @Router /extensions/latest [get]
func (h *Handlers) HandleLatest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ext, err := h.service.Latest(r.Context())
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "Latest extension retrieved successfully", ext)
	}
}

// HandleGetByBuildNumber godoc
// @Summary Get an extension build by build number (public)
// @Tags extensions
// @Produce json
// @Param buildNumber path string true "Build number"
// @Success 200 {object} response.Envelope{data=Extension}
// @Failure 404 {object} response.Envelope
// @Router /extensions/build/{buildNumber} [get]
func (h *Handlers) HandleGetByBuildNumber() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buildNumber, err := validation.RequireParam(r, "buildNumber")
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		ext, err := h.service.GetByBuildNumber(r.Context(), buildNumber)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "Extension retrieved successfully", ext)
	}
}

// HandleGetByID godoc
// @Summary Get an extension build by id (public)
// @Tags extensions
// @Produce json
// @Param id path string true "Extension ID"
// @Success 200 {object} response.Envelope{data=Extension}
// @Failure 404 {object} response.Envelope
// @Router /extensions/{id} [get]
func (h *Handlers) HandleGetByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validation.RequireParam(r, "id")
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		ext, err := h.service.GetByID(r.Context(), id)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "Extension retrieved successfully", ext)
	}
}

// HandleDelete godoc
// @Summary Delete an extension build (publisher only)
// @Tags extensions
// @Produce json
// @Param id path string true "Extension ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /extensions/{id} [delete]
func (h *Handlers) HandleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validation.RequireParam(r, "id")
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		if err := h.service.Delete(r.Context(), id); err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "Extension deleted successfully", nil)
	}
}
