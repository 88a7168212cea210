// Package api exposes the object store over HTTP with chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

// DefaultMaxBodyBytes bounds upload bodies. Payloads travel base64 encoded.
const DefaultMaxBodyBytes = 32 << 20

// Handler serves every HTTP endpoint of the object store
type Handler struct {
	service      simplefiles.Service
	maxBodyBytes int64
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithMaxBodyBytes overrides DefaultMaxBodyBytes
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandler creates a Handler serving service
func NewHandler(service simplefiles.Service, opts ...HandlerOption) *Handler {
	h := &Handler{service: service, maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router for all endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/status", h.GetStatus)
	r.Get("/stats", h.GetStats)
	r.Get("/connect", h.Connect)
	r.With(RequestSizeLimitMiddleware(1<<20)).Post("/users", h.CreateUser)

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.service))
		r.Get("/disconnect", h.Disconnect)
		r.Get("/users/me", h.GetMe)
	})

	r.Route("/files", func(r chi.Router) {
		r.With(OptionalSession(h.service)).Get("/{id}/data", h.GetFileData)

		r.Group(func(r chi.Router) {
			r.Use(RequireSession(h.service))
			r.With(RequestSizeLimitMiddleware(h.maxBodyBytes)).Post("/", h.CreateFile)
			r.Get("/", h.ListFiles)
			r.Get("/{id}", h.GetFile)
			r.Put("/{id}/publish", h.PublishFile)
			r.Put("/{id}/unpublish", h.UnpublishFile)
		})
	})

	return r
}

// GetStatus reports whether the cache and the database are reachable
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status(r.Context()))
}

// GetStats reports the number of users and files
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}
