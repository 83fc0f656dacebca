package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bayt-storefront/internal/middleware"
	"bayt-storefront/internal/model"
	"bayt-storefront/internal/view"
	"bayt-storefront/pkg/apierror"
	"bayt-storefront/pkg/response"

	"github.com/go-chi/chi/v5"
)

// DefaultWaitTimeout bounds how long ?wait=true blocks on in-flight fetches.
const DefaultWaitTimeout = 20 * time.Second

// StorefrontHandler exposes each session's catalog view.
type StorefrontHandler struct {
	registry    *view.Registry
	waitTimeout time.Duration
}

// NewStorefrontHandler creates a new storefront handler.
func NewStorefrontHandler(registry *view.Registry, waitTimeout time.Duration) *StorefrontHandler {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &StorefrontHandler{
		registry:    registry,
		waitTimeout: waitTimeout,
	}
}

func (h *StorefrontHandler) sessionView(r *http.Request) *view.View {
	return h.registry.Get(middleware.GetSessionID(r.Context()))
}

// existingView never creates a session; read-only routes use it.
func (h *StorefrontHandler) existingView(r *http.Request) (*view.View, bool) {
	return h.registry.Lookup(middleware.GetSessionID(r.Context()))
}

// GetState handles GET /api/v1/storefront
func (h *StorefrontHandler) GetState(w http.ResponseWriter, r *http.Request) {
	v := h.sessionView(r)

	if err := v.Mount(r.Context()); err != nil {
		response.Error(w, viewError(err))
		return
	}

	h.respondState(w, r, v)
}

// UpdateQuery handles PUT /api/v1/storefront/query
func (h *StorefrontHandler) UpdateQuery(w http.ResponseWriter, r *http.Request) {
	var patch model.QueryPatch

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON: "+err.Error()))
		return
	}

	v := h.sessionView(r)
	if err := v.Update(r.Context(), patch); err != nil {
		response.Error(w, viewError(err))
		return
	}

	h.respondState(w, r, v)
}

// ListNotifications handles GET /api/v1/storefront/notifications
func (h *StorefrontHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	v, ok := h.existingView(r)
	if !ok {
		response.OK(w, []model.Notification{})
		return
	}
	response.OK(w, v.Notifications().Active())
}

// DismissNotification handles DELETE /api/v1/storefront/notifications/{id}
func (h *StorefrontHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	v, ok := h.existingView(r)
	if !ok || !v.Notifications().Dismiss(id) {
		response.Error(w, apierror.NotFound("notification not found"))
		return
	}
	response.NoContent(w)
}

// respondState writes the view state, first waiting for in-flight fetches
// when the caller asked with ?wait=true.
func (h *StorefrontHandler) respondState(w http.ResponseWriter, r *http.Request, v *view.View) {
	if r.URL.Query().Get("wait") == "true" {
		ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
		defer cancel()

		// A timeout is not an error: the state still shows placeholders.
		_ = v.Wait(ctx)
	}

	response.OK(w, v.State())
}

func viewError(err error) error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, view.ErrClosed) {
		return apierror.ServiceUnavailable("session expired, retry")
	}
	return err
}
