package notification

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/auth"
	"github.com/frahmantamala/rbac-api/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id string) (*Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	RegisterPushToken(ctx context.Context, userID string, dto RegisterPushTokenDTO) (*PushToken, error)
	UnregisterPushToken(ctx context.Context, userID, token string) error
	Send(ctx context.Context, dto SendDTO) (*SendResult, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrNotAuthenticated)
		return
	}

	q := r.URL.Query()
	limit := DefaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxListLimit {
			h.HandleServiceError(w, internal.NewValidationFieldError("limit", "limit must be between 1 and 100", internal.ErrCodeValidationFailed))
			return
		}
		limit = n
	}
	unreadOnly := false
	if v := q.Get("unread_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.HandleServiceError(w, internal.NewValidationFieldError("unread_only", "unread_only must be a boolean", internal.ErrCodeValidationFailed))
			return
		}
		unreadOnly = b
	}

	items, err := h.Service.List(r.Context(), user.ID, unreadOnly, limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrNotAuthenticated)
		return
	}
	id, err := h.URLParamID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	n, err := h.Service.MarkRead(r.Context(), user.ID, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrNotAuthenticated)
		return
	}

	count, err := h.Service.UnreadCount(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}

func (h *Handler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrNotAuthenticated)
		return
	}

	var dto RegisterPushTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	t, err := h.Service.RegisterPushToken(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) UnregisterPushToken(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrNotAuthenticated)
		return
	}

	if err := h.Service.UnregisterPushToken(r.Context(), user.ID, r.URL.Query().Get("token")); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteNoContent(w)
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var dto SendDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	res, err := h.Service.Send(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, res)
}
