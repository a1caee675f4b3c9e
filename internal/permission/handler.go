package permission

import (
	"context"
	"net/http"

	"github.com/frahmantamala/rbac-api/internal/core/common/pagination"
	"github.com/frahmantamala/rbac-api/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreatePermissionDTO) (*Permission, error)
	Get(ctx context.Context, id string) (*Permission, error)
	List(ctx context.Context, params pagination.CursorParams) (pagination.Page[*Permission], error)
	Update(ctx context.Context, id string, dto UpdatePermissionDTO) (*Permission, error)
	Delete(ctx context.Context, id string) error
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

func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermissionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.ParseCursorParams(r.URL.Query(), OrderByColumns)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	page, err := h.Service.List(r.Context(), params)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	id, err := h.URLParamID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	id, err := h.URLParamID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdatePermissionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := h.URLParamID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteNoContent(w)
}
