package file

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/auth"
	"github.com/frahmantamala/rbac-api/internal/transport"
)

// formField is the multipart field carrying the upload.
const formField = "file"

// multipartOverhead leaves room for boundaries and part headers on top of the file itself.
const multipartOverhead = 1 << 20

type ServiceAPI interface {
	Upload(ctx context.Context, userID string, in Upload) (*UploadResult, error)
	Get(ctx context.Context, userID, id string) (*File, error)
	List(ctx context.Context, userID string, limit int) ([]*File, error)
	DownloadURL(ctx context.Context, userID, id string) (string, error)
	Delete(ctx context.Context, userID, id string) error
	MaxUploadBytes() int64
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

func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrNotAuthenticated)
		return
	}

	if limit := h.Service.MaxUploadBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	src, header, err := r.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.HandleServiceError(w, ErrFileTooLarge)
			return
		}
		h.HandleServiceError(w, internal.NewValidationFieldError(formField, "a multipart file field named \"file\" is required", internal.ErrCodeValidationFailed))
		return
	}
	defer src.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	res, err := h.Service.Upload(r.Context(), user.ID, Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        src,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrNotAuthenticated)
		return
	}

	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxListLimit {
			h.HandleServiceError(w, internal.NewValidationFieldError("limit", "limit must be between 1 and 100", internal.ErrCodeValidationFailed))
			return
		}
		limit = n
	}

	files, err := h.Service.List(r.Context(), user.ID, limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, files)
}

func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
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

	f, err := h.Service.Get(r.Context(), user.ID, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) GetDownloadURL(w http.ResponseWriter, r *http.Request) {
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

	url, err := h.Service.DownloadURL(r.Context(), user.ID, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, DownloadURLResponse{DownloadURL: url})
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Service.Delete(r.Context(), user.ID, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteNoContent(w)
}
