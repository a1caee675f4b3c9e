package file

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/frahmantamala/rbac-api/internal"
	fileDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/file"
)

type RepositoryAPI interface {
	Create(ctx context.Context, f *fileDatamodel.File) error
	// GetForUser returns nil, nil when the file does not exist or belongs to someone else.
	GetForUser(ctx context.Context, id, userID string) (*fileDatamodel.File, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]*fileDatamodel.File, error)
	Delete(ctx context.Context, id string) error
}

// Upload is one file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Service struct {
	repo           RepositoryAPI
	storage        Storage
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewService builds the file service. A maxUploadBytes of zero means no limit.
func NewService(repo RepositoryAPI, storage Storage, maxUploadBytes int64, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		storage:        storage,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

var (
	ErrNotFound     = internal.NewNotFoundError("File not found", internal.ErrCodeFileNotFound)
	ErrFileTooLarge = &internal.AppError{
		Type:       internal.ErrorTypeBadRequest,
		Code:       internal.ErrCodeFileTooLarge,
		Message:    "File exceeds the upload size limit",
		StatusCode: http.StatusRequestEntityTooLarge,
	}
	ErrStorageUnavailable = &internal.AppError{
		Type:       internal.ErrorTypeInternal,
		Code:       internal.ErrCodeStorageFailure,
		Message:    "File storage unavailable",
		StatusCode: http.StatusBadGateway,
	}
)

func (s *Service) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Upload stores the bytes under a fresh key and records the metadata. The response carries a
// download URL when the store can produce one.
func (s *Service) Upload(ctx context.Context, userID string, in Upload) (*UploadResult, error) {
	name := cleanFilename(in.Filename)
	if name == "" {
		return nil, internal.NewValidationFieldError("file", "filename is required", internal.ErrCodeValidationFailed)
	}
	if in.Size <= 0 {
		return nil, internal.NewValidationFieldError("file", "file is empty", internal.ErrCodeValidationFailed)
	}
	if s.maxUploadBytes > 0 && in.Size > s.maxUploadBytes {
		return nil, ErrFileTooLarge
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	id := uuid.NewString()
	key := id + strings.ToLower(filepath.Ext(name))

	if err := s.storage.Put(ctx, key, in.Body, in.Size, contentType); err != nil {
		return nil, ErrStorageUnavailable.WithCause(err)
	}

	record := &fileDatamodel.File{
		ID:               id,
		UserID:           userID,
		Filename:         key,
		OriginalFilename: name,
		ContentType:      contentType,
		Size:             in.Size,
		StorageProvider:  s.storage.Provider(),
		StorageKey:       key,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("orphaned object after failed insert", "key", key, "error", delErr)
		}
		return nil, internal.NewInternalError("failed to save file", err)
	}

	s.logger.Info("file uploaded", "file_id", id, "user_id", userID, "size", in.Size)

	url, err := s.storage.DownloadURL(ctx, key)
	if err != nil {
		s.logger.Warn("failed to build download url", "file_id", id, "error", err)
	}

	return &UploadResult{
		FileID:      id,
		Filename:    name,
		Size:        in.Size,
		DownloadURL: url,
	}, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*File, error) {
	f, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(f), nil
}

func (s *Service) List(ctx context.Context, userID string, limit int) ([]*File, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.repo.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, internal.NewInternalError("failed to list files", err)
	}

	out := make([]*File, 0, len(rows))
	for _, f := range rows {
		out = append(out, FromDataModel(f))
	}
	return out, nil
}

func (s *Service) DownloadURL(ctx context.Context, userID, id string) (string, error) {
	f, err := s.find(ctx, userID, id)
	if err != nil {
		return "", err
	}

	url, err := s.storage.DownloadURL(ctx, f.StorageKey)
	if err != nil {
		return "", ErrStorageUnavailable.WithCause(err)
	}
	return url, nil
}

// Delete removes the record even when the object store refuses to drop the bytes.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	f, err := s.find(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, f.StorageKey); err != nil {
		s.logger.Warn("failed to delete object from storage", "file_id", id, "key", f.StorageKey, "error", err)
	}

	if err := s.repo.Delete(ctx, f.ID); err != nil {
		return internal.NewInternalError("failed to delete file", err)
	}

	s.logger.Info("file deleted", "file_id", id, "user_id", userID)
	return nil
}

func (s *Service) find(ctx context.Context, userID, id string) (*fileDatamodel.File, error) {
	f, err := s.repo.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load file", err)
	}
	if f == nil {
		return nil, ErrNotFound
	}
	return f, nil
}

// cleanFilename keeps the last path element of a client supplied name.
func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	if len(base) > 255 {
		base = base[len(base)-255:]
	}
	return base
}
