package file

import (
	"time"

	fileDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/file"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

const defaultContentType = "application/octet-stream"

// File is the metadata of an uploaded object. The storage key never leaves the service.
type File struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	Size             int64     `json:"size"`
	StorageProvider  string    `json:"storage_provider"`
	CreatedAt        time.Time `json:"created_at"`
}

func FromDataModel(f *fileDatamodel.File) *File {
	return &File{
		ID:               f.ID,
		UserID:           f.UserID,
		Filename:         f.Filename,
		OriginalFilename: f.OriginalFilename,
		ContentType:      f.ContentType,
		Size:             f.Size,
		StorageProvider:  f.StorageProvider,
		CreatedAt:        f.CreatedAt,
	}
}

type UploadResult struct {
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}
