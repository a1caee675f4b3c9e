package file_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/frahmantamala/rbac-api/internal"
	fileDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/file"
	userDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/user"
	"github.com/frahmantamala/rbac-api/internal/file"
	filePostgres "github.com/frahmantamala/rbac-api/internal/file/postgres"
	"github.com/frahmantamala/rbac-api/internal/testutil"
)

type memoryStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	putErr    error
	deleteErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStorage) Provider() string { return "memory" }

func (m *memoryStorage) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) DownloadURL(_ context.Context, key string) (string, error) {
	return "https://files.example.com/" + key + "?sig=x", nil
}

func (m *memoryStorage) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

func seedUser(db *gorm.DB, email string) string {
	u := userDatamodel.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     true,
	}
	Expect(db.Create(&u).Error).To(Succeed())
	return u.ID
}

func detail(err error) string {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue())
	return appErr.GetDetailedMessage()
}

func textUpload(name, content string) file.Upload {
	return file.Upload{
		Filename:    name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Body:        strings.NewReader(content),
	}
}

var _ = Describe("File Service", func() {
	var (
		db      *gorm.DB
		storage *memoryStorage
		service *file.Service
		ctx     context.Context
		alice   string
		bob     string
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())

		storage = newMemoryStorage()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = file.NewService(filePostgres.NewFileRepository(db), storage, 1024, logger)
		ctx = context.Background()

		alice = seedUser(db, "alice@example.com")
		bob = seedUser(db, "bob@example.com")
	})

	Describe("Upload", func() {
		It("stores the bytes under a generated key and records the metadata", func() {
			res, err := service.Upload(ctx, alice, textUpload("Report.TXT", "hello"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Filename).To(Equal("Report.TXT"))
			Expect(res.Size).To(BeEquivalentTo(5))
			Expect(res.DownloadURL).To(HavePrefix("https://files.example.com/" + res.FileID + ".txt"))

			Expect(storage.objects).To(HaveKeyWithValue(res.FileID+".txt", []byte("hello")))

			var row fileDatamodel.File
			Expect(db.First(&row, "id = ?", res.FileID).Error).To(Succeed())
			Expect(row.UserID).To(Equal(alice))
			Expect(row.StorageProvider).To(Equal("memory"))
			Expect(row.OriginalFilename).To(Equal("Report.TXT"))
		})

		It("strips directories from client supplied names", func() {
			res, err := service.Upload(ctx, alice, textUpload(`..\..\etc/passwd`, "x"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Filename).To(Equal("passwd"))
		})

		It("defaults the content type", func() {
			in := textUpload("blob", "abc")
			in.ContentType = ""
			res, err := service.Upload(ctx, alice, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(storage.types).To(HaveKeyWithValue(res.FileID, "application/octet-stream"))
		})

		It("rejects empty, nameless and oversized files", func() {
			_, err := service.Upload(ctx, alice, textUpload("empty.txt", ""))
			Expect(detail(err)).To(Equal("file is empty"))

			_, err = service.Upload(ctx, alice, textUpload("  ", "data"))
			Expect(detail(err)).To(Equal("filename is required"))

			big := bytes.Repeat([]byte("a"), 2048)
			_, err = service.Upload(ctx, alice, file.Upload{Filename: "big.bin", Size: int64(len(big)), Body: bytes.NewReader(big)})
			Expect(err).To(MatchError(file.ErrFileTooLarge))
			Expect(storage.keys()).To(BeEmpty())
		})

		It("reports storage failures without saving metadata", func() {
			storage.putErr = errors.New("bucket gone")

			_, err := service.Upload(ctx, alice, textUpload("a.txt", "data"))
			Expect(err).To(MatchError(file.ErrStorageUnavailable))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(502))

			var count int64
			Expect(db.Model(&fileDatamodel.File{}).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})
	})

	Describe("owner scoped access", func() {
		var fileID string

		BeforeEach(func() {
			res, err := service.Upload(ctx, alice, textUpload("notes.md", "# notes"))
			Expect(err).NotTo(HaveOccurred())
			fileID = res.FileID
		})

		It("returns metadata and a download url to the owner", func() {
			f, err := service.Get(ctx, alice, fileID)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.ContentType).To(Equal("text/plain"))

			url, err := service.DownloadURL(ctx, alice, fileID)
			Expect(err).NotTo(HaveOccurred())
			Expect(url).To(ContainSubstring(fileID + ".md"))
		})

		It("hides the file from everyone else", func() {
			_, err := service.Get(ctx, bob, fileID)
			Expect(err).To(MatchError(file.ErrNotFound))

			_, err = service.DownloadURL(ctx, bob, fileID)
			Expect(err).To(MatchError(file.ErrNotFound))

			Expect(service.Delete(ctx, bob, fileID)).To(MatchError(file.ErrNotFound))
			Expect(storage.keys()).To(HaveLen(1))
		})

		It("lists only the caller's files", func() {
			_, err := service.Upload(ctx, alice, textUpload("second.md", "2"))
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Upload(ctx, bob, textUpload("bob.md", "b"))
			Expect(err).NotTo(HaveOccurred())

			files, err := service.List(ctx, alice, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(HaveLen(2))
			for _, f := range files {
				Expect(f.UserID).To(Equal(alice))
			}

			limited, err := service.List(ctx, alice, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(limited).To(HaveLen(1))
		})

		It("deletes the object and the record", func() {
			Expect(service.Delete(ctx, alice, fileID)).To(Succeed())
			Expect(storage.keys()).To(BeEmpty())

			_, err := service.Get(ctx, alice, fileID)
			Expect(err).To(MatchError(file.ErrNotFound))
		})

		It("still drops the record when the store refuses the delete", func() {
			storage.deleteErr = errors.New("access denied")

			Expect(service.Delete(ctx, alice, fileID)).To(Succeed())
			_, err := service.Get(ctx, alice, fileID)
			Expect(err).To(MatchError(file.ErrNotFound))
		})
	})
})
