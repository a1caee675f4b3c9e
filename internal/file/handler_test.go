package file_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rbac-api/internal/auth"
	"github.com/frahmantamala/rbac-api/internal/file"
	filePostgres "github.com/frahmantamala/rbac-api/internal/file/postgres"
	"github.com/frahmantamala/rbac-api/internal/testutil"
	"github.com/frahmantamala/rbac-api/internal/transport"
)

func multipartBody(field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(mw.Close()).To(Succeed())
	return &buf, mw.FormDataContentType()
}

var _ = Describe("File Handler", func() {
	var (
		router    chi.Router
		storage   *memoryStorage
		principal *auth.User
		owner     *auth.User
	)

	BeforeEach(func() {
		db, err := testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		storage = newMemoryStorage()
		service := file.NewService(filePostgres.NewFileRepository(db), storage, 64, logger)
		h := file.NewHandler(transport.NewBaseHandler(logger), service)

		owner = &auth.User{ID: seedUser(db, "me@example.com"), Email: "me@example.com"}
		principal = owner

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if principal != nil {
					r = r.WithContext(auth.ContextWithUser(r.Context(), principal))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Get("/files", h.ListFiles)
		router.Post("/files/upload", h.UploadFile)
		router.Get("/files/{id}", h.GetFile)
		router.Get("/files/{id}/download", h.GetDownloadURL)
		router.Delete("/files/{id}", h.DeleteFile)
	})

	upload := func(field, filename string, content []byte) *httptest.ResponseRecorder {
		body, contentType := multipartBody(field, filename, "text/plain", content)
		req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	It("uploads, describes, links and deletes a file", func() {
		rec := upload("file", "hello.txt", []byte("hello world"))
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var res file.UploadResult
		Expect(json.Unmarshal(rec.Body.Bytes(), &res)).To(Succeed())
		Expect(res.Filename).To(Equal("hello.txt"))
		Expect(res.Size).To(BeEquivalentTo(11))
		Expect(res.DownloadURL).NotTo(BeEmpty())

		rec = do(http.MethodGet, "/files/"+res.FileID)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var f file.File
		Expect(json.Unmarshal(rec.Body.Bytes(), &f)).To(Succeed())
		Expect(f.ContentType).To(Equal("text/plain"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("storage_key"))

		rec = do(http.MethodGet, "/files/"+res.FileID+"/download")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"download_url":"https://files.example.com/`))

		rec = do(http.MethodGet, "/files")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var list []file.File
		Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
		Expect(list).To(HaveLen(1))

		Expect(do(http.MethodDelete, "/files/"+res.FileID).Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodGet, "/files/"+res.FileID).Code).To(Equal(http.StatusNotFound))
	})

	It("requires the multipart file field", func() {
		Expect(upload("document", "hello.txt", []byte("hi")).Code).To(Equal(http.StatusUnprocessableEntity))

		req := httptest.NewRequest(http.MethodPost, "/files/upload", bytes.NewBufferString(`{"file":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
	})

	It("rejects files over the size limit", func() {
		rec := upload("file", "big.txt", bytes.Repeat([]byte("a"), 100))
		Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))
		Expect(rec.Body.String()).To(ContainSubstring("FILE_TOO_LARGE"))
		Expect(storage.keys()).To(BeEmpty())
	})

	It("answers 404 for files of other users and 422 for malformed ids", func() {
		rec := upload("file", "mine.txt", []byte("mine"))
		Expect(rec.Code).To(Equal(http.StatusCreated))
		var res file.UploadResult
		Expect(json.Unmarshal(rec.Body.Bytes(), &res)).To(Succeed())

		principal = &auth.User{ID: uuid.NewString(), Email: "other@example.com"}
		Expect(do(http.MethodGet, "/files/"+res.FileID).Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodDelete, "/files/"+res.FileID).Code).To(Equal(http.StatusNotFound))

		principal = owner
		Expect(do(http.MethodGet, "/files/not-a-uuid").Code).To(Equal(http.StatusUnprocessableEntity))
	})

	It("validates the list limit", func() {
		Expect(do(http.MethodGet, "/files?limit=0").Code).To(Equal(http.StatusUnprocessableEntity))
	})

	It("requires an authenticated user", func() {
		principal = nil
		Expect(do(http.MethodGet, "/files").Code).To(Equal(http.StatusUnauthorized))
	})
})
