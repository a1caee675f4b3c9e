package file_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/file"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        string
}

var _ = Describe("S3Storage", func() {
	var (
		server   *httptest.Server
		mu       sync.Mutex
		requests []recordedRequest
		storage  *file.S3Storage
		ctx      context.Context
	)

	BeforeEach(func() {
		requests = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			requests = append(requests, recordedRequest{
				Method:      r.Method,
				Path:        r.URL.Path,
				ContentType: r.Header.Get("Content-Type"),
				Body:        string(body),
			})
			mu.Unlock()

			switch r.Method {
			case http.MethodPut:
				w.Header().Set("ETag", `"etag"`)
				w.WriteHeader(http.StatusOK)
			case http.MethodDelete:
				w.WriteHeader(http.StatusNoContent)
			default:
				w.WriteHeader(http.StatusOK)
			}
		}))
		DeferCleanup(server.Close)

		awsCfg := aws.Config{
			Region:      "us-east-1",
			Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
		}
		storage = file.NewS3StorageFromConfig(awsCfg, internal.StorageConfig{
			Bucket:       "files",
			Endpoint:     server.URL,
			UsePathStyle: true,
			PresignTTL:   15 * time.Minute,
		})
		ctx = context.Background()
	})

	It("reports the s3 provider", func() {
		Expect(storage.Provider()).To(Equal(internal.StorageProviderS3))
	})

	It("presigns download urls for the bucket and key", func() {
		raw, err := storage.DownloadURL(ctx, "abc.txt")
		Expect(err).NotTo(HaveOccurred())

		u, err := url.Parse(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Path).To(Equal("/files/abc.txt"))
		Expect(u.Query().Get("X-Amz-Expires")).To(Equal("900"))
		Expect(u.Query().Get("X-Amz-Signature")).NotTo(BeEmpty())
		Expect(u.Query().Get("X-Amz-Credential")).To(HavePrefix("AKIDEXAMPLE/"))
	})

	It("puts and deletes objects against the configured endpoint", func() {
		Expect(storage.Put(ctx, "abc.txt", strings.NewReader("hello"), 5, "text/plain")).To(Succeed())
		Expect(storage.Delete(ctx, "abc.txt")).To(Succeed())
		Expect(storage.Ping(ctx)).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(requests).To(HaveLen(3))
		Expect(requests[0]).To(Equal(recordedRequest{Method: http.MethodPut, Path: "/files/abc.txt", ContentType: "text/plain", Body: "hello"}))
		Expect(requests[1].Method).To(Equal(http.MethodDelete))
		Expect(requests[1].Path).To(Equal("/files/abc.txt"))
		Expect(requests[2].Method).To(Equal(http.MethodHead))
		Expect(requests[2].Path).To(HavePrefix("/files"))
	})
})
