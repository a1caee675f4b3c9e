package internal_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rbac-api/internal"
)

var _ = Describe("Config", func() {
	Describe("LoadConfigFromEnv", func() {
		It("builds the database source from the postgres variables", func() {
			GinkgoT().Setenv("DATABASE_URL", "")
			GinkgoT().Setenv("POSTGRES_HOST", "db")
			GinkgoT().Setenv("POSTGRES_DB", "rbac")
			GinkgoT().Setenv("POSTGRES_USER", "svc")
			GinkgoT().Setenv("POSTGRES_PASSWORD", "pw")

			cfg := internal.LoadConfigFromEnv()
			Expect(cfg.Database.GetDSN()).To(Equal("postgres://svc:pw@db:5432/rbac?sslmode=disable"))
		})

		It("parses typed values and falls back on bad input", func() {
			GinkgoT().Setenv("HTTP_PORT", "9090")
			GinkgoT().Setenv("ACCESS_TOKEN_DURATION", "45m")
			GinkgoT().Setenv("DEBUG", "not-a-bool")

			cfg := internal.LoadConfigFromEnv()
			Expect(cfg.Server.Port).To(Equal(9090))
			Expect(cfg.Security.AccessTokenDuration).To(Equal(45 * time.Minute))
			Expect(cfg.App.Debug).To(BeFalse())
		})
	})

	Describe("Validate", func() {
		var cfg *internal.Config

		BeforeEach(func() {
			cfg = &internal.Config{
				Server:   internal.ServerConfig{Port: 8080, AllowedOrigins: "http://localhost:3000, *"},
				Database: internal.DatabaseConfig{Source: "postgres://localhost/app", MaxOpenConns: 10, MaxIdleConns: 5},
				Redis:    internal.RedisConfig{Host: "localhost", Port: 6379},
				Security: internal.SecurityConfig{JWTSecretKey: "0123456789abcdef0123456789abcdef"},
			}
		})

		It("accepts a complete config", func() {
			Expect(cfg.Validate()).To(Succeed())
			Expect(cfg.Server.Origins()).To(Equal([]string{"http://localhost:3000", "*"}))
		})

		It("aggregates every section error", func() {
			cfg.Server.Port = 0
			cfg.Security.JWTSecretKey = "short"
			cfg.Redis.Host = ""

			err := cfg.Validate()
			Expect(err).To(MatchError(ContainSubstring("server config")))
			Expect(err).To(MatchError(ContainSubstring("security config")))
			Expect(err).To(MatchError(ContainSubstring("redis config")))
		})

		It("rejects an unsupported signing algorithm", func() {
			cfg.Security.JWTAlgorithm = "RS256"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("unsupported jwt_algorithm")))
		})

		It("rejects more idle than open connections", func() {
			cfg.Database.MaxIdleConns = 20
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("max_idle_conns")))
		})

		It("leaves uploads disabled without a storage provider", func() {
			Expect(cfg.Storage.Enabled()).To(BeFalse())
			Expect(cfg.Validate()).To(Succeed())
		})

		It("checks the s3 storage settings", func() {
			cfg.Storage = internal.StorageConfig{Provider: internal.StorageProviderS3, Region: "us-east-1"}
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("bucket is required")))

			cfg.Storage.Bucket = "files"
			cfg.Storage.AccessKeyID = "key"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("must be set together")))

			cfg.Storage.SecretAccessKey = "secret"
			Expect(cfg.Validate()).To(Succeed())

			cfg.Storage.Provider = "gcs"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring(`unsupported provider "gcs"`)))
		})
	})
})
