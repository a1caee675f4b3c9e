package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/rbac-api/internal/mailer"
	"github.com/frahmantamala/rbac-api/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start the background job workers that consume the Redis-backed task queue.`,
}

var emailWorkerCmd = &cobra.Command{
	Use:   "email",
	Short: "Start the email delivery worker",
	Long:  `Process queued email tasks (password reset codes) and deliver them over SMTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startEmailWorker()
	},
}

var workerConcurrency int

func startEmailWorker() error {
	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.LoggerWrapper()

	concurrency := getIntFlag(workerConcurrency, config.Worker.Concurrency)
	worker := mailer.NewWorker(mailer.WorkerConfig{
		RedisOpts:   redisClientOpt(config.Redis),
		Concurrency: concurrency,
		Sender:      mailer.NewSender(config.SMTP, lg),
		Logger:      lg,
	})

	lg.Info("starting email worker",
		"concurrency", concurrency,
		"redis", config.Redis.Addr(),
		"smtp_host", config.SMTP.Host)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	lg.Info("email worker stopped")
	return nil
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	emailWorkerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "Number of concurrent deliveries (overrides config)")

	workerCmd.AddCommand(emailWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
