package mailer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Queue hands emails to the background worker.
type Queue struct {
	client *asynq.Client
}

func NewQueue(redisOpts asynq.RedisClientOpt) *Queue {
	return &Queue{client: asynq.NewClient(redisOpts)}
}

func (q *Queue) SendEmail(ctx context.Context, to, subject, body string) error {
	task, err := NewSendEmailTask(Message{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// Worker wraps the asynq server processing mail tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Concurrency int
	Sender      Sender
	Logger      *slog.Logger
}

func NewWorker(cfg WorkerConfig) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeSendEmail, NewTaskHandler(cfg.Sender, cfg.Logger).HandleSendEmail)

	return &Worker{server: srv, mux: mux, logger: cfg.Logger}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("mailer: worker not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("mailer: shutting down worker")
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
