package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	QueueDefault      = "default"
	TaskTypeSendEmail = "mail:send"
)

func NewSendEmailTask(msg Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5)), nil
}

// TaskHandler processes TaskTypeSendEmail tasks with the configured Sender.
type TaskHandler struct {
	sender Sender
	logger *slog.Logger
}

func NewTaskHandler(sender Sender, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{sender: sender, logger: logger}
}

func (h *TaskHandler) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		h.logger.Error("mailer: malformed payload", "error", err)
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if msg.To == "" {
		return fmt.Errorf("missing recipient: %w", asynq.SkipRetry)
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		h.logger.Error("mailer: send failed", "to", msg.To, "error", err)
		return err
	}
	h.logger.Info("mailer: email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}
