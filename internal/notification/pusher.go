package notification

import (
	"context"
	"log/slog"
)

type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

type PushResult struct {
	SuccessCount int
	FailureCount int
}

// Pusher delivers a message to device tokens.
type Pusher interface {
	Push(ctx context.Context, tokens []string, msg PushMessage) (PushResult, error)
}

// LogPusher records pushes in the log instead of calling a provider.
type LogPusher struct {
	logger *slog.Logger
}

func NewLogPusher(logger *slog.Logger) *LogPusher {
	return &LogPusher{logger: logger}
}

func (p *LogPusher) Push(ctx context.Context, tokens []string, msg PushMessage) (PushResult, error) {
	p.logger.InfoContext(ctx, "push notification",
		"tokens", len(tokens),
		"title", msg.Title,
		"data_keys", len(msg.Data))
	return PushResult{SuccessCount: len(tokens)}, nil
}
