package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const passwordResetPrefix = "password_reset:"

// OTPStore keeps one-time password reset codes keyed by email.
type OTPStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

func passwordResetKey(email string) string {
	return passwordResetPrefix + email
}

func (s *OTPStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, passwordResetKey(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("cache: save otp: %w", err)
	}
	return nil
}

// consumeScript deletes the key only when it still holds the given code, so a wrong guess
// leaves the code in place and two matching callers cannot both win.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Consume reports whether code matches the stored one and deletes it on a match.
// Exactly one concurrent caller observes true for a given code.
func (s *OTPStore) Consume(ctx context.Context, email, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{passwordResetKey(email)}, code).Int()
	if err != nil {
		return false, fmt.Errorf("cache: consume otp: %w", err)
	}
	return n == 1, nil
}
