package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// Connect establishes the default outbound session, retrying the credential
// handshake with linearly increasing backoff. With attempts=5 and
// step=2s the waits between attempts are 2s, 4s, 6s, 8s.
func Connect(ctx context.Context, token string, attempts uint64, step time.Duration) (*Telegram, error) {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, linearBackoff(step))

	var tg *Telegram
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		t, err := NewTelegram(token)
		if err != nil {
			return retry.RetryableError(err)
		}
		tg = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect session: %w", err)
	}
	return tg, nil
}

// linearBackoff waits step, 2*step, 3*step, ...
func linearBackoff(step time.Duration) retry.Backoff {
	var n int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * step, false
	})
}
