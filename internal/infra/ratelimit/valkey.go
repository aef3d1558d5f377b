package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyLimiter is a fixed window counter shared across instances.
type ValkeyLimiter struct {
	client valkey.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewValkeyLimiter allows requestsPerMinute per key in one minute windows.
func NewValkeyLimiter(client valkey.Client, prefix string, requestsPerMinute int) *ValkeyLimiter {
	if prefix == "" {
		prefix = "digest:ratelimit"
	}
	return &ValkeyLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(requestsPerMinute),
		window: time.Minute,
		now:    time.Now,
	}
}

// Allow increments the counter for the current window.
func (l *ValkeyLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := l.windowKey(key)
	count, err := l.client.Do(ctx, l.client.B().Incr().Key(windowKey).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", windowKey, err)
	}
	if count == 1 {
		if err := l.client.Do(ctx, l.client.B().Expire().Key(windowKey).Seconds(int64(l.window/time.Second)+1).Build()).Error(); err != nil {
			return false, fmt.Errorf("expire %s: %w", windowKey, err)
		}
	}
	return count <= l.limit, nil
}

func (l *ValkeyLimiter) windowKey(key string) string {
	window := l.now().Unix() / int64(l.window/time.Second)
	return fmt.Sprintf("%s:%s:%d", l.prefix, key, window)
}
