package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease is a best-effort distributed mutex backed by redis SET NX. It keeps
// overlapping sweep runs (schedule firing while a manual run is in flight)
// from cascading the same albums twice. The TTL bounds how long a crashed
// holder can block the job.
type Lease struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

func NewLease(client *redis.Client, key string, ttl time.Duration) *Lease {
	return &Lease{client: client, key: key, ttl: ttl}
}

// Acquire returns false when another holder owns the lease.
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release deletes the lease only if this instance still holds it.
func (l *Lease) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	val, err := l.client.Get(ctx, l.key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}
	if val != l.token {
		return nil
	}
	return l.client.Del(ctx, l.key).Err()
}
