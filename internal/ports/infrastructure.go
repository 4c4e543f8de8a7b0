package ports

import (
	"context"
	"errors"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}

// SequenceGenerator hands out monotonically increasing numbers per key.
type SequenceGenerator interface {
	Next(ctx context.Context, key string) (int64, error)
}

type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

// Broadcaster pushes a message to every connected live client.
type Broadcaster interface {
	Broadcast(message []byte)
}

type EmailProvider interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// ErrCacheMiss is returned by Cache.Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")
