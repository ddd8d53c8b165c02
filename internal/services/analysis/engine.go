package analysis

import (
	"context"
	"time"

	"stockcrew/internal/adapters/redis"
	"stockcrew/internal/agents"
)

// Engine executes one stage's prompt with the bound agent inside a session
// shared by every stage of a run. *agents.Executor implements it.
type Engine interface {
	StartSession(ctx context.Context) (string, error)
	EndSession(ctx context.Context, sessionID string) error
	Execute(ctx context.Context, sessionID string, agentType agents.AgentType, prompt string) (*agents.ExecutionOutput, error)
}

// ResultLogger persists the final result of a completed run.
type ResultLogger interface {
	Log(subject, response string) (string, error)
}

// Lease is a held workspace lock. It expires after its ttl unless refreshed.
type Lease interface {
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// Locker guards the shared working directory across processes.
type Locker interface {
	Lock(ctx context.Context, name string, ttl time.Duration) (lease Lease, ok bool, err error)
}

// RedisLocker implements Locker with a Redis lock.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Lock(ctx context.Context, name string, ttl time.Duration) (Lease, bool, error) {
	lock, ok, err := l.client.AcquireLock(ctx, name, ttl)
	if err != nil || !ok {
		return nil, ok, err
	}
	return lock, true, nil
}

var _ Engine = (*agents.Executor)(nil)
