package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"stockcrew/internal/adapters/redis"
	"stockcrew/internal/metrics"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// Func is a typed tool handler. A is the argument struct the model fills in.
type Func[A any] func(ctx context.Context, args A) Result

// Output is the payload returned to the model for every tool.
type Output struct {
	Result string `json:"result"`
}

// Cache stores successful results of read-only tools.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Builder provides a fluent API for creating tools with middleware
type Builder[A any] struct {
	name        string
	description string
	fn          Func[A]
	log         *logger.Logger

	retryAttempts int
	retryBackoff  time.Duration

	timeout time.Duration

	cache    Cache
	cacheTTL time.Duration

	withStats bool
}

// NewBuilder creates a builder for a tool
func NewBuilder[A any](name, description string, fn Func[A]) *Builder[A] {
	return &Builder[A]{
		name:        name,
		description: description,
		fn:          fn,
		log:         logger.Get().With("component", "tool", "tool", name),
	}
}

// WithRetry repeats transient failures. attempts counts the first call.
func (b *Builder[A]) WithRetry(attempts int, backoff time.Duration) *Builder[A] {
	b.retryAttempts = attempts
	b.retryBackoff = backoff
	return b
}

// WithTimeout bounds a call, retries included
func (b *Builder[A]) WithTimeout(timeout time.Duration) *Builder[A] {
	b.timeout = timeout
	return b
}

// WithCache serves repeated calls from cache. A nil cache disables it.
func (b *Builder[A]) WithCache(cache Cache, ttl time.Duration) *Builder[A] {
	b.cache = cache
	b.cacheTTL = ttl
	return b
}

// WithStats enables prometheus tracking
func (b *Builder[A]) WithStats() *Builder[A] {
	b.withStats = true
	return b
}

// Handler composes the middleware chain: stats -> cache -> timeout -> retry -> fn.
func (b *Builder[A]) Handler() Func[A] {
	fn := b.fn

	if b.retryAttempts > 1 {
		fn = wrapWithRetry(b.retryAttempts, b.retryBackoff, fn)
	}
	if b.timeout > 0 {
		fn = wrapWithTimeout(b.name, b.timeout, fn)
	}
	if b.cache != nil && b.cacheTTL > 0 {
		fn = wrapWithCache(b.name, b.cache, b.cacheTTL, b.log, fn)
	}
	if b.withStats {
		fn = wrapWithStats(b.name, b.log, fn)
	}
	return fn
}

// Build creates the ADK tool with configured middleware applied
func (b *Builder[A]) Build() (tool.Tool, error) {
	h := b.Handler()
	t, err := functiontool.New(
		functiontool.Config{
			Name:        b.name,
			Description: b.description,
		},
		func(ctx tool.Context, args A) (Output, error) {
			return Output{Result: h(ctx, args).String()}, nil
		})
	if err != nil {
		return nil, errors.Wrapf(err, "build tool %s", b.name)
	}
	return t, nil
}

func wrapWithRetry[A any](attempts int, backoff time.Duration, fn Func[A]) Func[A] {
	return func(ctx context.Context, args A) Result {
		var res Result
		for i := 0; i < attempts; i++ {
			res = fn(ctx, args)
			if !res.Retryable() {
				return res
			}
			if i < attempts-1 && backoff > 0 {
				select {
				case <-ctx.Done():
					return res
				case <-time.After(backoff):
				}
			}
		}
		return res
	}
}

func wrapWithTimeout[A any](name string, timeout time.Duration, fn Func[A]) Func[A] {
	return func(ctx context.Context, args A) Result {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		done := make(chan Result, 1)
		go func() { done <- fn(ctx, args) }()

		select {
		case res := <-done:
			return res
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return Transient(fmt.Sprintf("Error: %s timed out after %s", name, timeout))
			}
			return Failf("Error: %s was cancelled", name)
		}
	}
}

func wrapWithCache[A any](name string, cache Cache, ttl time.Duration, log *logger.Logger, fn Func[A]) Func[A] {
	return func(ctx context.Context, args A) Result {
		key, err := cacheKey(name, args)
		if err != nil {
			return fn(ctx, args)
		}

		cached, err := cache.Get(ctx, key)
		switch {
		case err == nil:
			metrics.RecordToolCacheHit(name)
			return Ok(cached)
		case !errors.Is(err, redis.ErrCacheMiss):
			log.Warnw("Tool cache read failed", "error", err)
		}

		res := fn(ctx, args)
		if !res.Failed() {
			if err := cache.Set(ctx, key, res.String(), ttl); err != nil {
				log.Warnw("Tool cache write failed", "error", err)
			}
		}
		return res
	}
}

func cacheKey(name string, args any) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return "tool:" + name + ":" + hex.EncodeToString(sum[:]), nil
}

func wrapWithStats[A any](name string, log *logger.Logger, fn Func[A]) Func[A] {
	return func(ctx context.Context, args A) Result {
		start := time.Now()
		res := fn(ctx, args)
		duration := time.Since(start)

		metrics.RecordToolExecution(name, duration, res.Failed())

		kv := []interface{}{"duration", duration, "failed", res.Failed()}
		if meta, ok := MetadataFromContext(ctx); ok {
			kv = append(kv, "run_id", meta.RunID, "stage", meta.Stage, "agent", meta.Agent)
		}
		log.Debugw("Tool executed", kv...)
		return res
	}
}
