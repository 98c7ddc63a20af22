package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// StateManager remembers the revision of the catalog that was last published to the
// output directory, so unchanged catalogs are not re-rendered.
type StateManager interface {
	GetLastPublished(ctx context.Context) (string, error)
	SetLastPublished(ctx context.Context, revision string) error
}

type redisStateManager struct {
	redisClient redis.Cmdable
	key         string
}

// NewRedisStateManager keys the revision by site so several output directories can
// share one Redis database.
func NewRedisStateManager(redisClient redis.Cmdable, keyPrefix, site string) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		key:         keyPrefix + "published:" + site,
	}
}

func (s *redisStateManager) GetLastPublished(ctx context.Context) (string, error) {
	val, err := s.redisClient.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil // Nothing published yet
		}
		return "", fmt.Errorf("failed to get last published revision %s: %w", s.key, err)
	}
	return val, nil
}

func (s *redisStateManager) SetLastPublished(ctx context.Context, revision string) error {
	err := s.redisClient.Set(ctx, s.key, revision, 0).Err() // No expiration
	if err != nil {
		return fmt.Errorf("failed to set last published revision %s: %w", s.key, err)
	}
	return nil
}

type memoryStateManager struct {
	mu       sync.Mutex
	revision string
}

// NewMemoryStateManager keeps the revision for the lifetime of the process.
func NewMemoryStateManager() StateManager {
	return &memoryStateManager{}
}

func (s *memoryStateManager) GetLastPublished(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision, nil
}

func (s *memoryStateManager) SetLastPublished(_ context.Context, revision string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision = revision
	return nil
}
