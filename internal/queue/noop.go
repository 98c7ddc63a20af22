package queue

import (
	"context"

	"github.com/dirneetapp/carta2026.io/internal/domain/task"

	"github.com/redis/go-redis/v9"
)

// NoopQueue drops every task. It is used when Redis is disabled.
type NoopQueue struct{}

func (NoopQueue) AddTask(context.Context, task.Task) (string, error) { return "", nil }

func (NoopQueue) Recent(context.Context, string, int64) ([]redis.XMessage, error) { return nil, nil }

func (NoopQueue) Close() error { return nil }
