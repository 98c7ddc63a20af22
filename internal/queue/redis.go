package queue

import (
	"context"
	"fmt"

	"github.com/dirneetapp/carta2026.io/internal/config"
	"github.com/dirneetapp/carta2026.io/internal/domain/task"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// defaultMaxLen caps each stream; publication events are notifications, not history
// of record.
const defaultMaxLen = 1000

type Queue interface {
	AddTask(ctx context.Context, task task.Task) (string, error) // Returns message ID
	Recent(ctx context.Context, taskType string, count int64) ([]redis.XMessage, error)
	Close() error
}

type RedisQueue struct {
	redisClient  *redis.Client
	streamPrefix string
	maxLen       int64
}

func NewRedisQueue(redisClient *redis.Client, cfg config.RedisConfig) Queue {
	prefix := cfg.StreamPrefix
	if prefix == "" {
		prefix = "carta:stream:"
	}
	return &RedisQueue{
		redisClient:  redisClient,
		streamPrefix: prefix,
		maxLen:       defaultMaxLen,
	}
}

func (q *RedisQueue) StreamName(taskType string) string {
	return q.streamPrefix + taskType
}

func (q *RedisQueue) AddTask(ctx context.Context, task task.Task) (string, error) {
	// Get task type to determine stream name
	taskType := task.TaskType()
	streamName := q.StreamName(taskType)

	taskValue, err := task.TaskValue()
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	// Fields: task_type, task_data
	messageID, err := q.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"task_type": taskType,
			"task_data": string(taskValue),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add task to Redis stream %s: %w", streamName, err)
	}

	log.Debugf("Added task %s to stream %s with message ID: %s", taskType, streamName, messageID)
	return messageID, nil
}

// Recent returns up to count messages of the stream, newest first.
func (q *RedisQueue) Recent(ctx context.Context, taskType string, count int64) ([]redis.XMessage, error) {
	streamName := q.StreamName(taskType)
	msgs, err := q.redisClient.XRevRangeN(ctx, streamName, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read Redis stream %s: %w", streamName, err)
	}
	return msgs, nil
}

func (q *RedisQueue) Close() error {
	if q.redisClient != nil {
		return q.redisClient.Close()
	}
	return nil
}

// TaskData extracts the JSON payload written by AddTask.
func TaskData(msg redis.XMessage) ([]byte, error) {
	raw, ok := msg.Values["task_data"].(string)
	if !ok {
		return nil, fmt.Errorf("message %s has no task_data", msg.ID)
	}
	return []byte(raw), nil
}
