package queue

import (
	"testing"
	"time"

	"github.com/dirneetapp/carta2026.io/internal/config"
	"github.com/dirneetapp/carta2026.io/internal/domain/task"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueue(t *testing.T) *RedisQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewRedisQueue(client, config.RedisConfig{StreamPrefix: "test:stream:"}).(*RedisQueue)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestRedisQueue_AddTaskAndRecent(t *testing.T) {
	q := newQueue(t)
	published := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, rev := range []string{"r1", "r2"} {
		id, err := q.AddTask(t.Context(), &task.SitePublishedTask{
			Revision:    rev,
			OutputDir:   "public",
			Pages:       []string{"index.html", "bebidas.html"},
			PublishedAt: published,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	msgs, err := q.Recent(t.Context(), "SitePublishedTask", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "SitePublishedTask", msgs[0].Values["task_type"])

	data, err := TaskData(msgs[0])
	require.NoError(t, err)
	got, err := task.UnmarshalTask[task.SitePublishedTask](data)
	require.NoError(t, err)
	assert.Equal(t, "r2", got.Revision)
	assert.Equal(t, []string{"index.html", "bebidas.html"}, got.Pages)
	assert.True(t, published.Equal(got.PublishedAt))
}

func TestRedisQueue_StreamName(t *testing.T) {
	q := NewRedisQueue(nil, config.RedisConfig{}).(*RedisQueue)
	assert.Equal(t, "carta:stream:SitePublishedTask", q.StreamName("SitePublishedTask"))
}

func TestRedisQueue_RecentOnEmptyStream(t *testing.T) {
	q := newQueue(t)

	msgs, err := q.Recent(t.Context(), "SitePublishedTask", 5)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestTaskData_Missing(t *testing.T) {
	_, err := TaskData(redis.XMessage{ID: "1-0", Values: map[string]interface{}{}})
	require.Error(t, err)
}

func TestNoopQueue(t *testing.T) {
	var q Queue = NoopQueue{}
	id, err := q.AddTask(t.Context(), &task.SitePublishedTask{})
	require.NoError(t, err)
	assert.Empty(t, id)
	require.NoError(t, q.Close())
}
