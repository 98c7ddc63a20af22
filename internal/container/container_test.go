package container

import (
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/dirneetapp/carta2026.io/internal/config"
	"github.com/dirneetapp/carta2026.io/internal/domain/task"
	"github.com/dirneetapp/carta2026.io/internal/queue"
	"github.com/dirneetapp/carta2026.io/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Site.OutputDir = "public"
	return cfg
}

func TestNewWithFs_FileDriverWithoutRedis(t *testing.T) {
	cfg := defaultConfig(t)
	fs := afero.NewMemMapFs()

	c, err := NewWithFs(t.Context(), cfg, fs)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	assert.IsType(t, queue.NoopQueue{}, c.Queue)
	require.NotNil(t, c.Service)

	require.NoError(t, c.Service.Load(t.Context()))
	require.NoError(t, c.Service.AddCategory(t.Context(), store.CategoryInput{ID: "bebidas", Name: "Bebidas"}))

	exists, err := afero.Exists(fs, "menu.json")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = afero.Exists(fs, "public/bebidas.html")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNewWithFs_RedisPublishesTasks(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := defaultConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = port

	c, err := NewWithFs(t.Context(), cfg, afero.NewMemMapFs())
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	require.NoError(t, c.Service.Load(t.Context()))
	require.NoError(t, c.Service.AddCategory(t.Context(), store.CategoryInput{ID: "bebidas", Name: "Bebidas"}))

	messages, err := c.Queue.Recent(t.Context(), (&task.SitePublishedTask{}).TaskType(), 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	revision, err := c.StateManager.GetLastPublished(t.Context())
	require.NoError(t, err)
	assert.NotEmpty(t, revision)

	stored, err := mr.Get("carta:site:published:public")
	require.NoError(t, err)
	assert.Equal(t, revision, stored)
}

func TestNewWithFs_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.Close()

	cfg := defaultConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = port

	_, err = NewWithFs(t.Context(), cfg, afero.NewMemMapFs())
	require.ErrorContains(t, err, "failed to connect to Redis")
}

func TestMetricsMux(t *testing.T) {
	cfg := defaultConfig(t)
	c, err := NewWithFs(t.Context(), cfg, afero.NewMemMapFs())
	require.NoError(t, err)

	require.NoError(t, c.Service.Load(t.Context()))
	require.NoError(t, c.Service.AddCategory(t.Context(), store.CategoryInput{ID: "bebidas", Name: "Bebidas"}))

	rec := httptest.NewRecorder()
	c.metricsMux().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "carta_")
}
