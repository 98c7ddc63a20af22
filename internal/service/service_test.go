package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dirneetapp/carta2026.io/internal/assets"
	"github.com/dirneetapp/carta2026.io/internal/domain"
	"github.com/dirneetapp/carta2026.io/internal/domain/task"
	"github.com/dirneetapp/carta2026.io/internal/metrics"
	"github.com/dirneetapp/carta2026.io/internal/repository"
	"github.com/dirneetapp/carta2026.io/internal/site"
	"github.com/dirneetapp/carta2026.io/internal/state"
	"github.com/dirneetapp/carta2026.io/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogPath = "data/menu.json"

type fakeQueue struct {
	mu    sync.Mutex
	tasks []task.Task
}

func (q *fakeQueue) AddTask(_ context.Context, t task.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return fmt.Sprintf("%d-0", len(q.tasks)), nil
}

func (q *fakeQueue) Recent(context.Context, string, int64) ([]redis.XMessage, error) { return nil, nil }

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) published() []*task.SitePublishedTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*task.SitePublishedTask
	for _, t := range q.tasks {
		out = append(out, t.(*task.SitePublishedTask))
	}
	return out
}

type recordingRecorder struct {
	metrics.NoopRecorder
	mu        sync.Mutex
	mutations []string
	publishes []string
	sizes     [3]int
}

func (r *recordingRecorder) IncMutation(op string, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations = append(r.mutations, op+":"+result)
}

func (r *recordingRecorder) IncPublishOutcome(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishes = append(r.publishes, result)
}

func (r *recordingRecorder) SetCatalogSize(c, s, i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = [3]int{c, s, i}
}

type fixture struct {
	svc      *Service
	dataFs   afero.Fs
	siteFs   afero.Fs
	queue    *fakeQueue
	recorder *recordingRecorder
}

// newFixture keeps the catalog document and the site on separate filesystems so
// either side can be made read-only.
func newFixture(t *testing.T, dataFs, siteFs afero.Fs) *fixture {
	t.Helper()
	if dataFs == nil {
		dataFs = afero.NewMemMapFs()
	}
	if siteFs == nil {
		siteFs = afero.NewMemMapFs()
	}
	q := &fakeQueue{}
	rec := &recordingRecorder{}

	resolver := assets.NewResolver(siteFs, "public", nil, rec)
	catalogStore := store.New(repository.NewFileRepository(dataFs, catalogPath), resolver)
	renderer := site.NewRenderer(site.Options{
		Title: "Bar Sergios", Currency: "€", FallbackImage: "https://images.example.com/f.jpg",
		IndexHeading: "Nuestra Carta", IndexTitle: "Inicio",
	})
	writer := site.NewWriter(siteFs, "public", 2)

	svc := NewService(catalogStore, renderer, writer, q, state.NewMemoryStateManager(), rec)
	svc.now = func() time.Time { return time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC) }
	require.NoError(t, svc.Load(t.Context()))

	return &fixture{svc: svc, dataFs: dataFs, siteFs: siteFs, queue: q, recorder: rec}
}

func (f *fixture) page(t *testing.T, name string) string {
	t.Helper()
	data, err := afero.ReadFile(f.siteFs, filepath.Join("public", name))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) pageExists(name string) bool {
	ok, _ := afero.Exists(f.siteFs, filepath.Join("public", name))
	return ok
}

func TestService_MutationSavesAndRenders(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := t.Context()

	require.NoError(t, f.svc.AddCategory(ctx, store.CategoryInput{ID: "bebidas", Name: "Bebidas", Theme: "ocean"}))
	require.NoError(t, f.svc.AddItem(ctx, "bebidas", "", store.ItemInput{
		ID: "agua", Name: "Agua", Price: "1.50", Description: "Botella 500ml",
	}))

	saved, err := afero.ReadFile(f.dataFs, catalogPath)
	require.NoError(t, err)
	assert.Contains(t, string(saved), `"id": "agua"`)

	page := f.page(t, "bebidas.html")
	assert.Contains(t, page, "Botella 500ml")
	assert.Contains(t, page, "1.50 €")
	assert.Contains(t, page, `class="theme-ocean"`)
	assert.Contains(t, f.page(t, "index.html"), `href="bebidas.html"`)

	published := f.queue.published()
	require.Len(t, published, 2)
	assert.Equal(t, []string{"index.html", "bebidas.html"}, published[1].Pages)
	assert.Equal(t, "public", published[1].OutputDir)
	assert.Len(t, published[1].Revision, 64)

	assert.Equal(t, []string{"add_category:success", "add_item:success"}, f.recorder.mutations)
	assert.Equal(t, [3]int{1, 0, 1}, f.recorder.sizes)
}

func TestService_ImagesAreNormalizedBeforeSave(t *testing.T) {
	siteFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(siteFs, "fotos/bebidas.png", []byte("png"), 0o644))
	f := newFixture(t, nil, siteFs)

	require.NoError(t, f.svc.AddCategory(t.Context(), store.CategoryInput{
		ID: "bebidas", Name: "Bebidas", Image: "fotos/bebidas.png",
	}))

	saved, err := afero.ReadFile(f.dataFs, catalogPath)
	require.NoError(t, err)
	assert.Contains(t, string(saved), `"image": "assets/cat_bebidas.png"`)
	assert.True(t, f.pageExists("assets/cat_bebidas.png"))
	assert.Contains(t, f.page(t, "index.html"), `src="assets/cat_bebidas.png"`)

	problems, err := f.svc.Check(t.Context())
	require.NoError(t, err)
	assert.Empty(t, problems)

	require.NoError(t, siteFs.Remove(filepath.Join("public", "assets", "cat_bebidas.png")))
	problems, err = f.svc.Check(t.Context())
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "index.html", problems[0].Page)
}

func TestService_ValidationFailureChangesNothing(t *testing.T) {
	f := newFixture(t, nil, nil)

	err := f.svc.AddCategory(t.Context(), store.CategoryInput{ID: "bebidas"})
	require.ErrorIs(t, err, domain.ErrValidation)

	exists, _ := afero.Exists(f.dataFs, catalogPath)
	assert.False(t, exists)
	assert.False(t, f.pageExists("index.html"))
	assert.Empty(t, f.queue.published())
	assert.Equal(t, []string{"add_category:failure"}, f.recorder.mutations)
}

func TestService_DuplicateItemInSubcategoryRejected(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := t.Context()
	require.NoError(t, f.svc.AddCategory(ctx, store.CategoryInput{ID: "a", Name: "A"}))
	require.NoError(t, f.svc.AddSubcategory(ctx, "a", store.SubcategoryInput{ID: "s", Name: "S"}))
	require.NoError(t, f.svc.AddItem(ctx, "a", "", store.ItemInput{ID: "x", Name: "X", Price: "1"}))

	err := f.svc.AddItem(ctx, "a", "s", store.ItemInput{ID: "x", Name: "X2", Price: "2"})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, domain.RuleDuplicateID, domain.RuleOf(err))
}

func TestService_DeleteMissingSkipsSaveAndRender(t *testing.T) {
	f := newFixture(t, nil, nil)

	removed, err := f.svc.DeleteCategory(t.Context(), "nope")
	require.NoError(t, err)
	assert.False(t, removed)

	exists, _ := afero.Exists(f.dataFs, catalogPath)
	assert.False(t, exists)
	assert.False(t, f.pageExists("index.html"))
	assert.Equal(t, []string{"delete_category:noop"}, f.recorder.mutations)
}

func TestService_DeleteCategoryRemovesItsPage(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := t.Context()
	require.NoError(t, f.svc.AddCategory(ctx, store.CategoryInput{ID: "a", Name: "A"}))
	require.NoError(t, f.svc.AddCategory(ctx, store.CategoryInput{ID: "b", Name: "B"}))
	require.True(t, f.pageExists("b.html"))

	removed, err := f.svc.DeleteCategory(ctx, "b")
	require.NoError(t, err)
	assert.True(t, removed)

	assert.False(t, f.pageExists("b.html"))
	assert.NotContains(t, f.page(t, "index.html"), "b.html")
	published := f.queue.published()
	assert.Equal(t, []string{"b.html"}, published[len(published)-1].Removed)
}

func TestService_DeleteSubcategoryAndItem(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := t.Context()
	require.NoError(t, f.svc.AddCategory(ctx, store.CategoryInput{ID: "a", Name: "A"}))
	require.NoError(t, f.svc.AddSubcategory(ctx, "a", store.SubcategoryInput{ID: "s", Name: "Sección"}))
	require.NoError(t, f.svc.AddItem(ctx, "a", "s", store.ItemInput{ID: "x", Name: "Equis", Price: "1"}))
	require.NoError(t, f.svc.AddItem(ctx, "a", "", store.ItemInput{ID: "y", Name: "Ygriega", Price: "1"}))

	removed, err := f.svc.DeleteItem(ctx, "a", "y")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NotContains(t, f.page(t, "a.html"), "Ygriega")

	removed, err = f.svc.DeleteSubcategory(ctx, "a", "s")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NotContains(t, f.page(t, "a.html"), "Equis")
}

func TestService_EditRerenders(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := t.Context()
	require.NoError(t, f.svc.AddCategory(ctx, store.CategoryInput{ID: "a", Name: "A"}))
	require.NoError(t, f.svc.AddSubcategory(ctx, "a", store.SubcategoryInput{ID: "s", Name: "S"}))
	require.NoError(t, f.svc.AddItem(ctx, "a", "s", store.ItemInput{ID: "x", Name: "X", Price: "1"}))

	require.NoError(t, f.svc.EditCategory(ctx, "a", store.CategoryInput{Name: "Cafés", Theme: "forest"}))
	require.NoError(t, f.svc.EditSubcategory(ctx, "a", "s", store.SubcategoryInput{Name: "Calientes"}))
	require.NoError(t, f.svc.EditItem(ctx, "a", "x", store.ItemInput{Name: "Cortado", Price: "1.4"}))

	page := f.page(t, "a.html")
	assert.Contains(t, page, `class="theme-forest"`)
	assert.Contains(t, page, "Cafés")
	assert.Contains(t, page, "Calientes")
	assert.Contains(t, page, "1.40 €")
}

func TestService_SaveFailureKeepsChange(t *testing.T) {
	f := newFixture(t, afero.NewReadOnlyFs(afero.NewMemMapFs()), nil)

	err := f.svc.AddCategory(t.Context(), store.CategoryInput{ID: "a", Name: "A"})
	require.ErrorIs(t, err, domain.ErrPersistence)

	assert.Len(t, f.svc.Snapshot().Categories, 1)
	assert.False(t, f.pageExists("index.html"))
	assert.Equal(t, []string{"add_category:failure"}, f.recorder.mutations)
}

func TestService_WriteFailureKeepsSavedCatalog(t *testing.T) {
	f := newFixture(t, nil, afero.NewReadOnlyFs(afero.NewMemMapFs()))

	err := f.svc.AddCategory(t.Context(), store.CategoryInput{ID: "a", Name: "A"})
	require.ErrorIs(t, err, domain.ErrPersistence)

	saved, err := afero.ReadFile(f.dataFs, catalogPath)
	require.NoError(t, err)
	assert.Contains(t, string(saved), `"id": "a"`)
	assert.Equal(t, []string{metrics.ResultFailure}, f.recorder.publishes)
}

func TestService_SyncNormalizesAndSkipsUnchanged(t *testing.T) {
	dataFs := afero.NewMemMapFs()
	siteFs := afero.NewMemMapFs()
	doc := `{"categories": [{"id": "postres", "name": "Postres", "image": "fotos/p.jpg", "items": [
		{"id": "flan", "name": "Flan", "description": "Casero", "price": 3.5}
	]}]}`
	require.NoError(t, afero.WriteFile(dataFs, catalogPath, []byte(doc), 0o644))
	require.NoError(t, afero.WriteFile(siteFs, "fotos/p.jpg", []byte("jpg"), 0o644))
	f := newFixture(t, dataFs, siteFs)

	first, err := f.svc.Sync(t.Context(), false)
	require.NoError(t, err)
	assert.False(t, first.Skipped)
	assert.Equal(t, []string{"index.html", "postres.html"}, first.Write.Pages)

	saved, err := afero.ReadFile(dataFs, catalogPath)
	require.NoError(t, err)
	assert.Contains(t, string(saved), `"image": "assets/cat_postres.jpg"`)
	assert.Contains(t, f.page(t, "postres.html"), "3.50 €")

	second, err := f.svc.Sync(t.Context(), false)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.Revision, second.Revision)

	forced, err := f.svc.Sync(t.Context(), true)
	require.NoError(t, err)
	assert.False(t, forced.Skipped)
	assert.Empty(t, forced.Write.Updated)
	assert.Len(t, f.queue.published(), 2)
}

func TestService_SyncPicksUpExternalEdits(t *testing.T) {
	f := newFixture(t, nil, nil)
	require.NoError(t, f.svc.AddCategory(t.Context(), store.CategoryInput{ID: "a", Name: "A"}))

	doc := `{"categories": [{"id": "a", "name": "Renamed", "items": [], "subcategories": []}]}`
	require.NoError(t, afero.WriteFile(f.dataFs, catalogPath, []byte(doc), 0o644))

	result, err := f.svc.Sync(t.Context(), false)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Contains(t, f.page(t, "a.html"), "Renamed")
}

func TestService_SyncCorruptCatalogKeepsSite(t *testing.T) {
	f := newFixture(t, nil, nil)
	require.NoError(t, f.svc.AddCategory(t.Context(), store.CategoryInput{ID: "a", Name: "A"}))
	require.NoError(t, afero.WriteFile(f.dataFs, catalogPath, []byte("{oops"), 0o644))

	_, err := f.svc.Sync(t.Context(), false)
	require.ErrorIs(t, err, domain.ErrCorruptData)

	assert.True(t, f.pageExists("a.html"))
	saved, _ := afero.ReadFile(f.dataFs, catalogPath)
	assert.Equal(t, "{oops", string(saved))
}

func TestService_SyncRejectsDocumentBreakingRules(t *testing.T) {
	f := newFixture(t, nil, nil)
	require.NoError(t, f.svc.AddCategory(t.Context(), store.CategoryInput{ID: "a", Name: "A"}))
	before := f.page(t, "index.html")

	doc := `{"categories": [{"id": "../escape", "name": "E", "theme": "bogus", "items": [
		{"id": "x", "name": "X", "description": "", "price": -3},
		{"id": "x", "name": "Y", "description": "", "price": 1}
	]}]}`
	require.NoError(t, afero.WriteFile(f.dataFs, catalogPath, []byte(doc), 0o644))

	_, err := f.svc.Sync(t.Context(), true)
	require.ErrorIs(t, err, domain.ErrCorruptData)
	assert.Equal(t, domain.RuleInvalidID, domain.RuleOf(err))

	escaped, _ := afero.Exists(f.siteFs, "escape.html")
	assert.False(t, escaped)
	assert.True(t, f.pageExists("a.html"))
	assert.Equal(t, before, f.page(t, "index.html"))
	assert.NotContains(t, f.page(t, "index.html"), "theme-bogus")

	saved, err := afero.ReadFile(f.dataFs, catalogPath)
	require.NoError(t, err)
	assert.Equal(t, doc, string(saved))
	assert.Len(t, f.queue.published(), 1)
}

func TestService_LoadCorruptReturnsEmptyCatalog(t *testing.T) {
	dataFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(dataFs, catalogPath, []byte("nope"), 0o644))
	svc := NewService(
		store.New(repository.NewFileRepository(dataFs, catalogPath), nil),
		site.NewRenderer(site.Options{}),
		site.NewWriter(afero.NewMemMapFs(), ".", 1),
		&fakeQueue{}, state.NewMemoryStateManager(), nil,
	)

	err := svc.Load(t.Context())
	require.True(t, errors.Is(err, domain.ErrCorruptData))
	assert.Empty(t, svc.Snapshot().Categories)

	require.NoError(t, svc.AddCategory(t.Context(), store.CategoryInput{ID: "a", Name: "A"}))
}

func TestService_OutlineAndPublish(t *testing.T) {
	f := newFixture(t, nil, nil)
	require.NoError(t, f.svc.AddCategory(t.Context(), store.CategoryInput{ID: "a", Name: "A"}))

	rows := f.svc.Outline()
	require.Len(t, rows, 1)
	assert.Equal(t, domain.EntityCategory, rows[0].Entity)

	result, err := f.svc.Publish(t.Context())
	require.NoError(t, err)
	assert.False(t, result.Skipped)
}

func TestService_ConcurrentMutationsAreSerialized(t *testing.T) {
	f := newFixture(t, nil, nil)
	require.NoError(t, f.svc.AddCategory(t.Context(), store.CategoryInput{ID: "a", Name: "A"}))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("item%d", i)
			assert.NoError(t, f.svc.AddItem(t.Context(), "a", "", store.ItemInput{ID: id, Name: id, Price: "1"}))
		}()
	}
	wg.Wait()

	snapshot := f.svc.Snapshot()
	assert.Len(t, snapshot.Categories[0].Items, 8)

	reloaded := store.New(repository.NewFileRepository(f.dataFs, catalogPath), nil)
	catalog, err := reloaded.Load(t.Context())
	require.NoError(t, err)
	assert.Len(t, catalog.Categories[0].Items, 8)
}
