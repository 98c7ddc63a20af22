package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dirneetapp/carta2026.io/internal/domain"
	"github.com/dirneetapp/carta2026.io/internal/domain/task"
	"github.com/dirneetapp/carta2026.io/internal/metrics"
	"github.com/dirneetapp/carta2026.io/internal/queue"
	"github.com/dirneetapp/carta2026.io/internal/site"
	"github.com/dirneetapp/carta2026.io/internal/state"
	"github.com/dirneetapp/carta2026.io/internal/store"

	log "github.com/sirupsen/logrus"
)

// Service sequences every catalog mutation: store mutation (which normalizes images),
// save, render, write. Operations are serialized; a failed save or write keeps the
// in-memory change so the caller can retry.
type Service struct {
	mu           sync.Mutex
	store        *store.CatalogStore
	renderer     site.Renderer
	writer       *site.Writer
	queue        queue.Queue
	stateManager state.StateManager
	recorder     metrics.Recorder
	now          func() time.Time
}

// PublishResult describes one render-and-write pass.
type PublishResult struct {
	Revision string
	Skipped  bool
	Write    *site.WriteResult
}

func NewService(
	store *store.CatalogStore,
	renderer site.Renderer,
	writer *site.Writer,
	queue queue.Queue,
	stateManager state.StateManager,
	recorder metrics.Recorder,
) *Service {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Service{
		store:        store,
		renderer:     renderer,
		writer:       writer,
		queue:        queue,
		stateManager: stateManager,
		recorder:     recorder,
		now:          time.Now,
	}
}

// Load reads the persisted catalog into the store. A corrupt document leaves an empty
// catalog in place; the error is returned so the caller can report it and carry on.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	log.Infof("✅ Loaded catalog from %s", s.store.Location())
	return nil
}

// Sync loads the catalog, normalizes every image reference, saves when something
// changed and publishes the site unless it is already up to date. A corrupt catalog
// is reported without touching the persisted document or the published site.
func (s *Service) Sync(ctx context.Context, force bool) (*PublishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.Load(ctx); err != nil {
		if errors.Is(err, domain.ErrCorruptData) {
			log.Warnf("❌ Catalog %s is corrupt, keeping the published site: %v", s.store.Location(), err)
		}
		return nil, err
	}

	if changed := s.store.NormalizeAll(ctx); changed > 0 {
		if err := s.store.Save(ctx); err != nil {
			return nil, err
		}
	}

	return s.publish(ctx, force)
}

// Publish renders and writes the current catalog regardless of the recorded revision.
func (s *Service) Publish(ctx context.Context) (*PublishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.publish(ctx, true)
}

// Check renders the current catalog and verifies the pages against the output
// directory.
func (s *Service) Check(_ context.Context) ([]site.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rendered, err := s.renderer.Render(s.store.Snapshot())
	if err != nil {
		return nil, err
	}
	return site.Verify(rendered, s.writer.Fs(), s.writer.Root())
}

func (s *Service) Snapshot() *domain.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

func (s *Service) Outline() []domain.OutlineRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot().Outline()
}

func (s *Service) AddCategory(ctx context.Context, in store.CategoryInput) error {
	return s.mutate(ctx, "add_category", func() error {
		return s.store.AddCategory(ctx, in)
	})
}

func (s *Service) AddSubcategory(ctx context.Context, categoryID string, in store.SubcategoryInput) error {
	return s.mutate(ctx, "add_subcategory", func() error {
		return s.store.AddSubcategory(ctx, categoryID, in)
	})
}

func (s *Service) AddItem(ctx context.Context, categoryID, subcategoryID string, in store.ItemInput) error {
	return s.mutate(ctx, "add_item", func() error {
		return s.store.AddItem(ctx, categoryID, subcategoryID, in)
	})
}

func (s *Service) EditCategory(ctx context.Context, id string, in store.CategoryInput) error {
	return s.mutate(ctx, "edit_category", func() error {
		return s.store.EditCategory(ctx, id, in)
	})
}

func (s *Service) EditSubcategory(ctx context.Context, categoryID, id string, in store.SubcategoryInput) error {
	return s.mutate(ctx, "edit_subcategory", func() error {
		return s.store.EditSubcategory(ctx, categoryID, id, in)
	})
}

func (s *Service) EditItem(ctx context.Context, categoryID, id string, in store.ItemInput) error {
	return s.mutate(ctx, "edit_item", func() error {
		return s.store.EditItem(ctx, categoryID, id, in)
	})
}

func (s *Service) DeleteCategory(ctx context.Context, id string) (bool, error) {
	return s.remove(ctx, "delete_category", func() bool {
		return s.store.DeleteCategory(id)
	})
}

func (s *Service) DeleteSubcategory(ctx context.Context, categoryID, id string) (bool, error) {
	return s.remove(ctx, "delete_subcategory", func() bool {
		return s.store.DeleteSubcategory(categoryID, id)
	})
}

func (s *Service) DeleteItem(ctx context.Context, categoryID, id string) (bool, error) {
	return s.remove(ctx, "delete_item", func() bool {
		return s.store.DeleteItem(categoryID, id)
	})
}

func (s *Service) mutate(ctx context.Context, op string, apply func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := apply(); err != nil {
		s.recorder.IncMutation(op, metrics.ResultFailure)
		return err
	}
	if err := s.commit(ctx); err != nil {
		s.recorder.IncMutation(op, metrics.ResultFailure)
		return err
	}
	s.recorder.IncMutation(op, metrics.ResultSuccess)
	return nil
}

// remove runs a delete. Deleting something that does not exist changes nothing, so
// nothing is saved or rendered.
func (s *Service) remove(ctx context.Context, op string, apply func() bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !apply() {
		s.recorder.IncMutation(op, metrics.ResultNoop)
		return false, nil
	}
	if err := s.commit(ctx); err != nil {
		s.recorder.IncMutation(op, metrics.ResultFailure)
		return true, err
	}
	s.recorder.IncMutation(op, metrics.ResultSuccess)
	return true, nil
}

func (s *Service) commit(ctx context.Context) error {
	if err := s.store.Save(ctx); err != nil {
		log.Errorf("❌ Failed to save catalog, change kept in memory: %v", err)
		return err
	}
	_, err := s.publish(ctx, true)
	return err
}

func (s *Service) publish(ctx context.Context, force bool) (*PublishResult, error) {
	snapshot := s.store.Snapshot()
	revision, err := s.revision(snapshot)
	if err != nil {
		return nil, err
	}

	if !force {
		last, err := s.stateManager.GetLastPublished(ctx)
		if err != nil {
			log.Warnf("❌ Could not read last published revision, publishing anyway: %v", err)
		} else if last == revision {
			log.Infof("✅ Site is up to date (revision %s)", shortRevision(revision))
			s.recorder.IncPublishOutcome(metrics.ResultNoop)
			return &PublishResult{Revision: revision, Skipped: true}, nil
		}
	}

	start := time.Now()
	rendered, err := s.renderer.Render(snapshot)
	if err != nil {
		s.recorder.IncPublishOutcome(metrics.ResultFailure)
		return nil, fmt.Errorf("failed to render site: %w", err)
	}
	written, err := s.writer.Write(ctx, rendered)
	if err != nil {
		s.recorder.IncPublishOutcome(metrics.ResultFailure)
		log.Errorf("❌ Failed to write site to %s: %v", s.writer.Root(), err)
		return nil, domain.PersistenceError("write site", err)
	}
	s.recorder.ObservePublishDuration(time.Since(start))
	s.recorder.IncPublishOutcome(metrics.ResultSuccess)
	s.recorder.SetCatalogSize(s.store.Counts())

	if err := s.stateManager.SetLastPublished(ctx, revision); err != nil {
		log.Warnf("❌ Failed to record published revision: %v", err)
	}

	published := &task.SitePublishedTask{
		Revision:    revision,
		OutputDir:   s.writer.Root(),
		Pages:       written.Pages,
		Removed:     written.Removed,
		PublishedAt: s.now().UTC(),
	}
	if _, err := s.queue.AddTask(ctx, published); err != nil {
		log.Warnf("❌ Failed to announce published site: %v", err)
	}

	log.Infof("✅ Published revision %s", shortRevision(revision))
	return &PublishResult{Revision: revision, Write: written}, nil
}

// revision hashes everything the rendered output depends on.
func (s *Service) revision(catalog *domain.Catalog) (string, error) {
	data, err := domain.MarshalCatalog(catalog)
	if err != nil {
		return "", fmt.Errorf("failed to serialize catalog: %w", err)
	}
	opts, err := json.Marshal(s.renderer.Options())
	if err != nil {
		return "", fmt.Errorf("failed to serialize render options: %w", err)
	}
	h := sha256.New()
	h.Write(data)
	h.Write(opts)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func shortRevision(revision string) string {
	if len(revision) > 12 {
		return revision[:12]
	}
	return revision
}
