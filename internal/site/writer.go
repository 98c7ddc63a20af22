package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dirneetapp/carta2026.io/internal/fsutil"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// ManifestFile records the pages generated by the last write so that pages of
// deleted categories can be pruned. Files not listed there are never touched.
const ManifestFile = ".carta-manifest.json"

const defaultWriteWorkers = 4

type manifest struct {
	Pages []string `json:"pages"`
}

// WriteResult summarizes one Write.
type WriteResult struct {
	Pages     []string
	Updated   []string
	Unchanged []string
	Removed   []string
}

// Writer writes rendered pages into the output directory.
type Writer struct {
	fs      afero.Fs
	root    string
	workers int
}

func NewWriter(fs afero.Fs, root string, workers int) *Writer {
	if workers <= 0 {
		workers = defaultWriteWorkers
	}
	return &Writer{fs: fs, root: root, workers: workers}
}

func (w *Writer) Root() string {
	return w.root
}

func (w *Writer) Fs() afero.Fs {
	return w.fs
}

// Write stores every page atomically, skipping pages whose content is already on
// disk, then prunes pages listed in the previous manifest that are no longer part
// of the site.
func (w *Writer) Write(ctx context.Context, site *Site) (*WriteResult, error) {
	if err := w.fs.MkdirAll(w.root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	previous := w.readManifest()

	changed := make([]bool, len(site.Pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for i, page := range site.Pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wrote, err := w.writePage(page)
			if err != nil {
				return err
			}
			changed[i] = wrote
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &WriteResult{Pages: site.Filenames()}
	for i, name := range result.Pages {
		if changed[i] {
			result.Updated = append(result.Updated, name)
		} else {
			result.Unchanged = append(result.Unchanged, name)
		}
	}

	for _, name := range previous.Pages {
		if slices.Contains(result.Pages, name) || !isPageName(name) {
			continue
		}
		if err := w.fs.Remove(filepath.Join(w.root, name)); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale page %s: %w", name, err)
		}
		log.Infof("🗑️ Removed stale page %s", name)
		result.Removed = append(result.Removed, name)
	}

	if err := w.writeManifest(manifest{Pages: result.Pages}); err != nil {
		return nil, err
	}

	log.Infof("✅ Wrote %d pages to %s (%d updated, %d removed)",
		len(result.Pages), w.root, len(result.Updated), len(result.Removed))
	return result, nil
}

func (w *Writer) writePage(page Page) (bool, error) {
	if !isPageName(page.Filename()) {
		return false, fmt.Errorf("failed to write page %q: not a file name inside %s", page.Name, w.root)
	}
	path := filepath.Join(w.root, page.Filename())
	if existing, err := afero.ReadFile(w.fs, path); err == nil && bytes.Equal(existing, page.Content) {
		return false, nil
	}
	if err := fsutil.WriteFileAtomic(w.fs, path, page.Content, 0o644); err != nil {
		return false, fmt.Errorf("failed to write page %s: %w", page.Name, err)
	}
	return true, nil
}

func (w *Writer) readManifest() manifest {
	var m manifest
	data, err := afero.ReadFile(w.fs, filepath.Join(w.root, ManifestFile))
	if err != nil {
		return m
	}
	if err := json.Unmarshal(data, &m); err != nil {
		log.Warnf("❌ Ignoring unreadable %s: %v", ManifestFile, err)
		return manifest{}
	}
	return m
}

func (w *Writer) writeManifest(m manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := fsutil.WriteFileAtomic(w.fs, filepath.Join(w.root, ManifestFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// isPageName keeps writes and pruning inside the output directory.
func isPageName(name string) bool {
	return strings.HasSuffix(name, ".html") && !strings.ContainsAny(name, `/\`) && name != ".html"
}
