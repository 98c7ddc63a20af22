// Package assets turns arbitrary image references into files under the site's
// reserved assets/ directory, named by a stable key derived from the owning entity.
package assets

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"

	"github.com/dirneetapp/carta2026.io/internal/client"
	"github.com/dirneetapp/carta2026.io/internal/domain"
	"github.com/dirneetapp/carta2026.io/internal/fsutil"
	"github.com/dirneetapp/carta2026.io/internal/metrics"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const defaultExt = ".jpg"

var knownImageExts = map[string]string{
	"image/jpeg":    ".jpg",
	"image/pjpeg":   ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/avif":    ".avif",
	"image/svg+xml": ".svg",
	"image/bmp":     ".bmp",
	"image/x-icon":  ".ico",
	"image/tiff":    ".tiff",
}

func CategoryKey(categoryID string) string {
	return "cat_" + categoryID
}

func SubcategoryKey(categoryID, subcategoryID string) string {
	return fmt.Sprintf("subcat_%s_%s", categoryID, subcategoryID)
}

func ItemKey(categoryID, itemID string) string {
	return fmt.Sprintf("item_%s_%s", categoryID, itemID)
}

// Resolver materializes image references under <root>/assets.
type Resolver struct {
	fs       afero.Fs
	root     string
	client   client.ImageClient
	recorder metrics.Recorder
}

func NewResolver(fs afero.Fs, root string, imageClient client.ImageClient, recorder metrics.Recorder) *Resolver {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Resolver{
		fs:       fs,
		root:     root,
		client:   imageClient,
		recorder: recorder,
	}
}

// Normalize returns the stable assets/ reference for ref. Empty and already normalized
// references are returned untouched without any I/O. On failure the original ref is
// returned together with an error wrapping domain.ErrAssetFetch; callers keep the
// returned ref and carry on.
func (r *Resolver) Normalize(ctx context.Context, ref domain.AssetRef, stableKey string) (domain.AssetRef, error) {
	kind := ref.Kind()
	switch kind {
	case domain.AssetNone:
		return ref, nil
	case domain.AssetNormalized:
		r.recorder.IncAssetOutcome(kind.String(), metrics.AssetSkipped)
		return ref, nil
	}

	if err := r.ensureAssetsDir(); err != nil {
		return r.fail(kind, ref, err)
	}

	var (
		normalized domain.AssetRef
		err        error
		outcome    string
	)
	if kind == domain.AssetRemote {
		normalized, err = r.fetchRemote(ctx, ref, stableKey)
		outcome = metrics.AssetFetched
	} else {
		normalized, err = r.copyLocal(ref, stableKey)
		outcome = metrics.AssetCopied
	}
	if err != nil {
		return r.fail(kind, ref, err)
	}

	r.recorder.IncAssetOutcome(kind.String(), outcome)
	log.Debugf("Normalized %s image %s -> %s", kind, ref, normalized)
	return normalized, nil
}

func (r *Resolver) fail(kind domain.AssetKind, ref domain.AssetRef, err error) (domain.AssetRef, error) {
	r.recorder.IncAssetOutcome(kind.String(), metrics.AssetFailed)
	return ref, domain.AssetFetchError("normalize", ref, err)
}

func (r *Resolver) ensureAssetsDir() error {
	dir := filepath.Join(r.root, domain.AssetDir)
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create assets directory: %w", err)
	}
	return nil
}

func (r *Resolver) fetchRemote(ctx context.Context, ref domain.AssetRef, stableKey string) (domain.AssetRef, error) {
	if r.client == nil {
		return "", fmt.Errorf("no image client configured")
	}

	ext := r.remoteExt(ctx, string(ref))

	data, err := r.client.Download(ctx, string(ref))
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}

	return r.write(stableKey+ext, data)
}

// remoteExt takes the extension from the URL path, falling back to the Content-Type
// reported by a metadata-only request and finally to .jpg.
func (r *Resolver) remoteExt(ctx context.Context, rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" {
			return ext
		}
	}

	contentType, err := r.client.ContentType(ctx, rawURL)
	if err != nil {
		log.Debugf("Could not determine content type of %s, using %s: %v", rawURL, defaultExt, err)
		return defaultExt
	}
	return extForContentType(contentType)
}

func extForContentType(contentType string) string {
	if ext, ok := knownImageExts[contentType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return defaultExt
}

func (r *Resolver) copyLocal(ref domain.AssetRef, stableKey string) (domain.AssetRef, error) {
	src := string(ref)
	ext := filepath.Ext(src)
	if ext == "" {
		ext = defaultExt
	}

	data, err := afero.ReadFile(r.fs, src)
	if err != nil {
		return "", fmt.Errorf("failed to read local image: %w", err)
	}

	return r.write(stableKey+ext, data)
}

func (r *Resolver) write(filename string, data []byte) (domain.AssetRef, error) {
	dest := filepath.Join(r.root, domain.AssetDir, filename)
	if err := fsutil.WriteFileAtomic(r.fs, dest, data, 0o644); err != nil {
		return "", err
	}
	return domain.AssetRef(path.Join(domain.AssetDir, filename)), nil
}
