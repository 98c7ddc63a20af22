package site

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/dirneetapp/carta2026.io/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/afero"
)

// Problem is one defect found in a rendered page.
type Problem struct {
	Page    string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Page, p.Message)
}

// Verify parses every page and checks the structure the site's scripts and
// navigation rely on: internal page links resolve, assets/ images exist under root,
// exactly one nav entry is active on category pages and none on the index.
func Verify(site *Site, fs afero.Fs, root string) ([]Problem, error) {
	pages := make(map[string]bool, len(site.Pages))
	for _, p := range site.Pages {
		pages[p.Filename()] = true
	}

	var problems []Problem
	for _, page := range site.Pages {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", page.Name, err)
		}
		report := func(format string, args ...any) {
			problems = append(problems, Problem{Page: page.Filename(), Message: fmt.Sprintf(format, args...)})
		}

		for _, selector := range []string{"#mobileMenu", "#imageModal", "#imageModalImg", "main .menu-container"} {
			if doc.Find(selector).Length() != 1 {
				report("expected exactly one %s", selector)
			}
		}

		wantActive := 1
		if page.Name == IndexPage {
			wantActive = 0
		}
		for _, selector := range []string{"a.nav-btn.active", "a.mobile-menu-link.active"} {
			if n := doc.Find(selector).Length(); n != wantActive {
				report("%d active entries for %s, want %d", n, selector, wantActive)
			}
		}

		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			target, ok := localTarget(href)
			if !ok || !strings.HasSuffix(target, ".html") {
				return
			}
			if !pages[target] {
				report("dangling link to %s", target)
			}
		})

		doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
			src, _ := s.Attr("src")
			target, ok := localTarget(src)
			if !ok || !strings.HasPrefix(target, domain.AssetDir+"/") {
				return
			}
			exists, err := afero.Exists(fs, filepath.Join(root, filepath.FromSlash(target)))
			if err != nil || !exists {
				report("missing image %s", target)
			}
		})
	}

	return problems, nil
}

// localTarget resolves a relative reference to a clean slash path. Absolute URLs
// and fragments are not local.
func localTarget(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" || strings.HasPrefix(u.Path, "/") {
		return "", false
	}
	return path.Clean(u.Path), true
}
