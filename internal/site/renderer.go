// Package site renders the catalog into a static multi-page menu and writes it to disk.
package site

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/dirneetapp/carta2026.io/internal/config"
	"github.com/dirneetapp/carta2026.io/internal/domain"
)

// IndexPage names the category grid page.
const IndexPage = "index"

//go:embed templates/page.html.tmpl
var pageLayout string

var pageTemplate = template.Must(template.New("page").Parse(pageLayout))

// Options is the static page chrome shared by every page.
type Options struct {
	Lang          string
	Title         string
	Subtitle      string
	Stylesheet    string
	Footer        string
	Currency      string
	FallbackImage string
	IndexHeading  string
	IndexTitle    string
}

func OptionsFromConfig(cfg config.SiteConfig) Options {
	return Options{
		Lang:          cfg.Lang,
		Title:         cfg.Title,
		Subtitle:      cfg.Subtitle,
		Stylesheet:    cfg.Stylesheet,
		Footer:        cfg.Footer,
		Currency:      cfg.Currency,
		FallbackImage: cfg.FallbackImage,
		IndexHeading:  cfg.IndexHeading,
		IndexTitle:    cfg.IndexTitle,
	}
}

// Page is one rendered document.
type Page struct {
	Name    string
	Content []byte
}

// Filename is the page's path relative to the output directory.
func (p Page) Filename() string {
	return p.Name + ".html"
}

// Site is the ordered set of pages: index first, then one page per category in
// catalog order.
type Site struct {
	Pages []Page
}

func (s *Site) Lookup(name string) (Page, bool) {
	for _, p := range s.Pages {
		if p.Name == name {
			return p, true
		}
	}
	return Page{}, false
}

func (s *Site) Filenames() []string {
	names := make([]string, len(s.Pages))
	for i, p := range s.Pages {
		names[i] = p.Filename()
	}
	return names
}

// Renderer turns a catalog snapshot into pages. Implementations hold no state besides
// their options.
type Renderer interface {
	Render(catalog *domain.Catalog) (*Site, error)
	Options() Options
}

type renderer struct {
	opts Options
}

func NewRenderer(opts Options) Renderer {
	if opts.Lang == "" {
		opts.Lang = "es"
	}
	if opts.Stylesheet == "" {
		opts.Stylesheet = "styles.css"
	}
	return &renderer{opts: opts}
}

func (r *renderer) Options() Options {
	return r.opts
}

type navEntry struct {
	Href   string
	Name   string
	Active bool
}

type cardView struct {
	Href        string
	Name        string
	Description string
	Image       string
}

type indexView struct {
	Heading string
	Cards   []cardView
}

type itemView struct {
	Name        string
	Description string
	Image       string
	Price       string
}

type sectionView struct {
	Name        string
	Description string
	Items       []itemView
}

type categoryView struct {
	Name        string
	Description string
	Items       []itemView
	Sections    []sectionView
}

type pageView struct {
	Lang       string
	SiteTitle  string
	Subtitle   string
	Stylesheet string
	Footer     string
	PageTitle  string
	Theme      string
	Nav        []navEntry
	Index      *indexView
	Category   *categoryView
}

func (r *renderer) Render(catalog *domain.Catalog) (*Site, error) {
	seen := map[string]bool{IndexPage: true}
	for _, cat := range catalog.Categories {
		if !isPageName(cat.ID + ".html") {
			return nil, fmt.Errorf("failed to render site: %q is not a valid page name", cat.ID)
		}
		if seen[cat.ID] {
			return nil, fmt.Errorf("failed to render site: page name %q is used twice", cat.ID)
		}
		seen[cat.ID] = true
	}

	site := &Site{Pages: make([]Page, 0, len(catalog.Categories)+1)}

	index, err := r.renderPage(r.indexView(catalog))
	if err != nil {
		return nil, fmt.Errorf("failed to render index page: %w", err)
	}
	site.Pages = append(site.Pages, Page{Name: IndexPage, Content: index})

	for _, cat := range catalog.Categories {
		content, err := r.renderPage(r.categoryView(catalog, cat))
		if err != nil {
			return nil, fmt.Errorf("failed to render page %s: %w", cat.ID, err)
		}
		site.Pages = append(site.Pages, Page{Name: cat.ID, Content: content})
	}

	return site, nil
}

func (r *renderer) renderPage(view pageView) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *renderer) basePage(catalog *domain.Catalog, activeID string) pageView {
	nav := make([]navEntry, len(catalog.Categories))
	for i, cat := range catalog.Categories {
		nav[i] = navEntry{
			Href:   cat.ID + ".html",
			Name:   cat.Name,
			Active: cat.ID == activeID,
		}
	}
	return pageView{
		Lang:       r.opts.Lang,
		SiteTitle:  r.opts.Title,
		Subtitle:   r.opts.Subtitle,
		Stylesheet: r.opts.Stylesheet,
		Footer:     r.opts.Footer,
		Nav:        nav,
	}
}

func (r *renderer) indexView(catalog *domain.Catalog) pageView {
	view := r.basePage(catalog, "")
	view.PageTitle = r.opts.IndexTitle
	view.Theme = domain.DefaultTheme.String()

	cards := make([]cardView, len(catalog.Categories))
	for i, cat := range catalog.Categories {
		image := cat.Image.String()
		if image == "" {
			image = r.opts.FallbackImage
		}
		cards[i] = cardView{
			Href:        cat.ID + ".html",
			Name:        cat.Name,
			Description: cat.Description,
			Image:       image,
		}
	}
	view.Index = &indexView{Heading: r.opts.IndexHeading, Cards: cards}
	return view
}

func (r *renderer) categoryView(catalog *domain.Catalog, cat domain.Category) pageView {
	view := r.basePage(catalog, cat.ID)
	view.PageTitle = cat.Name
	view.Theme = cat.Theme.OrDefault().String()

	sections := make([]sectionView, len(cat.Subcategories))
	for i, sub := range cat.Subcategories {
		sections[i] = sectionView{
			Name:        sub.Name,
			Description: sub.Description,
			Items:       r.itemViews(sub.Items),
		}
	}
	view.Category = &categoryView{
		Name:        cat.Name,
		Description: cat.Description,
		Items:       r.itemViews(cat.Items),
		Sections:    sections,
	}
	return view
}

func (r *renderer) itemViews(items []domain.Item) []itemView {
	views := make([]itemView, len(items))
	for i, item := range items {
		views[i] = itemView{
			Name:        item.Name,
			Description: item.Description,
			Image:       item.Image.String(),
			Price:       r.formatPrice(item.Price),
		}
	}
	return views
}

func (r *renderer) formatPrice(p domain.Price) string {
	if r.opts.Currency == "" {
		return p.Format()
	}
	return p.Format() + " " + r.opts.Currency
}
