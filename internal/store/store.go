// Package store owns the in-memory catalog tree. Every mutation validates first and
// leaves the catalog untouched on failure.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/dirneetapp/carta2026.io/internal/assets"
	"github.com/dirneetapp/carta2026.io/internal/domain"
	"github.com/dirneetapp/carta2026.io/internal/repository"

	log "github.com/sirupsen/logrus"
)

// Normalizer materializes image references; see assets.Resolver.
type Normalizer interface {
	Normalize(ctx context.Context, ref domain.AssetRef, stableKey string) (domain.AssetRef, error)
}

// IndexPage is the page name reserved for the category grid.
const IndexPage = "index"

type CategoryInput struct {
	ID          string
	Name        string
	Theme       string
	Description string
	Image       string
}

type SubcategoryInput struct {
	ID          string
	Name        string
	Description string
	Image       string
}

type ItemInput struct {
	ID          string
	Name        string
	Description string
	Price       string
	Image       string
}

type CatalogStore struct {
	repo       repository.CatalogRepository
	normalizer Normalizer
	catalog    *domain.Catalog
}

func New(repo repository.CatalogRepository, normalizer Normalizer) *CatalogStore {
	return &CatalogStore{
		repo:       repo,
		normalizer: normalizer,
		catalog:    domain.NewCatalog(),
	}
}

// Load replaces the in-memory catalog with the persisted one. A corrupt document
// leaves an empty catalog in place and is reported through the returned error. A
// document that breaks any mutation rule counts as corrupt.
func (s *CatalogStore) Load(ctx context.Context) (*domain.Catalog, error) {
	catalog, err := s.repo.Load(ctx)
	if err != nil && !errors.Is(err, domain.ErrCorruptData) {
		return s.Snapshot(), domain.PersistenceError("load", err)
	}
	if err == nil && catalog != nil {
		if rerr := checkCatalog(catalog); rerr != nil {
			catalog, err = nil, domain.CorruptDataError("load", rerr)
		}
	}
	if catalog == nil {
		catalog = domain.NewCatalog()
	}
	catalog.EnsureSlices()
	s.catalog = catalog
	return s.Snapshot(), err
}

// Save persists the current catalog.
func (s *CatalogStore) Save(ctx context.Context) error {
	if err := s.repo.Save(ctx, s.catalog); err != nil {
		return domain.PersistenceError("save", err)
	}
	return nil
}

// Snapshot returns a deep copy of the catalog.
func (s *CatalogStore) Snapshot() *domain.Catalog {
	return s.catalog.Clone()
}

func (s *CatalogStore) Location() string {
	return s.repo.Location()
}

// Counts reports the number of categories, subcategories and items.
func (s *CatalogStore) Counts() (categories, subcategories, items int) {
	for _, cat := range s.catalog.Categories {
		categories++
		subcategories += len(cat.Subcategories)
		items += len(cat.Items)
		for _, sub := range cat.Subcategories {
			items += len(sub.Items)
		}
	}
	return categories, subcategories, items
}

func (s *CatalogStore) AddCategory(ctx context.Context, in CategoryInput) error {
	const op = "add category"
	in = trimCategory(in)

	if err := validateID(op, domain.EntityCategory, in.ID); err != nil {
		return err
	}
	if in.ID == IndexPage {
		return domain.ValidationError(op, domain.EntityCategory, in.ID, domain.RuleReservedID,
			fmt.Errorf("%q is reserved for the index page", IndexPage))
	}
	if in.Name == "" {
		return domain.ValidationError(op, domain.EntityCategory, in.ID, domain.RuleNameRequired, nil)
	}
	theme, err := domain.ParseTheme(in.Theme)
	if err != nil {
		return domain.ValidationError(op, domain.EntityCategory, in.ID, domain.RuleInvalidTheme, err)
	}
	if s.catalog.CategoryIndex(in.ID) >= 0 {
		return domain.ValidationError(op, domain.EntityCategory, in.ID, domain.RuleDuplicateID, nil)
	}

	category := domain.Category{
		ID:            in.ID,
		Name:          in.Name,
		Theme:         theme,
		Description:   in.Description,
		Image:         s.normalize(ctx, in.Image, assets.CategoryKey(in.ID)),
		Items:         []domain.Item{},
		Subcategories: []domain.Subcategory{},
	}
	s.catalog.Categories = append(s.catalog.Categories, category)

	log.Infof("✅ Category %s added", in.ID)
	return nil
}

func (s *CatalogStore) AddSubcategory(ctx context.Context, categoryID string, in SubcategoryInput) error {
	const op = "add subcategory"
	in = trimSubcategory(in)

	ci := s.catalog.CategoryIndex(categoryID)
	if ci < 0 {
		return domain.NotFoundError(op, domain.EntityCategory, categoryID)
	}
	if err := validateID(op, domain.EntitySubcategory, in.ID); err != nil {
		return err
	}
	if in.Name == "" {
		return domain.ValidationError(op, domain.EntitySubcategory, in.ID, domain.RuleNameRequired, nil)
	}
	category := &s.catalog.Categories[ci]
	if category.SubcategoryIndex(in.ID) >= 0 {
		return domain.ValidationError(op, domain.EntitySubcategory, in.ID, domain.RuleDuplicateID, nil)
	}

	subcategory := domain.Subcategory{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		Image:       s.normalize(ctx, in.Image, assets.SubcategoryKey(categoryID, in.ID)),
		Items:       []domain.Item{},
	}
	category.Subcategories = append(category.Subcategories, subcategory)

	log.Infof("✅ Subcategory %s/%s added", categoryID, in.ID)
	return nil
}

// AddItem appends an item to the category, or to one of its subcategories when
// subcategoryID is not empty. Item IDs are unique across the whole category.
func (s *CatalogStore) AddItem(ctx context.Context, categoryID, subcategoryID string, in ItemInput) error {
	const op = "add item"
	in = trimItem(in)
	subcategoryID = strings.TrimSpace(subcategoryID)

	ci := s.catalog.CategoryIndex(categoryID)
	if ci < 0 {
		return domain.NotFoundError(op, domain.EntityCategory, categoryID)
	}
	category := &s.catalog.Categories[ci]
	si := -1
	if subcategoryID != "" {
		si = category.SubcategoryIndex(subcategoryID)
		if si < 0 {
			return domain.NotFoundError(op, domain.EntitySubcategory, subcategoryID)
		}
	}

	if err := validateID(op, domain.EntityItem, in.ID); err != nil {
		return err
	}
	if in.Name == "" {
		return domain.ValidationError(op, domain.EntityItem, in.ID, domain.RuleNameRequired, nil)
	}
	price, err := domain.ParsePrice(in.Price)
	if err != nil {
		return domain.ValidationError(op, domain.EntityItem, in.ID, domain.RuleInvalidPrice, err)
	}
	if _, exists := category.FindItem(in.ID); exists {
		return domain.ValidationError(op, domain.EntityItem, in.ID, domain.RuleDuplicateID,
			fmt.Errorf("item ids are unique within category %s", categoryID))
	}

	item := domain.Item{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		Price:       price,
		Image:       s.normalize(ctx, in.Image, assets.ItemKey(categoryID, in.ID)),
	}
	if si < 0 {
		category.Items = append(category.Items, item)
	} else {
		category.Subcategories[si].Items = append(category.Subcategories[si].Items, item)
	}

	log.Infof("✅ Item %s added to %s", in.ID, categoryID)
	return nil
}

// EditCategory replaces every editable field of the category. Empty optional fields
// are removed.
func (s *CatalogStore) EditCategory(ctx context.Context, id string, in CategoryInput) error {
	const op = "edit category"
	in = trimCategory(in)

	ci := s.catalog.CategoryIndex(id)
	if ci < 0 {
		return domain.NotFoundError(op, domain.EntityCategory, id)
	}
	if in.Name == "" {
		return domain.ValidationError(op, domain.EntityCategory, id, domain.RuleNameRequired, nil)
	}
	theme, err := domain.ParseTheme(in.Theme)
	if err != nil {
		return domain.ValidationError(op, domain.EntityCategory, id, domain.RuleInvalidTheme, err)
	}

	image := s.normalize(ctx, in.Image, assets.CategoryKey(id))

	category := &s.catalog.Categories[ci]
	category.Name = in.Name
	category.Theme = theme
	category.Description = in.Description
	category.Image = image

	log.Infof("✅ Category %s updated", id)
	return nil
}

func (s *CatalogStore) EditSubcategory(ctx context.Context, categoryID, id string, in SubcategoryInput) error {
	const op = "edit subcategory"
	in = trimSubcategory(in)

	ci := s.catalog.CategoryIndex(categoryID)
	if ci < 0 {
		return domain.NotFoundError(op, domain.EntityCategory, categoryID)
	}
	si := s.catalog.Categories[ci].SubcategoryIndex(id)
	if si < 0 {
		return domain.NotFoundError(op, domain.EntitySubcategory, id)
	}
	if in.Name == "" {
		return domain.ValidationError(op, domain.EntitySubcategory, id, domain.RuleNameRequired, nil)
	}

	image := s.normalize(ctx, in.Image, assets.SubcategoryKey(categoryID, id))

	subcategory := &s.catalog.Categories[ci].Subcategories[si]
	subcategory.Name = in.Name
	subcategory.Description = in.Description
	subcategory.Image = image

	log.Infof("✅ Subcategory %s/%s updated", categoryID, id)
	return nil
}

// EditItem replaces the item's fields wherever it lives inside the category.
func (s *CatalogStore) EditItem(ctx context.Context, categoryID, id string, in ItemInput) error {
	const op = "edit item"
	in = trimItem(in)

	ci := s.catalog.CategoryIndex(categoryID)
	if ci < 0 {
		return domain.NotFoundError(op, domain.EntityCategory, categoryID)
	}
	category := &s.catalog.Categories[ci]
	loc, ok := category.FindItem(id)
	if !ok {
		return domain.NotFoundError(op, domain.EntityItem, id)
	}
	if in.Name == "" {
		return domain.ValidationError(op, domain.EntityItem, id, domain.RuleNameRequired, nil)
	}
	price, err := domain.ParsePrice(in.Price)
	if err != nil {
		return domain.ValidationError(op, domain.EntityItem, id, domain.RuleInvalidPrice, err)
	}

	image := s.normalize(ctx, in.Image, assets.ItemKey(categoryID, id))

	item := category.ItemAt(loc)
	item.Name = in.Name
	item.Description = in.Description
	item.Price = price
	item.Image = image

	log.Infof("✅ Item %s/%s updated", categoryID, id)
	return nil
}

// DeleteCategory removes the category with all its subcategories and items. It
// reports whether anything was removed; a missing id is not an error.
func (s *CatalogStore) DeleteCategory(id string) bool {
	ci := s.catalog.CategoryIndex(id)
	if ci < 0 {
		return false
	}
	s.catalog.Categories = append(s.catalog.Categories[:ci], s.catalog.Categories[ci+1:]...)
	log.Infof("🗑️ Category %s deleted", id)
	return true
}

func (s *CatalogStore) DeleteSubcategory(categoryID, id string) bool {
	ci := s.catalog.CategoryIndex(categoryID)
	if ci < 0 {
		return false
	}
	category := &s.catalog.Categories[ci]
	si := category.SubcategoryIndex(id)
	if si < 0 {
		return false
	}
	category.Subcategories = append(category.Subcategories[:si], category.Subcategories[si+1:]...)
	log.Infof("🗑️ Subcategory %s/%s deleted", categoryID, id)
	return true
}

func (s *CatalogStore) DeleteItem(categoryID, id string) bool {
	ci := s.catalog.CategoryIndex(categoryID)
	if ci < 0 {
		return false
	}
	category := &s.catalog.Categories[ci]
	loc, ok := category.FindItem(id)
	if !ok {
		return false
	}
	if loc.Subcategory < 0 {
		category.Items = append(category.Items[:loc.Index], category.Items[loc.Index+1:]...)
	} else {
		sub := &category.Subcategories[loc.Subcategory]
		sub.Items = append(sub.Items[:loc.Index], sub.Items[loc.Index+1:]...)
	}
	log.Infof("🗑️ Item %s/%s deleted", categoryID, id)
	return true
}

func (s *CatalogStore) Category(id string) (domain.Category, error) {
	ci := s.catalog.CategoryIndex(id)
	if ci < 0 {
		return domain.Category{}, domain.NotFoundError("get category", domain.EntityCategory, id)
	}
	return s.catalog.Categories[ci].Clone(), nil
}

func (s *CatalogStore) Subcategory(categoryID, id string) (domain.Subcategory, error) {
	category, err := s.Category(categoryID)
	if err != nil {
		return domain.Subcategory{}, err
	}
	si := category.SubcategoryIndex(id)
	if si < 0 {
		return domain.Subcategory{}, domain.NotFoundError("get subcategory", domain.EntitySubcategory, id)
	}
	return category.Subcategories[si], nil
}

// Item looks an item up by id in the category's combined item scope.
func (s *CatalogStore) Item(categoryID, id string) (domain.Item, error) {
	category, err := s.Category(categoryID)
	if err != nil {
		return domain.Item{}, err
	}
	loc, ok := category.FindItem(id)
	if !ok {
		return domain.Item{}, domain.NotFoundError("get item", domain.EntityItem, id)
	}
	return *category.ItemAt(loc), nil
}

// NormalizeAll routes every image in the tree through the normalizer and reports how
// many references changed.
func (s *CatalogStore) NormalizeAll(ctx context.Context) int {
	changed := 0
	update := func(ref *domain.AssetRef, key string) {
		if ref.IsEmpty() || ref.Kind() == domain.AssetNormalized {
			return
		}
		if next := s.normalize(ctx, string(*ref), key); next != *ref {
			*ref = next
			changed++
		}
	}

	for ci := range s.catalog.Categories {
		category := &s.catalog.Categories[ci]
		update(&category.Image, assets.CategoryKey(category.ID))
		for i := range category.Items {
			update(&category.Items[i].Image, assets.ItemKey(category.ID, category.Items[i].ID))
		}
		for si := range category.Subcategories {
			sub := &category.Subcategories[si]
			update(&sub.Image, assets.SubcategoryKey(category.ID, sub.ID))
			for i := range sub.Items {
				update(&sub.Items[i].Image, assets.ItemKey(category.ID, sub.Items[i].ID))
			}
		}
	}

	if changed > 0 {
		log.Infof("🔄 Normalized %d image references", changed)
	}
	return changed
}

// normalize never fails: an unreachable image keeps its original reference.
func (s *CatalogStore) normalize(ctx context.Context, raw string, key string) domain.AssetRef {
	ref := domain.AssetRef(raw)
	if ref.IsEmpty() || s.normalizer == nil {
		return ref
	}
	out, err := s.normalizer.Normalize(ctx, ref, key)
	if err != nil {
		log.Warnf("❌ Keeping original image reference for %s: %v", key, err)
	}
	return out
}

func validateID(op string, entity domain.Entity, id string) error {
	if id == "" {
		return domain.ValidationError(op, entity, id, domain.RuleIDRequired, nil)
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return domain.ValidationError(op, entity, id, domain.RuleInvalidID,
			fmt.Errorf("ids may not contain whitespace or path separators"))
	}
	return nil
}

func trimCategory(in CategoryInput) CategoryInput {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Theme = strings.TrimSpace(in.Theme)
	in.Description = strings.TrimSpace(in.Description)
	in.Image = strings.TrimSpace(in.Image)
	return in
}

func trimSubcategory(in SubcategoryInput) SubcategoryInput {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Image = strings.TrimSpace(in.Image)
	return in
}

func trimItem(in ItemInput) ItemInput {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Price = strings.TrimSpace(in.Price)
	in.Image = strings.TrimSpace(in.Image)
	return in
}
