package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       Price    `json:"price"`
	Image       AssetRef `json:"image,omitempty"`
}

type Subcategory struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Image       AssetRef `json:"image,omitempty"`
	Items       []Item   `json:"items"`
}

type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Theme         Theme         `json:"theme"`
	Description   string        `json:"description,omitempty"`
	Image         AssetRef      `json:"image,omitempty"`
	Items         []Item        `json:"items"`
	Subcategories []Subcategory `json:"subcategories"`
}

// Catalog is the root aggregate and the unit of persistence.
type Catalog struct {
	Categories []Category `json:"categories"`
}

func NewCatalog() *Catalog {
	return &Catalog{Categories: []Category{}}
}

// Clone returns a deep copy sharing no slices with c.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{Categories: make([]Category, len(c.Categories))}
	for i, cat := range c.Categories {
		out.Categories[i] = cat.Clone()
	}
	return out
}

func (c Category) Clone() Category {
	c.Items = cloneItems(c.Items)
	subs := make([]Subcategory, len(c.Subcategories))
	for i, sub := range c.Subcategories {
		sub.Items = cloneItems(sub.Items)
		subs[i] = sub
	}
	c.Subcategories = subs
	return c
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// CategoryIndex returns the position of the category with the given id, or -1.
func (c *Catalog) CategoryIndex(id string) int {
	for i := range c.Categories {
		if c.Categories[i].ID == id {
			return i
		}
	}
	return -1
}

// SubcategoryIndex returns the position of the subcategory with the given id, or -1.
func (c *Category) SubcategoryIndex(id string) int {
	for i := range c.Subcategories {
		if c.Subcategories[i].ID == id {
			return i
		}
	}
	return -1
}

// ItemLocation reports where an item lives inside its category. Subcategory is -1 for
// items placed directly under the category.
type ItemLocation struct {
	Subcategory int
	Index       int
}

// FindItem searches the category's direct items first, then each subcategory in order.
func (c *Category) FindItem(id string) (ItemLocation, bool) {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return ItemLocation{Subcategory: -1, Index: i}, true
		}
	}
	for s := range c.Subcategories {
		for i := range c.Subcategories[s].Items {
			if c.Subcategories[s].Items[i].ID == id {
				return ItemLocation{Subcategory: s, Index: i}, true
			}
		}
	}
	return ItemLocation{}, false
}

// ItemAt returns a pointer to the item at loc.
func (c *Category) ItemAt(loc ItemLocation) *Item {
	if loc.Subcategory < 0 {
		return &c.Items[loc.Index]
	}
	return &c.Subcategories[loc.Subcategory].Items[loc.Index]
}

// EnsureSlices replaces nil collections with empty ones so the persisted form always
// carries "items": [] rather than null.
func (c *Catalog) EnsureSlices() {
	if c.Categories == nil {
		c.Categories = []Category{}
	}
	for i := range c.Categories {
		cat := &c.Categories[i]
		if cat.Items == nil {
			cat.Items = []Item{}
		}
		if cat.Subcategories == nil {
			cat.Subcategories = []Subcategory{}
		}
		for s := range cat.Subcategories {
			if cat.Subcategories[s].Items == nil {
				cat.Subcategories[s].Items = []Item{}
			}
		}
	}
}

// MarshalCatalog serializes the catalog deterministically: struct field order, two space
// indentation, no HTML escaping and a trailing newline.
func MarshalCatalog(c *Catalog) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalCatalog parses a persisted catalog document. Both the {"categories": [...]}
// object and a bare root array of categories are accepted.
func UnmarshalCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &c.Categories); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.EnsureSlices()
	return &c, nil
}
