package domain

const (
	CategoryMarker    = "--- CATEGORY ---"
	SubcategoryMarker = "--- SUBCATEGORY ---"
)

// OutlineRow is one line of the flattened catalog tree.
type OutlineRow struct {
	Depth       int    `json:"depth"`
	Entity      Entity `json:"entity"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Theme       string `json:"theme,omitempty"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description"`
}

// Outline flattens the catalog in render order: each category row, its direct items,
// then each subcategory row followed by its items.
func (c *Catalog) Outline() []OutlineRow {
	rows := make([]OutlineRow, 0)
	for _, cat := range c.Categories {
		rows = append(rows, OutlineRow{
			Depth:       0,
			Entity:      EntityCategory,
			ID:          cat.ID,
			Name:        cat.Name,
			Theme:       cat.Theme.OrDefault().GetThemeName(),
			Description: CategoryMarker,
		})
		rows = appendItemRows(rows, cat.Items, 1)
		for _, sub := range cat.Subcategories {
			rows = append(rows, OutlineRow{
				Depth:       1,
				Entity:      EntitySubcategory,
				ID:          sub.ID,
				Name:        sub.Name,
				Description: SubcategoryMarker,
			})
			rows = appendItemRows(rows, sub.Items, 2)
		}
	}
	return rows
}

func appendItemRows(rows []OutlineRow, items []Item, depth int) []OutlineRow {
	for _, item := range items {
		rows = append(rows, OutlineRow{
			Depth:       depth,
			Entity:      EntityItem,
			ID:          item.ID,
			Name:        item.Name,
			Price:       item.Price.Format(),
			Description: item.Description,
		})
	}
	return rows
}
