package store

import (
	"fmt"

	"github.com/dirneetapp/carta2026.io/internal/domain"
)

// checkCatalog applies the mutation rules to a whole tree read from storage: valid
// and unreserved ids, known themes, non-negative prices, category ids unique in the
// catalog, subcategory and item ids unique within their category.
func checkCatalog(c *domain.Catalog) error {
	const op = "check catalog"

	categories := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if err := validateID(op, domain.EntityCategory, cat.ID); err != nil {
			return err
		}
		if cat.ID == IndexPage {
			return domain.ValidationError(op, domain.EntityCategory, cat.ID, domain.RuleReservedID,
				fmt.Errorf("%q is reserved for the index page", IndexPage))
		}
		if _, err := domain.ParseTheme(string(cat.Theme)); err != nil {
			return domain.ValidationError(op, domain.EntityCategory, cat.ID, domain.RuleInvalidTheme, err)
		}
		if categories[cat.ID] {
			return domain.ValidationError(op, domain.EntityCategory, cat.ID, domain.RuleDuplicateID, nil)
		}
		categories[cat.ID] = true

		subcategories := make(map[string]bool, len(cat.Subcategories))
		items := make(map[string]bool)
		if err := checkItems(op, cat.ID, cat.Items, items); err != nil {
			return err
		}
		for _, sub := range cat.Subcategories {
			if err := validateID(op, domain.EntitySubcategory, sub.ID); err != nil {
				return err
			}
			if subcategories[sub.ID] {
				return domain.ValidationError(op, domain.EntitySubcategory, sub.ID, domain.RuleDuplicateID,
					fmt.Errorf("subcategory ids are unique within category %s", cat.ID))
			}
			subcategories[sub.ID] = true
			if err := checkItems(op, cat.ID, sub.Items, items); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkItems(op, categoryID string, items []domain.Item, seen map[string]bool) error {
	for _, item := range items {
		if err := validateID(op, domain.EntityItem, item.ID); err != nil {
			return err
		}
		if item.Price.IsNegative() {
			return domain.ValidationError(op, domain.EntityItem, item.ID, domain.RuleInvalidPrice,
				fmt.Errorf("price %s is negative", item.Price.String()))
		}
		if seen[item.ID] {
			return domain.ValidationError(op, domain.EntityItem, item.ID, domain.RuleDuplicateID,
				fmt.Errorf("item ids are unique within category %s", categoryID))
		}
		seen[item.ID] = true
	}
	return nil
}
