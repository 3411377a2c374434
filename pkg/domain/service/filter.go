package service

import (
	"strings"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
)

// FilterProducts returns the products whose name contains query (case-insensitive)
// and whose category matches, keeping catalog order.
func FilterProducts(products []model.Product, query, category string) []model.Product {
	needle := strings.ToLower(query)
	result := make([]model.Product, 0, len(products))
	for _, p := range products {
		if category != model.AllCategories && p.Category != category {
			continue
		}
		if !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		result = append(result, p)
	}
	return result
}
