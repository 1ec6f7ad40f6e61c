package catalog

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"tcpos/internal/domain"
)

// All is the category sentinel that disables category filtering.
const All = "All"

var pricePattern = regexp.MustCompile(`^\$?\d+(\.\d{1,2})?$`)

// Filter returns the products matching both the category and the search term.
// A term that looks like a price matches on exact price, anything else is a
// case-insensitive name substring.
func Filter(products []domain.Product, category string, term string) []domain.Product {
	category = strings.TrimSpace(category)
	term = strings.ToLower(strings.TrimSpace(term))

	matchPrice, price := parsePriceTerm(term)

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if category != "" && category != All && p.Category != category {
			continue
		}
		if term != "" {
			if matchPrice {
				if !p.Price.Equal(price) {
					continue
				}
			} else if !strings.Contains(strings.ToLower(p.Name), term) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func parsePriceTerm(term string) (bool, decimal.Decimal) {
	if !pricePattern.MatchString(term) {
		return false, decimal.Zero
	}
	price, err := decimal.NewFromString(strings.TrimPrefix(term, "$"))
	if err != nil {
		return false, decimal.Zero
	}
	return true, price
}

// Labels is the category picker list: All followed by category names in order.
func Labels(categories []domain.Category) []string {
	labels := make([]string, 0, len(categories)+1)
	labels = append(labels, All)
	for _, c := range categories {
		labels = append(labels, c.Name)
	}
	return labels
}

// FindCategory looks a category up by case-insensitive name.
func FindCategory(categories []domain.Category, name string) (domain.Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return domain.Category{}, false
}

// CountInCategory reports how many products reference the named category.
func CountInCategory(products []domain.Product, name string) int {
	n := 0
	for _, p := range products {
		if p.Category == name {
			n++
		}
	}
	return n
}
