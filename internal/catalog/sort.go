package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/angelmondragon/catalogbrowser/pkg/enums"
)

var comparators = map[enums.SortKey]func(a, b Product) int{
	enums.SortKeyPriceAsc: func(a, b Product) int {
		return cmp.Compare(a.Price, b.Price)
	},
	enums.SortKeyPriceDesc: func(a, b Product) int {
		return cmp.Compare(b.Price, a.Price)
	},
	enums.SortKeyRatingDesc: func(a, b Product) int {
		return cmp.Compare(b.Rating, a.Rating)
	},
	enums.SortKeyCategoryAsc: func(a, b Product) int {
		return strings.Compare(a.Category, b.Category)
	},
}

// Sort returns a stably ordered copy of products. An empty or unknown key keeps input order.
func Sort(products []Product, key enums.SortKey) []Product {
	out := clone(products)
	compare, ok := comparators[key]
	if !ok {
		return out
	}
	slices.SortStableFunc(out, compare)
	return out
}
