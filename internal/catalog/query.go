package catalog

import "strings"

// AdvancedFilter holds the controls of the combined filter view. Nil price bounds default to
// the observed min/max of the filtered input.
type AdvancedFilter struct {
	Categories []string
	PriceMin   *float64
	PriceMax   *float64
	MinRating  float64
}

// Search keeps rows whose name or category contains text, ignoring case. Empty text is the
// identity.
func Search(products []Product, text string) []Product {
	if text == "" {
		return clone(products)
	}
	needle := strings.ToLower(text)
	return filter(products, func(p Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Category), needle)
	})
}

// FilterByCategories keeps rows whose category is one of categories. An empty set is the
// identity.
func FilterByCategories(products []Product, categories []string) []Product {
	if len(categories) == 0 {
		return clone(products)
	}
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return filter(products, func(p Product) bool {
		_, ok := set[p.Category]
		return ok
	})
}

// FilterByPriceRange keeps rows with low <= price <= high.
func FilterByPriceRange(products []Product, low, high float64) []Product {
	return filter(products, func(p Product) bool {
		return p.Price >= low && p.Price <= high
	})
}

// FilterByMinRating keeps rows with rating >= threshold.
func FilterByMinRating(products []Product, threshold float64) []Product {
	return filter(products, func(p Product) bool {
		return p.Rating >= threshold
	})
}

// ApplyFilters runs category, price-range and rating filters in that order. All three stages
// always run.
func ApplyFilters(products []Product, f AdvancedFilter) []Product {
	bounds := PriceBounds(products)
	low, high := bounds.Min, bounds.Max
	if f.PriceMin != nil {
		low = *f.PriceMin
	}
	if f.PriceMax != nil {
		high = *f.PriceMax
	}

	out := FilterByCategories(products, f.Categories)
	out = FilterByPriceRange(out, low, high)
	return FilterByMinRating(out, f.MinRating)
}

// Categories lists distinct categories in first-seen order.
func Categories(products []Product) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// PriceBounds returns the observed min and max price, or a zero range for an empty view.
func PriceBounds(products []Product) PriceRange {
	if len(products) == 0 {
		return PriceRange{}
	}
	r := PriceRange{Min: products[0].Price, Max: products[0].Price}
	for _, p := range products[1:] {
		if p.Price < r.Min {
			r.Min = p.Price
		}
		if p.Price > r.Max {
			r.Max = p.Price
		}
	}
	return r
}

func filter(products []Product, keep func(Product) bool) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func clone(products []Product) []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}
