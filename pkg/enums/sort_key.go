package enums

import "fmt"

// SortKey selects the ordering applied to a catalog view.
type SortKey string

const (
	SortKeyPriceAsc    SortKey = "price_asc"
	SortKeyPriceDesc   SortKey = "price_desc"
	SortKeyRatingDesc  SortKey = "rating_desc"
	SortKeyCategoryAsc SortKey = "category_asc"
)

var validSortKeys = []SortKey{
	SortKeyPriceAsc,
	SortKeyPriceDesc,
	SortKeyRatingDesc,
	SortKeyCategoryAsc,
}

// String implements fmt.Stringer.
func (k SortKey) String() string {
	return string(k)
}

// IsValid reports whether the value is a known SortKey.
func (k SortKey) IsValid() bool {
	for _, candidate := range validSortKeys {
		if candidate == k {
			return true
		}
	}
	return false
}

// SortKeys lists the supported keys in menu order.
func SortKeys() []SortKey {
	out := make([]SortKey, len(validSortKeys))
	copy(out, validSortKeys)
	return out
}

// ParseSortKey converts raw input into a SortKey.
func ParseSortKey(value string) (SortKey, error) {
	for _, candidate := range validSortKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort key %q", value)
}
