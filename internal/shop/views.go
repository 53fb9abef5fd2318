package shop

import (
	"github.com/angelmondragon/catalogbrowser/internal/cart"
	"github.com/angelmondragon/catalogbrowser/internal/catalog"
	"github.com/angelmondragon/catalogbrowser/pkg/enums"
)

// BrowseQuery carries the search and filter controls of one browse action. Nil bounds use
// the observed min/max of the searched view; a nil rating keeps every row.
type BrowseQuery struct {
	Text       string
	Categories []string
	PriceMin   *float64
	PriceMax   *float64
	MinRating  *float64
	Sort       enums.SortKey
}

func (q BrowseQuery) filter() catalog.AdvancedFilter {
	f := catalog.AdvancedFilter{
		Categories: q.Categories,
		PriceMin:   q.PriceMin,
		PriceMax:   q.PriceMax,
	}
	if q.MinRating != nil {
		f.MinRating = *q.MinRating
	}
	return f
}

// LineView is a cart line as shown to the shopper.
type LineView struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

// CartView is the rendered state of a cart.
type CartView struct {
	Lines     []LineView `json:"lines"`
	LineCount int        `json:"line_count"`
	ItemCount int        `json:"item_count"`
	Total     float64    `json:"total"`
}

func newCartView(c *cart.Cart) CartView {
	lines := c.Lines()
	view := CartView{
		Lines:     make([]LineView, 0, len(lines)),
		LineCount: len(lines),
		ItemCount: c.Quantity(),
		Total:     c.Total(),
	}
	for _, l := range lines {
		view.Lines = append(view.Lines, LineView{
			Name:     l.Product.Name,
			Category: l.Product.Category,
			Price:    l.Product.Price,
			Rating:   l.Product.Rating,
			Quantity: l.Quantity,
			Subtotal: l.Subtotal(),
		})
	}
	return view
}
