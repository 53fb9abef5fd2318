package catalog

// Product is one row of the catalog. Identity is the Name; the catalog has no synthetic ids.
type Product struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
}

// PriceRange is an inclusive price interval.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Catalog holds the immutable product list for the process lifetime.
type Catalog struct {
	products []Product
	byName   map[string]int
}

// New copies products into a read-only catalog. When several rows share a name the first one
// answers Lookup; every row stays visible to queries.
func New(products []Product) *Catalog {
	c := &Catalog{
		products: make([]Product, len(products)),
		byName:   make(map[string]int, len(products)),
	}
	copy(c.products, products)
	for i, p := range c.products {
		if _, ok := c.byName[p.Name]; !ok {
			c.byName[p.Name] = i
		}
	}
	return c
}

// Products returns a copy of the full catalog in load order.
func (c *Catalog) Products() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Lookup finds a product by exact name.
func (c *Catalog) Lookup(name string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	idx, ok := c.byName[name]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}
