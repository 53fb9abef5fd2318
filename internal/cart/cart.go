package cart

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/catalogbrowser/internal/catalog"
)

var (
	// ErrInvalidQuantity is returned when an add carries a quantity below 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrQuantityOverflow is returned when an add would push the cart quantity past math.MaxInt.
	ErrQuantityOverflow = errors.New("quantity exceeds cart capacity")
	// ErrEmptyCart is returned by Checkout when there is nothing to buy.
	ErrEmptyCart = errors.New("cart is empty")
)

// Line pairs a product snapshot with a quantity.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Subtotal is price * quantity for the line.
func (l Line) Subtotal() float64 {
	return lineAmount(l).InexactFloat64()
}

// Snapshot is the frozen content of a cart at checkout time.
type Snapshot struct {
	At    time.Time
	Lines []Line
	Total decimal.Decimal
}

// Cart is a per-session collection of lines keyed by product name. It is not safe for
// concurrent use; callers serialize access per session.
type Cart struct {
	order []string
	lines map[string]*Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{lines: make(map[string]*Line)}
}

// Add merges quantity into the line for product.Name, creating it on first add. An existing
// line keeps the product fields captured when it was created. An add that would overflow the
// cart quantity leaves the cart unchanged.
func (c *Cart) Add(product catalog.Product, quantity int) (Line, error) {
	if quantity < 1 {
		return Line{}, ErrInvalidQuantity
	}
	if quantity > math.MaxInt-c.Quantity() {
		return Line{}, ErrQuantityOverflow
	}
	if line, ok := c.lines[product.Name]; ok {
		line.Quantity += quantity
		return *line, nil
	}
	line := &Line{Product: product, Quantity: quantity}
	c.lines[product.Name] = line
	c.order = append(c.order, product.Name)
	return *line, nil
}

// Remove deletes the line for name and reports whether one existed.
func (c *Cart) Remove(name string) bool {
	if _, ok := c.lines[name]; !ok {
		return false
	}
	delete(c.lines, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Lines returns copies of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, *c.lines[name])
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.order)
}

// Quantity sums the quantities of all lines.
func (c *Cart) Quantity() int {
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// Total is the sum of line subtotals, 0 for an empty cart.
func (c *Cart) Total() float64 {
	return c.total().InexactFloat64()
}

func (c *Cart) Clear() {
	c.order = nil
	c.lines = make(map[string]*Line)
}

// Checkout snapshots the cart and hands it to record. The cart is cleared only when record
// succeeds, so a failed record leaves the cart untouched.
func (c *Cart) Checkout(at time.Time, record func(Snapshot) error) (Snapshot, error) {
	if c.Len() == 0 {
		return Snapshot{}, ErrEmptyCart
	}
	snap := Snapshot{
		At:    at,
		Lines: c.Lines(),
		Total: c.total(),
	}
	if record != nil {
		if err := record(snap); err != nil {
			return Snapshot{}, err
		}
	}
	c.Clear()
	return snap, nil
}

func (c *Cart) total() decimal.Decimal {
	sum := decimal.Zero
	for _, name := range c.order {
		sum = sum.Add(lineAmount(*c.lines[name]))
	}
	return sum
}

func lineAmount(l Line) decimal.Decimal {
	return decimal.NewFromFloat(l.Product.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}
