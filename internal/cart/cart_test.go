package cart

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/angelmondragon/catalogbrowser/internal/catalog"
)

var (
	pen = catalog.Product{Name: "Pen", Category: "Office", Price: 1.50, Rating: 4.0}
	pad = catalog.Product{Name: "Pad", Category: "Office", Price: 3.00, Rating: 4.5}
	mug = catalog.Product{Name: "Mug", Category: "Kitchen", Price: 8.00, Rating: 3.0}
)

func TestAddMergesByName(t *testing.T) {
	for _, tc := range []struct{ q1, q2 int }{{1, 1}, {2, 3}, {7, 1}, {10, 25}} {
		c := New()
		if _, err := c.Add(pen, tc.q1); err != nil {
			t.Fatalf("first add: %v", err)
		}
		line, err := c.Add(pen, tc.q2)
		if err != nil {
			t.Fatalf("second add: %v", err)
		}
		if line.Quantity != tc.q1+tc.q2 {
			t.Fatalf("expected quantity %d, got %d", tc.q1+tc.q2, line.Quantity)
		}
		if c.Len() != 1 {
			t.Fatalf("expected exactly one line, got %d", c.Len())
		}
	}
}

func TestAddKeepsFirstSnapshot(t *testing.T) {
	c := New()
	if _, err := c.Add(pen, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	repriced := pen
	repriced.Price = 9.99
	repriced.Category = "Stationery"
	if _, err := c.Add(repriced, 1); err != nil {
		t.Fatalf("add repriced: %v", err)
	}

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one Pen line, got %d", len(lines))
	}
	line := lines[0]
	if line.Product != pen {
		t.Fatalf("expected original snapshot, got %+v", line.Product)
	}
	if line.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", line.Quantity)
	}
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	c := New()
	for _, q := range []int{0, -1, -50} {
		if _, err := c.Add(pen, q); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("quantity %d: expected ErrInvalidQuantity, got %v", q, err)
		}
	}
	if c.Len() != 0 {
		t.Fatalf("rejected adds must not change the cart, got %d lines", c.Len())
	}
}

func TestAddRejectsQuantityOverflow(t *testing.T) {
	c := New()
	if _, err := c.Add(pen, math.MaxInt); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := c.Add(pen, 1); !errors.Is(err, ErrQuantityOverflow) {
		t.Fatalf("expected ErrQuantityOverflow merging into a full line, got %v", err)
	}
	if _, err := c.Add(pad, 1); !errors.Is(err, ErrQuantityOverflow) {
		t.Fatalf("expected ErrQuantityOverflow adding a new line to a full cart, got %v", err)
	}

	lines := c.Lines()
	if len(lines) != 1 || lines[0].Quantity != math.MaxInt {
		t.Fatalf("rejected adds must leave the cart unchanged, got %+v", lines)
	}
	if c.Total() <= 0 {
		t.Fatalf("total must stay positive, got %v", c.Total())
	}
}

func TestRemove(t *testing.T) {
	c := New()
	_, _ = c.Add(pen, 1)
	_, _ = c.Add(pad, 1)
	_, _ = c.Add(mug, 1)

	if !c.Remove("Pad") {
		t.Fatal("expected Pad to be removed")
	}
	if c.Remove("Pad") {
		t.Fatal("second remove should be a no-op")
	}
	if c.Remove("Lamp") {
		t.Fatal("removing an absent name should report false")
	}

	lines := c.Lines()
	if len(lines) != 2 || lines[0].Product.Name != "Pen" || lines[1].Product.Name != "Mug" {
		t.Fatalf("unexpected lines after remove: %+v", lines)
	}
}

func TestTotal(t *testing.T) {
	c := New()
	if c.Total() != 0 {
		t.Fatalf("empty cart total should be 0, got %v", c.Total())
	}
	_, _ = c.Add(pen, 2)
	_, _ = c.Add(pen, 3)
	if got := c.Total(); got != 7.50 {
		t.Fatalf("expected 7.50, got %v", got)
	}
	_, _ = c.Add(mug, 1)
	if got := c.Total(); got != 15.50 {
		t.Fatalf("expected 15.50, got %v", got)
	}
	if c.Quantity() != 6 {
		t.Fatalf("expected total quantity 6, got %d", c.Quantity())
	}
}

func TestTotalAvoidsFloatDrift(t *testing.T) {
	c := New()
	_, _ = c.Add(catalog.Product{Name: "Clip", Price: 0.10}, 3)
	if got := c.Total(); got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	c := New()
	called := false
	_, err := c.Checkout(time.Now(), func(Snapshot) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if called {
		t.Fatal("recorder must not run for an empty cart")
	}
}

func TestCheckoutRecordsAndClears(t *testing.T) {
	c := New()
	_, _ = c.Add(pen, 2)
	_, _ = c.Add(pen, 3)
	before := c.Total()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var recorded Snapshot
	snap, err := c.Checkout(at, func(s Snapshot) error {
		recorded = s
		return nil
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("cart should be empty after checkout, got %d lines", c.Len())
	}
	if !snap.At.Equal(at) {
		t.Fatalf("unexpected snapshot time %v", snap.At)
	}
	if snap.Total.InexactFloat64() != before || recorded.Total.InexactFloat64() != 7.50 {
		t.Fatalf("snapshot total mismatch: %v / %v", snap.Total, recorded.Total)
	}
	if len(snap.Lines) != 1 || snap.Lines[0].Quantity != 5 {
		t.Fatalf("unexpected snapshot lines %+v", snap.Lines)
	}

	_, _ = c.Add(pen, 1)
	if snap.Lines[0].Quantity != 5 {
		t.Fatal("snapshot must be independent of later cart mutation")
	}
}

func TestCheckoutRecorderFailureKeepsCart(t *testing.T) {
	c := New()
	_, _ = c.Add(mug, 1)
	boom := errors.New("ledger down")

	if _, err := c.Checkout(time.Now(), func(Snapshot) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected recorder error, got %v", err)
	}
	if c.Len() != 1 || c.Total() != 8 {
		t.Fatalf("cart must be unchanged after failed record, got %+v", c.Lines())
	}
}

func TestLineSubtotal(t *testing.T) {
	line := Line{Product: pad, Quantity: 3}
	if line.Subtotal() != 9 {
		t.Fatalf("expected 9, got %v", line.Subtotal())
	}
}
