package domain

// LineItem is one distinct product entry in the cart. Price is in whole
// rupiah. An empty ID means the product was added without a stable
// identifier and is keyed by name instead.
type LineItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Qty   int    `json:"qty"`
	Image string `json:"img"`
}

// RowTotal returns the line total (unit price times quantity).
func (it LineItem) RowTotal() int64 {
	return it.Price * int64(it.Qty)
}

// Cart is the ordered collection of line items a visitor intends to
// purchase. Insertion order is display order.
type Cart struct {
	Items []LineItem `json:"items"`
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{Items: []LineItem{}}
}

// Totals is the summary over a cart: Total is the sum of all row totals,
// Count the sum of all quantities.
type Totals struct {
	Total int64 `json:"total"`
	Count int   `json:"count"`
}

// Totals computes the cart summary. It is a pure function of the item list.
func (c *Cart) Totals() Totals {
	var t Totals
	for _, it := range c.Items {
		t.Total += it.RowTotal()
		t.Count += it.Qty
	}
	return t
}

// IsEmpty reports whether the cart holds no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// FindIndex returns the index of the first item matching the given identity
// key, or -1 if no item matches. Linear scan; carts stay small.
func (c *Cart) FindIndex(key ItemKey) int {
	for i := range c.Items {
		if key.Matches(c.Items[i]) {
			return i
		}
	}
	return -1
}

// InRange reports whether idx addresses an existing item.
func (c *Cart) InRange(idx int) bool {
	return idx >= 0 && idx < len(c.Items)
}

// Normalize repairs items loaded from storage so the in-memory invariants
// hold: a missing or non-positive quantity becomes 1 and a negative price
// becomes 0. Items without a name are dropped entirely.
func (c *Cart) Normalize() {
	items := c.Items[:0]
	for _, it := range c.Items {
		if it.Name == "" {
			continue
		}
		if it.Qty < 1 {
			it.Qty = 1
		}
		if it.Price < 0 {
			it.Price = 0
		}
		items = append(items, it)
	}
	c.Items = items
	if c.Items == nil {
		c.Items = []LineItem{}
	}
}
