// internal/core/domain/cart.go
package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrEmptyCart is returned when checkout is attempted on a cart with no lines.
var ErrEmptyCart = fmt.Errorf("cart is empty")

// LineKey identifies a cart line. SizeID is empty for items without size options.
type LineKey struct {
	ItemID uuid.UUID
	SizeID string
}

// SizeOption describes one purchasable size of a menu item.
type SizeOption struct {
	SizeID          string          `json:"size_id"`
	Name            string          `json:"name"`
	PriceMultiplier decimal.Decimal `json:"price_multiplier"`
}

// CartLine is one entry in the cart, identified by (ItemID, SizeID).
// UnitPrice is already size-adjusted; it is captured when the line is created
// and never recomputed from the multiplier afterwards.
type CartLine struct {
	ItemID      uuid.UUID       `json:"item_id"`
	SizeID      string          `json:"size_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category,omitempty"`
	Available   bool            `json:"available"`
	Featured    bool            `json:"featured,omitempty"`
	Size        *SizeOption     `json:"size,omitempty"`
}

// Key returns the line's identity.
func (l CartLine) Key() LineKey {
	return LineKey{ItemID: l.ItemID, SizeID: l.SizeID}
}

// Subtotal returns unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Validate performs domain validation on the cart line.
func (l *CartLine) Validate() error {
	if l.ItemID == uuid.Nil {
		return fmt.Errorf("item_id is required")
	}
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if l.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	if l.UnitPrice.IsNegative() {
		return fmt.Errorf("unit_price cannot be negative")
	}
	if l.Size != nil && l.Size.SizeID != l.SizeID {
		return fmt.Errorf("size_id mismatch: %s vs %s", l.SizeID, l.Size.SizeID)
	}
	return nil
}

// Cart is an ordered collection of CartLines. Insertion order is preserved
// for display. The cart is created empty and only ever emptied, never destroyed.
type Cart struct {
	Lines []CartLine `json:"lines"`
	Open  bool       `json:"open"`
}

// NewCart creates an empty cart.
func NewCart() *Cart {
	return &Cart{Lines: []CartLine{}}
}

// IndexOf returns the position of the line with the given key, or -1.
func (c *Cart) IndexOf(key LineKey) int {
	for i := range c.Lines {
		if c.Lines[i].Key() == key {
			return i
		}
	}
	return -1
}

// Add merges the given line into the cart. If a line with the same identity
// exists its quantity is incremented; otherwise the line is appended.
// Returns the index of the resulting line.
func (c *Cart) Add(line CartLine) (int, error) {
	if err := line.Validate(); err != nil {
		return -1, err
	}
	if idx := c.IndexOf(line.Key()); idx >= 0 {
		c.Lines[idx].Quantity += line.Quantity
		return idx, nil
	}
	c.Lines = append(c.Lines, line)
	return len(c.Lines) - 1, nil
}

// Remove deletes the line with the given key. Removing an absent line is not
// an error.
func (c *Cart) Remove(key LineKey) {
	if idx := c.IndexOf(key); idx >= 0 {
		c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	}
}

// SetQuantity replaces the quantity of the line with the given key.
// A quantity of zero or less removes the line; quantities below one are
// never stored.
func (c *Cart) SetQuantity(key LineKey, qty int) {
	if qty <= 0 {
		c.Remove(key)
		return
	}
	if idx := c.IndexOf(key); idx >= 0 {
		c.Lines[idx].Quantity = qty
	}
}

// Clear empties all lines.
func (c *Cart) Clear() {
	c.Lines = c.Lines[:0]
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// TotalItems returns the sum of line quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for i := range c.Lines {
		total += c.Lines[i].Quantity
	}
	return total
}

// TotalPrice returns the sum of line subtotals. Unit prices already reflect
// size adjustment, so no multiplier is applied here.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Lines {
		total = total.Add(c.Lines[i].Subtotal())
	}
	return total
}

// Snapshot returns a deep copy of the current lines, safe to hand to
// persistence and sync without racing later mutations.
func (c *Cart) Snapshot() []CartLine {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	for i := range lines {
		if lines[i].Size != nil {
			size := *lines[i].Size
			lines[i].Size = &size
		}
	}
	return lines
}

// RemoteCartRow is one durable remote record per (user, item, size). The unit
// price is denormalized at insertion time and not recomputed later. The full
// row set for a user is a disposable projection of the local cart: it is
// always replaced wholesale, never patched.
type RemoteCartRow struct {
	UserID    string          `json:"user_id"`
	ItemID    uuid.UUID       `json:"item_id"`
	SizeID    string          `json:"size_id,omitempty"`
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	SizeName  string          `json:"size_name,omitempty"`
}

// RowFromLine projects a cart line into a remote row for the given user.
func RowFromLine(userID string, line CartLine) RemoteCartRow {
	row := RemoteCartRow{
		UserID:    userID,
		ItemID:    line.ItemID,
		SizeID:    line.SizeID,
		Name:      line.Name,
		Category:  line.Category,
		UnitPrice: line.UnitPrice,
		Quantity:  line.Quantity,
	}
	if line.Size != nil {
		row.SizeName = line.Size.Name
	}
	return row
}

// ToCartLine translates a remote row back into a local cart line.
func (r RemoteCartRow) ToCartLine() CartLine {
	line := CartLine{
		ItemID:    r.ItemID,
		SizeID:    r.SizeID,
		Name:      r.Name,
		Category:  r.Category,
		UnitPrice: r.UnitPrice,
		Quantity:  r.Quantity,
		Available: true,
	}
	if r.SizeID != "" {
		line.Size = &SizeOption{
			SizeID:          r.SizeID,
			Name:            r.SizeName,
			PriceMultiplier: decimal.NewFromInt(1),
		}
	}
	return line
}
