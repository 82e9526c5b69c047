// internal/core/domain/menu.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemCategory represents menu categories
type ItemCategory string

// Category constants
const (
	CategoryAppetizers ItemCategory = "appetizers"
	CategoryMains      ItemCategory = "mains"
	CategorySides      ItemCategory = "sides"
	CategoryDesserts   ItemCategory = "desserts"
	CategoryDrinks     ItemCategory = "drinks"
	CategoryCombos     ItemCategory = "combos"
	CategorySpecials   ItemCategory = "specials"
	CategoryOther      ItemCategory = "other"
)

// MenuItem represents a single orderable menu item.
type MenuItem struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Category    ItemCategory    `json:"category"`
	Available   bool            `json:"available"`
	Featured    bool            `json:"featured"`
	Sizes       []SizeOption    `json:"sizes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate performs domain validation on the menu item.
func (m *MenuItem) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.BasePrice.IsNegative() {
		return fmt.Errorf("base_price cannot be negative")
	}
	if m.Category == "" {
		m.Category = CategoryOther
	}
	for i := range m.Sizes {
		if m.Sizes[i].SizeID == "" {
			return fmt.Errorf("size %d: size_id is required", i)
		}
		if m.Sizes[i].PriceMultiplier.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("size %s: price_multiplier must be positive", m.Sizes[i].SizeID)
		}
	}
	return nil
}

// PrepareForStorage prepares the item for database storage.
func (m *MenuItem) PrepareForStorage() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// SizeByID returns the size option with the given id, or nil if the item does
// not currently offer it.
func (m *MenuItem) SizeByID(sizeID string) *SizeOption {
	for i := range m.Sizes {
		if m.Sizes[i].SizeID == sizeID {
			return &m.Sizes[i]
		}
	}
	return nil
}

// UnitPriceFor returns the effective unit price for the item: base price times
// the size multiplier for sized items, base price otherwise. Size adjustment
// happens exactly once, here.
func (m *MenuItem) UnitPriceFor(size *SizeOption) decimal.Decimal {
	if size == nil {
		return m.BasePrice
	}
	return m.BasePrice.Mul(size.PriceMultiplier)
}

// LineFor builds a cart line for the item with the given optional size and
// quantity, capturing the size-adjusted unit price.
func (m *MenuItem) LineFor(size *SizeOption, qty int) CartLine {
	line := CartLine{
		ItemID:      m.ID,
		Name:        m.Name,
		Description: m.Description,
		UnitPrice:   m.UnitPriceFor(size),
		Quantity:    qty,
		Category:    string(m.Category),
		Available:   m.Available,
		Featured:    m.Featured,
	}
	if size != nil {
		s := *size
		line.SizeID = s.SizeID
		line.Size = &s
	}
	return line
}
