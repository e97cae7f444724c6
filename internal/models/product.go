package models

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Product is the menu entry a POS panel adds to an order. The catalogue itself
// lives outside the engine; only the fields a line item caches are carried.
type Product struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Price Money     `json:"price" db:"price"`
}

func (p Product) Validate() error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("product id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required")
	}
	if p.Price < 0 {
		return fmt.Errorf("product price cannot be negative")
	}
	return nil
}

type ModifierKind string

const (
	ModifierOption  ModifierKind = "OPTION"
	ModifierExtra   ModifierKind = "EXTRA"
	ModifierRemoval ModifierKind = "REMOVAL"
	ModifierNote    ModifierKind = "NOTE"
)

// Modifier adjusts a line item: a chosen option, a paid extra, a removed
// ingredient or a free-text kitchen note.
type Modifier struct {
	Kind       ModifierKind `json:"kind"`
	Name       string       `json:"name"`
	PriceDelta Money        `json:"price_delta,omitempty"`
}

func (m Modifier) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("modifier name is required")
	}
	switch m.Kind {
	case ModifierOption, ModifierExtra:
		return nil
	case ModifierRemoval, ModifierNote:
		if m.PriceDelta != 0 {
			return fmt.Errorf("%s modifier cannot change the price", strings.ToLower(string(m.Kind)))
		}
		return nil
	}
	return fmt.Errorf("unknown modifier kind %q", m.Kind)
}

func ModifierDelta(modifiers []Modifier) Money {
	var delta Money
	for _, m := range modifiers {
		delta += m.PriceDelta
	}
	return delta
}

// SameModifiers compares two modifier sets ignoring order.
func SameModifiers(a, b []Modifier) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(m Modifier) string { return fmt.Sprintf("%s|%s|%d", m.Kind, m.Name, m.PriceDelta) }
	ka := make([]string, len(a))
	kb := make([]string, len(b))
	for i := range a {
		ka[i] = key(a[i])
		kb[i] = key(b[i])
	}
	slices.Sort(ka)
	slices.Sort(kb)
	return slices.Equal(ka, kb)
}
