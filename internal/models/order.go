package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ItemStatus is the kitchen status of a single order line.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "PENDING"
	ItemStatusCooking   ItemStatus = "COOKING"
	ItemStatusReady     ItemStatus = "READY"
	ItemStatusServed    ItemStatus = "SERVED"
	ItemStatusCancelled ItemStatus = "CANCELLED"
)

// itemTransitions lists the legal forward edges of the item state machine.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusPending: {ItemStatusCooking, ItemStatusCancelled},
	ItemStatusCooking: {ItemStatusReady, ItemStatusCancelled},
	ItemStatusReady:   {ItemStatusServed, ItemStatusCancelled},
}

func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusServed || s == ItemStatusCancelled
}

// InKitchen reports whether the item still needs kitchen or pickup attention.
func (s ItemStatus) InKitchen() bool {
	return s == ItemStatusPending || s == ItemStatusCooking || s == ItemStatusReady
}

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusPending, ItemStatusCooking, ItemStatusReady, ItemStatusServed, ItemStatusCancelled:
		return true
	}
	return false
}

// CanTransitionItem reports whether from -> to is a legal item edge.
func CanTransitionItem(from, to ItemStatus) bool {
	return slices.Contains(itemTransitions[from], to)
}

type Order struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Code              string          `json:"code" db:"code"`
	TableID           uuid.UUID       `json:"table_id" db:"table_id"`
	StaffID           uuid.UUID       `json:"staff_id" db:"staff_id"`
	Status            OrderStatus     `json:"status" db:"status"`
	GuestCount        int             `json:"guest_count" db:"guest_count"`
	CustomerTier      CustomerTier    `json:"customer_tier" db:"customer_tier"`
	Subtotal          Money           `json:"subtotal" db:"subtotal"`
	DiscountPercent   decimal.Decimal `json:"discount_percent" db:"discount_percent"`
	DiscountAmount    Money           `json:"discount_amount" db:"discount_amount"`
	PromotionID       *uuid.UUID      `json:"promotion_id,omitempty" db:"promotion_id"`
	PromotionDiscount Money           `json:"promotion_discount" db:"promotion_discount"`
	TaxPercent        decimal.Decimal `json:"tax_percent" db:"tax_percent"`
	TaxAmount         Money           `json:"tax_amount" db:"tax_amount"`
	ServiceCharge     Money           `json:"service_charge" db:"service_charge"`
	TotalAmount       Money           `json:"total_amount" db:"total_amount"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledBy       *uuid.UUID      `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelReason      *string         `json:"cancel_reason,omitempty" db:"cancel_reason"`
	Items             []*OrderDetail  `json:"items"`

	// Promotion is the snapshot used to re-evaluate PromotionDiscount when lines change.
	// Orders hydrated from the store keep PromotionDiscount fixed.
	Promotion *Promotion `json:"-"`
}

// OrderDetail is one product line of an order.
type OrderDetail struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	OrderID         uuid.UUID  `json:"order_id" db:"order_id"`
	ProductID       uuid.UUID  `json:"product_id" db:"product_id"`
	ProductName     string     `json:"product_name" db:"product_name"`
	Quantity        int        `json:"quantity" db:"quantity"`
	OriginalPrice   Money      `json:"original_price" db:"original_price"`
	UnitPrice       Money      `json:"unit_price" db:"unit_price"`
	Subtotal        Money      `json:"subtotal" db:"subtotal"`
	Status          ItemStatus `json:"status" db:"status"`
	Modifiers       []Modifier `json:"modifiers,omitempty" db:"modifiers"`
	Note            *string    `json:"note,omitempty" db:"note"`
	SentToKitchenAt *time.Time `json:"sent_to_kitchen_at,omitempty" db:"sent_to_kitchen_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CancelledBy     *uuid.UUID `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelReason    *string    `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Reprice recomputes the unit price from modifiers and the line subtotal.
func (d *OrderDetail) Reprice() {
	d.UnitPrice = d.OriginalPrice + ModifierDelta(d.Modifiers)
	d.Subtotal = d.UnitPrice * Money(d.Quantity)
}

func (d *OrderDetail) Clone() *OrderDetail {
	c := *d
	c.Modifiers = slices.Clone(d.Modifiers)
	return &c
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]*OrderDetail, len(o.Items))
	for i, item := range o.Items {
		c.Items[i] = item.Clone()
	}
	return &c
}

func (o *Order) FindItem(itemID uuid.UUID) *OrderDetail {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

// FindPendingLine returns the PENDING line for productID carrying the same
// modifiers and note, the line a repeated add merges into.
func (o *Order) FindPendingLine(productID uuid.UUID, modifiers []Modifier, note *string) *OrderDetail {
	for _, item := range o.Items {
		if item.ProductID == productID && item.Status == ItemStatusPending &&
			SameModifiers(item.Modifiers, modifiers) && noteText(item.Note) == noteText(note) {
			return item
		}
	}
	return nil
}

// FindProductLine returns the first PENDING line for productID, or failing
// that the first line of any status.
func (o *Order) FindProductLine(productID uuid.UUID) *OrderDetail {
	var fallback *OrderDetail
	for _, item := range o.Items {
		if item.ProductID != productID {
			continue
		}
		if item.Status == ItemStatusPending {
			return item
		}
		if fallback == nil {
			fallback = item
		}
	}
	return fallback
}

func noteText(note *string) string {
	if note == nil {
		return ""
	}
	return *note
}

func (o *Order) RemoveItem(itemID uuid.UUID) {
	o.Items = slices.DeleteFunc(o.Items, func(d *OrderDetail) bool { return d.ID == itemID })
}

// KitchenItems returns lines that are still PENDING, COOKING or READY.
func (o *Order) KitchenItems() []*OrderDetail {
	var out []*OrderDetail
	for _, item := range o.Items {
		if item.Status.InKitchen() {
			out = append(out, item)
		}
	}
	return out
}

// SentToKitchen reports whether any line was ever sent to the kitchen.
func (o *Order) SentToKitchen() bool {
	for _, item := range o.Items {
		if item.SentToKitchenAt != nil {
			return true
		}
	}
	return false
}

// RecalculateTotals recomputes every derived money field from the lines and rates.
// Cancelled lines do not contribute to the subtotal.
func RecalculateTotals(o *Order) {
	var subtotal Money
	for _, item := range o.Items {
		item.Reprice()
		if item.Status == ItemStatusCancelled {
			continue
		}
		subtotal += item.Subtotal
	}
	o.Subtotal = subtotal

	switch {
	case o.DiscountPercent.IsPositive():
		o.DiscountAmount = subtotal.PercentHalfUp(o.DiscountPercent)
	case o.PromotionDiscount > 0:
		o.DiscountAmount = MinMoney(o.PromotionDiscount, subtotal)
	default:
		o.DiscountAmount = 0
	}

	afterDiscount := subtotal - o.DiscountAmount
	if o.TaxPercent.IsPositive() {
		o.TaxAmount = afterDiscount.PercentHalfUp(o.TaxPercent)
	} else {
		o.TaxAmount = 0
	}
	o.TotalAmount = afterDiscount + o.TaxAmount + o.ServiceCharge
}

// Reconciles reports whether the stored total satisfies the money invariant.
func (o *Order) Reconciles() bool {
	return o.TotalAmount == (o.Subtotal-o.DiscountAmount)+o.TaxAmount+o.ServiceCharge
}
