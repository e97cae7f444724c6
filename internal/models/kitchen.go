package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// KitchenTicket is the kitchen-facing projection of one order. Its ID is the order ID.
type KitchenTicket struct {
	ID        uuid.UUID     `json:"id"`
	OrderCode string        `json:"order_code"`
	TableName string        `json:"table_name"`
	CreatedAt time.Time     `json:"created_at"`
	Items     []KitchenItem `json:"items"`
}

type KitchenItem struct {
	ItemID          uuid.UUID  `json:"item_id"`
	ProductID       uuid.UUID  `json:"product_id"`
	ProductName     string     `json:"product_name"`
	Quantity        int        `json:"quantity"`
	Status          ItemStatus `json:"status"`
	Modifiers       []Modifier `json:"modifiers,omitempty"`
	Note            *string    `json:"note,omitempty"`
	SentToKitchenAt *time.Time `json:"sent_to_kitchen_at,omitempty"`
}

func (t KitchenTicket) Clone() KitchenTicket {
	c := t
	c.Items = make([]KitchenItem, len(t.Items))
	for i, item := range t.Items {
		item.Modifiers = slices.Clone(item.Modifiers)
		c.Items[i] = item
	}
	return c
}

func (t KitchenTicket) HasStatus(status ItemStatus) bool {
	return slices.ContainsFunc(t.Items, func(i KitchenItem) bool { return i.Status == status })
}

type Urgency string

const (
	UrgencyNormal  Urgency = "NORMAL"
	UrgencyWarning Urgency = "WARNING"
	UrgencyUrgent  Urgency = "URGENT"
)

// TicketView is a ticket classified at read time.
type TicketView struct {
	KitchenTicket
	Urgency Urgency       `json:"urgency"`
	Elapsed time.Duration `json:"elapsed"`
}

// TicketDelta builds a ticket carrying only the changed lines, whatever their
// status. Publishing it merges the lines into the order's open ticket.
func TicketDelta(o *Order, tableName string, changed []*OrderDetail) KitchenTicket {
	ticket := KitchenTicket{ID: o.ID, OrderCode: o.Code, TableName: tableName}
	for _, item := range o.Items {
		if item.SentToKitchenAt != nil && (ticket.CreatedAt.IsZero() || item.SentToKitchenAt.Before(ticket.CreatedAt)) {
			ticket.CreatedAt = *item.SentToKitchenAt
		}
	}
	for _, item := range changed {
		ticket.Items = append(ticket.Items, KitchenItemFrom(item))
	}
	return ticket
}

func KitchenItemFrom(d *OrderDetail) KitchenItem {
	return KitchenItem{
		ItemID:          d.ID,
		ProductID:       d.ProductID,
		ProductName:     d.ProductName,
		Quantity:        d.Quantity,
		Status:          d.Status,
		Modifiers:       slices.Clone(d.Modifiers),
		Note:            d.Note,
		SentToKitchenAt: d.SentToKitchenAt,
	}
}
