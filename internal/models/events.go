package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderEventType string

const (
	OrderEventOpened    OrderEventType = "order.opened"
	OrderEventCompleted OrderEventType = "order.completed"
	OrderEventCancelled OrderEventType = "order.cancelled"
)

// OrderEvent is a lifecycle notification relayed to out-of-process consumers.
type OrderEvent struct {
	Type        OrderEventType `json:"type"`
	OrderID     uuid.UUID      `json:"order_id"`
	OrderCode   string         `json:"order_code"`
	TableID     uuid.UUID      `json:"table_id"`
	Status      OrderStatus    `json:"status"`
	TotalAmount Money          `json:"total_amount"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

func NewOrderEvent(t OrderEventType, o *Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:        t,
		OrderID:     o.ID,
		OrderCode:   o.Code,
		TableID:     o.TableID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		OccurredAt:  at,
	}
}
