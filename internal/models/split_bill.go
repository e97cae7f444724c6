package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SplitType string

const (
	SplitTypeEqual  SplitType = "EQUAL"
	SplitTypeByItem SplitType = "BY_ITEM"
	SplitTypeCustom SplitType = "CUSTOM"
)

type SplitStatus string

const (
	SplitStatusPending   SplitStatus = "PENDING"
	SplitStatusPartial   SplitStatus = "PARTIAL"
	SplitStatusCompleted SplitStatus = "COMPLETED"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentEWallet  PaymentMethod = "EWALLET"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentEWallet:
		return true
	}
	return false
}

type SplitBill struct {
	ID          uuid.UUID                 `json:"id" db:"id"`
	OrderID     uuid.UUID                 `json:"order_id" db:"order_id"`
	SplitType   SplitType                 `json:"split_type" db:"split_type"`
	TotalAmount Money                     `json:"total_amount" db:"total_amount"`
	Parts       []*SplitBillPart          `json:"parts"`
	Assignments []SplitBillItemAssignment `json:"assignments,omitempty"`
	CreatedAt   time.Time                 `json:"created_at" db:"created_at"`
}

type SplitBillPart struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	SplitBillID   uuid.UUID      `json:"split_bill_id" db:"split_bill_id"`
	PartIndex     int            `json:"part_index" db:"part_index"`
	Amount        Money          `json:"amount" db:"amount"`
	Paid          bool           `json:"paid" db:"paid"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty" db:"payment_method"`
	PaidAt        *time.Time     `json:"paid_at,omitempty" db:"paid_at"`
}

// SplitBillItemAssignment gives one part a share of one order line.
type SplitBillItemAssignment struct {
	OrderDetailID uuid.UUID `json:"order_detail_id" db:"order_detail_id"`
	PartIndex     int       `json:"part_index" db:"part_index"`
	ShareCount    int       `json:"share_count" db:"share_count"`
	ShareAmount   Money     `json:"share_amount" db:"share_amount"`
}

// Status is derived from the parts on every call.
func (s *SplitBill) Status() SplitStatus {
	paid := 0
	for _, p := range s.Parts {
		if p.Paid {
			paid++
		}
	}
	switch {
	case paid == 0:
		return SplitStatusPending
	case paid == len(s.Parts):
		return SplitStatusCompleted
	default:
		return SplitStatusPartial
	}
}

// MarshalJSON encodes the bill with its derived status.
func (s SplitBill) MarshalJSON() ([]byte, error) {
	type plain SplitBill
	return json.Marshal(struct {
		plain
		Status SplitStatus `json:"status"`
	}{plain(s), s.Status()})
}

func (s *SplitBill) PartsTotal() Money {
	var total Money
	for _, p := range s.Parts {
		total += p.Amount
	}
	return total
}

func (s *SplitBill) Clone() *SplitBill {
	c := *s
	c.Parts = make([]*SplitBillPart, len(s.Parts))
	for i, p := range s.Parts {
		pc := *p
		c.Parts[i] = &pc
	}
	c.Assignments = append([]SplitBillItemAssignment(nil), s.Assignments...)
	return &c
}
