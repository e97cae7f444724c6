package models

import (
	"time"

	"github.com/google/uuid"
)

type TableStatus string

const (
	TableStatusAvailable TableStatus = "AVAILABLE"
	TableStatusOccupied  TableStatus = "OCCUPIED"
	TableStatusReserved  TableStatus = "RESERVED"
	TableStatusCleaning  TableStatus = "CLEANING"
)

// Table is a dining table. CurrentOrderID, GuestCount and OccupiedSince are
// only set while the table is OCCUPIED.
type Table struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	Name           string      `json:"name" db:"name"`
	Capacity       int         `json:"capacity" db:"capacity"`
	Area           string      `json:"area" db:"area"`
	Status         TableStatus `json:"status" db:"status"`
	CurrentOrderID *uuid.UUID  `json:"current_order_id,omitempty" db:"current_order_id"`
	GuestCount     int         `json:"guest_count" db:"guest_count"`
	OccupiedSince  *time.Time  `json:"occupied_since,omitempty" db:"occupied_since"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}
