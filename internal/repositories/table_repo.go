package repositories

import (
	"context"
	"time"

	"restopos/internal/models"

	"github.com/google/uuid"
)

type TableRepository interface {
	Create(ctx context.Context, table *models.Table) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Table, error)
	List(ctx context.Context) ([]*models.Table, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TableStatus, at time.Time) error
	Open(ctx context.Context, id, orderID uuid.UUID, guestCount int, at time.Time) error
	Close(ctx context.Context, id uuid.UUID, at time.Time) error
}

type tableRepo struct {
	db DB
}

func NewTableRepo(db DB) TableRepository {
	return &tableRepo{db: db}
}

func (r *tableRepo) Create(ctx context.Context, t *models.Table) error {
	query := `
		INSERT INTO dining_tables (id, name, capacity, area, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, t.ID, t.Name, t.Capacity, t.Area, t.Status, t.UpdatedAt)
	return err
}

func (r *tableRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	t := &models.Table{}
	query := `
		SELECT id, name, capacity, area, status, current_order_id, guest_count, occupied_since, updated_at
		FROM dining_tables
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.Capacity, &t.Area, &t.Status, &t.CurrentOrderID,
		&t.GuestCount, &t.OccupiedSince, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *tableRepo) List(ctx context.Context) ([]*models.Table, error) {
	query := `
		SELECT id, name, capacity, area, status, current_order_id, guest_count, occupied_since, updated_at
		FROM dining_tables
		ORDER BY name ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []*models.Table
	for rows.Next() {
		t := &models.Table{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Capacity, &t.Area, &t.Status, &t.CurrentOrderID, &t.GuestCount,
			&t.OccupiedSince, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// UpdateStatus moves a table between the states that carry no order binding.
func (r *tableRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TableStatus, at time.Time) error {
	query := `UPDATE dining_tables SET status = $1, updated_at = $2 WHERE id = $3`
	return expectOneRow(r.db.Exec(ctx, query, status, at, id))
}

// Open binds the table to an order. The status guard keeps a second open from
// overwriting the binding.
func (r *tableRepo) Open(ctx context.Context, id, orderID uuid.UUID, guestCount int, at time.Time) error {
	query := `
		UPDATE dining_tables
		SET status = $1, current_order_id = $2, guest_count = $3, occupied_since = $4, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	return expectOneRow(r.db.Exec(ctx, query, models.TableStatusOccupied, orderID, guestCount, at, id, models.TableStatusAvailable))
}

func (r *tableRepo) Close(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE dining_tables
		SET status = $1, current_order_id = NULL, guest_count = 0, occupied_since = NULL, updated_at = $2
		WHERE id = $3
	`
	return expectOneRow(r.db.Exec(ctx, query, models.TableStatusAvailable, at, id))
}
