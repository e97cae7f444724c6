package repositories

import (
	"context"
	"fmt"
	"time"

	"restopos/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderDetailRepository interface {
	Create(ctx context.Context, detail *models.OrderDetail) error
	Update(ctx context.Context, detail *models.OrderDetail) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*models.OrderDetail, error)
	ListKitchenItems(ctx context.Context) ([]models.KitchenTicket, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ItemStatus, at time.Time) error
	MarkSentToKitchen(ctx context.Context, ids []uuid.UUID, at time.Time) error
	CancelOpenItems(ctx context.Context, orderID, by uuid.UUID, reason string, at time.Time) error
}

type orderDetailRepo struct {
	db DB
}

func NewOrderDetailRepo(db DB) OrderDetailRepository {
	return &orderDetailRepo{db: db}
}

const orderDetailColumns = `id, order_id, product_id, product_name, quantity, original_price, unit_price, subtotal, status, modifiers, note, sent_to_kitchen_at, completed_at, cancelled_by, cancel_reason, created_at, updated_at`

func (r *orderDetailRepo) Create(ctx context.Context, d *models.OrderDetail) error {
	query := `
		INSERT INTO order_details (` + orderDetailColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.Exec(ctx, query, d.ID, d.OrderID, d.ProductID, d.ProductName, d.Quantity, d.OriginalPrice, d.UnitPrice,
		d.Subtotal, d.Status, d.Modifiers, d.Note, d.SentToKitchenAt, d.CompletedAt, d.CancelledBy, d.CancelReason,
		d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *orderDetailRepo) Update(ctx context.Context, d *models.OrderDetail) error {
	query := `
		UPDATE order_details
		SET quantity = $1, unit_price = $2, subtotal = $3, status = $4, modifiers = $5, note = $6,
			sent_to_kitchen_at = $7, completed_at = $8, cancelled_by = $9, cancel_reason = $10, updated_at = $11
		WHERE id = $12
	`
	return expectOneRow(r.db.Exec(ctx, query, d.Quantity, d.UnitPrice, d.Subtotal, d.Status, d.Modifiers, d.Note,
		d.SentToKitchenAt, d.CompletedAt, d.CancelledBy, d.CancelReason, d.UpdatedAt, d.ID))
}

// Delete removes a line. Only PENDING lines are ever deleted.
func (r *orderDetailRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM order_details WHERE id = $1 AND status = $2`
	return expectOneRow(r.db.Exec(ctx, query, id, models.ItemStatusPending))
}

func (r *orderDetailRepo) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*models.OrderDetail, error) {
	query := `SELECT ` + orderDetailColumns + ` FROM order_details WHERE order_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []*models.OrderDetail
	for rows.Next() {
		d := &models.OrderDetail{}
		if err := rows.Scan(&d.ID, &d.OrderID, &d.ProductID, &d.ProductName, &d.Quantity, &d.OriginalPrice, &d.UnitPrice,
			&d.Subtotal, &d.Status, &d.Modifiers, &d.Note, &d.SentToKitchenAt, &d.CompletedAt, &d.CancelledBy,
			&d.CancelReason, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ListKitchenItems rebuilds the open kitchen tickets from the store: one ticket per
// OPEN order with at least one line sent to the kitchen, carrying the lines still
// PENDING, COOKING or READY. Tickets come back oldest first.
func (r *orderDetailRepo) ListKitchenItems(ctx context.Context) ([]models.KitchenTicket, error) {
	query := `
		WITH sent AS (
			SELECT order_id, MIN(sent_to_kitchen_at) AS first_sent
			FROM order_details
			WHERE sent_to_kitchen_at IS NOT NULL
			GROUP BY order_id
		)
		SELECT o.id, o.code, t.name, s.first_sent, d.id, d.product_id, d.product_name, d.quantity, d.status, d.modifiers, d.note, d.sent_to_kitchen_at
		FROM order_details d
		JOIN orders o ON o.id = d.order_id
		JOIN sent s ON s.order_id = o.id
		JOIN dining_tables t ON t.id = o.table_id
		WHERE o.status = $1 AND d.status = ANY($2)
		ORDER BY s.first_sent ASC, o.code ASC, d.created_at ASC
	`
	kitchenStatuses := []string{
		string(models.ItemStatusPending),
		string(models.ItemStatusCooking),
		string(models.ItemStatusReady),
	}
	rows, err := r.db.Query(ctx, query, models.OrderStatusOpen, kitchenStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.KitchenTicket
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			ticket models.KitchenTicket
			item   models.KitchenItem
		)
		if err := rows.Scan(&ticket.ID, &ticket.OrderCode, &ticket.TableName, &ticket.CreatedAt, &item.ItemID,
			&item.ProductID, &item.ProductName, &item.Quantity, &item.Status, &item.Modifiers, &item.Note,
			&item.SentToKitchenAt); err != nil {
			return nil, err
		}
		i, ok := index[ticket.ID]
		if !ok {
			i = len(tickets)
			index[ticket.ID] = i
			tickets = append(tickets, ticket)
		}
		tickets[i].Items = append(tickets[i].Items, item)
	}
	return tickets, rows.Err()
}

func (r *orderDetailRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ItemStatus, at time.Time) error {
	query := `
		UPDATE order_details
		SET status = $1, completed_at = CASE WHEN $1 IN ('SERVED', 'CANCELLED') THEN $2 ELSE completed_at END, updated_at = $2
		WHERE id = $3
	`
	return expectOneRow(r.db.Exec(ctx, query, status, at, id))
}

// MarkSentToKitchen moves the given PENDING lines to COOKING in one statement.
// If any of them is no longer PENDING nothing is changed.
func (r *orderDetailRepo) MarkSentToKitchen(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	query := `
		WITH target AS (
			SELECT id FROM order_details WHERE id = ANY($3) AND status = $4
		)
		UPDATE order_details
		SET status = $1, sent_to_kitchen_at = $2, updated_at = $2
		WHERE id IN (SELECT id FROM target) AND (SELECT COUNT(*) FROM target) = $5
	`
	tag, err := r.db.Exec(ctx, query, models.ItemStatusCooking, at, ids, models.ItemStatusPending, len(ids))
	if err != nil {
		return err
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("sent %d of %d lines to kitchen: %w", tag.RowsAffected(), len(ids), pgx.ErrNoRows)
	}
	return nil
}

// CancelOpenItems cancels every line of the order that is not yet SERVED or CANCELLED.
func (r *orderDetailRepo) CancelOpenItems(ctx context.Context, orderID, by uuid.UUID, reason string, at time.Time) error {
	query := `
		UPDATE order_details
		SET status = $1, cancelled_by = $2, cancel_reason = $3, completed_at = $4, updated_at = $4
		WHERE order_id = $5 AND status NOT IN ($6, $1)
	`
	_, err := r.db.Exec(ctx, query, models.ItemStatusCancelled, by, reason, at, orderID, models.ItemStatusServed)
	return err
}
