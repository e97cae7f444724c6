package repositories

import (
	"context"

	"restopos/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOpen(ctx context.Context) ([]*models.Order, error)
}

type orderRepo struct {
	db DB
}

func NewOrderRepo(db DB) OrderRepository {
	return &orderRepo{db: db}
}

const orderColumns = `id, code, table_id, staff_id, status, guest_count, customer_tier, subtotal, discount_percent, discount_amount, promotion_id, promotion_discount, tax_percent, tax_amount, service_charge, total_amount, created_at, updated_at, completed_at, cancelled_at, cancelled_by, cancel_reason`

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err := r.db.Exec(ctx, query, o.ID, o.Code, o.TableID, o.StaffID, o.Status, o.GuestCount, o.CustomerTier,
		o.Subtotal, o.DiscountPercent, o.DiscountAmount, o.PromotionID, o.PromotionDiscount, o.TaxPercent, o.TaxAmount,
		o.ServiceCharge, o.TotalAmount, o.CreatedAt, o.UpdatedAt, o.CompletedAt, o.CancelledAt, o.CancelledBy, o.CancelReason)
	return err
}

func (r *orderRepo) Update(ctx context.Context, o *models.Order) error {
	query := `
		UPDATE orders
		SET status = $1, guest_count = $2, customer_tier = $3, subtotal = $4, discount_percent = $5, discount_amount = $6,
			promotion_id = $7, promotion_discount = $8, tax_percent = $9, tax_amount = $10, service_charge = $11,
			total_amount = $12, updated_at = $13, completed_at = $14, cancelled_at = $15, cancelled_by = $16, cancel_reason = $17
		WHERE id = $18
	`
	return expectOneRow(r.db.Exec(ctx, query, o.Status, o.GuestCount, o.CustomerTier, o.Subtotal, o.DiscountPercent,
		o.DiscountAmount, o.PromotionID, o.PromotionDiscount, o.TaxPercent, o.TaxAmount, o.ServiceCharge, o.TotalAmount,
		o.UpdatedAt, o.CompletedAt, o.CancelledAt, o.CancelledBy, o.CancelReason, o.ID))
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(&o.ID, &o.Code, &o.TableID, &o.StaffID, &o.Status, &o.GuestCount, &o.CustomerTier, &o.Subtotal,
		&o.DiscountPercent, &o.DiscountAmount, &o.PromotionID, &o.PromotionDiscount, &o.TaxPercent, &o.TaxAmount,
		&o.ServiceCharge, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt, &o.CancelledAt, &o.CancelledBy,
		&o.CancelReason)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.db.QueryRow(ctx, query, id))
}

// ListOpen returns the headers of every OPEN order, oldest first.
func (r *orderRepo) ListOpen(ctx context.Context) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, models.OrderStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
