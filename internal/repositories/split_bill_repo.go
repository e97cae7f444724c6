package repositories

import (
	"context"
	"fmt"
	"time"

	"restopos/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SplitBillRepository interface {
	Create(ctx context.Context, split *models.SplitBill) error
	MarkPartPaid(ctx context.Context, partID uuid.UUID, method models.PaymentMethod, at time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SplitBill, error)
}

type splitBillRepo struct {
	db DB
}

func NewSplitBillRepo(db DB) SplitBillRepository {
	return &splitBillRepo{db: db}
}

// Create stores the split with its parts and item assignments in one transaction.
func (r *splitBillRepo) Create(ctx context.Context, split *models.SplitBill) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := insertSplitBill(ctx, tx, split); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func insertSplitBill(ctx context.Context, tx pgx.Tx, split *models.SplitBill) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO split_bills (id, order_id, split_type, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, split.ID, split.OrderID, split.SplitType, split.TotalAmount, split.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert split bill: %w", err)
	}

	for _, part := range split.Parts {
		_, err := tx.Exec(ctx, `
			INSERT INTO split_bill_parts (id, split_bill_id, part_index, amount, paid, payment_method, paid_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, part.ID, split.ID, part.PartIndex, part.Amount, part.Paid, part.PaymentMethod, part.PaidAt)
		if err != nil {
			return fmt.Errorf("failed to insert split part %d: %w", part.PartIndex, err)
		}
	}

	for _, a := range split.Assignments {
		_, err := tx.Exec(ctx, `
			INSERT INTO split_bill_item_assignments (split_bill_id, order_detail_id, part_index, share_count, share_amount)
			VALUES ($1, $2, $3, $4, $5)
		`, split.ID, a.OrderDetailID, a.PartIndex, a.ShareCount, a.ShareAmount)
		if err != nil {
			return fmt.Errorf("failed to insert item assignment: %w", err)
		}
	}
	return nil
}

// MarkPartPaid only touches unpaid parts, so paying twice reports pgx.ErrNoRows.
func (r *splitBillRepo) MarkPartPaid(ctx context.Context, partID uuid.UUID, method models.PaymentMethod, at time.Time) error {
	query := `
		UPDATE split_bill_parts
		SET paid = TRUE, payment_method = $1, paid_at = $2
		WHERE id = $3 AND paid = FALSE
	`
	return expectOneRow(r.db.Exec(ctx, query, method, at, partID))
}

func (r *splitBillRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SplitBill, error) {
	split := &models.SplitBill{}
	err := r.db.QueryRow(ctx, `
		SELECT id, order_id, split_type, total_amount, created_at
		FROM split_bills
		WHERE id = $1
	`, id).Scan(&split.ID, &split.OrderID, &split.SplitType, &split.TotalAmount, &split.CreatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, split_bill_id, part_index, amount, paid, payment_method, paid_at
		FROM split_bill_parts
		WHERE split_bill_id = $1
		ORDER BY part_index ASC
	`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		p := &models.SplitBillPart{}
		if err := rows.Scan(&p.ID, &p.SplitBillID, &p.PartIndex, &p.Amount, &p.Paid, &p.PaymentMethod, &p.PaidAt); err != nil {
			rows.Close()
			return nil, err
		}
		split.Parts = append(split.Parts, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `
		SELECT order_detail_id, part_index, share_count, share_amount
		FROM split_bill_item_assignments
		WHERE split_bill_id = $1
		ORDER BY order_detail_id ASC, part_index ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a models.SplitBillItemAssignment
		if err := rows.Scan(&a.OrderDetailID, &a.PartIndex, &a.ShareCount, &a.ShareAmount); err != nil {
			return nil, err
		}
		split.Assignments = append(split.Assignments, a)
	}
	return split, rows.Err()
}
