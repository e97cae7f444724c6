package repositories

import (
	"context"
	"time"

	"restopos/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PromotionRepository interface {
	ListActive(ctx context.Context, now time.Time) ([]*models.Promotion, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) error
}

type promotionRepo struct {
	db DB
}

func NewPromotionRepo(db DB) PromotionRepository {
	return &promotionRepo{db: db}
}

const promotionColumns = `id, code, name, type, value, min_order_value, max_discount, start_date, end_date, applicable_days, applicable_hours, usage_limit, used_count, min_customer_tier, active`

func scanPromotion(row pgx.Row) (*models.Promotion, error) {
	p := &models.Promotion{}
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Type, &p.Value, &p.MinOrderValue, &p.MaxDiscount, &p.StartDate,
		&p.EndDate, &p.ApplicableDays, &p.ApplicableHours, &p.UsageLimit, &p.UsedCount, &p.MinCustomerTier, &p.Active)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListActive returns active promotions whose date window contains now. Day, hour
// and usage checks are left to the promotion engine.
func (r *promotionRepo) ListActive(ctx context.Context, now time.Time) ([]*models.Promotion, error) {
	query := `
		SELECT ` + promotionColumns + `
		FROM promotions
		WHERE active = TRUE AND start_date <= $1 AND end_date >= $1
		ORDER BY end_date ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promotions []*models.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promotions = append(promotions, p)
	}
	return promotions, rows.Err()
}

// IncrementUsage counts one use. It returns pgx.ErrNoRows when the promotion
// is missing or its usage limit is already reached.
func (r *promotionRepo) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE promotions SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`
	return expectOneRow(r.db.Exec(ctx, query, id))
}
