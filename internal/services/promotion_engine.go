package services

import (
	"bytes"
	"context"
	"strings"
	"time"

	"restopos/internal/common"
	"restopos/internal/models"
	"restopos/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const anyMask = "*"

// PromotionEngine evaluates promotions against an order amount. Only the usage
// counter touches the store.
type PromotionEngine struct {
	repo   repositories.PromotionRepository
	logger zerolog.Logger
}

func NewPromotionEngine(repo repositories.PromotionRepository, logger zerolog.Logger) *PromotionEngine {
	return &PromotionEngine{
		repo:   repo,
		logger: logger.With().Str("component", "promotion_engine").Logger(),
	}
}

// IsValid reports whether the promotion can be used at now: active, inside its
// date window, under its usage limit and inside its day and hour masks.
func (e *PromotionEngine) IsValid(p *models.Promotion, now time.Time) bool {
	if !p.Active {
		return false
	}
	if now.Before(p.StartDate) || now.After(p.EndDate) {
		return false
	}
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return false
	}
	return dayAllowed(p.ApplicableDays, now) && hourAllowed(p.ApplicableHours, now)
}

var weekdayCodes = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

func dayAllowed(mask string, now time.Time) bool {
	mask = strings.TrimSpace(mask)
	if mask == "" || mask == anyMask {
		return true
	}
	today := weekdayCodes[now.Weekday()]
	for _, day := range strings.Split(mask, ",") {
		if strings.EqualFold(strings.TrimSpace(day), today) {
			return true
		}
	}
	return false
}

// hourAllowed checks an inclusive HH:mm-HH:mm window. A window whose end is
// before its start runs past midnight. Malformed masks allow every hour.
func hourAllowed(mask string, now time.Time) bool {
	mask = strings.TrimSpace(mask)
	if mask == "" || mask == anyMask {
		return true
	}
	from, to, ok := strings.Cut(mask, "-")
	if !ok {
		return true
	}
	start, err := time.Parse("15:04", strings.TrimSpace(from))
	if err != nil {
		return true
	}
	end, err := time.Parse("15:04", strings.TrimSpace(to))
	if err != nil {
		return true
	}

	minute := now.Hour()*60 + now.Minute()
	lo := start.Hour()*60 + start.Minute()
	hi := end.Hour()*60 + end.Minute()
	if lo <= hi {
		return minute >= lo && minute <= hi
	}
	return minute >= lo || minute <= hi
}

// IsApplicable checks the order minimum and the customer tier floor.
func (e *PromotionEngine) IsApplicable(p *models.Promotion, amount models.Money, tier models.CustomerTier) bool {
	if amount < p.MinOrderValue {
		return false
	}
	return p.MinCustomerTier == nil || tier.Rank() >= p.MinCustomerTier.Rank()
}

// ComputeDiscount returns the discount for amount. PERCENT rounds down so the
// result never exceeds the exact percentage; every type is clipped to the amount.
func (e *PromotionEngine) ComputeDiscount(p *models.Promotion, amount models.Money) models.Money {
	var discount models.Money
	switch p.Type {
	case models.PromotionPercent:
		discount = amount.PercentFloor(p.Value)
		if p.MaxDiscount != nil {
			discount = models.MinMoney(discount, *p.MaxDiscount)
		}
	case models.PromotionFixed:
		discount = models.Money(p.Value.IntPart())
	default:
		return 0
	}
	discount = models.MinMoney(discount, amount)
	if discount < 0 {
		return 0
	}
	return discount
}

// SelectBest picks the single promotion with the largest discount. Coded
// promotions only take part when code matches, ignoring case. Ties go to the
// promotion that expires first, then to the lowest id.
func (e *PromotionEngine) SelectBest(promotions []*models.Promotion, amount models.Money, tier models.CustomerTier,
	code *string, now time.Time) (*models.Promotion, models.Money, bool) {
	var (
		best         *models.Promotion
		bestDiscount models.Money
	)
	for _, p := range promotions {
		if !p.AutoApply() && (code == nil || !strings.EqualFold(strings.TrimSpace(*p.Code), strings.TrimSpace(*code))) {
			continue
		}
		if !e.IsValid(p, now) || !e.IsApplicable(p, amount, tier) {
			continue
		}
		discount := e.ComputeDiscount(p, amount)
		if discount <= 0 {
			continue
		}
		if best == nil || discount > bestDiscount || (discount == bestDiscount && betterTie(p, best)) {
			best, bestDiscount = p, discount
		}
	}
	return best, bestDiscount, best != nil
}

func betterTie(candidate, current *models.Promotion) bool {
	if !candidate.EndDate.Equal(current.EndDate) {
		return candidate.EndDate.Before(current.EndDate)
	}
	return bytes.Compare(candidate.ID[:], current.ID[:]) < 0
}

// Best loads the promotions in force at now and selects the best one.
func (e *PromotionEngine) Best(ctx context.Context, amount models.Money, tier models.CustomerTier, code *string,
	now time.Time) (*models.Promotion, models.Money, error) {
	promotions, err := e.repo.ListActive(ctx, now)
	if err != nil {
		return nil, 0, common.NewPersistenceError("promotions.Best", err)
	}
	p, discount, ok := e.SelectBest(promotions, amount, tier, code, now)
	if !ok {
		if code != nil {
			return nil, 0, common.NewNotFoundError("promotions.Best", "promotion for code", *code)
		}
		return nil, 0, common.NewNotFoundError("promotions.Best", "promotion for amount", amount)
	}
	return p, discount, nil
}

// RecordUsage increments the promotion's usage counter.
func (e *PromotionEngine) RecordUsage(ctx context.Context, promotionID uuid.UUID) error {
	if err := e.repo.IncrementUsage(ctx, promotionID); err != nil {
		e.logger.Error().Err(err).Str("promotion_id", promotionID.String()).Msg("failed to record promotion usage")
		return common.NewPersistenceError("promotions.RecordUsage", err)
	}
	return nil
}
