package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PromotionType string

const (
	PromotionPercent  PromotionType = "PERCENT"
	PromotionFixed    PromotionType = "FIXED"
	PromotionBuyXGetY PromotionType = "BUY_X_GET_Y"
	PromotionCombo    PromotionType = "COMBO"
)

// CustomerTier is ordered: REGULAR < SILVER < GOLD < PLATINUM.
type CustomerTier string

const (
	TierRegular  CustomerTier = "REGULAR"
	TierSilver   CustomerTier = "SILVER"
	TierGold     CustomerTier = "GOLD"
	TierPlatinum CustomerTier = "PLATINUM"
)

// Rank returns the ordinal of the tier. Unknown tiers rank as REGULAR.
func (t CustomerTier) Rank() int {
	switch t {
	case TierSilver:
		return 1
	case TierGold:
		return 2
	case TierPlatinum:
		return 3
	}
	return 0
}

// Promotion is a discount rule. A nil Code marks an auto-apply promotion.
// Value is a percent for PERCENT and an amount in minor units for FIXED.
type Promotion struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Code            *string         `json:"code,omitempty" db:"code"`
	Name            string          `json:"name" db:"name"`
	Type            PromotionType   `json:"type" db:"type"`
	Value           decimal.Decimal `json:"value" db:"value"`
	MinOrderValue   Money           `json:"min_order_value" db:"min_order_value"`
	MaxDiscount     *Money          `json:"max_discount,omitempty" db:"max_discount"`
	StartDate       time.Time       `json:"start_date" db:"start_date"`
	EndDate         time.Time       `json:"end_date" db:"end_date"`
	ApplicableDays  string          `json:"applicable_days" db:"applicable_days"`
	ApplicableHours string          `json:"applicable_hours" db:"applicable_hours"`
	UsageLimit      *int            `json:"usage_limit,omitempty" db:"usage_limit"`
	UsedCount       int             `json:"used_count" db:"used_count"`
	MinCustomerTier *CustomerTier   `json:"min_customer_tier,omitempty" db:"min_customer_tier"`
	Active          bool            `json:"active" db:"active"`
}

// AutoApply reports whether the promotion applies without a code.
func (p *Promotion) AutoApply() bool {
	return p.Code == nil
}
