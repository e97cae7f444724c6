package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"restopos/internal/common"
	"restopos/internal/models"
	"restopos/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const MaxSplitParts = 50

func validatePartCount(op string, n int) error {
	if n < 1 || n > MaxSplitParts {
		return common.NewValidationError(op, "number of parts must be between 1 and %d", MaxSplitParts)
	}
	return nil
}

// SplitEqual gives every part ceil(total/n) and takes the overshoot off the last
// part. When that would leave the last part negative the shortfall is taken
// from the parts before it, last to first.
func SplitEqual(total models.Money, n int) ([]models.Money, error) {
	const op = "split.Equal"
	if err := validatePartCount(op, n); err != nil {
		return nil, err
	}
	if total < 0 {
		return nil, common.NewValidationError(op, "total cannot be negative")
	}

	perPart := total.CeilDiv(n)
	parts := make([]models.Money, n)
	for i := range parts {
		parts[i] = perPart
	}
	diff := perPart*models.Money(n) - total
	parts[n-1] -= diff

	if parts[n-1] < 0 {
		owed := -parts[n-1]
		parts[n-1] = 0
		for i := n - 2; i >= 0 && owed > 0; i-- {
			give := models.MinMoney(parts[i], owed)
			parts[i] -= give
			owed -= give
		}
	}
	return parts, nil
}

// ItemAssignment shares one order line between the listed parts.
type ItemAssignment struct {
	OrderDetailID uuid.UUID `json:"order_detail_id"`
	Parts         []int     `json:"parts"`
}

// SplitByItem builds parts from line assignments. A shared line is divided by
// its share count with the remainder on the first share. Every live line must be
// assigned exactly once. Order level adjustments (discount, tax, service charge)
// are spread over the parts in proportion to their item amounts so the parts
// add up to the order total.
func SplitByItem(order *models.Order, n int, assignments []ItemAssignment) ([]models.Money, []models.SplitBillItemAssignment, error) {
	const op = "split.ByItem"
	if err := validatePartCount(op, n); err != nil {
		return nil, nil, err
	}

	parts := make([]models.Money, n)
	var shares []models.SplitBillItemAssignment
	assigned := make(map[uuid.UUID]bool, len(assignments))

	for _, a := range assignments {
		item := order.FindItem(a.OrderDetailID)
		if item == nil || item.Status == models.ItemStatusCancelled {
			return nil, nil, common.NewValidationError(op, "line %s is not a billable line of the order", a.OrderDetailID)
		}
		if assigned[a.OrderDetailID] {
			return nil, nil, common.NewValidationError(op, "line %s is assigned twice", a.OrderDetailID)
		}
		if len(a.Parts) == 0 {
			return nil, nil, common.NewValidationError(op, "line %s has no parts", a.OrderDetailID)
		}
		seen := make(map[int]bool, len(a.Parts))
		for _, p := range a.Parts {
			if p < 0 || p >= n || seen[p] {
				return nil, nil, common.NewValidationError(op, "line %s has an invalid part index %d", a.OrderDetailID, p)
			}
			seen[p] = true
		}
		assigned[a.OrderDetailID] = true

		count := len(a.Parts)
		share := item.Subtotal / models.Money(count)
		remainder := item.Subtotal - share*models.Money(count)
		for i, p := range a.Parts {
			amount := share
			if i == 0 {
				amount += remainder
			}
			parts[p] += amount
			shares = append(shares, models.SplitBillItemAssignment{
				OrderDetailID: a.OrderDetailID,
				PartIndex:     p,
				ShareCount:    count,
				ShareAmount:   amount,
			})
		}
	}

	if missing := ValidateItemCoverage(order, shares); len(missing) > 0 {
		return nil, nil, common.NewValidationError(op, "%d line(s) are not fully assigned", len(missing))
	}

	spreadAdjustment(parts, order.TotalAmount-order.Subtotal, order.Subtotal)
	return parts, shares, nil
}

// spreadAdjustment adds adj to parts in proportion to their current amounts.
// Integer division leftovers go to the first part with an amount.
func spreadAdjustment(parts []models.Money, adj, base models.Money) {
	if adj == 0 {
		return
	}
	first := 0
	for i, p := range parts {
		if p > 0 {
			first = i
			break
		}
	}
	if base <= 0 {
		parts[first] += adj
		return
	}
	var given models.Money
	for i, p := range parts {
		share := adj * p / base
		parts[i] += share
		given += share
	}
	parts[first] += adj - given
}

// ValidateItemCoverage returns the billable lines whose shares do not add up to
// the line subtotal, including lines with no shares at all.
func ValidateItemCoverage(order *models.Order, shares []models.SplitBillItemAssignment) []uuid.UUID {
	sums := make(map[uuid.UUID]models.Money, len(shares))
	for _, s := range shares {
		sums[s.OrderDetailID] += s.ShareAmount
	}
	var uncovered []uuid.UUID
	for _, item := range order.Items {
		if item.Status == models.ItemStatusCancelled {
			continue
		}
		if sums[item.ID] != item.Subtotal {
			uncovered = append(uncovered, item.ID)
		}
	}
	return uncovered
}

// SplitCustom accepts caller supplied amounts when they are non-negative and
// add up to total.
func SplitCustom(total models.Money, amounts []models.Money) ([]models.Money, error) {
	const op = "split.Custom"
	if err := validatePartCount(op, len(amounts)); err != nil {
		return nil, err
	}
	for i, a := range amounts {
		if a < 0 {
			return nil, common.NewValidationError(op, "part %d is negative", i)
		}
	}
	if sum := models.SumMoney(amounts); sum != total {
		return nil, common.NewValidationError(op, "parts add up to %d, expected %d", sum, total)
	}
	return append([]models.Money(nil), amounts...), nil
}

// MarkPaid pays one part. Paying is terminal.
func MarkPaid(split *models.SplitBill, partIndex int, method models.PaymentMethod, now time.Time) error {
	const op = "split.MarkPaid"
	if partIndex < 0 || partIndex >= len(split.Parts) {
		return common.NewValidationError(op, "part %d does not exist", partIndex)
	}
	if !method.Valid() {
		return common.NewValidationError(op, "unknown payment method %q", method)
	}
	part := split.Parts[partIndex]
	if part.Paid {
		return common.NewInvalidTransitionError(op, "PAID", "PAID")
	}
	part.Paid = true
	part.PaymentMethod = &method
	part.PaidAt = &now
	return nil
}

func newSplitBill(orderID uuid.UUID, splitType models.SplitType, total models.Money, amounts []models.Money, now time.Time) *models.SplitBill {
	split := &models.SplitBill{
		ID:          uuid.New(),
		OrderID:     orderID,
		SplitType:   splitType,
		TotalAmount: total,
		CreatedAt:   now,
	}
	for i, amount := range amounts {
		split.Parts = append(split.Parts, &models.SplitBillPart{
			ID:          uuid.New(),
			SplitBillID: split.ID,
			PartIndex:   i,
			Amount:      amount,
		})
	}
	return split
}

// OrderReader is the read side of the ledger the split service needs.
type OrderReader interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type SplitBillService interface {
	CreateEqual(ctx context.Context, orderID uuid.UUID, parts int) (*models.SplitBill, error)
	CreateByItem(ctx context.Context, orderID uuid.UUID, parts int, assignments []ItemAssignment) (*models.SplitBill, error)
	CreateCustom(ctx context.Context, orderID uuid.UUID, amounts []models.Money) (*models.SplitBill, error)
	MarkPaid(ctx context.Context, splitID uuid.UUID, partIndex int, method models.PaymentMethod) (*models.SplitBill, error)
	Get(ctx context.Context, splitID uuid.UUID) (*models.SplitBill, error)
}

type splitBillService struct {
	orders OrderReader
	repo   repositories.SplitBillRepository
	clock  clockwork.Clock
	logger zerolog.Logger

	mu     sync.RWMutex
	splits map[uuid.UUID]*models.SplitBill
	locks  *keyedMutex
}

func NewSplitBillService(orders OrderReader, repo repositories.SplitBillRepository, clock clockwork.Clock, logger zerolog.Logger) SplitBillService {
	return &splitBillService{
		orders: orders,
		repo:   repo,
		clock:  clock,
		logger: logger.With().Str("component", "split_bill").Logger(),
		splits: make(map[uuid.UUID]*models.SplitBill),
		locks:  newKeyedMutex(),
	}
}

func (s *splitBillService) billableOrder(ctx context.Context, op string, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, common.NewInvalidStateError(op, "order %s is cancelled", order.Code)
	}
	return order, nil
}

func (s *splitBillService) CreateEqual(ctx context.Context, orderID uuid.UUID, parts int) (*models.SplitBill, error) {
	order, err := s.billableOrder(ctx, "split.CreateEqual", orderID)
	if err != nil {
		return nil, err
	}
	amounts, err := SplitEqual(order.TotalAmount, parts)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, newSplitBill(orderID, models.SplitTypeEqual, order.TotalAmount, amounts, s.clock.Now()))
}

func (s *splitBillService) CreateByItem(ctx context.Context, orderID uuid.UUID, parts int, assignments []ItemAssignment) (*models.SplitBill, error) {
	order, err := s.billableOrder(ctx, "split.CreateByItem", orderID)
	if err != nil {
		return nil, err
	}
	amounts, shares, err := SplitByItem(order, parts, assignments)
	if err != nil {
		return nil, err
	}
	split := newSplitBill(orderID, models.SplitTypeByItem, order.TotalAmount, amounts, s.clock.Now())
	split.Assignments = shares
	return s.store(ctx, split)
}

func (s *splitBillService) CreateCustom(ctx context.Context, orderID uuid.UUID, amounts []models.Money) (*models.SplitBill, error) {
	order, err := s.billableOrder(ctx, "split.CreateCustom", orderID)
	if err != nil {
		return nil, err
	}
	checked, err := SplitCustom(order.TotalAmount, amounts)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, newSplitBill(orderID, models.SplitTypeCustom, order.TotalAmount, checked, s.clock.Now()))
}

func (s *splitBillService) store(ctx context.Context, split *models.SplitBill) (*models.SplitBill, error) {
	if err := s.repo.Create(ctx, split); err != nil {
		s.logger.Error().Err(err).Str("order_id", split.OrderID.String()).Msg("failed to store split bill")
		return nil, common.NewPersistenceError("split.Create", err)
	}
	s.mu.Lock()
	s.splits[split.ID] = split
	s.mu.Unlock()

	s.logger.Info().Str("split_id", split.ID.String()).Str("type", string(split.SplitType)).Int("parts", len(split.Parts)).Msg("split bill created")
	return split.Clone(), nil
}

func (s *splitBillService) Get(ctx context.Context, splitID uuid.UUID) (*models.SplitBill, error) {
	s.mu.RLock()
	split, ok := s.splits[splitID]
	s.mu.RUnlock()
	if ok {
		return split.Clone(), nil
	}

	split, err := s.repo.GetByID(ctx, splitID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("split.Get", "split bill", splitID)
	}
	if err != nil {
		return nil, common.NewPersistenceError("split.Get", err)
	}
	s.mu.Lock()
	s.splits[splitID] = split
	s.mu.Unlock()
	return split.Clone(), nil
}

func (s *splitBillService) MarkPaid(ctx context.Context, splitID uuid.UUID, partIndex int, method models.PaymentMethod) (*models.SplitBill, error) {
	const op = "split.MarkPaid"
	unlock := s.locks.Lock(splitID)
	defer unlock()

	current, err := s.Get(ctx, splitID)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	now := s.clock.Now()
	if err := MarkPaid(next, partIndex, method, now); err != nil {
		return nil, err
	}

	part := next.Parts[partIndex]
	if err := s.repo.MarkPartPaid(ctx, part.ID, method, now); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewInvalidTransitionError(op, "PAID", "PAID")
		}
		s.logger.Error().Err(err).Str("split_id", splitID.String()).Int("part", partIndex).Msg("failed to mark part paid")
		return nil, common.NewPersistenceError(op, err)
	}

	s.mu.Lock()
	s.splits[splitID] = next
	s.mu.Unlock()

	s.logger.Info().Str("split_id", splitID.String()).Int("part", partIndex).Str("status", string(next.Status())).Msg("split part paid")
	return next.Clone(), nil
}
