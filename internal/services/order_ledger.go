package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"restopos/internal/common"
	"restopos/internal/models"
	"restopos/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TicketPublisher receives kitchen ticket changes. *kitchen.Bus implements it.
type TicketPublisher interface {
	Publish(ticket models.KitchenTicket)
	Retire(ticketID uuid.UUID)
}

// OrderEventPublisher forwards lifecycle events out of process. It must not block.
type OrderEventPublisher interface {
	PublishOrderEvent(event models.OrderEvent)
}

// PromotionEvaluator is the promotion logic the ledger depends on.
type PromotionEvaluator interface {
	Best(ctx context.Context, amount models.Money, tier models.CustomerTier, code *string, now time.Time) (*models.Promotion, models.Money, error)
	IsApplicable(p *models.Promotion, amount models.Money, tier models.CustomerTier) bool
	ComputeDiscount(p *models.Promotion, amount models.Money) models.Money
	RecordUsage(ctx context.Context, promotionID uuid.UUID) error
}

type OrderLedger interface {
	Open(ctx context.Context, tableID, staffID uuid.UUID, guestCount int) (*models.Order, error)
	AddItem(ctx context.Context, orderID uuid.UUID, product models.Product, qty int, modifiers []models.Modifier, note *string) (*models.Order, error)
	UpdateItemQuantity(ctx context.Context, orderID, productID uuid.UUID, qty int) (*models.Order, error)
	RemoveItem(ctx context.Context, orderID, productID uuid.UUID) (*models.Order, error)
	SetDiscount(ctx context.Context, orderID uuid.UUID, percent decimal.Decimal) (*models.Order, error)
	SetTax(ctx context.Context, orderID uuid.UUID, percent decimal.Decimal) (*models.Order, error)
	SetServiceCharge(ctx context.Context, orderID uuid.UUID, amount models.Money) (*models.Order, error)
	SendToKitchen(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	AdvanceItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status models.ItemStatus, actor *uuid.UUID, reason string) (*models.Order, error)
	ApplyPromotion(ctx context.Context, orderID uuid.UUID, code *string, tier models.CustomerTier) (*models.Order, error)
	Complete(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID, byStaffID uuid.UUID, reason string) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ActiveOrders() []*models.Order
	Load(ctx context.Context) error
}

type LedgerOption func(*orderLedger)

func WithReceiptArchiver(a ReceiptArchiver) LedgerOption {
	return func(l *orderLedger) { l.receipts = a }
}

func WithEventPublisher(p OrderEventPublisher) LedgerOption {
	return func(l *orderLedger) { l.events = p }
}

// WithDefaultTax sets the tax rate new orders start with.
func WithDefaultTax(percent decimal.Decimal) LedgerOption {
	return func(l *orderLedger) { l.defaultTax = percent }
}

type orderLedger struct {
	store      repositories.OrderStore
	orders     repositories.OrderRepository
	details    repositories.OrderDetailRepository
	tables     TableTracker
	tickets    TicketPublisher
	promotions PromotionEvaluator
	codes      OrderCodeGenerator
	receipts   ReceiptArchiver
	events     OrderEventPublisher
	clock      clockwork.Clock
	logger     zerolog.Logger
	defaultTax decimal.Decimal

	mu    sync.RWMutex
	open  map[uuid.UUID]*models.Order
	locks *keyedMutex
}

func NewOrderLedger(
	store repositories.OrderStore,
	tables TableTracker,
	tickets TicketPublisher,
	promotions PromotionEvaluator,
	codes OrderCodeGenerator,
	clock clockwork.Clock,
	logger zerolog.Logger,
	opts ...LedgerOption,
) OrderLedger {
	l := &orderLedger{
		store:      store,
		orders:     store.Orders(),
		details:    store.Details(),
		tables:     tables,
		tickets:    tickets,
		promotions: promotions,
		codes:      codes,
		clock:      clock,
		logger:     logger.With().Str("component", "order_ledger").Logger(),
		open:       make(map[uuid.UUID]*models.Order),
		locks:      newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *orderLedger) Open(ctx context.Context, tableID, staffID uuid.UUID, guestCount int) (*models.Order, error) {
	const op = "orders.Open"
	if staffID == uuid.Nil {
		return nil, common.NewValidationError(op, "staff id is required")
	}
	if guestCount < 1 {
		return nil, common.NewValidationError(op, "guest count must be at least 1")
	}
	table, err := l.tables.Get(tableID)
	if err != nil {
		return nil, err
	}
	if table.Status != models.TableStatusAvailable {
		return nil, common.NewInvalidStateError(op, "table %s is %s", table.Name, table.Status)
	}

	now := l.clock.Now()
	code, err := l.codes.Next(ctx, now)
	if err != nil {
		return nil, err
	}
	order := &models.Order{
		ID:           uuid.New(),
		Code:         code,
		TableID:      tableID,
		StaffID:      staffID,
		Status:       models.OrderStatusOpen,
		GuestCount:   guestCount,
		CustomerTier: models.TierRegular,
		TaxPercent:   l.defaultTax,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	models.RecalculateTotals(order)

	if err := l.tables.Open(ctx, tableID, order.ID, guestCount); err != nil {
		if errors.Is(err, common.ErrInvalidTransition) {
			return nil, common.NewInvalidStateError(op, "table %s is not available", table.Name)
		}
		return nil, err
	}
	if err := l.orders.Create(ctx, order); err != nil {
		l.logger.Error().Err(err).Str("table_id", tableID.String()).Msg("failed to create order, releasing table")
		if rbErr := l.tables.Close(ctx, tableID); rbErr != nil {
			l.logger.Error().Err(rbErr).Str("table_id", tableID.String()).Msg("failed to release table after order create failure")
		}
		return nil, common.NewPersistenceError(op, err)
	}

	l.mu.Lock()
	l.open[order.ID] = order
	l.mu.Unlock()

	l.logger.Info().Str("order_id", order.ID.String()).Str("code", order.Code).Str("table_id", tableID.String()).Msg("order opened")
	l.emit(models.OrderEventOpened, order, now)
	return order.Clone(), nil
}

func (l *orderLedger) AddItem(ctx context.Context, orderID uuid.UUID, product models.Product, qty int, modifiers []models.Modifier, note *string) (*models.Order, error) {
	const op = "orders.AddItem"
	if qty <= 0 {
		return nil, common.NewValidationError(op, "quantity must be positive")
	}
	if err := product.Validate(); err != nil {
		return nil, common.NewValidationError(op, "unknown product: %v", err)
	}
	for _, m := range modifiers {
		if err := m.Validate(); err != nil {
			return nil, common.NewValidationError(op, "%v", err)
		}
	}
	if note != nil && strings.TrimSpace(*note) == "" {
		note = nil
	}

	return l.mutate(ctx, op, orderID, func(next *models.Order) error {
		now := l.clock.Now()
		line := next.FindPendingLine(product.ID, modifiers, note)
		merged := line != nil
		if merged {
			line.Quantity += qty
			line.UpdatedAt = now
		} else {
			line = &models.OrderDetail{
				ID:            uuid.New(),
				OrderID:       next.ID,
				ProductID:     product.ID,
				ProductName:   product.Name,
				Quantity:      qty,
				OriginalPrice: product.Price,
				Status:        models.ItemStatusPending,
				Modifiers:     slices.Clone(modifiers),
				Note:          note,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			next.Items = append(next.Items, line)
		}
		l.recalculate(next)

		err := l.commit(ctx, op, next, now, func(details repositories.OrderDetailRepository) error {
			if merged {
				return details.Update(ctx, line)
			}
			return details.Create(ctx, line)
		})
		if err != nil {
			return err
		}
		l.publishDelta(next, line)
		return nil
	})
}

func (l *orderLedger) UpdateItemQuantity(ctx context.Context, orderID, productID uuid.UUID, qty int) (*models.Order, error) {
	if qty <= 0 {
		return l.RemoveItem(ctx, orderID, productID)
	}
	const op = "orders.UpdateItemQuantity"
	return l.mutate(ctx, op, orderID, func(next *models.Order) error {
		line, err := pendingLine(op, next, productID)
		if err != nil {
			return err
		}
		now := l.clock.Now()
		line.Quantity = qty
		line.UpdatedAt = now
		l.recalculate(next)

		err = l.commit(ctx, op, next, now, func(details repositories.OrderDetailRepository) error {
			return details.Update(ctx, line)
		})
		if err != nil {
			return err
		}
		l.publishDelta(next, line)
		return nil
	})
}

func (l *orderLedger) RemoveItem(ctx context.Context, orderID, productID uuid.UUID) (*models.Order, error) {
	const op = "orders.RemoveItem"
	return l.mutate(ctx, op, orderID, func(next *models.Order) error {
		line, err := pendingLine(op, next, productID)
		if err != nil {
			return err
		}
		next.RemoveItem(line.ID)
		l.recalculate(next)

		err = l.commit(ctx, op, next, l.clock.Now(), func(details repositories.OrderDetailRepository) error {
			err := details.Delete(ctx, line.ID)
			if errors.Is(err, pgx.ErrNoRows) {
				return common.NewInvalidStateError(op, "line %s is no longer pending", line.ProductName)
			}
			return err
		})
		if err != nil {
			return err
		}

		removed := line.Clone()
		removed.Status = models.ItemStatusCancelled
		l.publishDelta(next, removed)
		return nil
	})
}

func pendingLine(op string, o *models.Order, productID uuid.UUID) (*models.OrderDetail, error) {
	line := o.FindProductLine(productID)
	if line == nil {
		return nil, common.NewNotFoundError(op, "order line for product", productID)
	}
	if line.Status != models.ItemStatusPending {
		return nil, common.NewInvalidStateError(op, "line %s is %s, only PENDING lines can change", line.ProductName, line.Status)
	}
	return line, nil
}

func validPercent(op, field string, percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return common.NewValidationError(op, "%s must be between 0 and 100", field)
	}
	return nil
}

// SetDiscount sets a manual discount rate. A positive rate replaces any applied promotion.
func (l *orderLedger) SetDiscount(ctx context.Context, orderID uuid.UUID, percent decimal.Decimal) (*models.Order, error) {
	const op = "orders.SetDiscount"
	if err := validPercent(op, "discount percent", percent); err != nil {
		return nil, err
	}
	return l.mutate(ctx, op, orderID, func(next *models.Order) error {
		next.DiscountPercent = percent
		if percent.IsPositive() {
			next.PromotionID = nil
			next.Promotion = nil
			next.PromotionDiscount = 0
		}
		l.recalculate(next)
		return l.saveOrder(ctx, op, next, l.clock.Now())
	})
}

func (l *orderLedger) SetTax(ctx context.Context, orderID uuid.UUID, percent decimal.Decimal) (*models.Order, error) {
	const op = "orders.SetTax"
	if err := validPercent(op, "tax percent", percent); err != nil {
		return nil, err
	}
	return l.mutate(ctx, op, orderID, func(next *models.Order) error {
		next.TaxPercent = percent
		l.recalculate(next)
		return l.saveOrder(ctx, op, next, l.clock.Now())
	})
}

func (l *orderLedger) SetServiceCharge(ctx context.Context, orderID uuid.UUID, amount models.Money) (*models.Order, error) {
	const op = "orders.SetServiceCharge"
	if amount < 0 {
		return nil, common.NewValidationError(op, "service charge cannot be negative")
	}
	return l.mutate(ctx, op, orderID, func(next *models.Order) error {
		next.ServiceCharge = amount
		l.recalculate(next)
		return l.saveOrder(ctx, op, next, l.clock.Now())
	})
}

// SendToKitchen moves every PENDING line to COOKING. With nothing pending it
// returns the order unchanged.
func (l *orderLedger) SendToKitchen(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	const op = "orders.SendToKitchen"
	return l.mutate(ctx, op, orderID, func(next *models.Order) error {
		var pending []*models.OrderDetail
		for _, item := range next.Items {
			if item.Status == models.ItemStatusPending {
				pending = append(pending, item)
			}
		}
		if len(pending) == 0 {
			return nil
		}

		now := l.clock.Now()
		ids := make([]uuid.UUID, len(pending))
		for i, item := range pending {
			ids[i] = item.ID
			item.Status = models.ItemStatusCooking
			item.SentToKitchenAt = &now
			item.UpdatedAt = now
		}
		if err := l.details.MarkSentToKitchen(ctx, ids, now); err != nil {
			return l.persistenceFailure(ctx, op, next.ID, err)
		}

		l.publishDelta(next, pending...)
		l.logger.Info().Str("order_id", next.ID.String()).Int("items", len(pending)).Msg("order sent to kitchen")
		return nil
	})
}

func (l *orderLedger) AdvanceItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status models.ItemStatus, actor *uuid.UUID, reason string) (*models.Order, error) {
	const op = "orders.AdvanceItemStatus"
	if !status.Valid() {
		return nil, common.NewValidationError(op, "unknown item status %q", status)
	}
	return l.mutate(ctx, op, orderID, func(next *models.Order) error {
		line := next.FindItem(itemID)
		if line == nil {
			return common.NewNotFoundError(op, "order line", itemID)
		}
		if !models.CanTransitionItem(line.Status, status) {
			return common.NewInvalidTransitionError(op, line.Status, status)
		}
		reason = strings.TrimSpace(reason)
		if status == models.ItemStatusCancelled && (actor == nil || *actor == uuid.Nil || reason == "") {
			return common.NewValidationError(op, "cancelling a line requires an actor and a reason")
		}

		now := l.clock.Now()
		line.Status = status
		line.UpdatedAt = now

		var err error
		switch status {
		case models.ItemStatusCooking:
			line.SentToKitchenAt = &now
			err = l.details.MarkSentToKitchen(ctx, []uuid.UUID{line.ID}, now)
		case models.ItemStatusCancelled:
			by := *actor
			line.CancelledBy = &by
			line.CancelReason = &reason
			line.CompletedAt = &now
			l.recalculate(next)
			err = l.commit(ctx, op, next, now, func(details repositories.OrderDetailRepository) error {
				return details.Update(ctx, line)
			})
		default:
			if status == models.ItemStatusServed {
				line.CompletedAt = &now
			}
			err = l.details.UpdateStatus(ctx, line.ID, status, now)
		}
		if err != nil {
			if common.KindOf(err) != "" {
				return err
			}
			return l.persistenceFailure(ctx, op, next.ID, err)
		}

		l.publishDelta(next, line)
		if next.SentToKitchen() && len(next.KitchenItems()) == 0 {
			l.tickets.Retire(next.ID)
		}
		return nil
	})
}

// ApplyPromotion selects the best promotion for the order's subtotal and stores
// its discount as a fixed amount.
func (l *orderLedger) ApplyPromotion(ctx context.Context, orderID uuid.UUID, code *string, tier models.CustomerTier) (*models.Order, error) {
	const op = "orders.ApplyPromotion"
	if code != nil && strings.TrimSpace(*code) == "" {
		code = nil
	}
	return l.mutate(ctx, op, orderID, func(next *models.Order) error {
		if tier != "" {
			next.CustomerTier = tier
		}
		now := l.clock.Now()
		promotion, discount, err := l.promotions.Best(ctx, next.Subtotal, next.CustomerTier, code, now)
		if err != nil {
			return err
		}
		id := promotion.ID
		next.PromotionID = &id
		next.Promotion = promotion
		next.PromotionDiscount = discount
		next.DiscountPercent = decimal.Zero
		l.recalculate(next)
		if err := l.saveOrder(ctx, op, next, now); err != nil {
			return err
		}
		l.logger.Info().Str("order_id", next.ID.String()).Str("promotion_id", id.String()).Str("code", common.SafeString(code)).
			Int64("discount", int64(discount)).Msg("promotion applied")
		return nil
	})
}

// Complete closes the tab. Table release, usage counting, archiving and ticket
// retirement follow the store write; their failures are logged only.
func (l *orderLedger) Complete(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	const op = "orders.Complete"
	return l.mutate(ctx, op, orderID, func(next *models.Order) error {
		now := l.clock.Now()
		next.Status = models.OrderStatusCompleted
		next.CompletedAt = &now
		if err := l.saveOrder(ctx, op, next, now); err != nil {
			return err
		}

		log := l.logger.With().Str("order_id", next.ID.String()).Str("table_id", next.TableID.String()).Logger()
		if err := l.tables.Close(ctx, next.TableID); err != nil {
			log.Warn().Err(err).Msg("failed to close table")
		}
		if next.PromotionID != nil && next.PromotionDiscount > 0 {
			if err := l.promotions.RecordUsage(ctx, *next.PromotionID); err != nil {
				log.Warn().Err(err).Str("promotion_id", next.PromotionID.String()).Msg("failed to record promotion usage")
			}
		}
		if l.receipts != nil {
			if err := l.receipts.Archive(ctx, next); err != nil {
				log.Warn().Err(err).Msg("failed to archive receipt")
			}
		}
		l.tickets.Retire(next.ID)
		l.emit(models.OrderEventCompleted, next, now)
		log.Info().Int64("total", int64(next.TotalAmount)).Msg("order completed")
		return nil
	})
}

func (l *orderLedger) Cancel(ctx context.Context, orderID, byStaffID uuid.UUID, reason string) (*models.Order, error) {
	const op = "orders.Cancel"
	reason = strings.TrimSpace(reason)
	if byStaffID == uuid.Nil || reason == "" {
		return nil, common.NewValidationError(op, "cancelling an order requires an actor and a reason")
	}
	return l.mutate(ctx, op, orderID, func(next *models.Order) error {
		now := l.clock.Now()
		for _, item := range next.Items {
			if item.Status.IsTerminal() {
				continue
			}
			item.Status = models.ItemStatusCancelled
			item.CancelledBy = &byStaffID
			item.CancelReason = &reason
			item.CompletedAt = &now
			item.UpdatedAt = now
		}
		next.Status = models.OrderStatusCancelled
		next.CancelledAt = &now
		next.CancelledBy = &byStaffID
		next.CancelReason = &reason
		l.recalculate(next)

		err := l.commit(ctx, op, next, now, func(details repositories.OrderDetailRepository) error {
			return details.CancelOpenItems(ctx, next.ID, byStaffID, reason, now)
		})
		if err != nil {
			return err
		}

		if err := l.tables.Close(ctx, next.TableID); err != nil {
			l.logger.Warn().Err(err).Str("order_id", next.ID.String()).Str("table_id", next.TableID.String()).Msg("failed to release table")
		}
		l.tickets.Retire(next.ID)
		l.emit(models.OrderEventCancelled, next, now)
		l.logger.Info().Str("order_id", next.ID.String()).Str("by", byStaffID.String()).Msg("order cancelled")
		return nil
	})
}

// Get returns an open order from memory, or any order from the store.
func (l *orderLedger) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if o, ok := l.lookup(orderID); ok {
		return o.Clone(), nil
	}
	return l.fetch(ctx, "orders.Get", orderID)
}

func (l *orderLedger) fetch(ctx context.Context, op string, orderID uuid.UUID) (*models.Order, error) {
	o, err := l.orders.GetByID(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError(op, "order", orderID)
	}
	if err != nil {
		return nil, common.NewPersistenceError(op, err)
	}
	items, err := l.details.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, common.NewPersistenceError(op, err)
	}
	o.Items = items
	return o, nil
}

func (l *orderLedger) ActiveOrders() []*models.Order {
	l.mu.RLock()
	out := make([]*models.Order, 0, len(l.open))
	for _, o := range l.open {
		out = append(out, o.Clone())
	}
	l.mu.RUnlock()
	slices.SortFunc(out, func(a, b *models.Order) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return out
}

// Load hydrates the open orders from the store, replacing the in-memory set.
func (l *orderLedger) Load(ctx context.Context) error {
	const op = "orders.Load"
	headers, err := l.orders.ListOpen(ctx)
	if err != nil {
		return common.NewPersistenceError(op, err)
	}
	loaded := make(map[uuid.UUID]*models.Order, len(headers))
	for _, o := range headers {
		items, err := l.details.ListByOrderID(ctx, o.ID)
		if err != nil {
			return common.NewPersistenceError(op, err)
		}
		o.Items = items
		loaded[o.ID] = o
	}

	l.mu.Lock()
	l.open = loaded
	l.mu.Unlock()
	l.logger.Info().Int("count", len(loaded)).Msg("open orders loaded")
	return nil
}

func (l *orderLedger) lookup(orderID uuid.UUID) (*models.Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.open[orderID]
	return o, ok
}

// mutate runs fn against a copy of an OPEN order while holding the order's
// lock. The copy replaces the current state only when fn succeeds, so a failed
// write leaves the order as it was.
func (l *orderLedger) mutate(ctx context.Context, op string, orderID uuid.UUID, fn func(next *models.Order) error) (*models.Order, error) {
	unlock := l.locks.Lock(orderID)
	defer unlock()

	current, ok := l.lookup(orderID)
	if !ok {
		return nil, l.notOpen(ctx, op, orderID)
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if next.Status.IsTerminal() {
		delete(l.open, orderID)
	} else {
		l.open[orderID] = next
	}
	l.mu.Unlock()
	return next.Clone(), nil
}

// notOpen explains why an order is not in the open set.
func (l *orderLedger) notOpen(ctx context.Context, op string, orderID uuid.UUID) error {
	o, err := l.orders.GetByID(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NewNotFoundError(op, "order", orderID)
	}
	if err != nil {
		return common.NewPersistenceError(op, err)
	}
	return common.NewInvalidStateError(op, "order %s is %s", o.Code, o.Status)
}

// recalculate refreshes the totals, re-evaluating an applied promotion against
// the new subtotal first. A promotion that no longer applies is dropped from
// the order and has to be applied again.
func (l *orderLedger) recalculate(o *models.Order) {
	models.RecalculateTotals(o)
	if o.Promotion == nil || o.DiscountPercent.IsPositive() {
		return
	}
	var discount models.Money
	if l.promotions.IsApplicable(o.Promotion, o.Subtotal, o.CustomerTier) {
		discount = l.promotions.ComputeDiscount(o.Promotion, o.Subtotal)
	}
	if discount <= 0 {
		l.logger.Info().Str("order_id", o.ID.String()).Str("promotion_id", o.Promotion.ID.String()).
			Int64("subtotal", int64(o.Subtotal)).Msg("promotion no longer applies, removed")
		o.PromotionID = nil
		o.Promotion = nil
	}
	if discount != o.PromotionDiscount {
		o.PromotionDiscount = discount
		models.RecalculateTotals(o)
	}
}

func (l *orderLedger) saveOrder(ctx context.Context, op string, o *models.Order, now time.Time) error {
	o.UpdatedAt = now
	if err := l.orders.Update(ctx, o); err != nil {
		return l.persistenceFailure(ctx, op, o.ID, err)
	}
	return nil
}

// commit writes the line changes and the order header in one transaction.
func (l *orderLedger) commit(ctx context.Context, op string, o *models.Order, now time.Time,
	lines func(details repositories.OrderDetailRepository) error) error {
	o.UpdatedAt = now
	err := l.store.InTx(ctx, func(orders repositories.OrderRepository, details repositories.OrderDetailRepository) error {
		if err := lines(details); err != nil {
			return err
		}
		return orders.Update(ctx, o)
	})
	if err == nil {
		return nil
	}
	if common.KindOf(err) != "" {
		return err
	}
	return l.persistenceFailure(ctx, op, o.ID, err)
}

func (l *orderLedger) persistenceFailure(ctx context.Context, op string, orderID uuid.UUID, err error) error {
	l.logger.Error().Err(err).Str("order_id", orderID.String()).Str("op", op).
		Str("request_id", common.GetRequestIDFromContext(ctx)).Msg("order write failed")
	return common.NewPersistenceError(op, err)
}

// publishDelta pushes the changed lines to the kitchen once the order has a ticket.
func (l *orderLedger) publishDelta(o *models.Order, changed ...*models.OrderDetail) {
	if !o.SentToKitchen() || len(changed) == 0 {
		return
	}
	l.tickets.Publish(models.TicketDelta(o, l.tableName(o.TableID), changed))
}

func (l *orderLedger) tableName(tableID uuid.UUID) string {
	table, err := l.tables.Get(tableID)
	if err != nil {
		return ""
	}
	return table.Name
}

func (l *orderLedger) emit(t models.OrderEventType, o *models.Order, at time.Time) {
	if l.events == nil {
		return
	}
	l.events.PublishOrderEvent(models.NewOrderEvent(t, o, at))
}
