package handlers

import (
	"context"

	"restopos/internal/models"
	"restopos/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockOrderLedger struct {
	mock.Mock
}

func (m *MockOrderLedger) order(args mock.Arguments) (*models.Order, error) {
	if o := args.Get(0); o != nil {
		return o.(*models.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderLedger) Open(ctx context.Context, tableID, staffID uuid.UUID, guestCount int) (*models.Order, error) {
	return m.order(m.Called(ctx, tableID, staffID, guestCount))
}

func (m *MockOrderLedger) AddItem(ctx context.Context, orderID uuid.UUID, product models.Product, qty int, modifiers []models.Modifier, note *string) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, product, qty, modifiers, note))
}

func (m *MockOrderLedger) UpdateItemQuantity(ctx context.Context, orderID, productID uuid.UUID, qty int) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, productID, qty))
}

func (m *MockOrderLedger) RemoveItem(ctx context.Context, orderID, productID uuid.UUID) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, productID))
}

func (m *MockOrderLedger) SetDiscount(ctx context.Context, orderID uuid.UUID, percent decimal.Decimal) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, percent))
}

func (m *MockOrderLedger) SetTax(ctx context.Context, orderID uuid.UUID, percent decimal.Decimal) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, percent))
}

func (m *MockOrderLedger) SetServiceCharge(ctx context.Context, orderID uuid.UUID, amount models.Money) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, amount))
}

func (m *MockOrderLedger) SendToKitchen(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID))
}

func (m *MockOrderLedger) AdvanceItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status models.ItemStatus, actor *uuid.UUID, reason string) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, itemID, status, actor, reason))
}

func (m *MockOrderLedger) ApplyPromotion(ctx context.Context, orderID uuid.UUID, code *string, tier models.CustomerTier) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, code, tier))
}

func (m *MockOrderLedger) Complete(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID))
}

func (m *MockOrderLedger) Cancel(ctx context.Context, orderID, byStaffID uuid.UUID, reason string) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, byStaffID, reason))
}

func (m *MockOrderLedger) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID))
}

func (m *MockOrderLedger) ActiveOrders() []*models.Order {
	args := m.Called()
	return args.Get(0).([]*models.Order)
}

func (m *MockOrderLedger) Load(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockSplitBillService struct {
	mock.Mock
}

func (m *MockSplitBillService) split(args mock.Arguments) (*models.SplitBill, error) {
	if s := args.Get(0); s != nil {
		return s.(*models.SplitBill), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSplitBillService) CreateEqual(ctx context.Context, orderID uuid.UUID, parts int) (*models.SplitBill, error) {
	return m.split(m.Called(ctx, orderID, parts))
}

func (m *MockSplitBillService) CreateByItem(ctx context.Context, orderID uuid.UUID, parts int, assignments []services.ItemAssignment) (*models.SplitBill, error) {
	return m.split(m.Called(ctx, orderID, parts, assignments))
}

func (m *MockSplitBillService) CreateCustom(ctx context.Context, orderID uuid.UUID, amounts []models.Money) (*models.SplitBill, error) {
	return m.split(m.Called(ctx, orderID, amounts))
}

func (m *MockSplitBillService) MarkPaid(ctx context.Context, splitID uuid.UUID, partIndex int, method models.PaymentMethod) (*models.SplitBill, error) {
	return m.split(m.Called(ctx, splitID, partIndex, method))
}

func (m *MockSplitBillService) Get(ctx context.Context, splitID uuid.UUID) (*models.SplitBill, error) {
	return m.split(m.Called(ctx, splitID))
}
