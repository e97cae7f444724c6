package services

import (
	"context"
	"io"
	"sync"
	"time"

	"restopos/internal/models"
	"restopos/internal/repositories"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) ListOpen(ctx context.Context) ([]*models.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

type MockOrderDetailRepository struct {
	mock.Mock
}

func (m *MockOrderDetailRepository) Create(ctx context.Context, detail *models.OrderDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

func (m *MockOrderDetailRepository) Update(ctx context.Context, detail *models.OrderDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

func (m *MockOrderDetailRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderDetailRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*models.OrderDetail, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OrderDetail), args.Error(1)
}

func (m *MockOrderDetailRepository) ListKitchenItems(ctx context.Context) ([]models.KitchenTicket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.KitchenTicket), args.Error(1)
}

func (m *MockOrderDetailRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ItemStatus, at time.Time) error {
	args := m.Called(ctx, id, status, at)
	return args.Error(0)
}

func (m *MockOrderDetailRepository) MarkSentToKitchen(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	args := m.Called(ctx, ids, at)
	return args.Error(0)
}

func (m *MockOrderDetailRepository) CancelOpenItems(ctx context.Context, orderID, by uuid.UUID, reason string, at time.Time) error {
	args := m.Called(ctx, orderID, by, reason, at)
	return args.Error(0)
}

// fakeOrderStore runs InTx against the mock repositories and records how each
// transaction ended.
type fakeOrderStore struct {
	orders  *MockOrderRepository
	details *MockOrderDetailRepository

	mu        sync.Mutex
	inTx      bool
	commits   int
	rollbacks int
}

func (f *fakeOrderStore) Orders() repositories.OrderRepository {
	return f.orders
}

func (f *fakeOrderStore) Details() repositories.OrderDetailRepository {
	return f.details
}

func (f *fakeOrderStore) InTx(ctx context.Context, fn func(orders repositories.OrderRepository, details repositories.OrderDetailRepository) error) error {
	f.mu.Lock()
	f.inTx = true
	f.mu.Unlock()

	err := fn(f.orders, f.details)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inTx = false
	if err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

func (f *fakeOrderStore) inTransaction() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inTx
}

type MockPromotionRepository struct {
	mock.Mock
}

func (m *MockPromotionRepository) ListActive(ctx context.Context, now time.Time) ([]*models.Promotion, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSplitBillRepository struct {
	mock.Mock
}

func (m *MockSplitBillRepository) Create(ctx context.Context, split *models.SplitBill) error {
	args := m.Called(ctx, split)
	return args.Error(0)
}

func (m *MockSplitBillRepository) MarkPartPaid(ctx context.Context, partID uuid.UUID, method models.PaymentMethod, at time.Time) error {
	args := m.Called(ctx, partID, method, at)
	return args.Error(0)
}

func (m *MockSplitBillRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SplitBill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SplitBill), args.Error(1)
}

type MockObjectUploader struct {
	mock.Mock
}

func (m *MockObjectUploader) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockObjectUploader) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectUploader) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

type MockReceiptArchiver struct {
	mock.Mock
}

func (m *MockReceiptArchiver) Archive(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// recordingTickets captures what the ledger hands the kitchen.
type recordingTickets struct {
	mu        sync.Mutex
	published []models.KitchenTicket
	retired   []uuid.UUID
}

func (r *recordingTickets) Publish(ticket models.KitchenTicket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, ticket.Clone())
}

func (r *recordingTickets) Retire(ticketID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retired = append(r.retired, ticketID)
}

func (r *recordingTickets) last() models.KitchenTicket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.published[len(r.published)-1]
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (r *recordingEvents) PublishOrderEvent(event models.OrderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEvents) types() []models.OrderEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.OrderEventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
