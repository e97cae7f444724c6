package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"restopos/internal/common"
	"restopos/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockTableRepository struct {
	mock.Mock
}

func (m *MockTableRepository) Create(ctx context.Context, table *models.Table) error {
	args := m.Called(ctx, table)
	return args.Error(0)
}

func (m *MockTableRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Table), args.Error(1)
}

func (m *MockTableRepository) List(ctx context.Context) ([]*models.Table, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Table), args.Error(1)
}

func (m *MockTableRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TableStatus, at time.Time) error {
	args := m.Called(ctx, id, status, at)
	return args.Error(0)
}

func (m *MockTableRepository) Open(ctx context.Context, id, orderID uuid.UUID, guestCount int, at time.Time) error {
	args := m.Called(ctx, id, orderID, guestCount, at)
	return args.Error(0)
}

func (m *MockTableRepository) Close(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type TableTrackerTestSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *clockwork.FakeClock
	repo    *MockTableRepository
	tracker TableTracker
	tableID uuid.UUID
}

func (s *TableTrackerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC))
	s.repo = new(MockTableRepository)
	s.tracker = NewTableTracker(s.repo, s.clock, zerolog.Nop())
	s.tableID = uuid.New()
	s.tracker.Register(&models.Table{ID: s.tableID, Name: "B2", Capacity: 4})
}

func (s *TableTrackerTestSuite) TearDownTest() {
	s.repo.AssertExpectations(s.T())
}

func (s *TableTrackerTestSuite) status() models.TableStatus {
	table, err := s.tracker.Get(s.tableID)
	s.Require().NoError(err)
	return table.Status
}

func (s *TableTrackerTestSuite) TestOpenAndClose() {
	orderID := uuid.New()
	now := s.clock.Now()
	s.repo.On("Open", mock.Anything, s.tableID, orderID, 3, now).Return(nil).Once()
	s.repo.On("Close", mock.Anything, s.tableID, now).Return(nil).Once()

	s.Require().NoError(s.tracker.Open(s.ctx, s.tableID, orderID, 3))
	table, err := s.tracker.Get(s.tableID)
	s.Require().NoError(err)
	s.Equal(models.TableStatusOccupied, table.Status)
	s.Equal(orderID, *table.CurrentOrderID)
	s.Equal(3, table.GuestCount)
	s.Equal(now, *table.OccupiedSince)

	s.Require().NoError(s.tracker.Close(s.ctx, s.tableID))
	table, err = s.tracker.Get(s.tableID)
	s.Require().NoError(err)
	s.Equal(models.TableStatusAvailable, table.Status)
	s.Nil(table.CurrentOrderID)
	s.Nil(table.OccupiedSince)
	s.Zero(table.GuestCount)
}

func (s *TableTrackerTestSuite) TestIllegalEdges() {
	s.ErrorIs(s.tracker.Close(s.ctx, s.tableID), common.ErrInvalidTransition)
	s.ErrorIs(s.tracker.Release(s.ctx, s.tableID), common.ErrInvalidTransition)

	s.repo.On("UpdateStatus", mock.Anything, s.tableID, models.TableStatusReserved, mock.Anything).Return(nil).Once()
	s.Require().NoError(s.tracker.Reserve(s.ctx, s.tableID))

	s.ErrorIs(s.tracker.Open(s.ctx, s.tableID, uuid.New(), 2), common.ErrInvalidTransition)
	s.ErrorIs(s.tracker.SetCleaning(s.ctx, s.tableID), common.ErrInvalidTransition)
	s.Equal(models.TableStatusReserved, s.status())
}

func (s *TableTrackerTestSuite) TestCleaningCycle() {
	s.repo.On("UpdateStatus", mock.Anything, s.tableID, models.TableStatusCleaning, mock.Anything).Return(nil).Once()
	s.repo.On("UpdateStatus", mock.Anything, s.tableID, models.TableStatusAvailable, mock.Anything).Return(nil).Once()

	s.Require().NoError(s.tracker.SetCleaning(s.ctx, s.tableID))
	s.Equal(models.TableStatusCleaning, s.status())
	s.Require().NoError(s.tracker.Release(s.ctx, s.tableID))
	s.Equal(models.TableStatusAvailable, s.status())
}

func (s *TableTrackerTestSuite) TestUnknownTableAndBadGuestCount() {
	s.ErrorIs(s.tracker.Reserve(s.ctx, uuid.New()), common.ErrNotFound)
	s.ErrorIs(s.tracker.Open(s.ctx, s.tableID, uuid.New(), 0), common.ErrValidation)
}

func (s *TableTrackerTestSuite) TestPersistenceFailureKeepsState() {
	s.repo.On("Open", mock.Anything, s.tableID, mock.Anything, 2, mock.Anything).Return(errors.New("conn closed")).Once()

	err := s.tracker.Open(s.ctx, s.tableID, uuid.New(), 2)
	s.ErrorIs(err, common.ErrPersistence)
	s.Equal(models.TableStatusAvailable, s.status())
}

func (s *TableTrackerTestSuite) TestLoadAndList() {
	s.repo.On("List", mock.Anything).Return([]*models.Table{
		{ID: uuid.New(), Name: "C1", Status: models.TableStatusOccupied},
		{ID: uuid.New(), Name: "A1", Status: models.TableStatusAvailable},
	}, nil).Once()

	s.Require().NoError(s.tracker.Load(s.ctx))
	tables := s.tracker.List()
	s.Require().Len(tables, 2)
	s.Equal("A1", tables[0].Name)
	s.Equal("C1", tables[1].Name)

	_, err := s.tracker.Get(s.tableID)
	s.ErrorIs(err, common.ErrNotFound, "load replaces registered tables")

	s.repo.On("List", mock.Anything).Return(nil, errors.New("timeout")).Once()
	s.ErrorIs(s.tracker.Load(s.ctx), common.ErrPersistence)
	s.Len(s.tracker.List(), 2)
}

func (s *TableTrackerTestSuite) TestLoadOverlappingOpenIsDiscarded() {
	orderID := uuid.New()
	now := s.clock.Now()
	s.repo.On("Open", mock.Anything, s.tableID, orderID, 2, now).Return(nil).Once()
	s.repo.On("Close", mock.Anything, s.tableID, now).Return(nil).Once()

	// The rows are read before the open commits and returned after it.
	stale := []*models.Table{{ID: s.tableID, Name: "B2", Capacity: 4, Status: models.TableStatusAvailable}}
	s.repo.On("List", mock.Anything).Return(stale, nil).Once().Run(func(mock.Arguments) {
		s.Require().NoError(s.tracker.Open(s.ctx, s.tableID, orderID, 2))
	})

	s.Require().NoError(s.tracker.Load(s.ctx))
	table, err := s.tracker.Get(s.tableID)
	s.Require().NoError(err)
	s.Equal(models.TableStatusOccupied, table.Status)
	s.Equal(orderID, *table.CurrentOrderID)

	s.Require().NoError(s.tracker.Close(s.ctx, s.tableID))
	s.Equal(models.TableStatusAvailable, s.status())

	s.repo.On("List", mock.Anything).Return([]*models.Table{
		{ID: s.tableID, Name: "B2", Capacity: 4, Status: models.TableStatusAvailable},
	}, nil).Once()
	s.Require().NoError(s.tracker.Load(s.ctx))
	s.Len(s.tracker.List(), 1)
}

func (s *TableTrackerTestSuite) TestConcurrentOpenOnlyOneWins() {
	s.repo.On("Open", mock.Anything, s.tableID, mock.Anything, 2, mock.Anything).Return(nil).Once()

	errs := make(chan error, 10)
	for range 10 {
		go func() { errs <- s.tracker.Open(s.ctx, s.tableID, uuid.New(), 2) }()
	}
	var ok, conflicts int
	for range 10 {
		err := <-errs
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrInvalidTransition):
			conflicts++
		}
	}
	s.Equal(1, ok)
	s.Equal(9, conflicts)
}

func TestTableTrackerTestSuite(t *testing.T) {
	suite.Run(t, new(TableTrackerTestSuite))
}
