package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"restopos/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type TableRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    TableRepository
	tableID uuid.UUID
	now     time.Time
	context context.Context
}

func (suite *TableRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewTableRepo(mock)
	suite.tableID = uuid.New()
	suite.now = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	suite.context = context.Background()
}

func (suite *TableRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestTableRepoTestSuite(t *testing.T) {
	suite.Run(t, new(TableRepoTestSuite))
}

func (suite *TableRepoTestSuite) TestCreate_Success() {
	table := &models.Table{
		ID:        suite.tableID,
		Name:      "T1",
		Capacity:  4,
		Area:      "Main",
		Status:    models.TableStatusAvailable,
		UpdatedAt: suite.now,
	}

	suite.mock.ExpectExec(`INSERT INTO dining_tables`).
		WithArgs(table.ID, table.Name, table.Capacity, table.Area, table.Status, table.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, table)
	assert.NoError(suite.T(), err)
}

func (suite *TableRepoTestSuite) TestGetByID_Occupied() {
	orderID := uuid.New()
	since := suite.now.Add(-30 * time.Minute)
	rows := pgxmock.NewRows([]string{"id", "name", "capacity", "area", "status", "current_order_id", "guest_count", "occupied_since", "updated_at"}).
		AddRow(suite.tableID, "T1", 4, "Main", models.TableStatusOccupied, &orderID, 3, &since, suite.now)

	suite.mock.ExpectQuery(`SELECT id, name, capacity, area, status, current_order_id, guest_count, occupied_since, updated_at\s+FROM dining_tables\s+WHERE id = \$1`).
		WithArgs(suite.tableID).
		WillReturnRows(rows)

	table, err := suite.repo.GetByID(suite.context, suite.tableID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TableStatusOccupied, table.Status)
	assert.Equal(suite.T(), orderID, *table.CurrentOrderID)
	assert.Equal(suite.T(), 3, table.GuestCount)
	assert.Equal(suite.T(), since, *table.OccupiedSince)
}

func (suite *TableRepoTestSuite) TestGetByID_NotFound() {
	suite.mock.ExpectQuery(`FROM dining_tables`).
		WithArgs(suite.tableID).
		WillReturnError(pgx.ErrNoRows)

	table, err := suite.repo.GetByID(suite.context, suite.tableID)
	assert.Nil(suite.T(), table)
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
}

func (suite *TableRepoTestSuite) TestList_OrderedByName() {
	rows := pgxmock.NewRows([]string{"id", "name", "capacity", "area", "status", "current_order_id", "guest_count", "occupied_since", "updated_at"}).
		AddRow(uuid.New(), "A1", 2, "Patio", models.TableStatusAvailable, nil, 0, nil, suite.now).
		AddRow(uuid.New(), "B1", 6, "Main", models.TableStatusReserved, nil, 0, nil, suite.now)

	suite.mock.ExpectQuery(`FROM dining_tables\s+ORDER BY name ASC`).WillReturnRows(rows)

	tables, err := suite.repo.List(suite.context)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), tables, 2)
	assert.Equal(suite.T(), "A1", tables[0].Name)
	assert.Nil(suite.T(), tables[0].CurrentOrderID)
	assert.Equal(suite.T(), models.TableStatusReserved, tables[1].Status)
}

func (suite *TableRepoTestSuite) TestOpen_GuardsOnAvailable() {
	orderID := uuid.New()
	suite.mock.ExpectExec(`UPDATE dining_tables`).
		WithArgs(models.TableStatusOccupied, orderID, 2, suite.now, suite.tableID, models.TableStatusAvailable).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.Open(suite.context, suite.tableID, orderID, 2, suite.now)
	assert.NoError(suite.T(), err)
}

func (suite *TableRepoTestSuite) TestOpen_AlreadyOccupied() {
	orderID := uuid.New()
	suite.mock.ExpectExec(`UPDATE dining_tables`).
		WithArgs(models.TableStatusOccupied, orderID, 2, suite.now, suite.tableID, models.TableStatusAvailable).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.Open(suite.context, suite.tableID, orderID, 2, suite.now)
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
}

func (suite *TableRepoTestSuite) TestClose_ClearsBinding() {
	suite.mock.ExpectExec(`current_order_id = NULL, guest_count = 0, occupied_since = NULL`).
		WithArgs(models.TableStatusAvailable, suite.now, suite.tableID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.Close(suite.context, suite.tableID, suite.now)
	assert.NoError(suite.T(), err)
}

func (suite *TableRepoTestSuite) TestUpdateStatus_DatabaseError() {
	suite.mock.ExpectExec(`UPDATE dining_tables SET status`).
		WithArgs(models.TableStatusCleaning, suite.now, suite.tableID).
		WillReturnError(errors.New("connection reset"))

	err := suite.repo.UpdateStatus(suite.context, suite.tableID, models.TableStatusCleaning, suite.now)
	assert.EqualError(suite.T(), err, "connection reset")
}
