package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"restopos/internal/models"
	"restopos/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func()
}

// SetupTestDB connects to TEST_DATABASE_URL, applies the schema and empties
// every table. The test is skipped when no database is configured.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, connString, 4, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	truncate(t, pool)

	return &TestDB{
		Pool: pool,
		Cleanup: func() {
			truncate(t, pool)
			pool.Close()
		},
	}
}

func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		TRUNCATE split_bill_item_assignments, split_bill_parts, split_bills,
			order_details, orders, promotions, dining_tables CASCADE
	`)
	if err != nil {
		t.Fatalf("Failed to truncate test tables: %v", err)
	}
}

// SeedTable inserts an AVAILABLE table.
func SeedTable(t *testing.T, db *TestDB, name string) *models.Table {
	t.Helper()

	table := &models.Table{
		ID:        uuid.New(),
		Name:      name,
		Capacity:  4,
		Area:      "main",
		Status:    models.TableStatusAvailable,
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO dining_tables (id, name, capacity, area, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, table.ID, table.Name, table.Capacity, table.Area, table.Status, table.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}
	return table
}

// SeedPromotion inserts an active promotion valid around now.
func SeedPromotion(t *testing.T, db *TestDB, p *models.Promotion) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO promotions (id, code, name, type, value, min_order_value, max_discount, start_date, end_date,
			applicable_days, applicable_hours, usage_limit, used_count, min_customer_tier, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, p.ID, p.Code, p.Name, p.Type, p.Value, p.MinOrderValue, p.MaxDiscount, p.StartDate, p.EndDate,
		p.ApplicableDays, p.ApplicableHours, p.UsageLimit, p.UsedCount, p.MinCustomerTier, p.Active)
	if err != nil {
		t.Fatalf("Failed to create test promotion: %v", err)
	}
}

func stringPtr(s string) *string {
	return &s
}
