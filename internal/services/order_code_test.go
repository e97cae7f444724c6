package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"restopos/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderCodePattern = regexp.MustCompile(`^ORD-\d{8}-\d{4}$`)

func TestFormatOrderCode(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "ORD-20260304-0007", FormatOrderCode(now, 7))
	assert.Equal(t, "ORD-20260304-9999", FormatOrderCode(now, 9999))
}

func TestMemoryOrderCodeGenerator_UniqueWithinDay(t *testing.T) {
	gen := NewMemoryOrderCodeGenerator(nil)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	seen := make(map[string]bool)
	for range 500 {
		code, err := gen.Next(context.Background(), now)
		require.NoError(t, err)
		assert.Regexp(t, orderCodePattern, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

// Random suffixes can collide; a taken suffix is redrawn.
func TestMemoryOrderCodeGenerator_RetriesCollisions(t *testing.T) {
	draws := []int{42, 42, 42, 43}
	gen := NewMemoryOrderCodeGenerator(func(int) int {
		v := draws[0]
		draws = draws[1:]
		return v
	})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	first, err := gen.Next(context.Background(), now)
	require.NoError(t, err)
	second, err := gen.Next(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, "ORD-20260314-0042", first)
	assert.Equal(t, "ORD-20260314-0043", second)
	assert.Empty(t, draws)
}

func TestMemoryOrderCodeGenerator_NewDayResets(t *testing.T) {
	gen := NewMemoryOrderCodeGenerator(func(int) int { return 1 })
	day := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)

	_, err := gen.Next(context.Background(), day)
	require.NoError(t, err)
	_, err = gen.Next(context.Background(), day)
	assert.ErrorIs(t, err, common.ErrInvalidState, "every draw collides")

	code, err := gen.Next(context.Background(), day.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260315-0001", code)
}

type fakeReserver struct {
	taken map[string]bool
	err   error
}

func (f *fakeReserver) ReserveOrderCode(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.taken[code] {
		return false, nil
	}
	f.taken[code] = true
	return true, nil
}

func TestReservingOrderCodeGenerator(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	reserver := &fakeReserver{taken: map[string]bool{"ORD-20260314-0005": true}}
	draws := []int{5, 6}
	gen := NewReservingOrderCodeGenerator(reserver, func(int) int {
		v := draws[0]
		draws = draws[1:]
		return v
	})

	code, err := gen.Next(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260314-0006", code)

	reserver.err = errors.New("redis: connection refused")
	_, err = NewReservingOrderCodeGenerator(reserver, nil).Next(context.Background(), now)
	assert.ErrorIs(t, err, common.ErrPersistence)
}
