package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"restopos/internal/common"
)

const (
	orderCodeSuffixes = 10000
	orderCodeAttempts = 20
	orderCodeTTL      = 24 * time.Hour
)

// OrderCodeGenerator issues ORD-YYYYMMDD-XXXX codes.
type OrderCodeGenerator interface {
	Next(ctx context.Context, now time.Time) (string, error)
}

// CodeReserver claims a code atomically, returning false if it is taken.
type CodeReserver interface {
	ReserveOrderCode(ctx context.Context, code string, ttl time.Duration) (bool, error)
}

func FormatOrderCode(now time.Time, suffix int) string {
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), suffix)
}

type memoryCodeGenerator struct {
	mu     sync.Mutex
	day    string
	issued map[int]struct{}
	intn   func(int) int
}

// NewMemoryOrderCodeGenerator draws random suffixes and remembers the ones
// issued today, so codes are unique within one process. intn defaults to
// math/rand/v2.IntN.
func NewMemoryOrderCodeGenerator(intn func(int) int) OrderCodeGenerator {
	if intn == nil {
		intn = rand.IntN
	}
	return &memoryCodeGenerator{issued: make(map[int]struct{}), intn: intn}
}

func (g *memoryCodeGenerator) Next(ctx context.Context, now time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	day := now.Format("20060102")
	if day != g.day {
		g.day = day
		g.issued = make(map[int]struct{})
	}
	for range orderCodeAttempts {
		suffix := g.intn(orderCodeSuffixes)
		if _, taken := g.issued[suffix]; taken {
			continue
		}
		g.issued[suffix] = struct{}{}
		return FormatOrderCode(now, suffix), nil
	}
	return "", common.NewInvalidStateError("orders.NextCode", "no free order code after %d attempts", orderCodeAttempts)
}

type reservingCodeGenerator struct {
	reserver CodeReserver
	intn     func(int) int
}

// NewReservingOrderCodeGenerator checks every candidate against a shared
// reservation store, so several processes never hand out the same code.
func NewReservingOrderCodeGenerator(reserver CodeReserver, intn func(int) int) OrderCodeGenerator {
	if intn == nil {
		intn = rand.IntN
	}
	return &reservingCodeGenerator{reserver: reserver, intn: intn}
}

func (g *reservingCodeGenerator) Next(ctx context.Context, now time.Time) (string, error) {
	for range orderCodeAttempts {
		code := FormatOrderCode(now, g.intn(orderCodeSuffixes))
		ok, err := g.reserver.ReserveOrderCode(ctx, code, orderCodeTTL)
		if err != nil {
			return "", common.NewPersistenceError("orders.NextCode", err)
		}
		if ok {
			return code, nil
		}
	}
	return "", common.NewInvalidStateError("orders.NextCode", "no free order code after %d attempts", orderCodeAttempts)
}
