package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"restopos/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	kitchenSnapshotKey = "restopos:kitchen:snapshot"
	tableBoardKey      = "restopos:tables"
	orderCodeKeyPrefix = "restopos:ordercode:"
)

// CacheService mirrors engine state into redis for displays running in other
// processes and holds the shared order code reservations.
type CacheService interface {
	// Kitchen display mirror
	SetKitchenSnapshot(ctx context.Context, tickets []models.TicketView, ttl time.Duration) error
	GetKitchenSnapshot(ctx context.Context) ([]models.TicketView, error)

	// Table board
	SetTableBoard(ctx context.Context, tables []*models.Table, ttl time.Duration) error
	GetTableBoard(ctx context.Context) ([]*models.Table, error)

	// Order code reservation
	ReserveOrderCode(ctx context.Context, code string, ttl time.Duration) (bool, error)

	Ping(ctx context.Context) error
	Delete(ctx context.Context, key string) error
}

type redisCacheService struct {
	client redis.UniversalClient
	logger zerolog.Logger
}

// NewRedisCacheService connects to addr, which may carry a redis:// or
// rediss:// scheme.
func NewRedisCacheService(addr, password string, db int, logger zerolog.Logger) CacheService {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})
	svc := NewCacheService(client, logger)

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", parsedAddr).Msg("redis ping failed on initialization")
	} else {
		logger.Debug().Str("addr", parsedAddr).Msg("redis connection established")
	}
	return svc
}

// NewCacheService wraps an existing client.
func NewCacheService(client redis.UniversalClient, logger zerolog.Logger) CacheService {
	return &redisCacheService{client: client, logger: logger.With().Str("component", "cache").Logger()}
}

func (r *redisCacheService) SetKitchenSnapshot(ctx context.Context, tickets []models.TicketView, ttl time.Duration) error {
	return r.setJSON(ctx, kitchenSnapshotKey, tickets, ttl)
}

func (r *redisCacheService) GetKitchenSnapshot(ctx context.Context) ([]models.TicketView, error) {
	var tickets []models.TicketView
	found, err := r.getJSON(ctx, kitchenSnapshotKey, &tickets)
	if err != nil || !found {
		return nil, err
	}
	return tickets, nil
}

func (r *redisCacheService) SetTableBoard(ctx context.Context, tables []*models.Table, ttl time.Duration) error {
	return r.setJSON(ctx, tableBoardKey, tables, ttl)
}

func (r *redisCacheService) GetTableBoard(ctx context.Context) ([]*models.Table, error) {
	var tables []*models.Table
	found, err := r.getJSON(ctx, tableBoardKey, &tables)
	if err != nil || !found {
		return nil, err
	}
	return tables, nil
}

// ReserveOrderCode claims code with SETNX. It returns false when another
// process already holds it.
func (r *redisCacheService) ReserveOrderCode(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, orderCodeKeyPrefix+code, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve order code %s: %w", code, err)
	}
	return ok, nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// getJSON decodes key into v. A missing key is a miss, not an error.
func (r *redisCacheService) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		return false, nil
	}
	return true, nil
}
