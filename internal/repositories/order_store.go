package repositories

import (
	"context"
	"fmt"
)

// OrderStore gives the ledger its repositories and runs a multi-row order
// change in one transaction.
type OrderStore interface {
	Orders() OrderRepository
	Details() OrderDetailRepository
	// InTx runs fn against repositories bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(orders OrderRepository, details OrderDetailRepository) error) error
}

type orderStore struct {
	db      DB
	orders  OrderRepository
	details OrderDetailRepository
}

func NewOrderStore(db DB) OrderStore {
	return &orderStore{db: db, orders: NewOrderRepo(db), details: NewOrderDetailRepo(db)}
}

func (s *orderStore) Orders() OrderRepository {
	return s.orders
}

func (s *orderStore) Details() OrderDetailRepository {
	return s.details
}

func (s *orderStore) InTx(ctx context.Context, fn func(orders OrderRepository, details OrderDetailRepository) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(NewOrderRepo(tx), NewOrderDetailRepo(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}
