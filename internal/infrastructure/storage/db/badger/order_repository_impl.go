package dbbadger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/timshannon/badgerhold/v4"
	"github.com/xbridge-network/xbridge-daemon/internal/core/domain"
	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
)

type orderRepositoryImpl struct {
	store *badgerhold.Store

	// lockersByID serializes read-modify-write cycles per order id, so an
	// UpdateOrder callback never runs against a stale record.
	lockersByID map[uint256.Uint256]*sync.Mutex
	locker      *sync.Mutex
}

func NewOrderRepositoryImpl(store *badgerhold.Store) domain.OrderRepository {
	return &orderRepositoryImpl{
		store:       store,
		lockersByID: map[uint256.Uint256]*sync.Mutex{},
		locker:      &sync.Mutex{},
	}
}

func (r *orderRepositoryImpl) GetOrder(
	_ context.Context, id uint256.Uint256,
) (*domain.SwapOrder, error) {
	return r.getOrder(id)
}

func (r *orderRepositoryImpl) GetAllOrders(
	_ context.Context,
) ([]*domain.SwapOrder, error) {
	var orders []domain.SwapOrder
	if err := r.store.Find(&orders, nil); err != nil {
		return nil, err
	}

	allOrders := make([]*domain.SwapOrder, 0, len(orders))
	for i := range orders {
		allOrders = append(allOrders, &orders[i])
	}
	return allOrders, nil
}

func (r *orderRepositoryImpl) UpdateOrder(
	_ context.Context, id uint256.Uint256,
	updateFn func(o *domain.SwapOrder) (*domain.SwapOrder, error),
) error {
	locker := r.lockerForID(id)
	locker.Lock()
	defer locker.Unlock()

	currentOrder, err := r.getOrder(id)
	if err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			return err
		}
		currentOrder = domain.NewSwapOrder(id)
	}

	updatedOrder, err := updateFn(currentOrder)
	if err != nil {
		return err
	}

	return r.store.Upsert(updatedOrder.ID.String(), *updatedOrder)
}

func (r *orderRepositoryImpl) EvictOrder(
	_ context.Context, id uint256.Uint256,
	now time.Time, retention time.Duration,
) error {
	locker := r.lockerForID(id)
	locker.Lock()
	defer locker.Unlock()

	order, err := r.getOrder(id)
	if err != nil {
		return err
	}
	if !order.IsTerminal() || now.Before(order.LastActivityAt.Add(retention)) {
		return domain.ErrOrderNotEvictable
	}

	return r.store.Delete(id.String(), domain.SwapOrder{})
}

func (r *orderRepositoryImpl) getOrder(id uint256.Uint256) (*domain.SwapOrder, error) {
	var order domain.SwapOrder
	if err := r.store.Get(id.String(), &order); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepositoryImpl) lockerForID(id uint256.Uint256) *sync.Mutex {
	r.locker.Lock()
	defer r.locker.Unlock()

	locker, ok := r.lockersByID[id]
	if !ok {
		locker = &sync.Mutex{}
		r.lockersByID[id] = locker
	}
	return locker
}
