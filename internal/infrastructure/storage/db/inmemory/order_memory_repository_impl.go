package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/xbridge-network/xbridge-daemon/internal/core/domain"
	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
)

type orderRepositoryImpl struct {
	orders map[uint256.Uint256]*domain.SwapOrder
	locker *sync.Mutex
}

// NewOrderRepositoryImpl returns a new inmemory OrderRepository
// implementation.
func NewOrderRepositoryImpl() domain.OrderRepository {
	return &orderRepositoryImpl{
		orders: map[uint256.Uint256]*domain.SwapOrder{},
		locker: &sync.Mutex{},
	}
}

func (r *orderRepositoryImpl) GetOrder(
	_ context.Context, id uint256.Uint256,
) (*domain.SwapOrder, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order.Copy(), nil
}

func (r *orderRepositoryImpl) GetAllOrders(
	_ context.Context,
) ([]*domain.SwapOrder, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	allOrders := make([]*domain.SwapOrder, 0, len(r.orders))
	for _, order := range r.orders {
		allOrders = append(allOrders, order.Copy())
	}
	return allOrders, nil
}

func (r *orderRepositoryImpl) UpdateOrder(
	_ context.Context, id uint256.Uint256,
	updateFn func(o *domain.SwapOrder) (*domain.SwapOrder, error),
) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	currentOrder, ok := r.orders[id]
	if !ok {
		currentOrder = domain.NewSwapOrder(id)
	}

	updatedOrder, err := updateFn(currentOrder.Copy())
	if err != nil {
		return err
	}

	r.orders[id] = updatedOrder
	return nil
}

func (r *orderRepositoryImpl) EvictOrder(
	_ context.Context, id uint256.Uint256,
	now time.Time, retention time.Duration,
) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if !order.IsTerminal() || now.Before(order.LastActivityAt.Add(retention)) {
		return domain.ErrOrderNotEvictable
	}

	delete(r.orders, id)
	return nil
}
