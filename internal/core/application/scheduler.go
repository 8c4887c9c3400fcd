package application

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/xbridge-network/xbridge-daemon/internal/core/domain"
	"github.com/xbridge-network/xbridge-daemon/internal/core/ports"
	"github.com/xbridge-network/xbridge-daemon/pkg/circuitbreaker"
	"github.com/xbridge-network/xbridge-daemon/pkg/stats"
	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
	"golang.org/x/time/rate"
)

const (
	// DefaultOrderLifetime is the inactivity deadline after which a live
	// order expires.
	DefaultOrderLifetime = 15 * time.Minute
	// DefaultRetention is how long a terminal order stays queryable before
	// eviction.
	DefaultRetention = time.Hour
	// DefaultMaxBroadcastRetries bounds refund broadcast attempts per
	// order.
	DefaultMaxBroadcastRetries = 5

	// refund broadcasts across all orders share one rate budget
	refundBroadcastsPerSecond = 2
	refundBroadcastBurst      = 4
)

// SchedulerService owns every time-based transition of the registry. Tick
// is meant to run from the bridge timer loop, never concurrently with
// itself.
type SchedulerService interface {
	Tick(ctx context.Context)
}

// Dispatcher hands a unit of work to the bridge worker pool. Chain calls
// made by the tick go through it so a slow backend never stalls the timer
// loop.
type Dispatcher func(task func(ctx context.Context) error) error

type schedulerService struct {
	orderRepository domain.OrderRepository
	chainSvc        ports.ChainBackend
	dispatch        Dispatcher
	breaker         *gobreaker.CircuitBreaker
	limiter         *rate.Limiter

	// orders with a chain call still in flight on the workers, so
	// consecutive ticks never queue duplicates
	inflight     map[uint256.Uint256]struct{}
	inflightLock sync.Mutex

	orderLifetime       time.Duration
	retention           time.Duration
	maxBroadcastRetries int
}

// SchedulerOpts defines the parameters needed for creating a scheduler
// with the NewSchedulerService method. Zero durations and counts fall
// back to the package defaults.
type SchedulerOpts struct {
	OrderRepository domain.OrderRepository
	ChainSvc        ports.ChainBackend
	// Dispatcher offloads chain calls to the worker pool. When nil they
	// run inline on the tick.
	Dispatcher          Dispatcher
	OrderLifetime       time.Duration
	Retention           time.Duration
	MaxBroadcastRetries int
}

func NewSchedulerService(opts SchedulerOpts) SchedulerService {
	orderLifetime := opts.OrderLifetime
	if orderLifetime <= 0 {
		orderLifetime = DefaultOrderLifetime
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	maxBroadcastRetries := opts.MaxBroadcastRetries
	if maxBroadcastRetries <= 0 {
		maxBroadcastRetries = DefaultMaxBroadcastRetries
	}

	dispatch := opts.Dispatcher
	if dispatch == nil {
		dispatch = func(task func(ctx context.Context) error) error {
			return task(context.Background())
		}
	}

	return &schedulerService{
		orderRepository:     opts.OrderRepository,
		chainSvc:            opts.ChainSvc,
		dispatch:            dispatch,
		breaker:             circuitbreaker.NewCircuitBreaker(),
		limiter:             rate.NewLimiter(refundBroadcastsPerSecond, refundBroadcastBurst),
		inflight:            make(map[uint256.Uint256]struct{}),
		orderLifetime:       orderLifetime,
		retention:           retention,
		maxBroadcastRetries: maxBroadcastRetries,
	}
}

// Tick sweeps the whole registry once: confirms committed settlements,
// expires stale orders, drives refunds of aborted swaps and evicts
// terminal orders past retention. A failure on one order never aborts the
// sweep.
func (s *schedulerService) Tick(ctx context.Context) {
	allOrders, err := s.orderRepository.GetAllOrders(ctx)
	if err != nil {
		log.WithError(err).Error("scheduler: failed to snapshot order registry")
		return
	}

	now := time.Now()
	for _, order := range allOrders {
		if err := s.processOrder(ctx, order, now); err != nil {
			log.WithError(err).WithField("order_id", order.ID).
				Warn("scheduler: failed to process order")
		}
	}

	stats.SetOrdersByStatus(countByStatus(allOrders))
}

func (s *schedulerService) processOrder(
	ctx context.Context, order *domain.SwapOrder, now time.Time,
) error {
	if order.IsTerminal() {
		err := s.orderRepository.EvictOrder(ctx, order.ID, now, s.retention)
		if errors.Is(err, domain.ErrOrderNotEvictable) ||
			errors.Is(err, domain.ErrOrderNotFound) {
			return nil
		}
		return err
	}

	if order.Status == domain.OrderStatusCommitted {
		return s.dispatchOnce(order.ID, func(ctx context.Context) error {
			return s.confirmSettlement(ctx, order)
		})
	}

	if order.HasDeposit() && !order.RefundTxID.IsZero() {
		return s.dispatchOnce(order.ID, func(ctx context.Context) error {
			return s.confirmRefund(ctx, order)
		})
	}

	if !order.DeadlineExceeded(now, s.orderLifetime) {
		return nil
	}

	if order.HasDeposit() {
		return s.dispatchOnce(order.ID, func(ctx context.Context) error {
			return s.refundOrder(ctx, order, now)
		})
	}
	return s.expireOrder(ctx, order.ID, now)
}

// dispatchOnce hands the task to the worker pool unless a previous chain
// call for the same order is still in flight.
func (s *schedulerService) dispatchOnce(
	id uint256.Uint256, task func(ctx context.Context) error,
) error {
	s.inflightLock.Lock()
	if _, busy := s.inflight[id]; busy {
		s.inflightLock.Unlock()
		return nil
	}
	s.inflight[id] = struct{}{}
	s.inflightLock.Unlock()

	release := func() {
		s.inflightLock.Lock()
		delete(s.inflight, id)
		s.inflightLock.Unlock()
	}
	if err := s.dispatch(func(ctx context.Context) error {
		defer release()
		return task(ctx)
	}); err != nil {
		// never enqueued, the slot must not stay reserved
		release()
		return err
	}
	return nil
}

func (s *schedulerService) confirmSettlement(
	ctx context.Context, order *domain.SwapOrder,
) error {
	confirmed, err := s.chainSvc.IsConfirmed(ctx, order.FromCurrency, order.PaymentTxID)
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	return s.orderRepository.UpdateOrder(
		ctx, order.ID,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			if _, err := o.Finish(); err != nil {
				return nil, err
			}
			log.WithField("order_id", o.ID).Info("order finished")
			return o, nil
		},
	)
}

// refundOrder broadcasts the refund of an aborted swap and records its
// transaction id; the order rolls back only once a later tick sees that
// transaction confirmed. Once the retry budget is exhausted the order
// expires, the refund stays spendable on chain past its lock time
// regardless.
func (s *schedulerService) refundOrder(
	ctx context.Context, order *domain.SwapOrder, now time.Time,
) error {
	if len(order.RefundTx) == 0 {
		// deadline hit between Hold and Create, nothing broadcastable yet
		return s.expireOrder(ctx, order.ID, now)
	}
	if !s.limiter.Allow() {
		// retry on the next tick
		return nil
	}

	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.chainSvc.Broadcast(ctx, order.FromCurrency, order.RefundTx)
	})
	if err != nil {
		return s.orderRepository.UpdateOrder(
			ctx, order.ID,
			func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
				o.BroadcastAttempts++
				if o.BroadcastAttempts < s.maxBroadcastRetries {
					return o, nil
				}
				if _, err := o.Expire(time.Now(), 0); err != nil {
					return nil, err
				}
				log.WithField("order_id", o.ID).
					Warn("order expired after exhausting refund broadcasts")
				return o, nil
			},
		)
	}

	txid := res.(uint256.Uint256)
	return s.orderRepository.UpdateOrder(
		ctx, order.ID,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			if _, err := o.MarkRefundBroadcast(txid); err != nil {
				return nil, err
			}
			log.WithFields(log.Fields{
				"order_id": o.ID,
				"txid":     txid,
			}).Info("refund broadcast, awaiting confirmation")
			return o, nil
		},
	)
}

// confirmRefund polls the chain for the broadcast refund and rolls the
// order back once it confirmed.
func (s *schedulerService) confirmRefund(
	ctx context.Context, order *domain.SwapOrder,
) error {
	confirmed, err := s.chainSvc.IsConfirmed(ctx, order.FromCurrency, order.RefundTxID)
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	return s.orderRepository.UpdateOrder(
		ctx, order.ID,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			if _, err := o.Rollback(); err != nil {
				return nil, err
			}
			log.WithField("order_id", o.ID).Info("order rolled back")
			return o, nil
		},
	)
}

func (s *schedulerService) expireOrder(
	ctx context.Context, id uint256.Uint256, now time.Time,
) error {
	return s.orderRepository.UpdateOrder(
		ctx, id,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			if _, err := o.Expire(now, s.orderLifetime); err != nil {
				// activity refreshed since the snapshot, skip
				if errors.Is(err, domain.ErrOrderDeadlineNotReached) {
					return o, nil
				}
				return nil, err
			}
			log.WithField("order_id", o.ID).Info("order expired")
			return o, nil
		},
	)
}

func countByStatus(orders []*domain.SwapOrder) map[string]int {
	counts := map[string]int{}
	for _, order := range orders {
		counts[order.Status.String()]++
	}
	return counts
}
