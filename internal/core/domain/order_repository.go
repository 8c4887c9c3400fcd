package domain

import (
	"context"
	"time"

	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
)

// OrderRepository is the order registry: the only shared mutable state of
// the bridge. Implementations must serialize updates per order id, so
// that an UpdateOrder callback observes the latest committed record and
// its result is never lost to a concurrent writer of the same id.
type OrderRepository interface {
	// GetOrder returns a copy of the order with the given id, or
	// ErrOrderNotFound.
	GetOrder(ctx context.Context, id uint256.Uint256) (*SwapOrder, error)
	// GetAllOrders returns a snapshot of all tracked orders. Each entry is
	// internally consistent; the set as a whole may interleave with
	// concurrent updates.
	GetAllOrders(ctx context.Context) ([]*SwapOrder, error)
	// UpdateOrder atomically applies updateFn to the order with the given
	// id, creating a fresh order in New state if none is tracked yet. The
	// order returned by updateFn replaces the stored one; returning an
	// error aborts the update and leaves the stored order untouched.
	UpdateOrder(
		ctx context.Context, id uint256.Uint256,
		updateFn func(o *SwapOrder) (*SwapOrder, error),
	) error
	// EvictOrder removes a terminal order whose retention window elapsed.
	// Returns ErrOrderNotEvictable if the order is still live or too
	// recent, ErrOrderNotFound if untracked.
	EvictOrder(
		ctx context.Context, id uint256.Uint256,
		now time.Time, retention time.Duration,
	) error
}
