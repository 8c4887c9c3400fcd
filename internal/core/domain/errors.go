package domain

import "errors"

var (
	// ErrOrderFinalized is returned when attempting any transition on an
	// order that already reached a terminal state.
	ErrOrderFinalized = errors.New("order has reached a terminal state")
	// ErrOrderMustBePending ...
	ErrOrderMustBePending = errors.New("order must be in pending state")
	// ErrOrderMustBeAccepting ...
	ErrOrderMustBeAccepting = errors.New("order must be in accepting state")
	// ErrOrderMustBeHold ...
	ErrOrderMustBeHold = errors.New("order must be in hold state")
	// ErrOrderMustBeCreated ...
	ErrOrderMustBeCreated = errors.New("order must be in created or signed state")
	// ErrOrderMustBeSigned ...
	ErrOrderMustBeSigned = errors.New("order must be in signed state")
	// ErrOrderMustBeCommitted ...
	ErrOrderMustBeCommitted = errors.New("order must be in committed state")
	// ErrOrderNothingToRefund is returned when trying to roll back an
	// order that never had a deposit recorded.
	ErrOrderNothingToRefund = errors.New("order has no deposit to refund")
	// ErrOrderAlreadyCommitted is returned when trying to roll back an
	// order whose settlement was already broadcast.
	ErrOrderAlreadyCommitted = errors.New("order settlement already broadcast")
	// ErrOrderDeadlineNotReached is returned by Expire before the order's
	// deadline has elapsed.
	ErrOrderDeadlineNotReached = errors.New("order deadline not reached")
	// ErrOrderUnknownParty is returned when a deposit is attributed to an
	// address that belongs to neither participant.
	ErrOrderUnknownParty = errors.New("party is not a participant of the order")
	// ErrOrderIncompleteParticipant is returned when building settlement
	// artifacts while one of the participants misses an address.
	ErrOrderIncompleteParticipant = errors.New("participant addresses not complete")
	// ErrOrderNotFound ...
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotEvictable is returned when evicting an order that is not
	// terminal or whose retention window has not elapsed yet.
	ErrOrderNotEvictable = errors.New("order is not evictable")
	// ErrRegistryCorrupted signals an internal invariant failure of the
	// order registry. It aborts the affected order only, never the whole
	// runtime.
	ErrRegistryCorrupted = errors.New("order registry corrupted")
)
