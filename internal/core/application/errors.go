package application

import "errors"

var (
	// ErrServiceUnavailable is the error returned to callers in case of
	// internal errors
	ErrServiceUnavailable = errors.New("service is unavailable, try again later")
	// ErrMalformedSettlement ...
	ErrMalformedSettlement = errors.New("settlement transaction is malformed")
	// ErrSettlementIDMismatch is returned when a signed settlement does not
	// spend the deposits of the order it claims to settle.
	ErrSettlementIDMismatch = errors.New("settlement does not match order deposits")
	// ErrBroadcastUnavailable is returned when the chain backend refused a
	// broadcast and the circuit breaker is open.
	ErrBroadcastUnavailable = errors.New("chain backend unavailable for broadcast")
)
