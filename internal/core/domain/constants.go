package domain

const (
	// MinTxFee is the fee floor in base units applied when building
	// settlement and refund transactions.
	MinTxFee = 100
	// Coin is the number of base units per whole coin.
	Coin = 1000000

	// MisbehaviorPenalty is added to an order's misbehavior score every
	// time a counterparty message forces the order to Invalid.
	MisbehaviorPenalty = 10
)

// OrderStatus represents the lifecycle state of a swap order.
type OrderStatus int

const (
	OrderStatusNew OrderStatus = iota
	OrderStatusPending
	OrderStatusAccepting
	OrderStatusHold
	OrderStatusCreated
	OrderStatusSigned
	OrderStatusCommitted
	OrderStatusFinished
	OrderStatusRolledBack
	OrderStatusDropped
	OrderStatusCancelled
	OrderStatusInvalid
	OrderStatusExpired
)

// IsTerminal returns whether no further transition is accepted from the
// status.
func (s OrderStatus) IsTerminal() bool {
	return s >= OrderStatusFinished
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusNew:
		return "new"
	case OrderStatusPending:
		return "pending"
	case OrderStatusAccepting:
		return "accepting"
	case OrderStatusHold:
		return "hold"
	case OrderStatusCreated:
		return "created"
	case OrderStatusSigned:
		return "signed"
	case OrderStatusCommitted:
		return "committed"
	case OrderStatusFinished:
		return "finished"
	case OrderStatusRolledBack:
		return "rolledback"
	case OrderStatusDropped:
		return "dropped"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusInvalid:
		return "invalid"
	case OrderStatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}
