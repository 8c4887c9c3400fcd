package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
	"github.com/xbridge-network/xbridge-daemon/pkg/utxotx"
)

// SwapOrder is the central entity of the bridge: the full lifecycle state
// of one cross-chain atomic swap, the two currencies and amounts, the two
// participants and the settlement artifacts produced during execution.
// All mutation goes through the transition methods; concurrent access is
// serialized per order id by the OrderRepository.
type SwapOrder struct {
	ID uint256.Uint256

	// Routing addresses of the relaying peer and of this node.
	HubAddress  []byte
	SelfAddress []byte

	// Maker leg: the proposing party sends FromAmount of FromCurrency
	// from SourceParty. Taker leg: the counterparty sends ToAmount of
	// ToCurrency towards DestParty.
	SourceParty  []byte
	FromCurrency string
	FromAmount   uint64
	DestParty    []byte
	ToCurrency   string
	ToAmount     uint64

	// Price is the to/from ratio quoted at proposal time.
	Price string

	Maker Participant
	Taker Participant

	Status         OrderStatus
	CreatedAt      time.Time
	LastActivityAt time.Time

	PaymentTxID uint256.Uint256
	PaymentTx   []byte

	// RefundTxID is set once the refund was broadcast; the order only
	// rolls back after that transaction confirmed.
	RefundTxID uint256.Uint256
	RefundTx   []byte

	MakerDeposit   utxotx.OutPoint
	TakerDeposit   utxotx.OutPoint
	MakerDeposited bool
	TakerDeposited bool

	// MisbehaviorScore accumulates protocol violations attributed to the
	// counterparty. It is updated only by the transition methods.
	MisbehaviorScore int

	// BroadcastAttempts counts settlement/refund broadcast retries driven
	// by the scheduler.
	BroadcastAttempts int

	// Revision increases on every mutation, for crash-recovery
	// idempotence of persisted registries.
	Revision uint64
}

// NewSwapOrder returns an order in New state with the given id.
func NewSwapOrder(id uint256.Uint256) *SwapOrder {
	now := time.Now()
	return &SwapOrder{
		ID:             id,
		Status:         OrderStatusNew,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// IsTerminal returns whether the order reached a terminal state.
func (o *SwapOrder) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// HasDeposit returns whether the order reached Hold, ie. deposits were
// recorded and a refund path exists.
func (o *SwapOrder) HasDeposit() bool {
	return o.Status >= OrderStatusHold && o.Status <= OrderStatusCommitted
}

// DeadlineExceeded returns whether the order's deadline relative to its
// last activity has elapsed at the given instant.
func (o *SwapOrder) DeadlineExceeded(now time.Time, timeout time.Duration) bool {
	return !now.Before(o.LastActivityAt.Add(timeout))
}

// Copy returns a deep copy of the order.
func (o *SwapOrder) Copy() *SwapOrder {
	cp := *o
	cp.HubAddress = copyBytes(o.HubAddress)
	cp.SelfAddress = copyBytes(o.SelfAddress)
	cp.SourceParty = copyBytes(o.SourceParty)
	cp.DestParty = copyBytes(o.DestParty)
	cp.PaymentTx = copyBytes(o.PaymentTx)
	cp.RefundTx = copyBytes(o.RefundTx)
	cp.Maker.SourceAddress = copyBytes(o.Maker.SourceAddress)
	cp.Maker.DestAddress = copyBytes(o.Maker.DestAddress)
	cp.Taker.SourceAddress = copyBytes(o.Taker.SourceAddress)
	cp.Taker.DestAddress = copyBytes(o.Taker.DestAddress)
	return &cp
}

// Merge reconciles two records of the same order, typically learned from
// different peers with slightly different local clocks. It is a pure
// function meant to run inside the registry's atomic update. The payload
// of incoming wins, with two invariants: the earliest known creation time
// is preserved (CreatedAt never moves later), and a terminal state never
// regresses.
func Merge(old, incoming *SwapOrder) *SwapOrder {
	if old == nil {
		return incoming.Copy()
	}
	if incoming == nil || old.IsTerminal() {
		return old.Copy()
	}

	merged := incoming.Copy()
	if !old.CreatedAt.IsZero() && old.CreatedAt.Before(merged.CreatedAt) {
		merged.CreatedAt = old.CreatedAt
	}
	if old.Revision > merged.Revision {
		merged.Revision = old.Revision
	}
	merged.Revision++
	merged.LastActivityAt = time.Now()
	return merged
}

// touch refreshes the activity timestamp and advances the revision. Every
// successful transition goes through it.
func (o *SwapOrder) touch() {
	o.LastActivityAt = time.Now()
	o.Revision++
}

// invalidate forces the order to Invalid and charges the misbehavior
// penalty. Only the transition methods call it.
func (o *SwapOrder) invalidate() {
	o.Status = OrderStatusInvalid
	o.MisbehaviorScore += MisbehaviorPenalty
	o.touch()
}

func quotePrice(fromAmount, toAmount uint64) string {
	return decimal.NewFromInt(int64(toAmount)).
		Div(decimal.NewFromInt(int64(fromAmount))).
		Truncate(8).
		String()
}

func copyBytes(buf []byte) []byte {
	if buf == nil {
		return nil
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	return cp
}
