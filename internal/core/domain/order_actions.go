package domain

import (
	"bytes"
	"errors"
	"time"

	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
	"github.com/xbridge-network/xbridge-daemon/pkg/utxotx"
)

// ErrMalformedSettlement is returned by Sign when the held payment
// transaction body cannot be decoded anymore. It signals registry
// corruption for this order.
var ErrMalformedSettlement = errors.New("held settlement transaction is malformed")

// Propose brings a New order to Pending by recording the two legs of the
// swap and the routing addresses. A proposal with a zero amount or an
// empty party address is malformed and drops the order instead.
func (o *SwapOrder) Propose(
	sourceParty []byte, fromCurrency string, fromAmount uint64,
	destParty []byte, toCurrency string, toAmount uint64,
	hubAddress, selfAddress []byte,
) (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}
	if o.Status >= OrderStatusPending {
		return true, nil
	}

	if fromAmount == 0 || toAmount == 0 ||
		len(sourceParty) == 0 || len(destParty) == 0 ||
		fromCurrency == "" || toCurrency == "" {
		o.Status = OrderStatusDropped
		o.touch()
		return false, nil
	}

	o.SourceParty = sourceParty
	o.FromCurrency = fromCurrency
	o.FromAmount = fromAmount
	o.DestParty = destParty
	o.ToCurrency = toCurrency
	o.ToAmount = toAmount
	o.Price = quotePrice(fromAmount, toAmount)
	o.HubAddress = hubAddress
	o.SelfAddress = selfAddress
	o.Maker = NewParticipant(sourceParty, destParty)
	o.Status = OrderStatusPending
	o.touch()
	return true, nil
}

// Accept brings a Pending order to Accepting by admitting the
// counterparty, after validating that the amounts and currencies it
// claims exactly mirror the order's legs. A mismatch is a protocol
// violation and forces the order to Invalid.
func (o *SwapOrder) Accept(
	taker Participant,
	fromCurrency string, fromAmount uint64,
	toCurrency string, toAmount uint64,
) (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}
	if o.Status >= OrderStatusAccepting {
		return true, nil
	}
	if o.Status != OrderStatusPending {
		return false, ErrOrderMustBePending
	}

	if fromCurrency != o.FromCurrency || fromAmount != o.FromAmount ||
		toCurrency != o.ToCurrency || toAmount != o.ToAmount {
		o.invalidate()
		return false, nil
	}

	o.Taker = taker
	o.Status = OrderStatusAccepting
	o.touch()
	return true, nil
}

// ObserveDeposit records a confirmed deposit for the participant owning
// the given party address. Once both sides deposited the order moves to
// Hold.
func (o *SwapOrder) ObserveDeposit(
	party []byte, outPoint utxotx.OutPoint,
) (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}
	if o.Status > OrderStatusAccepting {
		return true, nil
	}
	if o.Status != OrderStatusAccepting {
		return false, ErrOrderMustBeAccepting
	}

	switch {
	case bytes.Equal(party, o.Maker.SourceAddress):
		o.MakerDeposit = outPoint
		o.MakerDeposited = true
	case bytes.Equal(party, o.Taker.SourceAddress):
		o.TakerDeposit = outPoint
		o.TakerDeposited = true
	default:
		return false, ErrOrderUnknownParty
	}

	if o.MakerDeposited && o.TakerDeposited {
		o.Status = OrderStatusHold
	}
	o.touch()
	return true, nil
}

// Create brings a Hold order to Created by attaching the constructed,
// not yet signed, settlement and refund transaction bodies. Both
// participants must be complete by now.
func (o *SwapOrder) Create(paymentTx, refundTx []byte) (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}
	if o.Status >= OrderStatusCreated {
		return true, nil
	}
	if o.Status != OrderStatusHold {
		return false, ErrOrderMustBeHold
	}
	if !o.Maker.IsComplete() || !o.Taker.IsComplete() {
		return false, ErrOrderIncompleteParticipant
	}

	o.PaymentTx = paymentTx
	o.RefundTx = refundTx
	o.Status = OrderStatusCreated
	o.touch()
	return true, nil
}

// Sign attaches a fully signed settlement transaction, moving a Created
// order to Signed. A signed transaction arriving while the order is
// already Signed supersedes the held one only if it is a newer
// replacement of it; an older transaction is discarded and the state
// never regresses.
func (o *SwapOrder) Sign(tx *utxotx.Transaction) (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}

	switch o.Status {
	case OrderStatusCreated:
		raw, err := tx.Serialize(utxotx.EncodingExtended)
		if err != nil {
			return false, err
		}
		o.PaymentTx = raw
		o.PaymentTxID = tx.Hash(utxotx.EncodingCompact)
		o.Status = OrderStatusSigned
		o.touch()
		return true, nil
	case OrderStatusSigned:
		held, err := utxotx.Deserialize(o.PaymentTx, utxotx.EncodingExtended)
		if err != nil {
			return false, ErrMalformedSettlement
		}
		if !tx.IsNewerThan(held) {
			return false, nil
		}
		raw, err := tx.Serialize(utxotx.EncodingExtended)
		if err != nil {
			return false, err
		}
		o.PaymentTx = raw
		o.PaymentTxID = tx.Hash(utxotx.EncodingCompact)
		o.touch()
		return true, nil
	default:
		return false, ErrOrderMustBeCreated
	}
}

// Commit brings a Signed order to Committed once the settlement has been
// broadcast. The transaction id reported by the chain backend must match
// the held settlement hash, otherwise the order is forced to Invalid.
func (o *SwapOrder) Commit(txid uint256.Uint256) (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}
	if o.Status >= OrderStatusCommitted {
		return true, nil
	}
	if o.Status != OrderStatusSigned {
		return false, ErrOrderMustBeSigned
	}

	if !o.PaymentTxID.IsZero() && !txid.Equal(o.PaymentTxID) {
		o.invalidate()
		return false, nil
	}

	o.PaymentTxID = txid
	o.Status = OrderStatusCommitted
	o.touch()
	return true, nil
}

// Finish brings a Committed order to the Finished terminal state after
// the chain backend confirmed the settlement transaction.
func (o *SwapOrder) Finish() (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}
	if o.Status != OrderStatusCommitted {
		return false, ErrOrderMustBeCommitted
	}

	o.Status = OrderStatusFinished
	o.touch()
	return true, nil
}

// MarkRefundBroadcast records the transaction id of the refund after its
// broadcast was accepted. The order stays in place, it only rolls back
// once Rollback reports the refund confirmed on chain.
func (o *SwapOrder) MarkRefundBroadcast(txid uint256.Uint256) (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}
	switch {
	case o.Status < OrderStatusHold:
		return false, ErrOrderNothingToRefund
	case o.Status > OrderStatusSigned:
		return false, ErrOrderAlreadyCommitted
	}

	o.RefundTxID = txid
	o.touch()
	return true, nil
}

// Rollback brings an order to the RolledBack terminal state after its
// refund transaction confirmed. It is only reachable after a deposit was
// observed and before the settlement was broadcast.
func (o *SwapOrder) Rollback() (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}
	switch {
	case o.Status < OrderStatusHold:
		return false, ErrOrderNothingToRefund
	case o.Status > OrderStatusSigned:
		return false, ErrOrderAlreadyCommitted
	}

	o.Status = OrderStatusRolledBack
	o.touch()
	return true, nil
}

// Drop discards a malformed or unmatched proposal. Only orders that never
// got past Pending can be dropped.
func (o *SwapOrder) Drop() (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}
	if o.Status > OrderStatusPending {
		return false, ErrOrderMustBePending
	}

	o.Status = OrderStatusDropped
	o.touch()
	return true, nil
}

// Cancel terminates the order on an explicit local or counterparty
// cancel, before any funds moved.
func (o *SwapOrder) Cancel() (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}

	o.Status = OrderStatusCancelled
	o.touch()
	return true, nil
}

// Invalidate forces the order to the Invalid terminal state on a detected
// protocol violation and charges the misbehavior penalty.
func (o *SwapOrder) Invalidate() (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}

	o.invalidate()
	return true, nil
}

// Expire brings a non-terminal order to Expired once its deadline
// relative to the last recorded activity has elapsed. The scheduler tick
// is the only caller: message arrival refreshes the activity timestamp
// but never clears an expiry the tick already observed.
func (o *SwapOrder) Expire(now time.Time, timeout time.Duration) (bool, error) {
	if o.IsTerminal() {
		return false, ErrOrderFinalized
	}
	if !o.DeadlineExceeded(now, timeout) {
		return false, ErrOrderDeadlineNotReached
	}

	o.Status = OrderStatusExpired
	o.touch()
	return true, nil
}
