package ports

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
	"github.com/xbridge-network/xbridge-daemon/pkg/utxotx"
)

// PacketType identifies a bridge protocol message.
type PacketType int

const (
	PacketProposeOrder PacketType = iota
	PacketAcceptOrder
	PacketDepositObserved
	PacketSignedSettlement
	PacketCommitOrder
	PacketCancelOrder
	PacketRefundConfirmed
)

func (t PacketType) String() string {
	switch t {
	case PacketProposeOrder:
		return "propose_order"
	case PacketAcceptOrder:
		return "accept_order"
	case PacketDepositObserved:
		return "deposit_observed"
	case PacketSignedSettlement:
		return "signed_settlement"
	case PacketCommitOrder:
		return "commit_order"
	case PacketCancelOrder:
		return "cancel_order"
	case PacketRefundConfirmed:
		return "refund_confirmed"
	default:
		return "unknown"
	}
}

// HexBytes is a byte slice carried on the wire as a hex string. The
// payload structs below are both the application requests and the JSON
// wire frames, so a packet emitted by one daemon always decodes on its
// peer.
type HexBytes []byte

func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

func (b *HexBytes) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// ProposeOrder announces a new swap proposal to the network. CreatedAt is
// the proposing peer's creation timestamp, used to reconcile replicas of
// the same order.
type ProposeOrder struct {
	OrderID      uint256.Uint256 `json:"order_id"`
	SourceParty  HexBytes        `json:"source_party"`
	FromCurrency string          `json:"from_currency"`
	FromAmount   uint64          `json:"from_amount"`
	DestParty    HexBytes        `json:"dest_party"`
	ToCurrency   string          `json:"to_currency"`
	ToAmount     uint64          `json:"to_amount"`
	HubAddress   HexBytes        `json:"hub_address"`
	SelfAddress  HexBytes        `json:"self_address"`
	CreatedAt    time.Time       `json:"created_at"`
}

// AcceptOrder is the counterparty's claim on a pending proposal. The leg
// fields echo the proposal and are validated against the tracked order.
type AcceptOrder struct {
	OrderID      uint256.Uint256 `json:"order_id"`
	TakerSource  HexBytes        `json:"taker_source"`
	TakerDest    HexBytes        `json:"taker_dest"`
	FromCurrency string          `json:"from_currency"`
	FromAmount   uint64          `json:"from_amount"`
	ToCurrency   string          `json:"to_currency"`
	ToAmount     uint64          `json:"to_amount"`
}

// DepositObserved reports a confirmed deposit of a participant into the
// swap escrow.
type DepositObserved struct {
	OrderID  uint256.Uint256 `json:"order_id"`
	Party    HexBytes        `json:"party"`
	OutPoint utxotx.OutPoint `json:"outpoint"`
	Amount   uint64          `json:"amount"`
}

// SignedSettlement carries a fully signed settlement transaction in
// extended encoding.
type SignedSettlement struct {
	OrderID uint256.Uint256 `json:"order_id"`
	RawTx   HexBytes        `json:"raw_tx"`
}

// CommitOrder reports the settlement transaction id seen on chain after
// broadcast.
type CommitOrder struct {
	OrderID uint256.Uint256 `json:"order_id"`
	TxID    uint256.Uint256 `json:"txid"`
}

// CancelOrder is an explicit cancellation by either party.
type CancelOrder struct {
	OrderID uint256.Uint256 `json:"order_id"`
	Reason  string          `json:"reason,omitempty"`
}

// RefundConfirmed reports that the refund transaction of an aborted swap
// confirmed on chain.
type RefundConfirmed struct {
	OrderID uint256.Uint256 `json:"order_id"`
	TxID    uint256.Uint256 `json:"txid"`
}

// Messenger delivers protocol packets to peers. Implementations are
// expected to be safe for concurrent use by the bridge workers.
type Messenger interface {
	Send(ctx context.Context, dest []byte, packetType PacketType, payload interface{}) error
}
