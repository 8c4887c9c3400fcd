package utxotx

import (
	"bytes"
	"errors"
	"math"

	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
)

const (
	// CurrentVersion is the transaction version written by the builder.
	CurrentVersion int32 = 1

	// SequenceFinal marks an input as final, ie. not subject to
	// replacement.
	SequenceFinal uint32 = math.MaxUint32

	// NullOutputIndex is the output index of a null outpoint.
	NullOutputIndex uint32 = math.MaxUint32
)

// ErrNullOutput is returned by the builder and by Serialize when an
// output carries the null sentinel value.
var ErrNullOutput = errors.New("utxotx: null output is not spendable")

// OutPoint references an output of a prior transaction by hash and index.
type OutPoint struct {
	Hash  uint256.Uint256 `json:"txid"`
	Index uint32          `json:"index"`
}

// NullOutPoint returns the outpoint marking a coinbase-equivalent input.
func NullOutPoint() OutPoint {
	return OutPoint{Index: NullOutputIndex}
}

// IsNull returns whether the outpoint references no prior output.
func (o OutPoint) IsNull() bool {
	return o.Hash.IsZero() && o.Index == NullOutputIndex
}

// Less implements the total order over outpoints by (hash, index).
func (o OutPoint) Less(other OutPoint) bool {
	if c := o.Hash.Compare(other.Hash); c != 0 {
		return c < 0
	}
	return o.Index < other.Index
}

// TxIn is a transaction input spending a prior output.
type TxIn struct {
	PreviousOutPoint OutPoint
	UnlockingScript  []byte
	Sequence         uint32
}

// NewTxIn returns an input spending the given outpoint, marked final.
func NewTxIn(prevOut OutPoint, unlockingScript []byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: prevOut,
		UnlockingScript:  unlockingScript,
		Sequence:         SequenceFinal,
	}
}

// IsFinal returns whether the input is not subject to replacement.
func (in *TxIn) IsFinal() bool {
	return in.Sequence == SequenceFinal
}

// TxOut is a transaction output carrying a value and its spending
// condition.
type TxOut struct {
	Value         int64
	LockingScript []byte
}

// NewTxOut returns an output paying the given value to the given locking
// script.
func NewTxOut(value int64, lockingScript []byte) *TxOut {
	return &TxOut{Value: value, LockingScript: lockingScript}
}

// SetNull marks the output as the uninitialized sentinel. A null output
// must never be serialized to a peer.
func (out *TxOut) SetNull() {
	out.Value = -1
	out.LockingScript = nil
}

// IsNull returns whether the output is the uninitialized sentinel.
func (out *TxOut) IsNull() bool {
	return out.Value == -1
}

// SetEmpty marks the output as explicitly empty, used to tag a stake
// marker transaction.
func (out *TxOut) SetEmpty() {
	out.Value = 0
	out.LockingScript = nil
}

// IsEmpty returns whether the output is explicitly empty.
func (out *TxOut) IsEmpty() bool {
	return out.Value == 0 && len(out.LockingScript) == 0
}

// Transaction is a chain-agnostic UTXO transaction. A single type covers
// both wire encodings, selected explicitly at serialization time, see
// Encoding.
type Transaction struct {
	Version      int32
	CreationTime uint32
	Ins          []*TxIn
	Outs         []*TxOut
	LockTime     uint32
}

// NewTransaction returns an empty transaction with the current version.
func NewTransaction(creationTime uint32) *Transaction {
	return &Transaction{
		Version:      CurrentVersion,
		CreationTime: creationTime,
	}
}

// NewSettlement builds a transaction spending the given prior outputs and
// paying the given destination outputs, with the given lock time. The
// inputs are left unsigned (empty unlocking scripts, final sequence). It
// fails if any destination output carries the null sentinel.
func NewSettlement(
	prevOuts []OutPoint, outs []*TxOut, lockTime, creationTime uint32,
) (*Transaction, error) {
	tx := NewTransaction(creationTime)
	tx.LockTime = lockTime
	for _, prevOut := range prevOuts {
		tx.AddTxIn(NewTxIn(prevOut, nil))
	}
	for _, out := range outs {
		if out.IsNull() {
			return nil, ErrNullOutput
		}
		tx.AddTxOut(out)
	}
	return tx, nil
}

// AddTxIn appends an input.
func (tx *Transaction) AddTxIn(in *TxIn) {
	tx.Ins = append(tx.Ins, in)
}

// AddTxOut appends an output.
func (tx *Transaction) AddTxOut(out *TxOut) {
	tx.Outs = append(tx.Outs, out)
}

// IsNull returns whether the transaction carries no inputs nor outputs.
func (tx *Transaction) IsNull() bool {
	return len(tx.Ins) == 0 && len(tx.Outs) == 0
}

// IsCoinBase returns whether the transaction is a coinbase equivalent:
// exactly one input spending the null outpoint and at least one output.
func (tx *Transaction) IsCoinBase() bool {
	return len(tx.Ins) == 1 && tx.Ins[0].PreviousOutPoint.IsNull() &&
		len(tx.Outs) >= 1
}

// IsCoinStake returns whether the transaction is a stake marker: at least
// one real input, at least two outputs, and the first output explicitly
// empty.
func (tx *Transaction) IsCoinStake() bool {
	return len(tx.Ins) > 0 && !tx.Ins[0].PreviousOutPoint.IsNull() &&
		len(tx.Outs) >= 2 && tx.Outs[0].IsEmpty()
}

// IsNewerThan reports whether the transaction is a replacement of old.
// Both must spend the same ordered set of prior outputs; the transaction
// is newer only if at least one input's sequence strictly decreased while
// no other input's sequence decreased further. Equal sequence values
// tie-break to "not newer". This is a replacement detection rule, not a
// validity check.
func (tx *Transaction) IsNewerThan(old *Transaction) bool {
	if len(tx.Ins) != len(old.Ins) {
		return false
	}
	for i := range tx.Ins {
		if tx.Ins[i].PreviousOutPoint != old.Ins[i].PreviousOutPoint {
			return false
		}
	}

	newer := false
	lowest := SequenceFinal
	for i := range tx.Ins {
		seq, oldSeq := tx.Ins[i].Sequence, old.Ins[i].Sequence
		if seq == oldSeq {
			continue
		}
		if oldSeq <= lowest {
			newer = false
			lowest = oldSeq
		}
		if seq < lowest {
			newer = true
			lowest = seq
		}
	}
	return newer
}

// Equal returns whether the two transactions are identical field by field.
func (tx *Transaction) Equal(other *Transaction) bool {
	if tx.Version != other.Version ||
		tx.CreationTime != other.CreationTime ||
		tx.LockTime != other.LockTime ||
		len(tx.Ins) != len(other.Ins) ||
		len(tx.Outs) != len(other.Outs) {
		return false
	}
	for i := range tx.Ins {
		a, b := tx.Ins[i], other.Ins[i]
		if a.PreviousOutPoint != b.PreviousOutPoint ||
			a.Sequence != b.Sequence ||
			!bytes.Equal(a.UnlockingScript, b.UnlockingScript) {
			return false
		}
	}
	for i := range tx.Outs {
		a, b := tx.Outs[i], other.Outs[i]
		if a.Value != b.Value || !bytes.Equal(a.LockingScript, b.LockingScript) {
			return false
		}
	}
	return true
}

// Hash returns the sha256d digest of the canonical serialization for the
// given encoding. It is a pure function, safe for concurrent use on a
// shared transaction.
func (tx *Transaction) Hash(enc Encoding) uint256.Uint256 {
	return uint256.DoubleHash(tx.serialize(enc))
}
