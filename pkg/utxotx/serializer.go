package utxotx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
)

// Encoding selects one of the two canonical binary encodings of a
// Transaction. The two encodings of the same transaction hash differently
// and must not be confused.
type Encoding int

const (
	// EncodingCompact carries (version, inputs, outputs, lockTime) and is
	// used to compute hashes compatible with a generic UTXO backend.
	EncodingCompact Encoding = iota
	// EncodingExtended additionally carries the creation time right after
	// the version, and is used for the bridge's own settlement artifacts.
	EncodingExtended
)

// ErrMalformedEncoding is returned when a buffer cannot be decoded into a
// transaction. Decoding is fully bounds-checked and never panics on
// attacker-controlled input.
var ErrMalformedEncoding = errors.New("utxotx: malformed encoding")

// The smallest possible serialized footprint of an input and an output.
// Used to reject absurd element counts before allocating.
const (
	minTxInSize  = uint256.Size + 4 + 1 + 4
	minTxOutSize = 8 + 1
)

// Serialize returns the canonical binary encoding of the transaction. The
// null output sentinel is an in-memory marker only and must never reach a
// peer, so a transaction carrying one does not serialize.
func (tx *Transaction) Serialize(enc Encoding) ([]byte, error) {
	for _, out := range tx.Outs {
		if out.IsNull() {
			return nil, ErrNullOutput
		}
	}
	return tx.serialize(enc), nil
}

func (tx *Transaction) serialize(enc Encoding) []byte {
	buf := &bytes.Buffer{}
	writeUint32(buf, uint32(tx.Version))
	if enc == EncodingExtended {
		writeUint32(buf, tx.CreationTime)
	}
	writeCompactSize(buf, uint64(len(tx.Ins)))
	for _, in := range tx.Ins {
		buf.Write(in.PreviousOutPoint.Hash.Bytes())
		writeUint32(buf, in.PreviousOutPoint.Index)
		writeCompactSize(buf, uint64(len(in.UnlockingScript)))
		buf.Write(in.UnlockingScript)
		writeUint32(buf, in.Sequence)
	}
	writeCompactSize(buf, uint64(len(tx.Outs)))
	for _, out := range tx.Outs {
		writeUint64(buf, uint64(out.Value))
		writeCompactSize(buf, uint64(len(out.LockingScript)))
		buf.Write(out.LockingScript)
	}
	writeUint32(buf, tx.LockTime)
	return buf.Bytes()
}

// Deserialize parses a transaction from its canonical binary encoding.
// It fails with ErrMalformedEncoding on truncated buffers, on element
// counts or script lengths exceeding the remaining buffer, and on
// trailing bytes past the end of the transaction.
func Deserialize(buf []byte, enc Encoding) (*Transaction, error) {
	r := &txReader{buf: buf}

	tx := &Transaction{}
	version, err := r.readUint32("version")
	if err != nil {
		return nil, err
	}
	tx.Version = int32(version)

	if enc == EncodingExtended {
		if tx.CreationTime, err = r.readUint32("creation time"); err != nil {
			return nil, err
		}
	}

	numIns, err := r.readCompactSize("input count")
	if err != nil {
		return nil, err
	}
	if numIns > uint64(r.remaining())/minTxInSize {
		return nil, fmt.Errorf(
			"%w: input count %d exceeds buffer", ErrMalformedEncoding, numIns,
		)
	}
	tx.Ins = make([]*TxIn, 0, numIns)
	for i := uint64(0); i < numIns; i++ {
		in := &TxIn{}
		hash, err := r.readBytes(uint256.Size, "previous output hash")
		if err != nil {
			return nil, err
		}
		if in.PreviousOutPoint.Hash, err = uint256.New(hash); err != nil {
			return nil, err
		}
		if in.PreviousOutPoint.Index, err = r.readUint32("previous output index"); err != nil {
			return nil, err
		}
		if in.UnlockingScript, err = r.readVarBytes("unlocking script"); err != nil {
			return nil, err
		}
		if in.Sequence, err = r.readUint32("sequence"); err != nil {
			return nil, err
		}
		tx.Ins = append(tx.Ins, in)
	}

	numOuts, err := r.readCompactSize("output count")
	if err != nil {
		return nil, err
	}
	if numOuts > uint64(r.remaining())/minTxOutSize {
		return nil, fmt.Errorf(
			"%w: output count %d exceeds buffer", ErrMalformedEncoding, numOuts,
		)
	}
	tx.Outs = make([]*TxOut, 0, numOuts)
	for i := uint64(0); i < numOuts; i++ {
		out := &TxOut{}
		value, err := r.readUint64("output value")
		if err != nil {
			return nil, err
		}
		out.Value = int64(value)
		if out.IsNull() {
			return nil, fmt.Errorf("%w: null output", ErrMalformedEncoding)
		}
		if out.LockingScript, err = r.readVarBytes("locking script"); err != nil {
			return nil, err
		}
		tx.Outs = append(tx.Outs, out)
	}

	if tx.LockTime, err = r.readUint32("lock time"); err != nil {
		return nil, err
	}

	if r.remaining() > 0 {
		return nil, fmt.Errorf(
			"%w: %d trailing bytes", ErrMalformedEncoding, r.remaining(),
		)
	}
	return tx, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], v)
	buf.Write(scratch[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], v)
	buf.Write(scratch[:])
}

// writeCompactSize writes a bitcoin-style variable length integer.
func writeCompactSize(buf *bytes.Buffer, v uint64) {
	switch {
	case v < 0xfd:
		buf.WriteByte(byte(v))
	case v <= 0xffff:
		buf.WriteByte(0xfd)
		var scratch [2]byte
		binary.LittleEndian.PutUint16(scratch[:], uint16(v))
		buf.Write(scratch[:])
	case v <= 0xffffffff:
		buf.WriteByte(0xfe)
		writeUint32(buf, uint32(v))
	default:
		buf.WriteByte(0xff)
		writeUint64(buf, v)
	}
}

// txReader is a bounds-checked cursor over an untrusted buffer.
type txReader struct {
	buf    []byte
	offset int
}

func (r *txReader) remaining() int {
	return len(r.buf) - r.offset
}

func (r *txReader) readBytes(n int, what string) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: truncated %s", ErrMalformedEncoding, what)
	}
	buf := r.buf[r.offset : r.offset+n]
	r.offset += n
	return buf, nil
}

func (r *txReader) readUint32(what string) (uint32, error) {
	buf, err := r.readBytes(4, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (r *txReader) readUint64(what string) (uint64, error) {
	buf, err := r.readBytes(8, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (r *txReader) readCompactSize(what string) (uint64, error) {
	prefix, err := r.readBytes(1, what)
	if err != nil {
		return 0, err
	}
	switch prefix[0] {
	case 0xfd:
		buf, err := r.readBytes(2, what)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(buf)), nil
	case 0xfe:
		v, err := r.readUint32(what)
		return uint64(v), err
	case 0xff:
		return r.readUint64(what)
	default:
		return uint64(prefix[0]), nil
	}
}

func (r *txReader) readVarBytes(what string) ([]byte, error) {
	n, err := r.readCompactSize(what)
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, fmt.Errorf(
			"%w: %s length %d exceeds buffer", ErrMalformedEncoding, what, n,
		)
	}
	if n == 0 {
		return nil, nil
	}
	buf, err := r.readBytes(int(n), what)
	if err != nil {
		return nil, err
	}
	script := make([]byte, n)
	copy(script, buf)
	return script, nil
}
