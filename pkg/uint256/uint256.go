package uint256

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"
)

// Size is the width in bytes of a Uint256.
const Size = 32

// ErrInvalidLength is returned when parsing a value that is not exactly
// 32 bytes wide.
var ErrInvalidLength = errors.New("uint256: value must be 32 bytes")

// Uint256 is a fixed-width 256-bit opaque value. It is used across the
// daemon as transaction hash, order id and payment id. It is an immutable
// value type, safe to use as a map key, totally ordered by byte comparison.
type Uint256 [Size]byte

var zero Uint256

// New returns a Uint256 from a raw 32-byte slice.
func New(buf []byte) (Uint256, error) {
	var u Uint256
	if len(buf) != Size {
		return u, ErrInvalidLength
	}
	copy(u[:], buf)
	return u, nil
}

// FromString parses the hex representation returned by String.
func FromString(s string) (Uint256, error) {
	var u Uint256
	buf, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return New(buf)
}

// DoubleHash returns the sha256d digest of the given buffer as a Uint256.
func DoubleHash(buf []byte) Uint256 {
	return Uint256(chainhash.DoubleHashH(buf))
}

// Random returns a fresh identifier derived by double-hashing a v4 uuid.
func Random() Uint256 {
	id := uuid.New()
	return DoubleHash(id[:])
}

// Bytes returns a copy of the underlying 32 bytes.
func (u Uint256) Bytes() []byte {
	buf := make([]byte, Size)
	copy(buf, u[:])
	return buf
}

// String returns the hex representation of the value.
func (u Uint256) String() string {
	return hex.EncodeToString(u[:])
}

// MarshalJSON encodes the value as its hex string form, both on the wire
// and in persisted registries.
func (u Uint256) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON decodes the hex string form written by MarshalJSON.
func (u *Uint256) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err != nil {
		return err
	}
	v, err := FromString(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// IsZero returns whether the value is all zeroes.
func (u Uint256) IsZero() bool {
	return u == zero
}

// Compare returns -1, 0 or 1 depending on whether u sorts before, equal to
// or after other. Identifiers are not secret so the byte-wise comparison
// does not need to be constant time.
func (u Uint256) Compare(other Uint256) int {
	return bytes.Compare(u[:], other[:])
}

// Equal returns whether the two values are identical.
func (u Uint256) Equal(other Uint256) bool {
	return u == other
}
