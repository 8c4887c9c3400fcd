package domain

import (
	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
)

// Participant holds one party's addressing information for one order:
// the chain-specific encoded source and destination addresses, treated as
// opaque bytes, and a per-chain public identity derived from the source
// address. A participant is created when an order admits a counterparty
// and is never mutated afterwards, except to fill in addresses as they
// become known.
type Participant struct {
	ID            uint256.Uint256
	SourceAddress []byte
	DestAddress   []byte
}

// NewParticipant returns a participant identified by the double hash of
// its source address.
func NewParticipant(sourceAddress, destAddress []byte) Participant {
	return Participant{
		ID:            uint256.DoubleHash(sourceAddress),
		SourceAddress: sourceAddress,
		DestAddress:   destAddress,
	}
}

// SetSourceAddress fills in the source address if still unknown.
func (p *Participant) SetSourceAddress(addr []byte) {
	if len(p.SourceAddress) == 0 {
		p.SourceAddress = addr
		p.ID = uint256.DoubleHash(addr)
	}
}

// SetDestAddress fills in the destination address if still unknown.
func (p *Participant) SetDestAddress(addr []byte) {
	if len(p.DestAddress) == 0 {
		p.DestAddress = addr
	}
}

// IsComplete returns whether both addresses are known.
func (p Participant) IsComplete() bool {
	return len(p.SourceAddress) > 0 && len(p.DestAddress) > 0
}
