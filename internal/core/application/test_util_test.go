package application_test

import (
	"context"
	"errors"
	"sync"

	"github.com/xbridge-network/xbridge-daemon/internal/core/ports"
	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
	"github.com/xbridge-network/xbridge-daemon/pkg/utxotx"
)

var (
	makerSource = []byte("maker-source-address")
	makerDest   = []byte("maker-dest-address")
	takerSource = []byte("taker-source-address")
	takerDest   = []byte("taker-dest-address")
	hubAddr     = []byte("hub-address")
	selfAddr    = []byte("self-address")
)

// mockMessenger records every packet sent.
type mockMessenger struct {
	lock    sync.Mutex
	packets []ports.PacketType
}

func (m *mockMessenger) Send(
	_ context.Context, _ []byte, packetType ports.PacketType, _ interface{},
) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.packets = append(m.packets, packetType)
	return nil
}

func (m *mockMessenger) sentPackets() []ports.PacketType {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]ports.PacketType{}, m.packets...)
}

// mockChainBackend reports broadcast transactions as their own hash and
// lets tests toggle confirmation and failure behavior.
type mockChainBackend struct {
	lock          sync.Mutex
	confirmed     map[uint256.Uint256]bool
	broadcasts    int
	failBroadcast bool
}

func newMockChainBackend() *mockChainBackend {
	return &mockChainBackend{confirmed: map[uint256.Uint256]bool{}}
}

func (m *mockChainBackend) Broadcast(
	_ context.Context, _ string, rawTx []byte,
) (uint256.Uint256, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.broadcasts++
	if m.failBroadcast {
		return uint256.Uint256{}, errors.New("broadcast refused")
	}

	tx, err := utxotx.Deserialize(rawTx, utxotx.EncodingExtended)
	if err != nil {
		return uint256.Uint256{}, err
	}
	return tx.Hash(utxotx.EncodingCompact), nil
}

func (m *mockChainBackend) IsConfirmed(
	_ context.Context, _ string, txid uint256.Uint256,
) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.confirmed[txid], nil
}

func (m *mockChainBackend) confirm(txid uint256.Uint256) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.confirmed[txid] = true
}

func (m *mockChainBackend) numBroadcasts() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.broadcasts
}

// mockSigner returns the transaction unchanged, the pipeline only cares
// about the serialize-sign-deserialize round trip.
type mockSigner struct{}

func (mockSigner) Sign(
	_ context.Context, _ string, rawTx []byte,
) ([]byte, error) {
	return rawTx, nil
}
