package ports

import (
	"context"

	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
)

// ChainBackend abstracts the per-currency chain access the bridge needs:
// broadcasting raw transactions and checking their confirmation.
type ChainBackend interface {
	// Broadcast publishes a raw transaction on the chain of the given
	// currency and returns the transaction id the chain reports.
	Broadcast(ctx context.Context, currency string, rawTx []byte) (uint256.Uint256, error)
	// IsConfirmed returns whether the transaction with the given id
	// reached the chain's confirmation threshold.
	IsConfirmed(ctx context.Context, currency string, txid uint256.Uint256) (bool, error)
}
