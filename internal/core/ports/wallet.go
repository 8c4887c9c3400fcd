package ports

import (
	"context"
)

// Signer produces signatures for settlement and refund transactions with
// the keys held by the wallet of the given currency.
type Signer interface {
	// Sign returns the fully signed form of the given raw transaction,
	// signing every input spendable by the wallet's keys.
	Sign(ctx context.Context, currency string, rawTx []byte) ([]byte, error)
}
