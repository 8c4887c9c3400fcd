package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xbridge-network/xbridge-daemon/internal/core/ports"
)

// ErrIncompleteSignature is returned when the wallet daemon could not
// sign every input of the transaction.
var ErrIncompleteSignature = errors.New("wallet returned an incompletely signed transaction")

var _ ports.Signer = (*service)(nil)

func (s *service) Sign(
	_ context.Context, currency string, rawTx []byte,
) ([]byte, error) {
	client, ok := s.clients[currency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}

	res, err := client.Call(
		"signrawtransactionwithwallet",
		[]interface{}{hex.EncodeToString(rawTx)},
	)
	if err != nil {
		return nil, err
	}

	var signed struct {
		Hex      string `json:"hex"`
		Complete bool   `json:"complete"`
	}
	if err := json.Unmarshal(res, &signed); err != nil {
		return nil, err
	}
	if !signed.Complete {
		return nil, ErrIncompleteSignature
	}
	return hex.DecodeString(signed.Hex)
}
