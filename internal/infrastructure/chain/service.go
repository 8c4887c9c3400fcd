// Package chain implements chain access and transaction signing on top
// of per-currency bitcoin-family wallet daemons reached over JSON-RPC.
package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xbridge-network/xbridge-daemon/internal/core/ports"
	"github.com/xbridge-network/xbridge-daemon/pkg/rpcclient"
	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
)

const confirmationThreshold = 1

// ErrUnknownCurrency is returned when no wallet daemon is configured for
// the requested currency.
var ErrUnknownCurrency = errors.New("no wallet configured for currency")

// WalletConfig locates one currency's wallet daemon.
type WalletConfig struct {
	Host   string
	Port   int
	User   string
	Passwd string
}

type service struct {
	clients map[string]*rpcclient.RpcClient
}

// NewService returns a chain backend and signer multiplexing over the
// configured per-currency wallet daemons.
func NewService(wallets map[string]WalletConfig) *service {
	clients := make(map[string]*rpcclient.RpcClient, len(wallets))
	for currency, cfg := range wallets {
		clients[currency] = rpcclient.NewClient(
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, 30,
		)
	}
	return &service{clients}
}

var _ ports.ChainBackend = (*service)(nil)

func (s *service) Broadcast(
	_ context.Context, currency string, rawTx []byte,
) (uint256.Uint256, error) {
	client, ok := s.clients[currency]
	if !ok {
		return uint256.Uint256{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}

	res, err := client.Call(
		"sendrawtransaction", []interface{}{hex.EncodeToString(rawTx)},
	)
	if err != nil {
		return uint256.Uint256{}, err
	}

	var txidHex string
	if err := json.Unmarshal(res, &txidHex); err != nil {
		return uint256.Uint256{}, err
	}
	return uint256.FromString(txidHex)
}

func (s *service) IsConfirmed(
	_ context.Context, currency string, txid uint256.Uint256,
) (bool, error) {
	client, ok := s.clients[currency]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}

	res, err := client.Call(
		"getrawtransaction", []interface{}{txid.String(), 1},
	)
	if err != nil {
		return false, err
	}

	var tx struct {
		Confirmations int `json:"confirmations"`
	}
	if err := json.Unmarshal(res, &tx); err != nil {
		return false, err
	}
	return tx.Confirmations >= confirmationThreshold, nil
}
