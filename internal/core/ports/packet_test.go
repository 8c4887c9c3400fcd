package ports_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xbridge-network/xbridge-daemon/internal/core/ports"
	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
	"github.com/xbridge-network/xbridge-daemon/pkg/utxotx"
)

func TestSignedSettlementWireShape(t *testing.T) {
	payload := ports.SignedSettlement{
		OrderID: uint256.Random(),
		RawTx:   []byte{0x01, 0x02, 0x03},
	}
	buf, err := json.Marshal(payload)
	require.NoError(t, err)

	// identifiers and raw transactions travel as hex strings
	var fields map[string]string
	require.NoError(t, json.Unmarshal(buf, &fields))
	require.Equal(t, payload.OrderID.String(), fields["order_id"])
	require.Equal(t, "010203", fields["raw_tx"])

	var decoded ports.SignedSettlement
	require.NoError(t, json.Unmarshal(buf, &decoded))
	require.Equal(t, payload, decoded)
}

func TestDepositObservedWireRoundTrip(t *testing.T) {
	payload := ports.DepositObserved{
		OrderID:  uint256.Random(),
		Party:    []byte("party-address"),
		OutPoint: utxotx.OutPoint{Hash: uint256.Random(), Index: 3},
		Amount:   5000,
	}
	buf, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded ports.DepositObserved
	require.NoError(t, json.Unmarshal(buf, &decoded))
	require.Equal(t, payload, decoded)
}

func TestHexBytesRejectsMalformedInput(t *testing.T) {
	var b ports.HexBytes
	require.Error(t, json.Unmarshal([]byte(`"zz"`), &b))
	require.Error(t, json.Unmarshal([]byte(`7`), &b))
}
