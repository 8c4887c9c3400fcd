// Package messenger relays bridge protocol packets to the hub node over
// plain HTTP.
package messenger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/xbridge-network/xbridge-daemon/internal/core/ports"
	"github.com/xbridge-network/xbridge-daemon/pkg/util"
)

type httpMessenger struct {
	endpoint string
}

// envelope is the wire frame of one relayed packet.
type envelope struct {
	Type    string      `json:"type"`
	Dest    string      `json:"dest"`
	Payload interface{} `json:"payload"`
}

// NewHTTPMessenger returns a Messenger posting packets to the given hub
// endpoint.
func NewHTTPMessenger(endpoint string) ports.Messenger {
	return &httpMessenger{endpoint}
}

func (m *httpMessenger) Send(
	_ context.Context, dest []byte, packetType ports.PacketType, payload interface{},
) error {
	body, err := json.Marshal(envelope{
		Type:    packetType.String(),
		Dest:    hex.EncodeToString(dest),
		Payload: payload,
	})
	if err != nil {
		return err
	}

	status, res, err := util.NewHTTPRequest(
		"POST", m.endpoint, string(body),
		map[string]string{"Content-Type": "application/json"},
	)
	if err != nil {
		return err
	}
	if status != 200 {
		return fmt.Errorf("hub refused packet with status %d: %s", status, res)
	}
	return nil
}
