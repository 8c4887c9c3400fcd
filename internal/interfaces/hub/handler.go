// Package hub exposes the inbound side of the bridge protocol: an HTTP
// handler decoding packets relayed by the hub node and dispatching them
// to the bridge workers. The payload frames are the ports packet structs
// themselves, the same shapes the outbound messenger emits.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/xbridge-network/xbridge-daemon/internal/core/application"
	"github.com/xbridge-network/xbridge-daemon/internal/core/ports"
	"github.com/xbridge-network/xbridge-daemon/pkg/bridge"
)

type handler struct {
	bridgeSvc application.BridgeService
	runtime   bridge.Service
}

// NewHandler returns the http.Handler accepting relayed packets. Each
// decoded packet is executed asynchronously on the bridge worker pool.
func NewHandler(
	bridgeSvc application.BridgeService, runtime bridge.Service,
) http.Handler {
	return &handler{bridgeSvc, runtime}
}

type packetEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var env packetEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "malformed packet envelope", http.StatusBadRequest)
		return
	}

	task, err := h.taskForPacket(env)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.runtime.Dispatch(task); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) taskForPacket(env packetEnvelope) (bridge.Task, error) {
	switch env.Type {
	case ports.PacketProposeOrder.String():
		var req ports.ProposeOrder
		if err := decodePayload(env, &req); err != nil {
			return nil, err
		}
		if req.OrderID.IsZero() {
			return nil, missingOrderIDError(env)
		}
		return h.logged(env.Type, func(ctx context.Context) error {
			return h.bridgeSvc.HandleProposeOrder(ctx, req)
		}), nil
	case ports.PacketAcceptOrder.String():
		var req ports.AcceptOrder
		if err := decodePayload(env, &req); err != nil {
			return nil, err
		}
		if req.OrderID.IsZero() {
			return nil, missingOrderIDError(env)
		}
		return h.logged(env.Type, func(ctx context.Context) error {
			return h.bridgeSvc.HandleAcceptOrder(ctx, req)
		}), nil
	case ports.PacketDepositObserved.String():
		var req ports.DepositObserved
		if err := decodePayload(env, &req); err != nil {
			return nil, err
		}
		if req.OrderID.IsZero() {
			return nil, missingOrderIDError(env)
		}
		return h.logged(env.Type, func(ctx context.Context) error {
			return h.bridgeSvc.HandleDepositObserved(ctx, req)
		}), nil
	case ports.PacketSignedSettlement.String():
		var req ports.SignedSettlement
		if err := decodePayload(env, &req); err != nil {
			return nil, err
		}
		if req.OrderID.IsZero() {
			return nil, missingOrderIDError(env)
		}
		return h.logged(env.Type, func(ctx context.Context) error {
			return h.bridgeSvc.HandleSignedSettlement(ctx, req)
		}), nil
	case ports.PacketCancelOrder.String():
		var req ports.CancelOrder
		if err := decodePayload(env, &req); err != nil {
			return nil, err
		}
		if req.OrderID.IsZero() {
			return nil, missingOrderIDError(env)
		}
		return h.logged(env.Type, func(ctx context.Context) error {
			return h.bridgeSvc.HandleCancelOrder(ctx, req)
		}), nil
	case ports.PacketRefundConfirmed.String():
		var req ports.RefundConfirmed
		if err := decodePayload(env, &req); err != nil {
			return nil, err
		}
		if req.OrderID.IsZero() {
			return nil, missingOrderIDError(env)
		}
		return h.logged(env.Type, func(ctx context.Context) error {
			return h.bridgeSvc.HandleRefundConfirmed(ctx, req)
		}), nil
	default:
		return nil, fmt.Errorf("unknown packet type %s", env.Type)
	}
}

func (h *handler) logged(packetType string, task bridge.Task) bridge.Task {
	return func(ctx context.Context) error {
		if err := task(ctx); err != nil {
			log.WithError(err).WithField("packet", packetType).
				Warn("packet handling failed")
			return err
		}
		return nil
	}
}

func decodePayload(env packetEnvelope, req interface{}) error {
	if err := json.Unmarshal(env.Payload, req); err != nil {
		return fmt.Errorf("malformed %s payload", env.Type)
	}
	return nil
}

func missingOrderIDError(env packetEnvelope) error {
	return fmt.Errorf("%s payload is missing the order id", env.Type)
}
