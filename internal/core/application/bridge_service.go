package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/xbridge-network/xbridge-daemon/internal/core/domain"
	"github.com/xbridge-network/xbridge-daemon/internal/core/ports"
	"github.com/xbridge-network/xbridge-daemon/pkg/circuitbreaker"
	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
	"github.com/xbridge-network/xbridge-daemon/pkg/utxotx"
)

// BridgeService is the domain controller for the swap protocol: one
// handler per network packet, each applied to the order registry as one
// atomic update. Handlers are safe to run concurrently on the bridge
// workers, also for the same order id.
type BridgeService interface {
	HandleProposeOrder(ctx context.Context, req ports.ProposeOrder) error
	HandleAcceptOrder(ctx context.Context, req ports.AcceptOrder) error
	HandleDepositObserved(ctx context.Context, req ports.DepositObserved) error
	HandleSignedSettlement(ctx context.Context, req ports.SignedSettlement) error
	HandleCancelOrder(ctx context.Context, req ports.CancelOrder) error
	HandleRefundConfirmed(ctx context.Context, req ports.RefundConfirmed) error

	ListOrders(ctx context.Context) ([]*domain.SwapOrder, error)
	GetOrder(ctx context.Context, id uint256.Uint256) (*domain.SwapOrder, error)
}

type bridgeService struct {
	orderRepository domain.OrderRepository
	messengerSvc    ports.Messenger
	chainSvc        ports.ChainBackend
	signerSvc       ports.Signer
	breaker         *gobreaker.CircuitBreaker
}

func NewBridgeService(
	orderRepository domain.OrderRepository,
	messengerSvc ports.Messenger,
	chainSvc ports.ChainBackend,
	signerSvc ports.Signer,
) BridgeService {
	return &bridgeService{
		orderRepository: orderRepository,
		messengerSvc:    messengerSvc,
		chainSvc:        chainSvc,
		signerSvc:       signerSvc,
		breaker:         circuitbreaker.NewCircuitBreaker(),
	}
}

// HandleProposeOrder tracks a proposal. The same order is often learned
// from several peers with drifting clocks, so every proposal carrying a
// creation timestamp is reconciled through Merge: the earliest known
// creation time sticks.
func (b *bridgeService) HandleProposeOrder(
	ctx context.Context, req ports.ProposeOrder,
) error {
	return b.orderRepository.UpdateOrder(
		ctx, req.OrderID,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			ok, err := o.Propose(
				req.SourceParty, req.FromCurrency, req.FromAmount,
				req.DestParty, req.ToCurrency, req.ToAmount,
				req.HubAddress, req.SelfAddress,
			)
			if err != nil {
				return nil, err
			}
			if !ok {
				log.WithField("order_id", o.ID).Warn("dropped malformed proposal")
				return o, nil
			}
			if req.CreatedAt.IsZero() {
				return o, nil
			}
			incoming := o.Copy()
			incoming.CreatedAt = req.CreatedAt
			return domain.Merge(o, incoming), nil
		},
	)
}

func (b *bridgeService) HandleAcceptOrder(
	ctx context.Context, req ports.AcceptOrder,
) error {
	return b.orderRepository.UpdateOrder(
		ctx, req.OrderID,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			taker := domain.NewParticipant(req.TakerSource, req.TakerDest)
			ok, err := o.Accept(
				taker,
				req.FromCurrency, req.FromAmount,
				req.ToCurrency, req.ToAmount,
			)
			if err != nil {
				return nil, err
			}
			if !ok {
				log.WithField("order_id", o.ID).
					Warn("invalidated order on mismatched accept")
			}
			return o, nil
		},
	)
}

// HandleDepositObserved records one side's deposit. When the second
// deposit lands and the order reaches Hold, it drives the settlement
// pipeline end to end: build, sign, broadcast, commit.
func (b *bridgeService) HandleDepositObserved(
	ctx context.Context, req ports.DepositObserved,
) error {
	reachedHold := false
	if err := b.orderRepository.UpdateOrder(
		ctx, req.OrderID,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			if _, err := o.ObserveDeposit(req.Party, req.OutPoint); err != nil {
				return nil, err
			}
			reachedHold = o.Status == domain.OrderStatusHold
			return o, nil
		},
	); err != nil {
		return err
	}

	if !reachedHold {
		return nil
	}
	return b.settleOrder(ctx, req.OrderID)
}

// HandleSignedSettlement attaches a counterparty-signed settlement. The
// registry keeps the newest replacement; an already committed order
// ignores the message.
func (b *bridgeService) HandleSignedSettlement(
	ctx context.Context, req ports.SignedSettlement,
) error {
	tx, err := utxotx.Deserialize(req.RawTx, utxotx.EncodingExtended)
	if err != nil {
		return ErrMalformedSettlement
	}

	return b.orderRepository.UpdateOrder(
		ctx, req.OrderID,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			if !spendsDeposits(tx, o) {
				return nil, ErrSettlementIDMismatch
			}
			ok, err := o.Sign(tx)
			if err != nil {
				return nil, err
			}
			if !ok {
				log.WithField("order_id", o.ID).
					Debug("discarded stale signed settlement")
			}
			return o, nil
		},
	)
}

func (b *bridgeService) HandleCancelOrder(
	ctx context.Context, req ports.CancelOrder,
) error {
	return b.orderRepository.UpdateOrder(
		ctx, req.OrderID,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			if _, err := o.Cancel(); err != nil {
				return nil, err
			}
			log.WithFields(log.Fields{
				"order_id": o.ID,
				"reason":   req.Reason,
			}).Info("order cancelled")
			return o, nil
		},
	)
}

func (b *bridgeService) HandleRefundConfirmed(
	ctx context.Context, req ports.RefundConfirmed,
) error {
	return b.orderRepository.UpdateOrder(
		ctx, req.OrderID,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			if _, err := o.Rollback(); err != nil {
				return nil, err
			}
			log.WithFields(log.Fields{
				"order_id": o.ID,
				"txid":     req.TxID,
			}).Info("order rolled back on confirmed refund")
			return o, nil
		},
	)
}

func (b *bridgeService) ListOrders(
	ctx context.Context,
) ([]*domain.SwapOrder, error) {
	return b.orderRepository.GetAllOrders(ctx)
}

func (b *bridgeService) GetOrder(
	ctx context.Context, id uint256.Uint256,
) (*domain.SwapOrder, error) {
	return b.orderRepository.GetOrder(ctx, id)
}

// settleOrder runs the Hold->Committed pipeline for an order whose both
// deposits are locked: it builds the settlement and refund bodies, has
// the local wallet sign the settlement, broadcasts it behind the circuit
// breaker and records the resulting transaction id.
func (b *bridgeService) settleOrder(
	ctx context.Context, id uint256.Uint256,
) error {
	order, err := b.orderRepository.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	paymentTx, refundTx, err := buildSettlementPair(order)
	if err != nil {
		return err
	}
	rawPayment, err := paymentTx.Serialize(utxotx.EncodingExtended)
	if err != nil {
		return err
	}
	rawRefund, err := refundTx.Serialize(utxotx.EncodingExtended)
	if err != nil {
		return err
	}

	if err := b.orderRepository.UpdateOrder(
		ctx, id,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			if _, err := o.Create(rawPayment, rawRefund); err != nil {
				return nil, err
			}
			return o, nil
		},
	); err != nil {
		return err
	}

	signedRaw, err := b.signerSvc.Sign(ctx, order.FromCurrency, rawPayment)
	if err != nil {
		return err
	}
	signedTx, err := utxotx.Deserialize(signedRaw, utxotx.EncodingExtended)
	if err != nil {
		return ErrMalformedSettlement
	}

	if err := b.orderRepository.UpdateOrder(
		ctx, id,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			if _, err := o.Sign(signedTx); err != nil {
				return nil, err
			}
			return o, nil
		},
	); err != nil {
		return err
	}

	if err := b.messengerSvc.Send(
		ctx, order.HubAddress, ports.PacketSignedSettlement,
		ports.SignedSettlement{OrderID: id, RawTx: signedRaw},
	); err != nil {
		log.WithError(err).WithField("order_id", id).
			Warn("failed to relay signed settlement")
	}

	txid, err := b.broadcast(ctx, order.FromCurrency, signedRaw)
	if err != nil {
		return err
	}

	if err := b.messengerSvc.Send(
		ctx, order.HubAddress, ports.PacketCommitOrder,
		ports.CommitOrder{OrderID: id, TxID: txid},
	); err != nil {
		log.WithError(err).WithField("order_id", id).
			Warn("failed to relay commit notification")
	}

	return b.orderRepository.UpdateOrder(
		ctx, id,
		func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
			ok, err := o.Commit(txid)
			if err != nil {
				return nil, err
			}
			if !ok {
				log.WithField("order_id", o.ID).
					Warn("invalidated order on settlement txid mismatch")
				return o, nil
			}
			log.WithFields(log.Fields{
				"order_id": o.ID,
				"txid":     txid,
			}).Info("order committed")
			return o, nil
		},
	)
}

func (b *bridgeService) broadcast(
	ctx context.Context, currency string, rawTx []byte,
) (uint256.Uint256, error) {
	res, err := b.breaker.Execute(func() (interface{}, error) {
		return b.chainSvc.Broadcast(ctx, currency, rawTx)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return uint256.Uint256{}, ErrBroadcastUnavailable
		}
		return uint256.Uint256{}, err
	}
	return res.(uint256.Uint256), nil
}

// buildSettlementPair derives the unsigned settlement and refund bodies
// from the locked deposits: the settlement pays each participant's
// destination address, the refund returns the deposits to their source
// addresses after the order deadline, both charging the fee floor.
func buildSettlementPair(
	o *domain.SwapOrder,
) (*utxotx.Transaction, *utxotx.Transaction, error) {
	if !o.Maker.IsComplete() || !o.Taker.IsComplete() {
		return nil, nil, domain.ErrOrderIncompleteParticipant
	}

	prevOuts := []utxotx.OutPoint{o.MakerDeposit, o.TakerDeposit}
	creationTime := uint32(time.Now().Unix())

	paymentTx, err := utxotx.NewSettlement(
		prevOuts,
		[]*utxotx.TxOut{
			utxotx.NewTxOut(
				int64(o.FromAmount)-domain.MinTxFee, o.Taker.DestAddress,
			),
			utxotx.NewTxOut(
				int64(o.ToAmount)-domain.MinTxFee, o.Maker.DestAddress,
			),
		},
		0, creationTime,
	)
	if err != nil {
		return nil, nil, err
	}

	refundLockTime := uint32(o.CreatedAt.Add(time.Hour).Unix())
	refundTx, err := utxotx.NewSettlement(
		prevOuts,
		[]*utxotx.TxOut{
			utxotx.NewTxOut(
				int64(o.FromAmount)-domain.MinTxFee, o.Maker.SourceAddress,
			),
			utxotx.NewTxOut(
				int64(o.ToAmount)-domain.MinTxFee, o.Taker.SourceAddress,
			),
		},
		refundLockTime, creationTime,
	)
	if err != nil {
		return nil, nil, err
	}

	return paymentTx, refundTx, nil
}

// spendsDeposits checks that the transaction spends exactly the order's
// two locked deposits, in any order.
func spendsDeposits(tx *utxotx.Transaction, o *domain.SwapOrder) bool {
	if len(tx.Ins) != 2 {
		return false
	}
	first := tx.Ins[0].PreviousOutPoint
	second := tx.Ins[1].PreviousOutPoint
	return (first == o.MakerDeposit && second == o.TakerDeposit) ||
		(first == o.TakerDeposit && second == o.MakerDeposit)
}
