package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xbridge-network/xbridge-daemon/internal/core/domain"
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

func TestSwapOrderLifecycle(t *testing.T) {
	order := newProposedOrder(t)
	require.Equal(t, domain.OrderStatusPending, order.Status)
	require.Equal(t, "2", order.Price)

	ok, err := order.Accept(
		domain.NewParticipant(takerSource, takerDest),
		"BTC", 100*domain.Coin, "LTC", 200*domain.Coin,
	)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.OrderStatusAccepting, order.Status)

	ok, err = order.ObserveDeposit(makerSource, newOutPoint(t, 0))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.OrderStatusAccepting, order.Status)
	require.False(t, order.HasDeposit())

	ok, err = order.ObserveDeposit(takerSource, newOutPoint(t, 1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.OrderStatusHold, order.Status)
	require.True(t, order.HasDeposit())

	ok, err = order.Create([]byte{0x01}, []byte{0x02})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.OrderStatusCreated, order.Status)

	signed := newSettlementTx(t, 10)
	ok, err = order.Sign(signed)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.OrderStatusSigned, order.Status)
	require.True(t, order.PaymentTxID.Equal(signed.Hash(utxotx.EncodingCompact)))

	ok, err = order.Commit(signed.Hash(utxotx.EncodingCompact))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.OrderStatusCommitted, order.Status)

	ok, err = order.Finish()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.OrderStatusFinished, order.Status)
	require.True(t, order.IsTerminal())

	t.Run("terminal state never transitions again", func(t *testing.T) {
		for _, fn := range []func() (bool, error){
			func() (bool, error) { return order.Finish() },
			func() (bool, error) { return order.Rollback() },
			func() (bool, error) { return order.Cancel() },
			func() (bool, error) { return order.Invalidate() },
			func() (bool, error) { return order.Drop() },
			func() (bool, error) {
				return order.Expire(time.Now().Add(time.Hour), 0)
			},
		} {
			ok, err := fn()
			require.EqualError(t, err, domain.ErrOrderFinalized.Error())
			require.False(t, ok)
			require.Equal(t, domain.OrderStatusFinished, order.Status)
		}
	})
}

func TestSwapOrderPropose(t *testing.T) {
	t.Run("malformed proposal drops the order", func(t *testing.T) {
		tests := []struct {
			name       string
			fromAmount uint64
			toAmount   uint64
			source     []byte
		}{
			{"zero from amount", 0, 200, makerSource},
			{"zero to amount", 100, 0, makerSource},
			{"empty source party", 100, 200, nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				order := domain.NewSwapOrder(uint256.Random())
				ok, err := order.Propose(
					tt.source, "BTC", tt.fromAmount,
					takerDest, "LTC", tt.toAmount,
					hubAddr, selfAddr,
				)
				require.NoError(t, err)
				require.False(t, ok)
				require.Equal(t, domain.OrderStatusDropped, order.Status)
			})
		}
	})

	t.Run("repeated proposal is idempotent", func(t *testing.T) {
		order := newProposedOrder(t)
		rev := order.Revision
		ok, err := order.Propose(
			makerSource, "BTC", 100*domain.Coin,
			makerDest, "LTC", 200*domain.Coin,
			hubAddr, selfAddr,
		)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, domain.OrderStatusPending, order.Status)
		require.Equal(t, rev, order.Revision)
	})
}

func TestSwapOrderAccept(t *testing.T) {
	t.Run("mismatched legs invalidate the order", func(t *testing.T) {
		order := newProposedOrder(t)
		ok, err := order.Accept(
			domain.NewParticipant(takerSource, takerDest),
			"BTC", 100*domain.Coin, "LTC", 150*domain.Coin,
		)
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, domain.OrderStatusInvalid, order.Status)
		require.Equal(t, domain.MisbehaviorPenalty, order.MisbehaviorScore)
	})

	t.Run("accept before propose fails", func(t *testing.T) {
		order := domain.NewSwapOrder(uint256.Random())
		ok, err := order.Accept(
			domain.NewParticipant(takerSource, takerDest),
			"BTC", 100*domain.Coin, "LTC", 200*domain.Coin,
		)
		require.EqualError(t, err, domain.ErrOrderMustBePending.Error())
		require.False(t, ok)
	})
}

func TestSwapOrderObserveDeposit(t *testing.T) {
	t.Run("unknown party is rejected", func(t *testing.T) {
		order := newAcceptedOrder(t)
		ok, err := order.ObserveDeposit([]byte("stranger"), newOutPoint(t, 0))
		require.EqualError(t, err, domain.ErrOrderUnknownParty.Error())
		require.False(t, ok)
		require.Equal(t, domain.OrderStatusAccepting, order.Status)
	})

	t.Run("same party depositing twice does not reach hold", func(t *testing.T) {
		order := newAcceptedOrder(t)
		for i := 0; i < 2; i++ {
			ok, err := order.ObserveDeposit(makerSource, newOutPoint(t, uint32(i)))
			require.NoError(t, err)
			require.True(t, ok)
		}
		require.Equal(t, domain.OrderStatusAccepting, order.Status)
	})
}

func TestSwapOrderSign(t *testing.T) {
	t.Run("newer replacement supersedes held settlement", func(t *testing.T) {
		order := newCreatedOrder(t)
		held := newSettlementTx(t, 10)
		ok, err := order.Sign(held)
		require.NoError(t, err)
		require.True(t, ok)

		replacement := newSettlementTx(t, 5)
		ok, err = order.Sign(replacement)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, domain.OrderStatusSigned, order.Status)
		require.True(t, order.PaymentTxID.Equal(
			replacement.Hash(utxotx.EncodingCompact)))
	})

	t.Run("older settlement is discarded", func(t *testing.T) {
		order := newCreatedOrder(t)
		held := newSettlementTx(t, 5)
		ok, err := order.Sign(held)
		require.NoError(t, err)
		require.True(t, ok)

		stale := newSettlementTx(t, 10)
		ok, err = order.Sign(stale)
		require.NoError(t, err)
		require.False(t, ok)
		require.True(t, order.PaymentTxID.Equal(
			held.Hash(utxotx.EncodingCompact)))
	})

	t.Run("sign before create fails", func(t *testing.T) {
		order := newProposedOrder(t)
		ok, err := order.Sign(newSettlementTx(t, 10))
		require.EqualError(t, err, domain.ErrOrderMustBeCreated.Error())
		require.False(t, ok)
	})
}

func TestSwapOrderCommit(t *testing.T) {
	t.Run("mismatched txid invalidates the order", func(t *testing.T) {
		order := newSignedOrder(t)
		ok, err := order.Commit(uint256.Random())
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, domain.OrderStatusInvalid, order.Status)
	})
}

func TestSwapOrderMarkRefundBroadcast(t *testing.T) {
	t.Run("records the refund txid without changing state", func(t *testing.T) {
		order := newHoldOrder(t)
		txid := uint256.Random()
		ok, err := order.MarkRefundBroadcast(txid)
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, order.RefundTxID.Equal(txid))
		require.Equal(t, domain.OrderStatusHold, order.Status)

		ok, err = order.Rollback()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, domain.OrderStatusRolledBack, order.Status)
	})

	t.Run("rejected before hold", func(t *testing.T) {
		order := newAcceptedOrder(t)
		ok, err := order.MarkRefundBroadcast(uint256.Random())
		require.EqualError(t, err, domain.ErrOrderNothingToRefund.Error())
		require.False(t, ok)
		require.True(t, order.RefundTxID.IsZero())
	})

	t.Run("rejected after commit", func(t *testing.T) {
		order := newSignedOrder(t)
		ok, err := order.Commit(order.PaymentTxID)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = order.MarkRefundBroadcast(uint256.Random())
		require.EqualError(t, err, domain.ErrOrderAlreadyCommitted.Error())
		require.False(t, ok)
	})
}

func TestSwapOrderRollback(t *testing.T) {
	t.Run("nothing to refund before hold", func(t *testing.T) {
		order := newAcceptedOrder(t)
		ok, err := order.Rollback()
		require.EqualError(t, err, domain.ErrOrderNothingToRefund.Error())
		require.False(t, ok)
	})

	t.Run("refund window closes on commit", func(t *testing.T) {
		order := newSignedOrder(t)
		ok, err := order.Commit(order.PaymentTxID)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = order.Rollback()
		require.EqualError(t, err, domain.ErrOrderAlreadyCommitted.Error())
		require.False(t, ok)
	})

	t.Run("rollback from hold", func(t *testing.T) {
		order := newHoldOrder(t)
		ok, err := order.Rollback()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, domain.OrderStatusRolledBack, order.Status)
	})
}

func TestSwapOrderExpire(t *testing.T) {
	order := newProposedOrder(t)
	timeout := time.Minute

	ok, err := order.Expire(order.LastActivityAt.Add(time.Second), timeout)
	require.EqualError(t, err, domain.ErrOrderDeadlineNotReached.Error())
	require.False(t, ok)
	require.Equal(t, domain.OrderStatusPending, order.Status)

	ok, err = order.Expire(order.LastActivityAt.Add(2*timeout), timeout)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.OrderStatusExpired, order.Status)
}

func TestSwapOrderMerge(t *testing.T) {
	t.Run("earliest creation time wins", func(t *testing.T) {
		old := newProposedOrder(t)
		old.CreatedAt = time.Now().Add(-time.Hour)

		incoming := old.Copy()
		incoming.CreatedAt = time.Now()
		incoming.Status = domain.OrderStatusAccepting

		merged := domain.Merge(old, incoming)
		require.Equal(t, old.CreatedAt, merged.CreatedAt)
		require.Equal(t, domain.OrderStatusAccepting, merged.Status)
		require.Greater(t, merged.Revision, old.Revision)
	})

	t.Run("terminal state never regresses", func(t *testing.T) {
		old := newProposedOrder(t)
		old.Status = domain.OrderStatusCancelled

		incoming := old.Copy()
		incoming.Status = domain.OrderStatusAccepting

		merged := domain.Merge(old, incoming)
		require.Equal(t, domain.OrderStatusCancelled, merged.Status)
	})

	t.Run("nil sides", func(t *testing.T) {
		order := newProposedOrder(t)
		require.Equal(t, order.ID, domain.Merge(nil, order).ID)
		require.Equal(t, order.ID, domain.Merge(order, nil).ID)
	})
}

func TestSwapOrderCopy(t *testing.T) {
	order := newHoldOrder(t)
	cp := order.Copy()

	cp.SourceParty[0] ^= 0xff
	cp.Maker.SourceAddress[0] ^= 0xff
	require.Equal(t, makerSource, order.SourceParty)
	require.Equal(t, makerSource, order.Maker.SourceAddress)
}

func newProposedOrder(t *testing.T) *domain.SwapOrder {
	t.Helper()
	order := domain.NewSwapOrder(uint256.Random())
	ok, err := order.Propose(
		makerSource, "BTC", 100*domain.Coin,
		makerDest, "LTC", 200*domain.Coin,
		hubAddr, selfAddr,
	)
	require.NoError(t, err)
	require.True(t, ok)
	return order
}

func newAcceptedOrder(t *testing.T) *domain.SwapOrder {
	t.Helper()
	order := newProposedOrder(t)
	ok, err := order.Accept(
		domain.NewParticipant(takerSource, takerDest),
		"BTC", 100*domain.Coin, "LTC", 200*domain.Coin,
	)
	require.NoError(t, err)
	require.True(t, ok)
	return order
}

func newHoldOrder(t *testing.T) *domain.SwapOrder {
	t.Helper()
	order := newAcceptedOrder(t)
	for i, party := range [][]byte{makerSource, takerSource} {
		ok, err := order.ObserveDeposit(party, newOutPoint(t, uint32(i)))
		require.NoError(t, err)
		require.True(t, ok)
	}
	return order
}

func newCreatedOrder(t *testing.T) *domain.SwapOrder {
	t.Helper()
	order := newHoldOrder(t)
	ok, err := order.Create([]byte{0x01}, []byte{0x02})
	require.NoError(t, err)
	require.True(t, ok)
	return order
}

func newSignedOrder(t *testing.T) *domain.SwapOrder {
	t.Helper()
	order := newCreatedOrder(t)
	ok, err := order.Sign(newSettlementTx(t, 10))
	require.NoError(t, err)
	require.True(t, ok)
	return order
}

func newOutPoint(t *testing.T, index uint32) utxotx.OutPoint {
	t.Helper()
	hash, err := uint256.FromString(
		"0101010101010101010101010101010101010101010101010101010101010101",
	)
	require.NoError(t, err)
	return utxotx.OutPoint{Hash: hash, Index: index}
}

// newSettlementTx builds a one-input settlement spending a fixed
// outpoint, so transactions produced with different sequence numbers are
// replacements of each other.
func newSettlementTx(t *testing.T, sequence uint32) *utxotx.Transaction {
	t.Helper()
	tx := utxotx.NewTransaction(1700000000)
	in := utxotx.NewTxIn(newOutPoint(t, 0), nil)
	in.Sequence = sequence
	tx.AddTxIn(in)
	tx.AddTxOut(utxotx.NewTxOut(100*domain.Coin-domain.MinTxFee, []byte{0x51}))
	return tx
}
