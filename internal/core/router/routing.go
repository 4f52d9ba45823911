package router

import (
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/CjHare/ton-amm-dex/internal/core/deriver"
	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"go.uber.org/zap"
)

// transferNotification routes tokens that arrived in one of the router's
// jetton wallets. Requests that cannot be routed are sent back to the
// depositor; they never fail the transition.
func (r *Router) transferNotification(ctx *actor.Context, queryID uint64, m codec.TransferNotification) actor.Result {
	wallet := ctx.Sender
	refund := func(exitCode uint32) actor.Result {
		ctx.Send(actor.Outbound{
			Dst:  wallet,
			Mode: actor.SendCarryInbound,
			Body: codec.Transfer{
				QueryID:             queryID,
				Amount:              m.Amount,
				Destination:         m.Sender,
				ResponseDestination: m.Sender,
				ForwardPayload:      codec.ExitPayload(exitCode, queryID),
			}.ToCell(),
		})
		ctx.Log.Debug("transfer refunded",
			zap.String("reason", codec.OpName(exitCode)),
			zap.String("to", codec.FormatAddress(m.Sender)),
			zap.String("amount", m.Amount.Dec()))
		return actor.ExitOK
	}

	if r.IsLocked {
		return refund(codec.ExitTransferBounceLocked)
	}
	_, payload, err := codec.ParseForwardPayload(m.ForwardPayload)
	if err != nil || payload == nil {
		return refund(codec.ExitTransferBounceInvalidRequest)
	}

	switch p := payload.(type) {
	case codec.SwapPayload:
		if codec.IsNone(p.WalletTokenB) || codec.SameAddress(p.WalletTokenB, wallet) {
			return refund(codec.ExitTransferBounceInvalidRequest)
		}
		pool, init, err := r.poolInit(ctx, wallet, p.WalletTokenB)
		if err != nil {
			return refund(codec.ExitTransferBounceInvalidRequest)
		}
		ctx.Send(actor.Outbound{
			Dst:       pool,
			Mode:      actor.SendCarryInbound,
			Bounce:    true,
			StateInit: init,
			Body: codec.PoolSwap{
				QueryID:     queryID,
				FromAddress: m.Sender,
				TokenWallet: wallet,
				Amount:      m.Amount,
				MinOut:      p.MinOut,
				ToAddress:   p.ToAddress,
				RefAddress:  p.RefAddress,
			}.ToCell(),
		})
	case codec.ProvideLPPayload:
		if codec.IsNone(p.WalletTokenB) || codec.SameAddress(p.WalletTokenB, wallet) {
			return refund(codec.ExitTransferBounceInvalidRequest)
		}
		pool, init, err := r.poolInit(ctx, wallet, p.WalletTokenB)
		if err != nil {
			return refund(codec.ExitTransferBounceInvalidRequest)
		}
		amount0, amount1 := m.Amount, new(uint256.Int)
		if w0, _ := deriver.SortWallets(wallet, p.WalletTokenB); !codec.SameAddress(w0, wallet) {
			amount0, amount1 = amount1, amount0
		}
		ctx.Send(actor.Outbound{
			Dst:       pool,
			Mode:      actor.SendCarryInbound,
			Bounce:    true,
			StateInit: init,
			Body: codec.PoolProvideLP{
				QueryID:  queryID,
				Owner:    m.Sender,
				MinLPOut: p.MinLPOut,
				Amount0:  amount0,
				Amount1:  amount1,
			}.ToCell(),
		})
	default:
		return refund(codec.ExitTransferBounceInvalidRequest)
	}
	return actor.ExitOK
}

// payTo transfers pool payouts to their owner. Only the pool of the named
// wallet pair may request one.
func (r *Router) payTo(ctx *actor.Context, queryID uint64, m codec.PayTo) actor.Result {
	pool, err := r.PoolAddress(ctx.Deriver, ctx.Self, m.Wallet0, m.Wallet1)
	if err != nil {
		return actor.ExitMalformed
	}
	if !codec.SameAddress(ctx.Sender, pool) {
		return actor.ExitInvalidCaller
	}

	type leg struct {
		wallet *address.Address
		amount *uint256.Int
	}
	var legs []leg
	if !m.Amount0.IsZero() {
		legs = append(legs, leg{m.Wallet0, m.Amount0})
	}
	if !m.Amount1.IsZero() {
		legs = append(legs, leg{m.Wallet1, m.Amount1})
	}
	if len(legs) == 0 {
		ctx.Send(actor.Outbound{Dst: m.Owner, Mode: actor.SendCarryInbound, Body: codec.Excesses(queryID)})
		return actor.ExitOK
	}
	for i, l := range legs {
		out := actor.Outbound{
			Dst:   l.wallet,
			Value: TransferValue,
			Mode:  actor.SendValue,
			Body: codec.Transfer{
				QueryID:             queryID,
				Amount:              l.amount,
				Destination:         m.Owner,
				ResponseDestination: m.Owner,
				ForwardPayload:      codec.ExitPayload(m.ExitCode, queryID),
			}.ToCell(),
		}
		if i == len(legs)-1 {
			out.Value, out.Mode = 0, actor.SendCarryInbound
		}
		ctx.Send(out)
	}
	ctx.Log.Debug("pay_to",
		zap.String("owner", codec.FormatAddress(m.Owner)),
		zap.String("exit", codec.OpName(m.ExitCode)),
		zap.String("amount0", m.Amount0.Dec()),
		zap.String("amount1", m.Amount1.Dec()))
	return actor.ExitOK
}
