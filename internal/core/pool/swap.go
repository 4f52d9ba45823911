package pool

import (
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/CjHare/ton-amm-dex/internal/core/amm"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

func (p *Pool) reserves(side int) (in, out *uint256.Int) {
	if side == 0 {
		return p.Reserve0, p.Reserve1
	}
	return p.Reserve1, p.Reserve0
}

// swap exchanges the router-forwarded input. Slippage and empty reserves are
// business outcomes: the input is refunded and the transition still commits.
func (p *Pool) swap(ctx *actor.Context, queryID uint64, m codec.PoolSwap) actor.Result {
	if !codec.SameAddress(ctx.Sender, p.Router) {
		return actor.ExitInvalidCaller
	}
	side := p.side(m.TokenWallet)
	if side < 0 {
		return actor.ExitInvalidToken
	}
	refund := func(exitCode uint32) actor.Result {
		a0, a1 := onSide(side, m.Amount)
		p.payTo(ctx, queryID, m.FromAddress, exitCode, a0, a1, actor.SendCarryInbound, 0)
		ctx.Log.Debug("swap refunded",
			zap.String("pool", codec.FormatAddress(ctx.Self)),
			zap.String("reason", codec.OpName(exitCode)),
			zap.String("amount", m.Amount.Dec()))
		return actor.ExitOK
	}
	if !p.HasLiquidity() {
		return refund(codec.ExitSwapRefundNoLiq)
	}

	reserveIn, reserveOut := p.reserves(side)
	q := amm.Swap(m.Amount, reserveIn, reserveOut, p.Fees(), m.HasRef())
	if q.AmountOut.IsZero() || q.AmountOut.Lt(m.MinOut) {
		return refund(codec.ExitSwapRefundReserveErr)
	}

	if side == 0 {
		p.Reserve0, p.Reserve1 = q.ReserveIn, q.ReserveOut
		p.Collected0 = new(uint256.Int).Add(p.Collected0, q.ProtocolFee)
	} else {
		p.Reserve1, p.Reserve0 = q.ReserveIn, q.ReserveOut
		p.Collected1 = new(uint256.Int).Add(p.Collected1, q.ProtocolFee)
	}

	if m.HasRef() && !q.RefFee.IsZero() {
		r0, r1 := onSide(side, q.RefFee)
		p.payTo(ctx, queryID, m.RefAddress, codec.ExitSwapOKRef, r0, r1, actor.SendValue, RefPayoutValue)
	}
	o0, o1 := onSide(1-side, q.AmountOut)
	p.payTo(ctx, queryID, m.ToAddress, codec.ExitSwapOK, o0, o1, actor.SendCarryInbound, 0)

	ctx.Log.Debug("swap",
		zap.String("pool", codec.FormatAddress(ctx.Self)),
		zap.String("in", m.Amount.Dec()),
		zap.String("out", q.AmountOut.Dec()),
		zap.String("protocol_fee", q.ProtocolFee.Dec()),
		zap.String("ref_fee", q.RefFee.Dec()))
	return actor.ExitOK
}
