package pool

import (
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// collectFees pays the accrued protocol fees to the protocol fee address.
// Anyone may trigger it; the caller funds the payout.
func (p *Pool) collectFees(ctx *actor.Context, queryID uint64) actor.Result {
	if codec.IsNone(p.ProtocolFeeAddress) {
		return actor.ExitNoProtocolFeeAddress
	}
	if ctx.Value < CollectFeesGas {
		return actor.ExitInsufficientGas
	}
	p.payTo(ctx, queryID, p.ProtocolFeeAddress, codec.OpCollectFees,
		p.Collected0, p.Collected1, actor.SendCarryInbound, 0)
	ctx.Log.Debug("protocol fees collected",
		zap.String("pool", codec.FormatAddress(ctx.Self)),
		zap.String("collected0", p.Collected0.Dec()),
		zap.String("collected1", p.Collected1.Dec()))
	p.Collected0 = new(uint256.Int)
	p.Collected1 = new(uint256.Int)
	return actor.ExitOK
}

// setFees overwrites the fee parameters. Values are bounded only by their
// 8-bit encoding.
func (p *Pool) setFees(ctx *actor.Context, queryID uint64, m codec.SetFees) actor.Result {
	if !codec.SameAddress(ctx.Sender, p.Router) {
		return actor.ExitInvalidCaller
	}
	p.LPFee = m.LPFee
	p.ProtocolFee = m.ProtocolFee
	p.RefFee = m.RefFee
	p.ProtocolFeeAddress = m.ProtocolFeeAddress
	ctx.Send(actor.Outbound{Dst: p.Router, Mode: actor.SendCarryInbound, Body: codec.Excesses(queryID)})
	return actor.ExitOK
}

func (p *Pool) resetGas(ctx *actor.Context, queryID uint64) actor.Result {
	if !codec.SameAddress(ctx.Sender, p.Router) {
		return actor.ExitInvalidCaller
	}
	ctx.Send(actor.Outbound{Dst: p.Router, Mode: actor.SendCarryBalance, Body: codec.Excesses(queryID)})
	return actor.ExitOK
}
