// Package pool implements the constant-product pool actor. Pools hold the
// reserves of one token pair, mint and burn LP shares and pay out through the
// router.
package pool

import (
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/CjHare/ton-amm-dex/internal/core/amm"
	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"go.uber.org/zap"
)

// Minimum value that must accompany gas-heavy operations.
const (
	CollectFeesGas = 1_100_000_000
	BurnGas        = 500_000_000
	// RefPayoutValue funds the referral payout of a swap.
	RefPayoutValue = 100_000_000
)

// Pool is the decoded state of a pool.
type Pool struct {
	codec.PoolData
}

// Decode parses a pool data cell.
func Decode(data *cell.Cell) (*Pool, error) {
	d, err := codec.ParsePoolData(data)
	if err != nil {
		return nil, err
	}
	return &Pool{PoolData: d}, nil
}

// Fees returns the pool fee parameters.
func (p *Pool) Fees() amm.Fees {
	return amm.Fees{LP: p.LPFee, Protocol: p.ProtocolFee, Ref: p.RefFee}
}

// HasLiquidity reports whether both reserves are funded.
func (p *Pool) HasLiquidity() bool {
	return !p.Reserve0.IsZero() && !p.Reserve1.IsZero()
}

// side returns 0 or 1 for a pool wallet, or -1 when the wallet is foreign.
func (p *Pool) side(wallet *address.Address) int {
	switch {
	case codec.SameAddress(wallet, p.Wallet0):
		return 0
	case codec.SameAddress(wallet, p.Wallet1):
		return 1
	}
	return -1
}

// Handle applies one message to the pool.
func (p *Pool) Handle(ctx *actor.Context, msg actor.Message) actor.Result {
	if msg.Bounced {
		ctx.Log.Warn("bounced message ignored",
			zap.String("pool", codec.FormatAddress(ctx.Self)),
			zap.String("from", codec.FormatAddress(ctx.Sender)))
		return actor.ExitOK
	}
	h, body, err := codec.ParseHeader(msg.Body)
	if err != nil {
		return actor.ExitMalformed
	}
	q := h.QueryID

	switch h.Op {
	case codec.OpSwap:
		m, err := codec.ParsePoolSwap(body)
		if err != nil {
			return actor.ExitMalformed
		}
		return p.swap(ctx, q, m)
	case codec.OpProvideLP:
		m, err := codec.ParsePoolProvideLP(body)
		if err != nil {
			return actor.ExitMalformed
		}
		return p.provideLP(ctx, q, m)
	case codec.OpCbAddLiquidity:
		m, err := codec.ParseCbAddLiquidity(body)
		if err != nil {
			return actor.ExitMalformed
		}
		return p.addLiquidity(ctx, q, m)
	case codec.OpCbRefundMe:
		m, err := codec.ParseCbRefundMe(body)
		if err != nil {
			return actor.ExitMalformed
		}
		return p.refund(ctx, q, m)
	case codec.OpBurnNotification:
		m, err := codec.ParseBurnNotification(body)
		if err != nil {
			return actor.ExitMalformed
		}
		return p.burn(ctx, q, m)
	case codec.OpCollectFees:
		return p.collectFees(ctx, q)
	case codec.OpSetFees:
		m, err := codec.ParsePoolSetFees(body)
		if err != nil {
			return actor.ExitMalformed
		}
		return p.setFees(ctx, q, m)
	case codec.OpResetGas:
		return p.resetGas(ctx, q)
	case codec.OpProvideWalletAddress:
		m, err := codec.ParseProvideWalletAddress(body)
		if err != nil {
			return actor.ExitMalformed
		}
		return p.provideWalletAddress(ctx, q, m)
	case codec.OpGetterPoolData, codec.OpGetterExpectedOutputs, codec.OpGetterLpAccountAddress,
		codec.OpGetterExpectedTokens, codec.OpGetterExpectedLiq:
		return p.getter(ctx, h, body)
	}
	return actor.ExitWrongOp
}

// payTo asks the router to pay amount0/amount1 of the pool's tokens to owner.
func (p *Pool) payTo(ctx *actor.Context, queryID uint64, owner *address.Address, exitCode uint32,
	amount0, amount1 *uint256.Int, mode actor.SendMode, value uint64) {
	ctx.Send(actor.Outbound{
		Dst:    p.Router,
		Value:  value,
		Mode:   mode,
		Bounce: true,
		Body: codec.PayTo{
			QueryID:  queryID,
			Owner:    owner,
			ExitCode: exitCode,
			Amount0:  orZero(amount0),
			Wallet0:  p.Wallet0,
			Amount1:  orZero(amount1),
			Wallet1:  p.Wallet1,
		}.ToCell(),
	})
}

// onSide places amount on the given side of a (amount0, amount1) pair.
func onSide(side int, amount *uint256.Int) (*uint256.Int, *uint256.Int) {
	if side == 0 {
		return amount, new(uint256.Int)
	}
	return new(uint256.Int), amount
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
