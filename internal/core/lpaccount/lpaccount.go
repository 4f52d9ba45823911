// Package lpaccount implements the per-user staging account that collects the
// two sides of a liquidity deposit before the pool mints shares.
package lpaccount

import (
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"go.uber.org/zap"
)

// Stage describes how much of a deposit has been staged.
type Stage int

const (
	Empty Stage = iota
	PartiallyStaged
	FullyStaged
)

func (s Stage) String() string {
	switch s {
	case Empty:
		return "empty"
	case PartiallyStaged:
		return "partially_staged"
	case FullyStaged:
		return "fully_staged"
	}
	return "unknown"
}

// Account is the decoded state of an LP account.
type Account struct {
	codec.LpAccountData
}

// Decode parses an LP account data cell.
func Decode(data *cell.Cell) (*Account, error) {
	d, err := codec.ParseLpAccountData(data)
	if err != nil {
		return nil, err
	}
	return &Account{LpAccountData: d}, nil
}

// Stage classifies the staged balances.
func (a *Account) Stage() Stage {
	switch {
	case a.Stored0.IsZero() && a.Stored1.IsZero():
		return Empty
	case a.Stored0.IsZero() || a.Stored1.IsZero():
		return PartiallyStaged
	}
	return FullyStaged
}

func (a *Account) clear() {
	a.Stored0 = new(uint256.Int)
	a.Stored1 = new(uint256.Int)
}

// Handle applies one message to the account.
func (a *Account) Handle(ctx *actor.Context, msg actor.Message) actor.Result {
	if msg.Bounced {
		// Staged amounts that left with a bounced message are not re-credited.
		ctx.Log.Warn("bounced message ignored",
			zap.String("account", codec.FormatAddress(ctx.Self)),
			zap.String("from", codec.FormatAddress(ctx.Sender)))
		return actor.ExitOK
	}
	h, body, err := codec.ParseHeader(msg.Body)
	if err != nil {
		return actor.ExitMalformed
	}
	switch h.Op {
	case codec.OpAddLiquidity:
		m, err := codec.ParseAddLiquidity(h.Op, body)
		if err != nil {
			return actor.ExitMalformed
		}
		return a.addLiquidity(ctx, h.QueryID, m)
	case codec.OpDirectAddLiquidity:
		m, err := codec.ParseAddLiquidity(h.Op, body)
		if err != nil {
			return actor.ExitMalformed
		}
		return a.directAddLiquidity(ctx, h.QueryID, m)
	case codec.OpRefundMe:
		return a.refundMe(ctx, h.QueryID)
	case codec.OpResetGas:
		return a.resetGas(ctx, h.QueryID)
	case codec.OpGetterLpAccountData:
		ctx.Reply(codec.LpAccountDataReply{
			QueryID: h.QueryID,
			User:    a.User,
			Pool:    a.Pool,
			Amount0: a.Stored0,
			Amount1: a.Stored1,
		}.ToCell())
		return actor.ExitOK
	}
	return actor.ExitWrongOp
}

// addLiquidity stages amounts relayed by the pool. Once both sides are present
// and a minimum was requested, the staged totals go back to the pool for minting.
func (a *Account) addLiquidity(ctx *actor.Context, queryID uint64, m codec.AddLiquidity) actor.Result {
	if !codec.SameAddress(ctx.Sender, a.Pool) {
		return actor.ExitInvalidCaller
	}
	stored0 := new(uint256.Int).Add(a.Stored0, m.Amount0)
	stored1 := new(uint256.Int).Add(a.Stored1, m.Amount1)
	if !codec.FitsCoins(stored0) || !codec.FitsCoins(stored1) {
		return actor.ExitStateOverflow
	}
	a.Stored0, a.Stored1 = stored0, stored1

	if m.MinLPOut.IsZero() || a.Stage() != FullyStaged {
		ctx.Log.Debug("liquidity staged",
			zap.String("user", codec.FormatAddress(a.User)),
			zap.String("stored0", a.Stored0.Dec()),
			zap.String("stored1", a.Stored1.Dec()))
		return actor.ExitOK
	}
	a.sendMint(ctx, queryID, m.MinLPOut)
	return actor.ExitOK
}

// directAddLiquidity lets the owner mint from whatever is already staged.
func (a *Account) directAddLiquidity(ctx *actor.Context, queryID uint64, m codec.AddLiquidity) actor.Result {
	if !codec.SameAddress(ctx.Sender, a.User) {
		return actor.ExitInvalidCaller
	}
	if a.Stage() != FullyStaged {
		return actor.ExitInvalidAmount
	}
	a.sendMint(ctx, queryID, m.MinLPOut)
	return actor.ExitOK
}

func (a *Account) sendMint(ctx *actor.Context, queryID uint64, minLPOut *uint256.Int) {
	ctx.Send(actor.Outbound{
		Dst:    a.Pool,
		Mode:   actor.SendCarryInbound,
		Bounce: true,
		Body: codec.CbAddLiquidity{
			QueryID:  queryID,
			Amount0:  a.Stored0,
			Amount1:  a.Stored1,
			User:     a.User,
			MinLPOut: minLPOut,
		}.ToCell(),
	})
	a.clear()
}

func (a *Account) refundMe(ctx *actor.Context, queryID uint64) actor.Result {
	if !codec.SameAddress(ctx.Sender, a.User) {
		return actor.ExitInvalidCaller
	}
	if a.Stage() == Empty {
		return actor.ExitInvalidAmount
	}
	ctx.Send(actor.Outbound{
		Dst:    a.Pool,
		Mode:   actor.SendCarryInbound,
		Bounce: true,
		Body: codec.CbRefundMe{
			QueryID: queryID,
			Amount0: a.Stored0,
			Amount1: a.Stored1,
			User:    a.User,
		}.ToCell(),
	})
	a.clear()
	return actor.ExitOK
}

func (a *Account) resetGas(ctx *actor.Context, queryID uint64) actor.Result {
	if !codec.SameAddress(ctx.Sender, a.User) {
		return actor.ExitInvalidCaller
	}
	ctx.Send(actor.Outbound{Dst: a.User, Mode: actor.SendCarryBalance, Body: codec.Excesses(queryID)})
	return actor.ExitOK
}
