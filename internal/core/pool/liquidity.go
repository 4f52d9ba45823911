package pool

import (
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/CjHare/ton-amm-dex/internal/core/amm"
	"github.com/CjHare/ton-amm-dex/internal/core/deriver"
	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"go.uber.org/zap"
)

// LpAccountAddress derives the LP account of user for this pool.
func (p *Pool) LpAccountAddress(ctx *actor.Context, user *address.Address) (*address.Address, error) {
	return ctx.Deriver.LpAccountAddress(p.LPAccountCode, user, ctx.Self)
}

// LpWalletAddress derives the LP share wallet of owner for this pool.
func (p *Pool) LpWalletAddress(ctx *actor.Context, owner *address.Address) (*address.Address, error) {
	return ctx.Deriver.LpWalletAddress(p.LPWalletCode, owner, ctx.Self)
}

func (p *Pool) lpAccountInit(ctx *actor.Context, user *address.Address) (*address.Address, *actor.StateInit, error) {
	data, err := deriver.LpAccountInit(user, ctx.Self)
	if err != nil {
		return nil, nil, err
	}
	return ctx.Deriver.Address(p.LPAccountCode, data), &actor.StateInit{Code: p.LPAccountCode, Data: data}, nil
}

// provideLP relays one side of a deposit to the depositor's LP account,
// deploying it if needed.
func (p *Pool) provideLP(ctx *actor.Context, queryID uint64, m codec.PoolProvideLP) actor.Result {
	if !codec.SameAddress(ctx.Sender, p.Router) {
		return actor.ExitInvalidCaller
	}
	account, init, err := p.lpAccountInit(ctx, m.Owner)
	if err != nil {
		return actor.ExitMalformed
	}
	ctx.Send(actor.Outbound{
		Dst:       account,
		Mode:      actor.SendCarryInbound,
		StateInit: init,
		Body: codec.AddLiquidity{
			QueryID:  queryID,
			Amount0:  m.Amount0,
			Amount1:  m.Amount1,
			MinLPOut: m.MinLPOut,
		}.ToCell(),
	})
	return actor.ExitOK
}

// addLiquidity mints shares for amounts released by an LP account.
func (p *Pool) addLiquidity(ctx *actor.Context, queryID uint64, m codec.CbAddLiquidity) actor.Result {
	account, err := p.LpAccountAddress(ctx, m.User)
	if err != nil {
		return actor.ExitMalformed
	}
	if !codec.SameAddress(ctx.Sender, account) {
		return actor.ExitInvalidCaller
	}

	if p.SupplyLP.IsZero() {
		shares := amm.InitialShares(m.Amount0, m.Amount1)
		if shares.IsZero() || shares.Lt(m.MinLPOut) {
			p.restage(ctx, queryID, account, m)
			return actor.ExitOK
		}
		p.deposit(m.Amount0, m.Amount1, shares)
		// The first shares are locked forever at the null address.
		ctx.Send(actor.Outbound{
			Dst:  codec.NoneAddress(),
			Mode: actor.SendValue,
			Body: codec.InternalTransfer{
				QueryID:         queryID,
				Amount:          shares,
				From:            ctx.Self,
				ResponseAddress: m.User,
			}.ToCell(),
		})
		ctx.Send(actor.Outbound{Dst: m.User, Mode: actor.SendCarryInbound, Body: codec.Excesses(queryID)})
		ctx.Log.Debug("initial liquidity",
			zap.String("pool", codec.FormatAddress(ctx.Self)),
			zap.String("shares", shares.Dec()))
		return actor.ExitOK
	}

	shares := amm.Shares(m.Amount0, m.Amount1, p.Reserve0, p.Reserve1, p.SupplyLP)
	if !codec.FitsCoins(shares) {
		return actor.ExitStateOverflow
	}
	if shares.IsZero() || shares.Lt(m.MinLPOut) {
		p.restage(ctx, queryID, account, m)
		return actor.ExitOK
	}
	p.deposit(m.Amount0, m.Amount1, shares)

	data, err := deriver.LpWalletInit(p.LPWalletCode, m.User, ctx.Self)
	if err != nil {
		return actor.ExitMalformed
	}
	ctx.Send(actor.Outbound{
		Dst:       ctx.Deriver.Address(p.LPWalletCode, data),
		Mode:      actor.SendCarryInbound,
		Bounce:    true,
		StateInit: &actor.StateInit{Code: p.LPWalletCode, Data: data},
		Body: codec.InternalTransfer{
			QueryID:         queryID,
			Amount:          shares,
			From:            ctx.Self,
			ResponseAddress: m.User,
		}.ToCell(),
	})
	ctx.Log.Debug("liquidity minted",
		zap.String("pool", codec.FormatAddress(ctx.Self)),
		zap.String("user", codec.FormatAddress(m.User)),
		zap.String("shares", shares.Dec()))
	return actor.ExitOK
}

// deposit adds the full amounts to the reserves. Anything beyond the
// proportional share stays in the pool.
func (p *Pool) deposit(amount0, amount1, shares *uint256.Int) {
	p.Reserve0 = new(uint256.Int).Add(p.Reserve0, amount0)
	p.Reserve1 = new(uint256.Int).Add(p.Reserve1, amount1)
	p.SupplyLP = new(uint256.Int).Add(p.SupplyLP, shares)
}

// restage returns amounts that could not be minted to the LP account, where
// they wait for another deposit, a direct add or a refund.
func (p *Pool) restage(ctx *actor.Context, queryID uint64, account *address.Address, m codec.CbAddLiquidity) {
	ctx.Send(actor.Outbound{
		Dst:  account,
		Mode: actor.SendCarryInbound,
		Body: codec.AddLiquidity{
			QueryID:  queryID,
			Amount0:  m.Amount0,
			Amount1:  m.Amount1,
			MinLPOut: new(uint256.Int),
		}.ToCell(),
	})
	ctx.Log.Debug("liquidity below minimum, restaged",
		zap.String("pool", codec.FormatAddress(ctx.Self)),
		zap.String("user", codec.FormatAddress(m.User)))
}

func (p *Pool) refund(ctx *actor.Context, queryID uint64, m codec.CbRefundMe) actor.Result {
	account, err := p.LpAccountAddress(ctx, m.User)
	if err != nil {
		return actor.ExitMalformed
	}
	if !codec.SameAddress(ctx.Sender, account) {
		return actor.ExitInvalidCaller
	}
	p.payTo(ctx, queryID, m.User, codec.ExitRefundOK, m.Amount0, m.Amount1, actor.SendCarryInbound, 0)
	return actor.ExitOK
}

// burn redeems LP shares reported by the owner's LP wallet.
func (p *Pool) burn(ctx *actor.Context, queryID uint64, m codec.BurnNotification) actor.Result {
	wallet, err := p.LpWalletAddress(ctx, m.From)
	if err != nil {
		return actor.ExitMalformed
	}
	if !codec.SameAddress(ctx.Sender, wallet) {
		return actor.ExitInvalidCaller
	}
	if ctx.Value < BurnGas {
		return actor.ExitInsufficientGas
	}
	if m.Amount.IsZero() || p.SupplyLP.Lt(m.Amount) {
		return actor.ExitInvalidAmount
	}
	amount0, amount1 := amm.BurnAmounts(m.Amount, p.Reserve0, p.Reserve1, p.SupplyLP)
	p.Reserve0 = new(uint256.Int).Sub(p.Reserve0, amount0)
	p.Reserve1 = new(uint256.Int).Sub(p.Reserve1, amount1)
	p.SupplyLP = new(uint256.Int).Sub(p.SupplyLP, m.Amount)

	owner := m.ResponseAddress
	if codec.IsNone(owner) {
		owner = m.From
	}
	p.payTo(ctx, queryID, owner, codec.ExitBurnOK, amount0, amount1, actor.SendCarryInbound, 0)
	return actor.ExitOK
}
