package pool

import (
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/CjHare/ton-amm-dex/internal/core/amm"
	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// ExpectedOutputs prices a swap entering through tokenWallet, with the
// referral fee reported as if a referrer were attached. ok is false when the
// wallet is not part of the pool.
func (p *Pool) ExpectedOutputs(amount *uint256.Int, tokenWallet *address.Address) (q amm.SwapQuote, ok bool) {
	side := p.side(tokenWallet)
	if side < 0 {
		return amm.SwapQuote{}, false
	}
	in, out := p.reserves(side)
	return amm.Swap(amount, in, out, p.Fees(), true), true
}

// ExpectedTokens returns the shares a deposit of amount0/amount1 would mint.
func (p *Pool) ExpectedTokens(amount0, amount1 *uint256.Int) *uint256.Int {
	return amm.ExpectedShares(amount0, amount1, p.Reserve0, p.Reserve1, p.SupplyLP)
}

// ExpectedLiquidity returns the reserve amounts released by burning shares.
func (p *Pool) ExpectedLiquidity(shares *uint256.Int) (amount0, amount1 *uint256.Int) {
	return amm.BurnAmounts(shares, p.Reserve0, p.Reserve1, p.SupplyLP)
}

// DataReply is the getter_pool_data answer for the current state.
func (p *Pool) DataReply(queryID uint64) codec.PoolDataReply {
	return codec.PoolDataReply{
		QueryID:            queryID,
		Reserve0:           p.Reserve0,
		Reserve1:           p.Reserve1,
		Wallet0:            p.Wallet0,
		Wallet1:            p.Wallet1,
		LPFee:              p.LPFee,
		ProtocolFee:        p.ProtocolFee,
		RefFee:             p.RefFee,
		ProtocolFeeAddress: p.ProtocolFeeAddress,
		Collected0:         p.Collected0,
		Collected1:         p.Collected1,
	}
}

func (p *Pool) getter(ctx *actor.Context, h codec.Header, body *cell.Slice) actor.Result {
	var reply *cell.Cell
	switch h.Op {
	case codec.OpGetterPoolData:
		reply = p.DataReply(h.QueryID).ToCell()
	case codec.OpGetterExpectedOutputs:
		m, err := codec.ParseCoins(h.Op, body, 1, true)
		if err != nil {
			return actor.ExitMalformed
		}
		q, ok := p.ExpectedOutputs(m.Amounts[0], m.Address)
		if !ok {
			return actor.ExitInvalidToken
		}
		reply = codec.CoinsMessage{Op: h.Op, QueryID: h.QueryID,
			Amounts: []*uint256.Int{q.AmountOut, q.ProtocolFee, q.RefFee}}.ToCell()
	case codec.OpGetterLpAccountAddress:
		m, err := codec.ParseAddressReply(h.Op, body)
		if err != nil {
			return actor.ExitMalformed
		}
		account, err := p.LpAccountAddress(ctx, m.Address)
		if err != nil {
			return actor.ExitMalformed
		}
		reply = codec.AddressReply{Op: h.Op, QueryID: h.QueryID, Address: account}.ToCell()
	case codec.OpGetterExpectedTokens:
		m, err := codec.ParseCoins(h.Op, body, 2, false)
		if err != nil {
			return actor.ExitMalformed
		}
		reply = codec.CoinsMessage{Op: h.Op, QueryID: h.QueryID,
			Amounts: []*uint256.Int{p.ExpectedTokens(m.Amounts[0], m.Amounts[1])}}.ToCell()
	case codec.OpGetterExpectedLiq:
		m, err := codec.ParseCoins(h.Op, body, 1, false)
		if err != nil {
			return actor.ExitMalformed
		}
		a0, a1 := p.ExpectedLiquidity(m.Amounts[0])
		reply = codec.CoinsMessage{Op: h.Op, QueryID: h.QueryID, Amounts: []*uint256.Int{a0, a1}}.ToCell()
	default:
		return actor.ExitWrongOp
	}
	ctx.Reply(reply)
	return actor.ExitOK
}

func (p *Pool) provideWalletAddress(ctx *actor.Context, queryID uint64, m codec.ProvideWalletAddress) actor.Result {
	wallet, err := p.LpWalletAddress(ctx, m.Owner)
	if err != nil {
		return actor.ExitMalformed
	}
	reply := codec.TakeWalletAddress{QueryID: queryID, Wallet: wallet}
	if m.IncludeAddress {
		reply.Owner = m.Owner
	}
	ctx.Reply(reply.ToCell())
	return actor.ExitOK
}
