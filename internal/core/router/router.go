// Package router implements the exchange entry point. The router receives
// jetton transfer notifications, forwards swaps and deposits to the pool of
// the pair, pays out on behalf of pools and carries admin governance.
package router

import (
	"time"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/CjHare/ton-amm-dex/internal/core/deriver"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"go.uber.org/zap"
)

// Governance delays.
const (
	CodeUpgradeDelay  = 7 * 24 * time.Hour
	AdminUpgradeDelay = 2 * 24 * time.Hour
)

// TransferValue funds each jetton transfer of a payout except the last, which
// carries the remaining inbound value.
const TransferValue = 50_000_000

// Router is the decoded router state.
type Router struct {
	codec.RouterData
}

// Decode parses a router data cell.
func Decode(data *cell.Cell) (*Router, error) {
	d, err := codec.ParseRouterData(data)
	if err != nil {
		return nil, err
	}
	return &Router{RouterData: d}, nil
}

// Codes returns the code cells the router deploys pools with.
func (r *Router) Codes() deriver.Codes {
	return deriver.Codes{Pool: r.PoolCode, LPAccount: r.LPAccountCode, LPWallet: r.LPWalletCode}
}

// PoolAddress derives the pool for an unordered wallet pair.
func (r *Router) PoolAddress(d *deriver.Deriver, self, walletA, walletB *address.Address) (*address.Address, error) {
	return d.PoolAddress(self, walletA, walletB, r.Codes())
}

func (r *Router) poolInit(ctx *actor.Context, walletA, walletB *address.Address) (*address.Address, *actor.StateInit, error) {
	code, data, err := ctx.Deriver.PoolInit(ctx.Self, walletA, walletB, r.Codes())
	if err != nil {
		return nil, nil, err
	}
	return ctx.Deriver.Address(code, data), &actor.StateInit{Code: code, Data: data}, nil
}

func (r *Router) isAdmin(a *address.Address) bool {
	return codec.SameAddress(a, r.Admin)
}

// Handle applies one message to the router.
func (r *Router) Handle(ctx *actor.Context, msg actor.Message) actor.Result {
	if msg.Bounced {
		// Payouts and forwards that bounce leave the router unchanged.
		ctx.Log.Warn("bounced message",
			zap.String("from", codec.FormatAddress(ctx.Sender)),
			zap.Uint64("value", ctx.Value))
		return actor.ExitOK
	}
	h, body, err := codec.ParseHeader(msg.Body)
	if err != nil {
		return actor.ExitMalformed
	}
	q := h.QueryID

	switch h.Op {
	case 0, codec.OpExcesses:
		return actor.ExitOK
	case codec.OpTransferNotification:
		m, err := codec.ParseTransferNotification(body)
		if err != nil {
			return actor.ExitMalformed
		}
		return r.transferNotification(ctx, q, m)
	case codec.OpPayTo:
		m, err := codec.ParsePayTo(body)
		if err != nil {
			return actor.ExitMalformed
		}
		return r.payTo(ctx, q, m)
	case codec.OpGetterPoolAddress:
		m, err := codec.ParseJettonPair(h.Op, body)
		if err != nil {
			return actor.ExitMalformed
		}
		pool, err := r.PoolAddress(ctx.Deriver, ctx.Self, m.Jetton0, m.Jetton1)
		if err != nil {
			return actor.ExitMalformed
		}
		ctx.Reply(codec.AddressReply{Op: h.Op, QueryID: q, Address: pool}.ToCell())
		return actor.ExitOK
	case codec.OpGetterRouterData:
		ctx.Reply(codec.RouterDataReply{
			QueryID:      q,
			IsLocked:     r.IsLocked,
			Admin:        r.Admin,
			CodeExpiry:   r.CodeExpiry,
			AdminExpiry:  r.AdminExpiry,
			PendingAdmin: r.PendingAdmin,
		}.ToCell())
		return actor.ExitOK
	}

	if !r.isAdmin(ctx.Sender) {
		// Privileged operations look unknown to everyone else.
		return actor.ExitWrongOp
	}
	return r.admin(ctx, h, body)
}
