package router

import (
	"encoding/hex"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"go.uber.org/zap"
)

// admin dispatches privileged operations. The caller is already known to be
// the admin.
func (r *Router) admin(ctx *actor.Context, h codec.Header, body *cell.Slice) actor.Result {
	q := h.QueryID
	switch h.Op {
	case codec.OpCollectFees, codec.OpResetPoolGas:
		m, err := codec.ParseJettonPair(h.Op, body)
		if err != nil {
			return actor.ExitMalformed
		}
		inner := codec.OpCollectFees
		if h.Op == codec.OpResetPoolGas {
			inner = codec.OpResetGas
		}
		return r.toPool(ctx, m.Jetton0, m.Jetton1, codec.Simple(inner, q))
	case codec.OpSetFees:
		m, err := codec.ParseRouterSetFees(body)
		if err != nil {
			return actor.ExitMalformed
		}
		m.QueryID = q
		return r.toPool(ctx, m.Jetton0, m.Jetton1, m.PoolCell())
	case codec.OpLock:
		r.IsLocked = true
		ctx.Log.Info("router locked")
		return actor.ExitOK
	case codec.OpUnlock:
		r.IsLocked = false
		ctx.Log.Info("router unlocked")
		return actor.ExitOK
	case codec.OpInitCodeUpgrade:
		m, err := codec.ParseInitCodeUpgrade(body)
		if err != nil || codec.IsEmptyCell(m.Code) {
			return actor.ExitMalformed
		}
		r.PendingCode = m.Code
		r.CodeExpiry = ctx.Unix() + uint64(CodeUpgradeDelay.Seconds())
		ctx.Log.Info("code upgrade scheduled", zap.Uint64("expiry", r.CodeExpiry))
		return actor.ExitOK
	case codec.OpInitAdminUpgrade:
		m, err := codec.ParseInitAdminUpgrade(body)
		if err != nil || codec.IsNone(m.Admin) {
			return actor.ExitMalformed
		}
		r.PendingAdmin = m.Admin
		r.AdminExpiry = ctx.Unix() + uint64(AdminUpgradeDelay.Seconds())
		ctx.Log.Info("admin upgrade scheduled",
			zap.String("admin", codec.FormatAddress(m.Admin)),
			zap.Uint64("expiry", r.AdminExpiry))
		return actor.ExitOK
	case codec.OpCancelCodeUpgrade:
		r.PendingCode, r.CodeExpiry = nil, 0
		return actor.ExitOK
	case codec.OpCancelAdminUpgrade:
		r.PendingAdmin, r.AdminExpiry = nil, 0
		return actor.ExitOK
	case codec.OpFinalizeUpgrades:
		r.finalize(ctx)
		return actor.ExitOK
	case codec.OpResetGas:
		ctx.Send(actor.Outbound{Dst: r.Admin, Mode: actor.SendCarryBalance, Body: codec.Excesses(q)})
		return actor.ExitOK
	}
	return actor.ExitWrongOp
}

// finalize applies each pending upgrade whose delay has elapsed. Tracks are
// independent and an immature track is left untouched.
func (r *Router) finalize(ctx *actor.Context) {
	now := ctx.Unix()
	if r.PendingCode != nil && now >= r.CodeExpiry {
		ctx.SetCode(r.PendingCode)
		ctx.Log.Info("code upgraded", zap.String("hash", cellHash(r.PendingCode)))
		r.PendingCode, r.CodeExpiry = nil, 0
	}
	if r.PendingAdmin != nil && now >= r.AdminExpiry {
		ctx.Log.Info("admin upgraded", zap.String("admin", codec.FormatAddress(r.PendingAdmin)))
		r.Admin = r.PendingAdmin
		r.PendingAdmin, r.AdminExpiry = nil, 0
	}
}

// toPool forwards an admin request to the pool of the pair.
func (r *Router) toPool(ctx *actor.Context, jetton0, jetton1 *address.Address, body *cell.Cell) actor.Result {
	pool, err := r.PoolAddress(ctx.Deriver, ctx.Self, jetton0, jetton1)
	if err != nil {
		return actor.ExitMalformed
	}
	ctx.Send(actor.Outbound{Dst: pool, Mode: actor.SendCarryInbound, Bounce: true, Body: body})
	return actor.ExitOK
}

func cellHash(c *cell.Cell) string {
	return hex.EncodeToString(c.Hash())
}
