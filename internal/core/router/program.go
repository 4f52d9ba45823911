package router

import (
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Code is the code cell of the initial router release.
var Code = actor.CodeCell("router", 1)

// Program runs the router on the ledger.
type Program struct{}

func (Program) Name() string { return "router" }

func (Program) Receive(ctx *actor.Context, data *cell.Cell, msg actor.Message) (*cell.Cell, actor.Result) {
	r, err := Decode(data)
	if err != nil {
		return data, actor.ExitMalformed
	}
	if res := r.Handle(ctx, msg); !res.IsSuccess() {
		return data, res
	}
	out, err := r.ToCell()
	if err != nil {
		return data, actor.ExitStateOverflow
	}
	return out, actor.ExitOK
}

// InitialData builds the data cell of a freshly deployed, unlocked router.
func InitialData(admin *address.Address, poolCode, lpAccountCode, lpWalletCode *cell.Cell) (*cell.Cell, error) {
	return codec.RouterData{
		Admin:         admin,
		PoolCode:      poolCode,
		LPAccountCode: lpAccountCode,
		LPWalletCode:  lpWalletCode,
	}.ToCell()
}
