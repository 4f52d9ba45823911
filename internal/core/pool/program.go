package pool

import (
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Code is the code cell pools are deployed with.
var Code = actor.CodeCell("pool", 1)

// Program runs pools on the ledger.
type Program struct{}

func (Program) Name() string { return "pool" }

func (Program) Receive(ctx *actor.Context, data *cell.Cell, msg actor.Message) (*cell.Cell, actor.Result) {
	p, err := Decode(data)
	if err != nil {
		return data, actor.ExitMalformed
	}
	if res := p.Handle(ctx, msg); !res.IsSuccess() {
		return data, res
	}
	out, err := p.ToCell()
	if err != nil {
		return data, actor.ExitStateOverflow
	}
	return out, actor.ExitOK
}
