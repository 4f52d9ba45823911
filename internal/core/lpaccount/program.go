package lpaccount

import (
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Code is the code cell LP accounts are deployed with.
var Code = actor.CodeCell("lp_account", 1)

// Program runs LP accounts on the ledger.
type Program struct{}

func (Program) Name() string { return "lp_account" }

// Receive decodes the account, applies msg and re-encodes it. The input data is
// returned unchanged when the message is rejected.
func (Program) Receive(ctx *actor.Context, data *cell.Cell, msg actor.Message) (*cell.Cell, actor.Result) {
	acc, err := Decode(data)
	if err != nil {
		return data, actor.ExitMalformed
	}
	if res := acc.Handle(ctx, msg); !res.IsSuccess() {
		return data, res
	}
	out, err := acc.ToCell()
	if err != nil {
		return data, actor.ExitStateOverflow
	}
	return out, actor.ExitOK
}
