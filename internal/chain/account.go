package chain

import (
	"time"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Account is a deployed account. Accounts whose code has no registered
// program are opaque: they accept every message into their inbox.
type Account struct {
	Address *address.Address
	Code    *cell.Cell
	Data    *cell.Cell
	Balance uint64
	LastLT  uint64
}

// Key is the account's map key.
func (a *Account) Key() string { return codec.AddressKey(a.Address) }

func (a *Account) clone() *Account {
	c := *a
	return &c
}

// Transaction records the processing of one message.
type Transaction struct {
	LT       uint64
	Now      time.Time
	In       actor.Message
	Program  string
	Exit     actor.Result
	Deployed bool
	Opaque   bool // delivered to an account without a program
	Sink     bool // delivered to the null address
	Out      []actor.Message
}

// Op is the operation tag of the inbound message.
func (t *Transaction) Op() uint32 { return t.In.Op() }

// Success reports whether the transaction committed.
func (t *Transaction) Success() bool { return t.Exit.IsSuccess() }
