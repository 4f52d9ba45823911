// Package actor defines the message envelope and the execution context shared
// by every on-ledger program.
package actor

import (
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Coin is one whole unit of value in nanocoins.
const Coin uint64 = 1_000_000_000

// StateInit is attached to a message to deploy its destination.
type StateInit struct {
	Code *cell.Cell
	Data *cell.Cell
}

// Message is an internal message between accounts.
type Message struct {
	Src       *address.Address
	Dst       *address.Address
	Value     uint64
	Bounce    bool
	Bounced   bool
	Body      *cell.Cell
	StateInit *StateInit
}

// Op returns the operation tag of the body, or zero when it has none.
func (m Message) Op() uint32 {
	h, _, err := codec.ParseHeader(m.Body)
	if err != nil {
		return 0
	}
	return h.Op
}

// SendMode selects how the value of an outbound message is computed.
type SendMode int

const (
	// SendValue sends exactly Outbound.Value.
	SendValue SendMode = iota
	// SendCarryInbound adds the remaining inbound value to Outbound.Value.
	SendCarryInbound
	// SendCarryBalance sends the account balance above the storage reserve.
	SendCarryBalance
)

// Outbound is a message queued by a transition.
type Outbound struct {
	Dst       *address.Address
	Value     uint64
	Mode      SendMode
	Bounce    bool
	Body      *cell.Cell
	StateInit *StateInit
}
