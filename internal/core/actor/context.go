package actor

import (
	"time"

	"github.com/CjHare/ton-amm-dex/internal/core/deriver"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"go.uber.org/zap"
)

// Context is the execution environment of a single transition. It is owned by
// the ledger for the duration of one message and collects the transition's
// effects.
type Context struct {
	Self    *address.Address
	Sender  *address.Address
	Value   uint64
	Balance uint64
	Bounced bool
	Now     time.Time

	Deriver *deriver.Deriver
	Log     *zap.Logger

	outbox  []Outbound
	newCode *cell.Cell
}

// NewContext creates a context for a message delivered to self.
func NewContext(self *address.Address, msg Message, balance uint64, now time.Time, d *deriver.Deriver, log *zap.Logger) *Context {
	if d == nil {
		d = deriver.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		Self:    self,
		Sender:  msg.Src,
		Value:   msg.Value,
		Balance: balance,
		Bounced: msg.Bounced,
		Now:     now,
		Deriver: d,
		Log:     log,
	}
}

// Send queues an outbound message.
func (c *Context) Send(o Outbound) {
	c.outbox = append(c.outbox, o)
}

// Reply answers the sender with the remaining inbound value. Replies do not bounce.
func (c *Context) Reply(body *cell.Cell) {
	c.Send(Outbound{Dst: c.Sender, Mode: SendCarryInbound, Body: body})
}

// SetCode replaces the account's code once the transition commits.
func (c *Context) SetCode(code *cell.Cell) {
	c.newCode = code
}

// Outbox returns the queued messages in send order.
func (c *Context) Outbox() []Outbound { return c.outbox }

// NewCode returns the replacement code, or nil.
func (c *Context) NewCode() *cell.Cell { return c.newCode }

// Unix returns the context time in unix seconds.
func (c *Context) Unix() uint64 {
	if c.Now.Unix() < 0 {
		return 0
	}
	return uint64(c.Now.Unix())
}
