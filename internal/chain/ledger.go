// Package chain is an in-process ledger that executes actor programs one
// message at a time. It stands in for the asynchronous network: messages are
// queued in FIFO order, failed bounceable messages bounce, and accounts are
// deployed by the first message that carries a matching state init.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/CjHare/ton-amm-dex/internal/core/deriver"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"go.uber.org/zap"
)

var (
	// ErrStepLimit is returned when a run does not quiesce within its step budget.
	ErrStepLimit = errors.New("step limit reached")
	// ErrAccountExists is returned when deploying over an existing account.
	ErrAccountExists = errors.New("account already exists")
	// ErrNoDestination is returned for messages without a destination.
	ErrNoDestination = errors.New("message has no destination")
)

// AccountStore persists account state after every committed transaction.
type AccountStore interface {
	SaveAccount(ctx context.Context, acct *Account) error
	LoadAccounts(ctx context.Context) ([]*Account, error)
}

// Journal records every processed transaction.
type Journal interface {
	Record(ctx context.Context, tx *Transaction) error
}

// Config holds the ledger's economic parameters.
type Config struct {
	// ComputeFee is charged from the inbound value of every executed message.
	ComputeFee uint64
	// StorageReserve stays on an account when it sends its whole balance.
	StorageReserve uint64
	// MaxSteps bounds Run. Zero means DefaultMaxSteps.
	MaxSteps int
}

// DefaultMaxSteps bounds a single Run.
const DefaultMaxSteps = 10000

// DefaultConfig returns the parameters used when none are given.
func DefaultConfig() Config {
	return Config{
		ComputeFee:     10_000_000,
		StorageReserve: 10_000_000,
		MaxSteps:       DefaultMaxSteps,
	}
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithConfig(cfg Config) Option { return func(l *Ledger) { l.cfg = cfg } }
func WithClock(c Clock) Option { return func(l *Ledger) { l.clock = c } }
func WithLogger(log *zap.Logger) Option { return func(l *Ledger) { l.log = log } }
func WithDeriver(d *deriver.Deriver) Option { return func(l *Ledger) { l.deriver = d } }
func WithStore(s AccountStore) Option { return func(l *Ledger) { l.store = s } }
func WithJournal(j Journal) Option { return func(l *Ledger) { l.journal = j } }

// Ledger holds accounts and the pending message queue. It is not safe for
// concurrent use.
type Ledger struct {
	cfg      Config
	registry *actor.Registry
	deriver  *deriver.Deriver
	clock    Clock
	log      *zap.Logger
	store    AccountStore
	journal  Journal

	accounts map[string]*Account
	inbox    map[string][]actor.Message
	refused  map[string]bool
	queue    []actor.Message
	lt       uint64
}

// New creates an empty ledger executing the programs in registry.
func New(registry *actor.Registry, opts ...Option) *Ledger {
	l := &Ledger{
		cfg:      DefaultConfig(),
		registry: registry,
		deriver:  deriver.Default(),
		clock:    SystemClock{},
		log:      zap.NewNop(),
		accounts: make(map[string]*Account),
		inbox:    make(map[string][]actor.Message),
		refused:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cfg.MaxSteps <= 0 {
		l.cfg.MaxSteps = DefaultMaxSteps
	}
	return l
}

// Deriver returns the address deriver the ledger deploys with.
func (l *Ledger) Deriver() *deriver.Deriver { return l.deriver }

// Clock returns the ledger clock.
func (l *Ledger) Clock() Clock { return l.clock }

// Config returns the ledger parameters.
func (l *Ledger) Config() Config { return l.cfg }

// LT returns the logical time of the last executed transaction.
func (l *Ledger) LT() uint64 { return l.lt }

// Restore loads accounts from the store, replacing in-memory state.
func (l *Ledger) Restore(ctx context.Context) (int, error) {
	if l.store == nil {
		return 0, nil
	}
	accts, err := l.store.LoadAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore accounts: %w", err)
	}
	for _, a := range accts {
		l.accounts[a.Key()] = a
		if a.LastLT > l.lt {
			l.lt = a.LastLT
		}
	}
	return len(accts), nil
}

// Deploy creates an account at the address derived from code and data.
func (l *Ledger) Deploy(ctx context.Context, code, data *cell.Cell, balance uint64) (*address.Address, error) {
	addr := l.deriver.Address(code, data)
	key := codec.AddressKey(addr)
	if _, ok := l.accounts[key]; ok {
		return nil, fmt.Errorf("deploy %s: %w", key, ErrAccountExists)
	}
	acct := &Account{Address: addr, Code: code, Data: data, Balance: balance}
	l.accounts[key] = acct
	if err := l.persist(ctx, acct); err != nil {
		return nil, err
	}
	return addr, nil
}

// Account returns a copy of the account at addr.
func (l *Ledger) Account(addr *address.Address) (*Account, bool) {
	a, ok := l.accounts[codec.AddressKey(addr)]
	if !ok {
		return nil, false
	}
	return a.clone(), true
}

// Accounts returns copies of all accounts ordered by address.
func (l *Ledger) Accounts() []*Account {
	out := make([]*Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Inbox returns the messages delivered to an address without a program,
// including the null address.
func (l *Ledger) Inbox(addr *address.Address) []actor.Message {
	return append([]actor.Message(nil), l.inbox[codec.AddressKey(addr)]...)
}

// Refuse makes deliveries to an address without a program fail, so
// bounceable messages bounce.
func (l *Ledger) Refuse(addr *address.Address) {
	l.refused[codec.AddressKey(addr)] = true
}

// Send queues a message from outside the ledger.
func (l *Ledger) Send(msg actor.Message) error {
	if msg.Dst == nil {
		return ErrNoDestination
	}
	l.queue = append(l.queue, msg)
	return nil
}

// InjectBounce queues msg as if its destination had rejected it.
func (l *Ledger) InjectBounce(msg actor.Message) {
	l.queue = append(l.queue, bounceOf(msg, msg.Value))
}

// Pending returns the number of queued messages.
func (l *Ledger) Pending() int { return len(l.queue) }

// Run processes queued messages until the queue is empty.
func (l *Ledger) Run(ctx context.Context) ([]*Transaction, error) {
	var txs []*Transaction
	for steps := 0; len(l.queue) > 0; steps++ {
		if steps >= l.cfg.MaxSteps {
			return txs, fmt.Errorf("%w after %d messages", ErrStepLimit, steps)
		}
		if err := ctx.Err(); err != nil {
			return txs, err
		}
		tx, err := l.Step(ctx)
		if err != nil {
			return txs, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Step processes the oldest queued message. It returns nil when the queue is empty.
func (l *Ledger) Step(ctx context.Context) (*Transaction, error) {
	if len(l.queue) == 0 {
		return nil, nil
	}
	msg := l.queue[0]
	l.queue = l.queue[1:]
	l.lt++
	tx := &Transaction{LT: l.lt, Now: l.clock.Now(), In: msg, Exit: actor.ExitOK}

	if err := l.deliver(ctx, tx); err != nil {
		return tx, err
	}
	l.log.Debug("transaction",
		zap.Uint64("lt", tx.LT),
		zap.String("dst", codec.FormatAddress(msg.Dst)),
		zap.String("op", codec.OpName(msg.Op())),
		zap.String("program", tx.Program),
		zap.Stringer("exit", tx.Exit),
		zap.Int("out", len(tx.Out)))
	if l.journal != nil {
		if err := l.journal.Record(ctx, tx); err != nil {
			return tx, fmt.Errorf("journal lt %d: %w", tx.LT, err)
		}
	}
	return tx, nil
}

func (l *Ledger) deliver(ctx context.Context, tx *Transaction) error {
	msg := tx.In
	if codec.IsNone(msg.Dst) {
		tx.Sink = true
		l.inbox[codec.AddressKey(msg.Dst)] = append(l.inbox[codec.AddressKey(msg.Dst)], msg)
		return nil
	}

	key := codec.AddressKey(msg.Dst)
	acct, ok := l.accounts[key]
	if !ok && msg.StateInit != nil {
		derived := l.deriver.Address(msg.StateInit.Code, msg.StateInit.Data)
		if codec.SameAddress(derived, msg.Dst) {
			acct = &Account{Address: msg.Dst, Code: msg.StateInit.Code, Data: msg.StateInit.Data}
			l.accounts[key] = acct
			tx.Deployed = true
		} else {
			l.log.Warn("state init does not match destination",
				zap.String("dst", key),
				zap.String("derived", codec.FormatAddress(derived)))
		}
	}

	var prog actor.Program
	if acct != nil {
		prog, _ = l.registry.Lookup(acct.Code)
	}
	if prog == nil {
		return l.deliverOpaque(ctx, tx, acct)
	}
	tx.Program = prog.Name()

	acct.Balance += msg.Value
	actx := actor.NewContext(msg.Dst, msg, acct.Balance, tx.Now, l.deriver, l.log.With(zap.String("program", prog.Name())))
	data, res := prog.Receive(actx, acct.Data, msg)
	tx.Exit = res

	fee := min(l.cfg.ComputeFee, acct.Balance)
	acct.Balance -= fee
	remaining := msg.Value - min(fee, msg.Value)

	if !res.IsSuccess() {
		if msg.Bounce && !msg.Bounced {
			value := min(remaining, acct.Balance)
			acct.Balance -= value
			l.enqueue(tx, bounceOf(msg, value))
		}
	} else {
		acct.Data = data
		if code := actx.NewCode(); code != nil {
			acct.Code = code
		}
		for _, o := range actx.Outbox() {
			value := o.Value
			switch o.Mode {
			case actor.SendCarryInbound:
				value += remaining
				remaining = 0
			case actor.SendCarryBalance:
				value = 0
				if acct.Balance > l.cfg.StorageReserve {
					value = acct.Balance - l.cfg.StorageReserve
				}
			}
			value = min(value, acct.Balance)
			acct.Balance -= value
			l.enqueue(tx, actor.Message{
				Src:       msg.Dst,
				Dst:       o.Dst,
				Value:     value,
				Bounce:    o.Bounce,
				Body:      o.Body,
				StateInit: o.StateInit,
			})
		}
	}
	acct.LastLT = tx.LT
	return l.persist(ctx, acct)
}

// deliverOpaque hands a message to an address without a program. Refused
// addresses bounce bounceable messages; everything else is accepted.
func (l *Ledger) deliverOpaque(ctx context.Context, tx *Transaction, acct *Account) error {
	msg := tx.In
	key := codec.AddressKey(msg.Dst)
	tx.Opaque = true
	if l.refused[key] {
		tx.Exit = actor.ExitNoCode
		if msg.Bounce && !msg.Bounced {
			value := msg.Value - min(l.cfg.ComputeFee, msg.Value)
			l.enqueue(tx, bounceOf(msg, value))
		}
		return nil
	}
	l.inbox[key] = append(l.inbox[key], msg)
	if acct == nil {
		return nil
	}
	acct.Balance += msg.Value
	acct.LastLT = tx.LT
	return l.persist(ctx, acct)
}

func (l *Ledger) enqueue(tx *Transaction, msg actor.Message) {
	tx.Out = append(tx.Out, msg)
	l.queue = append(l.queue, msg)
}

func (l *Ledger) persist(ctx context.Context, acct *Account) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.SaveAccount(ctx, acct); err != nil {
		return fmt.Errorf("save account %s: %w", acct.Key(), err)
	}
	return nil
}
