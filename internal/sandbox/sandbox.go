// Package sandbox runs a complete DEX deployment on the simulated ledger.
// It plays every role the protocol leaves to external contracts: the
// router's jetton wallets report incoming transfers, LP wallets report burns
// and payouts are read back from wallet inboxes.
package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/CjHare/ton-amm-dex/internal/chain"
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/CjHare/ton-amm-dex/internal/core/deriver"
	"github.com/CjHare/ton-amm-dex/internal/core/lpaccount"
	"github.com/CjHare/ton-amm-dex/internal/core/pool"
	"github.com/CjHare/ton-amm-dex/internal/core/router"
	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

var (
	// LPWalletCode is the code of LP share wallets. No program runs it, so
	// minted shares accumulate in the wallet's inbox.
	LPWalletCode = actor.CodeCell("lp_wallet", 1)
	// RouterV2Code is offered by upgrade flows. It runs the router program.
	RouterV2Code = actor.CodeCell("router", 2)

	ErrNotDeployed = errors.New("account not deployed")
)

const (
	// DefaultValue is attached to user requests.
	DefaultValue = actor.Coin
	// AdminValue is attached to admin requests; it covers pool fee collection.
	AdminValue = 2 * actor.Coin
)

// Code cells are shared by every sandbox in the process; hash them once
// before sandboxes can run concurrently.
func init() {
	for _, c := range []*cell.Cell{router.Code, RouterV2Code, pool.Code, lpaccount.Code, LPWalletCode} {
		c.Hash()
	}
}

// Registry binds every DEX code cell to its program.
func Registry() (*actor.Registry, error) {
	reg := actor.NewRegistry()
	bindings := []struct {
		name string
		err  error
	}{
		{"router", reg.Register(router.Code, router.Program{})},
		{"router v2", reg.Register(RouterV2Code, router.Program{})},
		{"pool", reg.Register(pool.Code, pool.Program{})},
		{"lp_account", reg.Register(lpaccount.Code, lpaccount.Program{})},
	}
	for _, b := range bindings {
		if b.err != nil {
			return nil, fmt.Errorf("register %s: %w", b.name, b.err)
		}
	}
	return reg, nil
}

// Codes are the code cells pools are derived from.
func Codes() deriver.Codes {
	return deriver.Codes{Pool: pool.Code, LPAccount: lpaccount.Code, LPWallet: LPWalletCode}
}

// Named returns a deterministic basechain address for name.
func Named(name string) *address.Address {
	return namedIn(0, name)
}

func namedIn(workchain int32, name string) *address.Address {
	sum := blake3.Sum256([]byte(name))
	return address.NewAddress(0, byte(workchain), sum[:])
}

type settings struct {
	admin         *address.Address
	routerBalance uint64
	clock         *chain.ManualClock
	log           *zap.Logger
	ledgerOpts    []chain.Option
	deriver       *deriver.Deriver
}

// Option configures a Sandbox.
type Option func(*settings)

func WithAdmin(a *address.Address) Option { return func(s *settings) { s.admin = a } }
func WithRouterBalance(v uint64) Option { return func(s *settings) { s.routerBalance = v } }
func WithClock(c *chain.ManualClock) Option { return func(s *settings) { s.clock = c } }
func WithLogger(l *zap.Logger) Option { return func(s *settings) { s.log = l } }
func WithDeriver(d *deriver.Deriver) Option { return func(s *settings) { s.deriver = d } }
func WithLedgerOptions(o ...chain.Option) Option { return func(s *settings) { s.ledgerOpts = append(s.ledgerOpts, o...) } }

// Sandbox is a ledger with a deployed router.
type Sandbox struct {
	Ledger *chain.Ledger
	Clock  *chain.ManualClock
	Router *address.Address
	Admin  *address.Address

	log     *zap.Logger
	burned  map[string]*uint256.Int
	queryID uint64
}

// New deploys a router on a fresh ledger. When the ledger is backed by a
// store holding an earlier run, accounts are restored and the existing
// router is reused.
func New(ctx context.Context, opts ...Option) (*Sandbox, error) {
	st := settings{routerBalance: actor.Coin}
	for _, o := range opts {
		o(&st)
	}
	if st.clock == nil {
		st.clock = chain.NewManualClock()
	}
	if st.log == nil {
		st.log = zap.NewNop()
	}
	if st.deriver == nil {
		st.deriver = deriver.Default()
	}
	if st.admin == nil {
		st.admin = namedIn(st.deriver.Workchain(), "admin")
	}

	reg, err := Registry()
	if err != nil {
		return nil, err
	}
	ledgerOpts := append([]chain.Option{
		chain.WithClock(st.clock),
		chain.WithLogger(st.log),
		chain.WithDeriver(st.deriver),
	}, st.ledgerOpts...)
	l := chain.New(reg, ledgerOpts...)

	restored, err := l.Restore(ctx)
	if err != nil {
		return nil, err
	}

	data, err := router.InitialData(st.admin, pool.Code, lpaccount.Code, LPWalletCode)
	if err != nil {
		return nil, fmt.Errorf("router data: %w", err)
	}
	addr, err := l.Deploy(ctx, router.Code, data, st.routerBalance)
	switch {
	case errors.Is(err, chain.ErrAccountExists):
		addr = l.Deriver().Address(router.Code, data)
		st.log.Info("reusing router", zap.String("router", codec.FormatAddress(addr)), zap.Int("restored", restored))
	case err != nil:
		return nil, fmt.Errorf("deploy router: %w", err)
	default:
		st.log.Info("router deployed", zap.String("router", codec.FormatAddress(addr)))
	}

	return &Sandbox{
		Ledger: l,
		Clock:  st.clock,
		Router: addr,
		Admin:  st.admin,
		log:    st.log,
		burned: make(map[string]*uint256.Int),
	}, nil
}

// Named returns a deterministic address in the sandbox workchain.
func (s *Sandbox) Named(name string) *address.Address {
	return namedIn(s.Ledger.Deriver().Workchain(), name)
}

// Wallet is the router's jetton wallet for token.
func (s *Sandbox) Wallet(token string) *address.Address {
	return s.Named("router-wallet:" + token)
}

func (s *Sandbox) nextQuery() uint64 {
	s.queryID++
	return s.queryID
}

// Call sends a bounceable message and runs the ledger to quiescence.
func (s *Sandbox) Call(ctx context.Context, from, to *address.Address, value uint64, body *cell.Cell) ([]*chain.Transaction, error) {
	msg := actor.Message{Src: from, Dst: to, Value: value, Bounce: true, Body: body}
	if err := s.Ledger.Send(msg); err != nil {
		return nil, err
	}
	return s.Ledger.Run(ctx)
}

// AdminCall sends body from the admin to the router.
func (s *Sandbox) AdminCall(ctx context.Context, body *cell.Cell) ([]*chain.Transaction, error) {
	return s.Call(ctx, s.Admin, s.Router, AdminValue, body)
}
