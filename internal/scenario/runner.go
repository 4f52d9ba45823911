package scenario

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/CjHare/ton-amm-dex/internal/chain"
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/sandbox"
	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"go.uber.org/zap"
)

var ErrExpectation = errors.New("expectation failed")

// Report summarizes a run.
type Report struct {
	Name   string       `codec:"name"`
	Router string       `codec:"router"`
	Steps  []StepReport `codec:"steps"`
	Pools  []PoolReport `codec:"pools"`
}

type StepReport struct {
	Index        int      `codec:"index"`
	Action       string   `codec:"action"`
	Transactions int      `codec:"transactions"`
	Failed       int      `codec:"failed"`
	Exits        []string `codec:"exits,omitempty"`
}

type PoolReport struct {
	Address  string `codec:"address"`
	Token    string `codec:"token"`
	Other    string `codec:"other"`
	ReserveA string `codec:"reserve_a"`
	ReserveB string `codec:"reserve_b"`
	SupplyLP string `codec:"supply_lp"`
}

// Runner plays scenarios against a sandbox.
type Runner struct {
	sb  *sandbox.Sandbox
	log *zap.Logger
}

func NewRunner(sb *sandbox.Sandbox, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{sb: sb, log: log}
}

// Run executes every step in order, stopping at the first ledger error or
// failed expectation.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	rep := &Report{Name: sc.Name, Router: codec.FormatAddress(r.sb.Router)}
	pairs := map[string][2]string{}

	for i, st := range sc.Steps {
		txs, err := r.step(ctx, st)
		sr := StepReport{Index: i + 1, Action: st.Action, Transactions: len(txs)}
		for _, tx := range txs {
			if !tx.Success() {
				sr.Failed++
				sr.Exits = append(sr.Exits, fmt.Sprintf("%s:%s", codec.OpName(tx.Op()), tx.Exit))
			}
		}
		rep.Steps = append(rep.Steps, sr)
		if err != nil {
			return rep, fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		}
		r.log.Debug("step",
			zap.String("scenario", sc.Name),
			zap.Int("index", i+1),
			zap.String("action", st.Action),
			zap.Int("transactions", sr.Transactions),
			zap.Int("failed", sr.Failed))

		if st.Token != "" && st.Other != "" {
			key := pairKey(st.Token, st.Other)
			if _, ok := pairs[key]; !ok {
				pairs[key] = [2]string{st.Token, st.Other}
			}
		}
		if st.Expect != nil {
			if err := r.check(st, sr); err != nil {
				return rep, fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
			}
		}
	}

	for _, p := range sortedPairs(pairs) {
		pr, err := r.poolReport(p[0], p[1])
		if err != nil {
			continue
		}
		rep.Pools = append(rep.Pools, pr)
	}
	return rep, nil
}

func (r *Runner) step(ctx context.Context, st Step) ([]*chain.Transaction, error) {
	sb := r.sb
	user := r.address(st.User)
	a, b := r.wallet(st.Token), r.wallet(st.Other)

	switch st.Action {
	case ActionProvide:
		amount, minOut, err := amounts(st.Amount, st.MinOut)
		if err != nil {
			return nil, err
		}
		return sb.Provide(ctx, sandbox.ProvideRequest{User: user, Wallet: a, Other: b, Amount: amount, MinLPOut: minOut})
	case ActionSwap:
		amount, minOut, err := amounts(st.Amount, st.MinOut)
		if err != nil {
			return nil, err
		}
		return sb.Swap(ctx, sandbox.SwapRequest{
			User:      user,
			WalletIn:  a,
			WalletOut: b,
			Amount:    amount,
			MinOut:    minOut,
			Recipient: r.address(st.Recipient),
			Referrer:  r.address(st.Referrer),
		})
	case ActionBurn:
		amount, err := parseAmount(st.Amount)
		if err != nil {
			return nil, err
		}
		return sb.Burn(ctx, user, a, b, amount, r.address(st.Recipient))
	case ActionDirectAdd:
		minOut, err := parseAmount(st.MinOut)
		if err != nil {
			return nil, err
		}
		return sb.DirectAdd(ctx, user, a, b, minOut)
	case ActionRefund:
		return sb.RefundStaged(ctx, user, a, b)
	case ActionCollectFees:
		return sb.CollectFees(ctx, a, b)
	case ActionSetFees:
		return sb.SetFees(ctx, a, b, st.LPFee, st.ProtocolFee, st.RefFee, r.address(st.FeeAddress))
	case ActionLock:
		return sb.AdminOp(ctx, codec.OpLock)
	case ActionUnlock:
		return sb.AdminOp(ctx, codec.OpUnlock)
	case ActionInitCodeUpgrade:
		return sb.InitCodeUpgrade(ctx, sandbox.RouterV2Code)
	case ActionInitAdminUpgrade:
		return sb.InitAdminUpgrade(ctx, r.address(st.Admin))
	case ActionCancelCodeUpgrade:
		return sb.AdminOp(ctx, codec.OpCancelCodeUpgrade)
	case ActionCancelAdminUpgrade:
		return sb.AdminOp(ctx, codec.OpCancelAdminUpgrade)
	case ActionFinalize:
		return sb.FinalizeUpgrades(ctx)
	case ActionAdvance:
		sb.Advance(st.Duration)
		return nil, nil
	}
	return nil, fmt.Errorf("unknown action %q", st.Action)
}

// address maps a name to a sandbox address. Names are case-insensitive
// because viper lowercases map keys. Raw "wc:hex" addresses are taken as-is;
// an empty name is nil.
func (r *Runner) address(name string) *address.Address {
	if name == "" {
		return nil
	}
	if strings.Contains(name, ":") {
		if a, err := codec.ParseAddress(name); err == nil {
			return a
		}
	}
	return r.sb.Named(strings.ToLower(name))
}

func (r *Runner) wallet(token string) *address.Address {
	if token == "" {
		return nil
	}
	return r.sb.Wallet(strings.ToLower(token))
}

func (r *Runner) check(st Step, sr StepReport) error {
	e := st.Expect
	if e.Failed != nil && *e.Failed != (sr.Failed > 0) {
		return fmt.Errorf("%w: failed=%v, got %d failed transactions %v", ErrExpectation, *e.Failed, sr.Failed, sr.Exits)
	}
	if len(e.Reserves) > 0 {
		if len(e.Reserves) != 2 {
			return fmt.Errorf("%w: reserves needs two values", ErrExpectation)
		}
		ra, rb, err := r.sb.Reserves(r.wallet(st.Token), r.wallet(st.Other))
		if err != nil {
			return err
		}
		if err := equal("reserve "+st.Token, e.Reserves[0], ra); err != nil {
			return err
		}
		if err := equal("reserve "+st.Other, e.Reserves[1], rb); err != nil {
			return err
		}
	}
	for key, want := range e.Received {
		user, token, ok := strings.Cut(key, "/")
		if !ok {
			return fmt.Errorf("%w: received key %q is not user/token", ErrExpectation, key)
		}
		if err := equal("received "+key, want, r.sb.Received(r.address(user), r.wallet(token))); err != nil {
			return err
		}
	}
	for user, want := range e.LPBalance {
		got, err := r.sb.LPBalance(r.address(user), r.wallet(st.Token), r.wallet(st.Other))
		if err != nil {
			return err
		}
		if err := equal("lp balance "+user, want, got); err != nil {
			return err
		}
	}
	if e.Locked != nil {
		state, err := r.sb.RouterState()
		if err != nil {
			return err
		}
		if state.IsLocked != *e.Locked {
			return fmt.Errorf("%w: locked=%v, got %v", ErrExpectation, *e.Locked, state.IsLocked)
		}
	}
	return nil
}

func (r *Runner) poolReport(token, other string) (PoolReport, error) {
	a, b := r.wallet(token), r.wallet(other)
	p, err := r.sb.Pool(a, b)
	if err != nil {
		return PoolReport{}, err
	}
	addr, err := r.sb.PoolAddress(a, b)
	if err != nil {
		return PoolReport{}, err
	}
	ra, rb, err := r.sb.Reserves(a, b)
	if err != nil {
		return PoolReport{}, err
	}
	return PoolReport{
		Address:  codec.FormatAddress(addr),
		Token:    token,
		Other:    other,
		ReserveA: ra.Dec(),
		ReserveB: rb.Dec(),
		SupplyLP: p.SupplyLP.Dec(),
	}, nil
}

func equal(what, want string, got *uint256.Int) error {
	w, err := parseAmount(want)
	if err != nil {
		return err
	}
	if !w.Eq(got) {
		return fmt.Errorf("%w: %s want %s, got %s", ErrExpectation, what, w.Dec(), got.Dec())
	}
	return nil
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(strings.ReplaceAll(s, "_", ""))
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", s, err)
	}
	return v, nil
}

func amounts(amount, minOut string) (*uint256.Int, *uint256.Int, error) {
	a, err := parseAmount(amount)
	if err != nil {
		return nil, nil, err
	}
	m, err := parseAmount(minOut)
	if err != nil {
		return nil, nil, err
	}
	return a, m, nil
}

func sortedPairs(pairs map[string][2]string) [][2]string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, pairs[k])
	}
	return out
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
