package sandbox

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/CjHare/ton-amm-dex/internal/chain"
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/CjHare/ton-amm-dex/internal/core/router"
	"github.com/CjHare/ton-amm-dex/internal/storage/journal"
	"github.com/CjHare/ton-amm-dex/internal/storage/kv/memory"
	"github.com/CjHare/ton-amm-dex/internal/storage/statestore"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

type env struct {
	t     *testing.T
	ctx   context.Context
	sb    *Sandbox
	a, b  *address.Address
	alice *address.Address
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	ctx := context.Background()
	sb, err := New(ctx, opts...)
	require.NoError(t, err)
	return &env{
		t:     t,
		ctx:   ctx,
		sb:    sb,
		a:     sb.Wallet("TKA"),
		b:     sb.Wallet("TKB"),
		alice: sb.Named("alice"),
	}
}

func (e *env) seed(amountA, amountB uint64) {
	e.t.Helper()
	_, err := e.sb.ProvidePair(e.ctx, e.alice, e.a, e.b, u(amountA), u(amountB))
	require.NoError(e.t, err)
	ra, rb, err := e.sb.Reserves(e.a, e.b)
	require.NoError(e.t, err)
	require.Equal(e.t, u(amountA), ra)
	require.Equal(e.t, u(amountB), rb)
}

func (e *env) reserves() (*uint256.Int, *uint256.Int) {
	e.t.Helper()
	ra, rb, err := e.sb.Reserves(e.a, e.b)
	require.NoError(e.t, err)
	return ra, rb
}

func requireAllSucceeded(t *testing.T, txs []*chain.Transaction) {
	t.Helper()
	for _, tx := range txs {
		require.Truef(t, tx.Success(), "lt %d op %s exit %s", tx.LT, codec.OpName(tx.Op()), tx.Exit)
	}
}

func TestPairOrderInvariance(t *testing.T) {
	e := newEnv(t)
	ab, err := e.sb.PoolAddress(e.a, e.b)
	require.NoError(t, err)
	ba, err := e.sb.PoolAddress(e.b, e.a)
	require.NoError(t, err)
	assert.True(t, codec.SameAddress(ab, ba))
}

func TestNamedIsDeterministic(t *testing.T) {
	assert.True(t, codec.SameAddress(Named("alice"), Named("alice")))
	assert.False(t, codec.SameAddress(Named("alice"), Named("bob")))
}

func TestInitialLiquidityGoesToSink(t *testing.T) {
	e := newEnv(t)
	e.seed(1_000_000, 4_000_000)

	p, err := e.sb.Pool(e.a, e.b)
	require.NoError(t, err)
	// sqrt(1e6 * 4e6) / 1000
	assert.Equal(t, u(2000), p.SupplyLP)

	locked, err := e.sb.LockedShares(e.a, e.b)
	require.NoError(t, err)
	assert.Equal(t, u(2000), locked)

	own, err := e.sb.LPBalance(e.alice, e.a, e.b)
	require.NoError(t, err)
	assert.True(t, own.IsZero())

	acct, err := e.sb.LPAccount(e.alice, e.a, e.b)
	require.NoError(t, err)
	assert.True(t, acct.Stored0.IsZero())
	assert.True(t, acct.Stored1.IsZero())
}

func TestSlippageRefund(t *testing.T) {
	e := newEnv(t)
	e.seed(1000, 10000)

	txs, err := e.sb.Swap(e.ctx, SwapRequest{
		User:      e.alice,
		WalletIn:  e.b,
		WalletOut: e.a,
		Amount:    u(20),
		MinOut:    u(20_000_000),
	})
	require.NoError(t, err)
	requireAllSucceeded(t, txs)

	ra, rb := e.reserves()
	assert.Equal(t, u(1000), ra)
	assert.Equal(t, u(10000), rb)

	payouts := e.sb.Payouts(e.b)
	require.Len(t, payouts, 1)
	assert.True(t, codec.SameAddress(e.alice, payouts[0].To))
	assert.Equal(t, u(20), payouts[0].Amount)
	assert.Equal(t, codec.ExitSwapRefundReserveErr, payouts[0].ExitCode)
	assert.Empty(t, e.sb.Payouts(e.a))
}

func TestSwapWithReferral(t *testing.T) {
	e := newEnv(t)
	e.seed(1_000_000_000_000_000, 1_000_000_000_000_000)
	ref := e.sb.Named("referrer")

	_, err := e.sb.Swap(e.ctx, SwapRequest{
		User:      e.alice,
		WalletIn:  e.a,
		WalletOut: e.b,
		Amount:    u(20000),
		MinOut:    u(1),
		Referrer:  ref,
	})
	require.NoError(t, err)

	assert.Equal(t, u(20), e.sb.Received(ref, e.a))
	assert.Equal(t, u(19939), e.sb.Received(e.alice, e.b))

	refPayouts := e.sb.Payouts(e.a)
	require.Len(t, refPayouts, 1)
	assert.Equal(t, codec.ExitSwapOKRef, refPayouts[0].ExitCode)
	outPayouts := e.sb.Payouts(e.b)
	require.Len(t, outPayouts, 1)
	assert.Equal(t, codec.ExitSwapOK, outPayouts[0].ExitCode)

	ra, rb := e.reserves()
	assert.Equal(t, u(1_000_000_000_000_000+20000-20), ra)
	assert.Equal(t, u(1_000_000_000_000_000-19939), rb)
}

func TestSwapWithoutLiquidityRefunds(t *testing.T) {
	e := newEnv(t)
	_, err := e.sb.Provide(e.ctx, ProvideRequest{User: e.alice, Wallet: e.a, Other: e.b, Amount: u(500), MinLPOut: u(1)})
	require.NoError(t, err)

	_, err = e.sb.Swap(e.ctx, SwapRequest{User: e.alice, WalletIn: e.a, WalletOut: e.b, Amount: u(100)})
	require.NoError(t, err)
	payouts := e.sb.Payouts(e.a)
	require.Len(t, payouts, 1)
	assert.Equal(t, codec.ExitSwapRefundNoLiq, payouts[0].ExitCode)
	assert.Equal(t, u(100), payouts[0].Amount)
}

func TestInvalidPayloadRefunded(t *testing.T) {
	e := newEnv(t)
	_, err := e.sb.Deposit(e.ctx, e.alice, e.a, u(42), codec.Simple(0x1234, 0), DefaultValue)
	require.NoError(t, err)
	payouts := e.sb.Payouts(e.a)
	require.Len(t, payouts, 1)
	assert.Equal(t, codec.ExitTransferBounceInvalidRequest, payouts[0].ExitCode)
	assert.Equal(t, u(42), payouts[0].Amount)
}

func TestLockedRouterRefundsDeposits(t *testing.T) {
	e := newEnv(t)
	e.seed(1_000_000, 1_000_000)

	txs, err := e.sb.AdminOp(e.ctx, codec.OpLock)
	require.NoError(t, err)
	requireAllSucceeded(t, txs)

	_, err = e.sb.Swap(e.ctx, SwapRequest{User: e.alice, WalletIn: e.a, WalletOut: e.b, Amount: u(1000)})
	require.NoError(t, err)
	payouts := e.sb.Payouts(e.a)
	require.Len(t, payouts, 1)
	assert.Equal(t, codec.ExitTransferBounceLocked, payouts[0].ExitCode)

	_, err = e.sb.AdminOp(e.ctx, codec.OpUnlock)
	require.NoError(t, err)
	_, err = e.sb.Swap(e.ctx, SwapRequest{User: e.alice, WalletIn: e.a, WalletOut: e.b, Amount: u(1000)})
	require.NoError(t, err)
	assert.Len(t, e.sb.Payouts(e.b), 1)
}

func TestStrangerCannotAdminister(t *testing.T) {
	e := newEnv(t)
	txs, err := e.sb.Call(e.ctx, e.alice, e.sb.Router, DefaultValue, codec.Simple(codec.OpLock, 1))
	require.NoError(t, err)
	require.NotEmpty(t, txs)
	assert.Equal(t, actor.ExitWrongOp, txs[0].Exit)

	r, err := e.sb.RouterState()
	require.NoError(t, err)
	assert.False(t, r.IsLocked)
}

func TestTwoSidedStaging(t *testing.T) {
	e := newEnv(t)

	_, err := e.sb.Provide(e.ctx, ProvideRequest{User: e.alice, Wallet: e.a, Other: e.b, Amount: u(1_000_000), MinLPOut: u(1)})
	require.NoError(t, err)
	_, err = e.sb.Provide(e.ctx, ProvideRequest{User: e.alice, Wallet: e.b, Other: e.a, Amount: u(1_000_000), MinLPOut: u(0)})
	require.NoError(t, err)

	acct, err := e.sb.LPAccount(e.alice, e.a, e.b)
	require.NoError(t, err)
	assert.Equal(t, "fully_staged", acct.Stage().String())
	p, err := e.sb.Pool(e.a, e.b)
	require.NoError(t, err)
	assert.True(t, p.SupplyLP.IsZero())

	txs, err := e.sb.DirectAdd(e.ctx, e.alice, e.a, e.b, u(1))
	require.NoError(t, err)
	requireAllSucceeded(t, txs)

	acct, err = e.sb.LPAccount(e.alice, e.a, e.b)
	require.NoError(t, err)
	assert.True(t, acct.Stored0.IsZero())
	assert.True(t, acct.Stored1.IsZero())
	p, err = e.sb.Pool(e.a, e.b)
	require.NoError(t, err)
	assert.Equal(t, u(1000), p.SupplyLP)
}

func TestRefundStaged(t *testing.T) {
	e := newEnv(t)
	_, err := e.sb.Provide(e.ctx, ProvideRequest{User: e.alice, Wallet: e.a, Other: e.b, Amount: u(777), MinLPOut: u(1)})
	require.NoError(t, err)

	txs, err := e.sb.RefundStaged(e.ctx, e.alice, e.a, e.b)
	require.NoError(t, err)
	requireAllSucceeded(t, txs)

	payouts := e.sb.Payouts(e.a)
	require.Len(t, payouts, 1)
	assert.Equal(t, codec.ExitRefundOK, payouts[0].ExitCode)
	assert.Equal(t, u(777), payouts[0].Amount)

	acct, err := e.sb.LPAccount(e.alice, e.a, e.b)
	require.NoError(t, err)
	assert.True(t, acct.Stored0.IsZero())
	assert.True(t, acct.Stored1.IsZero())

	// nothing left to refund
	txs, err = e.sb.RefundStaged(e.ctx, e.alice, e.a, e.b)
	require.NoError(t, err)
	assert.Equal(t, actor.ExitInvalidAmount, txs[0].Exit)
}

func TestProvideAndBurn(t *testing.T) {
	e := newEnv(t)
	e.seed(1_000_000_000_000_000, 1_000_000_000_000_000)
	bob := e.sb.Named("bob")

	_, err := e.sb.ProvidePair(e.ctx, bob, e.a, e.b, u(1_000_000_000_000), u(1_000_000_000_000))
	require.NoError(t, err)
	shares, err := e.sb.LPBalance(bob, e.a, e.b)
	require.NoError(t, err)
	assert.Equal(t, u(1_000_000_000), shares)

	txs, err := e.sb.Burn(e.ctx, bob, e.a, e.b, shares, nil)
	require.NoError(t, err)
	requireAllSucceeded(t, txs)

	assert.Equal(t, u(1_000_000_000_000), e.sb.Received(bob, e.a))
	assert.Equal(t, u(1_000_000_000_000), e.sb.Received(bob, e.b))
	left, err := e.sb.LPBalance(bob, e.a, e.b)
	require.NoError(t, err)
	assert.True(t, left.IsZero())

	p, err := e.sb.Pool(e.a, e.b)
	require.NoError(t, err)
	assert.Equal(t, u(1_000_000_000_000), p.SupplyLP)
}

func TestBurnFromForeignWalletRejected(t *testing.T) {
	e := newEnv(t)
	e.seed(1_000_000, 1_000_000)
	poolAddr, err := e.sb.PoolAddress(e.a, e.b)
	require.NoError(t, err)

	body := codec.BurnNotification{Amount: u(10), From: e.alice}.ToCell()
	txs, err := e.sb.Call(e.ctx, e.sb.Named("mallory"), poolAddr, DefaultValue, body)
	require.NoError(t, err)
	assert.Equal(t, actor.ExitInvalidCaller, txs[0].Exit)
}

func TestFeeCollectionIsIdempotent(t *testing.T) {
	e := newEnv(t)
	e.seed(1_000_000_000_000_000, 1_000_000_000_000_000)
	treasury := e.sb.Named("treasury")

	txs, err := e.sb.SetFees(e.ctx, e.a, e.b, 20, 10, 10, treasury)
	require.NoError(t, err)
	requireAllSucceeded(t, txs)

	_, err = e.sb.Swap(e.ctx, SwapRequest{User: e.alice, WalletIn: e.a, WalletOut: e.b, Amount: u(20000)})
	require.NoError(t, err)
	p, err := e.sb.Pool(e.a, e.b)
	require.NoError(t, err)
	collected := p.Collected0
	if !codec.SameAddress(p.Wallet0, e.a) {
		collected = p.Collected1
	}
	assert.Equal(t, u(20), collected)

	txs, err = e.sb.CollectFees(e.ctx, e.a, e.b)
	require.NoError(t, err)
	requireAllSucceeded(t, txs)
	assert.Equal(t, u(20), e.sb.Received(treasury, e.a))
	assert.True(t, e.sb.Received(treasury, e.b).IsZero())

	txs, err = e.sb.CollectFees(e.ctx, e.a, e.b)
	require.NoError(t, err)
	requireAllSucceeded(t, txs)
	assert.Equal(t, u(20), e.sb.Received(treasury, e.a))
	assert.Len(t, e.sb.Payouts(e.a), 1)

	p, err = e.sb.Pool(e.a, e.b)
	require.NoError(t, err)
	assert.True(t, p.Collected0.IsZero())
	assert.True(t, p.Collected1.IsZero())
}

func TestCollectFeesWithoutAddressFails(t *testing.T) {
	e := newEnv(t)
	e.seed(1_000_000, 1_000_000)
	txs, err := e.sb.CollectFeesDirect(e.ctx, e.alice, e.a, e.b, 0)
	require.NoError(t, err)
	assert.Equal(t, actor.ExitNoProtocolFeeAddress, txs[0].Exit)
}

func TestCodeUpgradeTimelock(t *testing.T) {
	e := newEnv(t)
	e.seed(1_000_000, 1_000_000)

	_, err := e.sb.InitCodeUpgrade(e.ctx, RouterV2Code)
	require.NoError(t, err)

	_, err = e.sb.FinalizeUpgrades(e.ctx)
	require.NoError(t, err)
	acct, ok := e.sb.Ledger.Account(e.sb.Router)
	require.True(t, ok)
	assert.Equal(t, router.Code.Hash(), acct.Code.Hash())
	r, err := e.sb.RouterState()
	require.NoError(t, err)
	require.NotNil(t, r.PendingCode)

	e.sb.Advance(router.CodeUpgradeDelay)
	_, err = e.sb.FinalizeUpgrades(e.ctx)
	require.NoError(t, err)
	acct, _ = e.sb.Ledger.Account(e.sb.Router)
	assert.Equal(t, RouterV2Code.Hash(), acct.Code.Hash())
	r, err = e.sb.RouterState()
	require.NoError(t, err)
	assert.Nil(t, r.PendingCode)
	assert.Zero(t, r.CodeExpiry)

	// the upgraded router still routes swaps
	_, err = e.sb.Swap(e.ctx, SwapRequest{User: e.alice, WalletIn: e.a, WalletOut: e.b, Amount: u(1000)})
	require.NoError(t, err)
	require.Len(t, e.sb.Payouts(e.b), 1)
	assert.Equal(t, codec.ExitSwapOK, e.sb.Payouts(e.b)[0].ExitCode)
}

func TestCancelCodeUpgrade(t *testing.T) {
	e := newEnv(t)
	_, err := e.sb.InitCodeUpgrade(e.ctx, RouterV2Code)
	require.NoError(t, err)
	_, err = e.sb.AdminOp(e.ctx, codec.OpCancelCodeUpgrade)
	require.NoError(t, err)

	e.sb.Advance(router.CodeUpgradeDelay)
	_, err = e.sb.FinalizeUpgrades(e.ctx)
	require.NoError(t, err)
	acct, _ := e.sb.Ledger.Account(e.sb.Router)
	assert.Equal(t, router.Code.Hash(), acct.Code.Hash())
}

func TestAdminHandover(t *testing.T) {
	e := newEnv(t)
	oldAdmin := e.sb.Admin
	newAdmin := e.sb.Named("new-admin")

	_, err := e.sb.InitAdminUpgrade(e.ctx, newAdmin)
	require.NoError(t, err)
	e.sb.Advance(router.AdminUpgradeDelay)
	_, err = e.sb.FinalizeUpgrades(e.ctx)
	require.NoError(t, err)
	assert.True(t, codec.SameAddress(newAdmin, e.sb.Admin))

	txs, err := e.sb.Call(e.ctx, oldAdmin, e.sb.Router, AdminValue, codec.Simple(codec.OpLock, 1))
	require.NoError(t, err)
	assert.Equal(t, actor.ExitWrongOp, txs[0].Exit)

	txs, err = e.sb.AdminOp(e.ctx, codec.OpLock)
	require.NoError(t, err)
	requireAllSucceeded(t, txs)
	r, err := e.sb.RouterState()
	require.NoError(t, err)
	assert.True(t, r.IsLocked)
}

func TestRestoreFromStore(t *testing.T) {
	ctx := context.Background()
	store := statestore.New(memory.New())
	j, err := journal.Open(ctx, journal.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "j.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	e := newEnv(t, WithLedgerOptions(chain.WithStore(store), chain.WithJournal(j)))
	e.seed(1_000_000, 2_000_000)

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Positive(t, n)

	again, err := New(ctx, WithLedgerOptions(chain.WithStore(store)))
	require.NoError(t, err)
	assert.True(t, codec.SameAddress(e.sb.Router, again.Router))
	ra, rb, err := again.Reserves(e.a, e.b)
	require.NoError(t, err)
	assert.Equal(t, u(1_000_000), ra)
	assert.Equal(t, u(2_000_000), rb)
}
