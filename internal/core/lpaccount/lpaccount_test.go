package lpaccount

import (
	"testing"
	"time"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

var (
	self = named(1)
	user = named(2)
	pool = named(3)
)

func named(b byte) *address.Address {
	data := make([]byte, 32)
	data[5] = b
	return address.NewAddress(0, 0, data)
}

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func accountData(t *testing.T, s0, s1 uint64) *cell.Cell {
	t.Helper()
	c, err := codec.LpAccountData{User: user, Pool: pool, Stored0: u(s0), Stored1: u(s1)}.ToCell()
	require.NoError(t, err)
	return c
}

func deliver(t *testing.T, data *cell.Cell, from *address.Address, body *cell.Cell) (*Account, *actor.Context, actor.Result) {
	t.Helper()
	msg := actor.Message{Src: from, Dst: self, Value: actor.Coin, Bounce: true, Body: body}
	ctx := actor.NewContext(self, msg, actor.Coin, time.Unix(1700000000, 0), nil, nil)
	out, res := Program{}.Receive(ctx, data, msg)
	acc, err := Decode(out)
	require.NoError(t, err)
	return acc, ctx, res
}

func addLiquidity(a0, a1, minLP uint64) *cell.Cell {
	return codec.AddLiquidity{Amount0: u(a0), Amount1: u(a1), MinLPOut: u(minLP)}.ToCell()
}

func TestAddLiquidityStaging(t *testing.T) {
	t.Run("one side stays staged", func(t *testing.T) {
		acc, ctx, res := deliver(t, accountData(t, 0, 0), pool, addLiquidity(10, 0, 1))
		require.Equal(t, actor.ExitOK, res)
		assert.Empty(t, ctx.Outbox())
		assert.Equal(t, PartiallyStaged, acc.Stage())
		assert.Equal(t, uint64(10), acc.Stored0.Uint64())
	})

	t.Run("second side triggers the mint request and clears", func(t *testing.T) {
		acc, ctx, res := deliver(t, accountData(t, 10, 0), pool, addLiquidity(0, 11, 1))
		require.Equal(t, actor.ExitOK, res)
		require.Len(t, ctx.Outbox(), 1)
		assert.Equal(t, Empty, acc.Stage())

		out := ctx.Outbox()[0]
		assert.True(t, codec.SameAddress(pool, out.Dst))
		h, rest, err := codec.ParseHeader(out.Body)
		require.NoError(t, err)
		assert.Equal(t, codec.OpCbAddLiquidity, h.Op)
		cb, err := codec.ParseCbAddLiquidity(rest)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), cb.Amount0.Uint64())
		assert.Equal(t, uint64(11), cb.Amount1.Uint64())
		assert.Equal(t, uint64(1), cb.MinLPOut.Uint64())
		assert.True(t, codec.SameAddress(user, cb.User))
	})

	t.Run("zero minimum only stages", func(t *testing.T) {
		acc, ctx, res := deliver(t, accountData(t, 10, 0), pool, addLiquidity(0, 11, 0))
		require.Equal(t, actor.ExitOK, res)
		assert.Empty(t, ctx.Outbox())
		assert.Equal(t, FullyStaged, acc.Stage())
		assert.Equal(t, uint64(11), acc.Stored1.Uint64())
	})

	t.Run("only the pool may stage", func(t *testing.T) {
		acc, ctx, res := deliver(t, accountData(t, 0, 0), user, addLiquidity(10, 10, 1))
		assert.Equal(t, actor.ExitInvalidCaller, res)
		assert.Empty(t, ctx.Outbox())
		assert.Equal(t, Empty, acc.Stage())
	})
}

func TestDirectAddLiquidity(t *testing.T) {
	direct := codec.AddLiquidity{Op: codec.OpDirectAddLiquidity, Amount0: u(1), Amount1: u(3), MinLPOut: u(1)}.ToCell()

	t.Run("uses staged totals", func(t *testing.T) {
		acc, ctx, res := deliver(t, accountData(t, 10, 10), user, direct)
		require.Equal(t, actor.ExitOK, res)
		require.Len(t, ctx.Outbox(), 1)
		_, rest, err := codec.ParseHeader(ctx.Outbox()[0].Body)
		require.NoError(t, err)
		cb, err := codec.ParseCbAddLiquidity(rest)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), cb.Amount0.Uint64())
		assert.Equal(t, uint64(10), cb.Amount1.Uint64())
		assert.Equal(t, Empty, acc.Stage())
	})

	t.Run("requires both sides", func(t *testing.T) {
		_, _, res := deliver(t, accountData(t, 10, 0), user, direct)
		assert.Equal(t, actor.ExitInvalidAmount, res)
	})

	t.Run("owner only", func(t *testing.T) {
		_, _, res := deliver(t, accountData(t, 10, 10), pool, direct)
		assert.Equal(t, actor.ExitInvalidCaller, res)
	})
}

func TestRefundMe(t *testing.T) {
	refund := codec.Simple(codec.OpRefundMe, 5)

	acc, ctx, res := deliver(t, accountData(t, 10, 0), user, refund)
	require.Equal(t, actor.ExitOK, res)
	require.Len(t, ctx.Outbox(), 1)
	h, rest, err := codec.ParseHeader(ctx.Outbox()[0].Body)
	require.NoError(t, err)
	assert.Equal(t, codec.OpCbRefundMe, h.Op)
	assert.Equal(t, uint64(5), h.QueryID)
	m, err := codec.ParseCbRefundMe(rest)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), m.Amount0.Uint64())
	assert.True(t, m.Amount1.IsZero())
	assert.Equal(t, Empty, acc.Stage())

	_, _, res = deliver(t, accountData(t, 0, 0), user, refund)
	assert.Equal(t, actor.ExitInvalidAmount, res)

	_, _, res = deliver(t, accountData(t, 10, 0), pool, refund)
	assert.Equal(t, actor.ExitInvalidCaller, res)
}

func TestGetterAndUnknownOp(t *testing.T) {
	_, ctx, res := deliver(t, accountData(t, 4, 6), named(9), codec.Simple(codec.OpGetterLpAccountData, 1))
	require.Equal(t, actor.ExitOK, res)
	require.Len(t, ctx.Outbox(), 1)
	reply := ctx.Outbox()[0]
	assert.True(t, codec.SameAddress(named(9), reply.Dst))
	_, rest, err := codec.ParseHeader(reply.Body)
	require.NoError(t, err)
	data, err := codec.ParseLpAccountDataReply(rest)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), data.Amount0.Uint64())
	assert.Equal(t, uint64(6), data.Amount1.Uint64())

	_, _, res = deliver(t, accountData(t, 0, 0), user, codec.Simple(0x12345678, 0))
	assert.Equal(t, actor.ExitWrongOp, res)
}

func TestBouncedMessageDoesNotRecredit(t *testing.T) {
	msg := actor.Message{Src: pool, Dst: self, Value: actor.Coin, Bounced: true,
		Body: cell.BeginCell().MustStoreUInt(uint64(codec.BounceOp), 32).EndCell()}
	ctx := actor.NewContext(self, msg, actor.Coin, time.Now(), nil, nil)
	out, res := Program{}.Receive(ctx, accountData(t, 0, 0), msg)
	require.Equal(t, actor.ExitOK, res)
	acc, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, Empty, acc.Stage())
	assert.Empty(t, ctx.Outbox())
}

func TestAddLiquidityStagedOverflow(t *testing.T) {
	maxCoins := new(uint256.Int).Sub(new(uint256.Int).Lsh(u(1), 120), u(1))
	data, err := codec.LpAccountData{User: user, Pool: pool, Stored0: maxCoins, Stored1: u(0)}.ToCell()
	require.NoError(t, err)

	t.Run("sum above the coin range is rejected", func(t *testing.T) {
		acc, ctx, res := deliver(t, data, pool, addLiquidity(1, 10, 1))
		assert.Equal(t, actor.ExitStateOverflow, res)
		assert.Empty(t, ctx.Outbox())
		assert.True(t, maxCoins.Eq(acc.Stored0))
		assert.True(t, acc.Stored1.IsZero())
	})

	t.Run("sum at the coin range still mints", func(t *testing.T) {
		acc, ctx, res := deliver(t, data, pool, addLiquidity(0, 10, 1))
		require.Equal(t, actor.ExitOK, res)
		require.Len(t, ctx.Outbox(), 1)
		assert.Equal(t, Empty, acc.Stage())
		_, rest, err := codec.ParseHeader(ctx.Outbox()[0].Body)
		require.NoError(t, err)
		cb, err := codec.ParseCbAddLiquidity(rest)
		require.NoError(t, err)
		assert.True(t, maxCoins.Eq(cb.Amount0))
	})
}
