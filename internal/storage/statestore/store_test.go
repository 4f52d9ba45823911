package statestore

import (
	"bytes"
	"context"
	"testing"

	"github.com/CjHare/ton-amm-dex/internal/chain"
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/CjHare/ton-amm-dex/internal/storage/kv"
	"github.com/CjHare/ton-amm-dex/internal/storage/kv/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

func testAccount(seed byte, balance uint64) *chain.Account {
	raw := bytes.Repeat([]byte{seed}, 32)
	return &chain.Account{
		Address: address.NewAddress(0, 0, raw),
		Code:    actor.CodeCell("test", 1),
		Data:    cell.BeginCell().MustStoreUInt(uint64(seed), 32).EndCell(),
		Balance: balance,
		LastLT:  uint64(seed) * 10,
	}
}

func TestSaveAndLoadAccount(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New())
	acct := testAccount(7, 1_500_000_000)

	require.NoError(t, s.SaveAccount(ctx, acct))

	got, err := s.LoadAccount(ctx, acct.Address)
	require.NoError(t, err)
	assert.Equal(t, codec.AddressKey(acct.Address), codec.AddressKey(got.Address))
	assert.Equal(t, acct.Balance, got.Balance)
	assert.Equal(t, acct.LastLT, got.LastLT)
	assert.Equal(t, acct.Code.Hash(), got.Code.Hash())
	assert.Equal(t, acct.Data.Hash(), got.Data.Hash())
}

func TestLoadAccountMissing(t *testing.T) {
	s := New(memory.New())
	_, err := s.LoadAccount(context.Background(), testAccount(1, 0).Address)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestLoadAccountsOverwrites(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	s := New(db)

	require.NoError(t, s.SaveAccount(ctx, testAccount(1, 10)))
	require.NoError(t, s.SaveAccount(ctx, testAccount(2, 20)))
	require.NoError(t, s.SaveAccount(ctx, testAccount(1, 30)))
	require.NoError(t, db.Put(ctx, []byte("other/key"), []byte("ignored")))

	accts, err := s.LoadAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accts, 2)

	balances := map[string]uint64{}
	for _, a := range accts {
		balances[a.Key()] = a.Balance
	}
	assert.Equal(t, uint64(30), balances[testAccount(1, 0).Key()])
	assert.Equal(t, uint64(20), balances[testAccount(2, 0).Key()])
}

func TestSaveAccountWithoutState(t *testing.T) {
	acct := testAccount(3, 0)
	acct.Data = nil
	assert.Error(t, New(memory.New()).SaveAccount(context.Background(), acct))
}

func TestCompressRoundTrip(t *testing.T) {
	for name, data := range map[string][]byte{
		"repetitive": bytes.Repeat([]byte("pool"), 512),
		"short":      []byte{1, 2, 3},
		"empty":      {},
	} {
		t.Run(name, func(t *testing.T) {
			rec, err := compress(data)
			require.NoError(t, err)
			out, err := decompress(rec)
			require.NoError(t, err)
			assert.Equal(t, len(data), len(out))
			assert.True(t, bytes.Equal(data, out))
		})
	}
}

func TestCompressShrinksRepetitiveInput(t *testing.T) {
	data := bytes.Repeat([]byte{0xab}, 4096)
	rec, err := compress(data)
	require.NoError(t, err)
	assert.Equal(t, formatLZ4, rec[0])
	assert.Less(t, len(rec), len(data))
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := decompress([]byte{9})
	assert.Error(t, err)
	_, err = decompress([]byte{9, 1, 0})
	assert.Error(t, err)
	_, err = decompress([]byte{formatRaw, 5, 1})
	assert.Error(t, err)
}
