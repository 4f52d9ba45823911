package journal

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/CjHare/ton-amm-dex/internal/chain"
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
)

func openSQLite(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), Config{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "journal.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func addr(seed byte) *address.Address {
	return address.NewAddress(0, 0, bytes.Repeat([]byte{seed}, 32))
}

func tx(lt uint64, dst *address.Address, op uint32, exit actor.Result) *chain.Transaction {
	return &chain.Transaction{
		LT:      lt,
		Now:     time.Date(2024, 1, 1, 0, 0, int(lt), 0, time.UTC),
		Program: "pool",
		Exit:    exit,
		In: actor.Message{
			Src:   addr(1),
			Dst:   dst,
			Value: actor.Coin,
			Body:  codec.Simple(op, lt),
		},
		Out: []actor.Message{{}, {}},
	}
}

func TestConfigValidate(t *testing.T) {
	c := Config{Driver: "PostgreSQL", DSN: "postgres://localhost/dex"}
	require.NoError(t, c.Validate())
	assert.Equal(t, DriverPostgres, c.Driver)
	assert.Equal(t, 30*time.Second, c.Timeout)

	c = Config{Driver: "sqlite3", DSN: "x.db", MaxOpenConns: 8}
	require.NoError(t, c.Validate())
	assert.Equal(t, DriverSQLite, c.Driver)
	assert.Equal(t, 1, c.MaxOpenConns)

	assert.Error(t, (&Config{Driver: "mysql", DSN: "x"}).Validate())
	assert.Error(t, (&Config{Driver: "sqlite"}).Validate())
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		query  string
		want   string
	}{
		{"postgres numbers in order", DriverPostgres, "a = ? AND b = ?", "a = $1 AND b = $2"},
		{"postgres without placeholders", DriverPostgres, "SELECT COUNT(*) FROM transactions", "SELECT COUNT(*) FROM transactions"},
		{"postgres past nine", DriverPostgres, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", "($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)"},
		{"postgres keeps text", DriverPostgres, "op_name = 'swap' AND lt > ?", "op_name = 'swap' AND lt > $1"},
		{"sqlite unchanged", DriverSQLite, "a = ? AND b = ?", "a = ? AND b = ?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Journal{driver: tt.driver}
			assert.Equal(t, tt.want, j.rebind(tt.query))
		})
	}
}

func TestRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	j := openSQLite(t)
	pool := addr(2)

	require.NoError(t, j.Record(ctx, tx(1, pool, codec.OpSwap, actor.ExitOK)))
	require.NoError(t, j.Record(ctx, tx(2, pool, codec.OpProvideLP, actor.ExitInvalidAmount)))
	require.NoError(t, j.Record(ctx, tx(3, addr(3), codec.OpSwap, actor.ExitOK)))
	assert.ErrorIs(t, j.Record(ctx, tx(3, addr(4), codec.OpBurn, actor.ExitOK)), ErrDuplicate)

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err := j.Entries(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	first := all[0]
	assert.Equal(t, uint64(1), first.LT)
	assert.Equal(t, codec.OpSwap, first.Op)
	assert.Equal(t, "swap", first.OpName)
	assert.Equal(t, codec.AddressKey(pool), first.Dst)
	assert.Equal(t, uint64(actor.Coin), first.Value)
	assert.Equal(t, 2, first.OutCount)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), first.Time)
	assert.NotEmpty(t, first.Body)
	assert.Equal(t, codec.AddressKey(addr(3)), all[2].Dst)

	byDst, err := j.Entries(ctx, Filter{Dst: codec.AddressKey(pool)})
	require.NoError(t, err)
	assert.Len(t, byDst, 2)

	failed, err := j.Entries(ctx, Filter{Failed: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, int32(actor.ExitInvalidAmount), failed[0].Exit)

	limited, err := j.Entries(ctx, Filter{Op: codec.OpSwap, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, uint64(1), limited[0].LT)
}

func TestRunsAreSeparate(t *testing.T) {
	ctx := context.Background()
	j := openSQLite(t)

	require.NoError(t, j.ForRun("alpha").Record(ctx, tx(1, addr(2), codec.OpSwap, actor.ExitOK)))
	require.NoError(t, j.ForRun("beta").Record(ctx, tx(1, addr(3), codec.OpSwap, actor.ExitOK)))
	require.NoError(t, j.ForRun("beta").Record(ctx, tx(2, addr(3), codec.OpSwap, actor.ExitOK)))

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	beta, err := j.Entries(ctx, Filter{Run: "beta"})
	require.NoError(t, err)
	require.Len(t, beta, 2)
	assert.Equal(t, "beta", beta[0].Run)
	assert.Equal(t, codec.AddressKey(addr(3)), beta[0].Dst)
}

func TestDuplicateLTKeepsFirstRow(t *testing.T) {
	ctx := context.Background()
	j := openSQLite(t)
	run := j.ForRun("again")

	require.NoError(t, run.Record(ctx, tx(1, addr(2), codec.OpSwap, actor.ExitOK)))
	err := run.Record(ctx, tx(1, addr(2), codec.OpPayTo, actor.ExitOK))
	require.ErrorIs(t, err, ErrDuplicate)

	rows, err := j.Entries(ctx, Filter{Run: "again"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, codec.OpSwap, rows[0].Op)
}

func TestTruncateRun(t *testing.T) {
	ctx := context.Background()
	j := openSQLite(t)
	alpha, beta := j.ForRun("alpha"), j.ForRun("beta")
	for lt := uint64(1); lt <= 3; lt++ {
		require.NoError(t, alpha.Record(ctx, tx(lt, addr(2), codec.OpSwap, actor.ExitOK)))
		require.NoError(t, beta.Record(ctx, tx(lt, addr(3), codec.OpSwap, actor.ExitOK)))
	}

	n, err := alpha.Truncate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := j.Entries(ctx, Filter{Run: "alpha"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(1), rows[0].LT)
	rows, err = j.Entries(ctx, Filter{Run: "beta"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	// the freed lts can be recorded again
	require.NoError(t, alpha.Record(ctx, tx(2, addr(2), codec.OpPayTo, actor.ExitOK)))

	n, err = alpha.Truncate(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestClosedJournal(t *testing.T) {
	j := openSQLite(t)
	require.NoError(t, j.Close())
	assert.ErrorIs(t, j.Record(context.Background(), tx(1, addr(2), codec.OpSwap, actor.ExitOK)), ErrClosed)
	_, err := j.Count(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
