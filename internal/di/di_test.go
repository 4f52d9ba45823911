package di

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/config"
	"github.com/CjHare/ton-amm-dex/internal/storage/journal"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	name  string
	order *[]string
	err   error
}

func (c *closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestContainerBuildsOnce(t *testing.T) {
	c := New()
	calls := 0
	c.RegisterBuilder("counter", func(*Container) (any, error) {
		calls++
		return calls, nil
	})

	for i := 0; i < 3; i++ {
		v, err := Resolve[int](c, "counter")
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	}
	assert.Equal(t, 1, calls)
}

func TestContainerErrors(t *testing.T) {
	c := New()
	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrServiceNotFound)

	c.Register("name", "value")
	_, err = Resolve[int](c, "name")
	assert.Error(t, err)

	boom := errors.New("boom")
	c.RegisterBuilder("broken", func(*Container) (any, error) { return nil, boom })
	_, err = c.Get("broken")
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Has("other"))
	assert.True(t, c.Has("broken"))
}

func TestContainerClosesInReverseOrder(t *testing.T) {
	c := New()
	var order []string
	boom := errors.New("boom")
	c.RegisterBuilder("first", func(*Container) (any, error) {
		return &closeRecorder{name: "first", order: &order}, nil
	})
	c.RegisterBuilder("second", func(c *Container) (any, error) {
		if _, err := c.Get("first"); err != nil {
			return nil, err
		}
		return &closeRecorder{name: "second", order: &order, err: boom}, nil
	})
	// Registered instances are owned by the caller and never closed.
	c.Register("external", &closeRecorder{name: "external", order: &order})

	_, err := c.Get("second")
	require.NoError(t, err)
	assert.Equal(t, []string{"external", "first", "second"}, c.ServiceNames())

	err = c.Close()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"second", "first"}, order)
	assert.NoError(t, c.Close())
}

func TestOpenKVUnknownBackend(t *testing.T) {
	_, err := OpenKV("rocksdb", t.TempDir())
	assert.ErrorIs(t, err, config.ErrUnknownBackend)
}

func newProvider(t *testing.T, cfg *config.Config) *Provider {
	t.Helper()
	c := New()
	t.Cleanup(func() { _ = c.Close() })
	p := NewProvider(c, cfg)
	p.RegisterAll(nil)
	return p
}

func TestSandboxesAreIndependent(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Journal.Enabled = true
	cfg.Journal.DSN = filepath.Join(t.TempDir(), "journal.db")
	p := newProvider(t, cfg)

	first, closeFirst, err := p.Sandbox(ctx, "first")
	require.NoError(t, err)
	defer closeFirst()
	second, closeSecond, err := p.Sandbox(ctx, "second")
	require.NoError(t, err)
	defer closeSecond()

	a, b := first.Wallet("tka"), first.Wallet("tkb")
	_, err = first.ProvidePair(ctx, first.Named("alice"), a, b, uint256.NewInt(1_000_000), uint256.NewInt(4_000_000))
	require.NoError(t, err)

	ra, rb, err := first.Reserves(a, b)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(1_000_000), ra)
	assert.Equal(t, uint256.NewInt(4_000_000), rb)
	_, _, err = second.Reserves(a, b)
	assert.Error(t, err)

	j, err := p.Journal()
	require.NoError(t, err)
	require.NotNil(t, j)
	entries, err := j.Entries(ctx, journal.Filter{Run: "first"})
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
	entries, err = j.Entries(ctx, journal.Filter{Run: "second"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSandboxRerunRewritesJournal(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Journal.Enabled = true
	cfg.Journal.DSN = filepath.Join(t.TempDir(), "journal.db")
	p := newProvider(t, cfg)
	j, err := p.Journal()
	require.NoError(t, err)

	play := func(amount uint64) []journal.Entry {
		sb, closeDB, err := p.Sandbox(ctx, "rerun")
		require.NoError(t, err)
		defer closeDB()
		a, b := sb.Wallet("tka"), sb.Wallet("tkb")
		_, err = sb.ProvidePair(ctx, sb.Named("alice"), a, b, uint256.NewInt(amount), uint256.NewInt(amount))
		require.NoError(t, err)
		entries, err := j.Entries(ctx, journal.Filter{Run: "rerun"})
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		return entries
	}

	first := play(1_000_000)
	second := play(3_000_000)
	assert.Len(t, second, len(first))
	assert.Equal(t, uint64(1), second[0].LT)
}

func TestSandboxPersistsAcrossRuns(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{config.BackendPebble, config.BackendLevelDB} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Backend = backend
			cfg.Storage.Path = t.TempDir()
			p := newProvider(t, cfg)

			sb, closeDB, err := p.Sandbox(ctx, "persist")
			require.NoError(t, err)
			a, b := sb.Wallet("tka"), sb.Wallet("tkb")
			_, err = sb.ProvidePair(ctx, sb.Named("alice"), a, b, uint256.NewInt(1_000_000), uint256.NewInt(2_000_000))
			require.NoError(t, err)
			router := sb.Router
			require.NoError(t, closeDB())

			again, closeAgain, err := p.Sandbox(ctx, "persist")
			require.NoError(t, err)
			defer closeAgain()
			assert.True(t, codec.SameAddress(router, again.Router))
			ra, rb, err := again.Reserves(a, b)
			require.NoError(t, err)
			assert.Equal(t, uint256.NewInt(1_000_000), ra)
			assert.Equal(t, uint256.NewInt(2_000_000), rb)
		})
	}
}

func TestSandboxAdminFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Router.Admin = "0:" + "11" + "00000000000000000000000000000000000000000000000000000000000000"
	p := newProvider(t, cfg)

	sb, closeDB, err := p.Sandbox(context.Background(), "admin")
	require.NoError(t, err)
	defer closeDB()
	want, err := codec.ParseAddress(cfg.Router.Admin)
	require.NoError(t, err)
	assert.True(t, codec.SameAddress(want, sb.Admin))

	cfg.Router.Admin = "not an address"
	_, _, err = p.Sandbox(context.Background(), "broken")
	assert.Error(t, err)
}
