package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/config"
	"github.com/CjHare/ton-amm-dex/internal/sandbox"
	"github.com/CjHare/ton-amm-dex/internal/storage/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var scenarioFiles = []string{
	filepath.Join("..", "scenario", "testdata", "fee_split.toml"),
	filepath.Join("..", "scenario", "testdata", "governance.yaml"),
}

func TestSimulateRunsScenariosConcurrently(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendPebble
	cfg.Storage.Path = filepath.Join(dir, "state")
	cfg.Journal.Enabled = true
	cfg.Journal.DSN = filepath.Join(dir, "journal.db")

	reports, err := simulate(ctx, cfg, zap.NewNop(), scenarioFiles, 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "fee-split", reports[0].Name)
	assert.Equal(t, "governance", reports[1].Name)
	require.NotEmpty(t, reports[0].Pools)
	assert.Equal(t, "1000000000019980", reports[0].Pools[0].ReserveA)

	j, err := journal.Open(ctx, journal.Config{Driver: "sqlite", DSN: cfg.Journal.DSN})
	require.NoError(t, err)
	defer j.Close()
	for _, run := range []string{"fee-split", "governance"} {
		entries, err := j.Entries(ctx, journal.Filter{Run: run})
		require.NoError(t, err)
		assert.NotEmpty(t, entries, run)
	}
}

func TestSimulateRejectsDuplicateNames(t *testing.T) {
	_, err := simulate(context.Background(), config.Default(), zap.NewNop(),
		[]string{scenarioFiles[0], scenarioFiles[0]}, 1)
	assert.ErrorContains(t, err, "both named")
}

func TestSimulateMissingFile(t *testing.T) {
	_, err := simulate(context.Background(), config.Default(), zap.NewNop(),
		[]string{filepath.Join(t.TempDir(), "missing.toml")}, 1)
	assert.Error(t, err)
}

func TestWriteReports(t *testing.T) {
	reports, err := simulate(context.Background(), config.Default(), zap.NewNop(), scenarioFiles[:1], 1)
	require.NoError(t, err)

	var text bytes.Buffer
	writeReports(&text, reports)
	assert.True(t, strings.HasPrefix(text.String(), "fee-split (router "))
	assert.Contains(t, text.String(), "pool ")

	var out bytes.Buffer
	require.NoError(t, writeJSON(&out, reports))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "fee-split", decoded[0]["name"])
	assert.Contains(t, decoded[0], "steps")
}

func TestPrintPoolAddress(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	var forward, reverse bytes.Buffer
	require.NoError(t, printPoolAddress(ctx, &forward, cfg, "TKA", "tkb", "alice"))
	require.NoError(t, printPoolAddress(ctx, &reverse, cfg, "tkb", "tka", "Alice"))
	assert.Equal(t, forward.String(), reverse.String())
	assert.Contains(t, forward.String(), "lp_account:")

	raw := codec.AddressKey(sandbox.Named("router-wallet:tka"))
	var explicit bytes.Buffer
	require.NoError(t, printPoolAddress(ctx, &explicit, cfg, raw, "tkb", ""))
	assert.Contains(t, forward.String(), strings.Split(explicit.String(), "\n")[3])

	assert.Error(t, printPoolAddress(ctx, &bytes.Buffer{}, cfg, "tka", "TKA", ""))
	assert.Error(t, printPoolAddress(ctx, &bytes.Buffer{}, cfg, "0:zz", "tka", ""))
}

func TestOpcodesCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"opcodes"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "swap ")
	assert.Contains(t, out.String(), "provide_lp ")
}
