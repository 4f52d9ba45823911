package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/CjHare/ton-amm-dex/internal/config"
	"github.com/CjHare/ton-amm-dex/internal/di"
	"github.com/CjHare/ton-amm-dex/internal/logging"
	"github.com/CjHare/ton-amm-dex/internal/scenario"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	simulateParallel int
	simulateJSON     bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario>...",
	Short: "Play scenario files against fresh sandboxes",
	Long: `Play each scenario file (toml, yaml or json) against its own sandbox. Scenarios
run concurrently. Account state goes to the configured storage backend, one
directory per scenario, and transactions go to the journal when enabled.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		reports, runErr := simulate(cmd.Context(), cfg, log, args, simulateParallel)
		var writeErr error
		if simulateJSON {
			writeErr = writeJSON(cmd.OutOrStdout(), reports)
		} else {
			writeReports(cmd.OutOrStdout(), reports)
		}
		if runErr != nil {
			return runErr
		}
		return writeErr
	},
}

func init() {
	simulateCmd.Flags().IntVarP(&simulateParallel, "parallel", "p", 4, "scenarios run at once")
	simulateCmd.Flags().BoolVar(&simulateJSON, "json", false, "print reports as JSON")
	rootCmd.AddCommand(simulateCmd)
}

// simulate runs every scenario in paths. The first failure cancels the
// scenarios still running; reports of finished scenarios are returned in
// argument order.
func simulate(ctx context.Context, cfg *config.Config, log *zap.Logger, paths []string, parallel int) ([]*scenario.Report, error) {
	scenarios := make([]*scenario.Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		sc, err := scenario.Load(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[sc.Name]; ok {
			return nil, fmt.Errorf("scenarios %s and %s are both named %q", prev, path, sc.Name)
		}
		seen[sc.Name] = path
		scenarios = append(scenarios, sc)
	}

	c := di.New()
	defer c.Close()
	p := di.NewProvider(c, cfg)
	p.RegisterAll(log)

	reports := make([]*scenario.Report, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			sb, closeDB, err := p.Sandbox(gctx, sc.Name)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			defer closeDB()

			rep, err := scenario.NewRunner(sb, log.With(zap.String("scenario", sc.Name))).Run(gctx, sc)
			reports[i] = rep
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			log.Info("scenario passed", zap.String("scenario", sc.Name), zap.Int("steps", len(rep.Steps)))
			return nil
		})
	}
	err := g.Wait()

	out := reports[:0]
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, err
}

func writeReports(w io.Writer, reports []*scenario.Report) {
	for _, r := range reports {
		fmt.Fprintf(w, "%s (router %s)\n", r.Name, r.Router)
		for _, s := range r.Steps {
			line := fmt.Sprintf("  %3d %-22s tx=%d failed=%d", s.Index, s.Action, s.Transactions, s.Failed)
			if len(s.Exits) > 0 {
				line += " [" + strings.Join(s.Exits, " ") + "]"
			}
			fmt.Fprintln(w, line)
		}
		for _, p := range r.Pools {
			fmt.Fprintf(w, "  pool %s/%s %s reserves %s/%s supply %s\n",
				p.Token, p.Other, p.Address, p.ReserveA, p.ReserveB, p.SupplyLP)
		}
	}
}
