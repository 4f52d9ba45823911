package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/config"
	"github.com/CjHare/ton-amm-dex/internal/core/deriver"
	"github.com/CjHare/ton-amm-dex/internal/di"
	"github.com/CjHare/ton-amm-dex/internal/sandbox"
	"github.com/spf13/cobra"
	"github.com/xssnick/tonutils-go/address"
	"go.uber.org/zap"
)

var addressUser string

var poolAddressCmd = &cobra.Command{
	Use:   "pool-address <token|wallet> <token|wallet>",
	Short: "Derive the pool of a token pair",
	Long: `Derive the pool address of a pair for the configured router. Each side is
either a raw or user-friendly jetton wallet address, or a token name resolved
to the router's wallet for that token as scenarios do. With --user the LP
account and LP wallet of that user are derived as well.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printPoolAddress(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], args[1], addressUser)
	},
}

func init() {
	poolAddressCmd.Flags().StringVar(&addressUser, "user", "", "also derive the LP account and LP wallet of this user")
	rootCmd.AddCommand(poolAddressCmd)
}

func printPoolAddress(ctx context.Context, w io.Writer, cfg *config.Config, tokenA, tokenB, user string) error {
	// Derivation only needs the router, so state is never persisted.
	derive := *cfg
	derive.Storage.Backend = config.BackendMemory
	derive.Journal.Enabled = false

	c := di.New()
	defer c.Close()
	p := di.NewProvider(c, &derive)
	p.RegisterAll(zap.NewNop())
	sb, closeDB, err := p.Sandbox(ctx, "derive")
	if err != nil {
		return err
	}
	defer closeDB()

	a, err := resolveWallet(sb, tokenA)
	if err != nil {
		return err
	}
	b, err := resolveWallet(sb, tokenB)
	if err != nil {
		return err
	}
	if codec.SameAddress(a, b) {
		return fmt.Errorf("pair needs two different wallets")
	}
	pool, err := sb.PoolAddress(a, b)
	if err != nil {
		return err
	}
	w0, w1 := deriver.SortWallets(a, b)

	fmt.Fprintf(w, "router:     %s\n", codec.FormatAddress(sb.Router))
	fmt.Fprintf(w, "wallet0:    %s\n", codec.FormatAddress(w0))
	fmt.Fprintf(w, "wallet1:    %s\n", codec.FormatAddress(w1))
	fmt.Fprintf(w, "pool:       %s\n", codec.FormatAddress(pool))
	if user == "" {
		return nil
	}
	owner, err := resolveUser(sb, user)
	if err != nil {
		return err
	}
	account, err := sb.LPAccountAddress(owner, a, b)
	if err != nil {
		return err
	}
	lpWallet, err := sb.LPWalletAddress(owner, a, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "user:       %s\n", codec.FormatAddress(owner))
	fmt.Fprintf(w, "lp_account: %s\n", codec.FormatAddress(account))
	fmt.Fprintf(w, "lp_wallet:  %s\n", codec.FormatAddress(lpWallet))
	return nil
}

// parseExplicit parses s when it is written as an address. Anything else is
// a name.
func parseExplicit(s string) (*address.Address, bool, error) {
	if strings.Contains(s, ":") {
		a, err := codec.ParseAddress(s)
		return a, true, err
	}
	if a, err := address.ParseAddr(s); err == nil {
		return a, true, nil
	}
	return nil, false, nil
}

func resolveWallet(sb *sandbox.Sandbox, s string) (*address.Address, error) {
	a, ok, err := parseExplicit(s)
	if err != nil || ok {
		return a, err
	}
	return sb.Wallet(strings.ToLower(s)), nil
}

func resolveUser(sb *sandbox.Sandbox, s string) (*address.Address, error) {
	a, ok, err := parseExplicit(s)
	if err != nil || ok {
		return a, err
	}
	return sb.Named(strings.ToLower(s)), nil
}
