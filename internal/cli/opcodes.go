package cli

import (
	"fmt"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/spf13/cobra"
)

var opcodesJSON bool

var opcodesCmd = &cobra.Command{
	Use:   "opcodes",
	Short: "List message operation codes and exit codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := codec.Ops()
		if opcodesJSON {
			type entry struct {
				Name string `codec:"name"`
				Code string `codec:"code"`
			}
			entries := make([]entry, 0, len(ops))
			for _, op := range ops {
				entries = append(entries, entry{Name: op.Name, Code: fmt.Sprintf("0x%08x", op.Code)})
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		}
		for _, op := range ops {
			fmt.Fprintf(cmd.OutOrStdout(), "%-32s 0x%08x\n", op.Name, op.Code)
		}
		return nil
	},
}

func init() {
	opcodesCmd.Flags().BoolVar(&opcodesJSON, "json", false, "print JSON")
	rootCmd.AddCommand(opcodesCmd)
}
