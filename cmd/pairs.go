package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tidyseg-cli/internal/segment"
	"github.com/spf13/cobra"
)

var pairsFile string

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "List recommended segmentation feature pairs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs := segment.Pairs
		if pairsFile != "" {
			t, err := readTable(pairsFile, "", 1)
			if err != nil {
				return err
			}
			pairs = segment.AvailablePairs(t.Columns)
			if len(pairs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No recommended pair fits the columns of %s\n", pairsFile)
				return nil
			}
		}
		w := cmd.OutOrStdout()
		for _, p := range pairs {
			fmt.Fprintf(w, "%-22s %-42s %s\n", p.ID, p.Label, strings.Join(p.Features, ","))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pairsCmd)
	pairsCmd.Flags().StringVarP(&pairsFile, "file", "f", "", "only list pairs whose features exist in this merged table")
}
