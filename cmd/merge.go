package cmd

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/tidyseg-cli/internal/profile"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
	"github.com/KaramelBytes/tidyseg-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	mergeCustomers string
	mergeOrders    string
	mergeOutput    string
	mergeSummary   string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Build per-customer behaviour profiles from cleaned customers and orders",
	Long: `Aggregates cleaned orders per customer (recency, frequency, spend, favourites)
and joins the result onto every cleaned customer row. Customers without
orders are kept with zero counts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		customers, err := readTable(mergeCustomers, "", 1)
		if err != nil {
			return err
		}
		orders, err := readTable(mergeOrders, "", 1)
		if err != nil {
			return err
		}
		merged, sum, err := profile.Merge(customers, orders, time.Now())
		if err != nil {
			return err
		}

		out := mergeOutput
		if out == "" {
			out = utils.SiblingPath(delimitedPath(mergeCustomers), "_merged", ".csv")
		}
		data, err := table.Encode(merged, out)
		if err != nil {
			return fmt.Errorf("encode merged table: %w", err)
		}
		if err := utils.SafeWriteFile(out, data); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✓ Wrote merged profiles to %s\n", out)
		fmt.Fprintf(w, "  Customers: %d (%d with orders, %d without)\n", sum.TotalCustomers, sum.CustomersWithOrders, sum.CustomersWithoutOrders)
		fmt.Fprintf(w, "  Orders: %d\n", sum.TotalOrders)

		if mergeSummary != "" {
			b, err := utils.PrettyJSON(sum)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(mergeSummary, b); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Wrote merge summary to %s\n", mergeSummary)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVar(&mergeCustomers, "customers", "", "cleaned customer table (required)")
	mergeCmd.Flags().StringVar(&mergeOrders, "orders", "", "cleaned order table (required)")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "path for the merged table (default <customers>_merged.csv)")
	mergeCmd.Flags().StringVar(&mergeSummary, "summary", "", "optional path to write the merge summary (JSON)")
	_ = mergeCmd.MarkFlagRequired("customers")
	_ = mergeCmd.MarkFlagRequired("orders")
}
