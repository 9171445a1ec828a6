package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tidyseg-cli/internal/geocode"
	"github.com/KaramelBytes/tidyseg-cli/internal/remediate"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
	"github.com/KaramelBytes/tidyseg-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cleanType       string
	cleanOutput     string
	cleanReport     string
	cleanNoGeocode  bool
	cleanSheetName  string
	cleanSheetIndex int
	cleanThreshold  float64
	cleanQuiet      bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Clean a customer or order table and write a remediation report",
	Long: `Runs the remediation pipeline over a CSV/TSV/XLSX file: header normalization,
schema checks, duplicate removal, standardization, missing-value handling and
outlier flags. Writes <base>_cleaned<ext> and <base>_report.json unless -o or
--report are given. Nothing is written when the run fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		dt, err := remediate.ParseDatasetType(cleanType)
		if err != nil {
			return err
		}
		c, err := settings()
		if err != nil {
			return err
		}
		logger, err := newLogger(c)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		in, err := readTable(path, cleanSheetName, cleanSheetIndex)
		if err != nil {
			return err
		}

		opt := remediate.DefaultOptions()
		if c.CompletenessThreshold > 0 {
			opt.CompletenessThreshold = c.CompletenessThreshold
		}
		if c.OutlierSizeCutoff > 0 {
			opt.OutlierSizeCutoff = c.OutlierSizeCutoff
		}
		if cmd.Flags().Changed("threshold") {
			if cleanThreshold <= 0 || cleanThreshold > 1 {
				return fmt.Errorf("invalid --threshold: %v (use 0 < t <= 1)", cleanThreshold)
			}
			opt.CompletenessThreshold = cleanThreshold
		}

		resolver, closeResolver := buildResolver(cmd.Context(), c, logger, cleanNoGeocode || dt == remediate.Order)
		defer closeResolver()

		res, err := remediate.New(resolver, logger, opt).Run(cmd.Context(), in, dt)
		if err != nil {
			return err
		}

		out := cleanOutput
		if out == "" {
			out = utils.SiblingPath(delimitedPath(path), "_cleaned", "")
		}
		reportPath := cleanReport
		if reportPath == "" {
			reportPath = utils.SiblingPath(path, "_report", ".json")
		}
		// Encode both artifacts before writing either.
		data, err := table.Encode(res.Table, out)
		if err != nil {
			return fmt.Errorf("encode cleaned table: %w", err)
		}
		rep, err := utils.PrettyJSON(res.Report)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(out, data); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(reportPath, rep); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if !cleanQuiet {
			fmt.Fprintln(w, res.Report.Text())
		}
		if cr, ok := resolver.(*geocode.CachingResolver); ok {
			logger.Info("location lookups", zap.Int("distinct_names", cr.Lookups()))
			if !cleanQuiet {
				fmt.Fprintf(w, "Location lookups: %d distinct place name(s)\n", cr.Lookups())
			}
		}
		fmt.Fprintf(w, "✓ Wrote cleaned data to %s (%d rows, %d columns)\n", out, res.Table.Len(), len(res.Table.Columns))
		fmt.Fprintf(w, "✓ Wrote report to %s\n", reportPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringVarP(&cleanType, "type", "t", "", "dataset type: customer | order (required)")
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "path for the cleaned table (default <base>_cleaned<ext>)")
	cleanCmd.Flags().StringVar(&cleanReport, "report", "", "path for the JSON report (default <base>_report.json)")
	cleanCmd.Flags().BoolVar(&cleanNoGeocode, "no-geocode", false, "skip online location lookups (unresolved locations become Unknown)")
	cleanCmd.Flags().Float64Var(&cleanThreshold, "threshold", 0, "completeness threshold for optional columns (overrides config)")
	cleanCmd.Flags().BoolVarP(&cleanQuiet, "quiet", "q", false, "only print the written paths")
	cleanCmd.Flags().StringVar(&cleanSheetName, "sheet-name", "", "XLSX: sheet name to read")
	cleanCmd.Flags().IntVar(&cleanSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	_ = cleanCmd.MarkFlagRequired("type")
}
