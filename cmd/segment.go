package cmd

import (
	"fmt"
	"sync"

	"github.com/KaramelBytes/tidyseg-cli/internal/segment"
	"github.com/KaramelBytes/tidyseg-cli/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	segFeatures   []string
	segPair       string
	segOutput     string
	segKMin       int
	segKMax       int
	segSeed       int64
	segWorkers    int
	segNoProgress bool
)

var segmentCmd = &cobra.Command{
	Use:   "segment <merged-file>",
	Short: "Cluster merged customer profiles and choose the number of segments",
	Long: `Encodes the selected features, runs k-means for every K in [k-min, k-max]
and picks K from silhouette, Davies-Bouldin and cluster-size criteria.
Writes the full result (assignments, per-cluster summary, evaluation table
and decision) as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		features := segFeatures
		if segPair != "" {
			if len(features) > 0 {
				return fmt.Errorf("use either --pair or --features, not both")
			}
			p, err := segment.PairByID(segPair)
			if err != nil {
				return err
			}
			features = p.Features
		}
		if len(features) == 0 {
			return fmt.Errorf("no features selected: pass --features a,b or --pair <id> (see 'tidyseg pairs')")
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

		opt := segment.Options{
			KMin:     c.KMin,
			KMax:     c.KMax,
			NInit:    c.KMeansNInit,
			MaxIter:  c.KMeansMaxIter,
			Seed:     c.Seed,
			Workers:  c.Workers,
			Criteria: segment.DefaultCriteria(),
		}
		f := cmd.Flags()
		if f.Changed("k-min") {
			opt.KMin = segKMin
		}
		if f.Changed("k-max") {
			opt.KMax = segKMax
		}
		if f.Changed("seed") {
			opt.Seed = segSeed
		}
		if f.Changed("workers") {
			opt.Workers = segWorkers
		}
		if opt.KMax < opt.KMin {
			return fmt.Errorf("invalid K range: k-max %d < k-min %d", opt.KMax, opt.KMin)
		}

		t, err := readTable(path, "", 1)
		if err != nil {
			return err
		}

		eng := segment.NewEngine(opt, logger)
		var bar *progressbar.ProgressBar
		var once sync.Once
		if !segNoProgress {
			eng.OnProgress(func(done, total int) {
				once.Do(func() {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetWriter(cmd.ErrOrStderr()),
						progressbar.OptionShowCount(),
						progressbar.OptionSetWidth(40),
						progressbar.OptionSetDescription("Evaluating cluster counts"),
						progressbar.OptionClearOnFinish(),
					)
				})
				_ = bar.Set(done)
			})
		}

		res, err := eng.Run(cmd.Context(), t, features)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return err
		}

		out := segOutput
		if out == "" {
			out = utils.SiblingPath(path, "_segments", ".json")
		}
		b, err := utils.PrettyJSON(res)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(out, b); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Selected K=%d (%s) from %d customers on %v\n", res.BestK, res.Decision.Reason, res.Rows, res.FeatureInfo.SelectedFeatures)
		fmt.Fprintf(w, "  %-3s %-10s %-8s %s\n", "K", "silhouette", "DBI", "sizes")
		for _, ev := range res.Evaluation {
			marker := " "
			if ev.K == res.BestK {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %-3d %-10.4f %-8.4f %v\n", marker, ev.K, ev.Silhouette, ev.DBI, ev.Sizes)
		}
		fmt.Fprintf(w, "✓ Wrote segmentation to %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(segmentCmd)
	segmentCmd.Flags().StringSliceVar(&segFeatures, "features", nil, "comma-separated feature columns to cluster on")
	segmentCmd.Flags().StringVar(&segPair, "pair", "", "recommended feature pair id (see 'tidyseg pairs')")
	segmentCmd.Flags().StringVarP(&segOutput, "output", "o", "", "path for the JSON result (default <base>_segments.json)")
	segmentCmd.Flags().IntVar(&segKMin, "k-min", 2, "smallest cluster count to evaluate (overrides config)")
	segmentCmd.Flags().IntVar(&segKMax, "k-max", 10, "largest cluster count to evaluate (overrides config)")
	segmentCmd.Flags().Int64Var(&segSeed, "seed", 42, "random seed for k-means initialisation (overrides config)")
	segmentCmd.Flags().IntVar(&segWorkers, "workers", 0, "concurrent K evaluations (0 = one per K)")
	segmentCmd.Flags().BoolVar(&segNoProgress, "no-progress", false, "disable the progress bar")
}
