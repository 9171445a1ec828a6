// Package segment groups merged customer profiles into clusters: feature
// encoding, k-means over a range of cluster counts, quality metrics, and
// the selector that picks the count.
package segment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

const (
	ColCustomerID  = "customerid"
	colTotalOrders = "totalOrders"
)

var (
	// ErrNoFeatures means none of the requested features can be used.
	ErrNoFeatures = errors.New("no usable features")
	// ErrTooFewRows means too few complete rows remain to cluster.
	ErrTooFewRows = errors.New("too few rows to segment")
	// ErrMissingKey means the input has no customerid column.
	ErrMissingKey = errors.New("customerid column not found")
)

// Options controls a segmentation run.
type Options struct {
	KMin, KMax int
	NInit      int
	MaxIter    int
	Seed       int64
	// Workers bounds concurrent K evaluations; 0 means one per K.
	Workers  int
	Criteria Criteria
}

// DefaultOptions evaluates K from 2 to 10.
func DefaultOptions() Options {
	return Options{KMin: 2, KMax: 10, NInit: 10, MaxIter: 300, Seed: 42, Criteria: DefaultCriteria()}
}

// Assignment maps one customer to its cluster.
type Assignment struct {
	CustomerID string `json:"customerid"`
	Cluster    int    `json:"cluster"`
}

// Result is the full segmentation response.
type Result struct {
	RunID       string                    `json:"run_id"`
	BestK       int                       `json:"best_k"`
	Rows        int                       `json:"rows"`
	Evaluation  []KEvaluation             `json:"evaluation"`
	Assignments []Assignment              `json:"cluster_assignments"`
	Summary     map[string]ClusterSummary `json:"cluster_summary"`
	FeatureInfo FeatureInfo               `json:"feature_info"`
	Decision    ClusterDecision           `json:"decision"`
}

// Engine runs segmentations.
type Engine struct {
	opt      Options
	logger   *zap.Logger
	progress func(done, total int)
}

// NewEngine returns an engine; zero option fields take defaults.
func NewEngine(opt Options, logger *zap.Logger) *Engine {
	def := DefaultOptions()
	if opt.KMin < 2 {
		opt.KMin = def.KMin
	}
	if opt.KMax < opt.KMin {
		opt.KMax = max(def.KMax, opt.KMin)
	}
	if opt.NInit < 1 {
		opt.NInit = def.NInit
	}
	if opt.MaxIter < 1 {
		opt.MaxIter = def.MaxIter
	}
	if opt.Criteria == (Criteria{}) {
		opt.Criteria = def.Criteria
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opt: opt, logger: logger}
}

// OnProgress registers a callback invoked after each K evaluation. It may
// be called from several goroutines but never concurrently.
func (e *Engine) OnProgress(fn func(done, total int)) { e.progress = fn }

// Prepare keeps customers with at least one order and complete values for
// the requested features. It returns the filtered table and the features
// that exist in it.
func Prepare(t *table.Table, features []string) (*table.Table, []string, error) {
	if !t.HasColumn(ColCustomerID) {
		return nil, nil, ErrMissingKey
	}
	var existing []string
	for _, f := range features {
		if t.HasColumn(f) {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil, nil, fmt.Errorf("%w: none of %v in %v", ErrNoFeatures, features, t.Columns)
	}
	out := t.Clone()
	out.Filter(func(r table.Record) bool {
		if out.HasColumn(colTotalOrders) {
			if n, ok := r[colTotalOrders].Float(); !ok || n <= 0 {
				return false
			}
		}
		for _, f := range existing {
			if r[f].IsNull() {
				return false
			}
		}
		return true
	})
	return out, existing, nil
}

// Run segments t on features. K candidates are evaluated concurrently and
// selection starts only after every evaluation has finished.
func (e *Engine) Run(ctx context.Context, t *table.Table, features []string) (*Result, error) {
	data, used, err := Prepare(t, features)
	if err != nil {
		return nil, err
	}
	n := data.Len()
	if n <= e.opt.KMin {
		return nil, fmt.Errorf("%w: %d complete rows, need more than %d", ErrTooFewRows, n, e.opt.KMin)
	}
	X, info, err := Encode(data, used)
	if err != nil {
		return nil, err
	}
	kMax := min(e.opt.KMax, n-1)

	log := e.logger.With(zap.Strings("features", used), zap.Int("rows", n))
	log.Info("segmentation started", zap.Int("k_min", e.opt.KMin), zap.Int("k_max", kMax))

	total := kMax - e.opt.KMin + 1
	evals := make([]KEvaluation, total)
	models := make([]Model, total)
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	if e.opt.Workers > 0 {
		g.SetLimit(e.opt.Workers)
	}
	for k := e.opt.KMin; k <= kMax; k++ {
		k := k
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := KMeans(X, k, KMeansOptions{NInit: e.opt.NInit, MaxIter: e.opt.MaxIter, Seed: e.opt.Seed, Tol: 1e-4})
			if err != nil {
				return fmt.Errorf("k=%d: %w", k, err)
			}
			ev := KEvaluation{
				K:          k,
				Silhouette: Silhouette(X, m.Labels, k),
				DBI:        DaviesBouldin(X, m.Labels, m.Centroids),
				Inertia:    m.Inertia,
				Sizes:      clusterSizes(m.Labels, k),
			}
			i := k - e.opt.KMin
			evals[i], models[i] = ev, m

			mu.Lock()
			done++
			if e.progress != nil {
				e.progress(done, total)
			}
			mu.Unlock()
			log.Debug("k evaluated", zap.Int("k", k), zap.Float64("silhouette", ev.Silhouette),
				zap.Float64("dbi", ev.DBI), zap.Ints("sizes", ev.Sizes))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	decision, err := Select(evals, e.opt.Criteria)
	if err != nil {
		return nil, err
	}
	final := models[decision.SelectedK-e.opt.KMin]
	log.Info("cluster count selected", zap.Int("k", decision.SelectedK), zap.String("reason", decision.Reason))

	summary, err := Summarize(data, final.Labels, final.K, used)
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:       uuid.NewString(),
		BestK:       decision.SelectedK,
		Rows:        n,
		Evaluation:  evals,
		Summary:     summary,
		FeatureInfo: info,
		Decision:    decision,
	}
	res.Assignments = make([]Assignment, n)
	for i, r := range data.Rows {
		res.Assignments[i] = Assignment{CustomerID: r[ColCustomerID].String(), Cluster: final.Labels[i]}
	}
	return res, nil
}
