package remediate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyseg-cli/internal/geocode"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

const (
	stageNormalize     = "normalize_columns"
	stageSchema        = "schema_validation"
	stageDedupRows     = "remove_duplicate_rows"
	stageDedupEntities = "deduplicate_entities"
	stageStandardize   = "standardize"
	stageMissing       = "missing_values"
	stageOutliers      = "outliers"
)

// Options tune a Pipeline.
type Options struct {
	// CompletenessThreshold is the minimum non-null ratio before a column
	// is reported as sparse (and, for optional columns, dropped).
	CompletenessThreshold float64
	// OutlierSizeCutoff switches from IQR to percentile bounds.
	OutlierSizeCutoff int
	Regions           geocode.RegionSet
	// Now anchors age calculation; defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the standard thresholds for Malaysian data.
func DefaultOptions() Options {
	return Options{
		CompletenessThreshold: 0.8,
		OutlierSizeCutoff:     500,
		Regions:               geocode.MalaysiaRegions(),
		Now:                   time.Now,
	}
}

type env struct {
	ctx      context.Context
	dataset  DatasetType
	opt      Options
	resolver geocode.Resolver
	logger   *zap.Logger
}

func (e *env) now() time.Time { return e.opt.Now() }

type stageFunc func(e *env, t *table.Table) (StageDelta, error)

type namedStage struct {
	name string
	run  stageFunc
}

// Pipeline runs the remediation stages for one dataset type.
type Pipeline struct {
	resolver geocode.Resolver
	logger   *zap.Logger
	opt      Options
}

// Result is a remediated table with the report explaining it.
type Result struct {
	Table  *table.Table
	Report Report
}

// New builds a pipeline. A nil resolver means no external lookups.
func New(resolver geocode.Resolver, logger *zap.Logger, opt Options) *Pipeline {
	def := DefaultOptions()
	if opt.CompletenessThreshold <= 0 {
		opt.CompletenessThreshold = def.CompletenessThreshold
	}
	if opt.OutlierSizeCutoff <= 0 {
		opt.OutlierSizeCutoff = def.OutlierSizeCutoff
	}
	if opt.Regions.Len() == 0 {
		opt.Regions = def.Regions
	}
	if opt.Now == nil {
		opt.Now = def.Now
	}
	if resolver == nil {
		resolver = geocode.Unavailable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{resolver: resolver, logger: logger, opt: opt}
}

func (p *Pipeline) stages(dt DatasetType) []namedStage {
	out := []namedStage{
		{stageNormalize, normalizeColumns},
		{stageSchema, validateSchema},
		{stageDedupRows, dedupRowsStage},
	}
	var cascade []cascadeStep
	if dt == Customer {
		out = append(out,
			namedStage{stageDedupEntities, dedupEntitiesStage},
			namedStage{stageStandardize, standardizeCustomers})
		cascade = customerCascade()
	} else {
		out = append(out, namedStage{stageStandardize, standardizeOrders})
		cascade = orderCascade()
	}
	for _, s := range cascade {
		out = append(out, namedStage{stageMissing + "/" + s.Name, s.Run})
	}
	return append(out, namedStage{stageOutliers, flagOutliers})
}

// Run remediates a copy of in. The input table is not modified. Any error
// is a *FatalError and no partial result is returned.
func (p *Pipeline) Run(ctx context.Context, in *table.Table, dt DatasetType) (*Result, error) {
	if dt != Customer && dt != Order {
		return nil, &FatalError{Err: fmt.Errorf("%w: %q", ErrUnsupportedDatasetType, dt)}
	}
	if in == nil || in.Len() == 0 || len(in.Columns) == 0 {
		return nil, &FatalError{Err: ErrEmptyDataset}
	}
	t := in.Clone()
	e := &env{ctx: ctx, dataset: dt, opt: p.opt, resolver: p.resolver, logger: p.logger}
	rep := Report{
		RunID:       uuid.NewString(),
		DatasetType: dt,
		StartedAt:   p.opt.Now().UTC(),
		InitialRows: t.Len(),
	}
	log := p.logger.With(zap.String("run_id", rep.RunID), zap.String("dataset", string(dt)))
	log.Info("remediation started", zap.Int("rows", t.Len()), zap.Int("columns", len(t.Columns)))

	var missing []StageDelta
	for _, s := range p.stages(dt) {
		if err := ctx.Err(); err != nil {
			return nil, &FatalError{Stage: s.name, Err: err}
		}
		inCascade := strings.HasPrefix(s.name, stageMissing+"/")
		if !inCascade && len(missing) > 0 {
			rep.append(StageDelta{Stage: stageMissing, RowsBefore: missing[0].RowsBefore, RowsAfter: t.Len(), Message: missingSummary(missing)})
			missing = nil
		}
		d, err := s.run(e, t)
		if err != nil {
			return nil, &FatalError{Stage: s.name, Err: err}
		}
		d.Stage = s.name
		rep.append(d)
		if inCascade {
			missing = append(missing, d)
		}
		log.Info("stage complete", zap.String("stage", s.name), zap.Int("rows", t.Len()))
	}

	rep.FinalRows = t.Len()
	rep.FinalColumns = append([]string(nil), t.Columns...)
	log.Info("remediation finished", zap.Int("rows", rep.FinalRows), zap.Int("columns", len(rep.FinalColumns)))
	return &Result{Table: t, Report: rep}, nil
}

// missingSummary explains the cascade in one message.
func missingSummary(steps []StageDelta) string {
	removed, filled := map[string]int{}, map[string]int{}
	for _, d := range steps {
		for k, v := range d.Removed {
			removed[k] += v
		}
		for k, v := range d.Filled {
			filled[k] += v
		}
	}
	if len(removed) == 0 && len(filled) == 0 {
		return "All records have complete information. No missing values found."
	}
	var b strings.Builder
	b.WriteString("Missing value handling summary:\n")
	if n := sumCounts(removed); n > 0 {
		fmt.Fprintf(&b, "\n%d row(s) removed because of missing critical information:\n", n)
		writeCounts(&b, removed)
	}
	if len(filled) > 0 {
		b.WriteString("\nData filled or calculated:\n")
		writeCounts(&b, filled)
	}
	return strings.TrimRight(b.String(), "\n")
}

func normalizeColumns(e *env, t *table.Table) (StageDelta, error) {
	raw := append([]string(nil), t.Columns...)
	t.NormalizeColumns()
	matchSchemaColumns(t, Policy(e.dataset))
	d := StageDelta{Stage: stageNormalize, RowsBefore: t.Len(), RowsAfter: t.Len()}
	n := 0
	for i, c := range t.Columns {
		if c != raw[i] {
			n++
		}
	}
	if n > 0 {
		d.Message = fmt.Sprintf("Normalized %d column name(s): %s.", n, strings.Join(t.Columns, ", "))
	}
	return d, nil
}

func compactName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// matchSchemaColumns renames headers that equal a policy column once case and
// all whitespace are ignored, so "customer id" and "CustomerID" both become
// customerid. A header is left alone when its target already exists.
func matchSchemaColumns(t *table.Table, pol PolicyTable) int {
	want := map[string]string{}
	for _, e := range pol.Entries() {
		want[compactName(e.Column)] = e.Column
	}
	n := 0
	for _, c := range append([]string(nil), t.Columns...) {
		target, ok := want[compactName(c)]
		if !ok || target == c || t.HasColumn(target) {
			continue
		}
		t.RenameColumn(c, target)
		n++
	}
	return n
}

func dedupRowsStage(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{Stage: stageDedupRows, RowsBefore: t.Len()}
	n := DedupRows(t)
	d.RowsAfter = t.Len()
	d.remove("duplicate rows", n)
	if n > 0 {
		d.Message = fmt.Sprintf("%s found and removed.", plural(n, "duplicate row was", "duplicate rows were"))
	}
	return d, nil
}

func dedupEntitiesStage(e *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{Stage: stageDedupEntities, RowsBefore: t.Len()}
	key := e.dataset.EntityKey()
	if !t.HasColumn(key) {
		d.RowsAfter = t.Len()
		d.warn("column %q not found; entity deduplication skipped", key)
		return d, nil
	}
	groups, removed := DedupEntities(t, key)
	d.RowsAfter = t.Len()
	d.remove("duplicate customer ids merged", removed)
	d.merge("customer ids collapsed", groups)
	if groups > 0 {
		d.Message = fmt.Sprintf("%d customer id(s) appeared on more than one row; %d row(s) were merged into one record per customer.", groups, removed)
	}
	return d, nil
}
