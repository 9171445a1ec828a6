package remediate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// StageDelta is the outcome of one stage: a plain-language message plus
// machine-readable counts keyed by reason. Deltas are values; once appended
// to a Report they are never edited.
type StageDelta struct {
	Stage        string             `json:"stage"`
	Message      string             `json:"message,omitempty"`
	RowsBefore   int                `json:"rows_before"`
	RowsAfter    int                `json:"rows_after"`
	Removed      map[string]int     `json:"removed,omitempty"`
	Filled       map[string]int     `json:"filled,omitempty"`
	Flagged      map[string]int     `json:"flagged,omitempty"`
	Merged       map[string]int     `json:"merged,omitempty"`
	Completeness map[string]float64 `json:"completeness,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
}

func (d StageDelta) clone() StageDelta {
	d.Removed = cloneCounts(d.Removed)
	d.Filled = cloneCounts(d.Filled)
	d.Flagged = cloneCounts(d.Flagged)
	d.Merged = cloneCounts(d.Merged)
	if d.Completeness != nil {
		c := make(map[string]float64, len(d.Completeness))
		for k, v := range d.Completeness {
			c[k] = v
		}
		d.Completeness = c
	}
	d.Warnings = append([]string(nil), d.Warnings...)
	return d
}

func cloneCounts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *StageDelta) remove(reason string, n int) {
	if n <= 0 {
		return
	}
	if d.Removed == nil {
		d.Removed = map[string]int{}
	}
	d.Removed[reason] += n
}

func (d *StageDelta) fill(reason string, n int) {
	if n <= 0 {
		return
	}
	if d.Filled == nil {
		d.Filled = map[string]int{}
	}
	d.Filled[reason] += n
}

func (d *StageDelta) flag(col string, n int) {
	if d.Flagged == nil {
		d.Flagged = map[string]int{}
	}
	d.Flagged[col] += n
}

// merge records how many entity groups were collapsed into one row each.
func (d *StageDelta) merge(reason string, n int) {
	if n <= 0 {
		return
	}
	if d.Merged == nil {
		d.Merged = map[string]int{}
	}
	d.Merged[reason] += n
}

func (d *StageDelta) warn(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// Report is the folded record of one cleaning run.
type Report struct {
	RunID        string       `json:"run_id"`
	DatasetType  DatasetType  `json:"dataset_type"`
	StartedAt    time.Time    `json:"started_at"`
	InitialRows  int          `json:"initial_rows"`
	FinalRows    int          `json:"final_rows"`
	FinalColumns []string     `json:"final_columns"`
	Stages       []StageDelta `json:"stages"`
}

func (r *Report) append(d StageDelta) {
	r.Stages = append(r.Stages, d.clone())
}

// Summary groups every count of the run.
type Summary struct {
	InitialRows          int            `json:"initial_rows"`
	FinalRows            int            `json:"total_rows_final"`
	FinalColumnCount     int            `json:"total_columns_final"`
	FinalColumns         []string       `json:"final_columns"`
	DuplicateRowsRemoved int            `json:"duplicates_removed_rows"`
	EntitiesCollapsed    int            `json:"entity_groups_collapsed"`
	RemovedIrrecoverable map[string]int `json:"removed_irrecoverable"`
	TotalRemoved         int            `json:"total_removed"`
	FilledDerived        map[string]int `json:"filled_derived"`
	TotalFilled          int            `json:"total_filled"`
	OutliersFlagged      map[string]int `json:"outliers_flagged"`
	Warnings             []string       `json:"warnings,omitempty"`
}

// Summary folds all stage deltas in order.
func (r Report) Summary() Summary {
	s := Summary{
		InitialRows:          r.InitialRows,
		FinalRows:            r.FinalRows,
		FinalColumnCount:     len(r.FinalColumns),
		FinalColumns:         append([]string(nil), r.FinalColumns...),
		RemovedIrrecoverable: map[string]int{},
		FilledDerived:        map[string]int{},
		OutliersFlagged:      map[string]int{},
	}
	for _, d := range r.Stages {
		for k, v := range d.Removed {
			s.RemovedIrrecoverable[k] += v
			s.TotalRemoved += v
		}
		for k, v := range d.Filled {
			s.FilledDerived[k] += v
			s.TotalFilled += v
		}
		for k, v := range d.Flagged {
			s.OutliersFlagged[k] += v
		}
		for _, v := range d.Merged {
			s.EntitiesCollapsed += v
		}
		if d.Stage == stageDedupRows {
			s.DuplicateRowsRemoved += d.RowsBefore - d.RowsAfter
		}
		s.Warnings = append(s.Warnings, d.Warnings...)
	}
	return s
}

// Stage returns the delta recorded for name.
func (r Report) Stage(name string) (StageDelta, bool) {
	for _, d := range r.Stages {
		if d.Stage == name {
			return d, true
		}
	}
	return StageDelta{}, false
}

// MarshalJSON renders the nested summary / detailed_messages document.
func (r Report) MarshalJSON() ([]byte, error) {
	msgs := make(map[string]string, len(r.Stages))
	for _, d := range r.Stages {
		if d.Message != "" {
			msgs[d.Stage] = d.Message
		}
	}
	type alias Report
	return json.Marshal(struct {
		alias
		Summary          Summary           `json:"summary"`
		DetailedMessages map[string]string `json:"detailed_messages"`
		Text             string            `json:"text"`
	}{alias(r), r.Summary(), msgs, r.Text()})
}

// Text is the user-facing explanation of what was removed or filled.
func (r Report) Text() string {
	s := r.Summary()
	var b strings.Builder
	fmt.Fprintf(&b, "Cleaned %s dataset: %d rows in, %d rows out, %d columns.\n", r.DatasetType, s.InitialRows, s.FinalRows, s.FinalColumnCount)
	if s.TotalRemoved == 0 && s.TotalFilled == 0 {
		b.WriteString("All records have complete information. No missing values found.\n")
	}
	if s.EntitiesCollapsed > 0 {
		fmt.Fprintf(&b, "%d customer id(s) with several rows were merged into one record each.\n", s.EntitiesCollapsed)
	}
	if s.TotalRemoved > 0 {
		fmt.Fprintf(&b, "\n%d row(s) removed because they could not be recovered:\n", s.TotalRemoved)
		writeCounts(&b, s.RemovedIrrecoverable)
	}
	if s.TotalFilled > 0 {
		b.WriteString("\nData filled or derived:\n")
		writeCounts(&b, s.FilledDerived)
	}
	flagged := 0
	for _, v := range s.OutliersFlagged {
		flagged += v
	}
	if flagged > 0 {
		b.WriteString("\nUnusual values flagged (original values preserved):\n")
		writeCounts(&b, s.OutliersFlagged)
	}
	if len(s.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}

func writeCounts(b *strings.Builder, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if m[k] > 0 {
			fmt.Fprintf(b, "  - %s: %d\n", k, m[k])
		}
	}
}
