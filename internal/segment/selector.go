package segment

import (
	"errors"
	"sort"
)

// Selection reasons.
const (
	ReasonFallbackMaxScore = "fallback-max-score"
	ReasonPlateau          = "plateau-preferring-lower-k"
)

// ErrNoEvaluations is returned when there is nothing to select from.
var ErrNoEvaluations = errors.New("no candidate evaluations")

// KEvaluation holds the quality of one clustering with K groups.
type KEvaluation struct {
	K          int     `json:"k"`
	Silhouette float64 `json:"silhouette"`
	DBI        float64 `json:"dbi"`
	Inertia    float64 `json:"inertia"`
	Sizes      []int   `json:"sizes"`
}

// Shares returns the largest and smallest cluster as fractions of all rows.
func (e KEvaluation) Shares() (largest, smallest float64) {
	total, hi, lo := 0, 0, -1
	for _, s := range e.Sizes {
		total += s
		if s > hi {
			hi = s
		}
		if lo < 0 || s < lo {
			lo = s
		}
	}
	if total == 0 {
		return 0, 0
	}
	return float64(hi) / float64(total), float64(lo) / float64(total)
}

// Criteria are the acceptance thresholds of the selector.
type Criteria struct {
	PlateauRatio     float64 `json:"silhouette_plateau_ratio"`
	DBIMax           float64 `json:"dbi_max"`
	LargestShareMax  float64 `json:"largest_cluster_pct_max"`
	SmallestShareMin float64 `json:"smallest_cluster_pct_min"`
	TargetKMin       int     `json:"target_k_min"`
	TargetKMax       int     `json:"target_k_max"`
	// PreferRatio: a later survivor replaces the baseline when its DBI is at
	// most PreferRatio times the baseline's.
	PreferRatio float64 `json:"dbi_prefer_ratio"`
}

// DefaultCriteria returns the standard thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		PlateauRatio:     0.95,
		DBIMax:           1.30,
		LargestShareMax:  0.60,
		SmallestShareMin: 0.03,
		TargetKMin:       3,
		TargetKMax:       6,
		PreferRatio:      0.90,
	}
}

// ClusterDecision is the selector's immutable output.
type ClusterDecision struct {
	SelectedK             int         `json:"selected_k"`
	Evaluation            KEvaluation `json:"row"`
	SilhouetteMax         float64     `json:"silhouette_max"`
	PlateauThreshold      float64     `json:"plateau_threshold"`
	Criteria              Criteria    `json:"criteria"`
	Reason                string      `json:"reason"`
	Survivors             []int       `json:"survivors"`
	BaselineK             int         `json:"baseline_k,omitempty"`
	PreferredOverBaseline bool        `json:"preferred_over_baseline"`
}

func (c Criteria) accepts(e KEvaluation, plateau float64) bool {
	largest, smallest := e.Shares()
	return e.Silhouette >= plateau &&
		e.DBI < c.DBIMax &&
		largest <= c.LargestShareMax &&
		smallest >= c.SmallestShareMin &&
		e.K >= c.TargetKMin && e.K <= c.TargetKMax
}

// Select picks the cluster count. Candidates whose silhouette is within the
// plateau of the best and that pass the DBI, size and K-range filters
// survive; the lowest surviving K is the baseline unless a later survivor
// has a clearly better DBI, in which case the lowest such K wins. With no
// survivors the best silhouette wins, earliest on ties. The result depends
// only on evals and c.
func Select(evals []KEvaluation, c Criteria) (ClusterDecision, error) {
	if len(evals) == 0 {
		return ClusterDecision{}, ErrNoEvaluations
	}
	best := 0
	for i, e := range evals {
		if e.Silhouette > evals[best].Silhouette {
			best = i
		}
	}
	d := ClusterDecision{
		SilhouetteMax:    evals[best].Silhouette,
		PlateauThreshold: c.PlateauRatio * evals[best].Silhouette,
		Criteria:         c,
	}

	var survivors []KEvaluation
	for _, e := range evals {
		if c.accepts(e, d.PlateauThreshold) {
			survivors = append(survivors, e)
		}
	}
	if len(survivors) == 0 {
		d.SelectedK, d.Evaluation, d.Reason = evals[best].K, evals[best], ReasonFallbackMaxScore
		return d, nil
	}

	sort.SliceStable(survivors, func(i, j int) bool { return survivors[i].K < survivors[j].K })
	for _, s := range survivors {
		d.Survivors = append(d.Survivors, s.K)
	}
	base := survivors[0]
	d.BaselineK, d.Reason = base.K, ReasonPlateau
	d.SelectedK, d.Evaluation = base.K, base
	for _, s := range survivors[1:] {
		if s.DBI <= base.DBI*c.PreferRatio {
			d.SelectedK, d.Evaluation, d.PreferredOverBaseline = s.K, s, true
			break
		}
	}
	return d, nil
}
