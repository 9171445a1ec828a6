package remediate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyseg-cli/internal/numeric"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

type place struct{ city, state string }

func placeOf(r table.Record) place {
	c, ok := r[ColCity].Text()
	if !ok {
		c = Unknown
	}
	s, ok := r[ColState].Text()
	if !ok {
		s = Unknown
	}
	return place{c, s}
}

func setPlace(r table.Record, p place) {
	r[ColCity] = table.Str(p.city)
	r[ColState] = table.Str(p.state)
}

// modeState is the most frequent known state.
func modeState(t *table.Table) (string, bool) {
	var states []string
	for _, r := range t.Rows {
		if p := placeOf(r); p.state != Unknown {
			states = append(states, p.state)
		}
	}
	return numeric.Mode(states)
}

// modeCityByState maps each known state to its most frequent known city.
func modeCityByState(t *table.Table) map[string]string {
	cities := map[string][]string{}
	for _, r := range t.Rows {
		if p := placeOf(r); p.city != Unknown && p.state != Unknown {
			cities[p.state] = append(cities[p.state], p.city)
		}
	}
	out := make(map[string]string, len(cities))
	for s, cs := range cities {
		out[s], _ = numeric.Mode(cs)
	}
	return out
}

// imputeLocation resolves Unknown city/state values in three cases:
// a known city with an unknown state is looked up externally, falling back
// to the most common state and its most common city; an unknown city in a
// known state takes that state's most common city; rows unknown in both
// take the most common known pair.
func imputeLocation(e *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len(), RowsAfter: t.Len()}
	if !t.HasColumn(ColCity) || !t.HasColumn(ColState) {
		return d, nil
	}
	if err := e.locationByLookup(t, &d); err != nil {
		return d, err
	}
	cityFromState(t, &d)
	pairFromMode(t, &d)
	if d.Filled != nil {
		d.Message = fmt.Sprintf("Filled missing city/state values for %d row(s).", sumCounts(d.Filled))
	}
	return d, nil
}

// locationByLookup handles rows whose city is known but state is not.
// Every distinct city is queried once; any lookup failure degrades to the
// statistical fallback, which replaces both city and state.
func (e *env) locationByLookup(t *table.Table, d *StageDelta) error {
	var cities []string
	seen := map[string]bool{}
	for _, r := range t.Rows {
		p := placeOf(r)
		if p.city != Unknown && p.state == Unknown && !seen[p.city] {
			seen[p.city] = true
			cities = append(cities, p.city)
		}
	}
	for _, city := range cities {
		if err := e.ctx.Err(); err != nil {
			return err
		}
		rows := rowsAt(t, place{city, Unknown})
		region, err := e.resolver.Resolve(e.ctx, city)
		if err == nil {
			if canon, ok := e.opt.Regions.Canonical(region); ok {
				for _, r := range rows {
					r[ColState] = table.Str(canon)
				}
				d.fill("state (location lookup)", len(rows))
				e.logger.Debug("state resolved", zap.String("city", city), zap.String("state", canon))
				continue
			}
		}
		if err != nil {
			e.logger.Debug("state lookup missed", zap.String("city", city), zap.Error(err))
		}

		state, ok := modeState(t)
		if !ok {
			d.warn("no known state to fall back on for city %q", city)
			continue
		}
		fallback := place{city, state}
		if c, ok := modeCityByState(t)[state]; ok {
			fallback.city = c
		}
		for _, r := range rows {
			setPlace(r, fallback)
		}
		d.fill("city+state (most common fallback)", len(rows))
		e.logger.Debug("state fallback", zap.String("city", city),
			zap.String("fill_city", fallback.city), zap.String("fill_state", fallback.state))
	}
	return nil
}

func rowsAt(t *table.Table, p place) []table.Record {
	var out []table.Record
	for _, r := range t.Rows {
		if placeOf(r) == p {
			out = append(out, r)
		}
	}
	return out
}

// cityFromState fills unknown cities from the most common city of the row's state.
func cityFromState(t *table.Table, d *StageDelta) {
	modes := modeCityByState(t)
	n := 0
	for _, r := range t.Rows {
		p := placeOf(r)
		if p.city != Unknown || p.state == Unknown {
			continue
		}
		if c, ok := modes[p.state]; ok {
			r[ColCity] = table.Str(c)
			n++
		}
	}
	d.fill("city (most common in state)", n)
}

// pairFromMode fills rows unknown in both columns with the most common known pair.
func pairFromMode(t *table.Table, d *StageDelta) {
	var pairs []place
	var both []table.Record
	for _, r := range t.Rows {
		p := placeOf(r)
		switch {
		case p.city != Unknown && p.state != Unknown:
			pairs = append(pairs, p)
		case p.city == Unknown && p.state == Unknown:
			both = append(both, r)
		}
	}
	if len(both) == 0 {
		return
	}
	best, ok := numeric.Mode(pairs)
	if !ok {
		d.warn("no complete city/state pair to fill %d row(s) missing both", len(both))
		return
	}
	for _, r := range both {
		setPlace(r, best)
	}
	d.fill("city+state (most common pair)", len(both))
}

func sumCounts(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
