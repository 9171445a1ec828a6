// Package geocode resolves free-text place names to administrative regions
// through a rate-limited HTTP geocoder, with run-scoped and persistent
// caches in front of it.
package geocode

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is an ordinary miss: the service knows no region for the name.
	ErrNotFound = errors.New("location not found")
	// ErrRegionNotAllowed means the service answered with a region outside the valid set.
	ErrRegionNotAllowed = errors.New("resolved region not in allowed set")
)

// Resolver maps a place name to a region. Implementations return ErrNotFound
// (possibly wrapped) for misses and other errors only for transport failure.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, name string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, name string) (string, error) { return f(ctx, name) }

// Unavailable is a resolver that never answers; every lookup misses.
var Unavailable Resolver = ResolverFunc(func(context.Context, string) (string, error) {
	return "", ErrNotFound
})

// IsMiss reports whether err is an ordinary not-found or disallowed-region answer
// rather than a transport failure.
func IsMiss(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrRegionNotAllowed)
}

// RegionSet is the closed set of valid administrative region names.
type RegionSet struct {
	names []string
	index map[string]string
}

// NewRegionSet builds a set; lookups are case-insensitive.
func NewRegionSet(names ...string) RegionSet {
	rs := RegionSet{index: make(map[string]string, len(names))}
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if _, dup := rs.index[key]; dup || key == "" {
			continue
		}
		rs.index[key] = n
		rs.names = append(rs.names, n)
	}
	sort.Strings(rs.names)
	return rs
}

// Canonical returns the set's spelling of name.
func (rs RegionSet) Canonical(name string) (string, bool) {
	c, ok := rs.index[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Names returns the members in sorted order.
func (rs RegionSet) Names() []string {
	out := make([]string, len(rs.names))
	copy(out, rs.names)
	return out
}

// Len returns the number of regions.
func (rs RegionSet) Len() int { return len(rs.names) }

// MalaysiaRegions returns the ISO 3166-2:MY subdivisions.
func MalaysiaRegions() RegionSet {
	return NewRegionSet(
		"Johor",
		"Kedah",
		"Kelantan",
		"Melaka",
		"Negeri Sembilan",
		"Pahang",
		"Perak",
		"Perlis",
		"Pulau Pinang",
		"Sabah",
		"Sarawak",
		"Selangor",
		"Terengganu",
		"Wilayah Persekutuan Kuala Lumpur",
		"Wilayah Persekutuan Labuan",
		"Wilayah Persekutuan Putrajaya",
	)
}
