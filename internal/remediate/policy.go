package remediate

import "sort"

// Requirement is how strongly the schema check expects a column.
type Requirement int

const (
	Mandatory Requirement = iota
	Optional
	Derivable
)

func (r Requirement) String() string {
	switch r {
	case Mandatory:
		return "mandatory"
	case Optional:
		return "optional"
	default:
		return "derivable"
	}
}

// MissingAction is what the cascade does with a missing value.
type MissingAction int

const (
	Drop MissingAction = iota
	Fill
	Derive
	Sentinel
	Keep
)

func (a MissingAction) String() string {
	return [...]string{"drop", "fill", "derive", "sentinel", "keep"}[a]
}

// ColumnPolicy describes one column of a dataset type.
type ColumnPolicy struct {
	Column      string
	Requirement Requirement
	OnMissing   MissingAction
	// Fill is the literal used by Sentinel and Fill policies, when any.
	Fill string
}

// PolicyTable is the immutable, column-sorted policy set of a dataset type.
// It also remembers declaration order, which is the order reports use.
type PolicyTable struct {
	entries  []ColumnPolicy
	declared []string
}

func newPolicyTable(entries ...ColumnPolicy) PolicyTable {
	cp := make([]ColumnPolicy, len(entries))
	copy(cp, entries)
	declared := make([]string, len(entries))
	for i, e := range entries {
		declared[i] = e.Column
	}
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Column < cp[j].Column })
	return PolicyTable{entries: cp, declared: declared}
}

// Lookup returns every entry for col. A well-formed table has at most one.
func (p PolicyTable) Lookup(col string) []ColumnPolicy {
	i := sort.Search(len(p.entries), func(i int) bool { return p.entries[i].Column >= col })
	var out []ColumnPolicy
	for ; i < len(p.entries) && p.entries[i].Column == col; i++ {
		out = append(out, p.entries[i])
	}
	return out
}

// Get returns the single entry for col.
func (p PolicyTable) Get(col string) (ColumnPolicy, bool) {
	e := p.Lookup(col)
	if len(e) != 1 {
		return ColumnPolicy{}, false
	}
	return e[0], true
}

// Columns returns the columns with the given requirement in declaration order.
func (p PolicyTable) Columns(req Requirement) []string {
	var out []string
	for _, c := range p.declared {
		if e, ok := p.Get(c); ok && e.Requirement == req {
			out = append(out, c)
		}
	}
	return out
}

// Dropping returns the subset of cols whose missing values remove the row.
func (p PolicyTable) Dropping(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if e, ok := p.Get(c); ok && e.OnMissing == Drop {
			out = append(out, c)
		}
	}
	return out
}

// Entries returns a copy of the table.
func (p PolicyTable) Entries() []ColumnPolicy {
	out := make([]ColumnPolicy, len(p.entries))
	copy(out, p.entries)
	return out
}

var (
	customerPolicy = newPolicyTable(
		ColumnPolicy{Column: ColCustomerID, Requirement: Mandatory, OnMissing: Drop},
		ColumnPolicy{Column: ColCity, Requirement: Mandatory, OnMissing: Derive, Fill: Unknown},
		ColumnPolicy{Column: ColState, Requirement: Mandatory, OnMissing: Derive, Fill: Unknown},
		ColumnPolicy{Column: ColDOB, Requirement: Optional, OnMissing: Keep},
		ColumnPolicy{Column: ColGender, Requirement: Optional, OnMissing: Fill, Fill: Unknown},
		ColumnPolicy{Column: ColAge, Requirement: Derivable, OnMissing: Fill},
		ColumnPolicy{Column: ColAgeGroup, Requirement: Derivable, OnMissing: Derive, Fill: Unknown},
	)
	orderPolicy = newPolicyTable(
		ColumnPolicy{Column: ColOrderID, Requirement: Mandatory, OnMissing: Drop},
		ColumnPolicy{Column: ColCustomerID, Requirement: Mandatory, OnMissing: Drop},
		ColumnPolicy{Column: ColItem, Requirement: Mandatory, OnMissing: Drop},
		ColumnPolicy{Column: ColPurchasedAt, Requirement: Mandatory, OnMissing: Drop},
		ColumnPolicy{Column: ColPrice, Requirement: Mandatory, OnMissing: Drop},
		ColumnPolicy{Column: ColQuantity, Requirement: Mandatory, OnMissing: Derive, Fill: "1"},
		ColumnPolicy{Column: ColTotal, Requirement: Mandatory, OnMissing: Derive},
		ColumnPolicy{Column: ColPayment, Requirement: Mandatory, OnMissing: Sentinel, Fill: Unknown},
		ColumnPolicy{Column: ColPurchaseTm, Requirement: Derivable, OnMissing: Drop},
	)
)

// Policy returns the policy table of a dataset type.
func Policy(d DatasetType) PolicyTable {
	if d == Customer {
		return customerPolicy
	}
	return orderPolicy
}
