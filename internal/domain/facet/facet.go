// Package facet derives the distinct filter values present in a catalog and
// validates facet selections against them.
package facet

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
)

// Dimension is a named axis over which records are filtered by membership.
type Dimension string

// Facet dimensions.
const (
	Tag       Dimension = "tag"
	Task      Dimension = "task"
	Framework Dimension = "framework"
	License   Dimension = "license"
)

// Dimensions lists every facet dimension in display order.
var Dimensions = []Dimension{Tag, Task, Framework, License}

// IsValid checks if the dimension is supported.
func (d Dimension) IsValid() bool {
	return d == Tag || d == Task || d == Framework || d == License
}

// ValuesOf returns the values record r carries along dimension d.
// Single-valued dimensions yield at most one value; empty labels yield none.
func ValuesOf(r *catalog.Record, d Dimension) []string {
	var v string
	switch d {
	case Tag:
		return r.Tags
	case Task:
		v = r.Task
	case Framework:
		v = r.Framework
	case License:
		v = r.License
	}
	if v == "" {
		return nil
	}
	return []string{v}
}

// Value is one distinct facet value and the number of records carrying it.
type Value struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Selection maps a dimension to the accepted values (OR within a dimension).
type Selection map[Dimension][]string

// IsEmpty reports whether no dimension has a selected value.
func (s Selection) IsEmpty() bool {
	for _, vals := range s {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// Unknown is a selected value that the index does not contain.
type Unknown struct {
	Dimension Dimension `json:"dimension"`
	Value     string    `json:"value"`
}

// Policy decides what happens to selections the index does not contain.
type Policy string

// Unknown value policies.
const (
	// PolicyReject fails the request with a validation error naming the value.
	PolicyReject Policy = "reject"
	// PolicyIgnore drops the value from the effective filter and reports it back.
	PolicyIgnore Policy = "ignore"
)

// IsValid checks if the policy is supported.
func (p Policy) IsValid() bool { return p == PolicyReject || p == PolicyIgnore }

type entry struct {
	canonical string
	count     int
}

// Index holds the distinct values per dimension. Values are matched
// case-insensitively; the canonical spelling is the lexicographically smallest
// one seen, so the index does not depend on input order.
// An Index is immutable once built and safe for concurrent use.
type Index struct {
	dims map[Dimension]map[string]*entry
	size int
}

// Build derives the facet index of records.
func Build(records []catalog.Record) Index {
	idx := Index{dims: make(map[Dimension]map[string]*entry, len(Dimensions)), size: len(records)}
	for _, d := range Dimensions {
		idx.dims[d] = make(map[string]*entry)
	}
	for i := range records {
		for _, d := range Dimensions {
			m := idx.dims[d]
			for _, v := range ValuesOf(&records[i], d) {
				k := strings.ToLower(v)
				e, ok := m[k]
				if !ok {
					m[k] = &entry{canonical: v, count: 1}
					continue
				}
				e.count++
				if v < e.canonical {
					e.canonical = v
				}
			}
		}
	}
	return idx
}

// RecordCount returns the number of records the index was built from.
func (ix Index) RecordCount() int { return ix.size }

// Values returns the distinct values of d ordered by count desc, then value asc.
func (ix Index) Values(d Dimension) []Value {
	m := ix.dims[d]
	out := make([]Value, 0, len(m))
	for _, e := range m {
		out = append(out, Value{Value: e.canonical, Count: e.count})
	}
	slices.SortFunc(out, func(a, b Value) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Value, b.Value)
	})
	return out
}

// Canonical returns the indexed spelling of v along d.
func (ix Index) Canonical(d Dimension, v string) (string, bool) {
	e, ok := ix.dims[d][strings.ToLower(strings.TrimSpace(v))]
	if !ok {
		return "", false
	}
	return e.canonical, true
}

// Validate checks sel against the index and returns the effective selection
// with canonical spellings and duplicates removed.
//
// Unknown dimensions always fail. Unknown values fail under PolicyReject and
// are dropped and returned under PolicyIgnore.
func (ix Index) Validate(sel Selection, policy Policy) (Selection, []Unknown, error) {
	if sel.IsEmpty() {
		return nil, nil, nil
	}

	effective := make(Selection, len(sel))
	var unknown []Unknown

	for _, d := range sortedDims(sel) {
		if !d.IsValid() {
			return nil, nil, domain.NewValidationError("facets."+string(d), "unknown facet")
		}
		seen := make(map[string]struct{}, len(sel[d]))
		for _, v := range sel[d] {
			if strings.TrimSpace(v) == "" {
				continue
			}
			c, ok := ix.Canonical(d, v)
			if !ok {
				if policy != PolicyIgnore {
					return nil, nil, domain.NewUnknownFacetValue("facets."+string(d), v)
				}
				unknown = append(unknown, Unknown{Dimension: d, Value: v})
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			effective[d] = append(effective[d], c)
		}
	}

	if len(effective) == 0 {
		effective = nil
	}
	return effective, unknown, nil
}

// sortedDims returns the selection's dimensions in a stable order so that
// validation reports the same first error for the same input.
func sortedDims(sel Selection) []Dimension {
	dims := make([]Dimension, 0, len(sel))
	for d := range sel {
		dims = append(dims, d)
	}
	slices.Sort(dims)
	return dims
}
