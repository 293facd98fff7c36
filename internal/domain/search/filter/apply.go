package filter

import (
	"strings"

	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
)

// matcher is a Spec compiled for repeated evaluation: lowercased query and
// facet lookup sets built once per Apply.
type matcher struct {
	spec   Spec
	query  string
	kinds  map[catalog.Kind]struct{}
	facets map[facet.Dimension]map[string]struct{}
}

func compile(s Spec) matcher {
	m := matcher{spec: s, query: strings.ToLower(s.query)}
	if len(s.kinds) > 0 {
		m.kinds = make(map[catalog.Kind]struct{}, len(s.kinds))
		for _, k := range s.kinds {
			m.kinds[k] = struct{}{}
		}
	}
	for d, vals := range s.facets {
		if len(vals) == 0 {
			continue
		}
		if m.facets == nil {
			m.facets = make(map[facet.Dimension]map[string]struct{})
		}
		set := make(map[string]struct{}, len(vals))
		for _, v := range vals {
			set[strings.ToLower(v)] = struct{}{}
		}
		m.facets[d] = set
	}
	return m
}

// Apply returns the records matching s, preserving input order.
// An empty spec returns records unchanged.
func Apply(records []catalog.Record, s Spec) []catalog.Record {
	if s.IsEmpty() {
		return records
	}
	m := compile(s)
	out := make([]catalog.Record, 0, len(records))
	for i := range records {
		if m.match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// Matches reports whether r satisfies s.
func Matches(r *catalog.Record, s Spec) bool {
	m := compile(s)
	return m.match(r)
}

func (m *matcher) match(r *catalog.Record) bool {
	if m.kinds != nil {
		if _, ok := m.kinds[r.Kind]; !ok {
			return false
		}
	}
	if m.query != "" && !m.matchText(r) {
		return false
	}
	for d, set := range m.facets {
		if !anyIn(facet.ValuesOf(r, d), set) {
			return false
		}
	}
	if v := m.spec.minDownloads; v != nil && r.Downloads < *v {
		return false
	}
	if v := m.spec.minLikes; v != nil && r.Likes < *v {
		return false
	}
	if v := m.spec.minUsability; v != nil && r.Usability < *v {
		return false
	}
	for _, f := range m.spec.flags {
		if !f.holds(r) {
			return false
		}
	}
	return true
}

// matchText is a case-insensitive substring match on name, description and tags.
func (m *matcher) matchText(r *catalog.Record) bool {
	if strings.Contains(strings.ToLower(r.Name), m.query) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Description), m.query) {
		return true
	}
	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t), m.query) {
			return true
		}
	}
	return false
}

func anyIn(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[strings.ToLower(v)]; ok {
			return true
		}
	}
	return false
}
