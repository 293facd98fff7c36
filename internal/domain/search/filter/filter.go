package filter

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
)

// Limits on a single filter specification.
const (
	MaxQueryLength     = 256
	MaxValuesPerFacet  = 32
	MaxKindsPerRequest = 3
)

// Flag is a boolean record property a caller can require.
type Flag string

// Supported flags.
const (
	FineTuned Flag = "fine_tuned"
	HasDemo   Flag = "has_demo"
	HasPaper  Flag = "has_paper"
	HasRepo   Flag = "has_repo"
)

// IsValid checks if the flag is supported.
func (f Flag) IsValid() bool {
	return f == FineTuned || f == HasDemo || f == HasPaper || f == HasRepo
}

func (f Flag) holds(r *catalog.Record) bool {
	switch f {
	case FineTuned:
		return r.FineTuned
	case HasDemo:
		return r.DemoURL != ""
	case HasPaper:
		return r.PaperURL != ""
	case HasRepo:
		return r.RepoURL != ""
	}
	return false
}

// Params is the unvalidated input of New. Nil thresholds and empty
// collections mean "no constraint".
type Params struct {
	Query        string
	Kinds        []catalog.Kind
	Facets       facet.Selection
	MinDownloads *int64
	MinLikes     *int64
	MinUsability *float64
	Flags        []Flag
}

// Spec is a validated filter: every active predicate must pass (AND),
// values within one facet are alternatives (OR).
type Spec struct {
	query        string
	kinds        []catalog.Kind
	facets       facet.Selection
	minDownloads *int64
	minLikes     *int64
	minUsability *float64
	flags        []Flag
}

// New validates p and creates a Spec. Facet values are not checked against
// a facet index here; see WithFacets.
func New(p Params) (Spec, error) {
	q := strings.TrimSpace(p.Query)
	if len(q) > MaxQueryLength {
		return Spec{}, domain.NewValidationError("q", "too long (max %d chars)", MaxQueryLength)
	}
	if len(p.Kinds) > MaxKindsPerRequest {
		return Spec{}, domain.NewValidationError("kind", "too many kinds (max %d)", MaxKindsPerRequest)
	}
	for _, k := range p.Kinds {
		if !k.IsValid() {
			return Spec{}, domain.NewValidationError("kind", "unknown catalog kind %q", k)
		}
	}
	for d, vals := range p.Facets {
		if !d.IsValid() {
			return Spec{}, domain.NewValidationError("facets."+string(d), "unknown facet")
		}
		if len(vals) > MaxValuesPerFacet {
			return Spec{}, domain.NewValidationError("facets."+string(d),
				"too many values (max %d)", MaxValuesPerFacet)
		}
	}
	if p.MinDownloads != nil && *p.MinDownloads < 0 {
		return Spec{}, domain.NewValidationError("min_downloads", "must not be negative")
	}
	if p.MinLikes != nil && *p.MinLikes < 0 {
		return Spec{}, domain.NewValidationError("min_likes", "must not be negative")
	}
	if p.MinUsability != nil && *p.MinUsability < 0 {
		return Spec{}, domain.NewValidationError("min_usability", "must not be negative")
	}
	flags := make([]Flag, 0, len(p.Flags))
	for _, f := range p.Flags {
		if !f.IsValid() {
			return Spec{}, domain.NewValidationError("flag", "unknown flag %q", f)
		}
		if !containsFlag(flags, f) {
			flags = append(flags, f)
		}
	}
	if len(flags) == 0 {
		flags = nil
	}

	return Spec{
		query:        q,
		kinds:        p.Kinds,
		facets:       p.Facets,
		minDownloads: p.MinDownloads,
		minLikes:     p.MinLikes,
		minUsability: p.MinUsability,
		flags:        flags,
	}, nil
}

// WithFacets returns a copy of s using sel as the facet selection
// (typically the canonical selection returned by facet.Index.Validate).
func (s Spec) WithFacets(sel facet.Selection) Spec {
	s.facets = sel
	return s
}

// Query returns the free-text search string.
func (s Spec) Query() string { return s.query }

// Kinds returns the accepted catalog kinds.
func (s Spec) Kinds() []catalog.Kind { return s.kinds }

// Facets returns the facet selection.
func (s Spec) Facets() facet.Selection { return s.facets }

// MinDownloads returns the download lower bound.
func (s Spec) MinDownloads() *int64 { return s.minDownloads }

// MinLikes returns the like lower bound.
func (s Spec) MinLikes() *int64 { return s.minLikes }

// MinUsability returns the usability lower bound.
func (s Spec) MinUsability() *float64 { return s.minUsability }

// Flags returns the required flags.
func (s Spec) Flags() []Flag { return s.flags }

// IsEmpty reports whether the spec has no active predicate.
func (s Spec) IsEmpty() bool {
	return s.query == "" && len(s.kinds) == 0 && s.facets.IsEmpty() &&
		s.minDownloads == nil && s.minLikes == nil && s.minUsability == nil &&
		len(s.flags) == 0
}

// String renders the active predicates for logs.
func (s Spec) String() string {
	var parts []string
	if s.query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", s.query))
	}
	for _, d := range facet.Dimensions {
		if vals := s.facets[d]; len(vals) > 0 {
			parts = append(parts, fmt.Sprintf("%s=%s", d, strings.Join(vals, "|")))
		}
	}
	if s.minDownloads != nil {
		parts = append(parts, fmt.Sprintf("downloads>=%d", *s.minDownloads))
	}
	if s.minLikes != nil {
		parts = append(parts, fmt.Sprintf("likes>=%d", *s.minLikes))
	}
	if s.minUsability != nil {
		parts = append(parts, fmt.Sprintf("usability>=%g", *s.minUsability))
	}
	for _, f := range s.flags {
		parts = append(parts, string(f))
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func containsFlag(flags []Flag, f Flag) bool {
	for _, x := range flags {
		if x == f {
			return true
		}
	}
	return false
}
