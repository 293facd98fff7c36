package result

import (
	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
	"github.com/kailas-cloud/catalogd/internal/domain/search/request"
)

// Page is one window of a sorted, filtered catalog listing.
type Page struct {
	items   []catalog.Record
	total   int
	applied request.Request
	ignored []facet.Unknown
}

// New creates a page. applied is the effective request after facet validation.
func New(items []catalog.Record, total int, applied request.Request, ignored []facet.Unknown) Page {
	return Page{items: items, total: total, applied: applied, ignored: ignored}
}

// Paginate cuts the window [offset, offset+limit) out of sorted.
func Paginate(sorted []catalog.Record, offset, limit int) []catalog.Record {
	if offset >= len(sorted) {
		return []catalog.Record{}
	}
	end := min(offset+limit, len(sorted))
	return sorted[offset:end]
}

// Items returns the records in this page.
func (p *Page) Items() []catalog.Record { return p.items }

// Total returns the number of matches across all pages.
func (p *Page) Total() int { return p.total }

// Applied returns the effective request, echoed back for "active filter" displays.
func (p *Page) Applied() request.Request { return p.applied }

// Ignored returns facet values dropped because the index does not contain them.
func (p *Page) Ignored() []facet.Unknown { return p.ignored }

// HasMore reports whether matches exist beyond this page.
func (p *Page) HasMore() bool {
	return p.applied.Offset()+len(p.items) < p.total
}
