package request

import (
	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogd/internal/domain/search/order"
)

// Pagination defaults.
const (
	DefaultLimit = 20
	MaxLimit     = 100
	MaxOffset    = 10000
)

// Limits bounds the page size of a request.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits returns the built-in page size bounds.
func DefaultLimits() Limits {
	return Limits{Default: DefaultLimit, Max: MaxLimit}
}

// Request is a validated catalog query: filter, sort key and page window.
type Request struct {
	filter filter.Spec
	sort   order.Key
	offset int
	limit  int
}

// New validates and normalizes a catalog query.
// Defaults: sort=popularity, limit=lim.Default. Limit is clamped to lim.Max.
func New(f filter.Spec, sort order.Key, offset, limit int, lim Limits) (Request, error) {
	if lim.Default <= 0 {
		lim.Default = DefaultLimit
	}
	if lim.Max <= 0 {
		lim.Max = MaxLimit
	}
	if sort == "" {
		sort = order.Default
	}
	if !sort.IsValid() {
		return Request{}, domain.NewValidationError("sort", "unknown sort key %q", sort)
	}
	if offset < 0 {
		return Request{}, domain.NewValidationError("offset", "must not be negative")
	}
	if offset > MaxOffset {
		return Request{}, domain.NewValidationError("offset", "too large (max %d)", MaxOffset)
	}
	if limit < 0 {
		return Request{}, domain.NewValidationError("limit", "must not be negative")
	}
	if limit == 0 {
		limit = lim.Default
	}
	if limit > lim.Max {
		limit = lim.Max
	}
	return Request{filter: f, sort: sort, offset: offset, limit: limit}, nil
}

// Filter returns the filter specification.
func (r *Request) Filter() filter.Spec { return r.filter }

// Sort returns the sort key.
func (r *Request) Sort() order.Key { return r.sort }

// Offset returns the number of sorted matches to skip.
func (r *Request) Offset() int { return r.offset }

// Limit returns the maximum number of items to return.
func (r *Request) Limit() int { return r.limit }

// WithFilter returns a copy of r with f as its filter.
func (r Request) WithFilter(f filter.Spec) Request {
	r.filter = f
	return r
}
