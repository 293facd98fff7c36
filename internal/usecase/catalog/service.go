package catalog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
	"github.com/kailas-cloud/catalogd/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogd/internal/domain/search/order"
	"github.com/kailas-cloud/catalogd/internal/domain/search/request"
	"github.com/kailas-cloud/catalogd/internal/domain/search/result"
	"github.com/kailas-cloud/catalogd/internal/logger"
	"github.com/kailas-cloud/catalogd/internal/metrics"
)

// Service answers catalog browsing queries: filter, sort and paginate the
// records of one kind, and expose the facet index behind the filters.
type Service struct {
	repo   Repository
	policy facet.Policy
	cache  *facetCache
}

// New creates a catalog service. Unknown facet values are rejected by default.
func New(repo Repository) *Service {
	return &Service{repo: repo, policy: facet.PolicyReject}
}

// WithFacetPolicy sets how unknown facet values are handled.
func (s *Service) WithFacetPolicy(p facet.Policy) *Service {
	if p.IsValid() {
		s.policy = p
	}
	return s
}

// WithFacetCache enables the per-kind facet index cache.
func (s *Service) WithFacetCache(size int, ttl time.Duration) *Service {
	if ttl > 0 {
		s.cache = newFacetCache(size, ttl)
	}
	return s
}

// Search runs req against the records of kind. Facet selections are checked
// against the index first; the page echoes the effective request.
func (s *Service) Search(ctx context.Context, kind domcat.Kind, req request.Request) (result.Page, error) {
	start := time.Now()
	page, err := s.search(ctx, kind, req)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CatalogSearchTotal.WithLabelValues(string(kind), status).Inc()
	metrics.CatalogSearchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	return page, err
}

func (s *Service) search(ctx context.Context, kind domcat.Kind, req request.Request) (result.Page, error) {
	records, err := s.repo.ListCatalog(ctx, kind)
	if err != nil {
		return result.Page{}, fmt.Errorf("list %s: %w", kind, err)
	}

	spec := req.Filter()
	var ignored []facet.Unknown
	if !spec.Facets().IsEmpty() {
		idx := s.indexOf(kind, records)
		effective, unknown, err := idx.Validate(spec.Facets(), s.policy)
		if err != nil {
			return result.Page{}, fmt.Errorf("validate facets: %w", err)
		}
		spec = spec.WithFacets(effective)
		ignored = unknown
	}
	applied := req.WithFilter(spec)

	matched := filter.Apply(records, spec)
	sorted := order.Sort(matched, applied.Sort())
	items := result.Paginate(sorted, applied.Offset(), applied.Limit())

	log := logger.FromContext(ctx)
	if len(ignored) > 0 {
		log.Warn("ignored unknown facet values",
			zap.String("kind", string(kind)), zap.Any("ignored", ignored))
	}
	log.Debug("catalog search",
		zap.String("kind", string(kind)),
		zap.Stringer("filter", spec),
		zap.Int("records", len(records)),
		zap.Int("matched", len(sorted)),
	)

	return result.New(items, len(sorted), applied, ignored), nil
}

// Facets returns the facet index of kind.
func (s *Service) Facets(ctx context.Context, kind domcat.Kind) (facet.Index, error) {
	if s.cache != nil {
		if idx, ok := s.cache.get(kind); ok {
			return idx, nil
		}
	}
	records, err := s.repo.ListCatalog(ctx, kind)
	if err != nil {
		return facet.Index{}, fmt.Errorf("list %s: %w", kind, err)
	}
	idx := facet.Build(records)
	if s.cache != nil {
		s.cache.put(kind, idx)
	}
	return idx, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, kind domcat.Kind, id string) (domcat.Record, error) {
	r, err := s.repo.GetCatalog(ctx, kind, id)
	if err != nil {
		return domcat.Record{}, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return r, nil
}

// Invalidate drops the cached facet index of kind after a catalog write.
func (s *Service) Invalidate(kind domcat.Kind) {
	if s.cache != nil {
		s.cache.remove(kind)
	}
}

// indexOf returns the cached index of kind or builds one from records.
func (s *Service) indexOf(kind domcat.Kind, records []domcat.Record) facet.Index {
	if s.cache != nil {
		if idx, ok := s.cache.get(kind); ok {
			return idx
		}
	}
	idx := facet.Build(records)
	if s.cache != nil {
		s.cache.put(kind, idx)
	}
	return idx
}
