package catalogd

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/catalogd/internal/domain/facet"
	"github.com/kailas-cloud/catalogd/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogd/internal/domain/search/order"
	"github.com/kailas-cloud/catalogd/internal/domain/search/request"
)

// CatalogService lists and edits the records of one catalog kind.
type CatalogService struct {
	kind   Kind
	svc    catalogUseCase
	ingest ingestUseCase
	obs    *observer
}

// Search filters, sorts and paginates the records of the kind.
func (s *CatalogService) Search(ctx context.Context, q Query) (_ Page, err error) {
	track := s.obs.begin("catalog.search", s.kind)
	defer func() { track.end(err) }()

	f, err := filter.New(filter.Params{
		Query:        q.Text,
		Kinds:        q.Kinds,
		Facets:       q.Facets,
		MinDownloads: q.MinDownloads,
		MinLikes:     q.MinLikes,
		MinUsability: q.MinUsability,
		Flags:        q.Flags,
	})
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	key, err := order.ParseKey(q.Sort)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	req, err := request.New(f, key, q.Offset, q.Limit, request.DefaultLimits())
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}

	page, err := s.svc.Search(ctx, s.kind, req)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	s.obs.searched(s.kind, page.Total(), page.Ignored())
	applied := page.Applied()
	return Page{
		Items:   page.Items(),
		Total:   page.Total(),
		Offset:  applied.Offset(),
		Limit:   applied.Limit(),
		HasMore: page.HasMore(),
		Facets:  applied.Filter().Facets(),
		Ignored: page.Ignored(),
	}, nil
}

// Facets returns the distinct values per dimension with record counts.
func (s *CatalogService) Facets(ctx context.Context) (_ FacetSummary, err error) {
	track := s.obs.begin("catalog.facets", s.kind)
	defer func() { track.end(err) }()

	idx, err := s.svc.Facets(ctx, s.kind)
	if err != nil {
		return FacetSummary{}, fmt.Errorf("facets: %w", err)
	}
	values := make(map[FacetDimension][]FacetValue, len(facet.Dimensions))
	for _, d := range facet.Dimensions {
		values[d] = idx.Values(d)
	}
	return FacetSummary{RecordCount: idx.RecordCount(), Values: values}, nil
}

// Get retrieves a record by ID.
func (s *CatalogService) Get(ctx context.Context, id string) (_ Record, err error) {
	track := s.obs.begin("catalog.get", s.kind)
	defer func() { track.end(err) }()

	r, err := s.svc.Get(ctx, s.kind, id)
	if err != nil {
		return Record{}, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

// Upsert creates or updates a record. Returns the stored record and true if created.
// Downloads and likes may only grow; use Correct to lower them.
func (s *CatalogService) Upsert(ctx context.Context, rec Record) (Record, bool, error) {
	return s.upsert(ctx, rec, false)
}

// Correct is Upsert that also accepts lower popularity metrics.
func (s *CatalogService) Correct(ctx context.Context, rec Record) (Record, bool, error) {
	return s.upsert(ctx, rec, true)
}

func (s *CatalogService) upsert(ctx context.Context, rec Record, correction bool) (_ Record, _ bool, err error) {
	track := s.obs.begin("catalog.upsert", s.kind)
	defer func() { track.end(err) }()

	rec.Kind = s.kind
	stored, created, err := s.ingest.UpsertRecord(ctx, rec, correction)
	if err != nil {
		return Record{}, false, fmt.Errorf("upsert: %w", err)
	}
	return stored, created, nil
}

// Delete removes a record by ID.
func (s *CatalogService) Delete(ctx context.Context, id string) (err error) {
	track := s.obs.begin("catalog.delete", s.kind)
	defer func() { track.end(err) }()

	if err = s.ingest.DeleteRecord(ctx, s.kind, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}
