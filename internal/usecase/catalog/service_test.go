package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/catalogd/internal/domain"
	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
	"github.com/kailas-cloud/catalogd/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogd/internal/domain/search/order"
	"github.com/kailas-cloud/catalogd/internal/domain/search/request"
)

// --- Mocks ---

type mockRepo struct {
	records   map[domcat.Kind][]domcat.Record
	listErr   error
	listCalls int
}

func (m *mockRepo) ListCatalog(_ context.Context, kind domcat.Kind) ([]domcat.Record, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records[kind], nil
}

func (m *mockRepo) GetCatalog(_ context.Context, kind domcat.Kind, id string) (domcat.Record, error) {
	for _, r := range m.records[kind] {
		if r.ID == id {
			return r, nil
		}
	}
	return domcat.Record{}, domain.ErrNotFound
}

func model(id string, downloads int64, tags ...string) domcat.Record {
	return domcat.Record{ID: id, Kind: domcat.KindModel, Name: "Model " + id, Downloads: downloads, Tags: tags}
}

func threeModels() *mockRepo {
	return &mockRepo{records: map[domcat.Kind][]domcat.Record{
		domcat.KindModel: {
			model("m3", 100, "nlp", "vision"),
			model("m2", 100, "vision"),
			model("m1", 100, "nlp"),
		},
	}}
}

func newRequest(t *testing.T, p filter.Params, sort order.Key, offset, limit int) request.Request {
	t.Helper()
	spec, err := filter.New(p)
	require.NoError(t, err)
	req, err := request.New(spec, sort, offset, limit, request.DefaultLimits())
	require.NoError(t, err)
	return req
}

func ids(records []domcat.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

// --- Search ---

func TestSearch_TagFacetTieBrokenByID(t *testing.T) {
	svc := New(threeModels())
	req := newRequest(t, filter.Params{Facets: facet.Selection{facet.Tag: {"nlp"}}}, "", 0, 0)

	page, err := svc.Search(context.Background(), domcat.KindModel, req)
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m3"}, ids(page.Items()))
	assert.Equal(t, 2, page.Total())
	assert.False(t, page.HasMore())
}

func TestSearch_EmptyFilterReturnsAllSorted(t *testing.T) {
	svc := New(threeModels())
	req := newRequest(t, filter.Params{}, order.Popularity, 0, 0)

	page, err := svc.Search(context.Background(), domcat.KindModel, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(page.Items()))
}

func TestSearch_CanonicalisesFacetCase(t *testing.T) {
	svc := New(threeModels())
	req := newRequest(t, filter.Params{Facets: facet.Selection{facet.Tag: {"NLP", "nlp"}}}, "", 0, 0)

	page, err := svc.Search(context.Background(), domcat.KindModel, req)
	require.NoError(t, err)

	applied := page.Applied()
	assert.Equal(t, []string{"nlp"}, applied.Filter().Facets()[facet.Tag])
	assert.Len(t, page.Items(), 2)
}

func TestSearch_UnknownFacetRejected(t *testing.T) {
	svc := New(threeModels())
	req := newRequest(t, filter.Params{Facets: facet.Selection{facet.Tag: {"audio"}}}, "", 0, 0)

	_, err := svc.Search(context.Background(), domcat.KindModel, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrUnknownFacetValue)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "facets.tag", ve.Field)
}

func TestSearch_UnknownFacetIgnoredAndReported(t *testing.T) {
	svc := New(threeModels()).WithFacetPolicy(facet.PolicyIgnore)
	req := newRequest(t, filter.Params{Facets: facet.Selection{facet.Tag: {"audio"}}}, "", 0, 0)

	page, err := svc.Search(context.Background(), domcat.KindModel, req)
	require.NoError(t, err)

	// the only selected value was dropped, so the tag dimension is unconstrained
	assert.Len(t, page.Items(), 3)
	assert.Equal(t, []facet.Unknown{{Dimension: facet.Tag, Value: "audio"}}, page.Ignored())
}

func TestSearch_PaginatesAfterSort(t *testing.T) {
	repo := &mockRepo{records: map[domcat.Kind][]domcat.Record{
		domcat.KindModel: {model("a", 1), model("b", 5), model("c", 3), model("d", 4)},
	}}
	svc := New(repo)
	req := newRequest(t, filter.Params{}, order.Popularity, 1, 2)

	page, err := svc.Search(context.Background(), domcat.KindModel, req)
	require.NoError(t, err)

	assert.Equal(t, []string{"d", "c"}, ids(page.Items()))
	assert.Equal(t, 4, page.Total())
	assert.True(t, page.HasMore())
}

func TestSearch_ThresholdThenSort(t *testing.T) {
	repo := &mockRepo{records: map[domcat.Kind][]domcat.Record{
		domcat.KindModel: {model("a", 10), model("b", 500), model("c", 100)},
	}}
	svc := New(repo)
	minDownloads := int64(100)
	req := newRequest(t, filter.Params{MinDownloads: &minDownloads}, order.Popularity, 0, 0)

	page, err := svc.Search(context.Background(), domcat.KindModel, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(page.Items()))
}

func TestSearch_OffsetBeyondTotal(t *testing.T) {
	svc := New(threeModels())
	req := newRequest(t, filter.Params{}, "", 50, 10)

	page, err := svc.Search(context.Background(), domcat.KindModel, req)
	require.NoError(t, err)
	assert.Empty(t, page.Items())
	assert.NotNil(t, page.Items())
	assert.Equal(t, 3, page.Total())
}

func TestSearch_EmptyCatalog(t *testing.T) {
	svc := New(&mockRepo{})
	req := newRequest(t, filter.Params{Query: "bert"}, "", 0, 0)

	page, err := svc.Search(context.Background(), domcat.KindDataset, req)
	require.NoError(t, err)
	assert.Empty(t, page.Items())
	assert.Zero(t, page.Total())
}

func TestSearch_RepoError(t *testing.T) {
	storeErr := domain.NewUpstreamError("scan", errors.New("connection refused"))
	svc := New(&mockRepo{listErr: storeErr})

	_, err := svc.Search(context.Background(), domcat.KindModel, newRequest(t, filter.Params{}, "", 0, 0))
	assert.ErrorIs(t, err, domain.ErrUpstreamStore)
}

// --- Facets ---

func TestFacets_CachedUntilInvalidated(t *testing.T) {
	repo := threeModels()
	svc := New(repo).WithFacetCache(3, time.Minute)
	ctx := context.Background()

	idx, err := svc.Facets(ctx, domcat.KindModel)
	require.NoError(t, err)
	assert.Equal(t, []facet.Value{{Value: "nlp", Count: 2}, {Value: "vision", Count: 2}}, idx.Values(facet.Tag))

	_, err = svc.Facets(ctx, domcat.KindModel)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	svc.Invalidate(domcat.KindModel)
	_, err = svc.Facets(ctx, domcat.KindModel)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestFacets_NoCacheAlwaysLists(t *testing.T) {
	repo := threeModels()
	svc := New(repo)

	for i := 0; i < 2; i++ {
		_, err := svc.Facets(context.Background(), domcat.KindModel)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, repo.listCalls)
}

// --- Get ---

func TestGet_NotFound(t *testing.T) {
	svc := New(threeModels())
	_, err := svc.Get(context.Background(), domcat.KindModel, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_Found(t *testing.T) {
	svc := New(threeModels())
	r, err := svc.Get(context.Background(), domcat.KindModel, "m2")
	require.NoError(t, err)
	assert.Equal(t, "Model m2", r.Name)
}
