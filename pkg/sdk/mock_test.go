package catalogd

import (
	"context"

	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	domana "github.com/kailas-cloud/catalogd/internal/domain/analytics"
	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
	"github.com/kailas-cloud/catalogd/internal/domain/search/request"
	"github.com/kailas-cloud/catalogd/internal/domain/search/result"
	analyticsuc "github.com/kailas-cloud/catalogd/internal/usecase/analytics"
	healthuc "github.com/kailas-cloud/catalogd/internal/usecase/health"
)

// --- catalogUseCase mock ---

type mockCatalogUC struct {
	searchFn func(ctx context.Context, kind catalog.Kind, req request.Request) (result.Page, error)
	facetsFn func(ctx context.Context, kind catalog.Kind) (facet.Index, error)
	getFn    func(ctx context.Context, kind catalog.Kind, id string) (catalog.Record, error)
}

func (m *mockCatalogUC) Search(ctx context.Context, kind catalog.Kind, req request.Request) (result.Page, error) {
	return m.searchFn(ctx, kind, req)
}

func (m *mockCatalogUC) Facets(ctx context.Context, kind catalog.Kind) (facet.Index, error) {
	return m.facetsFn(ctx, kind)
}

func (m *mockCatalogUC) Get(ctx context.Context, kind catalog.Kind, id string) (catalog.Record, error) {
	return m.getFn(ctx, kind, id)
}

// --- ingestUseCase mock ---

type mockIngestUC struct {
	upsertRecordFn func(ctx context.Context, rec catalog.Record, correction bool) (catalog.Record, bool, error)
	deleteRecordFn func(ctx context.Context, kind catalog.Kind, id string) error
	upsertActorFn  func(ctx context.Context, a actor.Actor) error
	recordEventFn  func(ctx context.Context, e event.Event) (event.Event, error)
	transitionFn   func(ctx context.Context, id string, to event.Status) (event.Event, error)
}

func (m *mockIngestUC) UpsertRecord(
	ctx context.Context, rec catalog.Record, correction bool,
) (catalog.Record, bool, error) {
	return m.upsertRecordFn(ctx, rec, correction)
}

func (m *mockIngestUC) DeleteRecord(ctx context.Context, kind catalog.Kind, id string) error {
	return m.deleteRecordFn(ctx, kind, id)
}

func (m *mockIngestUC) UpsertActor(ctx context.Context, a actor.Actor) error {
	return m.upsertActorFn(ctx, a)
}

func (m *mockIngestUC) RecordEvent(ctx context.Context, e event.Event) (event.Event, error) {
	return m.recordEventFn(ctx, e)
}

func (m *mockIngestUC) TransitionPurchase(ctx context.Context, id string, to event.Status) (event.Event, error) {
	return m.transitionFn(ctx, id, to)
}

// --- analyticsUseCase mock ---

type mockAnalyticsUC struct {
	lastDaysFn  func(days int) (analyticsuc.Window, error)
	analyzeFn   func(ctx context.Context, spec domana.Spec) ([]domana.Row, error)
	salesFn     func(ctx context.Context, sellerID string, w analyticsuc.Window) (analyticsuc.SalesReport, error)
	customersFn func(ctx context.Context, sellerID string, w analyticsuc.Window) (analyticsuc.CustomerReport, error)
	customerFn  func(
		ctx context.Context, sellerID, actorID string, w analyticsuc.Window,
	) (analyticsuc.CustomerDetail, error)
	revenueFn func(ctx context.Context, sellerID string, days int) (analyticsuc.RevenueSeries, error)
}

func (m *mockAnalyticsUC) LastDays(days int) (analyticsuc.Window, error) {
	if m.lastDaysFn == nil {
		return analyticsuc.Window{}, nil
	}
	return m.lastDaysFn(days)
}

func (m *mockAnalyticsUC) Analyze(ctx context.Context, spec domana.Spec) ([]domana.Row, error) {
	return m.analyzeFn(ctx, spec)
}

func (m *mockAnalyticsUC) Sales(
	ctx context.Context, sellerID string, w analyticsuc.Window,
) (analyticsuc.SalesReport, error) {
	return m.salesFn(ctx, sellerID, w)
}

func (m *mockAnalyticsUC) Customers(
	ctx context.Context, sellerID string, w analyticsuc.Window,
) (analyticsuc.CustomerReport, error) {
	return m.customersFn(ctx, sellerID, w)
}

func (m *mockAnalyticsUC) Customer(
	ctx context.Context, sellerID, actorID string, w analyticsuc.Window,
) (analyticsuc.CustomerDetail, error) {
	return m.customerFn(ctx, sellerID, actorID, w)
}

func (m *mockAnalyticsUC) Revenue(ctx context.Context, sellerID string, days int) (analyticsuc.RevenueSeries, error) {
	return m.revenueFn(ctx, sellerID, days)
}

// --- healthUseCase and store mocks ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }
