package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	domana "github.com/kailas-cloud/catalogd/internal/domain/analytics"
	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
)

// --- Mocks ---

type fakeRepo struct {
	events  []event.Event
	records map[domcat.Kind][]domcat.Record
	actors  map[string]actor.Actor
	err     error
}

func (f *fakeRepo) ListEvents(_ context.Context, q event.Query) ([]event.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []event.Event
	for i := range f.events {
		if q.Matches(&f.events[i]) {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) ListCatalog(_ context.Context, kind domcat.Kind) ([]domcat.Record, error) {
	return f.records[kind], nil
}

func (f *fakeRepo) ResolveActors(_ context.Context, ids []string) (map[string]actor.Actor, error) {
	out := make(map[string]actor.Actor)
	for _, id := range ids {
		if a, ok := f.actors[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

var now = time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC)

func newTestService(repo *fakeRepo) *Service {
	return New(repo).WithClock(func() time.Time { return now })
}

func purchase(id, target, actorID string, amount string, st event.Status, at time.Time) event.Event {
	return event.Event{
		ID: id, Type: event.TypePurchase, TargetID: target, ActorID: actorID,
		Amount: decimal.RequireFromString(amount), Status: st, Timestamp: at,
	}
}

func marketplace() *fakeRepo {
	return &fakeRepo{
		records: map[domcat.Kind][]domcat.Record{
			domcat.KindModel: {
				{ID: "m1", Kind: domcat.KindModel, Name: "Summarizer", OwnerID: "s1"},
				{ID: "m2", Kind: domcat.KindModel, Name: "Other seller's model", OwnerID: "s2"},
			},
		},
		actors: map[string]actor.Actor{
			"u1": {ID: "u1", Name: "Ann", Email: "ann@example.com"},
			"u2": {ID: "u2", Email: "bob@example.com"},
		},
		events: []event.Event{
			purchase("p1", "m1", "u1", "10", event.StatusCompleted, now.Add(-48*time.Hour)),
			purchase("p2", "m1", "u2", "15", event.StatusCompleted, now.Add(-24*time.Hour)),
			purchase("p3", "m1", "u1", "20", event.StatusRefunded, now.Add(-time.Hour)),
			purchase("p4", "m2", "u1", "99", event.StatusCompleted, now.Add(-time.Hour)),
		},
	}
}

// --- Sales ---

func TestSales_RefundsExcludedFromRevenue(t *testing.T) {
	svc := newTestService(marketplace())
	w, err := svc.LastDays(30)
	require.NoError(t, err)

	rep, err := svc.Sales(context.Background(), "s1", w)
	require.NoError(t, err)

	assert.True(t, rep.TotalRevenue.Equal(decimal.NewFromInt(25)), "revenue %s", rep.TotalRevenue)
	assert.Equal(t, 2, rep.CompletedSales)
	assert.Equal(t, 0, rep.PendingSales)
	assert.Equal(t, 1, rep.RefundedSales)
	assert.True(t, rep.AverageSale.Equal(decimal.RequireFromString("12.5")), "average %s", rep.AverageSale)
	assert.Equal(t, 2, rep.UniqueCustomers)

	require.Len(t, rep.Models, 1)
	assert.Equal(t, "Summarizer", rep.Models[0].Label)
	assert.Equal(t, 2, rep.Models[0].Count)

	require.Len(t, rep.RecentSales, 3)
	assert.Equal(t, "p3", rep.RecentSales[0].EventID)
	assert.Equal(t, "Ann", rep.RecentSales[0].CustomerName)
	assert.Equal(t, "bob", rep.RecentSales[1].CustomerName)
}

func TestSales_DeletedModelUsesPlaceholder(t *testing.T) {
	repo := marketplace()
	gone := purchase("p5", "deleted-model", "u1", "7.50", event.StatusCompleted, now.Add(-30*time.Minute))
	gone.SellerID = "s1"
	repo.events = append(repo.events, gone)
	svc := newTestService(repo)

	rep, err := svc.Sales(context.Background(), "s1", Window{})
	require.NoError(t, err)

	require.Len(t, rep.Models, 2)
	labels := []string{rep.Models[0].Label, rep.Models[1].Label}
	assert.Contains(t, labels, domana.UnknownModel)
	assert.True(t, rep.TotalRevenue.Equal(decimal.RequireFromString("32.5")))
	assert.Equal(t, domana.UnknownModel, rep.RecentSales[0].ModelName)
}

func TestSales_RecentSalesCapped(t *testing.T) {
	svc := newTestService(marketplace()).WithRecentSales(1)
	rep, err := svc.Sales(context.Background(), "s1", Window{})
	require.NoError(t, err)
	assert.Len(t, rep.RecentSales, 1)
}

func TestSales_StoreError(t *testing.T) {
	repo := marketplace()
	repo.err = domain.NewUpstreamError("scan", errors.New("i/o timeout"))
	svc := newTestService(repo)

	_, err := svc.Sales(context.Background(), "s1", Window{})
	assert.ErrorIs(t, err, domain.ErrUpstreamStore)
}

// --- Customers ---

func TestCustomers_ByActor(t *testing.T) {
	svc := newTestService(marketplace())
	rep, err := svc.Customers(context.Background(), "s1", Window{})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.CustomerCount)
	assert.True(t, rep.TotalRevenue.Equal(decimal.NewFromInt(25)))
	assert.True(t, rep.AverageSpend.Equal(decimal.RequireFromString("12.5")))

	require.Len(t, rep.Customers, 2)
	assert.Equal(t, "u2", rep.Customers[0].Key) // 15 > 10
	assert.Equal(t, "bob@example.com", rep.Customers[0].Email)
}

func TestCustomer_UnknownWithoutPurchasesNotFound(t *testing.T) {
	svc := newTestService(marketplace())
	_, err := svc.Customer(context.Background(), "s1", "ghost", Window{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCustomer_UnknownWithPurchasesUsesPlaceholder(t *testing.T) {
	repo := marketplace()
	repo.events = append(repo.events,
		purchase("p9", "m1", "deleted-user", "5", event.StatusCompleted, now.Add(-time.Hour)))
	svc := newTestService(repo)

	d, err := svc.Customer(context.Background(), "s1", "deleted-user", Window{})
	require.NoError(t, err)
	assert.False(t, d.Known)
	assert.Equal(t, domana.UnknownCustomer, d.Name)
	assert.Equal(t, 1, d.PurchaseCount)
}

func TestCustomer_KnownWithoutPurchases(t *testing.T) {
	svc := newTestService(marketplace())
	d, err := svc.Customer(context.Background(), "s2", "u2", Window{})
	require.NoError(t, err)
	assert.True(t, d.Known)
	assert.Equal(t, "bob", d.Name)
	assert.Empty(t, d.Purchases)
	assert.True(t, d.TotalSpent.IsZero())
}

func TestCustomer_History(t *testing.T) {
	svc := newTestService(marketplace())
	d, err := svc.Customer(context.Background(), "s1", "u1", Window{})
	require.NoError(t, err)

	// the refunded purchase is listed but not spent
	assert.Len(t, d.Purchases, 2)
	assert.Equal(t, 1, d.PurchaseCount)
	assert.True(t, d.TotalSpent.Equal(decimal.NewFromInt(10)))
	assert.True(t, d.FirstPurchase.Before(d.LastPurchase))
}

// --- Revenue ---

func TestRevenue_EmptyWindowIsGapFree(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	series, err := svc.Revenue(context.Background(), "s1", 30)
	require.NoError(t, err)

	require.Len(t, series.Series, 30)
	for _, row := range series.Series {
		assert.True(t, row.Sum.IsZero(), "day %s", row.Key)
		assert.Zero(t, row.Count)
	}
	assert.Equal(t, "2026-03-02", series.Series[0].Key)
	assert.Equal(t, "2026-03-31", series.Series[29].Key)
	assert.True(t, series.Total.IsZero())
}

func TestRevenue_BucketsByDay(t *testing.T) {
	svc := newTestService(marketplace())
	series, err := svc.Revenue(context.Background(), "s1", 7)
	require.NoError(t, err)

	require.Len(t, series.Series, 7)
	assert.True(t, series.Series[4].Sum.Equal(decimal.NewFromInt(10)), "2026-03-29")
	assert.True(t, series.Series[5].Sum.Equal(decimal.NewFromInt(15)), "2026-03-30")
	assert.True(t, series.Series[6].Sum.IsZero(), "refund on 2026-03-31 excluded")
	assert.True(t, series.Total.Equal(decimal.NewFromInt(25)))
}

func TestRevenue_TimezoneShiftsDays(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	repo := &fakeRepo{events: []event.Event{
		// 2026-03-30 20:00 UTC is already 2026-03-31 in Tokyo
		purchase("p1", "m1", "u1", "5", event.StatusCompleted, time.Date(2026, 3, 30, 20, 0, 0, 0, time.UTC)),
	}}
	svc := newTestService(repo).WithLocation(tokyo)

	series, err := svc.Revenue(context.Background(), "", 2)
	require.NoError(t, err)
	assert.Equal(t, "2026-04-01", series.Series[1].Key)
	assert.True(t, series.Series[0].Sum.Equal(decimal.NewFromInt(5)))
}

func TestRevenue_DaysValidated(t *testing.T) {
	svc := newTestService(&fakeRepo{}).WithWindow(30, 90)
	_, err := svc.Revenue(context.Background(), "s1", 91)
	assert.ErrorIs(t, err, domain.ErrValidation)

	series, err := svc.Revenue(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, series.Days)
}

// --- Analyze ---

func TestAnalyze_ConservesTotals(t *testing.T) {
	svc := newTestService(marketplace())
	ctx := context.Background()

	byRecord, err := svc.Analyze(ctx, domana.Spec{GroupBy: domana.ByRecord})
	require.NoError(t, err)
	byDay, err := svc.Analyze(ctx, domana.Spec{GroupBy: domana.ByDay})
	require.NoError(t, err)

	n1, s1 := domana.Totals(byRecord)
	n2, s2 := domana.Totals(byDay)
	assert.Equal(t, 3, n1)
	assert.Equal(t, n1, n2)
	assert.True(t, s1.Equal(s2))
	assert.True(t, s1.Equal(decimal.NewFromInt(124)))
}

func TestAnalyze_InvalidSpec(t *testing.T) {
	svc := newTestService(marketplace())
	_, err := svc.Analyze(context.Background(), domana.Spec{GroupBy: "week"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
