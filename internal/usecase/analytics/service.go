package analytics

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	domana "github.com/kailas-cloud/catalogd/internal/domain/analytics"
	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
	"github.com/kailas-cloud/catalogd/internal/logger"
	"github.com/kailas-cloud/catalogd/internal/metrics"
)

// Report defaults.
const (
	DefaultWindowDays  = 30
	DefaultMaxDays     = 366
	DefaultRecentSales = 10
)

// Service builds seller-facing reports from purchase, view, download and
// rating events.
type Service struct {
	repo        Repository
	loc         *time.Location
	windowDays  int
	maxDays     int
	recentSales int
	now         func() time.Time
}

// New creates an analytics service reporting in UTC.
func New(repo Repository) *Service {
	return &Service{
		repo:        repo,
		loc:         time.UTC,
		windowDays:  DefaultWindowDays,
		maxDays:     DefaultMaxDays,
		recentSales: DefaultRecentSales,
		now:         time.Now,
	}
}

// WithLocation sets the time zone calendar days are cut in.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// WithWindow sets the default and maximum report window in days.
func (s *Service) WithWindow(defaultDays, maxDays int) *Service {
	if defaultDays > 0 {
		s.windowDays = defaultDays
	}
	if maxDays > 0 {
		s.maxDays = maxDays
	}
	return s
}

// WithRecentSales sets how many recent purchases the sales report lists.
func (s *Service) WithRecentSales(n int) *Service {
	if n >= 0 {
		s.recentSales = n
	}
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Location returns the reporting time zone.
func (s *Service) Location() *time.Location { return s.loc }

// LastDays returns the window covering the last days calendar days,
// today included. Zero selects the default window.
func (s *Service) LastDays(days int) (Window, error) {
	days, err := s.days(days)
	if err != nil {
		return Window{}, err
	}
	from := s.firstDay(days)
	return Window{Since: from, Until: from.AddDate(0, 0, days)}, nil
}

// Analyze runs a generic aggregation.
func (s *Service) Analyze(ctx context.Context, spec domana.Spec) ([]domana.Row, error) {
	defer observe("query", time.Now())

	if spec.Location == nil {
		spec.Location = s.loc
	}
	spec, err := spec.Normalize()
	if err != nil {
		return nil, err
	}

	ds, err := s.load(ctx, spec.Query(), spec.GroupBy == domana.ByActor)
	if err != nil {
		return nil, err
	}
	rows, stats := domana.Aggregate(ds.events, ds.lookup, spec)
	recordJoins(ctx, "query", stats)
	return rows, nil
}

// Sales summarizes a seller's purchases by model over w.
func (s *Service) Sales(ctx context.Context, sellerID string, w Window) (SalesReport, error) {
	defer observe("sales", time.Now())

	spec, err := s.spec(domana.ByRecord, sellerID, w)
	if err != nil {
		return SalesReport{}, err
	}
	ds, err := s.load(ctx, allPurchases(w), true)
	if err != nil {
		return SalesReport{}, err
	}

	rows, stats := domana.Aggregate(ds.events, ds.lookup, spec)
	recordJoins(ctx, "sales", stats)
	count, revenue := domana.Totals(rows)
	breakdown := domana.StatusBreakdown(ds.events, ds.lookup, spec)

	customers := make(map[string]struct{})
	for _, e := range domana.Select(ds.events, ds.lookup, spec) {
		customers[e.ActorID] = struct{}{}
	}

	recentSpec := spec
	recentSpec.Statuses = []event.Status{event.StatusPending, event.StatusCompleted, event.StatusRefunded}
	recent := recentFirst(domana.Select(ds.events, ds.lookup, recentSpec))
	recent = recent[:min(len(recent), s.recentSales)]

	return SalesReport{
		SellerID:        sellerID,
		Window:          w,
		Models:          rows,
		TotalRevenue:    revenue,
		CompletedSales:  breakdown[event.StatusCompleted],
		PendingSales:    breakdown[event.StatusPending],
		RefundedSales:   breakdown[event.StatusRefunded],
		AverageSale:     domana.Average(revenue, count),
		UniqueCustomers: len(customers),
		RecentSales:     sales(recent, ds.lookup),
	}, nil
}

// Customers summarizes a seller's completed purchases by customer over w.
func (s *Service) Customers(ctx context.Context, sellerID string, w Window) (CustomerReport, error) {
	defer observe("customers", time.Now())

	spec, err := s.spec(domana.ByActor, sellerID, w)
	if err != nil {
		return CustomerReport{}, err
	}
	ds, err := s.load(ctx, spec.Query(), true)
	if err != nil {
		return CustomerReport{}, err
	}

	rows, stats := domana.Aggregate(ds.events, ds.lookup, spec)
	recordJoins(ctx, "customers", stats)
	_, revenue := domana.Totals(rows)

	return CustomerReport{
		SellerID:      sellerID,
		Window:        w,
		Customers:     rows,
		CustomerCount: len(rows),
		TotalRevenue:  revenue,
		AverageSpend:  domana.Average(revenue, len(rows)),
	}, nil
}

// Customer returns one customer's purchases from a seller over w.
// A customer with no profile and no purchases is not found.
func (s *Service) Customer(ctx context.Context, sellerID, actorID string, w Window) (CustomerDetail, error) {
	defer observe("customer", time.Now())

	if strings.TrimSpace(actorID) == "" {
		return CustomerDetail{}, domain.NewValidationError("actor_id", "is required")
	}
	spec, err := s.spec(domana.ByRecord, sellerID, w)
	if err != nil {
		return CustomerDetail{}, err
	}
	q := allPurchases(w)
	q.ActorID = actorID
	ds, err := s.load(ctx, q, true, actorID)
	if err != nil {
		return CustomerDetail{}, err
	}

	allSpec := spec
	allSpec.Statuses = []event.Status{event.StatusPending, event.StatusCompleted, event.StatusRefunded}
	purchases := recentFirst(domana.Select(ds.events, ds.lookup, allSpec))

	a, known := ds.lookup.Actor(actorID)
	if !known && len(purchases) == 0 {
		return CustomerDetail{}, fmt.Errorf("customer %s: %w", actorID, domain.ErrNotFound)
	}

	rows, stats := domana.Aggregate(ds.events, ds.lookup, spec)
	recordJoins(ctx, "customer", stats)
	count, spent := domana.Totals(rows)

	d := CustomerDetail{
		CustomerID:    actorID,
		Name:          domana.UnknownCustomer,
		Known:         known,
		Purchases:     sales(purchases, ds.lookup),
		Models:        rows,
		TotalSpent:    spent,
		PurchaseCount: count,
		AverageSpend:  domana.Average(spent, count),
	}
	if known {
		d.Name, d.Email = a.DisplayName(), a.Email
	}
	if n := len(purchases); n > 0 {
		d.LastPurchase = purchases[0].Timestamp
		d.FirstPurchase = purchases[n-1].Timestamp
	}
	return d, nil
}

// Revenue returns completed-purchase revenue per day for the last days
// calendar days, today included. Every day is present.
func (s *Service) Revenue(ctx context.Context, sellerID string, days int) (RevenueSeries, error) {
	defer observe("revenue", time.Now())

	days, err := s.days(days)
	if err != nil {
		return RevenueSeries{}, err
	}
	from := s.firstDay(days)
	w := Window{Since: from, Until: from.AddDate(0, 0, days)}

	spec, err := s.spec(domana.ByDay, sellerID, w)
	if err != nil {
		return RevenueSeries{}, err
	}
	ds, err := s.load(ctx, spec.Query(), false)
	if err != nil {
		return RevenueSeries{}, err
	}

	series, stats := domana.DailySeries(ds.events, ds.lookup, spec, from, days)
	recordJoins(ctx, "revenue", stats)
	count, total := domana.Totals(series)

	return RevenueSeries{
		SellerID: sellerID,
		Days:     days,
		Timezone: s.loc.String(),
		Series:   series,
		Total:    total,
		Count:    count,
	}, nil
}

func (s *Service) days(days int) (int, error) {
	if days == 0 {
		return s.windowDays, nil
	}
	if days < 0 || days > s.maxDays {
		return 0, domain.NewValidationError("days", "must be between 1 and %d", s.maxDays)
	}
	return days, nil
}

// firstDay is midnight of the first day of a window ending today.
func (s *Service) firstDay(days int) time.Time {
	return domana.DayStart(s.now(), s.loc).AddDate(0, 0, -(days - 1))
}

func (s *Service) spec(by domana.GroupBy, sellerID string, w Window) (domana.Spec, error) {
	return domana.Spec{
		GroupBy:  by,
		Types:    []event.Type{event.TypePurchase},
		Statuses: []event.Status{event.StatusCompleted},
		Since:    w.Since,
		Until:    w.Until,
		SellerID: sellerID,
		Location: s.loc,
	}.Normalize()
}

// dataset is everything one report reads from the store.
type dataset struct {
	events []event.Event
	lookup *domana.Lookup
}

// load reads events and the whole catalog concurrently, then resolves the
// actors referenced by the events, plus extraActors, in one batch.
func (s *Service) load(
	ctx context.Context, q event.Query, withActors bool, extraActors ...string,
) (dataset, error) {
	var events []event.Event
	perKind := make([][]domcat.Record, len(domcat.Kinds))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.repo.ListEvents(gctx, q)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		return nil
	})
	for i, kind := range domcat.Kinds {
		i, kind := i, kind
		g.Go(func() error {
			records, err := s.repo.ListCatalog(gctx, kind)
			if err != nil {
				return fmt.Errorf("list %s: %w", kind, err)
			}
			perKind[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.FromContext(ctx).Error("analytics load failed", zap.Error(err))
		return dataset{}, err
	}

	lk := &domana.Lookup{Records: make(map[string]domcat.Record), Actors: map[string]actor.Actor{}}
	for _, records := range perKind {
		for _, r := range records {
			lk.Records[r.ID] = r
		}
	}

	if withActors && len(events)+len(extraActors) > 0 {
		ids := make([]string, 0, len(events)+len(extraActors))
		for _, e := range events {
			ids = append(ids, e.ActorID)
		}
		ids = append(ids, extraActors...)
		slices.Sort(ids)
		actors, err := s.repo.ResolveActors(ctx, slices.Compact(ids))
		if err != nil {
			return dataset{}, fmt.Errorf("resolve actors: %w", err)
		}
		lk.Actors = actors
	}

	return dataset{events: events, lookup: lk}, nil
}

// allPurchases selects purchases of every status within w.
func allPurchases(w Window) event.Query {
	return event.Query{Types: []event.Type{event.TypePurchase}, Since: w.Since, Until: w.Until}
}

func recentFirst(events []event.Event) []event.Event {
	slices.SortStableFunc(events, func(a, b event.Event) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return events
}

func sales(events []event.Event, lk *domana.Lookup) []Sale {
	out := make([]Sale, len(events))
	for i, e := range events {
		sale := Sale{
			EventID:      e.ID,
			ModelID:      e.TargetID,
			ModelName:    domana.UnknownModel,
			CustomerID:   e.ActorID,
			CustomerName: domana.UnknownCustomer,
			Amount:       e.Amount,
			Status:       e.Status,
			Timestamp:    e.Timestamp,
		}
		if r, ok := lk.Record(e.TargetID); ok {
			sale.ModelName = r.Name
		}
		if a, ok := lk.Actor(e.ActorID); ok {
			sale.CustomerName = a.DisplayName()
		}
		out[i] = sale
	}
	return out
}

func observe(report string, start time.Time) {
	metrics.AnalyticsReportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}

// recordJoins counts placeholder joins; they are logged, never fatal.
func recordJoins(ctx context.Context, report string, st domana.Stats) {
	if st.MissingRecords == 0 && st.MissingActors == 0 {
		return
	}
	metrics.JoinPlaceholdersTotal.WithLabelValues("record").Add(float64(st.MissingRecords))
	metrics.JoinPlaceholdersTotal.WithLabelValues("actor").Add(float64(st.MissingActors))
	logger.FromContext(ctx).Warn("aggregation used placeholders",
		zap.String("report", report),
		zap.Int("events", st.Events),
		zap.Int("missing_records", st.MissingRecords),
		zap.Int("missing_actors", st.MissingActors),
	)
}
