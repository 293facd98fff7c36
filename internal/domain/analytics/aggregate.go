package analytics

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
)

// Lookup holds the join targets of an aggregation run, keyed by ID.
type Lookup struct {
	Records map[string]catalog.Record
	Actors  map[string]actor.Actor
}

// Record resolves a catalog record.
func (lk *Lookup) Record(id string) (catalog.Record, bool) {
	r, ok := lk.Records[id]
	return r, ok
}

// Actor resolves an actor.
func (lk *Lookup) Actor(id string) (actor.Actor, bool) {
	a, ok := lk.Actors[id]
	return a, ok
}

// Row is one group of an aggregation.
type Row struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Email   string          `json:"email,omitempty"`
	Count   int             `json:"count"`
	Sum     decimal.Decimal `json:"sum"`
	Average decimal.Decimal `json:"average"`
	Last    time.Time       `json:"last,omitzero"`
}

// Stats reports joins that fell back to placeholders.
type Stats struct {
	Events         int
	MissingRecords int
	MissingActors  int
}

// SellerOf returns the seller an event is attributed to: the seller stamped
// on the event, else the owner of its target record.
func SellerOf(e *event.Event, lk *Lookup) string {
	if e.SellerID != "" {
		return e.SellerID
	}
	if r, ok := lk.Record(e.TargetID); ok {
		return r.OwnerID
	}
	return ""
}

// Select returns the events spec aggregates over, in input order.
// spec must be normalized.
func Select(events []event.Event, lk *Lookup, spec Spec) []event.Event {
	q := spec.Query()
	out := make([]event.Event, 0, len(events))
	for i := range events {
		e := &events[i]
		if !q.Matches(e) {
			continue
		}
		if spec.SellerID != "" && SellerOf(e, lk) != spec.SellerID {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// Aggregate groups the selected events by spec.GroupBy and folds count, sum,
// average and the most recent timestamp per group. Missing records and
// actors never abort the run; their groups carry placeholder labels.
//
// Rows are ordered by sum desc, count desc, key asc; day groups chronologically.
// spec must be normalized.
func Aggregate(events []event.Event, lk *Lookup, spec Spec) ([]Row, Stats) {
	selected := Select(events, lk, spec)
	groups := make(map[string]*Row)
	stats := Stats{Events: len(selected)}
	missingRecords := make(map[string]struct{})
	missingActors := make(map[string]struct{})

	for i := range selected {
		e := &selected[i]
		key, label, email := groupKey(e, lk, spec, missingRecords, missingActors)
		row, ok := groups[key]
		if !ok {
			row = &Row{Key: key, Label: label, Email: email}
			groups[key] = row
		}
		fold(row, e)
	}
	stats.MissingRecords = len(missingRecords)
	stats.MissingActors = len(missingActors)

	rows := make([]Row, 0, len(groups))
	for _, r := range groups {
		rows = append(rows, finish(*r))
	}
	sortRows(rows, spec.GroupBy)
	return rows, stats
}

// DailySeries aggregates spec's events into one row per calendar day in
// [from, from+days). Every day is present, zero-valued when nothing happened.
// spec must be normalized; its GroupBy and window are overridden.
func DailySeries(events []event.Event, lk *Lookup, spec Spec, from time.Time, days int) ([]Row, Stats) {
	if days <= 0 {
		return []Row{}, Stats{}
	}
	start := DayStart(from, spec.Location)
	spec.GroupBy = ByDay
	spec.Since = start
	spec.Until = start.AddDate(0, 0, days)

	series := make([]Row, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format(DayLayout)
		series[i] = Row{Key: key, Label: key, Sum: decimal.Zero, Average: decimal.Zero}
		index[key] = i
	}

	rows, stats := Aggregate(events, lk, spec)
	for _, r := range rows {
		if i, ok := index[r.Key]; ok {
			series[i] = r
		}
	}
	return series, stats
}

// StatusBreakdown counts purchases per status, ignoring spec.Statuses.
// spec must be normalized.
func StatusBreakdown(events []event.Event, lk *Lookup, spec Spec) map[event.Status]int {
	spec.Types = []event.Type{event.TypePurchase}
	spec.Statuses = nil
	out := map[event.Status]int{
		event.StatusPending:   0,
		event.StatusCompleted: 0,
		event.StatusRefunded:  0,
	}
	for _, e := range Select(events, lk, spec) {
		out[e.Status]++
	}
	return out
}

// Totals sums count and amount across rows.
func Totals(rows []Row) (int, decimal.Decimal) {
	count := 0
	sum := decimal.Zero
	for _, r := range rows {
		count += r.Count
		sum = sum.Add(r.Sum)
	}
	return count, sum
}

// Average divides sum by n rounded to cents; zero when n is zero.
func Average(sum decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2)
}

func groupKey(
	e *event.Event, lk *Lookup, spec Spec,
	missingRecords, missingActors map[string]struct{},
) (key, label, email string) {
	switch spec.GroupBy {
	case ByActor:
		a, ok := lk.Actor(e.ActorID)
		if !ok {
			missingActors[e.ActorID] = struct{}{}
			return e.ActorID, UnknownCustomer, ""
		}
		return e.ActorID, a.DisplayName(), a.Email
	case ByDay:
		day := e.Timestamp.In(spec.Location).Format(DayLayout)
		return day, day, ""
	default:
		r, ok := lk.Record(e.TargetID)
		if !ok {
			missingRecords[e.TargetID] = struct{}{}
			return e.TargetID, UnknownModel, ""
		}
		return e.TargetID, r.Name, ""
	}
}

func fold(row *Row, e *event.Event) {
	row.Count++
	row.Sum = row.Sum.Add(e.Measure())
	if e.Timestamp.After(row.Last) {
		row.Last = e.Timestamp
	}
}

func finish(r Row) Row {
	r.Average = Average(r.Sum, r.Count)
	return r
}

func sortRows(rows []Row, by GroupBy) {
	if by == ByDay {
		slices.SortFunc(rows, func(a, b Row) int { return strings.Compare(a.Key, b.Key) })
		return
	}
	slices.SortFunc(rows, func(a, b Row) int {
		if c := b.Sum.Cmp(a.Sum); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
}
