// Package analytics rolls event records up into grouped summaries:
// per catalog record, per customer or per calendar day.
package analytics

import (
	"slices"
	"time"

	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
)

// Placeholder labels for joins whose target no longer exists.
const (
	UnknownCustomer = "Unknown Customer"
	UnknownModel    = "Unknown Model"
)

// DayLayout is the key format of day groups.
const DayLayout = "2006-01-02"

// GroupBy is the grouping key of an aggregation.
type GroupBy string

// Grouping keys.
const (
	ByRecord GroupBy = "record"
	ByActor  GroupBy = "actor"
	ByDay    GroupBy = "day"
)

// IsValid checks if the grouping key is supported.
func (g GroupBy) IsValid() bool {
	return g == ByRecord || g == ByActor || g == ByDay
}

// Spec describes one aggregation run. Zero values mean "no constraint",
// except Types (default: purchases) and Statuses (default: completed
// purchases when purchases are aggregated).
type Spec struct {
	GroupBy  GroupBy
	Types    []event.Type
	Statuses []event.Status
	Since    time.Time // inclusive
	Until    time.Time // exclusive
	SellerID string
	Location *time.Location
}

// Normalize validates s and fills in defaults.
func (s Spec) Normalize() (Spec, error) {
	if s.GroupBy == "" {
		s.GroupBy = ByRecord
	}
	if !s.GroupBy.IsValid() {
		return Spec{}, domain.NewValidationError("group_by", "unknown grouping %q", s.GroupBy)
	}
	if len(s.Types) == 0 {
		s.Types = []event.Type{event.TypePurchase}
	}
	for _, t := range s.Types {
		if !t.IsValid() {
			return Spec{}, domain.NewValidationError("types", "unknown event type %q", t)
		}
	}
	for _, st := range s.Statuses {
		if !st.IsValid() {
			return Spec{}, domain.NewValidationError("statuses", "unknown purchase status %q", st)
		}
	}
	if len(s.Statuses) == 0 && slices.Contains(s.Types, event.TypePurchase) {
		s.Statuses = []event.Status{event.StatusCompleted}
	}
	if !s.Since.IsZero() && !s.Until.IsZero() && !s.Since.Before(s.Until) {
		return Spec{}, domain.NewValidationError("since", "must be before until")
	}
	if s.Location == nil {
		s.Location = time.UTC
	}
	return s, nil
}

// Query returns the store-level event query implied by s.
func (s Spec) Query() event.Query {
	return event.Query{Types: s.Types, Statuses: s.Statuses, Since: s.Since, Until: s.Until}
}

// DayStart truncates t to midnight in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
