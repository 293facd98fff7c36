package event

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/catalogd/internal/domain"
)

// Type is the kind of user action an event records.
type Type string

// Event types.
const (
	TypeView     Type = "view"
	TypeDownload Type = "download"
	TypePurchase Type = "purchase"
	TypeRating   Type = "rating"
)

// IsValid checks if the event type is supported.
func (t Type) IsValid() bool {
	return t == TypeView || t == TypeDownload || t == TypePurchase || t == TypeRating
}

// Status is the lifecycle state of a purchase.
type Status string

// Purchase statuses. Completed and refunded are terminal.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
)

// IsValid checks if the status is supported.
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusRefunded
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRefunded
}

// CanTransition reports whether a purchase may move from s to next.
// Only pending -> completed and pending -> refunded are allowed.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && (next == StatusCompleted || next == StatusRefunded)
}

// Rating score bounds.
const (
	MinScore = 1
	MaxScore = 5
)

// Event is a timestamped user action against a catalog record.
// Amount and Status are set for purchases, Score for ratings.
type Event struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	TargetID  string          `json:"target_id"`
	ActorID   string          `json:"actor_id"`
	SellerID  string          `json:"seller_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Amount    decimal.Decimal `json:"amount,omitzero"`
	Status    Status          `json:"status,omitempty"`
	Score     int             `json:"score,omitempty"`
}

// Validate checks the common attributes and the type-specific payload.
func (e *Event) Validate() error {
	if !e.Type.IsValid() {
		return domain.NewValidationError("type", "unknown event type %q", e.Type)
	}
	if e.TargetID == "" {
		return domain.NewValidationError("target_id", "is required")
	}
	if e.ActorID == "" {
		return domain.NewValidationError("actor_id", "is required")
	}
	switch e.Type {
	case TypePurchase:
		if e.Amount.IsNegative() {
			return domain.NewValidationError("amount", "must not be negative")
		}
		if !e.Amount.Equal(e.Amount.Round(2)) {
			return domain.NewValidationError("amount", "must have at most 2 decimal places")
		}
		if !e.Status.IsValid() {
			return domain.NewValidationError("status", "unknown purchase status %q", e.Status)
		}
	case TypeRating:
		if e.Score < MinScore || e.Score > MaxScore {
			return domain.NewValidationError("score", "must be between %d and %d", MinScore, MaxScore)
		}
	default:
		if e.Status != "" {
			return domain.NewValidationError("status", "only purchases carry a status")
		}
	}
	return nil
}

// Transition moves a purchase to next, enforcing forward-only status changes.
func (e *Event) Transition(next Status) error {
	if e.Type != TypePurchase {
		return fmt.Errorf("%w: event %s is a %s, not a purchase", domain.ErrInvalidTransition, e.ID, e.Type)
	}
	if !next.IsValid() {
		return domain.NewValidationError("status", "unknown purchase status %q", next)
	}
	if !e.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, e.Status, next)
	}
	e.Status = next
	return nil
}

// Measure returns the value an event contributes to an aggregate sum:
// the amount for purchases, the score for ratings and one for views and downloads.
func (e *Event) Measure() decimal.Decimal {
	switch e.Type {
	case TypePurchase:
		return e.Amount
	case TypeRating:
		return decimal.NewFromInt(int64(e.Score))
	default:
		return decimal.NewFromInt(1)
	}
}

// Query selects events from the record store. Zero values mean "no constraint".
type Query struct {
	Types    []Type
	Statuses []Status
	ActorID  string
	Since    time.Time // inclusive
	Until    time.Time // exclusive
}

// Matches reports whether e satisfies the query.
func (q *Query) Matches(e *Event) bool {
	if len(q.Types) > 0 && !contains(q.Types, e.Type) {
		return false
	}
	if len(q.Statuses) > 0 && e.Type == TypePurchase && !contains(q.Statuses, e.Status) {
		return false
	}
	if q.ActorID != "" && e.ActorID != q.ActorID {
		return false
	}
	if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !e.Timestamp.Before(q.Until) {
		return false
	}
	return true
}

func contains[T comparable](xs []T, v T) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
