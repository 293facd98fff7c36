package ingest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
	"github.com/kailas-cloud/catalogd/internal/logger"
)

// Service writes catalog records, actors and events.
type Service struct {
	repo        Repository
	invalidator Invalidator
	now         func() time.Time
	newID       func() string
}

// New creates an ingestion service.
func New(repo Repository) *Service {
	return &Service{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// WithInvalidator registers a cache to drop on catalog writes.
func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.invalidator = inv
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// UpsertRecord validates and stores rec. On update the creation time and
// owner are kept, and popularity metrics may only grow unless correction is set.
// Returns the stored record and whether it was created.
func (s *Service) UpsertRecord(ctx context.Context, rec domcat.Record, correction bool) (domcat.Record, bool, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec, err := domcat.New(rec)
	if err != nil {
		return domcat.Record{}, false, err
	}

	others := slices.DeleteFunc(slices.Clone(domcat.Kinds), func(k domcat.Kind) bool { return k == rec.Kind })
	taken, found, err := s.findRecord(ctx, rec.ID, others)
	if err != nil {
		return domcat.Record{}, false, err
	}
	if found {
		return domcat.Record{}, false,
			domain.NewValidationError("id", "%q is already used by a %s record", rec.ID, taken.Kind)
	}

	existing, err := s.repo.GetCatalog(ctx, rec.Kind, rec.ID)
	switch {
	case err == nil:
		if err := existing.UpdateMetrics(rec.Downloads, rec.Likes, correction); err != nil {
			return domcat.Record{}, false, err
		}
		rec.CreatedAt = existing.CreatedAt
		if rec.OwnerID == "" {
			rec.OwnerID = existing.OwnerID
		}
		rec.UpdatedAt = s.now()
	case errors.Is(err, domain.ErrNotFound):
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = rec.CreatedAt
		}
	default:
		return domcat.Record{}, false, fmt.Errorf("load %s %s: %w", rec.Kind, rec.ID, err)
	}

	created, err := s.repo.UpsertCatalog(ctx, &rec)
	if err != nil {
		return domcat.Record{}, false, fmt.Errorf("store %s %s: %w", rec.Kind, rec.ID, err)
	}
	s.invalidate(rec.Kind)

	logger.FromContext(ctx).Info("catalog record stored",
		zap.String("kind", string(rec.Kind)),
		zap.String("id", rec.ID),
		zap.Bool("created", created),
		zap.Bool("correction", correction),
	)
	return rec, created, nil
}

// DeleteRecord removes a record. Events that reference it keep their
// seller attribution.
func (s *Service) DeleteRecord(ctx context.Context, kind domcat.Kind, id string) error {
	if err := s.repo.DeleteCatalog(ctx, kind, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	s.invalidate(kind)
	return nil
}

// UpsertActor stores an actor profile.
func (s *Service) UpsertActor(ctx context.Context, a actor.Actor) error {
	a.ID = strings.TrimSpace(a.ID)
	a.Name = strings.TrimSpace(a.Name)
	a.Email = strings.TrimSpace(a.Email)
	if a.ID == "" {
		return domain.NewValidationError("id", "is required")
	}
	if a.Email != "" && !strings.Contains(a.Email, "@") {
		return domain.NewValidationError("email", "is not an email address")
	}
	if err := s.repo.UpsertActor(ctx, a); err != nil {
		return fmt.Errorf("store actor %s: %w", a.ID, err)
	}
	return nil
}

// RecordEvent validates and stores e. Missing IDs and timestamps are
// assigned; purchases without a status start pending. The seller is stamped
// from the owner of the target record, whatever its kind. An ID that is
// already recorded fails with ErrAlreadyExists.
func (s *Service) RecordEvent(ctx context.Context, e event.Event) (event.Event, error) {
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	if e.Type == event.TypePurchase && e.Status == "" {
		e.Status = event.StatusPending
	}
	if err := e.Validate(); err != nil {
		return event.Event{}, err
	}

	if e.SellerID == "" {
		target, found, err := s.findRecord(ctx, e.TargetID, domcat.Kinds)
		switch {
		case err != nil:
			return event.Event{}, err
		case found:
			e.SellerID = target.OwnerID
		default:
			logger.FromContext(ctx).Warn("event target not in catalog",
				zap.String("event_id", e.ID), zap.String("target_id", e.TargetID))
		}
	}

	if err := s.repo.SaveEvent(ctx, &e); err != nil {
		return event.Event{}, fmt.Errorf("store event %s: %w", e.ID, err)
	}
	return e, nil
}

// TransitionPurchase moves a purchase to status to. Only pending purchases
// can complete or be refunded.
func (s *Service) TransitionPurchase(ctx context.Context, id string, to event.Status) (event.Event, error) {
	e, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return event.Event{}, fmt.Errorf("load event %s: %w", id, err)
	}
	from := e.Status
	if err := e.Transition(to); err != nil {
		return event.Event{}, err
	}
	if err := s.repo.SetEventStatus(ctx, id, from, to); err != nil {
		return event.Event{}, fmt.Errorf("update event %s: %w", id, err)
	}

	logger.FromContext(ctx).Info("purchase status changed",
		zap.String("event_id", id), zap.String("from", string(from)), zap.String("to", string(to)))
	return e, nil
}

// findRecord returns the first record with id among kinds.
func (s *Service) findRecord(ctx context.Context, id string, kinds []domcat.Kind) (domcat.Record, bool, error) {
	for _, kind := range kinds {
		rec, err := s.repo.GetCatalog(ctx, kind, id)
		switch {
		case err == nil:
			return rec, true, nil
		case errors.Is(err, domain.ErrNotFound):
		default:
			return domcat.Record{}, false, fmt.Errorf("load %s %s: %w", kind, id, err)
		}
	}
	return domcat.Record{}, false, nil
}

func (s *Service) invalidate(kind domcat.Kind) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(kind)
	}
}
