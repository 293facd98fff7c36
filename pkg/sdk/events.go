package catalogd

import (
	"context"
	"fmt"
)

// EventService records user actions and actor profiles.
type EventService struct {
	svc ingestUseCase
	obs *observer
}

// Record validates and stores e. A missing ID or timestamp is assigned;
// an ID that is already recorded fails with ErrAlreadyExists.
func (s *EventService) Record(ctx context.Context, e Event) (_ Event, err error) {
	track := s.obs.begin("event.record", "")
	defer func() { track.end(err) }()

	stored, err := s.svc.RecordEvent(ctx, e)
	if err != nil {
		return Event{}, fmt.Errorf("record event: %w", err)
	}
	return stored, nil
}

// Transition moves a pending purchase to completed or refunded.
func (s *EventService) Transition(ctx context.Context, id string, to Status) (_ Event, err error) {
	track := s.obs.begin("event.transition", "")
	defer func() { track.end(err) }()

	e, err := s.svc.TransitionPurchase(ctx, id, to)
	if err != nil {
		return Event{}, fmt.Errorf("transition %s: %w", id, err)
	}
	return e, nil
}

// UpsertActor stores a customer or seller profile.
func (s *EventService) UpsertActor(ctx context.Context, a Actor) (err error) {
	track := s.obs.begin("actor.upsert", "")
	defer func() { track.end(err) }()

	if err = s.svc.UpsertActor(ctx, a); err != nil {
		return fmt.Errorf("upsert actor: %w", err)
	}
	return nil
}
