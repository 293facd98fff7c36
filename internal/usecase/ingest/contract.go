package ingest

import (
	"context"

	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
)

// CatalogRepository persists catalog records.
type CatalogRepository interface {
	GetCatalog(ctx context.Context, kind domcat.Kind, id string) (domcat.Record, error)
	UpsertCatalog(ctx context.Context, rec *domcat.Record) (bool, error)
	DeleteCatalog(ctx context.Context, kind domcat.Kind, id string) error
}

// EventRepository persists events.
type EventRepository interface {
	GetEvent(ctx context.Context, id string) (event.Event, error)
	SaveEvent(ctx context.Context, e *event.Event) error
	SetEventStatus(ctx context.Context, id string, from, to event.Status) error
}

// ActorRepository persists actor profiles.
type ActorRepository interface {
	UpsertActor(ctx context.Context, a actor.Actor) error
}

// Repository is the record store as seen by ingestion.
type Repository interface {
	CatalogRepository
	EventRepository
	ActorRepository
}

// Invalidator is told which catalog kind changed so derived caches can be dropped.
type Invalidator interface {
	Invalidate(kind domcat.Kind)
}
