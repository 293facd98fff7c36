package analytics

import (
	"context"

	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
)

// EventReader lists events.
type EventReader interface {
	ListEvents(ctx context.Context, q event.Query) ([]event.Event, error)
}

// CatalogReader lists catalog records, the join targets of events.
type CatalogReader interface {
	ListCatalog(ctx context.Context, kind domcat.Kind) ([]domcat.Record, error)
}

// ActorResolver resolves actor profiles. Unknown IDs are absent, not errors.
type ActorResolver interface {
	ResolveActors(ctx context.Context, ids []string) (map[string]actor.Actor, error)
}

// Repository is the record store as seen by reports.
type Repository interface {
	EventReader
	CatalogReader
	ActorResolver
}
