package catalog

import (
	"context"

	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
)

// Repository defines the storage contract for catalog reads.
type Repository interface {
	ListCatalog(ctx context.Context, kind domcat.Kind) ([]domcat.Record, error)
	GetCatalog(ctx context.Context, kind domcat.Kind, id string) (domcat.Record, error)
}
