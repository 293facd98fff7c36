package catalogd

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbRedis "github.com/kailas-cloud/catalogd/internal/db/redis"
	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	domana "github.com/kailas-cloud/catalogd/internal/domain/analytics"
	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
	"github.com/kailas-cloud/catalogd/internal/domain/search/request"
	"github.com/kailas-cloud/catalogd/internal/domain/search/result"
	"github.com/kailas-cloud/catalogd/internal/repository/mongorecord"
	"github.com/kailas-cloud/catalogd/internal/repository/record"
	analyticsuc "github.com/kailas-cloud/catalogd/internal/usecase/analytics"
	cataloguc "github.com/kailas-cloud/catalogd/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/catalogd/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/catalogd/internal/usecase/ingest"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, replaced by fakes in tests.
type catalogUseCase interface {
	Search(ctx context.Context, kind catalog.Kind, req request.Request) (result.Page, error)
	Facets(ctx context.Context, kind catalog.Kind) (facet.Index, error)
	Get(ctx context.Context, kind catalog.Kind, id string) (catalog.Record, error)
}

type ingestUseCase interface {
	UpsertRecord(ctx context.Context, rec catalog.Record, correction bool) (catalog.Record, bool, error)
	DeleteRecord(ctx context.Context, kind catalog.Kind, id string) error
	UpsertActor(ctx context.Context, a actor.Actor) error
	RecordEvent(ctx context.Context, e event.Event) (event.Event, error)
	TransitionPurchase(ctx context.Context, id string, to event.Status) (event.Event, error)
}

type analyticsUseCase interface {
	LastDays(days int) (analyticsuc.Window, error)
	Analyze(ctx context.Context, spec domana.Spec) ([]domana.Row, error)
	Sales(ctx context.Context, sellerID string, w analyticsuc.Window) (analyticsuc.SalesReport, error)
	Customers(ctx context.Context, sellerID string, w analyticsuc.Window) (analyticsuc.CustomerReport, error)
	Customer(ctx context.Context, sellerID, actorID string, w analyticsuc.Window) (analyticsuc.CustomerDetail, error)
	Revenue(ctx context.Context, sellerID string, days int) (analyticsuc.RevenueSeries, error)
}

// recordStore is a storage backend the services run on.
type recordStore interface {
	cataloguc.Repository
	analyticsuc.Repository
	ingestuc.Repository
	healthuc.Pinger
}

// Client is the catalogd SDK entry point.
type Client struct {
	store        healthuc.Pinger
	closeStore   func()
	catalogSvc   catalogUseCase
	ingestSvc    ingestUseCase
	analyticsSvc analyticsUseCase
	healthSvc    healthUseCase
	obs          *observer
}

// New creates a Client and connects to the database.
// The provided context bounds the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{facetPolicy: FacetReject}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("catalogd: database required (use WithValkey, WithRedis or WithMongo)")
	}
	if !cfg.facetPolicy.IsValid() {
		return nil, fmt.Errorf("catalogd: unknown facet policy %q", cfg.facetPolicy)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return wireClient(store, closeStore, cfg, obs), nil
}

func openStore(ctx context.Context, cfg *clientConfig) (recordStore, func(), error) {
	switch cfg.driver {
	case "valkey", "redis":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, nil, fmt.Errorf("catalogd: %s address required", cfg.driver)
		}
		kv, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("catalogd: create %s store: %w", cfg.driver, err)
		}
		if err := kv.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			kv.Close()
			return nil, nil, fmt.Errorf("catalogd: database not ready: %w", err)
		}
		return record.New(kv).WithKeyPrefix(cfg.prefix), kv.Close, nil
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, defaultReadinessTimeout)
		defer cancel()
		repo, err := mongorecord.Connect(connectCtx, cfg.mongoURI, cfg.mongoDB)
		if err != nil {
			return nil, nil, fmt.Errorf("catalogd: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("catalogd: unknown driver %q", cfg.driver)
	}
}

func wireClient(store recordStore, closeStore func(), cfg *clientConfig, obs *observer) *Client {
	catalogSvc := cataloguc.New(store).WithFacetPolicy(cfg.facetPolicy)
	if cfg.facetCacheLen > 0 {
		catalogSvc = catalogSvc.WithFacetCache(cfg.facetCacheLen, cfg.facetCacheTTL)
	}
	analyticsSvc := analyticsuc.New(store)
	if cfg.location != nil {
		analyticsSvc = analyticsSvc.WithLocation(cfg.location)
	}
	ingestSvc := ingestuc.New(store).WithInvalidator(catalogSvc)

	return &Client{
		store:        store,
		closeStore:   closeStore,
		catalogSvc:   catalogSvc,
		ingestSvc:    ingestSvc,
		analyticsSvc: analyticsSvc,
		healthSvc:    healthuc.New(store, cfg.driver),
		obs:          obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closeStore != nil {
		c.closeStore()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	track := c.obs.begin("ping", "")
	defer func() { track.end(err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Catalog returns the listing and write service for one catalog kind.
func (c *Client) Catalog(kind Kind) *CatalogService {
	return &CatalogService{
		kind:   kind,
		svc:    c.catalogSvc,
		ingest: c.ingestSvc,
		obs:    c.obs,
	}
}

// Events returns the event ingestion service.
func (c *Client) Events() *EventService {
	return &EventService{svc: c.ingestSvc, obs: c.obs}
}

// Reports returns the seller report service.
func (c *Client) Reports() *ReportService {
	return &ReportService{svc: c.analyticsSvc, obs: c.obs}
}
