package chi

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
	analyticsuc "github.com/kailas-cloud/catalogd/internal/usecase/analytics"
	cataloguc "github.com/kailas-cloud/catalogd/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/catalogd/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/catalogd/internal/usecase/ingest"
)

var testNow = time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC)

// memRepo is an in-memory record store shared by all services under test.
type memRepo struct {
	mu      sync.Mutex
	records map[string]domcat.Record
	events  map[string]event.Event
	actors  map[string]actor.Actor
	err     error
}

func newMemRepo() *memRepo {
	return &memRepo{
		records: make(map[string]domcat.Record),
		events:  make(map[string]event.Event),
		actors:  make(map[string]actor.Actor),
	}
}

func recordKey(kind domcat.Kind, id string) string { return string(kind) + ":" + id }

func (m *memRepo) fail() error {
	if m.err != nil {
		return domain.NewUpstreamError("mem", m.err)
	}
	return nil
}

func (m *memRepo) Ping(context.Context) error { return m.fail() }

func (m *memRepo) ListCatalog(_ context.Context, kind domcat.Kind) ([]domcat.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var out []domcat.Record
	for _, r := range m.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b domcat.Record) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *memRepo) GetCatalog(_ context.Context, kind domcat.Kind, id string) (domcat.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return domcat.Record{}, err
	}
	r, ok := m.records[recordKey(kind, id)]
	if !ok {
		return domcat.Record{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memRepo) UpsertCatalog(_ context.Context, rec *domcat.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	_, exists := m.records[recordKey(rec.Kind, rec.ID)]
	m.records[recordKey(rec.Kind, rec.ID)] = *rec
	return !exists, nil
}

func (m *memRepo) DeleteCatalog(_ context.Context, kind domcat.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[recordKey(kind, id)]; !ok {
		return domain.ErrNotFound
	}
	delete(m.records, recordKey(kind, id))
	return nil
}

func (m *memRepo) ListEvents(_ context.Context, q event.Query) ([]event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var out []event.Event
	for _, e := range m.events {
		if q.Matches(&e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b event.Event) int { return a.Timestamp.Compare(b.Timestamp) })
	return out, nil
}

func (m *memRepo) GetEvent(_ context.Context, id string) (event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return event.Event{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *memRepo) SaveEvent(_ context.Context, e *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.events[e.ID] = *e
	return nil
}

func (m *memRepo) SetEventStatus(_ context.Context, id string, from, to event.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	if e.Status != from {
		return domain.ErrInvalidTransition
	}
	e.Status = to
	m.events[id] = e
	return nil
}

func (m *memRepo) UpsertActor(_ context.Context, a actor.Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actors[a.ID] = a
	return nil
}

func (m *memRepo) ResolveActors(_ context.Context, ids []string) (map[string]actor.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]actor.Actor, len(ids))
	for _, id := range ids {
		if a, ok := m.actors[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (m *memRepo) putRecord(r domcat.Record) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = testNow.Add(-72 * time.Hour)
		r.UpdatedAt = r.CreatedAt
	}
	m.records[recordKey(r.Kind, r.ID)] = r
}

func (m *memRepo) putPurchase(id, target, actorID, amount string, status event.Status, at time.Time) {
	m.events[id] = event.Event{
		ID:        id,
		Type:      event.TypePurchase,
		TargetID:  target,
		ActorID:   actorID,
		Timestamp: at,
		Amount:    decimal.RequireFromString(amount),
		Status:    status,
	}
}

// newTestServer wires the real services over repo and returns the router.
func newTestServer(t *testing.T, repo *memRepo, secret string) http.Handler {
	t.Helper()
	clock := func() time.Time { return testNow }

	catalog := cataloguc.New(repo).WithFacetCache(16, time.Minute)
	analytics := analyticsuc.New(repo).WithClock(clock)
	ingest := ingestuc.New(repo).WithInvalidator(catalog).WithClock(clock)
	health := healthuc.New(repo, "memory")

	srv := NewServer(catalog, analytics, ingest, health).
		WithPageLimits(2, 10).
		WithJWTSecret(secret)

	r := gochi.NewRouter()
	srv.Routes(r)
	return r
}
