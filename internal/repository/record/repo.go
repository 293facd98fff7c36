package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogd/internal/db"
	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
	"github.com/kailas-cloud/catalogd/internal/logger"
)

// DefaultKeyPrefix namespaces every key the repository writes.
const DefaultKeyPrefix = "catalogd:"

// store is the consumer interface for records (ISP).
type store interface {
	Ping(ctx context.Context) error
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetNX(ctx context.Context, key string, data []byte) (bool, error)
	JSONCompareAndSet(ctx context.Context, key, path string, expected, value []byte) (bool, error)
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo is the Redis/Valkey record store: catalog records and events as JSON
// documents, actors as hashes.
type Repo struct {
	store  store
	prefix string
}

// New creates a record repository.
func New(s store) *Repo {
	return &Repo{store: s, prefix: DefaultKeyPrefix}
}

// WithKeyPrefix overrides the key namespace.
func (r *Repo) WithKeyPrefix(prefix string) *Repo {
	if prefix != "" {
		r.prefix = prefix
	}
	return r
}

// Ping checks that the backing store answers.
func (r *Repo) Ping(ctx context.Context) error {
	return domain.NewUpstreamError(db.OpPing, r.store.Ping(ctx))
}

// ListCatalog returns every record of a kind, ordered by key.
func (r *Repo) ListCatalog(ctx context.Context, kind catalog.Kind) ([]catalog.Record, error) {
	keys, err := r.store.Scan(ctx, r.catalogKey(kind, "*"))
	if err != nil {
		return nil, domain.NewUpstreamError("list catalog "+string(kind), err)
	}
	slices.Sort(keys)

	docs, err := r.store.JSONGetMulti(ctx, keys, "$")
	if err != nil {
		return nil, domain.NewUpstreamError("list catalog "+string(kind), err)
	}

	out := make([]catalog.Record, 0, len(docs))
	for i, raw := range docs {
		if raw == nil {
			// deleted between SCAN and GET
			continue
		}
		var rec catalog.Record
		if err := decodeFirst(raw, &rec); err != nil {
			logger.FromContext(ctx).Warn("skipping undecodable catalog record",
				zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetCatalog returns one record.
func (r *Repo) GetCatalog(ctx context.Context, kind catalog.Kind, id string) (catalog.Record, error) {
	key := r.catalogKey(kind, id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return catalog.Record{}, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		return catalog.Record{}, domain.NewUpstreamError("get "+key, err)
	}

	var rec catalog.Record
	if err := decodeFirst(raw, &rec); err != nil {
		return catalog.Record{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return rec, nil
}

// UpsertCatalog creates or replaces a record. Returns true if created.
func (r *Repo) UpsertCatalog(ctx context.Context, rec *catalog.Record) (bool, error) {
	key := r.catalogKey(rec.Kind, rec.ID)
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, domain.NewUpstreamError("exists "+key, err)
	}
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return false, domain.NewUpstreamError("set "+key, err)
	}
	return !exists, nil
}

// DeleteCatalog removes a record.
func (r *Repo) DeleteCatalog(ctx context.Context, kind catalog.Kind, id string) error {
	key := r.catalogKey(kind, id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return domain.NewUpstreamError("exists "+key, err)
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	if err := r.store.Del(ctx, key); err != nil {
		return domain.NewUpstreamError("del "+key, err)
	}
	return nil
}

// ListEvents returns events matching q, ordered by timestamp then ID.
func (r *Repo) ListEvents(ctx context.Context, q event.Query) ([]event.Event, error) {
	keys, err := r.store.Scan(ctx, r.eventKey("*"))
	if err != nil {
		return nil, domain.NewUpstreamError("list events", err)
	}

	docs, err := r.store.JSONGetMulti(ctx, keys, "$")
	if err != nil {
		return nil, domain.NewUpstreamError("list events", err)
	}

	out := make([]event.Event, 0, len(docs))
	for i, raw := range docs {
		if raw == nil {
			continue
		}
		var e event.Event
		if err := decodeFirst(raw, &e); err != nil {
			logger.FromContext(ctx).Warn("skipping undecodable event",
				zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		if q.Matches(&e) {
			out = append(out, e)
		}
	}

	slices.SortFunc(out, func(a, b event.Event) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// GetEvent returns one event.
func (r *Repo) GetEvent(ctx context.Context, id string) (event.Event, error) {
	key := r.eventKey(id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return event.Event{}, fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
		}
		return event.Event{}, domain.NewUpstreamError("get "+key, err)
	}

	var e event.Event
	if err := decodeFirst(raw, &e); err != nil {
		return event.Event{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return e, nil
}

// SaveEvent stores a new event under its ID. An ID that is already taken
// fails with ErrAlreadyExists and leaves the stored event untouched.
func (r *Repo) SaveEvent(ctx context.Context, e *event.Event) error {
	key := r.eventKey(e.ID)
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	created, err := r.store.JSONSetNX(ctx, key, data)
	if err != nil {
		return domain.NewUpstreamError("set "+key, err)
	}
	if !created {
		return fmt.Errorf("event %s: %w", e.ID, domain.ErrAlreadyExists)
	}
	return nil
}

// SetEventStatus moves an event from one status to another in a single
// server-side compare-and-set. It fails with ErrInvalidTransition when the
// stored status is no longer from.
func (r *Repo) SetEventStatus(ctx context.Context, id string, from, to event.Status) error {
	expected, err := json.Marshal(from)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	data, err := json.Marshal(to)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	key := r.eventKey(id)
	swapped, err := r.store.JSONCompareAndSet(ctx, key, "$.status", expected, data)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
	case err != nil:
		return domain.NewUpstreamError("set status "+key, err)
	case !swapped:
		return fmt.Errorf("%w: event %s is no longer %s", domain.ErrInvalidTransition, id, from)
	}
	return nil
}

// UpsertActor stores an actor profile.
func (r *Repo) UpsertActor(ctx context.Context, a actor.Actor) error {
	key := r.actorKey(a.ID)
	if err := r.store.HSet(ctx, key, actorFields(a)); err != nil {
		return domain.NewUpstreamError("hset "+key, err)
	}
	return nil
}

// ResolveActors looks up many actors at once. Unknown IDs are absent from
// the result; they are not an error.
func (r *Repo) ResolveActors(ctx context.Context, ids []string) (map[string]actor.Actor, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return map[string]actor.Actor{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.actorKey(id)
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, domain.NewUpstreamError("resolve actors", err)
	}

	out := make(map[string]actor.Actor, len(ids))
	for i, m := range hashes {
		if len(m) == 0 {
			continue
		}
		out[ids[i]] = parseActor(ids[i], m)
	}
	return out, nil
}

func (r *Repo) catalogKey(kind catalog.Kind, id string) string {
	return fmt.Sprintf("%scatalog:%s:%s", r.prefix, kind, id)
}

func (r *Repo) eventKey(id string) string {
	return r.prefix + "event:" + id
}

func (r *Repo) actorKey(id string) string {
	return r.prefix + "actor:" + id
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
