package mongorecord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kailas-cloud/catalogd/internal/db"
	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
)

// Collection names.
const (
	CatalogCollection = "catalog"
	EventCollection   = "events"
	ActorCollection   = "actors"
)

// Repo is the MongoDB record store. It exposes the same operations as the
// Redis repository so either can back the use cases.
type Repo struct {
	client  *mongo.Client
	catalog *mongo.Collection
	events  *mongo.Collection
	actors  *mongo.Collection
}

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, database string) (*Repo, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if database == "" {
		database = "catalogd"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	r := New(client, client.Database(database))
	if err := r.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return r, nil
}

// New wraps an existing database handle.
func New(client *mongo.Client, db *mongo.Database) *Repo {
	return &Repo{
		client:  client,
		catalog: db.Collection(CatalogCollection),
		events:  db.Collection(EventCollection),
		actors:  db.Collection(ActorCollection),
	}
}

// EnsureIndexes creates the secondary indexes list queries rely on.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	if _, err := r.catalog.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "kind", Value: 1}, {Key: "record_id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create catalog index: %w", err)
	}
	if _, err := r.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create event indexes: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return domain.NewUpstreamError(db.OpPing, r.client.Ping(ctx, readpref.Primary()))
}

// Close disconnects the client.
func (r *Repo) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = r.client.Disconnect(ctx)
}

// ListCatalog returns every record of a kind, ordered by ID.
func (r *Repo) ListCatalog(ctx context.Context, kind catalog.Kind) ([]catalog.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "record_id", Value: 1}})
	cursor, err := r.catalog.Find(ctx, bson.M{"kind": string(kind)}, opts)
	if err != nil {
		return nil, domain.NewUpstreamError("find catalog "+string(kind), err)
	}
	defer cursor.Close(ctx)

	var docs []catalogDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.NewUpstreamError("decode catalog "+string(kind), err)
	}

	out := make([]catalog.Record, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, nil
}

// GetCatalog returns one record.
func (r *Repo) GetCatalog(ctx context.Context, kind catalog.Kind, id string) (catalog.Record, error) {
	var doc catalogDoc
	err := r.catalog.FindOne(ctx, bson.M{"_id": catalogID(kind, id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.Record{}, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		return catalog.Record{}, domain.NewUpstreamError("find "+catalogID(kind, id), err)
	}
	return doc.toDomain(), nil
}

// UpsertCatalog creates or replaces a record. Returns true if created.
func (r *Repo) UpsertCatalog(ctx context.Context, rec *catalog.Record) (bool, error) {
	doc := fromRecord(rec)
	res, err := r.catalog.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return false, domain.NewUpstreamError("replace "+doc.ID, err)
	}
	return res.UpsertedCount > 0, nil
}

// DeleteCatalog removes a record.
func (r *Repo) DeleteCatalog(ctx context.Context, kind catalog.Kind, id string) error {
	res, err := r.catalog.DeleteOne(ctx, bson.M{"_id": catalogID(kind, id)})
	if err != nil {
		return domain.NewUpstreamError("delete "+catalogID(kind, id), err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

// ListEvents returns events matching q, ordered by timestamp then ID.
func (r *Repo) ListEvents(ctx context.Context, q event.Query) ([]event.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.events.Find(ctx, eventFilter(q), opts)
	if err != nil {
		return nil, domain.NewUpstreamError("find events", err)
	}
	defer cursor.Close(ctx)

	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.NewUpstreamError("decode events", err)
	}

	out := make([]event.Event, 0, len(docs))
	for i := range docs {
		e, err := docs[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode event %s: %w", docs[i].ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// GetEvent returns one event.
func (r *Repo) GetEvent(ctx context.Context, id string) (event.Event, error) {
	var doc eventDoc
	if err := r.events.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return event.Event{}, fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
		}
		return event.Event{}, domain.NewUpstreamError("find event "+id, err)
	}
	return doc.toDomain()
}

// SaveEvent stores a new event under its ID. An ID that is already taken
// fails with ErrAlreadyExists.
func (r *Repo) SaveEvent(ctx context.Context, e *event.Event) error {
	doc, err := fromEvent(e)
	if err != nil {
		return err
	}
	_, err = r.events.InsertOne(ctx, doc)
	return insertError(doc.ID, err)
}

func insertError(id string, err error) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("event %s: %w", id, domain.ErrAlreadyExists)
	default:
		return domain.NewUpstreamError("insert event "+id, err)
	}
}

// SetEventStatus moves an event from one status to another atomically.
func (r *Repo) SetEventStatus(ctx context.Context, id string, from, to event.Status) error {
	res, err := r.events.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}},
	)
	if err != nil {
		return domain.NewUpstreamError("update event status "+id, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.events.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return domain.NewUpstreamError("count event "+id, err)
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("%w: event %s is no longer %s", domain.ErrInvalidTransition, id, from)
}

// UpsertActor stores an actor profile.
func (r *Repo) UpsertActor(ctx context.Context, a actor.Actor) error {
	doc := actorDoc{ID: a.ID, Name: a.Name, Email: a.Email}
	if _, err := r.actors.ReplaceOne(ctx, bson.M{"_id": a.ID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return domain.NewUpstreamError("replace actor "+a.ID, err)
	}
	return nil
}

// ResolveActors looks up many actors at once. Unknown IDs are absent from the result.
func (r *Repo) ResolveActors(ctx context.Context, ids []string) (map[string]actor.Actor, error) {
	out := make(map[string]actor.Actor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := r.actors.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, domain.NewUpstreamError("find actors", err)
	}
	defer cursor.Close(ctx)

	var docs []actorDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.NewUpstreamError("decode actors", err)
	}
	for _, d := range docs {
		out[d.ID] = actor.Actor{ID: d.ID, Name: d.Name, Email: d.Email}
	}
	return out, nil
}
