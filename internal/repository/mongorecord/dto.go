package mongorecord

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
)

type catalogDoc struct {
	ID          string    `bson:"_id"`
	RecordID    string    `bson:"record_id"`
	Kind        string    `bson:"kind"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	OwnerID     string    `bson:"owner_id,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
	Downloads   int64     `bson:"downloads"`
	Likes       int64     `bson:"likes"`
	Task        string    `bson:"task,omitempty"`
	Tags        []string  `bson:"tags,omitempty"`
	Framework   string    `bson:"framework,omitempty"`
	License     string    `bson:"license,omitempty"`
	FineTuned   bool      `bson:"fine_tuned,omitempty"`
	Usability   float64   `bson:"usability,omitempty"`
	DemoURL     string    `bson:"demo_url,omitempty"`
	PaperURL    string    `bson:"paper_url,omitempty"`
	RepoURL     string    `bson:"repo_url,omitempty"`
}

// catalogID scopes record IDs by kind so a model and a dataset may share an ID.
func catalogID(kind catalog.Kind, id string) string {
	return string(kind) + ":" + id
}

func fromRecord(r *catalog.Record) catalogDoc {
	return catalogDoc{
		ID:          catalogID(r.Kind, r.ID),
		RecordID:    r.ID,
		Kind:        string(r.Kind),
		Name:        r.Name,
		Description: r.Description,
		OwnerID:     r.OwnerID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
		Downloads:   r.Downloads,
		Likes:       r.Likes,
		Task:        r.Task,
		Tags:        r.Tags,
		Framework:   r.Framework,
		License:     r.License,
		FineTuned:   r.FineTuned,
		Usability:   r.Usability,
		DemoURL:     r.DemoURL,
		PaperURL:    r.PaperURL,
		RepoURL:     r.RepoURL,
	}
}

func (d *catalogDoc) toDomain() catalog.Record {
	return catalog.Record{
		ID:          d.RecordID,
		Kind:        catalog.Kind(d.Kind),
		Name:        d.Name,
		Description: d.Description,
		OwnerID:     d.OwnerID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Downloads:   d.Downloads,
		Likes:       d.Likes,
		Task:        d.Task,
		Tags:        d.Tags,
		Framework:   d.Framework,
		License:     d.License,
		FineTuned:   d.FineTuned,
		Usability:   d.Usability,
		DemoURL:     d.DemoURL,
		PaperURL:    d.PaperURL,
		RepoURL:     d.RepoURL,
	}
}

type eventDoc struct {
	ID        string                `bson:"_id"`
	Type      string                `bson:"type"`
	TargetID  string                `bson:"target_id"`
	ActorID   string                `bson:"actor_id"`
	SellerID  string                `bson:"seller_id,omitempty"`
	Timestamp time.Time             `bson:"timestamp"`
	Amount    *primitive.Decimal128 `bson:"amount,omitempty"`
	Status    string                `bson:"status,omitempty"`
	Score     int                   `bson:"score,omitempty"`
}

func fromEvent(e *event.Event) (eventDoc, error) {
	doc := eventDoc{
		ID:        e.ID,
		Type:      string(e.Type),
		TargetID:  e.TargetID,
		ActorID:   e.ActorID,
		SellerID:  e.SellerID,
		Timestamp: e.Timestamp.UTC(),
		Status:    string(e.Status),
		Score:     e.Score,
	}
	if e.Type == event.TypePurchase {
		amount, err := primitive.ParseDecimal128(e.Amount.String())
		if err != nil {
			return eventDoc{}, fmt.Errorf("amount %s: %w", e.Amount, err)
		}
		doc.Amount = &amount
	}
	return doc, nil
}

func (d *eventDoc) toDomain() (event.Event, error) {
	e := event.Event{
		ID:        d.ID,
		Type:      event.Type(d.Type),
		TargetID:  d.TargetID,
		ActorID:   d.ActorID,
		SellerID:  d.SellerID,
		Timestamp: d.Timestamp,
		Status:    event.Status(d.Status),
		Score:     d.Score,
	}
	if d.Amount != nil {
		amount, err := decimal.NewFromString(d.Amount.String())
		if err != nil {
			return event.Event{}, fmt.Errorf("amount %s: %w", d.Amount, err)
		}
		e.Amount = amount
	}
	return e, nil
}

type actorDoc struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Email string `bson:"email,omitempty"`
}

// eventFilter pushes an event query down to MongoDB. Status constraints
// only bind purchases, matching event.Query.Matches.
func eventFilter(q event.Query) bson.D {
	filter := bson.D{}

	if len(q.Types) > 0 {
		filter = append(filter, bson.E{Key: "type", Value: bson.M{"$in": stringsOf(q.Types)}})
	}
	if len(q.Statuses) > 0 {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"type": bson.M{"$ne": string(event.TypePurchase)}},
			bson.M{"status": bson.M{"$in": stringsOf(q.Statuses)}},
		}})
	}
	if q.ActorID != "" {
		filter = append(filter, bson.E{Key: "actor_id", Value: q.ActorID})
	}

	window := bson.M{}
	if !q.Since.IsZero() {
		window["$gte"] = q.Since.UTC()
	}
	if !q.Until.IsZero() {
		window["$lt"] = q.Until.UTC()
	}
	if len(window) > 0 {
		filter = append(filter, bson.E{Key: "timestamp", Value: window})
	}

	return filter
}

func stringsOf[T ~string](xs []T) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return out
}
