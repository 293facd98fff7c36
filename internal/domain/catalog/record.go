package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kailas-cloud/catalogd/internal/domain"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.:/-]*$`)

// Kind distinguishes catalog record variants.
type Kind string

// Catalog kinds.
const (
	KindModel      Kind = "model"
	KindDataset    Kind = "dataset"
	KindRepository Kind = "repository"
)

// Kinds lists every catalog kind in display order.
var Kinds = []Kind{KindModel, KindDataset, KindRepository}

// IsValid checks if the kind is supported.
func (k Kind) IsValid() bool {
	return k == KindModel || k == KindDataset || k == KindRepository
}

// ParseKind accepts singular and plural spellings ("models", "dataset", ...).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "model", "models":
		return KindModel, nil
	case "dataset", "datasets":
		return KindDataset, nil
	case "repository", "repositories", "repo", "repos":
		return KindRepository, nil
	}
	return "", domain.NewValidationError("kind", "unknown catalog kind %q", s)
}

// Record is one catalog entry: a model, dataset or repository.
type Record struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Downloads   int64     `json:"downloads"`
	Likes       int64     `json:"likes"`
	Task        string    `json:"task,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Framework   string    `json:"framework,omitempty"`
	License     string    `json:"license,omitempty"`
	FineTuned   bool      `json:"fine_tuned,omitempty"`
	Usability   float64   `json:"usability,omitempty"`
	DemoURL     string    `json:"demo_url,omitempty"`
	PaperURL    string    `json:"paper_url,omitempty"`
	RepoURL     string    `json:"repo_url,omitempty"`
}

// New validates r and returns it with normalized tags and timestamps.
func New(r Record) (Record, error) {
	if r.ID == "" {
		return Record{}, domain.NewValidationError("id", "is required")
	}
	if len(r.ID) > 128 || !idRegex.MatchString(r.ID) {
		return Record{}, domain.NewValidationError("id", "must be 1-128 chars of [a-zA-Z0-9_.:/-]")
	}
	if !r.Kind.IsValid() {
		return Record{}, domain.NewValidationError("kind", "unknown catalog kind %q", r.Kind)
	}
	if strings.TrimSpace(r.Name) == "" {
		return Record{}, domain.NewValidationError("name", "is required")
	}
	if r.Downloads < 0 || r.Likes < 0 {
		return Record{}, domain.NewValidationError("downloads", "popularity metrics must be non-negative")
	}
	if r.Usability < 0 || r.Usability > 10 {
		return Record{}, domain.NewValidationError("usability", "must be between 0 and 10")
	}

	r.Name = strings.TrimSpace(r.Name)
	r.Task = strings.TrimSpace(r.Task)
	r.Framework = strings.TrimSpace(r.Framework)
	r.License = strings.TrimSpace(r.License)
	r.Tags = NormalizeTags(r.Tags)

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.UpdatedAt.Before(r.CreatedAt) {
		r.UpdatedAt = r.CreatedAt
	}
	return r, nil
}

// NormalizeTags trims tags and drops empty and duplicate entries, keeping first-seen order.
// Duplicates are detected case-insensitively.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// UpdateMetrics sets the popularity counters. A decrease is rejected with
// domain.ErrMetricsRegression unless correction is set.
func (r *Record) UpdateMetrics(downloads, likes int64, correction bool) error {
	if downloads < 0 || likes < 0 {
		return domain.NewValidationError("downloads", "popularity metrics must be non-negative")
	}
	if !correction && (downloads < r.Downloads || likes < r.Likes) {
		return fmt.Errorf("%w: downloads %d->%d, likes %d->%d",
			domain.ErrMetricsRegression, r.Downloads, downloads, r.Likes, likes)
	}
	r.Downloads = downloads
	r.Likes = likes
	return nil
}
