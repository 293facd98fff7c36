package order

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
)

// Key is the primary sort key of a catalog listing.
type Key string

// Sort keys. Every key sorts descending; ties fall back to ID ascending.
const (
	// Popularity orders by download count.
	Popularity Key = "popularity"
	Recency    Key = "recency"
	Likes      Key = "likes"
	// Usability orders by the dataset quality score.
	Usability Key = "usability"
)

// Default is used when the caller gives no sort key.
const Default = Popularity

// IsValid checks if the key is one of the supported values.
func (k Key) IsValid() bool {
	return k == Popularity || k == Recency || k == Likes || k == Usability
}

// ParseKey validates s; an empty string yields Default.
// "downloads" and "updated" are accepted aliases.
func ParseKey(s string) (Key, error) {
	switch k := Key(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return Default, nil
	case "downloads":
		return Popularity, nil
	case "updated", "recent":
		return Recency, nil
	default:
		if !k.IsValid() {
			return "", domain.NewValidationError("sort", "unknown sort key %q", s)
		}
		return k, nil
	}
}

// Compare orders a before b under key: primary key descending, then ID ascending.
// Distinct IDs never compare equal, so the order is total.
func Compare(a, b *catalog.Record, key Key) int {
	var c int
	switch key {
	case Recency:
		c = b.UpdatedAt.Compare(a.UpdatedAt)
	case Likes:
		c = cmp.Compare(b.Likes, a.Likes)
	case Usability:
		c = cmp.Compare(b.Usability, a.Usability)
	default:
		c = cmp.Compare(b.Downloads, a.Downloads)
	}
	if c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Sort returns a sorted copy of records. The input slice is not modified.
func Sort(records []catalog.Record, key Key) []catalog.Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b catalog.Record) int {
		return Compare(&a, &b, key)
	})
	return out
}
