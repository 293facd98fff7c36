package record

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/catalogd/internal/domain/actor"
)

// decodeFirst unwraps a JSON.GET "$" reply, which is an array holding the
// root document, into dst. A bare object is accepted as well.
func decodeFirst(raw []byte, dst any) error {
	var wrapped []json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if len(wrapped) == 0 {
			return fmt.Errorf("empty document")
		}
		return json.Unmarshal(wrapped[0], dst)
	}
	return json.Unmarshal(raw, dst)
}

const (
	fieldName  = "name"
	fieldEmail = "email"
)

func actorFields(a actor.Actor) map[string]string {
	m := map[string]string{fieldName: a.Name}
	if a.Email != "" {
		m[fieldEmail] = a.Email
	}
	return m
}

func parseActor(id string, m map[string]string) actor.Actor {
	return actor.Actor{ID: id, Name: m[fieldName], Email: m[fieldEmail]}
}
