package record

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kailas-cloud/catalogd/internal/db"
)

// memStore implements the consumer interface over in-memory maps.
type memStore struct {
	docs   map[string][]byte
	hashes map[string]map[string]string

	failOn  string // command name that returns failErr
	failErr error
	sets    []string // "key path" of every JSONSet
}

func newMemStore() *memStore {
	return &memStore{docs: map[string][]byte{}, hashes: map[string]map[string]string{}}
}

func (m *memStore) fail(op string) error {
	if m.failOn == op {
		return m.failErr
	}
	return nil
}

func (m *memStore) Ping(context.Context) error { return m.fail("Ping") }

func (m *memStore) JSONSet(_ context.Context, key, path string, data []byte) error {
	if err := m.fail("JSONSet"); err != nil {
		return err
	}
	m.sets = append(m.sets, key+" "+path)
	if path == "$" {
		m.docs[key] = append([]byte("["), append(data, ']')...)
		return nil
	}
	// only top-level field paths are used: $.field
	var wrapped []map[string]json.RawMessage
	if err := json.Unmarshal(m.docs[key], &wrapped); err != nil {
		return err
	}
	wrapped[0][strings.TrimPrefix(path, "$.")] = data
	out, err := json.Marshal(wrapped)
	if err != nil {
		return err
	}
	m.docs[key] = out
	return nil
}

func (m *memStore) JSONSetNX(ctx context.Context, key string, data []byte) (bool, error) {
	if err := m.fail("JSONSetNX"); err != nil {
		return false, err
	}
	if _, ok := m.docs[key]; ok {
		return false, nil
	}
	return true, m.JSONSet(ctx, key, "$", data)
}

func (m *memStore) JSONCompareAndSet(ctx context.Context, key, path string, expected, value []byte) (bool, error) {
	if err := m.fail("JSONCompareAndSet"); err != nil {
		return false, err
	}
	raw, ok := m.docs[key]
	if !ok {
		return false, db.ErrKeyNotFound
	}
	var wrapped []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return false, err
	}
	if string(wrapped[0][strings.TrimPrefix(path, "$.")]) != string(expected) {
		return false, nil
	}
	return true, m.JSONSet(ctx, key, path, value)
}

func (m *memStore) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	if err := m.fail("JSONGet"); err != nil {
		return nil, err
	}
	raw, ok := m.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return raw, nil
}

func (m *memStore) JSONGetMulti(_ context.Context, keys []string, _ string) ([][]byte, error) {
	if err := m.fail("JSONGetMulti"); err != nil {
		return nil, err
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.docs[k]
	}
	return out, nil
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if err := m.fail("HSet"); err != nil {
		return err
	}
	h := m.hashes[key]
	if h == nil {
		h = map[string]string{}
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	if err := m.fail("HGetAllMulti"); err != nil {
		return nil, err
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
		if out[i] == nil {
			out[i] = map[string]string{}
		}
	}
	return out, nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if err := m.fail("Scan"); err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	if err := m.fail("Del"); err != nil {
		return err
	}
	delete(m.docs, key)
	return nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	if err := m.fail("Exists"); err != nil {
		return false, err
	}
	_, ok := m.docs[key]
	return ok, nil
}

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	ms := newMemStore()
	return New(ms), ms
}
