package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/catalogd/internal/db"
)

// JSONSet stores a JSON document at the given key and path.
func (s *Store) JSONSet(ctx context.Context, key, path string, data []byte) error {
	cmd := s.b().Arbitrary("JSON.SET").Keys(key).Args(path, string(data)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}
	return nil
}

// JSONSetNX stores a document at the root of a key that does not exist yet.
func (s *Store) JSONSetNX(ctx context.Context, key string, data []byte) (bool, error) {
	cmd := s.b().Arbitrary("JSON.SET").Keys(key).Args("$", string(data), "NX").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpJSONSet, Err: err}
	}
	return true, nil
}

// compareAndSet runs JSON.GET and JSON.SET as one server-side step.
// Replies: 1 written, 0 current value differs, -1 key missing.
var compareAndSet = rueidis.NewLuaScript(`
local cur = redis.call('JSON.GET', KEYS[1], ARGV[1])
if not cur then
  return -1
end
if cur ~= ARGV[2] then
  return 0
end
redis.call('JSON.SET', KEYS[1], ARGV[1], ARGV[3])
return 1
`)

// JSONCompareAndSet swaps the value at path when it still equals expected.
// path must select a single value; JSON.GET wraps it in an array.
func (s *Store) JSONCompareAndSet(ctx context.Context, key, path string, expected, value []byte) (bool, error) {
	wrapped := "[" + string(expected) + "]"
	reply, err := compareAndSet.Exec(ctx, s.client, []string{key}, []string{path, wrapped, string(value)}).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpJSONCAS, Err: err}
	}
	switch reply {
	case 1:
		return true, nil
	case -1:
		return false, db.ErrKeyNotFound
	default:
		return false, nil
	}
}

// JSONGet retrieves a JSON document by key and optional paths.
func (s *Store) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	cmd := s.b().Arbitrary("JSON.GET").Keys(key).Args(paths...).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpJSONGet, Err: err}
	}
	if raw == "" {
		return nil, db.ErrKeyNotFound
	}
	return []byte(raw), nil
}

// JSONGetMulti reads many documents with one pipelined JSON.GET per key.
// Per-key GETs (rather than JSON.MGET) keep cross-slot batches legal in cluster mode.
func (s *Store) JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	out := make([][]byte, 0, len(keys))
	for _, batch := range s.chunks(keys) {
		cmds := make([]rueidis.Completed, len(batch))
		for i, key := range batch {
			cmds[i] = s.b().Arbitrary("JSON.GET").Keys(key).Args(path).Build()
		}

		for i, res := range s.client.DoMulti(ctx, cmds...) {
			raw, err := res.ToString()
			switch {
			case rueidis.IsRedisNil(err):
				out = append(out, nil)
			case err != nil:
				return nil, &db.Error{Op: db.OpJSONGet, Err: fmt.Errorf("key %s: %w", batch[i], err)}
			case raw == "":
				out = append(out, nil)
			default:
				out = append(out, []byte(raw))
			}
		}
	}

	return out, nil
}
