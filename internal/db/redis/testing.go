package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c, batchSize: defaultBatchSize}
}

// NewStoreForTestWithBatch creates a Store with a custom pipeline batch size (test-only).
func NewStoreForTestWithBatch(c rueidis.Client, batchSize int) *Store {
	return &Store{client: c, batchSize: batchSize}
}
