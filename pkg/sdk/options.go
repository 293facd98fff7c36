package catalogd

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis" or "mongo"
	addrs    []string
	password string
	mongoURI string
	mongoDB  string
	prefix   string

	facetPolicy   FacetPolicy
	facetCacheLen int
	facetCacheTTL time.Duration
	location      *time.Location

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMongo configures the client to use a MongoDB database.
// An empty database name selects "catalogd".
func WithMongo(uri, database string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "mongo"
		c.mongoURI = uri
		c.mongoDB = database
	})
}

// WithKeyPrefix namespaces Valkey/Redis keys. Ignored for MongoDB.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.prefix = prefix
	})
}

// WithFacetPolicy selects how unknown facet values are handled.
// Default: FacetReject.
func WithFacetPolicy(p FacetPolicy) Option {
	return optionFunc(func(c *clientConfig) {
		c.facetPolicy = p
	})
}

// WithFacetCache caches facet indexes per catalog kind.
// Writes made through the same Client invalidate the cache.
func WithFacetCache(size int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.facetCacheLen = size
		c.facetCacheTTL = ttl
	})
}

// WithLocation sets the time zone reports bucket days in. Default: UTC.
func WithLocation(loc *time.Location) Option {
	return optionFunc(func(c *clientConfig) {
		c.location = loc
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers the catalogd_sdk_* metrics on reg: calls by
// operation, kind and outcome, call latency, empty searches and ignored
// facet selections. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
