package catalogd

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	healthuc "github.com/kailas-cloud/catalogd/internal/usecase/health"
)

func TestNew_NoDatabase(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no database configured")
	}
}

func TestNew_BadFacetPolicy(t *testing.T) {
	_, err := New(context.Background(), WithValkey("localhost:6379", ""), WithFacetPolicy("maybe"))
	if err == nil {
		t.Fatal("expected error for unknown facet policy")
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "sqlite"}
	if _, _, err := openStore(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenStore_MissingAddress(t *testing.T) {
	cfg := &clientConfig{driver: "redis", addrs: []string{""}}
	if _, _, err := openStore(context.Background(), cfg); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestOpenStore_MongoWithoutURI(t *testing.T) {
	cfg := &clientConfig{driver: "mongo"}
	if _, _, err := openStore(context.Background(), cfg); err == nil {
		t.Fatal("expected error for empty mongo uri")
	}
}

func TestClientOptions(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	cfg := &clientConfig{}
	for _, o := range []Option{
		WithRedis("redis:6379", "pw"),
		WithKeyPrefix("shop:"),
		WithFacetPolicy(FacetIgnore),
		WithFacetCache(64, time.Minute),
		WithLocation(loc),
		WithLogger(slog.Default()),
	} {
		o.apply(cfg)
	}

	if cfg.driver != "redis" || cfg.addrs[0] != "redis:6379" || cfg.password != "pw" {
		t.Errorf("redis options = %+v", cfg)
	}
	if cfg.prefix != "shop:" {
		t.Errorf("prefix = %q", cfg.prefix)
	}
	if cfg.facetPolicy != FacetIgnore {
		t.Errorf("facetPolicy = %q", cfg.facetPolicy)
	}
	if cfg.facetCacheLen != 64 || cfg.facetCacheTTL != time.Minute {
		t.Errorf("facet cache = %d/%v", cfg.facetCacheLen, cfg.facetCacheTTL)
	}
	if cfg.location != loc {
		t.Errorf("location = %v", cfg.location)
	}
	if cfg.logger == nil {
		t.Error("expected logger")
	}

	WithMongo("mongodb://db:27017", "shop").apply(cfg)
	if cfg.driver != "mongo" || cfg.mongoURI != "mongodb://db:27017" || cfg.mongoDB != "shop" {
		t.Errorf("mongo options = %+v", cfg)
	}
	WithValkey("valkey:6379", "").apply(cfg)
	if cfg.driver != "valkey" {
		t.Errorf("driver = %q", cfg.driver)
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	c := &Client{}
	c.Close()
}

func TestClient_Close(t *testing.T) {
	closed := false
	c := &Client{closeStore: func() { closed = true }}
	c.Close()
	if !closed {
		t.Error("store not closed")
	}
}

func TestClient_Ping(t *testing.T) {
	c := &Client{store: &mockPinger{}}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	c = &Client{store: &mockPinger{err: errors.New("conn refused")}}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestClient_Health(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Healthy,
		Driver: "valkey",
		Checks: map[string]healthuc.CheckResult{"record_store": healthuc.CheckOK},
	}}}

	h := c.Health(context.Background())
	if h.Status != "ok" || h.Driver != "valkey" {
		t.Errorf("health = %+v", h)
	}
	if h.Checks["record_store"] != "ok" {
		t.Errorf("checks = %v", h.Checks)
	}
}
