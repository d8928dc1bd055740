package location

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-state/internal/config"
)

type memStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: map[string][]byte{}}
}

func (m *memStorage) ReadBlob(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	return data, ok, nil
}

func (m *memStorage) WriteBlob(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

func (m *memStorage) DeleteBlob(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memStorage) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestCache(storage Storage, lookupURL string) *Cache {
	cfg := &config.Config{}
	cfg.Geo.LookupURL = lookupURL
	cfg.Geo.Timeout = time.Second
	return NewCache(storage, cfg, quietLogger())
}

func geoServer(hits *int32, response geoResponse) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		json.NewEncoder(w).Encode(response)
	}))
}

func seedRecord(t *testing.T, storage *memStorage, owner string, record Record) {
	t.Helper()
	data, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, storage.WriteBlob(context.Background(), "location:"+owner, data))
}

func TestFreshRecordSkipsNetwork(t *testing.T) {
	var hits int32
	server := geoServer(&hits, geoResponse{Ok: true, Country: "DE", City: "Berlin"})
	defer server.Close()

	storage := newMemStorage()
	now := time.Now()
	seedRecord(t, storage, "owner-1", Record{
		Country:      "US",
		City:         "Portland",
		ResolvedAtMs: now.Add(-24 * time.Hour).UnixMilli(),
	})

	cache := newTestCache(storage, server.URL)
	cache.now = func() time.Time { return now }

	record, err := cache.Resolve(context.Background(), "owner-1", "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, "US", record.Country)
	assert.Equal(t, "Portland", record.City)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestExpiredRecordTriggersResolution(t *testing.T) {
	var hits int32
	server := geoServer(&hits, geoResponse{Ok: true, Country: "DE", City: "Berlin"})
	defer server.Close()

	storage := newMemStorage()
	now := time.Now()
	seedRecord(t, storage, "owner-1", Record{
		Country:      "US",
		City:         "Portland",
		ResolvedAtMs: now.Add(-21 * 24 * time.Hour).UnixMilli(),
	})

	cache := newTestCache(storage, server.URL)
	cache.now = func() time.Time { return now }

	record, err := cache.Resolve(context.Background(), "owner-1", "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, "DE", record.Country)
	assert.Equal(t, "Berlin", record.City)
	assert.Equal(t, now.UnixMilli(), record.ResolvedAtMs)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestMalformedRecordDiscarded(t *testing.T) {
	cases := []struct {
		name string
		blob []byte
	}{
		{"invalid json", []byte("{broken")},
		{"empty country", []byte(`{"country":"","city":"Portland","resolved_at_ms":1}`)},
		{"empty city", []byte(`{"country":"US","city":"","resolved_at_ms":1}`)},
		{"missing timestamp", []byte(`{"country":"US","city":"Portland"}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hits int32
			server := geoServer(&hits, geoResponse{Ok: true, Country: "DE", City: "Berlin"})
			defer server.Close()

			storage := newMemStorage()
			require.NoError(t, storage.WriteBlob(context.Background(), "location:owner-1", tc.blob))

			cache := newTestCache(storage, server.URL)

			record, err := cache.Resolve(context.Background(), "owner-1", "")
			require.NoError(t, err)
			assert.Equal(t, "DE", record.Country)
			assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
		})
	}
}

func TestSuccessfulResolutionPersists(t *testing.T) {
	var hits int32
	server := geoServer(&hits, geoResponse{Ok: true, Country: "DE", City: "Berlin"})
	defer server.Close()

	storage := newMemStorage()
	cache := newTestCache(storage, server.URL)

	_, err := cache.Resolve(context.Background(), "owner-1", "")
	require.NoError(t, err)
	require.True(t, storage.has("location:owner-1"))

	// Second resolve is served from the persisted record
	_, err = cache.Resolve(context.Background(), "owner-1", "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestRejectedLookupPersistsNothing(t *testing.T) {
	var hits int32
	server := geoServer(&hits, geoResponse{Ok: false, Error: "rate limited"})
	defer server.Close()

	storage := newMemStorage()
	cache := newTestCache(storage, server.URL)

	_, err := cache.Resolve(context.Background(), "owner-1", "")
	require.Error(t, err)
	assert.False(t, storage.has("location:owner-1"))
}

func TestIncompleteLookupIsFailure(t *testing.T) {
	var hits int32
	server := geoServer(&hits, geoResponse{Ok: true, Country: "DE"})
	defer server.Close()

	storage := newMemStorage()
	cache := newTestCache(storage, server.URL)

	_, err := cache.Resolve(context.Background(), "owner-1", "")
	require.Error(t, err)
	assert.False(t, storage.has("location:owner-1"))
}

func TestLookupURLPreservesExistingQuery(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(geoResponse{Ok: true, Country: "DE", City: "Berlin"})
	}))
	defer server.Close()

	storage := newMemStorage()
	cache := newTestCache(storage, server.URL+"/lookup?key=abc")

	// IPv6 colons must survive as a single escaped query value
	_, err := cache.Resolve(context.Background(), "owner-1", "2001:db8::68")
	require.NoError(t, err)
	assert.Equal(t, "abc", gotQuery.Get("key"))
	assert.Equal(t, "2001:db8::68", gotQuery.Get("ip"))
}

func TestTransportFailureIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	storage := newMemStorage()
	cache := newTestCache(storage, server.URL)

	_, err := cache.Resolve(context.Background(), "owner-1", "")
	require.Error(t, err)
}
