package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-state/internal/config"
)

// Records older than this are treated as stale and re-resolved
const recordTTL = 20 * 24 * time.Hour

// Record is a resolved approximate location for one session owner
type Record struct {
	Country      string `json:"country"`
	City         string `json:"city"`
	ResolvedAtMs int64  `json:"resolved_at_ms"`
}

// Storage is the durable store location records are cached in
type Storage interface {
	ReadBlob(ctx context.Context, key string) ([]byte, bool, error)
	WriteBlob(ctx context.Context, key string, data []byte) error
	DeleteBlob(ctx context.Context, key string) error
}

type geoResponse struct {
	Ok      bool   `json:"ok"`
	Country string `json:"country"`
	City    string `json:"city"`
	Error   string `json:"error"`
}

// Cache resolves and caches per-owner locations with a TTL policy. A valid
// cached record is returned without network activity; anything else falls
// through to an IP-based geo lookup.
type Cache struct {
	storage   Storage
	lookupURL string
	client    *http.Client
	log       *logrus.Logger
	now       func() time.Time
}

// NewCache creates a location cache backed by storage and the configured
// geo lookup endpoint
func NewCache(storage Storage, cfg *config.Config, log *logrus.Logger) *Cache {
	return &Cache{
		storage:   storage,
		lookupURL: cfg.Geo.LookupURL,
		client:    &http.Client{Timeout: cfg.Geo.Timeout},
		log:       log,
		now:       time.Now,
	}
}

// Resolve returns the owner's location, refreshing it over the network when
// the cached record is absent, malformed, or older than 20 days. A lookup
// failure returns an error and persists nothing; callers treat an unresolved
// location as a reason to skip telemetry, not as fatal.
func (c *Cache) Resolve(ctx context.Context, owner, clientIP string) (Record, error) {
	key := cacheKey(owner)

	if record, ok := c.readFresh(ctx, key); ok {
		return record, nil
	}

	record, err := c.lookup(ctx, clientIP)
	if err != nil {
		return Record{}, err
	}

	if data, err := json.Marshal(record); err == nil {
		if err := c.storage.WriteBlob(ctx, key, data); err != nil {
			c.log.WithError(err).Warn("Failed to persist location record")
		}
	}

	return record, nil
}

// readFresh returns the persisted record if it is structurally valid and
// within the TTL. Stale or malformed records are discarded.
func (c *Cache) readFresh(ctx context.Context, key string) (Record, bool) {
	data, found, err := c.storage.ReadBlob(ctx, key)
	if err != nil {
		c.log.WithError(err).Warn("Failed to read location record")
		return Record{}, false
	}
	if !found {
		return Record{}, false
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		c.discard(ctx, key)
		return Record{}, false
	}

	// Empty country/city counts as malformed, same as missing fields
	if record.Country == "" || record.City == "" || record.ResolvedAtMs == 0 {
		c.discard(ctx, key)
		return Record{}, false
	}

	resolvedAt := time.UnixMilli(record.ResolvedAtMs)
	if c.now().Sub(resolvedAt) > recordTTL {
		c.discard(ctx, key)
		return Record{}, false
	}

	return record, true
}

// lookup performs an IP-based geo resolution against the lookup endpoint
func (c *Cache) lookup(ctx context.Context, clientIP string) (Record, error) {
	lookupURL := c.lookupURL
	if clientIP != "" {
		u, err := url.Parse(c.lookupURL)
		if err != nil {
			return Record{}, fmt.Errorf("invalid geo lookup URL: %w", err)
		}
		query := u.Query()
		query.Set("ip", clientIP)
		u.RawQuery = query.Encode()
		lookupURL = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return Record{}, fmt.Errorf("failed to build geo lookup request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.client.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("geo lookup failed: %w", err)
	}
	defer resp.Body.Close()

	var geo geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return Record{}, fmt.Errorf("failed to decode geo lookup response: %w", err)
	}

	if !geo.Ok {
		return Record{}, fmt.Errorf("geo lookup rejected: %s", geo.Error)
	}

	if geo.Country == "" || geo.City == "" {
		return Record{}, fmt.Errorf("geo lookup returned incomplete location")
	}

	return Record{
		Country:      geo.Country,
		City:         geo.City,
		ResolvedAtMs: c.now().UnixMilli(),
	}, nil
}

func (c *Cache) discard(ctx context.Context, key string) {
	if err := c.storage.DeleteBlob(ctx, key); err != nil {
		c.log.WithError(err).Warn("Failed to discard stale location record")
	}
}

func cacheKey(owner string) string {
	return fmt.Sprintf("location:%s", owner)
}
