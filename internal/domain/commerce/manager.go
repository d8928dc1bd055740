package commerce

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-state/internal/domain/telemetry"
)

// Manager hands out one Store per session owner, creating and hydrating
// each lazily on first access. It is constructed once at application start
// and threaded through the HTTP layer.
type Manager struct {
	storage  Storage
	producer telemetry.Producer
	log      *logrus.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a store manager on top of the shared storage and
// telemetry producer
func NewManager(storage Storage, producer telemetry.Producer, log *logrus.Logger) *Manager {
	return &Manager{
		storage:  storage,
		producer: producer,
		log:      log,
		stores:   make(map[string]*Store),
	}
}

// Store returns the owner's store, rehydrating it on first access. The
// lock is not held across hydration, so one owner's slow storage read
// never blocks first access for other owners.
func (m *Manager) Store(ctx context.Context, owner string) *Store {
	m.mu.Lock()
	if store, ok := m.stores[owner]; ok {
		m.mu.Unlock()
		return store
	}
	m.mu.Unlock()

	store := NewStore(ctx, owner, m.storage, m.producer, m.log)

	m.mu.Lock()
	defer m.mu.Unlock()

	// A concurrent first access for the same owner may have won the
	// insert; keep the store that got there first
	if existing, ok := m.stores[owner]; ok {
		return existing
	}
	m.stores[owner] = store
	return store
}

// Drain flushes in-flight telemetry across all stores. Called during
// graceful shutdown before the producer is closed.
func (m *Manager) Drain() {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))
	for _, store := range m.stores {
		stores = append(stores, store)
	}
	m.mu.Unlock()

	for _, store := range stores {
		store.Drain()
	}
}
