package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-state/internal/domain/location"
	"github.com/your-org/storefront-state/internal/domain/telemetry"
)

// Storage is the durable store commerce state blobs are persisted in
type Storage interface {
	ReadBlob(ctx context.Context, key string) ([]byte, bool, error)
	WriteBlob(ctx context.Context, key string, data []byte) error
}

// Store is the commerce state container for one session owner. Mutations
// are applied and persisted synchronously; telemetry for each mutation is
// emitted from a detached goroutine afterwards, so a slow or failing event
// stream never blocks or corrupts the state change.
//
// Store operations never fail observably: incomplete telemetry context
// degrades to a skipped event, and persistence errors are logged only.
type Store struct {
	key      string
	storage  Storage
	producer telemetry.Producer
	log      *logrus.Logger

	mu    sync.Mutex
	state State

	emits sync.WaitGroup
}

// NewStore creates the store for owner, rehydrating its state from
// storage. A missing or corrupt blob starts the owner from empty state.
func NewStore(ctx context.Context, owner string, storage Storage, producer telemetry.Producer, log *logrus.Logger) *Store {
	s := &Store{
		key:      stateKey(owner),
		storage:  storage,
		producer: producer,
		log:      log,
	}
	s.state = s.load(ctx)
	return s
}

// State returns a snapshot of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// AddToCart merges item into the cart: an existing line with the same ID
// gets its quantity incremented by one, otherwise the item is appended
// with quantity 1. The state change commits before telemetry is attempted.
func (s *Store) AddToCart(ctx context.Context, item CartLine, actor Actor, loc location.Record, deviceInfo string) State {
	s.mu.Lock()
	merged := false
	for i := range s.state.Cart {
		if s.state.Cart[i].ID == item.ID {
			s.state.Cart[i].Quantity++
			merged = true
			break
		}
	}
	if !merged {
		item.Quantity = 1
		s.state.Cart = append(s.state.Cart, item)
	}
	s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(telemetry.Event{
		UserID:    actor.ID,
		Action:    telemetry.ActionAddToCart,
		ProductID: item.ID,
		ShopID:    item.ShopID,
		Device:    deviceInfo,
		Country:   loc.Country,
		City:      loc.City,
	})

	return snapshot
}

// RemoveFromCart removes the line with the given ID, a no-op when absent.
// The emitted event carries the ShopID recorded on the stored line, never
// caller input.
func (s *Store) RemoveFromCart(ctx context.Context, id string, actor Actor, loc location.Record, deviceInfo string) State {
	s.mu.Lock()
	var removed *CartLine
	for i := range s.state.Cart {
		if s.state.Cart[i].ID == id {
			line := s.state.Cart[i]
			removed = &line
			s.state.Cart = append(s.state.Cart[:i], s.state.Cart[i+1:]...)
			break
		}
	}
	if removed != nil {
		s.persistLocked(ctx)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if removed != nil {
		s.emit(telemetry.Event{
			UserID:    actor.ID,
			Action:    telemetry.ActionRemoveFromCart,
			ProductID: removed.ID,
			ShopID:    removed.ShopID,
			Device:    deviceInfo,
			Country:   loc.Country,
			City:      loc.City,
		})
	}

	return snapshot
}

// AddToWishlist appends item unless an entry with the same ID already
// exists. Duplicate adds mutate nothing and emit nothing.
func (s *Store) AddToWishlist(ctx context.Context, item WishlistLine, actor Actor, loc location.Record, deviceInfo string) State {
	s.mu.Lock()
	exists := false
	for i := range s.state.Wishlist {
		if s.state.Wishlist[i].ID == item.ID {
			exists = true
			break
		}
	}
	if !exists {
		s.state.Wishlist = append(s.state.Wishlist, item)
		s.persistLocked(ctx)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if !exists {
		s.emit(telemetry.Event{
			UserID:    actor.ID,
			Action:    telemetry.ActionAddToWishlist,
			ProductID: item.ID,
			ShopID:    item.ShopID,
			Device:    deviceInfo,
			Country:   loc.Country,
			City:      loc.City,
		})
	}

	return snapshot
}

// RemoveFromWishlist mirrors RemoveFromCart, recovering the ShopID from
// the stored entry before it is dropped
func (s *Store) RemoveFromWishlist(ctx context.Context, id string, actor Actor, loc location.Record, deviceInfo string) State {
	s.mu.Lock()
	var removed *WishlistLine
	for i := range s.state.Wishlist {
		if s.state.Wishlist[i].ID == id {
			line := s.state.Wishlist[i]
			removed = &line
			s.state.Wishlist = append(s.state.Wishlist[:i], s.state.Wishlist[i+1:]...)
			break
		}
	}
	if removed != nil {
		s.persistLocked(ctx)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if removed != nil {
		s.emit(telemetry.Event{
			UserID:    actor.ID,
			Action:    telemetry.ActionRemoveFromWishlist,
			ProductID: removed.ID,
			ShopID:    removed.ShopID,
			Device:    deviceInfo,
			Country:   loc.Country,
			City:      loc.City,
		})
	}

	return snapshot
}

// ClearCart resets the cart to empty. Bulk clears are not tracked as
// discrete product events.
func (s *Store) ClearCart(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Cart = []CartLine{}
	s.persistLocked(ctx)
	return s.snapshotLocked()
}

// ClearWishlist resets the wishlist to empty, without telemetry
func (s *Store) ClearWishlist(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Wishlist = []WishlistLine{}
	s.persistLocked(ctx)
	return s.snapshotLocked()
}

// Drain blocks until all in-flight telemetry publishes have finished
func (s *Store) Drain() {
	s.emits.Wait()
}

// emit validates the event and, when complete, publishes it from a
// detached goroutine. Incomplete context drops the event; publish failures
// are logged and discarded, never retried.
func (s *Store) emit(event telemetry.Event) {
	if !event.HasContext() {
		s.log.WithFields(logrus.Fields{
			"action":     event.Action,
			"product_id": event.ProductID,
		}).Debug("Telemetry skipped: incomplete context")
		return
	}

	s.emits.Add(1)
	go func() {
		defer s.emits.Done()
		// The request context may already be canceled by the time this
		// runs; the publish is deliberately detached from it.
		if err := s.producer.Publish(context.Background(), event); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"action":     event.Action,
				"product_id": event.ProductID,
			}).Warn("Telemetry publish failed")
		}
	}()
}

// load rehydrates the state blob, falling back to empty state when the
// blob is missing or fails to parse
func (s *Store) load(ctx context.Context) State {
	empty := State{Cart: []CartLine{}, Wishlist: []WishlistLine{}}

	data, found, err := s.storage.ReadBlob(ctx, s.key)
	if err != nil {
		s.log.WithError(err).WithField("key", s.key).Warn("Failed to read commerce state, starting empty")
		return empty
	}
	if !found {
		return empty
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.log.WithError(err).WithField("key", s.key).Warn("Corrupt commerce state discarded, starting empty")
		return empty
	}

	// A blob with a missing field loads as an empty sequence
	if state.Cart == nil {
		state.Cart = []CartLine{}
	}
	if state.Wishlist == nil {
		state.Wishlist = []WishlistLine{}
	}

	return state
}

func (s *Store) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.state)
	if err != nil {
		s.log.WithError(err).Error("Failed to marshal commerce state")
		return
	}
	if err := s.storage.WriteBlob(ctx, s.key, data); err != nil {
		s.log.WithError(err).WithField("key", s.key).Error("Failed to persist commerce state")
	}
}

func (s *Store) snapshotLocked() State {
	snapshot := State{
		Cart:     make([]CartLine, len(s.state.Cart)),
		Wishlist: make([]WishlistLine, len(s.state.Wishlist)),
	}
	copy(snapshot.Cart, s.state.Cart)
	copy(snapshot.Wishlist, s.state.Wishlist)
	return snapshot
}

func stateKey(owner string) string {
	return fmt.Sprintf("commerce:state:%s", owner)
}
