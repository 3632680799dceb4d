package events

import (
	"errors"
	"sort"
	"sync"

	"github.com/mamadbah2/billdesk/internal/domain/models"
)

// ErrStaleStore is returned when a store-scoped result was produced under a
// store selection that has since been replaced.
var ErrStaleStore = errors.New("events: store selection changed while request was in flight")

// StoreChanged is published every time the current store changes. Store is
// nil when the selection was cleared.
type StoreChanged struct {
	Store      *models.Store
	Generation uint64
}

// StoreHandler reacts to a store change.
type StoreHandler func(StoreChanged)

// StoreBroker is an in-process publish/subscribe channel for store changes.
// Handlers run synchronously on the publisher's goroutine.
type StoreBroker struct {
	mu         sync.RWMutex
	generation uint64
	nextID     int
	handlers   map[int]StoreHandler
}

// NewStoreBroker returns a broker at generation zero.
func NewStoreBroker() *StoreBroker {
	return &StoreBroker{handlers: make(map[int]StoreHandler)}
}

// Subscribe registers fn and returns a function that removes it.
func (b *StoreBroker) Subscribe(fn StoreHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish advances the generation and notifies every subscriber exactly once.
func (b *StoreBroker) Publish(store *models.Store) StoreChanged {
	b.mu.Lock()
	b.generation++
	event := StoreChanged{Generation: b.generation}
	if store != nil {
		copied := *store
		event.Store = &copied
	}
	handlers := b.snapshotLocked()
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(event)
	}
	return event
}

// Generation returns the current selection generation. Capture it before a
// store-scoped request and check it with Current afterwards.
func (b *StoreBroker) Generation() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.generation
}

// Current reports whether gen is still the latest generation.
func (b *StoreBroker) Current(gen uint64) bool {
	return b.Generation() == gen
}

func (b *StoreBroker) snapshotLocked() []StoreHandler {
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]StoreHandler, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.handlers[id])
	}
	return out
}
