package universe

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"BreakoutScreener/internal/model"
)

// Store persists universe snapshots by key.
type Store interface {
	// Get returns nil, nil when no snapshot is stored under key.
	Get(ctx context.Context, key string) (*model.UniverseSnapshot, error)
	Put(ctx context.Context, key string, snap *model.UniverseSnapshot) error
}

// Cache serves the universe from a Store and refreshes it from the Source
// once the stored snapshot is older than TTL.
type Cache struct {
	Source Source
	Store  Store
	TTL    time.Duration
	Key    string

	mu  sync.Mutex
	now func() time.Time
}

// NewCache creates a cache keyed by the source name.
func NewCache(src Source, store Store, ttl time.Duration) *Cache {
	return &Cache{Source: src, Store: store, TTL: ttl, Key: src.Name(), now: time.Now}
}

// Symbols returns the cached list when fresh, otherwise fetches and stores a new snapshot.
func (c *Cache) Symbols(ctx context.Context) ([]string, error) {
	snap, err := c.Snapshot(ctx, false)
	if err != nil {
		return nil, err
	}
	return snap.Symbols, nil
}

// Snapshot returns the current snapshot; force skips the expiry check.
func (c *Cache) Snapshot(ctx context.Context, force bool) (*model.UniverseSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !force {
		cached, err := c.Store.Get(ctx, c.Key)
		if err != nil {
			log.Printf("[WARN] universe cache read failed: %v", err)
		} else if cached != nil && len(cached.Symbols) > 0 && !cached.Expired(now, c.TTL) {
			return cached, nil
		}
	}

	symbols, err := c.Source.FetchSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUniverseUnavailable, err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: source %s returned no symbols", model.ErrUniverseUnavailable, c.Source.Name())
	}

	snap := &model.UniverseSnapshot{Source: c.Source.Name(), Symbols: symbols, FetchedAt: now}
	if err := c.Store.Put(ctx, c.Key, snap); err != nil {
		log.Printf("[WARN] universe cache write failed: %v", err)
	}
	log.Printf("[INFO] universe refreshed from %s: %d symbols", snap.Source, len(symbols))
	return snap, nil
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]model.UniverseSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]model.UniverseSnapshot)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*model.UniverseSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	snap.Symbols = append([]string(nil), snap.Symbols...)
	return &snap, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, snap *model.UniverseSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *snap
	cp.Symbols = append([]string(nil), snap.Symbols...)
	m.items[key] = cp
	return nil
}
