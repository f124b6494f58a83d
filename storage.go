package httpcache

import (
	"container/list"
	"context"
	"sync"
)

// CacheStorage is the backend-agnostic interface the cache's execution
// pipeline uses to persist CacheEntry values. Implementations under store/
// adapt it to a concrete backend (LevelDB, Redis, Memcache, ...).
type CacheStorage interface {
	// GetEntry returns the entry stored at key, if any.
	GetEntry(ctx context.Context, key string) (entry *CacheEntry, ok bool, err error)
	// PutEntry unconditionally stores entry at key.
	PutEntry(ctx context.Context, key string, entry *CacheEntry) error
	// RemoveEntry deletes the entry at key, if any. Removing an absent key
	// is not an error.
	RemoveEntry(ctx context.Context, key string) error
	// UpdateEntry atomically applies update to the entry currently stored at
	// key (nil if absent) and stores the result. Implementations must retry
	// under contention so a concurrent writer never observes a lost update;
	// update may therefore be called more than once.
	UpdateEntry(ctx context.Context, key string, update func(existing *CacheEntry) (*CacheEntry, error)) error
}

// InternalCacheStorage is the in-process reference CacheStorage: an LRU
// keyed by storage key, evicting the least recently used entry once
// MaxEntries is exceeded. A zero MaxEntries means unbounded.
type InternalCacheStorage struct {
	MaxEntries int
	// OnEvict, if set, is called synchronously with the key and entry being
	// evicted. Used to release any Resource the entry held (see tombstone.go).
	OnEvict func(key string, entry *CacheEntry)

	mu      sync.Mutex
	ll      *list.List
	entries map[string]*list.Element
}

type storageRecord struct {
	key   string
	entry *CacheEntry
}

func (s *InternalCacheStorage) init() {
	if s.ll == nil {
		s.ll = list.New()
		s.entries = make(map[string]*list.Element)
	}
}

// GetEntry implements CacheStorage.
func (s *InternalCacheStorage) GetEntry(_ context.Context, key string) (*CacheEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	elem, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	s.ll.MoveToFront(elem)
	return elem.Value.(*storageRecord).entry, true, nil
}

// PutEntry implements CacheStorage.
func (s *InternalCacheStorage) PutEntry(_ context.Context, key string, entry *CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(key, entry)
	return nil
}

// put assumes s.mu is held.
func (s *InternalCacheStorage) put(key string, entry *CacheEntry) {
	s.init()
	if elem, ok := s.entries[key]; ok {
		elem.Value.(*storageRecord).entry = entry
		s.ll.MoveToFront(elem)
		return
	}
	elem := s.ll.PushFront(&storageRecord{key: key, entry: entry})
	s.entries[key] = elem
	s.evictIfNeeded()
}

func (s *InternalCacheStorage) evictIfNeeded() {
	if s.MaxEntries <= 0 {
		return
	}
	for s.ll.Len() > s.MaxEntries {
		oldest := s.ll.Back()
		if oldest == nil {
			return
		}
		rec := oldest.Value.(*storageRecord)
		s.ll.Remove(oldest)
		delete(s.entries, rec.key)
		if s.OnEvict != nil {
			s.OnEvict(rec.key, rec.entry)
		}
	}
}

// RemoveEntry implements CacheStorage.
func (s *InternalCacheStorage) RemoveEntry(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	elem, ok := s.entries[key]
	if !ok {
		return nil
	}
	rec := elem.Value.(*storageRecord)
	s.ll.Remove(elem)
	delete(s.entries, key)
	if s.OnEvict != nil {
		s.OnEvict(rec.key, rec.entry)
	}
	return nil
}

// UpdateEntry implements CacheStorage. The in-process map is already
// serialized by s.mu, so update is called exactly once under the lock; no
// retry loop is needed the way a networked backend's UpdateEntry needs one.
func (s *InternalCacheStorage) UpdateEntry(_ context.Context, key string, update func(*CacheEntry) (*CacheEntry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	var existing *CacheEntry
	if elem, ok := s.entries[key]; ok {
		existing = elem.Value.(*storageRecord).entry
	}
	next, err := update(existing)
	if err != nil {
		return err
	}
	if next == nil {
		if elem, ok := s.entries[key]; ok {
			s.ll.Remove(elem)
			delete(s.entries, key)
		}
		return nil
	}
	s.put(key, next)
	return nil
}

// Len reports the number of entries currently stored.
func (s *InternalCacheStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	return s.ll.Len()
}
