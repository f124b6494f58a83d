package httpcache

import "sync"

// TombstonedResource wraps a Resource so it can be evicted from storage
// while a response still streaming its bytes keeps it alive: Dispose is
// deferred until every Acquire has a matching Release.
//
// InternalCacheStorage's eviction happens synchronously under its own
// lock, before CachedResponseGenerator has necessarily finished streaming
// a Resource it just opened; without this, an LRU eviction could unlink a
// FileResource's backing file out from under an in-flight read.
type TombstonedResource struct {
	Resource

	mu        sync.Mutex
	refs      int
	tombstone bool
	disposed  bool
}

// NewTombstonedResource wraps r with reference counting.
func NewTombstonedResource(r Resource) *TombstonedResource {
	return &TombstonedResource{Resource: r}
}

// Acquire must be called before a consumer (e.g. a generated response body)
// starts reading the resource, and Release once it's done.
func (t *TombstonedResource) Acquire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refs++
}

// Release drops a reference, disposing the underlying Resource if it has
// been tombstoned and this was the last outstanding reference.
func (t *TombstonedResource) Release() error {
	t.mu.Lock()
	t.refs--
	shouldDispose := t.tombstone && t.refs <= 0 && !t.disposed
	if shouldDispose {
		t.disposed = true
	}
	t.mu.Unlock()
	if shouldDispose {
		return t.Resource.Dispose()
	}
	return nil
}

// Tombstone marks the resource for disposal, disposing it immediately if no
// references are currently outstanding. Call this from a CacheStorage's
// eviction callback instead of calling Dispose directly.
func (t *TombstonedResource) Tombstone() error {
	t.mu.Lock()
	alreadyTombstoned := t.tombstone
	t.tombstone = true
	shouldDispose := t.refs <= 0 && !t.disposed && !alreadyTombstoned
	if shouldDispose {
		t.disposed = true
	}
	t.mu.Unlock()
	if shouldDispose {
		return t.Resource.Dispose()
	}
	return nil
}

// DisposeEvictedResources returns an InternalCacheStorage.OnEvict callback
// that tombstones entry.Resource when it implements *TombstonedResource,
// and disposes any other Resource immediately (the common case: a
// HeapResource's Dispose is a no-op, and a FileResource with no in-flight
// reader is safe to remove right away).
func DisposeEvictedResources(key string, entry *CacheEntry) {
	if entry == nil || entry.Resource == nil {
		return
	}
	if tr, ok := entry.Resource.(*TombstonedResource); ok {
		if err := tr.Tombstone(); err != nil {
			GetLogger().Warn("failed to dispose evicted resource", "key", key, "error", err)
		}
		return
	}
	if err := entry.Resource.Dispose(); err != nil {
		GetLogger().Warn("failed to dispose evicted resource", "key", key, "error", err)
	}
}
