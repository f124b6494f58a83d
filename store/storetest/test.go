// Package storetest holds conformance helpers shared by the store/*
// ByteCacheStorage backends, so each backend's own test file only has to
// wire up its constructor and call into a common exercise routine.
package storetest

import (
	"bytes"
	"context"
	"testing"

	"github.com/cachewire/httpcache"
)

// ExerciseByteCacheStorage drives a httpcache.ByteCacheStorage through a
// get/set/get/delete/get cycle and fails t if any step doesn't round-trip.
func ExerciseByteCacheStorage(t *testing.T, cache httpcache.ByteCacheStorage) {
	t.Helper()
	ctx := context.Background()
	key := "testKey"
	_, ok, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if ok {
		t.Fatal("retrieved key before adding it")
	}

	val := []byte("some bytes")
	if err := cache.Set(ctx, key, val); err != nil {
		t.Fatalf("error setting key: %v", err)
	}

	retVal, ok, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if !ok {
		t.Fatal("could not retrieve an element we just added")
	}
	if !bytes.Equal(retVal, val) {
		t.Fatal("retrieved a different value than what we put in")
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Fatalf("error deleting key: %v", err)
	}

	_, ok, err = cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if ok {
		t.Fatal("deleted key still present")
	}
}

// staleMarker is the subset of backends (leveldbstore, diskstore,
// freecachestore, memcachestore, blobstore, hazelcaststore, postgresstore)
// that keep a stale flag alongside the plain ByteCacheStorage contract.
// The core transport does not call these methods.
type staleMarker interface {
	httpcache.ByteCacheStorage
	MarkStale(ctx context.Context, key string) error
	IsStale(ctx context.Context, key string) (bool, error)
	GetStale(ctx context.Context, key string) ([]byte, bool, error)
}

// ExerciseStaleMarking drives a staleMarker through marking an entry stale
// and recovering it via GetStale, independent of the plain Get path.
func ExerciseStaleMarking(t *testing.T, cache staleMarker) {
	t.Helper()
	ctx := context.Background()
	key := "staleKey"
	val := []byte("stale-capable value")

	if err := cache.Set(ctx, key, val); err != nil {
		t.Fatalf("error setting key: %v", err)
	}

	if stale, err := cache.IsStale(ctx, key); err != nil {
		t.Fatalf("error checking stale state: %v", err)
	} else if stale {
		t.Fatal("freshly set entry reported stale")
	}

	if err := cache.MarkStale(ctx, key); err != nil {
		t.Fatalf("error marking stale: %v", err)
	}

	stale, err := cache.IsStale(ctx, key)
	if err != nil {
		t.Fatalf("error checking stale state: %v", err)
	}
	if !stale {
		t.Fatal("entry was not marked stale")
	}

	got, ok, err := cache.GetStale(ctx, key)
	if err != nil {
		t.Fatalf("error getting stale entry: %v", err)
	}
	if !ok {
		t.Fatal("GetStale reported missing entry after MarkStale")
	}
	if !bytes.Equal(got, val) {
		t.Fatal("GetStale returned a different value than what was set")
	}
}
