package httpcache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"
)

func timeFromUnixNano(nanos int64) time.Time {
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos).UTC()
}

// HttpCacheEntrySerializer converts a CacheEntry to and from a byte slice,
// the form every backend CacheStorage under store/ ultimately persists.
type HttpCacheEntrySerializer interface {
	Serialize(entry *CacheEntry) ([]byte, error)
	Deserialize(data []byte) (*CacheEntry, error)
}

// wireEntry is the gob-encodable shadow of CacheEntry: Resource is not
// itself serializable (it may be backed by an open file or a remote blob),
// so the serializer carries the resource's bytes separately and the caller
// reconstitutes a Resource via a ResourceFactory on deserialize.
type wireEntry struct {
	RequestInstant  int64 // unix nanos
	ResponseInstant int64
	Status          int
	Headers         Header
	ResourceBytes   []byte
	HasResource     bool
	VariantMap      map[string]string
	RequestMethod   string
	RequestURI      string
}

// GobEntrySerializer implements HttpCacheEntrySerializer using encoding/gob,
// matching the serialization style already used for the rest of this pack's
// in-process and disk-backed caches.
type GobEntrySerializer struct {
	// ResourceFactory materializes ResourceBytes back into a Resource on
	// Deserialize. HeapResourceFactory is used if nil.
	ResourceFactory ResourceFactory
}

func (s GobEntrySerializer) factory() ResourceFactory {
	if s.ResourceFactory != nil {
		return s.ResourceFactory
	}
	return HeapResourceFactory{}
}

// Serialize implements HttpCacheEntrySerializer.
func (s GobEntrySerializer) Serialize(entry *CacheEntry) ([]byte, error) {
	w := wireEntry{
		RequestInstant:  entry.RequestInstant.UnixNano(),
		ResponseInstant: entry.ResponseInstant.UnixNano(),
		Status:          entry.Status,
		Headers:         entry.Headers,
		VariantMap:      entry.VariantMap,
		RequestMethod:   entry.RequestMethod,
		RequestURI:      entry.RequestURI,
	}
	if entry.Resource != nil {
		data, err := entry.Resource.Bytes()
		if err != nil {
			return nil, fmt.Errorf("httpcache: serialize resource: %w", err)
		}
		w.ResourceBytes = data
		w.HasResource = true
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&w); err != nil {
		return nil, fmt.Errorf("httpcache: serialize entry: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize implements HttpCacheEntrySerializer.
func (s GobEntrySerializer) Deserialize(data []byte) (*CacheEntry, error) {
	var w wireEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return nil, fmt.Errorf("httpcache: deserialize entry: %w", err)
	}

	entry := &CacheEntry{
		RequestInstant:  timeFromUnixNano(w.RequestInstant),
		ResponseInstant: timeFromUnixNano(w.ResponseInstant),
		Status:          w.Status,
		Headers:         w.Headers,
		VariantMap:      w.VariantMap,
		RequestMethod:   w.RequestMethod,
		RequestURI:      w.RequestURI,
	}
	if w.HasResource {
		resource, err := s.factory().Generate(w.RequestURI, w.ResourceBytes)
		if err != nil {
			return nil, fmt.Errorf("httpcache: materialize resource: %w", err)
		}
		entry.Resource = resource
	}
	return entry, nil
}
