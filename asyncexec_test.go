package httpcache

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestRequestCollapsingRecordsFollowersAsCacheHit exercises the 20-concurrent-
// requests scenario: with collapsing enabled, only the leader reaches the
// origin and every follower is served from the entry the leader just stored,
// recorded as CacheHit rather than whatever status the leader itself got.
func TestRequestCollapsingRecordsFollowersAsCacheHit(t *testing.T) {
	var originHits int64
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&originHits, 1)
		<-release
		w.Header().Set("Cache-Control", "public, max-age=60")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tp, err := NewTransport(WithStorage(newMockStorage()), WithRequestCollapsing(true))
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	client := tp.Client()

	const followers = 19
	const total = followers + 1
	statuses := make([]CacheResponseStatus, total)
	var started, wg sync.WaitGroup
	started.Add(total)
	wg.Add(total)
	for i := 0; i < total; i++ {
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest("GET", server.URL+"/", nil)
			started.Done()
			resp, err := client.Do(req)
			if err != nil {
				t.Errorf("request %d failed: %v", i, err)
				return
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)
			statuses[i] = ResponseStatus(resp)
		}(i)
	}

	// Wait for every goroutine to be about to call Do, then give the runtime
	// a little more room to actually register each one as a follower on the
	// in-flight leader before the origin is allowed to respond.
	started.Wait()
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&originHits); got != 1 {
		t.Fatalf("origin hit %d times, want exactly 1", got)
	}

	var misses, hits int
	for _, s := range statuses {
		switch s {
		case CacheMiss:
			misses++
		case CacheHit:
			hits++
		default:
			t.Errorf("unexpected status %v", s)
		}
	}
	if misses != 1 {
		t.Errorf("got %d CacheMiss responses, want exactly 1 (the leader)", misses)
	}
	if hits != followers {
		t.Errorf("got %d CacheHit responses, want exactly %d (the followers)", hits, followers)
	}
}
