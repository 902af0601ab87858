package objectstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// memStore is an in-memory ObjectStore used to drive CachedStore tests
// without touching the filesystem.
type memStore struct {
	mu   sync.Mutex
	objs map[string]Object
	// fail, if set, makes Stat/Get fail for every name instead of
	// reporting ErrObjectNotFound, simulating an upstream 5xx.
	fail bool
	// calls counts Get invocations, for the single-upstream-call
	// invariant.
	calls int64
}

func newMemStore() *memStore { return &memStore{objs: map[string]Object{}} }

func (m *memStore) Stat(_ context.Context, name string) (Stat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return Stat{}, errors.New("simulated upstream failure")
	}
	o, ok := m.objs[name]
	if !ok {
		return Stat{}, errors.Wrapf(ErrObjectNotFound, "%q", name)
	}
	return o.Stat, nil
}

func (m *memStore) Get(_ context.Context, name string) (Object, error) {
	atomic.AddInt64(&m.calls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return Object{}, errors.New("simulated upstream failure")
	}
	o, ok := m.objs[name]
	if !ok {
		return Object{}, errors.Wrapf(ErrObjectNotFound, "%q", name)
	}
	return o, nil
}

func (m *memStore) Put(_ context.Context, name string, obj Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objs[name] = obj
	return nil
}

func TestCachedStoreArchivalFallback(t *testing.T) {
	backend := newMemStore()
	cache := newMemStore()
	cs := NewCachedStore(backend, cache, 10*time.Second, zerolog.Nop())

	backend.Put(context.Background(), "k", NewObject(Stat{LastFetched: time.Now(), TTL: -1}, []byte("X")))

	obj, err := cs.Get(context.Background(), "k")
	if err != nil || string(obj.Data) != "X" {
		t.Fatalf("initial get: %v %v", obj, err)
	}

	backend.fail = true
	obj, err = cs.Get(context.Background(), "k")
	if err != nil || string(obj.Data) != "X" {
		t.Fatalf("fresh-cache get during outage: %v %v", obj, err)
	}

	// force the cache entry stale relative to ttu by rewriting it with an
	// old last-fetched timestamp, as if ttu had since elapsed.
	stale := cache.objs["k"]
	stale.LastFetched = time.Now().Add(-time.Hour)
	cache.objs["k"] = stale

	obj, err = cs.Get(context.Background(), "k")
	if err != nil || string(obj.Data) != "X" {
		t.Fatalf("stale-cache archival fallback: %v %v", obj, err)
	}

	if _, err := cs.Get(context.Background(), "k2"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("unknown name during outage: want ErrObjectNotFound, got %v", err)
	}
}

func TestCachedStoreSingleUpstreamCall(t *testing.T) {
	backend := newMemStore()
	cache := newMemStore()
	backend.Put(context.Background(), "k", NewObject(Stat{LastFetched: time.Now(), TTL: -1}, []byte("X")))

	cs := NewCachedStore(backend, cache, time.Minute, zerolog.Nop())

	const n = 20
	var wg sync.WaitGroup
	results := make([][]byte, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			obj, err := cs.Get(context.Background(), "k")
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = obj.Data
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if string(r) != "X" {
			t.Fatalf("caller %d got %q", i, r)
		}
	}
	// CachedStore serializes {read-cache, read-upstream, write-cache} for
	// the whole instance behind one mutex, so the first caller through
	// populates the cache before any other caller's read-cache step runs.
	if got := atomic.LoadInt64(&backend.calls); got != 1 {
		t.Fatalf("backend called %d times, want exactly 1", got)
	}
}

func TestCachedStorePutWriteThrough(t *testing.T) {
	backend := newMemStore()
	cache := newMemStore()
	cs := NewCachedStore(backend, cache, time.Minute, zerolog.Nop())

	obj := NewObject(Stat{LastFetched: time.Now(), TTL: -1}, []byte("Y"))
	if err := cs.Put(context.Background(), "k", obj); err != nil {
		t.Fatal(err)
	}
	if _, ok := backend.objs["k"]; !ok {
		t.Fatal("backend should have the object")
	}
	if _, ok := cache.objs["k"]; !ok {
		t.Fatal("cache should have the object")
	}
}

func TestCachedStorePutRefusedNotWrittenToCache(t *testing.T) {
	backend := &refusingStore{}
	cache := newMemStore()
	cs := NewCachedStore(backend, cache, time.Minute, zerolog.Nop())

	err := cs.Put(context.Background(), "k", NewObject(Stat{}, []byte("Y")))
	if !errors.Is(err, ErrWriteNotSupported) {
		t.Fatalf("want ErrWriteNotSupported, got %v", err)
	}
	if _, ok := cache.objs["k"]; ok {
		t.Fatal("cache must stay untouched when backend refuses the write")
	}
}

type refusingStore struct{}

func (refusingStore) Stat(context.Context, string) (Stat, error) { return Stat{}, ErrObjectNotFound }
func (refusingStore) Get(context.Context, string) (Object, error) {
	return Object{}, ErrObjectNotFound
}
func (refusingStore) Put(context.Context, string, Object) error { return ErrWriteNotSupported }
