// Package objectstore implements the content-addressed object store
// abstraction and its backends: filesystem (xattr-tagged), S3-compatible,
// rate-limited HTTP upstream, a layered read-through cache over any two of
// the above, and a null store. Every backend implements ObjectStore.
package objectstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Sentinel errors every backend returns for the two boundary conditions
// the cache and the API layer need to distinguish from generic I/O
// failure. Wrap with errors.Wrap/Wrapf and check with errors.Is.
var (
	ErrObjectNotFound    = errors.New("object not found")
	ErrWriteNotSupported = errors.New("store does not support writes")
	// ErrCorrupt marks a parse failure of a stored object's bytes, kept
	// distinct from ErrObjectNotFound so the cache never treats a corrupt
	// upstream response the same as a missing one.
	ErrCorrupt = errors.New("object is corrupt")
)

// DefaultContentType is used whenever a store cannot determine a more
// specific type.
const DefaultContentType = "application/octet-stream"

// Stat is the metadata carried by every object, with or without its bytes.
type Stat struct {
	ContentType  string
	LastModified time.Time
	LastFetched  time.Time
	// TTL is the object's own remaining-life hint; negative means
	// never-expire. A read-through cache clamps this against its own TTU.
	TTL  time.Duration
	Size int64
}

// IsExpired reports whether the object is stale relative to ttl as of now.
// A negative ttl never expires.
func (s Stat) IsExpired(ttl time.Duration, now time.Time) bool {
	if ttl < 0 {
		return false
	}
	return !now.Before(s.LastFetched.Add(ttl))
}

// Object is a Stat plus its bytes.
type Object struct {
	Stat
	Data []byte
}

// NewObject builds an Object from a Stat and the object's bytes, deriving
// Size from len(data) for full objects.
func NewObject(stat Stat, data []byte) Object {
	stat.Size = int64(len(data))
	return Object{Stat: stat, Data: data}
}

// ObjectStore is the minimal contract every backend and every layer of the
// cache satisfies. Every method takes a context.Context and must return
// promptly once it is done, whether that means aborting an in-flight HTTP
// request, an S3 call, or a throttler wait.
type ObjectStore interface {
	// Stat returns metadata for name without transferring its bytes.
	// Returns ErrObjectNotFound if name does not exist.
	Stat(ctx context.Context, name string) (Stat, error)
	// Get returns name's metadata and bytes. Returns ErrObjectNotFound if
	// name does not exist.
	Get(ctx context.Context, name string) (Object, error)
	// Put stores obj under name. Read-only stores return
	// ErrWriteNotSupported.
	Put(ctx context.Context, name string, obj Object) error
}
