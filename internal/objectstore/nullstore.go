package objectstore

import (
	"context"

	"github.com/pkg/errors"
)

// NullStore always reports objects missing and silently discards writes.
// Useful as a cache layer when caching is disabled, or as a write sink
// that should never be consulted for reads.
type NullStore struct{}

var _ ObjectStore = NullStore{}

func (NullStore) Stat(ctx context.Context, name string) (Stat, error) {
	if err := ctx.Err(); err != nil {
		return Stat{}, err
	}
	return Stat{}, errors.Wrapf(ErrObjectNotFound, "null store %q", name)
}

func (NullStore) Get(ctx context.Context, name string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	return Object{}, errors.Wrapf(ErrObjectNotFound, "null store %q", name)
}

func (NullStore) Put(ctx context.Context, _ string, _ Object) error { return ctx.Err() }
