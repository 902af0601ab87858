// Package titlerepo implements the durable title map keyed by
// (aid, type, lang, value): a relational backend, and an overlay that
// composes a read-only base with a writable upper layer.
package titlerepo

import "github.com/ObviusOwl/amc2cached/internal/domain"

// Repo is a durable map of Title rows, keyed by (aid, type, lang, value)
// with replace-on-conflict semantics.
type Repo interface {
	// Find returns every TitleEntry matching title; an empty field in the
	// query means "no restriction" on that field. A query with every
	// field empty returns nothing — listing the whole repository is not
	// a supported operation.
	Find(title domain.Title) ([]domain.TitleEntry, error)
	Store(entry domain.TitleEntry) error
	Purge() error
	Remove(title domain.Title) error
}

// queryHasAnyField reports whether title carries at least one
// non-wildcard field, the precondition Find requires before it will touch
// the backing store.
func queryHasAnyField(title domain.Title) bool {
	return title.Value != "" || title.Lang != "" || title.Type != "" || title.Aid != ""
}
