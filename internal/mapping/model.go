// Package mapping persists confirmed (anidb, tmdb-season) pairs and
// resolves a free-text title into candidate pairs by consulting the
// mapping repository before the tmdb title search.
package mapping

import "github.com/ObviusOwl/amc2cached/internal/domain"

// Repo is a durable map of confirmed anidb<->tmdb-season pairs, primary
// keyed on the (anidb, tmdb) pair itself with replace-on-conflict
// semantics.
type Repo interface {
	// ResolveTmdb returns every mapping whose anidb id matches
	// query.Anidb. query.Anidb must be set.
	ResolveTmdb(query domain.AnimeMapping) ([]domain.AnimeMapping, error)
	// ResolveAnidb returns every mapping whose tmdb id matches
	// query.Tmdb. query.Tmdb must be set.
	ResolveAnidb(query domain.AnimeMapping) ([]domain.AnimeMapping, error)
	// Load returns the one mapping matching both ids, or nil if absent.
	// Both query.Anidb and query.Tmdb must be set.
	Load(query domain.AnimeMapping) (*domain.AnimeMapping, error)
	// Store persists values. When replace is true, any existing row
	// sharing either id with an incoming pair is deleted first, so a
	// confirmed anidb id never maps to more than one tmdb id and vice
	// versa.
	Store(values []domain.AnimeMapping, replace bool) error
	Remove(value domain.AnimeMapping) error
	Dump() ([]domain.AnimeMapping, error)
	Purge() error
}

// TitleMappingResult is one candidate (anidb, tmdb) pairing surfaced by
// TitleMatcher, tagged with how it was produced.
type TitleMappingResult struct {
	Anidb         domain.Title `json:"anidb"`
	Tmdb          domain.Title `json:"tmdb"`
	IsFromMatch   bool         `json:"isFromMatch"`
	IsFromStorage bool         `json:"isFromStorage"`
}
