package anidb

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/domain"
	"github.com/ObviusOwl/amc2cached/internal/objectstore"
	"github.com/ObviusOwl/amc2cached/internal/titlerepo"
)

// titlesObjectName is the name addressed within whatever store backs the
// titles dump (an HTTP store ignores it and always fetches its one fixed
// URL; a file store treats it as the file name).
const titlesObjectName = "anime-titles.xml"

// TitleIndex wraps an in-memory title repository with a refresh timer: a
// stale index is purged and reloaded from the underlying object store on
// the next read, never eagerly, so a long-idle process still serves a
// reasonably fresh index on its first query after a long gap.
type TitleIndex struct {
	mu         sync.Mutex
	store      objectstore.ObjectStore
	repo       *titlerepo.SqliteRepo
	validUntil time.Time
	log        zerolog.Logger
}

var _ titlerepo.Repo = (*TitleIndex)(nil)

// NewTitleIndex builds a TitleIndex fetching the titles dump from store.
func NewTitleIndex(store objectstore.ObjectStore, log zerolog.Logger) (*TitleIndex, error) {
	repo, err := titlerepo.NewSqliteRepo(":memory:", log)
	if err != nil {
		return nil, err
	}
	return &TitleIndex{
		store: store,
		repo:  repo,
		log:   log.With().Str("module", "anidb.titleindex").Logger(),
	}, nil
}

func (idx *TitleIndex) load() error {
	if time.Now().Before(idx.validUntil) {
		return nil
	}

	// Find has no context of its own to propagate (titlerepo.Repo predates
	// this refresh path and is consulted from call sites, like the title
	// matcher, that don't carry one either); a background context still
	// lets the underlying HTTP/S3 calls apply their own timeouts.
	obj, err := idx.store.Get(context.Background(), titlesObjectName)
	if err != nil {
		return errors.Wrap(err, "fetch anidb titles dump")
	}

	if err := idx.repo.Purge(); err != nil {
		return err
	}

	age := obj.LastModified
	if age.IsZero() {
		age = time.Now()
	}
	var parseErr error
	err = ParseTitlesXMLBytes(obj.Data, func(t domain.Title) {
		if parseErr != nil {
			return
		}
		if e := idx.repo.Store(domain.TitleEntry{Title: t, Age: age}); e != nil {
			parseErr = e
		}
	})
	if err != nil {
		return errors.Wrapf(objectstore.ErrCorrupt, "parse anidb titles dump: %v", err)
	}
	if parseErr != nil {
		return parseErr
	}

	idx.validUntil = expiryTime(obj.Stat)
	return nil
}

// expiryTime mirrors Persisted.expiry_time: last-fetched + ttl, forever if
// ttl is negative.
func expiryTime(st objectstore.Stat) time.Time {
	if st.TTL < 0 {
		return time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return st.LastFetched.Add(st.TTL)
}

func (idx *TitleIndex) Find(title domain.Title) ([]domain.TitleEntry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx.repo.Find(title)
}

// Store/Purge/Remove exist to satisfy titlerepo.Repo (the index is read
// through Overlay's base slot, which never receives writes). Store and
// Remove act on the in-memory repository, so their effect lasts only until
// the next refresh reloads the dump; Purge is a no-op.
func (idx *TitleIndex) Store(entry domain.TitleEntry) error { return idx.repo.Store(entry) }
func (idx *TitleIndex) Purge() error                        { return nil }
func (idx *TitleIndex) Remove(title domain.Title) error      { return idx.repo.Remove(title) }
