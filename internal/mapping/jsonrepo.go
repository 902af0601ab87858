package mapping

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/domain"
	"github.com/ObviusOwl/amc2cached/internal/objectstore"
)

// JsonRepo keeps the authoritative copy of the mapping set as one JSON
// array document in an object store, useful for keeping mappings alongside
// the rest of a backup on S3. It lazily loads the document on first access
// into an in-memory SqliteRepo cache and writes the whole document back on
// every mutation; mappings are assumed to be both small and rarely written.
type JsonRepo struct {
	filename string
	backend  objectstore.ObjectStore
	cache    Repo

	mu     sync.Mutex
	loaded bool
	log    zerolog.Logger
}

var _ Repo = (*JsonRepo)(nil)

// NewJsonRepo builds a JsonRepo. filename is the object name within
// backend, e.g. "mappings.json".
func NewJsonRepo(filename string, backend objectstore.ObjectStore, log zerolog.Logger) (*JsonRepo, error) {
	cache, err := NewSqliteRepo(":memory:", log)
	if err != nil {
		return nil, err
	}
	return &JsonRepo{
		filename: filename,
		backend:  backend,
		cache:    cache,
		log:      log.With().Str("module", "mapping.json").Logger(),
	}, nil
}

type jsonMapping struct {
	Anidb string `json:"anidb"`
	Tmdb  string `json:"tmdb"`
}

func (r *JsonRepo) load() {
	if r.loaded {
		return
	}
	r.loaded = true

	if err := r.cache.Purge(); err != nil {
		r.log.Error().Err(err).Msg("failed to purge in-memory mapping cache before reload")
		return
	}

	// Repo has no context of its own to propagate (its callers, like the
	// matcher and the CLI commands, don't carry one either); a background
	// context still lets the underlying HTTP/S3 calls apply their own
	// timeouts.
	obj, err := r.backend.Get(context.Background(), r.filename)
	if errors.Is(err, objectstore.ErrObjectNotFound) {
		return
	}
	if err != nil {
		r.log.Error().Err(err).Msg("failed to fetch mapping document")
		return
	}
	if len(obj.Data) == 0 {
		return
	}

	var raw []jsonMapping
	if err := json.Unmarshal(obj.Data, &raw); err != nil {
		r.log.Error().Err(err).Msg("failed to decode mapping document, proceeding with an empty cache")
		return
	}

	values := make([]domain.AnimeMapping, 0, len(raw))
	for _, m := range raw {
		values = append(values, domain.AnimeMapping{Anidb: m.Anidb, Tmdb: m.Tmdb})
	}
	if len(values) > 0 {
		if err := r.cache.Store(values, false); err != nil {
			r.log.Error().Err(err).Msg("failed to populate mapping cache from document")
		}
	}
}

func (r *JsonRepo) save() error {
	values, err := r.cache.Dump()
	if err != nil {
		return err
	}
	raw := make([]jsonMapping, 0, len(values))
	for _, v := range values {
		raw = append(raw, jsonMapping{Anidb: v.Anidb, Tmdb: v.Tmdb})
	}
	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encode mapping document")
	}
	st := objectstore.Stat{ContentType: "text/json"}
	return r.backend.Put(context.Background(), r.filename, objectstore.NewObject(st, data))
}

func (r *JsonRepo) ResolveTmdb(query domain.AnimeMapping) ([]domain.AnimeMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	return r.cache.ResolveTmdb(query)
}

func (r *JsonRepo) ResolveAnidb(query domain.AnimeMapping) ([]domain.AnimeMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	return r.cache.ResolveAnidb(query)
}

func (r *JsonRepo) Load(query domain.AnimeMapping) (*domain.AnimeMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	return r.cache.Load(query)
}

func (r *JsonRepo) Store(values []domain.AnimeMapping, replace bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	if err := r.cache.Store(values, replace); err != nil {
		return err
	}
	return r.save()
}

func (r *JsonRepo) Remove(value domain.AnimeMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	if err := r.cache.Remove(value); err != nil {
		return err
	}
	return r.save()
}

func (r *JsonRepo) Dump() ([]domain.AnimeMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	return r.cache.Dump()
}

func (r *JsonRepo) Purge() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	if err := r.cache.Purge(); err != nil {
		return err
	}
	return r.save()
}

// ensureJSONSuffix appends ".json" to name if it doesn't already end with
// it (case-insensitively).
func ensureJSONSuffix(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		return name
	}
	return name + ".json"
}
