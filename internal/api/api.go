// Package api exposes the cache's content over a thin net/http.ServeMux,
// mirroring the original FastAPI routers one-for-one in operation: raw
// cached anidb/tmdb documents, the merged per-anime view, and the mapping
// confirm/forget endpoints. No routing framework, no HATEOAS views — a
// handler reads its dependencies off one *app.Deps and writes JSON or the
// object bytes directly.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/anidb"
	"github.com/ObviusOwl/amc2cached/internal/app"
	"github.com/ObviusOwl/amc2cached/internal/domain"
	"github.com/ObviusOwl/amc2cached/internal/merge"
	"github.com/ObviusOwl/amc2cached/internal/objectstore"
	"github.com/ObviusOwl/amc2cached/internal/tmdb"
)

// Server wires the route table to a dependency bundle. It implements
// http.Handler directly so main can hand it straight to http.ListenAndServe.
type Server struct {
	deps *app.Deps
	mux  *http.ServeMux
	log  zerolog.Logger
}

// NewServer builds a Server over deps and registers every route.
func NewServer(deps *app.Deps) *Server {
	s := &Server{deps: deps, mux: http.NewServeMux(), log: deps.Log.With().Str("module", "api").Logger()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /anidb/shows/{aid}", s.handleAnidbShow)
	s.mux.HandleFunc("GET /anidb/images/{name}", s.handleObjectGet(func() objectstore.ObjectStore { return s.deps.AnidbImageStore }))
	s.mux.HandleFunc("HEAD /anidb/images/{name}", s.handleObjectHead(func() objectstore.ObjectStore { return s.deps.AnidbImageStore }))

	s.mux.HandleFunc("GET /tmdb/shows/{lang}/{id}", s.handleTmdbShow)
	s.mux.HandleFunc("GET /tmdb/images/{name}", s.handleObjectGet(func() objectstore.ObjectStore { return s.deps.TmdbImageStore }))
	s.mux.HandleFunc("HEAD /tmdb/images/{name}", s.handleObjectHead(func() objectstore.ObjectStore { return s.deps.TmdbImageStore }))

	s.mux.HandleFunc("GET /anime/{id}", s.handleAnime)

	s.mux.HandleFunc("GET /match", s.handleMatchSearch)
	s.mux.HandleFunc("GET /match/{id}", s.handleMatchGet)
	s.mux.HandleFunc("PUT /match/{id}", s.handleMatchPut)
	s.mux.HandleFunc("DELETE /match/{id}", s.handleMatchDelete)
}

// handleAnidbShow serves the unchanged cached anidb anime XML for an aid.
func (s *Server) handleAnidbShow(w http.ResponseWriter, r *http.Request) {
	aid := r.PathValue("aid")
	obj, err := s.deps.AnidbAnimeStore.Get(r.Context(), aid+".xml")
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeObject(w, obj, "text/xml")
}

// handleTmdbShow serves the unchanged cached tmdb composed show document
// for a given language and tmdb id.
func (s *Server) handleTmdbShow(w http.ResponseWriter, r *http.Request) {
	lang := r.PathValue("lang")
	id := r.PathValue("id")
	obj, err := s.deps.TmdbShowStore.Get(r.Context(), lang+"/"+id+".json")
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeObject(w, obj, "text/json")
}

// handleObjectGet returns a handler serving a raw object from the store
// pick returns, by the {name} path value.
func (s *Server) handleObjectGet(pick func() objectstore.ObjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		obj, err := pick().Get(r.Context(), name)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeObject(w, obj, "")
	}
}

// handleObjectHead returns a handler reporting an object's Stat without its
// bytes, for HEAD requests.
func (s *Server) handleObjectHead(pick func() objectstore.ObjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		stat, err := pick().Stat(r.Context(), name)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeStat(w, stat)
	}
}

// handleAnime resolves id through the identifier codec and returns the
// merged/normalized Anime: a bare anidb or tmdb id is served straight from
// its own catalog entry, a mapping id is combined across both.
func (s *Server) handleAnime(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	ident, err := domain.ParseIdentifier(raw)
	if err != nil {
		http.Error(w, "invalid anime id", http.StatusNotFound)
		return
	}

	switch {
	case ident.Anidb != nil:
		anime, err := s.getAnidbAnime(r.Context(), ident.Anidb.String())
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, anime)

	case ident.Tmdb != nil:
		anime, err := s.getTmdbAnime(r.Context(), "en", ident.Tmdb.String())
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, anime)

	case ident.TmdbSeason != nil:
		anime, err := s.getTmdbAnime(r.Context(), "en", ident.TmdbSeason.Show.String())
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, anime)

	case ident.Mapping != nil:
		m := ident.Mapping
		anidbAnime, err := s.getAnidbAnime(r.Context(), m.Anidb.String())
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		tmdbAnime, err := s.getTmdbAnime(r.Context(), "en", m.Tmdb.Show.String())
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		combined, err := merge.Combine(anidbAnime, tmdbAnime, m.Tmdb.Season)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, combined)

	default:
		http.Error(w, "invalid anime id", http.StatusNotFound)
	}
}

func (s *Server) getAnidbAnime(ctx context.Context, aid string) (domain.Anime, error) {
	obj, err := s.deps.AnidbAnimeStore.Get(ctx, aid+".xml")
	if err != nil {
		return domain.Anime{}, err
	}
	return anidb.ParseAnimeXML(obj.Data)
}

func (s *Server) getTmdbAnime(ctx context.Context, lang, tid string) (domain.Anime, error) {
	obj, err := s.deps.TmdbShowStore.Get(ctx, lang+"/"+tid+".json")
	if err != nil {
		return domain.Anime{}, err
	}
	return tmdb.ParseAnimeJSON(obj.Data, lang)
}

// handleMatchSearch runs a free-text title against the anidb title index,
// surfacing both confirmed-mapping and fresh tmdb-search candidates.
func (s *Server) handleMatchSearch(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		http.Error(w, "title must not be empty", http.StatusBadRequest)
		return
	}
	results, err := s.deps.Matcher.MatchTitle(domain.Title{Value: title})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, results)
}

func (s *Server) parseMatchID(w http.ResponseWriter, r *http.Request) (domain.AnimeMappingID, bool) {
	ident, err := domain.ParseIdentifier(r.PathValue("id"))
	if err != nil || ident.Mapping == nil {
		http.Error(w, "invalid anime id", http.StatusNotFound)
		return domain.AnimeMappingID{}, false
	}
	return *ident.Mapping, true
}

func (s *Server) handleMatchGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseMatchID(w, r)
	if !ok {
		return
	}
	query := domain.AnimeMapping{Anidb: id.Anidb.String(), Tmdb: id.Tmdb.String()}
	match, err := s.deps.MappingRepo.Load(query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if match == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, match)
}

// handleMatchPut confirms the pair named by id, idempotently: an existing
// row is left untouched rather than re-saved.
func (s *Server) handleMatchPut(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseMatchID(w, r)
	if !ok {
		return
	}
	query := domain.AnimeMapping{Anidb: id.Anidb.String(), Tmdb: id.Tmdb.String()}
	existing, err := s.deps.MappingRepo.Load(query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing == nil {
		if err := s.deps.MappingRepo.Store([]domain.AnimeMapping{query}, true); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMatchDelete forgets the pair named by id, idempotently.
func (s *Server) handleMatchDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseMatchID(w, r)
	if !ok {
		return
	}
	query := domain.AnimeMapping{Anidb: id.Anidb.String(), Tmdb: id.Tmdb.String()}
	existing, err := s.deps.MappingRepo.Load(query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		if err := s.deps.MappingRepo.Remove(query); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps an ObjectStore error to its HTTP status: a parse
// failure (ErrCorrupt) must not be reported as a plain 404, since the
// object exists but the cache could not make sense of it.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, objectstore.ErrCorrupt):
		s.log.Warn().Err(err).Msg("upstream document failed to parse")
		http.Error(w, "upstream document could not be parsed", http.StatusBadGateway)
	case errors.Is(err, objectstore.ErrObjectNotFound):
		http.Error(w, "404 page not found", http.StatusNotFound)
	default:
		s.log.Error().Err(err).Msg("store request failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeObject(w http.ResponseWriter, obj objectstore.Object, contentTypeOverride string) {
	ct := obj.ContentType
	if contentTypeOverride != "" {
		ct = contentTypeOverride
	}
	if ct == "" {
		ct = objectstore.DefaultContentType
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Data)
}

func writeStat(w http.ResponseWriter, stat objectstore.Stat) {
	ct := stat.ContentType
	if ct == "" {
		ct = objectstore.DefaultContentType
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.FormatInt(stat.Size, 10))
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		// headers are already flushed at this point, nothing more to do
		// than log it at the caller's level.
		_ = err
	}
}
