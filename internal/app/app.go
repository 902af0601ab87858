// Package app bundles every constructed dependency this service needs —
// object stores, title repositories, the mapping repository and matcher,
// notification — into one value built once at start-up and passed
// explicitly to the API handlers and admin commands. No package-level
// init() side effects, no sync.Once-memoized globals standing in for a
// Python lru_cache singleton.
package app

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/anidb"
	"github.com/ObviusOwl/amc2cached/internal/config"
	"github.com/ObviusOwl/amc2cached/internal/mapping"
	"github.com/ObviusOwl/amc2cached/internal/notification"
	"github.com/ObviusOwl/amc2cached/internal/objectstore"
	"github.com/ObviusOwl/amc2cached/internal/titlerepo"
	"github.com/ObviusOwl/amc2cached/internal/tmdb"
)

// Deps is the fully wired dependency bundle backing both the HTTP API and
// the CLI commands: every upstream store, title repository, the mapping
// repository and matcher, and the notification service, built once at
// start-up and passed down explicitly rather than reached for as a global.
type Deps struct {
	Log      zerolog.Logger
	Settings config.Settings

	AnidbAnimeStore objectstore.ObjectStore
	AnidbImageStore objectstore.ObjectStore
	TmdbShowStore   objectstore.ObjectStore
	TmdbImageStore  objectstore.ObjectStore

	AnidbTitles titlerepo.Repo
	TmdbTitles  titlerepo.Repo

	MappingRepo mapping.Repo
	Matcher     *mapping.TitleMatcher

	Notify notification.Service
}

// New builds a Deps from settings: it constructs every upstream store
// wrapped in its CachedStore, the anidb title index, the tmdb live title
// search client, the mapping repository (sqlite or JSON-over-object-store,
// per settings.AnimeMappingURL's scheme) and the title matcher over it
// all. Every HTTP-backed store's error-gate backoff and the anidb ban
// callback are wired to notify, keeping internal/objectstore and
// internal/anidb free of any import of internal/notification themselves.
func New(settings config.Settings, log zerolog.Logger) (*Deps, error) {
	notify := notification.NewService(log, settings.DiscordWebhookURL)
	creds := objectstore.S3Credentials{AccessKey: settings.S3AccessKey, SecretKey: settings.S3SecretKey}

	anidbTitlesStore, err := buildCachedStore(
		func() (objectstore.ObjectStore, error) { return anidb.NewTitlesBackend(settings.AnidbTitlesURL, log) },
		settings.AnidbTitlesCacheURL, settings.AnidbTitlesCacheTime, creds, log, notify, "anidb.titles",
	)
	if err != nil {
		return nil, err
	}
	titleIndex, err := anidb.NewTitleIndex(anidbTitlesStore, log)
	if err != nil {
		return nil, err
	}

	anidbAnimeStore, err := buildCachedStore(
		func() (objectstore.ObjectStore, error) { return anidb.NewAnimeBackend(settings.AnidbAPIURL, log, notify.OnBan) },
		settings.AnidbAPICacheURL, settings.AnidbAPICacheTime, creds, log, notify, "anidb.anime",
	)
	if err != nil {
		return nil, err
	}

	anidbImageStore, err := buildCachedStore(
		func() (objectstore.ObjectStore, error) { return anidb.NewImageStore(settings.AnidbImageURL, log), nil },
		settings.AnidbImageCacheURL, settings.AnidbImageCacheTime, creds, log, notify, "anidb.image",
	)
	if err != nil {
		return nil, err
	}

	tmdbShowStore, err := buildCachedStore(
		func() (objectstore.ObjectStore, error) { return tmdb.NewShowBackend(tmdb.DefaultAPIURL, settings.TmdbAPIKey, log) },
		settings.TmdbAPICacheURL, settings.TmdbAPICacheTime, creds, log, notify, "tmdb.shows",
	)
	if err != nil {
		return nil, err
	}

	tmdbImageStore, err := buildCachedStore(
		func() (objectstore.ObjectStore, error) { return tmdb.NewShowImageStore(tmdb.DefaultAPIURL, settings.TmdbAPIKey, log) },
		settings.TmdbImageCacheURL, settings.TmdbImageCacheTime, creds, log, notify, "tmdb.images",
	)
	if err != nil {
		return nil, err
	}

	tmdbTitles := tmdb.NewTitleRepo(tmdb.DefaultAPIURL, log)

	mappingRepo, err := mapping.NewRepoFromURL(settings.AnimeMappingURL, creds, log)
	if err != nil {
		return nil, err
	}

	matcher := mapping.NewTitleMatcher(titleIndex, tmdbTitles, mappingRepo)

	return &Deps{
		Log:             log,
		Settings:        settings,
		AnidbAnimeStore: anidbAnimeStore,
		AnidbImageStore: anidbImageStore,
		TmdbShowStore:   tmdbShowStore,
		TmdbImageStore:  tmdbImageStore,
		AnidbTitles:     titleIndex,
		TmdbTitles:      tmdbTitles,
		MappingRepo:     mappingRepo,
		Matcher:         matcher,
		Notify:          notify,
	}, nil
}

// backoffWirer is implemented by stores that wrap an *objectstore.HTTPStore
// (or an equivalent hand-rolled gate pair) internally and so cannot be
// wired via a direct field assignment from outside the package.
type backoffWirer interface {
	SetOnBackoff(func(error))
}

// buildCachedStore constructs the upstream backend via build, wires its
// backoff hook (if it has one — a file-backed test/offline fallback has no
// error gate to trip) to notify under name, resolves the cache-side
// backend from cacheURL and layers a CachedStore with the given ttu over
// both.
func buildCachedStore(
	build func() (objectstore.ObjectStore, error),
	cacheURL string,
	ttu time.Duration,
	creds objectstore.S3Credentials,
	log zerolog.Logger,
	notify notification.Service,
	name string,
) (objectstore.ObjectStore, error) {
	backend, err := build()
	if err != nil {
		return nil, err
	}
	hook := func(cause error) { notify.OnBackoff(name, cause) }
	switch s := backend.(type) {
	case *objectstore.HTTPStore:
		s.OnBackoff = hook
	case backoffWirer:
		s.SetOnBackoff(hook)
	}
	// Anything else (e.g. a file-backed test/offline fallback) has no
	// error gate to trip and is simply left unwired.
	cache, err := objectstore.NewCacheStoreFromURL(cacheURL, creds, log)
	if err != nil {
		return nil, err
	}
	return objectstore.NewCachedStore(backend, cache, ttu, log), nil
}
