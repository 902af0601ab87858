package tmdb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/httpx"
	"github.com/ObviusOwl/amc2cached/internal/objectstore"
	"github.com/ObviusOwl/amc2cached/internal/ratelimit"
)

const (
	showReqInterval = 250 * time.Millisecond // 4 req/s
	showErrInterval = 15 * time.Minute

	// DefaultAPIURL is the tmdb API root. Unlike the anidb endpoints, this
	// system does not expose it as a config key — only TMDB_API_KEY varies
	// between deployments, the upstream itself does not.
	DefaultAPIURL = "https://api.themoviedb.org/3"
)

var showLanguages = []string{"de", "en"}

// ShowStore composes the many tmdb sub-endpoint calls a single show
// requires (show, images, alternative_titles, one pass per season, one pass
// per episode) into one merged JSON document addressed as "<lang>/<id>.json".
// Stat never reaches the API: existence is established via the title
// search client, not a round trip here.
type ShowStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
	reqGate ratelimit.Gate
	errGate ratelimit.Gate
	log     zerolog.Logger
	// OnBackoff, if set, is called the moment errGate transitions from
	// cold to hot, mirroring HTTPStore.OnBackoff for this store's
	// hand-rolled gate pair.
	OnBackoff func(err error)
}

var _ objectstore.ObjectStore = (*ShowStore)(nil)

// NewShowStore builds a ShowStore against baseURL (e.g.
// "https://api.themoviedb.org/3").
func NewShowStore(baseURL, apiKey string, log zerolog.Logger) *ShowStore {
	return &ShowStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  http.DefaultClient,
		reqGate: ratelimit.NewGate(showReqInterval),
		errGate: ratelimit.NewGate(showErrInterval),
		log:     log.With().Str("module", "tmdb.shows").Logger(),
	}
}

func (s *ShowStore) parseName(name string) (lang, tid string, err error) {
	parts := strings.SplitN(name, "/", 2)
	if len(parts) != 2 {
		return "", "", errors.Wrapf(objectstore.ErrObjectNotFound, "malformed tmdb show name %q", name)
	}
	lang = parts[0]
	valid := false
	for _, l := range showLanguages {
		if l == lang {
			valid = true
			break
		}
	}
	if !valid {
		return "", "", errors.Wrapf(objectstore.ErrObjectNotFound, "invalid tmdb language %q", lang)
	}
	rest := parts[1]
	if !strings.HasSuffix(strings.ToLower(rest), ".json") {
		return "", "", errors.Wrapf(objectstore.ErrObjectNotFound, "tmdb show name %q is not a .json file", name)
	}
	tid = rest[:len(rest)-5]
	return lang, tid, nil
}

func (s *ShowStore) showURL(lang, tid string) httpx.URL {
	u, _ := httpx.Parse(s.baseURL)
	u = u.JoinPath("tv", tid).WithQuery(map[string]string{"api_key": s.apiKey})
	if lang != "en" {
		u = u.WithQuery(map[string]string{"language": lang})
	}
	return u
}

func (s *ShowStore) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if !s.errGate.Check() {
		return nil, errors.Wrapf(objectstore.ErrObjectNotFound, "too many tmdb errors recently: %q", rawURL)
	}
	if err := s.reqGate.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %q", rawURL)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.markError(err)
		return nil, errors.Wrapf(err, "GET %q", rawURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read body for %q", rawURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.markError(errors.Errorf("http %d", resp.StatusCode))
		return nil, errors.Wrapf(objectstore.ErrObjectNotFound, "tmdb http %d for %q", resp.StatusCode, rawURL)
	}
	s.errGate.Reset()
	return body, nil
}

// SetOnBackoff wires fn to this store's own error-gate backoff hook.
func (s *ShowStore) SetOnBackoff(fn func(error)) {
	s.OnBackoff = fn
}

func (s *ShowStore) markError(err error) {
	wasHot := !s.errGate.Check()
	s.errGate.Mark()
	if !wasHot && s.OnBackoff != nil {
		s.OnBackoff(err)
	}
}

func (s *ShowStore) fetchJSON(ctx context.Context, base httpx.URL, subpath string) (map[string]any, error) {
	u := base
	if subpath != "" {
		u = base.JoinPath(subpath)
	}
	body, err := s.fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrapf(objectstore.ErrCorrupt, "decode tmdb json at %q: %v", u.String(), err)
	}
	return out, nil
}

func (s *ShowStore) fetchImages(ctx context.Context, base httpx.URL, subpath string) (map[string]any, error) {
	u := base.WithQuery(map[string]string{"include_image_language": "en,null,ja"})
	imgPath := "images"
	if subpath != "" {
		imgPath = strings.TrimSuffix(subpath, "/") + "/images"
	}
	return s.fetchJSON(ctx, u, imgPath)
}

func (s *ShowStore) Stat(ctx context.Context, _ string) (objectstore.Stat, error) {
	if err := ctx.Err(); err != nil {
		return objectstore.Stat{}, err
	}
	now := time.Now()
	return objectstore.Stat{ContentType: "text/json", LastModified: now, LastFetched: now, TTL: -1}, nil
}

func (s *ShowStore) Get(ctx context.Context, name string) (objectstore.Object, error) {
	lang, tid, err := s.parseName(name)
	if err != nil {
		return objectstore.Object{}, err
	}
	base := s.showURL(lang, tid)

	main, err := s.fetchJSON(ctx, base, "")
	if err != nil {
		return objectstore.Object{}, err
	}
	images, err := s.fetchImages(ctx, base, "")
	if err != nil {
		return objectstore.Object{}, err
	}
	main["images"] = images

	altTitles, err := s.fetchJSON(ctx, base, "alternative_titles")
	if err != nil {
		return objectstore.Object{}, err
	}
	main["alternative_titles"] = altTitles

	seasonsRaw, _ := main["seasons"].([]any)
	seasons := make([]any, 0, len(seasonsRaw))
	for _, so := range seasonsRaw {
		seasonStub, ok := so.(map[string]any)
		if !ok {
			continue
		}
		sidRaw, ok := seasonStub["season_number"]
		if !ok || sidRaw == nil {
			continue
		}
		sid := strconv.Itoa(int(toFloat(sidRaw)))

		seasonBase := "season/" + sid
		full, err := s.fetchJSON(ctx, base, seasonBase)
		if err != nil {
			return objectstore.Object{}, err
		}
		seasonImages, err := s.fetchImages(ctx, base, seasonBase)
		if err != nil {
			return objectstore.Object{}, err
		}
		full["images"] = seasonImages

		credits, err := s.fetchJSON(ctx, base, seasonBase+"/aggregate_credits")
		if err != nil {
			return objectstore.Object{}, err
		}
		full["credits"] = credits

		episodesRaw, _ := full["episodes"].([]any)
		episodes := make([]any, 0, len(episodesRaw))
		for _, eo := range episodesRaw {
			epStub, ok := eo.(map[string]any)
			if !ok {
				continue
			}
			eidRaw, ok := epStub["episode_number"]
			if !ok || eidRaw == nil {
				continue
			}
			eid := strconv.Itoa(int(toFloat(eidRaw)))

			episodeBase := seasonBase + "/episode/" + eid
			fullEp, err := s.fetchJSON(ctx, base, episodeBase)
			if err != nil {
				return objectstore.Object{}, err
			}
			epImages, err := s.fetchImages(ctx, base, episodeBase)
			if err != nil {
				return objectstore.Object{}, err
			}
			fullEp["images"] = epImages
			episodes = append(episodes, fullEp)
		}
		full["episodes"] = episodes
		seasons = append(seasons, full)
	}
	main["seasons"] = seasons

	data, err := json.Marshal(main)
	if err != nil {
		return objectstore.Object{}, errors.Wrap(err, "marshal composed tmdb show document")
	}

	now := time.Now()
	st := objectstore.Stat{ContentType: "text/json", LastModified: now, LastFetched: now, TTL: -1, Size: int64(len(data))}
	return objectstore.NewObject(st, data), nil
}

func (s *ShowStore) Put(ctx context.Context, _ string, _ objectstore.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(objectstore.ErrWriteNotSupported, "no upload of tmdb show documents")
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	default:
		return 0
	}
}

// NewShowBackend dispatches on baseURL's scheme like the anidb backends:
// the live tmdb API (api_key supplied separately, unlike the original's
// query-string convention, since this system resolves it from config), or a
// pre-seeded local directory for tests/offline operation.
func NewShowBackend(baseURL, apiKey string, log zerolog.Logger) (objectstore.ObjectStore, error) {
	if strings.HasPrefix(baseURL, "http://") || strings.HasPrefix(baseURL, "https://") {
		return NewShowStore(baseURL, apiKey, log), nil
	}
	return objectstore.NewFileStore(baseURL, log)
}
