package tmdb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/httpx"
	"github.com/ObviusOwl/amc2cached/internal/objectstore"
)

const (
	imageReqInterval    = 4 * time.Second
	imageErrInterval    = 30 * time.Minute
	imageConfigInterval = 48 * time.Hour
	userAgent           = "amc2cached"
)

// imageHooks implements objectstore.Hooks for the tmdb image CDN. The CDN
// base URL is not fixed: it is resolved lazily from the API's own
// /configuration endpoint through the enclosing store, which caches it for
// imageConfigInterval between refreshes (the configuration endpoint needs
// the api key, the image files themselves don't).
type imageHooks struct {
	objectstore.DefaultHooks
	store *ShowImageStore
}

func (h imageHooks) MakeURL(ctx context.Context, name string, _ bool) (string, error) {
	base, err := h.store.configuredBaseURL(ctx)
	if err != nil {
		return "", err
	}
	return base.JoinPath("original", strings.Trim(name, "/")).String(), nil
}

// ShowImageStore fetches tmdb-hosted cover art, resolving the CDN base URL
// from the API's /configuration endpoint and caching it for
// imageConfigInterval between refreshes.
type ShowImageStore struct {
	http *objectstore.HTTPStore

	apiURL       httpx.URL
	apiKey       string
	client       *http.Client
	baseURL      *httpx.URL
	configExpiry time.Time
}

var _ objectstore.ObjectStore = (*ShowImageStore)(nil)

// SetOnBackoff wires fn to the wrapped HTTPStore's own OnBackoff hook.
func (s *ShowImageStore) SetOnBackoff(fn func(error)) {
	s.http.OnBackoff = fn
}

// NewShowImageStore builds a ShowImageStore. apiURL should be the bare API
// root (e.g. "https://api.themoviedb.org/3"); apiKey is appended to the
// /configuration request only.
func NewShowImageStore(apiURL, apiKey string, log zerolog.Logger) (*ShowImageStore, error) {
	u, err := httpx.Parse(apiURL)
	if err != nil {
		return nil, err
	}
	s := &ShowImageStore{apiURL: u, apiKey: apiKey, client: http.DefaultClient}
	s.http = objectstore.NewHTTPStore(objectstore.HTTPStoreConfig{
		Hooks:       imageHooks{store: s},
		UserAgent:   userAgent,
		ReqInterval: imageReqInterval,
		ErrInterval: imageErrInterval,
		Log:         log,
	})
	return s, nil
}

func (s *ShowImageStore) configuredBaseURL(ctx context.Context) (httpx.URL, error) {
	if s.baseURL != nil && time.Now().Before(s.configExpiry) {
		return *s.baseURL, nil
	}

	cfgURL := s.apiURL.JoinPath("configuration").WithQuery(map[string]string{"api_key": s.apiKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfgURL.String(), nil)
	if err != nil {
		return httpx.URL{}, errors.Wrap(err, "build tmdb configuration request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return httpx.URL{}, errors.Wrap(err, "fetch tmdb configuration")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpx.URL{}, errors.Errorf("tmdb configuration endpoint returned http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return httpx.URL{}, errors.Wrap(err, "read tmdb configuration response")
	}

	var parsed struct {
		Images struct {
			SecureBaseURL string `json:"secure_base_url"`
		} `json:"images"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return httpx.URL{}, errors.Wrap(err, "decode tmdb configuration response")
	}

	base, err := httpx.Parse(parsed.Images.SecureBaseURL)
	if err != nil {
		return httpx.URL{}, err
	}
	s.baseURL = &base
	s.configExpiry = time.Now().Add(imageConfigInterval)
	return base, nil
}

func (s *ShowImageStore) Stat(ctx context.Context, name string) (objectstore.Stat, error) {
	return s.http.Stat(ctx, name)
}

func (s *ShowImageStore) Get(ctx context.Context, name string) (objectstore.Object, error) {
	return s.http.Get(ctx, name)
}

func (s *ShowImageStore) Put(ctx context.Context, _ string, _ objectstore.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(objectstore.ErrWriteNotSupported, "no upload of tmdb images")
}
