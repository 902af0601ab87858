package anidb

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/httpx"
	"github.com/ObviusOwl/amc2cached/internal/objectstore"
)

const (
	animeReqInterval  = 4 * time.Second
	animeErrInterval  = 30 * time.Minute
	imageReqInterval  = 4 * time.Second
	imageErrInterval  = 30 * time.Minute
	anidbClientID     = "amc2cached"
	anidbClientVer    = "1"
	anidbProtoVersion = "1"
)

// ErrAnidbBanned names a client ban response from the anidb HTTP API.
// animeHooks.MakeContent reports a ban as a wrapped ErrObjectNotFound, not
// as this error.
var ErrAnidbBanned = errors.New("anidb client banned")

// parseAPIError inspects an anidb HTTP API response body for its <error>
// wrapper, returning the lowercased error text, or "" for a normal document.
func parseAPIError(data []byte) string {
	var root struct {
		XMLName xml.Name `xml:"error"`
		Text    string   `xml:",chardata"`
	}
	if err := xml.Unmarshal(data, &root); err != nil {
		return ""
	}
	if strings.ToLower(root.XMLName.Local) != "error" {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(root.Text))
}

// animeHooks implements objectstore.Hooks for the anidb anime HTTP API: the
// name is an aid (optionally suffixed ".xml"), the response is wrapped in
// one of the API's own <error> documents on failure rather than a non-2xx
// status. A "banned" response calls onBan and is reported as
// ErrObjectNotFound; since it arrives as HTTP 200, the store's error gate is
// reset by it, not marked.
type animeHooks struct {
	objectstore.DefaultHooks
	baseURL string
	onBan   func()
}

func (h animeHooks) MakeURL(_ context.Context, name string, _ bool) (string, error) {
	aid := strings.TrimSuffix(name, ".xml")
	for _, r := range aid {
		if r < '0' || r > '9' {
			return "", errors.Errorf("anidb aid %q is not digits only", name)
		}
	}
	u, err := httpx.Parse(h.baseURL)
	if err != nil {
		return "", err
	}
	u = u.WithQuery(map[string]string{
		"request":   "anime",
		"client":    anidbClientID,
		"clientver": anidbClientVer,
		"protover":  anidbProtoVersion,
		"aid":       aid,
	})
	return u.String(), nil
}

func (h animeHooks) MakeContent(name string, _ *http.Response, full []byte) ([]byte, error) {
	switch parseAPIError(full) {
	case "":
		return full, nil
	case "anime not found":
		return nil, errors.Wrapf(objectstore.ErrObjectNotFound, "anidb anime %q", name)
	case "banned":
		if h.onBan != nil {
			h.onBan()
		}
		return nil, errors.Wrapf(objectstore.ErrObjectNotFound, "anidb client banned, anime %q", name)
	default:
		return nil, errors.Errorf("anidb api error for %q: %s", name, parseAPIError(full))
	}
}

// AnimeStore fetches raw anidb anime XML documents, one per aid, through the
// anidb HTTP API. By definition its Stat result is always considered fresh:
// existence is established via the titles index, not a round trip here.
type AnimeStore struct {
	http *objectstore.HTTPStore
}

var _ objectstore.ObjectStore = (*AnimeStore)(nil)

// SetOnBackoff wires fn to the wrapped HTTPStore's own OnBackoff hook.
func (s *AnimeStore) SetOnBackoff(fn func(error)) {
	s.http.OnBackoff = fn
}

// NewAnimeStore builds an AnimeStore against baseURL (e.g.
// "http://api.anidb.net:9001/httpapi"). onBan, if set, is called whenever
// the API reports the client banned; a ban does not mark the error gate.
func NewAnimeStore(baseURL string, log zerolog.Logger, onBan func()) *AnimeStore {
	hooks := animeHooks{baseURL: baseURL, onBan: onBan}
	store := objectstore.NewHTTPStore(objectstore.HTTPStoreConfig{
		Hooks:       hooks,
		UserAgent:   userAgent,
		ReqInterval: animeReqInterval,
		ErrInterval: animeErrInterval,
		Log:         log,
	})
	return &AnimeStore{http: store}
}

func (s *AnimeStore) Stat(ctx context.Context, _ string) (objectstore.Stat, error) {
	if err := ctx.Err(); err != nil {
		return objectstore.Stat{}, err
	}
	now := time.Now()
	return objectstore.Stat{ContentType: "text/xml", LastModified: now, LastFetched: now, TTL: -1}, nil
}

func (s *AnimeStore) Get(ctx context.Context, name string) (objectstore.Object, error) {
	return s.http.Get(ctx, name)
}

func (s *AnimeStore) Put(ctx context.Context, _ string, _ objectstore.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(objectstore.ErrWriteNotSupported, "no upload of anidb anime documents")
}

// imageHooks implements objectstore.Hooks for the anidb image CDN: the name
// is joined directly onto the base URL, no query parameters involved.
type imageHooks struct {
	objectstore.DefaultHooks
	baseURL string
}

func (h imageHooks) MakeURL(_ context.Context, name string, _ bool) (string, error) {
	u, err := httpx.Parse(h.baseURL)
	if err != nil {
		return "", err
	}
	return u.JoinPath(name).String(), nil
}

// NewImageStore builds the object store fetching anidb's CDN-hosted cover
// images, e.g. from "https://cdn-eu.anidb.net/images/main".
func NewImageStore(baseURL string, log zerolog.Logger) *objectstore.HTTPStore {
	return objectstore.NewHTTPStore(objectstore.HTTPStoreConfig{
		Hooks:       imageHooks{baseURL: baseURL},
		UserAgent:   userAgent,
		ReqInterval: imageReqInterval,
		ErrInterval: imageErrInterval,
		Log:         log,
	})
}

// NewAnimeBackend dispatches on baseURL's scheme like NewTitlesBackend: the
// live HTTP API, or a pre-seeded local directory for tests/offline operation.
func NewAnimeBackend(baseURL string, log zerolog.Logger, onBan func()) (objectstore.ObjectStore, error) {
	if strings.HasPrefix(baseURL, "http://") || strings.HasPrefix(baseURL, "https://") {
		return NewAnimeStore(baseURL, log, onBan), nil
	}
	return objectstore.NewFileStore(baseURL, log)
}

// aidObjectName is the key under which an anime document is addressed,
// matching the upstream's own "{aid}.xml" convention.
func aidObjectName(aid string) string {
	return aid + ".xml"
}
