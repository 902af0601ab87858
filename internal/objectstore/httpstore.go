package objectstore

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/ratelimit"
)

// Hooks lets a concrete HTTP-backed store customize URL, header and
// response-to-object translation without subclassing: HTTPStore holds a
// Hooks value and calls it at each customization point, composition in
// place of the inheritance the original abstract base used.
type Hooks interface {
	// MakeURL builds the request URL for name. stat is true for a HEAD
	// (Stat) request. It may itself perform a blocking call (e.g. the tmdb
	// image store resolving its CDN base URL) and must honor ctx.
	MakeURL(ctx context.Context, name string, stat bool) (string, error)
	// MakeHeaders returns extra headers for the request, merged over the
	// store's default headers.
	MakeHeaders(name string, stat bool) map[string]string
	// MakeContent extracts the object bytes from a successful GET
	// response. Called with the response body already read into full.
	MakeContent(name string, resp *http.Response, full []byte) ([]byte, error)
}

// DefaultHooks is embedded by concrete stores to get MakeHeaders'/MakeContent's
// default behavior for free while still overriding MakeURL.
type DefaultHooks struct{}

func (DefaultHooks) MakeHeaders(string, bool) map[string]string { return nil }

func (DefaultHooks) MakeContent(_ string, _ *http.Response, full []byte) ([]byte, error) {
	return full, nil
}

// HTTPStore fetches objects over HTTP(S). It paces successful requests
// with one throttler and applies a second, independent throttler to back
// off after errors: a client sees one error never alone and stops hammering
// an upstream that is already failing. Writes are never supported.
type HTTPStore struct {
	hooks         Hooks
	client        *http.Client
	userAgent     string
	defaultHeaders map[string]string
	reqGate       ratelimit.Gate
	errGate       ratelimit.Gate
	log           zerolog.Logger
	// OnBackoff, if set, is called the moment the error gate transitions
	// from cold to hot (the call that marks it), so an operator can be
	// alerted that the archival-fallback path is now the only thing
	// serving this store.
	OnBackoff func(err error)
}

var _ ObjectStore = (*HTTPStore)(nil)

// HTTPStoreConfig configures a new HTTPStore.
type HTTPStoreConfig struct {
	Hooks        Hooks
	Client       *http.Client
	UserAgent    string
	ReqInterval  time.Duration
	ErrInterval  time.Duration
	Log          zerolog.Logger
}

// NewHTTPStore builds an HTTPStore from cfg. ReqInterval/ErrInterval ≤ 0
// disable that throttler (no-op gate).
func NewHTTPStore(cfg HTTPStoreConfig) *HTTPStore {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	headers := map[string]string{}
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}
	return &HTTPStore{
		hooks:          cfg.Hooks,
		client:         client,
		userAgent:      cfg.UserAgent,
		defaultHeaders: headers,
		reqGate:        ratelimit.NewGate(cfg.ReqInterval),
		errGate:        ratelimit.NewGate(cfg.ErrInterval),
		log:            cfg.Log.With().Str("module", "objectstore.http").Logger(),
	}
}

func combineHeaders(base, top map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		if v == "" {
			delete(out, k)
		} else if k != "" {
			out[k] = v
		}
	}
	return out
}

func (s *HTTPStore) do(ctx context.Context, verb, rawURL, name string, stat bool) (*http.Response, error) {
	if !s.errGate.Check() {
		return nil, errors.Wrapf(ErrObjectNotFound, "too many requests after the last error for %q", name)
	}
	if err := s.reqGate.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, verb, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %q", rawURL)
	}
	headers := s.hooks.MakeHeaders(name, stat)
	for k, v := range combineHeaders(s.defaultHeaders, headers) {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.markError(err)
		return nil, errors.Wrapf(err, "request %s %q", verb, rawURL)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.errGate.Reset()
		return resp, nil
	}

	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		s.markError(errors.Errorf("http %d", resp.StatusCode))
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(ErrObjectNotFound, "%q", name)
	}
	return nil, errors.Errorf("unexpected http %d for %q", resp.StatusCode, name)
}

func (s *HTTPStore) markError(err error) {
	wasHot := !s.errGate.Check()
	s.errGate.Mark()
	if !wasHot && s.OnBackoff != nil {
		s.OnBackoff(err)
	}
}

func parseLastModified(resp *http.Response) time.Time {
	v := resp.Header.Get("Last-Modified")
	if v == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *HTTPStore) makeStat(resp *http.Response) Stat {
	size, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = DefaultContentType
	}
	now := time.Now()
	return Stat{
		ContentType:  ct,
		LastModified: parseLastModified(resp),
		LastFetched:  now,
		TTL:          -1,
		Size:         size,
	}
}

func (s *HTTPStore) Stat(ctx context.Context, name string) (Stat, error) {
	rawURL, err := s.hooks.MakeURL(ctx, name, true)
	if err != nil {
		return Stat{}, errors.Wrapf(err, "build url for %q", name)
	}
	resp, err := s.do(ctx, http.MethodHead, rawURL, name, true)
	if err != nil {
		return Stat{}, err
	}
	defer resp.Body.Close()
	return s.makeStat(resp), nil
}

func (s *HTTPStore) Get(ctx context.Context, name string) (Object, error) {
	rawURL, err := s.hooks.MakeURL(ctx, name, false)
	if err != nil {
		return Object{}, errors.Wrapf(err, "build url for %q", name)
	}
	resp, err := s.do(ctx, http.MethodGet, rawURL, name, false)
	if err != nil {
		return Object{}, err
	}
	defer resp.Body.Close()

	full, err := io.ReadAll(resp.Body)
	if err != nil {
		return Object{}, errors.Wrapf(err, "read body for %q", name)
	}
	content, err := s.hooks.MakeContent(name, resp, full)
	if err != nil {
		return Object{}, err
	}

	st := s.makeStat(resp)
	return NewObject(st, content), nil
}

func (s *HTTPStore) Put(ctx context.Context, _ string, _ Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(ErrWriteNotSupported, "http store is read-only")
}
