// Package anidb implements the anidb-specific title index and anime
// fetcher/parser: the one XML titles dump and the per-anime XML documents.
package anidb

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/objectstore"
)

const (
	userAgent        = "amc2cached"
	titlesReqInterval = 4 * time.Second
	titlesErrInterval = 30 * time.Minute
)

// titlesHooks implements objectstore.Hooks for the anidb titles dump: one
// fixed URL regardless of the requested name, and a gzip-decompressing
// content hook (the dump is gzip-compressed as a file, independent of any
// transport-level Content-Encoding the HTTP client already undid).
type titlesHooks struct {
	objectstore.DefaultHooks
	url string
}

func (h titlesHooks) MakeURL(context.Context, string, bool) (string, error) { return h.url, nil }

func (h titlesHooks) MakeContent(_ string, _ *http.Response, full []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(full))
	if err != nil {
		return full, nil // not actually gzipped; hand back the raw body
	}
	defer gr.Close()
	out, err := io.ReadAll(gr)
	if err != nil {
		return nil, errors.Wrap(err, "decompress anidb titles dump")
	}
	return out, nil
}

// TitlesStore fetches the single anidb titles dump over HTTP. Stat never
// reaches out to the network: by definition the dump's metadata is
// considered always fresh, matching the upstream's own guidance not to
// poll it more than necessary.
type TitlesStore struct {
	http *objectstore.HTTPStore
}

var _ objectstore.ObjectStore = (*TitlesStore)(nil)

// NewTitlesStore builds a TitlesStore fetching from titlesURL.
func NewTitlesStore(titlesURL string, log zerolog.Logger) *TitlesStore {
	return &TitlesStore{
		http: objectstore.NewHTTPStore(objectstore.HTTPStoreConfig{
			Hooks:       titlesHooks{url: titlesURL},
			UserAgent:   userAgent,
			ReqInterval: titlesReqInterval,
			ErrInterval: titlesErrInterval,
			Log:         log,
		}),
	}
}

func (s *TitlesStore) Stat(ctx context.Context, _ string) (objectstore.Stat, error) {
	if err := ctx.Err(); err != nil {
		return objectstore.Stat{}, err
	}
	now := time.Now()
	return objectstore.Stat{ContentType: "text/xml", LastModified: now, LastFetched: now, TTL: -1}, nil
}

func (s *TitlesStore) Get(ctx context.Context, name string) (objectstore.Object, error) {
	return s.http.Get(ctx, name)
}

func (s *TitlesStore) Put(ctx context.Context, _ string, _ objectstore.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(objectstore.ErrWriteNotSupported, "no upload of the anidb titles dump")
}

// NewTitlesBackend builds the object store that an anidb titles cache
// wraps, dispatching on titlesURL's scheme: HTTP(S) for the live upstream,
// file:// or a bare path for a pre-downloaded dump (useful for tests and
// offline operation).
func NewTitlesBackend(titlesURL string, log zerolog.Logger) (objectstore.ObjectStore, error) {
	switch {
	case strings.HasPrefix(titlesURL, "http://") || strings.HasPrefix(titlesURL, "https://"):
		return NewTitlesStore(titlesURL, log), nil
	default:
		return objectstore.NewSingleFileStore(titlesURL, log)
	}
}
