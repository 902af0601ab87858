// Package httpx holds small helpers shared by every HTTP-facing object
// store: URL composition and the single-value query parameter convention
// used by every upstream in this system.
package httpx

import (
	"net/url"

	"github.com/pkg/errors"
)

// URL wraps net/url.URL with the single-value-per-key query convention
// used throughout this system: unlike net/url.Values, a key never carries
// more than one value, which keeps MakeURL hooks simple to write and read.
type URL struct {
	*url.URL
}

// Parse parses s into a URL using the single-value query convention.
func Parse(s string) (URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return URL{}, errors.Wrapf(err, "parse url %q", s)
	}
	return URL{u}, nil
}

// Copy returns an independent copy so callers can mutate the result of
// JoinPath/WithQuery without aliasing the receiver.
func (u URL) Copy() URL {
	cp := *u.URL
	return URL{&cp}
}

// JoinPath returns a copy of u with the given path segments appended, in
// the manner of net/url.URL.JoinPath.
func (u URL) JoinPath(parts ...string) URL {
	cp := u.Copy()
	cp.URL = cp.URL.JoinPath(parts...)
	return cp
}

// WithQuery returns a copy of u with the given query parameters set,
// replacing any existing value for the same key.
func (u URL) WithQuery(params map[string]string) URL {
	cp := u.Copy()
	q := cp.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	cp.RawQuery = q.Encode()
	return cp
}

// QueryMap returns the single-value query parameters of u, dropping all but
// the first value for any key that repeats.
func (u URL) QueryMap() map[string]string {
	raw := u.URL.Query()
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
