package objectstore

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// S3Credentials supplies the access/secret keypair a caller resolves from
// configuration; the object store factory never reads credentials itself.
type S3Credentials struct {
	AccessKey string
	SecretKey string
}

// NewCacheStoreFromURL builds the cache-side backend of a CachedStore from
// one of the three cache-capable schemes: file:// / bare path, s3:// /
// s3s://, or null://. http(s):// is not a valid cache location — only an
// upstream.
func NewCacheStoreFromURL(rawURL string, creds S3Credentials, log zerolog.Logger) (ObjectStore, error) {
	switch {
	case rawURL == "" || strings.HasPrefix(rawURL, "null://"):
		return NullStore{}, nil
	case strings.HasPrefix(rawURL, "s3://") || strings.HasPrefix(rawURL, "s3s://"):
		return NewS3StoreFromURL(rawURL, creds.AccessKey, creds.SecretKey, log)
	case strings.HasPrefix(rawURL, "file://") || strings.HasPrefix(rawURL, "/"):
		return NewFileStore(rawURL, log)
	default:
		return nil, errors.Errorf("unsupported cache store url: %q", rawURL)
	}
}
