package mapping

import (
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/objectstore"
)

// NewRepoFromURL builds a mapping Repo from rawURL: "sqlite:<path>" for the
// relational backend, or any object-store URL (s3://, file://, a bare
// path) for the document backend, whose final path segment becomes the
// JSON document's object name (a ".json" suffix is added if missing).
func NewRepoFromURL(rawURL string, creds objectstore.S3Credentials, log zerolog.Logger) (Repo, error) {
	if rest, ok := strings.CutPrefix(rawURL, "sqlite:"); ok {
		return NewSqliteRepo(rest, log)
	}

	dir, file := path.Split(rawURL)
	if file == "" {
		return nil, errors.Errorf("mapping url %q has no file name component", rawURL)
	}
	file = ensureJSONSuffix(file)

	backend, err := objectstore.NewCacheStoreFromURL(dir, creds, log)
	if err != nil {
		return nil, errors.Wrap(err, "build mapping document backend")
	}
	return NewJsonRepo(file, backend, log)
}
