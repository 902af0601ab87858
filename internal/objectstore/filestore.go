package objectstore

import (
	"context"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/xattr"
	"github.com/rs/zerolog"
)

const xattrNamespace = "user"

// ParseFileURL validates and extracts the filesystem path from a file://
// URL.
func ParseFileURL(raw string) (string, error) {
	if !strings.HasPrefix(raw, "file://") {
		return "", errors.Errorf("not a file:// url: %q", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "parse file url %q", raw)
	}
	if u.Path == "" {
		return "", errors.Errorf("file url %q must contain a path", raw)
	}
	return u.Path, nil
}

// guessContentType prefers the user.mime_type xattr, set by a prior Put,
// over guessing from the file extension.
func guessContentType(path string) string {
	if v, err := xattr.Get(path, xattrNamespace+".mime_type"); err == nil && len(v) > 0 {
		return string(v)
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return DefaultContentType
}

func getXattrTime(path, key string) (time.Time, bool) {
	v, err := xattr.Get(path, xattrNamespace+"."+key)
	if err != nil || len(v) == 0 {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, string(v))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func setXattr(log zerolog.Logger, path, key, value string) {
	if err := xattr.Set(path, xattrNamespace+"."+key, []byte(value)); err != nil {
		log.Error().Err(err).Str("path", path).Str("key", key).Msg("failed to set xattr")
	}
}

// FileStore accesses objects as files below a base directory. Names may be
// an absolute path, a file:// URL, or a path relative to the base
// directory. Content-type, last-modified and last-fetched are mirrored
// into extended attributes under the "user." namespace on every Put so a
// later Stat does not need to guess them from the filesystem alone.
type FileStore struct {
	mu   sync.RWMutex
	base string
	log  zerolog.Logger
}

var _ ObjectStore = (*FileStore)(nil)

// NewFileStore builds a FileStore rooted at base, which may be a plain
// path or a file:// URL.
func NewFileStore(base string, log zerolog.Logger) (*FileStore, error) {
	if strings.HasPrefix(base, "file://") {
		p, err := ParseFileURL(base)
		if err != nil {
			return nil, err
		}
		base = p
	}
	return &FileStore{base: base, log: log.With().Str("module", "objectstore.file").Logger()}, nil
}

func (s *FileStore) nameToPath(name string) string {
	switch {
	case strings.HasPrefix(name, "file://"):
		if p, err := ParseFileURL(name); err == nil {
			return p
		}
		return name
	case strings.HasPrefix(name, "/"):
		return name
	default:
		return filepath.Join(s.base, name)
	}
}

func (s *FileStore) Stat(ctx context.Context, name string) (Stat, error) {
	if err := ctx.Err(); err != nil {
		return Stat{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statLocked(name)
}

func (s *FileStore) statLocked(name string) (Stat, error) {
	path := s.nameToPath(name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Stat{}, errors.Wrapf(ErrObjectNotFound, "file %q", path)
		}
		return Stat{}, errors.Wrapf(err, "stat %q", path)
	}

	modTime := info.ModTime()
	lastModified, ok := getXattrTime(path, "last_modified")
	if !ok {
		lastModified = modTime
	}
	lastFetched, ok := getXattrTime(path, "last_fetched")
	if !ok {
		lastFetched = lastModified
	}

	return Stat{
		ContentType:  guessContentType(path),
		LastModified: lastModified,
		LastFetched:  lastFetched,
		TTL:          -1,
		Size:         info.Size(),
	}, nil
}

func (s *FileStore) Get(ctx context.Context, name string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.statLocked(name)
	if err != nil {
		return Object{}, err
	}
	path := s.nameToPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return Object{}, errors.Wrapf(err, "read %q", path)
	}
	return NewObject(st, data), nil
}

func (s *FileStore) Put(ctx context.Context, name string, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.nameToPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir for %q", path)
	}
	if err := os.WriteFile(path, obj.Data, 0o644); err != nil {
		return errors.Wrapf(err, "write %q", path)
	}

	now := time.Now()
	lastModified := obj.LastModified
	if lastModified.IsZero() {
		lastModified = now
	}
	if err := os.Chtimes(path, now, lastModified); err != nil {
		s.log.Debug().Err(err).Str("path", path).Msg("chtimes failed")
	}

	setXattr(s.log, path, "mime_type", obj.ContentType)
	setXattr(s.log, path, "last_modified", lastModified.Format(time.RFC3339Nano))
	lastFetched := obj.LastFetched
	if lastFetched.IsZero() {
		lastFetched = now
	}
	setXattr(s.log, path, "last_fetched", lastFetched.Format(time.RFC3339Nano))

	s.log.Debug().Str("path", path).Int64("size", obj.Size).Msg("put")
	return nil
}

// SingleFileStore pins every call to one fixed filename within its
// directory, for object stores that always address exactly one file (the
// anidb titles dump).
type SingleFileStore struct {
	*FileStore
	name string
}

var _ ObjectStore = (*SingleFileStore)(nil)

// NewSingleFileStore builds a store scoped to one fixed path, which may be
// a plain path or a file:// URL.
func NewSingleFileStore(path string, log zerolog.Logger) (*SingleFileStore, error) {
	if strings.HasPrefix(path, "file://") {
		p, err := ParseFileURL(path)
		if err != nil {
			return nil, err
		}
		path = p
	}
	fs, err := NewFileStore(filepath.Dir(path), log)
	if err != nil {
		return nil, err
	}
	return &SingleFileStore{FileStore: fs, name: filepath.Base(path)}, nil
}

func (s *SingleFileStore) Stat(ctx context.Context, _ string) (Stat, error) {
	return s.FileStore.Stat(ctx, s.name)
}
func (s *SingleFileStore) Get(ctx context.Context, _ string) (Object, error) {
	return s.FileStore.Get(ctx, s.name)
}
func (s *SingleFileStore) Put(ctx context.Context, _ string, obj Object) error {
	return s.FileStore.Put(ctx, s.name, obj)
}
