package objectstore

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// S3Store accesses objects as keys of an S3-compatible bucket, under an
// optional path prefix. Content-type, last-modified and last-fetched are
// carried as x-amz-meta-* object metadata, mirroring FileStore's xattr
// convention. By convention a zero-byte object is treated as absent rather
// than a legitimately empty object, since nothing this system stores is
// ever meaningfully zero bytes.
type S3Store struct {
	client         *minio.Client
	bucket         string
	path           string
	emptyIsAbsent  bool
	log            zerolog.Logger
}

var _ ObjectStore = (*S3Store)(nil)

// S3StoreConfig configures a new S3Store.
type S3StoreConfig struct {
	Endpoint      string
	Bucket        string
	Path          string
	Secure        bool
	AccessKey     string
	SecretKey     string
	EmptyIsAbsent bool
	Log           zerolog.Logger
}

// NewS3Store builds an S3Store from explicit configuration.
func NewS3Store(cfg S3StoreConfig) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "build s3 client for %q", cfg.Endpoint)
	}
	return &S3Store{
		client:        client,
		bucket:        cfg.Bucket,
		path:          strings.Trim(cfg.Path, "/"),
		emptyIsAbsent: cfg.EmptyIsAbsent,
		log:           cfg.Log.With().Str("module", "objectstore.s3").Logger(),
	}, nil
}

// NewS3StoreFromURL parses an "s3://host[:port]/bucket/path" or
// "s3s://host[:port]/bucket/path" URL (s3s selects TLS) into an S3Store;
// host[:port] is the endpoint, the bucket is the first path segment,
// everything after it is the key prefix.
func NewS3StoreFromURL(rawURL, accessKey, secretKey string, log zerolog.Logger) (*S3Store, error) {
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return nil, errors.Errorf("not an s3 url: %q", rawURL)
	}
	secure := strings.EqualFold(scheme, "s3s")
	if !secure && !strings.EqualFold(scheme, "s3") {
		return nil, errors.Errorf("not an s3 url: %q", rawURL)
	}

	hostAndPath := rest
	host, pathPart, _ := strings.Cut(hostAndPath, "/")
	parts := strings.SplitN(pathPart, "/", 2)
	if parts[0] == "" {
		return nil, errors.Errorf("missing bucket name in s3 url: %q", rawURL)
	}
	bucket := parts[0]
	path := ""
	if len(parts) > 1 {
		path = parts[1]
	}

	return NewS3Store(S3StoreConfig{
		Endpoint:      host,
		Bucket:        bucket,
		Path:          path,
		Secure:        secure,
		AccessKey:     accessKey,
		SecretKey:     secretKey,
		EmptyIsAbsent: true,
		Log:           log,
	})
}

func (s *S3Store) makeKey(name string) string {
	if s.path == "" {
		return name
	}
	return s.path + "/" + name
}

func (s *S3Store) stat(ctx context.Context, name string) (Stat, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.makeKey(name), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return Stat{}, errors.Wrapf(ErrObjectNotFound, "%q", name)
		}
		return Stat{}, errors.Wrapf(err, "stat s3 object %q", name)
	}
	if s.emptyIsAbsent && info.Size == 0 {
		return Stat{}, errors.Wrapf(ErrObjectNotFound, "%q (empty)", name)
	}

	lastModified := info.LastModified
	if v := info.UserMetadata["X-Amz-Meta-Last-Modified"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			lastModified = t
		}
	}
	lastFetched := lastModified
	if v := info.UserMetadata["X-Amz-Meta-Last-Fetched"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			lastFetched = t
		}
	}

	return Stat{
		ContentType:  info.ContentType,
		LastModified: lastModified,
		LastFetched:  lastFetched,
		TTL:          -1,
		Size:         info.Size,
	}, nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey"
}

func (s *S3Store) Stat(ctx context.Context, name string) (Stat, error) {
	return s.stat(ctx, name)
}

func (s *S3Store) Get(ctx context.Context, name string) (Object, error) {
	st, err := s.stat(ctx, name)
	if err != nil {
		return Object{}, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.makeKey(name), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return Object{}, errors.Wrapf(ErrObjectNotFound, "%q", name)
		}
		return Object{}, errors.Wrapf(err, "get s3 object %q", name)
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(obj); err != nil {
		return Object{}, errors.Wrapf(err, "read s3 object %q", name)
	}
	return NewObject(st, buf.Bytes()), nil
}

func (s *S3Store) Put(ctx context.Context, name string, obj Object) error {
	meta := map[string]string{
		"last-fetched": obj.LastFetched.Format(time.RFC3339Nano),
		"last-modified": obj.LastModified.Format(time.RFC3339Nano),
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.makeKey(name), bytes.NewReader(obj.Data), obj.Size,
		minio.PutObjectOptions{ContentType: obj.ContentType, UserMetadata: meta})
	if err != nil {
		return errors.Wrapf(err, "put s3 object %q", name)
	}
	return nil
}
