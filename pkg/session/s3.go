package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the subset of the S3 client the store needs. *s3.Client satisfies
// it; tests supply a fake.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ s3API = (*s3.Client)(nil)

// metadata key carrying the eviction deadline on each session object.
const s3ExpiresMetaKey = "session-expires-at"

// S3Store keeps one object per session in an S3 bucket. S3 has no native
// per-object TTL, so the eviction deadline rides in object metadata and is
// enforced on Load; bucket lifecycle rules should back-stop actual deletion.
type S3Store struct {
	client s3API
	bucket string
	prefix string
	closed atomic.Bool
}

// S3StoreOption configures S3Store behavior.
type S3StoreOption func(*s3StoreConfig)

type s3StoreConfig struct {
	prefix string
}

// WithS3Prefix sets the object key prefix for session objects.
// Default: "sessions/".
func WithS3Prefix(prefix string) S3StoreOption {
	return func(c *s3StoreConfig) {
		c.prefix = prefix
	}
}

// NewS3Store creates a session store backed by an S3 bucket.
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	store := session.NewS3Store(s3.NewFromConfig(cfg), "my-bucket")
func NewS3Store(client s3API, bucket string, opts ...S3StoreOption) *S3Store {
	cfg := &s3StoreConfig{
		prefix: "sessions/",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: cfg.prefix,
	}
}

func (s *S3Store) key(sessionID string) string {
	return s.prefix + sessionID
}

// Save uploads session state with the eviction deadline in object metadata.
func (s *S3Store) Save(ctx context.Context, sessionID string, data []byte, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed{}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(sessionID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			s3ExpiresMetaKey: expiresAt.UTC().Format(time.RFC3339),
		},
	})
	return err
}

// Load downloads session state; expired or missing objects yield (nil, nil).
func (s *S3Store) Load(ctx context.Context, sessionID string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed{}
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(sessionID)),
	})
	if err != nil {
		var notFound *s3types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	defer out.Body.Close()

	if raw, ok := out.Metadata[s3ExpiresMetaKey]; ok {
		if expiresAt, perr := time.Parse(time.RFC3339, raw); perr == nil && time.Now().After(expiresAt) {
			return nil, nil
		}
	}

	return io.ReadAll(out.Body)
}

// Delete removes a session object.
func (s *S3Store) Delete(ctx context.Context, sessionID string) error {
	if s.closed.Load() {
		return ErrStoreClosed{}
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(sessionID)),
	})
	return err
}

// Touch rewrites only the deadline metadata by re-uploading current state.
// S3 cannot mutate metadata in place, so this loads then saves.
func (s *S3Store) Touch(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed{}
	}

	data, err := s.Load(ctx, sessionID)
	if err != nil || data == nil {
		return err
	}
	return s.Save(ctx, sessionID, data, expiresAt)
}

// SaveAll uploads sessions sequentially.
func (s *S3Store) SaveAll(ctx context.Context, sessions map[string]StoredState) error {
	if s.closed.Load() {
		return ErrStoreClosed{}
	}
	for id, ss := range sessions {
		if time.Now().After(ss.ExpiresAt) {
			continue
		}
		if err := s.Save(ctx, id, ss.Data, ss.ExpiresAt); err != nil {
			return err
		}
	}
	return nil
}

// Close marks the store as closed. The S3 client is not owned by the store.
func (s *S3Store) Close() error {
	s.closed.Store(true)
	return nil
}
