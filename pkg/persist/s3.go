package persist

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// DefaultS3Key is the object key the snapshot is stored under.
const DefaultS3Key = "canvas.json"

// S3Store keeps the snapshot in an S3 object, overwritten wholesale on
// each save.
//
// Example:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := persist.NewS3Store(s3.NewFromConfig(cfg), "my-bucket")
type S3Store struct {
	client *s3.Client
	bucket string
	key    string
}

// S3Option configures an S3Store.
type S3Option func(*S3Store)

// WithS3Key overrides the snapshot object key.
func WithS3Key(key string) S3Option {
	return func(s *S3Store) {
		s.key = key
	}
}

// NewS3Store creates an S3-backed snapshot store.
func NewS3Store(client *s3.Client, bucket string, opts ...S3Option) *S3Store {
	s := &S3Store{client: client, bucket: bucket, key: DefaultS3Key}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save overwrites the snapshot object.
func (s *S3Store) Save(ctx context.Context, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}

// Load reads the snapshot object. A missing object is not an error.
func (s *S3Store) Load(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Close does nothing; the S3 client is shared and owned by the caller.
func (s *S3Store) Close() error {
	return nil
}

var _ SnapshotStore = (*S3Store)(nil)
