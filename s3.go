package pmread

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the slice of the S3 client used by S3RangeReader.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3RangeReader reads archive ranges with ranged GetObject requests.
// Every read is an independent request, so a single instance serves
// concurrent callers without locking.
type S3RangeReader struct {
	client S3API
	bucket string
	key    string
	etag   string
}

// NewS3RangeReader resolves the default AWS config and heads the object
// once to capture its etag for cache scoping.
func NewS3RangeReader(
	ctx context.Context,
	bucket, key string,
	optFns ...func(*config.LoadOptions) error,
) (*S3RangeReader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return NewS3RangeReaderWithClient(ctx, s3.NewFromConfig(cfg), bucket, key)
}

// NewS3RangeReaderWithClient is like NewS3RangeReader but uses the
// given client, e.g. one pointed at a custom endpoint.
func NewS3RangeReaderWithClient(
	ctx context.Context,
	client S3API,
	bucket, key string,
) (*S3RangeReader, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("heading object s3://%s/%s: %w", bucket, key, err)
	}

	return &S3RangeReader{
		client: client,
		bucket: bucket,
		key:    key,
		etag:   aws.ToString(head.ETag),
	}, nil
}

func (s *S3RangeReader) ReadRange(ctx context.Context, r Range) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", r.Offset, r.Offset+r.Length-1)),
	})
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s range %d+%d: %w", s.bucket, s.key, r.Offset, r.Length, err)
	}
	defer out.Body.Close() //nolint:errcheck

	buf, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3 object body: %w", err)
	}
	if uint64(len(buf)) != r.Length {
		return nil, fmt.Errorf(
			"short read of %d bytes at offset %d, got %d: %w",
			r.Length, r.Offset, len(buf), io.ErrUnexpectedEOF,
		)
	}

	return buf, nil
}

// ETag returns the object's etag captured at construction.
func (s *S3RangeReader) ETag() string {
	return s.etag
}

// Close implements RangeReader; the S3 client holds no per-archive
// resources.
func (s *S3RangeReader) Close() error {
	return nil
}
