// Package s3 provides a vfile.Source backed by ranged S3 GetObject calls.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/robert-malhotra/go-netcdf/vfile"
)

// ErrNotFound is returned when the object does not exist.
var ErrNotFound = errors.New("s3: object not found")

// Client is the subset of the S3 API used by Source.
type Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source reads one object.
type Source struct {
	ctx    context.Context
	client Client
	bucket string
	key    string
	size   int64
}

// New heads the object to learn its size.
func New(ctx context.Context, client Client, bucket, key string) (*Source, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, ErrNotFound
		}
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("heading s3://%s/%s: %w", bucket, key, err)
	}

	return &Source{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Open returns a virtual file over the object.
func Open(ctx context.Context, client Client, bucket, key string) (*vfile.File, error) {
	src, err := New(ctx, client, bucket, key)
	if err != nil {
		return nil, err
	}
	return vfile.New(src), nil
}

// NewClient builds a client from the default AWS configuration chain.
// A non-empty endpoint selects an S3-compatible service with path-style
// addressing.
func NewClient(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ReadSlice fetches [start, end) with a single ranged GetObject.
func (s *Source) ReadSlice(start, end int64) ([]byte, error) {
	if start < 0 || end > s.size || start > end {
		return nil, &vfile.FetchError{Start: start, End: end, Err: io.ErrUnexpectedEOF}
	}
	if start == end {
		return []byte{}, nil
	}

	resp, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end-1)),
	})
	if err != nil {
		return nil, &vfile.FetchError{Start: start, End: end, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	buf := make([]byte, end-start)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		return nil, &vfile.FetchError{Start: start, End: end, Err: err}
	}
	return buf, nil
}

// TotalSize returns the object size.
func (s *Source) TotalSize() int64 {
	return s.size
}
