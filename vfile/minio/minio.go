// Package minio provides a vfile.Source for MinIO and S3-compatible object
// stores.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/robert-malhotra/go-netcdf/vfile"
)

// ErrNotFound is returned when the object does not exist.
var ErrNotFound = errors.New("minio: object not found")

// Source reads one object.
type Source struct {
	ctx    context.Context
	client *minio.Client
	bucket string
	key    string
	size   int64
}

// NewClient connects to endpoint with static credentials.
func NewClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

// New stats the object to learn its size.
func New(ctx context.Context, client *minio.Client, bucket, key string) (*Source, error) {
	info, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}
	return &Source{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
		size:   info.Size,
	}, nil
}

// Open returns a virtual file over the object.
func Open(ctx context.Context, client *minio.Client, bucket, key string) (*vfile.File, error) {
	src, err := New(ctx, client, bucket, key)
	if err != nil {
		return nil, err
	}
	return vfile.New(src), nil
}

// ReadSlice fetches [start, end) with a single ranged GetObject.
func (s *Source) ReadSlice(start, end int64) ([]byte, error) {
	if start < 0 || end > s.size || start > end {
		return nil, &vfile.FetchError{Start: start, End: end, Err: io.ErrUnexpectedEOF}
	}
	if start == end {
		return []byte{}, nil
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end-1); err != nil {
		return nil, &vfile.FetchError{Start: start, End: end, Err: err}
	}
	obj, err := s.client.GetObject(s.ctx, s.bucket, s.key, opts)
	if err != nil {
		return nil, &vfile.FetchError{Start: start, End: end, Err: err}
	}
	defer obj.Close()

	buf := make([]byte, end-start)
	if _, err := io.ReadFull(obj, buf); err != nil {
		return nil, &vfile.FetchError{Start: start, End: end, Err: err}
	}
	return buf, nil
}

// TotalSize returns the object size.
func (s *Source) TotalSize() int64 {
	return s.size
}
