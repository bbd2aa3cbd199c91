package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/robert-malhotra/go-netcdf/internal/logging"
	"github.com/robert-malhotra/go-netcdf/netcdf"
	"github.com/robert-malhotra/go-netcdf/vfile"
	"github.com/robert-malhotra/go-netcdf/vfile/minio"
	"github.com/robert-malhotra/go-netcdf/vfile/s3"
)

type scheme int

const (
	schemeLocal scheme = iota
	schemeHTTP
	schemeS3
	schemeMinIO
)

// parseSource splits a source argument into its scheme, bucket and key.
// For local and HTTP sources the key is the whole argument.
func parseSource(src string) (scheme, string, string, error) {
	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return schemeHTTP, "", src, nil
	case strings.HasPrefix(src, "s3://"):
		bucket, key, err := splitBucket(strings.TrimPrefix(src, "s3://"))
		return schemeS3, bucket, key, err
	case strings.HasPrefix(src, "minio://"):
		bucket, key, err := splitBucket(strings.TrimPrefix(src, "minio://"))
		return schemeMinIO, bucket, key, err
	default:
		return schemeLocal, "", src, nil
	}
}

func splitBucket(s string) (string, string, error) {
	bucket, key, ok := strings.Cut(s, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("object source needs bucket/key, got %q", s)
	}
	return bucket, key, nil
}

// fileOptions builds the open options derived from configuration.
func (e *env) fileOptions(ctx context.Context) []netcdf.Option {
	logger := logging.Component(e.logger, "netcdf")
	rc := e.cfg.Remote

	httpOpts := []vfile.HTTPOption{
		vfile.WithContext(ctx),
		vfile.WithLogger(logger),
		vfile.WithHTTPClient(&http.Client{Timeout: rc.Timeout}),
		vfile.WithUserAgent(rc.UserAgent),
	}
	if rc.RateLimit > 0 {
		httpOpts = append(httpOpts, vfile.WithRateLimiter(rate.NewLimiter(rate.Limit(rc.RateLimit), rc.Burst)))
	}

	return []netcdf.Option{
		netcdf.WithLogger(logger),
		netcdf.WithHeaderBurst(rc.HeaderBurst),
		netcdf.WithHTTPOptions(httpOpts...),
	}
}

// open opens src according to its scheme.
func (e *env) open(ctx context.Context, src string) (*netcdf.File, error) {
	kind, bucket, key, err := parseSource(src)
	if err != nil {
		return nil, err
	}
	opts := e.fileOptions(ctx)
	e.logger.Debug("opening source", zap.String("source", src))

	switch kind {
	case schemeHTTP:
		return netcdf.OpenRemote(ctx, key, 0, opts...)
	case schemeS3:
		client, err := s3.NewClient(ctx, e.cfg.S3.Region, e.cfg.S3.Endpoint)
		if err != nil {
			return nil, err
		}
		f, err := s3.Open(ctx, client, bucket, key)
		if err != nil {
			return nil, err
		}
		return netcdf.Open(f, opts...)
	case schemeMinIO:
		mc := e.cfg.MinIO
		if mc.Endpoint == "" {
			return nil, fmt.Errorf("minio source %s: minio.endpoint is not configured", src)
		}
		client, err := minio.NewClient(mc.Endpoint, mc.AccessKey, mc.SecretKey, mc.UseSSL)
		if err != nil {
			return nil, err
		}
		f, err := minio.Open(ctx, client, bucket, key)
		if err != nil {
			return nil, err
		}
		return netcdf.Open(f, opts...)
	default:
		return netcdf.OpenFile(key, opts...)
	}
}
