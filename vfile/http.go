package vfile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPSource fetches byte ranges from a URL, one GET per slice.
// It never retries and never caches.
//
// Range requests carry no Content-Length hint. Go's http.Client drops
// Content-Length from bodiless GETs, so the total size comes from the
// size given to [NewHTTPSource] or from the HEAD issued by [RemoteSize].
type HTTPSource struct {
	url     string
	size    int64
	client  *http.Client
	ctx     context.Context
	limiter *rate.Limiter
	logger  *zap.Logger
	agent   string
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithContext sets the context attached to every request.
func WithContext(ctx context.Context) HTTPOption {
	return func(s *HTTPSource) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithRateLimiter throttles requests. Each slice waits for one token.
func WithRateLimiter(l *rate.Limiter) HTTPOption {
	return func(s *HTTPSource) {
		s.limiter = l
	}
}

// WithLogger sets the logger. Every range request is logged at debug level.
func WithLogger(l *zap.Logger) HTTPOption {
	return func(s *HTTPSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(s *HTTPSource) {
		s.agent = ua
	}
}

func newHTTPSource(url string, size int64, opts []HTTPOption) *HTTPSource {
	s := &HTTPSource{
		url:    url,
		size:   size,
		client: http.DefaultClient,
		ctx:    context.Background(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHTTPSource returns a source for url whose size is known to be size.
func NewHTTPSource(url string, size int64, opts ...HTTPOption) *HTTPSource {
	return newHTTPSource(url, size, opts)
}

// OpenRemote returns a File over url. A size of zero or less is discovered
// with a HEAD request.
func OpenRemote(url string, size int64, opts ...HTTPOption) (*File, error) {
	src := newHTTPSource(url, size, opts)
	if size <= 0 {
		n, err := src.headSize()
		if err != nil {
			return nil, err
		}
		src.size = n
	}
	return New(src), nil
}

// RemoteSize returns the Content-Length reported by a HEAD request.
func RemoteSize(ctx context.Context, url string, opts ...HTTPOption) (int64, error) {
	src := newHTTPSource(url, 0, append(opts, WithContext(ctx)))
	return src.headSize()
}

func (s *HTTPSource) headSize() (int64, error) {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probing size: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("probing size: unexpected status %s", resp.Status)
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("probing size: server did not report a length")
	}
	return resp.ContentLength, nil
}

func (s *HTTPSource) setHeaders(req *http.Request) {
	if s.agent != "" {
		req.Header.Set("User-Agent", s.agent)
	}
}

// ReadSlice issues a GET with Range: bytes=start-(end-1).
func (s *HTTPSource) ReadSlice(start, end int64) ([]byte, error) {
	if start < 0 || end > s.size || start > end {
		return nil, &FetchError{Start: start, End: end, Err: io.ErrUnexpectedEOF}
	}
	if start == end {
		return []byte{}, nil
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(s.ctx); err != nil {
			return nil, &FetchError{Start: start, End: end, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &FetchError{Start: start, End: end, Err: err}
	}
	s.setHeaders(req)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end-1))

	s.logger.Debug("requesting range",
		zap.String("url", s.url),
		zap.Int64("start", start),
		zap.Int64("end", end-1),
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Start: start, End: end, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Start: start, End: end, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	// A server that ignores Range sends the whole resource.
	if resp.StatusCode != http.StatusPartialContent {
		if _, err := io.CopyN(io.Discard, resp.Body, start); err != nil {
			return nil, &FetchError{Start: start, End: end, Err: err}
		}
	}

	buf := make([]byte, end-start)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		return nil, &FetchError{Start: start, End: end, Err: fmt.Errorf("short body: %w", err)}
	}
	return buf, nil
}

// TotalSize returns the size given at construction or discovered by probing.
func (s *HTTPSource) TotalSize() int64 {
	return s.size
}

// URL returns the resource location.
func (s *HTTPSource) URL() string {
	return s.url
}

func (s *HTTPSource) String() string {
	return s.url + " (" + strconv.FormatInt(s.size, 10) + " bytes)"
}
