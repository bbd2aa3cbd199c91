package netcdf

import (
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-netcdf/vfile"
)

// DefaultHeaderBurst is the read size used while decoding the header.
const DefaultHeaderBurst = 8 << 10

// Option configures how a file is opened.
type Option func(*options)

type options struct {
	logger      *zap.Logger
	headerBurst int
	http        []vfile.HTTPOption
}

func defaultOptions() *options {
	return &options{
		logger:      zap.NewNop(),
		headerBurst: DefaultHeaderBurst,
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHeaderBurst sets how many bytes are requested at a time while the
// header is parsed. Remote files pay one round trip per burst.
func WithHeaderBurst(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.headerBurst = n
		}
	}
}

// WithHTTPOptions configures the source created by OpenRemote.
func WithHTTPOptions(opts ...vfile.HTTPOption) Option {
	return func(o *options) {
		o.http = append(o.http, opts...)
	}
}
