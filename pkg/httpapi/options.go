package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/goliatone/go-fieldtree/pkg/openapi"
)

// DefaultPersistHeader carries the per-request write flag.
const DefaultPersistHeader = "X-Fieldtree-Persist"

// GuardFunc vetoes writes for a request by returning an error. It does not
// reject the request: the write is answered with the current tree.
type GuardFunc func(r *http.Request) error

// Options configures the handler.
type Options struct {
	// PersistHeader names the header whose false/0/no/off value blocks a write.
	PersistHeader string
	// PersistDefault is the write flag when nothing blocks it.
	PersistDefault bool
	Guard          GuardFunc
	// MaxBodyBytes caps POST bodies.
	MaxBodyBytes int64
	Logger       *zap.Logger
	// Metrics is mounted at /metrics when set.
	Metrics        http.Handler
	OpenAPIOptions []openapi.Option
}

// OptionFn mutates Options.
type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		PersistHeader:  DefaultPersistHeader,
		PersistDefault: true,
		MaxBodyBytes:   4 << 20,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.PersistHeader == "" {
		opts.PersistHeader = DefaultPersistHeader
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts
}

func WithPersistHeader(name string) OptionFn {
	return func(o *Options) {
		o.PersistHeader = name
	}
}

func WithPersistDefault(enabled bool) OptionFn {
	return func(o *Options) {
		o.PersistDefault = enabled
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		o.Guard = guard
	}
}

func WithMaxBodyBytes(limit int64) OptionFn {
	return func(o *Options) {
		o.MaxBodyBytes = limit
	}
}

func WithLogger(logger *zap.Logger) OptionFn {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithMetricsHandler(handler http.Handler) OptionFn {
	return func(o *Options) {
		o.Metrics = handler
	}
}

func WithOpenAPIOptions(options ...openapi.Option) OptionFn {
	return func(o *Options) {
		o.OpenAPIOptions = append(o.OpenAPIOptions, options...)
	}
}
