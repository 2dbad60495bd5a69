package preprocessor

import (
	"log/slog"
	"time"

	"github.com/1604042736/c/internal/metrics"
)

// DefaultMaxIncludeDepth bounds #include nesting.
const DefaultMaxIncludeDepth = 200

type options struct {
	logger          *slog.Logger
	metrics         *metrics.Metrics
	includeDirs     []string
	defines         []*Macro
	now             func() time.Time
	maxIncludeDepth int
}

func defaultOptions() options {
	return options{
		logger:          slog.New(slog.DiscardHandler),
		now:             time.Now,
		maxIncludeDepth: DefaultMaxIncludeDepth,
	}
}

// Option configures a Preprocessor.
type Option func(*options)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records expansions, directives and diagnostics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithIncludeDirs appends directories searched by #include.
func WithIncludeDirs(dirs ...string) Option {
	return func(o *options) { o.includeDirs = append(o.includeDirs, dirs...) }
}

// WithDefine predefines an object-like macro, as if the file started with
// "#define name value".
func WithDefine(name, value string) Option {
	return func(o *options) {
		o.defines = append(o.defines, &Macro{Name: name, Body: value})
	}
}

// WithClock sets the time source of __DATE__ and __TIME__.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMaxIncludeDepth bounds #include nesting.
func WithMaxIncludeDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIncludeDepth = n
		}
	}
}
