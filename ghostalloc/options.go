package ghostalloc

import (
	"github.com/joeycumines/logiface"
)

// allocOptions holds configuration shared by the allocator constructors.
type allocOptions struct {
	logger *logiface.Logger[logiface.Event]
	pages  PageAllocator
}

// Option configures an allocator constructor.
type Option interface {
	applyAlloc(*allocOptions)
}

type optionImpl struct {
	applyAllocFunc func(*allocOptions)
}

func (o *optionImpl) applyAlloc(opts *allocOptions) {
	o.applyAllocFunc(opts)
}

// WithLogger attaches a structured logger. Slab creation and buddy compaction
// log at debug level; slab-creation and large-allocation failures at
// warning. Region and page-chunk mapping are not logged. A nil logger (the
// default) is silent.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *allocOptions) {
		opts.logger = logger
	}}
}

// WithPageAllocator overrides the backing page allocator. The default is the
// syscall-backed allocator on platforms that support it, falling back to the
// Go heap elsewhere.
func WithPageAllocator(pa PageAllocator) Option {
	return &optionImpl{func(opts *allocOptions) {
		opts.pages = pa
	}}
}

// resolveAllocOptions applies options over defaults.
func resolveAllocOptions(opts []Option) *allocOptions {
	cfg := &allocOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyAlloc(cfg)
	}
	if cfg.pages == nil {
		cfg.pages = NewSyscallPages()
	}
	return cfg
}
