// Package newfile provides options for creating new files in a virtual filesystem.
package newfile

import (
	"context"

	"github.com/smartfs/smartfs/options"
)

const optionNameNewFileContext = "newFileContext"

// WithContext returns Context implementation of NewFileOption. The context
// bounds every backend round trip made through the created file, including
// cancellation of in-flight chunk transfers.
func WithContext(ctx context.Context) options.NewFileOption {
	return &Context{ctx}
}

// Context represents the NewFileOption that is used to specify a context for created files.
type Context struct{ context.Context }

// NewFileOptionName returns the name of Context option
func (ct *Context) NewFileOptionName() string {
	return optionNameNewFileContext
}

// ContextFrom extracts the context from the given options, defaulting to
// context.Background when none was supplied.
func ContextFrom(opts []options.NewFileOption) context.Context {
	for _, o := range opts {
		if c, ok := o.(*Context); ok {
			return c.Context
		}
	}
	return context.Background()
}
