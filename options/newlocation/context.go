// Package newlocation provides options for creating new locations in a virtual filesystem.
package newlocation

import (
	"context"

	"github.com/smartfs/smartfs/options"
)

const optionNameNewLocationContext = "newLocationContext"

// WithContext returns Context implementation of NewLocationOption. The
// context bounds listing round trips made through the created location.
func WithContext(ctx context.Context) options.NewLocationOption {
	return &Context{ctx}
}

// Context represents the NewLocationOption that is used to specify a context for created locations.
type Context struct{ context.Context }

// NewLocationOptionName returns the name of Context option
func (ct *Context) NewLocationOptionName() string {
	return optionNameNewLocationContext
}

// ContextFrom extracts the context from the given options, defaulting to
// context.Background when none was supplied.
func ContextFrom(opts []options.NewLocationOption) context.Context {
	for _, o := range opts {
		if c, ok := o.(*Context); ok {
			return c.Context
		}
	}
	return context.Background()
}
