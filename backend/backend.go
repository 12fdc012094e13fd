// Package backend provides a registry of backend factories keyed by URI
// scheme and a cache of constructed filesystem handles keyed by
// (scheme, authority). Backends self-register a factory in their init().
package backend

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/smartfs/smartfs"
)

// Factory constructs a filesystem handle for one authority. opts is the
// opaque per-scheme options value set via SetOptions (nil when unset); its
// concrete type belongs to the backend.
type Factory func(authority string, opts smartfs.Options) (smartfs.FileSystem, error)

// Registry resolves (scheme, authority) pairs to cached filesystem handles.
// Handles are constructed lazily, at most once per pair, and are read-only
// after construction. A Registry is safe for concurrent use; the handle
// cache is its only mutable state.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	options   map[string]smartfs.Options
	handles   map[string]smartfs.FileSystem
	group     singleflight.Group
}

// NewRegistry returns an empty Registry. Most callers use the package-level
// default instead; a dedicated Registry is for scoped lifecycles (construct
// at startup, Close at teardown).
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		options:   make(map[string]smartfs.Options),
		handles:   make(map[string]smartfs.FileSystem),
	}
}

func handleKey(scheme, authority string) string {
	return scheme + "\x00" + authority
}

// RegisterFactory registers a backend factory for a scheme, replacing any
// existing registration for that scheme.
func (r *Registry) RegisterFactory(scheme string, factory Factory) {
	r.mu.Lock()
	r.factories[scheme] = factory
	r.mu.Unlock()
}

// SetOptions sets the opaque options value handed to the scheme's factory on
// the next construction. Handles already cached are unaffected; Invalidate
// them to pick up new options.
func (r *Registry) SetOptions(scheme string, opts smartfs.Options) {
	r.mu.Lock()
	r.options[scheme] = opts
	r.mu.Unlock()
}

// Resolve returns the filesystem handle for (scheme, authority), creating
// and caching it on first use. Concurrent calls for the same pair observe at
// most one construction. Construction failures return *BackendInitError and
// are not cached, so a later Resolve retries.
func (r *Registry) Resolve(scheme, authority string) (smartfs.FileSystem, error) {
	key := handleKey(scheme, authority)

	r.mu.RLock()
	fs, cached := r.handles[key]
	factory, registered := r.factories[scheme]
	opts := r.options[scheme]
	r.mu.RUnlock()

	if cached {
		return fs, nil
	}
	if !registered {
		return nil, fmt.Errorf("%q: %w", scheme, smartfs.ErrUnsupportedScheme)
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		// a flight that completed between the cache check and Do may have
		// already stored the handle
		r.mu.RLock()
		fs, ok := r.handles[key]
		r.mu.RUnlock()
		if ok {
			return fs, nil
		}

		created, err := factory(authority, opts)
		if err != nil {
			return nil, &smartfs.BackendInitError{Scheme: scheme, Authority: authority, Err: err}
		}

		r.mu.Lock()
		r.handles[key] = created
		r.mu.Unlock()

		log.Debug().Str("scheme", scheme).Str("authority", authority).Msg("backend handle constructed")
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(smartfs.FileSystem), nil
}

// Invalidate drops the cached handle for (scheme, authority), closing it if
// it holds resources. The next Resolve reconstructs it. Used after detecting
// a dead connection.
func (r *Registry) Invalidate(scheme, authority string) {
	key := handleKey(scheme, authority)

	r.mu.Lock()
	fs, ok := r.handles[key]
	delete(r.handles, key)
	r.mu.Unlock()

	if !ok {
		return
	}
	if closer, isCloser := fs.(io.Closer); isCloser {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Str("scheme", scheme).Str("authority", authority).
				Msg("close of invalidated backend handle failed")
		}
	}
	log.Debug().Str("scheme", scheme).Str("authority", authority).Msg("backend handle invalidated")
}

// RegisteredSchemes returns the sorted schemes with a registered factory.
func (r *Registry) RegisteredSchemes() []string {
	r.mu.RLock()
	schemes := make([]string, 0, len(r.factories))
	for s := range r.factories {
		schemes = append(schemes, s)
	}
	r.mu.RUnlock()
	sort.Strings(schemes)
	return schemes
}

// Close closes every cached handle that holds resources and empties the
// cache. Errors are aggregated, not short-circuited.
func (r *Registry) Close() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]smartfs.FileSystem)
	r.mu.Unlock()

	var errs *multierror.Error
	for _, fs := range handles {
		if closer, ok := fs.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	return errs.ErrorOrNil()
}

// defaultRegistry is the process-wide registry that backends register into
// from their init() and that the smartsimple facade resolves against.
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// RegisterFactory registers a factory in the default registry.
func RegisterFactory(scheme string, factory Factory) {
	defaultRegistry.RegisterFactory(scheme, factory)
}

// SetOptions sets per-scheme options in the default registry.
func SetOptions(scheme string, opts smartfs.Options) {
	defaultRegistry.SetOptions(scheme, opts)
}

// Resolve resolves against the default registry.
func Resolve(scheme, authority string) (smartfs.FileSystem, error) {
	return defaultRegistry.Resolve(scheme, authority)
}

// Invalidate invalidates a handle in the default registry.
func Invalidate(scheme, authority string) {
	defaultRegistry.Invalidate(scheme, authority)
}

// RegisteredSchemes returns the schemes registered in the default registry.
func RegisteredSchemes() []string {
	return defaultRegistry.RegisteredSchemes()
}
