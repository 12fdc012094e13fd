// Package options defines the option interfaces accepted by FileSystem,
// Location, and File operations. Concrete options live in subpackages.
package options

// NewFileOption interface contains function that should be implemented by any custom option to qualify as a new file option.
type NewFileOption interface {
	NewFileOptionName() string
}

// NewLocationOption interface contains function that should be implemented by any custom option to qualify as a new location option.
type NewLocationOption interface {
	NewLocationOptionName() string
}

// DeleteOption interface contains function that should be implemented by any custom option to qualify as a delete option.
type DeleteOption interface {
	DeleteOptionName() string
}
