// Package smartfs provides a uniform interface to files that may live on local
// disk, an object store, or a remote host reachable over a file transfer
// protocol. Backends plug in behind a small capability contract; callers work
// with URIs and never touch a wire client directly.
package smartfs

import (
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/smartfs/smartfs/options"
)

// Capability is a bit in a backend's declared capability set.
type Capability uint32

const (
	// CapabilityNativeRename is set when the backend can rename a file in
	// place. Backends without it get rename synthesized as copy+delete.
	CapabilityNativeRename Capability = 1 << iota

	// CapabilityServerSideCopy is set when the backend can copy between two
	// of its own paths without the bytes passing through this process.
	CapabilityServerSideCopy

	// CapabilityMultipartUpload is set when the backend accepts a large
	// object as independently transferable chunks assembled on completion.
	CapabilityMultipartUpload

	// CapabilityChecksumReporting is set when the backend reports a digest
	// for stored objects that the stream engine can verify against.
	CapabilityChecksumReporting
)

// Has reports whether every bit of want is present in c.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Options are properties that are passed to a backend factory on handle
// construction. Each backend defines its own concrete options type.
type Options any

// FileSystem represents one configured backend with any authentication
// accounted for. Implementations must be safe for use by any number of
// in-flight operations once constructed.
type FileSystem interface {
	// NewFile initializes a File on the given authority at absolute path
	// 'name'. On error, nil is returned for the file.
	NewFile(authority, name string, opts ...options.NewFileOption) (File, error)

	// NewLocation initializes a Location on the given authority with the
	// given absolute path. On error, nil is returned for the location.
	NewLocation(authority, path string, opts ...options.NewLocationOption) (Location, error)

	// Name returns the descriptive name of the FileSystem ie: "AWS S3"
	Name() string

	// Scheme returns the uri scheme used by the FileSystem: s3, file, gs, etc.
	Scheme() string

	// Capabilities returns the optional operations this backend supports.
	// The set is fixed for the life of the handle.
	Capabilities() Capability
}

// Location represents a directory or key prefix which serves as a start point
// for directory-like functionality. A location may or may not actually exist
// on the backend.
type Location interface {
	fmt.Stringer

	// List returns the base names of files found at the Location. All
	// implementations return ([]string{}, nil) for a non-existent location;
	// callers that care about the distinction should check Exists first.
	List() ([]string, error)

	// ListByPrefix returns the base names of files at the Location whose
	// names begin with the given prefix.
	ListByPrefix(prefix string) ([]string, error)

	// ListByRegex returns the base names of files at the Location that
	// match the given regular expression.
	ListByRegex(regex *regexp.Regexp) ([]string, error)

	// Entries returns a lazy iterator over the immediate children of the
	// Location, containers included. Pages are pulled from the backend as
	// the iterator advances; the full result set is never materialized.
	Entries() (EntryIterator, error)

	// Authority returns the authority portion of the location's URI: the
	// bucket for object stores, host[:port] for remote protocols, "" for
	// local and in-memory backends.
	Authority() string

	// Path returns the absolute path of the Location with leading and
	// trailing slashes, ie /some/path/to/
	Path() string

	// Exists reports whether the location exists on the backend.
	Exists() (bool, error)

	// NewLocation returns a new Location relative to the existing one. For
	// location file:///some/path/to/, NewLocation("../../") represents
	// file:///some/.
	NewLocation(relativePath string) (Location, error)

	// FileSystem returns the FileSystem the Location belongs to.
	FileSystem() FileSystem

	// NewFile returns a File at the current location's path with the given
	// relative file name.
	NewFile(fileName string, opts ...options.NewFileOption) (File, error)

	// DeleteFile deletes the file of the given name at the location.
	// Deleting a non-existent file is not an error.
	DeleteFile(fileName string, opts ...options.DeleteOption) error

	// URI returns the fully qualified URI for the Location, ie
	// s3://bucket/some/path/
	URI() string
}

// File represents a file on a backend. A File may or may not actually exist
// yet. Reads and writes on one File are strictly sequential; concurrent use
// of a single File is not supported.
type File interface {
	io.Closer
	io.Reader
	io.Seeker
	io.Writer
	fmt.Stringer

	// Exists reports whether the file exists on the backend.
	Exists() (bool, error)

	// Stat returns the file's DirEntry. A missing file returns ErrNotExist.
	Stat() (DirEntry, error)

	// Location returns the Location of the File.
	Location() Location

	// CopyToLocation copies the current file to the provided location,
	// keeping its name. Existing contents at the target are overwritten.
	CopyToLocation(location Location) (File, error)

	// CopyToFile copies the current file to the provided file instance.
	// Existing contents at the target are overwritten.
	CopyToFile(File) error

	// MoveToLocation moves the current file to the provided location,
	// keeping its name. The source is removed on success.
	MoveToLocation(location Location) (File, error)

	// MoveToFile moves the current file to the provided file instance. The
	// source is removed on success.
	MoveToFile(File) error

	// Delete unlinks the File on the backend. Deleting a non-existent file
	// is not an error; delete twice in a row and both calls succeed.
	Delete(opts ...options.DeleteOption) error

	// Touch creates a zero-length file if none exists, otherwise updates
	// the file's last modified timestamp.
	Touch() error

	// LastModified returns the timestamp the file was last modified.
	LastModified() (*time.Time, error)

	// Size returns the size of the file in bytes.
	Size() (uint64, error)

	// Path returns the absolute path including filename, ie
	// /some/path/to/file.txt
	Path() string

	// Name returns the base name of the file path.
	Name() string

	// URI returns the fully qualified URI for the File, ie
	// s3://bucket/some/path/to/file.txt
	URI() string
}
