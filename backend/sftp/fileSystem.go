package sftp

import (
	"path"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/backend"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/utils"
)

// Scheme defines the file system type.
const Scheme = "sftp"
const name = "SSH File Transfer Protocol"

var defaultClientGetter func(utils.Authority, Options) (Client, error)

func init() {
	// overridable for tests
	defaultClientGetter = getClient

	backend.RegisterFactory(Scheme, func(_ string, opts smartfs.Options) (smartfs.FileSystem, error) {
		fs := NewFileSystem()
		if o, ok := opts.(Options); ok {
			fs = fs.WithOptions(o)
		}
		return fs, nil
	})
}

// FileSystem implements smartfs.FileSystem for SFTP.
type FileSystem struct {
	options    Options
	sftpclient Client
}

// NewFileSystem initializer for FileSystem struct.
func NewFileSystem() *FileSystem {
	return &FileSystem{}
}

// NewFile function returns the SFTP implementation of smartfs.File.
func (fs *FileSystem) NewFile(authority, filePath string, opts ...options.NewFileOption) (smartfs.File, error) {
	if err := utils.ValidateAbsoluteFilePath(filePath); err != nil {
		return nil, err
	}

	auth, err := utils.NewAuthority(authority)
	if err != nil {
		return nil, err
	}

	return &File{
		fileSystem: fs,
		authority:  auth,
		path:       path.Clean(filePath),
	}, nil
}

// NewLocation function returns the SFTP implementation of smartfs.Location.
func (fs *FileSystem) NewLocation(authority, locPath string, opts ...options.NewLocationOption) (smartfs.Location, error) {
	if err := utils.ValidateAbsoluteLocationPath(locPath); err != nil {
		return nil, err
	}

	auth, err := utils.NewAuthority(authority)
	if err != nil {
		return nil, err
	}

	return &Location{
		fileSystem: fs,
		authority:  auth,
		prefix:     utils.EnsureTrailingSlash(path.Clean(locPath)),
	}, nil
}

// Name returns "SSH File Transfer Protocol"
func (fs *FileSystem) Name() string {
	return name
}

// Scheme return "sftp" as the initial part of a file URI ie: sftp://
func (fs *FileSystem) Scheme() string {
	return Scheme
}

// Capabilities reports native rename. Server-side copy is not part of the
// protocol.
func (fs *FileSystem) Capabilities() smartfs.Capability {
	return smartfs.CapabilityNativeRename
}

// Client returns the underlying sftp client, dialing if one has not been
// established yet. See doc.go for authentication resolution.
func (fs *FileSystem) Client(authority utils.Authority) (Client, error) {
	if fs.sftpclient == nil {
		client, err := defaultClientGetter(authority, fs.options)
		if err != nil {
			return nil, &smartfs.BackendInitError{Scheme: Scheme, Authority: authority.String(), Err: err}
		}
		fs.sftpclient = client
	}
	return fs.sftpclient, nil
}

// WithOptions sets options for the filesystem and returns the filesystem
// (chainable).
func (fs *FileSystem) WithOptions(opts Options) *FileSystem {
	fs.options = opts
	// a new client is dialed from the new options on next use
	fs.sftpclient = nil
	return fs
}

// WithClient passes in an sftp client and returns the filesystem
// (chainable).
func (fs *FileSystem) WithClient(client Client) *FileSystem {
	fs.sftpclient = client
	return fs
}
