package ftp

import (
	"context"
	"path"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/backend"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/options/newfile"
	"github.com/smartfs/smartfs/options/newlocation"
	"github.com/smartfs/smartfs/utils"
)

// Scheme defines the file system type.
const Scheme = "ftp"
const name = "File Transfer Protocol"

var defaultClientGetter func(context.Context, utils.Authority, Options) (Client, error)
var dataConnGetterFunc func(context.Context, utils.Authority, *FileSystem, *File, OpenType) (DataConn, error)

func init() {
	// overridable for tests
	defaultClientGetter = getClient
	dataConnGetterFunc = getDataConn

	backend.RegisterFactory(Scheme, func(_ string, opts smartfs.Options) (smartfs.FileSystem, error) {
		fs := NewFileSystem()
		if o, ok := opts.(Options); ok {
			fs = fs.WithOptions(o)
		}
		return fs, nil
	})
}

// FileSystem implements smartfs.FileSystem for FTP. One control connection
// is held per handle; operations on a handle are sequential.
type FileSystem struct {
	options   Options
	ftpclient Client
	dataconn  DataConn
}

// NewFileSystem initializer for FileSystem struct.
func NewFileSystem() *FileSystem {
	return &FileSystem{}
}

// NewFile function returns the FTP implementation of smartfs.File.
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
		ctx:        newfile.ContextFrom(opts),
	}, nil
}

// NewLocation function returns the FTP implementation of smartfs.Location.
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
		ctx:        newlocation.ContextFrom(opts),
	}, nil
}

// Name returns "File Transfer Protocol"
func (fs *FileSystem) Name() string {
	return name
}

// Scheme return "ftp" as the initial part of a file URI ie: ftp://
func (fs *FileSystem) Scheme() string {
	return Scheme
}

// Capabilities reports native rename via the RNFR/RNTO command pair.
// Server-side copy is not part of the protocol.
func (fs *FileSystem) Capabilities() smartfs.Capability {
	return smartfs.CapabilityNativeRename
}

// Client returns the underlying ftp client, dialing and logging in if one
// has not been established yet.
func (fs *FileSystem) Client(ctx context.Context, authority utils.Authority) (Client, error) {
	if fs.ftpclient == nil {
		client, err := defaultClientGetter(ctx, authority, fs.options)
		if err != nil {
			return nil, &smartfs.BackendInitError{Scheme: Scheme, Authority: authority.String(), Err: err}
		}
		fs.ftpclient = client
	}
	return fs.ftpclient, nil
}

// DataConn returns the current data connection, opening one in the given
// mode if necessary.
func (fs *FileSystem) DataConn(ctx context.Context, authority utils.Authority, t OpenType, f *File) (DataConn, error) {
	return dataConnGetterFunc(ctx, authority, fs, f, t)
}

// WithOptions sets options for the filesystem and returns the filesystem
// (chainable).
func (fs *FileSystem) WithOptions(opts Options) *FileSystem {
	fs.options = opts
	// a new client is dialed from the new options on next use
	fs.ftpclient = nil
	return fs
}

// WithClient passes in an ftp client and returns the filesystem (chainable).
func (fs *FileSystem) WithClient(client Client) *FileSystem {
	fs.ftpclient = client
	return fs
}
