package gs

import (
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/storage"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/backend"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/options/newfile"
	"github.com/smartfs/smartfs/options/newlocation"
	"github.com/smartfs/smartfs/utils"
)

// Scheme defines the file system type.
const Scheme = "gs"
const name = "Google Cloud Storage"

// FileSystem implements smartfs.FileSystem for Google Cloud Storage.
type FileSystem struct {
	client  *storage.Client
	ctx     context.Context
	options Options
}

// NewFileSystem initializer for FileSystem struct.
func NewFileSystem() *FileSystem {
	return &FileSystem{ctx: context.Background()}
}

// NewFile function returns the gcs implementation of smartfs.File. The
// authority is the bucket name.
func (fs *FileSystem) NewFile(authority, filePath string, opts ...options.NewFileOption) (smartfs.File, error) {
	if authority == "" {
		return nil, fmt.Errorf("gs: %w: bucket is required", smartfs.ErrInvalidLocation)
	}
	if err := utils.ValidateAbsoluteFilePath(filePath); err != nil {
		return nil, err
	}

	return &File{
		fileSystem:  fs,
		bucket:      authority,
		key:         path.Clean(filePath),
		ctx:         newfile.ContextFrom(opts),
		contentType: newfile.ContentTypeFrom(opts),
	}, nil
}

// NewLocation function returns the gcs implementation of smartfs.Location.
func (fs *FileSystem) NewLocation(authority, locPath string, opts ...options.NewLocationOption) (smartfs.Location, error) {
	if authority == "" {
		return nil, fmt.Errorf("gs: %w: bucket is required", smartfs.ErrInvalidLocation)
	}
	if err := utils.ValidateAbsoluteLocationPath(locPath); err != nil {
		return nil, err
	}

	return &Location{
		fileSystem: fs,
		bucket:     authority,
		prefix:     utils.EnsureTrailingSlash(path.Clean(locPath)),
		ctx:        newlocation.ContextFrom(opts),
	}, nil
}

// Name returns "Google Cloud Storage"
func (fs *FileSystem) Name() string {
	return name
}

// Scheme return "gs" as the initial part of a file URI ie: gs://
func (fs *FileSystem) Scheme() string {
	return Scheme
}

// Capabilities reports server-side copy. Rename is synthesized as
// copy+delete.
func (fs *FileSystem) Capabilities() smartfs.Capability {
	return smartfs.CapabilityServerSideCopy
}

// Client returns the underlying google storage client, creating it if
// necessary. See doc.go for authentication resolution.
func (fs *FileSystem) Client() (*storage.Client, error) {
	if fs.client == nil {
		client, err := storage.NewClient(fs.ctx, parseClientOptions(fs.options)...)
		if err != nil {
			return nil, err
		}
		fs.client = client
	}
	return fs.client, nil
}

// WithOptions sets options for the client and returns the filesystem
// (chainable).
func (fs *FileSystem) WithOptions(opts Options) *FileSystem {
	fs.options = opts
	// client is rebuilt from the new options on next use
	fs.client = nil
	return fs
}

// WithClient passes in a google storage client and returns the filesystem
// (chainable).
func (fs *FileSystem) WithClient(client *storage.Client) *FileSystem {
	fs.client = client
	return fs
}

func init() {
	backend.RegisterFactory(Scheme, func(_ string, opts smartfs.Options) (smartfs.FileSystem, error) {
		fs := NewFileSystem()
		if o, ok := opts.(Options); ok {
			fs = fs.WithOptions(o)
		}
		if _, err := fs.Client(); err != nil {
			return nil, err
		}
		return fs, nil
	})
}
