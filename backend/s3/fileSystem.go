package s3

import (
	"fmt"
	"path"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/backend"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/options/newfile"
	"github.com/smartfs/smartfs/options/newlocation"
	"github.com/smartfs/smartfs/utils"
)

// Scheme defines the file system type.
const Scheme = "s3"
const name = "AWS S3"

// FileSystem implements smartfs.FileSystem for AWS S3 and s3-compatible
// stores (minio, localstack).
type FileSystem struct {
	client  Client
	options Options
}

// NewFileSystem initializer for FileSystem struct.
func NewFileSystem() *FileSystem {
	return &FileSystem{}
}

// NewFile function returns the s3 implementation of smartfs.File. The
// authority is the bucket name.
func (fs *FileSystem) NewFile(authority, filePath string, opts ...options.NewFileOption) (smartfs.File, error) {
	if authority == "" {
		return nil, fmt.Errorf("s3: %w: bucket is required", smartfs.ErrInvalidLocation)
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

// NewLocation function returns the s3 implementation of smartfs.Location.
func (fs *FileSystem) NewLocation(authority, locPath string, opts ...options.NewLocationOption) (smartfs.Location, error) {
	if authority == "" {
		return nil, fmt.Errorf("s3: %w: bucket is required", smartfs.ErrInvalidLocation)
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

// Name returns "AWS S3"
func (fs *FileSystem) Name() string {
	return name
}

// Scheme return "s3" as the initial part of a file URI ie: s3://
func (fs *FileSystem) Scheme() string {
	return Scheme
}

// Capabilities reports server-side copy and multipart upload. Rename is
// synthesized as copy+delete. Checksum reporting is not declared: the etag
// of a multipart object is a hash of part hashes, not a digest of the
// object bytes, so there is nothing the stream engine could verify against.
func (fs *FileSystem) Capabilities() smartfs.Capability {
	return smartfs.CapabilityServerSideCopy |
		smartfs.CapabilityMultipartUpload
}

// Client returns the underlying aws s3 client, creating it lazily if
// necessary. See doc.go for authentication resolution.
func (fs *FileSystem) Client() (Client, error) {
	if fs.client == nil {
		client, err := getClient(fs.options)
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

// WithClient passes in an s3 client and returns the filesystem (chainable).
func (fs *FileSystem) WithClient(client Client) *FileSystem {
	fs.client = client
	return fs
}

func init() {
	backend.RegisterFactory(Scheme, func(_ string, opts smartfs.Options) (smartfs.FileSystem, error) {
		fs := NewFileSystem()
		if o, ok := opts.(Options); ok {
			fs = fs.WithOptions(o)
		}
		// the client is constructed here so credential problems surface as
		// a resolve failure instead of on first use
		if _, err := fs.Client(); err != nil {
			return nil, err
		}
		return fs, nil
	})
}
