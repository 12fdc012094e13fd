package os

import (
	"path"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/backend"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/utils"
)

// Scheme defines the file system type.
const Scheme = "file"
const name = "os"

// FileSystem implements smartfs.FileSystem for the local disk.
type FileSystem struct{}

// NewFile function returns the os implementation of smartfs.File. The
// authority is ignored; local paths have none.
func (fs *FileSystem) NewFile(_, filePath string, opts ...options.NewFileOption) (smartfs.File, error) {
	if err := utils.ValidateAbsoluteFilePath(filePath); err != nil {
		return nil, err
	}
	return &File{
		fileSystem: fs,
		path:       path.Clean(filePath),
	}, nil
}

// NewLocation function returns the os implementation of smartfs.Location.
func (fs *FileSystem) NewLocation(_, locPath string, opts ...options.NewLocationOption) (smartfs.Location, error) {
	if err := utils.ValidateAbsoluteLocationPath(locPath); err != nil {
		return nil, err
	}
	return &Location{
		fileSystem: fs,
		path:       utils.EnsureTrailingSlash(path.Clean(locPath)),
	}, nil
}

// Name returns "os"
func (fs *FileSystem) Name() string {
	return name
}

// Scheme return "file" as the initial part of a file URI ie: file://
func (fs *FileSystem) Scheme() string {
	return Scheme
}

// Capabilities reports rename as native via os.Rename.
func (fs *FileSystem) Capabilities() smartfs.Capability {
	return smartfs.CapabilityNativeRename
}

func init() {
	backend.RegisterFactory(Scheme, func(_ string, _ smartfs.Options) (smartfs.FileSystem, error) {
		return &FileSystem{}, nil
	})
}
