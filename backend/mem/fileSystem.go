package mem

import (
	"path"
	"strings"
	"sync"
	"time"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/backend"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/options/newfile"
	"github.com/smartfs/smartfs/utils"
)

// Scheme defines the file system type.
const Scheme = "mem"
const name = "In-Memory Filesystem"

// memObject is the stored state of one file. All access goes through the
// owning FileSystem's lock.
type memObject struct {
	contents     []byte
	lastModified time.Time
	contentType  string
}

// FileSystem implements smartfs.FileSystem for a volatile in-memory store.
// A single instance may hold any number of named volumes.
type FileSystem struct {
	mu      sync.RWMutex
	volumes map[string]map[string]*memObject
}

// NewFileSystem initializes an empty in-memory FileSystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{volumes: make(map[string]map[string]*memObject)}
}

// NewFile returns the mem implementation of smartfs.File, rooted on the given
// volume. The file need not exist yet.
func (fs *FileSystem) NewFile(authority, filePath string, opts ...options.NewFileOption) (smartfs.File, error) {
	if err := utils.ValidateAbsoluteFilePath(filePath); err != nil {
		return nil, err
	}

	return &File{
		fileSystem:  fs,
		authority:   authority,
		path:        path.Clean(filePath),
		contentType: newfile.ContentTypeFrom(opts),
	}, nil
}

// NewLocation returns the mem implementation of smartfs.Location.
func (fs *FileSystem) NewLocation(authority, locPath string, opts ...options.NewLocationOption) (smartfs.Location, error) {
	if err := utils.ValidateAbsoluteLocationPath(locPath); err != nil {
		return nil, err
	}

	return &Location{
		fileSystem: fs,
		authority:  authority,
		path:       utils.EnsureTrailingSlash(path.Clean(locPath)),
	}, nil
}

// Name returns "In-Memory Filesystem"
func (fs *FileSystem) Name() string {
	return name
}

// Scheme returns "mem" as the initial part of a file URI ie: mem://
func (fs *FileSystem) Scheme() string {
	return Scheme
}

// Capabilities reports rename and copy as native. Both are map operations
// inside this process, so nothing is ever re-streamed.
func (fs *FileSystem) Capabilities() smartfs.Capability {
	return smartfs.CapabilityNativeRename | smartfs.CapabilityServerSideCopy
}

// object returns the stored object for a path, or nil. Callers must hold at
// least a read lock.
func (fs *FileSystem) object(authority, filePath string) *memObject {
	vol, ok := fs.volumes[authority]
	if !ok {
		return nil
	}
	return vol[filePath]
}

// put stores obj under the given path, creating the volume if needed.
// Callers must hold the write lock.
func (fs *FileSystem) put(authority, filePath string, obj *memObject) {
	vol, ok := fs.volumes[authority]
	if !ok {
		vol = make(map[string]*memObject)
		fs.volumes[authority] = vol
	}
	vol[filePath] = obj
}

// remove drops the object at the given path. Callers must hold the write
// lock.
func (fs *FileSystem) remove(authority, filePath string) {
	if vol, ok := fs.volumes[authority]; ok {
		delete(vol, filePath)
	}
}

// pathsUnder returns every stored file path on the volume that lives at or
// below prefix. Callers must hold at least a read lock.
func (fs *FileSystem) pathsUnder(authority, prefix string) []string {
	vol, ok := fs.volumes[authority]
	if !ok {
		return nil
	}

	var paths []string
	for p := range vol {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	return paths
}

func init() {
	backend.RegisterFactory(Scheme, func(authority string, _ smartfs.Options) (smartfs.FileSystem, error) {
		return NewFileSystem(), nil
	})
}
