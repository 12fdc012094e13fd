package mem

import (
	"errors"
	"io"
	"path"
	"time"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/options/delete"
	"github.com/smartfs/smartfs/utils"
)

// File implements smartfs.File for the in-memory file system. Reads operate
// on the committed contents; writes accumulate in a private buffer that
// replaces the committed contents when the file is closed, mirroring
// object-store put semantics.
type File struct {
	fileSystem  *FileSystem
	authority   string
	path        string
	contentType string

	cursor      int64
	writeBuffer []byte
	writing     bool
}

// Close commits any buffered writes and resets the read cursor.
func (f *File) Close() error {
	if f.writing {
		f.fileSystem.mu.Lock()
		f.fileSystem.put(f.authority, f.path, &memObject{
			contents:     f.writeBuffer,
			lastModified: time.Now().UTC(),
			contentType:  f.contentType,
		})
		f.fileSystem.mu.Unlock()
		f.writing = false
		f.writeBuffer = nil
	}
	f.cursor = 0
	return nil
}

// Read implements io.Reader for the committed contents.
func (f *File) Read(p []byte) (int, error) {
	if f.writing {
		return 0, errors.New("mem: read while a write is in progress")
	}

	f.fileSystem.mu.RLock()
	obj := f.fileSystem.object(f.authority, f.path)
	f.fileSystem.mu.RUnlock()
	if obj == nil {
		return 0, smartfs.ErrNotExist
	}

	if f.cursor >= int64(len(obj.contents)) {
		return 0, io.EOF
	}
	n := copy(p, obj.contents[f.cursor:])
	f.cursor += int64(n)
	return n, nil
}

// Seek implements io.Seeker over the committed contents.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.writing {
		return 0, errors.New("mem: seek while a write is in progress")
	}

	f.fileSystem.mu.RLock()
	obj := f.fileSystem.object(f.authority, f.path)
	f.fileSystem.mu.RUnlock()
	if obj == nil {
		return 0, smartfs.ErrNotExist
	}

	pos, err := utils.SeekTo(int64(len(obj.contents)), f.cursor, offset, whence)
	if err != nil {
		return 0, err
	}
	f.cursor = pos
	return pos, nil
}

// Write implements io.Writer. The first Write on a handle starts a fresh
// object; nothing is visible to readers until Close.
func (f *File) Write(p []byte) (int, error) {
	f.writing = true
	f.writeBuffer = append(f.writeBuffer, p...)
	return len(p), nil
}

// String implements fmt.Stringer, returning the file's URI.
func (f *File) String() string {
	return f.URI()
}

// Exists reports whether the file has committed contents.
func (f *File) Exists() (bool, error) {
	f.fileSystem.mu.RLock()
	defer f.fileSystem.mu.RUnlock()
	return f.fileSystem.object(f.authority, f.path) != nil, nil
}

// Stat returns the file's DirEntry. A missing file returns ErrNotExist.
func (f *File) Stat() (smartfs.DirEntry, error) {
	f.fileSystem.mu.RLock()
	obj := f.fileSystem.object(f.authority, f.path)
	f.fileSystem.mu.RUnlock()
	if obj == nil {
		return smartfs.DirEntry{}, smartfs.ErrNotExist
	}

	lastModified := obj.lastModified
	entry := smartfs.DirEntry{
		Name:         f.Name(),
		Size:         uint64(len(obj.contents)),
		LastModified: &lastModified,
	}
	if obj.contentType != "" {
		entry.Metadata = map[string]string{"content-type": obj.contentType}
	}
	return entry, nil
}

// Location returns the file's parent Location.
func (f *File) Location() smartfs.Location {
	loc, err := f.fileSystem.NewLocation(f.authority, utils.EnsureTrailingSlash(path.Dir(f.path)))
	if err != nil {
		panic(err)
	}
	return loc
}

// CopyToLocation copies the file to the given location, keeping its name.
func (f *File) CopyToLocation(location smartfs.Location) (smartfs.File, error) {
	target, err := location.NewFile(f.Name())
	if err != nil {
		return nil, err
	}
	if err := f.CopyToFile(target); err != nil {
		return nil, err
	}
	return target, nil
}

// CopyToFile copies the committed contents into target. When target lives on
// an in-memory file system the copy is a map operation; otherwise the bytes
// stream through target's Write.
func (f *File) CopyToFile(target smartfs.File) error {
	if memTarget, ok := target.(*File); ok {
		return f.copyWithin(memTarget)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := utils.TouchCopyBuffered(target, f, 0); err != nil {
		return err
	}
	return target.Close()
}

func (f *File) copyWithin(target *File) error {
	f.fileSystem.mu.RLock()
	obj := f.fileSystem.object(f.authority, f.path)
	var dup *memObject
	if obj != nil {
		dup = &memObject{
			contents:     append([]byte(nil), obj.contents...),
			lastModified: time.Now().UTC(),
			contentType:  obj.contentType,
		}
	}
	f.fileSystem.mu.RUnlock()

	if dup == nil {
		return smartfs.ErrNotExist
	}

	target.fileSystem.mu.Lock()
	target.fileSystem.put(target.authority, target.path, dup)
	target.fileSystem.mu.Unlock()
	return nil
}

// MoveToLocation moves the file to the given location, keeping its name.
func (f *File) MoveToLocation(location smartfs.Location) (smartfs.File, error) {
	target, err := location.NewFile(f.Name())
	if err != nil {
		return nil, err
	}
	if err := f.MoveToFile(target); err != nil {
		return nil, err
	}
	return target, nil
}

// MoveToFile moves the file to target. Within one in-memory file system this
// is a rename of the stored key.
func (f *File) MoveToFile(target smartfs.File) error {
	if memTarget, ok := target.(*File); ok && memTarget.fileSystem == f.fileSystem {
		f.fileSystem.mu.Lock()
		defer f.fileSystem.mu.Unlock()

		obj := f.fileSystem.object(f.authority, f.path)
		if obj == nil {
			return smartfs.ErrNotExist
		}
		f.fileSystem.put(memTarget.authority, memTarget.path, obj)
		f.fileSystem.remove(f.authority, f.path)
		return nil
	}

	if err := f.CopyToFile(target); err != nil {
		return err
	}
	return f.Delete()
}

// Delete removes the file. Deleting a non-existent file is not an error.
// The in-memory store keeps no versions, so delete.WithAllVersions is
// refused.
func (f *File) Delete(opts ...options.DeleteOption) error {
	for _, o := range opts {
		if _, ok := o.(delete.AllVersions); ok {
			return smartfs.NotSupported(Scheme, "delete all versions")
		}
	}

	f.fileSystem.mu.Lock()
	defer f.fileSystem.mu.Unlock()
	f.fileSystem.remove(f.authority, f.path)
	return nil
}

// Touch creates a zero-length file if none exists, otherwise updates the
// file's last modified timestamp.
func (f *File) Touch() error {
	f.fileSystem.mu.Lock()
	defer f.fileSystem.mu.Unlock()

	if obj := f.fileSystem.object(f.authority, f.path); obj != nil {
		obj.lastModified = time.Now().UTC()
		return nil
	}
	f.fileSystem.put(f.authority, f.path, &memObject{
		contents:     []byte{},
		lastModified: time.Now().UTC(),
		contentType:  f.contentType,
	})
	return nil
}

// LastModified returns the commit timestamp of the file.
func (f *File) LastModified() (*time.Time, error) {
	entry, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return entry.LastModified, nil
}

// Size returns the size of the committed contents in bytes.
func (f *File) Size() (uint64, error) {
	entry, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return entry.Size, nil
}

// Path returns the absolute path to the file.
func (f *File) Path() string {
	return f.path
}

// Name returns the file's base name.
func (f *File) Name() string {
	return path.Base(f.path)
}

// URI returns the file's URI, ie mem://volume/path/to/file.txt
func (f *File) URI() string {
	return utils.GetFileURI(f)
}
