package os

import (
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/backend"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/options/delete"
	"github.com/smartfs/smartfs/utils"
)

const osCrossDeviceLinkError = "invalid cross-device link"

// File implements smartfs.File for the local disk. Reads operate on the
// target file directly; writes go to a temp file in the same directory that
// replaces the target on Close.
type File struct {
	fileSystem *FileSystem
	path       string

	file        *os.File
	tempFile    *os.File
	useTempFile bool
	cursorPos   int64
}

// Close flushes any pending write by renaming the temp file over the target,
// then releases open handles.
func (f *File) Close() error {
	f.useTempFile = false
	f.cursorPos = 0

	if f.tempFile != nil {
		if err := f.tempFile.Close(); err != nil {
			return err
		}
		tempName := f.tempFile.Name()
		f.tempFile = nil
		if err := safeOsRename(tempName, f.path); err != nil {
			return err
		}
	}

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	if err == nil {
		f.file = nil
	}
	return err
}

// Read implements the io.Reader interface. It returns the bytes read and an
// error, if any.
func (f *File) Read(p []byte) (int, error) {
	if !f.useTempFile {
		if exists, err := f.Exists(); err != nil {
			return 0, err
		} else if !exists {
			return 0, fmt.Errorf("read %s: %w", f.path, smartfs.ErrNotExist)
		}
	}

	useFile, err := f.getInternalFile()
	if err != nil {
		return 0, err
	}

	read, err := useFile.Read(p)
	if err != nil {
		return read, err
	}
	f.cursorPos += int64(read)
	return read, nil
}

// Seek implements the io.Seeker interface. It returns the new offset and an
// error, if any.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	useFile, err := f.getInternalFile()
	if err != nil {
		return 0, err
	}

	f.cursorPos, err = useFile.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	return f.cursorPos, nil
}

// Write implements the io.Writer interface. Bytes land in a temp file that
// atomically replaces the target on Close.
func (f *File) Write(p []byte) (int, error) {
	f.useTempFile = true

	useFile, err := f.getInternalFile()
	if err != nil {
		return 0, err
	}
	write, err := useFile.Write(p)
	if err != nil {
		return 0, err
	}
	f.cursorPos += int64(write)
	return write, nil
}

// String implement fmt.Stringer, returning the file's URI as the default
// string.
func (f *File) String() string {
	return f.URI()
}

// Exists true if the file exists on disk, otherwise false, and an error, if
// any.
func (f *File) Exists() (bool, error) {
	_, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Stat returns the file's DirEntry, with the mode bits carried in Metadata.
func (f *File) Stat() (smartfs.DirEntry, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return smartfs.DirEntry{}, fmt.Errorf("stat %s: %w", f.path, smartfs.ErrNotExist)
		}
		return smartfs.DirEntry{}, err
	}
	return entryFromInfo(info), nil
}

// Location returns the file's parent Location.
func (f *File) Location() smartfs.Location {
	return &Location{
		fileSystem: f.fileSystem,
		path:       utils.EnsureTrailingSlash(path.Dir(f.path)),
	}
}

// CopyToLocation copies existing File to new Location with the same name. It
// accepts a smartfs.Location and returns a smartfs.File and error, if any.
func (f *File) CopyToLocation(location smartfs.Location) (smartfs.File, error) {
	if err := backend.ValidateCopySeekPosition(f); err != nil {
		return nil, err
	}
	return f.copyWithName(f.Name(), location)
}

// CopyToFile copies the file to a target File. It accepts a smartfs.File and
// returns an error, if any.
func (f *File) CopyToFile(file smartfs.File) error {
	if err := backend.ValidateCopySeekPosition(f); err != nil {
		return err
	}
	_, err := f.copyWithName(file.Name(), file.Location())
	return err
}

// MoveToLocation moves the file to a new Location. It accepts a
// smartfs.Location and returns a smartfs.File and an error, if any.
func (f *File) MoveToLocation(location smartfs.Location) (smartfs.File, error) {
	if location.FileSystem().Scheme() == Scheme {
		if err := ensureDir(location.Path()); err != nil {
			return nil, err
		}
	}

	file, err := location.NewFile(f.Name())
	if err != nil {
		return nil, err
	}
	if err := f.MoveToFile(file); err != nil {
		return nil, err
	}
	return location.NewFile(f.Name())
}

// MoveToFile moves the file. Within the local disk this is os.Rename, with a
// copy+delete fallback across devices.
func (f *File) MoveToFile(file smartfs.File) error {
	if err := backend.ValidateCopySeekPosition(f); err != nil {
		return err
	}

	if file.Location().FileSystem().Scheme() == Scheme {
		if err := ensureDir(file.Location().Path()); err != nil {
			return err
		}
		return safeOsRename(f.path, file.Path())
	}

	if _, err := f.copyWithName(file.Name(), file.Location()); err != nil {
		return err
	}
	return f.Delete()
}

// Delete unlinks the file. Deleting a non-existent file is not an error.
// Local disk keeps no object versions, so delete.WithAllVersions is refused.
func (f *File) Delete(opts ...options.DeleteOption) error {
	for _, o := range opts {
		if _, ok := o.(delete.AllVersions); ok {
			return smartfs.NotSupported(Scheme, "delete all versions")
		}
	}

	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	f.file = nil
	return nil
}

// Touch creates a zero-length file if none exists, otherwise updates the
// file's last modified timestamp.
func (f *File) Touch() error {
	exists, err := f.Exists()
	if err != nil {
		return err
	}

	if !exists {
		if err := ensureDir(path.Dir(f.path)); err != nil {
			return err
		}
		file, err := os.Create(f.path)
		if err != nil {
			return err
		}
		return file.Close()
	}
	now := time.Now()
	return os.Chtimes(f.path, now, now)
}

// LastModified returns the timestamp of the file's mtime or error, if any.
func (f *File) LastModified() (*time.Time, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", f.path, smartfs.ErrNotExist)
		}
		return nil, err
	}
	modTime := info.ModTime()
	return &modTime, nil
}

// Size returns the size (in bytes) of the File or any error.
func (f *File) Size() (uint64, error) {
	entry, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return entry.Size, nil
}

// Path returns the path of the File.
func (f *File) Path() string {
	return f.path
}

// Name returns the base name of the File.
func (f *File) Name() string {
	return path.Base(f.path)
}

// URI returns the File's URI as a string.
func (f *File) URI() string {
	return utils.GetFileURI(f)
}

func (f *File) copyWithName(name string, location smartfs.Location) (smartfs.File, error) {
	newFile, err := location.NewFile(name)
	if err != nil {
		return nil, err
	}

	if err := utils.TouchCopyBuffered(newFile, f, 0); err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	if err := newFile.Close(); err != nil {
		return nil, err
	}
	return newFile, nil
}

// getInternalFile returns the handle reads and writes should operate on: the
// temp file once a write has started, the target file otherwise.
func (f *File) getInternalFile() (*os.File, error) {
	if !f.useTempFile {
		if f.file == nil {
			file, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE, 0o644)
			if err != nil {
				return nil, err
			}
			f.file = file
		}
		return f.file, nil
	}

	if f.tempFile == nil {
		tempFile, err := f.copyToTempFile()
		if err != nil {
			return nil, err
		}
		f.tempFile = tempFile
	}
	return f.tempFile, nil
}

// copyToTempFile seeds the temp file with the current contents, if any, so a
// Seek+Write sequence behaves like editing the target in place.
func (f *File) copyToTempFile() (*os.File, error) {
	if err := ensureDir(path.Dir(f.path)); err != nil {
		return nil, err
	}

	tempFile, err := os.Create(path.Join(path.Dir(f.path),
		f.Name()+strconv.FormatInt(time.Now().UnixNano(), 10)))
	if err != nil {
		return nil, err
	}

	if existing, err := os.Open(f.path); err == nil { //nolint:gosec
		if _, err := io.Copy(tempFile, existing); err != nil {
			_ = existing.Close()
			_ = tempFile.Close()
			return nil, err
		}
		if err := existing.Close(); err != nil {
			_ = tempFile.Close()
			return nil, err
		}
		if _, err := tempFile.Seek(f.cursorPos, io.SeekStart); err != nil {
			_ = tempFile.Close()
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		_ = tempFile.Close()
		return nil, err
	}

	return tempFile, nil
}

// safeOsRename will attempt an os.Rename, falling back to copy+delete when
// source and target live on different devices.
func safeOsRename(srcName, dstName string) error {
	err := os.Rename(srcName, dstName)
	if err != nil {
		if e, ok := err.(*os.LinkError); ok && e.Err.Error() == osCrossDeviceLinkError {
			if err := osCopy(srcName, dstName); err != nil {
				return err
			}
			return os.Remove(srcName)
		}
		return err
	}
	return nil
}

// osCopy just io.Copy's the os files.
func osCopy(srcName, dstName string) error {
	srcReader, err := os.Open(srcName) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = srcReader.Close() }()

	dstWriter, err := os.Create(dstName)
	if err != nil {
		return err
	}
	defer func() { _ = dstWriter.Close() }()

	buffer := make([]byte, utils.TouchCopyMinBufferSize)
	_, err = io.CopyBuffer(dstWriter, srcReader, buffer)
	return err
}

func ensureDir(dirPath string) error {
	if exists, err := dirExists(dirPath); err != nil {
		return err
	} else if !exists {
		return os.MkdirAll(dirPath, 0o750)
	}
	return nil
}

func dirExists(dirPath string) (bool, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func entryFromInfo(info os.FileInfo) smartfs.DirEntry {
	modTime := info.ModTime()
	return smartfs.DirEntry{
		Name:         info.Name(),
		IsDir:        info.IsDir(),
		Size:         uint64(info.Size()),
		LastModified: &modTime,
		Metadata: map[string]string{
			"mode": info.Mode().Perm().String(),
		},
	}
}
