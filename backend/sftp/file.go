package sftp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/options/delete"
	"github.com/smartfs/smartfs/utils"
)

// File implements smartfs.File for SFTP.
type File struct {
	fileSystem *FileSystem
	authority  utils.Authority
	path       string

	sftpfile   ReadWriteSeekCloser
	flagsUsed  int
	seekCalled bool
	readCalled bool
}

// LastModified returns the modification time reported by the server.
func (f *File) LastModified() (*time.Time, error) {
	client, err := f.fileSystem.Client(f.authority)
	if err != nil {
		return nil, err
	}

	info, err := client.Stat(f.Path())
	if err != nil {
		return nil, translateError("stat", f.URI(), err)
	}
	t := info.ModTime()
	return &t, nil
}

// Name returns the base name of the file path.
func (f *File) Name() string {
	return path.Base(f.path)
}

// Path returns the absolute path of the file.
func (f *File) Path() string {
	return utils.EnsureLeadingSlash(f.path)
}

// Exists returns a boolean of whether the file exists on the sftp server.
func (f *File) Exists() (bool, error) {
	client, err := f.fileSystem.Client(f.authority)
	if err != nil {
		return false, err
	}

	if _, err := client.Stat(f.Path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, translateError("stat", f.URI(), err)
	}
	return true, nil
}

// Stat returns the file's DirEntry built from the server's stat reply.
func (f *File) Stat() (smartfs.DirEntry, error) {
	client, err := f.fileSystem.Client(f.authority)
	if err != nil {
		return smartfs.DirEntry{}, err
	}

	info, err := client.Stat(f.Path())
	if err != nil {
		return smartfs.DirEntry{}, translateError("stat", f.URI(), err)
	}
	return entryFromInfo(info), nil
}

// Touch creates a zero-length file if none exists, otherwise updates the
// file's access and modification times.
func (f *File) Touch() error {
	exists, err := f.Exists()
	if err != nil {
		return err
	}

	if !exists {
		file, err := f.openFile(os.O_WRONLY | os.O_CREATE)
		if err != nil {
			return err
		}
		f.sftpfile = file
		return f.Close()
	}

	client, err := f.fileSystem.Client(f.authority)
	if err != nil {
		return err
	}

	now := time.Now()
	return translateError("touch", f.URI(), client.Chtimes(f.Path(), now, now))
}

// Size returns the size of the remote file.
func (f *File) Size() (uint64, error) {
	client, err := f.fileSystem.Client(f.authority)
	if err != nil {
		return 0, err
	}

	info, err := client.Stat(f.Path())
	if err != nil {
		return 0, translateError("stat", f.URI(), err)
	}
	return uint64(info.Size()), nil //nolint:gosec
}

// Location returns the Location of the File.
func (f *File) Location() smartfs.Location {
	return &Location{
		fileSystem: f.fileSystem,
		authority:  f.authority,
		prefix:     utils.EnsureTrailingSlash(path.Dir(f.path)),
	}
}

// MoveToFile moves the file to target. When the target lives on the same
// host under the same user, the server renames in place; otherwise the
// bytes stream through this process and the source is deleted after.
func (f *File) MoveToFile(t smartfs.File) error {
	if tf, ok := t.(*File); ok &&
		f.authority.Username() == tf.authority.Username() &&
		f.authority.HostPortStr() == tf.authority.HostPortStr() {

		client, err := f.fileSystem.Client(f.authority)
		if err != nil {
			return err
		}

		exists, err := t.Location().Exists()
		if err != nil {
			return err
		}
		if !exists {
			if err := client.MkdirAll(t.Location().Path()); err != nil {
				return translateError("mkdir", t.Location().URI(), err)
			}
		}

		// sftp rename refuses to clobber; remove the target first
		targetExists, err := t.Exists()
		if err != nil {
			return err
		}
		if targetExists {
			if err := t.Delete(); err != nil {
				return err
			}
		}

		return translateError("move", f.URI(), client.Rename(f.Path(), tf.Path()))
	}

	if err := f.CopyToFile(t); err != nil {
		return err
	}
	return f.Delete()
}

// MoveToLocation moves the file to the given location, keeping its name.
func (f *File) MoveToLocation(location smartfs.Location) (smartfs.File, error) {
	newFile, err := location.NewFile(f.Name())
	if err != nil {
		return nil, err
	}
	if err := f.MoveToFile(newFile); err != nil {
		return nil, err
	}
	return newFile, nil
}

// CopyToFile puts the contents of the file into the target.
func (f *File) CopyToFile(file smartfs.File) error {
	if err := utils.TouchCopyBuffered(file, f, f.fileSystem.options.FileBufferSize); err != nil {
		return err
	}
	// close target first so its buffered contents commit
	if cerr := file.Close(); cerr != nil {
		return cerr
	}
	return f.Close()
}

// CopyToLocation creates a copy of the file at the given location, keeping
// its name.
func (f *File) CopyToLocation(location smartfs.Location) (smartfs.File, error) {
	newFile, err := location.NewFile(f.Name())
	if err != nil {
		return nil, err
	}
	return newFile, f.CopyToFile(newFile)
}

// Delete removes the remote file. Deleting a non-existent file is not an
// error. Sftp servers keep no object versions, so delete.WithAllVersions is
// refused.
func (f *File) Delete(opts ...options.DeleteOption) error {
	for _, o := range opts {
		if _, ok := o.(delete.AllVersions); ok {
			return smartfs.NotSupported(Scheme, "delete all versions")
		}
	}

	client, err := f.fileSystem.Client(f.authority)
	if err != nil {
		return err
	}
	if err := client.Remove(f.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return translateError("delete", f.URI(), err)
	}
	return nil
}

// Close calls the underlying sftp file Close, if opened, and clears the
// internal handle.
func (f *File) Close() error {
	f.seekCalled = false
	f.readCalled = false
	f.flagsUsed = 0

	if f.sftpfile != nil {
		if err := f.sftpfile.Close(); err != nil {
			return translateError("close", f.URI(), err)
		}
		f.sftpfile = nil
	}
	return nil
}

// Read implements the standard for io.Reader.
func (f *File) Read(p []byte) (n int, err error) {
	file, err := f.openFile(os.O_RDONLY)
	if err != nil {
		return 0, translateError("read", f.URI(), err)
	}

	f.readCalled = true

	read, err := file.Read(p)
	if err != nil {
		// io.Copy inspects EOF directly, so it must pass unwrapped
		if errors.Is(err, io.EOF) {
			return read, io.EOF
		}
		return read, translateError("read", f.URI(), err)
	}
	return read, nil
}

// Seek implements the standard for io.Seeker.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	file, err := f.openFile(os.O_RDONLY)
	if err != nil {
		return 0, translateError("seek", f.URI(), err)
	}

	f.seekCalled = true
	pos, err := file.Seek(offset, whence)
	if err != nil {
		return pos, translateError("seek", f.URI(), err)
	}
	return pos, nil
}

// Write implements the standard for io.Writer. A plain write replaces the
// file; a write after a read or seek edits it in place.
func (f *File) Write(data []byte) (res int, err error) {
	flags := os.O_WRONLY | os.O_CREATE
	if !f.readCalled && !f.seekCalled {
		flags |= os.O_TRUNC
	}

	file, err := f.openFile(flags)
	if err != nil {
		return 0, translateError("write", f.URI(), err)
	}

	b, err := file.Write(data)
	if err != nil {
		return b, translateError("write", f.URI(), err)
	}
	return b, nil
}

// URI returns the File's URI as a string.
func (f *File) URI() string {
	return utils.EncodeURI(Scheme, f.authority.Username(), f.authority.HostPortStr(), f.Path())
}

// String implement fmt.Stringer, returning the file's URI as the default
// string.
func (f *File) String() string {
	return f.URI()
}

// openFile returns the open remote handle, reopening in read-write mode
// when a read handle is asked to write or vice versa. Reopening preserves
// the current position.
func (f *File) openFile(flags int) (ReadWriteSeekCloser, error) {
	if f.sftpfile != nil {
		needRw := false
		if f.flagsUsed&os.O_RDWR == 0 {
			if f.flagsUsed == os.O_RDONLY && flags&(os.O_WRONLY|os.O_RDWR) != 0 {
				needRw = true
			}
			if f.flagsUsed&(os.O_WRONLY|os.O_RDWR) != 0 && flags == os.O_RDONLY {
				needRw = true
			}
		}
		if !needRw {
			return f.sftpfile, nil
		}

		newFlags := os.O_RDWR
		if flags&os.O_CREATE != 0 {
			newFlags |= os.O_CREATE
		}

		pos, err := f.sftpfile.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		if err := f.sftpfile.Close(); err != nil {
			return nil, err
		}

		file, err := f.open(newFlags)
		if err != nil {
			return nil, err
		}
		if _, err := file.Seek(pos, io.SeekStart); err != nil {
			return nil, err
		}

		f.flagsUsed = newFlags
		f.sftpfile = file
		return file, nil
	}

	file, err := f.open(flags)
	if err != nil {
		return nil, err
	}

	f.flagsUsed = flags
	f.sftpfile = file
	return file, nil
}

func (f *File) open(flags int) (ReadWriteSeekCloser, error) {
	client, err := f.fileSystem.Client(f.authority)
	if err != nil {
		return nil, err
	}

	if flags&os.O_CREATE != 0 {
		// every backend creates missing parent directories on write
		if err := client.MkdirAll(path.Dir(f.path)); err != nil {
			return nil, err
		}
	}

	file, err := client.OpenFile(f.Path(), flags)
	if err != nil {
		return nil, err
	}

	// chmod when default permissions are configured and opening for write
	if flags&os.O_WRONLY != 0 {
		perms, err := f.fileSystem.options.GetFileMode()
		if err != nil {
			return nil, err
		}
		if perms != nil {
			if err := client.Chmod(f.Path(), *perms); err != nil {
				return nil, fmt.Errorf("chmod: %w", err)
			}
		}
	}

	return file, nil
}

// translateError maps sftp client errors onto the backend-neutral
// sentinels. The sftp library already normalizes its status replies to
// os.ErrNotExist and os.ErrPermission.
func translateError(op, uri string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", op, uri, smartfs.ErrNotExist)
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%s %s: %w", op, uri, smartfs.ErrPermission)
	}
	return fmt.Errorf("%s %s: %w", op, uri, err)
}

func entryFromInfo(info os.FileInfo) smartfs.DirEntry {
	t := info.ModTime()
	return smartfs.DirEntry{
		Name:         info.Name(),
		Size:         uint64(info.Size()), //nolint:gosec
		IsDir:        info.IsDir(),
		LastModified: &t,
		Metadata:     map[string]string{"mode": info.Mode().String()},
	}
}
