package ftp

import (
	"context"
	"errors"
	"io"
	"path"
	"strconv"
	"time"

	_ftp "github.com/jlaffaye/ftp"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/options/delete"
	"github.com/smartfs/smartfs/utils"
)

var tempFileNameGetter = getTempFilename
var now = time.Now

// File implements smartfs.File for FTP.
type File struct {
	fileSystem *FileSystem
	authority  utils.Authority
	path       string
	ctx        context.Context

	dataconn  DataConn
	offset    int64
	resetConn bool
}

func (f *File) stat(ctx context.Context) (*_ftp.Entry, error) {
	client, err := f.fileSystem.Client(ctx, f.authority)
	if err != nil {
		return nil, err
	}

	entry, err := client.GetEntry(f.Path())
	if err != nil {
		if errorIsNotExist(err) {
			return nil, smartfs.ErrNotExist
		}
		return nil, translateError("stat", f.URI(), err)
	}
	return entry, nil
}

// Name returns the base name of the file path.
func (f *File) Name() string {
	return path.Base(f.path)
}

// Path returns the absolute path of the file.
func (f *File) Path() string {
	return utils.EnsureLeadingSlash(f.path)
}

// Exists returns a boolean of whether the file exists on the ftp server.
func (f *File) Exists() (bool, error) {
	_, err := f.stat(f.ctx)
	if err != nil {
		if errors.Is(err, smartfs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Stat returns the file's DirEntry built from the server's MLST reply.
func (f *File) Stat() (smartfs.DirEntry, error) {
	entry, err := f.stat(f.ctx)
	if err != nil {
		return smartfs.DirEntry{}, translateError("stat", f.URI(), err)
	}
	return entryFromFTP(entry), nil
}

// Touch creates a zero-length file if none exists. For an existing file the
// modification time is set with MFMT when the server supports it, otherwise
// the file is renamed away and back so the server refreshes the timestamp.
func (f *File) Touch() error {
	exists, err := f.Exists()
	if err != nil {
		return err
	}

	if !exists {
		if _, err := f.Write([]byte{}); err != nil {
			return err
		}
		return f.Close()
	}

	client, err := f.fileSystem.Client(f.ctx, f.authority)
	if err != nil {
		return err
	}

	if client.IsSetTimeSupported() {
		return translateError("touch", f.URI(), client.SetTime(f.Path(), now()))
	}

	tempFile, err := f.Location().NewFile(tempFileNameGetter(f.Name()))
	if err != nil {
		return err
	}
	if err := f.MoveToFile(tempFile); err != nil {
		return err
	}
	return tempFile.MoveToFile(f)
}

func getTempFilename(origName string) string {
	return origName + strconv.FormatInt(now().UnixNano(), 10)
}

// Size returns the size of the remote file.
func (f *File) Size() (uint64, error) {
	entry, err := f.stat(f.ctx)
	if err != nil {
		return 0, translateError("stat", f.URI(), err)
	}
	return entry.Size, nil
}

// LastModified returns the modification time reported by the server.
func (f *File) LastModified() (*time.Time, error) {
	entry, err := f.stat(f.ctx)
	if err != nil {
		return nil, translateError("stat", f.URI(), err)
	}
	t := entry.Time
	return &t, nil
}

// Location returns the Location of the File.
func (f *File) Location() smartfs.Location {
	return &Location{
		fileSystem: f.fileSystem,
		authority:  f.authority,
		prefix:     utils.EnsureTrailingSlash(path.Dir(f.path)),
		ctx:        f.ctx,
	}
}

// MoveToFile moves the file to target. When the target lives on the same
// host under the same user, the server renames in place; otherwise the bytes
// stream through this process and the source is deleted after.
func (f *File) MoveToFile(t smartfs.File) error {
	if tf, ok := t.(*File); ok &&
		f.authority.Username() == tf.authority.Username() &&
		f.authority.Host() == tf.authority.Host() {

		client, err := f.fileSystem.Client(f.ctx, f.authority)
		if err != nil {
			return err
		}

		exists, err := t.Location().Exists()
		if err != nil {
			return err
		}
		if !exists {
			if err := client.MakeDir(t.Location().Path()); err != nil {
				return translateError("mkdir", t.Location().URI(), err)
			}
		}
		return translateError("move", f.URI(), client.Rename(f.Path(), t.Path()))
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
	if err := utils.TouchCopyBuffered(file, f, 0); err != nil {
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
// error. Ftp servers keep no object versions, so delete.WithAllVersions is
// refused.
func (f *File) Delete(opts ...options.DeleteOption) error {
	for _, o := range opts {
		if _, ok := o.(delete.AllVersions); ok {
			return smartfs.NotSupported(Scheme, "delete all versions")
		}
	}

	client, err := f.fileSystem.Client(f.ctx, f.authority)
	if err != nil {
		return err
	}
	if err := client.Delete(f.Path()); err != nil && !errorIsNotExist(err) {
		return translateError("delete", f.URI(), err)
	}
	return nil
}

// Close drains the open data connection, if any, and resets the read/write
// cursor to the beginning of the file.
func (f *File) Close() error {
	if f.dataconn != nil {
		if err := f.dataconn.Close(); err != nil {
			return err
		}
		f.resetConn = true
	}
	f.offset = 0
	return nil
}

// Read implements the standard for io.Reader. The first read issues RETR
// from the current offset.
func (f *File) Read(p []byte) (n int, err error) {
	dc, err := f.openDataConn(OpenRead)
	if err != nil {
		return 0, err
	}

	read, err := dc.Read(p)
	if err != nil {
		return read, err
	}

	f.offset += int64(read)
	return read, nil
}

// Seek implements the standard for io.Seeker. Seeking closes any open
// transfer; the next read or write reopens it at the new offset using REST.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	// nothing open yet means read is assumed; a later write resets the mode
	mode := OpenRead
	if f.dataconn != nil {
		mode = f.dataconn.Mode()
	}

	switch whence {
	case io.SeekStart:
		f.offset = offset
	case io.SeekCurrent:
		f.offset += offset
	case io.SeekEnd:
		sz, err := f.Size()
		if err != nil {
			if !errors.Is(err, smartfs.ErrNotExist) {
				return 0, err
			}
			sz = 0
		}
		f.offset = int64(sz) + offset //nolint:gosec
	default:
		return 0, smartfs.ErrSeekInvalidWhence
	}

	if f.offset < 0 {
		return 0, smartfs.ErrSeekInvalidOffset
	}

	if f.dataconn != nil {
		// close so the next transfer restarts at the adjusted offset
		if err := f.dataconn.Close(); err != nil {
			return 0, err
		}
		f.resetConn = true

		if _, err := f.openDataConn(mode); err != nil {
			return 0, err
		}
	}

	return f.offset, nil
}

// Write implements the standard for io.Writer. The first write issues STOR
// from the current offset; bytes stream to the server as they are written.
func (f *File) Write(data []byte) (res int, err error) {
	dc, err := f.openDataConn(OpenWrite)
	if err != nil {
		return 0, err
	}

	b, err := dc.Write(data)
	if err != nil {
		return 0, err
	}

	f.offset += int64(b)
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

func (f *File) openDataConn(t OpenType) (DataConn, error) {
	dc, err := f.fileSystem.DataConn(f.ctx, f.authority, t, f)
	if err != nil {
		return nil, err
	}
	f.dataconn = dc
	return dc, nil
}

func entryFromFTP(entry *_ftp.Entry) smartfs.DirEntry {
	t := entry.Time
	return smartfs.DirEntry{
		Name:         entry.Name,
		Size:         entry.Size,
		IsDir:        entry.Type == _ftp.EntryTypeFolder,
		LastModified: &t,
	}
}
