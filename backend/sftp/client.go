package sftp

import (
	"io"
	"os"
	"time"

	_sftp "github.com/pkg/sftp"
)

// ReadWriteSeekCloser is the capability set the backend needs from an open
// remote file handle.
type ReadWriteSeekCloser interface {
	io.ReadWriteSeeker
	io.Closer
}

// Client is the subset of the sftp client the backend uses, extracted as an
// interface so tests can substitute a fake.
type Client interface {
	Chmod(path string, mode os.FileMode) error
	Chtimes(path string, atime, mtime time.Time) error
	MkdirAll(path string) error
	OpenFile(path string, flags int) (ReadWriteSeekCloser, error)
	ReadDir(p string) ([]os.FileInfo, error)
	Remove(path string) error
	Rename(oldname, newname string) error
	Stat(p string) (os.FileInfo, error)
	Close() error
}

// realClient adapts *sftp.Client to the Client interface. The only
// impedance is OpenFile's concrete return type.
type realClient struct {
	*_sftp.Client
}

func (c *realClient) OpenFile(path string, flags int) (ReadWriteSeekCloser, error) {
	return c.Client.OpenFile(path, flags)
}
