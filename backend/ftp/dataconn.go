package ftp

import (
	"context"
	"errors"
	"io"
	"time"

	_ftp "github.com/jlaffaye/ftp"

	"github.com/smartfs/smartfs/utils"
)

// dataConn wraps the single in-flight transfer an ftp control connection
// allows. Read mode owns a RETR response, write mode owns the write half of
// a pipe feeding a STOR running in its own goroutine, and single op mode
// passes control-channel commands straight through to the client.
type dataConn struct {
	R       io.ReadCloser
	W       io.WriteCloser
	mode    OpenType
	c       Client
	errChan chan error
}

func (dc *dataConn) Delete(path string) error {
	if dc.mode != SingleOp {
		return errSingleOpInvalidDataconnType
	}
	return dc.c.Delete(path)
}

func (dc *dataConn) GetEntry(p string) (*_ftp.Entry, error) {
	if dc.mode != SingleOp {
		return nil, errSingleOpInvalidDataconnType
	}
	return dc.c.GetEntry(p)
}

func (dc *dataConn) List(p string) ([]*_ftp.Entry, error) {
	if dc.mode != SingleOp {
		return nil, errSingleOpInvalidDataconnType
	}
	return dc.c.List(p)
}

func (dc *dataConn) MakeDir(path string) error {
	if dc.mode != SingleOp {
		return errSingleOpInvalidDataconnType
	}
	return dc.c.MakeDir(path)
}

func (dc *dataConn) Rename(from, to string) error {
	if dc.mode != SingleOp {
		return errSingleOpInvalidDataconnType
	}
	return dc.c.Rename(from, to)
}

func (dc *dataConn) IsSetTimeSupported() bool {
	return dc.c.IsSetTimeSupported()
}

func (dc *dataConn) SetTime(path string, t time.Time) error {
	if dc.mode != SingleOp {
		return errSingleOpInvalidDataconnType
	}
	return dc.c.SetTime(path, t)
}

func (dc *dataConn) Mode() OpenType {
	return dc.mode
}

func (dc *dataConn) Read(buf []byte) (int, error) {
	if dc.mode != OpenRead {
		return 0, errReadInvalidDataconnType
	}
	return dc.R.Read(buf)
}

func (dc *dataConn) Write(data []byte) (int, error) {
	if dc.mode != OpenWrite {
		return 0, errWriteInvalidDataconnType
	}
	return dc.W.Write(data)
}

func (dc *dataConn) Close() error {
	switch dc.Mode() {
	case OpenRead:
		if dc.R != nil {
			err := dc.R.Close()
			dc.R = nil
			dc.W = nil
			return err
		}
	case OpenWrite:
		if dc.W != nil {
			if err := dc.W.Close(); err != nil {
				return err
			}
			// closing the writer lets STOR commit - wait for its result
			err := <-dc.errChan
			dc.R = nil
			dc.W = nil
			return err
		}
	}

	return nil
}

func getDataConn(ctx context.Context, authority utils.Authority, fs *FileSystem, f *File, t OpenType) (DataConn, error) {
	if fs == nil {
		return nil, errors.New("can not get a dataconn for a nil filesystem")
	}

	if fs.dataconn != nil && fs.dataconn.Mode() != t {
		// wrong transfer type, drain the current one before opening a new one
		if err := fs.dataconn.Close(); err != nil {
			return nil, err
		}
		fs.dataconn = nil
	}

	if fs.dataconn == nil || (f != nil && f.resetConn) {
		client, err := fs.Client(ctx, authority)
		if err != nil {
			return nil, err
		}

		switch t {
		case OpenRead:
			resp, err := client.RetrFrom(f.Path(), uint64(f.offset)) //nolint:gosec
			if err != nil {
				return nil, translateError("read", f.URI(), err)
			}
			fs.dataconn = &dataConn{
				R:    resp,
				mode: t,
			}
		case OpenWrite:
			found, err := f.Location().Exists()
			if err != nil {
				return nil, err
			}
			if !found {
				if err := client.MakeDir(f.Location().Path()); err != nil {
					return nil, translateError("mkdir", f.Location().URI(), err)
				}
			}

			pr, pw := io.Pipe()
			errChan := make(chan error, 1)
			go func() {
				errChan <- client.StorFrom(f.Path(), pr, uint64(f.offset)) //nolint:gosec
				// unblock any writer still feeding the pipe
				_ = pr.Close()
			}()

			fs.dataconn = &dataConn{
				mode:    t,
				R:       pr,
				W:       pw,
				errChan: errChan,
			}
		case SingleOp:
			fs.dataconn = &dataConn{
				mode: t,
				c:    client,
			}
		}

		if f != nil {
			f.resetConn = false
		}
	}

	return fs.dataconn, nil
}
