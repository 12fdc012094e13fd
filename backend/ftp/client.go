package ftp

import (
	"io"
	"time"

	_ftp "github.com/jlaffaye/ftp"
)

// OpenType is the transfer mode a data connection was opened for. An ftp
// control connection carries at most one data transfer at a time, so the
// mode decides which operations the connection accepts until it is drained.
type OpenType int

const (
	_ OpenType = iota
	// OpenRead - the connection owns an in-flight RETR
	OpenRead
	// OpenWrite - the connection feeds an in-flight STOR
	OpenWrite
	// SingleOp - no transfer; control-channel commands only
	SingleOp
)

// Client is the slice of the jlaffaye ftp connection this backend drives.
// Tests substitute a fake; production code gets one from getClient.
type Client interface {
	Delete(path string) error
	GetEntry(p string) (*_ftp.Entry, error)
	List(p string) ([]*_ftp.Entry, error)
	Login(user, password string) error
	MakeDir(path string) error
	Quit() error
	Rename(from, to string) error
	RetrFrom(path string, offset uint64) (*_ftp.Response, error)
	StorFrom(path string, r io.Reader, offset uint64) error
	IsSetTimeSupported() bool
	SetTime(path string, t time.Time) error
}

// DataConn is the mode-guarded view of the single transfer a control
// connection allows. Calls that do not fit the connection's OpenType fail
// instead of corrupting the in-flight transfer.
type DataConn interface {
	io.ReadWriteCloser

	Mode() OpenType
	Delete(path string) error
	GetEntry(p string) (*_ftp.Entry, error)
	List(p string) ([]*_ftp.Entry, error)
	MakeDir(path string) error
	Rename(from, to string) error
	IsSetTimeSupported() bool
	SetTime(path string, t time.Time) error
}
