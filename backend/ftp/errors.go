package ftp

import (
	"errors"
	"fmt"
	"net/textproto"
	"strings"

	_ftp "github.com/jlaffaye/ftp"

	"github.com/smartfs/smartfs"
)

var (
	errReadInvalidDataconnType     = errors.New("dataconn must be open for read mode to conduct a read")
	errWriteInvalidDataconnType    = errors.New("dataconn must be open for write mode to conduct a write")
	errSingleOpInvalidDataconnType = errors.New("dataconn must be open for single op mode to conduct single op actions")
)

// errorIsNotExist reports whether the server answered 550, the reply FTP
// uses for a file or directory that is not there.
func errorIsNotExist(err error) bool {
	if err == nil {
		return false
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code == _ftp.StatusFileUnavailable
	}
	// some servers produce bare string errors with the code as prefix
	return strings.HasPrefix(err.Error(), fmt.Sprintf("%d", _ftp.StatusFileUnavailable))
}

// translateError maps ftp reply codes onto the backend-neutral sentinels.
func translateError(op, uri string, err error) error {
	if err == nil {
		return nil
	}
	if errorIsNotExist(err) {
		return fmt.Errorf("%s %s: %w", op, uri, smartfs.ErrNotExist)
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code == _ftp.StatusNotLoggedIn {
		return fmt.Errorf("%s %s: %w", op, uri, smartfs.ErrPermission)
	}
	return fmt.Errorf("%s %s: %w", op, uri, err)
}
