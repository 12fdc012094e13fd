/*
Package ftp implements the smartfs backend for FTP, FTPS, and FTPES servers.

# Usage

Rely on the backend registry:

	import (
	    "github.com/smartfs/smartfs/backend"
	    _ "github.com/smartfs/smartfs/backend/ftp"
	)

	fs, err := backend.Resolve("ftp", "user@host.com:21")
	...
	file, err := fs.NewFile("user@host.com:21", "/some/path/file.txt")

Or init the backend directly:

	import "github.com/smartfs/smartfs/backend/ftp"

	fs := ftp.NewFileSystem().WithOptions(ftp.Options{
	    Password: os.Getenv("FTP_PASSWORD"),
	    Protocol: ftp.ProtocolFTPES,
	})

# Authority

The authority carries userinfo, host, and port: ftp://user@host.com:21/path/.
The port defaults to 21 and the username to "anonymous" when absent. The
password is never part of the URI; set it through Options.

# Connections

A single control connection is kept per file system handle, and FTP allows
only one data transfer at a time on it. Reads and writes each claim the data
connection; interleaving a read and a write on the same handle closes and
reopens the connection, which restarts the transfer at the file's current
offset using REST.

# Capabilities

The backend reports native rename, implemented with the FTP RNFR/RNTO
command pair. There is no server-side copy; copies stream through this
process.
*/
package ftp
