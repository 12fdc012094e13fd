/*
Package sftp implements the smartfs backend for SFTP servers.

# Usage

Rely on the backend registry:

	import (
	    "github.com/smartfs/smartfs/backend"
	    _ "github.com/smartfs/smartfs/backend/sftp"
	)

	fs, err := backend.Resolve("sftp", "user@host.com:22")
	...
	file, err := fs.NewFile("user@host.com:22", "/some/path/file.txt")

Or init the backend directly:

	import "github.com/smartfs/smartfs/backend/sftp"

	fs := sftp.NewFileSystem().WithOptions(sftp.Options{
	    KeyFilePath: "/home/me/.ssh/id_ed25519",
	})

# Authentication

Authentication methods are tried in the order the ssh library offers them,
assembled from Options and the environment:

  - password: Options.Password, then env var SMARTFS_SFTP_PASSWORD
  - key file: Options.KeyFilePath, then env var SMARTFS_SFTP_KEYFILE, with
    an optional passphrase from Options.KeyPassphrase or
    SMARTFS_SFTP_KEYFILE_PASSPHRASE

The username comes from the authority ("user@host.com:22"); the port
defaults to 22.

# Known hosts

Host key verification resolves, in order: Options.KnownHostsCallback,
Options.KnownHostsString, Options.KnownHostsFile, the
SMARTFS_SFTP_KNOWN_HOSTS_FILE env var, the SMARTFS_SFTP_INSECURE_KNOWN_HOSTS
env var (which disables verification, tests only), and finally the standard
~/.ssh/known_hosts and /etc/ssh/ssh_known_hosts files.

# Capabilities

The backend reports native rename. There is no server-side copy; copies
stream through this process.
*/
package sftp
