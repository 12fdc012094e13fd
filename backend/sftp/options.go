package sftp

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	_sftp "github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/smartfs/smartfs/utils"
)

const systemWideKnownHosts = "/etc/ssh/ssh_known_hosts"

// Options holds sftp-specific options.
type Options struct {
	Password           string              `json:"password,omitempty"`       // env var SMARTFS_SFTP_PASSWORD
	KeyFilePath        string              `json:"keyFilePath,omitempty"`    // env var SMARTFS_SFTP_KEYFILE
	KeyPassphrase      string              `json:"keyPassphrase,omitempty"`  // env var SMARTFS_SFTP_KEYFILE_PASSPHRASE
	KnownHostsFile     string              `json:"knownHostsFile,omitempty"` // env var SMARTFS_SFTP_KNOWN_HOSTS_FILE
	KnownHostsString   string              `json:"knownHostsString,omitempty"`
	KnownHostsCallback ssh.HostKeyCallback `json:"-"`
	// FilePermissions, when set, is an octal string like "0644" applied to
	// files the backend creates.
	FilePermissions string `json:"filePermissions,omitempty"`
	// FileBufferSize is the buffer size in bytes used with
	// utils.TouchCopyBuffered.
	FileBufferSize int `json:"fileBufferSize,omitempty"`
}

// GetFileMode parses the FilePermissions string into a FileMode, or nil when
// permissions are unset.
func (o Options) GetFileMode() (*os.FileMode, error) {
	if o.FilePermissions == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(o.FilePermissions), 8, 32)
	if err != nil {
		return nil, fmt.Errorf("parse file permissions %q: %w", o.FilePermissions, err)
	}
	mode := os.FileMode(parsed) //nolint:gosec
	return &mode, nil
}

func getClient(authority utils.Authority, opts Options) (Client, error) {
	authMethods, err := getAuthMethods(opts)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := getHostKeyCallback(opts)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            authority.Username(),
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
	}

	host := authority.HostPortStr()
	if !strings.Contains(host, ":") {
		host += ":22"
	}

	sshClient, err := ssh.Dial("tcp", host, config)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", host, err)
	}

	client, err := _sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("sftp subsystem %s: %w", host, err)
	}

	return &realClient{client}, nil
}

// getHostKeyCallback resolves the man-in-the-middle check per the order
// documented in doc.go.
func getHostKeyCallback(opts Options) (ssh.HostKeyCallback, error) {
	var knownHostsFiles []string
	switch {
	case opts.KnownHostsCallback != nil:
		return opts.KnownHostsCallback, nil

	case opts.KnownHostsString != "":
		hostKey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(opts.KnownHostsString))
		if err != nil {
			return nil, err
		}
		return ssh.FixedHostKey(hostKey), nil

	case opts.KnownHostsFile != "":
		// check first to prevent auto-vivification of the file
		found, err := foundFile(opts.KnownHostsFile)
		if err != nil {
			return nil, err
		}
		if found {
			knownHostsFiles = append(knownHostsFiles, opts.KnownHostsFile)
			break
		}
		fallthrough

	case os.Getenv("SMARTFS_SFTP_KNOWN_HOSTS_FILE") != "":
		found, err := foundFile(os.Getenv("SMARTFS_SFTP_KNOWN_HOSTS_FILE"))
		if err != nil {
			return nil, err
		}
		if found {
			knownHostsFiles = append(knownHostsFiles, os.Getenv("SMARTFS_SFTP_KNOWN_HOSTS_FILE"))
			break
		}
		fallthrough

	case os.Getenv("SMARTFS_SFTP_INSECURE_KNOWN_HOSTS") != "":
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec

	default:
		var err error
		knownHostsFiles, err = findHomeSystemKnownHosts(knownHostsFiles)
		if err != nil {
			return nil, err
		}
	}

	return knownhosts.New(knownHostsFiles...)
}

func findHomeSystemKnownHosts(knownHostsFiles []string) ([]string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}
	homeKnownHostsPath := utils.EnsureLeadingSlash(path.Join(home, ".ssh/known_hosts"))

	found, err := foundFile(homeKnownHostsPath)
	if err != nil {
		return nil, err
	}
	if found {
		knownHostsFiles = append(knownHostsFiles, homeKnownHostsPath)
	}

	// ssh doesn't exist natively on Windows and each implementation keeps
	// known_hosts somewhere different; use KnownHostsFile there instead
	if runtime.GOOS != "windows" {
		found, err := foundFile(systemWideKnownHosts)
		if err != nil {
			return nil, err
		}
		if found {
			knownHostsFiles = append(knownHostsFiles, systemWideKnownHosts)
		}
	}
	return knownHostsFiles, nil
}

func foundFile(file string) (bool, error) {
	if _, err := os.Stat(file); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func getAuthMethods(opts Options) ([]ssh.AuthMethod, error) {
	auth := make([]ssh.AuthMethod, 0)

	pw := os.Getenv("SMARTFS_SFTP_PASSWORD")
	if opts.Password != "" {
		pw = opts.Password
	}
	if pw != "" {
		auth = append(auth, ssh.Password(pw))
	}

	keyfile := os.Getenv("SMARTFS_SFTP_KEYFILE")
	if opts.KeyFilePath != "" {
		keyfile = opts.KeyFilePath
	}
	if keyfile != "" {
		passphrase := os.Getenv("SMARTFS_SFTP_KEYFILE_PASSPHRASE")
		if opts.KeyPassphrase != "" {
			passphrase = opts.KeyPassphrase
		}

		secretKey, err := getKeyFile(keyfile, passphrase)
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(secretKey))
	}

	return auth, nil
}

func getKeyFile(file, passphrase string) (ssh.Signer, error) {
	buf, err := os.ReadFile(file) //nolint:gosec
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(buf, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(buf)
}
