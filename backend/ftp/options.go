package ftp

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	_ftp "github.com/jlaffaye/ftp"

	"github.com/smartfs/smartfs/utils"
)

// Protocol values accepted by Options.Protocol.
const (
	// ProtocolFTP is plain, unencrypted ftp (the default).
	ProtocolFTP = "ftp"
	// ProtocolFTPS is implicit TLS from the first byte, traditionally port 990.
	ProtocolFTPS = "ftps"
	// ProtocolFTPES is explicit TLS, upgraded on port 21 via AUTH TLS.
	ProtocolFTPES = "ftpes"
)

const defaultUsername = "anonymous"

// Options holds ftp-specific options.
type Options struct {
	UserName    string `json:"userName,omitempty"`
	Password    string `json:"password,omitempty"`
	Protocol    string `json:"protocol,omitempty"`
	DisableEPSV bool   `json:"disableEPSV,omitempty"`
}

func getClient(ctx context.Context, authority utils.Authority, opts Options) (Client, error) {
	host := authority.HostPortStr()
	if !strings.Contains(host, ":") {
		host += ":21"
	}

	dialOptions := []_ftp.DialOption{
		_ftp.DialWithContext(ctx),
		_ftp.DialWithDisabledEPSV(opts.DisableEPSV),
	}

	switch opts.Protocol {
	case ProtocolFTPS:
		dialOptions = append(dialOptions, _ftp.DialWithTLS(&tls.Config{MinVersion: tls.VersionTLS12}))
	case ProtocolFTPES:
		dialOptions = append(dialOptions, _ftp.DialWithExplicitTLS(&tls.Config{MinVersion: tls.VersionTLS12}))
	}

	c, err := _ftp.Dial(host, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("ftp dial %s: %w", host, err)
	}

	username := opts.UserName
	if username == "" {
		username = authority.Username()
	}
	if username == "" {
		username = defaultUsername
	}

	if err := c.Login(username, opts.Password); err != nil {
		_ = c.Quit()
		return nil, fmt.Errorf("ftp login %s@%s: %w", username, host, err)
	}

	return c, nil
}
