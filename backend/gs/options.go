package gs

import (
	"google.golang.org/api/option"
)

// Options holds Google Cloud Storage client options.
type Options struct {
	APIKey         string `json:"apiKey,omitempty"`
	CredentialFile string `json:"credentialFile,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"`
	Scopes         []string `json:"scopes,omitempty"`
	// FileBufferSize is the buffer size in bytes used with
	// utils.TouchCopyBuffered.
	FileBufferSize int `json:"fileBufferSize,omitempty"`
	// ChunkSize is the resumable upload chunk size in bytes passed to the
	// storage writer. Zero means the client library default.
	ChunkSize int `json:"chunkSize,omitempty"`
}

func parseClientOptions(opts Options) []option.ClientOption {
	var clientOpts []option.ClientOption

	switch {
	case opts.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	case opts.CredentialFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialFile))
	}
	if len(opts.Scopes) > 0 {
		clientOpts = append(clientOpts, option.WithScopes(opts.Scopes...))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint), option.WithoutAuthentication())
	}

	return clientOpts
}
