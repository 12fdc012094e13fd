// Package config loads per-scheme backend options from YAML or JSON
// documents and applies them to a backend registry. Each section is the
// backend's own options type; the registry hands it to the scheme's factory
// opaquely on the next construction.
package config

import (
	"errors"
	"path/filepath"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/smartfs/smartfs/backend"
	"github.com/smartfs/smartfs/backend/ftp"
	"github.com/smartfs/smartfs/backend/gs"
	"github.com/smartfs/smartfs/backend/s3"
	"github.com/smartfs/smartfs/backend/sftp"
)

// Format names a supported config encoding, by file extension.
type Format string

const (
	FormatJSON Format = ".json"
	FormatYAML Format = ".yaml"
	FormatYML  Format = ".yml"
)

var parserMap = map[Format]func() koanf.Parser{
	FormatJSON: func() koanf.Parser { return json.Parser() },
	FormatYAML: func() koanf.Parser { return yaml.Parser() },
	FormatYML:  func() koanf.Parser { return yaml.Parser() },
}

// Config holds one options section per scheme. A nil section leaves the
// scheme's factory defaults untouched.
type Config struct {
	S3   *s3.Options   `json:"s3,omitempty"`
	GS   *gs.Options   `json:"gs,omitempty"`
	FTP  *ftp.Options  `json:"ftp,omitempty"`
	SFTP *sftp.Options `json:"sftp,omitempty"`
}

// Loader accumulates configuration from one or more sources; later sources
// override earlier ones key by key.
type Loader struct {
	kf *koanf.Koanf
}

// NewLoader returns an empty Loader.
func NewLoader() *Loader {
	return &Loader{kf: koanf.New(".")}
}

// LoadFile merges the document at path, picking the parser from the file
// extension.
func (l *Loader) LoadFile(path string) error {
	parserFunc, ok := parserMap[Format(filepath.Ext(path))]
	if !ok {
		return errors.New("no config parser for extension " + filepath.Ext(path))
	}
	return l.kf.Load(file.Provider(path), parserFunc())
}

// LoadBytes merges an in-memory document in the given format.
func (l *Loader) LoadBytes(format Format, data []byte) error {
	parserFunc, ok := parserMap[format]
	if !ok {
		return errors.New("no config parser for format " + string(format))
	}
	return l.kf.Load(rawbytes.Provider(data), parserFunc())
}

// Config unmarshals the merged document into the typed per-scheme sections.
func (l *Loader) Config() (Config, error) {
	var c Config
	err := l.kf.UnmarshalWithConf("", &c, koanf.UnmarshalConf{Tag: "json"})
	return c, err
}

// Apply pushes every present section into the registry. Handles already
// cached keep their old options until invalidated.
func (l *Loader) Apply(r *backend.Registry) error {
	c, err := l.Config()
	if err != nil {
		return err
	}

	if c.S3 != nil {
		r.SetOptions(s3.Scheme, *c.S3)
	}
	if c.GS != nil {
		r.SetOptions(gs.Scheme, *c.GS)
	}
	if c.FTP != nil {
		r.SetOptions(ftp.Scheme, *c.FTP)
	}
	if c.SFTP != nil {
		r.SetOptions(sftp.Scheme, *c.SFTP)
	}
	return nil
}

// ApplyDefault is Apply against the process-wide default registry.
func (l *Loader) ApplyDefault() error {
	return l.Apply(backend.Default())
}
