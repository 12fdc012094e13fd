package ftp

import (
	"context"
	"path"
	"regexp"
	"strings"

	_ftp "github.com/jlaffaye/ftp"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/utils"
)

// Location implements smartfs.Location for FTP.
type Location struct {
	fileSystem *FileSystem
	authority  utils.Authority
	prefix     string
	ctx        context.Context
}

// List lists the directory and returns the base names of plain files found
// there. A non-existent directory returns an empty slice.
func (l *Location) List() ([]string, error) {
	return l.ListByPrefix("")
}

// ListByPrefix lists files at the location whose base names begin with
// prefix.
func (l *Location) ListByPrefix(prefix string) ([]string, error) {
	filenames := make([]string, 0)

	if prefix != "" {
		if err := utils.ValidatePrefix(prefix); err != nil {
			return filenames, err
		}
	}

	entries, err := l.entries()
	if err != nil {
		return filenames, err
	}

	for _, entry := range entries {
		if entry.Type == _ftp.EntryTypeFile && strings.HasPrefix(entry.Name, prefix) {
			filenames = append(filenames, entry.Name)
		}
	}
	return filenames, nil
}

// ListByRegex lists files at the location whose base names match the given
// regular expression.
func (l *Location) ListByRegex(regex *regexp.Regexp) ([]string, error) {
	filenames, err := l.List()
	if err != nil {
		return nil, err
	}

	filtered := make([]string, 0)
	for _, filename := range filenames {
		if regex.MatchString(filename) {
			filtered = append(filtered, filename)
		}
	}
	return filtered, nil
}

// Entries returns an iterator over the immediate children of the location,
// directories included. FTP LIST replies are not paged, so the full listing
// is fetched up front and iterated locally.
func (l *Location) Entries() (smartfs.EntryIterator, error) {
	entries, err := l.entries()
	if err != nil {
		return nil, err
	}

	dirEntries := make([]smartfs.DirEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		dirEntries = append(dirEntries, entryFromFTP(entry))
	}
	return smartfs.NewSliceEntryIterator(dirEntries), nil
}

func (l *Location) entries() ([]*_ftp.Entry, error) {
	dc, err := l.fileSystem.DataConn(l.ctx, l.authority, SingleOp, nil)
	if err != nil {
		return nil, err
	}

	entries, err := dc.List(l.Path())
	if err != nil {
		if errorIsNotExist(err) {
			return []*_ftp.Entry{}, nil
		}
		return nil, translateError("list", l.URI(), err)
	}
	return entries, nil
}

// Authority returns host[:port] of the server the location lives on.
func (l *Location) Authority() string {
	return l.authority.String()
}

// Path returns the absolute path of the location with a trailing slash.
func (l *Location) Path() string {
	return utils.EnsureLeadingSlash(utils.EnsureTrailingSlash(l.prefix))
}

// Exists returns true if the remote directory exists. The server root always
// exists.
func (l *Location) Exists() (bool, error) {
	if l.Path() == "/" {
		return true, nil
	}

	dc, err := l.fileSystem.DataConn(l.ctx, l.authority, SingleOp, nil)
	if err != nil {
		return false, err
	}

	locBasename := path.Base(l.Path())
	parentDir := strings.TrimSuffix(l.Path(), locBasename+"/")

	entries, err := dc.List(parentDir)
	if err != nil {
		if errorIsNotExist(err) {
			return false, nil
		}
		return false, translateError("stat", l.URI(), err)
	}

	for i := range entries {
		if entries[i].Name == locBasename && entries[i].Type == _ftp.EntryTypeFolder {
			return true, nil
		}
	}
	return false, nil
}

// NewLocation returns a new Location relative to this one.
func (l *Location) NewLocation(relativePath string) (smartfs.Location, error) {
	if err := utils.ValidateRelativeLocationPath(relativePath); err != nil {
		return nil, err
	}
	return &Location{
		fileSystem: l.fileSystem,
		authority:  l.authority,
		prefix:     utils.EnsureTrailingSlash(path.Join(l.prefix, relativePath)),
		ctx:        l.ctx,
	}, nil
}

// NewFile returns a File at this location with the given relative name.
func (l *Location) NewFile(fileName string, opts ...options.NewFileOption) (smartfs.File, error) {
	if err := utils.ValidateRelativeFilePath(fileName); err != nil {
		return nil, err
	}
	return &File{
		fileSystem: l.fileSystem,
		authority:  l.authority,
		path:       utils.EnsureLeadingSlash(path.Join(l.prefix, fileName)),
		ctx:        l.ctx,
	}, nil
}

// DeleteFile removes the file at fileName path.
func (l *Location) DeleteFile(fileName string, opts ...options.DeleteOption) error {
	file, err := l.NewFile(fileName)
	if err != nil {
		return err
	}
	return file.Delete(opts...)
}

// FileSystem returns the FileSystem the Location belongs to.
func (l *Location) FileSystem() smartfs.FileSystem {
	return l.fileSystem
}

// URI returns the Location's URI as a string.
func (l *Location) URI() string {
	return utils.EncodeURI(Scheme, l.authority.Username(), l.authority.HostPortStr(), l.Path())
}

// String implement fmt.Stringer, returning the location's URI as the
// default string.
func (l *Location) String() string {
	return l.URI()
}
