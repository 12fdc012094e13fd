package os

import (
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/utils"
)

// Location implements smartfs.Location for the local disk.
type Location struct {
	fileSystem *FileSystem
	path       string
}

// String implement fmt.Stringer, returning the location's URI as the default
// string.
func (l *Location) String() string {
	return l.URI()
}

// List returns the base names of all files in the top directory of the
// location.
func (l *Location) List() ([]string, error) {
	return l.fileList(func(string) bool { return true })
}

// ListByPrefix returns the base names of all files starting with "prefix" in
// the top directory of the location.
func (l *Location) ListByPrefix(prefix string) ([]string, error) {
	return l.fileList(func(name string) bool {
		return strings.HasPrefix(name, prefix)
	})
}

// ListByRegex returns the base names of all files matching the regex in the
// top directory of the location.
func (l *Location) ListByRegex(regex *regexp.Regexp) ([]string, error) {
	return l.fileList(func(name string) bool {
		return regex.MatchString(name)
	})
}

// fileList returns an empty slice if the directory doesn't exist, matching
// the behavior of remote backends. Callers that care about the distinction
// between empty and non-existent directories should use Exists first.
func (l *Location) fileList(testEval func(fileName string) bool) ([]string, error) {
	files := make([]string, 0)

	entries, err := os.ReadDir(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return files, nil
		}
		return files, err
	}

	for _, entry := range entries {
		if !entry.IsDir() && testEval(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// Entries returns an iterator over the immediate children of the Location,
// directories included.
func (l *Location) Entries() (smartfs.EntryIterator, error) {
	dirEntries, err := os.ReadDir(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return smartfs.NewSliceEntryIterator(nil), nil
		}
		return nil, err
	}

	entries := make([]smartfs.DirEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			// removed mid-listing
			continue
		}
		entries = append(entries, entryFromInfo(info))
	}
	return smartfs.NewSliceEntryIterator(entries), nil
}

// Authority returns "". Local paths have no authority.
func (l *Location) Authority() string {
	return ""
}

// Path returns the location path.
func (l *Location) Path() string {
	return l.path
}

// Exists returns true if the location exists and the calling user has the
// appropriate permissions.
func (l *Location) Exists() (bool, error) {
	return dirExists(l.path)
}

// NewLocation returns a new Location relative to this one.
func (l *Location) NewLocation(relativePath string) (smartfs.Location, error) {
	if err := utils.ValidateRelativeLocationPath(relativePath); err != nil {
		return nil, err
	}
	return l.fileSystem.NewLocation("", path.Join(l.path, relativePath)+"/")
}

// FileSystem returns the FileSystem the Location belongs to.
func (l *Location) FileSystem() smartfs.FileSystem {
	return l.fileSystem
}

// NewFile returns a File at this location with the given relative name.
func (l *Location) NewFile(fileName string, opts ...options.NewFileOption) (smartfs.File, error) {
	if err := utils.ValidateRelativeFilePath(fileName); err != nil {
		return nil, err
	}
	return l.fileSystem.NewFile("", path.Join(l.path, fileName), opts...)
}

// DeleteFile deletes the file of the given name at the location.
func (l *Location) DeleteFile(fileName string, opts ...options.DeleteOption) error {
	file, err := l.NewFile(fileName)
	if err != nil {
		return err
	}
	return file.Delete(opts...)
}

// URI returns the Location's URI as a string.
func (l *Location) URI() string {
	return utils.GetLocationURI(l)
}
