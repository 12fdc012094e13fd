package mem

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/utils"
)

// Location implements smartfs.Location for the in-memory file system.
type Location struct {
	fileSystem *FileSystem
	authority  string
	path       string
}

// String implements fmt.Stringer, returning the location's URI.
func (l *Location) String() string {
	return l.URI()
}

// List returns the base names of files found directly at the Location.
func (l *Location) List() ([]string, error) {
	return l.ListByPrefix("")
}

// ListByPrefix returns the base names of files at the Location whose names
// begin with the given prefix.
func (l *Location) ListByPrefix(prefix string) ([]string, error) {
	l.fileSystem.mu.RLock()
	paths := l.fileSystem.pathsUnder(l.authority, l.path)
	l.fileSystem.mu.RUnlock()

	names := make([]string, 0)
	for _, p := range paths {
		if utils.EnsureTrailingSlash(path.Dir(p)) != l.path {
			continue
		}
		if name := path.Base(p); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListByRegex returns the base names of files at the Location that match the
// given regular expression.
func (l *Location) ListByRegex(regex *regexp.Regexp) ([]string, error) {
	all, err := l.List()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0)
	for _, name := range all {
		if regex.MatchString(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// Entries returns an iterator over the immediate children of the Location.
// Subdirectories are synthesized from the stored paths, the same way flat-key
// object stores surface common prefixes.
func (l *Location) Entries() (smartfs.EntryIterator, error) {
	l.fileSystem.mu.RLock()
	paths := l.fileSystem.pathsUnder(l.authority, l.path)
	l.fileSystem.mu.RUnlock()

	var entries []smartfs.DirEntry
	dirs := make(map[string]bool)
	for _, p := range paths {
		rel := strings.TrimPrefix(p, l.path)
		if idx := strings.Index(rel, "/"); idx >= 0 {
			dirs[rel[:idx]] = true
			continue
		}

		f, err := l.NewFile(rel)
		if err != nil {
			return nil, err
		}
		entry, err := f.Stat()
		if err != nil {
			// deleted between the snapshot and the stat
			continue
		}
		entries = append(entries, entry)
	}
	for dir := range dirs {
		entries = append(entries, smartfs.DirEntry{Name: dir, IsDir: true})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return smartfs.NewSliceEntryIterator(entries), nil
}

// Authority returns the volume name.
func (l *Location) Authority() string {
	return l.authority
}

// Path returns the location's absolute path with a trailing slash.
func (l *Location) Path() string {
	return l.path
}

// Exists reports whether any file lives at or below the Location. A volume
// root always exists.
func (l *Location) Exists() (bool, error) {
	if l.path == "/" {
		return true, nil
	}

	l.fileSystem.mu.RLock()
	defer l.fileSystem.mu.RUnlock()
	return len(l.fileSystem.pathsUnder(l.authority, l.path)) > 0, nil
}

// NewLocation returns a new Location relative to this one.
func (l *Location) NewLocation(relativePath string) (smartfs.Location, error) {
	if err := utils.ValidateRelativeLocationPath(relativePath); err != nil {
		return nil, err
	}
	return l.fileSystem.NewLocation(l.authority, path.Join(l.path, relativePath)+"/")
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
	return l.fileSystem.NewFile(l.authority, path.Join(l.path, fileName), opts...)
}

// DeleteFile deletes the file of the given name at the location.
func (l *Location) DeleteFile(fileName string, opts ...options.DeleteOption) error {
	f, err := l.NewFile(fileName)
	if err != nil {
		return err
	}
	return f.Delete(opts...)
}

// URI returns the location's URI, ie mem://volume/path/to/
func (l *Location) URI() string {
	return utils.GetLocationURI(l)
}
