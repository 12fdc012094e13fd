package gs

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/utils"
)

// Location implements smartfs.Location for Google Cloud Storage. The
// directory tree is emulated from the flat key namespace using the "/"
// delimiter.
type Location struct {
	fileSystem *FileSystem
	bucket     string
	prefix     string
	ctx        context.Context
}

// String implement fmt.Stringer, returning the location's URI as the
// default string.
func (l *Location) String() string {
	return l.URI()
}

// List returns the base names of objects found directly at the location's
// prefix.
func (l *Location) List() ([]string, error) {
	return l.ListByPrefix("")
}

// ListByPrefix lists objects at the location whose base names begin with
// prefix.
func (l *Location) ListByPrefix(prefix string) ([]string, error) {
	client, err := l.fileSystem.Client()
	if err != nil {
		return nil, err
	}

	it := client.Bucket(l.bucket).Objects(l.ctx, &storage.Query{
		Prefix:    l.objectPrefix() + prefix,
		Delimiter: "/",
	})

	names := make([]string, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, translateError("list", l.URI(), err)
		}
		// attrs with only a Prefix are emulated directories
		if attrs.Name == "" || attrs.Name == l.objectPrefix() {
			continue
		}
		names = append(names, strings.TrimPrefix(attrs.Name, l.objectPrefix()))
	}
	return names, nil
}

// ListByRegex lists objects at the location whose base names match the
// given regular expression.
func (l *Location) ListByRegex(regex *regexp.Regexp) ([]string, error) {
	names, err := l.List()
	if err != nil {
		return nil, err
	}

	filtered := make([]string, 0)
	for _, name := range names {
		if regex.MatchString(name) {
			filtered = append(filtered, name)
		}
	}
	return filtered, nil
}

// Entries returns a lazy iterator over the immediate children of the
// location. Pages are pulled from the API as the iterator advances.
func (l *Location) Entries() (smartfs.EntryIterator, error) {
	client, err := l.fileSystem.Client()
	if err != nil {
		return nil, err
	}

	return &entryIterator{
		location: l,
		objects: client.Bucket(l.bucket).Objects(l.ctx, &storage.Query{
			Prefix:    l.objectPrefix(),
			Delimiter: "/",
		}),
	}, nil
}

// Authority returns the bucket the location is contained in.
func (l *Location) Authority() string {
	return l.bucket
}

// Path returns the prefix as an absolute path with a trailing slash.
func (l *Location) Path() string {
	return l.prefix
}

// Exists reports whether any object lives at or below the prefix. The
// bucket root exists whenever the bucket does.
func (l *Location) Exists() (bool, error) {
	client, err := l.fileSystem.Client()
	if err != nil {
		return false, err
	}

	if l.prefix == "/" {
		_, err := client.Bucket(l.bucket).Attrs(l.ctx)
		if err != nil {
			if errors.Is(err, storage.ErrBucketNotExist) {
				return false, nil
			}
			return false, translateError("stat", l.URI(), err)
		}
		return true, nil
	}

	it := client.Bucket(l.bucket).Objects(l.ctx, &storage.Query{Prefix: l.objectPrefix()})
	_, err = it.Next()
	if errors.Is(err, iterator.Done) {
		return false, nil
	}
	if err != nil {
		if errors.Is(err, storage.ErrBucketNotExist) {
			return false, nil
		}
		return false, translateError("stat", l.URI(), err)
	}
	return true, nil
}

// NewLocation returns a new Location relative to this one.
func (l *Location) NewLocation(relativePath string) (smartfs.Location, error) {
	if err := utils.ValidateRelativeLocationPath(relativePath); err != nil {
		return nil, err
	}
	return l.fileSystem.NewLocation(l.bucket, path.Join(l.prefix, relativePath)+"/")
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
	return l.fileSystem.NewFile(l.bucket, path.Join(l.prefix, fileName), opts...)
}

// DeleteFile removes the file at fileName path.
func (l *Location) DeleteFile(fileName string, opts ...options.DeleteOption) error {
	file, err := l.NewFile(fileName)
	if err != nil {
		return err
	}
	return file.Delete(opts...)
}

// URI returns the Location's URI as a string, ie gs://bucket/path/to/
func (l *Location) URI() string {
	return utils.GetLocationURI(l)
}

// objectPrefix is the listing prefix: the path without its leading slash,
// "" for the bucket root.
func (l *Location) objectPrefix() string {
	if l.prefix == "/" {
		return ""
	}
	return utils.RemoveLeadingSlash(l.prefix)
}

// entryIterator adapts the storage object iterator, which pulls result
// pages on demand, to the EntryIterator contract.
type entryIterator struct {
	location *Location
	objects  *storage.ObjectIterator
	current  smartfs.DirEntry
	err      error
	done     bool
}

func (it *entryIterator) Next() bool {
	for {
		if it.done || it.err != nil {
			return false
		}

		attrs, err := it.objects.Next()
		if errors.Is(err, iterator.Done) {
			it.done = true
			return false
		}
		if err != nil {
			it.err = translateError("list", it.location.URI(), err)
			return false
		}

		if attrs.Prefix != "" {
			dirName := strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, it.location.objectPrefix()), "/")
			it.current = smartfs.DirEntry{Name: dirName, IsDir: true}
			return true
		}
		if attrs.Name == it.location.objectPrefix() {
			// the prefix placeholder object is not a file
			continue
		}
		it.current = entryFromAttrs(strings.TrimPrefix(attrs.Name, it.location.objectPrefix()), attrs)
		return true
	}
}

func (it *entryIterator) Entry() smartfs.DirEntry { return it.current }

func (it *entryIterator) Err() error { return it.err }

func (it *entryIterator) Close() error {
	it.done = true
	return nil
}
