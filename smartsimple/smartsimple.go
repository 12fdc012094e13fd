package smartsimple

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/backend"
	_ "github.com/smartfs/smartfs/backend/all" // register all backends
	"github.com/smartfs/smartfs/options/newfile"
	"github.com/smartfs/smartfs/options/newlocation"
	"github.com/smartfs/smartfs/utils"
	"github.com/smartfs/smartfs/walk"
)

var (
	// ErrBlankURI - uri is blank
	ErrBlankURI = errors.New("uri is blank")
	// ErrMissingAuthority - network-based schemes require [user@]host[:port]
	ErrMissingAuthority = errors.New("unable to determine uri authority ([user@]host[:port]) for network-based scheme")
)

// flatSchemes are backends whose paths are opaque keys: no dot-segment
// resolution, no slash collapsing. Everything after the bucket stays
// byte-for-byte.
var flatSchemes = map[string]bool{"s3": true, "gs": true}

// localSchemes need no authority.
var localSchemes = map[string]bool{"file": true, "mem": true}

// parseURI splits a uri into scheme, authority and absolute path. The
// scheme is lower-cased; authority and path keep their case. Schemeless
// input is treated as a local path relative to the working directory.
// Hierarchical schemes get "."/".."/"//" resolved away; flat-key schemes
// are only split, never rewritten, so parsing is idempotent for both.
func parseURI(uri string) (scheme, authority, p string, err error) {
	if uri == "" {
		return "", "", "", ErrBlankURI
	}

	// local paths ("some/dir/file.txt") become file:// URIs
	uri, err = utils.PathToURI(uri)
	if err != nil {
		return "", "", "", err
	}

	rawScheme, rest, found := strings.Cut(uri, "://")
	if found && flatSchemes[strings.ToLower(rawScheme)] {
		// split off bucket and keep the key untouched
		scheme = strings.ToLower(rawScheme)
		authority, p, _ = strings.Cut(rest, "/")
		p = "/" + p
		if authority == "" {
			return "", "", "", ErrMissingAuthority
		}
		return scheme, authority, p, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", smartfs.ErrInvalidLocation, err)
	}

	scheme = strings.ToLower(u.Scheme)

	authority = u.Host
	if u.User.String() != "" {
		authority = u.User.Username() + "@" + u.Host
	}
	if authority == "" && !localSchemes[scheme] {
		return "", "", "", ErrMissingAuthority
	}

	p = u.Path
	if p == "" {
		p = "/"
	}
	trailing := strings.HasSuffix(p, "/")
	p = path.Clean(p)
	if trailing {
		p = utils.EnsureTrailingSlash(p)
	}

	return scheme, authority, p, nil
}

func resolveURI(uri string) (smartfs.FileSystem, string, string, error) {
	scheme, authority, p, err := parseURI(uri)
	if err != nil {
		return nil, "", "", err
	}
	fs, err := backend.Resolve(scheme, authority)
	if err != nil {
		return nil, "", "", err
	}
	return fs, authority, p, nil
}

// NewFile instantiates a File for a uri string on whatever backend its
// scheme names.
func NewFile(uri string) (smartfs.File, error) {
	fs, authority, p, err := resolveURI(uri)
	if err != nil {
		return nil, fmt.Errorf("new file %q: %w", uri, err)
	}
	return fs.NewFile(authority, p)
}

// NewLocation instantiates a Location for a uri string on whatever backend
// its scheme names.
func NewLocation(uri string) (smartfs.Location, error) {
	fs, authority, p, err := resolveURI(uri)
	if err != nil {
		return nil, fmt.Errorf("new location %q: %w", uri, err)
	}
	return fs.NewLocation(authority, utils.EnsureTrailingSlash(p))
}

// Open returns a File with ctx bound to every backend round trip the file
// makes. Reading, writing, and creation are all implicit in the first
// operation performed on it.
func Open(ctx context.Context, uri string) (smartfs.File, error) {
	fs, authority, p, err := resolveURI(uri)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", uri, err)
	}
	return fs.NewFile(authority, p, newfile.WithContext(ctx))
}

// Stat returns the DirEntry for the file at uri. A missing file returns
// ErrNotExist.
func Stat(ctx context.Context, uri string) (smartfs.DirEntry, error) {
	f, err := Open(ctx, uri)
	if err != nil {
		return smartfs.DirEntry{}, err
	}
	return f.Stat()
}

// List returns the base names of files at the location uri. A non-existent
// location returns an empty slice.
func List(ctx context.Context, uri string) ([]string, error) {
	fs, authority, p, err := resolveURI(uri)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", uri, err)
	}
	loc, err := fs.NewLocation(authority, utils.EnsureTrailingSlash(p), newlocation.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return loc.List()
}

// Glob expands a uri pattern with *, ? and ** wildcards into the URIs it
// matches, in listing order. The listing starts at the deepest directory
// with no wildcard in its path, so "s3://bucket/logs/2026/**/*.gz" lists
// under /logs/2026/ only.
func Glob(ctx context.Context, pattern string) ([]string, error) {
	fs, authority, p, err := resolveURI(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	fixed, magic := splitMagic(p)
	loc, err := fs.NewLocation(authority, fixed, newlocation.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	if magic == "" {
		// pattern names the root location itself
		exists, err := loc.Exists()
		if err != nil {
			return nil, err
		}
		if !exists {
			return []string{}, nil
		}
		return []string{loc.URI()}, nil
	}
	return walk.GlobPaths(ctx, loc, magic)
}

// splitMagic splits an absolute path pattern into its longest wildcard-free
// directory prefix (with trailing slash) and the remaining pattern.
func splitMagic(p string) (fixed, magic string) {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	fixed = "/"
	for i, seg := range segs {
		if strings.ContainsAny(seg, `*?[{\`) {
			return fixed, strings.Join(segs[i:], "/")
		}
		if i < len(segs)-1 {
			fixed += seg + "/"
		} else {
			// last segment is literal; leave it in the pattern so Glob
			// checks its existence
			return fixed, seg
		}
	}
	return fixed, ""
}

// Copy copies the file at src to dst. When both ends live on the same
// backend and it declares server-side copy, the bytes never pass through
// this process; otherwise they stream through with the engine's buffering.
func Copy(ctx context.Context, src, dst string) error {
	srcFile, err := Open(ctx, src)
	if err != nil {
		return err
	}
	dstFile, err := Open(ctx, dst)
	if err != nil {
		return err
	}
	return srcFile.CopyToFile(dstFile)
}

// Move moves the file at src to dst. On a backend with native rename the
// move is a single remote operation; otherwise it is synthesized as copy
// followed by delete, and the source survives a failed copy.
func Move(ctx context.Context, src, dst string) error {
	srcFile, err := Open(ctx, src)
	if err != nil {
		return err
	}
	dstFile, err := Open(ctx, dst)
	if err != nil {
		return err
	}

	sameBackend := srcFile.Location().FileSystem().Scheme() == dstFile.Location().FileSystem().Scheme() &&
		srcFile.Location().Authority() == dstFile.Location().Authority()
	if sameBackend && srcFile.Location().FileSystem().Capabilities().Has(smartfs.CapabilityNativeRename) {
		return srcFile.MoveToFile(dstFile)
	}

	if err := srcFile.CopyToFile(dstFile); err != nil {
		return err
	}
	return srcFile.Delete()
}

// Delete removes the file at uri. Deleting a non-existent file is not an
// error.
func Delete(ctx context.Context, uri string) error {
	f, err := Open(ctx, uri)
	if err != nil {
		return err
	}
	return f.Delete()
}

// RemoveTree removes every file at or below the location uri. Containers
// disappear with their contents on flat-key backends; on hierarchical ones
// empty directories may remain.
func RemoveTree(ctx context.Context, uri string) error {
	fs, authority, p, err := resolveURI(uri)
	if err != nil {
		return fmt.Errorf("remove tree %q: %w", uri, err)
	}
	loc, err := fs.NewLocation(authority, utils.EnsureTrailingSlash(p), newlocation.WithContext(ctx))
	if err != nil {
		return err
	}

	return walk.Walk(ctx, loc, func(parent smartfs.Location, entry smartfs.DirEntry) error {
		if entry.IsDir {
			return nil
		}
		return parent.DeleteFile(entry.Name)
	})
}
