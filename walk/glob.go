package walk

import (
	"context"
	"errors"
	"strings"

	"github.com/gobwas/glob"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/utils"
)

// Match is one glob result.
type Match struct {
	// URI is the fully qualified URI of the matched file or container.
	URI string

	// IsDir is true when the match is a container.
	IsDir bool
}

// MatchFunc receives matches in listing order. Returning a non-nil error
// stops the glob.
type MatchFunc func(m Match) error

// Glob matches the pattern against the namespace under root and streams
// matches to fn without materializing the result set. The pattern is
// interpreted relative to root, segment by segment:
//
//	*   any run of characters within one segment
//	?   a single character
//	**  any run of segments, including none
//
// A ** segment enumerates the full subtree at its position and filters by
// the remaining pattern; that performs one backend listing call per
// intermediate container, which is quadratic in tree depth in the worst
// case. There is no engine-imposed recursion limit; bound deep namespaces
// through ctx.
func Glob(ctx context.Context, root smartfs.Location, pattern string, fn MatchFunc) error {
	pattern = strings.Trim(pattern, "/")
	if pattern == "" {
		return smartfs.ErrInvalidLocation
	}

	segments := strings.Split(pattern, "/")
	matchers := make([]segment, len(segments))
	for i, seg := range segments {
		if seg == "" {
			return smartfs.ErrInvalidLocation
		}
		m, err := compileSegment(seg)
		if err != nil {
			return err
		}
		matchers[i] = m
	}

	g := &globber{ctx: ctx, fn: fn, seen: make(map[string]bool)}
	err := g.glob(root, matchers)
	if errors.Is(err, SkipAll) {
		return nil
	}
	return err
}

// GlobPaths collects every match into a slice of URIs.
func GlobPaths(ctx context.Context, root smartfs.Location, pattern string) ([]string, error) {
	var uris []string
	err := Glob(ctx, root, pattern, func(m Match) error {
		uris = append(uris, m.URI)
		return nil
	})
	return uris, err
}

// segment matches one path segment of a pattern.
type segment struct {
	literal  string // set when the segment has no metacharacters
	deep     bool   // the ** segment
	compiled glob.Glob
}

func compileSegment(seg string) (segment, error) {
	if seg == "**" {
		return segment{deep: true}, nil
	}
	if !strings.ContainsAny(seg, "*?[{\\") {
		return segment{literal: seg}, nil
	}
	// compiled without separators: a segment never contains '/'
	compiled, err := glob.Compile(seg)
	if err != nil {
		return segment{}, smartfs.ErrInvalidLocation
	}
	return segment{compiled: compiled}, nil
}

func (s segment) match(name string) bool {
	if s.compiled != nil {
		return s.compiled.Match(name)
	}
	return s.literal == name
}

type globber struct {
	ctx  context.Context
	fn   MatchFunc
	seen map[string]bool
}

func (g *globber) emit(uri string, isDir bool) error {
	if g.seen[uri] {
		return nil
	}
	g.seen[uri] = true
	return g.fn(Match{URI: uri, IsDir: isDir})
}

func (g *globber) glob(loc smartfs.Location, segs []segment) error {
	if err := g.ctx.Err(); err != nil {
		return smartfs.Cancelled(err)
	}

	if len(segs) == 0 {
		// pattern fully consumed at a container (trailing ** case)
		exists, err := loc.Exists()
		if err != nil {
			return err
		}
		if exists {
			return g.emit(loc.URI(), true)
		}
		return nil
	}

	seg := segs[0]
	rest := segs[1:]

	if seg.deep {
		// ** matches zero segments here ...
		if err := g.glob(loc, rest); err != nil {
			return err
		}
		// ... and one-or-more by carrying itself into every child container
		return g.eachEntry(loc, func(entry smartfs.DirEntry) error {
			if !entry.IsDir {
				// a lone trailing ** also matches files at any depth
				if len(rest) == 0 {
					return g.emit(entryURI(loc, entry), false)
				}
				return nil
			}
			child, err := loc.NewLocation(utils.EnsureTrailingSlash(entry.Name))
			if err != nil {
				return err
			}
			return g.glob(child, segs)
		})
	}

	if len(rest) == 0 {
		if seg.literal != "" {
			return g.matchLiteralLeaf(loc, seg.literal)
		}
		return g.eachEntry(loc, func(entry smartfs.DirEntry) error {
			if !seg.match(entry.Name) {
				return nil
			}
			return g.emit(entryURI(loc, entry), entry.IsDir)
		})
	}

	if seg.literal != "" {
		// fixed segment: descend without listing the current container
		child, err := loc.NewLocation(seg.literal + "/")
		if err != nil {
			return err
		}
		return g.glob(child, rest)
	}

	return g.eachEntry(loc, func(entry smartfs.DirEntry) error {
		if !entry.IsDir || !seg.match(entry.Name) {
			return nil
		}
		child, err := loc.NewLocation(utils.EnsureTrailingSlash(entry.Name))
		if err != nil {
			return err
		}
		return g.glob(child, rest)
	})
}

// matchLiteralLeaf resolves a non-magic final segment with a stat instead of
// a listing.
func (g *globber) matchLiteralLeaf(loc smartfs.Location, name string) error {
	f, err := loc.NewFile(name)
	if err != nil {
		return err
	}
	if exists, err := f.Exists(); err != nil {
		return err
	} else if exists {
		return g.emit(f.URI(), false)
	}

	child, err := loc.NewLocation(name + "/")
	if err != nil {
		return err
	}
	if exists, err := child.Exists(); err != nil {
		return err
	} else if exists {
		return g.emit(child.URI(), true)
	}
	return nil
}

func (g *globber) eachEntry(loc smartfs.Location, fn func(smartfs.DirEntry) error) error {
	if err := g.ctx.Err(); err != nil {
		return smartfs.Cancelled(err)
	}

	it, err := loc.Entries()
	if err != nil {
		return err
	}
	defer func() { _ = it.Close() }()

	for it.Next() {
		if err := fn(it.Entry()); err != nil {
			return err
		}
	}
	return it.Err()
}

func entryURI(loc smartfs.Location, entry smartfs.DirEntry) string {
	uri := loc.URI() + entry.Name
	if entry.IsDir {
		uri += "/"
	}
	return uri
}
