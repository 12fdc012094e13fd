// Package walk provides recursive enumeration and shell-style pattern
// matching over any backend's namespace, hierarchical or flat. Flat-key
// backends surface emulated containers through their listings, so the walker
// itself never needs to know the difference.
package walk

import (
	"context"
	"errors"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/utils"
)

// SkipDir is returned by a WalkFunc to skip descending into the container
// just visited.
var SkipDir = errors.New("skip this directory")

// SkipAll is returned by a WalkFunc to stop the walk entirely. Walk returns
// nil in that case.
var SkipAll = errors.New("skip everything and stop the walk")

// WalkFunc is called once per entry, container entries before their
// children.
type WalkFunc func(parent smartfs.Location, entry smartfs.DirEntry) error

// Walk traverses the tree rooted at loc depth-first, pre-order, pulling each
// directory's listing lazily. It does not detect cycles; on backends that
// can report cyclic link structures the walk is infinite unless the caller
// bounds it through ctx.
func Walk(ctx context.Context, loc smartfs.Location, fn WalkFunc) error {
	err := walk(ctx, loc, fn)
	if errors.Is(err, SkipAll) {
		return nil
	}
	return err
}

func walk(ctx context.Context, loc smartfs.Location, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return smartfs.Cancelled(err)
	}

	it, err := loc.Entries()
	if err != nil {
		return err
	}
	defer func() { _ = it.Close() }()

	for it.Next() {
		if err := ctx.Err(); err != nil {
			return smartfs.Cancelled(err)
		}
		entry := it.Entry()

		err := fn(loc, entry)
		switch {
		case err == nil:
		case errors.Is(err, SkipDir):
			continue
		default:
			return err
		}

		if entry.IsDir {
			child, err := loc.NewLocation(utils.EnsureTrailingSlash(entry.Name))
			if err != nil {
				return err
			}
			if err := walk(ctx, child, fn); err != nil {
				return err
			}
		}
	}
	return it.Err()
}
