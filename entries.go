package smartfs

import "time"

// DirEntry describes one child of a listed Location. It is immutable once
// produced by a listing.
type DirEntry struct {
	// Name is the base name of the entry. Container names carry no
	// trailing slash.
	Name string

	// IsDir is true for directories and for emulated containers on
	// flat-key backends (common key prefixes).
	IsDir bool

	// Size in bytes. Zero for containers and for backends that do not
	// report sizes in listings.
	Size uint64

	// LastModified is nil when the backend does not report one.
	LastModified *time.Time

	// Metadata holds backend-reported attributes (etag, storage class,
	// mode bits) keyed by backend-specific names. May be nil.
	Metadata map[string]string
}

// EntryIterator is a pull-based iterator over DirEntry items. Implementations
// fetch from the backend page by page as Next advances, so a listing is never
// materialized unless the caller forces it.
//
//	it, err := loc.Entries()
//	...
//	defer it.Close()
//	for it.Next() {
//	    entry := it.Entry()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
type EntryIterator interface {
	// Next advances to the next entry, fetching another page from the
	// backend if needed. It returns false at end of listing or on error.
	Next() bool

	// Entry returns the current entry. Only valid after Next returns true.
	Entry() DirEntry

	// Err returns the error that stopped iteration, or nil after a clean
	// end of listing.
	Err() error

	// Close releases any backend resources held by the iterator. Close is
	// idempotent.
	Close() error
}

// CollectEntries drains an iterator into a slice, closing it afterward.
func CollectEntries(it EntryIterator) ([]DirEntry, error) {
	defer func() { _ = it.Close() }()

	var entries []DirEntry
	for it.Next() {
		entries = append(entries, it.Entry())
	}
	return entries, it.Err()
}

// sliceEntryIterator serves a fixed slice of entries. Backends whose native
// listing call is not paged (local disk, memory) use it to satisfy the
// EntryIterator contract.
type sliceEntryIterator struct {
	entries []DirEntry
	idx     int
}

// NewSliceEntryIterator returns an EntryIterator over a pre-built slice.
func NewSliceEntryIterator(entries []DirEntry) EntryIterator {
	return &sliceEntryIterator{entries: entries}
}

func (s *sliceEntryIterator) Next() bool {
	if s.idx >= len(s.entries) {
		return false
	}
	s.idx++
	return true
}

func (s *sliceEntryIterator) Entry() DirEntry { return s.entries[s.idx-1] }

func (s *sliceEntryIterator) Err() error { return nil }

func (s *sliceEntryIterator) Close() error { return nil }
