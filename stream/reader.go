package stream

import (
	"context"
	"errors"
	"io"

	"github.com/smartfs/smartfs"
)

// Reader pulls an object from a ChunkSource as a lazy sequence of chunk
// reads, restartable from any offset. A failed or zero-progress chunk read
// is retried with backoff before the transfer fails.
//
// Reader is not safe for concurrent use; reads on one transfer are strictly
// ordered.
type Reader struct {
	ctx    context.Context
	src    ChunkSource
	opts   Options
	size   int64
	offset int64
}

// NewReader starts a chunked read from src at the given offset. The object
// size is fetched once, up front.
func NewReader(ctx context.Context, src ChunkSource, offset int64, opts Options) (*Reader, error) {
	opts = opts.withDefaults()

	size, err := src.Size(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, smartfs.Cancelled(ctx.Err())
		}
		return nil, &smartfs.TransferError{Op: "read", URI: opts.URI, Err: err}
	}
	if offset < 0 || offset > size {
		return nil, smartfs.ErrSeekInvalidOffset
	}

	return &Reader{ctx: ctx, src: src, opts: opts, size: size, offset: offset}, nil
}

// Read implements io.Reader. Reads never cross a chunk boundary, so each
// backend round trip is at most ChunkSize bytes.
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, smartfs.Cancelled(err)
	}
	if r.offset >= r.size {
		return 0, io.EOF
	}

	limit := int64(len(p))
	if limit > int64(r.opts.ChunkSize) {
		limit = int64(r.opts.ChunkSize)
	}
	if remaining := r.size - r.offset; limit > remaining {
		limit = remaining
	}
	if limit == 0 {
		return 0, nil
	}

	var n int
	err := retryChunk(r.ctx, r.opts, "read", int(r.offset/int64(r.opts.ChunkSize))+1, func(ctx context.Context) error {
		read, err := r.src.ReadChunkAt(ctx, r.offset, p[:limit])
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if read == 0 {
			// zero progress before end of data is a short read; retry
			return errors.New("short read")
		}
		n = read
		return nil
	})
	if err != nil {
		if r.ctx.Err() != nil {
			return 0, smartfs.Cancelled(r.ctx.Err())
		}
		return 0, &smartfs.TransferError{Op: "read", URI: r.opts.URI, Err: err}
	}

	r.offset += int64(n)
	return n, nil
}

// Offset returns the position of the next read.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Size returns the total object size.
func (r *Reader) Size() int64 {
	return r.size
}

// Restart repositions the next read, allowing a caller to resume a transfer
// from a known-good offset.
func (r *Reader) Restart(offset int64) error {
	if offset < 0 || offset > r.size {
		return smartfs.ErrSeekInvalidOffset
	}
	r.offset = offset
	return nil
}
