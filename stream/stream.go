// Package stream moves bytes between callers and backend handles in fixed
// size chunks with bounded memory, per-chunk retry, optional concurrent
// multipart dispatch, and rolling checksum verification.
package stream

import (
	"context"
	"time"
)

// Transfer tuning defaults. Overridable per transfer via Options and per
// scheme via backend options.
const (
	// DefaultChunkSize is the write buffering threshold; a full chunk is
	// dispatched to the sink as one unit.
	DefaultChunkSize = 8 << 20 // 8 MiB

	// DefaultConcurrency bounds in-flight chunk uploads for sinks that
	// accept parts concurrently.
	DefaultConcurrency = 4

	// DefaultAttempts is the total tries per chunk (first attempt plus
	// retries) before the transfer fails.
	DefaultAttempts = 3

	// DefaultBackoffBase is the first retry delay; it grows exponentially.
	DefaultBackoffBase = 500 * time.Millisecond

	// DefaultBackoffMax caps the per-retry delay.
	DefaultBackoffMax = 8 * time.Second
)

// Chunk is the unit of work of a transfer. Chunks of one transfer tile the
// byte range [0, total size) exactly once, in Part order, with no gaps or
// overlaps.
type Chunk struct {
	// Part is the 1-based sequence number of the chunk.
	Part int

	// Offset is the position of the chunk's first byte in the object.
	Offset int64

	// Data is the chunk payload. Owned by the engine; sinks must not
	// retain it past the WriteChunk call.
	Data []byte
}

// ChunkSink is the destination side of a chunked write. A backend returns a
// sink bound to one target object.
//
// Sinks whose backend declares CapabilityMultipartUpload must accept
// WriteChunk calls from multiple goroutines; all other sinks receive chunks
// strictly in Part order from a single goroutine.
type ChunkSink interface {
	// WriteChunk stores one chunk. A failed chunk may be retried with
	// identical contents; WriteChunk must tolerate replays.
	WriteChunk(ctx context.Context, c Chunk) error

	// Complete assembles the object after every chunk has acknowledged.
	// digest is the backend-reported checksum in the backend's format, or
	// "" when the backend does not report one.
	Complete(ctx context.Context) (digest string, err error)

	// Abort abandons the transfer and best-effort removes whatever partial
	// or assembled object the transfer created at the destination. Called
	// on chunk failure, cancellation, and integrity mismatch.
	Abort(ctx context.Context) error
}

// ChunkSource is the origin side of a chunked read, addressable by offset so
// a read can restart mid-object.
type ChunkSource interface {
	// ReadChunkAt reads up to len(p) bytes from the given offset. Short
	// reads before end of data are treated as transient and retried.
	ReadChunkAt(ctx context.Context, offset int64, p []byte) (int, error)

	// Size returns the total object size in bytes.
	Size(ctx context.Context) (int64, error)
}

// Options tune one transfer.
type Options struct {
	// ChunkSize is the buffering threshold in bytes. <= 0 means
	// DefaultChunkSize.
	ChunkSize int

	// Concurrency bounds concurrently in-flight chunks. <= 1 means
	// sequential dispatch. Ignored (forced to 1) for sinks that do not
	// take concurrent parts.
	Concurrency int

	// Attempts is the total tries per chunk. <= 0 means DefaultAttempts.
	Attempts int

	// BackoffBase is the initial retry delay. <= 0 means
	// DefaultBackoffBase.
	BackoffBase time.Duration

	// BackoffMax caps the retry delay. <= 0 means DefaultBackoffMax.
	BackoffMax time.Duration

	// ChunkTimeout additionally bounds each individual chunk round trip.
	// Zero means no per-chunk bound; the transfer is still bounded by the
	// caller's context deadline.
	ChunkTimeout time.Duration

	// VerifyChecksum enables comparison of the rolling transfer checksum
	// against the digest reported by the sink or source. Enable only for
	// backends declaring CapabilityChecksumReporting.
	VerifyChecksum bool

	// URI labels errors and log events with the transfer target.
	URI string
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = DefaultBackoffBase
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = DefaultBackoffMax
	}
	return o
}
