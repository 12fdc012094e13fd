package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/smartfs/smartfs"
)

// Writer accumulates caller bytes into fixed-size chunks and dispatches full
// chunks to a ChunkSink, concurrently when Options.Concurrency > 1. The
// object is assembled by Close only after every chunk has acknowledged; any
// permanent chunk failure aborts the whole transfer and best-effort removes
// the partial destination object before the error surfaces.
//
// Writer is not safe for concurrent use; writes on one transfer are strictly
// ordered.
type Writer struct {
	ctx  context.Context
	sink ChunkSink
	opts Options

	buf    []byte
	part   int
	offset int64
	sum    *xxhash.Digest

	group    *errgroup.Group
	groupCtx context.Context

	mu       sync.Mutex
	chunkErr error

	closed bool
}

// NewWriter starts a chunked write to sink. ctx bounds the whole transfer;
// cancelling it abandons in-flight chunks and cleans up the destination.
func NewWriter(ctx context.Context, sink ChunkSink, opts Options) *Writer {
	opts = opts.withDefaults()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	return &Writer{
		ctx:      ctx,
		sink:     sink,
		opts:     opts,
		buf:      make([]byte, 0, opts.ChunkSize),
		sum:      xxhash.New(),
		group:    g,
		groupCtx: gctx,
	}
}

// Write implements io.Writer. A full chunk blocks until a dispatch slot
// frees, bounding memory to Concurrency+1 chunks per transfer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("stream: write on closed writer")
	}
	if err := w.ctx.Err(); err != nil {
		return 0, w.fail(smartfs.Cancelled(err))
	}
	if err := w.firstErr(); err != nil {
		return 0, w.fail(err)
	}

	_, _ = w.sum.Write(p) // xxhash.Digest.Write never errors

	written := len(p)
	for len(p) > 0 {
		room := w.opts.ChunkSize - len(w.buf)
		if room > len(p) {
			room = len(p)
		}
		w.buf = append(w.buf, p[:room]...)
		p = p[room:]

		if len(w.buf) == w.opts.ChunkSize {
			w.dispatch()
		}
	}
	return written, nil
}

// dispatch hands the current buffer to the sink pool and starts a fresh one.
// The chunk takes ownership of the buffer, so no copy is needed.
func (w *Writer) dispatch() {
	w.part++
	chunk := Chunk{Part: w.part, Offset: w.offset, Data: w.buf}
	w.offset += int64(len(w.buf))
	w.buf = make([]byte, 0, w.opts.ChunkSize)

	w.group.Go(func() error {
		err := retryChunk(w.groupCtx, w.opts, "write", chunk.Part, func(ctx context.Context) error {
			return w.sink.WriteChunk(ctx, chunk)
		})
		if err != nil {
			w.setErr(fmt.Errorf("chunk %d: %w", chunk.Part, err))
		}
		return err
	})
}

// Close flushes the final partial chunk, waits for every in-flight chunk,
// and completes the object. On failure or cancellation the destination is
// best-effort cleaned up before the error is returned; a cleanup failure is
// attached to the primary error, never swallowed. Close after Close is a
// no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if len(w.buf) > 0 && w.firstErr() == nil && w.ctx.Err() == nil {
		w.dispatch()
	}

	waitErr := w.group.Wait()
	if err := w.ctx.Err(); err != nil {
		return w.abort(smartfs.Cancelled(err))
	}
	if waitErr != nil {
		return w.abort(waitErr)
	}

	digest, err := w.sink.Complete(w.ctx)
	if err != nil {
		return w.abort(fmt.Errorf("complete: %w", err))
	}

	if w.opts.VerifyChecksum && digest != "" {
		local := fmt.Sprintf("%016x", w.sum.Sum64())
		if digest != local {
			intErr := &smartfs.IntegrityError{URI: w.opts.URI, Expected: digest, Actual: local}
			// the assembled object does not match what was sent; discard it
			cctx, cancel := cleanupContext()
			defer cancel()
			if cleanupErr := w.sink.Abort(cctx); cleanupErr != nil {
				return multierror.Append(intErr, fmt.Errorf("discard of mismatched object failed: %w", cleanupErr))
			}
			return intErr
		}
	}
	return nil
}

// Cancel abandons the transfer and removes any partial destination object.
// Safe to call instead of Close when the caller gives up on a write.
func (w *Writer) Cancel() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.group.Wait()
	return w.abort(smartfs.Cancelled(context.Canceled))
}

// abort cleans up the destination and attaches any cleanup failure to the
// primary error.
func (w *Writer) abort(primary error) error {
	cctx, cancel := cleanupContext()
	defer cancel()

	cleanupErr := w.sink.Abort(cctx)
	if cleanupErr != nil {
		log.Warn().Err(cleanupErr).Str("uri", w.opts.URI).Msg("cleanup of partial object failed")
	}

	if errors.Is(primary, smartfs.ErrCancelled) {
		if cleanupErr != nil {
			return multierror.Append(primary, fmt.Errorf("cleanup of partial object failed: %w", cleanupErr))
		}
		return primary
	}
	return &smartfs.TransferError{Op: "write", URI: w.opts.URI, Err: primary, CleanupErr: cleanupErr}
}

// fail records err as the writer's terminal error and returns it.
func (w *Writer) fail(err error) error {
	w.setErr(err)
	return err
}

func (w *Writer) setErr(err error) {
	w.mu.Lock()
	if w.chunkErr == nil {
		w.chunkErr = err
	}
	w.mu.Unlock()
}

func (w *Writer) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chunkErr
}

// BytesWritten returns the number of bytes accepted so far, buffered bytes
// included.
func (w *Writer) BytesWritten() int64 {
	return w.offset + int64(len(w.buf))
}

// Parts returns the number of chunks dispatched so far.
func (w *Writer) Parts() int {
	return w.part
}

// Sum64 returns the rolling checksum of all bytes accepted so far.
func (w *Writer) Sum64() uint64 {
	return w.sum.Sum64()
}
