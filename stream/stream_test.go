package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/suite"

	"github.com/smartfs/smartfs"
)

/**********************************
 ************TESTS*****************
 **********************************/

// fastOpts keeps retry delays out of the test runtime.
func fastOpts() Options {
	return Options{
		ChunkSize:   4,
		Attempts:    3,
		BackoffBase: time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		URI:         "fake://bucket/object",
	}
}

// fakeSink records chunks and lifecycle calls. failures maps a part number to
// how many WriteChunk calls for it should fail before one succeeds.
type fakeSink struct {
	mu          sync.Mutex
	chunks      map[int]Chunk
	writeCalls  int
	failures    map[int]int
	completed   bool
	aborted     bool
	digest      string
	completeErr error
	abortErr    error
}

func newFakeSink() *fakeSink {
	return &fakeSink{chunks: make(map[int]Chunk), failures: make(map[int]int)}
}

func (s *fakeSink) WriteChunk(ctx context.Context, c Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeCalls++

	if s.failures[c.Part] > 0 {
		s.failures[c.Part]--
		return fmt.Errorf("part %d: connection reset", c.Part)
	}

	// the engine owns c.Data past this call, so keep a copy
	data := make([]byte, len(c.Data))
	copy(data, c.Data)
	s.chunks[c.Part] = Chunk{Part: c.Part, Offset: c.Offset, Data: data}
	return nil
}

func (s *fakeSink) Complete(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return "", s.completeErr
	}
	s.completed = true
	return s.digest, nil
}

func (s *fakeSink) Abort(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	s.chunks = make(map[int]Chunk)
	return s.abortErr
}

// assembled stitches the recorded chunks back together in part order.
func (s *fakeSink) assembled() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := make([]int, 0, len(s.chunks))
	for p := range s.chunks {
		parts = append(parts, p)
	}
	sort.Ints(parts)

	var buf bytes.Buffer
	for _, p := range parts {
		buf.Write(s.chunks[p].Data)
	}
	return buf.Bytes()
}

type writerTest struct {
	suite.Suite
	ctx context.Context
}

func (s *writerTest) SetupTest() {
	s.ctx = context.Background()
}

func (s *writerTest) TestChunksTileTheObject() {
	sink := newFakeSink()
	w := NewWriter(s.ctx, sink, fastOpts())

	// 3 full chunks of 4 bytes plus a 2 byte tail
	payload := []byte("aaaabbbbccccdd")
	n, err := w.Write(payload)
	s.Require().NoError(err)
	s.Equal(len(payload), n)
	s.Require().NoError(w.Close())

	s.True(sink.completed)
	s.False(sink.aborted)
	s.Len(sink.chunks, 4)

	var offset int64
	for part := 1; part <= 4; part++ {
		c, ok := sink.chunks[part]
		s.Require().True(ok, "part %d present", part)
		s.Equal(offset, c.Offset, "part %d offset", part)
		offset += int64(len(c.Data))
	}
	s.Equal(int64(len(payload)), offset, "chunks cover the byte range exactly")
	s.Equal(payload, sink.assembled())
}

func (s *writerTest) TestSplitWritesLandOnChunkBoundaries() {
	sink := newFakeSink()
	w := NewWriter(s.ctx, sink, fastOpts())

	// byte-at-a-time writes still fill 4-byte chunks
	payload := []byte("0123456789")
	for _, b := range payload {
		_, err := w.Write([]byte{b})
		s.Require().NoError(err)
	}
	s.Require().NoError(w.Close())

	s.Len(sink.chunks, 3)
	s.Equal([]byte("0123"), sink.chunks[1].Data)
	s.Equal([]byte("4567"), sink.chunks[2].Data)
	s.Equal([]byte("89"), sink.chunks[3].Data)
}

func (s *writerTest) TestEmptyWriteCompletes() {
	sink := newFakeSink()
	w := NewWriter(s.ctx, sink, fastOpts())
	s.Require().NoError(w.Close())

	s.True(sink.completed, "a zero-byte object is still assembled")
	s.Empty(sink.chunks)
}

func (s *writerTest) TestConcurrentDispatch() {
	sink := newFakeSink()
	opts := fastOpts()
	opts.Concurrency = 4
	w := NewWriter(s.ctx, sink, opts)

	payload := bytes.Repeat([]byte("abcd"), 16)
	_, err := w.Write(payload)
	s.Require().NoError(err)
	s.Require().NoError(w.Close())

	s.Equal(payload, sink.assembled())
	s.Equal(16, w.Parts())
}

func (s *writerTest) TestTransientFailureRecovers() {
	sink := newFakeSink()
	sink.failures[2] = 2 // two failures, third attempt succeeds
	w := NewWriter(s.ctx, sink, fastOpts())

	payload := []byte("aaaabbbbcccc")
	_, err := w.Write(payload)
	s.Require().NoError(err)
	s.Require().NoError(w.Close())

	s.True(sink.completed)
	s.Equal(payload, sink.assembled())
	s.Equal(5, sink.writeCalls, "3 chunks plus 2 retries")
}

func (s *writerTest) TestRetryBudgetExceededAborts() {
	sink := newFakeSink()
	sink.failures[2] = 3 // one more than the attempt budget
	w := NewWriter(s.ctx, sink, fastOpts())

	_, err := w.Write([]byte("aaaabbbbcccc"))
	s.Require().NoError(err)

	err = w.Close()
	s.Require().Error(err)

	var transferErr *smartfs.TransferError
	s.Require().ErrorAs(err, &transferErr)
	s.Equal("write", transferErr.Op)
	s.Equal("fake://bucket/object", transferErr.URI)

	s.True(sink.aborted, "partial destination object is removed")
	s.False(sink.completed)
	s.Empty(sink.chunks, "nothing stat-able remains at the destination")
}

func (s *writerTest) TestCleanupFailureAttachedNotSwallowed() {
	sink := newFakeSink()
	sink.failures[1] = 3
	sink.abortErr = errors.New("delete denied")
	w := NewWriter(s.ctx, sink, fastOpts())

	_, err := w.Write([]byte("aaaa"))
	s.Require().NoError(err)

	err = w.Close()
	s.Require().Error(err)

	var transferErr *smartfs.TransferError
	s.Require().ErrorAs(err, &transferErr)
	s.ErrorIs(transferErr.CleanupErr, sink.abortErr)
}

func (s *writerTest) TestCancelledContextSurfacesErrCancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	sink := newFakeSink()
	w := NewWriter(ctx, sink, fastOpts())

	_, err := w.Write([]byte("aaaabbbb"))
	s.Require().NoError(err)

	cancel()

	_, err = w.Write([]byte("cccc"))
	s.ErrorIs(err, smartfs.ErrCancelled)

	err = w.Close()
	s.ErrorIs(err, smartfs.ErrCancelled)
	s.True(sink.aborted)
	s.False(sink.completed)
}

func (s *writerTest) TestCancelRemovesPartialObject() {
	sink := newFakeSink()
	w := NewWriter(s.ctx, sink, fastOpts())

	_, err := w.Write([]byte("aaaabbbb"))
	s.Require().NoError(err)

	err = w.Cancel()
	s.ErrorIs(err, smartfs.ErrCancelled)
	s.True(sink.aborted)
	s.Empty(sink.chunks)
}

func (s *writerTest) TestChecksumVerified() {
	payload := []byte("verify me, chunk by chunk")

	sink := newFakeSink()
	sink.digest = fmt.Sprintf("%016x", xxhash.Sum64(payload))

	opts := fastOpts()
	opts.VerifyChecksum = true
	w := NewWriter(s.ctx, sink, opts)

	_, err := w.Write(payload)
	s.Require().NoError(err)
	s.NoError(w.Close())
	s.True(sink.completed)
}

func (s *writerTest) TestChecksumMismatchDiscardsObject() {
	sink := newFakeSink()
	sink.digest = fmt.Sprintf("%016x", uint64(0xdeadbeef))

	opts := fastOpts()
	opts.VerifyChecksum = true
	w := NewWriter(s.ctx, sink, opts)

	_, err := w.Write([]byte("these bytes hash differently"))
	s.Require().NoError(err)

	err = w.Close()
	s.Require().Error(err)

	var intErr *smartfs.IntegrityError
	s.Require().ErrorAs(err, &intErr)
	s.Equal(sink.digest, intErr.Expected)
	s.NotEqual(intErr.Expected, intErr.Actual)

	s.True(sink.aborted, "mismatched object is discarded")
	s.Empty(sink.chunks)
}

func (s *writerTest) TestUnreportedDigestSkipsVerification() {
	sink := newFakeSink() // digest stays ""

	opts := fastOpts()
	opts.VerifyChecksum = true
	w := NewWriter(s.ctx, sink, opts)

	_, err := w.Write([]byte("no digest, no check"))
	s.Require().NoError(err)
	s.NoError(w.Close())
	s.True(sink.completed)
}

func (s *writerTest) TestDoubleCloseIsNoop() {
	sink := newFakeSink()
	w := NewWriter(s.ctx, sink, fastOpts())

	_, err := w.Write([]byte("x"))
	s.Require().NoError(err)
	s.NoError(w.Close())
	s.NoError(w.Close())

	_, err = w.Write([]byte("y"))
	s.Error(err, "write after close is rejected")
}

func TestWriter(t *testing.T) {
	suite.Run(t, new(writerTest))
}

// fakeSource serves reads from an in-memory object. failures maps an offset
// to how many ReadChunkAt calls there should fail before one succeeds;
// shorts maps an offset to how many zero-progress reads to serve first.
type fakeSource struct {
	data     []byte
	failures map[int64]int
	shorts   map[int64]int
	reads    int
}

func newFakeSource(data []byte) *fakeSource {
	return &fakeSource{data: data, failures: make(map[int64]int), shorts: make(map[int64]int)}
}

func (s *fakeSource) ReadChunkAt(ctx context.Context, offset int64, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.reads++

	if s.failures[offset] > 0 {
		s.failures[offset]--
		return 0, errors.New("connection reset")
	}
	if s.shorts[offset] > 0 {
		s.shorts[offset]--
		return 0, nil
	}
	if offset >= int64(len(s.data)) {
		return 0, io.EOF
	}
	return copy(p, s.data[offset:]), nil
}

func (s *fakeSource) Size(context.Context) (int64, error) {
	return int64(len(s.data)), nil
}

type readerTest struct {
	suite.Suite
	ctx context.Context
}

func (s *readerTest) SetupTest() {
	s.ctx = context.Background()
}

func (s *readerTest) TestRoundTrip() {
	payload := []byte("a payload longer than one chunk")
	src := newFakeSource(payload)

	r, err := NewReader(s.ctx, src, 0, fastOpts())
	s.Require().NoError(err)
	s.Equal(int64(len(payload)), r.Size())

	got, err := io.ReadAll(r)
	s.Require().NoError(err)
	s.Equal(payload, got)
	s.GreaterOrEqual(src.reads, len(payload)/4, "reads never cross a chunk boundary")
}

func (s *readerTest) TestStartOffset() {
	src := newFakeSource([]byte("0123456789"))

	r, err := NewReader(s.ctx, src, 6, fastOpts())
	s.Require().NoError(err)

	got, err := io.ReadAll(r)
	s.Require().NoError(err)
	s.Equal([]byte("6789"), got)
}

func (s *readerTest) TestInvalidOffsetRejected() {
	src := newFakeSource([]byte("0123"))

	_, err := NewReader(s.ctx, src, -1, fastOpts())
	s.ErrorIs(err, smartfs.ErrSeekInvalidOffset)

	_, err = NewReader(s.ctx, src, 5, fastOpts())
	s.ErrorIs(err, smartfs.ErrSeekInvalidOffset)
}

func (s *readerTest) TestShortReadRetried() {
	src := newFakeSource([]byte("0123456789"))
	src.shorts[4] = 2 // zero progress twice at the second chunk

	r, err := NewReader(s.ctx, src, 0, fastOpts())
	s.Require().NoError(err)

	got, err := io.ReadAll(r)
	s.Require().NoError(err)
	s.Equal([]byte("0123456789"), got)
}

func (s *readerTest) TestFailureBudgetExceeded() {
	src := newFakeSource([]byte("0123456789"))
	src.failures[0] = 3

	r, err := NewReader(s.ctx, src, 0, fastOpts())
	s.Require().NoError(err)

	_, err = io.ReadAll(r)
	s.Require().Error(err)

	var transferErr *smartfs.TransferError
	s.Require().ErrorAs(err, &transferErr)
	s.Equal("read", transferErr.Op)
}

func (s *readerTest) TestRestart() {
	src := newFakeSource([]byte("0123456789"))

	r, err := NewReader(s.ctx, src, 0, fastOpts())
	s.Require().NoError(err)

	buf := make([]byte, 4)
	_, err = r.Read(buf)
	s.Require().NoError(err)
	s.Equal(int64(4), r.Offset())

	s.Require().NoError(r.Restart(8))
	got, err := io.ReadAll(r)
	s.Require().NoError(err)
	s.Equal([]byte("89"), got)

	s.ErrorIs(r.Restart(11), smartfs.ErrSeekInvalidOffset)
}

func (s *readerTest) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	src := newFakeSource([]byte("0123456789"))

	r, err := NewReader(ctx, src, 0, fastOpts())
	s.Require().NoError(err)

	cancel()

	_, err = r.Read(make([]byte, 4))
	s.ErrorIs(err, smartfs.ErrCancelled)
}

func TestReader(t *testing.T) {
	suite.Run(t, new(readerTest))
}
