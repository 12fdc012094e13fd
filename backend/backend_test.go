package backend

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/options"
)

/**********************************
 ************TESTS*****************
 **********************************/

// fakeFS is the minimal FileSystem a factory can hand back.
type fakeFS struct {
	scheme    string
	authority string
	opts      smartfs.Options

	closed   bool
	closeErr error
}

func (f *fakeFS) NewFile(string, string, ...options.NewFileOption) (smartfs.File, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeFS) NewLocation(string, string, ...options.NewLocationOption) (smartfs.Location, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeFS) Name() string                     { return "Fake" }
func (f *fakeFS) Scheme() string                   { return f.scheme }
func (f *fakeFS) Capabilities() smartfs.Capability { return 0 }

func (f *fakeFS) Close() error {
	f.closed = true
	return f.closeErr
}

type registryTest struct {
	suite.Suite
	registry *Registry
}

func (s *registryTest) SetupTest() {
	s.registry = NewRegistry()
}

func (s *registryTest) TestUnknownScheme() {
	_, err := s.registry.Resolve("gopher", "host")
	s.ErrorIs(err, smartfs.ErrUnsupportedScheme)
}

func (s *registryTest) TestHandleCachedPerAuthority() {
	var constructions int32
	s.registry.RegisterFactory("fake", func(authority string, opts smartfs.Options) (smartfs.FileSystem, error) {
		atomic.AddInt32(&constructions, 1)
		return &fakeFS{scheme: "fake", authority: authority}, nil
	})

	a, err := s.registry.Resolve("fake", "one")
	s.Require().NoError(err)
	b, err := s.registry.Resolve("fake", "one")
	s.Require().NoError(err)
	s.Same(a, b, "same pair resolves to the cached handle")

	c, err := s.registry.Resolve("fake", "two")
	s.Require().NoError(err)
	s.NotSame(a, c, "a different authority gets its own handle")

	s.EqualValues(2, atomic.LoadInt32(&constructions))
}

func (s *registryTest) TestConcurrentResolveConstructsOnce() {
	var constructions int32
	s.registry.RegisterFactory("fake", func(authority string, opts smartfs.Options) (smartfs.FileSystem, error) {
		atomic.AddInt32(&constructions, 1)
		time.Sleep(10 * time.Millisecond) // widen the race window
		return &fakeFS{scheme: "fake", authority: authority}, nil
	})

	const n = 32
	handles := make([]smartfs.FileSystem, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fs, err := s.registry.Resolve("fake", "shared")
			s.NoError(err)
			handles[i] = fs
		}(i)
	}
	wg.Wait()

	s.EqualValues(1, atomic.LoadInt32(&constructions), "one construction for N concurrent resolves")
	for i := 1; i < n; i++ {
		s.Same(handles[0], handles[i])
	}
}

func (s *registryTest) TestInitErrorNotCached() {
	boom := errors.New("dial failed")
	var calls int32
	s.registry.RegisterFactory("fake", func(authority string, opts smartfs.Options) (smartfs.FileSystem, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return &fakeFS{scheme: "fake", authority: authority}, nil
	})

	_, err := s.registry.Resolve("fake", "flaky")
	s.Require().Error(err)

	var initErr *smartfs.BackendInitError
	s.Require().ErrorAs(err, &initErr)
	s.Equal("fake", initErr.Scheme)
	s.Equal("flaky", initErr.Authority)
	s.ErrorIs(err, boom)

	// the failure was not cached, so the next resolve retries
	fs, err := s.registry.Resolve("fake", "flaky")
	s.NoError(err)
	s.NotNil(fs)
	s.EqualValues(2, atomic.LoadInt32(&calls))
}

func (s *registryTest) TestSetOptionsReachesFactory() {
	type fakeOpts struct{ Endpoint string }

	var seen smartfs.Options
	s.registry.RegisterFactory("fake", func(authority string, opts smartfs.Options) (smartfs.FileSystem, error) {
		seen = opts
		return &fakeFS{scheme: "fake", authority: authority, opts: opts}, nil
	})
	s.registry.SetOptions("fake", fakeOpts{Endpoint: "http://localhost:9000"})

	_, err := s.registry.Resolve("fake", "bucket")
	s.Require().NoError(err)

	opts, ok := seen.(fakeOpts)
	s.Require().True(ok)
	s.Equal("http://localhost:9000", opts.Endpoint)
}

func (s *registryTest) TestOptionsChangeNeedsInvalidate() {
	type fakeOpts struct{ Endpoint string }

	s.registry.RegisterFactory("fake", func(authority string, opts smartfs.Options) (smartfs.FileSystem, error) {
		return &fakeFS{scheme: "fake", authority: authority, opts: opts}, nil
	})

	s.registry.SetOptions("fake", fakeOpts{Endpoint: "first"})
	a, err := s.registry.Resolve("fake", "bucket")
	s.Require().NoError(err)

	s.registry.SetOptions("fake", fakeOpts{Endpoint: "second"})
	b, err := s.registry.Resolve("fake", "bucket")
	s.Require().NoError(err)
	s.Same(a, b, "cached handle keeps its original options")

	s.registry.Invalidate("fake", "bucket")
	c, err := s.registry.Resolve("fake", "bucket")
	s.Require().NoError(err)
	s.Equal(fakeOpts{Endpoint: "second"}, c.(*fakeFS).opts)
}

func (s *registryTest) TestInvalidateClosesHandle() {
	s.registry.RegisterFactory("fake", func(authority string, opts smartfs.Options) (smartfs.FileSystem, error) {
		return &fakeFS{scheme: "fake", authority: authority}, nil
	})

	fs, err := s.registry.Resolve("fake", "conn")
	s.Require().NoError(err)

	s.registry.Invalidate("fake", "conn")
	s.True(fs.(*fakeFS).closed)

	// invalidating a pair that was never resolved is a no-op
	s.registry.Invalidate("fake", "never-resolved")
}

func (s *registryTest) TestCloseAggregatesErrors() {
	closeErrs := map[string]error{
		"good": nil,
		"bad":  errors.New("lingering transfer"),
	}
	s.registry.RegisterFactory("fake", func(authority string, opts smartfs.Options) (smartfs.FileSystem, error) {
		return &fakeFS{scheme: "fake", authority: authority, closeErr: closeErrs[authority]}, nil
	})

	good, err := s.registry.Resolve("fake", "good")
	s.Require().NoError(err)
	bad, err := s.registry.Resolve("fake", "bad")
	s.Require().NoError(err)

	err = s.registry.Close()
	s.Require().Error(err)
	s.ErrorIs(err, closeErrs["bad"])
	s.True(good.(*fakeFS).closed)
	s.True(bad.(*fakeFS).closed)

	// the cache is empty afterwards; a fresh resolve reconstructs
	again, err := s.registry.Resolve("fake", "good")
	s.Require().NoError(err)
	s.NotSame(good, again)
}

func (s *registryTest) TestRegisteredSchemesSorted() {
	noop := func(authority string, opts smartfs.Options) (smartfs.FileSystem, error) {
		return &fakeFS{}, nil
	}
	s.registry.RegisterFactory("zz", noop)
	s.registry.RegisterFactory("aa", noop)
	s.registry.RegisterFactory("mm", noop)

	s.Equal([]string{"aa", "mm", "zz"}, s.registry.RegisteredSchemes())
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(registryTest))
}
