package ftp

import (
	"bytes"
	"context"
	"io"
	"net/textproto"
	"path"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	_ftp "github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/suite"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/utils"
)

/**********************************
 ************TESTS*****************
 **********************************/

// mockServer is an in-memory stand-in for an ftp server, implementing
// Client for control-channel commands.
type mockServer struct {
	files   map[string][]byte
	times   map[string]time.Time
	dirs    map[string]bool
	renames [][2]string
	setTime bool
}

func newMockServer() *mockServer {
	return &mockServer{
		files:   map[string][]byte{},
		times:   map[string]time.Time{},
		dirs:    map[string]bool{"/": true},
		setTime: true,
	}
}

func notExistErr() error {
	return &textproto.Error{Code: _ftp.StatusFileUnavailable, Msg: "file unavailable"}
}

func (m *mockServer) put(p string, contents []byte) {
	m.files[p] = contents
	m.times[p] = time.Now()
	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		m.dirs[dir] = true
		if dir == "/" {
			break
		}
	}
}

func (m *mockServer) Delete(p string) error {
	if _, ok := m.files[p]; !ok {
		return notExistErr()
	}
	delete(m.files, p)
	delete(m.times, p)
	return nil
}

func (m *mockServer) GetEntry(p string) (*_ftp.Entry, error) {
	if contents, ok := m.files[p]; ok {
		return &_ftp.Entry{
			Name: path.Base(p),
			Type: _ftp.EntryTypeFile,
			Size: uint64(len(contents)),
			Time: m.times[p],
		}, nil
	}
	if m.dirs[strings.TrimSuffix(p, "/")] {
		return &_ftp.Entry{Name: path.Base(p), Type: _ftp.EntryTypeFolder}, nil
	}
	return nil, notExistErr()
}

func (m *mockServer) List(p string) ([]*_ftp.Entry, error) {
	dir := strings.TrimSuffix(p, "/")
	if dir == "" {
		dir = "/"
	}
	if !m.dirs[dir] {
		return nil, notExistErr()
	}

	var entries []*_ftp.Entry
	for name, contents := range m.files {
		if path.Dir(name) == dir {
			entries = append(entries, &_ftp.Entry{
				Name: path.Base(name),
				Type: _ftp.EntryTypeFile,
				Size: uint64(len(contents)),
				Time: m.times[name],
			})
		}
	}
	for name := range m.dirs {
		if name != "/" && path.Dir(name) == dir {
			entries = append(entries, &_ftp.Entry{Name: path.Base(name), Type: _ftp.EntryTypeFolder})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (m *mockServer) Login(_, _ string) error { return nil }

func (m *mockServer) MakeDir(p string) error {
	m.dirs[strings.TrimSuffix(p, "/")] = true
	return nil
}

func (m *mockServer) Quit() error { return nil }

func (m *mockServer) Rename(from, to string) error {
	contents, ok := m.files[from]
	if !ok {
		return notExistErr()
	}
	m.renames = append(m.renames, [2]string{from, to})
	m.put(to, contents)
	delete(m.files, from)
	delete(m.times, from)
	return nil
}

func (m *mockServer) RetrFrom(_ string, _ uint64) (*_ftp.Response, error) {
	panic("transfers go through the injected dataconn getter")
}

func (m *mockServer) StorFrom(p string, r io.Reader, _ uint64) error {
	contents, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.put(p, contents)
	return nil
}

func (m *mockServer) IsSetTimeSupported() bool { return m.setTime }

func (m *mockServer) SetTime(p string, t time.Time) error {
	if _, ok := m.files[p]; !ok {
		return notExistErr()
	}
	m.times[p] = t
	return nil
}

type ftpFileTest struct {
	suite.Suite
	server     *mockServer
	fileSystem *FileSystem

	origClientGetter func(context.Context, utils.Authority, Options) (Client, error)
	origDataConn     func(context.Context, utils.Authority, *FileSystem, *File, OpenType) (DataConn, error)
}

func (s *ftpFileTest) SetupTest() {
	s.server = newMockServer()
	s.fileSystem = NewFileSystem()

	s.origClientGetter = defaultClientGetter
	s.origDataConn = dataConnGetterFunc

	defaultClientGetter = func(_ context.Context, _ utils.Authority, _ Options) (Client, error) {
		return s.server, nil
	}
	dataConnGetterFunc = s.getFakeDataConn
}

func (s *ftpFileTest) TearDownTest() {
	defaultClientGetter = s.origClientGetter
	dataConnGetterFunc = s.origDataConn
}

// getFakeDataConn honors the real getter's caching contract but transfers
// against the in-memory server instead of opening sockets.
func (s *ftpFileTest) getFakeDataConn(_ context.Context, _ utils.Authority, fs *FileSystem, f *File, t OpenType) (DataConn, error) {
	if fs.dataconn != nil && fs.dataconn.Mode() != t {
		if err := fs.dataconn.Close(); err != nil {
			return nil, err
		}
		fs.dataconn = nil
	}

	if fs.dataconn == nil || (f != nil && f.resetConn) {
		switch t {
		case OpenRead:
			contents, ok := s.server.files[f.Path()]
			if !ok {
				return nil, notExistErr()
			}
			if f.offset > int64(len(contents)) {
				f.offset = int64(len(contents))
			}
			fs.dataconn = &dataConn{
				R:    io.NopCloser(bytes.NewReader(contents[f.offset:])),
				mode: t,
			}
		case OpenWrite:
			pr, pw := io.Pipe()
			errChan := make(chan error, 1)
			target := f.Path()
			go func() {
				errChan <- s.server.StorFrom(target, pr, 0)
				_ = pr.Close()
			}()
			fs.dataconn = &dataConn{
				mode:    t,
				R:       pr,
				W:       pw,
				errChan: errChan,
			}
		case SingleOp:
			fs.dataconn = &dataConn{
				mode: t,
				c:    s.server,
			}
		}
		if f != nil {
			f.resetConn = false
		}
	}

	return fs.dataconn, nil
}

func (s *ftpFileTest) file(p string) smartfs.File {
	f, err := s.fileSystem.NewFile("user@host.com:21", p)
	s.Require().NoError(err)
	return f
}

func (s *ftpFileTest) location(p string) smartfs.Location {
	loc, err := s.fileSystem.NewLocation("user@host.com:21", p)
	s.Require().NoError(err)
	return loc
}

func (s *ftpFileTest) TestWriteReadRoundTrip() {
	f := s.file("/data/a.txt")
	_, err := f.Write([]byte("contents of a"))
	s.NoError(err)
	s.NoError(f.Close())

	data, err := io.ReadAll(s.file("/data/a.txt"))
	s.NoError(err)
	s.Equal("contents of a", string(data))
}

func (s *ftpFileTest) TestSeekReadsFromOffset() {
	s.server.put("/data/a.txt", []byte("contents of a"))

	f := s.file("/data/a.txt")
	pos, err := f.Seek(12, io.SeekStart)
	s.NoError(err)
	s.Equal(int64(12), pos)

	data, err := io.ReadAll(f)
	s.NoError(err)
	s.Equal("a", string(data))
	s.NoError(f.Close())
}

func (s *ftpFileTest) TestSeekInvalid() {
	f := s.file("/data/a.txt")
	_, err := f.Seek(-1, io.SeekStart)
	s.ErrorIs(err, smartfs.ErrSeekInvalidOffset)

	_, err = f.Seek(0, 42)
	s.ErrorIs(err, smartfs.ErrSeekInvalidWhence)
}

func (s *ftpFileTest) TestExistsAndStat() {
	s.server.put("/data/a.txt", []byte("contents of a"))

	exists, err := s.file("/data/a.txt").Exists()
	s.NoError(err)
	s.True(exists)

	exists, err = s.file("/nope.txt").Exists()
	s.NoError(err)
	s.False(exists)

	_, err = s.file("/nope.txt").Stat()
	s.ErrorIs(err, smartfs.ErrNotExist)

	entry, err := s.file("/data/a.txt").Stat()
	s.NoError(err)
	s.Equal("a.txt", entry.Name)
	s.Equal(uint64(len("contents of a")), entry.Size)
	s.NotNil(entry.LastModified)
}

func (s *ftpFileTest) TestDeleteIsIdempotent() {
	s.server.put("/data/a.txt", []byte("contents of a"))

	f := s.file("/data/a.txt")
	s.NoError(f.Delete())

	exists, err := f.Exists()
	s.NoError(err)
	s.False(exists)

	s.NoError(f.Delete())
}

func (s *ftpFileTest) TestMoveUsesNativeRename() {
	s.server.put("/data/a.txt", []byte("contents of a"))

	src := s.file("/data/a.txt")
	dst := s.file("/archive/a.txt")
	s.NoError(src.MoveToFile(dst))

	s.Require().Len(s.server.renames, 1)
	s.Equal([2]string{"/data/a.txt", "/archive/a.txt"}, s.server.renames[0])

	exists, err := src.Exists()
	s.NoError(err)
	s.False(exists)

	exists, err = dst.Exists()
	s.NoError(err)
	s.True(exists)
}

func (s *ftpFileTest) TestTouchCreates() {
	f := s.file("/data/empty.txt")
	s.NoError(f.Touch())

	exists, err := f.Exists()
	s.NoError(err)
	s.True(exists)

	size, err := f.Size()
	s.NoError(err)
	s.Zero(size)
}

func (s *ftpFileTest) TestTouchSetsTime() {
	s.server.put("/data/a.txt", []byte("contents of a"))
	was := s.server.times["/data/a.txt"]

	s.NoError(s.file("/data/a.txt").Touch())
	s.False(s.server.times["/data/a.txt"].Before(was))
	s.Empty(s.server.renames, "MFMT-capable server needs no rename dance")
}

func (s *ftpFileTest) TestNameAndCapabilities() {
	s.Equal("File Transfer Protocol", s.fileSystem.Name())
	s.Equal("ftp", s.fileSystem.Scheme())
	s.True(s.fileSystem.Capabilities().Has(smartfs.CapabilityNativeRename))
	s.False(s.fileSystem.Capabilities().Has(smartfs.CapabilityServerSideCopy))
}

func (s *ftpFileTest) TestURI() {
	s.Equal("ftp://user@host.com:21/data/a.txt", s.file("/data/a.txt").URI())
	s.Equal("ftp://user@host.com:21/data/", s.location("/data/").URI())
}

func TestFTPFile(t *testing.T) {
	suite.Run(t, new(ftpFileTest))
}

type ftpLocationTest struct {
	ftpFileTest
}

func (s *ftpLocationTest) SetupTest() {
	s.ftpFileTest.SetupTest()
	s.server.put("/data/a.txt", []byte("contents of a"))
	s.server.put("/data/b.txt", []byte("contents of b"))
	s.server.put("/data/sub/c.txt", []byte("contents of c"))
}

func (s *ftpLocationTest) TestList() {
	names, err := s.location("/data/").List()
	s.NoError(err)
	s.ElementsMatch([]string{"a.txt", "b.txt"}, names)
}

func (s *ftpLocationTest) TestListNonExistentIsEmpty() {
	names, err := s.location("/nope/").List()
	s.NoError(err)
	s.Empty(names)
}

func (s *ftpLocationTest) TestListByPrefix() {
	names, err := s.location("/data/").ListByPrefix("a")
	s.NoError(err)
	s.ElementsMatch([]string{"a.txt"}, names)
}

func (s *ftpLocationTest) TestListByRegex() {
	names, err := s.location("/data/").ListByRegex(regexp.MustCompile(`^b`))
	s.NoError(err)
	s.ElementsMatch([]string{"b.txt"}, names)
}

func (s *ftpLocationTest) TestEntriesIncludeFolders() {
	it, err := s.location("/data/").Entries()
	s.NoError(err)
	entries, err := smartfs.CollectEntries(it)
	s.NoError(err)

	var files, dirs []string
	for _, e := range entries {
		if e.IsDir {
			dirs = append(dirs, e.Name)
		} else {
			files = append(files, e.Name)
		}
	}
	s.ElementsMatch([]string{"a.txt", "b.txt"}, files)
	s.ElementsMatch([]string{"sub"}, dirs)
}

func (s *ftpLocationTest) TestExists() {
	exists, err := s.location("/data/sub/").Exists()
	s.NoError(err)
	s.True(exists)

	exists, err = s.location("/nope/").Exists()
	s.NoError(err)
	s.False(exists)

	exists, err = s.location("/").Exists()
	s.NoError(err)
	s.True(exists)
}

func (s *ftpLocationTest) TestNewLocationRelative() {
	loc, err := s.location("/data/").NewLocation("sub/")
	s.NoError(err)
	s.Equal("/data/sub/", loc.Path())
}

func TestFTPLocation(t *testing.T) {
	suite.Run(t, new(ftpLocationTest))
}
