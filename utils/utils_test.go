package utils

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/smartfs/smartfs"
)

/**********************************
 ************TESTS*****************
 **********************************/

type utilsTest struct {
	suite.Suite
}

func (s *utilsTest) TestEnsureSlashes() {
	s.Equal("/some/path/", EnsureTrailingSlash("/some/path"))
	s.Equal("/some/path/", EnsureTrailingSlash("/some/path/"))
	s.Equal("/some/path", EnsureLeadingSlash("some/path"))
	s.Equal("/some/path", EnsureLeadingSlash("/some/path"))
	s.Equal("/some/path", RemoveTrailingSlash("/some/path/"))
	s.Equal("some/path/", RemoveLeadingSlash("/some/path/"))
}

func (s *utilsTest) TestValidateAbsoluteFilePath() {
	s.NoError(ValidateAbsoluteFilePath("/some/file.txt"))
	s.Error(ValidateAbsoluteFilePath("some/file.txt"), "missing leading slash")
	s.Error(ValidateAbsoluteFilePath("/some/dir/"), "trailing slash is a location")
}

func (s *utilsTest) TestValidateRelativeFilePath() {
	s.NoError(ValidateRelativeFilePath("some/file.txt"))
	s.Error(ValidateRelativeFilePath(""))
	s.Error(ValidateRelativeFilePath("."))
	s.Error(ValidateRelativeFilePath("/some/file.txt"))
	s.Error(ValidateRelativeFilePath("some/dir/"))
}

func (s *utilsTest) TestValidateLocationPaths() {
	s.NoError(ValidateAbsoluteLocationPath("/some/dir/"))
	s.Error(ValidateAbsoluteLocationPath("/some/dir"))
	s.Error(ValidateAbsoluteLocationPath("some/dir/"))

	s.NoError(ValidateRelativeLocationPath("some/dir/"))
	s.Error(ValidateRelativeLocationPath("/some/dir/"))
	s.Error(ValidateRelativeLocationPath("some/dir"))
}

func (s *utilsTest) TestValidatePrefix() {
	s.NoError(ValidatePrefix("some"))
	s.NoError(ValidatePrefix("."))
	s.Error(ValidatePrefix(""))
	s.Error(ValidatePrefix("/some"))
	s.Error(ValidatePrefix("some/"))
}

func (s *utilsTest) TestPathToURI() {
	uri, err := PathToURI("/absolute/path/to/file.txt")
	s.NoError(err)
	s.Equal("file:///absolute/path/to/file.txt", uri)

	uri, err = PathToURI("/some/absolute/path/")
	s.NoError(err)
	s.Equal("file:///some/absolute/path/", uri)

	// already a URI, returned untouched
	uri, err = PathToURI("s3://bucket/key.txt")
	s.NoError(err)
	s.Equal("s3://bucket/key.txt", uri)

	// relative paths resolve against the working directory
	wd, err := os.Getwd()
	s.Require().NoError(err)
	uri, err = PathToURI("relative/file.txt")
	s.NoError(err)
	s.Equal("file://"+filepath.ToSlash(filepath.Join(wd, "relative/file.txt")), uri)

	uri, err = PathToURI("")
	s.NoError(err)
	s.Equal("file:///", uri)
}

func (s *utilsTest) TestEncodeURI() {
	s.Equal(
		"sftp://user@host.com:22/some/path/file.txt",
		EncodeURI("sftp", "user", "host.com:22", "/some/path/file.txt"),
	)
	s.Equal(
		"mem://vol/file.txt",
		EncodeURI("mem", "", "vol", "/file.txt"),
	)
	// reserved characters in the path are percent-encoded
	s.Equal(
		"ftp://host/with%20space.txt",
		EncodeURI("ftp", "", "host", "/with space.txt"),
	)
}

func (s *utilsTest) TestSeekTo() {
	// length 10, position 4
	pos, err := SeekTo(10, 4, 2, io.SeekStart)
	s.NoError(err)
	s.Equal(int64(2), pos)

	pos, err = SeekTo(10, 4, 2, io.SeekCurrent)
	s.NoError(err)
	s.Equal(int64(6), pos)

	pos, err = SeekTo(10, 4, -2, io.SeekEnd)
	s.NoError(err)
	s.Equal(int64(8), pos)

	// seeking past the end is allowed
	pos, err = SeekTo(10, 4, 5, io.SeekEnd)
	s.NoError(err)
	s.Equal(int64(15), pos)

	_, err = SeekTo(10, 4, -5, io.SeekStart)
	s.ErrorIs(err, smartfs.ErrSeekInvalidOffset)

	_, err = SeekTo(10, 4, 0, 42)
	s.ErrorIs(err, smartfs.ErrSeekInvalidWhence)
}

func (s *utilsTest) TestTouchCopyBuffered() {
	var dst bytes.Buffer
	s.NoError(TouchCopyBuffered(&dst, strings.NewReader("some contents"), 0))
	s.Equal("some contents", dst.String())

	// an empty source still gets a Write call
	w := &writeCounter{}
	s.NoError(TouchCopyBuffered(w, strings.NewReader(""), 0))
	s.Equal(1, w.calls)
}

type writeCounter struct {
	calls int
}

func (w *writeCounter) Write(p []byte) (int, error) {
	w.calls++
	return len(p), nil
}

func TestUtils(t *testing.T) {
	suite.Run(t, new(utilsTest))
}

type authorityTest struct {
	suite.Suite
}

func (s *authorityTest) TestHostOnly() {
	a, err := NewAuthority("host.com")
	s.NoError(err)
	s.Equal("host.com", a.Host())
	s.Zero(a.Port())
	s.Equal("host.com", a.HostPortStr())
	s.Equal("host.com", a.String())
}

func (s *authorityTest) TestHostPort() {
	a, err := NewAuthority("host.com:2022")
	s.NoError(err)
	s.Equal("host.com", a.Host())
	s.EqualValues(2022, a.Port())
	s.Equal("host.com:2022", a.HostPortStr())
}

func (s *authorityTest) TestUserinfo() {
	a, err := NewAuthority("bob:secret@host.com:21")
	s.NoError(err)
	s.Equal("bob", a.Username())
	s.Equal("secret", a.Password())
	s.Equal("bob@host.com:21", a.String(), "String never renders the password")
}

func (s *authorityTest) TestIPv6() {
	a, err := NewAuthority("[::1]:8080")
	s.NoError(err)
	s.Equal("::1", a.Host())
	s.EqualValues(8080, a.Port())
	s.Equal("[::1]:8080", a.HostPortStr(), "IPv6 hosts are re-bracketed")
}

func (s *authorityTest) TestInvalid() {
	_, err := NewAuthority("")
	s.ErrorIs(err, smartfs.ErrInvalidLocation)

	_, err = NewAuthority("host.com:99999")
	s.ErrorIs(err, smartfs.ErrInvalidLocation, "port must fit in 16 bits")

	_, err = NewAuthority("bob@")
	s.ErrorIs(err, smartfs.ErrInvalidLocation, "a host is required")
}

func TestAuthority(t *testing.T) {
	suite.Run(t, new(authorityTest))
}
