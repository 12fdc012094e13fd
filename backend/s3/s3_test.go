package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/suite"

	"github.com/smartfs/smartfs"
)

/**********************************
 ************TESTS*****************
 **********************************/

// mockClient is an in-memory Client double. Objects live in a flat key map;
// multipart uploads accumulate parts until completed.
type mockClient struct {
	mu      sync.Mutex
	objects map[string][]byte
	mtimes  map[string]time.Time

	uploads     map[string]map[int32][]byte
	uploadSeq   int
	partCalls   int
	failParts   int // fail this many UploadPart calls before succeeding
	abortCalls  int
	deleteCalls int
}

func newMockClient() *mockClient {
	return &mockClient{
		objects: make(map[string][]byte),
		mtimes:  make(map[string]time.Time),
		uploads: make(map[string]map[int32][]byte),
	}
}

func (m *mockClient) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	start, end := int64(0), int64(len(data))-1
	if r := aws.ToString(in.Range); r != "" {
		parts := strings.SplitN(strings.TrimPrefix(r, "bytes="), "-", 2)
		start, _ = strconv.ParseInt(parts[0], 10, 64)
		end, _ = strconv.ParseInt(parts[1], 10, 64)
		if end >= int64(len(data)) {
			end = int64(len(data)) - 1
		}
	}
	body := append([]byte(nil), data[start:end+1]...)
	return &awss3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func (m *mockClient) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.objects[aws.ToString(in.Key)] = data
	m.mtimes[aws.ToString(in.Key)] = time.Now()
	m.mu.Unlock()
	return &awss3.PutObjectOutput{}, nil
}

func (m *mockClient) CreateMultipartUpload(_ context.Context, in *awss3.CreateMultipartUploadInput, _ ...func(*awss3.Options)) (*awss3.CreateMultipartUploadOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadSeq++
	id := fmt.Sprintf("upload-%d", m.uploadSeq)
	m.uploads[id] = make(map[int32][]byte)
	return &awss3.CreateMultipartUploadOutput{UploadId: aws.String(id)}, nil
}

func (m *mockClient) UploadPart(_ context.Context, in *awss3.UploadPartInput, _ ...func(*awss3.Options)) (*awss3.UploadPartOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.partCalls++
	if m.failParts > 0 {
		m.failParts--
		return nil, errors.New("simulated part failure")
	}

	parts, ok := m.uploads[aws.ToString(in.UploadId)]
	if !ok {
		return nil, errors.New("no such upload")
	}
	parts[aws.ToInt32(in.PartNumber)] = data
	return &awss3.UploadPartOutput{ETag: aws.String(fmt.Sprintf("etag-%d", aws.ToInt32(in.PartNumber)))}, nil
}

func (m *mockClient) CompleteMultipartUpload(_ context.Context, in *awss3.CompleteMultipartUploadInput, _ ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts, ok := m.uploads[aws.ToString(in.UploadId)]
	if !ok {
		return nil, errors.New("no such upload")
	}

	var assembled []byte
	for _, part := range in.MultipartUpload.Parts {
		data, ok := parts[aws.ToInt32(part.PartNumber)]
		if !ok {
			return nil, fmt.Errorf("part %d missing", aws.ToInt32(part.PartNumber))
		}
		assembled = append(assembled, data...)
	}
	m.objects[aws.ToString(in.Key)] = assembled
	m.mtimes[aws.ToString(in.Key)] = time.Now()
	delete(m.uploads, aws.ToString(in.UploadId))
	return &awss3.CompleteMultipartUploadOutput{}, nil
}

func (m *mockClient) AbortMultipartUpload(_ context.Context, in *awss3.AbortMultipartUploadInput, _ ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abortCalls++
	delete(m.uploads, aws.ToString(in.UploadId))
	return &awss3.AbortMultipartUploadOutput{}, nil
}

func (m *mockClient) CopyObject(_ context.Context, in *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	source := aws.ToString(in.CopySource)
	key := source[strings.Index(source, "/")+1:]
	data, ok := m.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	m.objects[aws.ToString(in.Key)] = append([]byte(nil), data...)
	m.mtimes[aws.ToString(in.Key)] = time.Now()
	return &awss3.CopyObjectOutput{}, nil
}

func (m *mockClient) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	delete(m.objects, aws.ToString(in.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

func (m *mockClient) HeadBucket(_ context.Context, _ *awss3.HeadBucketInput, _ ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
	return &awss3.HeadBucketOutput{}, nil
}

func (m *mockClient) HeadObject(_ context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	mtime := m.mtimes[aws.ToString(in.Key)]
	return &awss3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(data))),
		LastModified:  aws.Time(mtime),
		ETag:          aws.String("etag"),
	}, nil
}

func (m *mockClient) ListObjectsV2(_ context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := aws.ToString(in.Prefix)
	delimiter := aws.ToString(in.Delimiter)

	var contents []types.Object
	prefixSet := map[string]bool{}
	for key, data := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if delimiter != "" {
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				prefixSet[prefix+rest[:idx+1]] = true
				continue
			}
		}
		contents = append(contents, types.Object{
			Key:  aws.String(key),
			Size: aws.Int64(int64(len(data))),
		})
	}

	out := &awss3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	out.Contents = contents
	for p := range prefixSet {
		out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(p)})
	}
	return out, nil
}

func (m *mockClient) ListObjectVersions(_ context.Context, _ *awss3.ListObjectVersionsInput, _ ...func(*awss3.Options)) (*awss3.ListObjectVersionsOutput, error) {
	return &awss3.ListObjectVersionsOutput{IsTruncated: aws.Bool(false)}, nil
}

type s3FileTest struct {
	suite.Suite
	client     *mockClient
	fileSystem *FileSystem
}

func (s *s3FileTest) SetupTest() {
	s.client = newMockClient()
	s.fileSystem = NewFileSystem().
		WithOptions(Options{UploadChunkSize: 4, UploadConcurrency: 2}).
		WithClient(s.client)
}

func (s *s3FileTest) file(path string) smartfs.File {
	f, err := s.fileSystem.NewFile("bucket", path)
	s.Require().NoError(err)
	return f
}

func (s *s3FileTest) TestMultipartWrite() {
	f := s.file("/data/file.bin")

	// 10 bytes at a 4-byte chunk size tiles into 3 parts
	_, err := f.Write([]byte("0123456789"))
	s.NoError(err)
	s.NoError(f.Close())

	s.Equal([]byte("0123456789"), s.client.objects["data/file.bin"])
	s.GreaterOrEqual(s.client.partCalls, 3)
	s.Empty(s.client.uploads, "no multipart upload left open")
}

func (s *s3FileTest) TestWriteRetriesTransientPartFailure() {
	s.client.failParts = 1

	f := s.file("/data/file.bin")
	_, err := f.Write([]byte("0123456789"))
	s.NoError(err)
	s.NoError(f.Close(), "one failed part is retried, not fatal")
	s.Equal([]byte("0123456789"), s.client.objects["data/file.bin"])
}

func (s *s3FileTest) TestWriteAbortsAfterRetryBudget() {
	s.client.failParts = 100

	f := s.file("/data/file.bin")
	_, err := f.Write([]byte("0123456789"))
	s.NoError(err, "failure surfaces on Close, not mid-write")

	err = f.Close()
	s.Error(err)
	var transferErr *smartfs.TransferError
	s.ErrorAs(err, &transferErr)
	s.NotContains(s.client.objects, "data/file.bin", "no partial object remains")
	s.Empty(s.client.uploads, "upload was aborted")
}

func (s *s3FileTest) TestReadRanged() {
	s.client.objects["data/file.bin"] = []byte("the quick brown fox")

	f := s.file("/data/file.bin")
	data, err := io.ReadAll(f)
	s.NoError(err)
	s.Equal("the quick brown fox", string(data))
	s.NoError(f.Close())
}

func (s *s3FileTest) TestSeekRestartsStream() {
	s.client.objects["data/file.bin"] = []byte("0123456789")

	f := s.file("/data/file.bin")
	pos, err := f.Seek(6, io.SeekStart)
	s.NoError(err)
	s.Equal(int64(6), pos)

	data, err := io.ReadAll(f)
	s.NoError(err)
	s.Equal("6789", string(data))
}

func (s *s3FileTest) TestExistsAndStat() {
	f := s.file("/nope.bin")
	exists, err := f.Exists()
	s.NoError(err)
	s.False(exists)

	_, err = f.Stat()
	s.ErrorIs(err, smartfs.ErrNotExist)

	s.client.objects["data/file.bin"] = []byte("12345")
	s.client.mtimes["data/file.bin"] = time.Now()
	f = s.file("/data/file.bin")
	entry, err := f.Stat()
	s.NoError(err)
	s.Equal(uint64(5), entry.Size)
	s.Equal("file.bin", entry.Name)
	s.Equal("etag", entry.Metadata["etag"])
}

func (s *s3FileTest) TestDeleteIsIdempotent() {
	s.client.objects["data/file.bin"] = []byte("x")

	f := s.file("/data/file.bin")
	s.NoError(f.Delete())
	s.NoError(f.Delete())
	s.NotContains(s.client.objects, "data/file.bin")
}

func (s *s3FileTest) TestServerSideCopy() {
	s.client.objects["data/src.bin"] = []byte("payload")

	src := s.file("/data/src.bin")
	dst := s.file("/backup/dst.bin")
	s.NoError(src.CopyToFile(dst))
	s.Equal([]byte("payload"), s.client.objects["backup/dst.bin"])
}

func (s *s3FileTest) TestMoveIsCopyPlusDelete() {
	s.client.objects["data/src.bin"] = []byte("payload")

	src := s.file("/data/src.bin")
	dst := s.file("/data/dst.bin")
	s.NoError(src.MoveToFile(dst))
	s.NotContains(s.client.objects, "data/src.bin")
	s.Equal([]byte("payload"), s.client.objects["data/dst.bin"])
}

func (s *s3FileTest) TestTouchCreates() {
	f := s.file("/data/empty.bin")
	s.NoError(f.Touch())
	s.Contains(s.client.objects, "data/empty.bin")
	s.Empty(s.client.objects["data/empty.bin"])
}

func (s *s3FileTest) TestURI() {
	s.Equal("s3://bucket/data/file.bin", s.file("/data/file.bin").URI())
}

func (s *s3FileTest) TestCapabilities() {
	caps := s.fileSystem.Capabilities()
	s.True(caps.Has(smartfs.CapabilityServerSideCopy))
	s.True(caps.Has(smartfs.CapabilityMultipartUpload))
	s.False(caps.Has(smartfs.CapabilityNativeRename))

	// the multipart etag is not a digest of the object bytes, so no
	// verifiable checksum is declared or wired into transfers
	s.False(caps.Has(smartfs.CapabilityChecksumReporting))
	s.False(s.file("/data/file.bin").(*File).streamOptions().VerifyChecksum)
}

func TestS3File(t *testing.T) {
	suite.Run(t, new(s3FileTest))
}

type s3LocationTest struct {
	suite.Suite
	client     *mockClient
	fileSystem *FileSystem
}

func (s *s3LocationTest) SetupTest() {
	s.client = newMockClient()
	s.fileSystem = NewFileSystem().WithClient(s.client)
	for _, key := range []string{
		"data/a.txt", "data/b.txt", "data/prefix-c.txt", "data/sub/d.txt",
	} {
		s.client.objects[key] = []byte("contents")
		s.client.mtimes[key] = time.Now()
	}
}

func (s *s3LocationTest) location(path string) smartfs.Location {
	loc, err := s.fileSystem.NewLocation("bucket", path)
	s.Require().NoError(err)
	return loc
}

func (s *s3LocationTest) TestList() {
	names, err := s.location("/data/").List()
	s.NoError(err)
	s.ElementsMatch([]string{"a.txt", "b.txt", "prefix-c.txt"}, names)
}

func (s *s3LocationTest) TestListByPrefix() {
	names, err := s.location("/data/").ListByPrefix("prefix-")
	s.NoError(err)
	s.ElementsMatch([]string{"prefix-c.txt"}, names)
}

func (s *s3LocationTest) TestEntriesEmulateContainers() {
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
	s.ElementsMatch([]string{"a.txt", "b.txt", "prefix-c.txt"}, files)
	s.ElementsMatch([]string{"sub"}, dirs)
}

func (s *s3LocationTest) TestExists() {
	exists, err := s.location("/data/sub/").Exists()
	s.NoError(err)
	s.True(exists)

	exists, err = s.location("/nope/").Exists()
	s.NoError(err)
	s.False(exists)
}

func (s *s3LocationTest) TestNewFileValidation() {
	_, err := s.location("/data/").NewFile("/absolute.txt")
	s.Error(err)
}

func TestS3Location(t *testing.T) {
	suite.Run(t, new(s3LocationTest))
}
