package s3

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/utils"
)

// Location implements smartfs.Location for AWS S3. The directory tree is
// emulated from the flat key namespace using the "/" delimiter.
type Location struct {
	fileSystem *FileSystem
	bucket     string
	prefix     string
	ctx        context.Context
}

// String implement fmt.Stringer, returning the location's URI as the default
// string.
func (l *Location) String() string {
	return l.URI()
}

// List calls the s3 API to list all objects at the location's prefix. One
// call is made per 1000 keys, so very large prefixes cost multiple round
// trips.
func (l *Location) List() ([]string, error) {
	return l.ListByPrefix("")
}

// ListByPrefix lists objects at the location whose base names begin with
// prefix.
func (l *Location) ListByPrefix(prefix string) ([]string, error) {
	searchPrefix := l.objectPrefix() + prefix

	client, err := l.fileSystem.Client()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0)
	input := &awss3.ListObjectsV2Input{
		Bucket:    aws.String(l.bucket),
		Prefix:    aws.String(searchPrefix),
		Delimiter: aws.String("/"),
	}
	for {
		out, err := client.ListObjectsV2(l.ctx, input)
		if err != nil {
			return nil, translateError("list", l.URI(), err)
		}

		for _, object := range out.Contents {
			key := aws.ToString(object.Key)
			// the prefix placeholder object is not a file
			if key == l.objectPrefix() {
				continue
			}
			names = append(names, strings.TrimPrefix(key, l.objectPrefix()))
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	return names, nil
}

// ListByRegex lists objects at the location whose base names match the given
// regular expression.
func (l *Location) ListByRegex(regex *regexp.Regexp) ([]string, error) {
	keys, err := l.List()
	if err != nil {
		return nil, err
	}

	filtered := make([]string, 0)
	for _, key := range keys {
		if regex.MatchString(key) {
			filtered = append(filtered, key)
		}
	}
	return filtered, nil
}

// Entries returns a lazy iterator over the immediate children of the
// location. Common key prefixes surface as containers; additional result
// pages are fetched only as the iterator advances.
func (l *Location) Entries() (smartfs.EntryIterator, error) {
	client, err := l.fileSystem.Client()
	if err != nil {
		return nil, err
	}

	return &entryIterator{
		ctx:      l.ctx,
		client:   client,
		location: l,
	}, nil
}

// Authority returns the bucket the location is contained in.
func (l *Location) Authority() string {
	return l.bucket
}

// Path returns the prefix as an absolute path with a trailing slash.
func (l *Location) Path() string {
	return l.prefix
}

// Exists reports whether any object lives at or below the prefix. The
// bucket root exists whenever the bucket does.
func (l *Location) Exists() (bool, error) {
	client, err := l.fileSystem.Client()
	if err != nil {
		return false, err
	}

	if l.prefix == "/" {
		_, err := client.HeadBucket(l.ctx, &awss3.HeadBucketInput{Bucket: aws.String(l.bucket)})
		if err != nil {
			if isNotFound(err) {
				return false, nil
			}
			return false, translateError("stat", l.URI(), err)
		}
		return true, nil
	}

	out, err := client.ListObjectsV2(l.ctx, &awss3.ListObjectsV2Input{
		Bucket:  aws.String(l.bucket),
		Prefix:  aws.String(l.objectPrefix()),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, translateError("stat", l.URI(), err)
	}
	return len(out.Contents) > 0 || len(out.CommonPrefixes) > 0, nil
}

// NewLocation returns a new Location relative to this one.
func (l *Location) NewLocation(relativePath string) (smartfs.Location, error) {
	if err := utils.ValidateRelativeLocationPath(relativePath); err != nil {
		return nil, err
	}
	return l.fileSystem.NewLocation(l.bucket, path.Join(l.prefix, relativePath)+"/")
}

// FileSystem returns the FileSystem the Location belongs to.
func (l *Location) FileSystem() smartfs.FileSystem {
	return l.fileSystem
}

// NewFile returns a File at this location with the given relative name.
func (l *Location) NewFile(fileName string, opts ...options.NewFileOption) (smartfs.File, error) {
	if err := utils.ValidateRelativeFilePath(fileName); err != nil {
		return nil, err
	}
	return l.fileSystem.NewFile(l.bucket, path.Join(l.prefix, fileName), opts...)
}

// DeleteFile removes the file at fileName path.
func (l *Location) DeleteFile(fileName string, opts ...options.DeleteOption) error {
	file, err := l.NewFile(fileName)
	if err != nil {
		return err
	}
	return file.Delete(opts...)
}

// URI returns the Location's URI as a string, ie s3://bucket/path/to/
func (l *Location) URI() string {
	return utils.GetLocationURI(l)
}

// objectPrefix is the listing prefix: the path without its leading slash,
// "" for the bucket root.
func (l *Location) objectPrefix() string {
	if l.prefix == "/" {
		return ""
	}
	return utils.RemoveLeadingSlash(l.prefix)
}

// entryIterator pages through ListObjectsV2 results on demand.
type entryIterator struct {
	ctx      context.Context
	client   Client
	location *Location

	buffer  []smartfs.DirEntry
	idx     int
	token   *string
	started bool
	done    bool
	err     error
	current smartfs.DirEntry
}

func (it *entryIterator) Next() bool {
	for {
		if it.err != nil {
			return false
		}
		if it.idx < len(it.buffer) {
			it.current = it.buffer[it.idx]
			it.idx++
			return true
		}
		if it.done {
			return false
		}
		it.fetchPage()
	}
}

func (it *entryIterator) fetchPage() {
	input := &awss3.ListObjectsV2Input{
		Bucket:    aws.String(it.location.bucket),
		Prefix:    aws.String(it.location.objectPrefix()),
		Delimiter: aws.String("/"),
	}
	if it.started {
		input.ContinuationToken = it.token
	}
	it.started = true

	out, err := it.client.ListObjectsV2(it.ctx, input)
	if err != nil {
		it.err = translateError("list", it.location.URI(), err)
		return
	}

	it.buffer = it.buffer[:0]
	it.idx = 0

	for _, object := range out.Contents {
		key := aws.ToString(object.Key)
		if key == it.location.objectPrefix() {
			continue
		}
		entry := smartfs.DirEntry{
			Name:         strings.TrimPrefix(key, it.location.objectPrefix()),
			Size:         uint64(aws.ToInt64(object.Size)), //nolint:gosec
			LastModified: object.LastModified,
		}
		if etag := aws.ToString(object.ETag); etag != "" {
			entry.Metadata = map[string]string{"etag": etag}
		}
		it.buffer = append(it.buffer, entry)
	}
	for _, cp := range out.CommonPrefixes {
		dirName := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), it.location.objectPrefix()), "/")
		it.buffer = append(it.buffer, smartfs.DirEntry{Name: dirName, IsDir: true})
	}

	if aws.ToBool(out.IsTruncated) {
		it.token = out.NextContinuationToken
	} else {
		it.done = true
	}
}

func (it *entryIterator) Entry() smartfs.DirEntry { return it.current }

func (it *entryIterator) Err() error { return it.err }

func (it *entryIterator) Close() error {
	it.done = true
	it.buffer = nil
	return nil
}
