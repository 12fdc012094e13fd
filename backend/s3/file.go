package s3

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/backend"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/options/delete"
	"github.com/smartfs/smartfs/stream"
	"github.com/smartfs/smartfs/utils"
)

// File implements smartfs.File for AWS S3. Reads pull ranged chunks through
// the stream engine; writes go through a multipart upload assembled on
// Close.
type File struct {
	fileSystem  *FileSystem
	bucket      string
	key         string
	ctx         context.Context
	contentType string

	reader *stream.Reader
	writer *stream.Writer
}

// Close finalizes any pending transfer. For writes this assembles the
// multipart upload; a failure there means no object was left behind.
func (f *File) Close() error {
	f.reader = nil

	if f.writer != nil {
		writer := f.writer
		f.writer = nil
		return writer.Close()
	}
	return nil
}

// Read implements io.Reader, pulling the object in ranged chunks.
func (f *File) Read(p []byte) (int, error) {
	if f.writer != nil {
		return 0, fmt.Errorf("s3: read %s: write in progress", f.URI())
	}

	if f.reader == nil {
		reader, err := f.newReader(0)
		if err != nil {
			return 0, err
		}
		f.reader = reader
	}
	return f.reader.Read(p)
}

// Seek implements io.Seeker. Seeking a read restarts the chunk stream at the
// new offset without re-downloading what came before.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.writer != nil {
		return 0, fmt.Errorf("s3: seek %s: write in progress", f.URI())
	}

	if f.reader == nil {
		reader, err := f.newReader(0)
		if err != nil {
			return 0, err
		}
		f.reader = reader
	}

	pos, err := utils.SeekTo(f.reader.Size(), f.reader.Offset(), offset, whence)
	if err != nil {
		return 0, err
	}
	if err := f.reader.Restart(pos); err != nil {
		return 0, err
	}
	return pos, nil
}

// Write implements io.Writer. The first Write opens a multipart upload;
// chunks are dispatched concurrently as they fill.
func (f *File) Write(p []byte) (int, error) {
	if f.writer == nil {
		writer, err := f.newWriter()
		if err != nil {
			return 0, err
		}
		f.writer = writer
	}
	return f.writer.Write(p)
}

// String implement fmt.Stringer, returning the file's URI as the default
// string.
func (f *File) String() string {
	return f.URI()
}

// Exists returns whether the object exists in the bucket.
func (f *File) Exists() (bool, error) {
	client, err := f.fileSystem.Client()
	if err != nil {
		return false, err
	}

	_, err = client.HeadObject(f.ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.objectKey()),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, translateError("stat", f.URI(), err)
	}
	return true, nil
}

// Stat returns the object's DirEntry, with the etag and storage class
// carried in Metadata.
func (f *File) Stat() (smartfs.DirEntry, error) {
	client, err := f.fileSystem.Client()
	if err != nil {
		return smartfs.DirEntry{}, err
	}

	out, err := client.HeadObject(f.ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.objectKey()),
	})
	if err != nil {
		return smartfs.DirEntry{}, translateError("stat", f.URI(), err)
	}

	entry := smartfs.DirEntry{
		Name:         f.Name(),
		Size:         uint64(aws.ToInt64(out.ContentLength)), //nolint:gosec
		LastModified: out.LastModified,
		Metadata:     map[string]string{},
	}
	if etag := aws.ToString(out.ETag); etag != "" {
		entry.Metadata["etag"] = etag
	}
	if out.StorageClass != "" {
		entry.Metadata["storage-class"] = string(out.StorageClass)
	}
	if ct := aws.ToString(out.ContentType); ct != "" {
		entry.Metadata["content-type"] = ct
	}
	return entry, nil
}

// Location returns the file's parent Location.
func (f *File) Location() smartfs.Location {
	return &Location{
		fileSystem: f.fileSystem,
		bucket:     f.bucket,
		prefix:     utils.EnsureTrailingSlash(path.Dir(f.key)),
		ctx:        f.ctx,
	}
}

// CopyToLocation copies the file to the given location, keeping its name.
func (f *File) CopyToLocation(location smartfs.Location) (smartfs.File, error) {
	target, err := location.NewFile(f.Name())
	if err != nil {
		return nil, err
	}
	if err := f.CopyToFile(target); err != nil {
		return nil, err
	}
	return target, nil
}

// CopyToFile copies the file to target. Between two s3 paths this is a
// server-side CopyObject and the bytes never transit this process.
func (f *File) CopyToFile(file smartfs.File) error {
	if err := backend.ValidateCopySeekPosition(f); err != nil {
		return err
	}

	if s3Target, ok := file.(*File); ok {
		return f.copyWithin(s3Target)
	}

	if err := utils.TouchCopyBuffered(file, f, f.fileSystem.options.FileBufferSize); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return file.Close()
}

func (f *File) copyWithin(target *File) error {
	client, err := f.fileSystem.Client()
	if err != nil {
		return err
	}

	input := &awss3.CopyObjectInput{
		Bucket:     aws.String(target.bucket),
		Key:        aws.String(target.objectKey()),
		CopySource: aws.String(copySource(f.bucket, f.objectKey())),
		ACL:        f.fileSystem.options.ACL,
	}
	if _, err := client.CopyObject(f.ctx, input); err != nil {
		return translateError("copy", f.URI(), err)
	}
	return nil
}

// MoveToLocation moves the file to the given location, keeping its name.
func (f *File) MoveToLocation(location smartfs.Location) (smartfs.File, error) {
	target, err := location.NewFile(f.Name())
	if err != nil {
		return nil, err
	}
	if err := f.MoveToFile(target); err != nil {
		return nil, err
	}
	return target, nil
}

// MoveToFile moves the file to target as copy followed by delete; s3 has no
// native rename.
func (f *File) MoveToFile(file smartfs.File) error {
	if err := f.CopyToFile(file); err != nil {
		return err
	}
	return f.Delete()
}

// Delete removes the object. Deleting a non-existent object is not an error.
// With delete.WithAllVersions, all versions of the object are removed from
// versioned buckets.
func (f *File) Delete(opts ...options.DeleteOption) error {
	client, err := f.fileSystem.Client()
	if err != nil {
		return err
	}

	if _, err := client.DeleteObject(f.ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.objectKey()),
	}); err != nil && !isNotFound(err) {
		return translateError("delete", f.URI(), err)
	}

	for _, o := range opts {
		if _, ok := o.(delete.AllVersions); ok {
			return f.deleteAllVersions(client)
		}
	}
	return nil
}

func (f *File) deleteAllVersions(client Client) error {
	key := f.objectKey()
	input := &awss3.ListObjectVersionsInput{
		Bucket: aws.String(f.bucket),
		Prefix: aws.String(key),
	}

	for {
		out, err := client.ListObjectVersions(f.ctx, input)
		if err != nil {
			return translateError("delete", f.URI(), err)
		}

		for _, version := range out.Versions {
			if aws.ToString(version.Key) != key {
				continue
			}
			if _, err := client.DeleteObject(f.ctx, &awss3.DeleteObjectInput{
				Bucket:    aws.String(f.bucket),
				Key:       aws.String(key),
				VersionId: version.VersionId,
			}); err != nil {
				return translateError("delete", f.URI(), err)
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.KeyMarker = out.NextKeyMarker
		input.VersionIdMarker = out.NextVersionIdMarker
	}
	return nil
}

// Touch creates a zero-length object if none exists, otherwise refreshes the
// object's modification time by copying it onto itself.
func (f *File) Touch() error {
	client, err := f.fileSystem.Client()
	if err != nil {
		return err
	}

	exists, err := f.Exists()
	if err != nil {
		return err
	}

	if !exists {
		if _, err := f.Write(nil); err != nil {
			return err
		}
		return f.Close()
	}

	// a self-copy with a replaced metadata directive refreshes LastModified
	_, err = client.CopyObject(f.ctx, &awss3.CopyObjectInput{
		Bucket:            aws.String(f.bucket),
		Key:               aws.String(f.objectKey()),
		CopySource:        aws.String(copySource(f.bucket, f.objectKey())),
		MetadataDirective: types.MetadataDirectiveReplace,
		ACL:               f.fileSystem.options.ACL,
	})
	return translateError("touch", f.URI(), err)
}

// LastModified returns the object's LastModified timestamp.
func (f *File) LastModified() (*time.Time, error) {
	entry, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return entry.LastModified, nil
}

// Size returns the object's content length in bytes.
func (f *File) Size() (uint64, error) {
	entry, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return entry.Size, nil
}

// Path returns the absolute path of the File.
func (f *File) Path() string {
	return f.key
}

// Name returns the base name of the File.
func (f *File) Name() string {
	return path.Base(f.key)
}

// URI returns the File's URI as a string, ie s3://bucket/path/to/file.txt
func (f *File) URI() string {
	return utils.GetFileURI(f)
}

// objectKey is the s3 key: the path without its leading slash.
func (f *File) objectKey() string {
	return utils.RemoveLeadingSlash(f.key)
}

// copySource percent-encodes the "bucket/key" source expected by CopyObject.
func copySource(bucket, key string) string {
	u := url.URL{Path: bucket + "/" + key}
	return u.EscapedPath()
}

func (f *File) newReader(offset int64) (*stream.Reader, error) {
	client, err := f.fileSystem.Client()
	if err != nil {
		return nil, err
	}

	return stream.NewReader(f.ctx, &objectSource{
		client: client,
		bucket: f.bucket,
		key:    f.objectKey(),
		uri:    f.URI(),
	}, offset, f.streamOptions())
}

func (f *File) newWriter() (*stream.Writer, error) {
	client, err := f.fileSystem.Client()
	if err != nil {
		return nil, err
	}

	sink := &multipartSink{
		client:      client,
		bucket:      f.bucket,
		key:         f.objectKey(),
		contentType: f.contentType,
		acl:         f.fileSystem.options.ACL,
		sse:         !f.fileSystem.options.DisableServerSideEncryption,
	}
	return stream.NewWriter(f.ctx, sink, f.streamOptions()), nil
}

func (f *File) streamOptions() stream.Options {
	return stream.Options{
		ChunkSize:   int(f.fileSystem.options.UploadChunkSize),
		Concurrency: f.fileSystem.options.UploadConcurrency,
		URI:         f.URI(),
	}
}
